package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/fjordbank/core/internal/ledger"
)

// Config is the full application configuration, loaded from config.yaml
// with environment variable overrides (FJORDBANK_SERVER_PORT etc).
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Business BusinessConfig `mapstructure:"business"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	MaxConns int    `mapstructure:"max_conns"`
}

// DSN builds the pgx connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode, p.MaxConns)
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuthConfig struct {
	// JWTSecret verifies tokens issued by the identity service. This
	// service never issues tokens.
	JWTSecret string `mapstructure:"jwt_secret"`
}

type GatewayConfig struct {
	SettlementURL     string        `mapstructure:"settlement_url"`
	SettlementTimeout time.Duration `mapstructure:"settlement_timeout"`
}

type WorkerConfig struct {
	MaxAttempts      int           `mapstructure:"max_attempts"`
	Backoff          time.Duration `mapstructure:"backoff"`
	ScheduleInterval time.Duration `mapstructure:"schedule_interval"`
}

// BusinessConfig holds the tunable ledger policy parameters
type BusinessConfig struct {
	MaxDepositAmount           float64 `mapstructure:"max_deposit_amount"`
	ExternalFeePercent         float64 `mapstructure:"external_fee_percent"`
	DailyWithdrawalLimit       float64 `mapstructure:"daily_withdrawal_limit"`
	DailyTransferLimit         float64 `mapstructure:"daily_transfer_limit"`
	DailyExternalTransferLimit float64 `mapstructure:"daily_external_transfer_limit"`
	SpreadThreshold            float64 `mapstructure:"spread_threshold"`
}

// Policy converts the business block into the ledger's policy type
func (c Config) Policy() ledger.Policy {
	p := ledger.DefaultPolicy()
	if c.Business.MaxDepositAmount > 0 {
		p.MaxDepositAmount = decimal.NewFromFloat(c.Business.MaxDepositAmount)
	}
	if c.Business.ExternalFeePercent > 0 {
		p.ExternalFeePercent = decimal.NewFromFloat(c.Business.ExternalFeePercent)
	}
	if c.Business.DailyWithdrawalLimit > 0 {
		p.DailyWithdrawalLimit = decimal.NewFromFloat(c.Business.DailyWithdrawalLimit)
	}
	if c.Business.DailyTransferLimit > 0 {
		p.DailyTransferLimit = decimal.NewFromFloat(c.Business.DailyTransferLimit)
	}
	if c.Business.DailyExternalTransferLimit > 0 {
		p.DailyExternalTransferLimit = decimal.NewFromFloat(c.Business.DailyExternalTransferLimit)
	}
	if c.Business.SpreadThreshold > 0 {
		p.SpreadThreshold = decimal.NewFromFloat(c.Business.SpreadThreshold)
	}
	if c.Worker.MaxAttempts > 0 {
		p.MaxCompletionAttempts = c.Worker.MaxAttempts
	}
	return p
}

// Load reads configuration from the given path (or the working directory)
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvPrefix("FJORDBANK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Missing file is fine; defaults plus env cover everything
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "bank")
	v.SetDefault("postgres.password", "bank")
	v.SetDefault("postgres.database", "bank")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("gateway.settlement_url", "http://localhost:9090")
	v.SetDefault("gateway.settlement_timeout", 15*time.Second)

	v.SetDefault("worker.max_attempts", 5)
	v.SetDefault("worker.backoff", 2*time.Second)
	v.SetDefault("worker.schedule_interval", time.Minute)

	v.SetDefault("business.max_deposit_amount", 1000000)
	v.SetDefault("business.external_fee_percent", 0.01)
	v.SetDefault("business.daily_withdrawal_limit", 10000)
	v.SetDefault("business.daily_transfer_limit", 50000)
	v.SetDefault("business.daily_external_transfer_limit", 25000)
	v.SetDefault("business.spread_threshold", 10000)
}
