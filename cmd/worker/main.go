package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/fjordbank/core/internal/config"
	"github.com/fjordbank/core/internal/gateway"
	"github.com/fjordbank/core/internal/job"
	"github.com/fjordbank/core/internal/ledger"
	"github.com/fjordbank/core/internal/notify"
	"github.com/fjordbank/core/internal/queue"
	"github.com/fjordbank/core/internal/repository/postgres"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pool, err := connectDB(cfg.Postgres.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()
	log.Println("Connected to database")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	log.Println("Connected to Redis")

	store := postgres.NewStore(pool)
	settlement := gateway.NewHTTPSettlement(cfg.Gateway.SettlementURL, cfg.Gateway.SettlementTimeout)
	engine := ledger.NewEngine(store, settlement, notify.NewLogNotifier(), cfg.Policy())

	worker := queue.NewWorker(redisClient, engine, cfg.Worker.MaxAttempts, cfg.Worker.Backoff)
	scheduler := job.NewScheduler(engine, store, cfg.Worker.ScheduleInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go worker.Start(ctx)
	go scheduler.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down worker...")
	worker.Stop()
	scheduler.Stop()
	cancel()
	log.Println("Worker stopped")
}

func connectDB(dsn string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	return pool, nil
}
