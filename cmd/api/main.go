package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/fjordbank/core/internal/auth"
	"github.com/fjordbank/core/internal/bootstrap"
	"github.com/fjordbank/core/internal/config"
	"github.com/fjordbank/core/internal/gateway"
	"github.com/fjordbank/core/internal/handler"
	"github.com/fjordbank/core/internal/ledger"
	appmiddleware "github.com/fjordbank/core/internal/middleware"
	"github.com/fjordbank/core/internal/notify"
	"github.com/fjordbank/core/internal/queue"
	"github.com/fjordbank/core/internal/repository/postgres"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Auth.JWTSecret == "" {
		log.Fatal("auth.jwt_secret must be set")
	}

	pool, err := connectDB(cfg.Postgres.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()
	log.Println("Connected to database")

	if err := bootstrap.Initialize(context.Background(), pool); err != nil {
		log.Fatalf("Failed to bootstrap: %v", err)
	}

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
	publisher := queue.NewPublisher(redisClient)

	accountHandler := handler.NewAccountHandler(engine, store)
	transactionHandler := handler.NewTransactionHandler(engine, store)
	transferHandler := handler.NewTransferHandler(engine, store, publisher)
	currencyHandler := handler.NewCurrencyHandler(engine, store)
	scheduleHandler := handler.NewScheduleHandler(engine, store)
	holdHandler := handler.NewHoldHandler(engine, store)

	authMiddleware := appmiddleware.NewAuthMiddleware(auth.NewVerifier(cfg.Auth.JWTSecret))

	r := chi.NewRouter()
	r.Use(appmiddleware.CORS(appmiddleware.DefaultCORSConfig()))
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", healthHandler(pool, redisClient))

	r.Route("/v1", func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth)

		accountHandler.RegisterRoutes(r)
		transactionHandler.RegisterRoutes(r)
		transferHandler.RegisterRoutes(r)
		currencyHandler.RegisterRoutes(r)
		scheduleHandler.RegisterRoutes(r)
		holdHandler.RegisterRoutes(r)
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("Server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server stopped")
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

func healthHandler(db *pgxpool.Pool, rdb *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := db.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status": "unhealthy", "database": "disconnected"}`)
			return
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status": "unhealthy", "redis": "disconnected"}`)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status": "healthy"}`)
	}
}
