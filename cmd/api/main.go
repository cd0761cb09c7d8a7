package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/tchisanga/opsuite-backend/internal/modules/auth"
	"github.com/tchisanga/opsuite-backend/internal/modules/catalog"
	"github.com/tchisanga/opsuite-backend/internal/modules/pool"
	"github.com/tchisanga/opsuite-backend/internal/modules/user"
	"github.com/tchisanga/opsuite-backend/pkg/idempotency"
	"github.com/tchisanga/opsuite-backend/pkg/logging"
	"github.com/tchisanga/opsuite-backend/pkg/shutdown"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using environment")
	}
	logger := logging.New()

	db, err := sql.Open("postgres", os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal(err)
	}
	logger.Info("connected to database")

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)

	// ── Identity ────────────────────────────────────────────
	userRepo := user.NewPostgresRepository(db)
	userService := user.NewService(userRepo)
	user.NewHandler(userService).RegisterRoutes(router)

	authService := auth.NewService(userRepo)
	auth.NewHandler(authService).RegisterRoutes(router)

	// ── Inventory pool & catalog ────────────────────────────
	stockRepo := pool.NewPostgresRepository(db)

	var publisher pool.AlertPublisher = pool.NoopPublisher{}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		kp := pool.NewKafkaPublisher(strings.Split(brokers, ","), "stock.alerts")
		defer kp.Close()
		publisher = kp
	}

	ledger := pool.NewLedgerService(stockRepo, publisher, logger)
	reservations := pool.NewReservationService(stockRepo)
	queries := pool.NewQueryService(stockRepo, os.Getenv("POOL_REDUCE_AGAINST_AVAILABLE") == "true")
	cleanup := pool.NewCleanupService(stockRepo)
	poolHandler := pool.NewHandler(ledger, reservations, queries, cleanup,
		auth.RequireRole("ADMIN", "MANAGER"))

	catalogRepo := catalog.NewPostgresRepository(db)
	catalogService := catalog.NewService(catalogRepo)
	catalogHandler := catalog.NewHandler(catalogService)

	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware)
		if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
			opts, err := redis.ParseURL(redisURL)
			if err != nil {
				log.Fatal(err)
			}
			store := idempotency.NewStore(redis.NewClient(opts), 24*time.Hour)
			r.Use(store.Middleware)
		}
		catalogHandler.RegisterRoutes(r)
		poolHandler.RegisterRoutes(r)
	})

	// ── Reservation sweeper ─────────────────────────────────
	interval := 5 * time.Minute
	if v := os.Getenv("POOL_CLEANUP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			interval = d
		}
	}
	sweeper := pool.NewSweeper(cleanup, interval, logger)
	go sweeper.Run(ctx)

	// ── Start server ────────────────────────────────────────
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}
	server := &http.Server{Addr: ":" + port, Handler: router}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info("opsuite api server starting", "port", port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
	logger.Info("server stopped")
}
