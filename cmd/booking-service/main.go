package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-booking/internal/auth"
	"ms-booking/internal/booking"
	"ms-booking/internal/booking/api"
	bookingdb "ms-booking/internal/booking/db"
	bookingkafka "ms-booking/internal/booking/kafka"
	bookingredis "ms-booking/internal/booking/redis"
	"ms-booking/internal/catalog"
	catalogdb "ms-booking/internal/catalog/db"
	"ms-booking/internal/config"
	"ms-booking/internal/database/migrations"
	"ms-booking/internal/kafka"
	"ms-booking/internal/logger"
	"ms-booking/internal/promo"
	promodb "ms-booking/internal/promo/db"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	appLog := logger.NewLogger("booking-service")
	defer appLog.Close()

	ctx := context.Background()

	// --- PostgreSQL Setup ---
	sqldb, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		appLog.Fatal("DATABASE", "failed to open postgres: "+err.Error())
	}
	defer sqldb.Close()
	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	if err := sqldb.Ping(); err != nil {
		appLog.Fatal("DATABASE", "failed to connect to postgres: "+err.Error())
	}

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	runner := migrations.NewRunner(bunDB, migrations.DefaultOptions())
	if err := runner.MigrateUp(); err != nil {
		appLog.Fatal("DATABASE", "migrations failed: "+err.Error())
	}

	// --- Redis Setup ---
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		appLog.Fatal("REDIS", "failed to connect to redis: "+err.Error())
	}

	// --- Kafka Setup ---
	var publisher booking.EventPublisher
	if cfg.Kafka.Enabled {
		topics := []string{cfg.Kafka.Topics.ReservationCreated, cfg.Kafka.Topics.ReservationCancelled}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, topics); err != nil {
			appLog.Warn("KAFKA", "topic bootstrap failed: "+err.Error())
		}
		producer := kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()
		publisher = bookingkafka.NewPublisher(producer, cfg.Kafka.Topics)
	}

	// --- Initialize Dependencies ---
	catalogSvc := catalog.NewService(&catalogdb.DB{Bun: bunDB})
	validator := promo.NewValidator(&promodb.DB{Bun: bunDB}, appLog)
	spaceLock := bookingredis.NewRedis(redisClient, cfg.Booking.SpaceLockTTL)
	bookingSvc := booking.NewService(
		&bookingdb.DB{Bun: bunDB},
		spaceLock,
		publisher,
		catalogSvc,
		validator,
		cfg.Booking,
		appLog,
	)

	handler := &api.Handler{Booking: bookingSvc, Catalog: catalogSvc}

	// --- Setup Router ---
	r := chi.NewRouter()
	r.Use(requestLogger(appLog))
	r.Use(auth.Middleware())

	r.Post("/api/v1/reservations", handler.CreateReservation)
	r.Get("/api/v1/reservations/{reservationId}", handler.GetReservation)
	r.Delete("/api/v1/reservations/{reservationId}", handler.CancelReservation)
	r.Get("/api/v1/users/me/reservations", handler.ListMyReservations)
	r.Get("/api/v1/spaces", handler.ListSpaces)
	r.Get("/api/v1/spaces/{spaceId}", handler.GetSpace)
	r.Get("/api/v1/spaces/{spaceId}/availability", handler.ListAvailability)

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		appLog.Info("SERVER", "booking service running on "+cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("SERVER", "shutdown signal received")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		appLog.Fatal("SERVER", "forced shutdown: "+err.Error())
	}

	appLog.Info("SERVER", "server exited gracefully")
}

func requestLogger(appLog *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			appLog.LogAPI(r.Method, r.URL.Path, strconv.Itoa(ww.Status()), time.Since(start).String())
		})
	}
}
