package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	bookingdb "ms-booking/internal/booking/db"
	"ms-booking/internal/config"
	"ms-booking/internal/logger"
)

// Marks reservations whose end time has passed as completed. Runs on an
// interval so the booking service itself never has to touch old rows.
func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	appLog := logger.NewLogger("completion-sweeper")
	defer appLog.Close()

	sqldb, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		appLog.Fatal("DATABASE", "failed to open postgres: "+err.Error())
	}
	defer sqldb.Close()

	if err := sqldb.Ping(); err != nil {
		appLog.Fatal("DATABASE", "failed to connect to postgres: "+err.Error())
	}

	bunDB := bun.NewDB(sqldb, pgdialect.New())
	store := &bookingdb.DB{Bun: bunDB}

	interval := sweepInterval()
	appLog.Info("SWEEPER", "sweeping every "+interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sweep(store, appLog, cfg.Booking.StoreTimeout)
	for {
		select {
		case <-ticker.C:
			sweep(store, appLog, cfg.Booking.StoreTimeout)
		case <-quit:
			appLog.Info("SWEEPER", "shutdown signal received")
			return
		}
	}
}

func sweep(store *bookingdb.DB, appLog *logger.Logger, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	n, err := store.MarkCompleted(ctx, time.Now().UTC())
	if err != nil {
		appLog.Error("SWEEPER", "mark completed failed: "+err.Error())
		return
	}
	if n > 0 {
		appLog.Info("SWEEPER", fmt.Sprintf("marked %d reservations completed", n))
	}
}

func sweepInterval() time.Duration {
	if v := os.Getenv("SWEEP_INTERVAL_MINUTES"); v != "" {
		var mins int
		if _, err := fmt.Sscanf(v, "%d", &mins); err == nil && mins > 0 {
			return time.Duration(mins) * time.Minute
		}
	}
	return 5 * time.Minute
}
