// Worker runs the retention sweeper: expired OTP challenges, expired magic
// links, and dead sessions are kept for RETENTION_WINDOW (audit trail), then
// purged on a fixed interval.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	challengerepo "veo-auth-service/internal/challenge/repository"
	"veo-auth-service/internal/config"
	"veo-auth-service/internal/db"
	magiclinkrepo "veo-auth-service/internal/magiclink/repository"
	sessionrepo "veo-auth-service/internal/session/repository"
)

const sweepInterval = time.Hour

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
		os.Exit(1)
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Error("db", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer conn.Close()

	challenges := challengerepo.NewPostgresRepository(conn)
	links := magiclinkrepo.NewPostgresRepository(conn)
	sessions := sessionrepo.NewPostgresRepository(conn)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	retention := cfg.Retention()
	logger.Info("retention worker started",
		slog.Duration("retention", retention),
		slog.Duration("interval", sweepInterval))

	sweep := func() {
		cutoff := time.Now().UTC().Add(-retention)
		sweepCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()

		if n, err := challenges.PurgeExpired(sweepCtx, cutoff); err != nil {
			logger.Error("purge challenges", slog.String("error", err.Error()))
		} else if n > 0 {
			logger.Info("purged challenges", slog.Int64("count", n))
		}
		if n, err := links.PurgeExpired(sweepCtx, cutoff); err != nil {
			logger.Error("purge magic links", slog.String("error", err.Error()))
		} else if n > 0 {
			logger.Info("purged magic links", slog.Int64("count", n))
		}
		if n, err := sessions.PurgeDead(sweepCtx, cutoff); err != nil {
			logger.Error("purge sessions", slog.String("error", err.Error()))
		} else if n > 0 {
			logger.Info("purged sessions", slog.Int64("count", n))
		}
	}

	sweep()
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("retention worker stopped")
			return
		case <-ticker.C:
			sweep()
		}
	}
}
