package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/justsurfingit/job-board/internal/auth"
	"github.com/justsurfingit/job-board/internal/config"
	"github.com/justsurfingit/job-board/internal/database"
	"github.com/justsurfingit/job-board/internal/handlers"
	"github.com/justsurfingit/job-board/internal/lock"
	"github.com/justsurfingit/job-board/internal/logging"
	"github.com/justsurfingit/job-board/internal/notify"
	"github.com/justsurfingit/job-board/internal/ratelimit"
	"github.com/justsurfingit/job-board/internal/services"
	"github.com/justsurfingit/job-board/internal/store"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Configuration and logging
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logging.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Database
	db, err := database.Connect(cfg.Database.Driver, cfg.Database.DSN, log)
	if err != nil {
		return err
	}
	st := store.NewGormStore(db)

	// 3. Infrastructure
	locker, err := newLocker(ctx, cfg, log)
	if err != nil {
		return err
	}
	sender := newSender(ctx, cfg, log)
	extraction, err := services.NewExtractionService(ctx, cfg.GeminiAPIKey, log)
	if err != nil {
		return err
	}
	if extraction.Client == nil {
		log.Warn("GEMINI_API_KEY not set, job extraction disabled")
	}
	applyLimiter := ratelimit.PerMinute(cfg.ApplyRatePerMinute)

	// 4. Services
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	accounts := services.NewAccountService(st, tokens, log)
	if err := accounts.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
		return err
	}

	// 5. Router
	router := handlers.NewRouter(handlers.RouterDeps{
		Accounts:       accounts,
		Jobs:           services.NewJobService(st, locker, log),
		Applications:   services.NewApplicationService(st, locker, sender, log),
		Extraction:     extraction,
		Tokens:         tokens,
		ApplyLimiter:   applyLimiter,
		Log:            log,
		CORSOrigins:    cfg.CORSOrigins,
		RequestTimeout: cfg.RequestTimeout,
	})
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return applyLimiter.Run(gctx, 2*time.Minute)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newLocker(ctx context.Context, cfg config.Config, log *slog.Logger) (lock.Locker, error) {
	if cfg.Lock.Backend != "redis" {
		return lock.NewKeyedMutex(), nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Lock.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	log.Info("using redis locks", "addr", cfg.Lock.RedisAddr)
	return lock.NewRedisLocker(client, cfg.Lock.TTL, log), nil
}

// newSender prefers Gmail and falls back to logging when the OAuth files are missing.
func newSender(ctx context.Context, cfg config.Config, log *slog.Logger) notify.Sender {
	gmail, err := notify.NewGmailSender(ctx, cfg.Gmail.CredentialsFile, cfg.Gmail.TokenFile)
	if err != nil {
		log.Warn("gmail unavailable, notifications will only be logged", "error", err)
		return notify.LogSender{Log: log}
	}
	log.Info("gmail notifications enabled")
	return gmail
}
