// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the MiniTube user API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Wire the account core and its HTTP handler.
//  7. Start the provisioning repair loop.
//  8. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
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

	"github.com/taibuivan/minitube/internal/api"
	"github.com/taibuivan/minitube/internal/platform/config"
	"github.com/taibuivan/minitube/internal/platform/constants"
	"github.com/taibuivan/minitube/internal/platform/database"
	"github.com/taibuivan/minitube/internal/platform/limiter"
	"github.com/taibuivan/minitube/internal/platform/migration"
	pgstore "github.com/taibuivan/minitube/internal/platform/postgres"
	redisstore "github.com/taibuivan/minitube/internal/platform/redis"
	"github.com/taibuivan/minitube/internal/platform/sec"
	"github.com/taibuivan/minitube/internal/users/account"
	"github.com/taibuivan/minitube/internal/users/auth"
	"github.com/taibuivan/minitube/internal/users/request"
	"github.com/taibuivan/minitube/internal/users/verification"
)

const (
	// repairGracePeriod leaves in-flight registrations alone.
	repairGracePeriod = time.Minute
	// repairBatchSize caps the accounts repaired per tick.
	repairBatchSize = 100
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for the process lifetime; cancelled on shutdown.
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// Startup deadline so misconfiguration is caught quickly.
	startupCtx, startupCancel := context.WithTimeout(rootCtx, 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, pgstore.PoolConfig{
		DSN:      cfg.DatabaseURL,
		MaxConns: cfg.DatabaseMaxConns,
		MinConns: cfg.DatabaseMinConns,
	}, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Security ───────────────────────────────────────────────────────
	tokenizer := sec.NewTokenizer(cfg.TokenTTL, time.Now)
	hasher, err := sec.NewPasswordHasher(cfg.PasswordHashing)
	must(log, err, "initialize password hasher")

	throttle := func(prefix string) limiter.Limiter {
		return limiter.NewRedis(rdb, limiter.Config{
			Prefix:      prefix,
			Window:      cfg.ThrottleWindow,
			MaxAttempts: cfg.ThrottleMaxAttempts,
		})
	}

	// ── 7. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func(ctx context.Context) error {
			return pgstore.Ping(ctx, pool)
		},
		CheckCache: func(ctx context.Context) error {
			return redisstore.Ping(ctx, rdb)
		},
	}, log)

	// ── 8. Domain Wiring ──────────────────────────────────────────────────
	transactor := database.NewTransactor(pool)

	challengeService := verification.NewService(verification.NewRepository(pool), verification.Config{
		TTL: cfg.ChallengeTTL,
		Now: time.Now,
	}, log)

	accountService := account.NewService(account.Dependencies{
		Accounts:   account.NewRepository(pool),
		LoginLogs:  account.NewLoginLogRepository(pool),
		Challenges: challengeService,
		Transactor: transactor,
		Tokenizer:  tokenizer,
		Hasher:     hasher,
		Logger:     log,
		Now:        time.Now,
	})

	requestService := request.NewService(request.NewRepository(pool), accountService, transactor, log, time.Now)

	gateway := auth.NewGateway(accountService, requestService, tokenizer, auth.Throttles{
		ChallengeIssue:  throttle(constants.RedisPrefixChallengeIssue),
		ChallengeVerify: throttle(constants.RedisPrefixChallengeVerify),
		ForgotPassword:  throttle(constants.RedisPrefixForgotPassword),
	}, log)

	go repairLoop(rootCtx, log, accountService, cfg.ProvisioningRepairInterval)

	// ── 9. HTTP Server ────────────────────────────────────────────────────
	server := api.NewServer(rootCtx, cfg, log, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		User:      auth.NewHandler(gateway),
	})

	// ── 10. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	rootCancel()

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// repairLoop provisions accounts whose registration stopped half way, until ctx is done.
func repairLoop(ctx context.Context, log *slog.Logger, accounts *account.Service, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			repaired, err := accounts.RepairProvisioning(ctx, repairGracePeriod, repairBatchSize)
			if err != nil {
				log.Error("provisioning_repair_failed", slog.Any("error", err))
				continue
			}
			if repaired > 0 {
				log.Info("provisioning_repaired", slog.Int("accounts", repaired))
			}
		case <-ctx.Done():
			return
		}
	}
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned and
// handled explicitly.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
