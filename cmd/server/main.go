package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"fuelstation/backend/internal/config"
	"fuelstation/backend/internal/dedup"
	"fuelstation/backend/internal/httpapi"
	"fuelstation/backend/internal/logger"
	"fuelstation/backend/internal/metrics"
	"fuelstation/backend/internal/service"
	"fuelstation/backend/internal/store"
	"fuelstation/backend/internal/store/memory"
	pgstore "fuelstation/backend/internal/store/postgres"
	sqlitestore "fuelstation/backend/internal/store/sqlite"
)

func main() {
	cfg := config.Load()
	log := logger.Must(logger.New(cfg.LogLevel))
	defer func() { _ = log.Sync() }()

	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatal("invalid security configuration", zap.Error(err))
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatal("invalid TIMEZONE", zap.String("timezone", cfg.Timezone), zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	closers := make([]func() error, 0, 2)

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		log.Fatal("repository unavailable", zap.String("kind", cfg.StoreKind()), zap.Error(err))
	}
	if closeRepo != nil {
		closers = append(closers, closeRepo)
	}
	log.Info("repository ready", zap.String("kind", cfg.StoreKind()))

	guard := dedup.Guard(dedup.NewMemoryGuard(nil))
	if cfg.RedisAddr != "" {
		redisGuard := dedup.NewRedisGuard(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisGuard.Ping(ctx); err != nil {
			log.Warn("redis unavailable, using in-process submission guard", zap.Error(err))
		} else {
			guard = redisGuard
			closers = append(closers, redisGuard.Close)
			log.Info("submission guard: redis", zap.String("addr", cfg.RedisAddr))
		}
	} else {
		log.Info("submission guard: in-process")
	}

	rec := metrics.New(prometheus.DefaultRegisterer)
	svc := service.New(repo, guard,
		service.WithLogger(logger.Named(log, "service")),
		service.WithMetrics(rec),
		service.WithLocation(loc),
		service.WithGuardTTL(cfg.SubmissionGuardTTL),
	)

	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, repo)
	created, err := auth.Bootstrap(ctx, cfg.BootstrapManagerUsername, cfg.BootstrapManagerPassword)
	if err != nil {
		log.Fatal("bootstrap manager account", zap.Error(err))
	}
	if created {
		log.Info("bootstrap manager created", zap.String("username", cfg.BootstrapManagerUsername))
	}

	api := httpapi.New(svc, auth, httpapi.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger.Named(log, "http"),
		Metrics:        rec,
	})

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("fuel station backend listening", zap.String("addr", cfg.Address()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Error("close error", zap.Error(err))
		}
	}

	log.Info("server stopped")
}

// openRepository picks postgres, then sqlite, then the seeded in-memory
// store. A configured database that cannot be reached is fatal.
func openRepository(ctx context.Context, cfg config.Config) (store.Repository, func() error, error) {
	switch cfg.StoreKind() {
	case "postgres":
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := pg.Migrate(); err != nil {
			_ = pg.Close()
			return nil, nil, err
		}
		return pg, pg.Close, nil
	case "sqlite":
		lite, err := sqlitestore.New(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := lite.Migrate(); err != nil {
			_ = lite.Close()
			return nil, nil, err
		}
		return lite, lite.Close, nil
	default:
		return memory.NewSeeded(), nil, nil
	}
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.BootstrapManagerPassword != "" && len(cfg.BootstrapManagerPassword) < 8 {
		return fmt.Errorf("BOOTSTRAP_MANAGER_PASSWORD must be at least 8 characters")
	}
	if cfg.BootstrapManagerPassword != "" && cfg.BootstrapManagerUsername == "" {
		return fmt.Errorf("BOOTSTRAP_MANAGER_USERNAME is required with BOOTSTRAP_MANAGER_PASSWORD")
	}
	for _, origin := range cfg.AllowedOrigins {
		if origin == "*" {
			return fmt.Errorf("ALLOWED_ORIGINS must list explicit origins, not *")
		}
	}
	return nil
}
