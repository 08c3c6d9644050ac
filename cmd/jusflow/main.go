package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	jfhttp "github.com/jusflow/jusflow/internal/adapter/http"
	jfnats "github.com/jusflow/jusflow/internal/adapter/nats"
	jfotel "github.com/jusflow/jusflow/internal/adapter/otel"
	"github.com/jusflow/jusflow/internal/adapter/postgres"
	"github.com/jusflow/jusflow/internal/adapter/ristretto"
	"github.com/jusflow/jusflow/internal/config"
	"github.com/jusflow/jusflow/internal/logger"
	"github.com/jusflow/jusflow/internal/middleware"
	"github.com/jusflow/jusflow/internal/port/messagequeue"
	"github.com/jusflow/jusflow/internal/service"
)

const tokenCleanupInterval = time.Hour

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	slog.SetDefault(logger.New(cfg.Logging))
	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"pg_max_conns", cfg.Postgres.MaxConns,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Telemetry ---
	shutdownOtel, err := jfotel.Setup(ctx, cfg.Logging.Service, cfg.Otel.Endpoint)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOtel(flushCtx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()

	metrics, err := jfotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	var queue messagequeue.Queue
	if cfg.NATS.URL != "" {
		q, err := jfnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = q.Drain() }()
		queue = q
	}

	tenantCache, err := ristretto.New(cfg.Cache.MaxCostBytes)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer tenantCache.Close()

	// --- Services ---
	store := postgres.NewStore(pool)
	provisioner := postgres.NewProvisioner(pool)
	router := postgres.NewRouter(pool, store)

	authSvc := service.NewAuthService(store, provisioner, queue, metrics, &cfg.Auth)
	tenantSvc := service.NewTenantService(store, router, tenantCache, queue, cfg.Cache.TenantTTL)

	authSvc.StartTokenCleanup(ctx, tokenCleanupInterval)

	if tenants, err := tenantSvc.ListActive(ctx); err != nil {
		slog.Warn("tenant registry check failed", "error", err)
	} else {
		slog.Info("tenant registry loaded", "active_tenants", len(tenants))
	}

	// --- HTTP ---
	gate := middleware.AccessGate(authSvc, tenantSvc, router)
	server := jfhttp.NewServer(authSvc, tenantSvc, store)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           server.NewRouter(cfg.Server, gate),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
