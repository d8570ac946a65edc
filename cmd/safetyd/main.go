package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/p-blackswan/safety-engine/internal/api"
	"github.com/p-blackswan/safety-engine/internal/audit"
	"github.com/p-blackswan/safety-engine/internal/config"
	"github.com/p-blackswan/safety-engine/internal/engine"
	"github.com/p-blackswan/safety-engine/internal/gate"
	"github.com/p-blackswan/safety-engine/internal/health"
	"github.com/p-blackswan/safety-engine/internal/metrics"
	"github.com/p-blackswan/safety-engine/internal/store"
	"github.com/p-blackswan/safety-engine/internal/tenantconfig"
)

const retentionInterval = time.Hour

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Logger = logger

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err == nil {
		zerolog.SetGlobalLevel(level)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("addr", cfg.HTTPListenAddr).
		Str("auth_mode", cfg.AuthMode).
		Str("db_path", cfg.DBPath).
		Msg("starting safety engine")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	db, err := store.New(cfg.DBPath, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}
	defer db.Close()

	m := metrics.New()

	configStore := tenantconfig.NewStore(logger,
		tenantconfig.WithPersister(db),
		tenantconfig.WithChangeHook(engine.ConfigHook(m)),
	)

	auditLog := audit.NewLog(cfg.AuditCapacity, db, logger)

	// Seed files first, then stored overrides, so a module edited through the
	// API wins over its seed file while the tenant's other seeded modules stay.
	sources := []tenantconfig.Source{}
	names := []string{}
	if cfg.OverridesDir != "" {
		sources = append(sources, tenantconfig.DirSource{Dir: cfg.OverridesDir, Logger: logger})
		names = append(names, "dir:"+cfg.OverridesDir)
	}
	sources = append(sources, db)
	names = append(names, "sqlite")
	hydrate(ctx, configStore, sources, auditLog, strings.Join(names, ","), logger)
	if n, err := db.CountOverrides(ctx); err == nil {
		logger.Info().Int("rows", n).Msg("stored tenant overrides")
	}

	eng := engine.New(configStore, m, logger, engine.WithGate(gate.New(gate.Config{
		LoginPath:     cfg.LoginPath,
		PaymentPath:   cfg.PaymentPath,
		DashboardPath: cfg.DashboardPath,
	})))

	checker := health.NewChecker(logger)
	checker.Register("sqlite", health.PingCheck(db))

	authCfg := api.AuthConfig{Mode: cfg.AuthMode, Secret: []byte(cfg.JWTSecret)}
	if cfg.AuthMode == config.AuthModeNone {
		logger.Warn().Msg("AUTH_MODE=none: tenant and role are taken from request headers")
	}

	server := api.NewServer(api.ServerConfig{
		ListenAddr: cfg.HTTPListenAddr,
		Auth:       authCfg,
		RateLimit: api.RateLimitConfig{
			RPS:   cfg.RateLimitRPS,
			Burst: cfg.RateLimitBurst,
		},
		CORSOrigins: cfg.CORSOrigins,
		Revisions:   db,
	}, eng, auditLog, checker, m, logger)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("API server error")
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runRetention(ctx, db, cfg.AuditRetention, logger)
	}()

	// Wait for shutdown signal
	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("shutting down gracefully")

	cancel()

	if err := server.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("API server shutdown error")
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Msg("all goroutines stopped")
	case <-time.After(15 * time.Second):
		logger.Warn().Msg("forced shutdown after timeout")
	}

	logger.Info().Msg("safety engine stopped")
}

// hydrate loads every override the sources hold and records the load in the
// audit trail. An unreadable source is logged and skipped; its tenants keep
// whatever the other sources provide.
func hydrate(ctx context.Context, s *tenantconfig.Store, srcs []tenantconfig.Source, auditLog *audit.Log, name string, logger zerolog.Logger) {
	entry := audit.Entry{TenantID: "*", Actor: name, Action: audit.ActionHydrate, Result: audit.ResultOK}
	if err := s.Hydrate(ctx, srcs...); err != nil {
		logger.Error().Err(err).Str("sources", name).Msg("failed to hydrate tenant overrides")
		entry.Result = audit.ResultError
		entry.Details = err.Error()
	}
	logger.Info().Str("sources", name).Int("tenants", len(s.Tenants())).Msg("tenant overrides loaded")
	auditLog.Record(ctx, entry)
}

// runRetention prunes old audit rows until ctx is cancelled.
func runRetention(ctx context.Context, db *store.Store, keep time.Duration, logger zerolog.Logger) {
	if keep <= 0 {
		return
	}
	ticker := time.NewTicker(retentionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := db.RunRetention(ctx, keep); err != nil {
				logger.Warn().Err(err).Msg("audit retention failed")
			}
			if size, err := db.DBSizeBytes(); err == nil {
				logger.Debug().Int64("bytes", size).Msg("database size")
			}
		}
	}
}
