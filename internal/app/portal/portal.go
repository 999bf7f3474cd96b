// Package portal собирает HTTP-приложение портала: хранилище, redis,
// сервис идентификации, реестр резолверов сессий, страницы и API.
package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/ems-portal/internal/cache"
	"github.com/magabrotheeeer/ems-portal/internal/config"
	"github.com/magabrotheeeer/ems-portal/internal/guard"
	"github.com/magabrotheeeer/ems-portal/internal/http/handlers/health"
	"github.com/magabrotheeeer/ems-portal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/ems-portal/internal/lib/jwt"
	"github.com/magabrotheeeer/ems-portal/internal/lib/sl"
	"github.com/magabrotheeeer/ems-portal/internal/metrics"
	"github.com/magabrotheeeer/ems-portal/internal/migrations"
	"github.com/magabrotheeeer/ems-portal/internal/services/identity"
	"github.com/magabrotheeeer/ems-portal/internal/session"
	"github.com/magabrotheeeer/ems-portal/internal/storage"
	"github.com/magabrotheeeer/ems-portal/internal/web"
)

const (
	janitorInterval = time.Minute
	limiterIdle     = 10 * time.Minute
)

// App — HTTP-приложение портала.
type App struct {
	server   *http.Server
	logger   *slog.Logger
	db       *storage.Storage
	redis    *redis.Client
	hub      *cache.Hub
	registry *session.Registry
	limiter  *middlewarectx.IPLimiter
}

// New подключается к зависимостям и собирает роутер.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.portal.New"

	table, err := guard.NewTable(cfg.Routes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = storage.CheckDatabaseReady(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	profileCache, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	redisClient := profileCache.Db
	hub := cache.NewHub(redisClient, logger)
	if err = hub.Start(ctx); err != nil {
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	identityService := identity.New(
		logger,
		db,
		cache.NewSessionStore(redisClient),
		profileCache,
		hub,
		jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL),
		cfg.TokenTTL,
		cfg.Session.ProfileTTL,
	)

	registry := session.NewRegistry(logger, func(sid string) session.Backend {
		return identityService.Client(sid)
	}, session.OptionsFromConfig(cfg.Session, collector), cfg.Session.IdleTTL)

	pages, err := web.New(logger, table, identityService, collector, cfg.Session)
	if err != nil {
		registry.Close()
		_ = hub.Close()
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	limiter := middlewarectx.NewIPLimiter(cfg.RateLimit)
	checks := map[string]health.CheckFunc{
		"postgres": db.DB.PingContext,
		"redis": func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		},
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg.Session, identityService, registry, pages, collector, limiter, reg, checks)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:   srv,
		logger:   logger,
		db:       db,
		redis:    redisClient,
		hub:      hub,
		registry: registry,
		limiter:  limiter,
	}, nil
}

// Run запускает HTTP-сервер и фоновые задачи и ждёт отмены ctx.
func (a *App) Run(ctx context.Context) error {
	go a.registry.Janitor(ctx, janitorInterval)
	go a.cleanupLimiter(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err = a.server.Shutdown(timeoutCtx)
	}
	a.close()
	return err
}

func (a *App) cleanupLimiter(ctx context.Context) {
	ticker := time.NewTicker(limiterIdle)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.limiter.Cleanup(limiterIdle)
		}
	}
}

func (a *App) close() {
	a.registry.Close()
	if err := a.hub.Close(); err != nil {
		a.logger.Warn("failed to close session hub", sl.Err(err))
	}
	if err := a.redis.Close(); err != nil {
		a.logger.Warn("failed to close redis", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("failed to close storage", sl.Err(err))
	}
}
