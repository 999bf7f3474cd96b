// Package notifier собирает планировщик уведомлений о пробном периоде.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/ems-portal/internal/config"
	"github.com/magabrotheeeer/ems-portal/internal/http/handlers/health"
	"github.com/magabrotheeeer/ems-portal/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/ems-portal/internal/lib/sl"
	"github.com/magabrotheeeer/ems-portal/internal/metrics"
	notifierservice "github.com/magabrotheeeer/ems-portal/internal/services/notifier"
	"github.com/magabrotheeeer/ems-portal/internal/storage"
)

// App — процесс планировщика уведомлений.
type App struct {
	service  *notifierservice.Service
	interval time.Duration
	server   *http.Server
	db       *storage.Storage
	conn     *amqp.Connection
	ch       *amqp.Channel
	logger   *slog.Logger
}

func waitForDB(ctx context.Context, db *storage.Storage) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(3*time.Second), 10),
		ctx,
	)
	return backoff.Retry(func() error {
		return storage.CheckDatabaseReady(ctx, db)
	}, policy)
}

// New подключается к базе и брокеру. Таблицы создаёт портал, планировщик ждёт миграций.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.notifier.New"

	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = waitForDB(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: database not ready: %w", op, err)
	}

	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQ)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.TrialQueues())
	if err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	service := notifierservice.New(logger, db, rabbitmq.NewPublisher(ch), collector, cfg.Notifier.Window)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	router.Get("/health", health.New(logger, map[string]health.CheckFunc{
		"postgres": db.DB.PingContext,
		"rabbitmq": func(context.Context) error {
			if conn.IsClosed() {
				return amqp.ErrClosed
			}
			return nil
		},
	}).ServeHTTP)

	return &App{
		service:  service,
		interval: cfg.Notifier.Interval,
		server: &http.Server{
			Addr:              cfg.Notifier.MetricsAddr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
		db:     db,
		conn:   conn,
		ch:     ch,
		logger: logger,
	}, nil
}

// Run запускает проходы планировщика и сервер метрик до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	go func() {
		a.logger.Info("metrics server starting on", slog.String("address", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", sl.Err(err))
		}
	}()

	a.service.Run(ctx, a.interval)

	a.logger.Info("shutting down trial notifier")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("failed to shutdown metrics server", sl.Err(err))
	}
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
	return nil
}
