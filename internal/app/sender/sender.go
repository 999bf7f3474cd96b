// Package sender собирает процесс отправки писем из очередей уведомлений.
package sender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/ems-portal/internal/config"
	"github.com/magabrotheeeer/ems-portal/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/ems-portal/internal/lib/sl"
	"github.com/magabrotheeeer/ems-portal/internal/lib/smtp"
	senderservice "github.com/magabrotheeeer/ems-portal/internal/services/sender"
)

// App — процесс отправки писем.
type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService *senderservice.Service
	logger        *slog.Logger
}

// New подключается к брокеру и готовит SMTP-транспорт.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.sender.New"

	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQ)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.TrialQueues())
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	transport := smtp.NewTransport(cfg.SMTP, logger)
	return &App{
		conn:          conn,
		ch:            ch,
		senderService: senderservice.New(logger, transport, cfg.SMTP.PricingURL),
		logger:        logger,
	}, nil
}

// Run подписывается на очереди пробного периода и ждёт отмены ctx.
func (a *App) Run(ctx context.Context) error {
	const op = "app.sender.Run"

	handlers := map[string]func(context.Context, []byte) error{
		rabbitmq.RoutingTrialExpiring: a.senderService.SendTrialExpiring,
		rabbitmq.RoutingTrialExpired:  a.senderService.SendTrialExpired,
	}
	for _, q := range rabbitmq.TrialQueues() {
		handler := rejectPermanent(handlers[q.RoutingKey])
		if err := rabbitmq.Consume(ctx, a.logger, a.ch, q.QueueName, handler); err != nil {
			a.close()
			return fmt.Errorf("%s: %w", op, err)
		}
		a.logger.Info("consuming queue", slog.String("queue", q.QueueName))
	}

	<-ctx.Done()
	a.logger.Info("sender service shutting down gracefully")
	a.close()
	return nil
}

// rejectPermanent отбрасывает сообщения, которые не удастся доставить и при повторе.
func rejectPermanent(h func(context.Context, []byte) error) func(context.Context, []byte) error {
	return func(ctx context.Context, body []byte) error {
		err := h(ctx, body)
		if errors.Is(err, senderservice.ErrBadMessage) || errors.Is(err, senderservice.ErrPermanent) {
			return fmt.Errorf("%w: %w", rabbitmq.ErrReject, err)
		}
		return err
	}
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
}
