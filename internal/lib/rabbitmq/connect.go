// Package rabbitmq содержит подключение к брокеру, объявление exchange и очередей
// уведомлений, публикацию и потребление JSON-сообщений.
package rabbitmq

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/ems-portal/internal/config"
)

// Connect подключается к брокеру, повторяя попытки с паузой cfg.RetryDelay.
func Connect(ctx context.Context, cfg config.RabbitMQ) (*amqp.Connection, error) {
	const op = "rabbitmq.Connect"

	retries := cfg.MaxRetries - 1
	if retries < 0 {
		retries = 0
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(cfg.RetryDelay), uint64(retries)),
		ctx,
	)

	var conn *amqp.Connection
	err := backoff.Retry(func() error {
		c, err := amqp.Dial(cfg.URL)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}, policy)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return conn, nil
}
