package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"
)

// Exchange — direct exchange уведомлений.
const Exchange = "notifications"

const (
	// RoutingTrialExpiring — пробный период скоро закончится.
	RoutingTrialExpiring = "trial.expiring"
	// RoutingTrialExpired — пробный период закончился.
	RoutingTrialExpired = "trial.expired"
)

// QueueConfig связывает очередь с ключом маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// TrialQueues очереди уведомлений о пробном периоде.
func TrialQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "notification.trial.expiring", RoutingKey: RoutingTrialExpiring},
		{QueueName: "notification.trial.expired", RoutingKey: RoutingTrialExpired},
	}
}

// SetupChannel открывает канал, объявляет exchange и привязывает к нему очереди.
func SetupChannel(conn *amqp.Connection, queues []QueueConfig) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.Qos(10, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("%s: set qos: %w", op, err)
	}

	if err := ch.ExchangeDeclare(Exchange, "direct", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, q := range queues {
		if _, err := ch.QueueDeclare(q.QueueName, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, q.QueueName, err)
		}
		if err := ch.QueueBind(q.QueueName, q.RoutingKey, Exchange, false, nil); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("%s: failed to bind queue %s with routing key %s: %w", op, q.QueueName, q.RoutingKey, err)
		}
	}

	return ch, nil
}
