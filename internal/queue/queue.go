package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/tabula/backend/internal/util"
	"github.com/OFFIS-RIT/tabula/backend/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

const (
	SummaryQueue = "summary_queue"

	retryDelayMs = 10000
)

// Channel is the part of *amqp091.Channel used for publishing.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// Connect dials RabbitMQ, retrying while the broker starts up.
func Connect(ctx context.Context, url string) (*amqp091.Connection, error) {
	conn, err := util.RetryWithBackoff(ctx, 5, time.Second, func(context.Context) (*amqp091.Connection, error) {
		return amqp091.Dial(url)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

// SetupQueues declares each queue together with its _dlq and a _retry queue
// that dead-letters back into it after a delay.
func SetupQueues(ch Channel, queueNames []string) error {
	for _, name := range queueNames {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", name, err)
		}

		dlqName := name + "_dlq"
		if _, err := ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", dlqName, err)
		}

		retryName := name + "_retry"
		_, err := ch.QueueDeclare(
			retryName,
			true,
			false,
			false,
			false,
			amqp091.Table{
				"x-message-ttl":             int32(retryDelayMs),
				"x-dead-letter-exchange":    "",
				"x-dead-letter-routing-key": name,
			},
		)
		if err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", retryName, err)
		}
		logger.Debug("[Queue] Declared queue", "queue", name)
	}
	return nil
}

func PublishFIFO(ch Channel, queueName string, data []byte) error {
	q, err := ch.QueueDeclare(
		queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         data,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	}

	return ch.Publish(
		"",
		q.Name,
		false,
		false,
		publishing,
	)
}
