package queue

import (
	"errors"

	"github.com/OFFIS-RIT/tabula/backend/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

const MaxRetries = 10

func retryCount(headers amqp091.Table) int {
	switch v := headers["x-retries"].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	case int16:
		return int(v)
	case uint8:
		return int(v)
	}
	return 0
}

// HandleProcessingError moves a failed delivery to the retry queue, or to
// the dead-letter queue once it has been retried MaxRetries times.
// Deliveries that failed with ErrInvalidMessage are dead-lettered at once.
func HandleProcessingError(ch Channel, msg amqp091.Delivery, queueName string, cause error) {
	retries := retryCount(msg.Headers)

	if retries >= MaxRetries || errors.Is(cause, ErrInvalidMessage) {
		deadLetter(ch, msg, queueName)
		return
	}

	headers := amqp091.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers["x-retries"] = int32(retries + 1)

	retryName := queueName + "_retry"
	pubErr := ch.Publish(
		"",
		retryName,
		false,
		false,
		amqp091.Publishing{
			ContentType:  msg.ContentType,
			Body:         msg.Body,
			Headers:      headers,
			DeliveryMode: amqp091.Persistent,
		},
	)
	if pubErr != nil {
		logger.Error("[Queue] Failed to publish to retry queue", "retry_queue", retryName, "err", pubErr)
		_ = msg.Nack(false, true)
		return
	}
	_ = msg.Ack(false)
}

func deadLetter(ch Channel, msg amqp091.Delivery, queueName string) {
	dlqName := queueName + "_dlq"
	logger.Info("[Queue] Sending message to DLQ", "dlq", dlqName)
	pubErr := ch.Publish(
		"",
		dlqName,
		false,
		false,
		amqp091.Publishing{
			ContentType:  msg.ContentType,
			Body:         msg.Body,
			Headers:      msg.Headers,
			DeliveryMode: amqp091.Persistent,
		},
	)
	if pubErr != nil {
		logger.Error("[Queue] Failed to publish to DLQ", "dlq", dlqName, "err", pubErr)
		_ = msg.Nack(false, true)
		return
	}
	_ = msg.Ack(false)
}
