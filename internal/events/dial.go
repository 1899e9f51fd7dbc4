package events

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Dial connects to RabbitMQ, retrying while the broker starts up.
func Dial(url string, attempts int, backoff time.Duration, logger *zap.Logger) (*amqp.Connection, error) {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 1; i <= attempts; i++ {
		conn, err := amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		logger.Warn("rabbitmq not ready", zap.Int("attempt", i), zap.Error(err))
		if i < attempts {
			time.Sleep(backoff)
		}
	}
	return nil, fmt.Errorf("dial rabbitmq after %d attempts: %w", attempts, lastErr)
}
