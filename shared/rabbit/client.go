// shared/rabbit/client.go
package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Ftotnem/HACKATHON-SERVICES/shared/logger"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Client publishes JSON events to a durable topic exchange.
type Client struct {
	conn     *amqp.Connection
	exchange string
	log      *logger.Logger

	mu      sync.Mutex
	channel channel
}

// NewPublisher connects to url and declares exchange as a durable topic exchange.
func NewPublisher(url, exchange string, log *logger.Logger) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	log.Info("RabbitMQ publisher initialized", "exchange", exchange)
	return &Client{conn: conn, channel: ch, exchange: exchange, log: log}, nil
}

// Publish marshals payload to JSON and publishes it under routingKey.
func (c *Client) Publish(ctx context.Context, routingKey string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", routingKey, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now(),
		Type:         routingKey,
		Body:         body,
	}

	c.mu.Lock()
	err = c.channel.PublishWithContext(ctx, c.exchange, routingKey, false, false, msg)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to publish %s to %s: %w", routingKey, c.exchange, err)
	}
	c.log.Debug("event published", "exchange", c.exchange, "routing_key", routingKey)
	return nil
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.log.Info("RabbitMQ connection closed")
}
