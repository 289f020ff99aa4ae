package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/distributed-ecommerce-saga/inventory-service/shared-domain/events"
	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

type Publisher struct {
	client     *RabbitMQClient
	maxRetries int
	logger     *zap.Logger
}

func NewPublisher(client *RabbitMQClient, maxRetries int, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		client:     client,
		maxRetries: max(maxRetries, 1),
		logger:     logger.Named("publisher"),
	}
}

func RoutingKey(event events.InventoryEvent) string {
	return fmt.Sprintf("inventory.%s.%s", event.Service, string(event.EventType))
}

// PublishInventoryEvent publishes with a linear backoff between attempts.
func (p *Publisher) PublishInventoryEvent(event events.InventoryEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	var lastErr error
	for i := 0; i < p.maxRetries; i++ {
		if lastErr = p.publish(event); lastErr == nil {
			return nil
		}
		p.logger.Warn("Publish error",
			zap.String("event_type", string(event.EventType)),
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", p.maxRetries),
			zap.Error(lastErr),
		)
		if i < p.maxRetries-1 {
			time.Sleep(time.Second * time.Duration(i+1))
		}
	}

	return fmt.Errorf("event publish failed after %d attempts: %w", p.maxRetries, lastErr)
}

func (p *Publisher) publish(event events.InventoryEvent) error {
	if !p.client.IsConnected() {
		return fmt.Errorf("there is no connection to RabbitMQ")
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("event serialization error: %w", err)
	}

	routingKey := RoutingKey(event)
	err = p.client.Channel().Publish(
		p.client.Exchange(),
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent, // Message persistence
			MessageId:    event.ID.String(),
			Timestamp:    event.Timestamp,
			Headers: amqp.Table{
				"correlation_id": event.CorrelationID.String(),
				"service":        event.Service,
				"event_type":     string(event.EventType),
			},
		},
	)
	if err != nil {
		return fmt.Errorf("event publish error: %w", err)
	}

	p.logger.Debug("Event published", zap.String("routing_key", routingKey))
	return nil
}
