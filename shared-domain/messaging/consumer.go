package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/distributed-ecommerce-saga/inventory-service/shared-domain/events"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

const maxDeliveryAttempts = 3

type EventHandler func(ctx context.Context, event events.InventoryEvent) error

// PermanentError marks a handler failure that a redelivery cannot fix, such
// as a malformed payload or a rejection by the engine.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

type Consumer struct {
	client      *RabbitMQClient
	queueName   string
	serviceName string
	prefetch    int
	logger      *zap.Logger
	republish   func(msg amqp.Delivery) error
}

func NewConsumer(client *RabbitMQClient, queueName, serviceName string, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Consumer{
		client:      client,
		queueName:   queueName,
		serviceName: serviceName,
		prefetch:    client.config.PrefetchCount,
		logger:      logger.Named("consumer"),
	}
	c.republish = c.republishToExchange
	return c
}

func (c *Consumer) ConsumeEvents(ctx context.Context, routingKeys []string, handler EventHandler) error {
	if !c.client.IsConnected() {
		return fmt.Errorf("there is no connection to RabbitMQ")
	}

	channel := c.client.Channel()

	if c.prefetch > 0 {
		if err := channel.Qos(c.prefetch, 0, false); err != nil {
			return fmt.Errorf("qos error: %w", err)
		}
	}

	queue, err := channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("queue declare error: %w", err)
	}

	for _, routingKey := range routingKeys {
		err = channel.QueueBind(
			queue.Name,          // queue name
			routingKey,          // routing key
			c.client.Exchange(), // exchange
			false,               // no-wait
			nil,                 // arguments
		)
		if err != nil {
			return fmt.Errorf("queue bind error (%s): %w", routingKey, err)
		}
		c.logger.Info("Queue bound", zap.String("queue", queue.Name), zap.String("routing_key", routingKey))
	}

	messages, err := channel.Consume(
		queue.Name,    // queue
		c.serviceName, // consumer
		false,         // auto-ack
		false,         // exclusive
		false,         // no-local
		false,         // no-wait
		nil,           // args
	)
	if err != nil {
		return fmt.Errorf("consume start error: %w", err)
	}

	c.logger.Info("Consuming events", zap.String("queue", queue.Name))

	go func() {
		for {
			select {
			case msg, ok := <-messages:
				if !ok {
					c.logger.Warn("Delivery channel closed", zap.String("queue", queue.Name))
					return
				}
				c.handleMessage(ctx, msg, handler)
			case <-ctx.Done():
				c.logger.Info("Consumer stopped", zap.String("consumer", c.serviceName))
				return
			case <-c.client.Done():
				c.logger.Info("Consumer stopped", zap.String("consumer", c.serviceName))
				return
			}
		}
	}()

	return nil
}

func (c *Consumer) handleMessage(ctx context.Context, msg amqp.Delivery, handler EventHandler) {
	var event events.InventoryEvent

	if err := json.Unmarshal(msg.Body, &event); err != nil {
		c.logger.Error("Event deserialize error", zap.Error(err))
		msg.Nack(false, false)
		return
	}

	c.logger.Debug("Event received",
		zap.String("event_type", string(event.EventType)),
		zap.String("service", event.Service),
	)

	if err := handler(ctx, event); err != nil {
		var permanent *PermanentError
		if errors.As(err, &permanent) {
			c.logger.Warn("Event rejected", zap.String("event_type", string(event.EventType)), zap.Error(err))
			msg.Nack(false, false)
			return
		}

		c.logger.Error("Event process error", zap.String("event_type", string(event.EventType)), zap.Error(err))
		if c.shouldRetry(msg) {
			c.retry(msg, event)
		} else {
			c.logger.Warn("Max retry reached, sent to dead letter", zap.String("event_type", string(event.EventType)))
			msg.Nack(false, false)
		}
		return
	}

	msg.Ack(false)
}

func (c *Consumer) shouldRetry(msg amqp.Delivery) bool {
	if attempts, ok := msg.Headers["x-retry-count"].(int32); ok && attempts >= maxDeliveryAttempts-1 {
		return false
	}
	if xDeath, ok := msg.Headers["x-death"]; ok {
		if deathArray, ok := xDeath.([]interface{}); ok && len(deathArray) > 0 {
			if death, ok := deathArray[0].(amqp.Table); ok {
				if count, ok := death["count"]; ok {
					if retryCount, ok := count.(int64); ok && retryCount >= maxDeliveryAttempts {
						return false
					}
				}
			}
		}
	}
	return true
}

func (c *Consumer) retry(msg amqp.Delivery, event events.InventoryEvent) {
	if err := c.republish(msg); err != nil {
		c.logger.Error("Retry publish error", zap.Error(err))
		msg.Nack(false, false)
		return
	}

	msg.Ack(false)
	c.logger.Info("Re-published", zap.String("event_type", string(event.EventType)))
}

func (c *Consumer) republishToExchange(msg amqp.Delivery) error {
	time.Sleep(2 * time.Second)

	headers := amqp.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	attempts, _ := headers["x-retry-count"].(int32)
	headers["x-retry-count"] = attempts + 1

	return c.client.Channel().Publish(
		msg.Exchange,
		msg.RoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  msg.ContentType,
			Body:         msg.Body,
			DeliveryMode: msg.DeliveryMode,
			Headers:      headers,
		},
	)
}
