package messaging

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// RabbitMQConfig is the broker connection plus the retry policy shared by the
// publisher and the consumer. The service configuration fills it from the
// environment.
type RabbitMQConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	VHost             string
	Exchange          string
	QueueName         string
	PrefetchCount     int
	RetryCount        int
	RetryDelay        time.Duration
	ConnectionTimeout time.Duration
}

func DefaultRabbitMQConfig() *RabbitMQConfig {
	return &RabbitMQConfig{
		Host:              "localhost",
		Port:              5672,
		Username:          "guest",
		Password:          "guest",
		VHost:             "/",
		Exchange:          "inventory.events",
		QueueName:         "inventory-engine-queue",
		PrefetchCount:     32,
		RetryCount:        3,
		RetryDelay:        5 * time.Second,
		ConnectionTimeout: 30 * time.Second,
	}
}

func (c *RabbitMQConfig) Validate() error {
	var errs []error
	if c.Host == "" {
		errs = append(errs, errors.New("rabbitmq host is required"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("rabbitmq port %d out of range", c.Port))
	}
	if c.Exchange == "" || c.QueueName == "" {
		errs = append(errs, errors.New("rabbitmq exchange and queue are required"))
	}
	if c.PrefetchCount < 0 {
		errs = append(errs, fmt.Errorf("rabbitmq prefetch %d must not be negative", c.PrefetchCount))
	}
	if c.RetryCount < 1 {
		errs = append(errs, fmt.Errorf("rabbitmq retry count %d must be at least 1", c.RetryCount))
	}
	return errors.Join(errs...)
}

func (c *RabbitMQConfig) ConnectionURL() string {
	vhost := c.VHost
	if vhost != "/" && !strings.HasPrefix(vhost, "/") {
		vhost = "/" + vhost
	}
	return fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		c.Username, c.Password, c.Host, c.Port, vhost)
}
