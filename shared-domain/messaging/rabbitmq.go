package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

type RabbitMQClient struct {
	config     *RabbitMQConfig
	connection *amqp.Connection
	channel    *amqp.Channel
	logger     *zap.Logger
	mu         sync.RWMutex
	isClosing  bool
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewRabbitMQClient(config *RabbitMQConfig, logger *zap.Logger) *RabbitMQClient {
	ctx, cancel := context.WithCancel(context.Background())
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RabbitMQClient{
		config: config,
		logger: logger.Named("rabbitmq"),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (r *RabbitMQClient) Connect() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	for i := 0; i < r.config.RetryCount; i++ {
		r.connection, err = amqp.DialConfig(r.config.ConnectionURL(), amqp.Config{
			Dial: amqp.DefaultDial(r.config.ConnectionTimeout),
		})
		if err != nil {
			r.logger.Warn("RabbitMQ connection error",
				zap.Int("attempt", i+1),
				zap.Int("max_attempts", r.config.RetryCount),
				zap.Error(err),
			)
			if i < r.config.RetryCount-1 {
				time.Sleep(r.config.RetryDelay)
				continue
			}
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}

		r.channel, err = r.connection.Channel()
		if err != nil {
			r.connection.Close()
			return fmt.Errorf("failed to open RabbitMQ channel: %w", err)
		}

		err = r.channel.ExchangeDeclare(
			r.config.Exchange, // name
			"topic",           // type
			true,              // durable
			false,             // auto-deleted
			false,             // internal
			false,             // no-wait
			nil,               // arguments
		)
		if err != nil {
			r.channel.Close()
			r.connection.Close()
			return fmt.Errorf("failed to create exchange: %w", err)
		}

		r.logger.Info("Connected to RabbitMQ",
			zap.String("host", r.config.Host),
			zap.String("exchange", r.config.Exchange),
		)

		// Listen connection drops
		go r.handleReconnection(r.connection)

		return nil
	}

	return err
}

func (r *RabbitMQClient) handleReconnection(conn *amqp.Connection) {
	notifyClose := conn.NotifyClose(make(chan *amqp.Error, 1))

	select {
	case err := <-notifyClose:
		r.mu.RLock()
		closing := r.isClosing
		r.mu.RUnlock()
		if closing || err == nil {
			return
		}
		r.logger.Warn("RabbitMQ connection lost, reconnecting", zap.Error(err))
		time.Sleep(time.Second * 2)
		if reconnectErr := r.Connect(); reconnectErr != nil {
			r.logger.Error("RabbitMQ reconnect failed", zap.Error(reconnectErr))
		}
	case <-r.ctx.Done():
	}
}

func (r *RabbitMQClient) Channel() *amqp.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.channel
}

func (r *RabbitMQClient) Exchange() string {
	return r.config.Exchange
}

func (r *RabbitMQClient) Done() <-chan struct{} {
	return r.ctx.Done()
}

func (r *RabbitMQClient) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isClosing {
		return nil
	}

	r.isClosing = true
	r.cancel()

	var closeErr error

	if r.channel != nil {
		if err := r.channel.Close(); err != nil {
			closeErr = fmt.Errorf("channel close error: %w", err)
			r.logger.Warn("Failed to close channel", zap.Error(err))
		}
	}

	if r.connection != nil {
		if err := r.connection.Close(); err != nil {
			if closeErr != nil {
				closeErr = fmt.Errorf("%v; connection close error: %w", closeErr, err)
			} else {
				closeErr = fmt.Errorf("connection close error: %w", err)
			}
			r.logger.Warn("Failed to close connection", zap.Error(err))
		}
	}

	if closeErr == nil {
		r.logger.Info("RabbitMQ connection closed")
	}

	return closeErr
}

func (r *RabbitMQClient) IsConnected() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.connection != nil && !r.connection.IsClosed()
}
