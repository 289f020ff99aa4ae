package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/distributed-ecommerce-saga/inventory-service/shared-domain/messaging"
)

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

func (c DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Name,
	)
}

type ReservationConfig struct {
	DefaultTTL       time.Duration
	MaxTTL           time.Duration
	DefaultCenterID  int
	SweepInterval    time.Duration
	Retention        time.Duration
	ArchiveRetention time.Duration // terminal rows kept in the database journal
}

type Config struct {
	ServiceName    string
	Port           string
	LogLevel       string
	OTLPEndpoint   string
	RateLimitMax   int
	DispatchBuffer int

	Database        DatabaseConfig
	RabbitMQEnabled bool
	RabbitMQ        *messaging.RabbitMQConfig
	Reservation     ReservationConfig
}

func Load() (*Config, error) {
	cfg := &Config{
		ServiceName:  getEnvOrDefault("SERVICE_NAME", "inventory-service"),
		Port:         getEnvOrDefault("PORT", "8003"),
		LogLevel:     getEnvOrDefault("LOG_LEVEL", "info"),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getEnvOrDefault("DB_PORT", "5432"),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", "postgres"),
			Name:     getEnvOrDefault("DB_NAME", "inventory_db"),
		},
		RabbitMQ: messaging.DefaultRabbitMQConfig(),
	}

	var err error
	if cfg.Database.Enabled, err = getBool("DB_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.RabbitMQEnabled, err = getBool("RABBITMQ_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.RateLimitMax, err = getInt("RATE_LIMIT_MAX", 120); err != nil {
		return nil, err
	}
	if cfg.DispatchBuffer, err = getInt("DISPATCH_BUFFER", 1024); err != nil {
		return nil, err
	}
	if cfg.Reservation.DefaultCenterID, err = getInt("DEFAULT_CENTER_ID", 1); err != nil {
		return nil, err
	}
	if cfg.Reservation.DefaultTTL, err = getDuration("RESERVATION_DEFAULT_TTL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.Reservation.MaxTTL, err = getDuration("RESERVATION_MAX_TTL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.Reservation.SweepInterval, err = getDuration("SWEEP_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.Reservation.Retention, err = getDuration("RESERVATION_RETENTION", time.Hour); err != nil {
		return nil, err
	}
	if cfg.Reservation.ArchiveRetention, err = getDuration("RESERVATION_ARCHIVE_RETENTION", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if err := loadRabbitMQ(cfg.RabbitMQ); err != nil {
		return nil, err
	}

	if cfg.Reservation.DefaultTTL > cfg.Reservation.MaxTTL {
		return nil, fmt.Errorf("RESERVATION_DEFAULT_TTL (%s) exceeds RESERVATION_MAX_TTL (%s)",
			cfg.Reservation.DefaultTTL, cfg.Reservation.MaxTTL)
	}
	return cfg, nil
}

func loadRabbitMQ(mq *messaging.RabbitMQConfig) error {
	mq.Host = getEnvOrDefault("RABBITMQ_HOST", mq.Host)
	mq.Username = getEnvOrDefault("RABBITMQ_USERNAME", mq.Username)
	mq.Password = getEnvOrDefault("RABBITMQ_PASSWORD", mq.Password)
	mq.VHost = getEnvOrDefault("RABBITMQ_VHOST", mq.VHost)
	mq.Exchange = getEnvOrDefault("RABBITMQ_EXCHANGE", mq.Exchange)
	mq.QueueName = getEnvOrDefault("RABBITMQ_QUEUE", mq.QueueName)

	var err error
	if mq.Port, err = getInt("RABBITMQ_PORT", mq.Port); err != nil {
		return err
	}
	if mq.RetryCount, err = getInt("RABBITMQ_RETRY_COUNT", mq.RetryCount); err != nil {
		return err
	}
	if mq.PrefetchCount, err = getInt("RABBITMQ_PREFETCH", mq.PrefetchCount); err != nil {
		return err
	}
	if mq.RetryDelay, err = getDuration("RABBITMQ_RETRY_DELAY", mq.RetryDelay); err != nil {
		return err
	}
	if mq.ConnectionTimeout, err = getDuration("RABBITMQ_CONNECTION_TIMEOUT", mq.ConnectionTimeout); err != nil {
		return err
	}
	return mq.Validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, raw, err)
	}
	return value, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q: %w", key, raw, err)
	}
	return value, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, raw, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%s: duration must be positive, got %s", key, value)
	}
	return value, nil
}
