package messaging

import (
	"fmt"
	"strings"
	"time"

	"github.com/arojasjg/milicon/shared-domain/config"
)

const (
	BrokerRabbitMQ = "rabbitmq"
	BrokerKafka    = "kafka"
	BrokerNone     = "none"
)

type BrokerConfig struct {
	Kind     string
	RabbitMQ *RabbitMQConfig
	Kafka    *KafkaConfig
}

func NewBrokerConfig() BrokerConfig {
	return BrokerConfig{
		Kind:     strings.ToLower(config.GetEnvOrDefault("MESSAGE_BROKER", BrokerRabbitMQ)),
		RabbitMQ: NewRabbitMQConfig(),
		Kafka:    NewKafkaConfig(),
	}
}

type RabbitMQConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	VHost             string
	Exchange          string
	RetryCount        int
	RetryDelay        time.Duration
	MaxRedeliveries   int
	ConnectionTimeout time.Duration
}

func NewRabbitMQConfig() *RabbitMQConfig {
	return &RabbitMQConfig{
		Host:              config.GetEnvOrDefault("RABBITMQ_HOST", "localhost"),
		Port:              config.GetEnvInt("RABBITMQ_PORT", 5672),
		Username:          config.GetEnvOrDefault("RABBITMQ_USERNAME", "guest"),
		Password:          config.GetEnvOrDefault("RABBITMQ_PASSWORD", "guest"),
		VHost:             config.GetEnvOrDefault("RABBITMQ_VHOST", "/"),
		Exchange:          config.GetEnvOrDefault("RABBITMQ_EXCHANGE", "milicon.events"),
		RetryCount:        config.GetEnvInt("RABBITMQ_RETRY_COUNT", 3),
		RetryDelay:        config.GetEnvDuration("RABBITMQ_RETRY_DELAY", 5*time.Second),
		MaxRedeliveries:   config.GetEnvInt("RABBITMQ_MAX_REDELIVERIES", 3),
		ConnectionTimeout: 30 * time.Second,
	}
}

func (c *RabbitMQConfig) ConnectionURL() string {
	vhost := c.VHost
	if vhost != "/" && !strings.HasPrefix(vhost, "/") {
		vhost = "/" + vhost
	}
	return fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		c.Username, c.Password, c.Host, c.Port, vhost)
}

type KafkaConfig struct {
	Brokers         []string
	Topic           string
	WriteTimeout    time.Duration
	MaxRedeliveries int
	RetryDelay      time.Duration
}

func NewKafkaConfig() *KafkaConfig {
	return &KafkaConfig{
		Brokers:         config.GetEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
		Topic:           config.GetEnvOrDefault("KAFKA_TOPIC", "milicon.events"),
		WriteTimeout:    config.GetEnvDuration("KAFKA_WRITE_TIMEOUT", 10*time.Second),
		MaxRedeliveries: config.GetEnvInt("KAFKA_MAX_REDELIVERIES", 3),
		RetryDelay:      config.GetEnvDuration("KAFKA_RETRY_DELAY", 500*time.Millisecond),
	}
}
