package messaging

import (
	"context"
	"fmt"

	"github.com/arojasjg/milicon/shared-domain/events"
	"go.uber.org/zap"
)

// Broker bundles a publisher and a subscriber over one transport.
type Broker interface {
	EventPublisher
	EventSubscriber
	Close() error
}

// Connect opens the broker selected by cfg.Kind. serviceName names the
// RabbitMQ queue and the Kafka consumer group.
func Connect(cfg BrokerConfig, serviceName string, logger *zap.Logger) (Broker, error) {
	switch cfg.Kind {
	case BrokerRabbitMQ:
		client := NewRabbitMQClient(cfg.RabbitMQ, logger)
		if err := client.Connect(); err != nil {
			return nil, err
		}
		return &rabbitBroker{
			Publisher: NewPublisher(client, logger),
			Consumer:  NewConsumer(client, logger, serviceName+"-queue", serviceName),
			client:    client,
		}, nil
	case BrokerKafka:
		return &kafkaBroker{
			KafkaPublisher: NewKafkaPublisher(cfg.Kafka, logger),
			KafkaConsumer:  NewKafkaConsumer(cfg.Kafka, serviceName, logger),
		}, nil
	case BrokerNone, "":
		logger.Warn("message broker disabled, events will be dropped")
		return nopBroker{}, nil
	default:
		return nil, fmt.Errorf("unknown message broker %q", cfg.Kind)
	}
}

type rabbitBroker struct {
	*Publisher
	*Consumer
	client *RabbitMQClient
}

func (b *rabbitBroker) Close() error {
	return b.client.Close()
}

type kafkaBroker struct {
	*KafkaPublisher
	*KafkaConsumer
}

func (b *kafkaBroker) Close() error {
	return b.KafkaPublisher.Close()
}

type nopBroker struct {
	NopPublisher
}

func (nopBroker) Subscribe(context.Context, []events.EventType, EventHandler) error { return nil }

func (nopBroker) Close() error { return nil }
