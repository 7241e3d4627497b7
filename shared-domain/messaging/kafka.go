package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/arojasjg/milicon/shared-domain/events"
	"github.com/cenkalti/backoff/v5"
	kafkaGo "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaPublisher writes every event to one topic keyed by order id, so the
// events of an order stay in one partition.
type KafkaPublisher struct {
	writer *kafkaGo.Writer
	config *KafkaConfig
	logger *zap.Logger
}

func NewKafkaPublisher(config *KafkaConfig, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafkaGo.Writer{
			Addr:         kafkaGo.TCP(config.Brokers...),
			Topic:        config.Topic,
			Balancer:     &kafkaGo.Hash{},
			WriteTimeout: config.WriteTimeout,
			RequiredAcks: kafkaGo.RequireOne,
		},
		config: config,
		logger: logger,
	}
}

func (k *KafkaPublisher) PublishEvent(ctx context.Context, event events.Event) error {
	event = withDefaults(event)

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = k.writer.WriteMessages(ctx, kafkaGo.Message{
		Key:   []byte(event.OrderID.String()),
		Value: payload,
		Headers: []kafkaGo.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "service", Value: []byte(event.Service)},
		},
	})
	if err != nil {
		return fmt.Errorf("kafka write error: %w", err)
	}

	k.logger.Debug("event published", zap.String("topic", k.config.Topic), zap.String("event_type", string(event.EventType)))
	return nil
}

func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}

// KafkaConsumer commits an offset only once its event was handled, or
// dropped after MaxRedeliveries failed retries. A failing event blocks its
// partition while it is retried.
type KafkaConsumer struct {
	config  *KafkaConfig
	groupID string
	logger  *zap.Logger
}

func NewKafkaConsumer(config *KafkaConfig, groupID string, logger *zap.Logger) *KafkaConsumer {
	return &KafkaConsumer{config: config, groupID: groupID, logger: logger}
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafkaGo.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkaGo.Message) error
	Close() error
}

func (k *KafkaConsumer) Subscribe(ctx context.Context, eventTypes []events.EventType, handler EventHandler) error {
	reader := kafkaGo.NewReader(kafkaGo.ReaderConfig{
		Brokers: k.config.Brokers,
		Topic:   k.config.Topic,
		GroupID: k.groupID,
	})

	go k.consume(ctx, reader, eventTypes, handler)
	return nil
}

func (k *KafkaConsumer) consume(ctx context.Context, reader messageReader, eventTypes []events.EventType, handler EventHandler) {
	defer reader.Close()

	wanted := make(map[events.EventType]struct{}, len(eventTypes))
	for _, t := range eventTypes {
		wanted[t] = struct{}{}
	}

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				k.logger.Info("kafka consumer shutting down", zap.String("topic", k.config.Topic))
				return
			}
			k.logger.Error("kafka read error", zap.String("topic", k.config.Topic), zap.Error(err))
			continue
		}

		if !k.handleMessage(ctx, msg, wanted, handler) {
			return
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return
			}
			k.logger.Error("kafka commit error", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}

// handleMessage reports whether the message is done with and may be
// committed. It returns false only when ctx ended mid-retry.
func (k *KafkaConsumer) handleMessage(ctx context.Context, msg kafkaGo.Message, wanted map[events.EventType]struct{}, handler EventHandler) bool {
	var event events.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		k.logger.Error("event deserialize error", zap.Int64("offset", msg.Offset), zap.Error(err))
		return true
	}
	if _, ok := wanted[event.EventType]; !ok {
		return true
	}

	log := k.logger.With(zap.String("event_type", string(event.EventType)), zap.String("event_id", event.ID.String()))

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = k.config.RetryDelay
	policy.MaxInterval = 30 * time.Second

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := handler(ctx, event)
		if err != nil {
			log.Warn("event process error", zap.Int("attempt", attempt), zap.Error(err))
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(k.config.MaxRedeliveries+1)),
	)
	if err == nil {
		log.Debug("event processed")
		return true
	}
	if ctx.Err() != nil {
		return false
	}

	log.Error("max retries reached, dropping event", zap.Int("retries", k.config.MaxRedeliveries))
	return true
}
