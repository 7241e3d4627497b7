package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/arojasjg/milicon/shared-domain/events"
	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// EventPublisher is what services depend on; RabbitMQ, Kafka and the no-op
// publisher all satisfy it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event events.Event) error
}

type Publisher struct {
	client *RabbitMQClient
	logger *zap.Logger
}

func NewPublisher(client *RabbitMQClient, logger *zap.Logger) *Publisher {
	return &Publisher{
		client: client,
		logger: logger,
	}
}

func (p *Publisher) PublishEvent(ctx context.Context, event events.Event) error {
	if !p.client.IsConnected() {
		return fmt.Errorf("there is no connection to RabbitMQ")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	event = withDefaults(event)

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("event serialization error: %w", err)
	}

	routingKey := event.RoutingKey()

	err = p.client.Channel().Publish(
		p.client.Exchange(),
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			MessageId:    event.ID.String(),
			Timestamp:    event.Timestamp,
			Headers: amqp.Table{
				"order_id":       event.OrderID.String(),
				"correlation_id": event.CorrelationID.String(),
				"service":        event.Service,
				"event_type":     string(event.EventType),
			},
		},
	)
	if err != nil {
		return fmt.Errorf("event publish error: %w", err)
	}

	p.logger.Debug("event published", zap.String("routing_key", routingKey), zap.String("event_id", event.ID.String()))
	return nil
}

// PublishWithRetry retries with a linearly growing pause between attempts.
func (p *Publisher) PublishWithRetry(ctx context.Context, event events.Event, maxRetries int) error {
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		if err := p.PublishEvent(ctx, event); err != nil {
			lastErr = err
			p.logger.Warn("publish error", zap.Int("attempt", i+1), zap.Int("max_attempts", maxRetries), zap.Error(err))

			if i < maxRetries-1 {
				select {
				case <-time.After(time.Second * time.Duration(i+1)):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			continue
		}
		return nil
	}

	return fmt.Errorf("event publish failed after %d attempts: %w", maxRetries, lastErr)
}

// NopPublisher drops events; used when MESSAGE_BROKER=none.
type NopPublisher struct{}

func (NopPublisher) PublishEvent(context.Context, events.Event) error { return nil }

func withDefaults(event events.Event) events.Event {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CorrelationID == uuid.Nil {
		event.CorrelationID = event.ID
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	return event
}
