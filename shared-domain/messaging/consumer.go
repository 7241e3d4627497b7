package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/arojasjg/milicon/shared-domain/events"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

const retryCountHeader = "x-retry-count"

type EventHandler func(ctx context.Context, event events.Event) error

// EventSubscriber delivers events of the given types to handler until ctx ends.
type EventSubscriber interface {
	Subscribe(ctx context.Context, eventTypes []events.EventType, handler EventHandler) error
}

type Consumer struct {
	client      *RabbitMQClient
	logger      *zap.Logger
	queueName   string
	serviceName string
	maxRetries  int
}

func NewConsumer(client *RabbitMQClient, logger *zap.Logger, queueName, serviceName string) *Consumer {
	return &Consumer{
		client:      client,
		logger:      logger,
		queueName:   queueName,
		serviceName: serviceName,
		maxRetries:  client.config.MaxRedeliveries,
	}
}

// BindingKey matches the event type from any producing service.
func BindingKey(eventType events.EventType) string {
	return "*." + string(eventType)
}

func (c *Consumer) Subscribe(ctx context.Context, eventTypes []events.EventType, handler EventHandler) error {
	if !c.client.IsConnected() {
		return fmt.Errorf("there is no connection to RabbitMQ")
	}

	channel := c.client.Channel()

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

	for _, eventType := range eventTypes {
		key := BindingKey(eventType)
		if err := channel.QueueBind(queue.Name, key, c.client.Exchange(), false, nil); err != nil {
			return fmt.Errorf("queue bind error (%s): %w", key, err)
		}
		c.logger.Info("queue bound", zap.String("queue", queue.Name), zap.String("binding_key", key))
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

	c.logger.Info("consuming events", zap.String("queue", queue.Name))

	go func() {
		for {
			select {
			case msg, ok := <-messages:
				if !ok {
					c.logger.Warn("delivery channel closed", zap.String("queue", queue.Name))
					return
				}
				c.handleMessage(ctx, msg, handler)
			case <-ctx.Done():
				c.logger.Info("consumer stopped", zap.String("consumer", c.serviceName))
				return
			case <-c.client.Done():
				return
			}
		}
	}()

	return nil
}

func (c *Consumer) handleMessage(ctx context.Context, msg amqp.Delivery, handler EventHandler) {
	var event events.Event

	if err := json.Unmarshal(msg.Body, &event); err != nil {
		c.logger.Error("event deserialize error", zap.Error(err))
		msg.Nack(false, false)
		return
	}

	log := c.logger.With(zap.String("event_type", string(event.EventType)), zap.String("event_id", event.ID.String()))

	if err := handler(ctx, event); err != nil {
		log.Warn("event process error", zap.Error(err))

		if retries := retryCount(msg); retries < c.maxRetries {
			c.republish(msg, retries+1, log)
		} else {
			log.Error("max retries reached, dropping event", zap.Int("retries", retries))
			msg.Nack(false, false)
		}
		return
	}

	msg.Ack(false)
	log.Debug("event processed")
}

func retryCount(msg amqp.Delivery) int {
	switch v := msg.Headers[retryCountHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func (c *Consumer) republish(msg amqp.Delivery, attempt int, log *zap.Logger) {
	headers := amqp.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[retryCountHeader] = int32(attempt)

	err := c.client.Channel().Publish(
		msg.Exchange,
		msg.RoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  msg.ContentType,
			Body:         msg.Body,
			DeliveryMode: msg.DeliveryMode,
			MessageId:    msg.MessageId,
			Headers:      headers,
		},
	)
	if err != nil {
		log.Error("retry publish error", zap.Error(err))
		msg.Nack(false, false)
		return
	}

	msg.Ack(false)
	log.Info("event re-published", zap.Int("attempt", attempt))
}
