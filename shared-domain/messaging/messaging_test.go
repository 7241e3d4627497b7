package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/arojasjg/milicon/shared-domain/events"
	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRabbitMQConnectionURL(t *testing.T) {
	cfg := &RabbitMQConfig{Username: "guest", Password: "secret", Host: "mq", Port: 5672, VHost: "shop"}
	assert.Equal(t, "amqp://guest:secret@mq:5672/shop", cfg.ConnectionURL())

	cfg.VHost = "/"
	assert.Equal(t, "amqp://guest:secret@mq:5672/", cfg.ConnectionURL())
}

func TestBindingKeyMatchesAnyProducer(t *testing.T) {
	event := events.Event{Service: "order-service", EventType: events.OrderCreatedEvent}

	assert.Equal(t, "order-service.order.created", event.RoutingKey())
	assert.Equal(t, "*.order.created", BindingKey(events.OrderCreatedEvent))
}

func TestWithDefaultsFillsIdentity(t *testing.T) {
	event := withDefaults(events.Event{EventType: events.OrderCancelledEvent})

	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, event.ID, event.CorrelationID)
	assert.WithinDuration(t, time.Now(), event.Timestamp, time.Second)

	fixed := uuid.New()
	kept := withDefaults(events.Event{ID: fixed})
	assert.Equal(t, fixed, kept.ID)
}

func TestRetryCountHeader(t *testing.T) {
	assert.Equal(t, 0, retryCount(amqp.Delivery{}))
	assert.Equal(t, 2, retryCount(amqp.Delivery{Headers: amqp.Table{retryCountHeader: int32(2)}}))
	assert.Equal(t, 3, retryCount(amqp.Delivery{Headers: amqp.Table{retryCountHeader: int64(3)}}))
}

func TestConnectWithoutBroker(t *testing.T) {
	broker, err := Connect(BrokerConfig{Kind: BrokerNone}, "order-service", zap.NewNop())
	require.NoError(t, err)

	assert.NoError(t, broker.PublishEvent(context.Background(), events.Event{}))
	assert.NoError(t, broker.Subscribe(context.Background(), []events.EventType{events.OrderCreatedEvent}, nil))
	assert.NoError(t, broker.Close())
}

func TestConnectRejectsUnknownBroker(t *testing.T) {
	_, err := Connect(BrokerConfig{Kind: "carrier-pigeon"}, "order-service", zap.NewNop())
	assert.Error(t, err)
}
