package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/arojasjg/milicon/shared-domain/events"
	"github.com/google/uuid"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// queueReader serves queued messages, then cancels the consumer context.
type queueReader struct {
	pending   []kafkaGo.Message
	committed []int64
	cancel    context.CancelFunc
	closed    bool
}

func (r *queueReader) FetchMessage(ctx context.Context) (kafkaGo.Message, error) {
	if len(r.pending) == 0 {
		r.cancel()
		return kafkaGo.Message{}, ctx.Err()
	}
	msg := r.pending[0]
	r.pending = r.pending[1:]
	return msg, nil
}

func (r *queueReader) CommitMessages(_ context.Context, msgs ...kafkaGo.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *queueReader) Close() error {
	r.closed = true
	return nil
}

func kafkaMessage(t *testing.T, offset int64, eventType events.EventType) kafkaGo.Message {
	t.Helper()
	raw, err := json.Marshal(events.Event{ID: uuid.New(), EventType: eventType})
	require.NoError(t, err)
	return kafkaGo.Message{Offset: offset, Value: raw}
}

func newTestKafkaConsumer(maxRedeliveries int) *KafkaConsumer {
	return NewKafkaConsumer(&KafkaConfig{
		Topic:           "test",
		MaxRedeliveries: maxRedeliveries,
		RetryDelay:      time.Millisecond,
	}, "test-group", zap.NewNop())
}

func TestKafkaConsumerRetriesBeforeCommitting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &queueReader{
		pending: []kafkaGo.Message{kafkaMessage(t, 7, events.OrderCreatedEvent)},
		cancel:  cancel,
	}

	calls := 0
	handler := func(context.Context, events.Event) error {
		calls++
		if calls < 3 {
			return errors.New("store unavailable")
		}
		return nil
	}

	newTestKafkaConsumer(3).consume(ctx, reader, []events.EventType{events.OrderCreatedEvent}, handler)

	assert.Equal(t, 3, calls)
	assert.Equal(t, []int64{7}, reader.committed)
	assert.True(t, reader.closed)
}

func TestKafkaConsumerDropsAfterMaxRedeliveries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &queueReader{
		pending: []kafkaGo.Message{
			kafkaMessage(t, 1, events.OrderCreatedEvent),
			kafkaMessage(t, 2, events.OrderCancelledEvent),
		},
		cancel: cancel,
	}

	calls := 0
	handler := func(context.Context, events.Event) error {
		calls++
		return errors.New("always failing")
	}

	newTestKafkaConsumer(2).consume(ctx, reader, []events.EventType{events.OrderCreatedEvent}, handler)

	assert.Equal(t, 3, calls)
	assert.Equal(t, []int64{1, 2}, reader.committed)
}

func TestKafkaConsumerSkipsUnreadableMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &queueReader{
		pending: []kafkaGo.Message{{Offset: 4, Value: []byte("not json")}},
		cancel:  cancel,
	}

	handled := false
	newTestKafkaConsumer(1).consume(ctx, reader, []events.EventType{events.OrderCreatedEvent}, func(context.Context, events.Event) error {
		handled = true
		return nil
	})

	assert.False(t, handled)
	assert.Equal(t, []int64{4}, reader.committed)
}
