package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/arojasjg/milicon/notification-service/internal/repository"
	"github.com/arojasjg/milicon/notification-service/internal/service"
	"github.com/arojasjg/milicon/shared-domain/events"
	"github.com/arojasjg/milicon/shared-domain/messaging"
	"github.com/arojasjg/milicon/shared-domain/metrics"
	"github.com/arojasjg/milicon/shared-domain/types"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// directSubscriber hands the handler back so tests can deliver events inline.
type directSubscriber struct {
	eventTypes []events.EventType
	handler    messaging.EventHandler
}

func (s *directSubscriber) Subscribe(_ context.Context, eventTypes []events.EventType, handler messaging.EventHandler) error {
	s.eventTypes = eventTypes
	s.handler = handler
	return nil
}

func newHandler() *NotificationHandler {
	logger := zap.NewNop()
	svc := service.NewNotificationService(
		repository.NewMemoryNotificationRepository(),
		service.NewLogSender(logger, 0),
		logger,
		metrics.New("milicon", "notification_handlers_test"),
	)
	return NewNotificationHandler(svc, logger)
}

func TestConsumedEventIsListedForOrder(t *testing.T) {
	h := newHandler()
	subscriber := &directSubscriber{}
	require.NoError(t, h.StartConsuming(context.Background(), subscriber))
	assert.ElementsMatch(t, service.SubscribedEvents, subscriber.eventTypes)

	orderID := uuid.New()
	err := subscriber.handler(context.Background(), events.Event{
		ID:        uuid.New(),
		EventType: events.OrderCancelledEvent,
		Payload: events.OrderCancelledPayload{
			OrderID:   orderID,
			UserID:    uuid.New(),
			UserEmail: "buyer@example.com",
		},
	})
	require.NoError(t, err)

	app := fiber.New()
	RegisterRoutes(app.Group("/api/v1"), h)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+orderID.String()+"/notifications", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env struct {
		Data []types.Notification `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &env))
	require.Len(t, env.Data, 1)
	assert.Equal(t, types.NotificationStatusSent, env.Data[0].Status)
	assert.Equal(t, "buyer@example.com", env.Data[0].Recipient)
}

func TestInvalidOrderID(t *testing.T) {
	app := fiber.New()
	RegisterRoutes(app.Group("/api/v1"), newHandler())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/orders/nope/notifications", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
