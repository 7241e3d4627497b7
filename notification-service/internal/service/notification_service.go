package service

import (
	"context"

	"github.com/arojasjg/milicon/notification-service/internal/domain"
	"github.com/arojasjg/milicon/notification-service/internal/repository"
	"github.com/arojasjg/milicon/shared-domain/events"
	"github.com/arojasjg/milicon/shared-domain/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// SubscribedEvents are the order events that produce a customer email.
var SubscribedEvents = []events.EventType{
	events.OrderCreatedEvent,
	events.OrderCancelledEvent,
	events.OrderPaymentFailedEvent,
	events.OrderStatusChangedEvent,
}

type NotificationService struct {
	notifications repository.NotificationRepository
	sender        Sender
	logger        *zap.Logger

	outcomes *prometheus.CounterVec
}

func NewNotificationService(
	notifications repository.NotificationRepository,
	sender Sender,
	logger *zap.Logger,
	registry *metrics.Registry,
) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		sender:        sender,
		logger:        logger,
		outcomes:      registry.Counter("notifications_total", "Notifications processed, by event type and status.", "event_type", "status"),
	}
}

// HandleEvent stores and sends the email for one order event. Only storage
// errors are returned; they make the broker redeliver the event.
func (s *NotificationService) HandleEvent(ctx context.Context, event events.Event) error {
	log := s.logger.With(
		zap.String("event_type", string(event.EventType)),
		zap.String("event_id", event.ID.String()),
	)

	notification, ok, err := domain.NotificationFromEvent(event)
	if !ok {
		log.Debug("Event ignored")
		return nil
	}
	if err != nil {
		// malformed events are dropped, not redelivered
		log.Warn("Notification skipped", zap.Error(err))
		s.outcomes.WithLabelValues(string(event.EventType), "skipped").Inc()
		return nil
	}

	if err := s.notifications.Create(ctx, notification); err != nil {
		return err
	}

	if err := s.sender.Send(ctx, notification.Email()); err != nil {
		log.Warn("Notification send failed", zap.String("notification_id", notification.ID.String()), zap.Error(err))
		notification.MarkAsFailed()
	} else {
		notification.MarkAsSent()
	}

	s.outcomes.WithLabelValues(string(event.EventType), string(notification.Status)).Inc()

	// not redelivered: the email has already gone out
	if err := s.notifications.Update(ctx, notification); err != nil {
		log.Error("Notification status update error", zap.String("notification_id", notification.ID.String()), zap.Error(err))
	}

	log.Info("Notification processed",
		zap.String("notification_id", notification.ID.String()),
		zap.String("order_id", notification.OrderID.String()),
		zap.String("status", string(notification.Status)),
	)
	return nil
}

func (s *NotificationService) GetNotificationsByOrderID(ctx context.Context, orderID uuid.UUID) ([]*domain.NotificationAggregate, error) {
	return s.notifications.ListByOrderID(ctx, orderID)
}
