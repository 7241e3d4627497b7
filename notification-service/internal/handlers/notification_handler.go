package handlers

import (
	"context"

	"github.com/arojasjg/milicon/notification-service/internal/service"
	sharedHTTP "github.com/arojasjg/milicon/shared-domain/http"
	"github.com/arojasjg/milicon/shared-domain/messaging"
	"github.com/arojasjg/milicon/shared-domain/types"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type NotificationHandler struct {
	notificationService *service.NotificationService
	logger              *zap.Logger
}

func NewNotificationHandler(notificationService *service.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		logger:              logger,
	}
}

func RegisterRoutes(api fiber.Router, h *NotificationHandler) {
	api.Get("/orders/:order_id/notifications", h.GetNotificationsByOrderID)
}

func (h *NotificationHandler) GetNotificationsByOrderID(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("order_id"))
	if err != nil {
		return sharedHTTP.BadRequestResponse(c, "Invalid order_id", map[string]interface{}{
			"order_id": c.Params("order_id"),
		})
	}

	notifications, err := h.notificationService.GetNotificationsByOrderID(c.UserContext(), orderID)
	if err != nil {
		h.logger.Error("Notifications retrieval error", zap.String("order_id", orderID.String()), zap.Error(err))
		return sharedHTTP.InternalServerErrorResponse(c, "Internal server error", nil)
	}

	response := make([]*types.Notification, 0, len(notifications))
	for _, n := range notifications {
		response = append(response, n.Notification)
	}

	return sharedHTTP.SuccessResponse(c, "Notifications retrieved", response)
}

// StartConsuming subscribes the notification service to order events.
func (h *NotificationHandler) StartConsuming(ctx context.Context, subscriber messaging.EventSubscriber) error {
	return subscriber.Subscribe(ctx, service.SubscribedEvents, h.notificationService.HandleEvent)
}
