package handlers

import (
	"github.com/arojasjg/milicon/order-service/internal/domain"
	"github.com/arojasjg/milicon/order-service/internal/service"
	sharedHTTP "github.com/arojasjg/milicon/shared-domain/http"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	paymentService *service.PaymentService
	logger         *zap.Logger
}

func NewPaymentHandler(paymentService *service.PaymentService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		logger:         logger,
	}
}

func (h *PaymentHandler) UpdatePaymentStatus(c *fiber.Ctx) error {
	paymentID, ok := uuidParam(c, "id")
	if !ok {
		return invalidParam(c, "id")
	}

	var request domain.PaymentStatusUpdateRequest
	if err := c.BodyParser(&request); err != nil {
		return sharedHTTP.BadRequestResponse(c, "Invalid request body", map[string]interface{}{
			"parse_error": err.Error(),
		})
	}

	payment, err := h.paymentService.UpdatePaymentStatus(c.UserContext(), paymentID, request)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return sharedHTTP.SuccessResponse(c, "Payment status updated", mapPayment(payment))
}
