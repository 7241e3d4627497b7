package handlers

import (
	"errors"
	"strconv"

	"github.com/arojasjg/milicon/order-service/internal/domain"
	sharedHTTP "github.com/arojasjg/milicon/shared-domain/http"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	UserIDHeader    = "X-User-ID"
	UserEmailHeader = "X-User-Email"
)

// respondError maps service errors onto the API envelope.
func respondError(c *fiber.Ctx, logger *zap.Logger, err error) error {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		details := make(map[string]interface{}, len(verr.Fields))
		for field, message := range verr.Fields {
			details[field] = message
		}
		return sharedHTTP.ErrorResponse(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", details)
	}

	switch {
	case errors.Is(err, domain.ErrCartNotFound),
		errors.Is(err, domain.ErrCartItemNotFound),
		errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrPaymentNotFound),
		errors.Is(err, domain.ErrProductNotFound):
		return sharedHTTP.NotFoundResponse(c, notFoundMessage(err))
	case errors.Is(err, domain.ErrEmptyCart):
		return sharedHTTP.ErrorResponse(c, fiber.StatusBadRequest, "EMPTY_CART", "Cannot create an order from an empty cart", nil)
	case errors.Is(err, domain.ErrInvalidOrderState):
		return sharedHTTP.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_STATE", "Order cannot be cancelled in its current status", nil)
	case errors.Is(err, domain.ErrUnauthorized):
		return sharedHTTP.ForbiddenResponse(c, "Order belongs to another user")
	case errors.Is(err, domain.ErrInsufficientStock):
		return sharedHTTP.ConflictResponse(c, "Insufficient stock", nil)
	case errors.Is(err, domain.ErrProductUnavailable),
		errors.Is(err, domain.ErrRemoteUnavailable):
		logger.Warn("Remote dependency unavailable", zap.String("path", c.Path()), zap.Error(err))
		return sharedHTTP.ServiceUnavailableResponse(c, "Product service is temporarily unavailable", nil)
	}

	logger.Error("Unhandled error", zap.String("path", c.Path()), zap.Error(err))
	return sharedHTTP.InternalServerErrorResponse(c, "Internal server error", nil)
}

var notFoundMessages = []struct {
	err     error
	message string
}{
	{domain.ErrCartNotFound, "Cart not found"},
	{domain.ErrCartItemNotFound, "Cart item not found"},
	{domain.ErrOrderNotFound, "Order not found"},
	{domain.ErrPaymentNotFound, "Payment not found"},
	{domain.ErrProductNotFound, "Product not found"},
}

func notFoundMessage(err error) string {
	for _, nf := range notFoundMessages {
		if errors.Is(err, nf.err) {
			return nf.message
		}
	}
	return "Resource not found"
}

type localsKey string

const userIDKey localsKey = "user_id"

// RequireUser rejects requests without a valid X-User-ID header and stores
// the parsed id for the handler.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Get(UserIDHeader)
		if raw == "" {
			return sharedHTTP.BadRequestResponse(c, "Missing user id", map[string]interface{}{
				"header": UserIDHeader,
			})
		}
		userID, err := uuid.Parse(raw)
		if err != nil {
			return sharedHTTP.BadRequestResponse(c, "Invalid user id", map[string]interface{}{
				"header": UserIDHeader,
			})
		}
		c.Locals(userIDKey, userID)
		return c.Next()
	}
}

func currentUserID(c *fiber.Ctx) uuid.UUID {
	userID, _ := c.Locals(userIDKey).(uuid.UUID)
	return userID
}

func uuidParam(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	return id, err == nil
}

func invalidParam(c *fiber.Ctx, name string) error {
	return sharedHTTP.BadRequestResponse(c, "Invalid "+name, map[string]interface{}{
		name: c.Params(name),
	})
}

func queryInt(c *fiber.Ctx, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
