package handlers

import (
	"strings"
	"time"

	"github.com/arojasjg/milicon/order-service/internal/domain"
	"github.com/arojasjg/milicon/order-service/internal/repository"
	"github.com/arojasjg/milicon/order-service/internal/service"
	sharedHTTP "github.com/arojasjg/milicon/shared-domain/http"
	"github.com/arojasjg/milicon/shared-domain/types"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type OrderHandler struct {
	orderService *service.OrderService
	logger       *zap.Logger
}

func NewOrderHandler(orderService *service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	userEmail := strings.TrimSpace(c.Get(UserEmailHeader))
	if userEmail == "" {
		return sharedHTTP.BadRequestResponse(c, "Missing user email", map[string]interface{}{
			"header": UserEmailHeader,
		})
	}

	var request domain.CreateOrderRequest
	if err := c.BodyParser(&request); err != nil {
		return sharedHTTP.BadRequestResponse(c, "Invalid request body", map[string]interface{}{
			"parse_error": err.Error(),
		})
	}

	order, err := h.orderService.CreateOrder(c.UserContext(), currentUserID(c), userEmail, request)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return sharedHTTP.CreatedResponse(c, "Order created successfully", mapOrder(order))
}

func (h *OrderHandler) GetOrderByID(c *fiber.Ctx) error {
	orderID, ok := uuidParam(c, "id")
	if !ok {
		return invalidParam(c, "id")
	}

	order, err := h.orderService.GetOrderByID(c.UserContext(), orderID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return sharedHTTP.SuccessResponse(c, "Order retrieved successfully", mapOrder(order))
}

func (h *OrderHandler) GetUserOrders(c *fiber.Ctx) error {
	page, ok := parsePagination(c)
	if !ok {
		return invalidPagination(c)
	}

	result, err := h.orderService.GetOrdersByUserID(c.UserContext(), currentUserID(c), page)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return sharedHTTP.SuccessResponse(c, "Orders retrieved successfully", mapOrderPage(result))
}

func (h *OrderHandler) GetRecentUserOrders(c *fiber.Ctx) error {
	orders, err := h.orderService.GetRecentOrdersByUserID(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return sharedHTTP.SuccessResponse(c, "Orders retrieved successfully", mapOrders(orders))
}

func (h *OrderHandler) GetUserOrdersByStatus(c *fiber.Ctx) error {
	page, ok := parsePagination(c)
	if !ok {
		return invalidPagination(c)
	}

	status := types.OrderStatus(strings.ToUpper(c.Query("status")))
	result, err := h.orderService.GetOrdersByUserIDAndStatus(c.UserContext(), currentUserID(c), status, page)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return sharedHTTP.SuccessResponse(c, "Orders retrieved successfully", mapOrderPage(result))
}

func (h *OrderHandler) GetOrdersByStatus(c *fiber.Ctx) error {
	page, ok := parsePagination(c)
	if !ok {
		return invalidPagination(c)
	}

	status := types.OrderStatus(strings.ToUpper(c.Params("status")))
	result, err := h.orderService.GetOrdersByStatus(c.UserContext(), status, page)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return sharedHTTP.SuccessResponse(c, "Orders retrieved successfully", mapOrderPage(result))
}

func (h *OrderHandler) GetOrdersByDateRange(c *fiber.Ctx) error {
	page, ok := parsePagination(c)
	if !ok {
		return invalidPagination(c)
	}

	from, ok := parseDate(c.Query("start_date"), false)
	if !ok {
		return sharedHTTP.BadRequestResponse(c, "Invalid start_date", map[string]interface{}{
			"start_date": c.Query("start_date"),
		})
	}
	to, ok := parseDate(c.Query("end_date"), true)
	if !ok {
		return sharedHTTP.BadRequestResponse(c, "Invalid end_date", map[string]interface{}{
			"end_date": c.Query("end_date"),
		})
	}

	result, err := h.orderService.GetOrdersByDateRange(c.UserContext(), from, to, page)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return sharedHTTP.SuccessResponse(c, "Orders retrieved successfully", mapOrderPage(result))
}

func (h *OrderHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	orderID, ok := uuidParam(c, "id")
	if !ok {
		return invalidParam(c, "id")
	}

	var request domain.OrderStatusUpdateRequest
	if err := c.BodyParser(&request); err != nil {
		return sharedHTTP.BadRequestResponse(c, "Invalid request body", map[string]interface{}{
			"parse_error": err.Error(),
		})
	}

	order, err := h.orderService.UpdateOrderStatus(c.UserContext(), orderID, request)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return sharedHTTP.SuccessResponse(c, "Order status updated", mapOrder(order))
}

func (h *OrderHandler) CancelOrder(c *fiber.Ctx) error {
	orderID, ok := uuidParam(c, "id")
	if !ok {
		return invalidParam(c, "id")
	}

	if err := h.orderService.CancelOrder(c.UserContext(), orderID, currentUserID(c)); err != nil {
		return respondError(c, h.logger, err)
	}

	return sharedHTTP.NoContentResponse(c)
}

func parsePagination(c *fiber.Ctx) (repository.Pagination, bool) {
	page, ok := queryInt(c, "page")
	if !ok || page > service.MaxPage {
		return repository.Pagination{}, false
	}
	limit, ok := queryInt(c, "limit")
	if !ok || limit > service.MaxPageLimit {
		return repository.Pagination{}, false
	}
	return service.NormalizePagination(repository.Pagination{Page: page, Limit: limit}), true
}

func invalidPagination(c *fiber.Ctx) error {
	return sharedHTTP.BadRequestResponse(c, "Invalid pagination", map[string]interface{}{
		"page":  c.Query("page"),
		"limit": c.Query("limit"),
	})
}

// parseDate accepts RFC 3339 timestamps or plain dates. A plain end date
// covers the whole day.
func parseDate(raw string, endOfDay bool) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		if endOfDay {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return t, true
	}
	return time.Time{}, false
}
