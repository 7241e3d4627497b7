package handlers

import (
	"github.com/arojasjg/milicon/order-service/internal/domain"
	"github.com/arojasjg/milicon/order-service/internal/service"
	sharedHTTP "github.com/arojasjg/milicon/shared-domain/http"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type CartHandler struct {
	cartService *service.CartService
	logger      *zap.Logger
}

func NewCartHandler(cartService *service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		logger:      logger,
	}
}

func (h *CartHandler) GetCart(c *fiber.Ctx) error {
	cart, err := h.cartService.GetCart(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return sharedHTTP.SuccessResponse(c, "Cart retrieved successfully", mapCart(cart))
}

func (h *CartHandler) AddItem(c *fiber.Ctx) error {
	var request domain.CartItemRequest
	if err := c.BodyParser(&request); err != nil {
		return sharedHTTP.BadRequestResponse(c, "Invalid request body", map[string]interface{}{
			"parse_error": err.Error(),
		})
	}

	cart, err := h.cartService.AddItemToCart(c.UserContext(), currentUserID(c), request)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return sharedHTTP.SuccessResponse(c, "Item added to cart", mapCart(cart))
}

func (h *CartHandler) UpdateItem(c *fiber.Ctx) error {
	productID, ok := uuidParam(c, "product_id")
	if !ok {
		return invalidParam(c, "product_id")
	}

	var request domain.CartItemRequest
	if err := c.BodyParser(&request); err != nil {
		return sharedHTTP.BadRequestResponse(c, "Invalid request body", map[string]interface{}{
			"parse_error": err.Error(),
		})
	}

	cart, err := h.cartService.UpdateCartItem(c.UserContext(), currentUserID(c), productID, request)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return sharedHTTP.SuccessResponse(c, "Cart item updated", mapCart(cart))
}

func (h *CartHandler) RemoveItem(c *fiber.Ctx) error {
	productID, ok := uuidParam(c, "product_id")
	if !ok {
		return invalidParam(c, "product_id")
	}

	cart, err := h.cartService.RemoveItemFromCart(c.UserContext(), currentUserID(c), productID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return sharedHTTP.SuccessResponse(c, "Cart item removed", mapCart(cart))
}

func (h *CartHandler) ClearCart(c *fiber.Ctx) error {
	if err := h.cartService.ClearCart(c.UserContext(), currentUserID(c)); err != nil {
		return respondError(c, h.logger, err)
	}

	return sharedHTTP.NoContentResponse(c)
}
