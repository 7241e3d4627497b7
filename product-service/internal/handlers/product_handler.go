package handlers

import (
	"errors"
	"strconv"

	"github.com/arojasjg/milicon/product-service/internal/domain"
	"github.com/arojasjg/milicon/product-service/internal/service"
	sharedHTTP "github.com/arojasjg/milicon/shared-domain/http"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ProductHandler struct {
	productService *service.ProductService
	logger         *zap.Logger
}

func NewProductHandler(productService *service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

func RegisterRoutes(api fiber.Router, h *ProductHandler) {
	products := api.Group("/products")
	products.Get("/", h.ListProducts)
	products.Post("/", h.CreateProduct)
	products.Get("/:id", h.GetProduct)
	products.Put("/:id/stock/reduce", h.ReduceStock)
}

func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	productID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidProductID(c)
	}

	product, err := h.productService.GetProduct(c.UserContext(), productID)
	if err != nil {
		return h.respondError(c, err)
	}

	return sharedHTTP.SuccessResponse(c, "Product retrieved", product)
}

func (h *ProductHandler) ListProducts(c *fiber.Ctx) error {
	page, pageErr := strconv.Atoi(c.Query("page", "1"))
	limit, limitErr := strconv.Atoi(c.Query("limit", strconv.Itoa(service.DefaultPageLimit)))
	if pageErr != nil || limitErr != nil || page < 1 || page > service.MaxPage || limit < 1 || limit > service.MaxPageLimit {
		return sharedHTTP.BadRequestResponse(c, "Invalid pagination", map[string]interface{}{
			"page":  c.Query("page"),
			"limit": c.Query("limit"),
		})
	}

	activeOnly := true
	if raw := c.Query("active"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return sharedHTTP.BadRequestResponse(c, "Invalid active filter", map[string]interface{}{
				"active": raw,
			})
		}
		activeOnly = parsed
	}

	result, err := h.productService.ListProducts(c.UserContext(), activeOnly, page, limit)
	if err != nil {
		return h.respondError(c, err)
	}

	return sharedHTTP.SuccessResponse(c, "Products retrieved", fiber.Map{
		"products": result.Products,
		"pagination": fiber.Map{
			"page":     result.Page,
			"limit":    result.Limit,
			"total":    result.Total,
			"has_more": result.Page*result.Limit < result.Total,
		},
	})
}

func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var request domain.CreateProductRequest
	if err := c.BodyParser(&request); err != nil {
		return sharedHTTP.BadRequestResponse(c, "Invalid request body", map[string]interface{}{
			"parse_error": err.Error(),
		})
	}

	product, err := h.productService.CreateProduct(c.UserContext(), request)
	if err != nil {
		return h.respondError(c, err)
	}

	return sharedHTTP.CreatedResponse(c, "Product created", product)
}

func (h *ProductHandler) ReduceStock(c *fiber.Ctx) error {
	productID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidProductID(c)
	}

	quantity, err := strconv.Atoi(c.Query("quantity"))
	if err != nil {
		return sharedHTTP.BadRequestResponse(c, "Invalid quantity", map[string]interface{}{
			"quantity": c.Query("quantity"),
		})
	}

	product, err := h.productService.ReduceStock(c.UserContext(), productID, quantity)
	if err != nil {
		return h.respondError(c, err)
	}

	return sharedHTTP.SuccessResponse(c, "Stock reduced", product)
}

func (h *ProductHandler) respondError(c *fiber.Ctx, err error) error {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		details := make(map[string]interface{}, len(verr.Fields))
		for field, message := range verr.Fields {
			details[field] = message
		}
		return sharedHTTP.ErrorResponse(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", details)
	}

	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		return sharedHTTP.NotFoundResponse(c, "Product not found")
	case errors.Is(err, domain.ErrInsufficientStock):
		return sharedHTTP.ConflictResponse(c, "Insufficient stock", nil)
	case errors.Is(err, domain.ErrDuplicateProduct):
		return sharedHTTP.ConflictResponse(c, "Product already exists", nil)
	}

	h.logger.Error("Unhandled error", zap.String("path", c.Path()), zap.Error(err))
	return sharedHTTP.InternalServerErrorResponse(c, "Internal server error", nil)
}

func invalidProductID(c *fiber.Ctx) error {
	return sharedHTTP.BadRequestResponse(c, "Invalid product id", map[string]interface{}{
		"id": c.Params("id"),
	})
}
