package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/arojasjg/milicon/product-service/internal/cache"
	"github.com/arojasjg/milicon/product-service/internal/repository"
	"github.com/arojasjg/milicon/product-service/internal/service"
	sharedHTTP "github.com/arojasjg/milicon/shared-domain/http"
	"github.com/arojasjg/milicon/shared-domain/messaging"
	"github.com/arojasjg/milicon/shared-domain/metrics"
	"github.com/arojasjg/milicon/shared-domain/types"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type envelope struct {
	Success bool                 `json:"success"`
	Data    json.RawMessage      `json:"data"`
	Error   *sharedHTTP.APIError `json:"error"`
}

func newTestApp() *fiber.App {
	logger := zap.NewNop()
	products := service.NewProductService(
		repository.NewMemoryProductRepository(),
		cache.NopCache{},
		messaging.NopPublisher{},
		logger,
		metrics.New("milicon", "product_handlers_test"),
	)

	app := fiber.New()
	RegisterRoutes(app.Group("/api/v1"), NewProductHandler(products, logger))
	return app
}

func call(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &env))
	return resp.StatusCode, env
}

func createProduct(t *testing.T, app *fiber.App, stock int) types.Product {
	t.Helper()

	status, env := call(t, app, http.MethodPost, "/api/v1/products", map[string]interface{}{
		"name":  "Keyboard",
		"price": "49.90",
		"stock": stock,
	})
	require.Equal(t, http.StatusCreated, status)

	var product types.Product
	require.NoError(t, json.Unmarshal(env.Data, &product))
	return product
}

func TestCreateAndGetProduct(t *testing.T) {
	app := newTestApp()
	created := createProduct(t, app, 4)
	assert.True(t, created.Active)
	assert.True(t, created.Price.Equal(decimal.RequireFromString("49.90")))

	status, env := call(t, app, http.MethodGet, "/api/v1/products/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, status)

	var got types.Product
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, 4, got.Stock)
}

func TestCreateProductValidation(t *testing.T) {
	app := newTestApp()

	status, env := call(t, app, http.MethodPost, "/api/v1/products", map[string]interface{}{
		"name":  "",
		"price": "0",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Details, "name")
	assert.Contains(t, env.Error.Details, "price")
}

func TestGetProductErrors(t *testing.T) {
	app := newTestApp()

	status, _ := call(t, app, http.MethodGet, "/api/v1/products/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, env := call(t, app, http.MethodGet, "/api/v1/products/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestReduceStockEndpoint(t *testing.T) {
	app := newTestApp()
	product := createProduct(t, app, 3)
	path := "/api/v1/products/" + product.ID.String() + "/stock/reduce"

	status, env := call(t, app, http.MethodPut, path+"?quantity=2", nil)
	require.Equal(t, http.StatusOK, status)
	var updated types.Product
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, 1, updated.Stock)

	status, env = call(t, app, http.MethodPut, path+"?quantity=2", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", env.Error.Code)

	status, _ = call(t, app, http.MethodPut, path+"?quantity=abc", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, app, http.MethodPut, "/api/v1/products/"+uuid.NewString()+"/stock/reduce?quantity=1", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestListProducts(t *testing.T) {
	app := newTestApp()
	createProduct(t, app, 1)
	createProduct(t, app, 2)

	status, env := call(t, app, http.MethodGet, "/api/v1/products?page=1&limit=1", nil)
	require.Equal(t, http.StatusOK, status)

	var page struct {
		Products   []types.Product `json:"products"`
		Pagination struct {
			Total   int  `json:"total"`
			HasMore bool `json:"has_more"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Len(t, page.Products, 1)
	assert.Equal(t, 2, page.Pagination.Total)
	assert.True(t, page.Pagination.HasMore)

	status, _ = call(t, app, http.MethodGet, "/api/v1/products?limit=500", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, app, http.MethodGet, "/api/v1/products?page=1000000000000000000", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, app, http.MethodGet, "/api/v1/products?active=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}
