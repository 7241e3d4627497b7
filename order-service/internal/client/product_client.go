package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/arojasjg/milicon/order-service/internal/domain"
	"github.com/arojasjg/milicon/shared-domain/tracing"
	"github.com/arojasjg/milicon/shared-domain/types"
	"github.com/cenkalti/backoff/v5"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ProductDirectory is the remote product catalogue used by carts and checkout.
type ProductDirectory interface {
	GetProduct(ctx context.Context, productID uuid.UUID) (*types.Product, error)
	ReduceStock(ctx context.Context, productID uuid.UUID, quantity int) error
}

type ProductClientConfig struct {
	BaseURL         string
	Timeout         time.Duration
	MaxAttempts     int
	InitialBackoff  time.Duration
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

func DefaultProductClientConfig(baseURL string) ProductClientConfig {
	return ProductClientConfig{
		BaseURL:         baseURL,
		Timeout:         3 * time.Second,
		MaxAttempts:     3,
		InitialBackoff:  100 * time.Millisecond,
		BreakerFailures: 5,
		BreakerTimeout:  30 * time.Second,
	}
}

// ProductClient talks to product-service over HTTP. Transport errors and 5xx
// answers are retried with exponential backoff; the retries as a whole run
// behind a circuit breaker.
type ProductClient struct {
	config  ProductClientConfig
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
	tracer  *tracing.Tracer
}

func NewProductClient(config ProductClientConfig, logger *zap.Logger) *ProductClient {
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if config.BreakerFailures == 0 {
		config.BreakerFailures = 5
	}

	c := &ProductClient{
		config: config,
		logger: logger,
		tracer: tracing.New("order-service/product-client"),
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "product-service",
		Timeout: config.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.BreakerFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrProductNotFound) || errors.Is(err, domain.ErrInsufficientStock)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return c
}

type productEnvelope struct {
	Success bool           `json:"success"`
	Data    *types.Product `json:"data"`
}

// GetProduct fails with domain.ErrProductNotFound for unknown ids and with
// domain.ErrProductUnavailable when the directory cannot answer.
func (c *ProductClient) GetProduct(ctx context.Context, productID uuid.UUID) (product *types.Product, err error) {
	ctx, span := c.tracer.Start(ctx, "ProductClient.GetProduct", attribute.String("product.id", productID.String()))
	defer func() { tracing.End(span, err) }()

	url := fmt.Sprintf("%s/api/v1/products/%s", c.config.BaseURL, productID)
	body, err := c.call(ctx, func() *fiber.Agent { return fiber.Get(url) })
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return nil, err
		}
		c.logger.Warn("Product lookup fallback",
			zap.String("product_id", productID.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", domain.ErrProductUnavailable, err)
	}

	var envelope productEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: product decode error: %v", domain.ErrProductUnavailable, err)
	}
	if envelope.Data == nil {
		return nil, fmt.Errorf("%w: empty product payload", domain.ErrProductUnavailable)
	}

	return envelope.Data, nil
}

// ReduceStock passes through domain.ErrProductNotFound and
// domain.ErrInsufficientStock; anything else becomes domain.ErrRemoteUnavailable.
func (c *ProductClient) ReduceStock(ctx context.Context, productID uuid.UUID, quantity int) (err error) {
	ctx, span := c.tracer.Start(ctx, "ProductClient.ReduceStock",
		attribute.String("product.id", productID.String()),
		attribute.Int("quantity", quantity),
	)
	defer func() { tracing.End(span, err) }()

	url := fmt.Sprintf("%s/api/v1/products/%s/stock/reduce?quantity=%d", c.config.BaseURL, productID, quantity)
	_, err = c.call(ctx, func() *fiber.Agent { return fiber.Put(url) })
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) || errors.Is(err, domain.ErrInsufficientStock) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}

	return nil
}

// call runs one logical request: breaker around bounded retries. newAgent is
// invoked per attempt since an agent is released after use.
func (c *ProductClient) call(ctx context.Context, newAgent func() *fiber.Agent) ([]byte, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		policy := backoff.NewExponentialBackOff()
		policy.InitialInterval = c.config.InitialBackoff
		policy.MaxInterval = 2 * time.Second

		return backoff.Retry(ctx, func() ([]byte, error) {
			return c.attempt(ctx, newAgent)
		},
			backoff.WithBackOff(policy),
			backoff.WithMaxTries(uint(c.config.MaxAttempts)),
		)
	})
	if err != nil {
		return nil, err
	}

	body, _ := result.([]byte)
	return body, nil
}

func (c *ProductClient) attempt(ctx context.Context, newAgent func() *fiber.Agent) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, backoff.Permanent(err)
	}

	timeout := c.config.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	code, body, errs := newAgent().Timeout(timeout).Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("product service request failed: %w", errors.Join(errs...))
	}

	switch {
	case code >= 200 && code < 300:
		return body, nil
	case code == http.StatusNotFound:
		return nil, backoff.Permanent(domain.ErrProductNotFound)
	case code == http.StatusConflict:
		return nil, backoff.Permanent(domain.ErrInsufficientStock)
	case code >= 500:
		return nil, fmt.Errorf("product service answered %d", code)
	default:
		return nil, backoff.Permanent(fmt.Errorf("product service answered %d", code))
	}
}
