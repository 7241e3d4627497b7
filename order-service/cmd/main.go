package main

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arojasjg/milicon/order-service/internal/client"
	"github.com/arojasjg/milicon/order-service/internal/gateway"
	"github.com/arojasjg/milicon/order-service/internal/handlers"
	"github.com/arojasjg/milicon/order-service/internal/repository"
	"github.com/arojasjg/milicon/order-service/internal/service"
	"github.com/arojasjg/milicon/shared-domain/config"
	"github.com/arojasjg/milicon/shared-domain/database"
	sharedHTTP "github.com/arojasjg/milicon/shared-domain/http"
	"github.com/arojasjg/milicon/shared-domain/logging"
	"github.com/arojasjg/milicon/shared-domain/messaging"
	"github.com/arojasjg/milicon/shared-domain/metrics"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const serviceName = "order-service"

type Config struct {
	Port               string
	Storage            string
	PaymentFailureRate float64
	PaymentDelay       time.Duration
	ProductClient      client.ProductClientConfig
	Database           config.DatabaseConfig
	Broker             messaging.BrokerConfig
}

func loadConfig() Config {
	productClient := client.DefaultProductClientConfig(config.GetEnvOrDefault("PRODUCT_SERVICE_URL", "http://localhost:8002"))
	productClient.Timeout = config.GetEnvDuration("PRODUCT_CLIENT_TIMEOUT", productClient.Timeout)
	productClient.MaxAttempts = config.GetEnvInt("PRODUCT_CLIENT_MAX_ATTEMPTS", productClient.MaxAttempts)
	productClient.BreakerTimeout = config.GetEnvDuration("PRODUCT_CLIENT_BREAKER_TIMEOUT", productClient.BreakerTimeout)

	return Config{
		Port:               config.GetEnvOrDefault("PORT", "8001"),
		Storage:            config.GetEnvOrDefault("STORAGE", "postgres"),
		PaymentFailureRate: config.GetEnvFloat("PAYMENT_FAILURE_RATE", 0),
		PaymentDelay:       config.GetEnvDuration("PAYMENT_DELAY", 0),
		ProductClient:      productClient,
		Database:           config.NewDatabaseConfig("order_db"),
		Broker:             messaging.NewBrokerConfig(),
	}
}

func main() {
	logger := logging.MustNew(serviceName)
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("Order Service stopped", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	cfg := loadConfig()
	logger.Info("Order Service starting", zap.String("port", cfg.Port), zap.String("storage", cfg.Storage))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := initStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	broker, err := messaging.Connect(cfg.Broker, serviceName, logger)
	if err != nil {
		return err
	}
	defer broker.Close()

	registry := metrics.New("milicon", "order_service")

	products := client.NewProductClient(cfg.ProductClient, logger)
	paymentGateway := gateway.NewSimulatedGateway(cfg.PaymentFailureRate, cfg.PaymentDelay, logger)

	paymentService := service.NewPaymentService(store, paymentGateway, logger, registry)
	orderService := service.NewOrderService(store, products, paymentService, broker, logger, registry)
	cartService := service.NewCartService(store, products, logger)

	app := setupFiberApp(logger, registry)
	setupRoutes(app, registry,
		handlers.NewCartHandler(cartService, logger),
		handlers.NewOrderHandler(orderService, logger),
		handlers.NewPaymentHandler(paymentService, logger),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Order Service listening", zap.String("addr", ":"+cfg.Port))
		return app.Listen(":" + cfg.Port)
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Order Service closing")
		return app.ShutdownWithTimeout(10 * time.Second)
	})

	return g.Wait()
}

func initStore(ctx context.Context, cfg Config, logger *zap.Logger) (repository.Store, func(), error) {
	if cfg.Storage == "memory" {
		logger.Warn("Using in-memory storage; data is lost on restart")
		return repository.NewMemoryStore(), func() {}, nil
	}

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(ctx, db, repository.Schema); err != nil {
		db.Close()
		return nil, nil, err
	}

	logger.Info("Database connection established", zap.String("database", cfg.Database.Name))
	return repository.NewPostgresStore(db), func() { closeDB(db, logger) }, nil
}

func closeDB(db *sql.DB, logger *zap.Logger) {
	if err := db.Close(); err != nil {
		logger.Warn("Database close error", zap.Error(err))
	}
}

func setupFiberApp(logger *zap.Logger, registry *metrics.Registry) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Order Service v1.0",
		ErrorHandler: errorHandler(logger),
	})

	app.Use(recover.New())
	app.Use(sharedHTTP.RequestLogger(logger))
	app.Use(sharedHTTP.Metrics(registry))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Request-ID,X-User-ID,X-User-Email",
	}))

	return app
}

func setupRoutes(
	app *fiber.App,
	registry *metrics.Registry,
	cartHandler *handlers.CartHandler,
	orderHandler *handlers.OrderHandler,
	paymentHandler *handlers.PaymentHandler,
) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return sharedHTTP.SuccessResponse(c, "Order Service is healthy", fiber.Map{
			"service": serviceName,
			"status":  "UP",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(registry.Handler()))

	handlers.RegisterRoutes(app.Group("/api/v1"), cartHandler, orderHandler, paymentHandler)

	app.Use("*", func(c *fiber.Ctx) error {
		return sharedHTTP.NotFoundResponse(c, "Route not found")
	})
}

func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal Server Error"

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			code = fiberErr.Code
			message = fiberErr.Message
		}

		if code >= fiber.StatusInternalServerError {
			logger.Error("Unhandled request error", zap.String("path", c.Path()), zap.Error(err))
		}

		return sharedHTTP.ErrorResponse(c, code, "HTTP_ERROR", message, nil)
	}
}
