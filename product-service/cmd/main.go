package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arojasjg/milicon/product-service/internal/cache"
	"github.com/arojasjg/milicon/product-service/internal/handlers"
	"github.com/arojasjg/milicon/product-service/internal/repository"
	"github.com/arojasjg/milicon/product-service/internal/service"
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
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const serviceName = "product-service"

type Config struct {
	Port          string
	Storage       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration
	Database      config.DatabaseConfig
	Broker        messaging.BrokerConfig
}

func loadConfig() Config {
	return Config{
		Port:          config.GetEnvOrDefault("PORT", "8002"),
		Storage:       config.GetEnvOrDefault("STORAGE", "postgres"),
		RedisAddr:     config.GetEnvOrDefault("REDIS_ADDR", ""),
		RedisPassword: config.GetEnvOrDefault("REDIS_PASSWORD", ""),
		RedisDB:       config.GetEnvInt("REDIS_DB", 0),
		CacheTTL:      config.GetEnvDuration("PRODUCT_CACHE_TTL", cache.DefaultTTL),
		Database:      config.NewDatabaseConfig("product_db"),
		Broker:        messaging.NewBrokerConfig(),
	}
}

func main() {
	logger := logging.MustNew(serviceName)
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("Product Service stopped", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	cfg := loadConfig()
	logger.Info("Product Service starting", zap.String("port", cfg.Port), zap.String("storage", cfg.Storage))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	products, closeStore, err := initRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	productCache, closeCache := initCache(cfg, logger)
	defer closeCache()

	broker, err := messaging.Connect(cfg.Broker, serviceName, logger)
	if err != nil {
		return err
	}
	defer broker.Close()

	registry := metrics.New("milicon", "product_service")
	productService := service.NewProductService(products, productCache, broker, logger, registry)

	app := setupFiberApp(logger, registry)
	setupRoutes(app, registry, handlers.NewProductHandler(productService, logger))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Product Service listening", zap.String("addr", ":"+cfg.Port))
		return app.Listen(":" + cfg.Port)
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Product Service closing")
		return app.ShutdownWithTimeout(10 * time.Second)
	})

	return g.Wait()
}

func initRepository(ctx context.Context, cfg Config, logger *zap.Logger) (repository.ProductRepository, func(), error) {
	if cfg.Storage == "memory" {
		logger.Warn("Using in-memory storage; data is lost on restart")
		return repository.NewMemoryProductRepository(), func() {}, nil
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
	return repository.NewPostgresProductRepository(db), func() {
		if err := db.Close(); err != nil {
			logger.Warn("Database close error", zap.Error(err))
		}
	}, nil
}

func initCache(cfg Config, logger *zap.Logger) (cache.ProductCache, func()) {
	if cfg.RedisAddr == "" {
		logger.Info("Product cache disabled")
		return cache.NopCache{}, func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	logger.Info("Product cache enabled", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.CacheTTL))

	return cache.NewRedisProductCache(client, cfg.CacheTTL, logger), func() {
		if err := client.Close(); err != nil {
			logger.Warn("Redis close error", zap.Error(err))
		}
	}
}

func setupFiberApp(logger *zap.Logger, registry *metrics.Registry) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Product Service v1.0",
		ErrorHandler: errorHandler(logger),
	})

	app.Use(recover.New())
	app.Use(sharedHTTP.RequestLogger(logger))
	app.Use(sharedHTTP.Metrics(registry))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Request-ID",
	}))

	return app
}

func setupRoutes(app *fiber.App, registry *metrics.Registry, productHandler *handlers.ProductHandler) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return sharedHTTP.SuccessResponse(c, "Product Service is healthy", fiber.Map{
			"service": serviceName,
			"status":  "UP",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(registry.Handler()))

	handlers.RegisterRoutes(app.Group("/api/v1"), productHandler)

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
