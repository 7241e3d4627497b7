package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arojasjg/milicon/notification-service/internal/handlers"
	"github.com/arojasjg/milicon/notification-service/internal/repository"
	"github.com/arojasjg/milicon/notification-service/internal/service"
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

const serviceName = "notification-service"

type Config struct {
	Port        string
	Storage     string
	FailureRate float64
	Database    config.DatabaseConfig
	Broker      messaging.BrokerConfig
}

func loadConfig() Config {
	return Config{
		Port:        config.GetEnvOrDefault("PORT", "8005"),
		Storage:     config.GetEnvOrDefault("STORAGE", "postgres"),
		FailureRate: config.GetEnvFloat("NOTIFICATION_FAILURE_RATE", 0),
		Database:    config.NewDatabaseConfig("notification_db"),
		Broker:      messaging.NewBrokerConfig(),
	}
}

func main() {
	logger := logging.MustNew(serviceName)
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("Notification Service stopped", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	cfg := loadConfig()
	logger.Info("Notification Service starting",
		zap.String("port", cfg.Port),
		zap.String("storage", cfg.Storage),
		zap.Float64("failure_rate", cfg.FailureRate),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifications, closeStore, err := initRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	broker, err := messaging.Connect(cfg.Broker, serviceName, logger)
	if err != nil {
		return err
	}
	defer broker.Close()

	registry := metrics.New("milicon", "notification_service")
	notificationService := service.NewNotificationService(notifications, service.NewLogSender(logger, cfg.FailureRate), logger, registry)
	notificationHandler := handlers.NewNotificationHandler(notificationService, logger)

	app := setupFiberApp(logger, registry)
	setupRoutes(app, registry, notificationHandler)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting event consumption", zap.String("broker", cfg.Broker.Kind))
		if err := notificationHandler.StartConsuming(ctx, broker); err != nil {
			return err
		}
		<-ctx.Done()
		return nil
	})
	g.Go(func() error {
		logger.Info("Notification Service listening", zap.String("addr", ":"+cfg.Port))
		return app.Listen(":" + cfg.Port)
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Notification Service closing")
		return app.ShutdownWithTimeout(10 * time.Second)
	})

	return g.Wait()
}

func initRepository(ctx context.Context, cfg Config, logger *zap.Logger) (repository.NotificationRepository, func(), error) {
	if cfg.Storage == "memory" {
		logger.Warn("Using in-memory storage; data is lost on restart")
		return repository.NewMemoryNotificationRepository(), func() {}, nil
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
	return repository.NewPostgresNotificationRepository(db), func() {
		if err := db.Close(); err != nil {
			logger.Warn("Database close error", zap.Error(err))
		}
	}, nil
}

func setupFiberApp(logger *zap.Logger, registry *metrics.Registry) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Notification Service v1.0",
		ErrorHandler: errorHandler(logger),
	})

	app.Use(recover.New())
	app.Use(sharedHTTP.RequestLogger(logger))
	app.Use(sharedHTTP.Metrics(registry))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Request-ID",
	}))

	return app
}

func setupRoutes(app *fiber.App, registry *metrics.Registry, notificationHandler *handlers.NotificationHandler) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return sharedHTTP.SuccessResponse(c, "Notification Service is healthy", fiber.Map{
			"service": serviceName,
			"status":  "UP",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(registry.Handler()))

	handlers.RegisterRoutes(app.Group("/api/v1"), notificationHandler)

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
