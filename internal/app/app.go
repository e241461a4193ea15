package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/temcen/sage/internal/config"
	"github.com/temcen/sage/internal/database"
	"github.com/temcen/sage/internal/handlers"
	"github.com/temcen/sage/internal/messaging"
	"github.com/temcen/sage/internal/middleware"
	"github.com/temcen/sage/internal/services"
	"github.com/temcen/sage/internal/validation"
)

type App struct {
	config      *config.Config
	logger      *logrus.Logger
	db          *database.Database
	bus         *messaging.MessageBus
	services    *services.Services
	handlers    *handlers.Handlers
	router      *gin.Engine
	rateLimiter *middleware.ClientRateLimiter

	consumerCancel context.CancelFunc
	consumerDone   sync.WaitGroup
}

func New(cfg *config.Config) (*App, error) {
	app := &App{
		config: cfg,
		logger: setupLogger(cfg),
	}

	// Initialize database connections
	db, err := database.New(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if cfg.Kafka.Enabled {
		bus, err := messaging.NewMessageBus(cfg, app.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize message bus: %w", err)
		}
		app.bus = bus
	}

	// Initialize services
	svcs, err := services.New(cfg, app.logger, db, app.bus, prometheus.DefaultRegisterer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.services = svcs

	schemas, err := validation.NewSchemaValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to load schemas: %w", err)
	}

	// Initialize handlers
	app.handlers = handlers.New(cfg, app.logger, svcs, schemas)

	if cfg.Security.RateLimit.RequestsPerSecond > 0 {
		app.rateLimiter = middleware.NewClientRateLimiter(cfg.Security.RateLimit)
	}

	// Setup router
	app.setupRouter()

	return app, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

// StartConsumers begins applying catalog sync messages from Kafka. It is a
// no-op when Kafka is disabled.
func (a *App) StartConsumers() {
	if a.bus == nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.consumerCancel = cancel

	a.consumerDone.Add(1)
	go func() {
		defer a.consumerDone.Done()
		err := a.bus.ConsumeSyncMessages(ctx, a.services.Sync.HandleSyncMessage)
		if err != nil && !errors.Is(err, context.Canceled) {
			a.logger.WithError(err).Error("Sync consumer stopped")
		}
	}()

	a.logger.WithField("topic", a.config.Kafka.Topics.CatalogSync).Info("Sync consumer started")
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down application...")

	var errs []error

	if a.consumerCancel != nil {
		a.consumerCancel()
		done := make(chan struct{})
		go func() {
			a.consumerDone.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("sync consumer did not stop: %w", ctx.Err()))
		}
	}

	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			a.logger.WithError(err).Error("Error closing message bus")
			errs = append(errs, err)
		}
	}

	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing database connections")
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

func (a *App) setupRouter() {
	if a.config.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(a.logger))
	router.Use(middleware.Recovery(a.logger))
	router.Use(middleware.CORS(a.config))

	router.GET("/", a.handlers.Info.Get)
	router.GET("/health", a.handlers.Health.Check)

	if a.config.Monitoring.Enabled {
		router.GET(a.config.Monitoring.MetricsPath, gin.WrapH(promhttp.Handler()))
	}

	api := router.Group("")
	api.Use(middleware.RateLimit(a.rateLimiter, a.logger))
	{
		api.POST("/sync", a.handlers.Sync.Sync)
		api.POST("/sync/database", a.handlers.Sync.SyncDatabase)

		recommend := api.Group("/recommend")
		{
			recommend.GET("/item/:itemId", a.handlers.Recommendation.Item)
			recommend.GET("/user/:userId", a.handlers.Recommendation.User)
		}

		api.GET("/evaluate", a.handlers.Evaluation.Evaluate)
		api.GET("/metrics/online", a.handlers.Metrics.Online)
	}

	a.router = router
}
