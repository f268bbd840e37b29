package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/egov-portal/reserve-service/internal/adapters"
	"github.com/egov-portal/reserve-service/internal/clock"
	"github.com/egov-portal/reserve-service/internal/config"
	"github.com/egov-portal/reserve-service/internal/database"
	"github.com/egov-portal/reserve-service/internal/database/migrations"
	"github.com/egov-portal/reserve-service/internal/handlers"
	"github.com/egov-portal/reserve-service/internal/handlers/public"
	"github.com/egov-portal/reserve-service/internal/messaging"
	customMiddleware "github.com/egov-portal/reserve-service/internal/middleware"
	"github.com/egov-portal/reserve-service/internal/service"
	"github.com/egov-portal/reserve-service/internal/storage"
	"github.com/egov-portal/reserve-service/pkg/jwt"
	"github.com/egov-portal/reserve-service/pkg/logger"
	"github.com/egov-portal/reserve-service/pkg/metrics"
	"github.com/egov-portal/reserve-service/pkg/tracing"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const serviceVersion = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	location, err := cfg.Reservation.Location()
	if err != nil {
		logger.Fatal("Invalid reservation timezone", zap.Error(err))
	}

	// Background workers stop when rootCtx is cancelled
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// Initialize tracing
	shutdownTracing, err := tracing.Setup(rootCtx, tracing.Options{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		Version:     serviceVersion,
		SampleRatio: cfg.Tracing.SampleRatio,
		Insecure:    cfg.Tracing.Insecure,
	})
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	// Set service start time for metrics
	startTime := time.Now()
	go func() {
		ticker := time.NewTicker(cfg.Metrics.UpdateInterval)
		defer ticker.Stop()
		for {
			metrics.ServiceUptime.Set(time.Since(startTime).Seconds())
			select {
			case <-rootCtx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	// Set service info
	metrics.ServiceInfo.WithLabelValues(serviceVersion, time.Now().Format(time.RFC3339)).Set(1)

	// Initialize database
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		migrateCtx, migrateCancel := context.WithTimeout(rootCtx, time.Minute)
		err := migrations.Apply(migrateCtx, db.Pool(), logger.Named("migrations"))
		migrateCancel()
		if err != nil {
			logger.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	// Initialize Redis
	redis, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redis.Close()

	// Initialize JWT validator
	jwtValidator := jwt.NewValidator(cfg.Auth.PublicKeyURL, redis, cfg.Timeouts.JWTValidatorClient)
	initCtx, initCancel := context.WithTimeout(rootCtx, cfg.Timeouts.JWTValidatorClient)
	err = jwtValidator.Initialize(initCtx)
	initCancel()
	if err != nil {
		logger.Fatal("Failed to initialize JWT validator", zap.Error(err))
	}

	// Refresh JWT public key periodically
	go jwtValidator.RunRefresh(rootCtx, cfg.Auth.RefreshInterval)

	// Initialize repository dependencies
	cacheAdapter := adapters.NewCacheAdapter(redis)
	metricsAdapter := adapters.NewMetricsAdapter("reservations")

	repository := storage.NewRepository(&storage.RepositoryDependencies{
		DB:               adapters.NewDatabaseAdapter(db),
		Cache:            cacheAdapter,
		Queue:            cacheAdapter,
		MetricsCollector: metricsAdapter,
	})

	// Initialize attachment publisher
	writer := messaging.NewWriter(cfg.Messaging.BrokerList(), cfg.Messaging.AttachmentTopic)
	writer.WriteTimeout = cfg.Messaging.WriteTimeout
	publisher := messaging.NewAttachmentPublisher(writer, cfg.Messaging.AttachmentTopic, logger.Named("attachment_publisher"))
	defer publisher.Close()

	// Initialize external service clients with configurable timeouts
	itemClient := service.NewHTTPItemClientWithTimeout(cfg.ExternalServices.ItemService.BaseURL, cfg.ExternalServices.ItemService.Timeout, logger.Named("item_client"))
	userClient := service.NewHTTPUserClientWithTimeout(cfg.ExternalServices.UserService.BaseURL, cfg.ExternalServices.UserService.Timeout, logger.Named("user_client"))

	// Initialize service layer
	serviceLayer := service.NewService(&service.ServiceDependencies{
		Repository: repository,
		Cache:      cacheAdapter,
		Metrics:    metricsAdapter,
		Items:      itemClient,
		Users:      userClient,
		Publisher:  publisher,
		Breaker: service.BreakerSettings{
			Name:             "item_catalog",
			MaxRequests:      cfg.CircuitBreaker.MaxRequests,
			Interval:         cfg.CircuitBreaker.Interval,
			Timeout:          cfg.CircuitBreaker.Timeout,
			FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
		},
		Clock:      clock.NewSystem(),
		Location:   location,
		ProfileTTL: cfg.Reservation.ProfileCacheTTL,
		Pages: service.PageLimits{
			Default: cfg.Reservation.DefaultPageSize,
			Max:     cfg.Reservation.MaxPageSize,
		},
		Reconciler: service.ReconcilerConfig{
			Interval:  cfg.Reconciler.Interval,
			Timeout:   cfg.Reconciler.Timeout,
			BatchSize: cfg.Reconciler.BatchSize,
		},
		Logger: logger.Get(),
	})

	// Start release reconciler in background
	go serviceLayer.Reconciler.Start(rootCtx)

	// Initialize handlers
	allHandlers := handlers.NewHandlers(&handlers.HandlerDependencies{
		Service: serviceLayer,
		DB:      db,
		Redis:   redis,
		Logger:  logger.Get(),
	})

	publicRouter := newPublicRouter(cfg.Timeouts.HTTPMiddleware, jwtValidator, allHandlers.Reservation)
	internalRouter := newInternalRouter(cfg.Timeouts.HTTPMiddleware, allHandlers.Health)

	// Create public HTTP server
	publicServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      publicRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Create internal HTTP server
	internalServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.InternalPort),
		Handler:      internalRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start public server in a goroutine
	go func() {
		logger.Info("Starting Reserve Service public server",
			zap.String("host", cfg.Server.Host),
			zap.String("port", cfg.Server.Port),
		)

		if err := publicServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start public server", zap.Error(err))
		}
	}()

	// Start internal server in a goroutine
	go func() {
		logger.Info("Starting Reserve Service internal server",
			zap.String("host", cfg.Server.Host),
			zap.String("port", cfg.Server.InternalPort),
		)

		if err := internalServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start internal server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	rootCancel()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.GracefulShutdown)
	defer cancel()

	// Shutdown both servers
	shutdownErr := make(chan error, 2)

	go func() {
		if err := publicServer.Shutdown(ctx); err != nil {
			shutdownErr <- fmt.Errorf("public server shutdown error: %w", err)
		} else {
			shutdownErr <- nil
		}
	}()

	go func() {
		if err := internalServer.Shutdown(ctx); err != nil {
			shutdownErr <- fmt.Errorf("internal server shutdown error: %w", err)
		} else {
			shutdownErr <- nil
		}
	}()

	// Wait for both servers to shut down
	for i := 0; i < 2; i++ {
		if err := <-shutdownErr; err != nil {
			logger.Error("Server forced to shutdown", zap.Error(err))
		}
	}

	if err := shutdownTracing(ctx); err != nil {
		logger.Error("Failed to flush traces", zap.Error(err))
	}

	logger.Info("Servers exited")
}

// newPublicRouter builds the JWT-protected reservation API router.
func newPublicRouter(timeout time.Duration, validator customMiddleware.TokenValidator, reservations *public.ReservationHandler) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Recovery())
	r.Use(customMiddleware.Tracing())
	r.Use(customMiddleware.Logging())
	r.Use(customMiddleware.Metrics())
	r.Use(middleware.Timeout(timeout))

	// CORS for public endpoints
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/reserve/api/v1", func(r chi.Router) {
		// All public endpoints require JWT authentication
		r.Use(customMiddleware.Auth(validator))
		reservations.Routes(r)
	})

	return r
}

// newInternalRouter builds the router for health, readiness and metrics.
func newInternalRouter(timeout time.Duration, health *handlers.HealthHandler) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Recovery())
	r.Use(customMiddleware.Logging())
	r.Use(customMiddleware.Metrics())
	r.Use(middleware.Timeout(timeout))

	r.Get("/health", health.Health)
	r.Get("/ready", health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
