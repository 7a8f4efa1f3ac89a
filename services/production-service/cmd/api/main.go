package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	productionservice "github.com/mes-platform/production/services/production-service"
	"github.com/mes-platform/production/services/production-service/internal/application"
	"github.com/mes-platform/production/services/production-service/internal/bootstrap"
	reportWorkflow "github.com/mes-platform/production/services/production-service/internal/infrastructure/temporal"
	"github.com/mes-platform/production/shared/pkg/contracts/openapi"
	"github.com/mes-platform/production/shared/pkg/idempotency"
	"github.com/mes-platform/production/shared/pkg/kafka"
	"github.com/mes-platform/production/shared/pkg/logging"
	"github.com/mes-platform/production/shared/pkg/metrics"
	"github.com/mes-platform/production/shared/pkg/middleware"
	"github.com/mes-platform/production/shared/pkg/mongodb"
	"github.com/mes-platform/production/shared/pkg/outbox"
	"github.com/mes-platform/production/shared/pkg/temporal"
	"github.com/mes-platform/production/shared/pkg/tracing"
)

const serviceName = "production-service"

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	logger := logging.New(logging.DefaultConfig(serviceName))
	logger.SetDefault()

	logger.Info("Starting production-service API")

	config := loadConfig()
	ctx := context.Background()

	// Initialize OpenTelemetry tracing
	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Environment = config.Environment
	tracingConfig.Enabled = getEnv("TRACING_ENABLED", "true") == "true"

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", tracingConfig.OTLPEndpoint)
	}

	m := metrics.New(metrics.DefaultConfig(serviceName))

	// Shift reports go through Temporal when it is enabled, inline otherwise
	var scheduler application.ReportScheduler
	if config.TemporalEnabled {
		temporalClient, err := temporal.NewClient(ctx, config.Temporal)
		if err != nil {
			logger.WithError(err).Error("Failed to connect to Temporal")
			os.Exit(1)
		}
		defer temporalClient.Close()
		scheduler = reportWorkflow.NewReportScheduler(temporalClient, logger, m)
		logger.Info("Connected to Temporal", "namespace", config.Temporal.Namespace)
	}

	components, err := bootstrap.Build(ctx, config.Bootstrap, scheduler, logger, m)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize production service")
		os.Exit(1)
	}
	defer components.Close(context.Background())
	logger.Info("Connected to MongoDB", "database", config.Bootstrap.MongoDB.Database)

	kafkaProducer := kafka.NewProductionProducer(config.Kafka, m, logger, components.Breakers)
	defer kafkaProducer.Close()
	logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)

	outboxPublisher := outbox.NewPublisher(components.Outbox, kafkaProducer, logger, m, &outbox.PublisherConfig{
		PollInterval: time.Second,
		BatchSize:    100,
	})
	if err := outboxPublisher.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start outbox publisher")
		os.Exit(1)
	}
	defer outboxPublisher.Stop()
	logger.Info("Outbox publisher started")

	router := gin.New()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     config.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Request-ID", "X-Correlation-ID", middleware.HeaderOperator, idempotency.HeaderIdempotencyKey},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "X-Correlation-ID", idempotency.HeaderReplayed},
		AllowCredentials: true,
	}))
	middleware.Setup(router, middleware.DefaultConfig(serviceName, logger.Logger))
	router.Use(middleware.MetricsMiddleware(m))
	router.Use(middleware.SimpleTracingMiddleware(serviceName))

	if config.OpenAPIValidation {
		validator, err := openapi.NewValidatorFromBytes(productionservice.OpenAPISpec)
		if err != nil {
			logger.WithError(err).Error("Failed to load OpenAPI contract")
			os.Exit(1)
		}
		router.Use(middleware.OpenAPIValidation(validator))
		logger.Info("OpenAPI request validation enabled")
	}

	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		readyCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return components.Store.HealthCheck(readyCtx)
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	v1 := router.Group("/api/v1")
	v1.Use(idempotency.Middleware(idempotency.DefaultConfig(serviceName, components.Idempotency, logger.Logger, m)))
	registerRoutes(v1, components.Service, components.Records, logger)

	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server error")
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped")
}

// Config holds application configuration
type Config struct {
	ServerAddr        string
	Environment       string
	Bootstrap         *bootstrap.Config
	Kafka             *kafka.Config
	Temporal          *temporal.Config
	TemporalEnabled   bool
	OpenAPIValidation bool
	CORSOrigins       []string
}

func loadConfig() *Config {
	kafkaConfig := kafka.DefaultConfig()
	kafkaConfig.Brokers = kafka.ParseBrokers(getEnv("KAFKA_BROKERS", "localhost:9092"))
	kafkaConfig.ClientID = serviceName

	return &Config{
		ServerAddr:  getEnv("SERVER_ADDR", ":8010"),
		Environment: getEnv("ENVIRONMENT", "development"),
		Bootstrap: &bootstrap.Config{
			MongoDB: &mongodb.Config{
				URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017/?replicaSet=rs0"),
				Database:       getEnv("MONGODB_DATABASE", "production_db"),
				ConnectTimeout: 10 * time.Second,
				MaxPoolSize:    100,
				MinPoolSize:    10,
			},
			MQTTBrokerURL:    getEnv("MQTT_BROKER_URL", ""),
			MQTTSite:         getEnv("MQTT_SITE", "plant1"),
			MQTTClientID:     serviceName + "-api",
			TrussCatalogPath: getEnv("TRUSS_CATALOG_PATH", ""),
			CatalogTTL:       5 * time.Minute,
			EventValidation:  getEnv("EVENT_VALIDATION", "false") == "true",
		},
		Kafka: kafkaConfig,
		Temporal: &temporal.Config{
			HostPort:  getEnv("TEMPORAL_HOST", "localhost:7233"),
			Namespace: getEnv("TEMPORAL_NAMESPACE", "default"),
			Identity:  serviceName,
		},
		TemporalEnabled:   getEnv("TEMPORAL_ENABLED", "false") == "true",
		OpenAPIValidation: getEnv("OPENAPI_VALIDATION", "false") == "true",
		CORSOrigins:       strings.Split(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173"), ","),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
