package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mes-platform/production/services/production-service/internal/bootstrap"
	reportWorkflow "github.com/mes-platform/production/services/production-service/internal/infrastructure/temporal"
	"github.com/mes-platform/production/shared/pkg/logging"
	"github.com/mes-platform/production/shared/pkg/metrics"
	"github.com/mes-platform/production/shared/pkg/mongodb"
	"github.com/mes-platform/production/shared/pkg/temporal"
)

const serviceName = "production-worker"

func main() {
	_ = godotenv.Load()

	logger := logging.New(logging.DefaultConfig(serviceName))
	logger.SetDefault()

	logger.Info("Starting production reporting worker")

	config := loadConfig()
	ctx := context.Background()

	temporalClient, err := temporal.NewClient(ctx, config.Temporal)
	if err != nil {
		logger.WithError(err).Error("Failed to create Temporal client")
		os.Exit(1)
	}
	defer temporalClient.Close()
	logger.Info("Connected to Temporal", "hostPort", config.Temporal.HostPort, "namespace", config.Temporal.Namespace)

	// The worker never schedules reports itself, so no scheduler is passed
	m := metrics.New(metrics.DefaultConfig(serviceName))
	components, err := bootstrap.Build(ctx, config.Bootstrap, nil, logger, m)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize production service")
		os.Exit(1)
	}
	defer components.Close(context.Background())

	w := temporalClient.NewWorker(temporal.DefaultWorkerOptions(temporal.TaskQueues.Reporting))
	reportWorkflow.Register(w, reportWorkflow.NewReportActivities(components.Service, m))
	logger.Info("Registered reporting workflow",
		"workflow", temporal.WorkflowNames.ShiftReport,
		"activity", temporal.ActivityNames.GenerateShiftReport,
	)

	go func() {
		if err := w.Run(nil); err != nil {
			logger.WithError(err).Error("Worker failed")
			os.Exit(1)
		}
	}()
	logger.Info("Worker started", "taskQueue", temporal.TaskQueues.Reporting)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down worker...")

	w.Stop()
	logger.Info("Worker stopped")
}

// Config holds worker configuration
type Config struct {
	Temporal  *temporal.Config
	Bootstrap *bootstrap.Config
}

func loadConfig() *Config {
	return &Config{
		Temporal: &temporal.Config{
			HostPort:  getEnv("TEMPORAL_HOST", "localhost:7233"),
			Namespace: getEnv("TEMPORAL_NAMESPACE", "default"),
			Identity:  serviceName,
		},
		Bootstrap: &bootstrap.Config{
			MongoDB: &mongodb.Config{
				URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017/?replicaSet=rs0"),
				Database:       getEnv("MONGODB_DATABASE", "production_db"),
				ConnectTimeout: 10 * time.Second,
				MaxPoolSize:    20,
				MinPoolSize:    2,
			},
			TrussCatalogPath: getEnv("TRUSS_CATALOG_PATH", ""),
			EventValidation:  getEnv("EVENT_VALIDATION", "false") == "true",
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
