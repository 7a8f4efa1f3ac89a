// Package bootstrap assembles the production service from its configuration.
// The API and the worker build the same store, repositories and service and
// differ only in what they put in front of it.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	productionservice "github.com/mes-platform/production/services/production-service"
	"github.com/mes-platform/production/services/production-service/internal/application"
	"github.com/mes-platform/production/services/production-service/internal/domain"
	"github.com/mes-platform/production/services/production-service/internal/infrastructure/catalog"
	mongoRepo "github.com/mes-platform/production/services/production-service/internal/infrastructure/mongodb"
	mqttStatus "github.com/mes-platform/production/services/production-service/internal/infrastructure/mqtt"
	"github.com/mes-platform/production/shared/pkg/cloudevents"
	"github.com/mes-platform/production/shared/pkg/contracts/asyncapi"
	"github.com/mes-platform/production/shared/pkg/idempotency"
	"github.com/mes-platform/production/shared/pkg/logging"
	"github.com/mes-platform/production/shared/pkg/metrics"
	"github.com/mes-platform/production/shared/pkg/mongodb"
	sharedmqtt "github.com/mes-platform/production/shared/pkg/mqtt"
	outboxMongo "github.com/mes-platform/production/shared/pkg/outbox/mongodb"
	"github.com/mes-platform/production/shared/pkg/resilience"
)

// EventSource is the CloudEvents source of everything this service emits
const EventSource = "/production-service"

// Config holds what Build needs beyond the logger and metrics
type Config struct {
	MongoDB          *mongodb.Config
	MQTTBrokerURL    string
	MQTTSite         string
	MQTTClientID     string
	TrussCatalogPath string
	CatalogTTL       time.Duration
	EventValidation  bool
}

// Components is the assembled service graph
type Components struct {
	Store       *mongodb.CircuitBreakerClient
	Outbox      *outboxMongo.OutboxRepository
	Idempotency *idempotency.MongoStore
	Breakers    *resilience.CircuitBreakerRegistry
	Service     *application.ProductionService
	Records     *application.RecordService

	mqtt *sharedmqtt.Publisher
}

// Build connects to the store, prepares the collections and wires the
// production service. A nil scheduler generates shift reports inline.
func Build(ctx context.Context, cfg *Config, scheduler application.ReportScheduler, logger *logging.Logger, m *metrics.Metrics) (*Components, error) {
	breakers := resilience.NewCircuitBreakerRegistry(logger.Logger, m)

	store, err := mongodb.NewProductionClient(ctx, cfg.MongoDB, m, logger, breakers)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	c := &Components{
		Store:       store,
		Outbox:      outboxMongo.NewOutboxRepository(store),
		Idempotency: idempotency.NewMongoStore(store),
		Breakers:    breakers,
	}

	var validator mongoRepo.EventValidator
	if cfg.EventValidation {
		v, err := asyncapi.NewEventValidatorFromBytes(productionservice.AsyncAPISpec)
		if err != nil {
			c.Close(ctx)
			return nil, fmt.Errorf("load event contract: %w", err)
		}
		validator = v
		logger.Info("Event contract validation enabled")
	}
	events := mongoRepo.NewEventWriter(c.Outbox, cloudevents.NewEventFactory(EventSource), validator)

	orders := mongoRepo.NewOrderRepository(store, events)
	stock := mongoRepo.NewStockRepository(store)
	models := mongoRepo.NewTrussModelRepository(store, cfg.CatalogTTL)
	reports := mongoRepo.NewShiftReportRepository(store, events)
	goods := mongoRepo.NewFinishedGoodsRepository(store)
	machines := mongoRepo.NewMachineAssignmentRepository(store)

	for name, ensure := range map[string]func(context.Context) error{
		"outbox":              c.Outbox.EnsureIndexes,
		"idempotency keys":    c.Idempotency.EnsureIndexes,
		"orders":              orders.EnsureIndexes,
		"stock":               stock.EnsureIndexes,
		"truss models":        models.EnsureIndexes,
		"shift reports":       reports.EnsureIndexes,
		"finished goods":      goods.EnsureIndexes,
		"machine assignments": machines.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			c.Close(ctx)
			return nil, fmt.Errorf("ensure %s indexes: %w", name, err)
		}
	}

	if err := seedCatalog(ctx, cfg.TrussCatalogPath, models, logger); err != nil {
		c.Close(ctx)
		return nil, err
	}

	var status application.StatusPublisher
	if cfg.MQTTBrokerURL != "" {
		publisher, err := sharedmqtt.NewPublisher(sharedmqtt.DefaultConfig(cfg.MQTTBrokerURL, cfg.MQTTClientID), logger)
		if err != nil {
			// Status broadcast is best effort; the API stays up without it
			logger.WithError(err).Warn("MQTT broker unavailable, machine status will not be broadcast")
		} else {
			c.mqtt = publisher
			status = mqttStatus.NewStatusPublisher(publisher, cfg.MQTTSite, logger)
			logger.Info("Machine status broadcast enabled", "broker", cfg.MQTTBrokerURL, "site", cfg.MQTTSite)
		}
	}

	c.Service = application.NewProductionService(application.Dependencies{
		Orders:     orders,
		Stock:      stock,
		Models:     models,
		Reports:    reports,
		Goods:      goods,
		Machines:   machines,
		UnitOfWork: mongoRepo.NewUnitOfWork(store),
		Scheduler:  scheduler,
		Status:     status,
		Logger:     logger,
		Metrics:    m,
	})
	c.Records = application.NewRecordService(mongodb.NewDocumentStore(store),
		mongoRepo.OrdersCollection,
		mongoRepo.ShiftReportsCollection,
		mongoRepo.FinishedGoodsCollection,
		mongoRepo.PontasCollection,
		mongoRepo.MachineAssignmentsCollection,
		outboxMongo.DefaultCollectionName,
		idempotency.CollectionName,
	)

	return c, nil
}

// Close releases the broker and store connections
func (c *Components) Close(ctx context.Context) {
	if c.mqtt != nil {
		c.mqtt.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close(ctx)
	}
}

// seedCatalog loads the truss catalog into an empty collection. The embedded
// catalog is used unless path names another file.
func seedCatalog(ctx context.Context, path string, models *mongoRepo.TrussModelRepository, logger *logging.Logger) error {
	var (
		catalogModels []domain.TrussModel
		err           error
	)
	if path != "" {
		catalogModels, err = catalog.Load(path)
	} else {
		catalogModels, err = catalog.Parse(productionservice.TrussCatalog)
	}
	if err != nil {
		return fmt.Errorf("load truss catalog: %w", err)
	}

	seeded, err := models.SeedIfEmpty(ctx, catalogModels)
	if err != nil {
		return fmt.Errorf("seed truss catalog: %w", err)
	}
	if seeded > 0 {
		logger.Info("Truss catalog seeded", "models", seeded)
	}
	return nil
}
