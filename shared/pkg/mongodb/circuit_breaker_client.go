package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/mes-platform/production/shared/pkg/logging"
	"github.com/mes-platform/production/shared/pkg/metrics"
	"github.com/mes-platform/production/shared/pkg/resilience"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CircuitBreakerClient puts a breaker in front of an InstrumentedClient
type CircuitBreakerClient struct {
	client         *InstrumentedClient
	circuitBreaker *resilience.CircuitBreaker
}

// NewCircuitBreakerClient wraps client with the "mongodb" breaker from registry
func NewCircuitBreakerClient(client *InstrumentedClient, registry *resilience.CircuitBreakerRegistry) *CircuitBreakerClient {
	cb := registry.GetWithConfig(&resilience.CircuitBreakerConfig{
		Name:                  "mongodb",
		MaxRequests:           5,
		Interval:              time.Minute,
		Timeout:               30 * time.Second,
		FailureThreshold:      5,
		FailureRatioThreshold: 0.5,
		MinRequestsToTrip:     10,
	})
	return &CircuitBreakerClient{client: client, circuitBreaker: cb}
}

// NewProductionClient connects, instruments and guards a MongoDB client
func NewProductionClient(ctx context.Context, config *Config, m *metrics.Metrics, logger *logging.Logger, registry *resilience.CircuitBreakerRegistry) (*CircuitBreakerClient, error) {
	base, err := NewClient(ctx, config)
	if err != nil {
		return nil, err
	}
	return NewCircuitBreakerClient(NewInstrumentedClient(base, m, logger), registry), nil
}

// isInfrastructureFailure separates store outages from ordinary query outcomes
func isInfrastructureFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, mongo.ErrNoDocuments) || mongo.IsDuplicateKeyError(err) {
		return false
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.HasErrorLabel("TransientTransactionError") {
		return false
	}
	return true
}

// Collection returns a guarded collection
func (c *CircuitBreakerClient) Collection(name string) Collection {
	return &CircuitBreakerCollection{
		collection:     c.client.collection(name),
		circuitBreaker: c.circuitBreaker,
	}
}

// Close disconnects the client
func (c *CircuitBreakerClient) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

// HealthCheck pings through the breaker
func (c *CircuitBreakerClient) HealthCheck(ctx context.Context) error {
	return c.circuitBreaker.Guard(ctx, isInfrastructureFailure, func() error {
		return c.client.HealthCheck(ctx)
	})
}

// WithTransaction runs fn in a transaction through the breaker.
// Errors returned by fn itself (domain conflicts) do not count as failures.
func (c *CircuitBreakerClient) WithTransaction(ctx context.Context, fn func(sessCtx mongo.SessionContext) error) error {
	var fnErr error
	err := c.circuitBreaker.Guard(ctx, isInfrastructureFailure, func() error {
		return c.client.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
			fnErr = fn(sessCtx)
			return fnErr
		})
	})
	if fnErr != nil && errors.Is(err, fnErr) {
		return fnErr
	}
	return err
}

// CircuitBreakerCollection guards every call on an InstrumentedCollection
type CircuitBreakerCollection struct {
	collection     *InstrumentedCollection
	circuitBreaker *resilience.CircuitBreaker
}

func (c *CircuitBreakerCollection) guard(ctx context.Context, fn func() error) error {
	return c.circuitBreaker.Guard(ctx, isInfrastructureFailure, fn)
}

// Name returns the collection name
func (c *CircuitBreakerCollection) Name() string {
	return c.collection.Name()
}

// InsertOne inserts a single document
func (c *CircuitBreakerCollection) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	var result *mongo.InsertOneResult
	err := c.guard(ctx, func() (err error) {
		result, err = c.collection.InsertOne(ctx, document, opts...)
		return err
	})
	return result, err
}

// InsertMany inserts a batch of documents
func (c *CircuitBreakerCollection) InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error) {
	var result *mongo.InsertManyResult
	err := c.guard(ctx, func() (err error) {
		result, err = c.collection.InsertMany(ctx, documents, opts...)
		return err
	})
	return result, err
}

// FindOne finds a single document. A rejected call yields a SingleResult carrying the breaker error.
func (c *CircuitBreakerCollection) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult {
	var result *mongo.SingleResult
	err := c.guard(ctx, func() error {
		result = c.collection.FindOne(ctx, filter, opts...)
		return result.Err()
	})
	if result == nil {
		return mongo.NewSingleResultFromDocument(bson.D{}, err, nil)
	}
	return result
}

// Find returns a cursor over matching documents
func (c *CircuitBreakerCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	var cursor *mongo.Cursor
	err := c.guard(ctx, func() (err error) {
		cursor, err = c.collection.Find(ctx, filter, opts...)
		return err
	})
	return cursor, err
}

// UpdateOne updates a single document
func (c *CircuitBreakerCollection) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	var result *mongo.UpdateResult
	err := c.guard(ctx, func() (err error) {
		result, err = c.collection.UpdateOne(ctx, filter, update, opts...)
		return err
	})
	return result, err
}

// ReplaceOne replaces a single document
func (c *CircuitBreakerCollection) ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error) {
	var result *mongo.UpdateResult
	err := c.guard(ctx, func() (err error) {
		result, err = c.collection.ReplaceOne(ctx, filter, replacement, opts...)
		return err
	})
	return result, err
}

// UpdateMany updates every matching document
func (c *CircuitBreakerCollection) UpdateMany(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	var result *mongo.UpdateResult
	err := c.guard(ctx, func() (err error) {
		result, err = c.collection.UpdateMany(ctx, filter, update, opts...)
		return err
	})
	return result, err
}

// DeleteOne deletes a single document
func (c *CircuitBreakerCollection) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	var result *mongo.DeleteResult
	err := c.guard(ctx, func() (err error) {
		result, err = c.collection.DeleteOne(ctx, filter, opts...)
		return err
	})
	return result, err
}

// DeleteMany deletes every matching document
func (c *CircuitBreakerCollection) DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	var result *mongo.DeleteResult
	err := c.guard(ctx, func() (err error) {
		result, err = c.collection.DeleteMany(ctx, filter, opts...)
		return err
	})
	return result, err
}

// CountDocuments counts matching documents
func (c *CircuitBreakerCollection) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	var count int64
	err := c.guard(ctx, func() (err error) {
		count, err = c.collection.CountDocuments(ctx, filter, opts...)
		return err
	})
	return count, err
}

// FindOneAndUpdate atomically updates and returns one document
func (c *CircuitBreakerCollection) FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}, opts ...*options.FindOneAndUpdateOptions) *mongo.SingleResult {
	var result *mongo.SingleResult
	err := c.guard(ctx, func() error {
		result = c.collection.FindOneAndUpdate(ctx, filter, update, opts...)
		return result.Err()
	})
	if result == nil {
		return mongo.NewSingleResultFromDocument(bson.D{}, err, nil)
	}
	return result
}

// CreateIndexes creates the given indexes
func (c *CircuitBreakerCollection) CreateIndexes(ctx context.Context, models []mongo.IndexModel) error {
	return c.guard(ctx, func() error {
		return c.collection.CreateIndexes(ctx, models)
	})
}
