package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mes-platform/production/services/production-service/internal/domain"
	sharedmongo "github.com/mes-platform/production/shared/pkg/mongodb"
)

// OrderRepository implements domain.OrderRepository using MongoDB
type OrderRepository struct {
	store      sharedmongo.Store
	collection sharedmongo.Collection
	events     *EventWriter
}

// NewOrderRepository creates a new OrderRepository
func NewOrderRepository(store sharedmongo.Store, events *EventWriter) *OrderRepository {
	return &OrderRepository{
		store:      store,
		collection: store.Collection(OrdersCollection),
		events:     events,
	}
}

// EnsureIndexes creates the order indexes
func (r *OrderRepository) EnsureIndexes(ctx context.Context) error {
	return ensureIndexes(ctx, r.collection, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "orderId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "machine", Value: 1},
				{Key: "status", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "createdAt", Value: -1},
			},
		},
	})
}

// Save persists an order with its domain events in a single transaction.
// The write only applies while the stored version matches the one loaded.
func (r *OrderRepository) Save(ctx context.Context, order *domain.ProductionOrder) error {
	expected := order.Version
	order.UpdatedAt = time.Now().UTC()

	err := inTransaction(ctx, r.store, func(txCtx context.Context) error {
		order.Version = expected + 1

		if expected == 0 {
			if _, err := r.collection.InsertOne(txCtx, order); err != nil {
				if sharedmongo.IsDuplicateKey(err) {
					return conflict("order %s already exists", order.OrderID)
				}
				return err
			}
		} else {
			filter := bson.M{"orderId": order.OrderID, "version": expected}
			result, err := r.collection.ReplaceOne(txCtx, filter, order)
			if err != nil {
				return err
			}
			if result.MatchedCount == 0 {
				return conflict("order %s changed since version %d", order.OrderID, expected)
			}
		}

		return r.events.Write(txCtx, order.DomainEvents())
	})
	if err != nil {
		order.Version = expected
		return classify("save order", err)
	}

	order.ClearDomainEvents()
	return nil
}

// FindByID retrieves an order by its OrderID
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (*domain.ProductionOrder, error) {
	var order domain.ProductionOrder
	err := r.collection.FindOne(ctx, bson.M{"orderId": orderID}).Decode(&order)
	if err != nil {
		if sharedmongo.IsNoDocuments(err) {
			return nil, nil
		}
		return nil, classify("find order", err)
	}
	return &order, nil
}

// FindActiveByMachine retrieves the in_progress orders on a machine
func (r *OrderRepository) FindActiveByMachine(ctx context.Context, machine domain.Machine) ([]*domain.ProductionOrder, error) {
	filter := bson.M{"machine": machine, "status": domain.StatusInProgress}
	return r.findMany(ctx, filter, options.Find().SetSort(sharedmongo.SortDescending("startTime")))
}

// FindActiveIDs returns which of the given ids are pending or in_progress
func (r *OrderRepository) FindActiveIDs(ctx context.Context, orderIDs []string) (map[string]bool, error) {
	active := make(map[string]bool)
	if len(orderIDs) == 0 {
		return active, nil
	}

	filter := bson.M{
		"orderId": bson.M{"$in": orderIDs},
		"status":  bson.M{"$in": []domain.Status{domain.StatusPending, domain.StatusInProgress}},
	}
	opts := options.Find().SetProjection(bson.M{"orderId": 1})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, classify("find active orders", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		OrderID string `bson:"orderId"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, classify("decode active orders", err)
	}
	for _, row := range rows {
		active[row.OrderID] = true
	}
	return active, nil
}

// List retrieves orders matching the filter, newest first
func (r *OrderRepository) List(ctx context.Context, filter domain.OrderFilter, pagination domain.Pagination) ([]*domain.ProductionOrder, error) {
	opts := options.Find().
		SetSort(sharedmongo.SortDescending("createdAt")).
		SetSkip(pagination.Skip()).
		SetLimit(pagination.Limit())
	return r.findMany(ctx, orderFilter(filter), opts)
}

// Count returns the total number of orders matching the filter
func (r *OrderRepository) Count(ctx context.Context, filter domain.OrderFilter) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, orderFilter(filter))
	if err != nil {
		return 0, classify("count orders", err)
	}
	return count, nil
}

// Delete removes an order and records its pending events in one transaction
func (r *OrderRepository) Delete(ctx context.Context, order *domain.ProductionOrder) error {
	err := inTransaction(ctx, r.store, func(txCtx context.Context) error {
		result, err := r.collection.DeleteOne(txCtx, bson.M{"orderId": order.OrderID, "version": order.Version})
		if err != nil {
			return err
		}
		if result.DeletedCount == 0 {
			return conflict("order %s changed since version %d", order.OrderID, order.Version)
		}
		return r.events.Write(txCtx, order.DomainEvents())
	})
	if err != nil {
		return classify("delete order", err)
	}

	order.ClearDomainEvents()
	return nil
}

func orderFilter(f domain.OrderFilter) bson.M {
	filter := bson.M{}
	if f.Machine != "" {
		filter["machine"] = f.Machine
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	return filter
}

func (r *OrderRepository) findMany(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.ProductionOrder, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, classify("find orders", err)
	}
	defer cursor.Close(ctx)

	var orders []*domain.ProductionOrder
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, classify("decode orders", err)
	}
	return orders, nil
}
