package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mes-platform/production/services/production-service/internal/domain"
	sharedmongo "github.com/mes-platform/production/shared/pkg/mongodb"
)

// StockRepository implements domain.StockRepository using MongoDB
type StockRepository struct {
	collection sharedmongo.Collection
}

// NewStockRepository creates a new StockRepository
func NewStockRepository(store sharedmongo.Store) *StockRepository {
	return &StockRepository{collection: store.Collection(StockCollection)}
}

// EnsureIndexes creates the stock indexes
func (r *StockRepository) EnsureIndexes(ctx context.Context) error {
	return ensureIndexes(ctx, r.collection, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "stockId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "productionOrderIds", Value: 1}},
		},
	})
}

// FindByIDs retrieves the given lots; unknown ids are skipped
func (r *StockRepository) FindByIDs(ctx context.Context, stockIDs []string) ([]*domain.StockItem, error) {
	if len(stockIDs) == 0 {
		return nil, nil
	}

	cursor, err := r.collection.Find(ctx, bson.M{"stockId": bson.M{"$in": stockIDs}})
	if err != nil {
		return nil, classify("find stock", err)
	}
	defer cursor.Close(ctx)

	var items []*domain.StockItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, classify("decode stock", err)
	}
	return items, nil
}

// Save updates a lot if its stored version still matches. Lots registered
// by the warehouse without a version count as version 0. Fields this service
// does not model are left untouched.
func (r *StockRepository) Save(ctx context.Context, item *domain.StockItem) error {
	expected := item.Version
	item.Version = expected + 1

	filter := bson.M{"stockId": item.StockID, "version": expected}
	if expected == 0 {
		filter = bson.M{
			"stockId": item.StockID,
			"$or": bson.A{
				bson.M{"version": 0},
				bson.M{"version": bson.M{"$exists": false}},
			},
		}
	}

	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": item})
	if err != nil {
		item.Version = expected
		return classify("save stock", err)
	}
	if result.MatchedCount == 0 {
		item.Version = expected
		return conflict("stock %s changed since version %d", item.StockID, expected)
	}
	return nil
}
