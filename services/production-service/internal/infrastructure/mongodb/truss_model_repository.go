package mongodb

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mes-platform/production/services/production-service/internal/domain"
	sharedmongo "github.com/mes-platform/production/shared/pkg/mongodb"
)

const catalogCacheKey = "catalog"

// TrussModelRepository implements domain.TrussModelRepository using MongoDB.
// The catalog is small and read on every Treliça completion, so it is kept
// in memory for a few minutes.
type TrussModelRepository struct {
	collection sharedmongo.Collection
	cache      *cache.Cache
}

// NewTrussModelRepository creates a new TrussModelRepository
func NewTrussModelRepository(store sharedmongo.Store, ttl time.Duration) *TrussModelRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &TrussModelRepository{
		collection: store.Collection(TrussModelsCollection),
		cache:      cache.New(ttl, 2*ttl),
	}
}

// EnsureIndexes creates the catalog indexes
func (r *TrussModelRepository) EnsureIndexes(ctx context.Context) error {
	return ensureIndexes(ctx, r.collection, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "model", Value: 1},
				{Key: "size", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
	})
}

// Find retrieves the catalog row for a model and size
func (r *TrussModelRepository) Find(ctx context.Context, model, size string) (*domain.TrussModel, error) {
	catalog, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	return domain.FindTrussModel(catalog, model, size)
}

// List retrieves the whole catalog
func (r *TrussModelRepository) List(ctx context.Context) ([]domain.TrussModel, error) {
	if cached, found := r.cache.Get(catalogCacheKey); found {
		return cached.([]domain.TrussModel), nil
	}

	opts := options.Find().SetSort(bson.D{{Key: "model", Value: 1}, {Key: "size", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, classify("find truss models", err)
	}
	defer cursor.Close(ctx)

	var catalog []domain.TrussModel
	if err := cursor.All(ctx, &catalog); err != nil {
		return nil, classify("decode truss models", err)
	}

	r.cache.SetDefault(catalogCacheKey, catalog)
	return catalog, nil
}

// SeedIfEmpty loads entries when the catalog has none
func (r *TrussModelRepository) SeedIfEmpty(ctx context.Context, models []domain.TrussModel) (int, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, classify("count truss models", err)
	}
	if count > 0 || len(models) == 0 {
		return 0, nil
	}

	docs := make([]interface{}, 0, len(models))
	for _, m := range models {
		docs = append(docs, m)
	}
	if _, err := r.collection.InsertMany(ctx, docs); err != nil {
		return 0, classify("seed truss models", err)
	}

	r.cache.Delete(catalogCacheKey)
	return len(models), nil
}
