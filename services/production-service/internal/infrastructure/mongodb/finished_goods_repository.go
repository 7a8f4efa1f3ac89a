package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mes-platform/production/services/production-service/internal/domain"
	sharedmongo "github.com/mes-platform/production/shared/pkg/mongodb"
)

// FinishedGoodsRepository implements domain.FinishedGoodsRepository using MongoDB
type FinishedGoodsRepository struct {
	goods  sharedmongo.Collection
	pontas sharedmongo.Collection
}

// NewFinishedGoodsRepository creates a new FinishedGoodsRepository
func NewFinishedGoodsRepository(store sharedmongo.Store) *FinishedGoodsRepository {
	return &FinishedGoodsRepository{
		goods:  store.Collection(FinishedGoodsCollection),
		pontas: store.Collection(PontasCollection),
	}
}

// EnsureIndexes creates the indexes of both stock collections
func (r *FinishedGoodsRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "itemId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "orderId", Value: 1}},
		},
	}
	if err := ensureIndexes(ctx, r.goods, indexes); err != nil {
		return err
	}
	return ensureIndexes(ctx, r.pontas, indexes)
}

// InsertFinishedGoods books truss output
func (r *FinishedGoodsRepository) InsertFinishedGoods(ctx context.Context, goods []domain.FinishedGood) error {
	docs := make([]interface{}, 0, len(goods))
	for _, g := range goods {
		docs = append(docs, g)
	}
	return r.insert(ctx, r.goods, docs, "insert finished goods")
}

// InsertPontas books leftover pieces
func (r *FinishedGoodsRepository) InsertPontas(ctx context.Context, pontas []domain.PontaItem) error {
	docs := make([]interface{}, 0, len(pontas))
	for _, p := range pontas {
		docs = append(docs, p)
	}
	return r.insert(ctx, r.pontas, docs, "insert pontas")
}

// FindByOrder retrieves the output booked for an order
func (r *FinishedGoodsRepository) FindByOrder(ctx context.Context, orderID string) ([]domain.FinishedGood, []domain.PontaItem, error) {
	filter := bson.M{"orderId": orderID}

	var goods []domain.FinishedGood
	if err := findAll(ctx, r.goods, filter, &goods); err != nil {
		return nil, nil, classify("find finished goods", err)
	}
	var pontas []domain.PontaItem
	if err := findAll(ctx, r.pontas, filter, &pontas); err != nil {
		return nil, nil, classify("find pontas", err)
	}
	return goods, pontas, nil
}

func (r *FinishedGoodsRepository) insert(ctx context.Context, coll sharedmongo.Collection, docs []interface{}, operation string) error {
	if len(docs) == 0 {
		return nil
	}
	_, err := coll.InsertMany(ctx, docs)
	return classify(operation, err)
}

func findAll(ctx context.Context, coll sharedmongo.Collection, filter bson.M, results interface{}) error {
	cursor, err := coll.Find(ctx, filter)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	return cursor.All(ctx, results)
}
