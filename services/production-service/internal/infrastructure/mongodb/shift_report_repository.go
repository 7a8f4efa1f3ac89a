package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mes-platform/production/services/production-service/internal/domain"
	sharedmongo "github.com/mes-platform/production/shared/pkg/mongodb"
)

// ShiftReportRepository implements domain.ShiftReportRepository using MongoDB
type ShiftReportRepository struct {
	store      sharedmongo.Store
	collection sharedmongo.Collection
	events     *EventWriter
}

// NewShiftReportRepository creates a new ShiftReportRepository
func NewShiftReportRepository(store sharedmongo.Store, events *EventWriter) *ShiftReportRepository {
	return &ShiftReportRepository{
		store:      store,
		collection: store.Collection(ShiftReportsCollection),
		events:     events,
	}
}

// EnsureIndexes creates the report indexes. The session key is unique so a
// report is stored at most once however often generation is retried.
func (r *ShiftReportRepository) EnsureIndexes(ctx context.Context) error {
	return ensureIndexes(ctx, r.collection, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "orderId", Value: 1},
				{Key: "operator", Value: 1},
				{Key: "shiftStartTime", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "reportId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "date", Value: -1}},
		},
	})
}

// Insert stores a report and its generated event in one transaction
func (r *ShiftReportRepository) Insert(ctx context.Context, report *domain.ShiftReport) error {
	err := inTransaction(ctx, r.store, func(txCtx context.Context) error {
		if _, err := r.collection.InsertOne(txCtx, report); err != nil {
			if sharedmongo.IsDuplicateKey(err) {
				return domain.ErrShiftReportExists
			}
			return err
		}
		return r.events.Write(txCtx, []domain.DomainEvent{domain.NewShiftReportGeneratedEvent(report)})
	})
	return classify("insert shift report", err)
}

// List retrieves reports, newest first, optionally for one order
func (r *ShiftReportRepository) List(ctx context.Context, orderID string, pagination domain.Pagination) ([]*domain.ShiftReport, error) {
	filter := bson.M{}
	if orderID != "" {
		filter["orderId"] = orderID
	}
	opts := options.Find().
		SetSort(sharedmongo.SortDescending("date")).
		SetSkip(pagination.Skip()).
		SetLimit(pagination.Limit())

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, classify("find shift reports", err)
	}
	defer cursor.Close(ctx)

	var reports []*domain.ShiftReport
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, classify("decode shift reports", err)
	}
	return reports, nil
}
