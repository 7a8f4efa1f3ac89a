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

// MachineAssignmentRepository implements domain.MachineAssignmentRepository
// with one document per machine, updated by compare-and-set on its version.
type MachineAssignmentRepository struct {
	collection sharedmongo.Collection
}

// NewMachineAssignmentRepository creates a new MachineAssignmentRepository
func NewMachineAssignmentRepository(store sharedmongo.Store) *MachineAssignmentRepository {
	return &MachineAssignmentRepository{collection: store.Collection(MachineAssignmentsCollection)}
}

// EnsureIndexes creates the unique machine index
func (r *MachineAssignmentRepository) EnsureIndexes(ctx context.Context) error {
	return ensureIndexes(ctx, r.collection, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "machine", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
}

// Acquire claims the machine for orderID, taking it over from a previous holder.
// A concurrent claim between the read and the write yields a conflict.
func (r *MachineAssignmentRepository) Acquire(ctx context.Context, machine domain.Machine, orderID string) (*domain.AcquireResult, error) {
	current, err := r.Get(ctx, machine)
	if err != nil {
		return nil, err
	}

	result := &domain.AcquireResult{}
	if !current.IsFree() && !current.HeldBy(orderID) {
		result.Previous = current.OrderID
	}

	filter := bson.M{"machine": machine}
	upsert := current == nil
	if current != nil {
		filter["version"] = current.Version
	}
	update := bson.M{
		"$set": bson.M{"orderId": orderID, "acquiredAt": time.Now().UTC()},
		"$inc": bson.M{"version": 1},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(upsert).
		SetReturnDocument(options.After)

	err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&result.Assignment)
	if err != nil {
		if sharedmongo.IsNoDocuments(err) {
			return nil, conflict("machine %s was claimed concurrently", machine)
		}
		return nil, classify("acquire machine", err)
	}
	return result, nil
}

// Release frees the machine if orderID holds it
func (r *MachineAssignmentRepository) Release(ctx context.Context, machine domain.Machine, orderID string) error {
	filter := bson.M{"machine": machine, "orderId": orderID}
	update := bson.M{
		"$unset": bson.M{"orderId": ""},
		"$inc":   bson.M{"version": 1},
	}
	_, err := r.collection.UpdateOne(ctx, filter, update)
	return classify("release machine", err)
}

// Get retrieves the current claim, nil when the machine was never claimed
func (r *MachineAssignmentRepository) Get(ctx context.Context, machine domain.Machine) (*domain.MachineAssignment, error) {
	var assignment domain.MachineAssignment
	err := r.collection.FindOne(ctx, bson.M{"machine": machine}).Decode(&assignment)
	if err != nil {
		if sharedmongo.IsNoDocuments(err) {
			return nil, nil
		}
		return nil, classify("get machine assignment", err)
	}
	return &assignment, nil
}
