package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	sharedmongo "github.com/mes-platform/production/shared/pkg/mongodb"
)

// CollectionName holds remembered commands
const CollectionName = "idempotency_keys"

// Store persists entries
type Store interface {
	// Acquire inserts entry locked under a fresh token. When the key already
	// exists the stored entry is returned instead, and acquired is true only if
	// a stale lock was taken over.
	Acquire(ctx context.Context, entry *Entry, lockTimeout time.Duration) (stored *Entry, acquired bool, err error)
	// Complete stores the response and clears the lock
	Complete(ctx context.Context, entry *Entry) error
	// Release forgets a running entry so the command can be retried
	Release(ctx context.Context, entry *Entry) error
}

// MongoStore implements Store on a single collection keyed by EntryID
type MongoStore struct {
	collection sharedmongo.Collection
}

// NewMongoStore creates a MongoDB-backed store
func NewMongoStore(store sharedmongo.Store) *MongoStore {
	return &MongoStore{collection: store.Collection(CollectionName)}
}

// EnsureIndexes expires entries at their ExpiresAt
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	return s.collection.CreateIndexes(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("idx_ttl"),
		},
	})
}

// Acquire implements Store
func (s *MongoStore) Acquire(ctx context.Context, entry *Entry, lockTimeout time.Duration) (*Entry, bool, error) {
	entry.LockToken = uuid.NewString()

	_, err := s.collection.InsertOne(ctx, entry)
	if err == nil {
		return entry, true, nil
	}
	if !sharedmongo.IsDuplicateKey(err) {
		return nil, false, fmt.Errorf("insert idempotency key: %w", err)
	}

	var stored Entry
	if err := s.collection.FindOne(ctx, bson.M{"_id": entry.ID}).Decode(&stored); err != nil {
		if sharedmongo.IsNoDocuments(err) {
			// expired between the insert and the read
			return s.Acquire(ctx, entry, lockTimeout)
		}
		return nil, false, fmt.Errorf("load idempotency key: %w", err)
	}

	if !stored.Stale(entry.LockedAt, lockTimeout) {
		return &stored, false, nil
	}

	// Take over a lock whose holder died, guarded by the old token
	result, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": stored.ID, "lockToken": stored.LockToken, "completedAt": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{
			"lockToken":   entry.LockToken,
			"lockedAt":    entry.LockedAt,
			"fingerprint": entry.Fingerprint,
			"expiresAt":   entry.ExpiresAt,
		}},
	)
	if err != nil {
		return nil, false, fmt.Errorf("take over idempotency key: %w", err)
	}
	if result.ModifiedCount == 0 {
		return &stored, false, nil
	}
	return entry, true, nil
}

// Complete implements Store
func (s *MongoStore) Complete(ctx context.Context, entry *Entry) error {
	_, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": entry.ID, "lockToken": entry.LockToken},
		bson.M{
			"$set": bson.M{
				"statusCode":  entry.StatusCode,
				"body":        entry.Body,
				"contentType": entry.ContentType,
				"completedAt": entry.CompletedAt,
			},
			"$unset": bson.M{"lockToken": ""},
		},
	)
	if err != nil {
		return fmt.Errorf("store idempotent response: %w", err)
	}
	return nil
}

// Release implements Store
func (s *MongoStore) Release(ctx context.Context, entry *Entry) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": entry.ID, "lockToken": entry.LockToken}); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}
