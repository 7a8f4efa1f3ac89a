package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mes-platform/production/shared/pkg/idempotency"
	sharedmongo "github.com/mes-platform/production/shared/pkg/mongodb"
)

func TestDocumentStore(t *testing.T) {
	ts, cleanup := setupTestStore(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	docs := sharedmongo.NewDocumentStore(ts.store)

	first, err := docs.Insert(ctx, "stock", sharedmongo.Record{"lote": "L1", "peso": 500.0, "status": "available"})
	require.NoError(t, err)
	id, ok := first[sharedmongo.RecordIDField].(string)
	require.True(t, ok)
	require.NotEmpty(t, id)

	_, err = docs.Insert(ctx, "stock", sharedmongo.Record{"id": "L2", "lote": "L2", "peso": 300.0, "status": "available"})
	require.NoError(t, err)

	t.Run("fetch hides the mongo id", func(t *testing.T) {
		all, err := docs.Fetch(ctx, "stock")
		require.NoError(t, err)
		require.Len(t, all, 2)
		for _, r := range all {
			assert.NotContains(t, r, "_id")
		}
	})

	t.Run("update merges and returns the record", func(t *testing.T) {
		updated, err := docs.Update(ctx, "stock", id, sharedmongo.Record{"status": "reserved", "id": "ignored"})
		require.NoError(t, err)
		assert.Equal(t, "reserved", updated["status"])
		assert.Equal(t, "L1", updated["lote"])
		assert.Equal(t, id, updated[sharedmongo.RecordIDField])

		_, err = docs.Update(ctx, "stock", "missing", sharedmongo.Record{"status": "x"})
		assert.True(t, sharedmongo.IsNoDocuments(err))
	})

	t.Run("update and delete by column", func(t *testing.T) {
		n, err := docs.UpdateBy(ctx, "stock", "status", "available", sharedmongo.Record{"location": "Trefila"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		found, err := docs.FetchBy(ctx, "stock", "location", "Trefila")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "L2", found[0]["lote"])

		n, err = docs.DeleteBy(ctx, "stock", "location", "Trefila")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("delete reports missing records", func(t *testing.T) {
		require.NoError(t, docs.Delete(ctx, "stock", id))
		assert.True(t, sharedmongo.IsNoDocuments(docs.Delete(ctx, "stock", id)))
	})

	t.Run("identifiers are checked", func(t *testing.T) {
		_, err := docs.Fetch(ctx, "stock$where")
		assert.ErrorIs(t, err, sharedmongo.ErrInvalidIdentifier)

		_, err = docs.FetchBy(ctx, "stock", "$gt", "1")
		assert.ErrorIs(t, err, sharedmongo.ErrInvalidIdentifier)
	})
}

func TestIdempotencyStore(t *testing.T) {
	ts, cleanup := setupTestStore(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	store := idempotency.NewMongoStore(ts.store)
	require.NoError(t, store.EnsureIndexes(ctx))

	newEntry := func(key string, lockedAt time.Time) *idempotency.Entry {
		return &idempotency.Entry{
			ID:          idempotency.EntryID("production-service", key),
			Key:         key,
			Service:     "production-service",
			Method:      "PUT",
			Path:        "/api/v1/orders/ord-1/packages",
			Fingerprint: "fp-1",
			LockedAt:    lockedAt,
			ExpiresAt:   lockedAt.Add(time.Hour),
		}
	}
	now := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("first use acquires, second sees the running entry", func(t *testing.T) {
		first, acquired, err := store.Acquire(ctx, newEntry("k1", now), time.Minute)
		require.NoError(t, err)
		assert.True(t, acquired)
		assert.NotEmpty(t, first.LockToken)

		stored, acquired, err := store.Acquire(ctx, newEntry("k1", now), time.Minute)
		require.NoError(t, err)
		assert.False(t, acquired)
		assert.False(t, stored.Completed())
		assert.Equal(t, first.LockToken, stored.LockToken)
	})

	t.Run("completed entries carry the response", func(t *testing.T) {
		entry, acquired, err := store.Acquire(ctx, newEntry("k2", now), time.Minute)
		require.NoError(t, err)
		require.True(t, acquired)

		done := now.Add(time.Second)
		entry.StatusCode = 200
		entry.Body = []byte(`{"orderId":"ord-1"}`)
		entry.ContentType = "application/json"
		entry.CompletedAt = &done
		require.NoError(t, store.Complete(ctx, entry))

		stored, acquired, err := store.Acquire(ctx, newEntry("k2", now.Add(time.Hour)), time.Minute)
		require.NoError(t, err)
		assert.False(t, acquired)
		assert.True(t, stored.Completed())
		assert.Equal(t, 200, stored.StatusCode)
		assert.JSONEq(t, `{"orderId":"ord-1"}`, string(stored.Body))
	})

	t.Run("stale locks are taken over once", func(t *testing.T) {
		_, acquired, err := store.Acquire(ctx, newEntry("k3", now.Add(-time.Hour)), time.Minute)
		require.NoError(t, err)
		require.True(t, acquired)

		_, acquired, err = store.Acquire(ctx, newEntry("k3", now), time.Minute)
		require.NoError(t, err)
		assert.True(t, acquired)

		_, acquired, err = store.Acquire(ctx, newEntry("k3", now), time.Minute)
		require.NoError(t, err)
		assert.False(t, acquired)
	})

	t.Run("released keys can be reused", func(t *testing.T) {
		entry, acquired, err := store.Acquire(ctx, newEntry("k4", now), time.Minute)
		require.NoError(t, err)
		require.True(t, acquired)
		require.NoError(t, store.Release(ctx, entry))

		_, acquired, err = store.Acquire(ctx, newEntry("k4", now), time.Minute)
		require.NoError(t, err)
		assert.True(t, acquired)
	})
}
