package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mes-platform/production/services/production-service/internal/domain"
	sharedmongo "github.com/mes-platform/production/shared/pkg/mongodb"
)

// Collection names used by the production service
const (
	OrdersCollection             = "production_orders"
	StockCollection              = "stock"
	TrussModelsCollection        = "truss_models"
	ShiftReportsCollection       = "shift_reports"
	FinishedGoodsCollection      = "finished_goods"
	PontasCollection             = "pontas"
	MachineAssignmentsCollection = "machine_assignments"
)

// writeConflictCode is the server code for a transaction write conflict
const writeConflictCode = 112

// UnitOfWork implements domain.UnitOfWork over a MongoDB session transaction
type UnitOfWork struct {
	store sharedmongo.Store
}

// NewUnitOfWork creates a new UnitOfWork
func NewUnitOfWork(store sharedmongo.Store) *UnitOfWork {
	return &UnitOfWork{store: store}
}

// WithTransaction runs fn in a transaction, joining one already carried by ctx
func (u *UnitOfWork) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return classify("transaction", inTransaction(ctx, u.store, fn))
}

// inTransaction starts a session transaction unless ctx already belongs to one
func inTransaction(ctx context.Context, store sharedmongo.Store, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}
	return store.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		return fn(sessCtx)
	})
}

// classify maps driver errors onto the domain error kinds
func classify(operation string, err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range []error{
		domain.ErrValidation,
		domain.ErrNotFound,
		domain.ErrConcurrentModification,
		domain.ErrPersistence,
	} {
		if errors.Is(err, kind) {
			return err
		}
	}

	var serverErr mongo.ServerError
	if sharedmongo.IsDuplicateKey(err) || (errors.As(err, &serverErr) && serverErr.HasErrorCode(writeConflictCode)) {
		return fmt.Errorf("%w: %s: %v", domain.ErrConcurrentModification, operation, err)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrPersistence, operation, err)
}

func conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrConcurrentModification, fmt.Sprintf(format, args...))
}

func ensureIndexes(ctx context.Context, coll sharedmongo.Collection, indexes []mongo.IndexModel) error {
	if err := coll.CreateIndexes(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create %s indexes: %w", coll.Name(), err)
	}
	return nil
}
