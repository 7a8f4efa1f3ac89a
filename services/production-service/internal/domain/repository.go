package domain

import (
	"context"
)

// OrderRepository defines the interface for production order persistence
type OrderRepository interface {
	// Save persists the order. A new order (Version 0) is inserted; an existing
	// one is replaced only if its stored version still matches, otherwise
	// ErrConcurrentModification. On success Version is incremented.
	Save(ctx context.Context, order *ProductionOrder) error

	// FindByID retrieves an order by its OrderID
	FindByID(ctx context.Context, orderID string) (*ProductionOrder, error)

	// FindActiveByMachine retrieves the in_progress orders on a machine
	FindActiveByMachine(ctx context.Context, machine Machine) ([]*ProductionOrder, error)

	// FindActiveIDs returns which of the given ids are pending or in_progress
	FindActiveIDs(ctx context.Context, orderIDs []string) (map[string]bool, error)

	// List retrieves orders matching the filter
	List(ctx context.Context, filter OrderFilter, pagination Pagination) ([]*ProductionOrder, error)

	// Count returns the total number of orders matching the filter
	Count(ctx context.Context, filter OrderFilter) (int64, error)

	// Delete removes an order if its stored version still matches,
	// recording its pending domain events
	Delete(ctx context.Context, order *ProductionOrder) error
}

// StockRepository defines the interface for the raw-material lots this service touches
type StockRepository interface {
	// FindByIDs retrieves the given lots; unknown ids are skipped
	FindByIDs(ctx context.Context, stockIDs []string) ([]*StockItem, error)

	// Save replaces a lot if its stored version still matches
	Save(ctx context.Context, item *StockItem) error
}

// TrussModelRepository defines the interface for the truss catalog
type TrussModelRepository interface {
	// Find retrieves the catalog row for a model and size
	Find(ctx context.Context, model, size string) (*TrussModel, error)

	// List retrieves the whole catalog
	List(ctx context.Context) ([]TrussModel, error)

	// SeedIfEmpty loads entries when the catalog has none
	SeedIfEmpty(ctx context.Context, models []TrussModel) (int, error)
}

// ShiftReportRepository defines the interface for shift report persistence
type ShiftReportRepository interface {
	// Insert stores a report once. A report for the same order, operator and
	// shift start returns ErrShiftReportExists.
	Insert(ctx context.Context, report *ShiftReport) error

	// List retrieves reports, newest first, optionally for one order
	List(ctx context.Context, orderID string, pagination Pagination) ([]*ShiftReport, error)
}

// FinishedGoodsRepository defines the interface for truss and ponta output stock
type FinishedGoodsRepository interface {
	InsertFinishedGoods(ctx context.Context, goods []FinishedGood) error
	InsertPontas(ctx context.Context, pontas []PontaItem) error
	FindByOrder(ctx context.Context, orderID string) ([]FinishedGood, []PontaItem, error)
}

// MachineAssignmentRepository holds the one-order-per-machine claim
type MachineAssignmentRepository interface {
	// Acquire claims the machine for orderID. When another order holds it the
	// claim is taken over and that order is returned as Previous, so the caller
	// can force-complete it.
	Acquire(ctx context.Context, machine Machine, orderID string) (*AcquireResult, error)

	// Release frees the machine if orderID holds it
	Release(ctx context.Context, machine Machine, orderID string) error

	// Get retrieves the current claim, nil when the machine was never claimed
	Get(ctx context.Context, machine Machine) (*MachineAssignment, error)
}

// UnitOfWork runs fn atomically. Repositories used inside fn must be
// called with the context fn receives.
type UnitOfWork interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// OrderFilter narrows order listings
type OrderFilter struct {
	Machine Machine
	Status  Status
}

// Pagination represents pagination options
type Pagination struct {
	Page     int64
	PageSize int64
}

// DefaultPagination returns default pagination options
func DefaultPagination() Pagination {
	return Pagination{
		Page:     1,
		PageSize: 20,
	}
}

// Skip returns the number of documents to skip
func (p Pagination) Skip() int64 {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// Limit returns the maximum number of documents to return
func (p Pagination) Limit() int64 {
	if p.PageSize <= 0 {
		return 20
	}
	return p.PageSize
}
