package application

import (
	"context"
	"errors"

	sharedErrors "github.com/mes-platform/production/shared/pkg/errors"
	"github.com/mes-platform/production/shared/pkg/mongodb"
)

// RecordService exposes the generic document store to admin tooling.
// Collections owned by the service's aggregates can be read but not written.
type RecordService struct {
	store    RecordStore
	readOnly map[string]bool
}

// NewRecordService creates a new RecordService
func NewRecordService(store RecordStore, readOnly ...string) *RecordService {
	s := &RecordService{store: store, readOnly: make(map[string]bool, len(readOnly))}
	for _, name := range readOnly {
		s.readOnly[name] = true
	}
	return s
}

// Fetch returns every record of a collection
func (s *RecordService) Fetch(ctx context.Context, collection string) ([]mongodb.Record, error) {
	records, err := s.store.Fetch(ctx, collection)
	return nonNil(records), recordError(err, "fetch records")
}

// FetchBy returns the records whose column equals value
func (s *RecordService) FetchBy(ctx context.Context, collection, column, value string) ([]mongodb.Record, error) {
	records, err := s.store.FetchBy(ctx, collection, column, value)
	return nonNil(records), recordError(err, "fetch records")
}

// Insert stores record, generating its id when absent
func (s *RecordService) Insert(ctx context.Context, collection string, record mongodb.Record) (mongodb.Record, error) {
	if err := s.writable(collection, record); err != nil {
		return nil, err
	}
	stored, err := s.store.Insert(ctx, collection, record)
	return stored, recordError(err, "insert record")
}

// Update merges partial into the record with id
func (s *RecordService) Update(ctx context.Context, collection, id string, partial mongodb.Record) (mongodb.Record, error) {
	if err := s.writable(collection, partial); err != nil {
		return nil, err
	}
	updated, err := s.store.Update(ctx, collection, id, partial)
	if mongodb.IsNoDocuments(err) {
		return nil, sharedErrors.ErrNotFoundWithID("record", id)
	}
	return updated, recordError(err, "update record")
}

// UpdateBy merges partial into every record whose column equals value
func (s *RecordService) UpdateBy(ctx context.Context, collection, column, value string, partial mongodb.Record) (int64, error) {
	if err := s.writable(collection, partial); err != nil {
		return 0, err
	}
	n, err := s.store.UpdateBy(ctx, collection, column, value, partial)
	return n, recordError(err, "update records")
}

// Delete removes the record with id
func (s *RecordService) Delete(ctx context.Context, collection, id string) error {
	if err := s.writable(collection, nil); err != nil {
		return err
	}
	err := s.store.Delete(ctx, collection, id)
	if mongodb.IsNoDocuments(err) {
		return sharedErrors.ErrNotFoundWithID("record", id)
	}
	return recordError(err, "delete record")
}

// DeleteBy removes every record whose column equals value
func (s *RecordService) DeleteBy(ctx context.Context, collection, column, value string) (int64, error) {
	if err := s.writable(collection, nil); err != nil {
		return 0, err
	}
	n, err := s.store.DeleteBy(ctx, collection, column, value)
	return n, recordError(err, "delete records")
}

func (s *RecordService) writable(collection string, fields mongodb.Record) error {
	if s.readOnly[collection] {
		return sharedErrors.ErrValidation("collection is managed by the production service and cannot be written directly").
			WithDetail("collection", collection)
	}
	if fields != nil && len(fields) == 0 {
		return sharedErrors.ErrValidation("record has no fields")
	}
	return nil
}

func recordError(err error, operation string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongodb.ErrInvalidIdentifier) {
		return sharedErrors.ErrValidation(err.Error()).Wrap(err)
	}
	return sharedErrors.ErrPersistence(operation).Wrap(err)
}
