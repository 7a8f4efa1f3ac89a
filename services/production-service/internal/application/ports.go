package application

import (
	"context"

	"github.com/mes-platform/production/services/production-service/internal/domain"
	"github.com/mes-platform/production/shared/pkg/mongodb"
)

// ReportScheduler hands a closed shift over for report generation
type ReportScheduler interface {
	Schedule(ctx context.Context, req ShiftReportRequest) error
}

// ShiftReportGenerator builds and stores the report for one closed shift
type ShiftReportGenerator interface {
	GenerateShiftReport(ctx context.Context, req ShiftReportRequest) (*domain.ShiftReport, error)
}

// StatusPublisher broadcasts derived machine status to the shop floor
type StatusPublisher interface {
	PublishStatus(ctx context.Context, status domain.MachineStatus) error
}

// RecordStore is the generic document store
type RecordStore interface {
	Fetch(ctx context.Context, collection string) ([]mongodb.Record, error)
	FetchBy(ctx context.Context, collection, column string, value any) ([]mongodb.Record, error)
	Insert(ctx context.Context, collection string, record mongodb.Record) (mongodb.Record, error)
	Update(ctx context.Context, collection, id string, partial mongodb.Record) (mongodb.Record, error)
	UpdateBy(ctx context.Context, collection, column string, value any, partial mongodb.Record) (int64, error)
	Delete(ctx context.Context, collection, id string) error
	DeleteBy(ctx context.Context, collection, column string, value any) (int64, error)
}

// InlineReportScheduler generates reports synchronously in the calling process
type InlineReportScheduler struct {
	generator ShiftReportGenerator
}

// NewInlineReportScheduler creates a scheduler that calls generator directly
func NewInlineReportScheduler(generator ShiftReportGenerator) *InlineReportScheduler {
	return &InlineReportScheduler{generator: generator}
}

// Schedule generates the report before returning
func (s *InlineReportScheduler) Schedule(ctx context.Context, req ShiftReportRequest) error {
	_, err := s.generator.GenerateShiftReport(ctx, req)
	return err
}
