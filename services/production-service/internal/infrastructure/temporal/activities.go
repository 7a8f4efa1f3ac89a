package temporal

import (
	"context"
	"net/http"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/mes-platform/production/services/production-service/internal/application"
	sharedErrors "github.com/mes-platform/production/shared/pkg/errors"
	"github.com/mes-platform/production/shared/pkg/metrics"
	sharedtemporal "github.com/mes-platform/production/shared/pkg/temporal"
)

// ReportRejectedError marks generation failures that retrying cannot fix
const ReportRejectedError = "ShiftReportRejected"

// ReportActivities runs report generation on the worker
type ReportActivities struct {
	generator application.ShiftReportGenerator
	metrics   *metrics.Metrics
}

// NewReportActivities creates a new ReportActivities
func NewReportActivities(generator application.ShiftReportGenerator, m *metrics.Metrics) *ReportActivities {
	return &ReportActivities{generator: generator, metrics: m}
}

// GenerateShiftReport builds and stores the report for one closed shift
func (a *ReportActivities) GenerateShiftReport(ctx context.Context, req application.ShiftReportRequest) (*ShiftReportResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Generating shift report", "orderId", req.OrderID, "operator", req.Operator)

	start := time.Now()
	report, err := a.generator.GenerateShiftReport(ctx, req)
	a.metrics.RecordActivityCompleted(sharedtemporal.ActivityNames.GenerateShiftReport, err == nil, time.Since(start))
	if err != nil {
		if appErr, ok := sharedErrors.AsAppError(err); ok && appErr.HTTPStatus < http.StatusInternalServerError && appErr.HTTPStatus != http.StatusConflict {
			logger.Warn("Shift report rejected", "orderId", req.OrderID, "error", err)
			return nil, temporal.NewNonRetryableApplicationError(appErr.Message, ReportRejectedError, err)
		}
		logger.Error("Failed to generate shift report", "orderId", req.OrderID, "error", err)
		return nil, err
	}

	return &ShiftReportResult{
		ReportID:            report.ReportID,
		OrderID:             report.OrderID,
		Operator:            report.Operator,
		TotalProducedWeight: report.TotalProducedWeight,
		Estimated:           report.Estimated,
	}, nil
}
