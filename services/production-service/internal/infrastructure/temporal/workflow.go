package temporal

import (
	"fmt"

	"go.temporal.io/sdk/workflow"

	"github.com/mes-platform/production/services/production-service/internal/application"
	sharedtemporal "github.com/mes-platform/production/shared/pkg/temporal"
)

// ShiftReportResult summarizes a generated shift report
type ShiftReportResult struct {
	ReportID            string  `json:"reportId"`
	OrderID             string  `json:"orderId"`
	Operator            string  `json:"operator"`
	TotalProducedWeight float64 `json:"totalProducedWeight"`
	Estimated           bool    `json:"estimated"`
}

// ShiftReportWorkflow generates the report of one closed operator shift.
// The activity is idempotent, so retries never store a second report.
func ShiftReportWorkflow(ctx workflow.Context, req application.ShiftReportRequest) (*ShiftReportResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting shift report workflow", "orderId", req.OrderID, "operator", req.Operator)

	ctx = workflow.WithActivityOptions(ctx, reportActivityOptions().WorkflowOptions())

	var result ShiftReportResult
	if err := workflow.ExecuteActivity(ctx, sharedtemporal.ActivityNames.GenerateShiftReport, req).Get(ctx, &result); err != nil {
		logger.Error("Shift report generation failed", "orderId", req.OrderID, "error", err)
		return nil, fmt.Errorf("shift report for order %s: %w", req.OrderID, err)
	}

	logger.Info("Shift report stored", "orderId", req.OrderID, "reportId", result.ReportID)
	return &result, nil
}

func reportActivityOptions() sharedtemporal.ActivityOptions {
	opts := sharedtemporal.DefaultActivityOptions()
	opts.RetryPolicy.NonRetryableErrorTypes = []string{ReportRejectedError}
	return opts
}
