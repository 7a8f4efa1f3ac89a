package temporal

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/mes-platform/production/services/production-service/internal/application"
	"github.com/mes-platform/production/shared/pkg/logging"
	"github.com/mes-platform/production/shared/pkg/metrics"
	sharedtemporal "github.com/mes-platform/production/shared/pkg/temporal"
)

// WorkflowStarter starts workflows whose id is never reused
type WorkflowStarter interface {
	StartUniqueWorkflow(ctx context.Context, workflowID, taskQueue, workflowName string, args ...interface{}) (client.WorkflowRun, error)
}

// ReportScheduler implements application.ReportScheduler with a Temporal workflow per shift
type ReportScheduler struct {
	starter WorkflowStarter
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewReportScheduler creates a new ReportScheduler
func NewReportScheduler(starter WorkflowStarter, logger *logging.Logger, m *metrics.Metrics) *ReportScheduler {
	return &ReportScheduler{starter: starter, logger: logger, metrics: m}
}

// ShiftReportWorkflowID identifies the report workflow of one shift
func ShiftReportWorkflowID(req application.ShiftReportRequest) string {
	return fmt.Sprintf("shift-report-%s-%s-%d", req.OrderID, req.Operator, req.ShiftStart.UnixMilli())
}

// Schedule starts the report workflow. A shift already scheduled is not an error.
func (s *ReportScheduler) Schedule(ctx context.Context, req application.ShiftReportRequest) error {
	workflowID := ShiftReportWorkflowID(req)

	run, err := s.starter.StartUniqueWorkflow(ctx, workflowID,
		sharedtemporal.TaskQueues.Reporting, sharedtemporal.WorkflowNames.ShiftReport, req)
	if err != nil {
		var started *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &started) {
			s.logger.WithContext(ctx).Debug("Shift report already scheduled", "workflowId", workflowID)
			return nil
		}
		return fmt.Errorf("failed to start shift report workflow: %w", err)
	}

	s.metrics.RecordWorkflowStarted(sharedtemporal.WorkflowNames.ShiftReport)
	s.logger.WorkflowStart(ctx, sharedtemporal.WorkflowNames.ShiftReport, workflowID)
	s.logger.WithContext(ctx).Debug("Shift report scheduled", "orderId", req.OrderID, "runId", run.GetRunID())
	return nil
}
