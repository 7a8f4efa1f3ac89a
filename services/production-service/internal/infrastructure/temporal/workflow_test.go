package temporal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/mocks"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/mes-platform/production/services/production-service/internal/application"
	"github.com/mes-platform/production/services/production-service/internal/domain"
	sharedErrors "github.com/mes-platform/production/shared/pkg/errors"
	"github.com/mes-platform/production/shared/pkg/logging"
	sharedtemporal "github.com/mes-platform/production/shared/pkg/temporal"
)

func shiftRequest() application.ShiftReportRequest {
	return application.ShiftReportRequest{
		OrderID:    "ord-1",
		Operator:   "Ana",
		ShiftStart: time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC),
	}
}

type stubGenerator struct {
	report *domain.ShiftReport
	err    error
	calls  int
}

func (g *stubGenerator) GenerateShiftReport(ctx context.Context, req application.ShiftReportRequest) (*domain.ShiftReport, error) {
	g.calls++
	return g.report, g.err
}

type stubStarter struct {
	err         error
	workflowIDs []string
}

func (s *stubStarter) StartUniqueWorkflow(ctx context.Context, workflowID, taskQueue, workflowName string, args ...interface{}) (client.WorkflowRun, error) {
	s.workflowIDs = append(s.workflowIDs, workflowID)
	if s.err != nil {
		return nil, s.err
	}
	run := &mocks.WorkflowRun{}
	run.On("GetRunID").Return("run-1")
	return run, nil
}

func TestShiftReportWorkflow(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()
	Register(env, NewReportActivities(&stubGenerator{}, nil))

	expected := &ShiftReportResult{ReportID: "rep-1", OrderID: "ord-1", Operator: "Ana", TotalProducedWeight: 820}
	env.OnActivity(sharedtemporal.ActivityNames.GenerateShiftReport, mock.Anything, mock.Anything).Return(expected, nil)

	env.ExecuteWorkflow(ShiftReportWorkflow, shiftRequest())

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result ShiftReportResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, "rep-1", result.ReportID)
	assert.Equal(t, 820.0, result.TotalProducedWeight)
}

func TestShiftReportWorkflow_RejectedReportIsNotRetried(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()
	Register(env, NewReportActivities(&stubGenerator{}, nil))

	attempts := 0
	env.OnActivity(sharedtemporal.ActivityNames.GenerateShiftReport, mock.Anything, mock.Anything).
		Return(func(ctx context.Context, req application.ShiftReportRequest) (*ShiftReportResult, error) {
			attempts++
			return nil, temporal.NewNonRetryableApplicationError("no shift", ReportRejectedError, nil)
		})

	env.ExecuteWorkflow(ShiftReportWorkflow, shiftRequest())

	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
	assert.Equal(t, 1, attempts)
}

func TestReportActivities_GenerateShiftReport(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}

	t.Run("returns the stored report", func(t *testing.T) {
		env := testSuite.NewTestActivityEnvironment()
		generator := &stubGenerator{report: &domain.ShiftReport{
			ReportID: "rep-1", OrderID: "ord-1", Operator: "Ana", TotalProducedWeight: 820, Estimated: true,
		}}
		env.RegisterActivityWithOptions(NewReportActivities(generator, nil).GenerateShiftReport,
			activityOptions(sharedtemporal.ActivityNames.GenerateShiftReport))

		val, err := env.ExecuteActivity(sharedtemporal.ActivityNames.GenerateShiftReport, shiftRequest())
		require.NoError(t, err)

		var result ShiftReportResult
		require.NoError(t, val.Get(&result))
		assert.Equal(t, "rep-1", result.ReportID)
		assert.True(t, result.Estimated)
	})

	t.Run("client errors are not retryable", func(t *testing.T) {
		env := testSuite.NewTestActivityEnvironment()
		generator := &stubGenerator{err: sharedErrors.ErrNotFound("shift")}
		env.RegisterActivityWithOptions(NewReportActivities(generator, nil).GenerateShiftReport,
			activityOptions(sharedtemporal.ActivityNames.GenerateShiftReport))

		_, err := env.ExecuteActivity(sharedtemporal.ActivityNames.GenerateShiftReport, shiftRequest())
		require.Error(t, err)

		var appErr *temporal.ApplicationError
		require.True(t, errors.As(err, &appErr))
		assert.True(t, appErr.NonRetryable())
		assert.Equal(t, ReportRejectedError, appErr.Type())
	})

	t.Run("store failures stay retryable", func(t *testing.T) {
		env := testSuite.NewTestActivityEnvironment()
		generator := &stubGenerator{err: sharedErrors.ErrPersistence("store shift report")}
		env.RegisterActivityWithOptions(NewReportActivities(generator, nil).GenerateShiftReport,
			activityOptions(sharedtemporal.ActivityNames.GenerateShiftReport))

		_, err := env.ExecuteActivity(sharedtemporal.ActivityNames.GenerateShiftReport, shiftRequest())
		require.Error(t, err)

		var appErr *temporal.ApplicationError
		require.True(t, errors.As(err, &appErr))
		assert.False(t, appErr.NonRetryable())
	})
}

func TestReportScheduler_Schedule(t *testing.T) {
	logger := logging.New(&logging.Config{Level: logging.LevelError, Format: "json", ServiceName: "test"})

	t.Run("starts one workflow per shift", func(t *testing.T) {
		starter := &stubStarter{}
		scheduler := NewReportScheduler(starter, logger, nil)

		require.NoError(t, scheduler.Schedule(context.Background(), shiftRequest()))
		assert.Equal(t, []string{"shift-report-ord-1-Ana-1709272800000"}, starter.workflowIDs)
	})

	t.Run("already started is success", func(t *testing.T) {
		starter := &stubStarter{err: serviceerror.NewWorkflowExecutionAlreadyStarted("started", "req-1", "run-0")}
		scheduler := NewReportScheduler(starter, logger, nil)

		assert.NoError(t, scheduler.Schedule(context.Background(), shiftRequest()))
	})

	t.Run("other failures surface", func(t *testing.T) {
		starter := &stubStarter{err: errors.New("frontend unavailable")}
		scheduler := NewReportScheduler(starter, logger, nil)

		assert.Error(t, scheduler.Schedule(context.Background(), shiftRequest()))
	})
}
