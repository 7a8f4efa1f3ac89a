package temporal

import (
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/workflow"

	sharedtemporal "github.com/mes-platform/production/shared/pkg/temporal"
)

// Registry is satisfied by a worker and by the test workflow environment
type Registry interface {
	RegisterWorkflowWithOptions(w interface{}, options workflow.RegisterOptions)
	RegisterActivityWithOptions(a interface{}, options activity.RegisterOptions)
}

// Register adds the reporting workflow and activities
func Register(r Registry, activities *ReportActivities) {
	r.RegisterWorkflowWithOptions(ShiftReportWorkflow, workflow.RegisterOptions{Name: sharedtemporal.WorkflowNames.ShiftReport})
	r.RegisterActivityWithOptions(activities.GenerateShiftReport, activityOptions(sharedtemporal.ActivityNames.GenerateShiftReport))
}

func activityOptions(name string) activity.RegisterOptions {
	return activity.RegisterOptions{Name: name}
}
