package domain

import "time"

// MachineState is the shop-floor view of a machine
type MachineState string

const (
	MachineIdle       MachineState = "Idle"
	MachinePoweredOff MachineState = "PoweredOff"
	MachinePreparing  MachineState = "Preparing"
	MachineStopped    MachineState = "Stopped"
	MachineProducing  MachineState = "Producing"
)

// MachineStates lists every state, used to reset status gauges
var MachineStates = []MachineState{MachineIdle, MachinePoweredOff, MachinePreparing, MachineStopped, MachineProducing}

// MachineStatus is derived from the running order's downtime log
type MachineStatus struct {
	Machine    Machine      `json:"machine"`
	Status     MachineState `json:"status"`
	Reason     string       `json:"reason,omitempty"`
	OrderID    string       `json:"orderId,omitempty"`
	Since      *time.Time   `json:"since,omitempty"`
	DurationMs int64        `json:"durationMs,omitempty"`
}

// DeriveMachineStatus computes the machine state from its in-progress order.
// A nil order means the machine is idle.
func DeriveMachineStatus(machine Machine, order *ProductionOrder, now time.Time) MachineStatus {
	status := MachineStatus{Machine: machine, Status: MachineIdle}
	if order == nil || order.Status != StatusInProgress {
		return status
	}
	status.OrderID = order.OrderID

	current := order.Downtime.Current
	if current == nil {
		status.Status = MachineProducing
		if resumed := order.Downtime.LastResume(); resumed != nil {
			status.Since = timePtr(*resumed)
		} else if order.StartTime != nil {
			status.Since = timePtr(*order.StartTime)
		}
		if status.Since != nil {
			status.DurationMs = now.Sub(*status.Since).Milliseconds()
		}
		return status
	}

	switch {
	case current.Reason == ReasonShiftEnd:
		status.Status = MachinePoweredOff
	case IsPreparationReason(current.Reason):
		status.Status = MachinePreparing
	default:
		status.Status = MachineStopped
	}
	status.Reason = current.Reason
	status.Since = timePtr(current.StopTime)
	status.DurationMs = now.Sub(current.StopTime).Milliseconds()
	return status
}
