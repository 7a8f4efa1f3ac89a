package domain

import (
	"strings"
	"time"
)

// PostProductionActivity is a free-form note an operator leaves after production
type PostProductionActivity struct {
	Timestamp   time.Time `bson:"timestamp" json:"timestamp"`
	Description string    `bson:"description" json:"description"`
}

// OperatorLog is one operator session on an order
type OperatorLog struct {
	Operator                 string                   `bson:"operator" json:"operator"`
	StartTime                time.Time                `bson:"startTime" json:"startTime"`
	EndTime                  *time.Time               `bson:"endTime" json:"endTime"`
	StartQuantity            int                      `bson:"startQuantity" json:"startQuantity"`
	EndQuantity              *int                     `bson:"endQuantity" json:"endQuantity"`
	PostProductionActivities []PostProductionActivity `bson:"postProductionActivities,omitempty" json:"postProductionActivities,omitempty"`
}

// IsOpen reports whether the session has not ended
func (l OperatorLog) IsOpen() bool {
	return l.EndTime == nil
}

// QuantityDelta is the pieces produced during the session
func (l OperatorLog) QuantityDelta() int {
	if l.EndQuantity == nil {
		return 0
	}
	return *l.EndQuantity - l.StartQuantity
}

// closeOpenLogs ends every open session at now with the current piece count
func (o *ProductionOrder) closeOpenLogs(now time.Time) []OperatorLog {
	var closed []OperatorLog
	for i := range o.OperatorLogs {
		if !o.OperatorLogs[i].IsOpen() {
			continue
		}
		qty := o.ActualProducedQuantity
		o.OperatorLogs[i].EndTime = timePtr(now)
		o.OperatorLogs[i].EndQuantity = &qty
		closed = append(closed, o.OperatorLogs[i])
	}
	return closed
}

// OpenOperatorLogs returns the sessions still running
func (o *ProductionOrder) OpenOperatorLogs() []OperatorLog {
	var open []OperatorLog
	for _, l := range o.OperatorLogs {
		if l.IsOpen() {
			open = append(open, l)
		}
	}
	return open
}

// HasOpenLogFor reports whether operator has a running session on this order
func (o *ProductionOrder) HasOpenLogFor(operator string) bool {
	for _, l := range o.OperatorLogs {
		if l.IsOpen() && l.Operator == operator {
			return true
		}
	}
	return false
}

// CloseOperatorLogs ends operator's open sessions on this order. Used to
// clear ghost shifts on orders the operator walked away from.
func (o *ProductionOrder) CloseOperatorLogs(operator string, now time.Time) bool {
	changed := false
	for i := range o.OperatorLogs {
		l := &o.OperatorLogs[i]
		if l.IsOpen() && l.Operator == operator {
			qty := o.ActualProducedQuantity
			l.EndTime = timePtr(now)
			l.EndQuantity = &qty
			changed = true
		}
	}
	if changed {
		o.UpdatedAt = now
	}
	return changed
}

// StartShift opens operator's session. Any other session on the order ends first.
// A Trefila coming back from a shift end with nothing on the machine goes
// into roll change and one with a lot still running resumes; a Treliça
// simply resumes.
func (o *ProductionOrder) StartShift(operator string, now time.Time) error {
	operator = strings.TrimSpace(operator)
	if operator == "" {
		return ErrEmptyOperator
	}
	if err := o.requireInProgress(); err != nil {
		return err
	}

	o.closeOpenLogs(now)
	o.OperatorLogs = append(o.OperatorLogs, OperatorLog{
		Operator:      operator,
		StartTime:     now,
		StartQuantity: o.ActualProducedQuantity,
	})

	switch o.Machine {
	case MachineTrelica:
		o.Downtime.Close(now)
	case MachineTrefila:
		current := o.Downtime.Current
		switch {
		case o.ActiveLot != nil:
			if current != nil && current.Reason == ReasonShiftEnd {
				o.Downtime.Close(now)
			}
		case current == nil || current.Reason == ReasonShiftEnd:
			if err := o.Downtime.Open(ReasonRollChange, now); err != nil {
				return err
			}
		}
	}

	o.UpdatedAt = now
	o.AddDomainEvent(NewShiftStartedEvent(o, operator, now))
	return nil
}

// EndShift closes every open session and powers the machine off.
// It returns operator's closed session, which feeds the shift report.
func (o *ProductionOrder) EndShift(operator string, finalQuantity *int, now time.Time) (*OperatorLog, error) {
	operator = strings.TrimSpace(operator)
	if operator == "" {
		return nil, ErrEmptyOperator
	}
	if err := o.requireInProgress(); err != nil {
		return nil, err
	}
	if finalQuantity != nil && *finalQuantity < 0 {
		return nil, ErrInvalidQuantity
	}
	if !o.HasOpenLogFor(operator) {
		return nil, ErrNoOpenShift
	}

	if finalQuantity != nil {
		o.ActualProducedQuantity = *finalQuantity
	}
	o.closeOpenLogs(now)

	var own *OperatorLog
	for i := len(o.OperatorLogs) - 1; i >= 0; i-- {
		l := o.OperatorLogs[i]
		if l.Operator == operator && l.EndTime != nil && l.EndTime.Equal(now) {
			own = &l
			break
		}
	}

	if err := o.Downtime.Open(ReasonShiftEnd, now); err != nil {
		return nil, err
	}

	o.UpdatedAt = now
	o.AddDomainEvent(NewShiftEndedEvent(o, *own, now))
	return own, nil
}

// LogPostProductionActivity appends a note to operator's latest session on the order
func (o *ProductionOrder) LogPostProductionActivity(operator, description string, now time.Time) error {
	operator = strings.TrimSpace(operator)
	description = strings.TrimSpace(description)
	if operator == "" {
		return ErrEmptyOperator
	}
	if description == "" {
		return ErrEmptyDescription
	}

	for i := len(o.OperatorLogs) - 1; i >= 0; i-- {
		if o.OperatorLogs[i].Operator == operator {
			o.OperatorLogs[i].PostProductionActivities = append(o.OperatorLogs[i].PostProductionActivities,
				PostProductionActivity{Timestamp: now, Description: description})
			o.UpdatedAt = now
			return nil
		}
	}
	return ErrNoOpenShift
}
