package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/looplab/fsm"
)

// Lifecycle events
const (
	EventStart         = "start"
	EventComplete      = "complete"
	EventForceComplete = "force_complete"
)

var lifecycleEvents = fsm.Events{
	{Name: EventStart, Src: []string{string(StatusPending)}, Dst: string(StatusInProgress)},
	{Name: EventComplete, Src: []string{string(StatusInProgress)}, Dst: string(StatusCompleted)},
	{Name: EventForceComplete, Src: []string{string(StatusInProgress)}, Dst: string(StatusCompleted)},
}

func newLifecycle(current Status) *fsm.FSM {
	return fsm.NewFSM(string(current), lifecycleEvents, fsm.Callbacks{})
}

// CanTransition reports whether the lifecycle event is allowed from the current status
func (o *ProductionOrder) CanTransition(event string) bool {
	return newLifecycle(o.Status).Can(event)
}

func (o *ProductionOrder) transition(event string) error {
	lifecycle := newLifecycle(o.Status)
	if err := lifecycle.Event(context.Background(), event); err != nil {
		switch {
		case o.Status == StatusCompleted:
			return ErrOrderCompleted
		case event == EventStart:
			return ErrOrderNotPending
		default:
			return ErrOrderNotInProgress
		}
	}
	o.Status = Status(lifecycle.Current())
	return nil
}

// Start moves a pending order into production: the machine waits in
// "Aguardando Início da Produção" and the invoking operator's shift opens.
func (o *ProductionOrder) Start(operator string, now time.Time) error {
	operator = strings.TrimSpace(operator)
	if operator == "" {
		return ErrEmptyOperator
	}
	if err := o.transition(EventStart); err != nil {
		return err
	}

	o.StartTime = timePtr(now)
	if err := o.Downtime.Open(ReasonAwaitingStart, now); err != nil {
		return err
	}
	o.OperatorLogs = append(o.OperatorLogs, OperatorLog{
		Operator:      operator,
		StartTime:     now,
		StartQuantity: o.ActualProducedQuantity,
	})
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderStartedEvent(o, operator, now))
	return nil
}

// ForceComplete ends an order that lost its machine to another order.
// Only status changes; stock is left as it is. It returns the sessions it closed.
func (o *ProductionOrder) ForceComplete(replacedBy string, now time.Time) ([]OperatorLog, error) {
	if err := o.transition(EventForceComplete); err != nil {
		return nil, err
	}
	closed := o.closeOpenLogs(now)
	o.Downtime.Close(now)
	o.ActiveLot = nil
	o.EndTime = timePtr(now)
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderForceCompletedEvent(o, replacedBy, now))
	return closed, nil
}

// Complete applies a completion plan and closes the order for good.
// The plan must have been built from this order. It returns the sessions
// it closed, the last of which carries the order's scrap.
func (o *ProductionOrder) Complete(plan *CompletionPlan, now time.Time) ([]OperatorLog, error) {
	if plan == nil || plan.OrderID != o.OrderID {
		return nil, fmt.Errorf("%w: completion plan does not belong to order %s", ErrValidation, o.OrderID)
	}
	if err := o.transition(EventComplete); err != nil {
		return nil, err
	}

	closed := o.closeOpenLogs(now)
	o.Downtime.Close(now)
	o.ActiveLot = nil

	o.ActualProducedQuantity = plan.ProducedQuantity
	o.ActualProducedWeight = plan.ProducedWeight
	o.ScrapWeight = plan.ScrapWeight
	o.ConsumptionShortfall = plan.Shortfall
	if plan.Pontas != nil {
		o.Pontas = plan.Pontas
	}
	o.EndTime = timePtr(now)
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderCompletedEvent(o, now))
	for _, c := range plan.Consumptions {
		o.AddDomainEvent(NewStockConsumedEvent(o, c, now))
	}
	return closed, nil
}

// MarkDeleted validates that the order may be deleted and records the event
func (o *ProductionOrder) MarkDeleted(releasedLots []string, now time.Time) error {
	if o.IsCompleted() {
		return ErrCannotDeleteCompleted
	}
	o.UpdatedAt = now
	o.AddDomainEvent(NewOrderDeletedEvent(o, releasedLots, now))
	return nil
}
