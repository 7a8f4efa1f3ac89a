package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/mes-platform/production/shared/pkg/cloudevents"
)

// DomainEvent represents a domain event
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
	AggregateID() string
	MachineName() string
}

// BaseDomainEvent contains common event fields
type BaseDomainEvent struct {
	ID          string    `json:"-"`
	Type        string    `json:"-"`
	AggregateId string    `json:"-"`
	Machine     string    `json:"machine"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e BaseDomainEvent) EventType() string     { return e.Type }
func (e BaseDomainEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseDomainEvent) AggregateID() string   { return e.AggregateId }
func (e BaseDomainEvent) MachineName() string   { return e.Machine }

func newBase(eventType string, o *ProductionOrder, now time.Time) BaseDomainEvent {
	return BaseDomainEvent{
		ID:          uuid.New().String(),
		Type:        eventType,
		AggregateId: o.OrderID,
		Machine:     string(o.Machine),
		Timestamp:   now.UTC(),
	}
}

// OrderCreatedEvent is raised when a production order is registered
type OrderCreatedEvent struct {
	BaseDomainEvent
	OrderID             string   `json:"orderId"`
	OrderNumber         string   `json:"orderNumber"`
	TargetBitola        string   `json:"targetBitola"`
	TrussModel          string   `json:"trussModel,omitempty"`
	TrussSize           string   `json:"trussSize,omitempty"`
	QuantityToProduce   int      `json:"quantityToProduce"`
	PlannedOutputWeight float64  `json:"plannedOutputWeight"`
	SelectedLotIDs      []string `json:"selectedLotIds"`
}

// NewOrderCreatedEvent creates a new OrderCreatedEvent
func NewOrderCreatedEvent(o *ProductionOrder, now time.Time) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent:     newBase(cloudevents.OrderCreated, o, now),
		OrderID:             o.OrderID,
		OrderNumber:         o.OrderNumber,
		TargetBitola:        o.TargetBitola,
		TrussModel:          o.TrussModel,
		TrussSize:           o.TrussSize,
		QuantityToProduce:   o.QuantityToProduce,
		PlannedOutputWeight: o.PlannedOutputWeight,
		SelectedLotIDs:      o.SelectedLots.AllLotIDs(),
	}
}

// OrderStartedEvent is raised when an order goes into production
type OrderStartedEvent struct {
	BaseDomainEvent
	OrderID     string `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
	Operator    string `json:"operator"`
}

// NewOrderStartedEvent creates a new OrderStartedEvent
func NewOrderStartedEvent(o *ProductionOrder, operator string, now time.Time) *OrderStartedEvent {
	return &OrderStartedEvent{
		BaseDomainEvent: newBase(cloudevents.OrderStarted, o, now),
		OrderID:         o.OrderID,
		OrderNumber:     o.OrderNumber,
		Operator:        operator,
	}
}

// OrderForceCompletedEvent is raised when a newer order takes over the machine
type OrderForceCompletedEvent struct {
	BaseDomainEvent
	OrderID    string `json:"orderId"`
	ReplacedBy string `json:"replacedBy"`
}

// NewOrderForceCompletedEvent creates a new OrderForceCompletedEvent
func NewOrderForceCompletedEvent(o *ProductionOrder, replacedBy string, now time.Time) *OrderForceCompletedEvent {
	return &OrderForceCompletedEvent{
		BaseDomainEvent: newBase(cloudevents.OrderForceCompleted, o, now),
		OrderID:         o.OrderID,
		ReplacedBy:      replacedBy,
	}
}

// OrderCompletedEvent is raised when production is closed out
type OrderCompletedEvent struct {
	BaseDomainEvent
	OrderID              string  `json:"orderId"`
	OrderNumber          string  `json:"orderNumber"`
	ProducedQuantity     int     `json:"producedQuantity"`
	ProducedWeight       float64 `json:"producedWeight"`
	ScrapWeight          float64 `json:"scrapWeight"`
	ConsumptionShortfall float64 `json:"consumptionShortfall"`
	Pontas               int     `json:"pontas"`
}

// NewOrderCompletedEvent creates a new OrderCompletedEvent
func NewOrderCompletedEvent(o *ProductionOrder, now time.Time) *OrderCompletedEvent {
	return &OrderCompletedEvent{
		BaseDomainEvent:      newBase(cloudevents.OrderCompleted, o, now),
		OrderID:              o.OrderID,
		OrderNumber:          o.OrderNumber,
		ProducedQuantity:     o.ActualProducedQuantity,
		ProducedWeight:       o.ActualProducedWeight,
		ScrapWeight:          o.ScrapWeight,
		ConsumptionShortfall: o.ConsumptionShortfall,
		Pontas:               len(o.Pontas),
	}
}

// OrderDeletedEvent is raised when an unfinished order is removed
type OrderDeletedEvent struct {
	BaseDomainEvent
	OrderID      string   `json:"orderId"`
	OrderNumber  string   `json:"orderNumber"`
	ReleasedLots []string `json:"releasedLots"`
}

// NewOrderDeletedEvent creates a new OrderDeletedEvent
func NewOrderDeletedEvent(o *ProductionOrder, releasedLots []string, now time.Time) *OrderDeletedEvent {
	if releasedLots == nil {
		releasedLots = []string{}
	}
	return &OrderDeletedEvent{
		BaseDomainEvent: newBase(cloudevents.OrderDeleted, o, now),
		OrderID:         o.OrderID,
		OrderNumber:     o.OrderNumber,
		ReleasedLots:    releasedLots,
	}
}

// DowntimeLoggedEvent is raised when the machine stops
type DowntimeLoggedEvent struct {
	BaseDomainEvent
	OrderID  string    `json:"orderId"`
	Reason   string    `json:"reason"`
	StopTime time.Time `json:"stopTime"`
}

// NewDowntimeLoggedEvent creates a new DowntimeLoggedEvent
func NewDowntimeLoggedEvent(o *ProductionOrder, reason string, now time.Time) *DowntimeLoggedEvent {
	return &DowntimeLoggedEvent{
		BaseDomainEvent: newBase(cloudevents.DowntimeLogged, o, now),
		OrderID:         o.OrderID,
		Reason:          reason,
		StopTime:        now.UTC(),
	}
}

// ProductionResumedEvent is raised when a stop interval closes
type ProductionResumedEvent struct {
	BaseDomainEvent
	OrderID        string `json:"orderId"`
	ClosedReason   string `json:"closedReason"`
	ReopenedReason string `json:"reopenedReason,omitempty"`
}

// NewProductionResumedEvent creates a new ProductionResumedEvent
func NewProductionResumedEvent(o *ProductionOrder, closedReason string, now time.Time) *ProductionResumedEvent {
	return &ProductionResumedEvent{
		BaseDomainEvent: newBase(cloudevents.ProductionResumed, o, now),
		OrderID:         o.OrderID,
		ClosedReason:    closedReason,
		ReopenedReason:  o.Downtime.CurrentReason(),
	}
}

// ShiftStartedEvent is raised when an operator takes over the order
type ShiftStartedEvent struct {
	BaseDomainEvent
	OrderID       string `json:"orderId"`
	Operator      string `json:"operator"`
	StartQuantity int    `json:"startQuantity"`
}

// NewShiftStartedEvent creates a new ShiftStartedEvent
func NewShiftStartedEvent(o *ProductionOrder, operator string, now time.Time) *ShiftStartedEvent {
	return &ShiftStartedEvent{
		BaseDomainEvent: newBase(cloudevents.ShiftStarted, o, now),
		OrderID:         o.OrderID,
		Operator:        operator,
		StartQuantity:   o.ActualProducedQuantity,
	}
}

// ShiftEndedEvent is raised when an operator closes a session
type ShiftEndedEvent struct {
	BaseDomainEvent
	OrderID       string    `json:"orderId"`
	Operator      string    `json:"operator"`
	StartTime     time.Time `json:"startTime"`
	EndTime       time.Time `json:"endTime"`
	StartQuantity int       `json:"startQuantity"`
	EndQuantity   int       `json:"endQuantity"`
}

// NewShiftEndedEvent creates a new ShiftEndedEvent
func NewShiftEndedEvent(o *ProductionOrder, log OperatorLog, now time.Time) *ShiftEndedEvent {
	e := &ShiftEndedEvent{
		BaseDomainEvent: newBase(cloudevents.ShiftEnded, o, now),
		OrderID:         o.OrderID,
		Operator:        log.Operator,
		StartTime:       log.StartTime.UTC(),
		EndTime:         now.UTC(),
		StartQuantity:   log.StartQuantity,
		EndQuantity:     o.ActualProducedQuantity,
	}
	if log.EndQuantity != nil {
		e.EndQuantity = *log.EndQuantity
	}
	return e
}

// LotStartedEvent is raised when a lot goes onto the drawing machine
type LotStartedEvent struct {
	BaseDomainEvent
	OrderID string `json:"orderId"`
	LotID   string `json:"lotId"`
}

// NewLotStartedEvent creates a new LotStartedEvent
func NewLotStartedEvent(o *ProductionOrder, lotID string, now time.Time) *LotStartedEvent {
	return &LotStartedEvent{
		BaseDomainEvent: newBase(cloudevents.LotStarted, o, now),
		OrderID:         o.OrderID,
		LotID:           lotID,
	}
}

// LotFinishedEvent is raised when a lot comes off the drawing machine
type LotFinishedEvent struct {
	BaseDomainEvent
	OrderID string `json:"orderId"`
	LotID   string `json:"lotId"`
}

// NewLotFinishedEvent creates a new LotFinishedEvent
func NewLotFinishedEvent(o *ProductionOrder, lotID string, now time.Time) *LotFinishedEvent {
	return &LotFinishedEvent{
		BaseDomainEvent: newBase(cloudevents.LotFinished, o, now),
		OrderID:         o.OrderID,
		LotID:           lotID,
	}
}

// LotWeighedEvent is raised when a drawn lot gets its weight or gauge
type LotWeighedEvent struct {
	BaseDomainEvent
	OrderID       string   `json:"orderId"`
	LotID         string   `json:"lotId"`
	FinalWeight   *float64 `json:"finalWeight"`
	MeasuredGauge *float64 `json:"measuredGauge"`
}

// NewLotWeighedEvent creates a new LotWeighedEvent
func NewLotWeighedEvent(o *ProductionOrder, lot ProcessedLot, now time.Time) *LotWeighedEvent {
	return &LotWeighedEvent{
		BaseDomainEvent: newBase(cloudevents.LotWeighed, o, now),
		OrderID:         o.OrderID,
		LotID:           lot.LotID,
		FinalWeight:     lot.FinalWeight,
		MeasuredGauge:   lot.MeasuredGauge,
	}
}

// PackageWeighedEvent is raised when a truss package is weighed
type PackageWeighedEvent struct {
	BaseDomainEvent
	OrderID         string  `json:"orderId"`
	PackageNumber   int     `json:"packageNumber"`
	Quantity        int     `json:"quantity"`
	Weight          float64 `json:"weight"`
	ExpectedWeight  float64 `json:"expectedWeight"`
	ManagerOverride bool    `json:"managerOverride"`
}

// NewPackageWeighedEvent creates a new PackageWeighedEvent
func NewPackageWeighedEvent(o *ProductionOrder, pkg WeighedPackage, expected float64, override bool, now time.Time) *PackageWeighedEvent {
	return &PackageWeighedEvent{
		BaseDomainEvent: newBase(cloudevents.PackageWeighed, o, now),
		OrderID:         o.OrderID,
		PackageNumber:   pkg.PackageNumber,
		Quantity:        pkg.Quantity,
		Weight:          pkg.Weight,
		ExpectedWeight:  round2(expected),
		ManagerOverride: override,
	}
}

// StockConsumedEvent is raised per stock lot touched by a completion
type StockConsumedEvent struct {
	BaseDomainEvent
	OrderID         string  `json:"orderId"`
	LotID           string  `json:"lotId"`
	InternalLot     string  `json:"internalLot"`
	Role            string  `json:"role,omitempty"`
	Consumed        float64 `json:"consumed"`
	PreviousBalance float64 `json:"previousBalance"`
	NewBalance      float64 `json:"newBalance"`
	NewStatus       string  `json:"newStatus"`
}

// NewStockConsumedEvent creates a new StockConsumedEvent
func NewStockConsumedEvent(o *ProductionOrder, c Consumption, now time.Time) *StockConsumedEvent {
	return &StockConsumedEvent{
		BaseDomainEvent: newBase(cloudevents.StockConsumed, o, now),
		OrderID:         o.OrderID,
		LotID:           c.LotID,
		InternalLot:     c.InternalLot,
		Role:            string(c.Role),
		Consumed:        c.Consumed,
		PreviousBalance: c.PreviousBalance,
		NewBalance:      c.NewBalance,
		NewStatus:       string(c.NewStatus),
	}
}

// ShiftReportGeneratedEvent is raised once per stored shift report
type ShiftReportGeneratedEvent struct {
	BaseDomainEvent
	ReportID              string    `json:"reportId"`
	OrderID               string    `json:"orderId"`
	Operator              string    `json:"operator"`
	ShiftStartTime        time.Time `json:"shiftStartTime"`
	ShiftEndTime          time.Time `json:"shiftEndTime"`
	TotalProducedWeight   float64   `json:"totalProducedWeight"`
	TotalProducedQuantity int       `json:"totalProducedQuantity"`
	Estimated             bool      `json:"estimated"`
}

// NewShiftReportGeneratedEvent creates a new ShiftReportGeneratedEvent
func NewShiftReportGeneratedEvent(r *ShiftReport) *ShiftReportGeneratedEvent {
	return &ShiftReportGeneratedEvent{
		BaseDomainEvent: BaseDomainEvent{
			ID:          uuid.New().String(),
			Type:        cloudevents.ShiftReportGenerated,
			AggregateId: r.OrderID,
			Machine:     string(r.Machine),
			Timestamp:   r.Date.UTC(),
		},
		ReportID:              r.ReportID,
		OrderID:               r.OrderID,
		Operator:              r.Operator,
		ShiftStartTime:        r.ShiftStartTime.UTC(),
		ShiftEndTime:          r.ShiftEndTime.UTC(),
		TotalProducedWeight:   r.TotalProducedWeight,
		TotalProducedQuantity: r.TotalProducedQuantity,
		Estimated:             r.Estimated,
	}
}
