package domain

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Machine is a production line type
type Machine string

const (
	MachineTrefila Machine = "Trefila"
	MachineTrelica Machine = "Treliça"
)

// Machines lists every machine type
var Machines = []Machine{MachineTrefila, MachineTrelica}

// IsValid checks if the machine is known
func (m Machine) IsValid() bool {
	return m == MachineTrefila || m == MachineTrelica
}

// Status represents order lifecycle status
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// IsValid checks if the status is known
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	default:
		return false
	}
}

// ProductionOrder is the aggregate root for production tracking
type ProductionOrder struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	OrderID     string             `bson:"orderId" json:"orderId"`
	OrderNumber string             `bson:"orderNumber" json:"orderNumber"`
	Machine     Machine            `bson:"machine" json:"machine"`
	Status      Status             `bson:"status" json:"status"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	StartTime   *time.Time         `bson:"startTime,omitempty" json:"startTime,omitempty"`
	EndTime     *time.Time         `bson:"endTime,omitempty" json:"endTime,omitempty"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`

	TargetBitola string `bson:"targetBitola" json:"targetBitola"`
	TrussModel   string `bson:"trussModel,omitempty" json:"trussModel,omitempty"`
	TrussSize    string `bson:"trussSize,omitempty" json:"trussSize,omitempty"`

	QuantityToProduce   int     `bson:"quantityToProduce" json:"quantityToProduce"`
	PlannedOutputWeight float64 `bson:"plannedOutputWeight" json:"plannedOutputWeight"`
	TotalWeight         float64 `bson:"totalWeight" json:"totalWeight"`

	SelectedLots SelectedLots `bson:"selectedLots" json:"selectedLots"`

	Downtime        DowntimeLog      `bson:"downtime" json:"downtime"`
	OperatorLogs    []OperatorLog    `bson:"operatorLogs" json:"operatorLogs"`
	ProcessedLots   []ProcessedLot   `bson:"processedLots" json:"processedLots"`
	WeighedPackages []WeighedPackage `bson:"weighedPackages" json:"weighedPackages"`
	Pontas          []Ponta          `bson:"pontas" json:"pontas"`

	ActualProducedQuantity int        `bson:"actualProducedQuantity" json:"actualProducedQuantity"`
	ActualProducedWeight   float64    `bson:"actualProducedWeight" json:"actualProducedWeight"`
	ScrapWeight            float64    `bson:"scrapWeight" json:"scrapWeight"`
	ConsumptionShortfall   float64    `bson:"consumptionShortfall" json:"consumptionShortfall"`
	ActiveLot              *ActiveLot `bson:"activeLot,omitempty" json:"activeLot,omitempty"`

	// Version is the compare-and-swap counter; the repository increments it on every save
	Version int64 `bson:"version" json:"version"`

	// Domain events - transient, not persisted
	domainEvents []DomainEvent `bson:"-" json:"-"`
}

// NewOrderParams holds the validated creation input
type NewOrderParams struct {
	OrderID           string
	OrderNumber       string
	Machine           Machine
	TargetBitola      string
	TrussModel        string
	TrussSize         string
	QuantityToProduce int
	TotalWeight       float64
	SelectedLots      SelectedLots
}

// NewProductionOrder creates a pending order. Treliça orders need the catalog
// entry for their model and size to compute the planned output weight.
func NewProductionOrder(p NewOrderParams, model *TrussModel, now time.Time) (*ProductionOrder, error) {
	if !p.Machine.IsValid() {
		return nil, ErrInvalidMachine
	}
	if strings.TrimSpace(p.OrderNumber) == "" {
		return nil, ErrMissingOrderNumber
	}
	if strings.TrimSpace(p.TargetBitola) == "" {
		return nil, ErrMissingTargetBitola
	}
	if p.QuantityToProduce < 0 {
		return nil, ErrInvalidQuantity
	}
	if p.SelectedLots.IsEmpty() {
		return nil, ErrNoLotsSelected
	}

	order := &ProductionOrder{
		OrderID:           p.OrderID,
		OrderNumber:       strings.TrimSpace(p.OrderNumber),
		Machine:           p.Machine,
		Status:            StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
		TargetBitola:      strings.TrimSpace(p.TargetBitola),
		QuantityToProduce: p.QuantityToProduce,
		TotalWeight:       p.TotalWeight,
		SelectedLots:      p.SelectedLots,
		OperatorLogs:      []OperatorLog{},
		ProcessedLots:     []ProcessedLot{},
		WeighedPackages:   []WeighedPackage{},
		Pontas:            []Ponta{},
	}

	if p.Machine == MachineTrelica {
		if strings.TrimSpace(p.TrussModel) == "" || strings.TrimSpace(p.TrussSize) == "" {
			return nil, ErrMissingTrussSpec
		}
		if model == nil {
			return nil, ErrTrussModelNotFound
		}
		order.TrussModel = strings.TrimSpace(p.TrussModel)
		order.TrussSize = strings.TrimSpace(p.TrussSize)
		order.PlannedOutputWeight = round2(model.PesoFinal * float64(p.QuantityToProduce))
	}

	order.AddDomainEvent(NewOrderCreatedEvent(order, now))
	return order, nil
}

// IsCompleted reports whether the order reached its terminal state
func (o *ProductionOrder) IsCompleted() bool {
	return o.Status == StatusCompleted
}

func (o *ProductionOrder) requireInProgress() error {
	switch o.Status {
	case StatusInProgress:
		return nil
	case StatusCompleted:
		return ErrOrderCompleted
	default:
		return ErrOrderNotInProgress
	}
}

// UpdateProducedQuantity sets the running piece count
func (o *ProductionOrder) UpdateProducedQuantity(quantity int, now time.Time) error {
	if quantity < 0 {
		return ErrInvalidQuantity
	}
	if o.IsCompleted() {
		return ErrOrderCompleted
	}
	o.ActualProducedQuantity = quantity
	o.UpdatedAt = now
	return nil
}

// ReservedStatus is the stock status lots take while reserved by an order of this machine
func (o *ProductionOrder) ReservedStatus() StockStatus {
	if o.Machine == MachineTrelica {
		return StockInProductionTrelica
	}
	return StockInProduction
}

// AddDomainEvent adds a domain event to the order
func (o *ProductionOrder) AddDomainEvent(event DomainEvent) {
	o.domainEvents = append(o.domainEvents, event)
}

// DomainEvents returns all pending domain events
func (o *ProductionOrder) DomainEvents() []DomainEvent {
	return o.domainEvents
}

// ClearDomainEvents clears all pending domain events
func (o *ProductionOrder) ClearDomainEvents() {
	o.domainEvents = nil
}

func timePtr(t time.Time) *time.Time { return &t }
