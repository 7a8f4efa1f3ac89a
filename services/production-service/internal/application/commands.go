package application

import (
	"encoding/json"
	"time"
)

// CreateOrderCommand represents the command to register a production order
type CreateOrderCommand struct {
	OrderNumber       string
	Machine           string
	TargetBitola      string
	TrussModel        string
	TrussSize         string
	QuantityToProduce int
	TotalWeight       float64
	// SelectedLots is any accepted selection shape, normalized by the service
	SelectedLots json.RawMessage
}

// StartOrderCommand represents the command to put an order into production
type StartOrderCommand struct {
	OrderID  string
	Operator string
}

// StartShiftCommand represents the command to open an operator session
type StartShiftCommand struct {
	OrderID  string
	Operator string
}

// EndShiftCommand represents the command to close an operator session
type EndShiftCommand struct {
	OrderID       string
	Operator      string
	FinalQuantity *int
}

// LogActivityCommand represents the command to note a post-production activity
type LogActivityCommand struct {
	OrderID     string
	Operator    string
	Description string
}

// LogDowntimeCommand represents the command to stop the machine
type LogDowntimeCommand struct {
	OrderID string
	Reason  string
}

// ResumeProductionCommand represents the command to close the open stop
type ResumeProductionCommand struct {
	OrderID string
}

// LotCommand represents the commands to start or finish drawing a lot
type LotCommand struct {
	OrderID string
	LotID   string
}

// RecordLotWeightCommand represents the command to weigh a drawn lot
type RecordLotWeightCommand struct {
	OrderID       string
	LotID         string
	FinalWeight   *float64
	MeasuredGauge *float64
}

// RecordPackageWeightCommand represents the command to weigh a truss package
type RecordPackageWeightCommand struct {
	OrderID         string
	PackageNumber   int
	Quantity        int
	Weight          float64
	ManagerOverride bool
}

// UpdateProducedQuantityCommand represents the command to set the piece count
type UpdateProducedQuantityCommand struct {
	OrderID  string
	Quantity int
}

// PontaInput represents a leftover batch reported at completion
type PontaInput struct {
	Quantity    int
	Size        float64
	TotalWeight float64
}

// CompleteOrderCommand represents the command to close out production
type CompleteOrderCommand struct {
	OrderID       string
	FinalQuantity *int
	Pontas        []PontaInput
}

// DeleteOrderCommand represents the command to remove an unfinished order
type DeleteOrderCommand struct {
	OrderID string
}

// ListOrdersQuery represents the query to list orders with filters and pagination
type ListOrdersQuery struct {
	Machine  string
	Status   string
	Page     int64
	PageSize int64
}

// ListShiftReportsQuery represents the query to list shift reports
type ListShiftReportsQuery struct {
	OrderID  string
	Page     int64
	PageSize int64
}

// ShiftReportRequest identifies the closed session a report is generated for
type ShiftReportRequest struct {
	OrderID    string    `json:"orderId"`
	Operator   string    `json:"operator"`
	ShiftStart time.Time `json:"shiftStart"`
}
