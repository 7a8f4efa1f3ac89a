package application

import (
	"time"

	"github.com/mes-platform/production/services/production-service/internal/domain"
)

// OrderDTO represents a production order in API responses
type OrderDTO struct {
	OrderID     string     `json:"orderId"`
	OrderNumber string     `json:"orderNumber"`
	Machine     string     `json:"machine"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	StartTime   *time.Time `json:"startTime,omitempty"`
	EndTime     *time.Time `json:"endTime,omitempty"`

	TargetBitola string `json:"targetBitola"`
	TrussModel   string `json:"trussModel,omitempty"`
	TrussSize    string `json:"trussSize,omitempty"`

	QuantityToProduce   int     `json:"quantityToProduce"`
	PlannedOutputWeight float64 `json:"plannedOutputWeight"`
	TotalWeight         float64 `json:"totalWeight"`

	SelectedLots SelectedLotsDTO `json:"selectedLots"`

	DowntimeEvents  []DowntimeEventDTO      `json:"downtimeEvents"`
	CurrentDowntime *DowntimeEventDTO       `json:"currentDowntime,omitempty"`
	OperatorLogs    []domain.OperatorLog    `json:"operatorLogs"`
	ProcessedLots   []domain.ProcessedLot   `json:"processedLots"`
	WeighedPackages []domain.WeighedPackage `json:"weighedPackages"`
	Pontas          []domain.Ponta          `json:"pontas"`
	ActiveLot       *domain.ActiveLot       `json:"activeLot,omitempty"`
	MachineStatus   *domain.MachineStatus   `json:"machineStatus,omitempty"`

	ActualProducedQuantity int     `json:"actualProducedQuantity"`
	ActualProducedWeight   float64 `json:"actualProducedWeight"`
	ScrapWeight            float64 `json:"scrapWeight"`
	ConsumptionShortfall   float64 `json:"consumptionShortfall"`
	Version                int64   `json:"version"`
}

// SelectedLotsDTO is the canonical selection shape: a flat list or lots per role
type SelectedLotsDTO struct {
	Kind   string              `json:"kind"`
	LotIDs []string            `json:"lotIds,omitempty"`
	Roles  map[string][]string `json:"roles,omitempty"`
}

// DowntimeEventDTO represents one stop interval
type DowntimeEventDTO struct {
	StopTime   time.Time  `json:"stopTime"`
	ResumeTime *time.Time `json:"resumeTime"`
	Reason     string     `json:"reason"`
}

// CompletionDTO summarizes what completing an order did
type CompletionDTO struct {
	Order         OrderDTO              `json:"order"`
	AlreadyDone   bool                  `json:"alreadyCompleted"`
	Consumptions  []domain.Consumption  `json:"consumptions,omitempty"`
	FinishedGoods []domain.FinishedGood `json:"finishedGoods,omitempty"`
	PontaItems    []domain.PontaItem    `json:"pontaItems,omitempty"`
}

// TrussModelDTO represents a catalog row
type TrussModelDTO struct {
	Code           string  `json:"code,omitempty"`
	Model          string  `json:"model"`
	Size           string  `json:"size"`
	SuperiorGauge  string  `json:"superiorGauge,omitempty"`
	InferiorGauge  string  `json:"inferiorGauge,omitempty"`
	SenozoideGauge string  `json:"senozoideGauge,omitempty"`
	PesoFinal      float64 `json:"pesoFinal"`
	PesoSuperior   float64 `json:"pesoSuperior"`
	PesoInferior   float64 `json:"pesoInferior"`
	PesoSenozoide  float64 `json:"pesoSenozoide"`
}
