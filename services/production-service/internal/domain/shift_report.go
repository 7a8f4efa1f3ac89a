package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
)

// SteelDensity in kg/m³
const SteelDensity = 7850.0

// ShiftReport is the immutable end-of-shift summary for one operator on one order
type ShiftReport struct {
	ReportID    string    `bson:"reportId" json:"reportId"`
	Date        time.Time `bson:"date" json:"date"`
	Operator    string    `bson:"operator" json:"operator"`
	Machine     Machine   `bson:"machine" json:"machine"`
	OrderID     string    `bson:"orderId" json:"orderId"`
	OrderNumber string    `bson:"orderNumber" json:"orderNumber"`

	TargetBitola      string `bson:"targetBitola" json:"targetBitola"`
	TrussModel        string `bson:"trussModel,omitempty" json:"trussModel,omitempty"`
	TrussSize         string `bson:"trussSize,omitempty" json:"trussSize,omitempty"`
	QuantityToProduce int    `bson:"quantityToProduce" json:"quantityToProduce"`

	ShiftStartTime time.Time `bson:"shiftStartTime" json:"shiftStartTime"`
	ShiftEndTime   time.Time `bson:"shiftEndTime" json:"shiftEndTime"`

	ProcessedLots   []ProcessedLot   `bson:"processedLots" json:"processedLots"`
	DowntimeEvents  []DowntimeEvent  `bson:"downtimeEvents" json:"downtimeEvents"`
	WeighedPackages []WeighedPackage `bson:"weighedPackages" json:"weighedPackages"`

	TotalProducedWeight   float64 `bson:"totalProducedWeight" json:"totalProducedWeight"`
	TotalProducedMeters   float64 `bson:"totalProducedMeters" json:"totalProducedMeters"`
	TotalProducedQuantity int     `bson:"totalProducedQuantity" json:"totalProducedQuantity"`
	TotalScrapWeight      float64 `bson:"totalScrapWeight" json:"totalScrapWeight"`
	ScrapPercentage       float64 `bson:"scrapPercentage" json:"scrapPercentage"`
	Estimated             bool    `bson:"estimated" json:"estimated"`
}

// MetersFromWeight converts drawn wire weight to length for a gauge in mm
func MetersFromWeight(weight float64, gaugeMM float64) float64 {
	if gaugeMM <= 0 {
		return 0
	}
	radius := gaugeMM / 2000
	return weight / (SteelDensity * math.Pi * radius * radius)
}

// BuildShiftReport summarizes the closed session log on order o.
// model is only consulted for Treliça orders and may be nil.
func BuildShiftReport(o *ProductionOrder, log OperatorLog, model *TrussModel, now time.Time) (*ShiftReport, error) {
	if log.EndTime == nil {
		return nil, ErrShiftStillOpen
	}
	start, end := log.StartTime, *log.EndTime
	within := func(t time.Time) bool { return !t.Before(start) && t.Before(end) }

	report := &ShiftReport{
		ReportID:          uuid.NewString(),
		Date:              now,
		Operator:          log.Operator,
		Machine:           o.Machine,
		OrderID:           o.OrderID,
		OrderNumber:       o.OrderNumber,
		TargetBitola:      o.TargetBitola,
		TrussModel:        o.TrussModel,
		TrussSize:         o.TrussSize,
		QuantityToProduce: o.QuantityToProduce,
		ShiftStartTime:    start,
		ShiftEndTime:      end,
		ProcessedLots:     []ProcessedLot{},
		DowntimeEvents:    []DowntimeEvent{},
		WeighedPackages:   []WeighedPackage{},
	}

	for _, e := range o.Downtime.Events() {
		if e.Reason != ReasonShiftEnd && e.overlaps(start, end) {
			report.DowntimeEvents = append(report.DowntimeEvents, e)
		}
	}
	for _, lot := range o.ProcessedLots {
		if within(lot.EndTime) {
			report.ProcessedLots = append(report.ProcessedLots, lot)
		}
	}

	switch o.Machine {
	case MachineTrefila:
		weights := make([]float64, 0, len(report.ProcessedLots))
		for _, lot := range report.ProcessedLots {
			if lot.FinalWeight != nil {
				weights = append(weights, *lot.FinalWeight)
			}
		}
		report.TotalProducedWeight = floats.Sum(weights)
		report.TotalProducedQuantity = log.QuantityDelta()
		gauge, err := ParseDecimal(o.TargetBitola)
		if err != nil {
			gauge = 0
		}
		report.TotalProducedMeters = MetersFromWeight(report.TotalProducedWeight, gauge)

	case MachineTrelica:
		tamanho := 0.0
		if model != nil {
			tamanho = model.Tamanho()
		}
		var weights []float64
		for _, pkg := range o.WeighedPackages {
			if within(pkg.Timestamp) {
				report.WeighedPackages = append(report.WeighedPackages, pkg)
				weights = append(weights, pkg.Weight)
				report.TotalProducedQuantity += pkg.Quantity
			}
		}
		if len(report.WeighedPackages) > 0 {
			report.TotalProducedWeight = floats.Sum(weights)
			report.TotalProducedMeters = float64(report.TotalProducedQuantity) * tamanho
		} else if delta := log.QuantityDelta(); delta > 0 && model != nil {
			report.TotalProducedQuantity = delta
			report.TotalProducedWeight = float64(delta) * model.PesoFinal
			report.TotalProducedMeters = float64(delta) * tamanho
			report.Estimated = true
		}
	}

	if o.EndTime != nil && !o.EndTime.Before(start) && !o.EndTime.After(end) {
		report.TotalScrapWeight = o.ScrapWeight
	}
	if denom := report.TotalProducedWeight + report.TotalScrapWeight; denom > 0 {
		report.ScrapPercentage = report.TotalScrapWeight / denom * 100
	}
	return report, nil
}
