package domain

import (
	"math"
	"sort"
	"strings"
	"time"
)

// PackageWeightTolerance is the accepted relative deviation of a weighed package
const PackageWeightTolerance = 0.01

// ActiveLot is the lot currently on the drawing machine
type ActiveLot struct {
	LotID     string    `bson:"lotId" json:"lotId"`
	StartTime time.Time `bson:"startTime" json:"startTime"`
}

// ProcessedLot is a drawn lot awaiting or carrying its weighing
type ProcessedLot struct {
	LotID         string    `bson:"lotId" json:"lotId"`
	StartTime     time.Time `bson:"startTime" json:"startTime"`
	EndTime       time.Time `bson:"endTime" json:"endTime"`
	FinalWeight   *float64  `bson:"finalWeight" json:"finalWeight"`
	MeasuredGauge *float64  `bson:"measuredGauge" json:"measuredGauge"`
}

// WeighedPackage is a weighed bundle of trusses, keyed by package number
type WeighedPackage struct {
	PackageNumber int       `bson:"packageNumber" json:"packageNumber"`
	Quantity      int       `bson:"quantity" json:"quantity"`
	Weight        float64   `bson:"weight" json:"weight"`
	Timestamp     time.Time `bson:"timestamp" json:"timestamp"`
}

// PackageInput is one package weighing
type PackageInput struct {
	PackageNumber   int
	Quantity        int
	Weight          float64
	ManagerOverride bool
}

// StartLotProcessing puts a selected lot on the Trefila and resumes production
func (o *ProductionOrder) StartLotProcessing(lotID string, now time.Time) error {
	lotID = strings.TrimSpace(lotID)
	if err := o.requireInProgress(); err != nil {
		return err
	}
	if o.Machine != MachineTrefila {
		return ErrMachineMismatch
	}
	if !o.SelectedLots.Contains(lotID) {
		return ErrLotNotSelected
	}
	if o.ActiveLot != nil {
		return ErrLotAlreadyActive
	}

	o.ActiveLot = &ActiveLot{LotID: lotID, StartTime: now}
	o.Downtime.Close(now)
	o.UpdatedAt = now

	o.AddDomainEvent(NewLotStartedEvent(o, lotID, now))
	return nil
}

// FinishLotProcessing takes the active lot off the machine. The lot waits for
// its weighing and the machine waits in roll change for the next lot.
func (o *ProductionOrder) FinishLotProcessing(lotID string, now time.Time) error {
	lotID = strings.TrimSpace(lotID)
	if err := o.requireInProgress(); err != nil {
		return err
	}
	if o.ActiveLot == nil || o.ActiveLot.LotID != lotID {
		return ErrLotNotActive
	}

	o.ProcessedLots = append(o.ProcessedLots, ProcessedLot{
		LotID:     lotID,
		StartTime: o.ActiveLot.StartTime,
		EndTime:   now,
	})
	o.ActiveLot = nil
	if err := o.Downtime.Open(ReasonRollChange, now); err != nil {
		return err
	}
	o.UpdatedAt = now

	o.AddDomainEvent(NewLotFinishedEvent(o, lotID, now))
	return nil
}

// RecordLotWeight merges the non-nil measurements into the processed lot.
// Weighing trails the machine, so completed orders accept it too.
func (o *ProductionOrder) RecordLotWeight(lotID string, finalWeight, measuredGauge *float64, now time.Time) error {
	lotID = strings.TrimSpace(lotID)
	if finalWeight != nil && *finalWeight < 0 {
		return ErrInvalidQuantity
	}
	if measuredGauge != nil && *measuredGauge <= 0 {
		return validationError("measured gauge must be positive")
	}

	for i := len(o.ProcessedLots) - 1; i >= 0; i-- {
		lot := &o.ProcessedLots[i]
		if lot.LotID != lotID {
			continue
		}
		if finalWeight != nil {
			w := *finalWeight
			lot.FinalWeight = &w
		}
		if measuredGauge != nil {
			g := *measuredGauge
			lot.MeasuredGauge = &g
		}
		o.UpdatedAt = now
		o.AddDomainEvent(NewLotWeighedEvent(o, *lot, now))
		return nil
	}
	return ErrProcessedLotMissing
}

// RecordPackageWeight upserts a Treliça package. expectedPerPiece is the
// catalog weight of one truss; a package deviating more than 1% from
// expectedPerPiece × quantity needs a manager override.
func (o *ProductionOrder) RecordPackageWeight(in PackageInput, expectedPerPiece float64, now time.Time) error {
	if o.Machine != MachineTrelica {
		return ErrMachineMismatch
	}
	if o.IsCompleted() {
		return ErrOrderCompleted
	}
	if in.PackageNumber <= 0 || in.Quantity <= 0 || in.Weight < 0 {
		return ErrInvalidPackage
	}

	expected := expectedPerPiece * float64(in.Quantity)
	if expected > 0 && !in.ManagerOverride {
		if math.Abs(in.Weight-expected) > expected*PackageWeightTolerance {
			return ErrPackageWeightTolerance
		}
	}

	pkg := WeighedPackage{
		PackageNumber: in.PackageNumber,
		Quantity:      in.Quantity,
		Weight:        in.Weight,
		Timestamp:     now,
	}
	replaced := false
	for i := range o.WeighedPackages {
		if o.WeighedPackages[i].PackageNumber == in.PackageNumber {
			o.WeighedPackages[i] = pkg
			replaced = true
			break
		}
	}
	if !replaced {
		o.WeighedPackages = append(o.WeighedPackages, pkg)
	}
	sort.SliceStable(o.WeighedPackages, func(i, j int) bool {
		return o.WeighedPackages[i].PackageNumber < o.WeighedPackages[j].PackageNumber
	})

	if total := o.PackagedQuantity(); total > o.ActualProducedQuantity {
		o.ActualProducedQuantity = total
	}
	o.UpdatedAt = now

	o.AddDomainEvent(NewPackageWeighedEvent(o, pkg, expected, in.ManagerOverride, now))
	return nil
}

// PackagedQuantity sums pieces over weighed packages
func (o *ProductionOrder) PackagedQuantity() int {
	total := 0
	for _, p := range o.WeighedPackages {
		total += p.Quantity
	}
	return total
}

// PackagedWeight sums weight over weighed packages
func (o *ProductionOrder) PackagedWeight() float64 {
	total := 0.0
	for _, p := range o.WeighedPackages {
		total += p.Weight
	}
	return total
}
