package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"
)

// ConsumedThreshold is the residual weight at or below which a lot counts as used up
const ConsumedThreshold = 0.05

// FinalData is what the operator reports when closing an order
type FinalData struct {
	Quantity *int
	Pontas   []Ponta
}

// Consumption describes what completion did to one stock lot
type Consumption struct {
	LotID           string      `json:"lotId"`
	InternalLot     string      `json:"internalLot"`
	Role            Role        `json:"role,omitempty"`
	Consumed        float64     `json:"consumed"`
	PreviousBalance float64     `json:"previousBalance"`
	NewBalance      float64     `json:"newBalance"`
	NewStatus       StockStatus `json:"newStatus"`
}

// CompletionPlan is every write a completion performs, computed up front
// so the order and its stock can be persisted together.
type CompletionPlan struct {
	OrderID          string
	ProducedQuantity int
	ProducedWeight   float64
	ScrapWeight      float64
	Shortfall        float64
	Pontas           []Ponta
	StockUpdates     []*StockItem
	FinishedGoods    []FinishedGood
	PontaItems       []PontaItem
	Consumptions     []Consumption
}

// ActiveOrders reports whether an order id is pending or in progress
type ActiveOrders func(orderID string) bool

// PlanCompletion computes the completion of an in-progress order against a
// fresh stock snapshot. Inputs are not mutated; touched lots are returned as copies.
func PlanCompletion(o *ProductionOrder, final FinalData, stock []*StockItem, model *TrussModel, active ActiveOrders, now time.Time) (*CompletionPlan, error) {
	if err := o.requireInProgress(); err != nil {
		return nil, err
	}
	if final.Quantity != nil && *final.Quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	if active == nil {
		active = func(string) bool { return false }
	}

	switch o.Machine {
	case MachineTrefila:
		return planTrefila(o, final, stock, now), nil
	case MachineTrelica:
		if model == nil {
			return nil, ErrTrussModelNotFound
		}
		if err := model.Validate(); err != nil {
			return nil, err
		}
		return planTrelica(o, final, stock, model, active, now)
	default:
		return nil, ErrInvalidMachine
	}
}

func indexStock(stock []*StockItem) map[string]*StockItem {
	idx := make(map[string]*StockItem, len(stock))
	for _, s := range stock {
		idx[strings.TrimSpace(s.StockID)] = s
	}
	return idx
}

func (s *StockItem) clone() *StockItem {
	c := *s
	c.ProductionOrderIDs = append([]string(nil), s.ProductionOrderIDs...)
	c.History = append([]HistoryEntry(nil), s.History...)
	return &c
}

func formatKg(v float64) string {
	return fmt.Sprintf("%.2f kg", v)
}

// planTrefila turns every drawn lot into CA-60 of the target gauge and
// releases the selected lots that never went through the machine.
func planTrefila(o *ProductionOrder, final FinalData, stock []*StockItem, now time.Time) *CompletionPlan {
	idx := indexStock(stock)
	plan := &CompletionPlan{
		OrderID:          o.OrderID,
		ProducedQuantity: o.ActualProducedQuantity,
	}
	if final.Quantity != nil {
		plan.ProducedQuantity = *final.Quantity
	}

	processed := make(map[string]bool, len(o.ProcessedLots))
	outputs := make([]float64, 0, len(o.ProcessedLots))
	inputs := make([]float64, 0, len(o.ProcessedLots))
	for _, lot := range o.ProcessedLots {
		if processed[lot.LotID] {
			continue
		}
		processed[lot.LotID] = true

		finalWeight := 0.0
		if lot.FinalWeight != nil {
			finalWeight = *lot.FinalWeight
		}
		outputs = append(outputs, finalWeight)

		item, ok := idx[lot.LotID]
		if !ok {
			continue
		}
		inputs = append(inputs, item.InitialQuantity)

		updated := item.clone()
		updated.History = append(updated.History, HistoryEntry{
			Type: HistoryTransformedCA60,
			Date: now,
			Details: map[string]string{
				"Ordem":           o.OrderNumber,
				"Bitola Original": item.Bitola,
				"Bitola Final":    o.TargetBitola,
				"Peso Final":      formatKg(finalWeight),
			},
		})
		updated.MaterialType = MaterialCA60
		updated.Bitola = o.TargetBitola
		updated.LabelWeight = finalWeight
		updated.InitialQuantity = finalWeight
		updated.RemainingQuantity = finalWeight
		updated.Status = StockAvailable
		updated.ProductionOrderIDs = nil
		plan.StockUpdates = append(plan.StockUpdates, updated)
		plan.Consumptions = append(plan.Consumptions, Consumption{
			LotID:           item.StockID,
			InternalLot:     item.InternalLot,
			Consumed:        item.RemainingQuantity,
			PreviousBalance: item.RemainingQuantity,
			NewBalance:      finalWeight,
			NewStatus:       StockAvailable,
		})
	}

	for _, id := range o.SelectedLots.AllLotIDs() {
		if processed[id] {
			continue
		}
		item, ok := idx[id]
		if !ok || !item.ReferencedBy(o.OrderID) {
			continue
		}
		released := item.clone()
		released.Release(o.OrderID, o.OrderNumber, now)
		plan.StockUpdates = append(plan.StockUpdates, released)
	}

	plan.ProducedWeight = floats.Sum(outputs)
	plan.ScrapWeight = math.Max(0, floats.Sum(inputs)-plan.ProducedWeight)
	return plan
}

// resolveQuantity never returns 0 when the order planned pieces
func resolveQuantity(o *ProductionOrder, final FinalData) int {
	if final.Quantity != nil && *final.Quantity > 0 {
		return *final.Quantity
	}
	if o.ActualProducedQuantity > 0 {
		return o.ActualProducedQuantity
	}
	return o.QuantityToProduce
}

// RoleRequirements is the weight each role must supply for qty pieces plus pontas.
// Inferior and senozoide weights are split evenly between the left and right lots.
func RoleRequirements(model *TrussModel, qty int, pontas []Ponta) map[Role]float64 {
	group := func(perPiece float64) float64 {
		total := perPiece * float64(qty)
		if model.PesoFinal > 0 {
			for _, p := range pontas {
				total += perPiece / model.PesoFinal * p.TotalWeight
			}
		}
		return total
	}

	superior := group(model.PesoSuperior)
	inferior := group(model.PesoInferior)
	senozoide := group(model.PesoSenozoide)
	return map[Role]float64{
		RoleSuperior:       superior,
		RoleInferiorLeft:   inferior / 2,
		RoleInferiorRight:  inferior / 2,
		RoleSenozoideLeft:  senozoide / 2,
		RoleSenozoideRight: senozoide / 2,
	}
}

// planTrelica draws the per-role requirement from the selected lots and
// books the trusses and pontas into finished stock.
func planTrelica(o *ProductionOrder, final FinalData, stock []*StockItem, model *TrussModel, active ActiveOrders, now time.Time) (*CompletionPlan, error) {
	qty := resolveQuantity(o, final)

	pontas := make([]Ponta, 0, len(final.Pontas))
	for _, p := range final.Pontas {
		if p.Quantity <= 0 || p.Size <= 0 || p.TotalWeight < 0 {
			return nil, validationError("ponta quantity and size must be positive")
		}
		if p.TotalWeight == 0 {
			p.TotalWeight = model.PontaWeight(p.Size, p.Quantity)
		}
		pontas = append(pontas, p)
	}

	weights := make([]float64, 0, len(o.WeighedPackages))
	for _, pkg := range o.WeighedPackages {
		weights = append(weights, pkg.Weight)
	}
	produced := floats.Sum(weights)
	if produced == 0 {
		produced = round2(model.PesoFinal * float64(qty))
	}

	plan := &CompletionPlan{
		OrderID:          o.OrderID,
		ProducedQuantity: qty,
		ProducedWeight:   produced,
		ScrapWeight:      o.ScrapWeight,
		Pontas:           pontas,
	}

	idx := indexStock(stock)
	distributor := NewDistributor(stock)
	requirements := RoleRequirements(model, qty, pontas)

	roleOf := make(map[string]Role)
	var involved []string
	touch := func(id string, role Role) {
		if _, seen := roleOf[id]; seen {
			return
		}
		roleOf[id] = role
		involved = append(involved, id)
	}

	var shortfalls []float64
	for _, role := range Roles {
		lots := o.SelectedLots.LotsFor(role)
		for _, id := range lots {
			touch(id, role)
		}
		required := requirements[role]
		if len(lots) == 0 || required <= 0 {
			continue
		}
		alloc := distributor.Distribute(lots, required)
		if alloc.Shortfall > 0 {
			shortfalls = append(shortfalls, alloc.Shortfall)
		}
	}
	plan.Shortfall = round2(floats.Sum(shortfalls))

	for _, id := range involved {
		item, ok := idx[id]
		if !ok {
			continue
		}
		consumed := distributor.Consumed(item.StockID)
		previous := item.RemainingQuantity
		remaining := math.Max(0, previous-consumed)

		others := item.OtherOrders(o.OrderID)
		var status StockStatus
		switch {
		case remaining <= ConsumedThreshold:
			status = StockConsumedForTruss
			remaining = 0
		case !anyActive(others, active):
			status = StockTrussSupport
		default:
			status = StockInProductionTrelica
		}

		updated := item.clone()
		updated.RemainingQuantity = round2(remaining)
		updated.LabelWeight = round2(remaining)
		updated.ProductionOrderIDs = others
		updated.Status = status
		updated.Location = roleOf[id].Label()
		updated.History = append(updated.History, HistoryEntry{
			Type: HistoryTrussConsumption,
			Date: now,
			Details: map[string]string{
				"Ordem":          o.OrderNumber,
				"Qtd Consumida":  formatKg(consumed),
				"Saldo Anterior": formatKg(previous),
				"Saldo Novo":     formatKg(remaining),
				"Status Novo":    string(status),
			},
		})
		plan.StockUpdates = append(plan.StockUpdates, updated)
		plan.Consumptions = append(plan.Consumptions, Consumption{
			LotID:           item.StockID,
			InternalLot:     item.InternalLot,
			Role:            roleOf[id],
			Consumed:        round2(consumed),
			PreviousBalance: previous,
			NewBalance:      updated.RemainingQuantity,
			NewStatus:       status,
		})
	}

	if produced > 0 {
		plan.FinishedGoods = append(plan.FinishedGoods, newFinishedGood(o, qty, produced, now))
	}
	for _, p := range pontas {
		plan.PontaItems = append(plan.PontaItems, newPontaItem(o, p, now))
	}
	return plan, nil
}

func anyActive(orderIDs []string, active ActiveOrders) bool {
	for _, id := range orderIDs {
		if active(id) {
			return true
		}
	}
	return false
}
