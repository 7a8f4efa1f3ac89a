package application

import (
	"context"

	"github.com/mes-platform/production/services/production-service/internal/domain"
)

// CompleteOrder closes out production. The order, its stock lots and the
// finished goods are written in one transaction; completing a completed
// order returns it unchanged. Sessions still open are closed and reported.
func (s *ProductionService) CompleteOrder(ctx context.Context, cmd CompleteOrderCommand) (*CompletionDTO, error) {
	order, err := s.loadOrder(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if order.IsCompleted() {
		return &CompletionDTO{Order: *ToOrderDTO(order), AlreadyDone: true}, nil
	}
	if order.Status != domain.StatusInProgress {
		return nil, toAppError(domain.ErrOrderNotInProgress, "complete order")
	}

	var model *domain.TrussModel
	if order.Machine == domain.MachineTrelica {
		if model, err = s.findModel(ctx, order.TrussModel, order.TrussSize); err != nil {
			return nil, err
		}
	}

	stock, err := s.stock.FindByIDs(ctx, completionLotIDs(order))
	if err != nil {
		return nil, toAppError(err, "load stock")
	}
	active, err := s.activeHolders(ctx, order.OrderID, stock)
	if err != nil {
		return nil, err
	}

	now := s.now()
	final := domain.FinalData{Quantity: cmd.FinalQuantity, Pontas: toPontas(cmd.Pontas)}
	plan, err := domain.PlanCompletion(order, final, stock, model, active, now)
	if err != nil {
		return nil, toAppError(err, "complete order")
	}
	closed, err := order.Complete(plan, now)
	if err != nil {
		return nil, toAppError(err, "complete order")
	}

	orderVersion := order.Version
	events := append([]domain.DomainEvent(nil), order.DomainEvents()...)
	stockVersions := make([]int64, len(plan.StockUpdates))
	for i, item := range plan.StockUpdates {
		stockVersions[i] = item.Version
	}

	err = s.uow.WithTransaction(ctx, func(txCtx context.Context) error {
		// every attempt starts from the loaded versions and pending events
		order.Version = orderVersion
		order.ClearDomainEvents()
		for _, e := range events {
			order.AddDomainEvent(e)
		}
		for i, item := range plan.StockUpdates {
			item.Version = stockVersions[i]
		}

		if err := s.orders.Save(txCtx, order); err != nil {
			return err
		}
		for _, item := range plan.StockUpdates {
			if err := s.stock.Save(txCtx, item); err != nil {
				return err
			}
		}
		if len(plan.FinishedGoods) > 0 {
			if err := s.goods.InsertFinishedGoods(txCtx, plan.FinishedGoods); err != nil {
				return err
			}
		}
		if len(plan.PontaItems) > 0 {
			if err := s.goods.InsertPontas(txCtx, plan.PontaItems); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, toAppError(err, "complete order")
	}

	s.releaseMachine(ctx, order)
	s.recordCompletion(ctx, order, plan)
	s.broadcastStatus(ctx, order.Machine, nil)
	s.scheduleReports(ctx, order.OrderID, closed)

	return &CompletionDTO{
		Order:         *ToOrderDTO(order),
		Consumptions:  plan.Consumptions,
		FinishedGoods: plan.FinishedGoods,
		PontaItems:    plan.PontaItems,
	}, nil
}

// activeHolders resolves which other orders holding the lots are still open
func (s *ProductionService) activeHolders(ctx context.Context, orderID string, stock []*domain.StockItem) (domain.ActiveOrders, error) {
	seen := map[string]bool{}
	var holders []string
	for _, item := range stock {
		for _, id := range item.OtherOrders(orderID) {
			if !seen[id] {
				seen[id] = true
				holders = append(holders, id)
			}
		}
	}
	if len(holders) == 0 {
		return func(string) bool { return false }, nil
	}

	active, err := s.orders.FindActiveIDs(ctx, holders)
	if err != nil {
		return nil, toAppError(err, "find active holders")
	}
	return func(id string) bool { return active[id] }, nil
}

func (s *ProductionService) recordCompletion(ctx context.Context, order *domain.ProductionOrder, plan *domain.CompletionPlan) {
	machine := string(order.Machine)
	s.metrics.RecordOrderTransition(machine, string(order.Status))
	s.metrics.RecordProduced(machine, plan.ProducedWeight)
	for _, c := range plan.Consumptions {
		role := string(c.Role)
		if role == "" {
			role = "wire"
		}
		s.metrics.RecordConsumption(machine, role, c.Consumed, 0)
	}
	s.metrics.RecordConsumption(machine, "unallocated", 0, plan.Shortfall)

	log := s.logger.WithContext(ctx).WithOrder(order.OrderID, machine)
	if plan.Shortfall > 0 {
		log.Warn("Selected lots did not cover the truss consumption", "shortfallKg", plan.Shortfall)
	}
	s.logger.ProductionEvent(ctx, order.OrderID, "order_completed", map[string]any{
		"machine":          machine,
		"producedQuantity": plan.ProducedQuantity,
		"producedWeight":   plan.ProducedWeight,
		"scrapWeight":      plan.ScrapWeight,
		"lotsTouched":      len(plan.StockUpdates),
	})
}

// completionLotIDs is the selection plus any processed lot outside it
func completionLotIDs(order *domain.ProductionOrder) []string {
	ids := order.SelectedLots.AllLotIDs()
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}
	for _, lot := range order.ProcessedLots {
		if !seen[lot.LotID] {
			seen[lot.LotID] = true
			ids = append(ids, lot.LotID)
		}
	}
	return ids
}

func toPontas(in []PontaInput) []domain.Ponta {
	if len(in) == 0 {
		return nil
	}
	pontas := make([]domain.Ponta, 0, len(in))
	for _, p := range in {
		pontas = append(pontas, domain.Ponta{Quantity: p.Quantity, Size: p.Size, TotalWeight: p.TotalWeight})
	}
	return pontas
}
