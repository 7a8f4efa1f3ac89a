package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mes-platform/production/services/production-service/internal/domain"
	"github.com/mes-platform/production/shared/pkg/api"
	"github.com/mes-platform/production/shared/pkg/logging"
	"github.com/mes-platform/production/shared/pkg/metrics"
)

// Dependencies groups what ProductionService needs. Scheduler, Status,
// Metrics and Clock are optional.
type Dependencies struct {
	Orders     domain.OrderRepository
	Stock      domain.StockRepository
	Models     domain.TrussModelRepository
	Reports    domain.ShiftReportRepository
	Goods      domain.FinishedGoodsRepository
	Machines   domain.MachineAssignmentRepository
	UnitOfWork domain.UnitOfWork
	Scheduler  ReportScheduler
	Status     StatusPublisher
	Logger     *logging.Logger
	Metrics    *metrics.Metrics
	Clock      func() time.Time
}

// ProductionService handles production order use cases
type ProductionService struct {
	orders    domain.OrderRepository
	stock     domain.StockRepository
	models    domain.TrussModelRepository
	reports   domain.ShiftReportRepository
	goods     domain.FinishedGoodsRepository
	machines  domain.MachineAssignmentRepository
	uow       domain.UnitOfWork
	scheduler ReportScheduler
	status    StatusPublisher
	logger    *logging.Logger
	metrics   *metrics.Metrics
	clock     func() time.Time
}

// NewProductionService creates a new ProductionService
func NewProductionService(deps Dependencies) *ProductionService {
	s := &ProductionService{
		orders:    deps.Orders,
		stock:     deps.Stock,
		models:    deps.Models,
		reports:   deps.Reports,
		goods:     deps.Goods,
		machines:  deps.Machines,
		uow:       deps.UnitOfWork,
		scheduler: deps.Scheduler,
		status:    deps.Status,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
		clock:     deps.Clock,
	}
	if s.logger == nil {
		s.logger = logging.New(&logging.Config{ServiceName: "production-service", Output: io.Discard})
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.uow == nil {
		s.uow = passthroughUnitOfWork{}
	}
	if s.scheduler == nil {
		s.scheduler = NewInlineReportScheduler(s)
	}
	s.logger = s.logger.WithComponent("production-service")
	return s
}

type passthroughUnitOfWork struct{}

func (passthroughUnitOfWork) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// now truncates to the millisecond precision the store keeps
func (s *ProductionService) now() time.Time {
	return s.clock().UTC().Truncate(time.Millisecond)
}

// CreateOrder registers a pending order and reserves its lots
func (s *ProductionService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*OrderDTO, error) {
	machine := domain.Machine(strings.TrimSpace(cmd.Machine))
	if !machine.IsValid() {
		return nil, toAppError(domain.ErrInvalidMachine, "create order")
	}

	selection, err := domain.NormalizeSelection(machine, cmd.SelectedLots)
	if err != nil {
		return nil, toAppError(err, "create order")
	}

	var model *domain.TrussModel
	if machine == domain.MachineTrelica && strings.TrimSpace(cmd.TrussModel) != "" && strings.TrimSpace(cmd.TrussSize) != "" {
		model, err = s.findModel(ctx, cmd.TrussModel, cmd.TrussSize)
		if err != nil {
			return nil, err
		}
	}

	now := s.now()
	order, err := domain.NewProductionOrder(domain.NewOrderParams{
		OrderID:           uuid.NewString(),
		OrderNumber:       cmd.OrderNumber,
		Machine:           machine,
		TargetBitola:      cmd.TargetBitola,
		TrussModel:        cmd.TrussModel,
		TrussSize:         cmd.TrussSize,
		QuantityToProduce: cmd.QuantityToProduce,
		TotalWeight:       cmd.TotalWeight,
		SelectedLots:      selection,
	}, model, now)
	if err != nil {
		return nil, toAppError(err, "create order")
	}

	lotIDs := selection.AllLotIDs()
	lots, err := s.stock.FindByIDs(ctx, lotIDs)
	if err != nil {
		return nil, toAppError(err, "load stock")
	}
	if missing := missingLots(lotIDs, lots); len(missing) > 0 {
		return nil, toAppError(fmt.Errorf("%w: %s", domain.ErrStockItemNotFound, strings.Join(missing, ", ")), "create order")
	}

	err = s.uow.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.orders.Save(txCtx, order); err != nil {
			return err
		}
		for _, lot := range lots {
			lot.Reserve(order.OrderID, order.ReservedStatus(), order.OrderNumber, now)
			if err := s.stock.Save(txCtx, lot); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, toAppError(err, "create order")
	}

	s.metrics.RecordOrderTransition(string(order.Machine), string(order.Status))
	s.logger.ProductionEvent(ctx, order.OrderID, "order_created", map[string]any{
		"orderNumber": order.OrderNumber,
		"machine":     string(order.Machine),
		"lots":        len(lotIDs),
	})
	return ToOrderDTO(order), nil
}

// StartOrder takes the machine for the order, force-completing whatever ran on it
func (s *ProductionService) StartOrder(ctx context.Context, cmd StartOrderCommand) (*OrderDTO, error) {
	operator := strings.TrimSpace(cmd.Operator)
	if operator == "" {
		return nil, toAppError(domain.ErrEmptyOperator, "start order")
	}

	order, err := s.loadOrder(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if !order.CanTransition(domain.EventStart) {
		if order.IsCompleted() {
			return nil, toAppError(domain.ErrOrderCompleted, "start order")
		}
		return nil, toAppError(domain.ErrOrderNotPending, "start order")
	}

	result, err := s.machines.Acquire(ctx, order.Machine, order.OrderID)
	if err != nil {
		return nil, toAppError(err, "acquire machine")
	}
	started := false
	defer func() {
		if started {
			return
		}
		if err := s.machines.Release(ctx, order.Machine, order.OrderID); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to release machine after aborted start",
				"orderId", order.OrderID, "machine", string(order.Machine))
		}
	}()

	now := s.now()
	if err := s.replaceRunningOrders(ctx, order, result.Previous, now); err != nil {
		return nil, err
	}

	if err := order.Start(operator, now); err != nil {
		return nil, toAppError(err, "start order")
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, toAppError(err, "start order")
	}
	started = true

	s.metrics.RecordOrderTransition(string(order.Machine), string(order.Status))
	s.logger.Audit(ctx, "start", "production_order", order.OrderID, operator, map[string]any{
		"machine":  string(order.Machine),
		"replaced": result.Previous,
	})
	s.broadcastStatus(ctx, order.Machine, order)
	return ToOrderDTO(order), nil
}

// replaceRunningOrders force-completes every other in-progress order of the machine.
// Force completion closes all their logs, the starting operator's ghost shifts included.
func (s *ProductionService) replaceRunningOrders(ctx context.Context, order *domain.ProductionOrder, previous string, now time.Time) error {
	running, err := s.orders.FindActiveByMachine(ctx, order.Machine)
	if err != nil {
		return toAppError(err, "find running orders")
	}

	for _, sibling := range running {
		if sibling.OrderID == order.OrderID {
			continue
		}
		closed, err := sibling.ForceComplete(order.OrderID, now)
		if err != nil {
			return toAppError(err, "force complete order")
		}
		if err := s.orders.Save(ctx, sibling); err != nil {
			return toAppError(err, "force complete order")
		}
		s.scheduleReports(ctx, sibling.OrderID, closed)
		s.metrics.RecordOrderTransition(string(sibling.Machine), string(sibling.Status))
		s.logger.ProductionEvent(ctx, sibling.OrderID, "order_force_completed", map[string]any{
			"replacedBy":     order.OrderID,
			"assignmentHeld": sibling.OrderID == previous,
		})
	}
	return nil
}

// StartShift opens an operator session, closing the operator's sessions on other running orders of the machine
func (s *ProductionService) StartShift(ctx context.Context, cmd StartShiftCommand) (*OrderDTO, error) {
	operator := strings.TrimSpace(cmd.Operator)
	order, err := s.loadOrder(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := order.StartShift(operator, now); err != nil {
		return nil, toAppError(err, "start shift")
	}
	if err := s.closeGhostShifts(ctx, order, operator, now); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, toAppError(err, "start shift")
	}

	s.afterChange(ctx, order, "shift_started", map[string]any{"operator": operator})
	return ToOrderDTO(order), nil
}

func (s *ProductionService) closeGhostShifts(ctx context.Context, order *domain.ProductionOrder, operator string, now time.Time) error {
	running, err := s.orders.FindActiveByMachine(ctx, order.Machine)
	if err != nil {
		return toAppError(err, "find running orders")
	}
	for _, other := range running {
		if other.OrderID == order.OrderID || !other.CloseOperatorLogs(operator, now) {
			continue
		}
		if err := s.orders.Save(ctx, other); err != nil {
			return toAppError(err, "close ghost shift")
		}
		s.logger.ProductionEvent(ctx, other.OrderID, "ghost_shift_closed", map[string]any{"operator": operator})
	}
	return nil
}

// EndShift closes the operator's session and schedules its shift report
func (s *ProductionService) EndShift(ctx context.Context, cmd EndShiftCommand) (*OrderDTO, error) {
	var closed *domain.OperatorLog
	dto, err := s.mutate(ctx, cmd.OrderID, "shift_ended", func(o *domain.ProductionOrder, now time.Time) error {
		log, err := o.EndShift(cmd.Operator, cmd.FinalQuantity, now)
		closed = log
		return err
	})
	if err != nil {
		return nil, err
	}

	s.scheduleReports(ctx, dto.OrderID, []domain.OperatorLog{*closed})
	return dto, nil
}

// scheduleReports asks for one report per closed session. A failure is
// logged; the session stays in the order and can be reported later.
func (s *ProductionService) scheduleReports(ctx context.Context, orderID string, sessions []domain.OperatorLog) {
	for _, session := range sessions {
		req := ShiftReportRequest{OrderID: orderID, Operator: session.Operator, ShiftStart: session.StartTime}
		if err := s.scheduler.Schedule(ctx, req); err != nil {
			s.logger.WithContext(ctx).WithError(err).Error("Failed to schedule shift report",
				"orderId", req.OrderID, "operator", req.Operator)
		}
	}
}

// LogPostProductionActivity notes an activity on the operator's latest session
func (s *ProductionService) LogPostProductionActivity(ctx context.Context, cmd LogActivityCommand) (*OrderDTO, error) {
	return s.mutate(ctx, cmd.OrderID, "activity_logged", func(o *domain.ProductionOrder, now time.Time) error {
		return o.LogPostProductionActivity(cmd.Operator, cmd.Description, now)
	})
}

// LogDowntime stops the machine
func (s *ProductionService) LogDowntime(ctx context.Context, cmd LogDowntimeCommand) (*OrderDTO, error) {
	dto, err := s.mutate(ctx, cmd.OrderID, "downtime_logged", func(o *domain.ProductionOrder, now time.Time) error {
		return o.LogDowntime(cmd.Reason, now)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordDowntime(dto.Machine, strings.TrimSpace(cmd.Reason))
	return dto, nil
}

// ResumeProduction closes the open downtime event
func (s *ProductionService) ResumeProduction(ctx context.Context, cmd ResumeProductionCommand) (*OrderDTO, error) {
	return s.mutate(ctx, cmd.OrderID, "production_resumed", func(o *domain.ProductionOrder, now time.Time) error {
		return o.ResumeProduction(now)
	})
}

// StartLotProcessing puts a lot on the Trefila
func (s *ProductionService) StartLotProcessing(ctx context.Context, cmd LotCommand) (*OrderDTO, error) {
	return s.mutate(ctx, cmd.OrderID, "lot_started", func(o *domain.ProductionOrder, now time.Time) error {
		return o.StartLotProcessing(cmd.LotID, now)
	})
}

// FinishLotProcessing takes the active lot off the Trefila
func (s *ProductionService) FinishLotProcessing(ctx context.Context, cmd LotCommand) (*OrderDTO, error) {
	return s.mutate(ctx, cmd.OrderID, "lot_finished", func(o *domain.ProductionOrder, now time.Time) error {
		return o.FinishLotProcessing(cmd.LotID, now)
	})
}

// RecordLotWeight stores the weighing of a drawn lot
func (s *ProductionService) RecordLotWeight(ctx context.Context, cmd RecordLotWeightCommand) (*OrderDTO, error) {
	return s.mutate(ctx, cmd.OrderID, "lot_weighed", func(o *domain.ProductionOrder, now time.Time) error {
		return o.RecordLotWeight(cmd.LotID, cmd.FinalWeight, cmd.MeasuredGauge, now)
	})
}

// RecordPackageWeight stores a Treliça package, checked against the catalog weight
func (s *ProductionService) RecordPackageWeight(ctx context.Context, cmd RecordPackageWeightCommand) (*OrderDTO, error) {
	order, err := s.loadOrder(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}

	expected := 0.0
	if order.Machine == domain.MachineTrelica {
		model, err := s.findModel(ctx, order.TrussModel, order.TrussSize)
		if err != nil {
			return nil, err
		}
		if model != nil {
			expected = model.PesoFinal
		} else {
			s.logger.WithContext(ctx).WithOrder(order.OrderID, string(order.Machine)).Warn(
				"Truss model missing from catalog, package weight tolerance not checked",
				"model", order.TrussModel, "size", order.TrussSize)
		}
	}

	now := s.now()
	in := domain.PackageInput{
		PackageNumber:   cmd.PackageNumber,
		Quantity:        cmd.Quantity,
		Weight:          cmd.Weight,
		ManagerOverride: cmd.ManagerOverride,
	}
	if err := order.RecordPackageWeight(in, expected, now); err != nil {
		return nil, toAppError(err, "record package weight")
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, toAppError(err, "record package weight")
	}

	s.afterChange(ctx, order, "package_weighed", map[string]any{
		"packageNumber": cmd.PackageNumber,
		"override":      cmd.ManagerOverride,
	})
	return ToOrderDTO(order), nil
}

// UpdateProducedQuantity sets the running piece count
func (s *ProductionService) UpdateProducedQuantity(ctx context.Context, cmd UpdateProducedQuantityCommand) (*OrderDTO, error) {
	return s.mutate(ctx, cmd.OrderID, "quantity_updated", func(o *domain.ProductionOrder, now time.Time) error {
		return o.UpdateProducedQuantity(cmd.Quantity, now)
	})
}

// DeleteOrder removes an unfinished order and releases its lots and machine
func (s *ProductionService) DeleteOrder(ctx context.Context, cmd DeleteOrderCommand) error {
	order, err := s.loadOrder(ctx, cmd.OrderID)
	if err != nil {
		return err
	}
	if order.IsCompleted() {
		return toAppError(domain.ErrCannotDeleteCompleted, "delete order")
	}

	lots, err := s.stock.FindByIDs(ctx, order.SelectedLots.AllLotIDs())
	if err != nil {
		return toAppError(err, "load stock")
	}
	var held []*domain.StockItem
	released := make([]string, 0, len(lots))
	for _, lot := range lots {
		if lot.ReferencedBy(order.OrderID) {
			held = append(held, lot)
			released = append(released, lot.StockID)
		}
	}

	now := s.now()
	if err := order.MarkDeleted(released, now); err != nil {
		return toAppError(err, "delete order")
	}

	err = s.uow.WithTransaction(ctx, func(txCtx context.Context) error {
		for _, lot := range held {
			lot.Release(order.OrderID, order.OrderNumber, now)
			if err := s.stock.Save(txCtx, lot); err != nil {
				return err
			}
		}
		return s.orders.Delete(txCtx, order)
	})
	if err != nil {
		return toAppError(err, "delete order")
	}

	s.releaseMachine(ctx, order)
	s.logger.Audit(ctx, "delete", "production_order", order.OrderID, logging.OperatorFromContext(ctx), map[string]any{
		"releasedLots": released,
	})
	s.broadcastStatus(ctx, order.Machine, nil)
	return nil
}

// GetOrder retrieves an order by ID
func (s *ProductionService) GetOrder(ctx context.Context, orderID string) (*OrderDTO, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	dto := ToOrderDTO(order)
	if order.Status == domain.StatusInProgress {
		status := domain.DeriveMachineStatus(order.Machine, order, s.now())
		dto.MachineStatus = &status
	}
	return dto, nil
}

// ListOrders retrieves orders with filters and pagination
func (s *ProductionService) ListOrders(ctx context.Context, query ListOrdersQuery) (*api.PageResponse[OrderDTO], error) {
	filter := domain.OrderFilter{
		Machine: domain.Machine(strings.TrimSpace(query.Machine)),
		Status:  domain.Status(strings.TrimSpace(query.Status)),
	}
	if filter.Machine != "" && !filter.Machine.IsValid() {
		return nil, toAppError(domain.ErrInvalidMachine, "list orders")
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, toAppError(fmt.Errorf("%w: unknown status %q", domain.ErrValidation, filter.Status), "list orders")
	}

	pagination := domain.DefaultPagination()
	if query.Page > 0 {
		pagination.Page = query.Page
	}
	if query.PageSize > 0 {
		pagination.PageSize = query.PageSize
	}

	orders, err := s.orders.List(ctx, filter, pagination)
	if err != nil {
		return nil, toAppError(err, "list orders")
	}
	total, err := s.orders.Count(ctx, filter)
	if err != nil {
		return nil, toAppError(err, "count orders")
	}

	page := api.NewPageResponse(ToOrderDTOs(orders), pagination.Page, pagination.Limit(), total)
	return &page, nil
}

// GetMachineStatus derives the current state of a machine
func (s *ProductionService) GetMachineStatus(ctx context.Context, machine string) (*domain.MachineStatus, error) {
	m := domain.Machine(strings.TrimSpace(machine))
	if !m.IsValid() {
		return nil, toAppError(domain.ErrInvalidMachine, "machine status")
	}
	running, err := s.orders.FindActiveByMachine(ctx, m)
	if err != nil {
		return nil, toAppError(err, "machine status")
	}
	status := domain.DeriveMachineStatus(m, latestStarted(running), s.now())
	return &status, nil
}

// ListShiftReports retrieves shift reports, newest first
func (s *ProductionService) ListShiftReports(ctx context.Context, query ListShiftReportsQuery) ([]*domain.ShiftReport, error) {
	pagination := domain.DefaultPagination()
	if query.Page > 0 {
		pagination.Page = query.Page
	}
	if query.PageSize > 0 {
		pagination.PageSize = query.PageSize
	}
	reports, err := s.reports.List(ctx, strings.TrimSpace(query.OrderID), pagination)
	if err != nil {
		return nil, toAppError(err, "list shift reports")
	}
	if reports == nil {
		reports = []*domain.ShiftReport{}
	}
	return reports, nil
}

// ListTrussModels retrieves the truss catalog
func (s *ProductionService) ListTrussModels(ctx context.Context) ([]TrussModelDTO, error) {
	models, err := s.models.List(ctx)
	if err != nil {
		return nil, toAppError(err, "list truss models")
	}
	return ToTrussModelDTOs(models), nil
}

// mutate runs one read-modify-write action on an order
func (s *ProductionService) mutate(ctx context.Context, orderID, action string, fn func(o *domain.ProductionOrder, now time.Time) error) (*OrderDTO, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := fn(order, s.now()); err != nil {
		return nil, toAppError(err, action)
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, toAppError(err, action)
	}
	s.afterChange(ctx, order, action, nil)
	return ToOrderDTO(order), nil
}

func (s *ProductionService) afterChange(ctx context.Context, order *domain.ProductionOrder, action string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["machine"] = string(order.Machine)
	data["status"] = string(order.Status)
	s.logger.ProductionEvent(ctx, order.OrderID, action, data)
	s.broadcastStatus(ctx, order.Machine, order)
}

// broadcastStatus publishes the machine state after a change. A nil or
// no longer running order means the machine's running order is looked up.
func (s *ProductionService) broadcastStatus(ctx context.Context, machine domain.Machine, order *domain.ProductionOrder) {
	current := order
	if current == nil || current.Status != domain.StatusInProgress {
		running, err := s.orders.FindActiveByMachine(ctx, machine)
		if err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to load running order for status broadcast",
				"machine", string(machine))
			return
		}
		current = latestStarted(running)
	}

	status := domain.DeriveMachineStatus(machine, current, s.now())
	all := make([]string, len(domain.MachineStates))
	for i, st := range domain.MachineStates {
		all[i] = string(st)
	}
	s.metrics.SetMachineStatus(string(machine), string(status.Status), all)

	if s.status == nil {
		return
	}
	if err := s.status.PublishStatus(ctx, status); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Failed to publish machine status",
			"machine", string(machine), "status", string(status.Status))
	}
}

func (s *ProductionService) releaseMachine(ctx context.Context, order *domain.ProductionOrder) {
	if err := s.machines.Release(ctx, order.Machine, order.OrderID); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Failed to release machine assignment",
			"orderId", order.OrderID, "machine", string(order.Machine))
	}
}

func (s *ProductionService) loadOrder(ctx context.Context, orderID string) (*domain.ProductionOrder, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, toAppError(domain.ErrOrderNotFound, "load order")
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, toAppError(err, "load order")
	}
	if order == nil {
		return nil, toAppError(domain.ErrOrderNotFound, "load order")
	}
	return order, nil
}

// findModel returns the catalog row, nil when the catalog has none
func (s *ProductionService) findModel(ctx context.Context, model, size string) (*domain.TrussModel, error) {
	m, err := s.models.Find(ctx, model, size)
	if errors.Is(err, domain.ErrTrussModelNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, toAppError(err, "find truss model")
	}
	return m, nil
}

func latestStarted(orders []*domain.ProductionOrder) *domain.ProductionOrder {
	var latest *domain.ProductionOrder
	for _, o := range orders {
		if o.Status != domain.StatusInProgress {
			continue
		}
		if latest == nil || startOf(o).After(startOf(latest)) {
			latest = o
		}
	}
	return latest
}

func startOf(o *domain.ProductionOrder) time.Time {
	if o.StartTime == nil {
		return time.Time{}
	}
	return *o.StartTime
}

func missingLots(ids []string, found []*domain.StockItem) []string {
	seen := make(map[string]bool, len(found))
	for _, item := range found {
		seen[item.StockID] = true
	}
	var missing []string
	for _, id := range ids {
		if !seen[id] {
			missing = append(missing, id)
		}
	}
	return missing
}
