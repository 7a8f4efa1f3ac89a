package application

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mes-platform/production/services/production-service/internal/domain"
)

// MockOrderRepository is an in-memory OrderRepository with version checks
// against the last committed version of each order
type MockOrderRepository struct {
	orders    map[string]*domain.ProductionOrder
	committed map[string]int64
	events    []domain.DomainEvent
	saveErr error
	findErr error
	saves   int
}

func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders:    make(map[string]*domain.ProductionOrder),
		committed: make(map[string]int64),
	}
}

func (m *MockOrderRepository) Save(ctx context.Context, order *domain.ProductionOrder) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	committed, exists := m.committed[order.OrderID]
	switch {
	case order.Version == 0 && exists:
		return domain.ErrConcurrentModification
	case order.Version > 0 && (!exists || committed != order.Version):
		return domain.ErrConcurrentModification
	}
	order.Version++
	m.committed[order.OrderID] = order.Version
	m.orders[order.OrderID] = order
	m.events = append(m.events, order.DomainEvents()...)
	order.ClearDomainEvents()
	m.saves++
	return nil
}

func (m *MockOrderRepository) FindByID(ctx context.Context, orderID string) (*domain.ProductionOrder, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.orders[orderID], nil
}

func (m *MockOrderRepository) FindActiveByMachine(ctx context.Context, machine domain.Machine) ([]*domain.ProductionOrder, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	var result []*domain.ProductionOrder
	for _, order := range m.orders {
		if order.Machine == machine && order.Status == domain.StatusInProgress {
			result = append(result, order)
		}
	}
	return result, nil
}

func (m *MockOrderRepository) FindActiveIDs(ctx context.Context, orderIDs []string) (map[string]bool, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	active := make(map[string]bool)
	for _, id := range orderIDs {
		if order, ok := m.orders[id]; ok && order.Status != domain.StatusCompleted {
			active[id] = true
		}
	}
	return active, nil
}

func (m *MockOrderRepository) List(ctx context.Context, filter domain.OrderFilter, pagination domain.Pagination) ([]*domain.ProductionOrder, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	var result []*domain.ProductionOrder
	for _, order := range m.orders {
		if filter.Machine != "" && order.Machine != filter.Machine {
			continue
		}
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		result = append(result, order)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m *MockOrderRepository) Count(ctx context.Context, filter domain.OrderFilter) (int64, error) {
	orders, err := m.List(ctx, filter, domain.DefaultPagination())
	return int64(len(orders)), err
}

func (m *MockOrderRepository) Delete(ctx context.Context, order *domain.ProductionOrder) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	committed, ok := m.committed[order.OrderID]
	if !ok || committed != order.Version {
		return domain.ErrConcurrentModification
	}
	m.events = append(m.events, order.DomainEvents()...)
	order.ClearDomainEvents()
	delete(m.orders, order.OrderID)
	delete(m.committed, order.OrderID)
	return nil
}

func (m *MockOrderRepository) eventTypes() []string {
	types := make([]string, 0, len(m.events))
	for _, e := range m.events {
		types = append(types, e.EventType())
	}
	return types
}

// MockStockRepository is an in-memory StockRepository
type MockStockRepository struct {
	items   map[string]*domain.StockItem
	saveErr error
	saves   int
}

func NewMockStockRepository(items ...*domain.StockItem) *MockStockRepository {
	m := &MockStockRepository{items: make(map[string]*domain.StockItem)}
	for _, item := range items {
		m.items[item.StockID] = item
	}
	return m
}

func (m *MockStockRepository) FindByIDs(ctx context.Context, stockIDs []string) ([]*domain.StockItem, error) {
	var result []*domain.StockItem
	for _, id := range stockIDs {
		if item, ok := m.items[id]; ok {
			result = append(result, item)
		}
	}
	return result, nil
}

func (m *MockStockRepository) Save(ctx context.Context, item *domain.StockItem) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	if stored, ok := m.items[item.StockID]; ok && stored != item && stored.Version != item.Version {
		return domain.ErrConcurrentModification
	}
	item.Version++
	m.items[item.StockID] = item
	m.saves++
	return nil
}

// MockTrussModelRepository serves a fixed catalog
type MockTrussModelRepository struct {
	models []domain.TrussModel
}

func (m *MockTrussModelRepository) Find(ctx context.Context, model, size string) (*domain.TrussModel, error) {
	return domain.FindTrussModel(m.models, model, size)
}

func (m *MockTrussModelRepository) List(ctx context.Context) ([]domain.TrussModel, error) {
	return m.models, nil
}

func (m *MockTrussModelRepository) SeedIfEmpty(ctx context.Context, models []domain.TrussModel) (int, error) {
	if len(m.models) > 0 {
		return 0, nil
	}
	m.models = models
	return len(models), nil
}

// MockShiftReportRepository stores reports once per session
type MockShiftReportRepository struct {
	reports []*domain.ShiftReport
}

func (m *MockShiftReportRepository) Insert(ctx context.Context, report *domain.ShiftReport) error {
	for _, r := range m.reports {
		if r.OrderID == report.OrderID && r.Operator == report.Operator && r.ShiftStartTime.Equal(report.ShiftStartTime) {
			return domain.ErrShiftReportExists
		}
	}
	m.reports = append(m.reports, report)
	return nil
}

func (m *MockShiftReportRepository) List(ctx context.Context, orderID string, pagination domain.Pagination) ([]*domain.ShiftReport, error) {
	var result []*domain.ShiftReport
	for _, r := range m.reports {
		if orderID == "" || r.OrderID == orderID {
			result = append(result, r)
		}
	}
	return result, nil
}

// MockFinishedGoodsRepository collects finished stock
type MockFinishedGoodsRepository struct {
	goods  []domain.FinishedGood
	pontas []domain.PontaItem
}

func (m *MockFinishedGoodsRepository) InsertFinishedGoods(ctx context.Context, goods []domain.FinishedGood) error {
	m.goods = append(m.goods, goods...)
	return nil
}

func (m *MockFinishedGoodsRepository) InsertPontas(ctx context.Context, pontas []domain.PontaItem) error {
	m.pontas = append(m.pontas, pontas...)
	return nil
}

func (m *MockFinishedGoodsRepository) FindByOrder(ctx context.Context, orderID string) ([]domain.FinishedGood, []domain.PontaItem, error) {
	return m.goods, m.pontas, nil
}

// MockMachineAssignmentRepository holds one claim per machine
type MockMachineAssignmentRepository struct {
	mu          sync.Mutex
	assignments map[domain.Machine]*domain.MachineAssignment
	acquireErr  error
}

func NewMockMachineAssignmentRepository() *MockMachineAssignmentRepository {
	return &MockMachineAssignmentRepository{assignments: make(map[domain.Machine]*domain.MachineAssignment)}
}

func (m *MockMachineAssignmentRepository) Acquire(ctx context.Context, machine domain.Machine, orderID string) (*domain.AcquireResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.acquireErr != nil {
		return nil, m.acquireErr
	}
	result := &domain.AcquireResult{}
	current := m.assignments[machine]
	if !current.IsFree() && !current.HeldBy(orderID) {
		result.Previous = current.OrderID
	}
	version := int64(0)
	if current != nil {
		version = current.Version
	}
	next := &domain.MachineAssignment{Machine: machine, OrderID: orderID, AcquiredAt: time.Now(), Version: version + 1}
	m.assignments[machine] = next
	result.Assignment = *next
	return result, nil
}

func (m *MockMachineAssignmentRepository) Release(ctx context.Context, machine domain.Machine, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if current := m.assignments[machine]; current.HeldBy(orderID) {
		current.OrderID = ""
		current.Version++
	}
	return nil
}

func (m *MockMachineAssignmentRepository) Get(ctx context.Context, machine domain.Machine) (*domain.MachineAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.assignments[machine], nil
}

// abortOnceUnitOfWork rolls back the first attempt after its writes, the way
// a transient commit error does, and runs the callback again
type abortOnceUnitOfWork struct {
	orders   *MockOrderRepository
	stock    *MockStockRepository
	goods    *MockFinishedGoodsRepository
	attempts int
}

func (u *abortOnceUnitOfWork) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	u.attempts++
	committed := make(map[string]int64, len(u.orders.committed))
	for id, v := range u.orders.committed {
		committed[id] = v
	}
	events, goods, pontas := len(u.orders.events), len(u.goods.goods), len(u.goods.pontas)
	stockVersions := make(map[string]int64, len(u.stock.items))
	for id, item := range u.stock.items {
		stockVersions[id] = item.Version
	}

	if err := fn(ctx); err != nil {
		return err
	}
	if u.attempts > 1 {
		return nil
	}

	u.orders.committed = committed
	u.orders.events = u.orders.events[:events]
	u.goods.goods = u.goods.goods[:goods]
	u.goods.pontas = u.goods.pontas[:pontas]
	for id, v := range stockVersions {
		u.stock.items[id].Version = v
	}
	return u.WithTransaction(ctx, fn)
}

// recordingScheduler captures report requests instead of generating them
type recordingScheduler struct {
	requests []ShiftReportRequest
	err      error
}

func (r *recordingScheduler) Schedule(ctx context.Context, req ShiftReportRequest) error {
	r.requests = append(r.requests, req)
	return r.err
}

// recordingStatusPublisher captures broadcast machine status
type recordingStatusPublisher struct {
	published []domain.MachineStatus
}

func (r *recordingStatusPublisher) PublishStatus(ctx context.Context, status domain.MachineStatus) error {
	r.published = append(r.published, status)
	return nil
}

func (r *recordingStatusPublisher) last() domain.MachineStatus {
	if len(r.published) == 0 {
		return domain.MachineStatus{}
	}
	return r.published[len(r.published)-1]
}

// tickingClock advances one minute per reading
type tickingClock struct {
	current time.Time
}

func (c *tickingClock) Now() time.Time {
	c.current = c.current.Add(time.Minute)
	return c.current
}
