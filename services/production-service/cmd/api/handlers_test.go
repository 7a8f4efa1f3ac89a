package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	productionservice "github.com/mes-platform/production/services/production-service"
	"github.com/mes-platform/production/services/production-service/internal/application"
	"github.com/mes-platform/production/services/production-service/internal/domain"
	"github.com/mes-platform/production/shared/pkg/api"
	"github.com/mes-platform/production/shared/pkg/contracts/openapi"
	"github.com/mes-platform/production/shared/pkg/errors"
	"github.com/mes-platform/production/shared/pkg/logging"
	"github.com/mes-platform/production/shared/pkg/middleware"
	"github.com/mes-platform/production/shared/pkg/mongodb"
)

type mockProductionService struct {
	mock.Mock
}

func orderResult(args mock.Arguments) (*application.OrderDTO, error) {
	dto, _ := args.Get(0).(*application.OrderDTO)
	return dto, args.Error(1)
}

func (m *mockProductionService) CreateOrder(ctx context.Context, cmd application.CreateOrderCommand) (*application.OrderDTO, error) {
	return orderResult(m.Called(ctx, cmd))
}

func (m *mockProductionService) GetOrder(ctx context.Context, orderID string) (*application.OrderDTO, error) {
	return orderResult(m.Called(ctx, orderID))
}

func (m *mockProductionService) ListOrders(ctx context.Context, query application.ListOrdersQuery) (*api.PageResponse[application.OrderDTO], error) {
	args := m.Called(ctx, query)
	page, _ := args.Get(0).(*api.PageResponse[application.OrderDTO])
	return page, args.Error(1)
}

func (m *mockProductionService) DeleteOrder(ctx context.Context, cmd application.DeleteOrderCommand) error {
	return m.Called(ctx, cmd).Error(0)
}

func (m *mockProductionService) StartOrder(ctx context.Context, cmd application.StartOrderCommand) (*application.OrderDTO, error) {
	return orderResult(m.Called(ctx, cmd))
}

func (m *mockProductionService) StartShift(ctx context.Context, cmd application.StartShiftCommand) (*application.OrderDTO, error) {
	return orderResult(m.Called(ctx, cmd))
}

func (m *mockProductionService) EndShift(ctx context.Context, cmd application.EndShiftCommand) (*application.OrderDTO, error) {
	return orderResult(m.Called(ctx, cmd))
}

func (m *mockProductionService) LogPostProductionActivity(ctx context.Context, cmd application.LogActivityCommand) (*application.OrderDTO, error) {
	return orderResult(m.Called(ctx, cmd))
}

func (m *mockProductionService) LogDowntime(ctx context.Context, cmd application.LogDowntimeCommand) (*application.OrderDTO, error) {
	return orderResult(m.Called(ctx, cmd))
}

func (m *mockProductionService) ResumeProduction(ctx context.Context, cmd application.ResumeProductionCommand) (*application.OrderDTO, error) {
	return orderResult(m.Called(ctx, cmd))
}

func (m *mockProductionService) StartLotProcessing(ctx context.Context, cmd application.LotCommand) (*application.OrderDTO, error) {
	return orderResult(m.Called(ctx, cmd))
}

func (m *mockProductionService) FinishLotProcessing(ctx context.Context, cmd application.LotCommand) (*application.OrderDTO, error) {
	return orderResult(m.Called(ctx, cmd))
}

func (m *mockProductionService) RecordLotWeight(ctx context.Context, cmd application.RecordLotWeightCommand) (*application.OrderDTO, error) {
	return orderResult(m.Called(ctx, cmd))
}

func (m *mockProductionService) RecordPackageWeight(ctx context.Context, cmd application.RecordPackageWeightCommand) (*application.OrderDTO, error) {
	return orderResult(m.Called(ctx, cmd))
}

func (m *mockProductionService) UpdateProducedQuantity(ctx context.Context, cmd application.UpdateProducedQuantityCommand) (*application.OrderDTO, error) {
	return orderResult(m.Called(ctx, cmd))
}

func (m *mockProductionService) CompleteOrder(ctx context.Context, cmd application.CompleteOrderCommand) (*application.CompletionDTO, error) {
	args := m.Called(ctx, cmd)
	dto, _ := args.Get(0).(*application.CompletionDTO)
	return dto, args.Error(1)
}

func (m *mockProductionService) GetMachineStatus(ctx context.Context, machine string) (*domain.MachineStatus, error) {
	args := m.Called(ctx, machine)
	status, _ := args.Get(0).(*domain.MachineStatus)
	return status, args.Error(1)
}

func (m *mockProductionService) ListShiftReports(ctx context.Context, query application.ListShiftReportsQuery) ([]*domain.ShiftReport, error) {
	args := m.Called(ctx, query)
	reports, _ := args.Get(0).([]*domain.ShiftReport)
	return reports, args.Error(1)
}

func (m *mockProductionService) ListTrussModels(ctx context.Context) ([]application.TrussModelDTO, error) {
	args := m.Called(ctx)
	models, _ := args.Get(0).([]application.TrussModelDTO)
	return models, args.Error(1)
}

type stubRecords struct {
	records []mongodb.Record
	err     error
	calls   []string
}

func (s *stubRecords) Fetch(ctx context.Context, collection string) ([]mongodb.Record, error) {
	s.calls = append(s.calls, collection)
	return s.records, s.err
}

func (s *stubRecords) FetchBy(ctx context.Context, collection, column, value string) ([]mongodb.Record, error) {
	s.calls = append(s.calls, collection+"."+column+"="+value)
	return s.records, s.err
}

func (s *stubRecords) Insert(ctx context.Context, collection string, record mongodb.Record) (mongodb.Record, error) {
	s.calls = append(s.calls, "insert "+collection)
	if s.err != nil {
		return nil, s.err
	}
	stored := mongodb.Record{"id": "rec-1"}
	for k, v := range record {
		stored[k] = v
	}
	return stored, nil
}

func (s *stubRecords) Update(ctx context.Context, collection, id string, partial mongodb.Record) (mongodb.Record, error) {
	s.calls = append(s.calls, "update "+collection+"/"+id)
	return partial, s.err
}

func (s *stubRecords) UpdateBy(ctx context.Context, collection, column, value string, partial mongodb.Record) (int64, error) {
	s.calls = append(s.calls, "update "+collection+"."+column+"="+value)
	return 3, s.err
}

func (s *stubRecords) Delete(ctx context.Context, collection, id string) error {
	s.calls = append(s.calls, "delete "+collection+"/"+id)
	return s.err
}

func (s *stubRecords) DeleteBy(ctx context.Context, collection, column, value string) (int64, error) {
	s.calls = append(s.calls, "delete "+collection+"."+column+"="+value)
	return 2, s.err
}

func setupRouter(service productionAPI, records recordAPI, validator middleware.RequestValidator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := logging.New(&logging.Config{Level: logging.LevelError, Format: "json", ServiceName: "test", Output: io.Discard})

	router := gin.New()
	middleware.Setup(router, middleware.DefaultConfig("test", logger.Logger))
	if validator != nil {
		router.Use(middleware.OpenAPIValidation(validator))
	}
	registerRoutes(router.Group("/api/v1"), service, records, logger)
	return router
}

func doRequest(router *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) middleware.APIErrorResponse {
	t.Helper()
	var body middleware.APIErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func validCreateBody() map[string]interface{} {
	return map[string]interface{}{
		"orderNumber":  "OP-2024-001",
		"machine":      "Trefila",
		"targetBitola": "4.20",
		"totalWeight":  300,
		"selectedLots": []string{"L1", "L2"},
	}
}

func TestCreateOrderHandler(t *testing.T) {
	t.Run("creates the order", func(t *testing.T) {
		service := &mockProductionService{}
		service.On("CreateOrder", mock.Anything, mock.MatchedBy(func(cmd application.CreateOrderCommand) bool {
			return cmd.OrderNumber == "OP-2024-001" &&
				cmd.Machine == "Trefila" &&
				cmd.TotalWeight == 300 &&
				string(cmd.SelectedLots) == `["L1","L2"]`
		})).Return(&application.OrderDTO{OrderID: "ord-1", Status: "pending"}, nil)

		w := doRequest(setupRouter(service, &stubRecords{}, nil), http.MethodPost, "/api/v1/orders", validCreateBody(), nil)

		assert.Equal(t, http.StatusCreated, w.Code)
		var dto application.OrderDTO
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dto))
		assert.Equal(t, "ord-1", dto.OrderID)
		service.AssertExpectations(t)
	})

	tests := []struct {
		name  string
		edit  func(body map[string]interface{})
		field string
	}{
		{
			name:  "unknown machine",
			edit:  func(b map[string]interface{}) { b["machine"] = "Laminadora" },
			field: "machine",
		},
		{
			name:  "malformed gauge",
			edit:  func(b map[string]interface{}) { b["targetBitola"] = "four" },
			field: "targetBitola",
		},
		{
			name:  "missing order number",
			edit:  func(b map[string]interface{}) { delete(b, "orderNumber") },
			field: "orderNumber",
		},
		{
			name:  "missing lots",
			edit:  func(b map[string]interface{}) { delete(b, "selectedLots") },
			field: "selectedLots",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &mockProductionService{}
			body := validCreateBody()
			tt.edit(body)

			w := doRequest(setupRouter(service, &stubRecords{}, nil), http.MethodPost, "/api/v1/orders", body, nil)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, errors.CodeValidationError, resp.Code)
			assert.Contains(t, resp.Details, tt.field)
			service.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
		})
	}
}

func TestHandlers_MapServiceErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", errors.ErrNotFoundWithID("production order", "ord-9"), http.StatusNotFound, errors.CodeNotFound},
		{"validation", errors.ErrValidation("order is not in progress"), http.StatusBadRequest, errors.CodeValidationError},
		{"conflict", errors.ErrConflict("order changed"), http.StatusConflict, errors.CodeConflict},
		{"persistence", errors.ErrPersistence("complete order"), http.StatusServiceUnavailable, errors.CodePersistence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &mockProductionService{}
			service.On("GetOrder", mock.Anything, "ord-9").Return(nil, tt.err)

			w := doRequest(setupRouter(service, &stubRecords{}, nil), http.MethodGet, "/api/v1/orders/ord-9", nil, nil)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w).Code)
		})
	}
}

func TestStartOrderHandler_OperatorFromHeader(t *testing.T) {
	service := &mockProductionService{}
	service.On("StartOrder", mock.MatchedBy(func(ctx context.Context) bool {
		return logging.OperatorFromContext(ctx) == "Ana"
	}), application.StartOrderCommand{OrderID: "ord-1", Operator: "Ana"}).
		Return(&application.OrderDTO{OrderID: "ord-1", Status: "in_progress"}, nil)

	w := doRequest(setupRouter(service, &stubRecords{}, nil), http.MethodPost, "/api/v1/orders/ord-1/start", nil,
		map[string]string{"X-Operator": "Ana"})

	assert.Equal(t, http.StatusOK, w.Code)
	service.AssertExpectations(t)
}

func TestStartShiftHandler_BodyOperatorWins(t *testing.T) {
	service := &mockProductionService{}
	service.On("StartShift", mock.Anything, application.StartShiftCommand{OrderID: "ord-1", Operator: "Bruno"}).
		Return(&application.OrderDTO{OrderID: "ord-1"}, nil)

	w := doRequest(setupRouter(service, &stubRecords{}, nil), http.MethodPost, "/api/v1/orders/ord-1/shifts/start",
		map[string]string{"operator": "Bruno"}, map[string]string{"X-Operator": "Ana"})

	assert.Equal(t, http.StatusOK, w.Code)
	service.AssertExpectations(t)
}

func TestEndShiftHandler_PassesFinalQuantity(t *testing.T) {
	service := &mockProductionService{}
	service.On("EndShift", mock.Anything, mock.MatchedBy(func(cmd application.EndShiftCommand) bool {
		return cmd.OrderID == "ord-1" && cmd.Operator == "Ana" && cmd.FinalQuantity != nil && *cmd.FinalQuantity == 500
	})).Return(&application.OrderDTO{OrderID: "ord-1"}, nil)

	w := doRequest(setupRouter(service, &stubRecords{}, nil), http.MethodPost, "/api/v1/orders/ord-1/shifts/end",
		map[string]interface{}{"operator": "Ana", "finalQuantity": 500}, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	service.AssertExpectations(t)
}

func TestLotHandlers(t *testing.T) {
	service := &mockProductionService{}
	cmd := application.LotCommand{OrderID: "ord-1", LotID: "L1"}
	service.On("StartLotProcessing", mock.Anything, cmd).Return(&application.OrderDTO{OrderID: "ord-1"}, nil)
	service.On("FinishLotProcessing", mock.Anything, cmd).Return(&application.OrderDTO{OrderID: "ord-1"}, nil)
	router := setupRouter(service, &stubRecords{}, nil)

	assert.Equal(t, http.StatusOK, doRequest(router, http.MethodPost, "/api/v1/orders/ord-1/lots/L1/start", nil, nil).Code)
	assert.Equal(t, http.StatusOK, doRequest(router, http.MethodPost, "/api/v1/orders/ord-1/lots/L1/finish", nil, nil).Code)
	service.AssertExpectations(t)
}

func TestRecordLotWeightHandler(t *testing.T) {
	service := &mockProductionService{}
	service.On("RecordLotWeight", mock.Anything, mock.MatchedBy(func(cmd application.RecordLotWeightCommand) bool {
		return cmd.LotID == "L1" && cmd.FinalWeight != nil && *cmd.FinalWeight == 95.5 && cmd.MeasuredGauge == nil
	})).Return(&application.OrderDTO{OrderID: "ord-1"}, nil)
	router := setupRouter(service, &stubRecords{}, nil)

	w := doRequest(router, http.MethodPut, "/api/v1/orders/ord-1/lots/L1/weight", map[string]interface{}{"finalWeight": 95.5}, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodPut, "/api/v1/orders/ord-1/lots/L1/weight", map[string]interface{}{"finalWeight": -1}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	service.AssertNumberOfCalls(t, "RecordLotWeight", 1)
}

func TestRecordPackageWeightHandler(t *testing.T) {
	service := &mockProductionService{}
	service.On("RecordPackageWeight", mock.Anything, application.RecordPackageWeightCommand{
		OrderID: "ord-1", PackageNumber: 2, Quantity: 10, Weight: 200.4, ManagerOverride: true,
	}).Return(&application.OrderDTO{OrderID: "ord-1"}, nil)

	w := doRequest(setupRouter(service, &stubRecords{}, nil), http.MethodPut, "/api/v1/orders/ord-1/packages",
		map[string]interface{}{"packageNumber": 2, "quantity": 10, "weight": 200.4, "managerOverride": true}, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	service.AssertExpectations(t)
}

func TestUpdateProducedQuantityHandler_AcceptsZero(t *testing.T) {
	service := &mockProductionService{}
	service.On("UpdateProducedQuantity", mock.Anything, application.UpdateProducedQuantityCommand{OrderID: "ord-1", Quantity: 0}).
		Return(&application.OrderDTO{OrderID: "ord-1"}, nil)
	router := setupRouter(service, &stubRecords{}, nil)

	w := doRequest(router, http.MethodPut, "/api/v1/orders/ord-1/produced-quantity", map[string]interface{}{"quantity": 0}, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodPut, "/api/v1/orders/ord-1/produced-quantity", map[string]interface{}{}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	service.AssertNumberOfCalls(t, "UpdateProducedQuantity", 1)
}

func TestCompleteOrderHandler(t *testing.T) {
	service := &mockProductionService{}
	service.On("CompleteOrder", mock.Anything, mock.MatchedBy(func(cmd application.CompleteOrderCommand) bool {
		return cmd.OrderID == "ord-1" &&
			cmd.FinalQuantity != nil && *cmd.FinalQuantity == 100 &&
			len(cmd.Pontas) == 1 && cmd.Pontas[0].Size == 6 && cmd.Pontas[0].Quantity == 3
	})).Return(&application.CompletionDTO{Order: application.OrderDTO{OrderID: "ord-1", Status: "completed"}}, nil)

	w := doRequest(setupRouter(service, &stubRecords{}, nil), http.MethodPost, "/api/v1/orders/ord-1/complete",
		map[string]interface{}{
			"finalQuantity": 100,
			"pontas":        []map[string]interface{}{{"quantity": 3, "size": 6, "totalWeight": 12.5}},
		}, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var result application.CompletionDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "completed", result.Order.Status)
	service.AssertExpectations(t)
}

func TestCompleteOrderHandler_EmptyBody(t *testing.T) {
	service := &mockProductionService{}
	service.On("CompleteOrder", mock.Anything, mock.MatchedBy(func(cmd application.CompleteOrderCommand) bool {
		return cmd.OrderID == "ord-1" && cmd.FinalQuantity == nil && len(cmd.Pontas) == 0
	})).Return(&application.CompletionDTO{AlreadyDone: true}, nil)

	w := doRequest(setupRouter(service, &stubRecords{}, nil), http.MethodPost, "/api/v1/orders/ord-1/complete", nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	service.AssertExpectations(t)
}

func TestDeleteOrderHandler(t *testing.T) {
	service := &mockProductionService{}
	service.On("DeleteOrder", mock.Anything, application.DeleteOrderCommand{OrderID: "ord-1"}).Return(nil)

	w := doRequest(setupRouter(service, &stubRecords{}, nil), http.MethodDelete, "/api/v1/orders/ord-1", nil, nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	service.AssertExpectations(t)
}

func TestListOrdersHandler(t *testing.T) {
	service := &mockProductionService{}
	page := api.NewPageResponse([]application.OrderDTO{{OrderID: "ord-1"}}, 2, 5, 6)
	service.On("ListOrders", mock.Anything, application.ListOrdersQuery{
		Machine: "Trefila", Status: "in_progress", Page: 2, PageSize: 5,
	}).Return(&page, nil)
	router := setupRouter(service, &stubRecords{}, nil)

	w := doRequest(router, http.MethodGet, "/api/v1/orders?machine=Trefila&status=in_progress&page=2&pageSize=5", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	service.AssertExpectations(t)

	w = doRequest(router, http.MethodGet, "/api/v1/orders?status=archived", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMachineStatusHandler(t *testing.T) {
	service := &mockProductionService{}
	service.On("GetMachineStatus", mock.Anything, "Trefila").Return(&domain.MachineStatus{
		Machine: domain.MachineTrefila,
		Status:  domain.MachineStopped,
		Reason:  "Troca de Rolo",
		OrderID: "ord-1",
	}, nil)

	w := doRequest(setupRouter(service, &stubRecords{}, nil), http.MethodGet, "/api/v1/machines/Trefila/status", nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var status domain.MachineStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, domain.MachineStopped, status.Status)
	assert.Equal(t, "Troca de Rolo", status.Reason)
}

func TestListShiftReportsHandler(t *testing.T) {
	service := &mockProductionService{}
	service.On("ListShiftReports", mock.Anything, application.ListShiftReportsQuery{OrderID: "ord-1", Page: 1, PageSize: 20}).
		Return([]*domain.ShiftReport{{ReportID: "rep-1", OrderID: "ord-1"}}, nil)

	w := doRequest(setupRouter(service, &stubRecords{}, nil), http.MethodGet, "/api/v1/shift-reports?orderId=ord-1", nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	service.AssertExpectations(t)
}

func TestRecordHandlers(t *testing.T) {
	records := &stubRecords{records: []mongodb.Record{{"_id": "1", "lote": "L1"}}}
	router := setupRouter(&mockProductionService{}, records, nil)

	w := doRequest(router, http.MethodGet, "/api/v1/records/stock", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/api/v1/records/stock/by/lote/L1", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, []string{"stock", "stock.lote=L1"}, records.calls)

	records.err = errors.ErrValidation("invalid identifier")
	w = doRequest(router, http.MethodGet, "/api/v1/records/bad$name", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecordWriteHandlers(t *testing.T) {
	records := &stubRecords{}
	router := setupRouter(&mockProductionService{}, records, nil)

	w := doRequest(router, http.MethodPost, "/api/v1/records/stock", map[string]interface{}{"lote": "L7", "peso": 420.5}, nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	var stored mongodb.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stored))
	assert.Equal(t, "rec-1", stored["id"])
	assert.Equal(t, "L7", stored["lote"])

	w = doRequest(router, http.MethodPatch, "/api/v1/records/stock/items/rec-1", map[string]interface{}{"status": "available"}, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodPatch, "/api/v1/records/stock/by/lote/L7", map[string]interface{}{"status": "reserved"}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"affected":3}`, w.Body.String())

	w = doRequest(router, http.MethodDelete, "/api/v1/records/stock/items/rec-1", nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(router, http.MethodDelete, "/api/v1/records/stock/by/lote/L7", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"affected":2}`, w.Body.String())

	assert.Equal(t, []string{
		"insert stock",
		"update stock/rec-1",
		"update stock.lote=L7",
		"delete stock/rec-1",
		"delete stock.lote=L7",
	}, records.calls)
}

func TestRecordWriteHandlers_Errors(t *testing.T) {
	t.Run("empty body", func(t *testing.T) {
		records := &stubRecords{}
		router := setupRouter(&mockProductionService{}, records, nil)

		w := doRequest(router, http.MethodPost, "/api/v1/records/stock", map[string]interface{}{}, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, records.calls)
	})

	t.Run("missing record", func(t *testing.T) {
		records := &stubRecords{err: errors.ErrNotFoundWithID("record", "rec-9")}
		router := setupRouter(&mockProductionService{}, records, nil)

		w := doRequest(router, http.MethodDelete, "/api/v1/records/stock/items/rec-9", nil, nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("managed collection", func(t *testing.T) {
		records := &stubRecords{err: errors.ErrValidation("collection is managed by the production service and cannot be written directly")}
		router := setupRouter(&mockProductionService{}, records, nil)

		w := doRequest(router, http.MethodPost, "/api/v1/records/production_orders", map[string]interface{}{"status": "completed"}, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestOpenAPIValidation_RejectsContractViolations(t *testing.T) {
	validator, err := openapi.NewValidatorFromBytes(productionservice.OpenAPISpec)
	require.NoError(t, err)

	service := &mockProductionService{}
	service.On("LogDowntime", mock.Anything, application.LogDowntimeCommand{OrderID: "ord-1", Reason: "Troca de Rolo"}).
		Return(&application.OrderDTO{OrderID: "ord-1"}, nil)
	router := setupRouter(service, &stubRecords{}, validator)

	w := doRequest(router, http.MethodPost, "/api/v1/orders/ord-1/downtime", map[string]string{"reason": "Troca de Rolo"}, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodPost, "/api/v1/orders/ord-1/downtime", map[string]interface{}{"reason": 42}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	service.AssertNumberOfCalls(t, "LogDowntime", 1)
}
