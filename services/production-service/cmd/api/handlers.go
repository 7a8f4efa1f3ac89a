package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mes-platform/production/services/production-service/internal/application"
	"github.com/mes-platform/production/services/production-service/internal/domain"
	"github.com/mes-platform/production/shared/pkg/api"
	"github.com/mes-platform/production/shared/pkg/errors"
	"github.com/mes-platform/production/shared/pkg/logging"
	"github.com/mes-platform/production/shared/pkg/middleware"
	"github.com/mes-platform/production/shared/pkg/mongodb"
)

// productionAPI is the slice of ProductionService the HTTP layer drives
type productionAPI interface {
	CreateOrder(ctx context.Context, cmd application.CreateOrderCommand) (*application.OrderDTO, error)
	GetOrder(ctx context.Context, orderID string) (*application.OrderDTO, error)
	ListOrders(ctx context.Context, query application.ListOrdersQuery) (*api.PageResponse[application.OrderDTO], error)
	DeleteOrder(ctx context.Context, cmd application.DeleteOrderCommand) error
	StartOrder(ctx context.Context, cmd application.StartOrderCommand) (*application.OrderDTO, error)
	StartShift(ctx context.Context, cmd application.StartShiftCommand) (*application.OrderDTO, error)
	EndShift(ctx context.Context, cmd application.EndShiftCommand) (*application.OrderDTO, error)
	LogPostProductionActivity(ctx context.Context, cmd application.LogActivityCommand) (*application.OrderDTO, error)
	LogDowntime(ctx context.Context, cmd application.LogDowntimeCommand) (*application.OrderDTO, error)
	ResumeProduction(ctx context.Context, cmd application.ResumeProductionCommand) (*application.OrderDTO, error)
	StartLotProcessing(ctx context.Context, cmd application.LotCommand) (*application.OrderDTO, error)
	FinishLotProcessing(ctx context.Context, cmd application.LotCommand) (*application.OrderDTO, error)
	RecordLotWeight(ctx context.Context, cmd application.RecordLotWeightCommand) (*application.OrderDTO, error)
	RecordPackageWeight(ctx context.Context, cmd application.RecordPackageWeightCommand) (*application.OrderDTO, error)
	UpdateProducedQuantity(ctx context.Context, cmd application.UpdateProducedQuantityCommand) (*application.OrderDTO, error)
	CompleteOrder(ctx context.Context, cmd application.CompleteOrderCommand) (*application.CompletionDTO, error)
	GetMachineStatus(ctx context.Context, machine string) (*domain.MachineStatus, error)
	ListShiftReports(ctx context.Context, query application.ListShiftReportsQuery) ([]*domain.ShiftReport, error)
	ListTrussModels(ctx context.Context) ([]application.TrussModelDTO, error)
}

type recordAPI interface {
	Fetch(ctx context.Context, collection string) ([]mongodb.Record, error)
	FetchBy(ctx context.Context, collection, column, value string) ([]mongodb.Record, error)
	Insert(ctx context.Context, collection string, record mongodb.Record) (mongodb.Record, error)
	Update(ctx context.Context, collection, id string, partial mongodb.Record) (mongodb.Record, error)
	UpdateBy(ctx context.Context, collection, column, value string, partial mongodb.Record) (int64, error)
	Delete(ctx context.Context, collection, id string) error
	DeleteBy(ctx context.Context, collection, column, value string) (int64, error)
}

// registerRoutes mounts the production API on the v1 group
func registerRoutes(v1 *gin.RouterGroup, service productionAPI, records recordAPI, logger *logging.Logger) {
	orders := v1.Group("/orders")
	{
		orders.POST("", createOrderHandler(service, logger))
		orders.GET("", listOrdersHandler(service, logger))
		orders.GET("/:id", getOrderHandler(service, logger))
		orders.DELETE("/:id", deleteOrderHandler(service, logger))

		orders.POST("/:id/start", startOrderHandler(service, logger))
		orders.POST("/:id/shifts/start", startShiftHandler(service, logger))
		orders.POST("/:id/shifts/end", endShiftHandler(service, logger))
		orders.POST("/:id/shifts/activities", logActivityHandler(service, logger))
		orders.POST("/:id/downtime", logDowntimeHandler(service, logger))
		orders.POST("/:id/resume", resumeProductionHandler(service, logger))

		orders.POST("/:id/lots/:lotId/start", startLotHandler(service, logger))
		orders.POST("/:id/lots/:lotId/finish", finishLotHandler(service, logger))
		orders.PUT("/:id/lots/:lotId/weight", recordLotWeightHandler(service, logger))
		orders.PUT("/:id/packages", recordPackageWeightHandler(service, logger))
		orders.PUT("/:id/produced-quantity", updateProducedQuantityHandler(service, logger))
		orders.POST("/:id/complete", completeOrderHandler(service, logger))
	}

	v1.GET("/machines/:machine/status", machineStatusHandler(service, logger))
	v1.GET("/shift-reports", listShiftReportsHandler(service, logger))
	v1.GET("/truss-models", listTrussModelsHandler(service, logger))

	rec := v1.Group("/records/:collection")
	{
		rec.GET("", fetchRecordsHandler(records, logger))
		rec.POST("", insertRecordHandler(records, logger))
		rec.PATCH("/items/:id", updateRecordHandler(records, logger))
		rec.DELETE("/items/:id", deleteRecordHandler(records, logger))
		rec.GET("/by/:column/:value", fetchRecordsByHandler(records, logger))
		rec.PATCH("/by/:column/:value", updateRecordsByHandler(records, logger))
		rec.DELETE("/by/:column/:value", deleteRecordsByHandler(records, logger))
	}
}

// CreateOrderRequest is the request body for registering an order
type CreateOrderRequest struct {
	OrderNumber       string          `json:"orderNumber" binding:"required,max=64,safe_string"`
	Machine           string          `json:"machine" binding:"required,machine_type"`
	TargetBitola      string          `json:"targetBitola" binding:"required,gauge"`
	TrussModel        string          `json:"trussModel" binding:"omitempty,max=32,safe_string"`
	TrussSize         string          `json:"trussSize" binding:"omitempty,max=16,safe_string"`
	QuantityToProduce int             `json:"quantityToProduce" binding:"gte=0"`
	TotalWeight       float64         `json:"totalWeight" binding:"gte=0"`
	SelectedLots      json.RawMessage `json:"selectedLots" binding:"required"`
}

// OperatorRequest names the operator acting on an order. The X-Operator
// header is used when the body leaves it out.
type OperatorRequest struct {
	Operator string `json:"operator" binding:"omitempty,max=128,safe_string"`
}

// EndShiftRequest is the request body for closing an operator session
type EndShiftRequest struct {
	Operator      string `json:"operator" binding:"omitempty,max=128,safe_string"`
	FinalQuantity *int   `json:"finalQuantity" binding:"omitempty,gte=0"`
}

// LogActivityRequest is the request body for a post-production note
type LogActivityRequest struct {
	Operator    string `json:"operator" binding:"omitempty,max=128,safe_string"`
	Description string `json:"description" binding:"required,max=1024,safe_string"`
}

// LogDowntimeRequest is the request body for stopping the machine
type LogDowntimeRequest struct {
	Reason string `json:"reason" binding:"required,max=256,safe_string"`
}

// RecordLotWeightRequest is the request body for weighing a drawn lot
type RecordLotWeightRequest struct {
	FinalWeight   *float64 `json:"finalWeight" binding:"omitempty,gt=0"`
	MeasuredGauge *float64 `json:"measuredGauge" binding:"omitempty,gt=0"`
}

// RecordPackageWeightRequest is the request body for weighing a truss package
type RecordPackageWeightRequest struct {
	PackageNumber   int     `json:"packageNumber" binding:"required,gte=1"`
	Quantity        int     `json:"quantity" binding:"required,gte=1"`
	Weight          float64 `json:"weight" binding:"required,gt=0"`
	ManagerOverride bool    `json:"managerOverride"`
}

// UpdateProducedQuantityRequest is the request body for setting the piece count
type UpdateProducedQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required,gte=0"`
}

// PontaRequest is one leftover batch reported at completion
type PontaRequest struct {
	Quantity    int     `json:"quantity" binding:"gte=1"`
	Size        float64 `json:"size" binding:"gt=0"`
	TotalWeight float64 `json:"totalWeight" binding:"gte=0"`
}

// CompleteOrderRequest is the request body for closing out production
type CompleteOrderRequest struct {
	FinalQuantity *int           `json:"finalQuantity" binding:"omitempty,gte=0"`
	Pontas        []PontaRequest `json:"pontas" binding:"omitempty,dive"`
}

// ListOrdersRequest holds the list filters
type ListOrdersRequest struct {
	Machine string `form:"machine" binding:"omitempty,machine_type"`
	Status  string `form:"status" binding:"omitempty,oneof=pending in_progress completed"`
}

func operatorFrom(c *gin.Context, fromBody string) string {
	if op := strings.TrimSpace(fromBody); op != "" {
		return op
	}
	return middleware.GetOperator(c)
}

// withOperator makes the resolved operator visible to audit logging
func withOperator(c *gin.Context, operator string) context.Context {
	ctx := c.Request.Context()
	if operator != "" {
		ctx = logging.ContextWithOperator(ctx, operator)
	}
	return ctx
}

// bindOptionalJSON binds a body that may be absent altogether. It reports
// false after responding when the body is present but invalid.
func bindOptionalJSON(c *gin.Context, responder *middleware.ErrorResponder, obj interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if appErr := middleware.BindAndValidate(c, obj); appErr != nil {
		responder.RespondWithAppError(appErr)
		return false
	}
	return true
}

func createOrderHandler(service productionAPI, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req CreateOrderRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"order.number":  req.OrderNumber,
			"order.machine": req.Machine,
		})

		order, err := service.CreateOrder(c.Request.Context(), application.CreateOrderCommand{
			OrderNumber:       req.OrderNumber,
			Machine:           req.Machine,
			TargetBitola:      req.TargetBitola,
			TrussModel:        req.TrussModel,
			TrussSize:         req.TrussSize,
			QuantityToProduce: req.QuantityToProduce,
			TotalWeight:       req.TotalWeight,
			SelectedLots:      req.SelectedLots,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusCreated, order)
	}
}

func getOrderHandler(service productionAPI, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)
		orderID := c.Param("id")

		middleware.AddSpanAttributes(c, map[string]interface{}{"order.id": orderID})

		order, err := service.GetOrder(c.Request.Context(), orderID)
		if err != nil {
			responder.RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func listOrdersHandler(service productionAPI, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req ListOrdersRequest
		if appErr := api.BindQueryAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}
		page := api.ParsePagination(c)

		result, err := service.ListOrders(c.Request.Context(), application.ListOrdersQuery{
			Machine:  req.Machine,
			Status:   req.Status,
			Page:     page.Page,
			PageSize: page.PageSize,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func deleteOrderHandler(service productionAPI, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)
		orderID := c.Param("id")

		middleware.AddSpanAttributes(c, map[string]interface{}{"order.id": orderID})

		if err := service.DeleteOrder(c.Request.Context(), application.DeleteOrderCommand{OrderID: orderID}); err != nil {
			responder.RespondWithError(err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func startOrderHandler(service productionAPI, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req OperatorRequest
		if !bindOptionalJSON(c, responder, &req) {
			return
		}
		operator := operatorFrom(c, req.Operator)

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"order.id":       c.Param("id"),
			"order.operator": operator,
		})

		order, err := service.StartOrder(withOperator(c, operator), application.StartOrderCommand{
			OrderID:  c.Param("id"),
			Operator: operator,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func startShiftHandler(service productionAPI, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req OperatorRequest
		if !bindOptionalJSON(c, responder, &req) {
			return
		}
		operator := operatorFrom(c, req.Operator)

		order, err := service.StartShift(withOperator(c, operator), application.StartShiftCommand{
			OrderID:  c.Param("id"),
			Operator: operator,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func endShiftHandler(service productionAPI, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req EndShiftRequest
		if !bindOptionalJSON(c, responder, &req) {
			return
		}
		operator := operatorFrom(c, req.Operator)

		order, err := service.EndShift(withOperator(c, operator), application.EndShiftCommand{
			OrderID:       c.Param("id"),
			Operator:      operator,
			FinalQuantity: req.FinalQuantity,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func logActivityHandler(service productionAPI, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req LogActivityRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}
		operator := operatorFrom(c, req.Operator)

		order, err := service.LogPostProductionActivity(withOperator(c, operator), application.LogActivityCommand{
			OrderID:     c.Param("id"),
			Operator:    operator,
			Description: req.Description,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func logDowntimeHandler(service productionAPI, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req LogDowntimeRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"order.id":        c.Param("id"),
			"downtime.reason": req.Reason,
		})

		order, err := service.LogDowntime(c.Request.Context(), application.LogDowntimeCommand{
			OrderID: c.Param("id"),
			Reason:  req.Reason,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func resumeProductionHandler(service productionAPI, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		order, err := service.ResumeProduction(c.Request.Context(), application.ResumeProductionCommand{
			OrderID: c.Param("id"),
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func startLotHandler(service productionAPI, logger *logging.Logger) gin.HandlerFunc {
	return lotHandler(service.StartLotProcessing, logger)
}

func finishLotHandler(service productionAPI, logger *logging.Logger) gin.HandlerFunc {
	return lotHandler(service.FinishLotProcessing, logger)
}

func lotHandler(action func(context.Context, application.LotCommand) (*application.OrderDTO, error), logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"order.id": c.Param("id"),
			"lot.id":   c.Param("lotId"),
		})

		order, err := action(c.Request.Context(), application.LotCommand{
			OrderID: c.Param("id"),
			LotID:   c.Param("lotId"),
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func recordLotWeightHandler(service productionAPI, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req RecordLotWeightRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		order, err := service.RecordLotWeight(c.Request.Context(), application.RecordLotWeightCommand{
			OrderID:       c.Param("id"),
			LotID:         c.Param("lotId"),
			FinalWeight:   req.FinalWeight,
			MeasuredGauge: req.MeasuredGauge,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func recordPackageWeightHandler(service productionAPI, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req RecordPackageWeightRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"order.id":         c.Param("id"),
			"package.number":   req.PackageNumber,
			"package.override": req.ManagerOverride,
		})

		order, err := service.RecordPackageWeight(c.Request.Context(), application.RecordPackageWeightCommand{
			OrderID:         c.Param("id"),
			PackageNumber:   req.PackageNumber,
			Quantity:        req.Quantity,
			Weight:          req.Weight,
			ManagerOverride: req.ManagerOverride,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func updateProducedQuantityHandler(service productionAPI, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req UpdateProducedQuantityRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		order, err := service.UpdateProducedQuantity(c.Request.Context(), application.UpdateProducedQuantityCommand{
			OrderID:  c.Param("id"),
			Quantity: *req.Quantity,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func completeOrderHandler(service productionAPI, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req CompleteOrderRequest
		if !bindOptionalJSON(c, responder, &req) {
			return
		}

		pontas := make([]application.PontaInput, 0, len(req.Pontas))
		for _, p := range req.Pontas {
			pontas = append(pontas, application.PontaInput{
				Quantity:    p.Quantity,
				Size:        p.Size,
				TotalWeight: p.TotalWeight,
			})
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"order.id":     c.Param("id"),
			"order.pontas": len(pontas),
		})

		result, err := service.CompleteOrder(c.Request.Context(), application.CompleteOrderCommand{
			OrderID:       c.Param("id"),
			FinalQuantity: req.FinalQuantity,
			Pontas:        pontas,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func machineStatusHandler(service productionAPI, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		status, err := service.GetMachineStatus(c.Request.Context(), c.Param("machine"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, status)
	}
}

func listShiftReportsHandler(service productionAPI, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)
		page := api.ParsePagination(c)

		reports, err := service.ListShiftReports(c.Request.Context(), application.ListShiftReportsQuery{
			OrderID:  c.Query("orderId"),
			Page:     page.Page,
			PageSize: page.PageSize,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, reports)
	}
}

func listTrussModelsHandler(service productionAPI, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		models, err := service.ListTrussModels(c.Request.Context())
		if err != nil {
			responder.RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, models)
	}
}

// RecordPath addresses raw records
type RecordPath struct {
	Collection string `uri:"collection" binding:"required,max=64"`
	ID         string `uri:"id"`
	Column     string `uri:"column"`
	Value      string `uri:"value"`
}

// RecordsAffectedResponse reports bulk update and delete counts
type RecordsAffectedResponse struct {
	Affected int64 `json:"affected"`
}

func bindRecordPath(c *gin.Context, responder *middleware.ErrorResponder) (RecordPath, bool) {
	var path RecordPath
	if appErr := api.BindURIAndValidate(c, &path); appErr != nil {
		responder.RespondWithAppError(appErr)
		return path, false
	}
	return path, true
}

func bindRecordBody(c *gin.Context, responder *middleware.ErrorResponder) (mongodb.Record, bool) {
	var record mongodb.Record
	if appErr := middleware.BindAndValidate(c, &record); appErr != nil {
		responder.RespondWithAppError(appErr)
		return nil, false
	}
	if len(record) == 0 {
		responder.RespondWithAppError(errors.ErrValidation("record has no fields"))
		return nil, false
	}
	return record, true
}

func fetchRecordsHandler(records recordAPI, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)
		path, ok := bindRecordPath(c, responder)
		if !ok {
			return
		}

		result, err := records.Fetch(c.Request.Context(), path.Collection)
		if err != nil {
			responder.RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func fetchRecordsByHandler(records recordAPI, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)
		path, ok := bindRecordPath(c, responder)
		if !ok {
			return
		}

		result, err := records.FetchBy(c.Request.Context(), path.Collection, path.Column, path.Value)
		if err != nil {
			responder.RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func insertRecordHandler(records recordAPI, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)
		path, ok := bindRecordPath(c, responder)
		if !ok {
			return
		}
		record, ok := bindRecordBody(c, responder)
		if !ok {
			return
		}

		stored, err := records.Insert(c.Request.Context(), path.Collection, record)
		if err != nil {
			responder.RespondWithError(err)
			return
		}
		c.JSON(http.StatusCreated, stored)
	}
}

func updateRecordHandler(records recordAPI, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)
		path, ok := bindRecordPath(c, responder)
		if !ok {
			return
		}
		partial, ok := bindRecordBody(c, responder)
		if !ok {
			return
		}

		updated, err := records.Update(c.Request.Context(), path.Collection, path.ID, partial)
		if err != nil {
			responder.RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

func updateRecordsByHandler(records recordAPI, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)
		path, ok := bindRecordPath(c, responder)
		if !ok {
			return
		}
		partial, ok := bindRecordBody(c, responder)
		if !ok {
			return
		}

		n, err := records.UpdateBy(c.Request.Context(), path.Collection, path.Column, path.Value, partial)
		if err != nil {
			responder.RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, RecordsAffectedResponse{Affected: n})
	}
}

func deleteRecordHandler(records recordAPI, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)
		path, ok := bindRecordPath(c, responder)
		if !ok {
			return
		}

		if err := records.Delete(c.Request.Context(), path.Collection, path.ID); err != nil {
			responder.RespondWithError(err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func deleteRecordsByHandler(records recordAPI, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)
		path, ok := bindRecordPath(c, responder)
		if !ok {
			return
		}

		n, err := records.DeleteBy(c.Request.Context(), path.Collection, path.Column, path.Value)
		if err != nil {
			responder.RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, RecordsAffectedResponse{Affected: n})
	}
}
