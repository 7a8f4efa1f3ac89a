package cloudevents

import (
	"time"
)

// Production order lifecycle events
const (
	OrderCreated        = "mes.production.order-created"
	OrderStarted        = "mes.production.order-started"
	OrderCompleted      = "mes.production.order-completed"
	OrderForceCompleted = "mes.production.order-force-completed"
	OrderDeleted        = "mes.production.order-deleted"
)

// Machine state and shift events
const (
	DowntimeLogged    = "mes.production.downtime-logged"
	ProductionResumed = "mes.production.production-resumed"
	ShiftStarted      = "mes.production.shift-started"
	ShiftEnded        = "mes.production.shift-ended"
)

// Material flow events
const (
	LotStarted     = "mes.production.lot-started"
	LotFinished    = "mes.production.lot-finished"
	LotWeighed     = "mes.production.lot-weighed"
	PackageWeighed = "mes.production.package-weighed"
	StockConsumed  = "mes.production.stock-consumed"
)

// ShiftReportGenerated is published once per closed operator shift
const ShiftReportGenerated = "mes.production.shift-report-generated"

// AllEventTypes lists every event type the production service emits
var AllEventTypes = []string{
	OrderCreated, OrderStarted, OrderCompleted, OrderForceCompleted, OrderDeleted,
	DowntimeLogged, ProductionResumed, ShiftStarted, ShiftEnded,
	LotStarted, LotFinished, LotWeighed, PackageWeighed, StockConsumed,
	ShiftReportGenerated,
}

// Event sources
const (
	SourceProduction = "/mes/production-service"
	SourceWorker     = "/mes/production-worker"
)

// ProductionCloudEvent is a CloudEvents v1.0 envelope carrying MES extensions
type ProductionCloudEvent struct {
	SpecVersion     string                 `json:"specversion"`
	Type            string                 `json:"type"`
	Source          string                 `json:"source"`
	Subject         string                 `json:"subject,omitempty"`
	ID              string                 `json:"id"`
	Time            time.Time              `json:"time"`
	DataContentType string                 `json:"datacontenttype"`
	Data            interface{}            `json:"data"`
	Extensions      map[string]interface{} `json:"-"`

	CorrelationID string `json:"mescorrelationid,omitempty"`
	OrderID       string `json:"mesorderid,omitempty"`
	Machine       string `json:"mesmachine,omitempty"`
	WorkflowID    string `json:"mesworkflowid,omitempty"`

	// W3C trace context
	TraceParent string `json:"traceparent,omitempty"`
	TraceState  string `json:"tracestate,omitempty"`
}
