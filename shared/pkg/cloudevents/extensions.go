package cloudevents

import (
	"context"

	"github.com/mes-platform/production/shared/pkg/tracing"
)

// CloudEvents extension attribute names
const (
	ExtCorrelationID = "mescorrelationid"
	ExtOrderID       = "mesorderid"
	ExtMachine       = "mesmachine"
	ExtWorkflowID    = "mesworkflowid"
	ExtTraceParent   = "traceparent"
	ExtTraceState    = "tracestate"
)

// HTTP header names
const (
	HeaderCorrelationID = "X-Correlation-ID"
	HeaderOperator      = "X-Operator"
)

// SetTraceContext copies the W3C trace context of ctx onto the event
func (e *ProductionCloudEvent) SetTraceContext(ctx context.Context) {
	carrier := tracing.MapCarrier{}
	tracing.InjectTraceContext(ctx, carrier)
	e.TraceParent = carrier.Get(ExtTraceParent)
	e.TraceState = carrier.Get(ExtTraceState)
}

// TraceContext returns a context carrying the event's trace context as remote parent
func (e *ProductionCloudEvent) TraceContext(ctx context.Context) context.Context {
	if e.TraceParent == "" {
		return ctx
	}
	carrier := tracing.MapCarrier{ExtTraceParent: e.TraceParent}
	if e.TraceState != "" {
		carrier.Set(ExtTraceState, e.TraceState)
	}
	return tracing.ExtractTraceContext(ctx, carrier)
}

// HeaderExtensions returns the non-empty extension attributes as ce- prefixed header pairs
func (e *ProductionCloudEvent) HeaderExtensions() map[string]string {
	headers := make(map[string]string)
	set := func(name, value string) {
		if value != "" {
			headers["ce-"+name] = value
		}
	}
	set(ExtCorrelationID, e.CorrelationID)
	set(ExtOrderID, e.OrderID)
	set(ExtMachine, e.Machine)
	set(ExtWorkflowID, e.WorkflowID)
	set(ExtTraceParent, e.TraceParent)
	set(ExtTraceState, e.TraceState)
	return headers
}
