package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type productionMetrics struct {
	orderTransitions   *prometheus.CounterVec
	downtimeEvents     *prometheus.CounterVec
	consumedKilograms  *prometheus.CounterVec
	shortfallKilograms *prometheus.CounterVec
	producedKilograms  *prometheus.CounterVec
	shiftReports       *prometheus.CounterVec
	machineStatus      *prometheus.GaugeVec
	idempotent         *prometheus.CounterVec
}

func newProductionMetrics(ns string) *productionMetrics {
	return &productionMetrics{
		orderTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: ns, Name: "production_order_transitions_total", Help: "Production order lifecycle transitions"},
			[]string{"machine", "status"},
		),
		downtimeEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: ns, Name: "production_downtime_events_total", Help: "Downtime events opened, by reason"},
			[]string{"machine", "reason"},
		),
		consumedKilograms: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: ns, Name: "production_consumed_kilograms_total", Help: "Raw material consumed at order completion"},
			[]string{"machine", "role"},
		),
		shortfallKilograms: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: ns, Name: "production_consumption_shortfall_kilograms_total", Help: "Required weight no candidate lot could supply"},
			[]string{"machine", "role"},
		),
		producedKilograms: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: ns, Name: "production_produced_kilograms_total", Help: "Finished weight recorded at order completion"},
			[]string{"machine"},
		),
		shiftReports: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: ns, Name: "production_shift_reports_total", Help: "Shift reports generated"},
			[]string{"machine", "status"},
		),
		machineStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Namespace: ns, Name: "production_machine_status", Help: "1 for the machine's current derived status, 0 otherwise"},
			[]string{"machine", "status"},
		),
		idempotent: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: ns, Name: "production_idempotent_requests_total", Help: "Requests carrying an Idempotency-Key, by outcome"},
			[]string{"outcome"},
		),
	}
}

func (p *productionMetrics) register(r *prometheus.Registry) {
	r.MustRegister(
		p.orderTransitions,
		p.downtimeEvents,
		p.consumedKilograms,
		p.shortfallKilograms,
		p.producedKilograms,
		p.shiftReports,
		p.machineStatus,
		p.idempotent,
	)
}

// RecordOrderTransition counts an order entering status on machine
func (m *Metrics) RecordOrderTransition(machine, status string) {
	if m == nil {
		return
	}
	m.production.orderTransitions.WithLabelValues(machine, status).Inc()
}

// RecordDowntime counts a downtime event opened for reason
func (m *Metrics) RecordDowntime(machine, reason string) {
	if m == nil {
		return
	}
	m.production.downtimeEvents.WithLabelValues(machine, reason).Inc()
}

// RecordConsumption adds consumed and unallocated kilograms for a structural role
func (m *Metrics) RecordConsumption(machine, role string, consumed, shortfall float64) {
	if m == nil {
		return
	}
	if consumed > 0 {
		m.production.consumedKilograms.WithLabelValues(machine, role).Add(consumed)
	}
	if shortfall > 0 {
		m.production.shortfallKilograms.WithLabelValues(machine, role).Add(shortfall)
	}
}

// RecordProduced adds finished weight for machine
func (m *Metrics) RecordProduced(machine string, kilograms float64) {
	if m == nil || kilograms <= 0 {
		return
	}
	m.production.producedKilograms.WithLabelValues(machine).Add(kilograms)
}

// RecordShiftReport counts shift report generation outcomes
func (m *Metrics) RecordShiftReport(machine string, success bool) {
	if m == nil {
		return
	}
	m.production.shiftReports.WithLabelValues(machine, statusLabel(success)).Inc()
}

// SetMachineStatus flags current as the machine's only active status among all
func (m *Metrics) SetMachineStatus(machine, current string, all []string) {
	if m == nil {
		return
	}
	for _, s := range all {
		v := 0.0
		if s == current {
			v = 1
		}
		m.production.machineStatus.WithLabelValues(machine, s).Set(v)
	}
}

// RecordIdempotentRequest counts an Idempotency-Key outcome: new, replayed,
// mismatch, in_flight or error
func (m *Metrics) RecordIdempotentRequest(outcome string) {
	if m == nil {
		return
	}
	m.production.idempotent.WithLabelValues(outcome).Inc()
}
