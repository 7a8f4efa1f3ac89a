package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mes-platform/production/services/production-service/internal/domain"
)

// GenerateShiftReport builds the report for a closed operator session and
// stores it once. A report already stored for the session is not an error.
func (s *ProductionService) GenerateShiftReport(ctx context.Context, req ShiftReportRequest) (*domain.ShiftReport, error) {
	start := time.Now()
	order, err := s.loadOrder(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	machine := string(order.Machine)

	log, ok := findSession(order, req.Operator, req.ShiftStart)
	if !ok {
		s.metrics.RecordShiftReport(machine, false)
		return nil, toAppError(fmt.Errorf("%w: no shift for %s starting %s", domain.ErrNotFound,
			req.Operator, req.ShiftStart.Format(time.RFC3339)), "generate shift report")
	}

	var model *domain.TrussModel
	if order.Machine == domain.MachineTrelica {
		if model, err = s.findModel(ctx, order.TrussModel, order.TrussSize); err != nil {
			s.metrics.RecordShiftReport(machine, false)
			return nil, err
		}
	}

	report, err := domain.BuildShiftReport(order, log, model, s.now())
	if err != nil {
		s.metrics.RecordShiftReport(machine, false)
		return nil, toAppError(err, "generate shift report")
	}

	if err := s.reports.Insert(ctx, report); err != nil {
		if errors.Is(err, domain.ErrShiftReportExists) {
			s.logger.WithContext(ctx).Info("Shift report already stored",
				"orderId", order.OrderID, "operator", log.Operator)
			return report, nil
		}
		s.metrics.RecordShiftReport(machine, false)
		return nil, toAppError(err, "store shift report")
	}

	s.metrics.RecordShiftReport(machine, true)
	s.logger.Performance(ctx, "generate_shift_report", time.Since(start), true, map[string]any{
		"orderId":  order.OrderID,
		"operator": log.Operator,
		"weight":   report.TotalProducedWeight,
	})
	return report, nil
}

// findSession locates a closed session by operator and start time, compared
// at the millisecond precision the store keeps
func findSession(order *domain.ProductionOrder, operator string, shiftStart time.Time) (domain.OperatorLog, bool) {
	want := shiftStart.Truncate(time.Millisecond)
	for i := len(order.OperatorLogs) - 1; i >= 0; i-- {
		l := order.OperatorLogs[i]
		if l.Operator == operator && !l.IsOpen() && l.StartTime.Truncate(time.Millisecond).Equal(want) {
			return l, true
		}
	}
	return domain.OperatorLog{}, false
}
