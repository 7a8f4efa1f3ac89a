package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return t0.Add(time.Duration(minutes) * time.Minute)
}

func testTrussModel() *TrussModel {
	return &TrussModel{
		Code:          "TG8L",
		Model:         "TG8L",
		Size:          "6",
		PesoFinal:     5.5,
		PesoSuperior:  1.5,
		PesoInferior:  2.0,
		PesoSenozoide: 2.0,
	}
}

func newTrefilaOrder(t *testing.T, lots ...string) *ProductionOrder {
	t.Helper()
	order, err := NewProductionOrder(NewOrderParams{
		OrderID:      "ord-trefila",
		OrderNumber:  "OP-100",
		Machine:      MachineTrefila,
		TargetBitola: "4.20",
		TotalWeight:  1000,
		SelectedLots: FlatSelection(lots...),
	}, nil, t0)
	require.NoError(t, err)
	return order
}

func newTrelicaOrder(t *testing.T, quantity int, byRole map[Role][]string) *ProductionOrder {
	t.Helper()
	order, err := NewProductionOrder(NewOrderParams{
		OrderID:           "ord-trelica",
		OrderNumber:       "OP-200",
		Machine:           MachineTrelica,
		TargetBitola:      "4.20",
		TrussModel:        "TG8L",
		TrussSize:         "6",
		QuantityToProduce: quantity,
		SelectedLots:      RoleSelection(byRole),
	}, testTrussModel(), t0)
	require.NoError(t, err)
	return order
}

func startedTrefila(t *testing.T, lots ...string) *ProductionOrder {
	t.Helper()
	order := newTrefilaOrder(t, lots...)
	require.NoError(t, order.Start("ana", at(1)))
	return order
}

func TestNewProductionOrder(t *testing.T) {
	tests := []struct {
		name        string
		params      NewOrderParams
		model       *TrussModel
		expectError error
	}{
		{
			name: "Valid Trefila order",
			params: NewOrderParams{
				OrderID: "o1", OrderNumber: "OP-1", Machine: MachineTrefila,
				TargetBitola: "4.20", SelectedLots: FlatSelection("L1"),
			},
		},
		{
			name: "Invalid machine",
			params: NewOrderParams{
				OrderID: "o2", OrderNumber: "OP-2", Machine: Machine("Laminador"),
				TargetBitola: "4.20", SelectedLots: FlatSelection("L1"),
			},
			expectError: ErrInvalidMachine,
		},
		{
			name: "No lots selected",
			params: NewOrderParams{
				OrderID: "o3", OrderNumber: "OP-3", Machine: MachineTrefila,
				TargetBitola: "4.20", SelectedLots: FlatSelection(),
			},
			expectError: ErrNoLotsSelected,
		},
		{
			name: "Treliça without model",
			params: NewOrderParams{
				OrderID: "o4", OrderNumber: "OP-4", Machine: MachineTrelica,
				TargetBitola: "4.20", QuantityToProduce: 10,
				SelectedLots: RoleSelection(map[Role][]string{RoleSuperior: {"L1"}}),
			},
			expectError: ErrMissingTrussSpec,
		},
		{
			name: "Treliça with unknown model",
			params: NewOrderParams{
				OrderID: "o5", OrderNumber: "OP-5", Machine: MachineTrelica,
				TargetBitola: "4.20", TrussModel: "TG8L", TrussSize: "6", QuantityToProduce: 10,
				SelectedLots: RoleSelection(map[Role][]string{RoleSuperior: {"L1"}}),
			},
			expectError: ErrTrussModelNotFound,
		},
		{
			name: "Negative quantity",
			params: NewOrderParams{
				OrderID: "o6", OrderNumber: "OP-6", Machine: MachineTrefila,
				TargetBitola: "4.20", QuantityToProduce: -1, SelectedLots: FlatSelection("L1"),
			},
			expectError: ErrInvalidQuantity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, err := NewProductionOrder(tt.params, tt.model, t0)

			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
				assert.ErrorIs(t, err, ErrValidation)
				assert.Nil(t, order)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, StatusPending, order.Status)
			assert.Len(t, order.DomainEvents(), 1)
		})
	}
}

func TestNewProductionOrder_TrelicaPlannedWeight(t *testing.T) {
	order := newTrelicaOrder(t, 120, map[Role][]string{RoleSuperior: {"L1"}})

	assert.InDelta(t, 660.0, order.PlannedOutputWeight, 1e-9)
	assert.Equal(t, StockInProductionTrelica, order.ReservedStatus())
}

func TestStart(t *testing.T) {
	order := newTrefilaOrder(t, "L1")
	order.ClearDomainEvents()

	require.NoError(t, order.Start("ana", at(1)))

	assert.Equal(t, StatusInProgress, order.Status)
	require.NotNil(t, order.StartTime)
	assert.Equal(t, ReasonAwaitingStart, order.Downtime.CurrentReason())
	require.Len(t, order.OperatorLogs, 1)
	assert.True(t, order.OperatorLogs[0].IsOpen())
	assert.Len(t, order.DomainEvents(), 1)

	err := order.Start("ana", at(2))
	assert.ErrorIs(t, err, ErrOrderNotPending)
}

func TestForceComplete(t *testing.T) {
	order := startedTrefila(t, "L1")
	require.NoError(t, order.StartLotProcessing("L1", at(5)))

	closed, err := order.ForceComplete("ord-next", at(10))
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, order.Status)
	assert.Nil(t, order.ActiveLot)
	assert.Nil(t, order.Downtime.Current)
	assert.Empty(t, order.OpenOperatorLogs())
	require.Len(t, closed, 1)
	assert.Equal(t, "ana", closed[0].Operator)
	assert.Equal(t, at(10), *closed[0].EndTime)

	_, err = order.ForceComplete("ord-other", at(11))
	assert.ErrorIs(t, err, ErrOrderCompleted)
}

func TestMarkDeleted(t *testing.T) {
	order := startedTrefila(t, "L1")
	require.NoError(t, order.MarkDeleted([]string{"L1"}, at(2)))

	_, err := order.ForceComplete("x", at(3))
	require.NoError(t, err)
	assert.ErrorIs(t, order.MarkDeleted(nil, at(4)), ErrCannotDeleteCompleted)
}

func TestDowntimeLog_SingleOpenEvent(t *testing.T) {
	order := startedTrefila(t, "L1", "L2")

	steps := []func() error{
		func() error { return order.LogDowntime("Quebra de arame", at(2)) },
		func() error { return order.LogDowntime("Falta de energia", at(3)) },
		func() error { return order.ResumeProduction(at(4)) },
		func() error { return order.StartLotProcessing("L1", at(5)) },
		func() error { return order.LogDowntime("Manutenção", at(6)) },
		func() error { return order.ResumeProduction(at(7)) },
		func() error { return order.FinishLotProcessing("L1", at(8)) },
		func() error { return order.StartShift("bruno", at(9)) },
		func() error { _, err := order.EndShift("bruno", nil, at(10)); return err },
		func() error { return order.StartShift("ana", at(11)) },
		func() error { return order.ResumeProduction(at(12)) },
	}

	for i, step := range steps {
		require.NoError(t, step(), "step %d", i)
		assert.LessOrEqual(t, order.Downtime.OpenCount(), 1, "step %d", i)
		for _, e := range order.Downtime.History {
			assert.NotNil(t, e.ResumeTime, "history holds only closed events")
		}
	}
}

func TestLogDowntime(t *testing.T) {
	order := startedTrefila(t, "L1")

	err := order.LogDowntime("   ", at(2))
	assert.ErrorIs(t, err, ErrEmptyReason)

	require.NoError(t, order.LogDowntime("Quebra de arame", at(2)))
	assert.Equal(t, "Quebra de arame", order.Downtime.CurrentReason())

	last := order.Downtime.History[len(order.Downtime.History)-1]
	assert.Equal(t, ReasonAwaitingStart, last.Reason)
	assert.Equal(t, at(2), *last.ResumeTime)

	pending := newTrefilaOrder(t, "L1")
	assert.ErrorIs(t, pending.LogDowntime("x", at(1)), ErrOrderNotInProgress)
}

func TestResumeProduction(t *testing.T) {
	t.Run("Trefila without active lot returns to roll change", func(t *testing.T) {
		order := startedTrefila(t, "L1")
		require.NoError(t, order.ResumeProduction(at(2)))
		assert.Equal(t, ReasonRollChange, order.Downtime.CurrentReason())
	})

	t.Run("Trefila with active lot produces", func(t *testing.T) {
		order := startedTrefila(t, "L1")
		require.NoError(t, order.StartLotProcessing("L1", at(2)))
		require.NoError(t, order.LogDowntime("Quebra", at(3)))
		require.NoError(t, order.ResumeProduction(at(4)))
		assert.Nil(t, order.Downtime.Current)
	})

	t.Run("nothing open is a no-op", func(t *testing.T) {
		order := newTrelicaOrder(t, 10, map[Role][]string{RoleSuperior: {"L1"}})
		require.NoError(t, order.Start("ana", at(1)))
		require.NoError(t, order.ResumeProduction(at(2)))
		history := len(order.Downtime.History)
		order.ClearDomainEvents()

		require.NoError(t, order.ResumeProduction(at(3)))
		assert.Len(t, order.Downtime.History, history)
		assert.Empty(t, order.DomainEvents())
	})
}

func TestOperatorLogs_SingleOpenPerOperator(t *testing.T) {
	order := startedTrefila(t, "L1")

	require.NoError(t, order.StartShift("ana", at(2)))
	require.NoError(t, order.StartShift("bruno", at(3)))
	require.NoError(t, order.StartShift("ana", at(4)))

	open := map[string]int{}
	for _, l := range order.OpenOperatorLogs() {
		open[l.Operator]++
	}
	for operator, n := range open {
		assert.Equal(t, 1, n, operator)
	}
	assert.Len(t, order.OpenOperatorLogs(), 1)
}

func TestStartShift_AfterShiftEnd(t *testing.T) {
	t.Run("Trefila goes to roll change", func(t *testing.T) {
		order := startedTrefila(t, "L1")
		_, err := order.EndShift("ana", nil, at(5))
		require.NoError(t, err)
		assert.Equal(t, ReasonShiftEnd, order.Downtime.CurrentReason())

		require.NoError(t, order.StartShift("bruno", at(6)))
		assert.Equal(t, ReasonRollChange, order.Downtime.CurrentReason())
	})

	t.Run("Trefila with a running lot resumes", func(t *testing.T) {
		order := startedTrefila(t, "L1")
		require.NoError(t, order.StartLotProcessing("L1", at(2)))
		_, err := order.EndShift("ana", nil, at(5))
		require.NoError(t, err)

		require.NoError(t, order.StartShift("bruno", at(6)))
		assert.Nil(t, order.Downtime.Current)
		last := order.Downtime.History[len(order.Downtime.History)-1]
		assert.Equal(t, ReasonShiftEnd, last.Reason)
		assert.Equal(t, at(6), *last.ResumeTime)
		assert.Equal(t, MachineProducing, DeriveMachineStatus(MachineTrefila, order, at(7)).Status)
	})

	t.Run("Treliça resumes", func(t *testing.T) {
		order := newTrelicaOrder(t, 10, map[Role][]string{RoleSuperior: {"L1"}})
		require.NoError(t, order.Start("ana", at(1)))
		_, err := order.EndShift("ana", nil, at(5))
		require.NoError(t, err)

		require.NoError(t, order.StartShift("bruno", at(6)))
		assert.Nil(t, order.Downtime.Current)
	})
}

func TestEndShift(t *testing.T) {
	order := startedTrefila(t, "L1")
	require.NoError(t, order.UpdateProducedQuantity(40, at(3)))

	final := 55
	log, err := order.EndShift("ana", &final, at(10))
	require.NoError(t, err)
	require.NotNil(t, log)

	assert.Equal(t, "ana", log.Operator)
	assert.Equal(t, at(1), log.StartTime)
	assert.Equal(t, 55, *log.EndQuantity)
	assert.Equal(t, 55, log.QuantityDelta())
	assert.Equal(t, 55, order.ActualProducedQuantity)
	assert.Equal(t, ReasonShiftEnd, order.Downtime.CurrentReason())

	_, err = order.EndShift("ana", nil, at(11))
	assert.ErrorIs(t, err, ErrNoOpenShift)

	negative := -1
	require.NoError(t, order.StartShift("ana", at(12)))
	_, err = order.EndShift("ana", &negative, at(13))
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestEndShift_UnknownOperatorLeavesOrderUntouched(t *testing.T) {
	order := startedTrefila(t, "L1")
	before := len(order.Downtime.History)

	_, err := order.EndShift("carla", nil, at(5))
	assert.ErrorIs(t, err, ErrNoOpenShift)
	assert.Len(t, order.OpenOperatorLogs(), 1)
	assert.Len(t, order.Downtime.History, before)
}

func TestLogPostProductionActivity(t *testing.T) {
	order := startedTrefila(t, "L1")
	_, err := order.EndShift("ana", nil, at(5))
	require.NoError(t, err)

	require.NoError(t, order.LogPostProductionActivity("ana", "Limpeza da fieira", at(6)))
	assert.Len(t, order.OperatorLogs[0].PostProductionActivities, 1)

	assert.ErrorIs(t, order.LogPostProductionActivity("ana", " ", at(7)), ErrEmptyDescription)
	assert.ErrorIs(t, order.LogPostProductionActivity("zeca", "x", at(7)), ErrNoOpenShift)
}

func TestLotProcessing_FinishThenStart(t *testing.T) {
	order := startedTrefila(t, "L1", "L2")

	require.NoError(t, order.StartLotProcessing("L1", at(2)))
	assert.Nil(t, order.Downtime.Current)
	assert.ErrorIs(t, order.StartLotProcessing("L2", at(3)), ErrLotAlreadyActive)

	require.NoError(t, order.FinishLotProcessing("L1", at(4)))
	assert.Nil(t, order.ActiveLot)
	assert.Equal(t, ReasonRollChange, order.Downtime.CurrentReason())

	require.NoError(t, order.StartLotProcessing("L2", at(5)))
	require.NotNil(t, order.ActiveLot)
	assert.Equal(t, "L2", order.ActiveLot.LotID)
	assert.NotEqual(t, "L1", order.ActiveLot.LotID)

	require.Len(t, order.ProcessedLots, 1)
	assert.Nil(t, order.ProcessedLots[0].FinalWeight)
}

func TestLotProcessing_Errors(t *testing.T) {
	order := startedTrefila(t, "L1")

	assert.ErrorIs(t, order.StartLotProcessing("L9", at(2)), ErrLotNotSelected)
	assert.ErrorIs(t, order.FinishLotProcessing("L1", at(2)), ErrLotNotActive)

	trelica := newTrelicaOrder(t, 10, map[Role][]string{RoleSuperior: {"L1"}})
	require.NoError(t, trelica.Start("ana", at(1)))
	assert.ErrorIs(t, trelica.StartLotProcessing("L1", at(2)), ErrMachineMismatch)
}

func TestRecordLotWeight_MergesFields(t *testing.T) {
	order := startedTrefila(t, "L1")
	require.NoError(t, order.StartLotProcessing("L1", at(2)))
	require.NoError(t, order.FinishLotProcessing("L1", at(3)))

	weight := 480.5
	gaugeA, gaugeB := 4.18, 4.21
	require.NoError(t, order.RecordLotWeight("L1", &weight, &gaugeA, at(4)))
	require.NoError(t, order.RecordLotWeight("L1", nil, &gaugeB, at(5)))

	lot := order.ProcessedLots[0]
	require.NotNil(t, lot.FinalWeight)
	require.NotNil(t, lot.MeasuredGauge)
	assert.Equal(t, 480.5, *lot.FinalWeight)
	assert.Equal(t, 4.21, *lot.MeasuredGauge)

	err := order.RecordLotWeight("L7", &weight, nil, at(6))
	assert.ErrorIs(t, err, ErrProcessedLotMissing)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordLotWeight_AllowedAfterCompletion(t *testing.T) {
	order := startedTrefila(t, "L1")
	require.NoError(t, order.StartLotProcessing("L1", at(2)))
	require.NoError(t, order.FinishLotProcessing("L1", at(3)))
	_, err := order.ForceComplete("x", at(4))
	require.NoError(t, err)

	weight := 300.0
	assert.NoError(t, order.RecordLotWeight("L1", &weight, nil, at(5)))
}

func TestRecordPackageWeight(t *testing.T) {
	order := newTrelicaOrder(t, 100, map[Role][]string{RoleSuperior: {"L1"}})
	require.NoError(t, order.Start("ana", at(1)))

	tests := []struct {
		name        string
		input       PackageInput
		expectError error
	}{
		{"within tolerance", PackageInput{PackageNumber: 2, Quantity: 10, Weight: 55.4}, nil},
		{"outside tolerance", PackageInput{PackageNumber: 3, Quantity: 10, Weight: 60}, ErrPackageWeightTolerance},
		{"manager override", PackageInput{PackageNumber: 1, Quantity: 10, Weight: 60, ManagerOverride: true}, nil},
		{"upsert existing package", PackageInput{PackageNumber: 2, Quantity: 20, Weight: 110}, nil},
		{"invalid package number", PackageInput{PackageNumber: 0, Quantity: 1, Weight: 5.5}, ErrInvalidPackage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := order.RecordPackageWeight(tt.input, 5.5, at(5))
			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
				return
			}
			require.NoError(t, err)
		})
	}

	require.Len(t, order.WeighedPackages, 2)
	assert.Equal(t, 1, order.WeighedPackages[0].PackageNumber)
	assert.Equal(t, 2, order.WeighedPackages[1].PackageNumber)
	assert.Equal(t, 30, order.PackagedQuantity())
	assert.Equal(t, 30, order.ActualProducedQuantity)
	assert.InDelta(t, 170.0, order.PackagedWeight(), 1e-9)
}

func TestUpdateProducedQuantity(t *testing.T) {
	order := startedTrefila(t, "L1")

	assert.ErrorIs(t, order.UpdateProducedQuantity(-5, at(2)), ErrInvalidQuantity)
	require.NoError(t, order.UpdateProducedQuantity(12, at(2)))
	assert.Equal(t, 12, order.ActualProducedQuantity)
}

func TestCanTransition(t *testing.T) {
	order := newTrefilaOrder(t, "L1")

	assert.True(t, order.CanTransition(EventStart))
	assert.False(t, order.CanTransition(EventComplete))

	require.NoError(t, order.Start("ana", at(1)))
	assert.True(t, order.CanTransition(EventComplete))
	assert.True(t, order.CanTransition(EventForceComplete))
	assert.False(t, order.CanTransition(EventStart))
}

func TestErrorKinds(t *testing.T) {
	assert.True(t, errors.Is(ErrOrderNotFound, ErrNotFound))
	assert.True(t, errors.Is(ErrShiftReportExists, ErrConcurrentModification))
	assert.False(t, errors.Is(ErrOrderNotFound, ErrValidation))
}
