package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocate(t *testing.T) {
	tests := []struct {
		name       string
		candidates []Candidate
		required   float64
		takes      []Take
		shortfall  float64
	}{
		{
			name: "support lot drained first",
			candidates: []Candidate{
				{LotID: "b", InternalLot: "L1", Available: 500},
				{LotID: "a", InternalLot: "L9", Available: 120, Priority: true},
			},
			required:  300,
			takes:     []Take{{LotID: "a", Weight: 120}, {LotID: "b", Weight: 180}},
			shortfall: 0,
		},
		{
			name: "natural order of internal labels",
			candidates: []Candidate{
				{LotID: "x", InternalLot: "L10", Available: 50},
				{LotID: "y", InternalLot: "L2", Available: 50},
			},
			required: 60,
			takes:    []Take{{LotID: "y", Weight: 50}, {LotID: "x", Weight: 10}},
		},
		{
			name: "ties broken by lot id",
			candidates: []Candidate{
				{LotID: "b", InternalLot: "L1", Available: 10},
				{LotID: "a", InternalLot: "L1", Available: 10},
			},
			required: 5,
			takes:    []Take{{LotID: "a", Weight: 5}},
		},
		{
			name: "under-supply is reported as shortfall",
			candidates: []Candidate{
				{LotID: "a", InternalLot: "L1", Available: 40},
				{LotID: "b", InternalLot: "L2", Available: 0},
			},
			required:  100,
			takes:     []Take{{LotID: "a", Weight: 40}},
			shortfall: 60,
		},
		{
			name:     "nothing required",
			required: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alloc := Allocate(tt.candidates, tt.required)
			assert.Equal(t, tt.takes, alloc.Takes)
			assert.InDelta(t, tt.shortfall, alloc.Shortfall, 1e-9)
		})
	}
}

func TestAllocate_DoesNotReorderInput(t *testing.T) {
	candidates := []Candidate{
		{LotID: "b", InternalLot: "L2", Available: 1},
		{LotID: "a", InternalLot: "L1", Available: 1},
	}
	Allocate(candidates, 2)
	assert.Equal(t, "b", candidates[0].LotID)
}

func TestDistributor_SharedLotNotOverdrawn(t *testing.T) {
	stock := []*StockItem{
		{StockID: "shared", InternalLot: "L1", RemainingQuantity: 100},
		{StockID: "other", InternalLot: "L2", RemainingQuantity: 100},
	}
	d := NewDistributor(stock)

	first := d.Distribute([]string{"shared"}, 70)
	require.Len(t, first.Takes, 1)
	assert.InDelta(t, 70, d.Consumed("shared"), 1e-9)

	second := d.Distribute([]string{"shared", "other"}, 70)
	assert.Equal(t, []Take{{LotID: "shared", Weight: 30}, {LotID: "other", Weight: 40}}, second.Takes)
	assert.InDelta(t, 100, d.Consumed("shared"), 1e-9)
	assert.InDelta(t, 40, d.Consumed("other"), 1e-9)
	assert.Equal(t, []string{"shared", "other"}, d.ConsumedLots())
}

func TestNaturalCompare(t *testing.T) {
	assert.Equal(t, -1, naturalCompare("L2", "L10"))
	assert.Equal(t, 1, naturalCompare("L10", "L2"))
	assert.Equal(t, 0, naturalCompare("l7", "L7"))
	assert.Equal(t, -1, naturalCompare("L7", "L7A"))
	assert.Equal(t, 0, naturalCompare("L007", "L7"))
}
