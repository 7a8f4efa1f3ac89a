package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSelection(t *testing.T) {
	tests := []struct {
		name        string
		machine     Machine
		raw         string
		expected    SelectedLots
		expectError error
	}{
		{
			name:     "Trefila flat array",
			machine:  MachineTrefila,
			raw:      `["L1", " L2 ", "L1"]`,
			expected: SelectedLots{Kind: SelectionFlat, LotIDs: []string{"L1", "L2"}},
		},
		{
			name:    "Treliça flat array maps to legacy slots",
			machine: MachineTrelica,
			raw:     `["S", "IL", "IR", "SL", "SR"]`,
			expected: SelectedLots{Kind: SelectionRoles, ByRole: map[Role][]string{
				RoleSuperior:       {"S"},
				RoleInferiorLeft:   {"IL"},
				RoleInferiorRight:  {"IR"},
				RoleSenozoideLeft:  {"SL"},
				RoleSenozoideRight: {"SR"},
			}},
		},
		{
			name:        "Treliça flat array too long",
			machine:     MachineTrelica,
			raw:         `["1","2","3","4","5","6"]`,
			expectError: ErrInvalidSelection,
		},
		{
			name:    "legacy object prefers all lists",
			machine: MachineTrelica,
			raw: `{"superior":"S1","allSuperior":["S2","S3"],"inferior1":"IL",
				"allInferiorRight":[],"inferior2":"IR","senozoide1":null}`,
			expected: SelectedLots{Kind: SelectionRoles, ByRole: map[Role][]string{
				RoleSuperior:      {"S2", "S3"},
				RoleInferiorLeft:  {"IL"},
				RoleInferiorRight: {"IR"},
			}},
		},
		{
			name:    "role keyed object",
			machine: MachineTrelica,
			raw:     `{"superior":["S1"],"inferiorLeft":"IL","senozoideRight":["SR1","SR2"]}`,
			expected: SelectedLots{Kind: SelectionRoles, ByRole: map[Role][]string{
				RoleSuperior:       {"S1"},
				RoleInferiorLeft:   {"IL"},
				RoleSenozoideRight: {"SR1", "SR2"},
			}},
		},
		{
			name:     "normalized form round trips",
			machine:  MachineTrefila,
			raw:      `{"kind":"flat","lotIds":["L1"]}`,
			expected: SelectedLots{Kind: SelectionFlat, LotIDs: []string{"L1"}},
		},
		{
			name:     "Trefila given roles is flattened",
			machine:  MachineTrefila,
			raw:      `{"superior":"A","inferior1":"B"}`,
			expected: SelectedLots{Kind: SelectionFlat, LotIDs: []string{"A", "B"}},
		},
		{
			name:        "unknown role",
			machine:     MachineTrelica,
			raw:         `{"kind":"roles","roles":{"diagonal":["X"]}}`,
			expectError: ErrInvalidSelection,
		},
		{
			name:        "empty",
			machine:     MachineTrefila,
			raw:         `[]`,
			expectError: ErrNoLotsSelected,
		},
		{
			name:        "null",
			machine:     MachineTrefila,
			raw:         `null`,
			expectError: ErrNoLotsSelected,
		},
		{
			name:        "scalar",
			machine:     MachineTrefila,
			raw:         `42`,
			expectError: ErrInvalidSelection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := NormalizeSelection(tt.machine, json.RawMessage(tt.raw))
			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, sel)
		})
	}
}

func TestSelectedLots_Queries(t *testing.T) {
	sel := RoleSelection(map[Role][]string{
		RoleSuperior:      {"A"},
		RoleInferiorLeft:  {"B", "A"},
		RoleSenozoideLeft: {"C"},
	})

	assert.Equal(t, []string{"A", "B", "C"}, sel.AllLotIDs())
	assert.True(t, sel.Contains("B"))
	assert.False(t, sel.Contains("Z"))
	assert.Equal(t, []string{"B", "A"}, sel.LotsFor(RoleInferiorLeft))
	assert.Nil(t, sel.LotsFor(RoleInferiorRight))
	assert.False(t, sel.IsEmpty())

	assert.Equal(t, "Inferior Esq", RoleInferiorLeft.Label())
	assert.Equal(t, "Senozoide Dir", RoleSenozoideRight.Label())
}
