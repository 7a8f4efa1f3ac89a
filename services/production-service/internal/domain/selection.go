package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// SelectionKind tags the SelectedLots variant
type SelectionKind string

const (
	SelectionFlat  SelectionKind = "flat"
	SelectionRoles SelectionKind = "roles"
)

// Role is the structural position a lot serves in a truss
type Role string

const (
	RoleSuperior       Role = "superior"
	RoleInferiorLeft   Role = "inferiorLeft"
	RoleInferiorRight  Role = "inferiorRight"
	RoleSenozoideLeft  Role = "senozoideLeft"
	RoleSenozoideRight Role = "senozoideRight"
)

// Roles in distribution order
var Roles = []Role{RoleSuperior, RoleInferiorLeft, RoleInferiorRight, RoleSenozoideLeft, RoleSenozoideRight}

// Label is the location written onto stock lots consumed in this role
func (r Role) Label() string {
	switch r {
	case RoleSuperior:
		return "Superior"
	case RoleInferiorLeft:
		return "Inferior Esq"
	case RoleInferiorRight:
		return "Inferior Dir"
	case RoleSenozoideLeft:
		return "Senozoide Esq"
	case RoleSenozoideRight:
		return "Senozoide Dir"
	default:
		return string(r)
	}
}

// IsValid checks if the role is known
func (r Role) IsValid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// SelectedLots is either a flat lot list (Trefila) or lots grouped by role (Treliça)
type SelectedLots struct {
	Kind   SelectionKind     `bson:"kind" json:"kind"`
	LotIDs []string          `bson:"lotIds,omitempty" json:"lotIds,omitempty"`
	ByRole map[Role][]string `bson:"roles,omitempty" json:"roles,omitempty"`
}

// FlatSelection builds a flat selection
func FlatSelection(lotIDs ...string) SelectedLots {
	return SelectedLots{Kind: SelectionFlat, LotIDs: cleanIDs(lotIDs)}
}

// RoleSelection builds a role-keyed selection, dropping empty roles
func RoleSelection(byRole map[Role][]string) SelectedLots {
	clean := make(map[Role][]string, len(byRole))
	for role, ids := range byRole {
		if ids = cleanIDs(ids); len(ids) > 0 {
			clean[role] = ids
		}
	}
	return SelectedLots{Kind: SelectionRoles, ByRole: clean}
}

func cleanIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// IsEmpty reports whether no lot is selected
func (s SelectedLots) IsEmpty() bool {
	return len(s.AllLotIDs()) == 0
}

// AllLotIDs returns every distinct lot id, roles in distribution order
func (s SelectedLots) AllLotIDs() []string {
	if s.Kind != SelectionRoles {
		return cleanIDs(s.LotIDs)
	}
	var all []string
	for _, role := range Roles {
		all = append(all, s.ByRole[role]...)
	}
	return cleanIDs(all)
}

// LotsFor returns the lots assigned to role
func (s SelectedLots) LotsFor(role Role) []string {
	if s.Kind != SelectionRoles {
		return nil
	}
	return s.ByRole[role]
}

// Contains reports whether lotID is selected
func (s SelectedLots) Contains(lotID string) bool {
	for _, id := range s.AllLotIDs() {
		if id == lotID {
			return true
		}
	}
	return false
}

// legacy five-slot positions, also the flat-array order for Treliça
var legacySlots = []struct {
	single string
	all    string
	role   Role
}{
	{"superior", "allSuperior", RoleSuperior},
	{"inferior1", "allInferiorLeft", RoleInferiorLeft},
	{"inferior2", "allInferiorRight", RoleInferiorRight},
	{"senozoide1", "allSenozoideLeft", RoleSenozoideLeft},
	{"senozoide2", "allSenozoideRight", RoleSenozoideRight},
}

// NormalizeSelection resolves every accepted request shape into SelectedLots:
// a JSON array, the legacy five-slot object, or a role-keyed object.
func NormalizeSelection(machine Machine, raw json.RawMessage) (SelectedLots, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return SelectedLots{}, ErrNoLotsSelected
	}

	var sel SelectedLots
	switch raw[0] {
	case '[':
		var ids []string
		if err := json.Unmarshal(raw, &ids); err != nil {
			return SelectedLots{}, fmt.Errorf("%w: %v", ErrInvalidSelection, err)
		}
		if machine == MachineTrelica {
			if len(ids) > len(legacySlots) {
				return SelectedLots{}, fmt.Errorf("%w: a flat Treliça selection has at most %d slots", ErrInvalidSelection, len(legacySlots))
			}
			byRole := make(map[Role][]string)
			for i, id := range ids {
				byRole[legacySlots[i].role] = []string{id}
			}
			sel = RoleSelection(byRole)
		} else {
			sel = FlatSelection(ids...)
		}
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return SelectedLots{}, fmt.Errorf("%w: %v", ErrInvalidSelection, err)
		}
		var err error
		sel, err = normalizeObject(fields)
		if err != nil {
			return SelectedLots{}, err
		}
	default:
		return SelectedLots{}, fmt.Errorf("%w: expected an array or an object", ErrInvalidSelection)
	}

	if machine == MachineTrefila && sel.Kind == SelectionRoles {
		sel = FlatSelection(sel.AllLotIDs()...)
	}
	if sel.IsEmpty() {
		return SelectedLots{}, ErrNoLotsSelected
	}
	return sel, nil
}

func normalizeObject(fields map[string]json.RawMessage) (SelectedLots, error) {
	// already normalized
	if kind, ok := fields["kind"]; ok {
		var sel SelectedLots
		var k SelectionKind
		if err := json.Unmarshal(kind, &k); err != nil {
			return SelectedLots{}, fmt.Errorf("%w: %v", ErrInvalidSelection, err)
		}
		switch k {
		case SelectionFlat:
			ids, err := stringList(fields["lotIds"])
			if err != nil {
				return SelectedLots{}, err
			}
			sel = FlatSelection(ids...)
		case SelectionRoles:
			var byRole map[Role][]string
			if err := json.Unmarshal(fields["roles"], &byRole); err != nil {
				return SelectedLots{}, fmt.Errorf("%w: %v", ErrInvalidSelection, err)
			}
			for role := range byRole {
				if !role.IsValid() {
					return SelectedLots{}, fmt.Errorf("%w: unknown role %q", ErrInvalidSelection, role)
				}
			}
			sel = RoleSelection(byRole)
		default:
			return SelectedLots{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidSelection, k)
		}
		return sel, nil
	}

	byRole := make(map[Role][]string)
	for _, slot := range legacySlots {
		// the all* list wins over both single-slot and role keys
		if v, ok := fields[slot.all]; ok {
			ids, err := stringList(v)
			if err != nil {
				return SelectedLots{}, err
			}
			if len(cleanIDs(ids)) > 0 {
				byRole[slot.role] = ids
				continue
			}
		}
		for _, key := range []string{string(slot.role), slot.single} {
			v, ok := fields[key]
			if !ok {
				continue
			}
			ids, err := stringList(v)
			if err != nil {
				return SelectedLots{}, err
			}
			byRole[slot.role] = ids
			break
		}
	}
	return RoleSelection(byRole), nil
}

// stringList accepts a string, a list of strings, or null
func stringList(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSelection, err)
		}
		return []string{s}, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSelection, err)
	}
	return list, nil
}
