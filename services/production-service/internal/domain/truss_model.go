package domain

import (
	"math"
	"strconv"
	"strings"
)

// TrussModel is a catalog entry giving per-piece weights by structural role
type TrussModel struct {
	Code           string  `bson:"code" json:"code" yaml:"code"`
	Model          string  `bson:"model" json:"model" yaml:"model"`
	Size           string  `bson:"size" json:"size" yaml:"size"`
	SuperiorGauge  string  `bson:"superiorGauge" json:"superiorGauge" yaml:"superiorGauge"`
	InferiorGauge  string  `bson:"inferiorGauge" json:"inferiorGauge" yaml:"inferiorGauge"`
	SenozoideGauge string  `bson:"senozoideGauge" json:"senozoideGauge" yaml:"senozoideGauge"`
	PesoFinal      float64 `bson:"pesoFinal" json:"pesoFinal" yaml:"-"`
	PesoSuperior   float64 `bson:"pesoSuperior" json:"pesoSuperior" yaml:"-"`
	PesoInferior   float64 `bson:"pesoInferior" json:"pesoInferior" yaml:"-"`
	PesoSenozoide  float64 `bson:"pesoSenozoide" json:"pesoSenozoide" yaml:"-"`
}

// Matches reports whether the entry is the catalog row for model and size.
// Model is compared case-insensitively, size exactly, both trimmed.
func (m *TrussModel) Matches(model, size string) bool {
	return strings.EqualFold(strings.TrimSpace(m.Model), strings.TrimSpace(model)) &&
		strings.TrimSpace(m.Size) == strings.TrimSpace(size)
}

// Tamanho is the truss length in meters
func (m *TrussModel) Tamanho() float64 {
	v, err := ParseDecimal(m.Size)
	if err != nil {
		return 0
	}
	return v
}

// RoleWeight is the per-piece weight drawn from the given role. Left and
// right positions share their group's weight; the split happens in distribution.
func (m *TrussModel) RoleWeight(role Role) float64 {
	switch role {
	case RoleSuperior:
		return m.PesoSuperior
	case RoleInferiorLeft, RoleInferiorRight:
		return m.PesoInferior
	case RoleSenozoideLeft, RoleSenozoideRight:
		return m.PesoSenozoide
	default:
		return 0
	}
}

// Validate checks the entry is usable for planning and consumption
func (m *TrussModel) Validate() error {
	if strings.TrimSpace(m.Model) == "" || strings.TrimSpace(m.Size) == "" {
		return ErrInvalidTrussModel
	}
	if m.PesoFinal <= 0 || m.PesoSuperior < 0 || m.PesoInferior < 0 || m.PesoSenozoide < 0 {
		return ErrInvalidTrussModel
	}
	return nil
}

// PontaWeight computes a leftover batch weight from the per-meter weight of the model
func (m *TrussModel) PontaWeight(sizeMeters float64, quantity int) float64 {
	tamanho := m.Tamanho()
	if tamanho <= 0 {
		return 0
	}
	return round2(m.PesoFinal / tamanho * sizeMeters * float64(quantity))
}

// ParseDecimal parses numbers written with either a decimal comma or point
func ParseDecimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, validationError("empty decimal")
	}
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
}

// FindTrussModel returns the catalog row for model and size
func FindTrussModel(catalog []TrussModel, model, size string) (*TrussModel, error) {
	for i := range catalog {
		if catalog[i].Matches(model, size) {
			return &catalog[i], nil
		}
	}
	return nil, ErrTrussModelNotFound
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
