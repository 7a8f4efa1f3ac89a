// Package catalog reads the truss model catalog from its YAML source.
package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mes-platform/production/services/production-service/internal/domain"
)

type file struct {
	Models []entry `yaml:"models"`
}

// entry mirrors domain.TrussModel with weights kept as decimal-comma text
type entry struct {
	domain.TrussModel `yaml:",inline"`
	PesoFinal         string `yaml:"pesoFinal"`
	PesoSuperior      string `yaml:"pesoSuperior"`
	PesoInferior      string `yaml:"pesoInferior"`
	PesoSenozoide     string `yaml:"pesoSenozoide"`
}

// Load reads and parses a catalog file
func Load(path string) ([]domain.TrussModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read truss catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a catalog document. Every entry must carry a model, a size
// and a positive final weight, and model/size pairs must be unique.
func Parse(data []byte) ([]domain.TrussModel, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse truss catalog: %w", err)
	}

	models := make([]domain.TrussModel, 0, len(f.Models))
	for i, e := range f.Models {
		m := e.TrussModel
		weights := []struct {
			raw    string
			target *float64
		}{
			{e.PesoFinal, &m.PesoFinal},
			{e.PesoSuperior, &m.PesoSuperior},
			{e.PesoInferior, &m.PesoInferior},
			{e.PesoSenozoide, &m.PesoSenozoide},
		}
		for _, w := range weights {
			v, err := domain.ParseDecimal(w.raw)
			if err != nil {
				return nil, fmt.Errorf("truss catalog entry %d (%s): %w", i, m.Code, err)
			}
			*w.target = v
		}
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("truss catalog entry %d (%s): %w", i, m.Code, err)
		}
		if _, err := domain.FindTrussModel(models, m.Model, m.Size); err == nil {
			return nil, fmt.Errorf("truss catalog entry %d: duplicate %s size %s", i, m.Model, m.Size)
		}
		models = append(models, m)
	}
	return models, nil
}
