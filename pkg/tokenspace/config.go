package tokenspace

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EngineConfig is the on-disk bootstrap configuration for an Engine: the
// seed CDNA values plus the graph's degree cap and auto-connect policy.
// It exists because Cdna itself carries no yaml tags - it is the packed
// wire record, not a config file shape - so EngineConfig is the
// human-editable source that gets turned into a Cdna and EngineOptions.
type EngineConfig struct {
	MaxDegree int `yaml:"max_degree"`

	GraphTopology struct {
		MaxConnections    uint32  `yaml:"max_connections"`
		DecayRate         float32 `yaml:"decay_rate"`
		SymmetryTolerance float32 `yaml:"symmetry_tolerance"`
	} `yaml:"graph_topology"`

	TokenProperties struct {
		WeightMin float32 `yaml:"weight_min"`
		WeightMax float32 `yaml:"weight_max"`
	} `yaml:"token_properties"`

	EvolutionConstraints struct {
		MutationRateBase  float32 `yaml:"mutation_rate_base"`
		MutationRateMax   float32 `yaml:"mutation_rate_max"`
		CrossoverRate     float32 `yaml:"crossover_rate"`
		SelectionPressure float32 `yaml:"selection_pressure"`
	} `yaml:"evolution_constraints"`

	AutoConnect struct {
		Enabled         bool    `yaml:"enabled"`
		SpatialRadius   float32 `yaml:"spatial_radius"`
		TemporalWindowS uint32  `yaml:"temporal_window_seconds"`
	} `yaml:"auto_connect"`
}

// LoadEngineConfig reads and parses an EngineConfig from a YAML file
// (grounded on the pack's devnet.go config loader: read bytes, yaml.Unmarshal
// into a tagged struct, wrap errors with fmt.Errorf). The values are not
// validated here; Cdna().Validate checks the record derived from them.
func LoadEngineConfig(path string) (EngineConfig, error) {
	var cfg EngineConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("tokenspace: reading engine config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("tokenspace: parsing engine config %q: %w", path, err)
	}
	return cfg, nil
}

// Cdna builds a Cdna record from the config, starting from DefaultCdna() so
// that any field left at its YAML zero value falls back to the engine's
// default rather than zero. A field cannot be set to zero through the config.
func (c EngineConfig) Cdna() Cdna {
	cdna := DefaultCdna()
	if c.GraphTopology.MaxConnections != 0 {
		cdna.GraphTopology.MaxConnections = c.GraphTopology.MaxConnections
	}
	if c.GraphTopology.DecayRate != 0 {
		cdna.GraphTopology.DecayRate = c.GraphTopology.DecayRate
	}
	if c.GraphTopology.SymmetryTolerance != 0 {
		cdna.GraphTopology.SymmetryTolerance = c.GraphTopology.SymmetryTolerance
	}
	if c.TokenProperties.WeightMin != 0 {
		cdna.TokenProperties.WeightMin = c.TokenProperties.WeightMin
	}
	if c.TokenProperties.WeightMax != 0 {
		cdna.TokenProperties.WeightMax = c.TokenProperties.WeightMax
	}
	if c.EvolutionConstraints.MutationRateBase != 0 {
		cdna.EvolutionConstraints.MutationRateBase = c.EvolutionConstraints.MutationRateBase
	}
	if c.EvolutionConstraints.MutationRateMax != 0 {
		cdna.EvolutionConstraints.MutationRateMax = c.EvolutionConstraints.MutationRateMax
	}
	if c.EvolutionConstraints.CrossoverRate != 0 {
		cdna.EvolutionConstraints.CrossoverRate = c.EvolutionConstraints.CrossoverRate
	}
	if c.EvolutionConstraints.SelectionPressure != 0 {
		cdna.EvolutionConstraints.SelectionPressure = c.EvolutionConstraints.SelectionPressure
	}
	return cdna
}

// EngineOptions converts the config into options ready for NewEngine. The
// caller is still responsible for applying AutoConnect to the resulting
// Engine's GraphIndex, since EngineOptions has no such field.
func (c EngineConfig) EngineOptions() EngineOptions {
	maxDegree := c.MaxDegree
	if maxDegree == 0 {
		maxDegree = DefaultEngineOptions().MaxDegree
	}
	cdna := c.Cdna()
	return EngineOptions{Cdna: &cdna, MaxDegree: maxDegree}
}
