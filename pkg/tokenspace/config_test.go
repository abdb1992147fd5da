package tokenspace

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleConfigYAML = `
max_degree: 32
graph_topology:
  max_connections: 16
  decay_rate: 0.05
token_properties:
  weight_min: 0.1
  weight_max: 0.9
auto_connect:
  enabled: true
  spatial_radius: 0.5
  temporal_window_seconds: 60
`

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}

func TestLoadEngineConfig(t *testing.T) {
	path := writeTempConfig(t, sampleConfigYAML)

	cfg, err := LoadEngineConfig(path)
	if err != nil {
		t.Fatalf("LoadEngineConfig() error = %v", err)
	}
	if cfg.MaxDegree != 32 {
		t.Errorf("MaxDegree = %d, want 32", cfg.MaxDegree)
	}
	if !cfg.AutoConnect.Enabled {
		t.Error("AutoConnect.Enabled = false, want true")
	}
}

func TestLoadEngineConfigMissingFile(t *testing.T) {
	if _, err := LoadEngineConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestEngineConfigCdnaOverridesOnlyNonZero(t *testing.T) {
	cfg, err := LoadEngineConfig(writeTempConfig(t, sampleConfigYAML))
	if err != nil {
		t.Fatalf("LoadEngineConfig() error = %v", err)
	}

	cdna := cfg.Cdna()
	if cdna.GraphTopology.MaxConnections != 16 {
		t.Errorf("GraphTopology.MaxConnections = %d, want 16", cdna.GraphTopology.MaxConnections)
	}
	if cdna.TokenProperties.WeightMin != 0.1 || cdna.TokenProperties.WeightMax != 0.9 {
		t.Errorf("TokenProperties = %+v, want WeightMin=0.1 WeightMax=0.9", cdna.TokenProperties)
	}
	defaults := DefaultCdna()
	if cdna.EvolutionConstraints.CrossoverRate != defaults.EvolutionConstraints.CrossoverRate {
		t.Error("unset EvolutionConstraints.CrossoverRate should fall back to the default")
	}
	if err := cdna.Validate(); err != nil {
		t.Errorf("Cdna() from config should validate, got %v", err)
	}
}

func TestEngineConfigEngineOptionsDefaultsMaxDegree(t *testing.T) {
	cfg, err := LoadEngineConfig(writeTempConfig(t, "graph_topology:\n  max_connections: 4\n"))
	if err != nil {
		t.Fatalf("LoadEngineConfig() error = %v", err)
	}
	opts := cfg.EngineOptions()
	if opts.MaxDegree != DefaultEngineOptions().MaxDegree {
		t.Errorf("MaxDegree = %d, want default %d", opts.MaxDegree, DefaultEngineOptions().MaxDegree)
	}
}
