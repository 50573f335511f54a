package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig_IsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultDistAdduct, cfg.Graph.DistAdduct)
	assert.Equal(t, []int{DefaultWidth, DefaultHeight}, cfg.Graph.Size)
	assert.Equal(t, DefaultLayout, cfg.Graph.Layout)
	assert.Equal(t, ModeRead, cfg.Files.Reactions.Mode)
	assert.Equal(t, "bolt://localhost:7687", cfg.DB.BoltURI())
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{Graph: GraphConfig{DistAdduct: 5, Layout: "circular"}}
	ApplyDefaults(cfg)

	assert.Equal(t, 5.0, cfg.Graph.DistAdduct)
	assert.Equal(t, "circular", cfg.Graph.Layout)
	assert.Equal(t, DefaultMapField, cfg.Graph.MapField)
}

func TestApplyDefaults_Nil(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"db without name", func(c *Config) { c.DB.Active = true; c.Method.Method = "pbe" }, "db.name"},
		{"db without method", func(c *Config) { c.DB.Active = true; c.DB.Name = "crn" }, "method.method"},
		{"bad mode", func(c *Config) { c.Files.Pathfinder.Mode = "append" }, "files.pathfinder.mode"},
		{"mismatched modes", func(c *Config) { c.Files.Reactions.Mode = ModeWrite }, "must match"},
		{"bad layout", func(c *Config) { c.Graph.Layout = "force" }, "graph.layout"},
		{"bad map field", func(c *Config) { c.Graph.MapField = "charge" }, "graph.map_field"},
		{"non-positive adduct", func(c *Config) { c.Graph.DistAdduct = -1 }, "graph.dist_adduct"},
		{"bad size", func(c *Config) { c.Graph.Size = []int{100} }, "graph.size"},
		{"zero height", func(c *Config) { c.Graph.Size = []int{100, 0} }, "graph.size"},
		{"bad axis", func(c *Config) { c.Graph.AdductAxis = "w" }, "graph.adduct_axis"},
		{"bad energy unit", func(c *Config) { c.Graph.EnergyUnit = "ev" }, "graph.energy_unit"},
		{"bad energy type", func(c *Config) { c.Method.EnergyType = "enthalpy" }, "method.energy_type"},
		{"publish without bucket", func(c *Config) { c.Publish.Enabled = true; c.Publish.Endpoint = "s3:9000" }, "publish.bucket"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestModelConfig_String(t *testing.T) {
	m := ModelConfig{Family: "dft", Method: "pbe-d3bj", BasisSet: "def2-tzvp", Program: "orca"}
	assert.Equal(t, "dft/pbe-d3bj/def2-tzvp/orca", m.String())
	assert.False(t, m.IsZero())
	assert.True(t, ModelConfig{}.IsZero())
}
