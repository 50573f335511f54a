// Package config defines the vizcrn configuration structures. No I/O or
// parsing logic lives here, only plain data types and validation.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Artifact modes for files.*.mode.
const (
	ModeRead  = "read"
	ModeWrite = "write"
)

// DBConfig holds the reaction-database connection parameters. Active=false
// skips extraction and reads the existing edge/compound files.
type DBConfig struct {
	Active                bool          `mapstructure:"active"`
	URI                   string        `mapstructure:"uri"`
	Host                  string        `mapstructure:"host"`
	Port                  int           `mapstructure:"port"`
	Name                  string        `mapstructure:"name"`
	User                  string        `mapstructure:"user"`
	Password              string        `mapstructure:"password"`
	MaxConnectionPoolSize int           `mapstructure:"max_connection_pool_size"`
	ConnectionTimeout     time.Duration `mapstructure:"connection_timeout"`
}

// BoltURI returns URI when set, otherwise bolt://host:port.
func (d DBConfig) BoltURI() string {
	if d.URI != "" {
		return d.URI
	}
	return fmt.Sprintf("bolt://%s:%d", d.Host, d.Port)
}

// ModelConfig describes one electronic-structure model.
type ModelConfig struct {
	Family   string `mapstructure:"family"`
	Method   string `mapstructure:"method"`
	BasisSet string `mapstructure:"basis_set"`
	Program  string `mapstructure:"program"`
}

// IsZero reports whether no field of the model is set.
func (m ModelConfig) IsZero() bool {
	return m == ModelConfig{}
}

func (m ModelConfig) String() string {
	return strings.Join([]string{m.Family, m.Method, m.BasisSet, m.Program}, "/")
}

// MethodConfig is the computational-method descriptor used for extraction.
type MethodConfig struct {
	ModelConfig `mapstructure:",squash"`
	Solvation   string `mapstructure:"solvation"`
	Solvent     string `mapstructure:"solvent"`
	// EnergyType is electronic_energy or gibbs_free_energy.
	EnergyType string `mapstructure:"energy_type"`
	// Correction, when set, enables composite energies:
	// E_elec(correction) + G(method) - E_elec(method).
	Correction ModelConfig `mapstructure:"correction"`
}

// ArtifactConfig is a path plus read/write mode.
type ArtifactConfig struct {
	Path string `mapstructure:"path"`
	Mode string `mapstructure:"mode"`
}

// FilesConfig groups the three persisted artifacts.
type FilesConfig struct {
	Pathfinder ArtifactConfig `mapstructure:"pathfinder"`
	Reactions  ArtifactConfig `mapstructure:"reactions"`
	Compounds  ArtifactConfig `mapstructure:"compounds"`
}

// OutputConfig controls the rendered dashboard.
type OutputConfig struct {
	File        string `mapstructure:"file"`
	Title       string `mapstructure:"title"`
	Verbose     bool   `mapstructure:"verbose"`
	Preview     string `mapstructure:"preview"`
	MetricsFile string `mapstructure:"metrics_file"`
}

// GraphConfig controls graph construction and layout.
type GraphConfig struct {
	DistAdduct float64 `mapstructure:"dist_adduct"`
	AdductAxis string  `mapstructure:"adduct_axis"`
	Size       []int   `mapstructure:"size"`
	Layout     string  `mapstructure:"layout"`
	MapField   string  `mapstructure:"map_field"`
	LengthUnit string  `mapstructure:"length_unit"`
	EnergyUnit string  `mapstructure:"energy_unit"`
}

// Width and Height of the canvas.
func (g GraphConfig) Width() int  { return g.Size[0] }
func (g GraphConfig) Height() int { return g.Size[1] }

// RedisConfig holds the pathfinder-cache redis parameters.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// PublishConfig holds the MinIO bucket receiving rendered artifacts.
type PublishConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// ServeConfig controls the live-preview server.
type ServeConfig struct {
	Addr  string `mapstructure:"addr"`
	Watch bool   `mapstructure:"watch"`
}

// LogConfig selects log level and encoding.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Config is the root configuration object.
type Config struct {
	DB      DBConfig      `mapstructure:"db"`
	Method  MethodConfig  `mapstructure:"method"`
	Files   FilesConfig   `mapstructure:"files"`
	Output  OutputConfig  `mapstructure:"output"`
	Graph   GraphConfig   `mapstructure:"graph"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Publish PublishConfig `mapstructure:"publish"`
	Serve   ServeConfig   `mapstructure:"serve"`
	Log     LogConfig     `mapstructure:"log"`
}

var (
	validLayouts     = []string{"spring", "kamada_kawai", "spectral", "circular"}
	validMapFields   = []string{"energy", "degree", "ZPVE"}
	validAxes        = []string{"x", "y", "z"}
	validLengthUnits = []string{"bohr", "angstrom"}
	validEnergyUnits = []string{"hartree", "kjmol", "kcalmol"}
	validEnergyTypes = []string{"electronic_energy", "gibbs_free_energy"}
)

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// Validate checks the configuration for consistency. It expects defaults to
// have been applied.
func (c *Config) Validate() error {
	if c.DB.Active {
		if c.DB.Name == "" {
			return fmt.Errorf("config: db.name is required when db.active is set")
		}
		if c.DB.URI == "" && (c.DB.Port < 1 || c.DB.Port > 65535) {
			return fmt.Errorf("config: db.port %d is out of range [1, 65535]", c.DB.Port)
		}
		if c.Method.Method == "" {
			return fmt.Errorf("config: method.method is required when db.active is set")
		}
	}
	if !oneOf(c.Method.EnergyType, validEnergyTypes) {
		return fmt.Errorf("config: method.energy_type %q is invalid; expected %s", c.Method.EnergyType, strings.Join(validEnergyTypes, "|"))
	}

	for name, a := range map[string]ArtifactConfig{
		"pathfinder": c.Files.Pathfinder,
		"reactions":  c.Files.Reactions,
		"compounds":  c.Files.Compounds,
	} {
		if a.Mode != ModeRead && a.Mode != ModeWrite {
			return fmt.Errorf("config: files.%s.mode %q is invalid; expected read|write", name, a.Mode)
		}
		if a.Path == "" {
			return fmt.Errorf("config: files.%s.path is required", name)
		}
	}
	if c.Files.Reactions.Mode != c.Files.Compounds.Mode {
		return fmt.Errorf("config: files.reactions.mode and files.compounds.mode must match")
	}

	if c.Output.File == "" {
		return fmt.Errorf("config: output.file is required")
	}

	if c.Graph.DistAdduct <= 0 {
		return fmt.Errorf("config: graph.dist_adduct must be > 0, got %g", c.Graph.DistAdduct)
	}
	if len(c.Graph.Size) != 2 || c.Graph.Size[0] <= 0 || c.Graph.Size[1] <= 0 {
		return fmt.Errorf("config: graph.size must be two positive integers, got %v", c.Graph.Size)
	}
	if !oneOf(c.Graph.Layout, validLayouts) {
		return fmt.Errorf("config: graph.layout %q is invalid; expected %s", c.Graph.Layout, strings.Join(validLayouts, "|"))
	}
	if !oneOf(c.Graph.MapField, validMapFields) {
		return fmt.Errorf("config: graph.map_field %q is invalid; expected %s", c.Graph.MapField, strings.Join(validMapFields, "|"))
	}
	if !oneOf(c.Graph.AdductAxis, validAxes) {
		return fmt.Errorf("config: graph.adduct_axis %q is invalid; expected x|y|z", c.Graph.AdductAxis)
	}
	if !oneOf(c.Graph.LengthUnit, validLengthUnits) {
		return fmt.Errorf("config: graph.length_unit %q is invalid; expected bohr|angstrom", c.Graph.LengthUnit)
	}
	if !oneOf(c.Graph.EnergyUnit, validEnergyUnits) {
		return fmt.Errorf("config: graph.energy_unit %q is invalid; expected hartree|kjmol|kcalmol", c.Graph.EnergyUnit)
	}

	if c.Publish.Enabled && (c.Publish.Bucket == "" || c.Publish.Endpoint == "") {
		return fmt.Errorf("config: publish.endpoint and publish.bucket are required when publish.enabled is set")
	}
	return nil
}
