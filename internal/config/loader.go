package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix: graph.layout -> VIZCRN_GRAPH_LAYOUT.
const envPrefix = "VIZCRN"

// boundKeys are registered with viper so AutomaticEnv can resolve them even
// when no config file mentions them.
var boundKeys = []string{
	"db.active", "db.uri", "db.host", "db.port", "db.name", "db.user", "db.password",
	"db.max_connection_pool_size", "db.connection_timeout",
	"method.family", "method.method", "method.basis_set", "method.program",
	"method.solvation", "method.solvent", "method.energy_type",
	"method.correction.family", "method.correction.method",
	"method.correction.basis_set", "method.correction.program",
	"files.pathfinder.path", "files.pathfinder.mode",
	"files.reactions.path", "files.reactions.mode",
	"files.compounds.path", "files.compounds.mode",
	"output.file", "output.title", "output.verbose", "output.preview", "output.metrics_file",
	"graph.dist_adduct", "graph.adduct_axis", "graph.size", "graph.layout",
	"graph.map_field", "graph.length_unit", "graph.energy_unit",
	"redis.addr", "redis.password", "redis.db", "redis.ttl",
	"publish.enabled", "publish.endpoint", "publish.access_key", "publish.secret_key",
	"publish.bucket", "publish.prefix", "publish.use_ssl",
	"serve.addr", "serve.watch",
	"log.level", "log.format",
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range boundKeys {
		_ = v.BindEnv(k)
	}
	return v
}

// SearchPaths lists the files tried, in order, when no explicit path is given.
func SearchPaths() []string {
	paths := []string{"vizcrn.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".vizcrn", "config.yaml"))
	}
	return append(paths, "/etc/vizcrn/config.yaml")
}

// Load reads the YAML file at configPath, merges VIZCRN_* environment
// overrides, applies defaults and validates.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}
	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config from VIZCRN_* variables and defaults only.
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

// Discover loads the first existing file from SearchPaths, falling back to
// LoadFromEnv. It returns the path used, empty when none was found.
func Discover() (*Config, string, error) {
	for _, p := range SearchPaths() {
		if _, err := os.Stat(p); err == nil {
			cfg, err := Load(p)
			return cfg, p, err
		}
	}
	cfg, err := LoadFromEnv()
	return cfg, "", err
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

// Watch calls onChange with the re-parsed Config whenever configPath changes.
// Invalid revisions are reported to onError and otherwise ignored.
func Watch(configPath string, onChange func(*Config), onError func(error)) {
	v := newViper()
	v.SetConfigFile(configPath)
	_ = v.ReadInConfig()

	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}
