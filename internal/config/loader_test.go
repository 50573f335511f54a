package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
db:
  active: true
  name: "ch_activation"
  host: "10.0.0.4"
  port: 7688
method:
  family: "dft"
  method: "pbe-d3bj"
  basis_set: "def2-tzvp"
  program: "orca"
  correction:
    family: "cc"
    method: "dlpno-ccsd(t)"
    basis_set: "cc-pvtz"
    program: "orca"
files:
  pathfinder:
    path: "redis://localhost:6379/0/graph"
    mode: "write"
  reactions:
    path: "out/reactions.txt"
    mode: "write"
  compounds:
    path: "out/compounds.json"
    mode: "write"
output:
  file: "out/crn.html"
  title: "C-H activation"
  verbose: true
graph:
  dist_adduct: 4.5
  size: [1600, 900]
  layout: "kamada_kawai"
  map_field: "degree"
redis:
  ttl: 1h
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vizcrn.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_ValidFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfigYAML))
	require.NoError(t, err)

	assert.True(t, cfg.DB.Active)
	assert.Equal(t, "ch_activation", cfg.DB.Name)
	assert.Equal(t, "bolt://10.0.0.4:7688", cfg.DB.BoltURI())
	assert.Equal(t, "pbe-d3bj", cfg.Method.Method)
	assert.Equal(t, "dlpno-ccsd(t)", cfg.Method.Correction.Method)
	assert.Equal(t, ModeWrite, cfg.Files.Pathfinder.Mode)
	assert.Equal(t, "out/compounds.json", cfg.Files.Compounds.Path)
	assert.True(t, cfg.Output.Verbose)
	assert.Equal(t, 4.5, cfg.Graph.DistAdduct)
	assert.Equal(t, []int{1600, 900}, cfg.Graph.Size)
	assert.Equal(t, "kamada_kawai", cfg.Graph.Layout)
	assert.Equal(t, "degree", cfg.Graph.MapField)
	assert.Equal(t, time.Hour, cfg.Redis.TTL)
	// defaults fill the rest
	assert.Equal(t, DefaultAdductAxis, cfg.Graph.AdductAxis)
	assert.Equal(t, DefaultServeAddr, cfg.Serve.Addr)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("VIZCRN_GRAPH_LAYOUT", "circular")
	t.Setenv("VIZCRN_OUTPUT_TITLE", "from env")

	cfg, err := Load(writeConfig(t, validConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, "circular", cfg.Graph.Layout)
	assert.Equal(t, "from env", cfg.Output.Title)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_InvalidValues(t *testing.T) {
	_, err := Load(writeConfig(t, "graph:\n  layout: force\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("VIZCRN_GRAPH_DIST_ADDUCT", "2.5")
	t.Setenv("VIZCRN_FILES_REACTIONS_PATH", "edges.txt")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 2.5, cfg.Graph.DistAdduct)
	assert.Equal(t, "edges.txt", cfg.Files.Reactions.Path)
	assert.Equal(t, DefaultCompoundsPath, cfg.Files.Compounds.Path)
}

func TestSearchPaths_StartsWithWorkingDir(t *testing.T) {
	paths := SearchPaths()
	require.NotEmpty(t, paths)
	assert.Equal(t, "vizcrn.yaml", paths[0])
	assert.Equal(t, "/etc/vizcrn/config.yaml", paths[len(paths)-1])
}

func TestDiscover_PicksWorkingDirFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vizcrn.yaml"), []byte("output:\n  title: found\n"), 0o600))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, path, err := Discover()
	require.NoError(t, err)
	assert.Equal(t, "vizcrn.yaml", path)
	assert.Equal(t, "found", cfg.Output.Title)
}

func TestWatch_ReportsNewRevision(t *testing.T) {
	path := writeConfig(t, "output:\n  title: first\n")

	titles := make(chan string, 16)
	Watch(path, func(c *Config) {
		select {
		case titles <- c.Output.Title:
		default:
		}
	}, nil)

	// Give the watcher time to register before rewriting.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("output:\n  title: second\n"), 0o600))

	// A truncating write may surface an empty revision first.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case got := <-titles:
			if got == "second" {
				return
			}
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}
