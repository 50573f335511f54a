package config

import "time"

const (
	DefaultDBHost              = "localhost"
	DefaultDBPort              = 7687
	DefaultDBUser              = "neo4j"
	DefaultDBPoolSize          = 10
	DefaultDBConnectionTimeout = 30 * time.Second

	DefaultEnergyType = "electronic_energy"

	DefaultPathfinderPath = "pathfinder.json"
	DefaultReactionsPath  = "reactions.txt"
	DefaultCompoundsPath  = "compounds.json"
	DefaultArtifactMode   = ModeRead

	DefaultOutputFile  = "crn.html"
	DefaultOutputTitle = "Reaction network"

	DefaultDistAdduct = 3.0
	DefaultAdductAxis = "x"
	DefaultWidth      = 1200
	DefaultHeight     = 800
	DefaultLayout     = "spring"
	DefaultMapField   = "energy"
	DefaultLengthUnit = "bohr"
	DefaultEnergyUnit = "hartree"

	DefaultRedisAddr = "localhost:6379"
	DefaultRedisTTL  = 24 * time.Hour

	DefaultPublishPrefix = "vizcrn"

	DefaultServeAddr = ":8050"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
)

// NewDefaultConfig returns a Config populated only with defaults.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-value fields of cfg. Explicit values are kept.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.DB.Host == "" {
		cfg.DB.Host = DefaultDBHost
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = DefaultDBPort
	}
	if cfg.DB.User == "" {
		cfg.DB.User = DefaultDBUser
	}
	if cfg.DB.MaxConnectionPoolSize == 0 {
		cfg.DB.MaxConnectionPoolSize = DefaultDBPoolSize
	}
	if cfg.DB.ConnectionTimeout == 0 {
		cfg.DB.ConnectionTimeout = DefaultDBConnectionTimeout
	}

	if cfg.Method.EnergyType == "" {
		cfg.Method.EnergyType = DefaultEnergyType
	}

	defaultArtifact(&cfg.Files.Pathfinder, DefaultPathfinderPath)
	defaultArtifact(&cfg.Files.Reactions, DefaultReactionsPath)
	defaultArtifact(&cfg.Files.Compounds, DefaultCompoundsPath)

	if cfg.Output.File == "" {
		cfg.Output.File = DefaultOutputFile
	}
	if cfg.Output.Title == "" {
		cfg.Output.Title = DefaultOutputTitle
	}

	if cfg.Graph.DistAdduct == 0 {
		cfg.Graph.DistAdduct = DefaultDistAdduct
	}
	if cfg.Graph.AdductAxis == "" {
		cfg.Graph.AdductAxis = DefaultAdductAxis
	}
	if len(cfg.Graph.Size) == 0 {
		cfg.Graph.Size = []int{DefaultWidth, DefaultHeight}
	}
	if cfg.Graph.Layout == "" {
		cfg.Graph.Layout = DefaultLayout
	}
	if cfg.Graph.MapField == "" {
		cfg.Graph.MapField = DefaultMapField
	}
	if cfg.Graph.LengthUnit == "" {
		cfg.Graph.LengthUnit = DefaultLengthUnit
	}
	if cfg.Graph.EnergyUnit == "" {
		cfg.Graph.EnergyUnit = DefaultEnergyUnit
	}

	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.TTL == 0 {
		cfg.Redis.TTL = DefaultRedisTTL
	}

	if cfg.Publish.Prefix == "" {
		cfg.Publish.Prefix = DefaultPublishPrefix
	}

	if cfg.Serve.Addr == "" {
		cfg.Serve.Addr = DefaultServeAddr
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

func defaultArtifact(a *ArtifactConfig, path string) {
	if a.Path == "" {
		a.Path = path
	}
	if a.Mode == "" {
		a.Mode = DefaultArtifactMode
	}
}
