package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/zkorum/agora/internal/logging"
	"github.com/zkorum/agora/internal/scaling"
)

// AppName names the config directory, env prefix and binary.
const AppName = "agora-math"

// EnvPrefix is prepended to every environment override (AGORA_MATH_SERVER_ADDR).
const EnvPrefix = "AGORA_MATH"

// Config represents the complete agora-math configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Engine     EngineConfig     `mapstructure:"engine" yaml:"engine"`
	Clustering ClusteringConfig `mapstructure:"clustering" yaml:"clustering"`
	Scaling    ScalingConfig    `mapstructure:"scaling" yaml:"scaling"`
	Cache      CacheConfig      `mapstructure:"cache" yaml:"cache"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
}

// ServerConfig controls the HTTP API
type ServerConfig struct {
	// Addr is the listen address
	Addr string `mapstructure:"addr" yaml:"addr"`
	// Workers bounds how many solves run at once
	Workers int `mapstructure:"workers" yaml:"workers"`
	// ReadHeaderTimeoutSeconds limits how long a client may take to send headers
	ReadHeaderTimeoutSeconds int `mapstructure:"read_header_timeout_seconds" yaml:"read_header_timeout_seconds"`
	// RequestTimeoutSeconds is the deadline of one /math request (0 = none)
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds" yaml:"request_timeout_seconds"`
	// ShutdownTimeoutSeconds is how long in-flight requests get to finish on shutdown
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds" yaml:"shutdown_timeout_seconds"`
}

// EngineConfig locates the clustering engine
type EngineConfig struct {
	// URL is the engine's base URL
	URL string `mapstructure:"url" yaml:"url"`
	// TimeoutSeconds is the HTTP client timeout for one engine call (0 = none)
	TimeoutSeconds int `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// ClusteringConfig holds the parameters passed to every solve
type ClusteringConfig struct {
	// MinVoteThreshold is the fewest votes a participant needs to be clustered
	MinVoteThreshold int `mapstructure:"min_vote_threshold" yaml:"min_vote_threshold"`
	// MaxGroupCount bounds the first engine call
	MaxGroupCount int `mapstructure:"max_group_count" yaml:"max_group_count"`
	// GroupField is the participant column holding the group assignment
	GroupField string `mapstructure:"group_field" yaml:"group_field"`
}

// ScalingConfig mirrors scaling.Thresholds so every breakpoint can be tuned
type ScalingConfig struct {
	SmallPopulation    int     `mapstructure:"small_population" yaml:"small_population"`
	PairPopulation     int     `mapstructure:"pair_population" yaml:"pair_population"`
	MediumPopulation   int     `mapstructure:"medium_population" yaml:"medium_population"`
	LargePopulation    int     `mapstructure:"large_population" yaml:"large_population"`
	CrowdPopulation    int     `mapstructure:"crowd_population" yaml:"crowd_population"`
	MinGroupSize       int     `mapstructure:"min_group_size" yaml:"min_group_size"`
	MinGroupsToShrink  int     `mapstructure:"min_groups_to_shrink" yaml:"min_groups_to_shrink"`
	SparseGroupSize    int     `mapstructure:"sparse_group_size" yaml:"sparse_group_size"`
	CrowdImbalance     float64 `mapstructure:"crowd_imbalance" yaml:"crowd_imbalance"`
	SmallPairImbalance float64 `mapstructure:"small_pair_imbalance" yaml:"small_pair_imbalance"`
	PairImbalance      float64 `mapstructure:"pair_imbalance" yaml:"pair_imbalance"`
	MediumImbalance    float64 `mapstructure:"medium_imbalance" yaml:"medium_imbalance"`
	LargeImbalance     float64 `mapstructure:"large_imbalance" yaml:"large_imbalance"`
	MediumMaxGroups    int     `mapstructure:"medium_max_groups" yaml:"medium_max_groups"`
	LargeMaxGroups     int     `mapstructure:"large_max_groups" yaml:"large_max_groups"`
}

// CacheConfig controls the in-memory result cache
type CacheConfig struct {
	// Enabled turns the cache on (default: true)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// TTLSeconds is how long a cached result stays valid
	TTLSeconds int `mapstructure:"ttl_seconds" yaml:"ttl_seconds"`
	// Capacity is the maximum number of cached results
	Capacity int `mapstructure:"capacity" yaml:"capacity"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	// Level is the minimum level to log: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level" yaml:"level"`
	// Dir is the directory for the log file; empty logs to stderr
	Dir string `mapstructure:"dir" yaml:"dir"`
	// MaxSizeMB is the size at which the log file is rotated (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	// MaxBackups is the number of rotated files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`
	// Compress gzips rotated files (default: false)
	Compress bool `mapstructure:"compress" yaml:"compress"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	t := scaling.DefaultThresholds()
	return &Config{
		Server: ServerConfig{
			Addr:                     "0.0.0.0:5001",
			Workers:                  10,
			ReadHeaderTimeoutSeconds: 5,
			RequestTimeoutSeconds:    240,
			ShutdownTimeoutSeconds:   30,
		},
		Engine: EngineConfig{
			URL:            "http://127.0.0.1:5002",
			TimeoutSeconds: 240,
		},
		Clustering: ClusteringConfig{
			MinVoteThreshold: 4,
			MaxGroupCount:    6,
			GroupField:       "cluster_id",
		},
		Scaling: scalingConfigFrom(t),
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: 300,
			Capacity:   256,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Dir:        "", // stderr
			MaxSizeMB:  10,
			MaxBackups: 3,
			Compress:   false,
		},
	}
}

func scalingConfigFrom(t scaling.Thresholds) ScalingConfig {
	return ScalingConfig{
		SmallPopulation:    t.SmallPopulation,
		PairPopulation:     t.PairPopulation,
		MediumPopulation:   t.MediumPopulation,
		LargePopulation:    t.LargePopulation,
		CrowdPopulation:    t.CrowdPopulation,
		MinGroupSize:       t.MinGroupSize,
		MinGroupsToShrink:  t.MinGroupsToShrink,
		SparseGroupSize:    t.SparseGroupSize,
		CrowdImbalance:     t.CrowdImbalance,
		SmallPairImbalance: t.SmallPairImbalance,
		PairImbalance:      t.PairImbalance,
		MediumImbalance:    t.MediumImbalance,
		LargeImbalance:     t.LargeImbalance,
		MediumMaxGroups:    t.MediumMaxGroups,
		LargeMaxGroups:     t.LargeMaxGroups,
	}
}

// Thresholds converts the config into policy thresholds
func (c *ScalingConfig) Thresholds() scaling.Thresholds {
	return scaling.Thresholds{
		SmallPopulation:    c.SmallPopulation,
		PairPopulation:     c.PairPopulation,
		MediumPopulation:   c.MediumPopulation,
		LargePopulation:    c.LargePopulation,
		CrowdPopulation:    c.CrowdPopulation,
		MinGroupSize:       c.MinGroupSize,
		MinGroupsToShrink:  c.MinGroupsToShrink,
		SparseGroupSize:    c.SparseGroupSize,
		CrowdImbalance:     c.CrowdImbalance,
		SmallPairImbalance: c.SmallPairImbalance,
		PairImbalance:      c.PairImbalance,
		MediumImbalance:    c.MediumImbalance,
		LargeImbalance:     c.LargeImbalance,
		MediumMaxGroups:    c.MediumMaxGroups,
		LargeMaxGroups:     c.LargeMaxGroups,
	}
}

// Policy builds a scaling policy from the configured thresholds
func (c *ScalingConfig) Policy() *scaling.Policy {
	return scaling.NewPolicy(scaling.WithThresholds(c.Thresholds()))
}

// ReadHeaderTimeout returns the header read timeout as a time.Duration
func (c *ServerConfig) ReadHeaderTimeout() time.Duration {
	return time.Duration(c.ReadHeaderTimeoutSeconds) * time.Second
}

// RequestTimeout returns the per-request deadline (0 means none)
func (c *ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// ShutdownTimeout returns the graceful shutdown timeout as a time.Duration
func (c *ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// Timeout returns the engine HTTP timeout (0 means none)
func (c *EngineConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// TTL returns the cache entry lifetime as a time.Duration
func (c *CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// Options converts the config into logger options
func (c *LoggingConfig) Options() logging.Options {
	return logging.Options{
		Dir:   c.Dir,
		Level: c.Level,
		Rotation: logging.RotationConfig{
			MaxSizeMB:  c.MaxSizeMB,
			MaxBackups: c.MaxBackups,
			Compress:   c.Compress,
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Server defaults
	viper.SetDefault("server.addr", defaults.Server.Addr)
	viper.SetDefault("server.workers", defaults.Server.Workers)
	viper.SetDefault("server.read_header_timeout_seconds", defaults.Server.ReadHeaderTimeoutSeconds)
	viper.SetDefault("server.request_timeout_seconds", defaults.Server.RequestTimeoutSeconds)
	viper.SetDefault("server.shutdown_timeout_seconds", defaults.Server.ShutdownTimeoutSeconds)

	// Engine defaults
	viper.SetDefault("engine.url", defaults.Engine.URL)
	viper.SetDefault("engine.timeout_seconds", defaults.Engine.TimeoutSeconds)

	// Clustering defaults
	viper.SetDefault("clustering.min_vote_threshold", defaults.Clustering.MinVoteThreshold)
	viper.SetDefault("clustering.max_group_count", defaults.Clustering.MaxGroupCount)
	viper.SetDefault("clustering.group_field", defaults.Clustering.GroupField)

	// Scaling defaults
	s := defaults.Scaling
	viper.SetDefault("scaling.small_population", s.SmallPopulation)
	viper.SetDefault("scaling.pair_population", s.PairPopulation)
	viper.SetDefault("scaling.medium_population", s.MediumPopulation)
	viper.SetDefault("scaling.large_population", s.LargePopulation)
	viper.SetDefault("scaling.crowd_population", s.CrowdPopulation)
	viper.SetDefault("scaling.min_group_size", s.MinGroupSize)
	viper.SetDefault("scaling.min_groups_to_shrink", s.MinGroupsToShrink)
	viper.SetDefault("scaling.sparse_group_size", s.SparseGroupSize)
	viper.SetDefault("scaling.crowd_imbalance", s.CrowdImbalance)
	viper.SetDefault("scaling.small_pair_imbalance", s.SmallPairImbalance)
	viper.SetDefault("scaling.pair_imbalance", s.PairImbalance)
	viper.SetDefault("scaling.medium_imbalance", s.MediumImbalance)
	viper.SetDefault("scaling.large_imbalance", s.LargeImbalance)
	viper.SetDefault("scaling.medium_max_groups", s.MediumMaxGroups)
	viper.SetDefault("scaling.large_max_groups", s.LargeMaxGroups)

	// Cache defaults
	viper.SetDefault("cache.enabled", defaults.Cache.Enabled)
	viper.SetDefault("cache.ttl_seconds", defaults.Cache.TTLSeconds)
	viper.SetDefault("cache.capacity", defaults.Cache.Capacity)

	// Logging defaults
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate the configuration
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	// Fall back to ~/.config/agora-math
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
