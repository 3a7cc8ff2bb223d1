package config

import (
	"fmt"
	"math"
	"net/url"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "server.workers")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateServer()...)
	errors = append(errors, c.validateEngine()...)
	errors = append(errors, c.validateClustering()...)
	errors = append(errors, c.validateScaling()...)
	errors = append(errors, c.validateCache()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func nonNegative(field string, v int) []ValidationError {
	if v < 0 {
		return []ValidationError{{Field: field, Value: v, Message: "must be non-negative"}}
	}
	return nil
}

// validateServer validates the ServerConfig
func (c *Config) validateServer() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Server.Addr) == "" {
		errors = append(errors, ValidationError{
			Field:   "server.addr",
			Value:   c.Server.Addr,
			Message: "must not be empty",
		})
	}

	if c.Server.Workers < 1 {
		errors = append(errors, ValidationError{
			Field:   "server.workers",
			Value:   c.Server.Workers,
			Message: "must be at least 1",
		})
	}

	errors = append(errors, nonNegative("server.read_header_timeout_seconds", c.Server.ReadHeaderTimeoutSeconds)...)
	errors = append(errors, nonNegative("server.request_timeout_seconds", c.Server.RequestTimeoutSeconds)...)
	errors = append(errors, nonNegative("server.shutdown_timeout_seconds", c.Server.ShutdownTimeoutSeconds)...)

	return errors
}

// validateEngine validates the EngineConfig
func (c *Config) validateEngine() []ValidationError {
	var errors []ValidationError

	u, err := url.Parse(c.Engine.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "engine.url",
			Value:   c.Engine.URL,
			Message: "must be an absolute http or https URL",
		})
	}

	errors = append(errors, nonNegative("engine.timeout_seconds", c.Engine.TimeoutSeconds)...)

	return errors
}

// validateClustering validates the ClusteringConfig
func (c *Config) validateClustering() []ValidationError {
	var errors []ValidationError

	if c.Clustering.MinVoteThreshold < 1 {
		errors = append(errors, ValidationError{
			Field:   "clustering.min_vote_threshold",
			Value:   c.Clustering.MinVoteThreshold,
			Message: "must be at least 1",
		})
	}

	if c.Clustering.MaxGroupCount < 2 {
		errors = append(errors, ValidationError{
			Field:   "clustering.max_group_count",
			Value:   c.Clustering.MaxGroupCount,
			Message: "must be at least 2",
		})
	}

	if strings.TrimSpace(c.Clustering.GroupField) == "" {
		errors = append(errors, ValidationError{
			Field:   "clustering.group_field",
			Value:   c.Clustering.GroupField,
			Message: "must not be empty",
		})
	}

	return errors
}

// validateScaling validates the ScalingConfig
func (c *Config) validateScaling() []ValidationError {
	var errors []ValidationError
	s := c.Scaling

	ints := []struct {
		field string
		value int
	}{
		{"scaling.small_population", s.SmallPopulation},
		{"scaling.pair_population", s.PairPopulation},
		{"scaling.medium_population", s.MediumPopulation},
		{"scaling.large_population", s.LargePopulation},
		{"scaling.crowd_population", s.CrowdPopulation},
		{"scaling.min_group_size", s.MinGroupSize},
		{"scaling.min_groups_to_shrink", s.MinGroupsToShrink},
		{"scaling.sparse_group_size", s.SparseGroupSize},
		{"scaling.medium_max_groups", s.MediumMaxGroups},
		{"scaling.large_max_groups", s.LargeMaxGroups},
	}
	for _, f := range ints {
		errors = append(errors, nonNegative(f.field, f.value)...)
	}

	floats := []struct {
		field string
		value float64
	}{
		{"scaling.crowd_imbalance", s.CrowdImbalance},
		{"scaling.small_pair_imbalance", s.SmallPairImbalance},
		{"scaling.pair_imbalance", s.PairImbalance},
		{"scaling.medium_imbalance", s.MediumImbalance},
		{"scaling.large_imbalance", s.LargeImbalance},
	}
	for _, f := range floats {
		if f.value < 0 || math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			errors = append(errors, ValidationError{
				Field:   f.field,
				Value:   f.value,
				Message: "must be a finite non-negative number",
			})
		}
	}

	// Population bands must not overlap
	bands := []struct {
		field string
		value int
	}{
		{"scaling.small_population", s.SmallPopulation},
		{"scaling.pair_population", s.PairPopulation},
		{"scaling.medium_population", s.MediumPopulation},
		{"scaling.large_population", s.LargePopulation},
		{"scaling.crowd_population", s.CrowdPopulation},
	}
	for i := 1; i < len(bands); i++ {
		if bands[i].value <= bands[i-1].value {
			errors = append(errors, ValidationError{
				Field:   bands[i].field,
				Value:   bands[i].value,
				Message: fmt.Sprintf("must be greater than %s (%d)", bands[i-1].field, bands[i-1].value),
			})
		}
	}

	return errors
}

// validateCache validates the CacheConfig
func (c *Config) validateCache() []ValidationError {
	if !c.Cache.Enabled {
		return nil
	}

	var errors []ValidationError

	if c.Cache.TTLSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "cache.ttl_seconds",
			Value:   c.Cache.TTLSeconds,
			Message: "must be positive when the cache is enabled",
		})
	}

	if c.Cache.Capacity <= 0 {
		errors = append(errors, ValidationError{
			Field:   "cache.capacity",
			Value:   c.Cache.Capacity,
			Message: "must be positive when the cache is enabled",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	// Validate log level
	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	// Max size must be positive
	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	// Reasonable upper bound for log file size
	const maxLogSizeMB = 1000 // 1GB
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	errors = append(errors, nonNegative("logging.max_backups", c.Logging.MaxBackups)...)

	return errors
}
