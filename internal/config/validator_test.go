package config

import (
	"math"
	"strings"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{
		Field:   "test.field",
		Value:   123,
		Message: "must be greater than zero",
	}

	expected := "test.field: must be greater than zero (got: 123)"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	t.Run("empty errors", func(t *testing.T) {
		var errs ValidationErrors
		if errs.Error() != "" {
			t.Errorf("Error() for empty = %q, want empty string", errs.Error())
		}
	})

	t.Run("single error", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "test.field", Value: 123, Message: "is invalid"},
		}
		expected := "test.field: is invalid (got: 123)"
		if errs.Error() != expected {
			t.Errorf("Error() = %q, want %q", errs.Error(), expected)
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "field1", Value: "bad", Message: "is invalid"},
			{Field: "field2", Value: -1, Message: "must be positive"},
		}
		result := errs.Error()
		if !strings.Contains(result, "2 validation errors") {
			t.Errorf("Error() should mention 2 errors: %s", result)
		}
		if !strings.Contains(result, "field1") || !strings.Contains(result, "field2") {
			t.Errorf("Error() should mention both fields: %s", result)
		}
	})
}

func TestConfig_Validate_DefaultConfig(t *testing.T) {
	cfg := Default()
	errs := cfg.Validate()
	if len(errs) != 0 {
		t.Errorf("Default config should be valid, got %d errors: %v", len(errs), errs)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantField string // empty means valid
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = " " }, "server.addr"},
		{"zero workers", func(c *Config) { c.Server.Workers = 0 }, "server.workers"},
		{"one worker", func(c *Config) { c.Server.Workers = 1 }, ""},
		{"negative request timeout", func(c *Config) { c.Server.RequestTimeoutSeconds = -1 }, "server.request_timeout_seconds"},
		{"no request timeout", func(c *Config) { c.Server.RequestTimeoutSeconds = 0 }, ""},
		{"negative shutdown timeout", func(c *Config) { c.Server.ShutdownTimeoutSeconds = -5 }, "server.shutdown_timeout_seconds"},
		{"relative engine url", func(c *Config) { c.Engine.URL = "engine:5002" }, "engine.url"},
		{"ftp engine url", func(c *Config) { c.Engine.URL = "ftp://engine" }, "engine.url"},
		{"https engine url", func(c *Config) { c.Engine.URL = "https://engine.internal/v1" }, ""},
		{"negative engine timeout", func(c *Config) { c.Engine.TimeoutSeconds = -1 }, "engine.timeout_seconds"},
		{"zero vote threshold", func(c *Config) { c.Clustering.MinVoteThreshold = 0 }, "clustering.min_vote_threshold"},
		{"one group", func(c *Config) { c.Clustering.MaxGroupCount = 1 }, "clustering.max_group_count"},
		{"two groups", func(c *Config) { c.Clustering.MaxGroupCount = 2 }, ""},
		{"empty group field", func(c *Config) { c.Clustering.GroupField = "" }, "clustering.group_field"},
		{"negative threshold", func(c *Config) { c.Scaling.MinGroupSize = -1 }, "scaling.min_group_size"},
		{"negative imbalance", func(c *Config) { c.Scaling.PairImbalance = -0.1 }, "scaling.pair_imbalance"},
		{"nan imbalance", func(c *Config) { c.Scaling.LargeImbalance = math.NaN() }, "scaling.large_imbalance"},
		{"bands out of order", func(c *Config) { c.Scaling.MediumPopulation = 20 }, "scaling.medium_population"},
		{"zero cache ttl", func(c *Config) { c.Cache.TTLSeconds = 0 }, "cache.ttl_seconds"},
		{"zero cache capacity", func(c *Config) { c.Cache.Capacity = 0 }, "cache.capacity"},
		{"disabled cache ignores sizes", func(c *Config) { c.Cache.Enabled = false; c.Cache.Capacity = 0 }, ""},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"empty log level", func(c *Config) { c.Logging.Level = "" }, ""},
		{"zero log size", func(c *Config) { c.Logging.MaxSizeMB = 0 }, "logging.max_size_mb"},
		{"huge log size", func(c *Config) { c.Logging.MaxSizeMB = 5000 }, "logging.max_size_mb"},
		{"negative backups", func(c *Config) { c.Logging.MaxBackups = -1 }, "logging.max_backups"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			errs := cfg.Validate()

			if tt.wantField == "" {
				if len(errs) != 0 {
					t.Errorf("expected valid config, got %v", errs)
				}
				return
			}
			if len(errs) != 1 {
				t.Fatalf("got %d errors %v, want one for %s", len(errs), errs, tt.wantField)
			}
			if errs[0].Field != tt.wantField {
				t.Errorf("error field = %q, want %q", errs[0].Field, tt.wantField)
			}
		})
	}
}

func TestConfig_Validate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Server.Workers = 0
	cfg.Clustering.MaxGroupCount = 0
	cfg.Logging.Level = "loud"

	errs := cfg.Validate()
	if len(errs) != 3 {
		t.Errorf("got %d errors, want 3: %v", len(errs), errs)
	}
}
