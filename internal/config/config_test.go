package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aptash/riskd/internal/engine"
)

// Test helper to set env vars and clean up after
func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old := os.Getenv(key)
	os.Setenv(key, value)
	t.Cleanup(func() {
		if old == "" {
			os.Unsetenv(key)
		} else {
			os.Setenv(key, old)
		}
	})
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, string(engine.PolicyAdditive), cfg.FusionPolicy)
	assert.Equal(t, string(engine.ModeTiered), cfg.DecisionMode)
	assert.Equal(t, engine.DefaultSuspiciousThreshold, cfg.SuspiciousThreshold)
	assert.Equal(t, engine.DefaultHighRiskThreshold, cfg.HighRiskThreshold)
	assert.Equal(t, 7, cfg.StaleDays)
	assert.Equal(t, 6, cfg.NightStartHour)
	assert.Equal(t, 22, cfg.NightEndHour)
}

func TestLoad_Overrides(t *testing.T) {
	setEnv(t, "PORT", "9090")
	setEnv(t, "FUSION_POLICY", "convex")
	setEnv(t, "DECISION_MODE", "binary")
	setEnv(t, "SUSPICIOUS_THRESHOLD", "0.5")
	setEnv(t, "STALE_DAYS", "30")
	setEnv(t, "MODEL_URL", "http://model:9000/score")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "convex", cfg.FusionPolicy)
	assert.Equal(t, "binary", cfg.DecisionMode)
	assert.Equal(t, 0.5, cfg.SuspiciousThreshold)
	assert.Equal(t, 30, cfg.StaleDays)
	assert.Equal(t, "http://model:9000/score", cfg.ModelURL)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			FusionPolicy:        "additive",
			DecisionMode:        "tiered",
			SuspiciousThreshold: 0.6,
			HighRiskThreshold:   0.8,
			BinaryThreshold:     0.7,
			ReportingThreshold:  0.7,
			NightStartHour:      6,
			NightEndHour:        22,
			StaleDays:           7,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid config", mutate: func(*Config) {}, wantErr: ""},
		{
			name:    "bad fusion policy",
			mutate:  func(c *Config) { c.FusionPolicy = "magic" },
			wantErr: "FUSION_POLICY",
		},
		{
			name:    "bad decision mode",
			mutate:  func(c *Config) { c.DecisionMode = "maybe" },
			wantErr: "DECISION_MODE",
		},
		{
			name:    "threshold out of range",
			mutate:  func(c *Config) { c.BinaryThreshold = 1.5 },
			wantErr: "must be in [0, 1]",
		},
		{
			name:    "inverted tiers",
			mutate:  func(c *Config) { c.SuspiciousThreshold = 0.9 },
			wantErr: "must not exceed",
		},
		{
			name:    "bad night hour",
			mutate:  func(c *Config) { c.NightEndHour = 24 },
			wantErr: "night hours",
		},
		{
			name:    "zero stale days",
			mutate:  func(c *Config) { c.StaleDays = 0 },
			wantErr: "STALE_DAYS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestEngineConfig(t *testing.T) {
	cfg := &Config{
		FusionPolicy:        "convex",
		DecisionMode:        "binary",
		MLWeight:            0.4,
		SuspiciousThreshold: 0.5,
		HighRiskThreshold:   0.9,
		BinaryThreshold:     0.65,
		ReportingThreshold:  0.75,
		NightStartHour:      5,
		NightEndHour:        23,
		StaleDays:           14,
		ModelTimeoutSecs:    5,
	}

	ec := cfg.EngineConfig()
	assert.Equal(t, engine.PolicyConvex, ec.Fusion)
	assert.Equal(t, engine.ModeBinary, ec.Thresholds.Mode)
	assert.Equal(t, 0.4, ec.Weights.ML)
	assert.Equal(t, 0.65, ec.Thresholds.Binary)
	assert.Equal(t, 14, ec.Timing.StaleDays)
	assert.Equal(t, 5*time.Second, ec.ScoreTimeout)
}

func TestConfig_IsDevelopment(t *testing.T) {
	cfg := &Config{Env: "development"}
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())

	cfg.Env = "production"
	assert.False(t, cfg.IsDevelopment())
	assert.True(t, cfg.IsProduction())
}

func TestGetEnv(t *testing.T) {
	setEnv(t, "TEST_VAR", "custom_value")

	assert.Equal(t, "custom_value", getEnv("TEST_VAR", "default"))
	assert.Equal(t, "default", getEnv("NONEXISTENT_VAR", "default"))
}

func TestGetEnvInt64(t *testing.T) {
	setEnv(t, "TEST_INT", "42")
	setEnv(t, "TEST_INVALID", "not_a_number")

	assert.Equal(t, int64(42), getEnvInt64("TEST_INT", 0))
	assert.Equal(t, int64(99), getEnvInt64("NONEXISTENT_VAR", 99))
	assert.Equal(t, int64(99), getEnvInt64("TEST_INVALID", 99)) // Falls back on parse error
}

func TestGetEnvFloat(t *testing.T) {
	setEnv(t, "TEST_FLOAT", "0.35")
	setEnv(t, "TEST_FLOAT_BAD", "x")

	assert.Equal(t, 0.35, getEnvFloat("TEST_FLOAT", 0))
	assert.Equal(t, 0.5, getEnvFloat("NONEXISTENT_VAR", 0.5))
	assert.Equal(t, 0.5, getEnvFloat("TEST_FLOAT_BAD", 0.5))
}
