// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/aptash/riskd/internal/engine"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Model service
	ModelURL         string  // score endpoint of the model service (optional, rule-only if not set)
	ModelTimeoutSecs int     // per-call budget for the model service
	FusionPolicy     string  // "additive" or "convex"
	MLWeight         float64 // additive-policy weight of the anomaly signal

	// Decision policy
	DecisionMode        string // "tiered" or "binary"
	SuspiciousThreshold float64
	HighRiskThreshold   float64
	BinaryThreshold     float64
	ReportingThreshold  float64

	// Timing heuristics
	NightStartHour int
	NightEndHour   int
	StaleDays      int

	// Security
	RateLimitRPS int

	// Observability
	OTLPEndpoint string // OTLP gRPC endpoint for traces (optional)
}

// Defaults
const (
	DefaultPort      = "8080"
	DefaultEnv       = "development"
	DefaultLogLevel  = "info"
	DefaultRateLimit = 100
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", DefaultPort),
		Env:                 getEnv("ENV", DefaultEnv),
		LogLevel:            getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:         os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		ModelURL:            os.Getenv("MODEL_URL"),    // Optional, rule-only scoring if not set
		ModelTimeoutSecs:    int(getEnvInt64("MODEL_TIMEOUT_SECS", 2)),
		FusionPolicy:        getEnv("FUSION_POLICY", string(engine.PolicyAdditive)),
		MLWeight:            getEnvFloat("ML_WEIGHT", engine.DefaultFusionWeights().ML),
		DecisionMode:        getEnv("DECISION_MODE", string(engine.ModeTiered)),
		SuspiciousThreshold: getEnvFloat("SUSPICIOUS_THRESHOLD", engine.DefaultSuspiciousThreshold),
		HighRiskThreshold:   getEnvFloat("HIGH_RISK_THRESHOLD", engine.DefaultHighRiskThreshold),
		BinaryThreshold:     getEnvFloat("BINARY_THRESHOLD", engine.DefaultBinaryThreshold),
		ReportingThreshold:  getEnvFloat("REPORTING_THRESHOLD", engine.DefaultReportingThreshold),
		NightStartHour:      int(getEnvInt64("NIGHT_START_HOUR", int64(engine.DefaultTimingPolicy().NightStart))),
		NightEndHour:        int(getEnvInt64("NIGHT_END_HOUR", int64(engine.DefaultTimingPolicy().NightEnd))),
		StaleDays:           int(getEnvInt64("STALE_DAYS", int64(engine.DefaultTimingPolicy().StaleDays))),
		RateLimitRPS:        int(getEnvInt64("RATE_LIMIT_RPS", int64(DefaultRateLimit))),
		OTLPEndpoint:        os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent
func (c *Config) Validate() error {
	switch c.FusionPolicy {
	case string(engine.PolicyAdditive), string(engine.PolicyConvex):
	default:
		return fmt.Errorf("FUSION_POLICY must be %q or %q, got %q",
			engine.PolicyAdditive, engine.PolicyConvex, c.FusionPolicy)
	}

	switch c.DecisionMode {
	case string(engine.ModeTiered), string(engine.ModeBinary):
	default:
		return fmt.Errorf("DECISION_MODE must be %q or %q, got %q",
			engine.ModeTiered, engine.ModeBinary, c.DecisionMode)
	}

	for name, v := range map[string]float64{
		"SUSPICIOUS_THRESHOLD": c.SuspiciousThreshold,
		"HIGH_RISK_THRESHOLD":  c.HighRiskThreshold,
		"BINARY_THRESHOLD":     c.BinaryThreshold,
		"REPORTING_THRESHOLD":  c.ReportingThreshold,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be in [0, 1], got %v", name, v)
		}
	}
	if c.SuspiciousThreshold > c.HighRiskThreshold {
		return fmt.Errorf("SUSPICIOUS_THRESHOLD (%v) must not exceed HIGH_RISK_THRESHOLD (%v)",
			c.SuspiciousThreshold, c.HighRiskThreshold)
	}

	if c.NightStartHour < 0 || c.NightStartHour > 23 || c.NightEndHour < 0 || c.NightEndHour > 23 {
		return fmt.Errorf("night hours must be in [0, 23]")
	}
	if c.StaleDays <= 0 {
		return fmt.Errorf("STALE_DAYS must be positive, got %d", c.StaleDays)
	}

	return nil
}

// EngineConfig maps the environment-facing settings onto the engine's
// config struct.
func (c *Config) EngineConfig() engine.Config {
	ec := engine.DefaultConfig()
	ec.Timing = engine.TimingPolicy{
		StaleDays:  c.StaleDays,
		NightStart: c.NightStartHour,
		NightEnd:   c.NightEndHour,
	}
	ec.Fusion = engine.FusionPolicy(c.FusionPolicy)
	ec.Weights.ML = c.MLWeight
	ec.Thresholds = engine.Thresholds{
		Mode:       engine.DecisionMode(c.DecisionMode),
		Suspicious: c.SuspiciousThreshold,
		HighRisk:   c.HighRiskThreshold,
		Binary:     c.BinaryThreshold,
	}
	ec.ReportingThreshold = c.ReportingThreshold
	if c.ModelTimeoutSecs > 0 {
		ec.ScoreTimeout = time.Duration(c.ModelTimeoutSecs) * time.Second
	}
	return ec
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
