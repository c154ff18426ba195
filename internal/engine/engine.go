// Package engine implements deterministic transaction risk scoring.
//
// Every transaction is reduced to a fixed feature vector, run through an
// ordered additive rule table, optionally enriched with a statistical
// signal from an already-fitted model, and fused into one calibrated score
// in [0, 1] with discrete risk flags. The engine is purely functional per
// request: no shared mutable state, no I/O on the scoring path, safe for
// unbounded parallel use.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/aptash/riskd/internal/idgen"
	"github.com/aptash/riskd/internal/traces"
)

// Default decision thresholds.
const (
	DefaultSuspiciousThreshold = 0.6
	DefaultHighRiskThreshold   = 0.8
	DefaultBinaryThreshold     = 0.7
	DefaultReportingThreshold  = 0.7
)

// Fixed confidence per signal-source mix. Confidence is a policy value, not
// derived from the score itself.
const (
	confidenceRuleBased = 0.75
	confidenceRuleML    = 0.82
	confidenceEnsemble  = 0.88
)

// fallbackScore is returned when evaluation fails entirely: risky enough to
// warrant review, never an automatic block.
const fallbackScore = 0.5

// Transaction is the immutable input to the engine, owned by the caller.
type Transaction struct {
	Sender    string  `json:"sender"`
	Recipient string  `json:"recipient"`
	Amount    float64 `json:"amount"`
	Timestamp int64   `json:"timestamp"` // unix seconds; 0 = unknown
}

// Analysis echoes the evaluated inputs for observability.
type Analysis struct {
	Amount          float64 `json:"amount"`
	SenderLength    int     `json:"sender_length"`
	RecipientLength int     `json:"recipient_length"`
	Timestamp       int64   `json:"timestamp"`
}

// RiskAssessment is the result of evaluating a single transaction. Created
// once per request and never mutated afterwards.
type RiskAssessment struct {
	ID           string    `json:"id"`
	Sender       string    `json:"sender"`
	Recipient    string    `json:"recipient"`
	RiskScore    float64   `json:"risk_score"` // [0,1], 3-decimal rounded
	IsSuspicious bool      `json:"is_suspicious"`
	IsHighRisk   bool      `json:"is_high_risk"`
	RiskFactors  []string  `json:"risk_factors"` // evaluation order, no duplicates
	Confidence   float64   `json:"confidence"`
	Model        string    `json:"model"`
	Status       string    `json:"status"` // "success" or "error"
	Error        string    `json:"error,omitempty"`
	Analysis     Analysis  `json:"analysis"`
	EvaluatedAt  time.Time `json:"evaluated_at"`
}

// DecisionMode selects how threshold flags are derived.
type DecisionMode string

const (
	// ModeTiered exposes separate suspicious and high-risk thresholds.
	ModeTiered DecisionMode = "tiered"
	// ModeBinary exposes a single fraud/not-fraud threshold with no
	// high-risk tier, for endpoints wanting one boolean.
	ModeBinary DecisionMode = "binary"
)

// Thresholds are the decision cut-offs applied to the clamped score.
type Thresholds struct {
	Mode       DecisionMode
	Suspicious float64 // tiered mode
	HighRisk   float64 // tiered mode
	Binary     float64 // binary mode
}

// DefaultThresholds returns the tiered 0.6/0.8 policy.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Mode:       ModeTiered,
		Suspicious: DefaultSuspiciousThreshold,
		HighRisk:   DefaultHighRiskThreshold,
		Binary:     DefaultBinaryThreshold,
	}
}

// Config carries every tunable the engine exposes. Constants that vary
// between historical deployments (night hours, staleness window, thresholds,
// fusion policy) are all here rather than hard-coded.
type Config struct {
	Timing             TimingPolicy
	Fusion             FusionPolicy
	Weights            FusionWeights
	Thresholds         Thresholds
	ReportingThreshold float64       // min normalized ML contribution to report a factor
	ScoreTimeout       time.Duration // budget for the external scorer call
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Timing:             DefaultTimingPolicy(),
		Fusion:             PolicyAdditive,
		Weights:            DefaultFusionWeights(),
		Thresholds:         DefaultThresholds(),
		ReportingThreshold: DefaultReportingThreshold,
		ScoreTimeout:       2 * time.Second,
	}
}

// Engine evaluates transactions. Construct once, share freely: all methods
// are safe for concurrent use.
type Engine struct {
	cfg    Config
	scorer Scorer // nil = rule-only scoring
	store  Store  // nil = no audit trail
	logger *slog.Logger
	now    func() time.Time
}

// Option configures the engine.
type Option func(*Engine)

// WithScorer injects a fitted statistical model handle. The engine treats
// it as read-only and falls back to rule-only scoring on any failure.
func WithScorer(s Scorer) Option {
	return func(e *Engine) { e.scorer = s }
}

// WithStore sets the audit store assessments are recorded to.
func WithStore(s Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates a risk scoring engine.
func New(cfg Config, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Analyze scores a transaction. It never returns an error: every failure
// mode degrades to a bounded, usable assessment. Internal panics surface as
// the fixed fallback response (status=error, score 0.5).
func (e *Engine) Analyze(ctx context.Context, tx Transaction) (assessment *RiskAssessment) {
	ctx, span := traces.StartSpan(ctx, "engine.analyze",
		traces.Sender(tx.Sender),
		traces.Recipient(tx.Recipient),
		traces.Amount(tx.Amount),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("risk evaluation panicked", "panic", r)
			assessment = e.fallback(tx, fmt.Sprintf("risk analysis failed: %v", r))
		}
		if assessment != nil {
			span.SetAttributes(
				traces.AssessmentID(assessment.ID),
				traces.RiskScore(assessment.RiskScore),
				traces.Model(assessment.Model),
			)
			observeAssessment(assessment)
		}
	}()

	now := e.now()
	features := ExtractFeatures(tx, now, e.cfg.Timing)
	base, findings := EvaluateRules(tx, features)

	signal := e.score(ctx, features)
	combined, label := FuseSignals(base, signal, e.cfg.Fusion, e.cfg.Weights)

	assessment = e.aggregate(tx, combined, findings, label, signal, now)

	// Best-effort audit trail; never blocks or fails the scoring path.
	if e.store != nil {
		rec := *assessment
		go func() {
			if err := e.store.Record(context.Background(), &rec); err != nil {
				e.logger.Warn("failed to record assessment", "id", rec.ID, "error", err)
			}
		}()
	}

	return assessment
}

// score invokes the external model within the configured budget. Timeouts
// and errors are identical to signal absence.
func (e *Engine) score(ctx context.Context, f Features) *Signal {
	if e.scorer == nil {
		return nil
	}

	if e.cfg.ScoreTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.ScoreTimeout)
		defer cancel()
	}

	sig, err := e.scorer.Score(ctx, f.Vector())
	if err != nil {
		scorerFailuresTotal.Inc()
		e.logger.Warn("statistical scorer unavailable, using rule-only scoring", "error", err)
		return nil
	}
	if sig.AnomalyScore == nil && sig.FraudProbability == nil {
		return nil
	}
	return &sig
}

// aggregate clamps the combined score, derives flags and confidence, and
// assembles the final record.
func (e *Engine) aggregate(tx Transaction, combined float64, findings []Finding, label string, sig *Signal, now time.Time) *RiskAssessment {
	score := clamp(combined)

	factors := make([]string, 0, len(findings)+2)
	seen := make(map[Code]bool, len(findings))
	for _, f := range findings {
		if seen[f.Code] {
			continue
		}
		seen[f.Code] = true
		factors = append(factors, string(f.Code))
	}
	factors = append(factors, e.mlFactors(label, sig)...)

	confidence := confidenceRuleBased
	switch label {
	case ModelRuleBasedML:
		confidence = confidenceRuleML
	case ModelEnsemble:
		confidence = confidenceEnsemble
	}

	// Rounding happens before threshold checks so that additive float noise
	// (0.4+0.3 is not exactly 0.7) cannot flip a boundary decision.
	rounded := math.Round(score*1000) / 1000

	a := &RiskAssessment{
		ID:          idgen.WithPrefix("risk_"),
		Sender:      tx.Sender,
		Recipient:   tx.Recipient,
		RiskScore:   rounded,
		RiskFactors: factors,
		Confidence:  confidence,
		Model:       label,
		Status:      "success",
		Analysis: Analysis{
			Amount:          tx.Amount,
			SenderLength:    len(tx.Sender),
			RecipientLength: len(tx.Recipient),
			Timestamp:       tx.Timestamp,
		},
		EvaluatedAt: now,
	}

	switch e.cfg.Thresholds.Mode {
	case ModeBinary:
		a.IsSuspicious = rounded > e.cfg.Thresholds.Binary
	default:
		a.IsSuspicious = rounded > e.cfg.Thresholds.Suspicious
		a.IsHighRisk = rounded > e.cfg.Thresholds.HighRisk
	}

	return a
}

// mlFactors returns the ML-origin risk codes to append when the statistical
// path contributed materially (normalized contribution above the reporting
// threshold).
func (e *Engine) mlFactors(label string, sig *Signal) []string {
	if sig == nil {
		return nil
	}

	var out []string
	if sig.AnomalyScore != nil && normalizeAnomaly(*sig.AnomalyScore) > e.cfg.ReportingThreshold {
		if label == ModelEnsemble {
			out = append(out, string(CodeAnomalousPattern))
		} else {
			out = append(out, string(CodeMLAnomalyDetected))
		}
	}
	// The probability feeds the score under the ensemble, and under additive
	// fusion only when it is the sole signal present.
	probabilityUsed := label == ModelEnsemble ||
		(label == ModelRuleBasedML && sig.AnomalyScore == nil)
	if probabilityUsed && sig.FraudProbability != nil && *sig.FraudProbability > e.cfg.ReportingThreshold {
		out = append(out, string(CodeSuspiciousBehavior))
	}
	return out
}

// fallback is the fixed degraded response: a bounded mid-range score that
// flags nothing and crashes nobody.
func (e *Engine) fallback(tx Transaction, msg string) *RiskAssessment {
	return &RiskAssessment{
		ID:          idgen.WithPrefix("risk_"),
		Sender:      tx.Sender,
		Recipient:   tx.Recipient,
		RiskScore:   fallbackScore,
		RiskFactors: []string{},
		Model:       ModelRuleBased,
		Status:      "error",
		Error:       msg,
		Analysis: Analysis{
			Amount:          tx.Amount,
			SenderLength:    len(tx.Sender),
			RecipientLength: len(tx.Recipient),
			Timestamp:       tx.Timestamp,
		},
		EvaluatedAt: e.now(),
	}
}
