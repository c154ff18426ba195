package engine

import "context"

// Model labels reported to consumers, reflecting which signal sources
// actually contributed to the score.
const (
	ModelRuleBased   = "rule_based"
	ModelRuleBasedML = "rule_based_ml"
	ModelEnsemble    = "ml_ensemble"
)

// FusionPolicy selects how rule-based and statistical signals combine.
type FusionPolicy string

const (
	// PolicyAdditive adds the weighted, normalized anomaly score on top of
	// the rule base score.
	PolicyAdditive FusionPolicy = "additive"
	// PolicyConvex blends classifier probability and anomaly score,
	// independent of the rule base score. Rule findings are still reported
	// for explainability.
	PolicyConvex FusionPolicy = "convex"
)

// Signal is the output of an already-fitted statistical model. Either field
// may be absent; absence means "no signal", never "zero risk".
//
// AnomalyScore follows the isolation-forest convention: higher means more
// normal, negative means anomalous.
type Signal struct {
	AnomalyScore     *float64 `json:"anomaly_score,omitempty"`
	FraudProbability *float64 `json:"fraud_probability,omitempty"`
}

// Scorer produces a statistical signal for a feature vector. Implementations
// wrap fitted models and must be read-only after construction; the engine
// never mutates them and treats every error as signal absence.
type Scorer interface {
	Score(ctx context.Context, features []float64) (Signal, error)
}

// FusionWeights are the constant weight table for signal fusion.
type FusionWeights struct {
	ML         float64 // additive policy: weight of the normalized anomaly score
	Classifier float64 // convex policy: weight of the fraud probability
	Anomaly    float64 // convex policy: weight of the normalized anomaly score
}

// DefaultFusionWeights returns the fitted production weights.
func DefaultFusionWeights() FusionWeights {
	return FusionWeights{ML: 0.3, Classifier: 0.7, Anomaly: 0.3}
}

// FuseSignals combines the rule base score with an optional statistical
// signal under the given policy. The returned score is unclamped; the model
// label records which sources contributed.
//
// Fusion never raises on a missing or partial signal: whatever cannot be
// used simply leaves the rule score to stand on its own.
func FuseSignals(base float64, sig *Signal, policy FusionPolicy, w FusionWeights) (float64, string) {
	if sig == nil {
		return base, ModelRuleBased
	}

	switch policy {
	case PolicyConvex:
		if sig.FraudProbability != nil && sig.AnomalyScore != nil {
			p := *sig.FraudProbability
			combined := w.Classifier*p + w.Anomaly*normalizeAnomaly(*sig.AnomalyScore)
			return combined, ModelEnsemble
		}
		// Convex needs both sources; with only one, degrade to additive.
		fallthrough
	case PolicyAdditive:
		if sig.AnomalyScore != nil {
			return base + w.ML*normalizeAnomaly(*sig.AnomalyScore), ModelRuleBasedML
		}
		if sig.FraudProbability != nil {
			return base + w.ML*(*sig.FraudProbability), ModelRuleBasedML
		}
	}

	return base, ModelRuleBased
}

// normalizeAnomaly maps a raw isolation-style anomaly score (higher = more
// normal, roughly [-1, 1]) into risk space [0, 1].
func normalizeAnomaly(score float64) float64 {
	return clamp((1 - score) / 2)
}

// clamp restricts v to [0, 1].
func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
