package engine

import "github.com/prometheus/client_golang/prometheus"

var (
	// assessmentsTotal counts evaluated transactions by model label and status.
	assessmentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "riskd",
		Name:      "engine_assessments_total",
		Help:      "Total risk assessments by model label and status.",
	}, []string{"model", "status"})

	// riskScoreHist observes the distribution of final risk scores.
	riskScoreHist = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "riskd",
		Name:      "engine_risk_score",
		Help:      "Distribution of clamped risk scores.",
		Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
	})

	// suspiciousTotal counts assessments that crossed the suspicion threshold.
	suspiciousTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "riskd",
		Name:      "engine_suspicious_total",
		Help:      "Total assessments flagged suspicious.",
	})

	// scorerFailuresTotal counts statistical scorer failures that fell back
	// to rule-only scoring.
	scorerFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "riskd",
		Name:      "engine_scorer_failures_total",
		Help:      "Total statistical scorer failures (timeouts, errors).",
	})
)

func init() {
	prometheus.MustRegister(
		assessmentsTotal,
		riskScoreHist,
		suspiciousTotal,
		scorerFailuresTotal,
	)
}

func observeAssessment(a *RiskAssessment) {
	assessmentsTotal.WithLabelValues(a.Model, a.Status).Inc()
	riskScoreHist.Observe(a.RiskScore)
	if a.IsSuspicious {
		suspiciousTotal.Inc()
	}
}
