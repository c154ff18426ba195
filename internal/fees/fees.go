// Package fees estimates transaction fees from amount, network load, and
// priority. The estimate is a deterministic closed form; no model service
// is involved.
package fees

import (
	"math"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

var feeEstimatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "riskd",
	Subsystem: "fees",
	Name:      "estimates_total",
	Help:      "Fee estimates by priority.",
}, []string{"priority"})

func init() {
	prometheus.MustRegister(feeEstimatesTotal)
}

// Priority names accepted by Estimate. Unknown values fall back to normal.
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

const (
	baseFee          = 0.001
	amountFactorCap  = 0.01
	amountFactorRate = 0.0001
	loadFactorRate   = 0.005
	minFee           = 0.0001

	// Confidence is fixed for the closed-form estimator.
	estimateConfidence = 0.85
)

var priorityMultipliers = map[string]float64{
	PriorityLow:    0.8,
	PriorityNormal: 1.0,
	PriorityHigh:   1.5,
	PriorityUrgent: 2.0,
}

// Estimate is a fee prediction with the inputs that produced it.
type Estimate struct {
	Fee         float64 `json:"fee"`
	Confidence  float64 `json:"confidence"`
	Model       string  `json:"model"`
	Amount      float64 `json:"amount"`
	NetworkLoad float64 `json:"network_load"`
	Priority    string  `json:"priority"`
}

// Compute estimates the fee for a transaction. Amount and load are coerced
// into valid ranges; load defaults to 0.5 when negative (unknown). The fee
// never falls below the network minimum.
func Compute(amount, networkLoad float64, priority string) Estimate {
	if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		amount = 0
	}
	if networkLoad < 0 || math.IsNaN(networkLoad) {
		networkLoad = 0.5
	}
	if networkLoad > 1 {
		networkLoad = 1
	}

	p := strings.ToLower(priority)
	mult, ok := priorityMultipliers[p]
	if !ok {
		p = PriorityNormal
		mult = priorityMultipliers[PriorityNormal]
	}

	amountFactor := math.Min(amount*amountFactorRate, amountFactorCap)
	loadFactor := networkLoad * loadFactorRate

	fee := (baseFee + amountFactor + loadFactor) * mult
	fee = math.Max(minFee, fee)

	feeEstimatesTotal.WithLabelValues(p).Inc()

	return Estimate{
		Fee:         math.Round(fee*1e6) / 1e6,
		Confidence:  estimateConfidence,
		Model:       "mathematical_enhanced",
		Amount:      amount,
		NetworkLoad: networkLoad,
		Priority:    p,
	}
}
