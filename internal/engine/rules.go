package engine

// Code identifies a heuristic that fired during evaluation. Codes are part
// of the API contract; consumers key alerting off them.
type Code string

const (
	CodeVeryHighAmount     Code = "very_high_amount"
	CodeHighAmount         Code = "high_amount"
	CodeMicroTransaction   Code = "micro_transaction"
	CodeSelfTransaction    Code = "self_transaction"
	CodeInvalidAddress     Code = "invalid_address_format"
	CodeSuspiciousPattern  Code = "suspicious_pattern"
	CodeUnusualTiming      Code = "unusual_timing"
	CodeAnomalousPattern   Code = "anomalous_pattern"
	CodeMLAnomalyDetected  Code = "ml_anomaly_detected"
	CodeSuspiciousBehavior Code = "suspicious_behavior"
)

// Rule score deltas, versioned as one table so every entry point shares the
// same arithmetic. Timing deltas are the first-match-wins exception and live
// in evaluateTiming.
var ruleWeights = map[Code]float64{
	CodeVeryHighAmount:    0.40,
	CodeHighAmount:        0.20,
	CodeMicroTransaction:  0.15,
	CodeSelfTransaction:   0.30,
	CodeInvalidAddress:    0.20,
	CodeSuspiciousPattern: 0.30,
}

// Timing deltas, checked in order: future-dated beats stale beats night.
const (
	timingFutureDelta = 0.30
	timingStaleDelta  = 0.20
	timingNightDelta  = 0.10
)

// Amount tier boundaries.
const (
	veryHighAmountFloor = 100000
	highAmountFloor     = 10000
	microAmountCeiling  = 0.001
)

// minAddressLen is the shortest address accepted as well-formed.
const minAddressLen = 10

// nearDuplicateMaxDistance is the Hamming distance at or below which two
// distinct equal-length addresses look like typosquatting.
const nearDuplicateMaxDistance = 2

// Finding records a single fired rule and the score it contributed.
type Finding struct {
	Code  Code    `json:"code"`
	Delta float64 `json:"delta"`
}

// EvaluateRules runs the deterministic rule table against a transaction and
// its features. The evaluation order is fixed (amount tier, self-transaction,
// address format, suspicious pattern, timing) so risk factor ordering is
// reproducible. Every rule is independently guarded: a rule that cannot be
// evaluated contributes nothing and never aborts the rest.
//
// The returned base score is the unclamped sum of all fired deltas.
func EvaluateRules(tx Transaction, f Features) (float64, []Finding) {
	var findings []Finding
	base := 0.0

	fire := func(code Code, delta float64) {
		base += delta
		findings = append(findings, Finding{Code: code, Delta: delta})
	}

	// Amount tiers are mutually exclusive: first match only.
	switch {
	case f.Amount >= veryHighAmountFloor:
		fire(CodeVeryHighAmount, ruleWeights[CodeVeryHighAmount])
	case f.Amount > highAmountFloor:
		fire(CodeHighAmount, ruleWeights[CodeHighAmount])
	case f.Amount > 0 && f.Amount < microAmountCeiling:
		fire(CodeMicroTransaction, ruleWeights[CodeMicroTransaction])
	}

	if tx.Sender == tx.Recipient {
		fire(CodeSelfTransaction, ruleWeights[CodeSelfTransaction])
	}

	if len(tx.Sender) < minAddressLen || len(tx.Recipient) < minAddressLen {
		fire(CodeInvalidAddress, ruleWeights[CodeInvalidAddress])
	}

	if suspiciousPattern(tx, f) {
		fire(CodeSuspiciousPattern, ruleWeights[CodeSuspiciousPattern])
	}

	if delta := evaluateTiming(tx, f); delta > 0 {
		fire(CodeUnusualTiming, delta)
	}

	return base, findings
}

// suspiciousPattern is true when the transaction matches any known fraud
// fingerprint: a canonical round amount, low character diversity in either
// address, or two distinct addresses within typosquatting distance.
func suspiciousPattern(tx Transaction, f Features) bool {
	if f.IsRoundAmount == 1 {
		return true
	}

	if lowDiversity(tx.Sender) || lowDiversity(tx.Recipient) {
		return true
	}

	// Near-duplicate check excludes identical addresses; those are already
	// covered by the self-transaction rule.
	if tx.Sender != tx.Recipient && len(tx.Sender) == len(tx.Recipient) && len(tx.Sender) > 0 {
		if hammingDistance(tx.Sender, tx.Recipient) <= nearDuplicateMaxDistance {
			return true
		}
	}

	return false
}

// lowDiversity reports whether an address uses fewer distinct characters
// than a third of its length.
func lowDiversity(addr string) bool {
	if addr == "" {
		return false
	}
	distinct := make(map[byte]bool, len(addr))
	for i := 0; i < len(addr); i++ {
		distinct[addr[i]] = true
	}
	return float64(len(distinct)) < float64(len(addr))/3
}

// hammingDistance counts differing positions. Callers guarantee equal length.
func hammingDistance(a, b string) int {
	d := 0
	for i := 0; i < len(a); i++ {
		if a[i] != b[i] {
			d++
		}
	}
	return d
}

// evaluateTiming returns the timing risk delta, first matching case wins.
// Unknown timestamps (0) carry no timing risk at all.
func evaluateTiming(tx Transaction, f Features) float64 {
	if tx.Timestamp == 0 {
		return 0
	}
	switch {
	case f.IsFuture == 1:
		return timingFutureDelta
	case f.IsStale == 1:
		return timingStaleDelta
	case f.IsNight == 1:
		return timingNightDelta
	}
	return 0
}
