package engine

import (
	"math"
	"time"
)

// entropyEpsilon avoids log2(0) for characters with vanishing probability.
const entropyEpsilon = 1e-10

// futureTolerance is how far ahead of the clock a timestamp may sit before
// it counts as future-dated (covers clock skew between submitters).
const futureTolerance = 5 * time.Minute

// roundAmounts are the canonical round figures fraudsters favour. Membership
// is exact numeric equality, not a range check.
var roundAmounts = map[float64]bool{
	10: true, 50: true, 100: true, 500: true, 1000: true,
	5000: true, 10000: true, 50000: true, 100000: true,
}

// TimingPolicy holds the timing constants that differ between deployments.
// The defaults match the strictest variant in production use.
type TimingPolicy struct {
	StaleDays  int // transactions older than this many days are stale
	NightStart int // hours strictly below this count as night
	NightEnd   int // hours strictly above this count as night
}

// DefaultTimingPolicy returns the standard 7-day window with night hours
// outside [6, 22].
func DefaultTimingPolicy() TimingPolicy {
	return TimingPolicy{StaleDays: 7, NightStart: 6, NightEnd: 22}
}

// Features is the fixed-size numeric view of a transaction that both the
// rule engine and statistical scorers consume. Every field is finite:
// computations that would be undefined (entropy of an empty string,
// similarity of unequal-length addresses) map to zero.
type Features struct {
	Amount                 float64
	AmountLog              float64 // log1p(amount)
	SenderLen              float64
	RecipientLen           float64
	SenderEntropy          float64
	RecipientEntropy       float64
	AddressSimilarity      float64
	IsRoundAmount          float64
	TimeDelta              float64 // seconds between now and the transaction
	IsFuture               float64
	IsStale                float64
	HourOfDay              float64
	IsNight                float64
	IsSelfTransaction      float64
	HasRepeatedPattern     float64
	AmountPerSenderChar    float64
	AmountPerRecipientChar float64
}

// Vector returns the features in their canonical order, ready to hand to a
// fitted model. The order is part of the model contract and must not change
// without retraining.
func (f Features) Vector() []float64 {
	return []float64{
		f.Amount,
		f.AmountLog,
		f.SenderLen,
		f.RecipientLen,
		f.SenderEntropy,
		f.RecipientEntropy,
		f.AddressSimilarity,
		f.IsRoundAmount,
		f.TimeDelta,
		f.IsFuture,
		f.IsStale,
		f.HourOfDay,
		f.IsNight,
		f.IsSelfTransaction,
		f.HasRepeatedPattern,
		f.AmountPerSenderChar,
		f.AmountPerRecipientChar,
	}
}

// ExtractFeatures derives the feature vector from raw transaction fields.
// It is a total function: malformed input coerces to safe defaults and the
// result never contains NaN or infinities.
func ExtractFeatures(tx Transaction, now time.Time, policy TimingPolicy) Features {
	amount := tx.Amount
	if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		amount = 0
	}

	f := Features{
		Amount:           amount,
		AmountLog:        math.Log1p(amount),
		SenderLen:        float64(len(tx.Sender)),
		RecipientLen:     float64(len(tx.Recipient)),
		SenderEntropy:    shannonEntropy(tx.Sender),
		RecipientEntropy: shannonEntropy(tx.Recipient),
	}

	f.AddressSimilarity = addressSimilarity(tx.Sender, tx.Recipient)
	if roundAmounts[amount] {
		f.IsRoundAmount = 1
	}
	if tx.Sender == tx.Recipient {
		f.IsSelfTransaction = 1
	}
	if hasRepeatedPattern(tx.Sender) || hasRepeatedPattern(tx.Recipient) {
		f.HasRepeatedPattern = 1
	}

	f.AmountPerSenderChar = amount / math.Max(f.SenderLen, 1)
	f.AmountPerRecipientChar = amount / math.Max(f.RecipientLen, 1)

	// Timestamp 0 means "unknown": timing features stay neutral so that no
	// timing heuristic can fire on absent data. Hour 12 is the neutral
	// midday value the models were fitted with.
	if tx.Timestamp == 0 {
		f.HourOfDay = 12
		return f
	}

	nowUnix := now.Unix()
	f.TimeDelta = float64(nowUnix - tx.Timestamp)
	if tx.Timestamp > nowUnix+int64(futureTolerance.Seconds()) {
		f.IsFuture = 1
	}
	if f.TimeDelta > float64(86400*policy.StaleDays) {
		f.IsStale = 1
	}

	hour := int((tx.Timestamp % 86400) / 3600)
	if hour < 0 {
		hour += 24 // negative pre-epoch timestamps
	}
	f.HourOfDay = float64(hour)
	if hour < policy.NightStart || hour > policy.NightEnd {
		f.IsNight = 1
	}

	return f
}

// shannonEntropy computes the character-level Shannon entropy of an address.
// Empty strings have zero entropy by definition.
func shannonEntropy(s string) float64 {
	if s == "" {
		return 0
	}

	counts := make(map[rune]int)
	total := 0
	for _, r := range s {
		counts[r]++
		total++
	}

	entropy := 0.0
	for _, c := range counts {
		p := float64(c) / float64(total)
		entropy -= p * math.Log2(p+entropyEpsilon)
	}
	return entropy
}

// addressSimilarity is the fraction of position-wise equal characters.
// Only defined for non-empty addresses of equal length; zero otherwise.
func addressSimilarity(a, b string) float64 {
	if a == "" || b == "" || len(a) != len(b) {
		return 0
	}

	matches := 0
	for i := 0; i < len(a); i++ {
		if a[i] == b[i] {
			matches++
		}
	}
	return float64(matches) / float64(len(a))
}

// hasRepeatedPattern reports whether an address contains a 2-character
// substring occurring at least 3 times, or 3 identical consecutive
// characters. Addresses shorter than 4 characters are never flagged.
func hasRepeatedPattern(addr string) bool {
	if len(addr) < 4 {
		return false
	}

	for i := 0; i+2 <= len(addr); i++ {
		pattern := addr[i : i+2]
		if countOccurrences(addr, pattern) >= 3 {
			return true
		}
	}

	for i := 0; i+3 <= len(addr); i++ {
		if addr[i] == addr[i+1] && addr[i] == addr[i+2] {
			return true
		}
	}

	return false
}

// countOccurrences counts overlapping occurrences of pattern in s.
func countOccurrences(s, pattern string) int {
	count := 0
	for i := 0; i+len(pattern) <= len(s); i++ {
		if s[i:i+len(pattern)] == pattern {
			count++
		}
	}
	return count
}
