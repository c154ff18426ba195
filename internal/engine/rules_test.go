package engine

import (
	"math"
	"testing"
	"time"
)

func evalAt(t *testing.T, tx Transaction, now time.Time) (float64, []Finding) {
	t.Helper()
	f := ExtractFeatures(tx, now, DefaultTimingPolicy())
	return EvaluateRules(tx, f)
}

func codes(findings []Finding) []string {
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, string(f.Code))
	}
	return out
}

func hasCode(findings []Finding, code Code) bool {
	for _, f := range findings {
		if f.Code == code {
			return true
		}
	}
	return false
}

func TestAmountTiers(t *testing.T) {
	cases := []struct {
		amount    float64
		wantCode  Code
		wantDelta float64
	}{
		{150000, CodeVeryHighAmount, 0.40},
		{99999, CodeHighAmount, 0.20},
		{10000.01, CodeHighAmount, 0.20},
		{0.0001, CodeMicroTransaction, 0.15},
	}
	for _, c := range cases {
		tx := Transaction{
			Sender: "sender_addr_001", Recipient: "recip_addr_0002",
			Amount: c.amount, Timestamp: testNow.Unix(),
		}
		base, findings := evalAt(t, tx, testNow)
		if !hasCode(findings, c.wantCode) {
			t.Errorf("amount %v: expected %s, got %v", c.amount, c.wantCode, codes(findings))
		}
		if math.Abs(base-c.wantDelta) > 1e-9 {
			t.Errorf("amount %v: base score should be %v, got %v", c.amount, c.wantDelta, base)
		}
	}
}

func TestVeryHighBoundary(t *testing.T) {
	// Exactly 100000 sits in the top tier and is also a canonical round
	// amount, so both rules fire.
	tx := Transaction{
		Sender: "sender_addr_001", Recipient: "recip_addr_0002",
		Amount: 100000, Timestamp: testNow.Unix(),
	}
	base, findings := evalAt(t, tx, testNow)
	if !hasCode(findings, CodeVeryHighAmount) || !hasCode(findings, CodeSuspiciousPattern) {
		t.Fatalf("100000 should fire very_high_amount and suspicious_pattern: %v", codes(findings))
	}
	if math.Abs(base-0.70) > 1e-9 {
		t.Errorf("100000 base should be 0.70, got %v", base)
	}
}

func TestAmountTiersExclusive(t *testing.T) {
	// Tier boundaries that must NOT fire anything.
	for _, amount := range []float64{9999.5, 0.001, 5000.5, 0} {
		tx := Transaction{
			Sender: "sender_addr_001", Recipient: "recip_addr_0002",
			Amount: amount, Timestamp: testNow.Unix(),
		}
		base, findings := evalAt(t, tx, testNow)
		if base != 0 || len(findings) != 0 {
			t.Errorf("amount %v should fire no rules, got %v (base %v)", amount, codes(findings), base)
		}
	}
}

func TestSelfTransaction(t *testing.T) {
	tx := Transaction{
		Sender: "same_addr_00001", Recipient: "same_addr_00001",
		Amount: 1, Timestamp: testNow.Unix(),
	}
	base, findings := evalAt(t, tx, testNow)

	if !hasCode(findings, CodeSelfTransaction) {
		t.Fatalf("self transaction not flagged: %v", codes(findings))
	}
	// Identical addresses must not double as a near-duplicate pattern.
	if hasCode(findings, CodeSuspiciousPattern) {
		t.Errorf("self transaction should not also fire suspicious_pattern: %v", codes(findings))
	}
	if math.Abs(base-0.30) > 1e-9 {
		t.Errorf("self transaction base should be 0.30, got %v", base)
	}
}

func TestShortAddress(t *testing.T) {
	tx := Transaction{
		Sender: "short", Recipient: "recip_addr_0002",
		Amount: 1, Timestamp: testNow.Unix(),
	}
	_, findings := evalAt(t, tx, testNow)
	if !hasCode(findings, CodeInvalidAddress) {
		t.Errorf("9-char-or-shorter sender should flag invalid_address_format: %v", codes(findings))
	}

	// Exactly at the minimum length is well-formed.
	tx = Transaction{
		Sender: "abcdefghij", Recipient: "recip_addr_0002",
		Amount: 1, Timestamp: testNow.Unix(),
	}
	_, findings = evalAt(t, tx, testNow)
	if hasCode(findings, CodeInvalidAddress) {
		t.Errorf("10-char sender should be accepted: %v", codes(findings))
	}
}

func TestSuspiciousPatternVariants(t *testing.T) {
	// Round amount.
	tx := Transaction{
		Sender: "sender_addr_001", Recipient: "recip_addr_0002",
		Amount: 100, Timestamp: testNow.Unix(),
	}
	_, findings := evalAt(t, tx, testNow)
	if !hasCode(findings, CodeSuspiciousPattern) {
		t.Errorf("round amount 100 should fire suspicious_pattern: %v", codes(findings))
	}

	// Low character diversity: 12 chars, 3 distinct (< 12/3 = 4).
	tx = Transaction{
		Sender: "aabbccaabbcc", Recipient: "recip_addr_0002",
		Amount: 1, Timestamp: testNow.Unix(),
	}
	_, findings = evalAt(t, tx, testNow)
	if !hasCode(findings, CodeSuspiciousPattern) {
		t.Errorf("low-diversity sender should fire suspicious_pattern: %v", codes(findings))
	}

	// Near-duplicate distinct addresses (Hamming distance 1).
	tx = Transaction{
		Sender: "wallet_abcdef01", Recipient: "wallet_abcdef02",
		Amount: 1, Timestamp: testNow.Unix(),
	}
	_, findings = evalAt(t, tx, testNow)
	if !hasCode(findings, CodeSuspiciousPattern) {
		t.Errorf("near-duplicate addresses should fire suspicious_pattern: %v", codes(findings))
	}

	// Distance 3 is far enough apart.
	tx = Transaction{
		Sender: "wallet_abcdefxy", Recipient: "wallet_abczzzxz",
		Amount: 1, Timestamp: testNow.Unix(),
	}
	_, findings = evalAt(t, tx, testNow)
	if hasCode(findings, CodeSuspiciousPattern) {
		t.Errorf("distance-3 addresses should not fire suspicious_pattern: %v", codes(findings))
	}
}

func TestTimingPrecedence(t *testing.T) {
	// Future-dated at 03:00: future wins over night, only one timing finding.
	future := time.Date(2026, 3, 16, 3, 0, 0, 0, time.UTC)
	tx := Transaction{
		Sender: "sender_addr_001", Recipient: "recip_addr_0002",
		Amount: 1, Timestamp: future.Unix(),
	}
	base, findings := evalAt(t, tx, testNow)
	if !hasCode(findings, CodeUnusualTiming) {
		t.Fatalf("future timestamp should flag unusual_timing: %v", codes(findings))
	}
	if math.Abs(base-0.30) > 1e-9 {
		t.Errorf("future delta should win at 0.30, got %v", base)
	}

	// Stale at night: stale (0.20) wins over night (0.10).
	stale := time.Date(2026, 3, 5, 3, 0, 0, 0, time.UTC)
	tx.Timestamp = stale.Unix()
	base, _ = evalAt(t, tx, testNow)
	if math.Abs(base-0.20) > 1e-9 {
		t.Errorf("stale delta should win at 0.20, got %v", base)
	}

	// Night only.
	night := time.Date(2026, 3, 15, 2, 0, 0, 0, time.UTC)
	tx.Timestamp = night.Unix()
	base, _ = evalAt(t, tx, testNow)
	if math.Abs(base-0.10) > 1e-9 {
		t.Errorf("night delta should be 0.10, got %v", base)
	}
}

func TestNoTimingRiskForUnknownTimestamp(t *testing.T) {
	tx := Transaction{
		Sender: "sender_addr_001", Recipient: "recip_addr_0002",
		Amount: 1, Timestamp: 0,
	}
	_, findings := evalAt(t, tx, testNow)
	if hasCode(findings, CodeUnusualTiming) {
		t.Errorf("unknown timestamp must not flag timing: %v", codes(findings))
	}
}

func TestRuleOrderIsFixed(t *testing.T) {
	// A transaction tripping amount, self, address, pattern, and timing at
	// once must report them in evaluation order.
	night := time.Date(2026, 3, 15, 2, 0, 0, 0, time.UTC)
	tx := Transaction{
		Sender: "aaaa", Recipient: "aaaa",
		Amount: 100000, Timestamp: night.Unix(),
	}
	base, findings := evalAt(t, tx, testNow)

	want := []Code{CodeVeryHighAmount, CodeSelfTransaction, CodeInvalidAddress, CodeSuspiciousPattern, CodeUnusualTiming}
	if len(findings) != len(want) {
		t.Fatalf("expected %d findings, got %v", len(want), codes(findings))
	}
	for i, c := range want {
		if findings[i].Code != c {
			t.Errorf("finding %d should be %s, got %s", i, c, findings[i].Code)
		}
	}
	// 0.40 + 0.30 + 0.20 + 0.30 + 0.10
	if math.Abs(base-1.30) > 1e-9 {
		t.Errorf("base score should sum to 1.30 unclamped, got %v", base)
	}
}
