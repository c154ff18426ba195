package fees

import (
	"math"
	"testing"
)

func TestComputeNormalPriority(t *testing.T) {
	e := Compute(100, 0.5, "normal")

	// (0.001 + 100*0.0001 + 0.5*0.005) * 1.0 = 0.0135
	if math.Abs(e.Fee-0.0135) > 1e-9 {
		t.Errorf("fee should be 0.0135, got %v", e.Fee)
	}
	if e.Confidence != 0.85 {
		t.Errorf("confidence should be fixed at 0.85, got %v", e.Confidence)
	}
	if e.Priority != "normal" {
		t.Errorf("priority should echo back, got %s", e.Priority)
	}
}

func TestComputeAmountFactorCapped(t *testing.T) {
	// 1e6 * 0.0001 = 100, capped at 0.01.
	e := Compute(1e6, 0, "normal")
	if math.Abs(e.Fee-0.011) > 1e-9 {
		t.Errorf("capped fee should be 0.011, got %v", e.Fee)
	}
}

func TestComputePriorityMultipliers(t *testing.T) {
	base := Compute(100, 0.5, "normal").Fee

	cases := []struct {
		priority string
		mult     float64
	}{
		{"low", 0.8},
		{"high", 1.5},
		{"urgent", 2.0},
		{"URGENT", 2.0}, // case-insensitive
		{"bogus", 1.0},  // unknown falls back to normal
		{"", 1.0},
	}
	for _, c := range cases {
		e := Compute(100, 0.5, c.priority)
		if math.Abs(e.Fee-base*c.mult) > 1e-9 {
			t.Errorf("priority %q: fee %v, want %v", c.priority, e.Fee, base*c.mult)
		}
	}
}

func TestComputeMinimumFee(t *testing.T) {
	// Even a zero-cost estimate cannot drop below the network minimum.
	e := Compute(0, 0, "low")
	if e.Fee < 0.0001 {
		t.Errorf("fee below minimum: %v", e.Fee)
	}
}

func TestComputeMalformedInputs(t *testing.T) {
	for _, amount := range []float64{-10, math.NaN(), math.Inf(1)} {
		e := Compute(amount, 0.5, "normal")
		if math.IsNaN(e.Fee) || e.Fee < 0.0001 {
			t.Errorf("amount %v: fee invalid: %v", amount, e.Fee)
		}
		if e.Amount != 0 {
			t.Errorf("amount %v should coerce to 0, got %v", amount, e.Amount)
		}
	}

	// Negative load means unknown and defaults to 0.5.
	e := Compute(100, -1, "normal")
	if e.NetworkLoad != 0.5 {
		t.Errorf("negative load should default to 0.5, got %v", e.NetworkLoad)
	}

	// Load clamps at 1.
	e = Compute(100, 7, "normal")
	if e.NetworkLoad != 1 {
		t.Errorf("load should clamp to 1, got %v", e.NetworkLoad)
	}
}

func TestComputeDeterministic(t *testing.T) {
	a := Compute(123.45, 0.3, "high")
	b := Compute(123.45, 0.3, "high")
	if a != b {
		t.Errorf("estimates must be deterministic: %+v vs %+v", a, b)
	}
}
