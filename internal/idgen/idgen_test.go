package idgen

import (
	"encoding/hex"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	id := New()
	if len(id) != 32 {
		t.Fatalf("New() length = %d, want 32", len(id))
	}
	if _, err := hex.DecodeString(id); err != nil {
		t.Fatalf("New() = %q, not hex: %v", id, err)
	}
	if New() == id {
		t.Fatal("two generated IDs collided")
	}
}

func TestWithPrefix(t *testing.T) {
	id := WithPrefix("risk_")
	if !strings.HasPrefix(id, "risk_") {
		t.Fatalf("WithPrefix(risk_) = %q, missing prefix", id)
	}
	if len(id) != len("risk_")+24 {
		t.Fatalf("WithPrefix(risk_) length = %d, want %d", len(id), len("risk_")+24)
	}
}
