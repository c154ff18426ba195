package engine

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func storedAssessment(id string, score float64) *RiskAssessment {
	return &RiskAssessment{
		ID:          id,
		Sender:      "sender_addr_001",
		Recipient:   "recip_addr_0002",
		RiskScore:   score,
		RiskFactors: []string{"high_amount"},
		Model:       ModelRuleBased,
		Status:      "success",
		EvaluatedAt: testNow,
	}
}

func TestMemoryStoreRecordAndList(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := s.Record(ctx, storedAssessment(fmt.Sprintf("risk_%03d", i), 0.1)); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	recent, err := s.ListRecent(ctx, 3)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3 assessments, got %d", len(recent))
	}
	// Newest first.
	if recent[0].ID != "risk_004" || recent[2].ID != "risk_002" {
		t.Errorf("wrong order: %s .. %s", recent[0].ID, recent[2].ID)
	}
}

func TestMemoryStoreCopiesOnWrite(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	a := storedAssessment("risk_abc", 0.5)
	if err := s.Record(ctx, a); err != nil {
		t.Fatalf("Record: %v", err)
	}

	// Caller mutations after Record must not leak into the store.
	a.RiskFactors[0] = "mutated"
	a.RiskScore = 0.99

	recent, _ := s.ListRecent(ctx, 1)
	if recent[0].RiskFactors[0] != "high_amount" || recent[0].RiskScore != 0.5 {
		t.Errorf("stored assessment was mutated: %+v", recent[0])
	}
}

func TestMemoryStoreListAllWhenLimitZero(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_ = s.Record(ctx, storedAssessment(fmt.Sprintf("risk_%d", i), 0.2))
	}

	recent, err := s.ListRecent(ctx, 0)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(recent) != 4 {
		t.Errorf("limit 0 should return everything, got %d", len(recent))
	}
}

func TestMemoryStoreConcurrent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			_ = s.Record(ctx, storedAssessment(fmt.Sprintf("risk_w%d", i), 0.3))
		}
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := s.ListRecent(ctx, 10); err != nil {
			t.Fatalf("ListRecent during writes: %v", err)
		}
		select {
		case <-done:
			return
		default:
		}
	}
	t.Fatal("writer did not finish")
}
