package engine

import (
	"context"
	"sync"
)

// maxMemoryAssessments bounds the in-memory audit trail.
const maxMemoryAssessments = 10000

// MemoryStore is an in-memory Store for demo and test use.
type MemoryStore struct {
	mu          sync.RWMutex
	assessments []*RiskAssessment
}

// NewMemoryStore creates an in-memory assessment store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Record(ctx context.Context, a *RiskAssessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *a
	cp.RiskFactors = append([]string(nil), a.RiskFactors...)
	s.assessments = append(s.assessments, &cp)

	if len(s.assessments) > maxMemoryAssessments {
		s.assessments = s.assessments[len(s.assessments)-maxMemoryAssessments:]
	}
	return nil
}

func (s *MemoryStore) ListRecent(ctx context.Context, limit int) ([]*RiskAssessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.assessments) {
		limit = len(s.assessments)
	}

	// Newest first.
	out := make([]*RiskAssessment, 0, limit)
	for i := len(s.assessments) - 1; i >= len(s.assessments)-limit; i-- {
		cp := *s.assessments[i]
		cp.RiskFactors = append([]string(nil), s.assessments[i].RiskFactors...)
		out = append(out, &cp)
	}
	return out, nil
}
