package engine

import "context"

// Store persists risk assessments for the audit trail. Recording is
// best-effort from the engine's point of view: a store failure never fails
// the scoring path.
type Store interface {
	Record(ctx context.Context, a *RiskAssessment) error
	ListRecent(ctx context.Context, limit int) ([]*RiskAssessment, error)
}
