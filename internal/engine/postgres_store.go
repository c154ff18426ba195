package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
)

// PostgresStore persists risk assessments in PostgreSQL. The schema lives in
// migrations/ and is applied via cmd/migrate.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore creates a PostgreSQL-backed assessment store.
func NewPostgresStore(db *sql.DB, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{db: db, logger: logger}
}

func (s *PostgresStore) Record(ctx context.Context, a *RiskAssessment) error {
	factorsJSON, err := json.Marshal(a.RiskFactors)
	if err != nil {
		return fmt.Errorf("marshal risk factors: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO risk_assessments
			(id, sender, recipient, amount, risk_score, is_suspicious,
			 is_high_risk, risk_factors, confidence, model, status, evaluated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		a.ID,
		a.Sender,
		a.Recipient,
		a.Analysis.Amount,
		a.RiskScore,
		a.IsSuspicious,
		a.IsHighRisk,
		factorsJSON,
		a.Confidence,
		a.Model,
		a.Status,
		a.EvaluatedAt,
	)
	if err != nil {
		return fmt.Errorf("record risk assessment: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]*RiskAssessment, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender, recipient, amount, risk_score, is_suspicious,
		       is_high_risk, risk_factors, confidence, model, status, evaluated_at
		FROM risk_assessments
		ORDER BY evaluated_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list risk assessments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*RiskAssessment
	for rows.Next() {
		var a RiskAssessment
		var factorsJSON []byte
		if err := rows.Scan(
			&a.ID, &a.Sender, &a.Recipient, &a.Analysis.Amount, &a.RiskScore,
			&a.IsSuspicious, &a.IsHighRisk, &factorsJSON, &a.Confidence,
			&a.Model, &a.Status, &a.EvaluatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan risk assessment: %w", err)
		}
		// A corrupt factors column downgrades that row to empty factors
		// rather than failing the whole listing.
		a.RiskFactors = []string{}
		if err := json.Unmarshal(factorsJSON, &a.RiskFactors); err != nil {
			s.logger.Warn("corrupt risk_factors column", "id", a.ID, "error", err)
			a.RiskFactors = []string{}
		}
		a.Analysis.SenderLength = len(a.Sender)
		a.Analysis.RecipientLength = len(a.Recipient)
		out = append(out, &a)
	}
	return out, rows.Err()
}
