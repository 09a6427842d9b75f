package infrastructure

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sebuszqo/TaxManager/internal/tax/domain"
)

// SummaryRepository writes the last_tax_summary column of the users table.
type SummaryRepository struct {
	db *sql.DB
}

func NewSummaryRepository(db *sql.DB) *SummaryRepository {
	return &SummaryRepository{db: db}
}

func (r *SummaryRepository) SaveSummary(ctx context.Context, userID string, summary domain.Summary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_tax_summary = $1, updated_at = NOW() WHERE id = $2`,
		string(payload), userID,
	)
	if err != nil {
		return fmt.Errorf("update tax summary: %w", err)
	}
	return expectOneRow(res)
}
