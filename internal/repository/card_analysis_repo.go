package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/intertool/cardinsight_api/internal/models"
)

// CardAnalysisRepository records analysis requests.
type CardAnalysisRepository struct {
	db *sqlx.DB
}

// NewCardAnalysisRepository creates a new analysis history repository.
func NewCardAnalysisRepository(db *sqlx.DB) *CardAnalysisRepository {
	return &CardAnalysisRepository{db: db}
}

// Create inserts a history record.
func (r *CardAnalysisRepository) Create(ctx context.Context, record *models.CardAnalysis) error {
	query := `
		INSERT INTO card_analyses (
			id, requested_by, has_back_image, manual_name, detected_lines,
			status, pdf_url, error_message, duration_ms
		) VALUES (
			:id, :requested_by, :has_back_image, :manual_name, :detected_lines,
			:status, :pdf_url, :error_message, :duration_ms
		)
	`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("insert card analysis: %w", err)
	}
	return nil
}

// List returns a page of records, newest first, plus the total count.
func (r *CardAnalysisRepository) List(ctx context.Context, page, limit int) ([]models.CardAnalysis, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM card_analyses`); err != nil {
		return nil, 0, fmt.Errorf("count card analyses: %w", err)
	}

	records := []models.CardAnalysis{}
	query := `
		SELECT id, requested_by, has_back_image, manual_name, detected_lines,
			status, pdf_url, error_message, duration_ms, created_at
		FROM card_analyses
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	if err := r.db.SelectContext(ctx, &records, query, limit, (page-1)*limit); err != nil {
		return nil, 0, fmt.Errorf("list card analyses: %w", err)
	}
	return records, total, nil
}

// DeleteOlderThan removes records created before cutoff.
func (r *CardAnalysisRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM card_analyses WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune card analyses: %w", err)
	}
	return res.RowsAffected()
}
