package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/courtierpro/brokerage-backend/internal/models"
)

// TimelineRepository handles transaction activity feeds.
type TimelineRepository struct {
	db *sqlx.DB
}

// NewTimelineRepository creates the repository.
func NewTimelineRepository(db *sqlx.DB) *TimelineRepository {
	return &TimelineRepository{db: db}
}

// Create appends an entry to a transaction's feed.
func (r *TimelineRepository) Create(ctx context.Context, entry *models.TimelineEntry) error {
	query := `
		INSERT INTO timeline_entries (transaction_id, actor_id, entry_type, details)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	if err := r.db.QueryRowxContext(
		ctx,
		query,
		entry.TransactionID,
		entry.ActorID,
		entry.EntryType,
		entry.Details,
	).Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return fmt.Errorf("timeline repository: create %w", err)
	}

	return nil
}

// ListByTransaction returns a transaction's feed, newest first.
func (r *TimelineRepository) ListByTransaction(ctx context.Context, transactionID uuid.UUID, limit, offset int) ([]models.TimelineEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT * FROM timeline_entries
		WHERE transaction_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	var entries []models.TimelineEntry
	if err := r.db.SelectContext(ctx, &entries, query, transactionID, limit, offset); err != nil {
		return nil, fmt.Errorf("timeline repository: list by transaction %w", err)
	}

	return entries, nil
}
