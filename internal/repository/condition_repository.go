package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/courtierpro/brokerage-backend/internal/models"
)

// ErrConditionNotFound is returned when a condition does not exist.
var ErrConditionNotFound = errors.New("condition not found")

// ConditionRepository handles conditions and their links to offers,
// property offers and documents.
type ConditionRepository struct {
	db *sqlx.DB
}

// NewConditionRepository creates the repository.
func NewConditionRepository(db *sqlx.DB) *ConditionRepository {
	return &ConditionRepository{db: db}
}

// Create inserts a new condition.
func (r *ConditionRepository) Create(ctx context.Context, condition *models.Condition) error {
	query := `
		INSERT INTO conditions (transaction_id, type, custom_title, description, deadline_date, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx,
		query,
		condition.TransactionID,
		condition.Type,
		condition.CustomTitle,
		condition.Description,
		condition.DeadlineDate,
		condition.Status,
		condition.Notes,
	).Scan(&condition.ID, &condition.CreatedAt, &condition.UpdatedAt); err != nil {
		return fmt.Errorf("condition repository: create %w", err)
	}

	return nil
}

// GetByID returns a condition by id.
func (r *ConditionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Condition, error) {
	var condition models.Condition
	if err := r.db.GetContext(ctx, &condition, `SELECT * FROM conditions WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConditionNotFound
		}
		return nil, fmt.Errorf("condition repository: get by id %w", err)
	}

	return &condition, nil
}

// Update persists a modified condition.
func (r *ConditionRepository) Update(ctx context.Context, condition *models.Condition) error {
	query := `
		UPDATE conditions SET
			type = $1,
			custom_title = $2,
			description = $3,
			deadline_date = $4,
			status = $5,
			notes = $6,
			satisfied_at = $7,
			updated_at = NOW()
		WHERE id = $8
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		condition.Type,
		condition.CustomTitle,
		condition.Description,
		condition.DeadlineDate,
		condition.Status,
		condition.Notes,
		condition.SatisfiedAt,
		condition.ID,
	)
	if err != nil {
		return fmt.Errorf("condition repository: update %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("condition repository: update rows affected %w", err)
	}
	if rowsAffected == 0 {
		return ErrConditionNotFound
	}

	return nil
}

// UpdateStatus changes only the status, stamping satisfied_at when satisfied.
func (r *ConditionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, satisfiedAt *time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE conditions SET status = $1, satisfied_at = $2, updated_at = NOW() WHERE id = $3`,
		status, satisfiedAt, id)
	if err != nil {
		return fmt.Errorf("condition repository: update status %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("condition repository: update status rows affected %w", err)
	}
	if rowsAffected == 0 {
		return ErrConditionNotFound
	}

	return nil
}

// Delete removes a condition and its links.
func (r *ConditionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM conditions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("condition repository: delete %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("condition repository: delete rows affected %w", err)
	}
	if rowsAffected == 0 {
		return ErrConditionNotFound
	}

	return nil
}

// ListByTransaction returns a transaction's conditions.
func (r *ConditionRepository) ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.Condition, error) {
	query := `SELECT * FROM conditions WHERE transaction_id = $1 ORDER BY created_at ASC`

	var conditions []models.Condition
	if err := r.db.SelectContext(ctx, &conditions, query, transactionID); err != nil {
		return nil, fmt.Errorf("condition repository: list by transaction %w", err)
	}

	return conditions, nil
}

// ReplaceLinksForOffer replaces the full condition link set of an offer.
// Delete-then-reinsert, not a diff.
func (r *ConditionRepository) ReplaceLinksForOffer(ctx context.Context, offerID uuid.UUID, conditionIDs []uuid.UUID) error {
	return r.replaceLinks(ctx, "offer_id", offerID, conditionIDs)
}

// ReplaceLinksForPropertyOffer replaces the link set of a property offer.
func (r *ConditionRepository) ReplaceLinksForPropertyOffer(ctx context.Context, propertyOfferID uuid.UUID, conditionIDs []uuid.UUID) error {
	return r.replaceLinks(ctx, "property_offer_id", propertyOfferID, conditionIDs)
}

// ReplaceLinksForDocument replaces the link set of a document.
func (r *ConditionRepository) ReplaceLinksForDocument(ctx context.Context, documentID uuid.UUID, conditionIDs []uuid.UUID) error {
	return r.replaceLinks(ctx, "document_id", documentID, conditionIDs)
}

func (r *ConditionRepository) replaceLinks(ctx context.Context, column string, parentID uuid.UUID, conditionIDs []uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("condition repository: begin replace links %w", err)
	}
	defer tx.Rollback()

	// column is one of the three fixed foreign keys, never user input.
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM condition_links WHERE %s = $1`, column), parentID); err != nil {
		return fmt.Errorf("condition repository: delete links %w", err)
	}

	for _, conditionID := range conditionIDs {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO condition_links (condition_id, %s) VALUES ($1, $2)`, column),
			conditionID, parentID); err != nil {
			return fmt.Errorf("condition repository: insert link %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("condition repository: commit replace links %w", err)
	}

	return nil
}

// ListLinksForOffer returns the condition links of an offer.
func (r *ConditionRepository) ListLinksForOffer(ctx context.Context, offerID uuid.UUID) ([]models.ConditionLink, error) {
	query := `SELECT * FROM condition_links WHERE offer_id = $1`

	var links []models.ConditionLink
	if err := r.db.SelectContext(ctx, &links, query, offerID); err != nil {
		return nil, fmt.Errorf("condition repository: list links for offer %w", err)
	}

	return links, nil
}

// ListLinksForPropertyOffer returns the condition links of a property offer.
func (r *ConditionRepository) ListLinksForPropertyOffer(ctx context.Context, propertyOfferID uuid.UUID) ([]models.ConditionLink, error) {
	query := `SELECT * FROM condition_links WHERE property_offer_id = $1`

	var links []models.ConditionLink
	if err := r.db.SelectContext(ctx, &links, query, propertyOfferID); err != nil {
		return nil, fmt.Errorf("condition repository: list links for property offer %w", err)
	}

	return links, nil
}
