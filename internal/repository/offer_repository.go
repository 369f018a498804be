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

// ErrOfferNotFound is returned when an offer does not exist.
var ErrOfferNotFound = errors.New("offer not found")

// OfferRepository handles sell-side offers, their revision history,
// client decisions and attachments.
type OfferRepository struct {
	db *sqlx.DB
}

// NewOfferRepository creates the repository.
func NewOfferRepository(db *sqlx.DB) *OfferRepository {
	return &OfferRepository{db: db}
}

// Create inserts a new offer.
func (r *OfferRepository) Create(ctx context.Context, offer *models.Offer) error {
	query := `
		INSERT INTO offers (transaction_id, buyer_name, offer_amount, status, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx,
		query,
		offer.TransactionID,
		offer.BuyerName,
		offer.OfferAmount,
		offer.Status,
		offer.Notes,
	).Scan(&offer.ID, &offer.CreatedAt, &offer.UpdatedAt); err != nil {
		return fmt.Errorf("offer repository: create %w", err)
	}

	return nil
}

// GetByID returns an offer by id.
func (r *OfferRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	var offer models.Offer
	if err := r.db.GetContext(ctx, &offer, `SELECT * FROM offers WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOfferNotFound
		}
		return nil, fmt.Errorf("offer repository: get by id %w", err)
	}

	return &offer, nil
}

// Update persists a modified offer.
func (r *OfferRepository) Update(ctx context.Context, offer *models.Offer) error {
	query := `
		UPDATE offers SET
			buyer_name = $1,
			offer_amount = $2,
			status = $3,
			notes = $4,
			updated_at = NOW()
		WHERE id = $5
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		offer.BuyerName,
		offer.OfferAmount,
		offer.Status,
		offer.Notes,
		offer.ID,
	)
	if err != nil {
		return fmt.Errorf("offer repository: update %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("offer repository: update rows affected %w", err)
	}
	if rowsAffected == 0 {
		return ErrOfferNotFound
	}

	return nil
}

// ListByTransaction returns a transaction's offers, newest first.
func (r *OfferRepository) ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.Offer, error) {
	query := `SELECT * FROM offers WHERE transaction_id = $1 ORDER BY created_at DESC`

	var offers []models.Offer
	if err := r.db.SelectContext(ctx, &offers, query, transactionID); err != nil {
		return nil, fmt.Errorf("offer repository: list by transaction %w", err)
	}

	return offers, nil
}

// MaxRevisionNumber returns the highest revision number recorded for an
// offer, or 0 when no revision exists.
func (r *OfferRepository) MaxRevisionNumber(ctx context.Context, offerID uuid.UUID) (int, error) {
	var max int
	query := `SELECT COALESCE(MAX(revision_number), 0) FROM offer_revisions WHERE offer_id = $1`
	if err := r.db.GetContext(ctx, &max, query, offerID); err != nil {
		return 0, fmt.Errorf("offer repository: max revision number %w", err)
	}

	return max, nil
}

// AddRevision appends a revision snapshot.
func (r *OfferRepository) AddRevision(ctx context.Context, revision *models.OfferRevision) error {
	query := `
		INSERT INTO offer_revisions
			(offer_id, revision_number, previous_amount, new_amount, previous_status, new_status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	if err := r.db.QueryRowxContext(
		ctx,
		query,
		revision.OfferID,
		revision.RevisionNumber,
		revision.PreviousAmount,
		revision.NewAmount,
		revision.PreviousStatus,
		revision.NewStatus,
	).Scan(&revision.ID, &revision.CreatedAt); err != nil {
		return fmt.Errorf("offer repository: add revision %w", err)
	}

	return nil
}

// ListRevisions returns an offer's revisions ordered by revision number.
func (r *OfferRepository) ListRevisions(ctx context.Context, offerID uuid.UUID) ([]models.OfferRevision, error) {
	query := `SELECT * FROM offer_revisions WHERE offer_id = $1 ORDER BY revision_number ASC`

	var revisions []models.OfferRevision
	if err := r.db.SelectContext(ctx, &revisions, query, offerID); err != nil {
		return nil, fmt.Errorf("offer repository: list revisions %w", err)
	}

	return revisions, nil
}

// RecordClientDecision stores the client's decision on an offer without
// touching the offer's primary status.
func (r *OfferRepository) RecordClientDecision(ctx context.Context, offerID uuid.UUID, decision string, notes *string, decidedAt time.Time) error {
	query := `
		UPDATE offers SET
			client_decision = $1,
			client_decision_notes = $2,
			client_decision_at = $3,
			updated_at = NOW()
		WHERE id = $4
	`

	result, err := r.db.ExecContext(ctx, query, decision, notes, decidedAt, offerID)
	if err != nil {
		return fmt.Errorf("offer repository: record client decision %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("offer repository: record client decision rows affected %w", err)
	}
	if rowsAffected == 0 {
		return ErrOfferNotFound
	}

	return nil
}

// AddDocument attaches a file to an offer or property offer.
func (r *OfferRepository) AddDocument(ctx context.Context, doc *models.OfferDocument) error {
	query := `
		INSERT INTO offer_documents
			(offer_id, property_offer_id, storage_key, file_name, mime_type, size_bytes, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, uploaded_at
	`

	if err := r.db.QueryRowxContext(
		ctx,
		query,
		doc.OfferID,
		doc.PropertyOfferID,
		doc.StorageKey,
		doc.FileName,
		doc.MimeType,
		doc.SizeBytes,
		doc.UploadedBy,
	).Scan(&doc.ID, &doc.UploadedAt); err != nil {
		return fmt.Errorf("offer repository: add document %w", err)
	}

	return nil
}

// ListDocumentsByTransactionOffers returns attachments of all sell-side
// offers belonging to a transaction.
func (r *OfferRepository) ListDocumentsByTransactionOffers(ctx context.Context, transactionID uuid.UUID) ([]models.OfferDocument, error) {
	query := `
		SELECT od.* FROM offer_documents od
		JOIN offers o ON o.id = od.offer_id
		WHERE o.transaction_id = $1
		ORDER BY od.uploaded_at DESC
	`

	var docs []models.OfferDocument
	if err := r.db.SelectContext(ctx, &docs, query, transactionID); err != nil {
		return nil, fmt.Errorf("offer repository: list documents by transaction offers %w", err)
	}

	return docs, nil
}

// ListDocumentsByTransactionPropertyOffers returns attachments of all
// buy-side property offers belonging to a transaction.
func (r *OfferRepository) ListDocumentsByTransactionPropertyOffers(ctx context.Context, transactionID uuid.UUID) ([]models.OfferDocument, error) {
	query := `
		SELECT od.* FROM offer_documents od
		JOIN property_offers po ON po.id = od.property_offer_id
		WHERE po.transaction_id = $1
		ORDER BY od.uploaded_at DESC
	`

	var docs []models.OfferDocument
	if err := r.db.SelectContext(ctx, &docs, query, transactionID); err != nil {
		return nil, fmt.Errorf("offer repository: list documents by transaction property offers %w", err)
	}

	return docs, nil
}
