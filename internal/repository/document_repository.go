package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/courtierpro/brokerage-backend/internal/models"
)

// ErrDocumentNotFound is returned when a document does not exist.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentRepository handles documents, their versions and the stage
// checklist manual state.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository creates the repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create inserts a new document.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := `
		INSERT INTO documents
			(transaction_id, client_id, side, doc_type, custom_title, status, flow,
			 expected_from, visible_to_client, broker_notes, stage, requires_signature, due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx,
		query,
		doc.TransactionID,
		doc.ClientID,
		doc.Side,
		doc.DocType,
		doc.CustomTitle,
		doc.Status,
		doc.Flow,
		doc.ExpectedFrom,
		doc.VisibleToClient,
		doc.BrokerNotes,
		doc.Stage,
		doc.RequiresSignature,
		doc.DueDate,
	).Scan(&doc.ID, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return fmt.Errorf("document repository: create %w", err)
	}

	return nil
}

// GetByID returns a document by id.
func (r *DocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, `SELECT * FROM documents WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("document repository: get by id %w", err)
	}

	return &doc, nil
}

// Update persists a modified document.
func (r *DocumentRepository) Update(ctx context.Context, doc *models.Document) error {
	query := `
		UPDATE documents SET
			doc_type = $1,
			custom_title = $2,
			status = $3,
			expected_from = $4,
			visible_to_client = $5,
			broker_notes = $6,
			stage = $7,
			requires_signature = $8,
			due_date = $9,
			updated_at = NOW()
		WHERE id = $10
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		doc.DocType,
		doc.CustomTitle,
		doc.Status,
		doc.ExpectedFrom,
		doc.VisibleToClient,
		doc.BrokerNotes,
		doc.Stage,
		doc.RequiresSignature,
		doc.DueDate,
		doc.ID,
	)
	if err != nil {
		return fmt.Errorf("document repository: update %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("document repository: update rows affected %w", err)
	}
	if rowsAffected == 0 {
		return ErrDocumentNotFound
	}

	return nil
}

// Delete removes a document and, by cascade, its versions.
func (r *DocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("document repository: delete %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("document repository: delete rows affected %w", err)
	}
	if rowsAffected == 0 {
		return ErrDocumentNotFound
	}

	return nil
}

// ListByTransaction returns the documents of a transaction. When
// includeDrafts is false, DRAFT documents are filtered out (client view).
func (r *DocumentRepository) ListByTransaction(ctx context.Context, transactionID uuid.UUID, includeDrafts bool) ([]models.Document, error) {
	query := `SELECT * FROM documents WHERE transaction_id = $1`
	args := []interface{}{transactionID}

	if !includeDrafts {
		query += ` AND status <> $2`
		args = append(args, models.DocumentStatusDraft)
	}

	query += ` ORDER BY created_at DESC`

	var docs []models.Document
	if err := r.db.SelectContext(ctx, &docs, query, args...); err != nil {
		return nil, fmt.Errorf("document repository: list by transaction %w", err)
	}

	return docs, nil
}

// AddVersion appends an immutable file version to a document.
func (r *DocumentRepository) AddVersion(ctx context.Context, version *models.DocumentVersion) error {
	query := `
		INSERT INTO document_versions (document_id, storage_key, file_name, mime_type, size_bytes, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, uploaded_at
	`

	if err := r.db.QueryRowxContext(
		ctx,
		query,
		version.DocumentID,
		version.StorageKey,
		version.FileName,
		version.MimeType,
		version.SizeBytes,
		version.UploadedBy,
	).Scan(&version.ID, &version.UploadedAt); err != nil {
		return fmt.Errorf("document repository: add version %w", err)
	}

	return nil
}

// ListVersions returns a document's versions, newest first.
func (r *DocumentRepository) ListVersions(ctx context.Context, documentID uuid.UUID) ([]models.DocumentVersion, error) {
	query := `SELECT * FROM document_versions WHERE document_id = $1 ORDER BY uploaded_at DESC`

	var versions []models.DocumentVersion
	if err := r.db.SelectContext(ctx, &versions, query, documentID); err != nil {
		return nil, fmt.Errorf("document repository: list versions %w", err)
	}

	return versions, nil
}

// CountVersions returns the number of versions attached to a document.
func (r *DocumentRepository) CountVersions(ctx context.Context, documentID uuid.UUID) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM document_versions WHERE document_id = $1`, documentID); err != nil {
		return 0, fmt.Errorf("document repository: count versions %w", err)
	}

	return count, nil
}

// ListVersionsByTransaction returns all submitted versions across a
// transaction's documents, used for the unified document view.
func (r *DocumentRepository) ListVersionsByTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.DocumentVersion, error) {
	query := `
		SELECT v.* FROM document_versions v
		JOIN documents d ON d.id = v.document_id
		WHERE d.transaction_id = $1
		ORDER BY v.uploaded_at DESC
	`

	var versions []models.DocumentVersion
	if err := r.db.SelectContext(ctx, &versions, query, transactionID); err != nil {
		return nil, fmt.Errorf("document repository: list versions by transaction %w", err)
	}

	return versions, nil
}

// ListChecklistStates returns the manual checklist overrides of a transaction.
func (r *DocumentRepository) ListChecklistStates(ctx context.Context, transactionID uuid.UUID) ([]models.ChecklistState, error) {
	query := `SELECT * FROM checklist_states WHERE transaction_id = $1`

	var states []models.ChecklistState
	if err := r.db.SelectContext(ctx, &states, query, transactionID); err != nil {
		return nil, fmt.Errorf("document repository: list checklist states %w", err)
	}

	return states, nil
}

// UpsertChecklistState stores a manual override for one checklist item.
func (r *DocumentRepository) UpsertChecklistState(ctx context.Context, state *models.ChecklistState) error {
	query := `
		INSERT INTO checklist_states (transaction_id, item_key, manual_checked, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (transaction_id, item_key)
		DO UPDATE SET manual_checked = EXCLUDED.manual_checked, updated_by = EXCLUDED.updated_by, updated_at = NOW()
		RETURNING id, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx,
		query,
		state.TransactionID,
		state.ItemKey,
		state.ManualChecked,
		state.UpdatedBy,
	).Scan(&state.ID, &state.UpdatedAt); err != nil {
		return fmt.Errorf("document repository: upsert checklist state %w", err)
	}

	return nil
}
