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

// ErrTransactionNotFound is returned when a transaction does not exist.
var ErrTransactionNotFound = errors.New("transaction not found")

// TransactionRepository handles transactions and their participants.
type TransactionRepository struct {
	db *sqlx.DB
}

// NewTransactionRepository creates the repository.
func NewTransactionRepository(db *sqlx.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create inserts a new transaction.
func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	query := `
		INSERT INTO transactions (broker_id, client_id, side, status, current_stage, property_address)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx,
		query,
		tx.BrokerID,
		tx.ClientID,
		tx.Side,
		tx.Status,
		tx.CurrentStage,
		tx.PropertyAddress,
	).Scan(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt); err != nil {
		return fmt.Errorf("transaction repository: create %w", err)
	}

	return nil
}

// GetByID returns a transaction by id.
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.db.GetContext(ctx, &tx, `SELECT * FROM transactions WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("transaction repository: get by id %w", err)
	}

	return &tx, nil
}

// ListForUser returns transactions the user participates in, as broker,
// client, or registered participant.
func (r *TransactionRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Transaction, error) {
	query := `
		SELECT DISTINCT t.* FROM transactions t
		LEFT JOIN transaction_participants p ON p.transaction_id = t.id
		WHERE t.broker_id = $1 OR t.client_id = $1 OR p.user_id = $1
		ORDER BY t.created_at DESC
	`

	var txs []models.Transaction
	if err := r.db.SelectContext(ctx, &txs, query, userID); err != nil {
		return nil, fmt.Errorf("transaction repository: list for user %w", err)
	}

	return txs, nil
}

// HasActiveDuplicate reports whether an ACTIVE transaction already exists
// for the same client and property street (case-insensitive).
func (r *TransactionRepository) HasActiveDuplicate(ctx context.Context, clientID uuid.UUID, propertyAddress string) (bool, error) {
	query := `
		SELECT COUNT(*) FROM transactions
		WHERE client_id = $1
		  AND status = $2
		  AND LOWER(TRIM(property_address)) = LOWER(TRIM($3))
	`

	var count int
	if err := r.db.GetContext(ctx, &count, query, clientID, models.TransactionStatusActive, propertyAddress); err != nil {
		return false, fmt.Errorf("transaction repository: duplicate check %w", err)
	}

	return count > 0, nil
}

// IsCoBroker reports whether the user is a CO_BROKER participant of the transaction.
func (r *TransactionRepository) IsCoBroker(ctx context.Context, transactionID, userID uuid.UUID) (bool, error) {
	query := `
		SELECT COUNT(*) FROM transaction_participants
		WHERE transaction_id = $1 AND user_id = $2 AND role = $3
	`

	var count int
	if err := r.db.GetContext(ctx, &count, query, transactionID, userID, models.ParticipantRoleCoBroker); err != nil {
		return false, fmt.Errorf("transaction repository: co-broker check %w", err)
	}

	return count > 0, nil
}

// AddParticipant registers a participant on a transaction.
func (r *TransactionRepository) AddParticipant(ctx context.Context, participant *models.TransactionParticipant) error {
	query := `
		INSERT INTO transaction_participants (transaction_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	if err := r.db.QueryRowxContext(
		ctx,
		query,
		participant.TransactionID,
		participant.UserID,
		participant.Role,
	).Scan(&participant.ID, &participant.CreatedAt); err != nil {
		return fmt.Errorf("transaction repository: add participant %w", err)
	}

	return nil
}

// UpdateStage moves the transaction to a new workflow stage.
func (r *TransactionRepository) UpdateStage(ctx context.Context, id uuid.UUID, stage string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET current_stage = $1, updated_at = NOW() WHERE id = $2`, stage, id)
	if err != nil {
		return fmt.Errorf("transaction repository: update stage %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("transaction repository: update stage rows affected %w", err)
	}
	if rowsAffected == 0 {
		return ErrTransactionNotFound
	}

	return nil
}
