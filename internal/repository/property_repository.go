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

// Not-found sentinels for buy-side entities.
var (
	ErrPropertyNotFound      = errors.New("property not found")
	ErrPropertyOfferNotFound = errors.New("property offer not found")
)

// PropertyRepository handles buy-side properties and their offers.
type PropertyRepository struct {
	db *sqlx.DB
}

// NewPropertyRepository creates the repository.
func NewPropertyRepository(db *sqlx.DB) *PropertyRepository {
	return &PropertyRepository{db: db}
}

// CreateProperty inserts a tracked property.
func (r *PropertyRepository) CreateProperty(ctx context.Context, property *models.Property) error {
	query := `
		INSERT INTO properties (transaction_id, address, list_price, notes)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx,
		query,
		property.TransactionID,
		property.Address,
		property.ListPrice,
		property.Notes,
	).Scan(&property.ID, &property.CreatedAt, &property.UpdatedAt); err != nil {
		return fmt.Errorf("property repository: create property %w", err)
	}

	return nil
}

// GetPropertyByID returns a property by id.
func (r *PropertyRepository) GetPropertyByID(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	var property models.Property
	if err := r.db.GetContext(ctx, &property, `SELECT * FROM properties WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPropertyNotFound
		}
		return nil, fmt.Errorf("property repository: get property by id %w", err)
	}

	return &property, nil
}

// ListPropertiesByTransaction returns the properties of a transaction.
func (r *PropertyRepository) ListPropertiesByTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.Property, error) {
	query := `SELECT * FROM properties WHERE transaction_id = $1 ORDER BY created_at DESC`

	var properties []models.Property
	if err := r.db.SelectContext(ctx, &properties, query, transactionID); err != nil {
		return nil, fmt.Errorf("property repository: list properties %w", err)
	}

	return properties, nil
}

// SyncPropertyOffer updates the denormalized latest-offer columns used
// by list views.
func (r *PropertyRepository) SyncPropertyOffer(ctx context.Context, propertyID uuid.UUID, amount float64, status string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE properties SET offer_amount = $1, offer_status = $2, updated_at = NOW() WHERE id = $3`,
		amount, status, propertyID)
	if err != nil {
		return fmt.Errorf("property repository: sync property offer %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("property repository: sync property offer rows affected %w", err)
	}
	if rowsAffected == 0 {
		return ErrPropertyNotFound
	}

	return nil
}

// CreatePropertyOffer inserts a new offer round on a property.
func (r *PropertyRepository) CreatePropertyOffer(ctx context.Context, offer *models.PropertyOffer) error {
	query := `
		INSERT INTO property_offers
			(property_id, transaction_id, offer_round, offer_amount, status, counterparty_response, expiry_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx,
		query,
		offer.PropertyID,
		offer.TransactionID,
		offer.OfferRound,
		offer.OfferAmount,
		offer.Status,
		offer.CounterpartyResponse,
		offer.ExpiryDate,
	).Scan(&offer.ID, &offer.CreatedAt, &offer.UpdatedAt); err != nil {
		return fmt.Errorf("property repository: create property offer %w", err)
	}

	return nil
}

// GetPropertyOfferByID returns a property offer by id.
func (r *PropertyRepository) GetPropertyOfferByID(ctx context.Context, id uuid.UUID) (*models.PropertyOffer, error) {
	var offer models.PropertyOffer
	if err := r.db.GetContext(ctx, &offer, `SELECT * FROM property_offers WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPropertyOfferNotFound
		}
		return nil, fmt.Errorf("property repository: get property offer by id %w", err)
	}

	return &offer, nil
}

// UpdatePropertyOffer persists a modified property offer.
func (r *PropertyRepository) UpdatePropertyOffer(ctx context.Context, offer *models.PropertyOffer) error {
	query := `
		UPDATE property_offers SET
			offer_amount = $1,
			status = $2,
			counterparty_response = $3,
			expiry_date = $4,
			updated_at = NOW()
		WHERE id = $5
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		offer.OfferAmount,
		offer.Status,
		offer.CounterpartyResponse,
		offer.ExpiryDate,
		offer.ID,
	)
	if err != nil {
		return fmt.Errorf("property repository: update property offer %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("property repository: update property offer rows affected %w", err)
	}
	if rowsAffected == 0 {
		return ErrPropertyOfferNotFound
	}

	return nil
}

// MaxOfferRound returns the highest offer round on a property, 0 when none.
func (r *PropertyRepository) MaxOfferRound(ctx context.Context, propertyID uuid.UUID) (int, error) {
	var max int
	query := `SELECT COALESCE(MAX(offer_round), 0) FROM property_offers WHERE property_id = $1`
	if err := r.db.GetContext(ctx, &max, query, propertyID); err != nil {
		return 0, fmt.Errorf("property repository: max offer round %w", err)
	}

	return max, nil
}

// ListPropertyOffers returns the offers made on one property, by round.
func (r *PropertyRepository) ListPropertyOffers(ctx context.Context, propertyID uuid.UUID) ([]models.PropertyOffer, error) {
	query := `SELECT * FROM property_offers WHERE property_id = $1 ORDER BY offer_round ASC`

	var offers []models.PropertyOffer
	if err := r.db.SelectContext(ctx, &offers, query, propertyID); err != nil {
		return nil, fmt.Errorf("property repository: list property offers %w", err)
	}

	return offers, nil
}
