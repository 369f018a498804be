package models

import (
	"time"

	"github.com/google/uuid"
)

// Buy-side property offer statuses.
const (
	PropertyOfferStatusMade      = "OFFER_MADE"
	PropertyOfferStatusAccepted  = "ACCEPTED"
	PropertyOfferStatusCountered = "COUNTERED"
	PropertyOfferStatusDeclined  = "DECLINED"
	PropertyOfferStatusExpired   = "EXPIRED"
)

// Property is a home tracked on a buy-side transaction. OfferAmount and
// OfferStatus mirror the latest property offer for list views.
type Property struct {
	ID            uuid.UUID `db:"id" json:"id"`
	TransactionID uuid.UUID `db:"transaction_id" json:"transaction_id"`
	Address       string    `db:"address" json:"address"`
	ListPrice     *float64  `db:"list_price" json:"list_price,omitempty"`
	Notes         *string   `db:"notes" json:"notes,omitempty"`
	OfferAmount   *float64  `db:"offer_amount" json:"offer_amount,omitempty"`
	OfferStatus   *string   `db:"offer_status" json:"offer_status,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// PropertyOffer is an offer the buy-side client makes on a property.
// OfferRound increments for each new offer on the same property.
type PropertyOffer struct {
	ID                   uuid.UUID  `db:"id" json:"id"`
	PropertyID           uuid.UUID  `db:"property_id" json:"property_id"`
	TransactionID        uuid.UUID  `db:"transaction_id" json:"transaction_id"`
	OfferRound           int        `db:"offer_round" json:"offer_round"`
	OfferAmount          float64    `db:"offer_amount" json:"offer_amount"`
	Status               string     `db:"status" json:"status"`
	CounterpartyResponse *string    `db:"counterparty_response" json:"counterparty_response,omitempty"`
	ExpiryDate           *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}
