package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction sides.
const (
	SideBuy  = "BUY_SIDE"
	SideSell = "SELL_SIDE"
)

// Transaction statuses.
const (
	TransactionStatusActive    = "ACTIVE"
	TransactionStatusCompleted = "COMPLETED"
	TransactionStatusCancelled = "CANCELLED"
)

// Workflow stages. Buy-side stages first, then sell-side.
const (
	StageBuyerPrequalifyFinancially = "BUYER_PREQUALIFY_FINANCIALLY"
	StageBuyerPropertySearch        = "BUYER_PROPERTY_SEARCH"
	StageBuyerOfferNegotiation      = "BUYER_OFFER_NEGOTIATION"
	StageBuyerConditions            = "BUYER_CONDITIONS"
	StageBuyerClosing               = "BUYER_CLOSING"

	StageSellerPrepareListing    = "SELLER_PREPARE_LISTING"
	StageSellerActiveListing     = "SELLER_ACTIVE_LISTING"
	StageSellerOfferNegotiation  = "SELLER_OFFER_NEGOTIATION"
	StageSellerConditions        = "SELLER_CONDITIONS"
	StageSellerClosing           = "SELLER_CLOSING"
)

// Participant roles beyond the primary broker/client pair.
const (
	ParticipantRoleCoBroker = "CO_BROKER"
)

// Transaction is the root aggregate of a brokerage deal. It anchors
// access control for every child entity.
type Transaction struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	BrokerID        uuid.UUID  `db:"broker_id" json:"broker_id"`
	ClientID        uuid.UUID  `db:"client_id" json:"client_id"`
	Side            string     `db:"side" json:"side"`
	Status          string     `db:"status" json:"status"`
	CurrentStage    string     `db:"current_stage" json:"current_stage"`
	PropertyAddress *string    `db:"property_address" json:"property_address,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// FirstStageForSide returns the initial workflow stage of a new transaction.
func FirstStageForSide(side string) string {
	if side == SideSell {
		return StageSellerPrepareListing
	}
	return StageBuyerPrequalifyFinancially
}

// TransactionParticipant grants a secondary user access to a transaction.
type TransactionParticipant struct {
	ID            uuid.UUID `db:"id" json:"id"`
	TransactionID uuid.UUID `db:"transaction_id" json:"transaction_id"`
	UserID        uuid.UUID `db:"user_id" json:"user_id"`
	Role          string    `db:"role" json:"role"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
