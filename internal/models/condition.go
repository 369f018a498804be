package models

import (
	"time"

	"github.com/google/uuid"
)

// Condition types.
const (
	ConditionTypeFinancing      = "FINANCING"
	ConditionTypeInspection     = "INSPECTION"
	ConditionTypeSaleOfProperty = "SALE_OF_PROPERTY"
	ConditionTypeOther          = "OTHER"
)

// Condition statuses.
const (
	ConditionStatusPending   = "PENDING"
	ConditionStatusSatisfied = "SATISFIED"
	ConditionStatusFailed    = "FAILED"
)

// Condition is a contingency attached to a transaction, such as
// financing approval or a satisfactory inspection.
type Condition struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	TransactionID uuid.UUID  `db:"transaction_id" json:"transaction_id"`
	Type          string     `db:"type" json:"type"`
	CustomTitle   *string    `db:"custom_title" json:"custom_title,omitempty"`
	Description   *string    `db:"description" json:"description,omitempty"`
	DeadlineDate  *time.Time `db:"deadline_date" json:"deadline_date,omitempty"`
	Status        string     `db:"status" json:"status"`
	Notes         *string    `db:"notes" json:"notes,omitempty"`
	SatisfiedAt   *time.Time `db:"satisfied_at" json:"satisfied_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// ConditionLink associates a condition with exactly one of an offer, a
// property offer, or a document. The set of links for a parent is
// replaced wholesale on update.
type ConditionLink struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	ConditionID     uuid.UUID  `db:"condition_id" json:"condition_id"`
	OfferID         *uuid.UUID `db:"offer_id" json:"offer_id,omitempty"`
	PropertyOfferID *uuid.UUID `db:"property_offer_id" json:"property_offer_id,omitempty"`
	DocumentID      *uuid.UUID `db:"document_id" json:"document_id,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}
