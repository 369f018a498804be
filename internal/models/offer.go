package models

import (
	"time"

	"github.com/google/uuid"
)

// Sell-side offer statuses.
const (
	OfferStatusPending     = "PENDING"
	OfferStatusUnderReview = "UNDER_REVIEW"
	OfferStatusAccepted    = "ACCEPTED"
	OfferStatusDeclined    = "DECLINED"
	OfferStatusExpired     = "EXPIRED"
)

// Client decisions on a received offer.
const (
	ClientDecisionAccept  = "ACCEPT"
	ClientDecisionDecline = "DECLINE"
	ClientDecisionCounter = "COUNTER"
)

// Offer is a sell-side offer received from an external buyer.
type Offer struct {
	ID            uuid.UUID `db:"id" json:"id"`
	TransactionID uuid.UUID `db:"transaction_id" json:"transaction_id"`
	BuyerName     string    `db:"buyer_name" json:"buyer_name"`
	OfferAmount   float64   `db:"offer_amount" json:"offer_amount"`
	Status        string    `db:"status" json:"status"`
	Notes         *string   `db:"notes" json:"notes,omitempty"`

	ClientDecision      *string    `db:"client_decision" json:"client_decision,omitempty"`
	ClientDecisionNotes *string    `db:"client_decision_notes" json:"client_decision_notes,omitempty"`
	ClientDecisionAt    *time.Time `db:"client_decision_at" json:"client_decision_at,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	Revisions []OfferRevision `json:"revisions,omitempty"`
}

// OfferRevision is an append-only snapshot taken whenever the amount or
// status of an offer changes. Revision numbers are monotonic from 1.
type OfferRevision struct {
	ID             uuid.UUID `db:"id" json:"id"`
	OfferID        uuid.UUID `db:"offer_id" json:"offer_id"`
	RevisionNumber int       `db:"revision_number" json:"revision_number"`
	PreviousAmount float64   `db:"previous_amount" json:"previous_amount"`
	NewAmount      float64   `db:"new_amount" json:"new_amount"`
	PreviousStatus string    `db:"previous_status" json:"previous_status"`
	NewStatus      string    `db:"new_status" json:"new_status"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// OfferDocument is a file attached to an offer or a property offer.
// Exactly one of OfferID/PropertyOfferID is set.
type OfferDocument struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	OfferID         *uuid.UUID `db:"offer_id" json:"offer_id,omitempty"`
	PropertyOfferID *uuid.UUID `db:"property_offer_id" json:"property_offer_id,omitempty"`
	StorageKey      string     `db:"storage_key" json:"storage_key"`
	FileName        string     `db:"file_name" json:"file_name"`
	MimeType        string     `db:"mime_type" json:"mime_type"`
	SizeBytes       int64      `db:"size_bytes" json:"size_bytes"`
	UploadedBy      uuid.UUID  `db:"uploaded_by" json:"uploaded_by"`
	UploadedAt      time.Time  `db:"uploaded_at" json:"uploaded_at"`
}
