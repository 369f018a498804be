package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Timeline entry types.
const (
	TimelineAppointmentRequested   = "APPOINTMENT_REQUESTED"
	TimelineAppointmentConfirmed   = "APPOINTMENT_CONFIRMED"
	TimelineAppointmentDeclined    = "APPOINTMENT_DECLINED"
	TimelineAppointmentRescheduled = "APPOINTMENT_RESCHEDULED"
	TimelineAppointmentCancelled   = "APPOINTMENT_CANCELLED"
	TimelineDocumentRequested      = "DOCUMENT_REQUESTED"
	TimelineDocumentShared         = "DOCUMENT_SHARED"
	TimelineDocumentSubmitted      = "DOCUMENT_SUBMITTED"
	TimelineDocumentReviewed       = "DOCUMENT_REVIEWED"
	TimelineOfferAdded             = "OFFER_ADDED"
	TimelineOfferUpdated           = "OFFER_UPDATED"
	TimelineOfferDecision          = "OFFER_DECISION"
	TimelinePropertyOfferMade      = "PROPERTY_OFFER_MADE"
	TimelinePropertyOfferUpdated   = "PROPERTY_OFFER_UPDATED"
	TimelineConditionAdded         = "CONDITION_ADDED"
	TimelineConditionUpdated       = "CONDITION_UPDATED"
	TimelineTransactionCreated     = "TRANSACTION_CREATED"
)

// TimelineEntry is one row of a transaction's activity feed.
type TimelineEntry struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	TransactionID uuid.UUID       `db:"transaction_id" json:"transaction_id"`
	ActorID       uuid.UUID       `db:"actor_id" json:"actor_id"`
	EntryType     string          `db:"entry_type" json:"entry_type"`
	Details       json.RawMessage `db:"details" json:"details,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}
