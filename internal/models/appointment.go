package models

import (
	"time"

	"github.com/google/uuid"
)

// Appointment statuses.
const (
	AppointmentStatusProposed  = "PROPOSED"
	AppointmentStatusConfirmed = "CONFIRMED"
	AppointmentStatusDeclined  = "DECLINED"
	AppointmentStatusCancelled = "CANCELLED"
)

// Appointment types.
const (
	AppointmentTypeHouseVisit = "HOUSE_VISIT"
	AppointmentTypeMeeting    = "MEETING"
	AppointmentTypeSigning    = "SIGNING"
	AppointmentTypeOther      = "OTHER"
)

// Review actions.
const (
	AppointmentActionConfirm    = "CONFIRM"
	AppointmentActionDecline    = "DECLINE"
	AppointmentActionReschedule = "RESCHEDULE"
)

// Parties who can initiate a proposal.
const (
	InitiatedByBroker = "BROKER"
	InitiatedByClient = "CLIENT"
)

// Appointment is a scheduled meeting between the broker and the client
// of a transaction. Rows are never hard-deleted; DeletedAt marks removal.
type Appointment struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	TransactionID      uuid.UUID  `db:"transaction_id" json:"transaction_id"`
	BrokerID           uuid.UUID  `db:"broker_id" json:"broker_id"`
	ClientID           uuid.UUID  `db:"client_id" json:"client_id"`
	PropertyID         *uuid.UUID `db:"property_id" json:"property_id,omitempty"`
	Type               string     `db:"type" json:"type"`
	FromTime           time.Time  `db:"from_time" json:"from_time"`
	ToTime             time.Time  `db:"to_time" json:"to_time"`
	Status             string     `db:"status" json:"status"`
	InitiatedBy        string     `db:"initiated_by" json:"initiated_by"`
	RefusalReason      *string    `db:"refusal_reason" json:"refusal_reason,omitempty"`
	CancelledBy        *uuid.UUID `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CancellationReason *string    `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	ReminderSent       bool       `db:"reminder_sent" json:"reminder_sent"`
	Location           *string    `db:"location" json:"location,omitempty"`
	Latitude           *float64   `db:"latitude" json:"latitude,omitempty"`
	Longitude          *float64   `db:"longitude" json:"longitude,omitempty"`
	Notes              *string    `db:"notes" json:"notes,omitempty"`
	DeletedAt          *time.Time `db:"deleted_at" json:"-"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// InitiatorID returns the user id of the party that made the current proposal.
func (a *Appointment) InitiatorID() uuid.UUID {
	if a.InitiatedBy == InitiatedByBroker {
		return a.BrokerID
	}
	return a.ClientID
}

// CounterpartyID returns the other party relative to userID.
func (a *Appointment) CounterpartyID(userID uuid.UUID) uuid.UUID {
	if userID == a.BrokerID {
		return a.ClientID
	}
	return a.BrokerID
}
