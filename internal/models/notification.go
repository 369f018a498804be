package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Notification categories.
const (
	NotificationCategoryAppointment = "APPOINTMENT"
	NotificationCategoryDocument    = "DOCUMENT"
	NotificationCategoryOffer       = "OFFER"
	NotificationCategoryCondition   = "CONDITION"
	NotificationCategoryTransaction = "TRANSACTION"
)

// Notification is an in-app notification persisted for a user.
type Notification struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	Category  string          `db:"category" json:"category"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	IsRead    bool            `db:"is_read" json:"is_read"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
