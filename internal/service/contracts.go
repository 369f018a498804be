package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/courtierpro/brokerage-backend/internal/models"
)

// TransactionReader loads transactions and answers participant checks.
// Every engine resolves access through this contract.
type TransactionReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	CoBrokerChecker
}

// UserReader resolves accounts for notification addressing.
type UserReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Notifier persists an in-app notification for a user.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, category, titleKey, messageKey string, params map[string]interface{}) error
}

// TimelineWriter appends an activity-feed row to a transaction.
type TimelineWriter interface {
	AddEntry(ctx context.Context, transactionID, actorID uuid.UUID, entryType string, details map[string]interface{}) error
}
