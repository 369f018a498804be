package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/courtierpro/brokerage-backend/internal/logger"
	"github.com/courtierpro/brokerage-backend/internal/models"
	"github.com/courtierpro/brokerage-backend/internal/pkg/apperror"
)

// CoBrokerChecker reports whether a user is a CO_BROKER participant of
// a transaction.
type CoBrokerChecker interface {
	IsCoBroker(ctx context.Context, transactionID, userID uuid.UUID) (bool, error)
}

// canAccessTransaction is the predicate shared by every engine: the
// caller must be the transaction's broker, its client, or a registered
// CO_BROKER participant.
func canAccessTransaction(ctx context.Context, participants CoBrokerChecker, tx *models.Transaction, userID uuid.UUID) (bool, error) {
	if userID == tx.BrokerID || userID == tx.ClientID {
		return true, nil
	}
	return participants.IsCoBroker(ctx, tx.ID, userID)
}

// requireTransactionAccess raises Forbidden for callers outside the
// broker/client/co-broker set.
func requireTransactionAccess(ctx context.Context, participants CoBrokerChecker, tx *models.Transaction, userID uuid.UUID) error {
	ok, err := canAccessTransaction(ctx, participants, tx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.ErrForbidden
	}
	return nil
}

// requireBrokerAccess restricts an operation to the primary broker or a
// co-broker.
func requireBrokerAccess(ctx context.Context, participants CoBrokerChecker, tx *models.Transaction, userID uuid.UUID) error {
	if userID == tx.BrokerID {
		return nil
	}
	ok, err := participants.IsCoBroker(ctx, tx.ID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.ErrForbidden
	}
	return nil
}

// logSideEffect records a failed best-effort side effect. Notification,
// email, timeline and push failures never abort the primary mutation.
func logSideEffect(op string, err error) {
	if err == nil {
		return
	}
	if logger.Log != nil {
		logger.Log.WithError(err).Warn(op)
	}
}
