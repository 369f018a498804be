package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/courtierpro/brokerage-backend/internal/models"
)

// TimelineRepository is the store contract used by the service.
type TimelineRepository interface {
	Create(ctx context.Context, entry *models.TimelineEntry) error
	ListByTransaction(ctx context.Context, transactionID uuid.UUID, limit, offset int) ([]models.TimelineEntry, error)
}

// TimelineService appends audit/activity-feed rows per transaction.
type TimelineService struct {
	repo TimelineRepository
}

// NewTimelineService creates the service.
func NewTimelineService(repo TimelineRepository) *TimelineService {
	return &TimelineService{repo: repo}
}

// AddEntry appends one feed row.
func (s *TimelineService) AddEntry(ctx context.Context, transactionID, actorID uuid.UUID, entryType string, details map[string]interface{}) error {
	var raw json.RawMessage
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("timeline service: marshal details %w", err)
		}
		raw = b
	}

	entry := &models.TimelineEntry{
		TransactionID: transactionID,
		ActorID:       actorID,
		EntryType:     entryType,
		Details:       raw,
	}

	return s.repo.Create(ctx, entry)
}

// ListEntries returns a transaction's feed.
func (s *TimelineService) ListEntries(ctx context.Context, transactionID uuid.UUID, limit, offset int) ([]models.TimelineEntry, error) {
	return s.repo.ListByTransaction(ctx, transactionID, limit, offset)
}
