package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/courtierpro/brokerage-backend/internal/models"
)

// ErrAppointmentNotFound is returned when an appointment does not exist.
var ErrAppointmentNotFound = errors.New("appointment not found")

// AppointmentRepository handles appointment persistence. Soft-deleted
// rows are excluded from every finder.
type AppointmentRepository struct {
	db *sqlx.DB
}

// NewAppointmentRepository creates the repository.
func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// Create inserts a new appointment.
func (r *AppointmentRepository) Create(ctx context.Context, appt *models.Appointment) error {
	query := `
		INSERT INTO appointments
			(transaction_id, broker_id, client_id, property_id, type, from_time, to_time,
			 status, initiated_by, location, latitude, longitude, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx,
		query,
		appt.TransactionID,
		appt.BrokerID,
		appt.ClientID,
		appt.PropertyID,
		appt.Type,
		appt.FromTime,
		appt.ToTime,
		appt.Status,
		appt.InitiatedBy,
		appt.Location,
		appt.Latitude,
		appt.Longitude,
		appt.Notes,
	).Scan(&appt.ID, &appt.CreatedAt, &appt.UpdatedAt); err != nil {
		return fmt.Errorf("appointment repository: create %w", err)
	}

	return nil
}

// GetByID returns a live appointment by id.
func (r *AppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Appointment, error) {
	var appt models.Appointment
	query := `SELECT * FROM appointments WHERE id = $1 AND deleted_at IS NULL`
	if err := r.db.GetContext(ctx, &appt, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("appointment repository: get by id %w", err)
	}

	return &appt, nil
}

// Update persists a modified appointment in place. The same row is kept
// across reviews and reschedules.
func (r *AppointmentRepository) Update(ctx context.Context, appt *models.Appointment) error {
	query := `
		UPDATE appointments SET
			from_time = $1,
			to_time = $2,
			status = $3,
			initiated_by = $4,
			refusal_reason = $5,
			cancelled_by = $6,
			cancellation_reason = $7,
			reminder_sent = $8,
			location = $9,
			latitude = $10,
			longitude = $11,
			notes = $12,
			updated_at = NOW()
		WHERE id = $13 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		appt.FromTime,
		appt.ToTime,
		appt.Status,
		appt.InitiatedBy,
		appt.RefusalReason,
		appt.CancelledBy,
		appt.CancellationReason,
		appt.ReminderSent,
		appt.Location,
		appt.Latitude,
		appt.Longitude,
		appt.Notes,
		appt.ID,
	)
	if err != nil {
		return fmt.Errorf("appointment repository: update %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("appointment repository: update rows affected %w", err)
	}
	if rowsAffected == 0 {
		return ErrAppointmentNotFound
	}

	return nil
}

// SoftDelete marks an appointment as deleted without removing the row.
func (r *AppointmentRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE appointments SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("appointment repository: soft delete %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("appointment repository: soft delete rows affected %w", err)
	}
	if rowsAffected == 0 {
		return ErrAppointmentNotFound
	}

	return nil
}

// ListForUser returns appointments visible to the user: their own as
// broker or client, plus those on transactions where they are a
// CO_BROKER participant.
func (r *AppointmentRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Appointment, error) {
	query := `
		SELECT DISTINCT a.* FROM appointments a
		LEFT JOIN transaction_participants p
			ON p.transaction_id = a.transaction_id AND p.role = $2
		WHERE a.deleted_at IS NULL
		  AND (a.broker_id = $1 OR a.client_id = $1 OR p.user_id = $1)
		ORDER BY a.from_time ASC
	`

	var appts []models.Appointment
	if err := r.db.SelectContext(ctx, &appts, query, userID, models.ParticipantRoleCoBroker); err != nil {
		return nil, fmt.Errorf("appointment repository: list for user %w", err)
	}

	return appts, nil
}

// ListByTransaction returns the appointments of one transaction.
func (r *AppointmentRepository) ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.Appointment, error) {
	query := `
		SELECT * FROM appointments
		WHERE transaction_id = $1 AND deleted_at IS NULL
		ORDER BY from_time ASC
	`

	var appts []models.Appointment
	if err := r.db.SelectContext(ctx, &appts, query, transactionID); err != nil {
		return nil, fmt.Errorf("appointment repository: list by transaction %w", err)
	}

	return appts, nil
}

// ListNeedingReminder returns CONFIRMED appointments starting inside
// the [from, to) window whose reminder has not been sent yet.
func (r *AppointmentRepository) ListNeedingReminder(ctx context.Context, from, to time.Time) ([]models.Appointment, error) {
	query := `
		SELECT * FROM appointments
		WHERE deleted_at IS NULL
		  AND status = $1
		  AND reminder_sent = FALSE
		  AND from_time >= $2 AND from_time < $3
		ORDER BY from_time ASC
	`

	var appts []models.Appointment
	if err := r.db.SelectContext(ctx, &appts, query, models.AppointmentStatusConfirmed, from, to); err != nil {
		return nil, fmt.Errorf("appointment repository: list needing reminder %w", err)
	}

	return appts, nil
}

// MarkRemindersSent bulk-flags the given appointments as reminded.
func (r *AppointmentRepository) MarkRemindersSent(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := r.db.ExecContext(ctx,
		`UPDATE appointments SET reminder_sent = TRUE WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("appointment repository: mark reminders sent %w", err)
	}

	return nil
}
