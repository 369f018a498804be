package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/courtierpro/brokerage-backend/internal/models"
	"github.com/courtierpro/brokerage-backend/internal/pkg/apperror"
	"github.com/courtierpro/brokerage-backend/internal/repository"
)

// AppointmentRepository is the store contract used by the engine.
type AppointmentRepository interface {
	Create(ctx context.Context, appt *models.Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Appointment, error)
	Update(ctx context.Context, appt *models.Appointment) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Appointment, error)
	ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.Appointment, error)
	ListNeedingReminder(ctx context.Context, from, to time.Time) ([]models.Appointment, error)
	MarkRemindersSent(ctx context.Context, ids []uuid.UUID) error
}

// AppointmentPropertyReader resolves properties for house-visit validation.
type AppointmentPropertyReader interface {
	GetPropertyByID(ctx context.Context, id uuid.UUID) (*models.Property, error)
}

// AppointmentEmailer sends appointment-related emails.
type AppointmentEmailer interface {
	SendAppointmentRequested(ctx context.Context, recipient *models.User, actorName string, appt *models.Appointment) error
	SendAppointmentConfirmed(ctx context.Context, recipient *models.User, actorName string, appt *models.Appointment) error
	SendAppointmentDeclined(ctx context.Context, recipient *models.User, actorName, reason string) error
	SendAppointmentRescheduled(ctx context.Context, recipient *models.User, actorName string, appt *models.Appointment) error
	SendAppointmentCancelled(ctx context.Context, recipient *models.User, actorName string, appt *models.Appointment) error
	SendAppointmentReminder(ctx context.Context, recipient *models.User, appt *models.Appointment) error
}

// AppointmentService governs proposal, confirmation, decline,
// reschedule and cancellation of broker/client appointments.
type AppointmentService struct {
	repo         AppointmentRepository
	transactions TransactionReader
	properties   AppointmentPropertyReader
	users        UserReader
	notifier     Notifier
	emailer      AppointmentEmailer
	timeline     TimelineWriter
	lookahead    time.Duration
}

// NewAppointmentService creates the engine.
func NewAppointmentService(
	repo AppointmentRepository,
	transactions TransactionReader,
	properties AppointmentPropertyReader,
	users UserReader,
	notifier Notifier,
	emailer AppointmentEmailer,
	timeline TimelineWriter,
	reminderLookahead time.Duration,
) *AppointmentService {
	if reminderLookahead <= 0 {
		reminderLookahead = 24 * time.Hour
	}
	return &AppointmentService{
		repo:         repo,
		transactions: transactions,
		properties:   properties,
		users:        users,
		notifier:     notifier,
		emailer:      emailer,
		timeline:     timeline,
		lookahead:    reminderLookahead,
	}
}

// RequestAppointmentInput describes a new proposal.
type RequestAppointmentInput struct {
	TransactionID uuid.UUID
	Type          string
	PropertyID    *uuid.UUID
	FromTime      time.Time
	ToTime        time.Time
	Location      *string
	Latitude      *float64
	Longitude     *float64
	Notes         *string
}

// RequestAppointment creates a PROPOSED appointment on behalf of the
// transaction's broker or client.
func (s *AppointmentService) RequestAppointment(ctx context.Context, input RequestAppointmentInput, requesterID uuid.UUID) (*models.Appointment, error) {
	tx, err := s.transactions.GetByID(ctx, input.TransactionID)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return nil, apperror.ErrTransactionNotFound
		}
		return nil, err
	}

	if requesterID != tx.BrokerID && requesterID != tx.ClientID {
		return nil, apperror.ErrForbidden
	}

	if !input.ToTime.After(input.FromTime) {
		return nil, apperror.New(apperror.ErrCodeValidation, "appointment end time must be after start time")
	}

	apptType := input.Type
	if apptType == "" {
		apptType = models.AppointmentTypeMeeting
	}

	if apptType == models.AppointmentTypeHouseVisit {
		if input.PropertyID == nil {
			return nil, apperror.New(apperror.ErrCodeValidation, "a property is required for house visits")
		}
		property, err := s.properties.GetPropertyByID(ctx, *input.PropertyID)
		if err != nil {
			if errors.Is(err, repository.ErrPropertyNotFound) {
				return nil, apperror.ErrPropertyNotFound
			}
			return nil, err
		}
		if property.TransactionID != tx.ID {
			return nil, apperror.New(apperror.ErrCodeValidation, "property does not belong to this transaction")
		}
	}

	initiatedBy := models.InitiatedByClient
	if requesterID == tx.BrokerID {
		initiatedBy = models.InitiatedByBroker
	}

	appt := &models.Appointment{
		TransactionID: tx.ID,
		BrokerID:      tx.BrokerID,
		ClientID:      tx.ClientID,
		PropertyID:    input.PropertyID,
		Type:          apptType,
		FromTime:      input.FromTime,
		ToTime:        input.ToTime,
		Status:        models.AppointmentStatusProposed,
		InitiatedBy:   initiatedBy,
		Location:      input.Location,
		Latitude:      input.Latitude,
		Longitude:     input.Longitude,
		Notes:         input.Notes,
	}

	if err := s.repo.Create(ctx, appt); err != nil {
		return nil, err
	}

	logSideEffect("appointment service: timeline entry failed",
		s.timeline.AddEntry(ctx, tx.ID, requesterID, models.TimelineAppointmentRequested,
			map[string]interface{}{"appointment_id": appt.ID}))

	s.notifyAppointment(ctx, appt, requesterID, models.TimelineAppointmentRequested, "")

	return appt, nil
}

// ReviewAppointmentInput carries a review decision.
type ReviewAppointmentInput struct {
	Action        string
	RefusalReason string
	NewFromTime   time.Time
	NewToTime     time.Time
}

// ReviewAppointment confirms, declines or reschedules a proposal.
//
// Rules: only the non-initiating party may review a PROPOSED
// appointment. CANCELLED and DECLINED appointments accept RESCHEDULE
// only; a cancelled one only by the party that cancelled it. A
// reschedule flips InitiatedBy to the reviewer, so the same row stays
// alive across reschedules and the other party must approve anew.
func (s *AppointmentService) ReviewAppointment(ctx context.Context, id uuid.UUID, input ReviewAppointmentInput, reviewerID uuid.UUID) (*models.Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAppointmentNotFound) {
			return nil, apperror.ErrAppointmentNotFound
		}
		return nil, err
	}

	if reviewerID != appt.BrokerID && reviewerID != appt.ClientID {
		return nil, apperror.ErrForbidden
	}

	switch appt.Status {
	case models.AppointmentStatusProposed:
		if reviewerID == appt.InitiatorID() {
			return nil, apperror.New(apperror.ErrCodeForbidden, "the initiator of a proposal cannot review it")
		}
	case models.AppointmentStatusCancelled:
		if input.Action != models.AppointmentActionReschedule {
			return nil, apperror.New(apperror.ErrCodeForbidden, "a cancelled appointment can only be rescheduled")
		}
		if appt.CancelledBy == nil || *appt.CancelledBy != reviewerID {
			return nil, apperror.New(apperror.ErrCodeForbidden, "only the party that cancelled the appointment can reschedule it")
		}
	case models.AppointmentStatusDeclined:
		if input.Action != models.AppointmentActionReschedule {
			return nil, apperror.New(apperror.ErrCodeForbidden, "a declined appointment can only be rescheduled")
		}
	default:
		return nil, apperror.New(apperror.ErrCodeValidation, "only proposed appointments can be reviewed")
	}

	var entryType string

	switch input.Action {
	case models.AppointmentActionConfirm:
		appt.Status = models.AppointmentStatusConfirmed
		entryType = models.TimelineAppointmentConfirmed

	case models.AppointmentActionDecline:
		reason := strings.TrimSpace(input.RefusalReason)
		if reason == "" {
			return nil, apperror.New(apperror.ErrCodeValidation, "a refusal reason is required to decline")
		}
		appt.Status = models.AppointmentStatusDeclined
		appt.RefusalReason = &reason
		entryType = models.TimelineAppointmentDeclined

	case models.AppointmentActionReschedule:
		if !input.NewToTime.After(input.NewFromTime) {
			return nil, apperror.New(apperror.ErrCodeValidation, "appointment end time must be after start time")
		}
		appt.FromTime = input.NewFromTime
		appt.ToTime = input.NewToTime
		appt.Status = models.AppointmentStatusProposed
		appt.RefusalReason = nil
		appt.CancelledBy = nil
		appt.CancellationReason = nil
		appt.ReminderSent = false
		// The rescheduler becomes the new proposer.
		if reviewerID == appt.BrokerID {
			appt.InitiatedBy = models.InitiatedByBroker
		} else {
			appt.InitiatedBy = models.InitiatedByClient
		}
		entryType = models.TimelineAppointmentRescheduled

	default:
		return nil, apperror.New(apperror.ErrCodeValidation, "unknown review action")
	}

	if err := s.repo.Update(ctx, appt); err != nil {
		return nil, err
	}

	logSideEffect("appointment service: timeline entry failed",
		s.timeline.AddEntry(ctx, appt.TransactionID, reviewerID, entryType,
			map[string]interface{}{"appointment_id": appt.ID}))

	s.notifyAppointment(ctx, appt, reviewerID, entryType, input.RefusalReason)

	return appt, nil
}

// CancelAppointmentInput carries a cancellation.
type CancelAppointmentInput struct {
	Reason string
}

// CancelAppointment cancels an appointment on behalf of either party.
func (s *AppointmentService) CancelAppointment(ctx context.Context, id uuid.UUID, input CancelAppointmentInput, cancellerID uuid.UUID) (*models.Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAppointmentNotFound) {
			return nil, apperror.ErrAppointmentNotFound
		}
		return nil, err
	}

	if cancellerID != appt.BrokerID && cancellerID != appt.ClientID {
		return nil, apperror.ErrForbidden
	}

	if appt.Status == models.AppointmentStatusCancelled {
		return nil, apperror.New(apperror.ErrCodeValidation, "appointment is already cancelled")
	}

	appt.Status = models.AppointmentStatusCancelled
	appt.CancelledBy = &cancellerID
	if reason := strings.TrimSpace(input.Reason); reason != "" {
		appt.CancellationReason = &reason
	}

	if err := s.repo.Update(ctx, appt); err != nil {
		return nil, err
	}

	logSideEffect("appointment service: timeline entry failed",
		s.timeline.AddEntry(ctx, appt.TransactionID, cancellerID, models.TimelineAppointmentCancelled,
			map[string]interface{}{"appointment_id": appt.ID}))

	s.notifyAppointment(ctx, appt, cancellerID, models.TimelineAppointmentCancelled, "")

	return appt, nil
}

// GetAppointment returns one appointment, access-checked.
func (s *AppointmentService) GetAppointment(ctx context.Context, id, callerID uuid.UUID) (*models.Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAppointmentNotFound) {
			return nil, apperror.ErrAppointmentNotFound
		}
		return nil, err
	}
	if callerID != appt.BrokerID && callerID != appt.ClientID {
		ok, err := s.transactions.IsCoBroker(ctx, appt.TransactionID, callerID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperror.ErrForbidden
		}
	}
	return appt, nil
}

// DeleteAppointment soft-deletes an appointment. Only a party to the
// appointment may remove it; the row is kept for history.
func (s *AppointmentService) DeleteAppointment(ctx context.Context, id, callerID uuid.UUID) error {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAppointmentNotFound) {
			return apperror.ErrAppointmentNotFound
		}
		return err
	}

	if callerID != appt.BrokerID && callerID != appt.ClientID {
		return apperror.ErrForbidden
	}

	return s.repo.SoftDelete(ctx, id)
}

// ListAppointments returns the appointments visible to a user: their
// own plus those of transactions where they are a co-broker.
func (s *AppointmentService) ListAppointments(ctx context.Context, userID uuid.UUID) ([]models.Appointment, error) {
	return s.repo.ListForUser(ctx, userID)
}

// ListByTransaction returns one transaction's appointments, access-checked.
func (s *AppointmentService) ListByTransaction(ctx context.Context, transactionID, callerID uuid.UUID) ([]models.Appointment, error) {
	tx, err := s.transactions.GetByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return nil, apperror.ErrTransactionNotFound
		}
		return nil, err
	}

	if err := requireTransactionAccess(ctx, s.transactions, tx, callerID); err != nil {
		return nil, err
	}

	return s.repo.ListByTransaction(ctx, transactionID)
}

// SendAppointmentReminders emails and notifies both parties of CONFIRMED
// appointments starting within the lookahead window, then bulk-flags
// them as reminded.
//
// The reminder_sent check and the later bulk update are not guarded by
// a lock; overlapping scheduler runs may double-send.
func (s *AppointmentService) SendAppointmentReminders(ctx context.Context) (int, error) {
	now := time.Now()
	appts, err := s.repo.ListNeedingReminder(ctx, now, now.Add(s.lookahead))
	if err != nil {
		return 0, err
	}

	reminded := make([]uuid.UUID, 0, len(appts))
	for i := range appts {
		appt := &appts[i]
		for _, partyID := range []uuid.UUID{appt.BrokerID, appt.ClientID} {
			party, err := s.users.GetByID(ctx, partyID)
			if err != nil {
				logSideEffect("appointment service: reminder recipient lookup failed", err)
				continue
			}
			logSideEffect("appointment service: reminder email failed",
				s.emailer.SendAppointmentReminder(ctx, party, appt))
			logSideEffect("appointment service: reminder notification failed",
				s.notifier.Notify(ctx, partyID, models.NotificationCategoryAppointment,
					"appointment.reminder.subject", "appointment.reminder.body",
					map[string]interface{}{
						"appointment_id": appt.ID,
						"transaction_id": appt.TransactionID,
						"from_time":      appt.FromTime,
					}))
		}
		reminded = append(reminded, appt.ID)
	}

	if err := s.repo.MarkRemindersSent(ctx, reminded); err != nil {
		return 0, err
	}

	return len(reminded), nil
}

// notifyAppointment emails and notifies the counterparty of the actor.
// Best-effort: failures are logged and never abort the transition.
func (s *AppointmentService) notifyAppointment(ctx context.Context, appt *models.Appointment, actorID uuid.UUID, entryType, reason string) {
	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		logSideEffect("appointment service: actor lookup failed", err)
		return
	}

	recipientID := appt.CounterpartyID(actorID)
	recipient, err := s.users.GetByID(ctx, recipientID)
	if err != nil {
		logSideEffect("appointment service: recipient lookup failed", err)
		return
	}

	var emailErr error
	var titleKey string
	switch entryType {
	case models.TimelineAppointmentRequested:
		titleKey = "appointment.requested"
		emailErr = s.emailer.SendAppointmentRequested(ctx, recipient, actor.DisplayName(), appt)
	case models.TimelineAppointmentConfirmed:
		titleKey = "appointment.confirmed"
		emailErr = s.emailer.SendAppointmentConfirmed(ctx, recipient, actor.DisplayName(), appt)
	case models.TimelineAppointmentDeclined:
		titleKey = "appointment.declined"
		emailErr = s.emailer.SendAppointmentDeclined(ctx, recipient, actor.DisplayName(), reason)
	case models.TimelineAppointmentRescheduled:
		titleKey = "appointment.rescheduled"
		emailErr = s.emailer.SendAppointmentRescheduled(ctx, recipient, actor.DisplayName(), appt)
	case models.TimelineAppointmentCancelled:
		titleKey = "appointment.cancelled"
		emailErr = s.emailer.SendAppointmentCancelled(ctx, recipient, actor.DisplayName(), appt)
	default:
		return
	}

	logSideEffect("appointment service: email failed", emailErr)
	logSideEffect("appointment service: notification failed",
		s.notifier.Notify(ctx, recipientID, models.NotificationCategoryAppointment,
			titleKey+".subject", titleKey+".body",
			map[string]interface{}{
				"appointment_id": appt.ID,
				"transaction_id": appt.TransactionID,
				"actor_name":     actor.DisplayName(),
			}))
}
