package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/courtierpro/brokerage-backend/internal/models"
	"github.com/courtierpro/brokerage-backend/internal/pkg/apperror"
	"github.com/courtierpro/brokerage-backend/internal/repository"
)

type stubAppointments struct {
	appts           map[uuid.UUID]*models.Appointment
	needingReminder []models.Appointment
	reminded        []uuid.UUID
	deleted         []uuid.UUID
}

func newStubAppointments() *stubAppointments {
	return &stubAppointments{appts: make(map[uuid.UUID]*models.Appointment)}
}

func (s *stubAppointments) Create(ctx context.Context, appt *models.Appointment) error {
	appt.ID = uuid.New()
	s.appts[appt.ID] = appt
	return nil
}

func (s *stubAppointments) GetByID(ctx context.Context, id uuid.UUID) (*models.Appointment, error) {
	appt, ok := s.appts[id]
	if !ok {
		return nil, repository.ErrAppointmentNotFound
	}
	return appt, nil
}

func (s *stubAppointments) Update(ctx context.Context, appt *models.Appointment) error {
	if _, ok := s.appts[appt.ID]; !ok {
		return repository.ErrAppointmentNotFound
	}
	s.appts[appt.ID] = appt
	return nil
}

func (s *stubAppointments) SoftDelete(ctx context.Context, id uuid.UUID) error {
	if _, ok := s.appts[id]; !ok {
		return repository.ErrAppointmentNotFound
	}
	s.deleted = append(s.deleted, id)
	delete(s.appts, id)
	return nil
}

func (s *stubAppointments) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Appointment, error) {
	var out []models.Appointment
	for _, appt := range s.appts {
		if appt.BrokerID == userID || appt.ClientID == userID {
			out = append(out, *appt)
		}
	}
	return out, nil
}

func (s *stubAppointments) ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.Appointment, error) {
	var out []models.Appointment
	for _, appt := range s.appts {
		if appt.TransactionID == transactionID {
			out = append(out, *appt)
		}
	}
	return out, nil
}

func (s *stubAppointments) ListNeedingReminder(ctx context.Context, from, to time.Time) ([]models.Appointment, error) {
	return s.needingReminder, nil
}

func (s *stubAppointments) MarkRemindersSent(ctx context.Context, ids []uuid.UUID) error {
	s.reminded = append(s.reminded, ids...)
	return nil
}

type stubProperties struct {
	properties map[uuid.UUID]*models.Property
}

func (s *stubProperties) GetPropertyByID(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	p, ok := s.properties[id]
	if !ok {
		return nil, repository.ErrPropertyNotFound
	}
	return p, nil
}

type appointmentFixture struct {
	svc      *AppointmentService
	repo     *stubAppointments
	txs      *stubTransactions
	props    *stubProperties
	notifier *recordingNotifier
	timeline *recordingTimeline
	tx       *models.Transaction
	broker   *models.User
	client   *models.User
}

func newAppointmentFixture() *appointmentFixture {
	broker := testUser(models.RoleBroker)
	client := testUser(models.RoleClient)
	tx := &models.Transaction{
		ID:           uuid.New(),
		BrokerID:     broker.ID,
		ClientID:     client.ID,
		Side:         models.SideBuy,
		Status:       models.TransactionStatusActive,
		CurrentStage: models.StageBuyerPrequalifyFinancially,
	}

	repo := newStubAppointments()
	txs := newStubTransactions(tx)
	props := &stubProperties{properties: make(map[uuid.UUID]*models.Property)}
	notifier := &recordingNotifier{}
	timeline := &recordingTimeline{}

	svc := NewAppointmentService(repo, txs, props, newStubUsers(broker, client),
		notifier, noopEmailer{}, timeline, 24*time.Hour)

	return &appointmentFixture{
		svc: svc, repo: repo, txs: txs, props: props,
		notifier: notifier, timeline: timeline,
		tx: tx, broker: broker, client: client,
	}
}

func (f *appointmentFixture) requestInput() RequestAppointmentInput {
	return RequestAppointmentInput{
		TransactionID: f.tx.ID,
		Type:          models.AppointmentTypeMeeting,
		FromTime:      time.Now().Add(48 * time.Hour),
		ToTime:        time.Now().Add(49 * time.Hour),
	}
}

func TestAppointmentService_RequestAppointment_Success(t *testing.T) {
	f := newAppointmentFixture()
	ctx := context.Background()

	appt, err := f.svc.RequestAppointment(ctx, f.requestInput(), f.broker.ID)

	assert.NoError(t, err)
	assert.Equal(t, models.AppointmentStatusProposed, appt.Status)
	assert.Equal(t, models.InitiatedByBroker, appt.InitiatedBy)
	assert.Equal(t, f.broker.ID, appt.InitiatorID())

	if assert.Len(t, f.notifier.calls, 1) {
		assert.Equal(t, f.client.ID, f.notifier.calls[0].UserID)
		assert.Equal(t, models.NotificationCategoryAppointment, f.notifier.calls[0].Category)
	}
	assert.Contains(t, f.timeline.entries, models.TimelineAppointmentRequested)
}

func TestAppointmentService_RequestAppointment_EndBeforeStart(t *testing.T) {
	f := newAppointmentFixture()
	input := f.requestInput()
	input.ToTime = input.FromTime.Add(-time.Hour)

	_, err := f.svc.RequestAppointment(context.Background(), input, f.client.ID)

	assert.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "end time")
}

func TestAppointmentService_RequestAppointment_Stranger(t *testing.T) {
	f := newAppointmentFixture()

	_, err := f.svc.RequestAppointment(context.Background(), f.requestInput(), uuid.New())

	assert.True(t, apperror.IsForbidden(err))
}

func TestAppointmentService_RequestAppointment_HouseVisitRequiresProperty(t *testing.T) {
	f := newAppointmentFixture()
	input := f.requestInput()
	input.Type = models.AppointmentTypeHouseVisit

	_, err := f.svc.RequestAppointment(context.Background(), input, f.broker.ID)

	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "property")
}

func TestAppointmentService_RequestAppointment_HouseVisitWrongTransaction(t *testing.T) {
	f := newAppointmentFixture()
	property := &models.Property{ID: uuid.New(), TransactionID: uuid.New(), Address: "1 Main St"}
	f.props.properties[property.ID] = property

	input := f.requestInput()
	input.Type = models.AppointmentTypeHouseVisit
	input.PropertyID = &property.ID

	_, err := f.svc.RequestAppointment(context.Background(), input, f.broker.ID)

	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "does not belong")
}

func TestAppointmentService_ReviewAppointment_InitiatorCannotReview(t *testing.T) {
	f := newAppointmentFixture()
	ctx := context.Background()
	appt, err := f.svc.RequestAppointment(ctx, f.requestInput(), f.broker.ID)
	assert.NoError(t, err)

	_, err = f.svc.ReviewAppointment(ctx, appt.ID,
		ReviewAppointmentInput{Action: models.AppointmentActionConfirm}, f.broker.ID)

	assert.True(t, apperror.IsForbidden(err))
	assert.Contains(t, err.Error(), "initiator")
}

func TestAppointmentService_ReviewAppointment_Confirm(t *testing.T) {
	f := newAppointmentFixture()
	ctx := context.Background()
	appt, _ := f.svc.RequestAppointment(ctx, f.requestInput(), f.broker.ID)

	reviewed, err := f.svc.ReviewAppointment(ctx, appt.ID,
		ReviewAppointmentInput{Action: models.AppointmentActionConfirm}, f.client.ID)

	assert.NoError(t, err)
	assert.Equal(t, models.AppointmentStatusConfirmed, reviewed.Status)
	assert.Contains(t, f.timeline.entries, models.TimelineAppointmentConfirmed)
}

func TestAppointmentService_ReviewAppointment_DeclineRequiresReason(t *testing.T) {
	f := newAppointmentFixture()
	ctx := context.Background()
	appt, _ := f.svc.RequestAppointment(ctx, f.requestInput(), f.broker.ID)

	_, err := f.svc.ReviewAppointment(ctx, appt.ID,
		ReviewAppointmentInput{Action: models.AppointmentActionDecline, RefusalReason: "   "}, f.client.ID)

	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "refusal reason")
}

func TestAppointmentService_ReviewAppointment_Decline(t *testing.T) {
	f := newAppointmentFixture()
	ctx := context.Background()
	appt, _ := f.svc.RequestAppointment(ctx, f.requestInput(), f.client.ID)

	reviewed, err := f.svc.ReviewAppointment(ctx, appt.ID,
		ReviewAppointmentInput{Action: models.AppointmentActionDecline, RefusalReason: "double booked"}, f.broker.ID)

	assert.NoError(t, err)
	assert.Equal(t, models.AppointmentStatusDeclined, reviewed.Status)
	if assert.NotNil(t, reviewed.RefusalReason) {
		assert.Equal(t, "double booked", *reviewed.RefusalReason)
	}
}

func TestAppointmentService_ReviewAppointment_ConfirmedRejectsReview(t *testing.T) {
	f := newAppointmentFixture()
	ctx := context.Background()
	appt, _ := f.svc.RequestAppointment(ctx, f.requestInput(), f.broker.ID)
	_, err := f.svc.ReviewAppointment(ctx, appt.ID,
		ReviewAppointmentInput{Action: models.AppointmentActionConfirm}, f.client.ID)
	assert.NoError(t, err)

	_, err = f.svc.ReviewAppointment(ctx, appt.ID,
		ReviewAppointmentInput{Action: models.AppointmentActionConfirm}, f.broker.ID)

	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "only proposed appointments can be reviewed")
}

func TestAppointmentService_ReviewAppointment_RescheduleFlipsInitiator(t *testing.T) {
	f := newAppointmentFixture()
	ctx := context.Background()
	appt, _ := f.svc.RequestAppointment(ctx, f.requestInput(), f.broker.ID)

	newFrom := time.Now().Add(72 * time.Hour)
	reviewed, err := f.svc.ReviewAppointment(ctx, appt.ID, ReviewAppointmentInput{
		Action:      models.AppointmentActionReschedule,
		NewFromTime: newFrom,
		NewToTime:   newFrom.Add(time.Hour),
	}, f.client.ID)

	assert.NoError(t, err)
	assert.Equal(t, appt.ID, reviewed.ID)
	assert.Equal(t, models.AppointmentStatusProposed, reviewed.Status)
	assert.Equal(t, models.InitiatedByClient, reviewed.InitiatedBy)

	// The original initiator is now the reviewing side.
	confirmed, err := f.svc.ReviewAppointment(ctx, appt.ID,
		ReviewAppointmentInput{Action: models.AppointmentActionConfirm}, f.broker.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.AppointmentStatusConfirmed, confirmed.Status)
}

func TestAppointmentService_ReviewAppointment_CancelledOnlyRescheduledByCanceller(t *testing.T) {
	f := newAppointmentFixture()
	ctx := context.Background()
	appt, _ := f.svc.RequestAppointment(ctx, f.requestInput(), f.broker.ID)
	_, err := f.svc.CancelAppointment(ctx, appt.ID, CancelAppointmentInput{Reason: "conflict"}, f.broker.ID)
	assert.NoError(t, err)

	newFrom := time.Now().Add(96 * time.Hour)
	reschedule := ReviewAppointmentInput{
		Action:      models.AppointmentActionReschedule,
		NewFromTime: newFrom,
		NewToTime:   newFrom.Add(time.Hour),
	}

	_, err = f.svc.ReviewAppointment(ctx, appt.ID, reschedule, f.client.ID)
	assert.True(t, apperror.IsForbidden(err))

	_, err = f.svc.ReviewAppointment(ctx, appt.ID,
		ReviewAppointmentInput{Action: models.AppointmentActionConfirm}, f.client.ID)
	assert.True(t, apperror.IsForbidden(err))

	revived, err := f.svc.ReviewAppointment(ctx, appt.ID, reschedule, f.broker.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.AppointmentStatusProposed, revived.Status)
	assert.Nil(t, revived.CancelledBy)
	assert.Nil(t, revived.CancellationReason)
}

func TestAppointmentService_Lifecycle_SameRowAcrossReschedules(t *testing.T) {
	f := newAppointmentFixture()
	ctx := context.Background()

	appt, err := f.svc.RequestAppointment(ctx, f.requestInput(), f.client.ID)
	assert.NoError(t, err)
	id := appt.ID

	_, err = f.svc.CancelAppointment(ctx, id, CancelAppointmentInput{Reason: "sick"}, f.client.ID)
	assert.NoError(t, err)

	newFrom := time.Now().Add(5 * 24 * time.Hour)
	revived, err := f.svc.ReviewAppointment(ctx, id, ReviewAppointmentInput{
		Action:      models.AppointmentActionReschedule,
		NewFromTime: newFrom,
		NewToTime:   newFrom.Add(time.Hour),
	}, f.client.ID)
	assert.NoError(t, err)
	assert.Equal(t, id, revived.ID)

	confirmed, err := f.svc.ReviewAppointment(ctx, id,
		ReviewAppointmentInput{Action: models.AppointmentActionConfirm}, f.broker.ID)
	assert.NoError(t, err)
	assert.Equal(t, id, confirmed.ID)
	assert.Equal(t, models.AppointmentStatusConfirmed, confirmed.Status)
	assert.Len(t, f.repo.appts, 1)
}

func TestAppointmentService_CancelAppointment_AlreadyCancelled(t *testing.T) {
	f := newAppointmentFixture()
	ctx := context.Background()
	appt, _ := f.svc.RequestAppointment(ctx, f.requestInput(), f.broker.ID)
	_, err := f.svc.CancelAppointment(ctx, appt.ID, CancelAppointmentInput{}, f.broker.ID)
	assert.NoError(t, err)

	_, err = f.svc.CancelAppointment(ctx, appt.ID, CancelAppointmentInput{}, f.client.ID)
	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "already cancelled")
}

func TestAppointmentService_DeleteAppointment(t *testing.T) {
	f := newAppointmentFixture()
	ctx := context.Background()
	appt, _ := f.svc.RequestAppointment(ctx, f.requestInput(), f.broker.ID)

	err := f.svc.DeleteAppointment(ctx, appt.ID, uuid.New())
	assert.True(t, apperror.IsForbidden(err))

	err = f.svc.DeleteAppointment(ctx, appt.ID, f.broker.ID)
	assert.NoError(t, err)
	assert.Contains(t, f.repo.deleted, appt.ID)
}

func TestAppointmentService_SendAppointmentReminders(t *testing.T) {
	f := newAppointmentFixture()
	ctx := context.Background()

	first := models.Appointment{
		ID:            uuid.New(),
		TransactionID: f.tx.ID,
		BrokerID:      f.broker.ID,
		ClientID:      f.client.ID,
		Status:        models.AppointmentStatusConfirmed,
		FromTime:      time.Now().Add(2 * time.Hour),
	}
	second := first
	second.ID = uuid.New()
	f.repo.needingReminder = []models.Appointment{first, second}

	count, err := f.svc.SendAppointmentReminders(ctx)

	assert.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.ElementsMatch(t, []uuid.UUID{first.ID, second.ID}, f.repo.reminded)
	// Both parties of both appointments get an in-app notification.
	assert.Len(t, f.notifier.calls, 4)
}
