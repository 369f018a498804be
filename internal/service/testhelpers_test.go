package service

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/courtierpro/brokerage-backend/internal/models"
	"github.com/courtierpro/brokerage-backend/internal/repository"
	"github.com/courtierpro/brokerage-backend/internal/storage"
)

// stubTransactions is an in-memory TransactionStore shared by the
// engine tests.
type stubTransactions struct {
	txs          map[uuid.UUID]*models.Transaction
	coBrokers    map[uuid.UUID]map[uuid.UUID]bool
	duplicate    bool
	participants []*models.TransactionParticipant
}

func newStubTransactions(txs ...*models.Transaction) *stubTransactions {
	s := &stubTransactions{
		txs:       make(map[uuid.UUID]*models.Transaction),
		coBrokers: make(map[uuid.UUID]map[uuid.UUID]bool),
	}
	for _, tx := range txs {
		s.txs[tx.ID] = tx
	}
	return s
}

func (s *stubTransactions) addCoBroker(transactionID, userID uuid.UUID) {
	if s.coBrokers[transactionID] == nil {
		s.coBrokers[transactionID] = make(map[uuid.UUID]bool)
	}
	s.coBrokers[transactionID][userID] = true
}

func (s *stubTransactions) Create(ctx context.Context, tx *models.Transaction) error {
	tx.ID = uuid.New()
	s.txs[tx.ID] = tx
	return nil
}

func (s *stubTransactions) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	tx, ok := s.txs[id]
	if !ok {
		return nil, repository.ErrTransactionNotFound
	}
	return tx, nil
}

func (s *stubTransactions) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, tx := range s.txs {
		if tx.BrokerID == userID || tx.ClientID == userID || s.coBrokers[tx.ID][userID] {
			out = append(out, *tx)
		}
	}
	return out, nil
}

func (s *stubTransactions) HasActiveDuplicate(ctx context.Context, clientID uuid.UUID, propertyAddress string) (bool, error) {
	return s.duplicate, nil
}

func (s *stubTransactions) IsCoBroker(ctx context.Context, transactionID, userID uuid.UUID) (bool, error) {
	return s.coBrokers[transactionID][userID], nil
}

func (s *stubTransactions) AddParticipant(ctx context.Context, participant *models.TransactionParticipant) error {
	participant.ID = uuid.New()
	s.participants = append(s.participants, participant)
	if participant.Role == models.ParticipantRoleCoBroker {
		s.addCoBroker(participant.TransactionID, participant.UserID)
	}
	return nil
}

func (s *stubTransactions) UpdateStage(ctx context.Context, id uuid.UUID, stage string) error {
	tx, ok := s.txs[id]
	if !ok {
		return repository.ErrTransactionNotFound
	}
	tx.CurrentStage = stage
	return nil
}

// stubUsers is an in-memory UserReader.
type stubUsers struct {
	users map[uuid.UUID]*models.User
}

func newStubUsers(users ...*models.User) *stubUsers {
	s := &stubUsers{users: make(map[uuid.UUID]*models.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *stubUsers) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

func testUser(role string) *models.User {
	return &models.User{
		ID:                uuid.New(),
		Email:             fmt.Sprintf("%s@example.com", uuid.NewString()[:8]),
		FirstName:         "Test",
		LastName:          role,
		Role:              role,
		PreferredLanguage: "en",
	}
}

// recordingNotifier captures notification calls.
type recordingNotifier struct {
	calls []notifyCall
}

type notifyCall struct {
	UserID   uuid.UUID
	Category string
	TitleKey string
	Params   map[string]interface{}
}

func (n *recordingNotifier) Notify(ctx context.Context, userID uuid.UUID, category, titleKey, messageKey string, params map[string]interface{}) error {
	n.calls = append(n.calls, notifyCall{UserID: userID, Category: category, TitleKey: titleKey, Params: params})
	return nil
}

// noopEmailer satisfies every engine emailer contract.
type noopEmailer struct{}

func (noopEmailer) SendAppointmentRequested(context.Context, *models.User, string, *models.Appointment) error {
	return nil
}
func (noopEmailer) SendAppointmentConfirmed(context.Context, *models.User, string, *models.Appointment) error {
	return nil
}
func (noopEmailer) SendAppointmentDeclined(context.Context, *models.User, string, string) error {
	return nil
}
func (noopEmailer) SendAppointmentRescheduled(context.Context, *models.User, string, *models.Appointment) error {
	return nil
}
func (noopEmailer) SendAppointmentCancelled(context.Context, *models.User, string, *models.Appointment) error {
	return nil
}
func (noopEmailer) SendAppointmentReminder(context.Context, *models.User, *models.Appointment) error {
	return nil
}
func (noopEmailer) SendDocumentRequested(context.Context, *models.User, string) error { return nil }
func (noopEmailer) SendDocumentShared(context.Context, *models.User, string) error    { return nil }
func (noopEmailer) SendDocumentSubmitted(context.Context, *models.User, string, string) error {
	return nil
}
func (noopEmailer) SendDocumentReviewed(context.Context, *models.User, string, string, string) error {
	return nil
}
func (noopEmailer) SendOfferReceived(context.Context, *models.User, string, float64) error {
	return nil
}
func (noopEmailer) SendOfferUpdated(context.Context, *models.User, string) error { return nil }
func (noopEmailer) SendOfferDecision(context.Context, *models.User, string, string, string) error {
	return nil
}
func (noopEmailer) SendPropertyOfferMade(context.Context, *models.User, string, float64, int) error {
	return nil
}
func (noopEmailer) SendPropertyOfferCountered(context.Context, *models.User, string) error {
	return nil
}
func (noopEmailer) SendConditionAdded(context.Context, *models.User, string) error { return nil }

// recordingTimeline captures feed entries.
type recordingTimeline struct {
	entries []string
}

func (t *recordingTimeline) AddEntry(ctx context.Context, transactionID, actorID uuid.UUID, entryType string, details map[string]interface{}) error {
	t.entries = append(t.entries, entryType)
	return nil
}

// stubStorage fakes the object store.
type stubStorage struct {
	uploads []string
}

func (s *stubStorage) UploadFile(ctx context.Context, r io.Reader, transactionID, parentID uuid.UUID, fileName string) (*storage.StorageObject, error) {
	key := fmt.Sprintf("transactions/%s/%s/%s", transactionID, parentID, fileName)
	s.uploads = append(s.uploads, key)
	return &storage.StorageObject{
		Key:       key,
		FileName:  fileName,
		MimeType:  "application/pdf",
		SizeBytes: 1024,
	}, nil
}

func (s *stubStorage) GeneratePresignedGetURL(ctx context.Context, key string) (string, error) {
	return "https://storage.example.com/" + key, nil
}
