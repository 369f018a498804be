package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/courtierpro/brokerage-backend/internal/models"
	"github.com/courtierpro/brokerage-backend/internal/pkg/apperror"
)

type mockDocumentStore struct {
	mock.Mock
}

func (m *mockDocumentStore) Create(ctx context.Context, doc *models.Document) error {
	args := m.Called(ctx, doc)
	if args.Error(0) == nil {
		doc.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockDocumentStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Document), args.Error(1)
}

func (m *mockDocumentStore) Update(ctx context.Context, doc *models.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *mockDocumentStore) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockDocumentStore) ListByTransaction(ctx context.Context, transactionID uuid.UUID, includeDrafts bool) ([]models.Document, error) {
	args := m.Called(ctx, transactionID, includeDrafts)
	return args.Get(0).([]models.Document), args.Error(1)
}

func (m *mockDocumentStore) AddVersion(ctx context.Context, version *models.DocumentVersion) error {
	args := m.Called(ctx, version)
	if args.Error(0) == nil {
		version.ID = uuid.New()
		version.UploadedAt = time.Now()
	}
	return args.Error(0)
}

func (m *mockDocumentStore) ListVersions(ctx context.Context, documentID uuid.UUID) ([]models.DocumentVersion, error) {
	args := m.Called(ctx, documentID)
	return args.Get(0).([]models.DocumentVersion), args.Error(1)
}

func (m *mockDocumentStore) CountVersions(ctx context.Context, documentID uuid.UUID) (int, error) {
	args := m.Called(ctx, documentID)
	return args.Int(0), args.Error(1)
}

func (m *mockDocumentStore) ListChecklistStates(ctx context.Context, transactionID uuid.UUID) ([]models.ChecklistState, error) {
	args := m.Called(ctx, transactionID)
	return args.Get(0).([]models.ChecklistState), args.Error(1)
}

func (m *mockDocumentStore) UpsertChecklistState(ctx context.Context, state *models.ChecklistState) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

type documentFixture struct {
	svc      *DocumentService
	store    *mockDocumentStore
	txs      *stubTransactions
	storage  *stubStorage
	notifier *recordingNotifier
	timeline *recordingTimeline
	tx       *models.Transaction
	broker   *models.User
	client   *models.User
}

func newDocumentFixture() *documentFixture {
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

	store := new(mockDocumentStore)
	txs := newStubTransactions(tx)
	objectStorage := &stubStorage{}
	notifier := &recordingNotifier{}
	timeline := &recordingTimeline{}

	svc := NewDocumentService(store, txs, newStubUsers(broker, client),
		objectStorage, notifier, noopEmailer{}, timeline)

	return &documentFixture{
		svc: svc, store: store, txs: txs, storage: objectStorage,
		notifier: notifier, timeline: timeline,
		tx: tx, broker: broker, client: client,
	}
}

func (f *documentFixture) document(status, flow string) *models.Document {
	return &models.Document{
		ID:            uuid.New(),
		TransactionID: f.tx.ID,
		ClientID:      f.client.ID,
		Side:          f.tx.Side,
		DocType:       "PREAPPROVAL_LETTER",
		Status:        status,
		Flow:          flow,
		ExpectedFrom:  models.ExpectedFromClient,
	}
}

func TestDocumentService_CreateDocument_RequestedNotifiesClient(t *testing.T) {
	f := newDocumentFixture()
	ctx := context.Background()

	f.store.On("Create", ctx, mock.AnythingOfType("*models.Document")).Return(nil)

	doc, err := f.svc.CreateDocument(ctx, CreateDocumentInput{
		TransactionID: f.tx.ID,
		DocType:       "PHOTO_ID",
	}, f.broker.ID)

	assert.NoError(t, err)
	assert.Equal(t, models.DocumentStatusRequested, doc.Status)
	assert.Equal(t, f.client.ID, doc.ClientID)
	if assert.Len(t, f.notifier.calls, 1) {
		assert.Equal(t, f.client.ID, f.notifier.calls[0].UserID)
	}
}

func TestDocumentService_CreateDocument_DraftStaysQuiet(t *testing.T) {
	f := newDocumentFixture()
	ctx := context.Background()

	f.store.On("Create", ctx, mock.AnythingOfType("*models.Document")).Return(nil)

	doc, err := f.svc.CreateDocument(ctx, CreateDocumentInput{
		TransactionID: f.tx.ID,
		DocType:       "PHOTO_ID",
		AsDraft:       true,
	}, f.broker.ID)

	assert.NoError(t, err)
	assert.Equal(t, models.DocumentStatusDraft, doc.Status)
	assert.Empty(t, f.notifier.calls)
	assert.Empty(t, f.timeline.entries)
}

func TestDocumentService_CreateDocument_ClientForbidden(t *testing.T) {
	f := newDocumentFixture()

	_, err := f.svc.CreateDocument(context.Background(), CreateDocumentInput{
		TransactionID: f.tx.ID,
		DocType:       "PHOTO_ID",
	}, f.client.ID)

	assert.True(t, apperror.IsForbidden(err))
}

func TestDocumentService_SendDocumentRequest_OnlyDrafts(t *testing.T) {
	f := newDocumentFixture()
	ctx := context.Background()
	doc := f.document(models.DocumentStatusRequested, models.DocumentFlowRequest)
	f.store.On("GetByID", ctx, doc.ID).Return(doc, nil)

	_, err := f.svc.SendDocumentRequest(ctx, doc.ID, f.broker.ID)

	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "Only draft documents can be sent")
}

func TestDocumentService_SendDocumentRequest_SignatureNeedsSource(t *testing.T) {
	f := newDocumentFixture()
	ctx := context.Background()
	doc := f.document(models.DocumentStatusDraft, models.DocumentFlowRequest)
	doc.RequiresSignature = true
	f.store.On("GetByID", ctx, doc.ID).Return(doc, nil)
	f.store.On("CountVersions", ctx, doc.ID).Return(0, nil)

	_, err := f.svc.SendDocumentRequest(ctx, doc.ID, f.broker.ID)

	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "Source document must be attached")
}

func TestDocumentService_SendDocumentRequest_Success(t *testing.T) {
	f := newDocumentFixture()
	ctx := context.Background()
	doc := f.document(models.DocumentStatusDraft, models.DocumentFlowRequest)
	doc.RequiresSignature = true
	f.store.On("GetByID", ctx, doc.ID).Return(doc, nil)
	f.store.On("CountVersions", ctx, doc.ID).Return(1, nil)
	f.store.On("Update", ctx, doc).Return(nil)

	sent, err := f.svc.SendDocumentRequest(ctx, doc.ID, f.broker.ID)

	assert.NoError(t, err)
	assert.Equal(t, models.DocumentStatusRequested, sent.Status)
	assert.Len(t, f.notifier.calls, 1)
}

func TestDocumentService_ShareDocumentWithClient_OnlyUploadFlow(t *testing.T) {
	f := newDocumentFixture()
	ctx := context.Background()
	doc := f.document(models.DocumentStatusDraft, models.DocumentFlowRequest)
	f.store.On("GetByID", ctx, doc.ID).Return(doc, nil)

	_, err := f.svc.ShareDocumentWithClient(ctx, doc.ID, f.broker.ID)

	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "Only upload documents can be shared with the client")
}

func TestDocumentService_ShareDocumentWithClient_Success(t *testing.T) {
	f := newDocumentFixture()
	ctx := context.Background()
	doc := f.document(models.DocumentStatusDraft, models.DocumentFlowUpload)
	f.store.On("GetByID", ctx, doc.ID).Return(doc, nil)
	f.store.On("Update", ctx, doc).Return(nil)

	shared, err := f.svc.ShareDocumentWithClient(ctx, doc.ID, f.broker.ID)

	assert.NoError(t, err)
	assert.Equal(t, models.DocumentStatusSubmitted, shared.Status)
	assert.True(t, shared.VisibleToClient)
}

func TestDocumentService_SubmitDocument_WrongTransaction(t *testing.T) {
	f := newDocumentFixture()
	ctx := context.Background()
	doc := f.document(models.DocumentStatusRequested, models.DocumentFlowRequest)
	f.store.On("GetByID", ctx, doc.ID).Return(doc, nil)

	_, err := f.svc.SubmitDocument(ctx, doc.ID, SubmitDocumentInput{
		TransactionID: uuid.New(),
		FileName:      "letter.pdf",
		File:          strings.NewReader("%PDF-1.4"),
	}, f.client.ID)

	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "Document does not belong to this transaction")
}

func TestDocumentService_SubmitDocument_Success(t *testing.T) {
	f := newDocumentFixture()
	ctx := context.Background()
	doc := f.document(models.DocumentStatusRequested, models.DocumentFlowRequest)
	f.store.On("GetByID", ctx, doc.ID).Return(doc, nil)
	f.store.On("AddVersion", ctx, mock.AnythingOfType("*models.DocumentVersion")).Return(nil)
	f.store.On("Update", ctx, doc).Return(nil)

	submitted, err := f.svc.SubmitDocument(ctx, doc.ID, SubmitDocumentInput{
		TransactionID: f.tx.ID,
		FileName:      "letter.pdf",
		File:          strings.NewReader("%PDF-1.4"),
	}, f.client.ID)

	assert.NoError(t, err)
	assert.Equal(t, models.DocumentStatusSubmitted, submitted.Status)
	assert.Len(t, f.storage.uploads, 1)

	// The broker, not the uploading client, gets notified.
	if assert.Len(t, f.notifier.calls, 1) {
		assert.Equal(t, f.broker.ID, f.notifier.calls[0].UserID)
	}
}

func TestDocumentService_ReviewDocument_OnlySubmitted(t *testing.T) {
	f := newDocumentFixture()
	ctx := context.Background()
	doc := f.document(models.DocumentStatusRequested, models.DocumentFlowRequest)
	f.store.On("GetByID", ctx, doc.ID).Return(doc, nil)

	_, err := f.svc.ReviewDocument(ctx, doc.ID,
		ReviewDocumentInput{Decision: models.ReviewDecisionApproved}, f.broker.ID)

	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "Only submitted documents can be reviewed")
}

func TestDocumentService_ReviewDocument_RejectionKeepsComments(t *testing.T) {
	f := newDocumentFixture()
	ctx := context.Background()
	doc := f.document(models.DocumentStatusSubmitted, models.DocumentFlowRequest)
	f.store.On("GetByID", ctx, doc.ID).Return(doc, nil)
	f.store.On("Update", ctx, doc).Return(nil)

	reviewed, err := f.svc.ReviewDocument(ctx, doc.ID, ReviewDocumentInput{
		Decision: models.ReviewDecisionRejected,
		Comments: "illegible scan",
	}, f.broker.ID)

	assert.NoError(t, err)
	assert.Equal(t, models.DocumentStatusRejected, reviewed.Status)
	if assert.NotNil(t, reviewed.BrokerNotes) {
		assert.Equal(t, "illegible scan", *reviewed.BrokerNotes)
	}
}

func TestDocumentService_ReviewDocument_ApprovalDropsComments(t *testing.T) {
	f := newDocumentFixture()
	ctx := context.Background()
	doc := f.document(models.DocumentStatusSubmitted, models.DocumentFlowRequest)
	f.store.On("GetByID", ctx, doc.ID).Return(doc, nil)
	f.store.On("Update", ctx, doc).Return(nil)

	reviewed, err := f.svc.ReviewDocument(ctx, doc.ID, ReviewDocumentInput{
		Decision: models.ReviewDecisionApproved,
		Comments: "ignored",
	}, f.broker.ID)

	assert.NoError(t, err)
	assert.Equal(t, models.DocumentStatusApproved, reviewed.Status)
	assert.Nil(t, reviewed.BrokerNotes)
}

func TestDocumentService_UpdateDocument_NoChangeSkipsSave(t *testing.T) {
	f := newDocumentFixture()
	ctx := context.Background()
	doc := f.document(models.DocumentStatusDraft, models.DocumentFlowRequest)
	f.store.On("GetByID", ctx, doc.ID).Return(doc, nil)

	sameType := doc.DocType
	_, err := f.svc.UpdateDocument(ctx, doc.ID, UpdateDocumentInput{DocType: &sameType}, f.broker.ID)

	assert.NoError(t, err)
	f.store.AssertNotCalled(t, "Update", ctx, doc)
}

func TestDocumentService_DeleteDocument_OnlyDrafts(t *testing.T) {
	f := newDocumentFixture()
	ctx := context.Background()
	doc := f.document(models.DocumentStatusSubmitted, models.DocumentFlowRequest)
	f.store.On("GetByID", ctx, doc.ID).Return(doc, nil)

	err := f.svc.DeleteDocument(ctx, doc.ID, f.broker.ID)

	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "Only draft documents can be deleted")
}

func TestDocumentService_ListDocuments_ClientExcludesDrafts(t *testing.T) {
	f := newDocumentFixture()
	ctx := context.Background()

	f.store.On("ListByTransaction", ctx, f.tx.ID, false).Return([]models.Document{}, nil)
	_, err := f.svc.ListDocuments(ctx, f.tx.ID, f.client.ID)
	assert.NoError(t, err)

	f.store.On("ListByTransaction", ctx, f.tx.ID, true).Return([]models.Document{}, nil)
	_, err = f.svc.ListDocuments(ctx, f.tx.ID, f.broker.ID)
	assert.NoError(t, err)

	f.store.AssertExpectations(t)
}

func TestDocumentService_GetStageChecklist(t *testing.T) {
	f := newDocumentFixture()
	ctx := context.Background()

	approved := f.document(models.DocumentStatusApproved, models.DocumentFlowRequest)
	approved.DocType = "PREAPPROVAL_LETTER"
	submittedOnly := f.document(models.DocumentStatusSubmitted, models.DocumentFlowRequest)
	submittedOnly.DocType = "PHOTO_ID"

	f.store.On("ListByTransaction", ctx, f.tx.ID, true).
		Return([]models.Document{*approved, *submittedOnly}, nil)
	f.store.On("ListChecklistStates", ctx, f.tx.ID).Return([]models.ChecklistState{
		{TransactionID: f.tx.ID, ItemKey: "buy.prequalify.proof_of_funds", ManualChecked: true},
	}, nil)

	items, err := f.svc.GetStageChecklist(ctx, f.tx.ID, f.broker.ID)
	assert.NoError(t, err)

	byKey := make(map[string]ChecklistItem, len(items))
	for _, item := range items {
		byKey[item.Key] = item
	}

	// REQUEST items only auto-check once approved.
	assert.True(t, byKey["buy.prequalify.preapproval"].Checked)
	assert.False(t, byKey["buy.prequalify.identity"].Checked)
	// Manual override wins over the computed state.
	assert.True(t, byKey["buy.prequalify.proof_of_funds"].Checked)
	assert.NotNil(t, byKey["buy.prequalify.proof_of_funds"].ManualOverride)
}

func TestDocumentService_SetChecklistManualState_UnknownItem(t *testing.T) {
	f := newDocumentFixture()

	err := f.svc.SetChecklistManualState(context.Background(), f.tx.ID, "buy.nope", true, f.broker.ID)

	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "Unknown checklist item")
}

func TestDocumentService_SetChecklistManualState_Success(t *testing.T) {
	f := newDocumentFixture()
	ctx := context.Background()
	f.store.On("UpsertChecklistState", ctx, mock.AnythingOfType("*models.ChecklistState")).Return(nil)

	err := f.svc.SetChecklistManualState(ctx, f.tx.ID, "buy.prequalify.identity", true, f.broker.ID)

	assert.NoError(t, err)
	f.store.AssertExpectations(t)
}
