package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/courtierpro/brokerage-backend/internal/models"
	"github.com/courtierpro/brokerage-backend/internal/pkg/apperror"
	"github.com/courtierpro/brokerage-backend/internal/repository"
	"github.com/courtierpro/brokerage-backend/internal/storage"
)

// DocumentStore is the store contract used by the engine.
type DocumentStore interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error)
	Update(ctx context.Context, doc *models.Document) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByTransaction(ctx context.Context, transactionID uuid.UUID, includeDrafts bool) ([]models.Document, error)
	AddVersion(ctx context.Context, version *models.DocumentVersion) error
	ListVersions(ctx context.Context, documentID uuid.UUID) ([]models.DocumentVersion, error)
	CountVersions(ctx context.Context, documentID uuid.UUID) (int, error)
	ListChecklistStates(ctx context.Context, transactionID uuid.UUID) ([]models.ChecklistState, error)
	UpsertChecklistState(ctx context.Context, state *models.ChecklistState) error
}

// DocumentEmailer sends document-related emails.
type DocumentEmailer interface {
	SendDocumentRequested(ctx context.Context, recipient *models.User, title string) error
	SendDocumentShared(ctx context.Context, recipient *models.User, title string) error
	SendDocumentSubmitted(ctx context.Context, recipient *models.User, uploaderName, title string) error
	SendDocumentReviewed(ctx context.Context, recipient *models.User, decision, title, comments string) error
}

// DocumentService drives the document request/submission/review workflow
// and the per-stage checklist.
type DocumentService struct {
	repo         DocumentStore
	transactions TransactionReader
	users        UserReader
	storage      storage.ObjectStorage
	notifier     Notifier
	emailer      DocumentEmailer
	timeline     TimelineWriter
}

// NewDocumentService creates the engine.
func NewDocumentService(
	repo DocumentStore,
	transactions TransactionReader,
	users UserReader,
	objectStorage storage.ObjectStorage,
	notifier Notifier,
	emailer DocumentEmailer,
	timeline TimelineWriter,
) *DocumentService {
	return &DocumentService{
		repo:         repo,
		transactions: transactions,
		users:        users,
		storage:      objectStorage,
		notifier:     notifier,
		emailer:      emailer,
		timeline:     timeline,
	}
}

// CreateDocumentInput describes a new document record.
type CreateDocumentInput struct {
	TransactionID     uuid.UUID
	DocType           string
	CustomTitle       *string
	Flow              string
	ExpectedFrom      string
	VisibleToClient   bool
	Stage             *string
	RequiresSignature bool
	DueDate           *time.Time
	AsDraft           bool
}

// CreateDocument records a new document for a transaction. Brokers may
// create it as a DRAFT to prepare it before sending; otherwise it goes
// straight to REQUESTED and the client is notified.
func (s *DocumentService) CreateDocument(ctx context.Context, input CreateDocumentInput, callerID uuid.UUID) (*models.Document, error) {
	tx, err := s.transactions.GetByID(ctx, input.TransactionID)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return nil, apperror.ErrTransactionNotFound
		}
		return nil, err
	}

	if err := requireBrokerAccess(ctx, s.transactions, tx, callerID); err != nil {
		return nil, err
	}

	if strings.TrimSpace(input.DocType) == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "a document type is required")
	}

	flow := input.Flow
	if flow == "" {
		flow = models.DocumentFlowRequest
	}
	if flow != models.DocumentFlowRequest && flow != models.DocumentFlowUpload {
		return nil, apperror.New(apperror.ErrCodeValidation, "unknown document flow")
	}

	expectedFrom := input.ExpectedFrom
	if expectedFrom == "" {
		expectedFrom = models.ExpectedFromClient
	}

	status := models.DocumentStatusRequested
	if input.AsDraft {
		status = models.DocumentStatusDraft
	}

	doc := &models.Document{
		TransactionID:     tx.ID,
		ClientID:          tx.ClientID,
		Side:              tx.Side,
		DocType:           input.DocType,
		CustomTitle:       input.CustomTitle,
		Status:            status,
		Flow:              flow,
		ExpectedFrom:      expectedFrom,
		VisibleToClient:   input.VisibleToClient,
		Stage:             input.Stage,
		RequiresSignature: input.RequiresSignature,
		DueDate:           input.DueDate,
	}

	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, err
	}

	// Drafts stay invisible to the client until explicitly sent or shared.
	if status == models.DocumentStatusRequested {
		s.notifyDocumentRequested(ctx, doc, callerID)
	}

	return doc, nil
}

// SendDocumentRequest moves a DRAFT document to REQUESTED and notifies
// the client. Documents requiring a signature must carry the source file
// before they can be sent.
func (s *DocumentService) SendDocumentRequest(ctx context.Context, id, callerID uuid.UUID) (*models.Document, error) {
	doc, _, err := s.loadForBroker(ctx, id, callerID)
	if err != nil {
		return nil, err
	}

	if doc.Status != models.DocumentStatusDraft {
		return nil, apperror.New(apperror.ErrCodeValidation, "Only draft documents can be sent")
	}

	if doc.RequiresSignature {
		count, err := s.repo.CountVersions(ctx, doc.ID)
		if err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, apperror.New(apperror.ErrCodeValidation, "Source document must be attached")
		}
	}

	doc.Status = models.DocumentStatusRequested
	if err := s.repo.Update(ctx, doc); err != nil {
		return nil, err
	}

	s.notifyDocumentRequested(ctx, doc, callerID)

	return doc, nil
}

// ShareDocumentWithClient publishes an UPLOAD draft directly to the
// client: the broker already attached the file, so the document lands
// in SUBMITTED without a client round-trip.
func (s *DocumentService) ShareDocumentWithClient(ctx context.Context, id, callerID uuid.UUID) (*models.Document, error) {
	doc, _, err := s.loadForBroker(ctx, id, callerID)
	if err != nil {
		return nil, err
	}

	if doc.Status != models.DocumentStatusDraft {
		return nil, apperror.New(apperror.ErrCodeValidation, "Only draft documents can be shared")
	}
	if doc.Flow != models.DocumentFlowUpload {
		return nil, apperror.New(apperror.ErrCodeValidation, "Only upload documents can be shared with the client")
	}

	doc.Status = models.DocumentStatusSubmitted
	doc.VisibleToClient = true
	if err := s.repo.Update(ctx, doc); err != nil {
		return nil, err
	}

	logSideEffect("document service: timeline entry failed",
		s.timeline.AddEntry(ctx, doc.TransactionID, callerID, models.TimelineDocumentShared,
			map[string]interface{}{"document_id": doc.ID}))

	client, err := s.users.GetByID(ctx, doc.ClientID)
	if err != nil {
		logSideEffect("document service: client lookup failed", err)
		return doc, nil
	}
	logSideEffect("document service: email failed",
		s.emailer.SendDocumentShared(ctx, client, documentTitle(doc)))
	logSideEffect("document service: notification failed",
		s.notifier.Notify(ctx, doc.ClientID, models.NotificationCategoryDocument,
			"document.shared.subject", "document.shared.body",
			map[string]interface{}{
				"document_id":    doc.ID,
				"transaction_id": doc.TransactionID,
				"title":          documentTitle(doc),
			}))

	return doc, nil
}

// SubmitDocumentInput carries an uploaded file.
type SubmitDocumentInput struct {
	TransactionID uuid.UUID
	FileName      string
	File          io.Reader
}

// SubmitDocument attaches a new file version and moves the document to
// SUBMITTED. Either party may submit; the other one is notified.
func (s *DocumentService) SubmitDocument(ctx context.Context, id uuid.UUID, input SubmitDocumentInput, uploaderID uuid.UUID) (*models.Document, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrDocumentNotFound) {
			return nil, apperror.ErrDocumentNotFound
		}
		return nil, err
	}

	if doc.TransactionID != input.TransactionID {
		return nil, apperror.New(apperror.ErrCodeValidation, "Document does not belong to this transaction")
	}

	tx, err := s.transactions.GetByID(ctx, doc.TransactionID)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return nil, apperror.ErrTransactionNotFound
		}
		return nil, err
	}

	if err := requireTransactionAccess(ctx, s.transactions, tx, uploaderID); err != nil {
		return nil, err
	}

	object, err := s.storage.UploadFile(ctx, input.File, doc.TransactionID, doc.ID, input.FileName)
	if err != nil {
		return nil, err
	}

	version := &models.DocumentVersion{
		DocumentID: doc.ID,
		StorageKey: object.Key,
		FileName:   object.FileName,
		MimeType:   object.MimeType,
		SizeBytes:  object.SizeBytes,
		UploadedBy: uploaderID,
	}
	if err := s.repo.AddVersion(ctx, version); err != nil {
		return nil, err
	}

	doc.Status = models.DocumentStatusSubmitted
	if err := s.repo.Update(ctx, doc); err != nil {
		return nil, err
	}

	logSideEffect("document service: timeline entry failed",
		s.timeline.AddEntry(ctx, doc.TransactionID, uploaderID, models.TimelineDocumentSubmitted,
			map[string]interface{}{"document_id": doc.ID, "version_id": version.ID}))

	s.notifyDocumentSubmitted(ctx, doc, tx, uploaderID)

	return doc, nil
}

// ReviewDocumentInput carries the broker's decision on a submission.
type ReviewDocumentInput struct {
	Decision string
	Comments string
}

// ReviewDocument records an APPROVED, REJECTED or NEEDS_REVISION
// decision on a SUBMITTED document.
func (s *DocumentService) ReviewDocument(ctx context.Context, id uuid.UUID, input ReviewDocumentInput, reviewerID uuid.UUID) (*models.Document, error) {
	doc, _, err := s.loadForBroker(ctx, id, reviewerID)
	if err != nil {
		return nil, err
	}

	if doc.Status != models.DocumentStatusSubmitted {
		return nil, apperror.New(apperror.ErrCodeValidation, "Only submitted documents can be reviewed")
	}

	switch input.Decision {
	case models.ReviewDecisionApproved:
		doc.Status = models.DocumentStatusApproved
	case models.ReviewDecisionRejected:
		doc.Status = models.DocumentStatusRejected
	case models.ReviewDecisionNeedsRevision:
		doc.Status = models.DocumentStatusNeedsRevision
	default:
		return nil, apperror.New(apperror.ErrCodeValidation, "unknown review decision")
	}

	if doc.Status != models.DocumentStatusApproved {
		if comments := strings.TrimSpace(input.Comments); comments != "" {
			doc.BrokerNotes = &comments
		}
	}

	if err := s.repo.Update(ctx, doc); err != nil {
		return nil, err
	}

	logSideEffect("document service: timeline entry failed",
		s.timeline.AddEntry(ctx, doc.TransactionID, reviewerID, models.TimelineDocumentReviewed,
			map[string]interface{}{"document_id": doc.ID, "decision": input.Decision}))

	client, err := s.users.GetByID(ctx, doc.ClientID)
	if err != nil {
		logSideEffect("document service: client lookup failed", err)
		return doc, nil
	}
	logSideEffect("document service: email failed",
		s.emailer.SendDocumentReviewed(ctx, client, input.Decision, documentTitle(doc), input.Comments))
	logSideEffect("document service: notification failed",
		s.notifier.Notify(ctx, doc.ClientID, models.NotificationCategoryDocument,
			"document.reviewed.subject", "document.reviewed.body",
			map[string]interface{}{
				"document_id":    doc.ID,
				"transaction_id": doc.TransactionID,
				"decision":       input.Decision,
				"title":          documentTitle(doc),
			}))

	return doc, nil
}

// UpdateDocumentInput carries optional field changes. Nil fields keep
// their current value.
type UpdateDocumentInput struct {
	DocType           *string
	CustomTitle       *string
	ExpectedFrom      *string
	VisibleToClient   *bool
	Stage             *string
	RequiresSignature *bool
	DueDate           *time.Time
}

// UpdateDocument applies field-level changes. When nothing effectively
// changes the save is skipped.
func (s *DocumentService) UpdateDocument(ctx context.Context, id uuid.UUID, input UpdateDocumentInput, callerID uuid.UUID) (*models.Document, error) {
	doc, _, err := s.loadForBroker(ctx, id, callerID)
	if err != nil {
		return nil, err
	}

	changed := false

	if input.DocType != nil {
		if v := strings.TrimSpace(*input.DocType); v != "" && !strings.EqualFold(v, doc.DocType) {
			doc.DocType = v
			changed = true
		}
	}
	if input.CustomTitle != nil {
		v := strings.TrimSpace(*input.CustomTitle)
		if doc.CustomTitle == nil || *doc.CustomTitle != v {
			doc.CustomTitle = &v
			changed = true
		}
	}
	if input.ExpectedFrom != nil && *input.ExpectedFrom != doc.ExpectedFrom {
		doc.ExpectedFrom = *input.ExpectedFrom
		changed = true
	}
	if input.VisibleToClient != nil && *input.VisibleToClient != doc.VisibleToClient {
		doc.VisibleToClient = *input.VisibleToClient
		changed = true
	}
	if input.Stage != nil {
		if doc.Stage == nil || *doc.Stage != *input.Stage {
			doc.Stage = input.Stage
			changed = true
		}
	}
	if input.RequiresSignature != nil && *input.RequiresSignature != doc.RequiresSignature {
		doc.RequiresSignature = *input.RequiresSignature
		changed = true
	}
	if input.DueDate != nil {
		if doc.DueDate == nil || !doc.DueDate.Equal(*input.DueDate) {
			doc.DueDate = input.DueDate
			changed = true
		}
	}

	if !changed {
		return doc, nil
	}

	if err := s.repo.Update(ctx, doc); err != nil {
		return nil, err
	}

	return doc, nil
}

// DeleteDocument removes a DRAFT document. Sent documents are part of
// the workflow history and cannot be deleted.
func (s *DocumentService) DeleteDocument(ctx context.Context, id, callerID uuid.UUID) error {
	doc, _, err := s.loadForBroker(ctx, id, callerID)
	if err != nil {
		return err
	}

	if doc.Status != models.DocumentStatusDraft {
		return apperror.New(apperror.ErrCodeValidation, "Only draft documents can be deleted")
	}

	return s.repo.Delete(ctx, doc.ID)
}

// GetDocument returns one document with its versions, access-checked.
func (s *DocumentService) GetDocument(ctx context.Context, id, callerID uuid.UUID) (*models.Document, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrDocumentNotFound) {
			return nil, apperror.ErrDocumentNotFound
		}
		return nil, err
	}

	tx, err := s.transactions.GetByID(ctx, doc.TransactionID)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return nil, apperror.ErrTransactionNotFound
		}
		return nil, err
	}
	if err := requireTransactionAccess(ctx, s.transactions, tx, callerID); err != nil {
		return nil, err
	}

	if callerID == doc.ClientID && doc.Status == models.DocumentStatusDraft {
		return nil, apperror.ErrDocumentNotFound
	}

	versions, err := s.repo.ListVersions(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	doc.Versions = versions

	return doc, nil
}

// ListDocuments returns a transaction's documents. Clients never see
// drafts.
func (s *DocumentService) ListDocuments(ctx context.Context, transactionID, callerID uuid.UUID) ([]models.Document, error) {
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

	includeDrafts := callerID != tx.ClientID
	return s.repo.ListByTransaction(ctx, transactionID, includeDrafts)
}

// GetVersionDownloadURL presigns a short-lived download link for one
// document version.
func (s *DocumentService) GetVersionDownloadURL(ctx context.Context, documentID, versionID, callerID uuid.UUID) (string, error) {
	doc, err := s.GetDocument(ctx, documentID, callerID)
	if err != nil {
		return "", err
	}

	for _, v := range doc.Versions {
		if v.ID == versionID {
			return s.storage.GeneratePresignedGetURL(ctx, v.StorageKey)
		}
	}
	return "", apperror.New(apperror.ErrCodeNotFound, "document version not found")
}

// GetStageChecklist resolves the checklist of the transaction's current
// stage: template items, auto-check from documents on file, and manual
// overrides. A manual override wins over the computed state.
func (s *DocumentService) GetStageChecklist(ctx context.Context, transactionID, callerID uuid.UUID) ([]ChecklistItem, error) {
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

	template := StageChecklistTemplate(tx.Side, tx.CurrentStage)
	if len(template) == 0 {
		return []ChecklistItem{}, nil
	}

	docs, err := s.repo.ListByTransaction(ctx, transactionID, true)
	if err != nil {
		return nil, err
	}
	states, err := s.repo.ListChecklistStates(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	overrides := make(map[string]bool, len(states))
	for _, st := range states {
		overrides[st.ItemKey] = st.ManualChecked
	}

	items := make([]ChecklistItem, 0, len(template))
	for _, tmpl := range template {
		item := ChecklistItem{
			Key:         tmpl.Key,
			Title:       tmpl.Title,
			DocType:     tmpl.DocType,
			Flow:        tmpl.Flow,
			AutoChecked: autoChecked(tmpl, docs),
		}
		if manual, ok := overrides[tmpl.Key]; ok {
			item.ManualOverride = &manual
			item.Checked = manual
		} else {
			item.Checked = item.AutoChecked
		}
		items = append(items, item)
	}

	return items, nil
}

// SetChecklistManualState stores a broker's manual override for one
// checklist item.
func (s *DocumentService) SetChecklistManualState(ctx context.Context, transactionID uuid.UUID, itemKey string, checked bool, callerID uuid.UUID) error {
	tx, err := s.transactions.GetByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return apperror.ErrTransactionNotFound
		}
		return err
	}
	if err := requireBrokerAccess(ctx, s.transactions, tx, callerID); err != nil {
		return err
	}

	if !ChecklistItemKnown(tx.Side, itemKey) {
		return apperror.New(apperror.ErrCodeValidation, "Unknown checklist item")
	}

	return s.repo.UpsertChecklistState(ctx, &models.ChecklistState{
		TransactionID: transactionID,
		ItemKey:       itemKey,
		ManualChecked: checked,
		UpdatedBy:     callerID,
	})
}

// loadForBroker fetches a document and checks the caller is the
// transaction's broker or a co-broker.
func (s *DocumentService) loadForBroker(ctx context.Context, id, callerID uuid.UUID) (*models.Document, *models.Transaction, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrDocumentNotFound) {
			return nil, nil, apperror.ErrDocumentNotFound
		}
		return nil, nil, err
	}

	tx, err := s.transactions.GetByID(ctx, doc.TransactionID)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return nil, nil, apperror.ErrTransactionNotFound
		}
		return nil, nil, err
	}

	if err := requireBrokerAccess(ctx, s.transactions, tx, callerID); err != nil {
		return nil, nil, err
	}

	return doc, tx, nil
}

func (s *DocumentService) notifyDocumentRequested(ctx context.Context, doc *models.Document, actorID uuid.UUID) {
	logSideEffect("document service: timeline entry failed",
		s.timeline.AddEntry(ctx, doc.TransactionID, actorID, models.TimelineDocumentRequested,
			map[string]interface{}{"document_id": doc.ID}))

	client, err := s.users.GetByID(ctx, doc.ClientID)
	if err != nil {
		logSideEffect("document service: client lookup failed", err)
		return
	}
	logSideEffect("document service: email failed",
		s.emailer.SendDocumentRequested(ctx, client, documentTitle(doc)))
	logSideEffect("document service: notification failed",
		s.notifier.Notify(ctx, doc.ClientID, models.NotificationCategoryDocument,
			"document.requested.subject", "document.requested.body",
			map[string]interface{}{
				"document_id":    doc.ID,
				"transaction_id": doc.TransactionID,
				"title":          documentTitle(doc),
			}))
}

func (s *DocumentService) notifyDocumentSubmitted(ctx context.Context, doc *models.Document, tx *models.Transaction, uploaderID uuid.UUID) {
	uploader, err := s.users.GetByID(ctx, uploaderID)
	if err != nil {
		logSideEffect("document service: uploader lookup failed", err)
		return
	}

	recipientID := doc.ClientID
	if uploaderID == doc.ClientID {
		recipientID = tx.BrokerID
	}
	recipient, err := s.users.GetByID(ctx, recipientID)
	if err != nil {
		logSideEffect("document service: recipient lookup failed", err)
		return
	}

	logSideEffect("document service: email failed",
		s.emailer.SendDocumentSubmitted(ctx, recipient, uploader.DisplayName(), documentTitle(doc)))
	logSideEffect("document service: notification failed",
		s.notifier.Notify(ctx, recipientID, models.NotificationCategoryDocument,
			"document.submitted.subject", "document.submitted.body",
			map[string]interface{}{
				"document_id":    doc.ID,
				"transaction_id": doc.TransactionID,
				"uploader_name":  uploader.DisplayName(),
				"title":          documentTitle(doc),
			}))
}

// documentTitle prefers the custom title over the raw document type.
func documentTitle(doc *models.Document) string {
	if doc.CustomTitle != nil && strings.TrimSpace(*doc.CustomTitle) != "" {
		return *doc.CustomTitle
	}
	return doc.DocType
}
