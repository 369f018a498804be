package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/courtierpro/brokerage-backend/internal/models"
	"github.com/courtierpro/brokerage-backend/internal/pkg/apperror"
	"github.com/courtierpro/brokerage-backend/internal/repository"
)

type stubOffers struct {
	offers                map[uuid.UUID]*models.Offer
	revisions             map[uuid.UUID][]models.OfferRevision
	attachments           []models.OfferDocument
	offerDocsByTx         map[uuid.UUID][]models.OfferDocument
	propertyOfferDocsByTx map[uuid.UUID][]models.OfferDocument
}

func newStubOffers() *stubOffers {
	return &stubOffers{
		offers:                make(map[uuid.UUID]*models.Offer),
		revisions:             make(map[uuid.UUID][]models.OfferRevision),
		offerDocsByTx:         make(map[uuid.UUID][]models.OfferDocument),
		propertyOfferDocsByTx: make(map[uuid.UUID][]models.OfferDocument),
	}
}

func (s *stubOffers) Create(ctx context.Context, offer *models.Offer) error {
	offer.ID = uuid.New()
	s.offers[offer.ID] = offer
	return nil
}

func (s *stubOffers) GetByID(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	offer, ok := s.offers[id]
	if !ok {
		return nil, repository.ErrOfferNotFound
	}
	return offer, nil
}

func (s *stubOffers) Update(ctx context.Context, offer *models.Offer) error {
	if _, ok := s.offers[offer.ID]; !ok {
		return repository.ErrOfferNotFound
	}
	s.offers[offer.ID] = offer
	return nil
}

func (s *stubOffers) ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.Offer, error) {
	var out []models.Offer
	for _, offer := range s.offers {
		if offer.TransactionID == transactionID {
			out = append(out, *offer)
		}
	}
	return out, nil
}

func (s *stubOffers) MaxRevisionNumber(ctx context.Context, offerID uuid.UUID) (int, error) {
	max := 0
	for _, rev := range s.revisions[offerID] {
		if rev.RevisionNumber > max {
			max = rev.RevisionNumber
		}
	}
	return max, nil
}

func (s *stubOffers) AddRevision(ctx context.Context, revision *models.OfferRevision) error {
	revision.ID = uuid.New()
	s.revisions[revision.OfferID] = append(s.revisions[revision.OfferID], *revision)
	return nil
}

func (s *stubOffers) ListRevisions(ctx context.Context, offerID uuid.UUID) ([]models.OfferRevision, error) {
	return s.revisions[offerID], nil
}

func (s *stubOffers) RecordClientDecision(ctx context.Context, offerID uuid.UUID, decision string, notes *string, decidedAt time.Time) error {
	offer, ok := s.offers[offerID]
	if !ok {
		return repository.ErrOfferNotFound
	}
	offer.ClientDecision = &decision
	offer.ClientDecisionNotes = notes
	offer.ClientDecisionAt = &decidedAt
	return nil
}

func (s *stubOffers) AddDocument(ctx context.Context, doc *models.OfferDocument) error {
	doc.ID = uuid.New()
	doc.UploadedAt = time.Now()
	s.attachments = append(s.attachments, *doc)
	return nil
}

func (s *stubOffers) ListDocumentsByTransactionOffers(ctx context.Context, transactionID uuid.UUID) ([]models.OfferDocument, error) {
	return s.offerDocsByTx[transactionID], nil
}

func (s *stubOffers) ListDocumentsByTransactionPropertyOffers(ctx context.Context, transactionID uuid.UUID) ([]models.OfferDocument, error) {
	return s.propertyOfferDocsByTx[transactionID], nil
}

type syncedOffer struct {
	Amount float64
	Status string
}

type stubPropertyStore struct {
	properties    map[uuid.UUID]*models.Property
	propertyOffers map[uuid.UUID]*models.PropertyOffer
	synced        map[uuid.UUID]syncedOffer
}

func newStubPropertyStore() *stubPropertyStore {
	return &stubPropertyStore{
		properties:     make(map[uuid.UUID]*models.Property),
		propertyOffers: make(map[uuid.UUID]*models.PropertyOffer),
		synced:         make(map[uuid.UUID]syncedOffer),
	}
}

func (s *stubPropertyStore) CreateProperty(ctx context.Context, property *models.Property) error {
	property.ID = uuid.New()
	s.properties[property.ID] = property
	return nil
}

func (s *stubPropertyStore) GetPropertyByID(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	p, ok := s.properties[id]
	if !ok {
		return nil, repository.ErrPropertyNotFound
	}
	return p, nil
}

func (s *stubPropertyStore) ListPropertiesByTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.Property, error) {
	var out []models.Property
	for _, p := range s.properties {
		if p.TransactionID == transactionID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *stubPropertyStore) SyncPropertyOffer(ctx context.Context, propertyID uuid.UUID, amount float64, status string) error {
	if _, ok := s.properties[propertyID]; !ok {
		return repository.ErrPropertyNotFound
	}
	s.synced[propertyID] = syncedOffer{Amount: amount, Status: status}
	return nil
}

func (s *stubPropertyStore) CreatePropertyOffer(ctx context.Context, offer *models.PropertyOffer) error {
	offer.ID = uuid.New()
	s.propertyOffers[offer.ID] = offer
	return nil
}

func (s *stubPropertyStore) GetPropertyOfferByID(ctx context.Context, id uuid.UUID) (*models.PropertyOffer, error) {
	o, ok := s.propertyOffers[id]
	if !ok {
		return nil, repository.ErrPropertyOfferNotFound
	}
	return o, nil
}

func (s *stubPropertyStore) UpdatePropertyOffer(ctx context.Context, offer *models.PropertyOffer) error {
	if _, ok := s.propertyOffers[offer.ID]; !ok {
		return repository.ErrPropertyOfferNotFound
	}
	s.propertyOffers[offer.ID] = offer
	return nil
}

func (s *stubPropertyStore) MaxOfferRound(ctx context.Context, propertyID uuid.UUID) (int, error) {
	max := 0
	for _, o := range s.propertyOffers {
		if o.PropertyID == propertyID && o.OfferRound > max {
			max = o.OfferRound
		}
	}
	return max, nil
}

func (s *stubPropertyStore) ListPropertyOffers(ctx context.Context, propertyID uuid.UUID) ([]models.PropertyOffer, error) {
	var out []models.PropertyOffer
	for _, o := range s.propertyOffers {
		if o.PropertyID == propertyID {
			out = append(out, *o)
		}
	}
	return out, nil
}

type stubConditions struct {
	conditions         map[uuid.UUID]*models.Condition
	offerLinks         map[uuid.UUID][]uuid.UUID
	propertyOfferLinks map[uuid.UUID][]uuid.UUID
}

func newStubConditions() *stubConditions {
	return &stubConditions{
		conditions:         make(map[uuid.UUID]*models.Condition),
		offerLinks:         make(map[uuid.UUID][]uuid.UUID),
		propertyOfferLinks: make(map[uuid.UUID][]uuid.UUID),
	}
}

func (s *stubConditions) Create(ctx context.Context, condition *models.Condition) error {
	condition.ID = uuid.New()
	s.conditions[condition.ID] = condition
	return nil
}

func (s *stubConditions) GetByID(ctx context.Context, id uuid.UUID) (*models.Condition, error) {
	c, ok := s.conditions[id]
	if !ok {
		return nil, repository.ErrConditionNotFound
	}
	return c, nil
}

func (s *stubConditions) Update(ctx context.Context, condition *models.Condition) error {
	if _, ok := s.conditions[condition.ID]; !ok {
		return repository.ErrConditionNotFound
	}
	s.conditions[condition.ID] = condition
	return nil
}

func (s *stubConditions) UpdateStatus(ctx context.Context, id uuid.UUID, status string, satisfiedAt *time.Time) error {
	c, ok := s.conditions[id]
	if !ok {
		return repository.ErrConditionNotFound
	}
	c.Status = status
	c.SatisfiedAt = satisfiedAt
	return nil
}

func (s *stubConditions) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := s.conditions[id]; !ok {
		return repository.ErrConditionNotFound
	}
	delete(s.conditions, id)
	return nil
}

func (s *stubConditions) ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.Condition, error) {
	var out []models.Condition
	for _, c := range s.conditions {
		if c.TransactionID == transactionID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *stubConditions) ReplaceLinksForOffer(ctx context.Context, offerID uuid.UUID, conditionIDs []uuid.UUID) error {
	s.offerLinks[offerID] = conditionIDs
	return nil
}

func (s *stubConditions) ReplaceLinksForPropertyOffer(ctx context.Context, propertyOfferID uuid.UUID, conditionIDs []uuid.UUID) error {
	s.propertyOfferLinks[propertyOfferID] = conditionIDs
	return nil
}

type stubDocLister struct {
	docs     []models.Document
	versions []models.DocumentVersion
}

func (s *stubDocLister) ListByTransaction(ctx context.Context, transactionID uuid.UUID, includeDrafts bool) ([]models.Document, error) {
	var out []models.Document
	for _, d := range s.docs {
		if d.TransactionID != transactionID {
			continue
		}
		if !includeDrafts && d.Status == models.DocumentStatusDraft {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *stubDocLister) ListVersionsByTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.DocumentVersion, error) {
	return s.versions, nil
}

type transactionFixture struct {
	svc        *TransactionService
	txs        *stubTransactions
	offers     *stubOffers
	properties *stubPropertyStore
	conditions *stubConditions
	docs       *stubDocLister
	users      *stubUsers
	storage    *stubStorage
	notifier   *recordingNotifier
	timeline   *recordingTimeline
	broker     *models.User
	client     *models.User
	buyTx      *models.Transaction
	sellTx     *models.Transaction
}

func newTransactionFixture() *transactionFixture {
	broker := testUser(models.RoleBroker)
	client := testUser(models.RoleClient)
	buyTx := &models.Transaction{
		ID:           uuid.New(),
		BrokerID:     broker.ID,
		ClientID:     client.ID,
		Side:         models.SideBuy,
		Status:       models.TransactionStatusActive,
		CurrentStage: models.StageBuyerPrequalifyFinancially,
	}
	sellTx := &models.Transaction{
		ID:           uuid.New(),
		BrokerID:     broker.ID,
		ClientID:     client.ID,
		Side:         models.SideSell,
		Status:       models.TransactionStatusActive,
		CurrentStage: models.StageSellerPrepareListing,
	}

	txs := newStubTransactions(buyTx, sellTx)
	offers := newStubOffers()
	properties := newStubPropertyStore()
	conditions := newStubConditions()
	docs := &stubDocLister{}
	users := newStubUsers(broker, client)
	objectStorage := &stubStorage{}
	notifier := &recordingNotifier{}
	timeline := &recordingTimeline{}

	svc := NewTransactionService(txs, offers, properties, conditions, docs,
		users, objectStorage, notifier, noopEmailer{}, timeline)

	return &transactionFixture{
		svc: svc, txs: txs, offers: offers, properties: properties,
		conditions: conditions, docs: docs, users: users, storage: objectStorage,
		notifier: notifier, timeline: timeline,
		broker: broker, client: client, buyTx: buyTx, sellTx: sellTx,
	}
}

func TestTransactionService_CreateTransaction_Success(t *testing.T) {
	f := newTransactionFixture()
	ctx := context.Background()

	tx, err := f.svc.CreateTransaction(ctx, CreateTransactionInput{
		ClientID: f.client.ID,
		Side:     models.SideSell,
	}, f.broker.ID)

	assert.NoError(t, err)
	assert.Equal(t, models.TransactionStatusActive, tx.Status)
	assert.Equal(t, models.StageSellerPrepareListing, tx.CurrentStage)
	assert.Contains(t, f.timeline.entries, models.TimelineTransactionCreated)
}

func TestTransactionService_CreateTransaction_Duplicate(t *testing.T) {
	f := newTransactionFixture()
	f.txs.duplicate = true
	address := "12 Oak Avenue"

	_, err := f.svc.CreateTransaction(context.Background(), CreateTransactionInput{
		ClientID:        f.client.ID,
		Side:            models.SideBuy,
		PropertyAddress: &address,
	}, f.broker.ID)

	assert.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "duplicate")
}

func TestTransactionService_CreateTransaction_InvalidSide(t *testing.T) {
	f := newTransactionFixture()

	_, err := f.svc.CreateTransaction(context.Background(), CreateTransactionInput{
		ClientID: f.client.ID,
		Side:     "SIDEWAYS",
	}, f.broker.ID)

	assert.True(t, apperror.IsValidation(err))
}

func TestTransactionService_CreateTransaction_ClientMustBeClient(t *testing.T) {
	f := newTransactionFixture()

	_, err := f.svc.CreateTransaction(context.Background(), CreateTransactionInput{
		ClientID: f.broker.ID,
		Side:     models.SideBuy,
	}, f.broker.ID)

	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "not a client")
}

func TestTransactionService_AddOffer_WrongSide(t *testing.T) {
	f := newTransactionFixture()

	_, err := f.svc.AddOffer(context.Background(), f.buyTx.ID, AddOfferInput{
		BuyerName:   "J. Buyer",
		OfferAmount: 450000,
	}, f.broker.ID)

	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "sell-side")
}

func TestTransactionService_AddOffer_Success(t *testing.T) {
	f := newTransactionFixture()
	ctx := context.Background()

	offer, err := f.svc.AddOffer(ctx, f.sellTx.ID, AddOfferInput{
		BuyerName:   "J. Buyer",
		OfferAmount: 450000,
	}, f.broker.ID)

	assert.NoError(t, err)
	assert.Equal(t, models.OfferStatusPending, offer.Status)
	if assert.Len(t, f.notifier.calls, 1) {
		assert.Equal(t, f.client.ID, f.notifier.calls[0].UserID)
		assert.Equal(t, models.NotificationCategoryOffer, f.notifier.calls[0].Category)
	}
}

func TestTransactionService_UpdateOffer_RevisionOnlyOnChange(t *testing.T) {
	f := newTransactionFixture()
	ctx := context.Background()
	offer, err := f.svc.AddOffer(ctx, f.sellTx.ID, AddOfferInput{
		BuyerName:   "J. Buyer",
		OfferAmount: 450000,
	}, f.broker.ID)
	assert.NoError(t, err)

	newAmount := 460000.0
	_, err = f.svc.UpdateOffer(ctx, offer.ID, UpdateOfferInput{OfferAmount: &newAmount}, f.broker.ID)
	assert.NoError(t, err)

	newStatus := models.OfferStatusUnderReview
	_, err = f.svc.UpdateOffer(ctx, offer.ID, UpdateOfferInput{Status: &newStatus}, f.broker.ID)
	assert.NoError(t, err)

	// A notes-only change leaves the revision trail untouched.
	notes := "spoke with the buyer's broker"
	_, err = f.svc.UpdateOffer(ctx, offer.ID, UpdateOfferInput{Notes: &notes}, f.broker.ID)
	assert.NoError(t, err)

	revisions := f.offers.revisions[offer.ID]
	if assert.Len(t, revisions, 2) {
		assert.Equal(t, 1, revisions[0].RevisionNumber)
		assert.Equal(t, 450000.0, revisions[0].PreviousAmount)
		assert.Equal(t, 460000.0, revisions[0].NewAmount)
		assert.Equal(t, 2, revisions[1].RevisionNumber)
		assert.Equal(t, models.OfferStatusPending, revisions[1].PreviousStatus)
		assert.Equal(t, models.OfferStatusUnderReview, revisions[1].NewStatus)
	}
}

func TestTransactionService_UpdateOffer_ReplacesConditionLinks(t *testing.T) {
	f := newTransactionFixture()
	ctx := context.Background()
	offer, _ := f.svc.AddOffer(ctx, f.sellTx.ID, AddOfferInput{
		BuyerName:    "J. Buyer",
		OfferAmount:  450000,
		ConditionIDs: []uuid.UUID{uuid.New(), uuid.New()},
	}, f.broker.ID)

	replacement := []uuid.UUID{uuid.New()}
	_, err := f.svc.UpdateOffer(ctx, offer.ID, UpdateOfferInput{ConditionIDs: &replacement}, f.broker.ID)

	assert.NoError(t, err)
	assert.Equal(t, replacement, f.conditions.offerLinks[offer.ID])
}

func TestTransactionService_SubmitClientOfferDecision(t *testing.T) {
	f := newTransactionFixture()
	ctx := context.Background()
	offer, _ := f.svc.AddOffer(ctx, f.sellTx.ID, AddOfferInput{
		BuyerName:   "J. Buyer",
		OfferAmount: 450000,
	}, f.broker.ID)
	f.notifier.calls = nil

	_, err := f.svc.SubmitClientOfferDecision(ctx, offer.ID,
		ClientOfferDecisionInput{Decision: models.ClientDecisionAccept}, f.broker.ID)
	assert.True(t, apperror.IsForbidden(err))

	decided, err := f.svc.SubmitClientOfferDecision(ctx, offer.ID,
		ClientOfferDecisionInput{Decision: models.ClientDecisionAccept}, f.client.ID)

	assert.NoError(t, err)
	if assert.NotNil(t, decided.ClientDecision) {
		assert.Equal(t, models.ClientDecisionAccept, *decided.ClientDecision)
	}
	assert.NotNil(t, decided.ClientDecisionAt)
	// The primary status is the broker's to move.
	assert.Equal(t, models.OfferStatusPending, decided.Status)

	if assert.Len(t, f.notifier.calls, 1) {
		assert.Equal(t, f.broker.ID, f.notifier.calls[0].UserID)
	}
}

func TestTransactionService_AddProperty_WrongSide(t *testing.T) {
	f := newTransactionFixture()

	_, err := f.svc.AddProperty(context.Background(), f.sellTx.ID, AddPropertyInput{
		Address: "12 Oak Avenue",
	}, f.broker.ID)

	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "buy-side")
}

func TestTransactionService_AddPropertyOffer_WrongSide(t *testing.T) {
	f := newTransactionFixture()
	ctx := context.Background()

	// A property row attached to a sell-side transaction must not
	// accept offer rounds.
	property := &models.Property{ID: uuid.New(), TransactionID: f.sellTx.ID, Address: "9 Elm Street"}
	f.properties.properties[property.ID] = property

	_, err := f.svc.AddPropertyOffer(ctx, property.ID, AddPropertyOfferInput{OfferAmount: 400000}, f.broker.ID)

	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "buy-side")
	assert.Empty(t, f.properties.propertyOffers)
}

func TestTransactionService_UpdatePropertyOffer_WrongSide(t *testing.T) {
	f := newTransactionFixture()
	ctx := context.Background()

	property := &models.Property{ID: uuid.New(), TransactionID: f.sellTx.ID, Address: "9 Elm Street"}
	f.properties.properties[property.ID] = property
	offer := &models.PropertyOffer{
		ID:            uuid.New(),
		PropertyID:    property.ID,
		TransactionID: f.sellTx.ID,
		OfferRound:    1,
		OfferAmount:   400000,
		Status:        models.PropertyOfferStatusMade,
	}
	f.properties.propertyOffers[offer.ID] = offer

	newAmount := 410000.0
	_, err := f.svc.UpdatePropertyOffer(ctx, offer.ID, UpdatePropertyOfferInput{OfferAmount: &newAmount}, f.broker.ID)

	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "buy-side")
	assert.Equal(t, 400000.0, offer.OfferAmount)
}

func TestTransactionService_AddPropertyOffer_RoundsIncrement(t *testing.T) {
	f := newTransactionFixture()
	ctx := context.Background()
	property, err := f.svc.AddProperty(ctx, f.buyTx.ID, AddPropertyInput{Address: "12 Oak Avenue"}, f.broker.ID)
	assert.NoError(t, err)

	first, err := f.svc.AddPropertyOffer(ctx, property.ID, AddPropertyOfferInput{OfferAmount: 400000}, f.broker.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, first.OfferRound)
	assert.Equal(t, models.PropertyOfferStatusMade, first.Status)

	second, err := f.svc.AddPropertyOffer(ctx, property.ID, AddPropertyOfferInput{OfferAmount: 410000}, f.broker.ID)
	assert.NoError(t, err)
	assert.Equal(t, 2, second.OfferRound)

	// The property row mirrors the latest round.
	assert.Equal(t, syncedOffer{Amount: 410000, Status: models.PropertyOfferStatusMade}, f.properties.synced[property.ID])
}

func TestTransactionService_UpdatePropertyOffer_CounterNotifiesClient(t *testing.T) {
	f := newTransactionFixture()
	ctx := context.Background()
	property, _ := f.svc.AddProperty(ctx, f.buyTx.ID, AddPropertyInput{Address: "12 Oak Avenue"}, f.broker.ID)
	offer, _ := f.svc.AddPropertyOffer(ctx, property.ID, AddPropertyOfferInput{OfferAmount: 400000}, f.broker.ID)
	f.notifier.calls = nil

	countered := models.PropertyOfferStatusCountered
	response := "seller wants 425k"
	updated, err := f.svc.UpdatePropertyOffer(ctx, offer.ID, UpdatePropertyOfferInput{
		Status:               &countered,
		CounterpartyResponse: &response,
	}, f.broker.ID)

	assert.NoError(t, err)
	assert.Equal(t, models.PropertyOfferStatusCountered, updated.Status)
	assert.Equal(t, models.PropertyOfferStatusCountered, f.properties.synced[property.ID].Status)
	if assert.Len(t, f.notifier.calls, 1) {
		assert.Equal(t, f.client.ID, f.notifier.calls[0].UserID)
	}
}

func TestTransactionService_AddCondition_OtherRequiresTitle(t *testing.T) {
	f := newTransactionFixture()

	_, err := f.svc.AddCondition(context.Background(), f.buyTx.ID, AddConditionInput{
		Type: models.ConditionTypeOther,
	}, f.broker.ID)

	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "custom title")
}

func TestTransactionService_AddCondition_Success(t *testing.T) {
	f := newTransactionFixture()
	ctx := context.Background()

	condition, err := f.svc.AddCondition(ctx, f.buyTx.ID, AddConditionInput{
		Type: models.ConditionTypeFinancing,
	}, f.broker.ID)

	assert.NoError(t, err)
	assert.Equal(t, models.ConditionStatusPending, condition.Status)
	if assert.Len(t, f.notifier.calls, 1) {
		assert.Equal(t, models.NotificationCategoryCondition, f.notifier.calls[0].Category)
	}
}

func TestTransactionService_UpdateConditionStatus_SatisfiedStampsTime(t *testing.T) {
	f := newTransactionFixture()
	ctx := context.Background()
	condition, _ := f.svc.AddCondition(ctx, f.buyTx.ID, AddConditionInput{
		Type: models.ConditionTypeInspection,
	}, f.broker.ID)

	satisfied, err := f.svc.UpdateConditionStatus(ctx, condition.ID, models.ConditionStatusSatisfied, f.broker.ID)
	assert.NoError(t, err)
	assert.NotNil(t, satisfied.SatisfiedAt)

	reopened, err := f.svc.UpdateConditionStatus(ctx, condition.ID, models.ConditionStatusPending, f.broker.ID)
	assert.NoError(t, err)
	assert.Nil(t, reopened.SatisfiedAt)
}

func TestTransactionService_UpdateStage(t *testing.T) {
	f := newTransactionFixture()
	ctx := context.Background()

	_, err := f.svc.UpdateStage(ctx, f.buyTx.ID, models.StageSellerClosing, f.broker.ID)
	assert.True(t, apperror.IsValidation(err))

	tx, err := f.svc.UpdateStage(ctx, f.buyTx.ID, models.StageBuyerOfferNegotiation, f.broker.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.StageBuyerOfferNegotiation, tx.CurrentStage)
}

func TestTransactionService_AddCoBroker_GrantsAccess(t *testing.T) {
	f := newTransactionFixture()
	ctx := context.Background()
	coBroker := testUser(models.RoleBroker)
	f.users.users[coBroker.ID] = coBroker

	_, err := f.svc.ListOffers(ctx, f.sellTx.ID, coBroker.ID)
	assert.True(t, apperror.IsForbidden(err))

	err = f.svc.AddCoBroker(ctx, f.sellTx.ID, coBroker.ID, coBroker.ID)
	assert.True(t, apperror.IsForbidden(err))

	err = f.svc.AddCoBroker(ctx, f.sellTx.ID, coBroker.ID, f.broker.ID)
	assert.NoError(t, err)

	_, err = f.svc.ListOffers(ctx, f.sellTx.ID, coBroker.ID)
	assert.NoError(t, err)
}

func TestTransactionService_AddOfferAttachment(t *testing.T) {
	f := newTransactionFixture()
	ctx := context.Background()
	offer, _ := f.svc.AddOffer(ctx, f.sellTx.ID, AddOfferInput{
		BuyerName:   "J. Buyer",
		OfferAmount: 450000,
	}, f.broker.ID)

	doc, err := f.svc.AddOfferAttachment(ctx, offer.ID, OfferAttachmentInput{
		FileName: "promise.pdf",
		File:     strings.NewReader("%PDF-1.4"),
	}, f.broker.ID)

	assert.NoError(t, err)
	if assert.NotNil(t, doc.OfferID) {
		assert.Equal(t, offer.ID, *doc.OfferID)
	}
	assert.Nil(t, doc.PropertyOfferID)
	assert.Len(t, f.storage.uploads, 1)
}

func TestTransactionService_GetAllTransactionDocuments(t *testing.T) {
	f := newTransactionFixture()
	ctx := context.Background()
	now := time.Now()

	title := "Pre-approval letter"
	sharedDoc := models.Document{
		ID:            uuid.New(),
		TransactionID: f.sellTx.ID,
		ClientID:      f.client.ID,
		DocType:       "PREAPPROVAL_LETTER",
		CustomTitle:   &title,
		Status:        models.DocumentStatusSubmitted,
	}
	draftDoc := models.Document{
		ID:            uuid.New(),
		TransactionID: f.sellTx.ID,
		ClientID:      f.client.ID,
		DocType:       "INTERNAL_NOTE",
		Status:        models.DocumentStatusDraft,
	}
	f.docs.docs = []models.Document{sharedDoc, draftDoc}
	f.docs.versions = []models.DocumentVersion{
		{ID: uuid.New(), DocumentID: sharedDoc.ID, FileName: "letter.pdf", StorageKey: "k1", UploadedAt: now.Add(-2 * time.Hour)},
		{ID: uuid.New(), DocumentID: draftDoc.ID, FileName: "draft.pdf", StorageKey: "k2", UploadedAt: now.Add(-1 * time.Hour)},
	}
	offerID := uuid.New()
	f.offers.offerDocsByTx[f.sellTx.ID] = []models.OfferDocument{
		{ID: uuid.New(), OfferID: &offerID, FileName: "offer.pdf", StorageKey: "k3", UploadedAt: now},
	}

	docs, err := f.svc.GetAllTransactionDocuments(ctx, f.sellTx.ID, f.client.ID)
	assert.NoError(t, err)

	// The draft's version is hidden from the client; the rest sort newest first.
	if assert.Len(t, docs, 2) {
		assert.Equal(t, models.DocumentSourceOfferAttachment, docs[0].Source)
		assert.Equal(t, models.DocumentSourceClientUpload, docs[1].Source)
		assert.Equal(t, "Pre-approval letter", docs[1].Title)
		assert.True(t, docs[0].UploadedAt.After(docs[1].UploadedAt))
		assert.NotEmpty(t, docs[0].DownloadURL)
	}
}

func TestTransactionService_RemoveCondition(t *testing.T) {
	f := newTransactionFixture()
	ctx := context.Background()
	condition, _ := f.svc.AddCondition(ctx, f.buyTx.ID, AddConditionInput{
		Type: models.ConditionTypeFinancing,
	}, f.broker.ID)

	err := f.svc.RemoveCondition(ctx, condition.ID, f.client.ID)
	assert.True(t, apperror.IsForbidden(err))

	err = f.svc.RemoveCondition(ctx, condition.ID, f.broker.ID)
	assert.NoError(t, err)
	assert.Empty(t, f.conditions.conditions)
}
