package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/courtierpro/brokerage-backend/internal/models"
	"github.com/courtierpro/brokerage-backend/internal/pkg/apperror"
	"github.com/courtierpro/brokerage-backend/internal/repository"
	"github.com/courtierpro/brokerage-backend/internal/storage"
)

// TransactionStore is the store contract used by the engine.
type TransactionStore interface {
	Create(ctx context.Context, tx *models.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Transaction, error)
	HasActiveDuplicate(ctx context.Context, clientID uuid.UUID, propertyAddress string) (bool, error)
	IsCoBroker(ctx context.Context, transactionID, userID uuid.UUID) (bool, error)
	AddParticipant(ctx context.Context, participant *models.TransactionParticipant) error
	UpdateStage(ctx context.Context, id uuid.UUID, stage string) error
}

// OfferStore handles sell-side offers and attachments.
type OfferStore interface {
	Create(ctx context.Context, offer *models.Offer) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Offer, error)
	Update(ctx context.Context, offer *models.Offer) error
	ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.Offer, error)
	MaxRevisionNumber(ctx context.Context, offerID uuid.UUID) (int, error)
	AddRevision(ctx context.Context, revision *models.OfferRevision) error
	ListRevisions(ctx context.Context, offerID uuid.UUID) ([]models.OfferRevision, error)
	RecordClientDecision(ctx context.Context, offerID uuid.UUID, decision string, notes *string, decidedAt time.Time) error
	AddDocument(ctx context.Context, doc *models.OfferDocument) error
	ListDocumentsByTransactionOffers(ctx context.Context, transactionID uuid.UUID) ([]models.OfferDocument, error)
	ListDocumentsByTransactionPropertyOffers(ctx context.Context, transactionID uuid.UUID) ([]models.OfferDocument, error)
}

// PropertyStore handles buy-side properties and their offer rounds.
type PropertyStore interface {
	CreateProperty(ctx context.Context, property *models.Property) error
	GetPropertyByID(ctx context.Context, id uuid.UUID) (*models.Property, error)
	ListPropertiesByTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.Property, error)
	SyncPropertyOffer(ctx context.Context, propertyID uuid.UUID, amount float64, status string) error
	CreatePropertyOffer(ctx context.Context, offer *models.PropertyOffer) error
	GetPropertyOfferByID(ctx context.Context, id uuid.UUID) (*models.PropertyOffer, error)
	UpdatePropertyOffer(ctx context.Context, offer *models.PropertyOffer) error
	MaxOfferRound(ctx context.Context, propertyID uuid.UUID) (int, error)
	ListPropertyOffers(ctx context.Context, propertyID uuid.UUID) ([]models.PropertyOffer, error)
}

// ConditionStore handles conditions and their links.
type ConditionStore interface {
	Create(ctx context.Context, condition *models.Condition) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Condition, error)
	Update(ctx context.Context, condition *models.Condition) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, satisfiedAt *time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.Condition, error)
	ReplaceLinksForOffer(ctx context.Context, offerID uuid.UUID, conditionIDs []uuid.UUID) error
	ReplaceLinksForPropertyOffer(ctx context.Context, propertyOfferID uuid.UUID, conditionIDs []uuid.UUID) error
}

// TransactionDocumentLister exposes the document rows and versions the
// unified view merges in.
type TransactionDocumentLister interface {
	ListByTransaction(ctx context.Context, transactionID uuid.UUID, includeDrafts bool) ([]models.Document, error)
	ListVersionsByTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.DocumentVersion, error)
}

// TransactionEmailer sends transaction-scope emails.
type TransactionEmailer interface {
	SendOfferReceived(ctx context.Context, recipient *models.User, buyerName string, amount float64) error
	SendOfferUpdated(ctx context.Context, recipient *models.User, buyerName string) error
	SendOfferDecision(ctx context.Context, recipient *models.User, actorName, decision, buyerName string) error
	SendPropertyOfferMade(ctx context.Context, recipient *models.User, address string, amount float64, round int) error
	SendPropertyOfferCountered(ctx context.Context, recipient *models.User, address string) error
	SendConditionAdded(ctx context.Context, recipient *models.User, title string) error
}

// TransactionService is the root engine: transaction lifecycle, sell-side
// offers with revision history, buy-side properties and offer rounds,
// conditions and the unified document view.
type TransactionService struct {
	repo       TransactionStore
	offers     OfferStore
	properties PropertyStore
	conditions ConditionStore
	documents  TransactionDocumentLister
	users      UserReader
	storage    storage.ObjectStorage
	notifier   Notifier
	emailer    TransactionEmailer
	timeline   TimelineWriter
}

// NewTransactionService creates the engine.
func NewTransactionService(
	repo TransactionStore,
	offers OfferStore,
	properties PropertyStore,
	conditions ConditionStore,
	documents TransactionDocumentLister,
	users UserReader,
	objectStorage storage.ObjectStorage,
	notifier Notifier,
	emailer TransactionEmailer,
	timeline TimelineWriter,
) *TransactionService {
	return &TransactionService{
		repo:       repo,
		offers:     offers,
		properties: properties,
		conditions: conditions,
		documents:  documents,
		users:      users,
		storage:    objectStorage,
		notifier:   notifier,
		emailer:    emailer,
		timeline:   timeline,
	}
}

// CreateTransactionInput describes a new brokerage deal.
type CreateTransactionInput struct {
	ClientID        uuid.UUID
	Side            string
	PropertyAddress *string
}

// CreateTransaction opens a new ACTIVE transaction at the first stage of
// its side. A client cannot have two active deals on the same property.
func (s *TransactionService) CreateTransaction(ctx context.Context, input CreateTransactionInput, brokerID uuid.UUID) (*models.Transaction, error) {
	if input.Side != models.SideBuy && input.Side != models.SideSell {
		return nil, apperror.New(apperror.ErrCodeValidation, "side must be BUY_SIDE or SELL_SIDE")
	}

	client, err := s.users.GetByID(ctx, input.ClientID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, err
	}
	if client.Role != models.RoleClient {
		return nil, apperror.New(apperror.ErrCodeValidation, "the selected user is not a client")
	}

	if input.PropertyAddress != nil && strings.TrimSpace(*input.PropertyAddress) != "" {
		duplicate, err := s.repo.HasActiveDuplicate(ctx, input.ClientID, *input.PropertyAddress)
		if err != nil {
			return nil, err
		}
		if duplicate {
			return nil, apperror.New(apperror.ErrCodeBadRequest,
				"duplicate active transaction for this client and property")
		}
	}

	tx := &models.Transaction{
		BrokerID:        brokerID,
		ClientID:        input.ClientID,
		Side:            input.Side,
		Status:          models.TransactionStatusActive,
		CurrentStage:    models.FirstStageForSide(input.Side),
		PropertyAddress: input.PropertyAddress,
	}

	if err := s.repo.Create(ctx, tx); err != nil {
		return nil, err
	}

	logSideEffect("transaction service: timeline entry failed",
		s.timeline.AddEntry(ctx, tx.ID, brokerID, models.TimelineTransactionCreated,
			map[string]interface{}{"side": tx.Side}))

	return tx, nil
}

// GetTransaction returns a transaction, access-checked.
func (s *TransactionService) GetTransaction(ctx context.Context, id, callerID uuid.UUID) (*models.Transaction, error) {
	return s.loadWithAccess(ctx, id, callerID)
}

// ListTransactions returns the transactions the user takes part in.
func (s *TransactionService) ListTransactions(ctx context.Context, userID uuid.UUID) ([]models.Transaction, error) {
	return s.repo.ListForUser(ctx, userID)
}

// AddCoBroker registers a second broker on the transaction. Only the
// primary broker may delegate.
func (s *TransactionService) AddCoBroker(ctx context.Context, transactionID, coBrokerID, callerID uuid.UUID) error {
	tx, err := s.repo.GetByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return apperror.ErrTransactionNotFound
		}
		return err
	}

	if callerID != tx.BrokerID {
		return apperror.ErrForbidden
	}

	coBroker, err := s.users.GetByID(ctx, coBrokerID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperror.ErrUserNotFound
		}
		return err
	}
	if coBroker.Role != models.RoleBroker {
		return apperror.New(apperror.ErrCodeValidation, "only brokers can be added as co-brokers")
	}

	return s.repo.AddParticipant(ctx, &models.TransactionParticipant{
		TransactionID: transactionID,
		UserID:        coBrokerID,
		Role:          models.ParticipantRoleCoBroker,
	})
}

// UpdateStage moves the transaction to another stage of its side.
func (s *TransactionService) UpdateStage(ctx context.Context, transactionID uuid.UUID, stage string, callerID uuid.UUID) (*models.Transaction, error) {
	tx, err := s.repo.GetByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return nil, apperror.ErrTransactionNotFound
		}
		return nil, err
	}

	if err := requireBrokerAccess(ctx, s.repo, tx, callerID); err != nil {
		return nil, err
	}

	if !stageBelongsToSide(tx.Side, stage) {
		return nil, apperror.New(apperror.ErrCodeValidation, "unknown stage for this transaction side")
	}

	if err := s.repo.UpdateStage(ctx, transactionID, stage); err != nil {
		return nil, err
	}
	tx.CurrentStage = stage

	return tx, nil
}

// AddOfferInput describes a sell-side offer received from a buyer.
type AddOfferInput struct {
	BuyerName    string
	OfferAmount  float64
	Status       string
	Notes        *string
	ConditionIDs []uuid.UUID
}

// AddOffer records an external buyer's offer on a sell-side transaction.
func (s *TransactionService) AddOffer(ctx context.Context, transactionID uuid.UUID, input AddOfferInput, callerID uuid.UUID) (*models.Offer, error) {
	tx, err := s.loadForBroker(ctx, transactionID, callerID)
	if err != nil {
		return nil, err
	}

	if tx.Side != models.SideSell {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "offers can only be recorded on sell-side transactions")
	}

	if strings.TrimSpace(input.BuyerName) == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "a buyer name is required")
	}
	if input.OfferAmount <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "the offer amount must be positive")
	}

	status := input.Status
	if status == "" {
		status = models.OfferStatusPending
	}

	offer := &models.Offer{
		TransactionID: tx.ID,
		BuyerName:     input.BuyerName,
		OfferAmount:   input.OfferAmount,
		Status:        status,
		Notes:         input.Notes,
	}

	if err := s.offers.Create(ctx, offer); err != nil {
		return nil, err
	}

	if len(input.ConditionIDs) > 0 {
		if err := s.conditions.ReplaceLinksForOffer(ctx, offer.ID, input.ConditionIDs); err != nil {
			return nil, err
		}
	}

	logSideEffect("transaction service: timeline entry failed",
		s.timeline.AddEntry(ctx, tx.ID, callerID, models.TimelineOfferAdded,
			map[string]interface{}{"offer_id": offer.ID, "buyer_name": offer.BuyerName}))

	if client, err := s.users.GetByID(ctx, tx.ClientID); err != nil {
		logSideEffect("transaction service: client lookup failed", err)
	} else {
		logSideEffect("transaction service: email failed",
			s.emailer.SendOfferReceived(ctx, client, offer.BuyerName, offer.OfferAmount))
		logSideEffect("transaction service: notification failed",
			s.notifier.Notify(ctx, tx.ClientID, models.NotificationCategoryOffer,
				"offer.received.subject", "offer.received.body",
				map[string]interface{}{
					"offer_id":       offer.ID,
					"transaction_id": tx.ID,
					"buyer_name":     offer.BuyerName,
					"amount":         offer.OfferAmount,
				}))
	}

	return offer, nil
}

// UpdateOfferInput carries optional offer changes. A nil ConditionIDs
// keeps the current links; a non-nil one replaces them wholesale.
type UpdateOfferInput struct {
	BuyerName    *string
	OfferAmount  *float64
	Status       *string
	Notes        *string
	ConditionIDs *[]uuid.UUID
}

// UpdateOffer applies changes to a sell-side offer. A revision snapshot
// is appended only when the amount or the status actually changed, so
// the revision history reads as the offer's negotiation trail.
func (s *TransactionService) UpdateOffer(ctx context.Context, offerID uuid.UUID, input UpdateOfferInput, callerID uuid.UUID) (*models.Offer, error) {
	offer, err := s.offers.GetByID(ctx, offerID)
	if err != nil {
		if errors.Is(err, repository.ErrOfferNotFound) {
			return nil, apperror.ErrOfferNotFound
		}
		return nil, err
	}

	tx, err := s.loadForBroker(ctx, offer.TransactionID, callerID)
	if err != nil {
		return nil, err
	}

	previousAmount := offer.OfferAmount
	previousStatus := offer.Status

	if input.BuyerName != nil {
		if v := strings.TrimSpace(*input.BuyerName); v != "" {
			offer.BuyerName = v
		}
	}
	if input.OfferAmount != nil {
		if *input.OfferAmount <= 0 {
			return nil, apperror.New(apperror.ErrCodeValidation, "the offer amount must be positive")
		}
		offer.OfferAmount = *input.OfferAmount
	}
	if input.Status != nil && *input.Status != "" {
		offer.Status = *input.Status
	}
	if input.Notes != nil {
		offer.Notes = input.Notes
	}

	if err := s.offers.Update(ctx, offer); err != nil {
		return nil, err
	}

	if offer.OfferAmount != previousAmount || offer.Status != previousStatus {
		maxRevision, err := s.offers.MaxRevisionNumber(ctx, offerID)
		if err != nil {
			return nil, err
		}
		revision := &models.OfferRevision{
			OfferID:        offerID,
			RevisionNumber: maxRevision + 1,
			PreviousAmount: previousAmount,
			NewAmount:      offer.OfferAmount,
			PreviousStatus: previousStatus,
			NewStatus:      offer.Status,
		}
		if err := s.offers.AddRevision(ctx, revision); err != nil {
			return nil, err
		}
	}

	if input.ConditionIDs != nil {
		if err := s.conditions.ReplaceLinksForOffer(ctx, offerID, *input.ConditionIDs); err != nil {
			return nil, err
		}
	}

	logSideEffect("transaction service: timeline entry failed",
		s.timeline.AddEntry(ctx, tx.ID, callerID, models.TimelineOfferUpdated,
			map[string]interface{}{"offer_id": offer.ID}))

	if client, err := s.users.GetByID(ctx, tx.ClientID); err != nil {
		logSideEffect("transaction service: client lookup failed", err)
	} else {
		logSideEffect("transaction service: email failed",
			s.emailer.SendOfferUpdated(ctx, client, offer.BuyerName))
		logSideEffect("transaction service: notification failed",
			s.notifier.Notify(ctx, tx.ClientID, models.NotificationCategoryOffer,
				"offer.updated.subject", "offer.updated.body",
				map[string]interface{}{
					"offer_id":       offer.ID,
					"transaction_id": tx.ID,
					"buyer_name":     offer.BuyerName,
				}))
	}

	return offer, nil
}

// GetOffer returns one offer with its revision history.
func (s *TransactionService) GetOffer(ctx context.Context, offerID, callerID uuid.UUID) (*models.Offer, error) {
	offer, err := s.offers.GetByID(ctx, offerID)
	if err != nil {
		if errors.Is(err, repository.ErrOfferNotFound) {
			return nil, apperror.ErrOfferNotFound
		}
		return nil, err
	}

	if _, err := s.loadWithAccess(ctx, offer.TransactionID, callerID); err != nil {
		return nil, err
	}

	revisions, err := s.offers.ListRevisions(ctx, offerID)
	if err != nil {
		return nil, err
	}
	offer.Revisions = revisions

	return offer, nil
}

// ListOffers returns a transaction's offers.
func (s *TransactionService) ListOffers(ctx context.Context, transactionID, callerID uuid.UUID) ([]models.Offer, error) {
	if _, err := s.loadWithAccess(ctx, transactionID, callerID); err != nil {
		return nil, err
	}
	return s.offers.ListByTransaction(ctx, transactionID)
}

// ClientOfferDecisionInput carries the seller's decision.
type ClientOfferDecisionInput struct {
	Decision string
	Notes    *string
}

// SubmitClientOfferDecision records the client's accept/decline/counter
// answer on a received offer. The decision is advisory: the offer's
// primary status stays untouched until the broker acts on it.
func (s *TransactionService) SubmitClientOfferDecision(ctx context.Context, offerID uuid.UUID, input ClientOfferDecisionInput, callerID uuid.UUID) (*models.Offer, error) {
	offer, err := s.offers.GetByID(ctx, offerID)
	if err != nil {
		if errors.Is(err, repository.ErrOfferNotFound) {
			return nil, apperror.ErrOfferNotFound
		}
		return nil, err
	}

	tx, err := s.repo.GetByID(ctx, offer.TransactionID)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return nil, apperror.ErrTransactionNotFound
		}
		return nil, err
	}

	if callerID != tx.ClientID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "only the transaction's client can decide on an offer")
	}

	switch input.Decision {
	case models.ClientDecisionAccept, models.ClientDecisionDecline, models.ClientDecisionCounter:
	default:
		return nil, apperror.New(apperror.ErrCodeValidation, "unknown offer decision")
	}

	decidedAt := time.Now()
	if err := s.offers.RecordClientDecision(ctx, offerID, input.Decision, input.Notes, decidedAt); err != nil {
		return nil, err
	}
	offer.ClientDecision = &input.Decision
	offer.ClientDecisionNotes = input.Notes
	offer.ClientDecisionAt = &decidedAt

	logSideEffect("transaction service: timeline entry failed",
		s.timeline.AddEntry(ctx, tx.ID, callerID, models.TimelineOfferDecision,
			map[string]interface{}{"offer_id": offer.ID, "decision": input.Decision}))

	client, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		logSideEffect("transaction service: client lookup failed", err)
		return offer, nil
	}
	if broker, err := s.users.GetByID(ctx, tx.BrokerID); err != nil {
		logSideEffect("transaction service: broker lookup failed", err)
	} else {
		logSideEffect("transaction service: email failed",
			s.emailer.SendOfferDecision(ctx, broker, client.DisplayName(), input.Decision, offer.BuyerName))
		logSideEffect("transaction service: notification failed",
			s.notifier.Notify(ctx, tx.BrokerID, models.NotificationCategoryOffer,
				"offer.decision.subject", "offer.decision.body",
				map[string]interface{}{
					"offer_id":       offer.ID,
					"transaction_id": tx.ID,
					"decision":       input.Decision,
					"buyer_name":     offer.BuyerName,
				}))
	}

	return offer, nil
}

// AddPropertyInput describes a tracked buy-side property.
type AddPropertyInput struct {
	Address   string
	ListPrice *float64
	Notes     *string
}

// AddProperty tracks a property on a buy-side transaction.
func (s *TransactionService) AddProperty(ctx context.Context, transactionID uuid.UUID, input AddPropertyInput, callerID uuid.UUID) (*models.Property, error) {
	tx, err := s.loadForBroker(ctx, transactionID, callerID)
	if err != nil {
		return nil, err
	}

	if tx.Side != models.SideBuy {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "properties can only be tracked on buy-side transactions")
	}

	if strings.TrimSpace(input.Address) == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "a property address is required")
	}

	property := &models.Property{
		TransactionID: tx.ID,
		Address:       input.Address,
		ListPrice:     input.ListPrice,
		Notes:         input.Notes,
	}

	if err := s.properties.CreateProperty(ctx, property); err != nil {
		return nil, err
	}

	return property, nil
}

// ListProperties returns a transaction's tracked properties.
func (s *TransactionService) ListProperties(ctx context.Context, transactionID, callerID uuid.UUID) ([]models.Property, error) {
	if _, err := s.loadWithAccess(ctx, transactionID, callerID); err != nil {
		return nil, err
	}
	return s.properties.ListPropertiesByTransaction(ctx, transactionID)
}

// AddPropertyOfferInput describes a new offer round on a property.
type AddPropertyOfferInput struct {
	OfferAmount  float64
	ExpiryDate   *time.Time
	ConditionIDs []uuid.UUID
}

// AddPropertyOffer records a new offer round on a tracked property. The
// round number is one past the highest existing round, and the property
// row mirrors the latest amount and status for list views.
func (s *TransactionService) AddPropertyOffer(ctx context.Context, propertyID uuid.UUID, input AddPropertyOfferInput, callerID uuid.UUID) (*models.PropertyOffer, error) {
	property, err := s.properties.GetPropertyByID(ctx, propertyID)
	if err != nil {
		if errors.Is(err, repository.ErrPropertyNotFound) {
			return nil, apperror.ErrPropertyNotFound
		}
		return nil, err
	}

	tx, err := s.loadForBroker(ctx, property.TransactionID, callerID)
	if err != nil {
		return nil, err
	}

	if tx.Side != models.SideBuy {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "property offers can only be made on buy-side transactions")
	}

	if input.OfferAmount <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "the offer amount must be positive")
	}

	maxRound, err := s.properties.MaxOfferRound(ctx, propertyID)
	if err != nil {
		return nil, err
	}

	offer := &models.PropertyOffer{
		PropertyID:    propertyID,
		TransactionID: tx.ID,
		OfferRound:    maxRound + 1,
		OfferAmount:   input.OfferAmount,
		Status:        models.PropertyOfferStatusMade,
		ExpiryDate:    input.ExpiryDate,
	}

	if err := s.properties.CreatePropertyOffer(ctx, offer); err != nil {
		return nil, err
	}

	if err := s.properties.SyncPropertyOffer(ctx, propertyID, offer.OfferAmount, offer.Status); err != nil {
		return nil, err
	}

	if len(input.ConditionIDs) > 0 {
		if err := s.conditions.ReplaceLinksForPropertyOffer(ctx, offer.ID, input.ConditionIDs); err != nil {
			return nil, err
		}
	}

	logSideEffect("transaction service: timeline entry failed",
		s.timeline.AddEntry(ctx, tx.ID, callerID, models.TimelinePropertyOfferMade,
			map[string]interface{}{
				"property_id":       propertyID,
				"property_offer_id": offer.ID,
				"offer_round":       offer.OfferRound,
			}))

	if client, err := s.users.GetByID(ctx, tx.ClientID); err != nil {
		logSideEffect("transaction service: client lookup failed", err)
	} else {
		logSideEffect("transaction service: email failed",
			s.emailer.SendPropertyOfferMade(ctx, client, property.Address, offer.OfferAmount, offer.OfferRound))
		logSideEffect("transaction service: notification failed",
			s.notifier.Notify(ctx, tx.ClientID, models.NotificationCategoryOffer,
				"property_offer.made.subject", "property_offer.made.body",
				map[string]interface{}{
					"property_offer_id": offer.ID,
					"transaction_id":    tx.ID,
					"address":           property.Address,
					"amount":            offer.OfferAmount,
					"offer_round":       offer.OfferRound,
				}))
	}

	return offer, nil
}

// UpdatePropertyOfferInput carries optional property-offer changes.
type UpdatePropertyOfferInput struct {
	OfferAmount          *float64
	Status               *string
	CounterpartyResponse *string
	ExpiryDate           *time.Time
	ConditionIDs         *[]uuid.UUID
}

// UpdatePropertyOffer applies changes to an offer round and keeps the
// property's denormalized latest-offer columns in sync.
func (s *TransactionService) UpdatePropertyOffer(ctx context.Context, offerID uuid.UUID, input UpdatePropertyOfferInput, callerID uuid.UUID) (*models.PropertyOffer, error) {
	offer, err := s.properties.GetPropertyOfferByID(ctx, offerID)
	if err != nil {
		if errors.Is(err, repository.ErrPropertyOfferNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "property offer not found")
		}
		return nil, err
	}

	tx, err := s.loadForBroker(ctx, offer.TransactionID, callerID)
	if err != nil {
		return nil, err
	}

	if tx.Side != models.SideBuy {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "property offers can only be made on buy-side transactions")
	}

	previousStatus := offer.Status

	if input.OfferAmount != nil {
		if *input.OfferAmount <= 0 {
			return nil, apperror.New(apperror.ErrCodeValidation, "the offer amount must be positive")
		}
		offer.OfferAmount = *input.OfferAmount
	}
	if input.Status != nil && *input.Status != "" {
		offer.Status = *input.Status
	}
	if input.CounterpartyResponse != nil {
		offer.CounterpartyResponse = input.CounterpartyResponse
	}
	if input.ExpiryDate != nil {
		offer.ExpiryDate = input.ExpiryDate
	}

	if err := s.properties.UpdatePropertyOffer(ctx, offer); err != nil {
		return nil, err
	}

	if err := s.properties.SyncPropertyOffer(ctx, offer.PropertyID, offer.OfferAmount, offer.Status); err != nil {
		return nil, err
	}

	if input.ConditionIDs != nil {
		if err := s.conditions.ReplaceLinksForPropertyOffer(ctx, offerID, *input.ConditionIDs); err != nil {
			return nil, err
		}
	}

	logSideEffect("transaction service: timeline entry failed",
		s.timeline.AddEntry(ctx, tx.ID, callerID, models.TimelinePropertyOfferUpdated,
			map[string]interface{}{"property_offer_id": offer.ID, "status": offer.Status}))

	if offer.Status == models.PropertyOfferStatusCountered && previousStatus != models.PropertyOfferStatusCountered {
		property, err := s.properties.GetPropertyByID(ctx, offer.PropertyID)
		if err != nil {
			logSideEffect("transaction service: property lookup failed", err)
			return offer, nil
		}
		if client, err := s.users.GetByID(ctx, tx.ClientID); err != nil {
			logSideEffect("transaction service: client lookup failed", err)
		} else {
			logSideEffect("transaction service: email failed",
				s.emailer.SendPropertyOfferCountered(ctx, client, property.Address))
			logSideEffect("transaction service: notification failed",
				s.notifier.Notify(ctx, tx.ClientID, models.NotificationCategoryOffer,
					"property_offer.countered.subject", "property_offer.countered.body",
					map[string]interface{}{
						"property_offer_id": offer.ID,
						"transaction_id":    tx.ID,
						"address":           property.Address,
					}))
		}
	}

	return offer, nil
}

// ListPropertyOffers returns the offer rounds made on a property.
func (s *TransactionService) ListPropertyOffers(ctx context.Context, propertyID, callerID uuid.UUID) ([]models.PropertyOffer, error) {
	property, err := s.properties.GetPropertyByID(ctx, propertyID)
	if err != nil {
		if errors.Is(err, repository.ErrPropertyNotFound) {
			return nil, apperror.ErrPropertyNotFound
		}
		return nil, err
	}

	if _, err := s.loadWithAccess(ctx, property.TransactionID, callerID); err != nil {
		return nil, err
	}

	return s.properties.ListPropertyOffers(ctx, propertyID)
}

// AddConditionInput describes a new condition.
type AddConditionInput struct {
	Type         string
	CustomTitle  *string
	Description  *string
	DeadlineDate *time.Time
	Notes        *string
}

// AddCondition attaches a condition to a transaction. OTHER conditions
// must carry a custom title since the type alone says nothing.
func (s *TransactionService) AddCondition(ctx context.Context, transactionID uuid.UUID, input AddConditionInput, callerID uuid.UUID) (*models.Condition, error) {
	tx, err := s.loadForBroker(ctx, transactionID, callerID)
	if err != nil {
		return nil, err
	}

	if err := validateConditionTitle(input.Type, input.CustomTitle); err != nil {
		return nil, err
	}

	condition := &models.Condition{
		TransactionID: tx.ID,
		Type:          input.Type,
		CustomTitle:   input.CustomTitle,
		Description:   input.Description,
		DeadlineDate:  input.DeadlineDate,
		Status:        models.ConditionStatusPending,
		Notes:         input.Notes,
	}

	if err := s.conditions.Create(ctx, condition); err != nil {
		return nil, err
	}

	logSideEffect("transaction service: timeline entry failed",
		s.timeline.AddEntry(ctx, tx.ID, callerID, models.TimelineConditionAdded,
			map[string]interface{}{"condition_id": condition.ID, "type": condition.Type}))

	if client, err := s.users.GetByID(ctx, tx.ClientID); err != nil {
		logSideEffect("transaction service: client lookup failed", err)
	} else {
		logSideEffect("transaction service: email failed",
			s.emailer.SendConditionAdded(ctx, client, conditionTitle(condition)))
		logSideEffect("transaction service: notification failed",
			s.notifier.Notify(ctx, tx.ClientID, models.NotificationCategoryCondition,
				"condition.added.subject", "condition.added.body",
				map[string]interface{}{
					"condition_id":   condition.ID,
					"transaction_id": tx.ID,
					"title":          conditionTitle(condition),
				}))
	}

	return condition, nil
}

// UpdateConditionInput carries optional condition changes.
type UpdateConditionInput struct {
	Type         *string
	CustomTitle  *string
	Description  *string
	DeadlineDate *time.Time
	Notes        *string
}

// UpdateCondition applies field-level changes to a condition.
func (s *TransactionService) UpdateCondition(ctx context.Context, conditionID uuid.UUID, input UpdateConditionInput, callerID uuid.UUID) (*models.Condition, error) {
	condition, tx, err := s.loadConditionForBroker(ctx, conditionID, callerID)
	if err != nil {
		return nil, err
	}

	if input.Type != nil && *input.Type != "" {
		condition.Type = *input.Type
	}
	if input.CustomTitle != nil {
		condition.CustomTitle = input.CustomTitle
	}
	if input.Description != nil {
		condition.Description = input.Description
	}
	if input.DeadlineDate != nil {
		condition.DeadlineDate = input.DeadlineDate
	}
	if input.Notes != nil {
		condition.Notes = input.Notes
	}

	if err := validateConditionTitle(condition.Type, condition.CustomTitle); err != nil {
		return nil, err
	}

	if err := s.conditions.Update(ctx, condition); err != nil {
		return nil, err
	}

	logSideEffect("transaction service: timeline entry failed",
		s.timeline.AddEntry(ctx, tx.ID, callerID, models.TimelineConditionUpdated,
			map[string]interface{}{"condition_id": condition.ID}))

	return condition, nil
}

// UpdateConditionStatus changes only the status. Reaching SATISFIED
// stamps the satisfaction time; leaving it clears the stamp.
func (s *TransactionService) UpdateConditionStatus(ctx context.Context, conditionID uuid.UUID, status string, callerID uuid.UUID) (*models.Condition, error) {
	condition, tx, err := s.loadConditionForBroker(ctx, conditionID, callerID)
	if err != nil {
		return nil, err
	}

	switch status {
	case models.ConditionStatusPending, models.ConditionStatusSatisfied, models.ConditionStatusFailed:
	default:
		return nil, apperror.New(apperror.ErrCodeValidation, "unknown condition status")
	}

	var satisfiedAt *time.Time
	if status == models.ConditionStatusSatisfied {
		now := time.Now()
		satisfiedAt = &now
	}

	if err := s.conditions.UpdateStatus(ctx, conditionID, status, satisfiedAt); err != nil {
		return nil, err
	}
	condition.Status = status
	condition.SatisfiedAt = satisfiedAt

	logSideEffect("transaction service: timeline entry failed",
		s.timeline.AddEntry(ctx, tx.ID, callerID, models.TimelineConditionUpdated,
			map[string]interface{}{"condition_id": condition.ID, "status": status}))

	return condition, nil
}

// RemoveCondition deletes a condition and its links.
func (s *TransactionService) RemoveCondition(ctx context.Context, conditionID, callerID uuid.UUID) error {
	condition, _, err := s.loadConditionForBroker(ctx, conditionID, callerID)
	if err != nil {
		return err
	}
	return s.conditions.Delete(ctx, condition.ID)
}

// ListConditions returns a transaction's conditions.
func (s *TransactionService) ListConditions(ctx context.Context, transactionID, callerID uuid.UUID) ([]models.Condition, error) {
	if _, err := s.loadWithAccess(ctx, transactionID, callerID); err != nil {
		return nil, err
	}
	return s.conditions.ListByTransaction(ctx, transactionID)
}

// OfferAttachmentInput carries an uploaded offer attachment.
type OfferAttachmentInput struct {
	FileName string
	File     io.Reader
}

// AddOfferAttachment uploads a file against a sell-side offer.
func (s *TransactionService) AddOfferAttachment(ctx context.Context, offerID uuid.UUID, input OfferAttachmentInput, callerID uuid.UUID) (*models.OfferDocument, error) {
	offer, err := s.offers.GetByID(ctx, offerID)
	if err != nil {
		if errors.Is(err, repository.ErrOfferNotFound) {
			return nil, apperror.ErrOfferNotFound
		}
		return nil, err
	}

	if _, err := s.loadForBroker(ctx, offer.TransactionID, callerID); err != nil {
		return nil, err
	}

	object, err := s.storage.UploadFile(ctx, input.File, offer.TransactionID, offer.ID, input.FileName)
	if err != nil {
		return nil, err
	}

	doc := &models.OfferDocument{
		OfferID:    &offer.ID,
		StorageKey: object.Key,
		FileName:   object.FileName,
		MimeType:   object.MimeType,
		SizeBytes:  object.SizeBytes,
		UploadedBy: callerID,
	}
	if err := s.offers.AddDocument(ctx, doc); err != nil {
		return nil, err
	}

	return doc, nil
}

// AddPropertyOfferAttachment uploads a file against a buy-side offer round.
func (s *TransactionService) AddPropertyOfferAttachment(ctx context.Context, propertyOfferID uuid.UUID, input OfferAttachmentInput, callerID uuid.UUID) (*models.OfferDocument, error) {
	offer, err := s.properties.GetPropertyOfferByID(ctx, propertyOfferID)
	if err != nil {
		if errors.Is(err, repository.ErrPropertyOfferNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "property offer not found")
		}
		return nil, err
	}

	if _, err := s.loadForBroker(ctx, offer.TransactionID, callerID); err != nil {
		return nil, err
	}

	object, err := s.storage.UploadFile(ctx, input.File, offer.TransactionID, offer.ID, input.FileName)
	if err != nil {
		return nil, err
	}

	doc := &models.OfferDocument{
		PropertyOfferID: &offer.ID,
		StorageKey:      object.Key,
		FileName:        object.FileName,
		MimeType:        object.MimeType,
		SizeBytes:       object.SizeBytes,
		UploadedBy:      callerID,
	}
	if err := s.offers.AddDocument(ctx, doc); err != nil {
		return nil, err
	}

	return doc, nil
}

// GetAllTransactionDocuments merges document versions, offer attachments
// and property-offer attachments into one list, newest upload first.
// Each row carries a short-lived presigned download URL; a presign
// failure leaves that row's URL empty rather than failing the view.
func (s *TransactionService) GetAllTransactionDocuments(ctx context.Context, transactionID, callerID uuid.UUID) ([]models.UnifiedDocument, error) {
	tx, err := s.loadWithAccess(ctx, transactionID, callerID)
	if err != nil {
		return nil, err
	}

	includeDrafts := callerID != tx.ClientID
	docs, err := s.documents.ListByTransaction(ctx, transactionID, includeDrafts)
	if err != nil {
		return nil, err
	}
	docsByID := make(map[uuid.UUID]*models.Document, len(docs))
	for i := range docs {
		docsByID[docs[i].ID] = &docs[i]
	}

	versions, err := s.documents.ListVersionsByTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	offerDocs, err := s.offers.ListDocumentsByTransactionOffers(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	propertyOfferDocs, err := s.offers.ListDocumentsByTransactionPropertyOffers(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	unified := make([]models.UnifiedDocument, 0, len(versions)+len(offerDocs)+len(propertyOfferDocs))

	for _, v := range versions {
		doc, ok := docsByID[v.DocumentID]
		if !ok {
			// Version of a draft the caller cannot see.
			continue
		}
		documentID := v.DocumentID
		unified = append(unified, models.UnifiedDocument{
			ID:         v.ID,
			Source:     models.DocumentSourceClientUpload,
			Title:      documentTitle(doc),
			FileName:   v.FileName,
			MimeType:   v.MimeType,
			SizeBytes:  v.SizeBytes,
			StorageKey: v.StorageKey,
			UploadedBy: v.UploadedBy,
			UploadedAt: v.UploadedAt,
			DocumentID: &documentID,
		})
	}

	for _, d := range offerDocs {
		unified = append(unified, models.UnifiedDocument{
			ID:         d.ID,
			Source:     models.DocumentSourceOfferAttachment,
			Title:      d.FileName,
			FileName:   d.FileName,
			MimeType:   d.MimeType,
			SizeBytes:  d.SizeBytes,
			StorageKey: d.StorageKey,
			UploadedBy: d.UploadedBy,
			UploadedAt: d.UploadedAt,
			OfferID:    d.OfferID,
		})
	}

	for _, d := range propertyOfferDocs {
		unified = append(unified, models.UnifiedDocument{
			ID:              d.ID,
			Source:          models.DocumentSourcePropertyOfferAttachment,
			Title:           d.FileName,
			FileName:        d.FileName,
			MimeType:        d.MimeType,
			SizeBytes:       d.SizeBytes,
			StorageKey:      d.StorageKey,
			UploadedBy:      d.UploadedBy,
			UploadedAt:      d.UploadedAt,
			PropertyOfferID: d.PropertyOfferID,
		})
	}

	sort.Slice(unified, func(i, j int) bool {
		return unified[i].UploadedAt.After(unified[j].UploadedAt)
	})

	for i := range unified {
		url, err := s.storage.GeneratePresignedGetURL(ctx, unified[i].StorageKey)
		if err != nil {
			logSideEffect("transaction service: presign failed", err)
			continue
		}
		unified[i].DownloadURL = url
	}

	return unified, nil
}

func (s *TransactionService) loadWithAccess(ctx context.Context, transactionID, callerID uuid.UUID) (*models.Transaction, error) {
	tx, err := s.repo.GetByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return nil, apperror.ErrTransactionNotFound
		}
		return nil, err
	}
	if err := requireTransactionAccess(ctx, s.repo, tx, callerID); err != nil {
		return nil, err
	}
	return tx, nil
}

func (s *TransactionService) loadForBroker(ctx context.Context, transactionID, callerID uuid.UUID) (*models.Transaction, error) {
	tx, err := s.repo.GetByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return nil, apperror.ErrTransactionNotFound
		}
		return nil, err
	}
	if err := requireBrokerAccess(ctx, s.repo, tx, callerID); err != nil {
		return nil, err
	}
	return tx, nil
}

func (s *TransactionService) loadConditionForBroker(ctx context.Context, conditionID, callerID uuid.UUID) (*models.Condition, *models.Transaction, error) {
	condition, err := s.conditions.GetByID(ctx, conditionID)
	if err != nil {
		if errors.Is(err, repository.ErrConditionNotFound) {
			return nil, nil, apperror.ErrConditionNotFound
		}
		return nil, nil, err
	}

	tx, err := s.loadForBroker(ctx, condition.TransactionID, callerID)
	if err != nil {
		return nil, nil, err
	}

	return condition, tx, nil
}

func validateConditionTitle(conditionType string, customTitle *string) error {
	switch conditionType {
	case models.ConditionTypeFinancing, models.ConditionTypeInspection,
		models.ConditionTypeSaleOfProperty, models.ConditionTypeOther:
	default:
		return apperror.New(apperror.ErrCodeValidation, "unknown condition type")
	}

	if conditionType == models.ConditionTypeOther {
		if customTitle == nil || strings.TrimSpace(*customTitle) == "" {
			return apperror.New(apperror.ErrCodeValidation, "a custom title is required for OTHER conditions")
		}
	}
	return nil
}

func conditionTitle(condition *models.Condition) string {
	if condition.CustomTitle != nil && strings.TrimSpace(*condition.CustomTitle) != "" {
		return *condition.CustomTitle
	}
	return condition.Type
}

func stageBelongsToSide(side, stage string) bool {
	buyStages := []string{
		models.StageBuyerPrequalifyFinancially,
		models.StageBuyerPropertySearch,
		models.StageBuyerOfferNegotiation,
		models.StageBuyerConditions,
		models.StageBuyerClosing,
	}
	sellStages := []string{
		models.StageSellerPrepareListing,
		models.StageSellerActiveListing,
		models.StageSellerOfferNegotiation,
		models.StageSellerConditions,
		models.StageSellerClosing,
	}

	stages := buyStages
	if side == models.SideSell {
		stages = sellStages
	}
	for _, s := range stages {
		if s == stage {
			return true
		}
	}
	return false
}
