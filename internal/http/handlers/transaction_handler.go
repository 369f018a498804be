package handlers

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/courtierpro/brokerage-backend/internal/dto"
	"github.com/courtierpro/brokerage-backend/internal/http/handlers/common"
	"github.com/courtierpro/brokerage-backend/internal/service"
)

// TransactionHandler provides the HTTP layer for transactions, offers,
// properties and conditions.
type TransactionHandler struct {
	transactions *service.TransactionService
	timeline     *service.TimelineService
}

// NewTransactionHandler creates the handler.
func NewTransactionHandler(transactions *service.TransactionService, timeline *service.TimelineService) *TransactionHandler {
	return &TransactionHandler{transactions: transactions, timeline: timeline}
}

// Create handles POST /transactions.
func (h *TransactionHandler) Create(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err)
		return
	}

	var req dto.CreateTransactionRequest
	if !common.BindJSON(c, &req) {
		return
	}

	tx, err := h.transactions.CreateTransaction(c.Request.Context(), service.CreateTransactionInput{
		ClientID:        req.ClientID,
		Side:            req.Side,
		PropertyAddress: req.PropertyAddress,
	}, userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, tx)
}

// Get handles GET /transactions/:id.
func (h *TransactionHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err)
		return
	}

	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	tx, err := h.transactions.GetTransaction(c.Request.Context(), id, userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tx)
}

// ListMine handles GET /transactions.
func (h *TransactionHandler) ListMine(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err)
		return
	}

	items, err := h.transactions.ListTransactions(c.Request.Context(), userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, items)
}

// AddCoBroker handles POST /transactions/:id/co-brokers.
func (h *TransactionHandler) AddCoBroker(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err)
		return
	}

	transactionID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.AddCoBrokerRequest
	if !common.BindJSON(c, &req) {
		return
	}

	if err := h.transactions.AddCoBroker(c.Request.Context(), transactionID, req.BrokerID, userID); err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "co-broker added"})
}

// UpdateStage handles PUT /transactions/:id/stage.
func (h *TransactionHandler) UpdateStage(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err)
		return
	}

	transactionID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateStageRequest
	if !common.BindJSON(c, &req) {
		return
	}

	tx, err := h.transactions.UpdateStage(c.Request.Context(), transactionID, req.Stage, userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tx)
}

// ListTimeline handles GET /transactions/:id/timeline.
func (h *TransactionHandler) ListTimeline(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err)
		return
	}

	transactionID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	// Timeline visibility follows transaction access.
	if _, err := h.transactions.GetTransaction(c.Request.Context(), transactionID, userID); err != nil {
		common.RespondError(c, err)
		return
	}

	limit, offset := common.GetPagination(c)
	entries, err := h.timeline.ListEntries(c.Request.Context(), transactionID, limit, offset)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entries)
}

// AddOffer handles POST /transactions/:id/offers.
func (h *TransactionHandler) AddOffer(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err)
		return
	}

	transactionID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.AddOfferRequest
	if !common.BindJSON(c, &req) {
		return
	}

	offer, err := h.transactions.AddOffer(c.Request.Context(), transactionID, service.AddOfferInput{
		BuyerName:    req.BuyerName,
		OfferAmount:  req.OfferAmount,
		Status:       req.Status,
		Notes:        req.Notes,
		ConditionIDs: req.ConditionIDs,
	}, userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, offer)
}

// UpdateOffer handles PUT /offers/:id.
func (h *TransactionHandler) UpdateOffer(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err)
		return
	}

	offerID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateOfferRequest
	if !common.BindJSON(c, &req) {
		return
	}

	offer, err := h.transactions.UpdateOffer(c.Request.Context(), offerID, service.UpdateOfferInput{
		BuyerName:    req.BuyerName,
		OfferAmount:  req.OfferAmount,
		Status:       req.Status,
		Notes:        req.Notes,
		ConditionIDs: req.ConditionIDs,
	}, userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, offer)
}

// GetOffer handles GET /offers/:id.
func (h *TransactionHandler) GetOffer(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err)
		return
	}

	offerID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	offer, err := h.transactions.GetOffer(c.Request.Context(), offerID, userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, offer)
}

// ListOffers handles GET /transactions/:id/offers.
func (h *TransactionHandler) ListOffers(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err)
		return
	}

	transactionID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	offers, err := h.transactions.ListOffers(c.Request.Context(), transactionID, userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, offers)
}

// SubmitOfferDecision handles POST /offers/:id/decision.
func (h *TransactionHandler) SubmitOfferDecision(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err)
		return
	}

	offerID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.ClientOfferDecisionRequest
	if !common.BindJSON(c, &req) {
		return
	}

	offer, err := h.transactions.SubmitClientOfferDecision(c.Request.Context(), offerID, service.ClientOfferDecisionInput{
		Decision: req.Decision,
		Notes:    req.Notes,
	}, userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, offer)
}

// AddOfferAttachment handles POST /offers/:id/attachments.
func (h *TransactionHandler) AddOfferAttachment(c *gin.Context) {
	h.addAttachment(c, func(c *gin.Context, offerID uuid.UUID, input service.OfferAttachmentInput, userID uuid.UUID) (interface{}, error) {
		return h.transactions.AddOfferAttachment(c.Request.Context(), offerID, input, userID)
	})
}

// AddPropertyOfferAttachment handles POST /property-offers/:id/attachments.
func (h *TransactionHandler) AddPropertyOfferAttachment(c *gin.Context) {
	h.addAttachment(c, func(c *gin.Context, offerID uuid.UUID, input service.OfferAttachmentInput, userID uuid.UUID) (interface{}, error) {
		return h.transactions.AddPropertyOfferAttachment(c.Request.Context(), offerID, input, userID)
	})
}

func (h *TransactionHandler) addAttachment(c *gin.Context, attach func(*gin.Context, uuid.UUID, service.OfferAttachmentInput, uuid.UUID) (interface{}, error)) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err)
		return
	}

	parentID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "the file field is required"})
		return
	}

	if file.Size == 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "the file cannot be empty"})
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedDocumentExtensions[ext] {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "unsupported file extension " + ext})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
		return
	}
	defer src.Close()

	attachment, err := attach(c, parentID, service.OfferAttachmentInput{
		FileName: file.Filename,
		File:     src,
	}, userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, attachment)
}

// AddProperty handles POST /transactions/:id/properties.
func (h *TransactionHandler) AddProperty(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err)
		return
	}

	transactionID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.AddPropertyRequest
	if !common.BindJSON(c, &req) {
		return
	}

	property, err := h.transactions.AddProperty(c.Request.Context(), transactionID, service.AddPropertyInput{
		Address:   req.Address,
		ListPrice: req.ListPrice,
		Notes:     req.Notes,
	}, userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, property)
}

// ListProperties handles GET /transactions/:id/properties.
func (h *TransactionHandler) ListProperties(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err)
		return
	}

	transactionID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	properties, err := h.transactions.ListProperties(c.Request.Context(), transactionID, userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, properties)
}

// AddPropertyOffer handles POST /properties/:id/offers.
func (h *TransactionHandler) AddPropertyOffer(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err)
		return
	}

	propertyID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.AddPropertyOfferRequest
	if !common.BindJSON(c, &req) {
		return
	}

	offer, err := h.transactions.AddPropertyOffer(c.Request.Context(), propertyID, service.AddPropertyOfferInput{
		OfferAmount:  req.OfferAmount,
		ExpiryDate:   req.ExpiryDate,
		ConditionIDs: req.ConditionIDs,
	}, userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, offer)
}

// UpdatePropertyOffer handles PUT /property-offers/:id.
func (h *TransactionHandler) UpdatePropertyOffer(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err)
		return
	}

	offerID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdatePropertyOfferRequest
	if !common.BindJSON(c, &req) {
		return
	}

	offer, err := h.transactions.UpdatePropertyOffer(c.Request.Context(), offerID, service.UpdatePropertyOfferInput{
		OfferAmount:          req.OfferAmount,
		Status:               req.Status,
		CounterpartyResponse: req.CounterpartyResponse,
		ExpiryDate:           req.ExpiryDate,
		ConditionIDs:         req.ConditionIDs,
	}, userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, offer)
}

// ListPropertyOffers handles GET /properties/:id/offers.
func (h *TransactionHandler) ListPropertyOffers(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err)
		return
	}

	propertyID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	offers, err := h.transactions.ListPropertyOffers(c.Request.Context(), propertyID, userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, offers)
}

// AddCondition handles POST /transactions/:id/conditions.
func (h *TransactionHandler) AddCondition(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err)
		return
	}

	transactionID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.AddConditionRequest
	if !common.BindJSON(c, &req) {
		return
	}

	condition, err := h.transactions.AddCondition(c.Request.Context(), transactionID, service.AddConditionInput{
		Type:         req.Type,
		CustomTitle:  req.CustomTitle,
		Description:  req.Description,
		DeadlineDate: req.DeadlineDate,
		Notes:        req.Notes,
	}, userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, condition)
}

// UpdateCondition handles PUT /conditions/:id.
func (h *TransactionHandler) UpdateCondition(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err)
		return
	}

	conditionID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateConditionRequest
	if !common.BindJSON(c, &req) {
		return
	}

	condition, err := h.transactions.UpdateCondition(c.Request.Context(), conditionID, service.UpdateConditionInput{
		Type:         req.Type,
		CustomTitle:  req.CustomTitle,
		Description:  req.Description,
		DeadlineDate: req.DeadlineDate,
		Notes:        req.Notes,
	}, userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, condition)
}

// UpdateConditionStatus handles PUT /conditions/:id/status.
func (h *TransactionHandler) UpdateConditionStatus(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err)
		return
	}

	conditionID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateConditionStatusRequest
	if !common.BindJSON(c, &req) {
		return
	}

	condition, err := h.transactions.UpdateConditionStatus(c.Request.Context(), conditionID, req.Status, userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, condition)
}

// RemoveCondition handles DELETE /conditions/:id.
func (h *TransactionHandler) RemoveCondition(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err)
		return
	}

	conditionID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.transactions.RemoveCondition(c.Request.Context(), conditionID, userID); err != nil {
		common.RespondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListConditions handles GET /transactions/:id/conditions.
func (h *TransactionHandler) ListConditions(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err)
		return
	}

	transactionID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	conditions, err := h.transactions.ListConditions(c.Request.Context(), transactionID, userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, conditions)
}

// ListAllDocuments handles GET /transactions/:id/documents/all.
// Returns the merged view of workflow documents, their versions and
// offer attachments, newest first.
func (h *TransactionHandler) ListAllDocuments(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err)
		return
	}

	transactionID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	docs, err := h.transactions.GetAllTransactionDocuments(c.Request.Context(), transactionID, userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, docs)
}
