package handlers

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/h2non/filetype"

	"github.com/courtierpro/brokerage-backend/internal/dto"
	"github.com/courtierpro/brokerage-backend/internal/http/handlers/common"
	"github.com/courtierpro/brokerage-backend/internal/service"
)

// Allowed upload types for document submissions.
var allowedDocumentExtensions = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".heic": true,
	".doc":  true,
	".docx": true,
}

var allowedDocumentMimeTypes = map[string]bool{
	"application/pdf":    true,
	"image/jpeg":         true,
	"image/png":          true,
	"image/heif":         true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	// docx containers are detected as zip by magic bytes
	"application/zip": true,
}

// DocumentHandler provides the HTTP layer for the document workflow.
type DocumentHandler struct {
	documents *service.DocumentService
}

// NewDocumentHandler creates the handler.
func NewDocumentHandler(documents *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

// Create handles POST /transactions/:id/documents.
func (h *DocumentHandler) Create(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err)
		return
	}

	transactionID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.CreateDocumentRequest
	if !common.BindJSON(c, &req) {
		return
	}

	doc, err := h.documents.CreateDocument(c.Request.Context(), service.CreateDocumentInput{
		TransactionID:     transactionID,
		DocType:           req.DocType,
		CustomTitle:       req.CustomTitle,
		Flow:              req.Flow,
		ExpectedFrom:      req.ExpectedFrom,
		VisibleToClient:   req.VisibleToClient,
		Stage:             req.Stage,
		RequiresSignature: req.RequiresSignature,
		DueDate:           req.DueDate,
		AsDraft:           req.AsDraft,
	}, userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, doc)
}

// SendRequest handles POST /documents/:id/send.
func (h *DocumentHandler) SendRequest(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err)
		return
	}

	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	doc, err := h.documents.SendDocumentRequest(c.Request.Context(), id, userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

// Share handles POST /documents/:id/share.
func (h *DocumentHandler) Share(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err)
		return
	}

	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	doc, err := h.documents.ShareDocumentWithClient(c.Request.Context(), id, userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

// Submit handles POST /transactions/:id/documents/:documentId/submit.
// The file arrives as multipart form data under the "file" field.
func (h *DocumentHandler) Submit(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err)
		return
	}

	transactionID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	documentID, ok := common.ParseUUIDParam(c, "documentId")
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
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: fmt.Sprintf("unsupported file extension %s", ext),
		})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
		return
	}
	defer src.Close()

	// Check the magic bytes, not just the extension.
	buffer := make([]byte, 512)
	n, err := src.Read(buffer)
	if err != nil && err != io.EOF {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "could not read the file"})
		return
	}

	kind, err := filetype.Match(buffer[:n])
	if err != nil || kind == filetype.Unknown || !allowedDocumentMimeTypes[kind.MIME.Value] {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "unsupported file type"})
		return
	}

	if seeker, ok := src.(io.Seeker); ok {
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "could not rewind the file"})
			return
		}
	}

	doc, err := h.documents.SubmitDocument(c.Request.Context(), documentID, service.SubmitDocumentInput{
		TransactionID: transactionID,
		FileName:      file.Filename,
		File:          src,
	}, userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

// Review handles PUT /documents/:id/review.
func (h *DocumentHandler) Review(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err)
		return
	}

	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.ReviewDocumentRequest
	if !common.BindJSON(c, &req) {
		return
	}

	doc, err := h.documents.ReviewDocument(c.Request.Context(), id, service.ReviewDocumentInput{
		Decision: req.Decision,
		Comments: req.Comments,
	}, userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

// Update handles PUT /documents/:id.
func (h *DocumentHandler) Update(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err)
		return
	}

	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateDocumentRequest
	if !common.BindJSON(c, &req) {
		return
	}

	doc, err := h.documents.UpdateDocument(c.Request.Context(), id, service.UpdateDocumentInput{
		DocType:           req.DocType,
		CustomTitle:       req.CustomTitle,
		ExpectedFrom:      req.ExpectedFrom,
		VisibleToClient:   req.VisibleToClient,
		Stage:             req.Stage,
		RequiresSignature: req.RequiresSignature,
		DueDate:           req.DueDate,
	}, userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

// Delete handles DELETE /documents/:id.
func (h *DocumentHandler) Delete(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err)
		return
	}

	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.documents.DeleteDocument(c.Request.Context(), id, userID); err != nil {
		common.RespondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Get handles GET /documents/:id.
func (h *DocumentHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err)
		return
	}

	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	doc, err := h.documents.GetDocument(c.Request.Context(), id, userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

// ListByTransaction handles GET /transactions/:id/documents.
func (h *DocumentHandler) ListByTransaction(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err)
		return
	}

	transactionID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	docs, err := h.documents.ListDocuments(c.Request.Context(), transactionID, userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, docs)
}

// DownloadVersion handles GET /documents/:id/versions/:versionId/download.
// Responds with a short-lived presigned URL rather than the file itself.
func (h *DocumentHandler) DownloadVersion(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err)
		return
	}

	documentID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	versionID, ok := common.ParseUUIDParam(c, "versionId")
	if !ok {
		return
	}

	url, err := h.documents.GetVersionDownloadURL(c.Request.Context(), documentID, versionID, userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"download_url": url})
}

// GetChecklist handles GET /transactions/:id/checklist.
func (h *DocumentHandler) GetChecklist(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err)
		return
	}

	transactionID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	items, err := h.documents.GetStageChecklist(c.Request.Context(), transactionID, userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, items)
}

// SetChecklistState handles PUT /transactions/:id/checklist.
func (h *DocumentHandler) SetChecklistState(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err)
		return
	}

	transactionID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.SetChecklistStateRequest
	if !common.BindJSON(c, &req) {
		return
	}

	if err := h.documents.SetChecklistManualState(c.Request.Context(), transactionID, req.ItemKey, req.Checked, userID); err != nil {
		common.RespondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
