package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/courtierpro/brokerage-backend/internal/dto"
	"github.com/courtierpro/brokerage-backend/internal/http/handlers/common"
	"github.com/courtierpro/brokerage-backend/internal/service"
)

// AppointmentHandler provides the HTTP layer for appointment scheduling.
type AppointmentHandler struct {
	appointments *service.AppointmentService
}

// NewAppointmentHandler creates the handler.
func NewAppointmentHandler(appointments *service.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{appointments: appointments}
}

// Request handles POST /appointments.
func (h *AppointmentHandler) Request(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err)
		return
	}

	var req dto.RequestAppointmentRequest
	if !common.BindJSON(c, &req) {
		return
	}

	appt, err := h.appointments.RequestAppointment(c.Request.Context(), service.RequestAppointmentInput{
		TransactionID: req.TransactionID,
		Type:          req.Type,
		PropertyID:    req.PropertyID,
		FromTime:      req.FromTime,
		ToTime:        req.ToTime,
		Location:      req.Location,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		Notes:         req.Notes,
	}, userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, appt)
}

// Review handles PUT /appointments/:id/review.
func (h *AppointmentHandler) Review(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err)
		return
	}

	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.ReviewAppointmentRequest
	if !common.BindJSON(c, &req) {
		return
	}

	appt, err := h.appointments.ReviewAppointment(c.Request.Context(), id, service.ReviewAppointmentInput{
		Action:        req.Action,
		RefusalReason: req.RefusalReason,
		NewFromTime:   req.NewFromTime,
		NewToTime:     req.NewToTime,
	}, userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, appt)
}

// Cancel handles PUT /appointments/:id/cancel.
func (h *AppointmentHandler) Cancel(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err)
		return
	}

	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.CancelAppointmentRequest
	if !common.BindJSON(c, &req) {
		return
	}

	appt, err := h.appointments.CancelAppointment(c.Request.Context(), id, service.CancelAppointmentInput{
		Reason: req.Reason,
	}, userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, appt)
}

// Get handles GET /appointments/:id.
func (h *AppointmentHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err)
		return
	}

	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	appt, err := h.appointments.GetAppointment(c.Request.Context(), id, userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, appt)
}

// Delete handles DELETE /appointments/:id.
func (h *AppointmentHandler) Delete(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err)
		return
	}

	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.appointments.DeleteAppointment(c.Request.Context(), id, userID); err != nil {
		common.RespondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListMine handles GET /appointments.
func (h *AppointmentHandler) ListMine(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err)
		return
	}

	items, err := h.appointments.ListAppointments(c.Request.Context(), userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, items)
}

// ListByTransaction handles GET /transactions/:id/appointments.
func (h *AppointmentHandler) ListByTransaction(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err)
		return
	}

	transactionID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	items, err := h.appointments.ListByTransaction(c.Request.Context(), transactionID, userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, items)
}
