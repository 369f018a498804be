package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/courtierpro/brokerage-backend/internal/dto"
	"github.com/courtierpro/brokerage-backend/internal/http/handlers/common"
	"github.com/courtierpro/brokerage-backend/internal/models"
	"github.com/courtierpro/brokerage-backend/internal/service"
)

// AuthHandler provides the HTTP layer for registration and login.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler creates the handler.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !common.BindJSON(c, &req) {
		return
	}

	if req.Role != "" && req.Role != models.RoleBroker && req.Role != models.RoleClient {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "role must be BROKER or CLIENT"})
		return
	}

	if len(strings.TrimSpace(req.Password)) < 8 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "password must be at least 8 characters"})
		return
	}

	user, tokens, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Email:             req.Email,
		Password:          req.Password,
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Role:              req.Role,
		PreferredLanguage: req.PreferredLanguage,
		Phone:             req.Phone,
	})
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.AuthResponse{User: user, Tokens: tokens})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !common.BindJSON(c, &req) {
		return
	}

	user, tokens, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.AuthResponse{User: user, Tokens: tokens})
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if !common.BindJSON(c, &req) {
		return
	}

	tokens, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}
