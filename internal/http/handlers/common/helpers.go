// Package common holds helpers shared by the HTTP handlers.
package common

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/courtierpro/brokerage-backend/internal/dto"
	"github.com/courtierpro/brokerage-backend/internal/http/middleware"
	"github.com/courtierpro/brokerage-backend/internal/logger"
	"github.com/courtierpro/brokerage-backend/internal/pkg/apperror"
)

// CurrentUserID extracts the authenticated user ID from the context.
func CurrentUserID(c *gin.Context) (uuid.UUID, error) {
	value, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return uuid.Nil, errors.New("authentication required")
	}

	userID, ok := value.(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, errors.New("invalid user identity")
	}

	return userID, nil
}

// CurrentUserRole extracts the authenticated user's role from the context.
func CurrentUserRole(c *gin.Context) string {
	value, exists := c.Get(middleware.ContextRoleKey)
	if !exists {
		return ""
	}

	role, _ := value.(string)
	return role
}

// ParseUUIDParam parses a UUID route parameter.
func ParseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "parameter " + name + " must be a valid UUID"})
		return uuid.Nil, false
	}
	return id, true
}

// BindJSON binds the request body and writes a 400 on failure.
func BindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return false
	}
	return true
}

// RespondError maps a service error to an HTTP response. Typed
// application errors keep their status and message; anything else is
// logged and masked as an internal error.
func RespondError(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus, dto.ErrorResponse{Error: appErr.Message})
		return
	}

	if logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{
			"error":  err.Error(),
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		}).Error("Unhandled request error")
	}
	c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
}

// RespondUnauthorized writes a 401 with the given error.
func RespondUnauthorized(c *gin.Context, err error) {
	c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: err.Error()})
}

// ParseIntQuery reads an integer query parameter with a fallback.
func ParseIntQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// GetPagination reads limit and offset query parameters. The limit is
// clamped to 100 and defaults to 20; the offset is never negative.
func GetPagination(c *gin.Context) (limit, offset int) {
	limit = ParseIntQuery(c, "limit", 20)
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	offset = ParseIntQuery(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
