package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/unitest-platform/exam-engine/internal/models"
	"github.com/unitest-platform/exam-engine/internal/services"
)

// ===== COMMON RESPONSE STRUCTURES =====

// ErrorResponse represents an error response
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ===== BASE HANDLER =====

// BaseHandler provides logging and shared request plumbing for all handlers
type BaseHandler struct {
	logger *slog.Logger
}

func NewBaseHandler(logger *slog.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) LogRequest(c *gin.Context, message string, additionalFields ...any) {
	fields := []any{
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"remote_addr", c.ClientIP(),
		"request_id", c.GetHeader("X-Request-ID"),
		"user_id", currentUserID(c),
	}
	fields = append(fields, additionalFields...)
	h.logger.Info(message, fields...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, message string, additionalFields ...any) {
	fields := []any{
		"error", err,
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"request_id", c.GetHeader("X-Request-ID"),
		"user_id", currentUserID(c),
	}
	fields = append(fields, additionalFields...)
	h.logger.Error(message, fields...)
}

// parseIDParam parses a uint path parameter; on failure it writes the 400
// response itself and returns 0.
func (h *BaseHandler) parseIDParam(c *gin.Context, param string) uint {
	idStr := c.Param(param)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: "must be a positive integer",
		})
		return 0
	}
	return uint(id)
}

// handleServiceError maps each member of the engine's error taxonomy to a
// distinct status and machine code so the front end can distinguish "time's
// up" from "not your test".
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
			Code:    "VALIDATION_FAILED",
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Code:    "NOT_AUTHORIZED",
			Details: map[string]interface{}{
				"resource": permissionError.Resource,
				"action":   permissionError.Action,
				"reason":   permissionError.Reason,
			},
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrAttemptNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Attempt not found", Code: "NOT_FOUND"})
	case errors.Is(err, services.ErrTestNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Test not found", Code: "NOT_FOUND"})
	case errors.Is(err, services.ErrQuestionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Question not found", Code: "NOT_FOUND"})
	case errors.Is(err, services.ErrNotAuthorized):
		c.JSON(http.StatusForbidden, ErrorResponse{Message: "Access denied", Code: "NOT_AUTHORIZED"})
	case errors.Is(err, services.ErrAlreadyCompleted):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Attempt already completed", Code: "ALREADY_COMPLETED"})
	case errors.Is(err, services.ErrTimeExpired):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Attempt time has expired", Code: "TIME_EXPIRED"})
	case errors.Is(err, services.ErrInvalidAnswerShape):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Selected options do not match the question", Code: "INVALID_ANSWER_SHAPE"})
	case errors.Is(err, services.ErrInsufficientQuestionPool):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Message: "Test question pool smaller than declared question count", Code: "INSUFFICIENT_QUESTION_POOL"})
	case errors.Is(err, services.ErrOverrideReasonRequired), errors.Is(err, services.ErrOverrideRejected):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Override rejected", Details: err.Error(), Code: "OVERRIDE_REJECTED"})
	case errors.Is(err, services.ErrRetakeNotAllowed):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Retake requires a completed attempt", Code: "RETAKE_NOT_ALLOWED"})
	default:
		h.logger.Error("Unhandled service error", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Internal server error", Code: "INTERNAL"})
	}
}

// ===== CONTEXT HELPERS =====

func currentUserID(c *gin.Context) string {
	if v, exists := c.Get("user_id"); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

func currentUserRole(c *gin.Context) models.UserRole {
	if v, exists := c.Get("user_role"); exists {
		if role, ok := v.(models.UserRole); ok {
			return role
		}
	}
	return models.RoleStudent
}

// requireUser fetches the authenticated subject; on failure it writes the 401
// response itself and returns ok=false.
func requireUser(c *gin.Context) (string, bool) {
	userID := currentUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return "", false
	}
	return userID, true
}

// HealthCheck responds to liveness probes
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
