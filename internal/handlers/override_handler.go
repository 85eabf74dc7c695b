package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/unitest-platform/exam-engine/internal/services"
)

// OverrideHandler exposes the manual score correction ledger over HTTP
type OverrideHandler struct {
	BaseHandler
	overrideService services.OverrideService
}

func NewOverrideHandler(overrideService services.OverrideService, logger *slog.Logger) *OverrideHandler {
	return &OverrideHandler{
		BaseHandler:     NewBaseHandler(logger),
		overrideService: overrideService,
	}
}

// ApplyOverride records a manual score or pass correction on an attempt.
// POST /api/v1/attempts/:id/override
func (h *OverrideHandler) ApplyOverride(c *gin.Context) {
	actorID, ok := requireUser(c)
	if !ok {
		return
	}
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}

	var req services.ApplyOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.LogError(c, err, "Invalid request body for override")
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request body",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Applying override", "attempt_id", attemptID, "change_type", req.ChangeType)

	record, err := h.overrideService.Apply(c.Request.Context(), attemptID, &req, actorID, currentUserRole(c))
	if err != nil {
		h.LogError(c, err, "Failed to apply override", "attempt_id", attemptID)
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse{
		Message: "Override applied",
		Data:    record,
	})
}

// GetOverrideHistory returns the override ledger of one attempt, newest
// first. GET /api/v1/attempts/:id/overrides
func (h *OverrideHandler) GetOverrideHistory(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}

	records, err := h.overrideService.History(c.Request.Context(), attemptID, userID, currentUserRole(c))
	if err != nil {
		h.LogError(c, err, "Failed to get override history", "attempt_id", attemptID)
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Override history retrieved",
		Data:    gin.H{"attempt_id": attemptID, "overrides": records, "total": len(records)},
	})
}
