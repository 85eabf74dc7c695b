package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/unitest-platform/exam-engine/internal/models"
	"github.com/unitest-platform/exam-engine/internal/repositories"
	"github.com/unitest-platform/exam-engine/internal/services"
)

// AttemptHandler exposes the attempt lifecycle over HTTP
type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
}

func NewAttemptHandler(attemptService services.AttemptService, logger *slog.Logger) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
	}
}

// StartAttempt creates a new attempt for the caller, or resumes the active
// one. POST /api/v1/attempts/start
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	studentID, ok := requireUser(c)
	if !ok {
		return
	}

	var req services.StartAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.LogError(c, err, "Invalid request body for start attempt")
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request body",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Starting attempt", "test_id", req.TestID)

	attempt, err := h.attemptService.Start(c.Request.Context(), &req, studentID)
	if err != nil {
		h.LogError(c, err, "Failed to start attempt", "test_id", req.TestID)
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse{
		Message: "Attempt started",
		Data:    attempt,
	})
}

// GetQuestion returns one question of the attempt with options in the
// caller's presentation order and without correctness flags.
// GET /api/v1/attempts/:id/questions/:question_id
func (h *AttemptHandler) GetQuestion(c *gin.Context) {
	studentID, ok := requireUser(c)
	if !ok {
		return
	}
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}
	questionID := h.parseIDParam(c, "question_id")
	if questionID == 0 {
		return
	}

	question, err := h.attemptService.GetQuestion(c.Request.Context(), attemptID, questionID, studentID)
	if err != nil {
		h.LogError(c, err, "Failed to get question", "attempt_id", attemptID, "question_id", questionID)
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Question retrieved",
		Data:    question,
	})
}

// SubmitAnswer records (or replaces) the caller's answer to one question.
// POST /api/v1/attempts/:id/answers
func (h *AttemptHandler) SubmitAnswer(c *gin.Context) {
	studentID, ok := requireUser(c)
	if !ok {
		return
	}
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}

	var req services.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.LogError(c, err, "Invalid request body for submit answer")
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request body",
			Details: err.Error(),
		})
		return
	}

	result, err := h.attemptService.SubmitAnswer(c.Request.Context(), attemptID, &req, studentID)
	if err != nil {
		h.LogError(c, err, "Failed to submit answer", "attempt_id", attemptID, "question_id", req.QuestionID)
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Answer recorded",
		Data:    result,
	})
}

// FinishAttempt finalizes the attempt and returns the result summary.
// POST /api/v1/attempts/:id/finish
func (h *AttemptHandler) FinishAttempt(c *gin.Context) {
	studentID, ok := requireUser(c)
	if !ok {
		return
	}
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}

	h.LogRequest(c, "Finishing attempt", "attempt_id", attemptID)

	result, err := h.attemptService.Finish(c.Request.Context(), attemptID, studentID)
	if err != nil {
		h.LogError(c, err, "Failed to finish attempt", "attempt_id", attemptID)
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Attempt finished",
		Data:    result,
	})
}

// RemainingTime reports whole seconds left on the attempt clock.
// GET /api/v1/attempts/:id/time-remaining
func (h *AttemptHandler) RemainingTime(c *gin.Context) {
	studentID, ok := requireUser(c)
	if !ok {
		return
	}
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}

	seconds, err := h.attemptService.RemainingTime(c.Request.Context(), attemptID, studentID)
	if err != nil {
		h.LogError(c, err, "Failed to get remaining time", "attempt_id", attemptID)
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Time remaining",
		Data:    gin.H{"attempt_id": attemptID, "remaining_seconds": seconds},
	})
}

// MarkIntroSeen records that the caller has watched the intro material.
// POST /api/v1/attempts/:id/intro-seen
func (h *AttemptHandler) MarkIntroSeen(c *gin.Context) {
	studentID, ok := requireUser(c)
	if !ok {
		return
	}
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}

	if err := h.attemptService.MarkIntroSeen(c.Request.Context(), attemptID, studentID); err != nil {
		h.LogError(c, err, "Failed to mark intro seen", "attempt_id", attemptID)
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Intro marked as seen"})
}

// GetResult returns the scored outcome of an attempt. Students see only
// their own attempts; staff roles see any.
// GET /api/v1/attempts/:id/result
func (h *AttemptHandler) GetResult(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}

	result, err := h.attemptService.Result(c.Request.Context(), attemptID, userID, currentUserRole(c))
	if err != nil {
		h.LogError(c, err, "Failed to get attempt result", "attempt_id", attemptID)
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Result retrieved",
		Data:    result,
	})
}

// ListAttempts returns attempt results for one test, staff only.
// GET /api/v1/tests/:id/attempts
func (h *AttemptHandler) ListAttempts(c *gin.Context) {
	if _, ok := requireUser(c); !ok {
		return
	}
	testID := h.parseIDParam(c, "id")
	if testID == 0 {
		return
	}

	filters := h.parseAttemptFilters(c)

	results, total, err := h.attemptService.ListByTest(c.Request.Context(), testID, filters, currentUserRole(c))
	if err != nil {
		h.LogError(c, err, "Failed to list attempts", "test_id", testID)
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Attempts retrieved",
		Data: gin.H{
			"attempts": results,
			"total":    total,
			"limit":    filters.Limit,
			"offset":   filters.Offset,
		},
	})
}

// GrantRetake supersedes a completed attempt so the student may start anew.
// POST /api/v1/attempts/:id/retake
func (h *AttemptHandler) GrantRetake(c *gin.Context) {
	actorID, ok := requireUser(c)
	if !ok {
		return
	}
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}

	h.LogRequest(c, "Granting retake", "attempt_id", attemptID)

	if err := h.attemptService.GrantRetake(c.Request.Context(), attemptID, actorID, currentUserRole(c)); err != nil {
		h.LogError(c, err, "Failed to grant retake", "attempt_id", attemptID)
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Retake granted"})
}

func (h *AttemptHandler) parseAttemptFilters(c *gin.Context) repositories.AttemptFilters {
	filters := repositories.AttemptFilters{
		Status:    models.AttemptStatus(c.Query("status")),
		SortBy:    c.DefaultQuery("sort_by", "started_at"),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
	}

	if studentID := c.Query("student_id"); studentID != "" {
		filters.StudentID = &studentID
	}
	if c.Query("include_superseded") == "true" {
		filters.IncludeSuperseded = true
	}

	filters.Limit = 50
	if limitStr := c.Query("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit <= 200 {
			filters.Limit = limit
		}
	}
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filters.Offset = offset
		}
	}

	return filters
}
