package handlers

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/unitest-platform/exam-engine/internal/models"
	"github.com/unitest-platform/exam-engine/internal/services"
)

type HandlerManager struct {
	attemptHandler  *AttemptHandler
	overrideHandler *OverrideHandler
}

func NewHandlerManager(serviceManager services.ServiceManager, logger *slog.Logger) *HandlerManager {
	return &HandlerManager{
		attemptHandler:  NewAttemptHandler(serviceManager.Attempt(), logger),
		overrideHandler: NewOverrideHandler(serviceManager.Override(), logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	router.GET("/health", HealthCheck)

	v1 := router.Group("/api/v1")
	v1.Use(authMiddleware)
	{
		attempts := v1.Group("/attempts")
		{
			attempts.POST("/start", hm.attemptHandler.StartAttempt)
			attempts.GET("/:id/questions/:question_id", hm.attemptHandler.GetQuestion)
			attempts.POST("/:id/answers", hm.attemptHandler.SubmitAnswer)
			attempts.POST("/:id/finish", hm.attemptHandler.FinishAttempt)
			attempts.GET("/:id/time-remaining", hm.attemptHandler.RemainingTime)
			attempts.POST("/:id/intro-seen", hm.attemptHandler.MarkIntroSeen)
			attempts.GET("/:id/result", hm.attemptHandler.GetResult)

			// Staff operations
			attempts.POST("/:id/override",
				RequireRole(models.RoleController, models.RoleAdmin),
				hm.overrideHandler.ApplyOverride)
			attempts.GET("/:id/overrides",
				RequireRole(models.RoleTeacher, models.RoleController, models.RoleAdmin),
				hm.overrideHandler.GetOverrideHistory)
			attempts.POST("/:id/retake",
				RequireRole(models.RoleController, models.RoleAdmin),
				hm.attemptHandler.GrantRetake)
		}

		tests := v1.Group("/tests")
		{
			tests.GET("/:id/attempts",
				RequireRole(models.RoleTeacher, models.RoleController, models.RoleAdmin),
				hm.attemptHandler.ListAttempts)
		}
	}
}
