package services

import (
	"context"
	"time"

	"github.com/unitest-platform/exam-engine/internal/models"
	"github.com/unitest-platform/exam-engine/internal/repositories"
)

// ===== REQUEST STRUCTS =====

type StartAttemptRequest struct {
	TestID uint `json:"test_id" validate:"required"`
}

type SubmitAnswerRequest struct {
	QuestionID        uint   `json:"question_id" validate:"required"`
	SelectedOptionIDs []uint `json:"selected_option_ids" validate:"required,min=1"`
}

type ApplyOverrideRequest struct {
	NewScore     *float64                  `json:"new_score" validate:"omitempty,min=0"`
	PassOverride *bool                     `json:"pass_override"`
	Reason       string                    `json:"reason" validate:"required"`
	ChangeType   models.OverrideChangeType `json:"change_type" validate:"required,change_type"`
}

// ===== RESPONSE STRUCTS =====

type AttemptResponse struct {
	ID                uint                 `json:"id"`
	TestID            uint                 `json:"test_id"`
	StudentID         string               `json:"student_id"`
	Status            models.AttemptStatus `json:"status"`
	StartedAt         time.Time            `json:"started_at"`
	FinishedAt        *time.Time           `json:"finished_at,omitempty"`
	PresentationOrder []uint               `json:"presentation_order"`
	RemainingSeconds  int                  `json:"remaining_seconds"`
	IntroSeen         bool                 `json:"intro_seen"`
}

type OptionView struct {
	ID   uint   `json:"id"`
	Text string `json:"text"`
}

type QuestionResponse struct {
	ID      uint                `json:"id"`
	Text    string              `json:"text"`
	Type    models.QuestionType `json:"type"`
	Options []OptionView        `json:"options"`
}

type SubmitAnswerResponse struct {
	IsCorrect    bool    `json:"is_correct"`
	Score        float64 `json:"score"`
	RunningTotal float64 `json:"running_total"`
}

type FinishAttemptResponse struct {
	AttemptID  uint      `json:"attempt_id"`
	FinishedAt time.Time `json:"finished_at"`
	TotalScore float64   `json:"total_score"`
	Answered   int       `json:"answered"`
	Correct    int       `json:"correct"`
	Unanswered int       `json:"unanswered"`
	Passed     bool      `json:"passed"`
}

type AttemptResultResponse struct {
	AttemptID        uint                 `json:"attempt_id"`
	TestID           uint                 `json:"test_id"`
	StudentID        string               `json:"student_id"`
	Status           models.AttemptStatus `json:"status"`
	StartedAt        time.Time            `json:"started_at"`
	FinishedAt       *time.Time           `json:"finished_at,omitempty"`
	AccumulatedScore float64              `json:"accumulated_score"`
	EffectiveScore   float64              `json:"effective_score"`
	EffectivePassed  bool                 `json:"effective_passed"`
	IsOverridden     bool                 `json:"is_overridden"`
	Answered         int                  `json:"answered"`
	Correct          int                  `json:"correct"`
	Unanswered       int                  `json:"unanswered"`
}

// ===== SERVICE INTERFACES =====

// AttemptService owns the attempt state machine: creation with a persisted
// presentation order, time-gated answer submission, and finalization.
type AttemptService interface {
	Start(ctx context.Context, req *StartAttemptRequest, studentID string) (*AttemptResponse, error)
	GetQuestion(ctx context.Context, attemptID, questionID uint, studentID string) (*QuestionResponse, error)
	SubmitAnswer(ctx context.Context, attemptID uint, req *SubmitAnswerRequest, studentID string) (*SubmitAnswerResponse, error)
	Finish(ctx context.Context, attemptID uint, studentID string) (*FinishAttemptResponse, error)
	RemainingTime(ctx context.Context, attemptID uint, studentID string) (int, error)
	MarkIntroSeen(ctx context.Context, attemptID uint, studentID string) error

	Result(ctx context.Context, attemptID uint, userID string, role models.UserRole) (*AttemptResultResponse, error)
	ListByTest(ctx context.Context, testID uint, filters repositories.AttemptFilters, role models.UserRole) ([]*AttemptResultResponse, int64, error)
	GrantRetake(ctx context.Context, attemptID uint, actorID string, role models.UserRole) error
}

// OverrideService owns the append-only ledger of manual score corrections.
type OverrideService interface {
	Apply(ctx context.Context, attemptID uint, req *ApplyOverrideRequest, actorID string, role models.UserRole) (*models.OverrideRecord, error)
	History(ctx context.Context, attemptID uint, userID string, role models.UserRole) ([]*models.OverrideRecord, error)
}

type ServiceManager interface {
	Attempt() AttemptService
	Override() OverrideService
}
