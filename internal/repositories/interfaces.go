package repositories

import (
	"context"

	"github.com/unitest-platform/exam-engine/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type AttemptFilters struct {
	Status            models.AttemptStatus `json:"status"`
	StudentID         *string              `json:"student_id"`
	IncludeSuperseded bool                 `json:"include_superseded"`
	Limit             int                  `json:"limit"`
	Offset            int                  `json:"offset"`
	SortBy            string               `json:"sort_by"`    // "started_at", "finished_at", "accumulated_score"
	SortOrder         string               `json:"sort_order"` // "asc", "desc"
}

// AttemptCounts summarizes the recorded answers of one attempt.
type AttemptCounts struct {
	Answered int64 `json:"answered"`
	Correct  int64 `json:"correct"`
}

// ===== REPOSITORY INTERFACES =====

type TestRepository interface {
	Create(ctx context.Context, test *models.TestDefinition) error
	GetByID(ctx context.Context, id uint) (*models.TestDefinition, error)
}

type QuestionRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Question, error) // options preloaded
	GetByIDs(ctx context.Context, ids []uint) ([]*models.Question, error)
}

type AttemptRepository interface {
	// CreateIfAbsent inserts the attempt unless a non-superseded attempt for
	// the same (student, test) already exists. Returns false without error
	// when the row was not inserted; the caller observes the winner via
	// GetByStudentAndTest.
	CreateIfAbsent(ctx context.Context, attempt *models.Attempt) (bool, error)

	GetByID(ctx context.Context, id uint) (*models.Attempt, error)
	// GetByIDForUpdate takes a row lock; only meaningful inside WithTx.
	GetByIDForUpdate(ctx context.Context, id uint) (*models.Attempt, error)
	GetByStudentAndTest(ctx context.Context, studentID string, testID uint) (*models.Attempt, error)

	Update(ctx context.Context, attempt *models.Attempt) error
	Supersede(ctx context.Context, id uint) error

	ListByTest(ctx context.Context, testID uint, filters AttemptFilters) ([]*models.Attempt, int64, error)
}

type AnswerRepository interface {
	// Upsert inserts or replaces the answer row for (attempt_id, question_id)
	// atomically, so duplicate concurrent submissions cannot produce two rows.
	Upsert(ctx context.Context, answer *models.Answer) error

	GetByAttempt(ctx context.Context, attemptID uint) ([]*models.Answer, error)
	SumScore(ctx context.Context, attemptID uint) (float64, error)
	Counts(ctx context.Context, attemptID uint) (*AttemptCounts, error)
}

type OverrideRepository interface {
	Create(ctx context.Context, record *models.OverrideRecord) error
	// ListByAttempt returns records newest-first for audit display.
	ListByAttempt(ctx context.Context, attemptID uint) ([]*models.OverrideRecord, error)
}

// Repository aggregates all entity repositories. WithTx runs fn inside one
// transaction; the Repository handed to fn is bound to that transaction so
// state-machine invariants hold as if executed atomically.
type Repository interface {
	Test() TestRepository
	Question() QuestionRepository
	Attempt() AttemptRepository
	Answer() AnswerRepository
	Override() OverrideRepository

	WithTx(ctx context.Context, fn func(Repository) error) error
}
