package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/unitest-platform/exam-engine/internal/cache"
	"github.com/unitest-platform/exam-engine/internal/models"
	"github.com/unitest-platform/exam-engine/internal/randomizer"
	"github.com/unitest-platform/exam-engine/internal/repositories"
)

const testDefinitionCacheTTL = 10 * time.Minute

// ===== QUESTION DELIVERY =====

// GetQuestion delivers one question of the attempt with its options, shuffled
// stably per (attempt, question): repeated fetches within the attempt render
// the same order, while other attempts see independent shuffles.
func (s *attemptService) GetQuestion(ctx context.Context, attemptID, questionID uint, studentID string) (*QuestionResponse, error) {
	attempt, err := s.getAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.StudentID != studentID {
		return nil, NewPermissionError(studentID, attemptID, "attempt", "get_question", "not owned by student")
	}
	if !containsQuestion(attempt.PresentationOrder, questionID) {
		return nil, ErrInvalidAnswerShape
	}

	question, err := s.repo.Question().GetByID(ctx, questionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}

	optionIDs := make([]uint, len(question.Options))
	optionsByID := make(map[uint]models.AnswerOption, len(question.Options))
	for i, opt := range question.Options {
		optionIDs[i] = opt.ID
		optionsByID[opt.ID] = opt
	}

	order := randomizer.OptionOrder(attemptID, questionID, optionIDs, attempt.Test.ShuffleOptions)

	// Correctness markings never leave the engine.
	options := make([]OptionView, len(order))
	for i, id := range order {
		options[i] = OptionView{ID: id, Text: optionsByID[id].Text}
	}

	return &QuestionResponse{
		ID:      question.ID,
		Text:    question.Text,
		Type:    question.Type,
		Options: options,
	}, nil
}

// ===== TIME MANAGEMENT =====

func (s *attemptService) RemainingTime(ctx context.Context, attemptID uint, studentID string) (int, error) {
	attempt, err := s.getAttempt(ctx, attemptID)
	if err != nil {
		return 0, err
	}
	if attempt.StudentID != studentID {
		return 0, NewPermissionError(studentID, attemptID, "attempt", "remaining_time", "not owned by student")
	}
	return s.remainingSeconds(attempt, &attempt.Test), nil
}

// ===== INTRO GATING =====

// MarkIntroSeen records that the student watched the test's intro material.
// The flag lives on the attempt, not in session state, so it survives
// reloads and is scoped to exactly one run.
func (s *attemptService) MarkIntroSeen(ctx context.Context, attemptID uint, studentID string) error {
	return s.repo.WithTx(ctx, func(tx repositories.Repository) error {
		attempt, err := tx.Attempt().GetByIDForUpdate(ctx, attemptID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAttemptNotFound
			}
			return fmt.Errorf("failed to get attempt: %w", err)
		}
		if attempt.StudentID != studentID {
			return NewPermissionError(studentID, attemptID, "attempt", "mark_intro_seen", "not owned by student")
		}
		if attempt.IntroSeen {
			return nil
		}
		attempt.IntroSeen = true
		return tx.Attempt().Update(ctx, attempt)
	})
}

// ===== RESULTS =====

func (s *attemptService) Result(ctx context.Context, attemptID uint, userID string, role models.UserRole) (*AttemptResultResponse, error) {
	attempt, err := s.getAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.StudentID != userID && role == models.RoleStudent {
		return nil, NewPermissionError(userID, attemptID, "attempt", "view_result", "not owner or insufficient role")
	}

	counts, err := s.repo.Answer().Counts(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to count answers: %w", err)
	}

	return s.buildResultResponse(attempt, counts), nil
}

func (s *attemptService) ListByTest(ctx context.Context, testID uint, filters repositories.AttemptFilters, role models.UserRole) ([]*AttemptResultResponse, int64, error) {
	if role == models.RoleStudent {
		return nil, 0, NewPermissionError("", testID, "test", "list_attempts", "insufficient role")
	}

	attempts, total, err := s.repo.Attempt().ListByTest(ctx, testID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attempts: %w", err)
	}

	results := make([]*AttemptResultResponse, len(attempts))
	for i, attempt := range attempts {
		counts, err := s.repo.Answer().Counts(ctx, attempt.ID)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to count answers: %w", err)
		}
		results[i] = s.buildResultResponse(attempt, counts)
	}

	return results, total, nil
}

// ===== RETAKE WORKFLOW =====

// GrantRetake supersedes a completed attempt so the student may start a fresh
// one. The superseded attempt and its ledger stay queryable; the engine never
// silently allows double attempts.
func (s *attemptService) GrantRetake(ctx context.Context, attemptID uint, actorID string, role models.UserRole) error {
	if !role.CanGrantRetake() {
		return NewPermissionError(actorID, attemptID, "attempt", "grant_retake", "insufficient role")
	}

	return s.repo.WithTx(ctx, func(tx repositories.Repository) error {
		attempt, err := tx.Attempt().GetByIDForUpdate(ctx, attemptID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAttemptNotFound
			}
			return fmt.Errorf("failed to get attempt: %w", err)
		}
		if attempt.Status != models.AttemptCompleted {
			return ErrRetakeNotAllowed
		}
		if attempt.Superseded {
			return nil
		}
		if err := tx.Attempt().Supersede(ctx, attemptID); err != nil {
			return fmt.Errorf("failed to supersede attempt: %w", err)
		}
		s.logger.Info("Retake granted",
			"attempt_id", attemptID,
			"student_id", attempt.StudentID,
			"granted_by", actorID)
		return nil
	})
}

// ===== LOOKUPS =====

func (s *attemptService) getAttempt(ctx context.Context, attemptID uint) (*models.Attempt, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	return attempt, nil
}

// getTest reads through the Redis cache; test definitions are immutable
// during attempts, so a short TTL is safe.
func (s *attemptService) getTest(ctx context.Context, testID uint) (*models.TestDefinition, error) {
	key := fmt.Sprintf("exam:test_def:%d", testID)

	if s.cache != nil {
		var cached models.TestDefinition
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("Test definition cache read failed", "test_id", testID, "error", err)
		}
	}

	test, err := s.repo.Test().GetByID(ctx, testID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test definition: %w", err)
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, key, test, testDefinitionCacheTTL)
	}
	return test, nil
}

func (s *attemptService) buildResultResponse(attempt *models.Attempt, counts *repositories.AttemptCounts) *AttemptResultResponse {
	test := &attempt.Test
	return &AttemptResultResponse{
		AttemptID:        attempt.ID,
		TestID:           attempt.TestID,
		StudentID:        attempt.StudentID,
		Status:           attempt.Status,
		StartedAt:        attempt.StartedAt,
		FinishedAt:       attempt.FinishedAt,
		AccumulatedScore: attempt.AccumulatedScore,
		EffectiveScore:   attempt.EffectiveScore(),
		EffectivePassed:  attempt.EffectivePassed(test),
		IsOverridden:     attempt.IsOverridden(),
		Answered:         int(counts.Answered),
		Correct:          int(counts.Correct),
		Unanswered:       test.QuestionCount - int(counts.Answered),
	}
}
