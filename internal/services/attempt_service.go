package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/unitest-platform/exam-engine/internal/cache"
	"github.com/unitest-platform/exam-engine/internal/clock"
	"github.com/unitest-platform/exam-engine/internal/events"
	"github.com/unitest-platform/exam-engine/internal/models"
	"github.com/unitest-platform/exam-engine/internal/randomizer"
	"github.com/unitest-platform/exam-engine/internal/repositories"
	"github.com/unitest-platform/exam-engine/internal/scorer"
	"github.com/unitest-platform/exam-engine/internal/utils"
	"gorm.io/datatypes"
)

type attemptService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *utils.Validator
	clock     clock.Clock
	publisher events.EventPublisher
	cache     cache.CacheService
}

func NewAttemptService(
	repo repositories.Repository,
	logger *slog.Logger,
	validator *utils.Validator,
	clk clock.Clock,
	publisher events.EventPublisher,
	cacheService cache.CacheService,
) AttemptService {
	return &attemptService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		clock:     clk,
		publisher: publisher,
		cache:     cacheService,
	}
}

// ===== CORE ATTEMPT OPERATIONS =====

// Start creates the student's attempt for a test, or resumes the existing one
// unchanged. The presentation order is computed exactly once, on creation;
// repeated start calls must never produce a fresh permutation or a reset
// timer. A concurrent double-start resolves to exactly one attempt, with the
// loser observing and returning the winner's.
func (s *attemptService) Start(ctx context.Context, req *StartAttemptRequest, studentID string) (*AttemptResponse, error) {
	s.logger.Info("Starting attempt",
		"test_id", req.TestID,
		"student_id", studentID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	test, err := s.getTest(ctx, req.TestID)
	if err != nil {
		return nil, err
	}

	// Authoring-time defect surfaced here rather than mid-attempt.
	if len(test.FrozenQuestionIDs) < test.QuestionCount {
		return nil, ErrInsufficientQuestionPool
	}

	existing, err := s.repo.Attempt().GetByStudentAndTest(ctx, studentID, req.TestID)
	if err == nil {
		return s.resume(ctx, existing, test)
	}
	if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to look up attempt: %w", err)
	}

	order := randomizer.PresentationOrder(test.FrozenQuestionIDs, randomizer.Policy{
		ShuffleQuestions: test.ShuffleQuestions,
		ShuffleOptions:   test.ShuffleOptions,
		BlockSize:        test.QuestionBlockSize,
	}, rand.New(rand.NewSource(s.clock.Now().UnixNano())))

	attempt := &models.Attempt{
		StudentID:         studentID,
		TestID:            test.ID,
		Status:            models.AttemptInProgress,
		StartedAt:         s.clock.Now(),
		PresentationOrder: datatypes.NewJSONSlice(order),
	}

	created, err := s.repo.Attempt().CreateIfAbsent(ctx, attempt)
	if err != nil {
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}
	if !created {
		// Lost a double-start race; return the winner's attempt.
		winner, err := s.repo.Attempt().GetByStudentAndTest(ctx, studentID, req.TestID)
		if err != nil {
			return nil, fmt.Errorf("failed to load winning attempt: %w", err)
		}
		return s.resume(ctx, winner, test)
	}

	s.publish(ctx, events.NewAttemptEvent(events.EventAttemptStarted, attempt.ID, test.ID, studentID))

	s.logger.Info("Attempt started",
		"attempt_id", attempt.ID,
		"test_id", test.ID,
		"student_id", studentID)

	return s.buildAttemptResponse(attempt, test), nil
}

// SubmitAnswer records (or replaces) the student's answer for one question.
// The expiry boundary is checked inside the same transaction that writes the
// answer: a late submission completes the attempt at its deterministic
// deadline and is rejected with ErrTimeExpired, never silently processed.
func (s *attemptService) SubmitAnswer(ctx context.Context, attemptID uint, req *SubmitAnswerRequest, studentID string) (*SubmitAnswerResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var resp *SubmitAnswerResponse
	var expired *events.AttemptEvent

	err := s.repo.WithTx(ctx, func(tx repositories.Repository) error {
		attempt, err := tx.Attempt().GetByIDForUpdate(ctx, attemptID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAttemptNotFound
			}
			return fmt.Errorf("failed to get attempt: %w", err)
		}

		if attempt.StudentID != studentID {
			return NewPermissionError(studentID, attemptID, "attempt", "submit_answer", "not owned by student")
		}
		if attempt.Status != models.AttemptInProgress {
			return ErrAlreadyCompleted
		}

		test := &attempt.Test
		if attempt.ExpiredAt(test.Duration(), s.clock.Now()) {
			// Finalize at the deadline, not at detection time, then reject.
			// The transition must commit even though the answer is refused.
			if err := s.completeAt(ctx, tx, attempt, attempt.Deadline(test.Duration())); err != nil {
				return err
			}
			expired = s.completedEvent(attempt, test)
			return nil
		}

		if !containsQuestion(attempt.PresentationOrder, req.QuestionID) {
			return ErrInvalidAnswerShape
		}

		question, err := tx.Question().GetByID(ctx, req.QuestionID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrQuestionNotFound
			}
			return fmt.Errorf("failed to get question: %w", err)
		}
		for _, optionID := range req.SelectedOptionIDs {
			if !question.HasOption(optionID) {
				return ErrInvalidAnswerShape
			}
		}

		result := scorer.Score(question, req.SelectedOptionIDs, test.PerQuestionValue())

		answer := &models.Answer{
			AttemptID:         attemptID,
			QuestionID:        req.QuestionID,
			SelectedOptionIDs: datatypes.NewJSONSlice(req.SelectedOptionIDs),
			IsCorrect:         result.IsCorrect,
			Score:             result.Score,
		}
		if err := tx.Answer().Upsert(ctx, answer); err != nil {
			return fmt.Errorf("failed to upsert answer: %w", err)
		}

		// Full recompute, not incremental add, so resubmission replaces the
		// prior score instead of stacking on it.
		total, err := tx.Answer().SumScore(ctx, attemptID)
		if err != nil {
			return fmt.Errorf("failed to recompute score: %w", err)
		}
		attempt.AccumulatedScore = total
		if err := tx.Attempt().Update(ctx, attempt); err != nil {
			return fmt.Errorf("failed to update attempt: %w", err)
		}

		resp = &SubmitAnswerResponse{
			IsCorrect:    result.IsCorrect,
			Score:        result.Score,
			RunningTotal: total,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if expired != nil {
		s.publish(ctx, expired)
		return nil, ErrTimeExpired
	}

	s.logger.Info("Answer submitted",
		"attempt_id", attemptID,
		"question_id", req.QuestionID,
		"is_correct", resp.IsCorrect,
		"running_total", resp.RunningTotal)

	return resp, nil
}

// Finish closes the attempt. A finish call arriving after the time budget
// finalizes at startedAt + duration so late callers get no bonus time.
// Finishing an already-completed attempt returns the terminal snapshot.
func (s *attemptService) Finish(ctx context.Context, attemptID uint, studentID string) (*FinishAttemptResponse, error) {
	var resp *FinishAttemptResponse
	var completed *events.AttemptEvent

	err := s.repo.WithTx(ctx, func(tx repositories.Repository) error {
		attempt, err := tx.Attempt().GetByIDForUpdate(ctx, attemptID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAttemptNotFound
			}
			return fmt.Errorf("failed to get attempt: %w", err)
		}

		if attempt.StudentID != studentID {
			return NewPermissionError(studentID, attemptID, "attempt", "finish", "not owned by student")
		}

		test := &attempt.Test

		if attempt.Status != models.AttemptCompleted {
			finishedAt := s.clock.Now()
			if attempt.ExpiredAt(test.Duration(), finishedAt) {
				finishedAt = attempt.Deadline(test.Duration())
			}
			if err := s.completeAt(ctx, tx, attempt, finishedAt); err != nil {
				return err
			}
			completed = s.completedEvent(attempt, test)
		}

		counts, err := tx.Answer().Counts(ctx, attemptID)
		if err != nil {
			return fmt.Errorf("failed to count answers: %w", err)
		}

		resp = &FinishAttemptResponse{
			AttemptID:  attempt.ID,
			FinishedAt: *attempt.FinishedAt,
			TotalScore: attempt.AccumulatedScore,
			Answered:   int(counts.Answered),
			Correct:    int(counts.Correct),
			Unanswered: test.QuestionCount - int(counts.Answered),
			Passed:     attempt.EffectivePassed(test),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if completed != nil {
		s.publish(ctx, completed)
		s.logger.Info("Attempt finished",
			"attempt_id", attemptID,
			"total_score", resp.TotalScore,
			"passed", resp.Passed)
	}

	return resp, nil
}

// ===== INTERNAL HELPERS =====

// resume handles start re-entry: an in-progress attempt within its time
// budget is returned unchanged, an expired one is finalized first, and a
// completed one is rejected until a retake is granted.
func (s *attemptService) resume(ctx context.Context, attempt *models.Attempt, test *models.TestDefinition) (*AttemptResponse, error) {
	if attempt.Status == models.AttemptCompleted {
		return nil, ErrAlreadyCompleted
	}

	if attempt.ExpiredAt(test.Duration(), s.clock.Now()) {
		var completed *events.AttemptEvent
		err := s.repo.WithTx(ctx, func(tx repositories.Repository) error {
			locked, err := tx.Attempt().GetByIDForUpdate(ctx, attempt.ID)
			if err != nil {
				return fmt.Errorf("failed to get attempt: %w", err)
			}
			if locked.Status == models.AttemptCompleted {
				return nil
			}
			if err := s.completeAt(ctx, tx, locked, locked.Deadline(test.Duration())); err != nil {
				return err
			}
			completed = s.completedEvent(locked, test)
			return nil
		})
		if err != nil {
			return nil, err
		}
		if completed != nil {
			s.publish(ctx, completed)
		}
		return nil, ErrAlreadyCompleted
	}

	s.logger.Info("Resuming existing attempt", "attempt_id", attempt.ID)
	return s.buildAttemptResponse(attempt, test), nil
}

func (s *attemptService) completeAt(ctx context.Context, tx repositories.Repository, attempt *models.Attempt, finishedAt time.Time) error {
	attempt.Status = models.AttemptCompleted
	attempt.FinishedAt = &finishedAt
	if err := tx.Attempt().Update(ctx, attempt); err != nil {
		return fmt.Errorf("failed to complete attempt: %w", err)
	}
	return nil
}

func (s *attemptService) completedEvent(attempt *models.Attempt, test *models.TestDefinition) *events.AttemptEvent {
	event := events.NewAttemptEvent(events.EventAttemptCompleted, attempt.ID, attempt.TestID, attempt.StudentID)
	score := attempt.EffectiveScore()
	passed := attempt.EffectivePassed(test)
	event.Score = &score
	event.Passed = &passed
	return event
}

func (s *attemptService) publish(ctx context.Context, event *events.AttemptEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishAttemptEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish attempt event",
			"event_type", event.Type,
			"attempt_id", event.AttemptID,
			"error", err)
	}
}

func (s *attemptService) buildAttemptResponse(attempt *models.Attempt, test *models.TestDefinition) *AttemptResponse {
	return &AttemptResponse{
		ID:                attempt.ID,
		TestID:            attempt.TestID,
		StudentID:         attempt.StudentID,
		Status:            attempt.Status,
		StartedAt:         attempt.StartedAt,
		FinishedAt:        attempt.FinishedAt,
		PresentationOrder: attempt.PresentationOrder,
		RemainingSeconds:  s.remainingSeconds(attempt, test),
		IntroSeen:         attempt.IntroSeen,
	}
}

// remainingSeconds is always derived from stored startedAt + duration, never
// cached; the boundary instant itself counts as expired.
func (s *attemptService) remainingSeconds(attempt *models.Attempt, test *models.TestDefinition) int {
	if attempt.Status != models.AttemptInProgress {
		return 0
	}
	now := s.clock.Now()
	if attempt.ExpiredAt(test.Duration(), now) {
		return 0
	}
	return int(attempt.Deadline(test.Duration()).Sub(now).Seconds())
}

func containsQuestion(order []uint, questionID uint) bool {
	for _, id := range order {
		if id == questionID {
			return true
		}
	}
	return false
}
