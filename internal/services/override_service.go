package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/unitest-platform/exam-engine/internal/clock"
	"github.com/unitest-platform/exam-engine/internal/events"
	"github.com/unitest-platform/exam-engine/internal/models"
	"github.com/unitest-platform/exam-engine/internal/repositories"
	"github.com/unitest-platform/exam-engine/internal/utils"
)

type overrideService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *utils.Validator
	clock     clock.Clock
	publisher events.EventPublisher
}

func NewOverrideService(
	repo repositories.Repository,
	logger *slog.Logger,
	validator *utils.Validator,
	clk clock.Clock,
	publisher events.EventPublisher,
) OverrideService {
	return &overrideService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		clock:     clk,
		publisher: publisher,
	}
}

// Apply appends exactly one ledger record and updates the attempt's shadow
// fields. The raw accumulated score is never touched, preserving forensic
// truth; a revert follows the identical write path with the raw/unforced
// target state.
func (s *overrideService) Apply(ctx context.Context, attemptID uint, req *ApplyOverrideRequest, actorID string, role models.UserRole) (*models.OverrideRecord, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Reason) == "" {
		return nil, ErrOverrideReasonRequired
	}
	if !role.CanOverride() {
		return nil, NewPermissionError(actorID, attemptID, "attempt", "override", "insufficient role")
	}

	var record *models.OverrideRecord
	var event *events.AttemptEvent

	err := s.repo.WithTx(ctx, func(tx repositories.Repository) error {
		attempt, err := tx.Attempt().GetByIDForUpdate(ctx, attemptID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAttemptNotFound
			}
			return fmt.Errorf("failed to get attempt: %w", err)
		}

		previousScore := attempt.OverriddenScore
		previousPass := attempt.PassOverride

		var newScore *float64
		var newPass bool
		switch req.ChangeType {
		case models.ChangeRevert:
			// Restore the raw, unforced state.
			newScore = nil
			newPass = false
		case models.ChangeOverride:
			newScore = req.NewScore
			if req.PassOverride != nil {
				newPass = *req.PassOverride
			}
		default:
			return ErrOverrideRejected
		}

		attempt.OverriddenScore = newScore
		attempt.PassOverride = newPass
		if err := tx.Attempt().Update(ctx, attempt); err != nil {
			return fmt.Errorf("failed to update attempt: %w", err)
		}

		record = &models.OverrideRecord{
			AttemptID:            attemptID,
			PreviousScore:        previousScore,
			NewScore:             newScore,
			PreviousPassOverride: previousPass,
			NewPassOverride:      newPass,
			Reason:               req.Reason,
			ChangeType:           req.ChangeType,
			ChangedBy:            actorID,
			CreatedAt:            s.clock.Now(),
		}
		if err := tx.Override().Create(ctx, record); err != nil {
			return fmt.Errorf("failed to append override record: %w", err)
		}

		event = events.NewAttemptEvent(events.EventScoreOverridden, attemptID, attempt.TestID, attempt.StudentID)
		score := attempt.EffectiveScore()
		passed := attempt.EffectivePassed(&attempt.Test)
		event.Score = &score
		event.Passed = &passed
		event.ChangedBy = actorID
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		if err := s.publisher.PublishAttemptEvent(ctx, event); err != nil {
			s.logger.Error("Failed to publish override event",
				"attempt_id", attemptID,
				"error", err)
		}
	}

	s.logger.Info("Override applied",
		"attempt_id", attemptID,
		"change_type", req.ChangeType,
		"changed_by", actorID)

	return record, nil
}

func (s *overrideService) History(ctx context.Context, attemptID uint, userID string, role models.UserRole) ([]*models.OverrideRecord, error) {
	if role == models.RoleStudent {
		return nil, NewPermissionError(userID, attemptID, "attempt", "view_overrides", "insufficient role")
	}

	if _, err := s.repo.Attempt().GetByID(ctx, attemptID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	records, err := s.repo.Override().ListByAttempt(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to list override records: %w", err)
	}
	return records, nil
}
