package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unitest-platform/exam-engine/internal/events"
	"github.com/unitest-platform/exam-engine/internal/models"
	"github.com/unitest-platform/exam-engine/internal/utils"
)

type overrideEnv struct {
	attempts  AttemptService
	overrides OverrideService
	repo      *fakeRepository
	clock     *fakeClock
	publisher *events.MockEventPublisher
}

func newOverrideEnv(t *testing.T) *overrideEnv {
	t.Helper()
	repo := newFakeRepository()
	clk := newFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	publisher := events.NewMockEventPublisher(discardLogger())
	validator := utils.NewValidator()
	return &overrideEnv{
		attempts:  NewAttemptService(repo, discardLogger(), validator, clk, publisher, nil),
		overrides: NewOverrideService(repo, discardLogger(), validator, clk, publisher),
		repo:      repo,
		clock:     clk,
		publisher: publisher,
	}
}

// completedAttempt starts an attempt, answers two of four questions correctly
// and finishes it, leaving a raw score of 50.
func (e *overrideEnv) completedAttempt(t *testing.T) uint {
	t.Helper()
	ctx := context.Background()
	env := &attemptEnv{service: e.attempts, repo: e.repo, clock: e.clock, publisher: e.publisher}
	env.seedExam(t)

	attempt, err := e.attempts.Start(ctx, &StartAttemptRequest{TestID: 1}, "student-1")
	require.NoError(t, err)
	for q := uint(1); q <= 2; q++ {
		_, err := e.attempts.SubmitAnswer(ctx, attempt.ID, &SubmitAnswerRequest{
			QuestionID: q, SelectedOptionIDs: []uint{correctOption(q)},
		}, "student-1")
		require.NoError(t, err)
	}
	_, err = e.attempts.Finish(ctx, attempt.ID, "student-1")
	require.NoError(t, err)
	return attempt.ID
}

func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }

func TestApply_ScoreOverridePreservesRawScore(t *testing.T) {
	env := newOverrideEnv(t)
	attemptID := env.completedAttempt(t)
	ctx := context.Background()

	record, err := env.overrides.Apply(ctx, attemptID, &ApplyOverrideRequest{
		NewScore:   floatPtr(60),
		Reason:     "second marker disagreed on question 3",
		ChangeType: models.ChangeOverride,
	}, "controller-1", models.RoleController)
	require.NoError(t, err)

	assert.Nil(t, record.PreviousScore)
	require.NotNil(t, record.NewScore)
	assert.Equal(t, 60.0, *record.NewScore)
	assert.Equal(t, "controller-1", record.ChangedBy)

	attempt, err := env.repo.Attempt().GetByID(ctx, attemptID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, attempt.AccumulatedScore)
	assert.Equal(t, 60.0, attempt.EffectiveScore())
	assert.True(t, attempt.IsOverridden())
	assert.True(t, attempt.EffectivePassed(&attempt.Test)) // 60% >= 56%
}

func TestApply_ThenRevertRestoresRawState(t *testing.T) {
	env := newOverrideEnv(t)
	attemptID := env.completedAttempt(t)
	ctx := context.Background()

	_, err := env.overrides.Apply(ctx, attemptID, &ApplyOverrideRequest{
		NewScore:   floatPtr(80),
		Reason:     "regrade after appeal",
		ChangeType: models.ChangeOverride,
	}, "controller-1", models.RoleController)
	require.NoError(t, err)

	revert, err := env.overrides.Apply(ctx, attemptID, &ApplyOverrideRequest{
		Reason:     "appeal withdrawn",
		ChangeType: models.ChangeRevert,
	}, "controller-1", models.RoleController)
	require.NoError(t, err)

	require.NotNil(t, revert.PreviousScore)
	assert.Equal(t, 80.0, *revert.PreviousScore)
	assert.Nil(t, revert.NewScore)

	attempt, err := env.repo.Attempt().GetByID(ctx, attemptID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, attempt.EffectiveScore())
	assert.False(t, attempt.IsOverridden())

	// Both the override and the revert live in the ledger.
	history, err := env.overrides.History(ctx, attemptID, "teacher-1", models.RoleTeacher)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.ChangeRevert, history[0].ChangeType)
	assert.Equal(t, models.ChangeOverride, history[1].ChangeType)
}

func TestApply_PassOverrideWithoutScoreChange(t *testing.T) {
	// Medical exception: force a pass while keeping the failing score visible.
	env := newOverrideEnv(t)
	attemptID := env.completedAttempt(t)
	ctx := context.Background()

	_, err := env.overrides.Apply(ctx, attemptID, &ApplyOverrideRequest{
		PassOverride: boolPtr(true),
		Reason:       "documented medical exception",
		ChangeType:   models.ChangeOverride,
	}, "admin-1", models.RoleAdmin)
	require.NoError(t, err)

	attempt, err := env.repo.Attempt().GetByID(ctx, attemptID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, attempt.EffectiveScore())
	assert.True(t, attempt.EffectivePassed(&attempt.Test))
}

func TestApply_RejectsEmptyReason(t *testing.T) {
	env := newOverrideEnv(t)
	attemptID := env.completedAttempt(t)

	_, err := env.overrides.Apply(context.Background(), attemptID, &ApplyOverrideRequest{
		NewScore:   floatPtr(70),
		Reason:     "   ",
		ChangeType: models.ChangeOverride,
	}, "controller-1", models.RoleController)

	assert.ErrorIs(t, err, ErrOverrideReasonRequired)
}

func TestApply_RoleGating(t *testing.T) {
	env := newOverrideEnv(t)
	attemptID := env.completedAttempt(t)
	ctx := context.Background()

	req := &ApplyOverrideRequest{
		NewScore:   floatPtr(70),
		Reason:     "unauthorized tweak",
		ChangeType: models.ChangeOverride,
	}

	_, err := env.overrides.Apply(ctx, attemptID, req, "student-1", models.RoleStudent)
	assert.True(t, IsNotAuthorized(err))

	_, err = env.overrides.Apply(ctx, attemptID, req, "teacher-1", models.RoleTeacher)
	assert.True(t, IsNotAuthorized(err))
}

func TestApply_PublishesOverrideEvent(t *testing.T) {
	env := newOverrideEnv(t)
	attemptID := env.completedAttempt(t)
	env.publisher.ClearEvents()

	_, err := env.overrides.Apply(context.Background(), attemptID, &ApplyOverrideRequest{
		NewScore:   floatPtr(60),
		Reason:     "regrade",
		ChangeType: models.ChangeOverride,
	}, "controller-1", models.RoleController)
	require.NoError(t, err)

	published := env.publisher.GetPublishedEvents()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventScoreOverridden, published[0].Type)
	require.NotNil(t, published[0].Score)
	assert.Equal(t, 60.0, *published[0].Score)
	assert.Equal(t, "controller-1", published[0].ChangedBy)
}

func TestApply_UnknownAttempt(t *testing.T) {
	env := newOverrideEnv(t)
	env.completedAttempt(t)

	_, err := env.overrides.Apply(context.Background(), 404, &ApplyOverrideRequest{
		NewScore:   floatPtr(60),
		Reason:     "regrade",
		ChangeType: models.ChangeOverride,
	}, "controller-1", models.RoleController)

	assert.ErrorIs(t, err, ErrAttemptNotFound)
}

func TestHistory_StudentRejected(t *testing.T) {
	env := newOverrideEnv(t)
	attemptID := env.completedAttempt(t)

	_, err := env.overrides.History(context.Background(), attemptID, "student-1", models.RoleStudent)

	assert.True(t, IsNotAuthorized(err))
}
