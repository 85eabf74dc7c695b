package models

import (
	"time"

	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
)

// Attempt is one student's single timed run through a test's question pool.
// At most one non-superseded attempt exists per (student, test); the retake
// workflow marks the old attempt superseded before a fresh one is created.
type Attempt struct {
	ID        uint          `json:"id" gorm:"primaryKey"`
	StudentID string        `json:"student_id" gorm:"not null;size:255;index:idx_attempts_student_test"`
	TestID    uint          `json:"test_id" gorm:"not null;index:idx_attempts_student_test"`
	Status    AttemptStatus `json:"status" gorm:"not null;default:in_progress;index"`

	StartedAt  time.Time  `json:"started_at" gorm:"not null"`
	FinishedAt *time.Time `json:"finished_at"`

	// Permutation of the test's frozen pool, fixed at creation and never
	// recomputed, even across repeated start calls.
	PresentationOrder datatypes.JSONSlice[uint] `json:"presentation_order" gorm:"type:jsonb"`

	// Raw score computed by the scorer. Overrides never mutate this.
	AccumulatedScore float64 `json:"accumulated_score" gorm:"default:0"`

	// Shadow fields set by the override ledger.
	OverriddenScore *float64 `json:"overridden_score"`
	PassOverride    bool     `json:"pass_override" gorm:"default:false"`

	IntroSeen  bool `json:"intro_seen" gorm:"default:false"`
	Superseded bool `json:"superseded" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Test    TestDefinition `json:"test" gorm:"foreignKey:TestID"`
	Answers []Answer       `json:"answers" gorm:"foreignKey:AttemptID"`
}

func (Attempt) TableName() string {
	return "attempts"
}

// Deadline is the deterministic expiry boundary, always recomputed from the
// stored start time. A request arriving exactly at the boundary is expired.
func (a *Attempt) Deadline(duration time.Duration) time.Time {
	return a.StartedAt.Add(duration)
}

func (a *Attempt) ExpiredAt(duration time.Duration, now time.Time) bool {
	return !now.Before(a.Deadline(duration))
}

func (a *Attempt) IsOverridden() bool {
	return a.OverriddenScore != nil || a.PassOverride
}

// EffectiveScore is the overridden score when set, else the raw score.
func (a *Attempt) EffectiveScore() float64 {
	if a.OverriddenScore != nil {
		return *a.OverriddenScore
	}
	return a.AccumulatedScore
}

// EffectivePassed applies the override > percent-threshold > fallback
// precedence. The degenerate fallback covers tests with a missing total.
func (a *Attempt) EffectivePassed(test *TestDefinition) bool {
	if a.PassOverride {
		return true
	}
	if test != nil && test.TotalScore > 0 {
		percent := a.EffectiveScore() / float64(test.TotalScore) * 100
		return percent >= test.PassPercent
	}
	return a.EffectiveScore() > 0
}

// Answer records a student's latest submission for one question within an
// attempt. (attempt_id, question_id) is unique; resubmission replaces it.
type Answer struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	AttemptID  uint `json:"attempt_id" gorm:"not null;uniqueIndex:idx_answers_attempt_question"`
	QuestionID uint `json:"question_id" gorm:"not null;uniqueIndex:idx_answers_attempt_question"`

	SelectedOptionIDs datatypes.JSONSlice[uint] `json:"selected_option_ids" gorm:"type:jsonb"`
	IsCorrect         bool                      `json:"is_correct" gorm:"default:false"`
	Score             float64                   `json:"score" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Answer) TableName() string {
	return "answers"
}
