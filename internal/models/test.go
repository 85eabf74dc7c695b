package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TestDefinition is the frozen description of a gradable test. It is produced
// by the authoring flow and consumed read-only by the session engine.
type TestDefinition struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	Title       string  `json:"title" gorm:"not null;size:255" validate:"required,min=1,max=255"`
	SubjectRef  string  `json:"subject_ref" gorm:"size:255;index"` // opaque audience/subject reference
	Description *string `json:"description" gorm:"type:text"`

	QuestionCount   int     `json:"question_count" gorm:"not null" validate:"required,min=1"`
	TotalScore      int     `json:"total_score" gorm:"not null" validate:"required,min=1"`
	DurationSeconds int     `json:"duration_seconds" gorm:"not null" validate:"required,min=1"`
	PassPercent     float64 `json:"pass_percent" gorm:"not null;default:56" validate:"min=0,max=100"`

	// Shuffle configuration
	ShuffleQuestions  bool `json:"shuffle_questions" gorm:"default:true"`
	ShuffleOptions    bool `json:"shuffle_options" gorm:"default:true"`
	QuestionBlockSize int  `json:"question_block_size" gorm:"default:0" validate:"min=0"` // 0 = whole-list shuffle

	// Canonical pool, fixed at creation. Every attempt's presentation order
	// is a permutation of this list.
	FrozenQuestionIDs datatypes.JSONSlice[uint] `json:"frozen_question_ids" gorm:"type:jsonb"`

	IsPublished bool `json:"is_published" gorm:"default:true;index"`

	CreatedBy string         `json:"created_by" gorm:"size:255;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (TestDefinition) TableName() string {
	return "test_definitions"
}

func (t *TestDefinition) Duration() time.Duration {
	return time.Duration(t.DurationSeconds) * time.Second
}

// PerQuestionValue is the equal-weight point value of a single question.
// Fractional values are preserved, not rounded.
func (t *TestDefinition) PerQuestionValue() float64 {
	if t.QuestionCount == 0 {
		return 0
	}
	return float64(t.TotalScore) / float64(t.QuestionCount)
}
