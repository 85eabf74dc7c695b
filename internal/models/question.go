package models

import (
	"time"

	"gorm.io/gorm"
)

type QuestionType string

const (
	QuestionSingle QuestionType = "single" // exactly one correct option
	QuestionMulti  QuestionType = "multi"  // two or more correct options
)

// Question belongs to the external question bank. The engine reads it to
// deliver text/options and to score submissions; it never mutates it.
type Question struct {
	ID   uint         `json:"id" gorm:"primaryKey"`
	Text string       `json:"text" gorm:"not null;type:text" validate:"required"`
	Type QuestionType `json:"type" gorm:"not null;size:10" validate:"required,oneof=single multi"`

	CreatedBy string         `json:"created_by" gorm:"size:255;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Options []AnswerOption `json:"options" gorm:"foreignKey:QuestionID"`
}

func (Question) TableName() string {
	return "questions"
}

// CorrectOptionIDs returns the IDs of the correct options as a set.
func (q *Question) CorrectOptionIDs() map[uint]struct{} {
	correct := make(map[uint]struct{})
	for _, opt := range q.Options {
		if opt.IsCorrect {
			correct[opt.ID] = struct{}{}
		}
	}
	return correct
}

// HasOption reports whether the given option belongs to this question.
func (q *Question) HasOption(optionID uint) bool {
	for _, opt := range q.Options {
		if opt.ID == optionID {
			return true
		}
	}
	return false
}

type AnswerOption struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	QuestionID uint   `json:"question_id" gorm:"not null;index"`
	Text       string `json:"text" gorm:"not null;type:text" validate:"required"`
	IsCorrect  bool   `json:"is_correct" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at"`
}

func (AnswerOption) TableName() string {
	return "answer_options"
}
