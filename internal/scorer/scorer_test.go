package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/unitest-platform/exam-engine/internal/models"
)

func singleQuestion() *models.Question {
	return &models.Question{
		ID:   1,
		Type: models.QuestionSingle,
		Options: []models.AnswerOption{
			{ID: 10, IsCorrect: false},
			{ID: 11, IsCorrect: true},
			{ID: 12, IsCorrect: false},
			{ID: 13, IsCorrect: false},
		},
	}
}

func multiQuestion() *models.Question {
	return &models.Question{
		ID:   2,
		Type: models.QuestionMulti,
		Options: []models.AnswerOption{
			{ID: 20, IsCorrect: true},
			{ID: 21, IsCorrect: false},
			{ID: 22, IsCorrect: true},
			{ID: 23, IsCorrect: false},
		},
	}
}

func TestScore_SingleChoice(t *testing.T) {
	tests := []struct {
		name      string
		selected  []uint
		isCorrect bool
	}{
		{"correct option", []uint{11}, true},
		{"wrong option", []uint{10}, false},
		{"two options on single question", []uint{10, 11}, false},
		{"no selection", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Score(singleQuestion(), tt.selected, 25.0)

			assert.Equal(t, tt.isCorrect, result.IsCorrect)
			if tt.isCorrect {
				assert.Equal(t, 25.0, result.Score)
			} else {
				assert.Zero(t, result.Score)
			}
		})
	}
}

func TestScore_MultiChoiceRequiresExactSet(t *testing.T) {
	tests := []struct {
		name      string
		selected  []uint
		isCorrect bool
	}{
		{"exact correct set", []uint{20, 22}, true},
		{"exact set in different order", []uint{22, 20}, true},
		{"subset gets no partial credit", []uint{20}, false},
		{"superset gets no partial credit", []uint{20, 22, 21}, false},
		{"disjoint wrong set", []uint{21, 23}, false},
		{"no selection", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Score(multiQuestion(), tt.selected, 12.5)

			assert.Equal(t, tt.isCorrect, result.IsCorrect)
			if tt.isCorrect {
				assert.Equal(t, 12.5, result.Score)
			} else {
				assert.Zero(t, result.Score)
			}
		})
	}
}

func TestScore_DuplicateSelectionsCollapse(t *testing.T) {
	// The same option id sent twice is one selection, not two.
	result := Score(singleQuestion(), []uint{11, 11}, 10.0)

	assert.True(t, result.IsCorrect)
	assert.Equal(t, 10.0, result.Score)
}

func TestScore_FractionalPointValuePreserved(t *testing.T) {
	// 100 points over 3 questions must not round.
	pointValue := 100.0 / 3.0

	result := Score(singleQuestion(), []uint{11}, pointValue)

	assert.InDelta(t, 33.3333, result.Score, 0.001)
}
