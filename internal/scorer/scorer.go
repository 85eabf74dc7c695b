// Package scorer maps a student's selected options to correctness and points.
package scorer

import "github.com/unitest-platform/exam-engine/internal/models"

// Result is the outcome of scoring one answer.
type Result struct {
	IsCorrect bool
	Score     float64
}

// Score evaluates the selected option set against the question's correctness
// definition. There is no partial credit: single questions require exactly
// the one correct option, multi questions require the exact correct set.
// pointValue is the question's fixed per-question value.
func Score(question *models.Question, selectedOptionIDs []uint, pointValue float64) Result {
	correct := question.CorrectOptionIDs()
	selected := make(map[uint]struct{}, len(selectedOptionIDs))
	for _, id := range selectedOptionIDs {
		selected[id] = struct{}{}
	}

	var isCorrect bool
	switch question.Type {
	case models.QuestionSingle:
		isCorrect = len(selected) == 1 && setsEqual(selected, correct)
	case models.QuestionMulti:
		isCorrect = len(selected) > 0 && setsEqual(selected, correct)
	}

	if !isCorrect {
		return Result{IsCorrect: false, Score: 0}
	}
	return Result{IsCorrect: true, Score: pointValue}
}

func setsEqual(a, b map[uint]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if _, ok := b[id]; !ok {
			return false
		}
	}
	return true
}
