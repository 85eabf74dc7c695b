package postgres

import (
	"context"

	"github.com/unitest-platform/exam-engine/internal/models"
	"github.com/unitest-platform/exam-engine/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AnswerPostgreSQL struct {
	db *gorm.DB
}

func NewAnswerPostgreSQL(db *gorm.DB) repositories.AnswerRepository {
	return &AnswerPostgreSQL{db: db}
}

// Upsert is an atomic insert-or-replace keyed on (attempt_id, question_id).
// Last write wins; two concurrent submissions for the same question end up as
// one row regardless of interleaving.
func (a *AnswerPostgreSQL) Upsert(ctx context.Context, answer *models.Answer) error {
	return a.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"selected_option_ids", "is_correct", "score", "updated_at",
			}),
		}).
		Create(answer).Error
}

func (a *AnswerPostgreSQL) GetByAttempt(ctx context.Context, attemptID uint) ([]*models.Answer, error) {
	var answers []*models.Answer
	if err := a.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("question_id ASC").
		Find(&answers).Error; err != nil {
		return nil, err
	}
	return answers, nil
}

func (a *AnswerPostgreSQL) SumScore(ctx context.Context, attemptID uint) (float64, error) {
	var sum float64
	err := a.db.WithContext(ctx).
		Model(&models.Answer{}).
		Where("attempt_id = ?", attemptID).
		Select("COALESCE(SUM(score), 0)").
		Scan(&sum).Error
	return sum, err
}

func (a *AnswerPostgreSQL) Counts(ctx context.Context, attemptID uint) (*repositories.AttemptCounts, error) {
	var counts repositories.AttemptCounts

	if err := a.db.WithContext(ctx).
		Model(&models.Answer{}).
		Where("attempt_id = ?", attemptID).
		Count(&counts.Answered).Error; err != nil {
		return nil, err
	}

	if err := a.db.WithContext(ctx).
		Model(&models.Answer{}).
		Where("attempt_id = ? AND is_correct = ?", attemptID, true).
		Count(&counts.Correct).Error; err != nil {
		return nil, err
	}

	return &counts, nil
}
