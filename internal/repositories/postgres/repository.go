package postgres

import (
	"context"

	"github.com/unitest-platform/exam-engine/internal/repositories"
	"gorm.io/gorm"
)

type gormRepository struct {
	db *gorm.DB

	test     repositories.TestRepository
	question repositories.QuestionRepository
	attempt  repositories.AttemptRepository
	answer   repositories.AnswerRepository
	override repositories.OverrideRepository
}

// NewRepository builds the PostgreSQL-backed repository aggregate.
func NewRepository(db *gorm.DB) repositories.Repository {
	return &gormRepository{
		db:       db,
		test:     NewTestPostgreSQL(db),
		question: NewQuestionPostgreSQL(db),
		attempt:  NewAttemptPostgreSQL(db),
		answer:   NewAnswerPostgreSQL(db),
		override: NewOverridePostgreSQL(db),
	}
}

func (r *gormRepository) Test() repositories.TestRepository         { return r.test }
func (r *gormRepository) Question() repositories.QuestionRepository { return r.question }
func (r *gormRepository) Attempt() repositories.AttemptRepository   { return r.attempt }
func (r *gormRepository) Answer() repositories.AnswerRepository     { return r.answer }
func (r *gormRepository) Override() repositories.OverrideRepository { return r.override }

func (r *gormRepository) WithTx(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}
