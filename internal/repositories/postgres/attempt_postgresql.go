package postgres

import (
	"context"

	"github.com/unitest-platform/exam-engine/internal/models"
	"github.com/unitest-platform/exam-engine/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttemptPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{db: db}
}

// CreateIfAbsent relies on the partial unique index on
// (student_id, test_id) WHERE superseded = false: the losing side of a
// concurrent double-start sees a duplicate key error and reports created=false.
func (a *AttemptPostgreSQL) CreateIfAbsent(ctx context.Context, attempt *models.Attempt) (bool, error) {
	err := a.db.WithContext(ctx).Create(attempt).Error
	if err != nil {
		if repositories.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (a *AttemptPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := a.db.WithContext(ctx).Preload("Test").First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetByIDForUpdate(ctx context.Context, id uint) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := a.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&attempt, id).Error; err != nil {
		return nil, err
	}
	// Preloading under a row lock would lock the joined rows too; the test
	// definition is immutable, so load it separately.
	if err := a.db.WithContext(ctx).First(&attempt.Test, attempt.TestID).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetByStudentAndTest(ctx context.Context, studentID string, testID uint) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := a.db.WithContext(ctx).
		Where("student_id = ? AND test_id = ? AND superseded = ?", studentID, testID, false).
		Preload("Test").
		First(&attempt).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

// Update writes the attempt row only; the loaded Test association is
// read-only and must not be written back.
func (a *AttemptPostgreSQL) Update(ctx context.Context, attempt *models.Attempt) error {
	return a.db.WithContext(ctx).Omit(clause.Associations).Save(attempt).Error
}

func (a *AttemptPostgreSQL) Supersede(ctx context.Context, id uint) error {
	return a.db.WithContext(ctx).
		Model(&models.Attempt{}).
		Where("id = ?", id).
		Update("superseded", true).Error
}

func (a *AttemptPostgreSQL) ListByTest(ctx context.Context, testID uint, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	var attempts []*models.Attempt
	var total int64

	query := a.db.WithContext(ctx).Model(&models.Attempt{}).Where("test_id = ?", testID)
	query = a.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = a.applyPaginationAndSort(query, filters)
	if err := query.Preload("Test").Find(&attempts).Error; err != nil {
		return nil, 0, err
	}

	return attempts, total, nil
}

func (a *AttemptPostgreSQL) applyFilters(query *gorm.DB, filters repositories.AttemptFilters) *gorm.DB {
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.StudentID != nil {
		query = query.Where("student_id = ?", *filters.StudentID)
	}
	if !filters.IncludeSuperseded {
		query = query.Where("superseded = ?", false)
	}
	return query
}

func (a *AttemptPostgreSQL) applyPaginationAndSort(query *gorm.DB, filters repositories.AttemptFilters) *gorm.DB {
	sortBy := filters.SortBy
	switch sortBy {
	case "started_at", "finished_at", "accumulated_score":
	default:
		sortBy = "started_at"
	}
	order := "DESC"
	if filters.SortOrder == "asc" {
		order = "ASC"
	}
	query = query.Order(sortBy + " " + order)

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}
	return query
}
