package postgres

import (
	"context"

	"github.com/unitest-platform/exam-engine/internal/models"
	"github.com/unitest-platform/exam-engine/internal/repositories"
	"gorm.io/gorm"
)

type OverridePostgreSQL struct {
	db *gorm.DB
}

func NewOverridePostgreSQL(db *gorm.DB) repositories.OverrideRepository {
	return &OverridePostgreSQL{db: db}
}

// Create appends to the ledger. Records are never updated or deleted.
func (o *OverridePostgreSQL) Create(ctx context.Context, record *models.OverrideRecord) error {
	return o.db.WithContext(ctx).Create(record).Error
}

func (o *OverridePostgreSQL) ListByAttempt(ctx context.Context, attemptID uint) ([]*models.OverrideRecord, error) {
	var records []*models.OverrideRecord
	if err := o.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("created_at DESC, id DESC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
