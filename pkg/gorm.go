package pkg

import (
	"fmt"

	"github.com/unitest-platform/exam-engine/internal/config"
	"github.com/unitest-platform/exam-engine/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDatabase(cfg *config.Config) (*gorm.DB, error) {
	var logLevel logger.LogLevel
	if cfg.IsDevelopment() {
		logLevel = logger.Info
	} else {
		logLevel = logger.Error
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		// Needed so repositories can test for gorm.ErrDuplicatedKey on
		// the one-active-attempt unique index.
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// Migrate creates the schema, including the partial unique index that
// enforces a single non-superseded attempt per student and test.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.TestDefinition{},
		&models.Question{},
		&models.AnswerOption{},
		&models.Attempt{},
		&models.Answer{},
		&models.OverrideRecord{},
	); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}

	if err := db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_attempts_active_student_test
		 ON attempts (student_id, test_id) WHERE superseded = false`,
	).Error; err != nil {
		return fmt.Errorf("create active attempt index failed: %w", err)
	}

	return nil
}
