package repositories

import (
	"errors"

	"gorm.io/gorm"
)

// IsNotFoundError checks if the error represents a missing row.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateKeyError checks if the error is a unique constraint violation.
// Requires the GORM error translator to be enabled on the connection.
func IsDuplicateKeyError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
