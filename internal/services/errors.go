package services

import (
	"errors"
	"fmt"

	apperrors "github.com/unitest-platform/exam-engine/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrValidationFailed = errors.New("validation failed")
	ErrInternalError    = errors.New("internal server error")

	// Lookup errors
	ErrTestNotFound     = errors.New("test definition not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrAttemptNotFound  = errors.New("attempt not found")

	// Attempt lifecycle errors
	ErrNotAuthorized    = errors.New("not authorized for this attempt")
	ErrAlreadyCompleted = errors.New("attempt already completed")
	ErrTimeExpired      = errors.New("attempt time has expired")
	ErrAttemptNotActive = errors.New("attempt is not active")

	// Answer errors
	ErrInvalidAnswerShape = errors.New("selected options do not match the question")

	// Authoring defects surfaced at attempt creation
	ErrInsufficientQuestionPool = errors.New("test question pool smaller than declared question count")

	// Override errors
	ErrOverrideRejected       = errors.New("override rejected")
	ErrOverrideReasonRequired = errors.New("override reason is required")

	// Retake errors
	ErrRetakeNotAllowed = errors.New("retake requires a completed attempt")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

type PermissionError struct {
	UserID     string `json:"user_id"`
	ResourceID uint   `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func (pe *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %d - %s",
		pe.UserID, pe.Action, pe.Resource, pe.ResourceID, pe.Reason)
}

func (pe *PermissionError) Unwrap() error {
	return ErrNotAuthorized
}

// ===== ERROR HELPERS =====

func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTestNotFound) ||
		errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrAttemptNotFound)
}

// IsNotAuthorized checks if error represents an authorization failure
func IsNotAuthorized(err error) bool {
	return errors.Is(err, ErrNotAuthorized)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}

// IsConflict checks if error represents a state conflict on the attempt
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyCompleted) ||
		errors.Is(err, ErrTimeExpired) ||
		errors.Is(err, ErrAttemptNotActive)
}
