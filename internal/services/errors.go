package services

import (
	"errors"
	"fmt"

	apperrors "github.com/SAP-F-2025/result-review-service/internal/errors"
	"github.com/SAP-F-2025/result-review-service/internal/repositories"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrUnauthorized     = errors.New("unauthorized access")
	ErrForbidden        = errors.New("forbidden - insufficient permissions")
	ErrValidationFailed = errors.New("validation failed")
	ErrInternalError    = errors.New("internal server error")
	ErrConflict         = errors.New("resource conflict")

	// Review specific errors
	ErrResultNotFound         = errors.New("result not found")
	ErrInvalidStateTransition = errors.New("invalid approval status transition")
	ErrEmptySelection         = errors.New("no results selected")
	ErrResultAlreadyExists    = errors.New("result already exists")

	// Grading job errors
	ErrGradingJobNotFound = errors.New("grading job not found")
	ErrGradingQueueFull   = errors.New("grading queue is full")
	ErrGradingEngine      = errors.New("grading engine failed")

	// TransientStoreError: the caller may retry.
	ErrTransientStore = repositories.ErrTransientStore
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

type BusinessRuleError struct {
	Rule    string                 `json:"rule"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func (bre *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule violation (%s): %s", bre.Rule, bre.Message)
}

type PermissionError struct {
	UserID     string `json:"user_id"`
	ResourceID string `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func (pe *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %s - %s",
		pe.UserID, pe.Action, pe.Resource, pe.ResourceID, pe.Reason)
}

// Unwrap lets errors.Is(err, ErrForbidden) match permission errors.
func (pe *PermissionError) Unwrap() error {
	return ErrForbidden
}

// TransitionError reports why a single transition did not happen.
type TransitionError struct {
	ResultID string
	From     string
	To       string
	Err      error
}

func (te *TransitionError) Error() string {
	if te.From != "" {
		return fmt.Sprintf("result %s: cannot move from %s to %s: %v", te.ResultID, te.From, te.To, te.Err)
	}
	return fmt.Sprintf("result %s: %v", te.ResultID, te.Err)
}

func (te *TransitionError) Unwrap() error {
	return te.Err
}

// ===== ERROR HELPERS =====

// NewValidationError creates a new validation error using the shared type
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
	}
}

func NewPermissionError(userID, resourceID, resource, action, reason string) *PermissionError {
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
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrResultNotFound) ||
		errors.Is(err, ErrGradingJobNotFound)
}

// IsUnauthorized checks if error represents an "unauthorized" condition
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrForbidden)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) || errors.Is(err, ErrEmptySelection) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}

// IsBusinessRule checks if error represents a business rule violation
func IsBusinessRule(err error) bool {
	var bre *BusinessRuleError
	return errors.As(err, &bre)
}

// IsConflict checks if error represents a resource conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrInvalidStateTransition) ||
		errors.Is(err, ErrResultAlreadyExists)
}

// IsTransient checks if the operation may succeed when retried
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientStore) || errors.Is(err, ErrGradingQueueFull)
}

// ErrorCode is the stable machine-readable code reported for err.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case IsNotFound(err):
		return "not_found"
	case errors.Is(err, ErrInvalidStateTransition):
		return "invalid_state"
	case IsValidation(err):
		return "validation_error"
	case IsBusinessRule(err):
		return "business_rule"
	case IsConflict(err):
		return "conflict"
	case IsTransient(err):
		return "transient"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	default:
		return "internal_error"
	}
}

// mapRepositoryError translates store sentinels into service errors.
func mapRepositoryError(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case repositories.IsNotFoundError(err):
		return notFound
	case repositories.IsStatusConflict(err):
		return ErrInvalidStateTransition
	case errors.Is(err, repositories.ErrDuplicateKey):
		return ErrResultAlreadyExists
	default:
		return err
	}
}
