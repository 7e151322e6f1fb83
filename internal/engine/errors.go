package engine

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrNotFound indicates that the requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrPermissionDenied indicates that the viewer may not perform the operation.
	ErrPermissionDenied = errors.New("permission denied")
)

// Validation error codes.
const (
	CodeRequired            = "required"
	CodeEmptyIngredients    = "empty_ingredients"
	CodeIngredientNotFound  = "ingredient_not_found"
	CodeDuplicateIngredient = "duplicate_ingredient"
	CodeInvalidAmount       = "invalid_amount"
	CodeEmptyTags           = "empty_tags"
	CodeTagNotFound         = "tag_not_found"
	CodeDuplicateTag        = "duplicate_tag"
	CodeInvalidCookingTime  = "invalid_cooking_time"
	CodeMissingAssociations = "missing_associations"
	CodeInvalidImage        = "invalid_image"
	CodeMaxLength           = "max_length"

	CodeEmailTaken         = "email_taken"
	CodeUsernameTaken      = "username_taken"
	CodeInvalidUsername    = "invalid_username"
	CodeInvalidSlug        = "invalid_slug"
	CodePasswordTooShort   = "password_too_short"
	CodePasswordNumeric    = "password_entirely_numeric"
	CodePasswordTooLong    = "password_too_long"
	CodeWrongPassword      = "wrong_password"
	CodeInvalidCredentials = "invalid_credentials"
	CodeNoAvatar           = "no_avatar"
	CodeInvalidLimit       = "invalid_recipes_limit"
)

// Conflict codes.
const (
	ConflictAlreadySubscribed = "already_subscribed"
	ConflictSelfSubscription  = "self_subscription"
	ConflictNotSubscribed     = "not_subscribed"
	ConflictAlreadyFavorited  = "already_favorited"
	ConflictAlreadyInCart     = "already_in_cart"
)

// FieldError describes one failed validation rule.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationError collects every failed rule of an input.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Has reports whether the error contains the code.
func (e *ValidationError) Has(code string) bool {
	for _, fe := range e.Errors {
		if fe.Code == code {
			return true
		}
	}
	return false
}

// NewValidationError returns a validation error with a single field error.
func NewValidationError(field, code, message string) *ValidationError {
	return &ValidationError{Errors: []FieldError{{Field: field, Code: code, Message: message}}}
}

// ConflictError reports a relationship that is already in, or not in, the requested state.
type ConflictError struct {
	Code    string
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func conflict(code, message string) error {
	return &ConflictError{Code: code, Message: message}
}

func notFound(entity string) error {
	return fmt.Errorf("%s %w", entity, ErrNotFound)
}

// wrapDB translates gorm.ErrRecordNotFound to ErrNotFound and wraps everything else.
func wrapDB(err error, entity, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(entity)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
