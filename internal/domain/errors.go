package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when an id does not resolve.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the caller lacks ownership or role.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict is returned on unique constraint violations.
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized is returned when an operation requires an authenticated caller.
	ErrUnauthorized = errors.New("authentication required")
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")
)

var (
	ErrQuizNotFound     = fmt.Errorf("quiz %w", ErrNotFound)
	ErrQuestionNotFound = fmt.Errorf("question %w", ErrNotFound)
	ErrAnswerNotFound   = fmt.Errorf("answer %w", ErrNotFound)
	ErrAttemptNotFound  = fmt.Errorf("attempt %w", ErrNotFound)
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)

	// ErrQuizInactive is returned when submitting to a deactivated questionnaire.
	ErrQuizInactive = fmt.Errorf("quiz is not active: %w", ErrForbidden)
	// ErrAccessCodeTaken is returned by stores when the access code already exists.
	ErrAccessCodeTaken = fmt.Errorf("access code already used: %w", ErrConflict)
	// ErrEmailTaken is returned when registering an existing email.
	ErrEmailTaken = fmt.Errorf("email already registered: %w", ErrConflict)
	// ErrInvalidCredentials is returned on a failed login.
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
)

// Violation is a single broken constraint.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every violation found on an entity.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Message)
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrValidation) hold.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a ValidationError with a single violation.
func Invalid(field, message string) error {
	return &ValidationError{Violations: []Violation{{Field: field, Message: message}}}
}

// Violations accumulates violations and converts them to an error.
type Violations []Violation

func (v *Violations) Add(field, message string) {
	*v = append(*v, Violation{Field: field, Message: message})
}

// Merge appends violations from another list, prefixing their fields.
func (v *Violations) Merge(prefix string, other Violations) {
	for _, o := range other {
		v.Add(prefix+o.Field, o.Message)
	}
}

// Err returns nil when empty, else a *ValidationError.
func (v Violations) Err() error {
	if len(v) == 0 {
		return nil
	}
	return &ValidationError{Violations: append([]Violation(nil), v...)}
}
