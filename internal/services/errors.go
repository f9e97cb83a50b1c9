// Package services defines the business logic for suggestions, votes, replies,
// and the admin gate. This file centralizes the service-level error taxonomy so
// that every operation returns exactly one recognizable kind, which handlers
// translate into HTTP status codes.
//
// Each specific error carries its user-facing message verbatim and wraps one
// kind sentinel, so callers can test either:
//
//	errors.Is(err, services.ErrAlreadyVoted) // the specific case
//	errors.Is(err, services.ErrConflict)     // the kind
//
// Unclassified store faults are returned as *StoreError.
package services

import (
	"errors"

	"github.com/tbourn/suggestion-box/internal/repo"
)

// Error kinds.
var (
	// ErrValidation marks missing or malformed input.
	ErrValidation = errors.New("validation error")

	// ErrConflict marks a uniqueness violation, such as a second vote.
	ErrConflict = errors.New("conflict")

	// ErrNotFound marks an absent target, such as removing a vote that was never cast.
	ErrNotFound = errors.New("not found")

	// ErrForbidden marks a failed admin-secret check.
	ErrForbidden = errors.New("forbidden")

	// ErrUnauthorized marks a failed admin login.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUnavailable marks a store that could not hand out a connection in time.
	ErrUnavailable = errors.New("service unavailable")
)

type domainError struct {
	kind error
	msg  string
}

func (e *domainError) Error() string { return e.msg }
func (e *domainError) Unwrap() error { return e.kind }

func newError(kind error, msg string) error { return &domainError{kind: kind, msg: msg} }

// Specific errors returned by the services.
var (
	ErrSuggestionFieldsRequired = newError(ErrValidation, "title/content/categoryId required")
	ErrSuggestionTooLong        = newError(ErrValidation, "title must be at most 200 characters")
	ErrUnknownCategory          = newError(ErrValidation, "unknown category")
	ErrBadIdempotencyKey        = newError(ErrValidation, "idempotency key must be a UUID")
	ErrVoteFieldsRequired       = newError(ErrValidation, "suggestionId/studentId required")
	ErrUnknownSuggestion        = newError(ErrValidation, "unknown suggestion")
	ErrReplyFieldsRequired      = newError(ErrValidation, "suggestionId/content required")

	ErrAlreadyVoted = newError(ErrConflict, "already voted")
	ErrVoteNotFound = newError(ErrNotFound, "not voted yet")

	ErrAdminForbidden = newError(ErrForbidden, "forbidden")
	ErrBadCredentials = newError(ErrUnauthorized, "login failed")

	ErrStoreBusy = newError(ErrUnavailable, "database busy, try again")
)

// StoreError is an unclassified datastore failure. Its message is the
// underlying store message, kept for diagnostics.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return e.Err.Error() }
func (e *StoreError) Unwrap() error { return e.Err }

// translate maps a raw store error into the taxonomy. Callers pass the
// domain-specific errors to use for unique and foreign-key violations; a nil
// replacement leaves that violation as a StoreError.
func translate(op string, err error, onUnique, onForeignKey error) error {
	switch {
	case err == nil:
		return nil
	case isClassified(err):
		return err
	case errors.Is(err, repo.ErrPoolTimeout):
		return ErrStoreBusy
	case onUnique != nil && repo.IsUniqueViolation(err):
		return onUnique
	case onForeignKey != nil && repo.IsForeignKeyViolation(err):
		return onForeignKey
	default:
		return &StoreError{Op: op, Err: err}
	}
}

func isClassified(err error) bool {
	var de *domainError
	var se *StoreError
	return errors.As(err, &de) || errors.As(err, &se)
}
