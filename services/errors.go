// services/errors.go
package services

import (
	"errors"
	"fmt"
)

// ValidationError rejects malformed input: unknown moves, bad settings, empty chat.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// AuthorizationError rejects host-only actions by anyone else.
type AuthorizationError struct {
	Action string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("only the host can %s", e.Action)
}

// NotFoundError reports an unknown session, tournament, match, replay or player.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Kind)
	}
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// StateConflictError rejects an action the state machine does not allow right now.
type StateConflictError struct {
	Reason string
}

func (e *StateConflictError) Error() string { return e.Reason }

// ErrRateLimited is returned when a connection sends chat or reactions too fast.
var ErrRateLimited = errors.New("too many messages, slow down")

func notFound(kind, id string) error { return &NotFoundError{Kind: kind, ID: id} }

func conflict(format string, args ...any) error {
	return &StateConflictError{Reason: fmt.Sprintf(format, args...)}
}

func invalid(field, reason string) error { return &ValidationError{Field: field, Reason: reason} }

// IsNotFound and friends classify errors for transports.
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsAuthorization(err error) bool {
	var e *AuthorizationError
	return errors.As(err, &e)
}

func IsStateConflict(err error) bool {
	var e *StateConflictError
	return errors.As(err, &e)
}
