// Package common defines shared constants and sentinel errors used across
// the service layers of playlistdash. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Error kinds surfaced to the presentation layer.
	ErrUnauthorized        = errors.New("unauthorized")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrNotFound            = ErrorNotFound
	ErrDuplicateMembership = errors.New("duplicate membership")
	ErrValidation          = errors.New("validation error")
	ErrStorage             = errors.New("storage error")
	ErrPersistence         = errors.New("persistence error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// UserError pairs an error kind with the message shown to the user.
// errors.Is(err, kind) holds for the kind it was created with.
type UserError struct {
	Kind    error
	Message string
}

func (e *UserError) Error() string { return e.Message }

func (e *UserError) Unwrap() error { return e.Kind }

// NewUserError builds a UserError of the given kind.
func NewUserError(kind error, message string) error {
	return &UserError{Kind: kind, Message: message}
}

// Message returns the text a caller should render for err: the user-facing
// message of the outermost UserError, or err.Error() otherwise.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var ue *UserError
	if errors.As(err, &ue) {
		return ue.Message
	}
	return err.Error()
}

// Kind reports which error kind err belongs to, or nil when it matches none.
func Kind(err error) error {
	for _, k := range []error{
		ErrUnauthorized, ErrPermissionDenied, ErrNotFound, ErrDuplicateMembership,
		ErrValidation, ErrStorage, ErrPersistence,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
