package chat

import "errors"

// Error kinds. Handlers match on these with errors.Is to decide how an
// operation failure is reported; the carried message is what reaches the
// client.
var (
	ErrAuthentication = errors.New("authentication failed")
	ErrValidation     = errors.New("validation failed")
	ErrPermission     = errors.New("permission denied")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrInvariant      = errors.New("invariant violation")
)

// Error is a recoverable domain error: a kind for programmatic matching
// plus a human-readable message safe to surface to the client.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Kind }

// IsDomain reports whether err is a recoverable domain error, as opposed
// to an unexpected internal failure.
func IsDomain(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

func Validation(msg string) error { return &Error{Kind: ErrValidation, Message: msg} }
func Permission(msg string) error { return &Error{Kind: ErrPermission, Message: msg} }
func NotFound(msg string) error   { return &Error{Kind: ErrNotFound, Message: msg} }
func Conflict(msg string) error   { return &Error{Kind: ErrConflict, Message: msg} }
func Invariant(msg string) error  { return &Error{Kind: ErrInvariant, Message: msg} }
