// Package apperr classifies the failures a room or an admin request can
// produce. Every domain error unwraps to exactly one kind.
package apperr

import "errors"

// Kinds.
var (
	ErrAuthorization = errors.New("authorization")
	ErrCapacity      = errors.New("capacity")
	ErrNotFound      = errors.New("not found")
	ErrInvalid       = errors.New("invalid")
)

// Error is a user-facing message tagged with its kind.
type Error struct {
	kind error
	msg  string
}

// New returns an error that prints msg and matches kind with errors.Is.
func New(kind error, msg string) error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.kind }

// Kind reports the kind sentinel of err, or nil if err is not classified.
func Kind(err error) error {
	for _, k := range []error{ErrAuthorization, ErrCapacity, ErrNotFound, ErrInvalid} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
