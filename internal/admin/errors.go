package admin

import "errors"

var (
	ErrNotFound       = errors.New("admin: not found")
	ErrDuplicateUser  = errors.New("username or email already exists")
	ErrAdminProtected = errors.New("administrator accounts cannot be deleted")
)

// ValidationError reports bad input. Its message is safe to show.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

func invalid(msg string) error { return &ValidationError{Msg: msg} }
