package console

import "fmt"

// UserError is shown to the operator. It does not end the session.
type UserError struct {
	Message string
}

func (e *UserError) Error() string {
	return e.Message
}

// NewUserError creates a user-facing error.
func NewUserError(msg string) *UserError {
	return &UserError{Message: msg}
}

func userErrorf(format string, args ...any) *UserError {
	return NewUserError(fmt.Sprintf(format, args...))
}
