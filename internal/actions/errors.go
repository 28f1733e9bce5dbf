package actions

import (
	"errors"
	"fmt"
)

// ErrUnknownAction is returned for an action type with no registered handler.
var ErrUnknownAction = errors.New("unknown action")

// InvalidError reports an action that was understood but rejected: a
// malformed payload or a request the park's rules do not allow. The state
// passed to Apply is returned unchanged alongside it.
type InvalidError struct {
	Type    Type
	Message string
}

func (e *InvalidError) Error() string {
	if e.Type == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func invalid(t Type, msg string) *InvalidError {
	return &InvalidError{Type: t, Message: msg}
}

func invalidf(t Type, format string, args ...any) *InvalidError {
	return invalid(t, fmt.Sprintf(format, args...))
}

// IsInvalid reports whether err is a rejected action.
func IsInvalid(err error) bool {
	var ie *InvalidError
	return errors.As(err, &ie)
}
