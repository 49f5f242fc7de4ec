package kot

import (
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrTerminalState     ErrorCode = "TERMINAL_STATE"
)

type Error struct {
	Code       ErrorCode
	Message    string
	StatusCode int
}

func (e *Error) Error() string {
	return e.Message
}

func invalidTransitionError(from, to Status) *Error {
	return &Error{
		Code:       ErrInvalidTransition,
		Message:    fmt.Sprintf("cannot move ticket from %s to %s", from, to),
		StatusCode: http.StatusUnprocessableEntity,
	}
}

func terminalError(from Status) *Error {
	return &Error{
		Code:       ErrTerminalState,
		Message:    fmt.Sprintf("ticket is already %s", from),
		StatusCode: http.StatusConflict,
	}
}
