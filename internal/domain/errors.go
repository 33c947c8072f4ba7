package domain

import "fmt"

// ErrorCode classifies a command failure. Codes are terminal: the worker never
// retries a command that failed with any of them.
type ErrorCode string

const (
	CodeInvalidArgument     ErrorCode = "INVALID_ARGUMENT"
	CodeAccountNotFound     ErrorCode = "ACCOUNT_NOT_FOUND"
	CodeFrozenAccount       ErrorCode = "FROZEN_ACCOUNT"
	CodeInsufficientBalance ErrorCode = "INSUFFICIENT_BALANCE"
	CodeStoreFailure        ErrorCode = "STORE_FAILURE"
	CodeDecodeFailure       ErrorCode = "DECODE_FAILURE"
	CodeTimeout             ErrorCode = "TIMEOUT"
)

// Leg identifies which side of a transfer a failure refers to.
type Leg string

const (
	LegSource      Leg = "source"
	LegDestination Leg = "destination"
)

// CommandError is the structured failure reported for one command. It is the
// only error shape that crosses the engine boundary.
type CommandError struct {
	Cmd    string    `json:"cmd"`
	Code   ErrorCode `json:"code"`
	Leg    Leg       `json:"leg,omitempty"`
	Reason string    `json:"reason"`
}

func (e *CommandError) Error() string {
	if e.Leg != "" {
		return fmt.Sprintf("%s: %s (%s): %s", e.Cmd, e.Code, e.Leg, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", e.Cmd, e.Code, e.Reason)
}

// NewCommandError builds a failure for the given command name.
func NewCommandError(cmd string, code ErrorCode, format string, args ...any) *CommandError {
	return &CommandError{Cmd: cmd, Code: code, Reason: fmt.Sprintf(format, args...)}
}

// WithLeg tags the error with the transfer leg it applies to.
func (e *CommandError) WithLeg(leg Leg) *CommandError {
	e.Leg = leg
	return e
}
