package engine

import (
	"errors"
	"fmt"
)

// Error codes surfaced to callers.
const (
	CodeModifiersConflict = "MODIFIERS_CONFLICT"
	CodeMediaNotFound     = "MEDIA_NOT_FOUND"
	CodeTransport         = "TRANSPORT_FAILED"
	CodeNoInstance        = "NO_INSTANCE"
	CodeShuttingDown      = "SHUTTING_DOWN"
	CodeInvalidArgument   = "INVALID_ARGUMENT"
)

// Error is a failed engine operation carrying a stable code.
type Error struct {
	code string
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s", e.msg, e.err)
	}
	return e.msg
}

// Code returns the stable error code.
func (e *Error) Code() string {
	return e.code
}

func (e *Error) Unwrap() error {
	return e.err
}

func newError(code string, err error, format string, args ...any) *Error {
	return &Error{code: code, msg: fmt.Sprintf(format, args...), err: err}
}

// ErrShuttingDown is returned by commands issued after Quit.
var ErrShuttingDown = &Error{code: CodeShuttingDown, msg: "player is shutting down"}

// CodeOf returns the code of a coded error, or "" for any other error.
func CodeOf(err error) string {
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return ""
}
