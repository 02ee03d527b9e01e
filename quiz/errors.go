package quiz

import "fmt"

// Error codes surfaced to callers.
const (
	CodeGameAlreadyRunning = "GAME_ALREADY_RUNNING"
	CodeNoPlaylist         = "NO_PLAYLIST"
	CodeInvalidSettings    = "INVALID_SETTINGS"
	CodeGameNotRunning     = "GAME_NOT_RUNNING"
	CodeAnswerRejected     = "ANSWER_REJECTED"
)

// Error is a rejected quiz operation carrying a stable code.
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

var (
	ErrGameNotRunning = &Error{code: CodeGameNotRunning, msg: "no game is running"}
	ErrAnswerRejected = &Error{code: CodeAnswerRejected, msg: "answers are closed for this round"}
)
