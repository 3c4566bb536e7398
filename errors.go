package corochan

import (
	"context"
	"errors"
	"fmt"
)

// ErrClosed is returned by Write/TryWrite once a channel is, or becomes,
// closed — whether the call was already blocked when Close happened or
// arrives afterwards, it fails identically.
var ErrClosed = errors.New("corochan: write into closed channel")

// ErrNoOperations is returned synchronously by Select when every case
// passed to it is Absent (or there are none at all).
var ErrNoOperations = errors.New("corochan: select given no operations")

// stackTracer is the informal interface corerun.PanicError and SelectError
// itself satisfy.
type stackTracer interface {
	Stack() string
}

// SelectError wraps the error produced by the case a Select call picked,
// when that case failed. Name identifies the Case that produced
// it; Cause is the underlying error and is reachable via errors.Unwrap, so
// errors.Is/errors.As see straight through to it.
type SelectError struct {
	Name  string
	Cause error
}

func (e *SelectError) Error() string {
	return fmt.Sprintf("corochan: case %q failed: %v", e.Name, e.Cause)
}

func (e *SelectError) Unwrap() error {
	return e.Cause
}

// Stack surfaces the cause's captured stack trace, if it has one. Useful
// for logging a SelectError without the caller having to unwrap it first.
func (e *SelectError) Stack() string {
	var st stackTracer
	if errors.As(e.Cause, &st) {
		return st.Stack()
	}
	return ""
}

// IsAborted reports whether err is this module's "Aborted" kind, i.e. the
// underlying context was canceled or its deadline exceeded. spec.md's
// distinct Aborted error kind collapses onto ctx.Err() in this port; this
// helper exists so callers don't have to remember that themselves.
func IsAborted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
