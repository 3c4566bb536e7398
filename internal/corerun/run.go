package corerun

import (
	"context"

	goerrors "github.com/go-errors/errors"
)

// Result is what Go delivers once fn has run to completion or been aborted.
type Result[T any] struct {
	Value T
	Err   error
}

// Go is the sole point this module's cancellation semantics are built on:
// if ctx is already done, fn never starts and the returned channel carries
// ctx.Err() immediately; otherwise fn runs on its own goroutine with ctx
// threaded through so it can observe cancellation itself, and a panic inside
// fn is recovered and reported as a PanicError carrying a captured stack
// instead of crashing the process.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) <-chan Result[T] {
	out := make(chan Result[T], 1)

	if err := ctx.Err(); err != nil {
		var zero T
		out <- Result[T]{Value: zero, Err: err}
		return out
	}

	go func() {
		var res Result[T]
		defer func() {
			if r := recover(); r != nil {
				res = Result[T]{Err: newPanicError(r)}
			}
			out <- res
		}()

		res.Value, res.Err = fn(ctx)
	}()

	return out
}

// PanicError wraps a recovered panic value together with the stack captured
// at the point of recovery.
type PanicError struct {
	value any
	stack string
}

func newPanicError(value any) *PanicError {
	return &PanicError{value: value, stack: string(goerrors.Wrap(value, 1).Stack())}
}

func (p *PanicError) Error() string {
	if err, ok := p.value.(error); ok {
		return "panic: " + err.Error()
	}
	return "panic: " + goerrors.Wrap(p.value, 1).Error()
}

// Stack returns the stack trace captured when the panic was recovered. It
// satisfies the informal `interface{ Stack() string }` that this module's
// error types check for when deciding whether to attach diagnostic output.
func (p *PanicError) Stack() string {
	return p.stack
}

func (p *PanicError) Unwrap() error {
	if err, ok := p.value.(error); ok {
		return err
	}
	return nil
}
