package corochan

import (
	"context"
	"sync"

	"github.com/concordgo/corochan/internal/corerun"
)

// Future is a value that settles, exactly once, at some point in the
// future. It is the Go rendering of spec.md's abortable future helper: one
// produces a Future via RunAsync, which guarantees teardown inside fn runs
// on every exit path, since fn's own ctx parameter is exactly the signal
// cancellation is built on.
type Future[T any] interface {
	// Done is closed exactly once, when the future settles.
	Done() <-chan struct{}

	// Get blocks until the future settles or ctx is done, whichever comes
	// first.
	Get(ctx context.Context) (T, error)

	// TryGet is the non-blocking form. settled is false if Get would
	// currently block.
	TryGet() (value T, err error, settled bool)
}

type future[T any] struct {
	mu      sync.Mutex
	done    chan struct{}
	settled bool
	value   T
	err     error
}

// NewSettableFuture returns a Future and the function that settles it.
// Calling resolve more than once panics — a future settles exactly once,
// matching spec.md's future contract.
func NewSettableFuture[T any]() (Future[T], func(T, error)) {
	f := &future[T]{done: make(chan struct{})}
	return f, f.settle
}

func (f *future[T]) settle(v T, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.settled {
		panic("corochan: future settled twice")
	}
	f.settled = true
	f.value = v
	f.err = err
	close(f.done)
}

func (f *future[T]) Done() <-chan struct{} {
	return f.done
}

func (f *future[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (f *future[T]) TryGet() (value T, err error, settled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.err, f.settled
}

// RunAsync is the public face of the abortable future helper: if ctx is
// already done, the returned Future resolves immediately with ctx.Err() and
// fn never runs; otherwise fn runs on its own goroutine, observing ctx for
// cancellation itself, and the returned Future settles with whatever fn
// returns (or with a recovered panic, wrapped as an error, if fn panics).
// RunAsync and FuncCase in Select both bottom out on the same internal
// helper, corerun.Go; FuncCase calls it directly rather than via RunAsync.
func RunAsync[T any](ctx context.Context, fn func(context.Context) (T, error)) Future[T] {
	f, resolve := NewSettableFuture[T]()

	results := corerun.Go(ctx, fn)
	go func() {
		res := <-results
		resolve(res.Value, res.Err)
	}()

	return f
}
