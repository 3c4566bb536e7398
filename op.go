package corochan

import (
	"context"

	"github.com/concordgo/corochan/internal/corerun"
)

// Op is the two-phase shape every operand Select races satisfies: wait
// blocks until the operation might succeed, or ctx is done first; attempt
// performs the actual non-blocking, side-effecting try. Splitting readiness
// from the side effect is what makes "stolen readiness" — another racer
// taking the value between wait returning and attempt running — safe:
// attempt reports ready == false instead of mutating anything, and Select
// just re-arms that one case's wait without disturbing the others.
//
// Channels implement Op directly. Select wraps futures and cancellable
// functions into the same shape internally (futureOp, funcOp) so its race
// loop never has to special-case an operand form.
type Op interface {
	wait(ctx context.Context) error
	attempt() (value any, ready bool, err error)
}

type readResult[T any] struct {
	value T
	ok    bool
}

type readOp[T any] struct {
	ch *Channel[T]
}

func (r *readOp[T]) wait(ctx context.Context) error {
	return r.ch.WaitReadable(ctx)
}

func (r *readOp[T]) attempt() (any, bool, error) {
	v, ok, done := r.ch.attemptReadForSelect()
	if !done {
		return nil, false, nil
	}
	return readResult[T]{value: v, ok: ok}, true, nil
}

type writeOp[T any] struct {
	ch *Channel[T]
	v  T
}

func (w *writeOp[T]) wait(ctx context.Context) error {
	return w.ch.WaitWritable(ctx)
}

func (w *writeOp[T]) attempt() (any, bool, error) {
	done, err := w.ch.attemptWriteForSelect(w.v)
	if !done {
		return nil, false, nil
	}
	return nil, true, err
}

type futureOp[T any] struct {
	f Future[T]
}

func (f *futureOp[T]) wait(ctx context.Context) error {
	select {
	case <-f.f.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *futureOp[T]) attempt() (any, bool, error) {
	v, err, settled := f.f.TryGet()
	if !settled {
		// settle marks the future settled and closes Done under the same
		// lock TryGet takes, so this branch is not reached once Done has
		// fired; it retries rather than assume.
		return nil, false, nil
	}
	return v, true, err
}

// funcOp runs fn lazily, exactly once, the first time wait is called, and
// reports whatever it produced once it's done. wait and attempt do run on
// two different goroutines — wait inside raceCases's per-case goroutine,
// attempt on the caller's goroutine once reflect.Select wakes it — but
// f.result/f.done still need no locking of their own: wait finishes
// writing them and only then returns, after which that same goroutine
// sends on this case's buffered ready[i] channel; attempt only ever runs
// once reflect.Select has received from ready[i]. That send/receive pair
// is the happens-before edge making the writes visible before attempt
// reads them — not goroutine sequencing, since there isn't any.
type funcOp[T any] struct {
	fn       func(context.Context) (T, error)
	started  bool
	done     bool
	resultCh <-chan corerun.Result[T]
	result   corerun.Result[T]
}

func (f *funcOp[T]) wait(ctx context.Context) error {
	if f.done {
		return nil
	}
	if !f.started {
		f.started = true
		f.resultCh = corerun.Go(ctx, f.fn)
	}

	select {
	case res := <-f.resultCh:
		f.result = res
		f.done = true
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *funcOp[T]) attempt() (any, bool, error) {
	return f.result.Value, true, f.result.Err
}
