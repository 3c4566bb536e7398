package corochan

import (
	"context"
	"iter"
	"sync"

	"github.com/concordgo/corochan/diag"
	"github.com/concordgo/corochan/internal/corerun"
	"github.com/concordgo/corochan/internal/tracing"
	"github.com/concordgo/corochan/log"
	"github.com/concordgo/corochan/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// readOutcome is what a blocked Read call is eventually handed: a value and
// whether it's a real one, or the zero value because the channel closed and
// drained with nothing left for this call.
type readOutcome[T any] struct {
	value T
	ok    bool
}

// Channel is a typed, mutex-guarded FIFO with direct-handoff, buffered, and
// non-blocking operations, plus the two-phase wait/attempt hooks Select
// races over. The zero value is not usable; construct one with NewChannel.
type Channel[T any] struct {
	mu       sync.Mutex
	capacity int
	buf      []T
	closed   bool

	pendingReads  *waitQueue[struct{}, readOutcome[T]]
	pendingWrites *waitQueue[T, struct{}]
	readableWait  *waitQueue[struct{}, struct{}]
	writableWait  *waitQueue[struct{}, struct{}]

	name       string
	log        log.Logger
	metrics    metrics.Client
	tracer     trace.Tracer
	unregister func()
}

// waitQueue aliases the generic corerun queue so the rest of this file
// doesn't have to spell out the import on every field.
type waitQueue[Request, Result any] = corerun.WaitQueue[Request, Result]

func newWaitQueue[Request, Result any]() *waitQueue[Request, Result] {
	return corerun.NewWaitQueue[Request, Result]()
}

// NewChannel creates a channel. capacity == 0 makes it unbuffered: every
// Write blocks until a Read is ready to take the value directly (no
// buffering ever happens). capacity > 0 allows that many values to sit in
// the buffer before a Write blocks.
func NewChannel[T any](capacity int, opts ...Option) *Channel[T] {
	o := newOptions(opts)

	c := &Channel[T]{
		capacity:      capacity,
		pendingReads:  newWaitQueue[struct{}, readOutcome[T]](),
		pendingWrites: newWaitQueue[T, struct{}](),
		readableWait:  newWaitQueue[struct{}, struct{}](),
		writableWait:  newWaitQueue[struct{}, struct{}](),
		name:          o.name,
		log:           o.logger,
		metrics:       o.metrics,
		tracer:        o.tracer,
	}

	if o.registry != nil {
		c.unregister = o.registry.Register(o.name, c)
	}

	c.log.Debug("channel created", log.ChannelNameKey, c.name, log.CapacityKey, capacity)

	return c
}

// Write blocks until v is accepted, either handed directly to a blocked
// Read or placed into the buffer, or returns ErrClosed if the channel is or
// becomes closed, or ctx.Err() if ctx is done first. Concurrent writers are
// served in the order they arrive while blocked, but this module makes no
// promise about relative ordering of writes that never block.
func (c *Channel[T]) Write(ctx context.Context, v T) (err error) {
	c.mu.Lock()
	done, attemptErr := c.attemptWriteLocked(v)
	if done {
		c.mu.Unlock()
		c.metrics.Counter("corochan.channel.write", metrics.Tags{"channel": c.name}, 1)
		return attemptErr
	}
	w := c.pendingWrites.Enqueue(v)
	// A writer is now waiting, which is itself something a reader parked in
	// WaitReadable/readOp.wait needs to hear about — on an unbuffered
	// channel this is the only readiness signal it will ever get, since the
	// buffering branch in attemptWriteLocked never fires at capacity 0.
	c.readableWait.SettleAll(struct{}{}, nil)
	c.mu.Unlock()

	ctx, span := tracing.StartSpan(ctx, c.tracer, "corochan.Channel.Write",
		trace.WithAttributes(
			attribute.String(tracing.ChannelName, c.name),
			attribute.Int(tracing.ChannelCap, c.capacity),
		))
	defer func() { tracing.WithSpanError(span, err); span.End() }()

	select {
	case <-w.Done():
		c.metrics.Counter("corochan.channel.write", metrics.Tags{"channel": c.name}, 1)
		return w.Err
	case <-ctx.Done():
		c.mu.Lock()
		removed := c.pendingWrites.Remove(w)
		c.mu.Unlock()
		if removed {
			return ctx.Err()
		}
		// Settled concurrently before the cancellation could detach it: the
		// value was already delivered (or the write was rejected by Close),
		// so report that outcome, not Aborted.
		<-w.Done()
		c.metrics.Counter("corochan.channel.write", metrics.Tags{"channel": c.name}, 1)
		return w.Err
	}
}

// TryWrite is the non-blocking form of Write: it never parks. ok is true
// once v has been accepted; err is ErrClosed if it could not be, because the
// channel is closed.
func (c *Channel[T]) TryWrite(v T) (ok bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	done, err := c.attemptWriteLocked(v)
	if !done {
		return false, nil
	}
	return err == nil, err
}

// Read blocks until a value is available or the channel is closed and
// drained, in which case it returns the zero value and ok == false with a
// nil error. ctx.Err() is returned if ctx is done before either happens.
func (c *Channel[T]) Read(ctx context.Context) (v T, ok bool, err error) {
	c.mu.Lock()
	val, ok, done := c.attemptReadLocked()
	if done {
		c.mu.Unlock()
		c.metrics.Counter("corochan.channel.read", metrics.Tags{"channel": c.name}, 1)
		return val, ok, nil
	}
	w := c.pendingReads.Enqueue(struct{}{})
	// Mirrors the wake in Write's blocking path: a reader now waiting is
	// itself a writability signal for anyone parked in
	// WaitWritable/writeOp.wait on an unbuffered channel.
	c.writableWait.SettleAll(struct{}{}, nil)
	c.mu.Unlock()

	ctx, span := tracing.StartSpan(ctx, c.tracer, "corochan.Channel.Read",
		trace.WithAttributes(
			attribute.String(tracing.ChannelName, c.name),
			attribute.Int(tracing.ChannelCap, c.capacity),
		))
	defer func() { tracing.WithSpanError(span, err); span.End() }()

	select {
	case <-w.Done():
		c.metrics.Counter("corochan.channel.read", metrics.Tags{"channel": c.name}, 1)
		return w.Result.value, w.Result.ok, nil
	case <-ctx.Done():
		c.mu.Lock()
		removed := c.pendingReads.Remove(w)
		c.mu.Unlock()
		if removed {
			var zero T
			return zero, false, ctx.Err()
		}
		<-w.Done()
		c.metrics.Counter("corochan.channel.read", metrics.Tags{"channel": c.name}, 1)
		return w.Result.value, w.Result.ok, nil
	}
}

// TryRead is the non-blocking form of Read. ok is false both when the
// channel would currently block and when it is closed and drained — the
// two only differ to a blocking Read or to a Select case, which can tell
// them apart internally.
func (c *Channel[T]) TryRead() (v T, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	val, ok, _ := c.attemptReadLocked()
	return val, ok
}

// Close is idempotent. Any already-buffered values are handed, in order, to
// already-blocked readers before the rest of the blocked readers are woken
// with "no value". Every blocked writer fails with ErrClosed, exactly as a
// writer arriving after Close does.
func (c *Channel[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true

	for len(c.buf) > 0 {
		if _, ok := c.pendingReads.Front(); !ok {
			break
		}
		v := c.buf[0]
		c.buf = c.buf[1:]
		c.pendingReads.Settle(readOutcome[T]{value: v, ok: true}, nil)
	}

	var zero readOutcome[T]
	c.pendingReads.SettleAll(zero, nil)
	c.pendingWrites.SettleAll(struct{}{}, ErrClosed)
	c.readableWait.SettleAll(struct{}{}, nil)
	c.writableWait.SettleAll(struct{}{}, nil)
	unregister := c.unregister
	c.mu.Unlock()

	if unregister != nil {
		unregister()
	}

	c.log.Debug("channel closed", log.ChannelNameKey, c.name)
	c.metrics.Counter("corochan.channel.closed", metrics.Tags{"channel": c.name}, 1)
}

// Closed reports whether Close has been called, regardless of whether the
// buffer has fully drained yet.
func (c *Channel[T]) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// WaitReadable blocks until a Read would not immediately fail to find a
// value — i.e. the buffer is non-empty, a writer is waiting to hand one off
// directly, or the channel is closed — without itself consuming anything.
// It is a pure probe: calling it never changes what a later Read/TryRead
// observes.
func (c *Channel[T]) WaitReadable(ctx context.Context) error {
	c.mu.Lock()
	if c.readableNowLocked() {
		c.mu.Unlock()
		return nil
	}
	w := c.readableWait.Enqueue(struct{}{})
	c.mu.Unlock()

	select {
	case <-w.Done():
		return nil
	case <-ctx.Done():
		c.mu.Lock()
		removed := c.readableWait.Remove(w)
		c.mu.Unlock()
		if removed {
			return ctx.Err()
		}
		return nil
	}
}

// WaitWritable is WaitReadable's mirror image for the write side.
func (c *Channel[T]) WaitWritable(ctx context.Context) error {
	c.mu.Lock()
	if c.writableNowLocked() {
		c.mu.Unlock()
		return nil
	}
	w := c.writableWait.Enqueue(struct{}{})
	c.mu.Unlock()

	select {
	case <-w.Done():
		return nil
	case <-ctx.Done():
		c.mu.Lock()
		removed := c.writableWait.Remove(w)
		c.mu.Unlock()
		if removed {
			return ctx.Err()
		}
		return nil
	}
}

// ReadableWaiters reports how many calls are currently blocked in Read or
// waiting on WaitReadable. Diagnostic gauge only; racy by construction.
func (c *Channel[T]) ReadableWaiters() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingReads.Len() + c.readableWait.Len()
}

// WritableWaiters mirrors ReadableWaiters for the write side.
func (c *Channel[T]) WritableWaiters() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingWrites.Len() + c.writableWait.Len()
}

// All returns an iterator over every value Read would produce, stopping
// once the channel is closed and drained. Breaking out of the range loop
// early cancels the in-flight Read via the range-over-func cleanup
// protocol, so no goroutine is left parked on this channel.
func (c *Channel[T]) All(ctx context.Context) iter.Seq[T] {
	return func(yield func(T) bool) {
		innerCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		for {
			v, ok, err := c.Read(innerCtx)
			if err != nil || !ok {
				return
			}
			if !yield(v) {
				return
			}
		}
	}
}

// Snapshot implements diag.Introspectable.
func (c *Channel[T]) Snapshot() diag.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return diag.Snapshot{
		Name:           c.name,
		Capacity:       c.capacity,
		Len:            len(c.buf),
		Closed:         c.closed,
		BlockedReaders: c.pendingReads.Len() + c.readableWait.Len(),
		BlockedWriters: c.pendingWrites.Len() + c.writableWait.Len(),
	}
}

// attemptWriteLocked is the non-blocking write attempt: done is true once
// the outcome is final (accepted, or rejected with ErrClosed); done is
// false when nothing happened because the channel would currently block.
func (c *Channel[T]) attemptWriteLocked(v T) (done bool, err error) {
	if c.closed {
		return true, ErrClosed
	}

	// Direct handoff takes priority over buffering: a value is only ever
	// placed in the buffer once there is no blocked reader to take it
	// straight away.
	if _, ok := c.pendingReads.Settle(readOutcome[T]{value: v, ok: true}, nil); ok {
		c.wakeWritersLocked()
		return true, nil
	}

	if len(c.buf) < c.capacity {
		c.buf = append(c.buf, v)
		c.readableWait.SettleAll(struct{}{}, nil)
		return true, nil
	}

	return false, nil
}

// attemptReadLocked is the non-blocking read attempt. done is true once the
// outcome is final: ok true with a real value, or ok false because the
// channel is closed and drained. done is false — ok is meaningless — when
// nothing happened because the channel would currently block; this is the
// distinction Select needs to tell "stolen readiness" apart from "really
// closed".
func (c *Channel[T]) attemptReadLocked() (v T, ok bool, done bool) {
	if len(c.buf) > 0 {
		v = c.buf[0]
		c.buf = c.buf[1:]
		c.admitOneWriterLocked()
		return v, true, true
	}

	if wv, found := c.pendingWrites.Settle(struct{}{}, nil); found {
		c.wakeWritersLocked()
		return wv, true, true
	}

	if c.closed {
		var zero T
		return zero, false, true
	}

	var zero T
	return zero, false, false
}

// admitOneWriterLocked moves one blocked writer's value into the buffer if
// there is room, after a Read freed up a slot, and wakes WaitWritable
// probes.
func (c *Channel[T]) admitOneWriterLocked() {
	if len(c.buf) >= c.capacity {
		return
	}
	if wv, found := c.pendingWrites.Settle(struct{}{}, nil); found {
		c.buf = append(c.buf, wv)
	}
	c.wakeWritersLocked()
}

func (c *Channel[T]) wakeWritersLocked() {
	c.writableWait.SettleAll(struct{}{}, nil)
}

func (c *Channel[T]) readableNowLocked() bool {
	return len(c.buf) > 0 || c.pendingWrites.Len() > 0 || c.closed
}

func (c *Channel[T]) writableNowLocked() bool {
	return c.closed || c.pendingReads.Len() > 0 || len(c.buf) < c.capacity
}

// attemptReadForSelect is attemptReadLocked behind the mutex, exposed to
// readOp so Select can distinguish "would block, retry" from "closed, done"
// without going through TryRead's collapsed two-outcome view.
func (c *Channel[T]) attemptReadForSelect() (v T, ok bool, done bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attemptReadLocked()
}

// attemptWriteForSelect mirrors attemptReadForSelect for writeOp.
func (c *Channel[T]) attemptWriteForSelect(v T) (done bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attemptWriteLocked(v)
}
