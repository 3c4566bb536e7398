package corochan

import (
	"context"
	"math/rand"
	"reflect"

	"github.com/benbjohnson/clock"
	"github.com/concordgo/corochan/internal/tracing"
	"github.com/concordgo/corochan/log"
	"github.com/concordgo/corochan/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Result is what a winning Select case produces: Type is the name of the
// Case that won, Value is whatever it handed back (nil for a send or a
// failed case).
type Result struct {
	Type  string
	Value any
}

// Case is one named operand passed to Select: a channel read, a channel
// write, a future, a cancellable function, or Absent (ignored). Build one
// with Recv, SendCase, Fut, FuncCase, or Absent.
type Case struct {
	name   string
	absent bool
	op     Op
	finish func(value any, err error) (Result, error)
}

// Recv races a read from ch. handler, if non-nil, runs with the result
// before Select returns; ok mirrors Channel.Read's own ok (false means the
// channel closed and drained rather than producing a value).
func Recv[T any](name string, ch *Channel[T], handler func(v T, ok bool)) Case {
	return Case{
		name: name,
		op:   &readOp[T]{ch: ch},
		finish: func(value any, err error) (Result, error) {
			rr := value.(readResult[T])
			if handler != nil {
				handler(rr.value, rr.ok)
			}
			return Result{Type: name, Value: rr.value}, nil
		},
	}
}

// SendCase races a write of v into ch. handler, if non-nil, runs once the
// write is accepted.
func SendCase[T any](name string, ch *Channel[T], v T, handler func()) Case {
	return Case{
		name: name,
		op:   &writeOp[T]{ch: ch, v: v},
		finish: func(_ any, err error) (Result, error) {
			if err != nil {
				return Result{}, &SelectError{Name: name, Cause: err}
			}
			if handler != nil {
				handler()
			}
			return Result{Type: name}, nil
		},
	}
}

// Fut races a future settling. handler, if non-nil, runs with the future's
// value and error before Select returns.
func Fut[T any](name string, f Future[T], handler func(v T, err error)) Case {
	return Case{
		name: name,
		op:   &futureOp[T]{f: f},
		finish: func(value any, err error) (Result, error) {
			v, _ := value.(T)
			if handler != nil {
				handler(v, err)
			}
			if err != nil {
				return Result{}, &SelectError{Name: name, Cause: err}
			}
			return Result{Type: name, Value: v}, nil
		},
	}
}

// FuncCase races a cancellable function, started via corerun.Go (the helper
// RunAsync is built on) the moment Select begins racing its cases. handler, if non-nil, runs with its
// result before Select returns.
func FuncCase[T any](name string, fn func(context.Context) (T, error), handler func(v T, err error)) Case {
	return Case{
		name: name,
		op:   &funcOp[T]{fn: fn},
		finish: func(value any, err error) (Result, error) {
			v, _ := value.(T)
			if handler != nil {
				handler(v, err)
			}
			if err != nil {
				return Result{}, &SelectError{Name: name, Cause: err}
			}
			return Result{Type: name, Value: v}, nil
		},
	}
}

// Absent marks a named slot as not participating in this race — the Go
// analogue of spec.md's optional/missing operand, useful when a caller
// builds its case list conditionally and wants to keep every name's slot
// stable.
func Absent(name string) Case {
	return Case{name: name, absent: true}
}

// selectConfig carries the optional instrumentation a caller can attach via
// SelectOption. Unlike Channel's options these aren't tied to any one
// channel, since a single Select call can race operands from several.
type selectConfig struct {
	logger  log.Logger
	metrics metrics.Client
	tracer  trace.Tracer
	clock   clock.Clock
}

// SelectOption configures instrumentation for a single Select call.
type SelectOption func(*selectConfig)

// WithSelectLogger attaches a logger to this Select call.
func WithSelectLogger(l log.Logger) SelectOption {
	return func(c *selectConfig) { c.logger = l }
}

// WithSelectMetrics attaches a metrics client to this Select call.
func WithSelectMetrics(m metrics.Client) SelectOption {
	return func(c *selectConfig) { c.metrics = m }
}

// WithSelectTracer wraps the race in a span started on tracer, recording
// the number of cases raced and the name of the winner.
func WithSelectTracer(t trace.Tracer) SelectOption {
	return func(c *selectConfig) { c.tracer = t }
}

// WithSelectClock overrides the clock used to time the race, for tests that
// want deterministic elapsed-time assertions via clock.NewMock().
func WithSelectClock(c clock.Clock) SelectOption {
	return func(cfg *selectConfig) { cfg.clock = c }
}

// Select races every non-Absent case, fairly and uniformly at random among
// whichever are ready first, and returns the winner's Result. Exactly one
// case's attempt succeeds (or fails, surfaced as *SelectError); every other
// case's context is canceled before Select returns, whether it returns a
// result or ctx.Err(), so its wait and underlying goroutine unwind. Select
// does not wait for those goroutines to finish.
//
// At least one non-Absent case is required; otherwise Select fails
// immediately with ErrNoOperations, without starting anything.
func Select(ctx context.Context, cases ...Case) (Result, error) {
	return SelectWith(ctx, cases, nil)
}

// SelectWith is Select with instrumentation options attached.
func SelectWith(ctx context.Context, cases []Case, opts []SelectOption) (Result, error) {
	cfg := &selectConfig{
		logger:  log.Default(),
		metrics: metrics.Noop(),
		tracer:  noop.NewTracerProvider().Tracer("corochan"),
		clock:   clock.New(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	active := make([]Case, 0, len(cases))
	for _, c := range cases {
		if !c.absent {
			active = append(active, c)
		}
	}
	if len(active) == 0 {
		return Result{}, ErrNoOperations
	}

	shuffle(active)

	start := cfg.clock.Now()
	timer := metrics.Timer(cfg.clock, cfg.metrics, "corochan.select.duration", nil)
	cfg.logger.Debug("select started", log.CaseCountKey, len(active))

	spanCtx, span := tracing.StartSpan(ctx, cfg.tracer, "corochan.Select",
		trace.WithAttributes(attribute.Int(tracing.SelectCaseCount, len(active))))
	defer span.End()

	result, err := raceCases(spanCtx, active, cfg.logger)

	span.SetAttributes(attribute.String(tracing.SelectWinner, result.Type))
	_ = tracing.WithSpanError(span, err)

	timer.Stop()
	elapsed := cfg.clock.Now().Sub(start)
	cfg.logger.Debug("select resolved", log.WinnerKey, result.Type, log.DurationKey, elapsed.Milliseconds())

	return result, err
}

// shuffle randomizes the order cases are raced in. reflect.Select below
// already breaks ties among simultaneously-ready cases uniformly at random
// on its own, so this shuffle is not load-bearing for fairness — it exists
// so the race never depends on the order a caller happened to list cases
// in, matching the "shuffled before any wait is started" requirement this
// port is built against.
func shuffle(cases []Case) {
	rand.Shuffle(len(cases), func(i, j int) {
		cases[i], cases[j] = cases[j], cases[i]
	})
}

func raceCases(ctx context.Context, active []Case, logger log.Logger) (Result, error) {
	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ready := make([]chan struct{}, len(active))
	retry := make([]chan struct{}, len(active))

	for i := range active {
		ready[i] = make(chan struct{}, 1)
		retry[i] = make(chan struct{})

		i := i
		go func() {
			op := active[i].op
			for {
				if err := op.wait(raceCtx); err != nil {
					return
				}

				select {
				case ready[i] <- struct{}{}:
				case <-raceCtx.Done():
					return
				}

				select {
				case <-retry[i]:
					continue
				case <-raceCtx.Done():
					return
				}
			}
		}()
	}

	selCases := make([]reflect.SelectCase, 0, len(active)+1)
	for _, ch := range ready {
		selCases = append(selCases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ch)})
	}
	doneIdx := len(active)
	selCases = append(selCases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ctx.Done())})

	for {
		chosen, _, _ := reflect.Select(selCases)
		if chosen == doneIdx {
			cancel()
			return Result{}, ctx.Err()
		}

		value, isReady, err := active[chosen].op.attempt()
		if !isReady {
			// Stolen readiness: another racer — or, for a channel op, a
			// concurrent caller outside this Select entirely — got there
			// first. Re-arm only this case's wait and keep racing; no
			// reshuffle, nobody else is disturbed.
			logger.Debug("select case lost race, retrying", log.CaseNameKey, active[chosen].name)
			retry[chosen] <- struct{}{}
			continue
		}

		cancel()
		return active[chosen].finish(value, err)
	}
}
