package corochan

import (
	"github.com/concordgo/corochan/diag"
	"github.com/concordgo/corochan/log"
	"github.com/concordgo/corochan/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type options struct {
	name     string
	registry *diag.Registry
	logger   log.Logger
	metrics  metrics.Client
	tracer   trace.Tracer
}

// Option configures a Channel at construction time.
type Option func(*options)

// WithName sets the channel's diagnostic name, used in log fields, metric
// tags, and diag.Snapshot.Name. Unnamed channels get a generated
// "channel-<uuid>" name so they never collide in a shared diag.Registry.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithRegistry registers the channel with r under its name so it shows up
// in r.Snapshots() until the channel is closed.
func WithRegistry(r *diag.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithLogger overrides the default logger (log.Default()) for this channel.
func WithLogger(l log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics overrides the default no-op metrics client for this channel.
func WithMetrics(m metrics.Client) Option {
	return func(o *options) { o.metrics = m }
}

// WithTracer overrides the default no-op tracer for this channel's blocking
// Read and Write calls. Select cases built from the channel do not use it;
// Select spans come from WithSelectTracer.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

func newOptions(opts []Option) *options {
	o := &options{
		// Unique by default so unnamed channels never collide when several
		// of them register with the same diag.Registry.
		name:    "channel-" + uuid.NewString(),
		logger:  log.Default(),
		metrics: metrics.Noop(),
		tracer:  noop.NewTracerProvider().Tracer("corochan"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
