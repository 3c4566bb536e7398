package metrics

import "time"

// Tags are the dimensions attached to a single metric emission.
type Tags map[string]string

// Client is a small vendor-neutral metrics sink. corochan ships a no-op
// implementation (Noop) and an OpenTelemetry-backed one (NewOtelClient);
// callers are free to plug in anything else that satisfies this interface.
type Client interface {
	Counter(name string, tags Tags, value float64)

	Distribution(name string, tags Tags, value float64)

	Timing(name string, tags Tags, duration time.Duration)

	WithTags(tags Tags) Client
}

type noopClient struct{}

// Noop returns a Client that discards everything. It's the default so
// instrumentation calls never need a nil check.
func Noop() Client { return noopClient{} }

func (noopClient) Counter(name string, tags Tags, value float64)           {}
func (noopClient) Distribution(name string, tags Tags, value float64)      {}
func (noopClient) Timing(name string, tags Tags, duration time.Duration)   {}
func (noopClient) WithTags(tags Tags) Client                               { return noopClient{} }
