package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// otelClient adapts Client onto an OpenTelemetry metric.Meter, so a host
// application that already runs an OTel SDK pipeline can collect corochan's
// channel/select metrics through the same exporters as everything else.
//
// One otelClient is normally shared across every Channel and Select call in
// a process, so its instrument caches are sync.Map rather than a plain map
// guarded by nothing — the same guard the teacher's own in-memory metrics
// client (bench/metrics.go's memMetrics.Counter, backed by a sync.Map) uses
// around its counter store, for the same reason: two goroutines hitting an
// uncached metric name at the same time must not race a plain map write.
type otelClient struct {
	meter    metric.Meter
	tags     Tags
	ctx      context.Context
	counters *sync.Map // string -> metric.Float64Counter
	hists    *sync.Map // string -> metric.Float64Histogram
}

// NewOtelClient adapts meter into a Client.
func NewOtelClient(meter metric.Meter) Client {
	return &otelClient{
		meter:    meter,
		ctx:      context.Background(),
		counters: &sync.Map{},
		hists:    &sync.Map{},
	}
}

func (c *otelClient) attrs(tags Tags) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(c.tags)+len(tags))
	for k, v := range c.tags {
		attrs = append(attrs, attribute.String(k, v))
	}
	for k, v := range tags {
		attrs = append(attrs, attribute.String(k, v))
	}
	return attrs
}

func (c *otelClient) counter(name string) metric.Float64Counter {
	if ctr, ok := c.counters.Load(name); ok {
		return ctr.(metric.Float64Counter)
	}
	ctr, _ := c.meter.Float64Counter(name)
	actual, _ := c.counters.LoadOrStore(name, ctr)
	return actual.(metric.Float64Counter)
}

func (c *otelClient) histogram(name string) metric.Float64Histogram {
	if h, ok := c.hists.Load(name); ok {
		return h.(metric.Float64Histogram)
	}
	h, _ := c.meter.Float64Histogram(name)
	actual, _ := c.hists.LoadOrStore(name, h)
	return actual.(metric.Float64Histogram)
}

func (c *otelClient) Counter(name string, tags Tags, value float64) {
	c.counter(name).Add(c.ctx, value, metric.WithAttributes(c.attrs(tags)...))
}

func (c *otelClient) Distribution(name string, tags Tags, value float64) {
	c.histogram(name).Record(c.ctx, value, metric.WithAttributes(c.attrs(tags)...))
}

func (c *otelClient) Timing(name string, tags Tags, duration time.Duration) {
	c.Distribution(name, tags, float64(duration/time.Millisecond))
}

func (c *otelClient) WithTags(tags Tags) Client {
	merged := make(Tags, len(c.tags)+len(tags))
	for k, v := range c.tags {
		merged[k] = v
	}
	for k, v := range tags {
		merged[k] = v
	}
	return &otelClient{meter: c.meter, tags: merged, ctx: c.ctx, counters: c.counters, hists: c.hists}
}
