package metrics

import (
	"time"

	"github.com/benbjohnson/clock"
)

type timer struct {
	client Client
	clock  clock.Clock
	start  time.Time
	name   string
	tags   Tags
}

// Timer starts a distribution timer against client using the given clock —
// pass clock.NewMock() in tests to make elapsed time deterministic instead
// of sleeping real wall-clock time.
func Timer(c clock.Clock, client Client, name string, tags Tags) *timer {
	return &timer{
		client: client,
		clock:  c,
		start:  c.Now(),
		name:   name,
		tags:   tags,
	}
}

// Stop the timer and send the elapsed time as milliseconds as a distribution metric.
func (t *timer) Stop() {
	elapsed := t.clock.Now().Sub(t.start)
	t.client.Distribution(t.name, t.tags, float64(elapsed/time.Millisecond))
}
