package metrics

import (
	"time"

	"github.com/LavishGent/boardcache/internal/types"
)

// Timer measures an operation and records it to a publisher when stopped.
type Timer struct {
	publisher types.Publisher
	start     time.Time
	name      string
	tags      []string
}

// NewTimer starts a timer. A nil publisher is allowed.
func NewTimer(publisher types.Publisher, name string, tags ...string) *Timer {
	if publisher == nil {
		publisher = NewNoOpPublisher()
	}
	return &Timer{
		publisher: publisher,
		name:      name,
		tags:      tags,
		start:     time.Now(),
	}
}

// Stop records the elapsed time with any extra tags and returns it.
func (t *Timer) Stop(extraTags ...string) time.Duration {
	duration := time.Since(t.start)
	tags := t.tags
	if len(extraTags) > 0 {
		tags = append(append([]string(nil), t.tags...), extraTags...)
	}
	t.publisher.Timing(t.name, duration, tags...)
	return duration
}

// Elapsed returns the time since the timer was started without recording.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}
