// Package common provides small shared utilities, currently stage timing.
package common

import (
	"fmt"
	"time"
)

// Timer measures consecutive stages of a multi-phase operation. Lap returns
// the time since the previous lap (or construction), Elapsed the time since
// construction.
type Timer struct {
	start time.Time
	mark  time.Time
}

// NewTimer creates a started timer.
func NewTimer() *Timer {
	now := time.Now()
	return &Timer{start: now, mark: now}
}

// Lap returns the duration since the last lap and starts the next one.
func (t *Timer) Lap() time.Duration {
	now := time.Now()
	d := now.Sub(t.mark)
	t.mark = now
	return d
}

// Elapsed returns the total duration since the timer was created.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// String returns the total elapsed time.
func (t *Timer) String() string {
	return fmt.Sprintf("%v", t.Elapsed())
}
