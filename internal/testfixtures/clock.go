package testfixtures

import (
	"time"

	"github.com/jonboulle/clockwork"
)

var referenceTime = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// NewClock returns a fake clock initialised to the supplied time. When start
// is the zero value, the shared ReferenceTime is used.
func NewClock(start time.Time) *clockwork.FakeClock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return clockwork.NewFakeClockAt(start)
}
