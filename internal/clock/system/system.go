// Package system provides the wall clock used to timestamp catalog rows.
package system

import "time"

// Precision matches the resolution of a Postgres timestamptz column, so the
// time written to the catalog is the same instant sent in notifications.
const Precision = time.Microsecond

// Clock implements archiver.Clock using time.Now.
type Clock struct {
	now func() time.Time
}

// New creates a Clock reading the host wall clock.
func New() *Clock {
	return &Clock{now: time.Now}
}

// Now returns the current time in UTC, truncated to Precision. The monotonic
// reading is dropped so values compare equal after a database round trip.
func (c *Clock) Now() time.Time {
	now := time.Now
	if c != nil && c.now != nil {
		now = c.now
	}
	return now().UTC().Truncate(Precision)
}
