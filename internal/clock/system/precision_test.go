package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClockTruncatesToCatalogPrecision(t *testing.T) {
	t.Parallel()

	tokyo := time.FixedZone("JST", 9*60*60)
	c := &Clock{now: func() time.Time {
		return time.Date(2018, 12, 24, 21, 30, 0, 123456789, tokyo)
	}}

	got := c.Now()
	assert.Equal(t, time.Date(2018, 12, 24, 12, 30, 0, 123456000, time.UTC), got)
	assert.Equal(t, "2018-12-24T12:30:00Z", got.Format(time.RFC3339))
}

func TestNilClockFallsBackToWallTime(t *testing.T) {
	t.Parallel()

	var c *Clock
	assert.WithinDuration(t, time.Now(), c.Now(), time.Second)
}
