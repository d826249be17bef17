package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealClockDoesNotGoBackwards(t *testing.T) {
	first := RealClock.Now()
	time.Sleep(time.Millisecond)
	second := RealClock.Now()
	assert.True(t, second.After(first) || second.Equal(first), "real clock should not go backwards")
}

func TestManualClockHoldsValueUntilAdvanced(t *testing.T) {
	base := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	c := NewManualClock(base)
	assert.Equal(t, base, c.Now())

	c.Advance(10 * time.Second)
	assert.Equal(t, base.Add(10*time.Second), c.Now())

	c.Set(base)
	assert.Equal(t, base, c.Now())
}
