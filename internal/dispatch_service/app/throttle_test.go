package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestThrottleAllowed(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	window := 30 * time.Second

	t.Run("NoPreviousPush", func(t *testing.T) {
		assert.True(t, ThrottleAllowed(nil, now, window))
	})

	t.Run("ExactlyAtWindow", func(t *testing.T) {
		last := now.Add(-30 * time.Second)
		assert.True(t, ThrottleAllowed(&last, now, window))
	})

	t.Run("JustInsideWindow", func(t *testing.T) {
		last := now.Add(-30*time.Second + time.Millisecond)
		assert.False(t, ThrottleAllowed(&last, now, window))
	})

	t.Run("WellInsideWindow", func(t *testing.T) {
		last := now.Add(-10 * time.Second)
		assert.False(t, ThrottleAllowed(&last, now, window))
	})

	t.Run("LongAgo", func(t *testing.T) {
		last := now.Add(-time.Hour)
		assert.True(t, ThrottleAllowed(&last, now, window))
	})
}
