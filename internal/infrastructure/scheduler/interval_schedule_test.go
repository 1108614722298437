package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIntervalSchedule(t *testing.T) {
	s := NewIntervalSchedule(15 * time.Minute)
	at := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, at.Add(15*time.Minute), s.Next(at))
	assert.Equal(t, "@every 15m0s", s.String())
}

func TestDailySchedule(t *testing.T) {
	s := NewDailySchedule(3, 30)

	t.Run("before the slot", func(t *testing.T) {
		at := time.Date(2026, 8, 26, 1, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2026, 8, 26, 3, 30, 0, 0, time.UTC), s.Next(at))
	})

	t.Run("after the slot rolls to tomorrow", func(t *testing.T) {
		at := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2026, 8, 27, 3, 30, 0, 0, time.UTC), s.Next(at))
	})

	t.Run("exactly at the slot rolls to tomorrow", func(t *testing.T) {
		at := time.Date(2026, 8, 26, 3, 30, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2026, 8, 27, 3, 30, 0, 0, time.UTC), s.Next(at))
	})

	assert.Equal(t, "@daily 03:30", s.String())
}
