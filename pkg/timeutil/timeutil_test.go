package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDateOf(t *testing.T) {
	loc := time.FixedZone("UTC+6", 6*3600)
	at := time.Date(2026, 8, 26, 2, 30, 0, 0, loc) // 2026-08-25 20:30 UTC

	d := DateOf(at)
	assert.Equal(t, Date(2026, 8, 25), d)
	assert.Equal(t, time.UTC, d.Location())
}

func TestSameDate(t *testing.T) {
	a := time.Date(2026, 8, 25, 0, 15, 0, 0, time.UTC)
	b := time.Date(2026, 8, 25, 23, 59, 59, 0, time.UTC)
	c := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)

	assert.True(t, SameDate(a, b))
	assert.False(t, SameDate(b, c))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-03-14")
	assert.NoError(t, err)
	assert.Equal(t, Date(2026, 3, 14), d)

	_, err = ParseDate("14.03.2026")
	assert.Error(t, err)

	_, err = ParseDate("")
	assert.Error(t, err)
}

func TestFormatDate(t *testing.T) {
	at := time.Date(2026, 3, 14, 18, 45, 0, 0, time.UTC)
	assert.Equal(t, "2026-03-14", FormatDate(at))
}

func TestDaysBetween(t *testing.T) {
	a := Date(2026, 8, 20)
	b := Date(2026, 8, 25)

	assert.Equal(t, 5, DaysBetween(a, b))
	assert.Equal(t, -5, DaysBetween(b, a))
	assert.Equal(t, 0, DaysBetween(a, a))
}

func TestStartOfWeek(t *testing.T) {
	// 2026-08-26 is a Wednesday.
	wednesday := Date(2026, 8, 26)
	assert.Equal(t, Date(2026, 8, 24), StartOfWeek(wednesday))

	monday := Date(2026, 8, 24)
	assert.Equal(t, monday, StartOfWeek(monday))

	sunday := Date(2026, 8, 30)
	assert.Equal(t, Date(2026, 8, 24), StartOfWeek(sunday))
}

func TestStartOfMonth(t *testing.T) {
	assert.Equal(t, Date(2026, 8, 1), StartOfMonth(Date(2026, 8, 26)))
}
