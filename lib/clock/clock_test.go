package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRemainingDays(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		until time.Time
		want  int
	}{
		{"already passed", now.Add(-time.Hour), 0},
		{"exactly now", now, 0},
		{"one minute left", now.Add(time.Minute), 1},
		{"exactly one day", now.Add(24 * time.Hour), 1},
		{"one day and a second", now.Add(24*time.Hour + time.Second), 2},
		{"thirty days", now.AddDate(0, 0, 30), 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RemainingDays(now, tt.until))
		})
	}
}

func TestFixedClock(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewFixed(start)

	assert.Equal(t, start, c.Now())
	c.Advance(90 * time.Minute)
	assert.Equal(t, start.Add(90*time.Minute), c.Now())

	c.Set(start.AddDate(1, 0, 0))
	assert.Equal(t, 2027, c.Now().Year())
}

func TestFormat(t *testing.T) {
	ts := time.Date(2026, 5, 4, 3, 2, 1, 0, time.FixedZone("WIB", 7*3600))
	assert.Equal(t, "2026-05-03T20:02:01Z", Format(ts))
}

func TestStored(t *testing.T) {
	local := time.FixedZone("X", 3*3600)
	in := time.Date(2026, 4, 9, 12, 0, 0, 123456789, local)

	got := Stored(in)
	assert.Equal(t, time.UTC, got.Location())
	assert.Equal(t, 123000000, got.Nanosecond())
	assert.True(t, got.Equal(time.Date(2026, 4, 9, 9, 0, 0, 123000000, time.UTC)))

	assert.Zero(t, System{}.Now().Nanosecond()%int(time.Millisecond))
}
