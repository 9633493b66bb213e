package clock

import (
	"math"
	"sync"
	"time"
)

const Layout = "2006-01-02T15:04:05Z"

// Precision is the finest resolution both stores keep for timestamps.
const Precision = time.Millisecond

// Clock is the time source for everything that compares against "now".
type Clock interface {
	Now() time.Time
}

// System reads the wall clock, always in UTC and truncated to Precision.
type System struct{}

func (System) Now() time.Time {
	return Stored(time.Now())
}

// Stored returns t the way a store hands it back: UTC, truncated to Precision.
func Stored(t time.Time) time.Time {
	return t.UTC().Truncate(Precision)
}

// Fixed is a manually driven clock for tests and replays.
type Fixed struct {
	mu sync.Mutex
	t  time.Time
}

func NewFixed(t time.Time) *Fixed {
	return &Fixed{t: t.UTC()}
}

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	f.t = t.UTC()
	f.mu.Unlock()
}

func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

// Now current UTC time formatted for API responses
func Now() string {
	return Format(time.Now())
}

func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}

// AddDays moves t forward by whole calendar days.
func AddDays(t time.Time, days int) time.Time {
	return t.AddDate(0, 0, days)
}

// RemainingDays number of started days between now and until, never negative
func RemainingDays(now, until time.Time) int {
	diff := until.Sub(now)
	if diff <= 0 {
		return 0
	}
	return int(math.Ceil(diff.Hours() / 24))
}
