// Package ratelimit is a keyed fixed-window attempt counter with a lockout.
//
// A key gets Rule.MaxAttempts attempts per Rule.Window. The first attempt past
// the limit pushes the window end to now + Rule.BlockDuration once; later
// denials leave it where it is.
package ratelimit

import (
	"sync"
	"time"

	"codegate/lib/clock"
)

type Rule struct {
	MaxAttempts   int
	Window        time.Duration
	BlockDuration time.Duration
}

// LoginRule 5 attempts per minute, 15 minutes lockout
var LoginRule = Rule{
	MaxAttempts:   5,
	Window:        time.Minute,
	BlockDuration: 15 * time.Minute,
}

type Result struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
	Blocked   bool
}

type entry struct {
	count   int
	resetAt time.Time
	blocked bool
}

type Limiter struct {
	clock   clock.Clock
	mu      sync.Mutex
	entries map[string]*entry
}

func New(clk clock.Clock) *Limiter {
	if clk == nil {
		clk = clock.System{}
	}
	return &Limiter{
		clock:   clk,
		entries: make(map[string]*entry),
	}
}

// Check records an attempt for key and reports whether it is allowed.
func (l *Limiter) Check(key string, rule Rule) Result {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok || now.After(e.resetAt) {
		e = &entry{count: 1, resetAt: now.Add(rule.Window)}
		l.entries[key] = e
		return Result{
			Allowed:   true,
			Remaining: rule.MaxAttempts - 1,
			ResetIn:   rule.Window,
		}
	}

	if e.count >= rule.MaxAttempts {
		if !e.blocked {
			e.blocked = true
			e.resetAt = now.Add(rule.BlockDuration)
		}
		return Result{
			Allowed: false,
			ResetIn: e.resetAt.Sub(now),
			Blocked: true,
		}
	}

	e.count++
	return Result{
		Allowed:   true,
		Remaining: rule.MaxAttempts - e.count,
		ResetIn:   e.resetAt.Sub(now),
	}
}

// Reset forgets key, e.g. after a successful login.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	delete(l.entries, key)
	l.mu.Unlock()
}

// Sweep drops entries whose window has elapsed and returns how many were removed.
func (l *Limiter) Sweep() int {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, e := range l.entries {
		if now.After(e.resetAt) {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}

func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
