// Package throttle limits request rate per client address with token buckets.
package throttle

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/render"
	"golang.org/x/time/rate"

	"codegate/lib/api/cont"
)

// idleTTL is how long an address stays tracked after its last request.
const idleTTL = 3 * time.Minute

// visitor holds the rate limiter and the last time we saw this IP.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type Throttle struct {
	mu          sync.Mutex
	visitors    map[string]*visitor
	limit       rate.Limit
	burst       int
	now         func() time.Time
	onThrottled func()
}

// New allows rps requests per second per address with the given burst.
// A non-positive rps disables throttling.
func New(rps float64, burst int) *Throttle {
	if burst < 1 {
		burst = 1
	}
	return &Throttle{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(rps),
		burst:    burst,
		now:      time.Now,
	}
}

// OnThrottled registers a callback run for every rejected request.
func (t *Throttle) OnThrottled(fn func()) {
	t.onThrottled = fn
}

func (t *Throttle) Allow(ip string) bool {
	if t.limit <= 0 {
		return true
	}
	now := t.now()

	t.mu.Lock()
	v, exists := t.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.visitors[ip] = v
	}
	v.lastSeen = now
	t.mu.Unlock()

	return v.limiter.AllowN(now, 1)
}

const MsgThrottled = "Too many requests. Please slow down."

// Middleware rejects throttled requests with 429 and the body built by reject.
func (t *Throttle) Middleware(reject func(message string) interface{}) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			if !t.Allow(cont.RemoteIP(r)) {
				if t.onThrottled != nil {
					t.onThrottled()
				}
				w.Header().Set("Retry-After", "1")
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, reject(MsgThrottled))
				return
			}
			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}

// Sweep forgets addresses idle for longer than idleTTL.
func (t *Throttle) Sweep() int {
	cutoff := t.now().Add(-idleTTL)

	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for ip, v := range t.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(t.visitors, ip)
			removed++
		}
	}
	return removed
}
