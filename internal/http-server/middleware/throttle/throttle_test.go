package throttle

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllow_PerAddress(t *testing.T) {
	th := New(1, 2)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	th.now = func() time.Time { return now }

	assert.True(t, th.Allow("a"))
	assert.True(t, th.Allow("a"))
	assert.False(t, th.Allow("a"))
	assert.True(t, th.Allow("b"))

	now = now.Add(time.Second)
	assert.True(t, th.Allow("a"))
}

func TestAllow_Disabled(t *testing.T) {
	th := New(0, 1)
	for i := 0; i < 100; i++ {
		assert.True(t, th.Allow("a"))
	}
	assert.Empty(t, th.visitors)
}

func TestSweep(t *testing.T) {
	th := New(1, 1)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	th.now = func() time.Time { return now }

	th.Allow("old")
	now = now.Add(2 * time.Minute)
	th.Allow("fresh")
	now = now.Add(2 * time.Minute)

	assert.Equal(t, 1, th.Sweep())
	assert.Contains(t, th.visitors, "fresh")
	assert.NotContains(t, th.visitors, "old")
}

func TestMiddleware(t *testing.T) {
	th := New(0.001, 1)
	throttled := 0
	th.OnThrottled(func() { throttled++ })
	reject := func(message string) interface{} {
		return map[string]string{"error": message}
	}
	h := th.Middleware(reject)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	var last *httptest.ResponseRecorder
	send := func(remote string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = remote
		last = httptest.NewRecorder()
		h.ServeHTTP(last, req)
		return last.Code
	}

	assert.Equal(t, http.StatusNoContent, send("198.51.100.1:1000"))
	assert.Equal(t, http.StatusTooManyRequests, send("198.51.100.1:2000"))
	assert.Equal(t, "1", last.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"`+MsgThrottled+`"}`, last.Body.String())
	assert.Equal(t, http.StatusNoContent, send("198.51.100.2:1000"))
	assert.Equal(t, 1, throttled)
}
