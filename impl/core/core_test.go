package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codegate/entity"
	"codegate/impl/auth"
	"codegate/impl/ratelimit"
	"codegate/lib/clock"
)

// noActivation satisfies ActivationService; login tests never reach it.
type noActivation struct {
	ActivationService
}

func newTestCore(t *testing.T) (*Core, *clock.Fixed) {
	t.Helper()
	clk := clock.NewFixed(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))
	a, err := auth.New(auth.Options{Password: "admin-pass", Secret: "k", TTL: time.Hour}, clk)
	require.NoError(t, err)

	c := New(noActivation{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.SetAuthService(a)
	c.SetLoginLimiter(ratelimit.New(clk), ratelimit.Rule{MaxAttempts: 3, Window: time.Minute, BlockDuration: 15 * time.Minute})
	return c, clk
}

func TestLogin_Success(t *testing.T) {
	c, _ := newTestCore(t)

	res, err := c.Login(context.Background(), &entity.LoginRequest{Password: "admin-pass"}, "10.0.0.1")
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)

	session, err := c.AuthenticateAdmin(res.Token)
	require.NoError(t, err)
	assert.Equal(t, auth.Subject, session.Subject)
}

func TestLogin_WrongPasswordThenBlocked(t *testing.T) {
	c, clk := newTestCore(t)
	wrong := &entity.LoginRequest{Password: "nope"}

	for i := 0; i < 3; i++ {
		_, err := c.Login(context.Background(), wrong, "10.0.0.2")
		assert.ErrorIs(t, err, ErrUnauthorized)
	}

	// even the right password is refused while blocked
	_, err := c.Login(context.Background(), &entity.LoginRequest{Password: "admin-pass"}, "10.0.0.2")
	var limited *RateLimitedError
	require.True(t, errors.As(err, &limited))
	assert.Equal(t, 15*time.Minute, limited.RetryAfter)

	// other addresses are unaffected
	_, err = c.Login(context.Background(), &entity.LoginRequest{Password: "admin-pass"}, "10.0.0.3")
	assert.NoError(t, err)

	clk.Advance(15*time.Minute + time.Second)
	_, err = c.Login(context.Background(), &entity.LoginRequest{Password: "admin-pass"}, "10.0.0.2")
	assert.NoError(t, err)
}

func TestLogin_SuccessResetsCounter(t *testing.T) {
	c, _ := newTestCore(t)
	wrong := &entity.LoginRequest{Password: "nope"}

	for i := 0; i < 2; i++ {
		_, _ = c.Login(context.Background(), wrong, "10.0.0.4")
	}
	_, err := c.Login(context.Background(), &entity.LoginRequest{Password: "admin-pass"}, "10.0.0.4")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = c.Login(context.Background(), wrong, "10.0.0.4")
		assert.ErrorIs(t, err, ErrUnauthorized)
	}
}

func TestAuthenticateAdmin_Rejects(t *testing.T) {
	c, _ := newTestCore(t)

	_, err := c.AuthenticateAdmin("not-a-token")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestLogin_WithoutAuthService(t *testing.T) {
	c := New(noActivation{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := c.Login(context.Background(), &entity.LoginRequest{Password: "x"}, "ip")
	assert.Error(t, err)
	_, err = c.AuthenticateAdmin("t")
	assert.Error(t, err)
}

type loginCounts map[string]int

func (l loginCounts) Login(result string) { l[result]++ }

func TestLogin_RecordsResults(t *testing.T) {
	c, _ := newTestCore(t)
	counts := loginCounts{}
	c.SetLoginRecorder(counts)

	for i := 0; i < 4; i++ {
		_, _ = c.Login(context.Background(), &entity.LoginRequest{Password: "nope"}, "10.0.0.5")
	}
	_, _ = c.Login(context.Background(), &entity.LoginRequest{Password: "admin-pass"}, "10.0.0.6")

	assert.Equal(t, loginCounts{"failed": 3, "blocked": 1, "ok": 1}, counts)
}
