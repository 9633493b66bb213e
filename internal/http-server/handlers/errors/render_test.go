package errors

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codegate/impl/activation"
	"codegate/impl/core"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"invalid input", fmt.Errorf("%w: code required", activation.ErrInvalidInput), http.StatusBadRequest, ""},
		{"bad session", core.ErrUnauthorized, http.StatusUnauthorized, MsgUnauthorized},
		{"blocked login", &core.RateLimitedError{RetryAfter: time.Minute}, http.StatusTooManyRequests, ""},
		{"deadline", fmt.Errorf("load sessions: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, MsgTimeout},
		{"store fault", goerrors.New("connection refused"), http.StatusInternalServerError, MsgInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := Status(tt.err)
			assert.Equal(t, tt.status, status)
			if tt.msg != "" {
				assert.Equal(t, tt.msg, msg)
			}
		})
	}
}

func TestRender_RetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)

	Render(rec, req, discard, &core.RateLimitedError{RetryAfter: 90500 * time.Millisecond})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "91", rec.Header().Get("Retry-After"))
}

func TestRenderWith_ExpiredRequestIs504(t *testing.T) {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil).WithContext(ctx)

	body := func(message string) interface{} {
		return map[string]interface{}{"valid": false, "message": message}
	}
	RenderWith(rec, req, discard, goerrors.New("server selection error"), body)

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, map[string]interface{}{"valid": false, "message": MsgTimeout}, out)
}

func TestRender_EnvelopeOnFault(t *testing.T) {
	rec := httptest.NewRecorder()
	Render(rec, httptest.NewRequest(http.MethodGet, "/", nil), discard, goerrors.New("boom"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, false, out["success"])
	assert.Equal(t, MsgInternal, out["status_message"])
}
