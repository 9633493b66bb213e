package errors

import (
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/render"

	"codegate/impl/activation"
	"codegate/impl/core"
	"codegate/lib/api/response"
	"codegate/lib/sl"
)

const (
	MsgInternal     = "Internal server error"
	MsgTimeout      = "Request timed out"
	MsgUnauthorized = "Unauthorized"
)

// Body builds the response body for a failed request from a client-safe message.
type Body func(message string) interface{}

// Envelope is the body of admin routes.
func Envelope(message string) interface{} {
	return response.Error(message)
}

// BadRequest answers a request that failed to bind or validate.
func BadRequest(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	BadRequestWith(w, r, logger, err, Envelope)
}

func BadRequestWith(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, body Body) {
	logger.Debug("bind request", sl.Err(err))
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, body(invalidMessage(err)))
}

func invalidMessage(err error) string {
	return fmt.Sprintf("Invalid request: %v", err)
}

// Status maps a service error to its status and a message safe for the client:
// rejected input 400, a bad session 401, a blocked login 429, a missed deadline 504.
// Anything else is a fault and gets 500.
func Status(err error) (int, string) {
	var limited *core.RateLimitedError
	switch {
	case goerrors.Is(err, activation.ErrInvalidInput):
		return http.StatusBadRequest, invalidMessage(err)
	case goerrors.Is(err, core.ErrUnauthorized):
		return http.StatusUnauthorized, MsgUnauthorized
	case goerrors.As(err, &limited):
		return http.StatusTooManyRequests, limited.Error()
	case goerrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, MsgTimeout
	default:
		return http.StatusInternalServerError, MsgInternal
	}
}

// Render answers a failed admin request with the response envelope.
func Render(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	RenderWith(w, r, logger, err, Envelope)
}

// RenderWith answers a failed request with a caller-chosen body. A fault that
// surfaces after the request deadline passed is reported as 504.
func RenderWith(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, body Body) {
	status, msg := Status(err)
	if status == http.StatusInternalServerError && goerrors.Is(r.Context().Err(), context.DeadlineExceeded) {
		status, msg = http.StatusGatewayTimeout, MsgTimeout
	}

	switch status {
	case http.StatusBadRequest:
		logger.Debug("rejected request", sl.Err(err))
	case http.StatusTooManyRequests:
		var limited *core.RateLimitedError
		if goerrors.As(err, &limited) {
			seconds := int(math.Ceil(limited.RetryAfter.Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
		}
	case http.StatusGatewayTimeout:
		logger.Warn("request deadline exceeded", sl.Err(err))
	case http.StatusInternalServerError:
		logger.Error("request failed", sl.Err(err))
	}

	render.Status(r, status)
	render.JSON(w, r, body(msg))
}
