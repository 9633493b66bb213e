// Package observe logs every request and feeds request metrics.
package observe

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"codegate/lib/api/cont"
	"codegate/lib/sl"
)

type Recorder interface {
	Request(route string, status int, took time.Duration)
}

// New logs method, path, status and duration of each request. rec may be nil.
func New(log *slog.Logger, rec Recorder) func(next http.Handler) http.Handler {
	mod := sl.Module("middleware.observe")

	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			t1 := time.Now()

			defer func() {
				took := time.Since(t1)
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				route := ""
				if rctx := chi.RouteContext(r.Context()); rctx != nil {
					route = rctx.RoutePattern()
				}
				if rec != nil {
					rec.Request(route, status, took)
				}
				log.With(
					mod,
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("remote_addr", cont.RemoteIP(r)),
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.Int("status", status),
					slog.Int("size", ww.BytesWritten()),
					slog.Float64("duration", took.Seconds()),
				).Info("incoming request")
			}()

			next.ServeHTTP(ww, r)
		}
		return http.HandlerFunc(fn)
	}
}
