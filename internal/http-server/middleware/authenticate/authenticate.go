package authenticate

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"codegate/entity"
	"codegate/lib/api/cont"
	"codegate/lib/api/response"
	"codegate/lib/sl"
)

// CookieName carries the admin session token set by login.
const CookieName = "admin_session"

type Authenticate interface {
	AuthenticateAdmin(token string) (*entity.AdminSession, error)
}

func New(log *slog.Logger, auth Authenticate) func(next http.Handler) http.Handler {
	mod := sl.Module("middleware.authenticate")
	log.With(mod).Info("authenticate middleware initialized")

	return func(next http.Handler) http.Handler {

		fn := func(w http.ResponseWriter, r *http.Request) {
			logger := log.With(
				mod,
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", cont.RemoteIP(r)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			token := Token(r)
			if token == "" {
				logger.Debug("session token not found")
				authFailed(w, r)
				return
			}

			if auth == nil {
				logger.Error("authentication not enabled")
				authFailed(w, r)
				return
			}

			session, err := auth.AuthenticateAdmin(token)
			if err != nil {
				logger.With(sl.Secret("token", token)).Warn("admin session rejected", sl.Err(err))
				authFailed(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(cont.PutAdmin(r.Context(), session)))
		}

		return http.HandlerFunc(fn)
	}
}

// Token reads the session token from the cookie, then from a Bearer header.
func Token(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func authFailed(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, response.Error("Unauthorized"))
}
