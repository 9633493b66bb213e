package auth

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"codegate/entity"
	"codegate/internal/http-server/handlers/errors"
	"codegate/internal/http-server/middleware/authenticate"
	"codegate/lib/api/cont"
	"codegate/lib/api/response"
	"codegate/lib/sl"
)

type Core interface {
	Login(ctx context.Context, req *entity.LoginRequest, remote string) (*entity.LoginResult, error)
}

// CookieOptions controls the session cookie attributes.
type CookieOptions struct {
	Secure bool
}

func sessionCookie(value string, expires time.Time, opts CookieOptions) *http.Cookie {
	return &http.Cookie{
		Name:     authenticate.CookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// Login sets the session cookie and also returns the token for API clients.
func Login(log *slog.Logger, handler Core, opts CookieOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remote := cont.RemoteIP(r)
		logger := log.With(
			sl.Module("http.handlers.auth"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("remote_addr", remote),
		)

		var req entity.LoginRequest
		if err := render.Bind(r, &req); err != nil {
			errors.BadRequest(w, r, logger, err)
			return
		}

		res, err := handler.Login(r.Context(), &req, remote)
		if err != nil {
			errors.Render(w, r, logger, err)
			return
		}

		http.SetCookie(w, sessionCookie(res.Token, res.ExpiresAt, opts))
		render.JSON(w, r, response.Ok(res))
	}
}

func Logout(opts CookieOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie := sessionCookie("", time.Unix(0, 0), opts)
		cookie.MaxAge = -1
		http.SetCookie(w, cookie)
		render.JSON(w, r, response.Ok(nil))
	}
}
