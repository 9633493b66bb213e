package usage

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"codegate/entity"
	"codegate/impl/activation"
	"codegate/internal/http-server/handlers/errors"
	"codegate/lib/api/response"
	"codegate/lib/sl"
)

// Core reads client activity reported under the codes.
type Core interface {
	UsageOverview(ctx context.Context) (*entity.UsageOverview, error)
	ProfileDetail(ctx context.Context, id string) (*entity.ProfileDetail, error)
}

func requestLogger(log *slog.Logger, r *http.Request) *slog.Logger {
	return log.With(
		sl.Module("http.handlers.usage"),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

func Overview(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r)

		overview, err := handler.UsageOverview(r.Context())
		if err != nil {
			errors.Render(w, r, logger, err)
			return
		}

		render.JSON(w, r, response.Ok(overview))
	}
}

func Profile(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		logger := requestLogger(log, r).With(slog.String("profile_id", id))

		profile, err := handler.ProfileDetail(r.Context(), id)
		if err != nil {
			errors.Render(w, r, logger, err)
			return
		}
		if profile == nil {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error(activation.MsgProfileNotFound))
			return
		}

		render.JSON(w, r, response.Ok(profile))
	}
}
