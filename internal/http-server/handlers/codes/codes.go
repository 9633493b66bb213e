package codes

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"codegate/entity"
	"codegate/impl/activation"
	"codegate/internal/http-server/handlers/errors"
	"codegate/lib/api/response"
	"codegate/lib/sl"
)

type Core interface {
	CreateCode(ctx context.Context, req *entity.CreateCodeRequest) (*entity.CreateResult, error)
	ToggleCode(ctx context.Context, req *entity.ToggleRequest) (*entity.ActionResult, error)
	DeleteCode(ctx context.Context, req *entity.DeleteCodeRequest) (*entity.ActionResult, error)
	ListCodes(ctx context.Context, page entity.Page) (*entity.List[*entity.CodeSummary], error)
	CodeDetail(ctx context.Context, code string) (*entity.CodeDetail, error)
	ListDevices(ctx context.Context, page entity.Page) (*entity.List[*entity.DeviceRow], error)
	Stats(ctx context.Context) (*entity.Stats, error)
}

func requestLogger(log *slog.Logger, r *http.Request) *slog.Logger {
	return log.With(
		sl.Module("http.handlers.codes"),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// pageFromQuery reads ?page=&per_page=, falling back to defaults on bad values.
func pageFromQuery(r *http.Request) entity.Page {
	number, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	return entity.NewPage(number, perPage)
}

func Create(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r)

		var req entity.CreateCodeRequest
		if err := render.Bind(r, &req); err != nil {
			errors.BadRequest(w, r, logger, err)
			return
		}

		res, err := handler.CreateCode(r.Context(), &req)
		if err != nil {
			errors.Render(w, r, logger, err)
			return
		}
		logger.With(sl.Code(res.Code), slog.Int("max_devices", req.MaxDevices)).Info("code created")

		render.JSON(w, r, res)
	}
}

func Toggle(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r)

		var req entity.ToggleRequest
		if err := render.Bind(r, &req); err != nil {
			errors.BadRequest(w, r, logger, err)
			return
		}
		logger = logger.With(sl.Code(req.Code), slog.Bool("is_active", *req.IsActive))

		res, err := handler.ToggleCode(r.Context(), &req)
		if err != nil {
			errors.Render(w, r, logger, err)
			return
		}
		logger.Info(res.Message)

		render.JSON(w, r, res)
	}
}

func Delete(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r)

		var req entity.DeleteCodeRequest
		if err := render.Bind(r, &req); err != nil {
			errors.BadRequest(w, r, logger, err)
			return
		}
		logger = logger.With(sl.Code(req.Code))

		res, err := handler.DeleteCode(r.Context(), &req)
		if err != nil {
			errors.Render(w, r, logger, err)
			return
		}
		logger.Info(res.Message)

		render.JSON(w, r, res)
	}
}

func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r)

		list, err := handler.ListCodes(r.Context(), pageFromQuery(r))
		if err != nil {
			errors.Render(w, r, logger, err)
			return
		}

		render.JSON(w, r, response.Ok(list))
	}
}

func Detail(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		logger := requestLogger(log, r).With(sl.Code(code))

		detail, err := handler.CodeDetail(r.Context(), code)
		if err != nil {
			errors.Render(w, r, logger, err)
			return
		}
		if detail == nil {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error(activation.MsgCodeNotFound))
			return
		}

		render.JSON(w, r, response.Ok(detail))
	}
}

func Devices(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r)

		list, err := handler.ListDevices(r.Context(), pageFromQuery(r))
		if err != nil {
			errors.Render(w, r, logger, err)
			return
		}

		render.JSON(w, r, response.Ok(list))
	}
}

func Stats(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r)

		stats, err := handler.Stats(r.Context())
		if err != nil {
			errors.Render(w, r, logger, err)
			return
		}

		render.JSON(w, r, response.Ok(stats))
	}
}
