package activation

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"codegate/entity"
	"codegate/internal/http-server/handlers/errors"
	"codegate/lib/sl"
)

type Core interface {
	ValidateDevice(ctx context.Context, req *entity.ValidateRequest) (*entity.ValidateResult, error)
	CheckDevice(ctx context.Context, req *entity.CheckRequest) (*entity.CheckResult, error)
	ExtendCode(ctx context.Context, req *entity.ExtendRequest) (*entity.ExtendResult, error)
	RevokeDevice(ctx context.Context, req *entity.RevokeRequest) (*entity.RevokeResult, error)
}

func requestLogger(log *slog.Logger, r *http.Request) *slog.Logger {
	return log.With(
		sl.Module("http.handlers.activation"),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// Failed is the body of a rejected device request: device clients read the
// same result shape on failures as on negative outcomes.
func Failed(message string) interface{} {
	return &entity.ValidateResult{Message: message}
}

func checkFailed(message string) interface{} {
	return &entity.CheckResult{Message: message}
}

// Validate registers the calling device under a code.
func Validate(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r)

		var req entity.ValidateRequest
		if err := render.Bind(r, &req); err != nil {
			errors.BadRequestWith(w, r, logger, err, Failed)
			return
		}
		logger = logger.With(sl.Code(req.Code), sl.Device(req.DeviceId))

		res, err := handler.ValidateDevice(r.Context(), &req)
		if err != nil {
			errors.RenderWith(w, r, logger, err, Failed)
			return
		}
		logger.With(slog.Bool("valid", res.Valid)).Debug(res.Message)

		render.JSON(w, r, res)
	}
}

func Check(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r)

		var req entity.CheckRequest
		if err := render.Bind(r, &req); err != nil {
			errors.BadRequestWith(w, r, logger, err, checkFailed)
			return
		}
		logger = logger.With(sl.Device(req.DeviceId))

		res, err := handler.CheckDevice(r.Context(), &req)
		if err != nil {
			errors.RenderWith(w, r, logger, err, checkFailed)
			return
		}
		logger.With(slog.Bool("valid", res.Valid)).Debug(res.Message)

		render.JSON(w, r, res)
	}
}

func Extend(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r)

		var req entity.ExtendRequest
		if err := render.Bind(r, &req); err != nil {
			errors.BadRequest(w, r, logger, err)
			return
		}
		logger = logger.With(sl.Code(req.Code), slog.Int("additional_days", req.AdditionalDays))

		res, err := handler.ExtendCode(r.Context(), &req)
		if err != nil {
			errors.Render(w, r, logger, err)
			return
		}
		logger.With(slog.Int("extended", res.ExtendedDevices)).Info(res.Message)

		render.JSON(w, r, res)
	}
}

func Revoke(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r)

		var req entity.RevokeRequest
		if err := render.Bind(r, &req); err != nil {
			errors.BadRequest(w, r, logger, err)
			return
		}
		logger = logger.With(sl.Device(req.DeviceId))

		res, err := handler.RevokeDevice(r.Context(), &req)
		if err != nil {
			errors.Render(w, r, logger, err)
			return
		}
		logger.With(slog.Int64("revoked", res.Revoked)).Info(res.Message)

		render.JSON(w, r, res)
	}
}
