package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"

	"codegate/internal/config"
	"codegate/internal/http-server/handlers/activation"
	"codegate/internal/http-server/handlers/auth"
	"codegate/internal/http-server/handlers/codes"
	handlerErrors "codegate/internal/http-server/handlers/errors"
	"codegate/internal/http-server/handlers/usage"
	"codegate/internal/http-server/middleware/authenticate"
	"codegate/internal/http-server/middleware/observe"
	"codegate/internal/http-server/middleware/throttle"
	"codegate/internal/http-server/middleware/timeout"
	"codegate/lib/metrics"
	"codegate/lib/sl"
)

const requestTimeout = 10 * time.Second

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	authenticate.Authenticate
	activation.Core
	codes.Core
	auth.Core
	usage.Core
}

// Options carries the optional parts of the router; nil fields are skipped.
type Options struct {
	Metrics  *metrics.Metrics
	Throttle *throttle.Throttle
}

func New(conf *config.Config, log *slog.Logger, handler Handler, opts Options) *Server {
	server := &Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", conf.Listen.BindIp, conf.Listen.Port),
		Handler:      NewRouter(conf, log, handler, opts),
		ErrorLog:     httpLog,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server
}

func NewRouter(conf *config.Config, log *slog.Logger, handler Handler, opts Options) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	var rec observe.Recorder
	if opts.Metrics != nil {
		rec = opts.Metrics
	}
	router.Use(observe.New(log, rec))
	router.Use(middleware.Recoverer)
	router.Use(timeout.Timeout(requestTimeout))
	if len(conf.Cors.AllowedOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   conf.Cors.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	router.NotFound(handlerErrors.NotFound(log))
	router.MethodNotAllowed(handlerErrors.NotAllowed(log))

	if opts.Metrics != nil {
		router.Handle("/metrics", opts.Metrics.Handler())
	}

	cookies := auth.CookieOptions{Secure: conf.Admin.SecureCookie}

	router.Route("/api", func(rootApi chi.Router) {
		rootApi.Use(render.SetContentType(render.ContentTypeJSON))

		rootApi.Group(func(device chi.Router) {
			if opts.Throttle != nil {
				device.Use(opts.Throttle.Middleware(activation.Failed))
			}
			device.Post("/activation/validate", activation.Validate(log, handler))
			device.Post("/activation/check", activation.Check(log, handler))
		})

		rootApi.Route("/auth", func(a chi.Router) {
			a.Post("/login", auth.Login(log, handler, cookies))
			a.Post("/logout", auth.Logout(cookies))
		})

		rootApi.Group(func(admin chi.Router) {
			admin.Use(authenticate.New(log, handler))
			admin.Post("/activation/extend", activation.Extend(log, handler))
			admin.Post("/activation/revoke", activation.Revoke(log, handler))
			admin.Post("/codes/create", codes.Create(log, handler))
			admin.Post("/codes/toggle", codes.Toggle(log, handler))
			admin.Post("/codes/delete", codes.Delete(log, handler))
			admin.Get("/codes", codes.List(log, handler))
			admin.Get("/codes/{code}", codes.Detail(log, handler))
			admin.Get("/devices", codes.Devices(log, handler))
			admin.Get("/stats", codes.Stats(log, handler))
			admin.Get("/usage", usage.Overview(log, handler))
			admin.Get("/profiles/{id}", usage.Profile(log, handler))
		})
	})

	return router
}

// Start listens and serves until Shutdown; a clean shutdown returns nil.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.log.Info("starting api server", slog.String("address", s.httpServer.Addr))

	if err = s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down api server")
	return s.httpServer.Shutdown(ctx)
}
