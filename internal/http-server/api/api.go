package api

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"coupondrop/internal/config"
	"coupondrop/internal/http-server/handlers/admin"
	"coupondrop/internal/http-server/handlers/coupon"
	"coupondrop/internal/http-server/handlers/errors"
	"coupondrop/internal/http-server/middleware/authenticate"
	"coupondrop/internal/http-server/middleware/ratelimit"
	"coupondrop/internal/http-server/middleware/reqlog"
	"coupondrop/internal/http-server/middleware/timeout"
	"coupondrop/lib/sl"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	authenticate.Authenticate
	coupon.Core
	admin.Core
}

// Router assembles the full route tree. Split out of New so tests can
// drive the real routing and middleware without a listener.
func Router(conf *config.Config, log *slog.Logger, handler Handler) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	if conf.Listen.TrustProxy {
		router.Use(middleware.RealIP)
	}
	router.Use(reqlog.New(log))
	router.Use(middleware.Recoverer)
	router.Use(timeout.Timeout(5))
	router.Use(render.SetContentType(render.ContentTypeJSON))

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	limiter := ratelimit.NewLimiter(conf.Claim.RatePerMinute, conf.Claim.RateBurst)
	cookieAge := conf.Claim.CookieMaxAgeSeconds

	router.Route("/api", func(rootApi chi.Router) {
		rootApi.Route("/coupons", func(c chi.Router) {
			c.Get("/available", coupon.Available(log, handler))
			c.Group(func(claim chi.Router) {
				claim.Use(ratelimit.New(log, limiter))
				claim.Get("/claim", coupon.Claim(log, handler, cookieAge))
				claim.Put("/claim/{id}", coupon.ClaimById(log, handler, cookieAge))
			})
			// coupon creation is admin-only even though it lives under the
			// public prefix
			c.Group(func(priv chi.Router) {
				priv.Use(authenticate.New(log, handler))
				priv.Post("/admin/add", coupon.Add(log, handler))
			})
		})
		rootApi.Route("/admin", func(a chi.Router) {
			a.Post("/login", admin.Login(log, handler))
			a.Group(func(priv chi.Router) {
				priv.Use(authenticate.New(log, handler))
				priv.Get("/coupons", admin.Coupons(log, handler))
				priv.Get("/claim-history", admin.ClaimHistory(log, handler))
				priv.Put("/coupon/update/{id}", admin.Update(log, handler))
				priv.Delete("/coupon/delete/{id}", admin.Delete(log, handler))
			})
		})
	})

	return router
}

func New(conf *config.Config, log *slog.Logger, handler Handler) error {

	server := Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	router := Router(conf, log, handler)

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:      router,
		ErrorLog:     httpLog,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.BindIp, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	server.log.Info("starting api server", slog.String("address", serverAddress))

	return server.httpServer.Serve(listener)
}
