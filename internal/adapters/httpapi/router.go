package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Overland-East-Bay/ride-api/internal/platform/auth/jwtverifier"
	"github.com/Overland-East-Bay/ride-api/internal/platform/auth/masterkey"
	"github.com/Overland-East-Bay/ride-api/internal/platform/ratelimit"
)

type RouterOptions struct {
	// Verifier checks bearer tokens on /v1 resource routes. Required.
	Verifier *jwtverifier.Verifier
	// MasterKey gates /v1/admin routes. Admin routes are not mounted when nil.
	MasterKey *masterkey.Gate
	// Limiter throttles every /v1 route per client address. No limit when nil.
	Limiter *ratelimit.Limiter

	Logger  *zap.Logger
	Metrics *Metrics
	// Gatherer backs GET /metrics. Not mounted when nil.
	Gatherer prometheus.Gatherer

	// RequestTimeout bounds each request's context. Zero disables it.
	RequestTimeout time.Duration
	// TrustProxyHeaders takes the client address from X-Forwarded-For/X-Real-IP.
	// Only enable behind a proxy that sets them.
	TrustProxyHeaders bool
}

// NewRouter constructs the API HTTP router.
//
// Per /v1 request the order is: rate limiter, then the credential gate, then
// the handler. A request the limiter rejects never reaches the gate.
func NewRouter(s *Server, opts RouterOptions) http.Handler {
	if opts.Verifier == nil {
		panic("httpapi: RouterOptions.Verifier is required")
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if opts.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(NewAccessLogMiddleware(log, opts.Metrics))
	r.Use(middleware.Recoverer)
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		if opts.Limiter != nil {
			r.Use(NewRateLimitMiddleware(opts.Limiter))
		}

		r.Group(func(r chi.Router) {
			r.Use(NewAuthMiddleware(opts.Verifier, opts.Metrics))
			r.Post("/users", s.CreateUser)
			r.Get("/users/{id}", s.GetUser)
			r.Post("/trips", s.CreateTrip)
			r.Get("/trips/{id}", s.GetTrip)
		})

		if opts.MasterKey != nil {
			r.Group(func(r chi.Router) {
				r.Use(NewMasterKeyMiddleware(opts.MasterKey, opts.Metrics))
				r.Post("/admin/tokens", s.IssueToken)
			})
		}
	})

	return r
}
