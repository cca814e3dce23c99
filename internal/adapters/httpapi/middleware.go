package httpapi

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Overland-East-Bay/ride-api/internal/platform/auth/jwtverifier"
	"github.com/Overland-East-Bay/ride-api/internal/platform/auth/masterkey"
	"github.com/Overland-East-Bay/ride-api/internal/platform/ratelimit"
)

// clientAddr returns the host part of r.RemoteAddr.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// NewRateLimitMiddleware rejects requests whose client address has no tokens left.
// Nothing downstream runs for a rejected request.
func NewRateLimitMiddleware(l *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(clientAddr(r)) {
				writeError(w, r, http.StatusTooManyRequests, msgTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NewAuthMiddleware enforces Authorization: Bearer <JWT>.
//
// Every failure gets the same 400 response so that callers cannot tell a
// missing header from a bad signature or an expired token. On success the
// claims are stored in the request context.
func NewAuthMiddleware(v *jwtverifier.Verifier, m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := v.VerifyHeader(r.Header.Get("Authorization"))
			if err != nil {
				if m != nil {
					m.authFailures.WithLabelValues("bearer", bearerFailureReason(err)).Inc()
				}
				writeError(w, r, http.StatusBadRequest, msgInvalidAuthHeader)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), c)))
		})
	}
}

func bearerFailureReason(err error) string {
	switch {
	case errors.Is(err, jwtverifier.ErrMissing):
		return "missing"
	case errors.Is(err, jwtverifier.ErrMalformed):
		return "malformed"
	case errors.Is(err, jwtverifier.ErrExpired):
		return "expired"
	default:
		return "invalid"
	}
}

// NewMasterKeyMiddleware guards administrative routes with the master key.
func NewMasterKeyMiddleware(g *masterkey.Gate, m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := g.Check(r.Header.Get("Authorization"))
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
				return
			case errors.Is(err, masterkey.ErrMissing):
				if m != nil {
					m.authFailures.WithLabelValues("master_key", "missing").Inc()
				}
				writeError(w, r, http.StatusBadRequest, msgNoBearerHeader)
			default:
				if m != nil {
					m.authFailures.WithLabelValues("master_key", "mismatch").Inc()
				}
				writeError(w, r, http.StatusBadRequest, msgInvalidMasterKey)
			}
		})
	}
}

// NewAccessLogMiddleware logs one line per request and records request metrics.
func NewAccessLogMiddleware(log *zap.Logger, m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			elapsed := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}

			if m != nil {
				m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
				m.duration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
			}
			log.Info("http request",
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", elapsed),
				zap.String("remote", clientAddr(r)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
