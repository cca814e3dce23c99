package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Overland-East-Bay/ride-api/internal/app/trips"
	"github.com/Overland-East-Bay/ride-api/internal/app/users"
)

// Fixed response messages. Clients match on some of these, so they do not change.
const (
	msgInvalidAuthHeader     = "Invalid Authorization header"
	msgNoBearerHeader        = "no bearer header"
	msgInvalidMasterKey      = "Invalid master key"
	msgTooManyRequests       = "Too many requests"
	msgInvalidBody           = "Invalid request body"
	msgInternal              = "Internal server error"
	msgIdempotencyReuse      = "Idempotency key reused with a different payload"
	msgIdempotencyKeyTooLong = "Idempotency-Key must be at most 255 characters"
)

type errorResponse struct {
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		w.Header().Set(middleware.RequestIDHeader, rid)
	}
	writeJSON(w, status, errorResponse{Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeAppError maps an application error to its response. Anything that is
// not an application error is a server fault: it is logged and the caller
// gets a generic 500.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	if ue := (*users.Error)(nil); errors.As(err, &ue) {
		writeError(w, r, ue.Status, ue.Message)
		return
	}
	if te := (*trips.Error)(nil); errors.As(err, &te) {
		writeError(w, r, te.Status, te.Message)
		return
	}
	s.serverError(w, r, err)
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	)
	writeError(w, r, http.StatusInternalServerError, msgInternal)
}
