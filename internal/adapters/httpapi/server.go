package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/nullable"
	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	"github.com/Overland-East-Bay/ride-api/internal/app/trips"
	"github.com/Overland-East-Bay/ride-api/internal/app/users"
	"github.com/Overland-East-Bay/ride-api/internal/domain"
	"github.com/Overland-East-Bay/ride-api/internal/platform/auth/jwtverifier"
	"github.com/Overland-East-Bay/ride-api/internal/platform/clock"
	outclock "github.com/Overland-East-Bay/ride-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/ride-api/internal/ports/out/idempotency"
)

const (
	maxBodyBytes    = 1 << 20
	defaultTokenTTL = time.Hour
)

// Server holds the HTTP handlers. Handlers only translate between HTTP and
// the application services; authorization decisions live in the services.
type Server struct {
	users  *users.Service
	trips  *trips.Service
	signer *jwtverifier.Signer
	idem   idempotency.Store
	logger *zap.Logger
	clock  outclock.Clock

	// MaxTokenTTL caps the lifetime of tokens minted by IssueToken.
	MaxTokenTTL time.Duration
}

type ServerOption func(*Server)

func WithIdempotencyStore(store idempotency.Store) ServerOption {
	return func(s *Server) { s.idem = store }
}

func WithLogger(log *zap.Logger) ServerOption {
	return func(s *Server) { s.logger = log }
}

func WithClock(c outclock.Clock) ServerOption {
	return func(s *Server) { s.clock = c }
}

func NewServer(usersSvc *users.Service, tripsSvc *trips.Service, signer *jwtverifier.Signer, opts ...ServerOption) *Server {
	s := &Server{
		users:       usersSvc,
		trips:       tripsSvc,
		signer:      signer,
		logger:      zap.NewNop(),
		clock:       clock.NewSystemClock(),
		MaxTokenTTL: 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type createdResponse struct {
	UUID string `json:"uuid"`
}

type createUserRequest struct {
	UserName string `json:"userName"`
	Role     string `json:"role"`
}

type getUserResponse struct {
	UUID     string      `json:"uuid"`
	UserName string      `json:"userName"`
	Role     domain.Role `json:"role"`
}

type createTripRequest struct {
	StartCoords  string                    `json:"startCoords"`
	EndCoords    string                    `json:"endCoords"`
	ConsumerUUID nullable.Nullable[string] `json:"consumerUuid,omitempty"`
	DriverUUID   nullable.Nullable[string] `json:"driverUuid,omitempty"`
}

type getTripResponse struct {
	UUID         string                    `json:"uuid"`
	StartCoords  string                    `json:"startCoords"`
	EndCoords    string                    `json:"endCoords"`
	ConsumerUUID string                    `json:"consumerUuid"`
	DriverUUID   nullable.Nullable[string] `json:"driverUuid,omitempty"`
}

type issueTokenRequest struct {
	UUID       string `json:"uuid"`
	Role       string `json:"role"`
	TTLSeconds int    `json:"ttlSeconds,omitempty"`
}

type issueTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

func bindID(r *http.Request, dst *string) error {
	return runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), dst, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
}

// writeCreated answers a create request with {"uuid"} and a Location header,
// and stores the response for replay when fp is set.
func (s *Server) writeCreated(w http.ResponseWriter, r *http.Request, fp *idempotency.Fingerprint, id, location string) {
	body, err := json.Marshal(createdResponse{UUID: id})
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if fp != nil {
		s.remember(r, *fp, http.StatusCreated, location, body)
	}
	w.Header().Set("Location", location)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(body)
}

func (s *Server) CreateUser(w http.ResponseWriter, r *http.Request) {
	c, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusBadRequest, msgInvalidAuthHeader)
		return
	}

	var req createUserRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, msgInvalidBody)
		return
	}
	req.UserName = domain.NormalizeHumanName(req.UserName)

	fp, useIdem, err := s.idempotencyFingerprint(r, c.SubjectID, "/v1/users", req)
	if err != nil {
		s.idempotencyError(w, r, err)
		return
	}
	if useIdem && s.replay(w, r, fp) {
		return
	}

	u, err := s.users.Create(r.Context(), c, users.CreateInput{UserName: req.UserName, Role: domain.Role(req.Role)})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	var fpp *idempotency.Fingerprint
	if useIdem {
		fpp = &fp
	}
	s.writeCreated(w, r, fpp, string(u.ID), "/v1/users/"+string(u.ID))
}

func (s *Server) GetUser(w http.ResponseWriter, r *http.Request) {
	c, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusBadRequest, msgInvalidAuthHeader)
		return
	}
	var id string
	if err := bindID(r, &id); err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid user id")
		return
	}

	u, err := s.users.Get(r.Context(), c, domain.UserID(id))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, getUserResponse{
		UUID:     string(u.ID),
		UserName: u.UserName,
		Role:     u.Role,
	})
}

func (s *Server) CreateTrip(w http.ResponseWriter, r *http.Request) {
	c, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusBadRequest, msgInvalidAuthHeader)
		return
	}

	var req createTripRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, msgInvalidBody)
		return
	}
	req.StartCoords = domain.NormalizeCoords(req.StartCoords)
	req.EndCoords = domain.NormalizeCoords(req.EndCoords)

	fp, useIdem, err := s.idempotencyFingerprint(r, c.SubjectID, "/v1/trips", req)
	if err != nil {
		s.idempotencyError(w, r, err)
		return
	}
	if useIdem && s.replay(w, r, fp) {
		return
	}

	t, err := s.trips.Create(r.Context(), c, trips.CreateInput{
		StartCoords: req.StartCoords,
		EndCoords:   req.EndCoords,
		ConsumerID:  subjectFromNullable(req.ConsumerUUID),
		DriverID:    subjectFromNullable(req.DriverUUID),
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	var fpp *idempotency.Fingerprint
	if useIdem {
		fpp = &fp
	}
	s.writeCreated(w, r, fpp, string(t.ID), "/v1/trips/"+string(t.ID))
}

func (s *Server) GetTrip(w http.ResponseWriter, r *http.Request) {
	c, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusBadRequest, msgInvalidAuthHeader)
		return
	}
	var id string
	if err := bindID(r, &id); err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid trip id")
		return
	}

	t, err := s.trips.Get(r.Context(), c, domain.TripID(id))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tripFromDomain(t))
}

// IssueToken mints an access token for any subject. It is only reachable
// through the master key gate.
func (s *Server) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req issueTokenRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if req.UUID == "" {
		writeError(w, r, http.StatusBadRequest, "uuid is required")
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "role must be one of admin, manager, driver, customer")
		return
	}
	// Bound the seconds before converting so large values cannot overflow.
	ttl := defaultTokenTTL
	if req.TTLSeconds != 0 {
		ttl = -1
		if req.TTLSeconds > 0 && req.TTLSeconds <= int(s.MaxTokenTTL/time.Second) {
			ttl = time.Duration(req.TTLSeconds) * time.Second
		}
	}
	if ttl <= 0 || ttl > s.MaxTokenTTL {
		writeError(w, r, http.StatusBadRequest, "ttlSeconds must be between 1 and "+s.MaxTokenTTL.String())
		return
	}

	c, tok, err := s.signer.Issue(domain.SubjectID(req.UUID), role, ttl)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.logger.Info("issued access token",
		zap.String("subject", string(c.SubjectID)),
		zap.String("role", c.Role.String()),
		zap.Time("expires_at", c.ExpiresAt),
	)
	writeJSON(w, http.StatusCreated, issueTokenResponse{Token: tok, ExpiresAt: c.ExpiresAt})
}

func tripFromDomain(t domain.Trip) getTripResponse {
	out := getTripResponse{
		UUID:         string(t.ID),
		StartCoords:  t.StartCoords,
		EndCoords:    t.EndCoords,
		ConsumerUUID: string(t.ConsumerID),
	}
	if t.DriverID != nil {
		out.DriverUUID.Set(string(*t.DriverID))
	}
	return out
}

func subjectFromNullable(n nullable.Nullable[string]) *domain.SubjectID {
	if !n.IsSpecified() || n.IsNull() {
		return nil
	}
	v, err := n.Get()
	if err != nil || v == "" {
		return nil
	}
	sub := domain.SubjectID(v)
	return &sub
}
