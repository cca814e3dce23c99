package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/Overland-East-Bay/ride-api/internal/domain"
	"github.com/Overland-East-Bay/ride-api/internal/ports/out/idempotency"
)

const (
	idempotencyKeyHeader    = "Idempotency-Key"
	idempotentReplayHeader  = "Idempotent-Replayed"
	maxIdempotencyKeyLength = 255
)

var errIdempotencyKeyTooLong = errors.New("idempotency key too long")

// hashBody hashes the canonical (already normalized) form of a request body.
func hashBody(canon any) (string, error) {
	raw, err := json.Marshal(canon)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// idempotencyFingerprint returns the fingerprint for r, or ok=false when the
// request carries no Idempotency-Key or no store is configured. Keys longer
// than maxIdempotencyKeyLength fail with errIdempotencyKeyTooLong.
func (s *Server) idempotencyFingerprint(r *http.Request, sub domain.SubjectID, route string, canon any) (idempotency.Fingerprint, bool, error) {
	key := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))
	if len(key) > maxIdempotencyKeyLength {
		return idempotency.Fingerprint{}, false, errIdempotencyKeyTooLong
	}
	if key == "" || s.idem == nil {
		return idempotency.Fingerprint{}, false, nil
	}
	bodyHash, err := hashBody(canon)
	if err != nil {
		return idempotency.Fingerprint{}, false, err
	}
	return idempotency.Fingerprint{
		Key:      idempotency.Key(key),
		Subject:  sub,
		Method:   r.Method,
		Route:    route,
		BodyHash: bodyHash,
	}, true, nil
}

func (s *Server) idempotencyError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errIdempotencyKeyTooLong) {
		writeError(w, r, http.StatusBadRequest, msgIdempotencyKeyTooLong)
		return
	}
	s.serverError(w, r, err)
}

// replay writes the stored response for fp if there is one. It reports whether
// the request has been fully answered.
//
// Replay if same subject+key+route+bodyHash.
// Reject with 409 if same subject+key+route with a different bodyHash.
func (s *Server) replay(w http.ResponseWriter, r *http.Request, fp idempotency.Fingerprint) bool {
	rec, ok, err := s.idem.Get(r.Context(), fp)
	if err != nil {
		s.serverError(w, r, err)
		return true
	}
	if !ok {
		return false
	}
	if !rec.Matches(fp) {
		writeError(w, r, http.StatusConflict, msgIdempotencyReuse)
		return true
	}
	if rec.Location != "" {
		w.Header().Set("Location", rec.Location)
	}
	w.Header().Set("Content-Type", rec.ContentType)
	w.Header().Set(idempotentReplayHeader, "true")
	w.WriteHeader(rec.StatusCode)
	_, _ = w.Write(rec.Body)
	return true
}

// remember stores a successful response for replay. A failure to store is
// logged; the response itself has already been produced.
func (s *Server) remember(r *http.Request, fp idempotency.Fingerprint, status int, location string, body []byte) {
	err := s.idem.Put(r.Context(), fp, idempotency.Record{
		BodyHash:    fp.BodyHash,
		StatusCode:  status,
		ContentType: "application/json",
		Body:        body,
		Location:    location,
		CreatedAt:   s.clock.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn("failed to store idempotency record",
			zap.String("route", fp.Route),
			zap.Error(err),
		)
	}
}
