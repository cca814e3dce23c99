package idempotency

import (
	"context"
	"time"

	"github.com/Overland-East-Bay/ride-api/internal/domain"
)

// Key is the caller-provided idempotency key (Idempotency-Key header).
type Key string

// Fingerprint identifies a request for idempotency purposes.
//
// A record is scoped by key + subject + method + route. BodyHash is stored with
// the record so that reusing a key with a different payload can be detected.
// Route is the path template (e.g. "/v1/trips").
type Fingerprint struct {
	Key      Key
	Subject  domain.SubjectID
	Method   string
	Route    string
	BodyHash string
}

// Record is the stored response we can replay for a duplicate request.
type Record struct {
	// BodyHash is the hash of the request body that produced this response.
	BodyHash    string
	StatusCode  int
	ContentType string
	Body        []byte
	// Location is replayed as the Location header of a create response.
	Location  string
	CreatedAt time.Time
}

// Matches reports whether rec was produced by a request with fp's payload.
func (rec Record) Matches(fp Fingerprint) bool {
	return rec.BodyHash == fp.BodyHash
}

// Store persists idempotency records for replaying safe responses on retries.
//
// Get looks a record up by fp's key, subject, method and route; the body hash
// is not part of the lookup. Put overwrites any record in the same scope.
type Store interface {
	Get(ctx context.Context, fp Fingerprint) (Record, bool, error)
	Put(ctx context.Context, fp Fingerprint, rec Record) error
}
