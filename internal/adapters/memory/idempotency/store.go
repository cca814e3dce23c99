package idempotency

import (
	"context"
	"sync"

	"github.com/Overland-East-Bay/ride-api/internal/domain"
	"github.com/Overland-East-Bay/ride-api/internal/ports/out/idempotency"
)

type scope struct {
	key     idempotency.Key
	subject domain.SubjectID
	method  string
	route   string
}

func scopeOf(fp idempotency.Fingerprint) scope {
	return scope{key: fp.Key, subject: fp.Subject, method: fp.Method, route: fp.Route}
}

// Store is an in-memory implementation of idempotency.Store.
// It is safe for concurrent use.
type Store struct {
	mu sync.RWMutex
	m  map[scope]idempotency.Record
}

func NewStore() *Store {
	return &Store{
		m: make(map[scope]idempotency.Record),
	}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.m[scopeOf(fp)]
	if !ok {
		return idempotency.Record{}, false, nil
	}
	return cloneRecord(rec), true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	_ = ctx
	rec = cloneRecord(rec)
	rec.BodyHash = fp.BodyHash
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[scopeOf(fp)] = rec
	return nil
}

func cloneRecord(rec idempotency.Record) idempotency.Record {
	rec.Body = append([]byte(nil), rec.Body...)
	return rec
}
