package idempotency

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Overland-East-Bay/ride-api/internal/ports/out/idempotency"
	"github.com/Overland-East-Bay/ride-api/internal/ports/out/repoerr"
)

// Store is a SQLite implementation of idempotency.Store.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	var (
		rec       idempotency.Record
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT body_hash, status_code, content_type, body, location, created_at
		FROM idempotency_keys
		WHERE idempotency_key = ? AND subject = ? AND method = ? AND route = ?
	`,
		string(fp.Key),
		string(fp.Subject),
		fp.Method,
		fp.Route,
	).Scan(&rec.BodyHash, &rec.StatusCode, &rec.ContentType, &rec.Body, &rec.Location, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return idempotency.Record{}, false, nil
		}
		return idempotency.Record{}, false, repoerr.Backend("get idempotency record", err)
	}
	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	return rec, true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	body := rec.Body
	if body == nil {
		body = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO idempotency_keys (
			idempotency_key, subject, method, route,
			body_hash, status_code, content_type, body, location, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (idempotency_key, subject, method, route)
		DO UPDATE SET
			body_hash = excluded.body_hash,
			status_code = excluded.status_code,
			content_type = excluded.content_type,
			body = excluded.body,
			location = excluded.location,
			created_at = excluded.created_at
	`,
		string(fp.Key),
		string(fp.Subject),
		fp.Method,
		fp.Route,
		fp.BodyHash,
		rec.StatusCode,
		rec.ContentType,
		body,
		rec.Location,
		createdAt.UnixNano(),
	)
	if err != nil {
		return repoerr.Backend("put idempotency record", err)
	}
	return nil
}
