package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/Overland-East-Bay/ride-api/internal/adapters/postgres"
	"github.com/Overland-East-Bay/ride-api/internal/ports/out/idempotency"
	"github.com/Overland-East-Bay/ride-api/internal/ports/out/repoerr"
)

// Store is a Postgres implementation of idempotency.Store.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	if s.pool == nil {
		return idempotency.Record{}, false, repoerr.Backend("get idempotency record", errors.New("nil postgres pool"))
	}
	row := s.pool.QueryRow(ctx, `
		SELECT body_hash, status_code, content_type, body, location, created_at
		FROM idempotency_keys
		WHERE idempotency_key = $1
		  AND subject = $2
		  AND method = $3
		  AND route = $4
	`,
		string(fp.Key),
		string(fp.Subject),
		fp.Method,
		fp.Route,
	)
	var rec idempotency.Record
	if err := row.Scan(&rec.BodyHash, &rec.StatusCode, &rec.ContentType, &rec.Body, &rec.Location, &rec.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return idempotency.Record{}, false, nil
		}
		return idempotency.Record{}, false, postgres.RepoError("get idempotency record", err)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	if s.pool == nil {
		return repoerr.Backend("put idempotency record", errors.New("nil postgres pool"))
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	body := rec.Body
	if body == nil {
		body = []byte{}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO idempotency_keys (
			idempotency_key,
			subject,
			method,
			route,
			body_hash,
			status_code,
			content_type,
			body,
			location,
			created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (idempotency_key, subject, method, route)
		DO UPDATE SET
			body_hash = EXCLUDED.body_hash,
			status_code = EXCLUDED.status_code,
			content_type = EXCLUDED.content_type,
			body = EXCLUDED.body,
			location = EXCLUDED.location,
			created_at = EXCLUDED.created_at
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
		createdAt.UTC(),
	)
	if err != nil {
		return postgres.RepoError("put idempotency record", err)
	}
	return nil
}
