package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// bootstrapLockID serializes concurrent Bootstrap calls across processes.
const bootstrapLockID = 7_420_001

// Schema creates the tables used by the Postgres repositories if they are missing.
// It is not a migration system: existing tables are left as they are.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id         uuid PRIMARY KEY,
	user_name  text NOT NULL,
	role       text NOT NULL,
	created_at timestamptz NOT NULL,
	updated_at timestamptz NOT NULL
);

CREATE TABLE IF NOT EXISTS trips (
	id           uuid PRIMARY KEY,
	start_coords text NOT NULL,
	end_coords   text NOT NULL,
	consumer_id  text NOT NULL,
	driver_id    text NULL,
	created_at   timestamptz NOT NULL,
	updated_at   timestamptz NOT NULL
);

CREATE INDEX IF NOT EXISTS trips_consumer_id_idx ON trips (consumer_id);
CREATE INDEX IF NOT EXISTS trips_driver_id_idx ON trips (driver_id) WHERE driver_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS idempotency_keys (
	idempotency_key text NOT NULL,
	subject         text NOT NULL,
	method          text NOT NULL,
	route           text NOT NULL,
	body_hash       text NOT NULL,
	status_code     integer NOT NULL,
	content_type    text NOT NULL,
	body            bytea NOT NULL,
	location        text NOT NULL DEFAULT '',
	created_at      timestamptz NOT NULL,
	PRIMARY KEY (idempotency_key, subject, method, route)
);
`

// Bootstrap applies Schema.
func Bootstrap(ctx context.Context, pool *pgxpool.Pool) error {
	err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, bootstrapLockID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, Schema)
		return err
	})
	if err != nil {
		return fmt.Errorf("bootstrap postgres schema: %w", err)
	}
	return nil
}
