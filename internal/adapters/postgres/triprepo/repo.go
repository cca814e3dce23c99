package triprepo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/Overland-East-Bay/ride-api/internal/adapters/postgres"
	"github.com/Overland-East-Bay/ride-api/internal/domain"
	"github.com/Overland-East-Bay/ride-api/internal/platform/clock"
	outclock "github.com/Overland-East-Bay/ride-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/ride-api/internal/ports/out/repoerr"
	"github.com/Overland-East-Bay/ride-api/internal/ports/out/triprepo"
)

// Repo is a Postgres implementation of triprepo.Repository.
type Repo struct {
	pool  *pgxpool.Pool
	clock outclock.Clock
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return NewRepoWithClock(pool, clock.NewSystemClock())
}

func NewRepoWithClock(pool *pgxpool.Pool, clk outclock.Clock) *Repo {
	return &Repo{pool: pool, clock: clk}
}

func (r *Repo) FindOne(ctx context.Context, id domain.TripID) (domain.Trip, bool, error) {
	if r.pool == nil {
		return domain.Trip{}, false, repoerr.Backend("find trip", errors.New("nil postgres pool"))
	}
	tid, err := uuid.Parse(string(id))
	if err != nil {
		return domain.Trip{}, false, nil
	}

	var (
		t        domain.Trip
		consumer string
		driver   *string
	)
	err = r.pool.QueryRow(ctx, `
		SELECT id, start_coords, end_coords, consumer_id, driver_id, created_at, updated_at
		FROM trips
		WHERE id = $1
	`, tid).Scan(&tid, &t.StartCoords, &t.EndCoords, &consumer, &driver, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Trip{}, false, nil
		}
		return domain.Trip{}, false, postgres.RepoError("find trip", err)
	}

	t.ID = domain.TripID(tid.String())
	t.ConsumerID = domain.SubjectID(consumer)
	if driver != nil {
		d := domain.SubjectID(*driver)
		t.DriverID = &d
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, true, nil
}

func (r *Repo) Create(ctx context.Context, in triprepo.CreateInput) (domain.Trip, error) {
	if r.pool == nil {
		return domain.Trip{}, repoerr.Backend("create trip", errors.New("nil postgres pool"))
	}

	now := r.clock.Now().UTC().Truncate(time.Microsecond)
	id := uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO trips (id, start_coords, end_coords, consumer_id, driver_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, id, in.StartCoords, in.EndCoords, string(in.ConsumerID), driverArg(in.DriverID), now, now)
	if err != nil {
		return domain.Trip{}, postgres.RepoError("create trip", err)
	}

	t := domain.Trip{
		ID:          domain.TripID(id.String()),
		StartCoords: in.StartCoords,
		EndCoords:   in.EndCoords,
		ConsumerID:  in.ConsumerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.DriverID != nil {
		d := *in.DriverID
		t.DriverID = &d
	}
	return t, nil
}

func driverArg(p *domain.SubjectID) *string {
	if p == nil {
		return nil
	}
	s := string(*p)
	return &s
}
