package triprepo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Overland-East-Bay/ride-api/internal/domain"
	"github.com/Overland-East-Bay/ride-api/internal/platform/clock"
	outclock "github.com/Overland-East-Bay/ride-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/ride-api/internal/ports/out/repoerr"
	"github.com/Overland-East-Bay/ride-api/internal/ports/out/triprepo"
)

// Repo is a SQLite implementation of triprepo.Repository.
type Repo struct {
	db    *sql.DB
	clock outclock.Clock
}

func NewRepo(db *sql.DB) *Repo {
	return NewRepoWithClock(db, clock.NewSystemClock())
}

func NewRepoWithClock(db *sql.DB, clk outclock.Clock) *Repo {
	return &Repo{db: db, clock: clk}
}

func (r *Repo) FindOne(ctx context.Context, id domain.TripID) (domain.Trip, bool, error) {
	if _, err := uuid.Parse(string(id)); err != nil {
		return domain.Trip{}, false, nil
	}

	var (
		t                    domain.Trip
		rawID, consumer      string
		driver               sql.NullString
		createdAt, updatedAt int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, start_coords, end_coords, consumer_id, driver_id, created_at, updated_at
		FROM trips
		WHERE id = ?
	`, string(id)).Scan(&rawID, &t.StartCoords, &t.EndCoords, &consumer, &driver, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Trip{}, false, nil
		}
		return domain.Trip{}, false, repoerr.Backend("find trip", err)
	}

	t.ID = domain.TripID(rawID)
	t.ConsumerID = domain.SubjectID(consumer)
	if driver.Valid {
		d := domain.SubjectID(driver.String)
		t.DriverID = &d
	}
	t.CreatedAt = time.Unix(0, createdAt).UTC()
	t.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return t, true, nil
}

func (r *Repo) Create(ctx context.Context, in triprepo.CreateInput) (domain.Trip, error) {
	now := r.clock.Now().UTC()
	t := domain.Trip{
		ID:          domain.TripID(uuid.NewString()),
		StartCoords: in.StartCoords,
		EndCoords:   in.EndCoords,
		ConsumerID:  in.ConsumerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	var driver sql.NullString
	if in.DriverID != nil {
		d := *in.DriverID
		t.DriverID = &d
		driver = sql.NullString{String: string(d), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO trips (id, start_coords, end_coords, consumer_id, driver_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, string(t.ID), t.StartCoords, t.EndCoords, string(t.ConsumerID), driver, now.UnixNano(), now.UnixNano())
	if err != nil {
		return domain.Trip{}, repoerr.Backend("create trip", err)
	}
	return t, nil
}
