package userrepo

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
	"github.com/Overland-East-Bay/ride-api/internal/ports/out/userrepo"
)

// Repo is a Postgres implementation of userrepo.Repository.
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

func (r *Repo) FindOne(ctx context.Context, id domain.UserID) (domain.User, bool, error) {
	if r.pool == nil {
		return domain.User{}, false, repoerr.Backend("find user", errors.New("nil postgres pool"))
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return domain.User{}, false, nil
	}

	var (
		u    domain.User
		role string
	)
	err = r.pool.QueryRow(ctx, `
		SELECT id, user_name, role, created_at, updated_at
		FROM users
		WHERE id = $1
	`, uid).Scan(&uid, &u.UserName, &role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, postgres.RepoError("find user", err)
	}

	u.ID = domain.UserID(uid.String())
	u.Role, err = domain.ParseRole(role)
	if err != nil {
		return domain.User{}, false, repoerr.Serialization("find user", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, true, nil
}

func (r *Repo) Create(ctx context.Context, in userrepo.CreateInput) (domain.User, error) {
	if r.pool == nil {
		return domain.User{}, repoerr.Backend("create user", errors.New("nil postgres pool"))
	}
	if !in.Role.Valid() {
		return domain.User{}, repoerr.Serialization("create user", errors.New("invalid role "+string(in.Role)))
	}

	// timestamptz keeps microseconds.
	now := r.clock.Now().UTC().Truncate(time.Microsecond)
	id := uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, user_name, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, id, in.UserName, string(in.Role), now, now)
	if err != nil {
		return domain.User{}, postgres.RepoError("create user", err)
	}

	return domain.User{
		ID:        domain.UserID(id.String()),
		UserName:  in.UserName,
		Role:      in.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
