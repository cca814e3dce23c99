package userrepo

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
	"github.com/Overland-East-Bay/ride-api/internal/ports/out/userrepo"
)

// Repo is a SQLite implementation of userrepo.Repository.
// Timestamps are stored as Unix nanoseconds.
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

func (r *Repo) FindOne(ctx context.Context, id domain.UserID) (domain.User, bool, error) {
	if _, err := uuid.Parse(string(id)); err != nil {
		return domain.User{}, false, nil
	}

	var (
		u                    domain.User
		rawID, role          string
		createdAt, updatedAt int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_name, role, created_at, updated_at
		FROM users
		WHERE id = ?
	`, string(id)).Scan(&rawID, &u.UserName, &role, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, repoerr.Backend("find user", err)
	}

	u.ID = domain.UserID(rawID)
	u.Role, err = domain.ParseRole(role)
	if err != nil {
		return domain.User{}, false, repoerr.Serialization("find user", err)
	}
	u.CreatedAt = time.Unix(0, createdAt).UTC()
	u.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return u, true, nil
}

func (r *Repo) Create(ctx context.Context, in userrepo.CreateInput) (domain.User, error) {
	if !in.Role.Valid() {
		return domain.User{}, repoerr.Serialization("create user", errors.New("invalid role "+string(in.Role)))
	}

	now := r.clock.Now().UTC()
	u := domain.User{
		ID:        domain.UserID(uuid.NewString()),
		UserName:  in.UserName,
		Role:      in.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, user_name, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, string(u.ID), u.UserName, string(u.Role), now.UnixNano(), now.UnixNano())
	if err != nil {
		return domain.User{}, repoerr.Backend("create user", err)
	}
	return u, nil
}
