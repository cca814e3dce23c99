package userrepo

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/Overland-East-Bay/ride-api/internal/domain"
	"github.com/Overland-East-Bay/ride-api/internal/platform/clock"
	outclock "github.com/Overland-East-Bay/ride-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/ride-api/internal/ports/out/repoerr"
	"github.com/Overland-East-Bay/ride-api/internal/ports/out/userrepo"
)

// Repo is an in-memory implementation of userrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	clock outclock.Clock

	mu   sync.RWMutex
	byID map[domain.UserID]domain.User
}

func NewRepo() *Repo {
	return NewRepoWithClock(clock.NewSystemClock())
}

func NewRepoWithClock(clk outclock.Clock) *Repo {
	return &Repo{
		clock: clk,
		byID:  make(map[domain.UserID]domain.User),
	}
}

func (r *Repo) FindOne(ctx context.Context, id domain.UserID) (domain.User, bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	return u, ok, nil
}

func (r *Repo) Create(ctx context.Context, in userrepo.CreateInput) (domain.User, error) {
	_ = ctx
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
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[u.ID] = u
	return u, nil
}
