package triprepo

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/Overland-East-Bay/ride-api/internal/domain"
	"github.com/Overland-East-Bay/ride-api/internal/platform/clock"
	outclock "github.com/Overland-East-Bay/ride-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/ride-api/internal/ports/out/triprepo"
)

// Repo is an in-memory implementation of triprepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	clock outclock.Clock

	mu   sync.RWMutex
	byID map[domain.TripID]domain.Trip
}

func NewRepo() *Repo {
	return NewRepoWithClock(clock.NewSystemClock())
}

func NewRepoWithClock(clk outclock.Clock) *Repo {
	return &Repo{
		clock: clk,
		byID:  make(map[domain.TripID]domain.Trip),
	}
}

func (r *Repo) FindOne(ctx context.Context, id domain.TripID) (domain.Trip, bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[id]
	if !ok {
		return domain.Trip{}, false, nil
	}
	return cloneTrip(t), true, nil
}

func (r *Repo) Create(ctx context.Context, in triprepo.CreateInput) (domain.Trip, error) {
	_ = ctx
	now := r.clock.Now().UTC()
	t := domain.Trip{
		ID:          domain.TripID(uuid.NewString()),
		StartCoords: in.StartCoords,
		EndCoords:   in.EndCoords,
		ConsumerID:  in.ConsumerID,
		DriverID:    cloneSubjectPtr(in.DriverID),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	stored := cloneTrip(t)
	r.mu.Lock()
	r.byID[t.ID] = stored
	r.mu.Unlock()
	return t, nil
}

func cloneTrip(t domain.Trip) domain.Trip {
	cp := t
	cp.DriverID = cloneSubjectPtr(t.DriverID)
	return cp
}

func cloneSubjectPtr(p *domain.SubjectID) *domain.SubjectID {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
