// Package trips implements the trip use cases on top of a triprepo.Repository.
package trips

import (
	"context"
	"fmt"

	"github.com/Overland-East-Bay/ride-api/internal/domain"
	"github.com/Overland-East-Bay/ride-api/internal/platform/auth/authz"
	"github.com/Overland-East-Bay/ride-api/internal/ports/out/triprepo"
)

type CreateInput struct {
	StartCoords string
	EndCoords   string
	// ConsumerID defaults to the caller. Only elevated roles may name someone else.
	ConsumerID *domain.SubjectID
	DriverID   *domain.SubjectID
}

type Service struct {
	repo triprepo.Repository
}

func NewService(repo triprepo.Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, caller domain.Claims, in CreateInput) (domain.Trip, error) {
	consumer := caller.SubjectID
	if in.ConsumerID != nil && *in.ConsumerID != "" {
		consumer = *in.ConsumerID
	}
	if !authz.IsAllowed(caller, consumer) {
		return domain.Trip{}, ErrForbidden
	}

	start := domain.NormalizeCoords(in.StartCoords)
	if _, _, err := domain.ParseCoords(start); err != nil {
		return domain.Trip{}, validationError("startCoords: " + err.Error())
	}
	end := domain.NormalizeCoords(in.EndCoords)
	if _, _, err := domain.ParseCoords(end); err != nil {
		return domain.Trip{}, validationError("endCoords: " + err.Error())
	}

	var driver *domain.SubjectID
	if in.DriverID != nil && *in.DriverID != "" {
		d := *in.DriverID
		driver = &d
	}

	t, err := s.repo.Create(ctx, triprepo.CreateInput{
		StartCoords: start,
		EndCoords:   end,
		ConsumerID:  consumer,
		DriverID:    driver,
	})
	if err != nil {
		return domain.Trip{}, fmt.Errorf("create trip: %w", err)
	}
	return t, nil
}

// Get returns the trip with id if caller is a participant or elevated. A trip
// the caller may not see is reported as ErrNotFound.
func (s *Service) Get(ctx context.Context, caller domain.Claims, id domain.TripID) (domain.Trip, error) {
	t, ok, err := s.repo.FindOne(ctx, id)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("find trip: %w", err)
	}
	if !ok || !authz.CanActOnTrip(caller, t) {
		return domain.Trip{}, ErrNotFound
	}
	return t, nil
}
