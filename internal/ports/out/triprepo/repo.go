package triprepo

import (
	"context"

	"github.com/Overland-East-Bay/ride-api/internal/domain"
)

// CreateInput is what a caller supplies to create a trip.
// The repository assigns the ID and timestamps.
type CreateInput struct {
	StartCoords string
	EndCoords   string
	ConsumerID  domain.SubjectID
	DriverID    *domain.SubjectID
}

// Repository provides access to persisted trips.
// It follows the same failure contract as userrepo.Repository.
type Repository interface {
	FindOne(ctx context.Context, id domain.TripID) (domain.Trip, bool, error)
	Create(ctx context.Context, in CreateInput) (domain.Trip, error)
}
