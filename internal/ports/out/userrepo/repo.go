package userrepo

import (
	"context"

	"github.com/Overland-East-Bay/ride-api/internal/domain"
)

// CreateInput is what a caller supplies to create a user.
// The repository assigns the ID and timestamps.
type CreateInput struct {
	UserName string
	Role     domain.Role
}

// Repository provides access to persisted users.
//
// Failure contract (shared with triprepo):
//   - FindOne returns ok=false with a nil error when the id is unknown or not a valid id.
//   - Errors wrap repoerr.ErrBackend or repoerr.ErrSerialization.
type Repository interface {
	FindOne(ctx context.Context, id domain.UserID) (domain.User, bool, error)
	Create(ctx context.Context, in CreateInput) (domain.User, error)
}
