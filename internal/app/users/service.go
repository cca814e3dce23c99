// Package users implements the user use cases on top of a userrepo.Repository.
package users

import (
	"context"
	"fmt"

	"github.com/Overland-East-Bay/ride-api/internal/domain"
	"github.com/Overland-East-Bay/ride-api/internal/platform/auth/authz"
	"github.com/Overland-East-Bay/ride-api/internal/ports/out/userrepo"
)

const maxUserNameLen = 100

type CreateInput struct {
	UserName string
	Role     domain.Role
}

type Service struct {
	repo userrepo.Repository
}

func NewService(repo userrepo.Repository) *Service {
	return &Service{repo: repo}
}

// Create stores a new user. Only elevated roles may create users.
func (s *Service) Create(ctx context.Context, caller domain.Claims, in CreateInput) (domain.User, error) {
	if !authz.CanMutateUsers(caller) {
		return domain.User{}, ErrForbidden
	}

	name := domain.NormalizeHumanName(in.UserName)
	if name == "" {
		return domain.User{}, validationError("userName is required")
	}
	if len([]rune(name)) > maxUserNameLen {
		return domain.User{}, validationError(fmt.Sprintf("userName must be at most %d characters", maxUserNameLen))
	}
	if !in.Role.Valid() {
		return domain.User{}, validationError("role must be one of admin, manager, driver, customer")
	}

	u, err := s.repo.Create(ctx, userrepo.CreateInput{UserName: name, Role: in.Role})
	if err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Get returns the user with id if caller may act on it. A user the caller may
// not see is reported as ErrNotFound.
func (s *Service) Get(ctx context.Context, caller domain.Claims, id domain.UserID) (domain.User, error) {
	u, ok, err := s.repo.FindOne(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	if !ok || !authz.CanActOnUser(caller, u) {
		return domain.User{}, ErrNotFound
	}
	return u, nil
}
