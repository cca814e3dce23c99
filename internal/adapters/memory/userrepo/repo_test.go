package userrepo

import (
	"context"
	"testing"
	"time"

	"github.com/Overland-East-Bay/ride-api/internal/domain"
	"github.com/Overland-East-Bay/ride-api/internal/platform/clock"
	"github.com/Overland-East-Bay/ride-api/internal/ports/out/userrepo"
)

func TestRepo_CreateUsesClock(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	r := NewRepoWithClock(clock.NewManualClock(now))

	u, err := r.Create(context.Background(), userrepo.CreateInput{UserName: "Ada", Role: domain.RoleDriver})
	if err != nil {
		t.Fatalf("Create() err=%v", err)
	}
	if u.ID == "" {
		t.Fatalf("Create() returned empty id")
	}
	if !u.CreatedAt.Equal(now) || !u.UpdatedAt.Equal(now) {
		t.Fatalf("timestamps: got %v/%v want %v", u.CreatedAt, u.UpdatedAt, now)
	}
}
