package userrepo

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/Overland-East-Bay/ride-api/internal/adapters/sqlite/testutil"
	"github.com/Overland-East-Bay/ride-api/internal/domain"
	"github.com/Overland-East-Bay/ride-api/internal/ports/out/repoerr"
)

func TestRepo_FindOne_CorruptRoleIsSerializationError(t *testing.T) {
	db := testutil.OpenTemp(t)
	r := NewRepo(db)

	id := uuid.NewString()
	if _, err := db.Exec(`INSERT INTO users (id, user_name, role, created_at, updated_at) VALUES (?, 'x', 'superuser', 0, 0)`, id); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, ok, err := r.FindOne(context.Background(), domain.UserID(id))
	if ok {
		t.Fatalf("FindOne ok=true for corrupt row")
	}
	if !errors.Is(err, repoerr.ErrSerialization) {
		t.Fatalf("got %v want %v", err, repoerr.ErrSerialization)
	}
}
