// Package contracttest holds behavior tests shared by every repository backend.
// Each backend's contract_test.go runs these against its own implementation.
package contracttest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"

	"github.com/Overland-East-Bay/ride-api/internal/domain"
	idempotencyport "github.com/Overland-East-Bay/ride-api/internal/ports/out/idempotency"
	"github.com/Overland-East-Bay/ride-api/internal/ports/out/repoerr"
	triprepoport "github.com/Overland-East-Bay/ride-api/internal/ports/out/triprepo"
	userrepoport "github.com/Overland-East-Bay/ride-api/internal/ports/out/userrepo"
)

type CleanupFunc = func()

type UserRepoFactory func(t *testing.T) (userrepoport.Repository, CleanupFunc)
type TripRepoFactory func(t *testing.T) (triprepoport.Repository, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

const concurrentCreates = 20

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:      idempotencyport.Key("k-" + uuid.NewString()),
		Subject:  domain.SubjectID("sub-1"),
		Method:   "POST",
		Route:    "/v1/users",
		BodyHash: "hash-abc",
	}

	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("Get before Put: ok=%v err=%v, want ok=false err=nil", ok, err)
	}

	rec := idempotencyport.Record{
		StatusCode:  201,
		ContentType: "application/json",
		Body:        []byte(`{"uuid":"u-1"}`),
		Location:    "/v1/users/u-1",
		CreatedAt:   time.Unix(123, 0).UTC(),
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != `{"uuid":"u-1"}` || got.ContentType != "application/json" || got.StatusCode != 201 || got.Location != "/v1/users/u-1" {
		t.Fatalf("unexpected record: %+v", got)
	}
	if !got.Matches(fp) {
		t.Fatalf("record does not match its own fingerprint: stored hash %q", got.BodyHash)
	}

	// Same scope, different payload: the stored record is returned and does not match.
	reused := fp
	reused.BodyHash = "hash-other"
	got, ok, err = store.Get(ctx, reused)
	if err != nil || !ok {
		t.Fatalf("Get with other body: ok=%v err=%v", ok, err)
	}
	if got.Matches(reused) {
		t.Fatalf("record matched a different body hash")
	}

	// Other subjects do not see the record.
	foreign := fp
	foreign.Subject = "sub-2"
	if _, ok, err := store.Get(ctx, foreign); err != nil || ok {
		t.Fatalf("Get for other subject: ok=%v err=%v, want ok=false", ok, err)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte(`{"uuid":"u-2"}`)
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != `{"uuid":"u-2"}` {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}
}

func RunUserRepo(t *testing.T, newRepo UserRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	t.Run("create then find", func(t *testing.T) {
		for _, role := range []domain.Role{domain.RoleAdmin, domain.RoleManager, domain.RoleDriver, domain.RoleCustomer} {
			in := userrepoport.CreateInput{UserName: "User " + uuid.NewString()[:8], Role: role}
			created, err := repo.Create(ctx, in)
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if _, err := uuid.Parse(string(created.ID)); err != nil {
				t.Fatalf("Create returned non-uuid id %q", created.ID)
			}
			if created.UserName != in.UserName || created.Role != in.Role {
				t.Fatalf("Create returned %+v for input %+v", created, in)
			}
			if created.CreatedAt.IsZero() || created.UpdatedAt.Before(created.CreatedAt) {
				t.Fatalf("timestamps: created=%v updated=%v", created.CreatedAt, created.UpdatedAt)
			}

			found, ok, err := repo.FindOne(ctx, created.ID)
			if err != nil || !ok {
				t.Fatalf("FindOne: ok=%v err=%v", ok, err)
			}
			if diff := cmp.Diff(created, found, cmpopts.IgnoreFields(domain.User{}, "CreatedAt", "UpdatedAt")); diff != "" {
				t.Fatalf("FindOne mismatch (-created +found):\n%s", diff)
			}
			if found.CreatedAt.Before(created.CreatedAt) || found.UpdatedAt.Before(found.CreatedAt) {
				t.Fatalf("timestamps went backwards: created=%+v found=%+v", created, found)
			}
		}
	})

	t.Run("invalid role is a serialization failure", func(t *testing.T) {
		for _, role := range []domain.Role{"superuser", "", "Admin"} {
			u, err := repo.Create(ctx, userrepoport.CreateInput{UserName: "Nobody", Role: role})
			if !errors.Is(err, repoerr.ErrSerialization) {
				t.Fatalf("Create(role=%q) err=%v, want ErrSerialization", role, err)
			}
			if u.ID != "" {
				t.Fatalf("Create(role=%q) returned %+v", role, u)
			}
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		for _, id := range []domain.UserID{domain.UserID(uuid.NewString()), "not-a-uuid", ""} {
			u, ok, err := repo.FindOne(ctx, id)
			if err != nil {
				t.Fatalf("FindOne(%q) err=%v, want nil", id, err)
			}
			if ok {
				t.Fatalf("FindOne(%q) ok=true, got %+v", id, u)
			}
		}
	})

	t.Run("concurrent creates", func(t *testing.T) {
		ids := make([]domain.UserID, concurrentCreates)
		errs := make([]error, concurrentCreates)
		var wg sync.WaitGroup
		for i := 0; i < concurrentCreates; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				u, err := repo.Create(ctx, userrepoport.CreateInput{UserName: "Concurrent", Role: domain.RoleCustomer})
				ids[i], errs[i] = u.ID, err
			}(i)
		}
		wg.Wait()

		seen := make(map[domain.UserID]bool, concurrentCreates)
		for i, id := range ids {
			if errs[i] != nil {
				t.Fatalf("Create[%d]: %v", i, errs[i])
			}
			if seen[id] {
				t.Fatalf("duplicate id %q", id)
			}
			seen[id] = true
			if _, ok, err := repo.FindOne(ctx, id); err != nil || !ok {
				t.Fatalf("FindOne(%q): ok=%v err=%v", id, ok, err)
			}
		}
	})

	t.Run("errors are classified", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := repo.Create(cctx, userrepoport.CreateInput{UserName: "Canceled", Role: domain.RoleCustomer})
		if err != nil && !errors.Is(err, repoerr.ErrBackend) && !errors.Is(err, repoerr.ErrSerialization) {
			t.Fatalf("Create error is not a repository error: %v", err)
		}
	})
}

func RunTripRepo(t *testing.T, newRepo TripRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	driver := domain.SubjectID(uuid.NewString())
	inputs := []triprepoport.CreateInput{
		{
			StartCoords: "37.8044,-122.2712",
			EndCoords:   "37.7749,-122.4194",
			ConsumerID:  domain.SubjectID(uuid.NewString()),
		},
		{
			StartCoords: "40.7128,-74.0060",
			EndCoords:   "40.6413,-73.7781",
			ConsumerID:  domain.SubjectID(uuid.NewString()),
			DriverID:    &driver,
		},
	}

	t.Run("create then find", func(t *testing.T) {
		for _, in := range inputs {
			created, err := repo.Create(ctx, in)
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if _, err := uuid.Parse(string(created.ID)); err != nil {
				t.Fatalf("Create returned non-uuid id %q", created.ID)
			}
			want := domain.Trip{
				ID:          created.ID,
				StartCoords: in.StartCoords,
				EndCoords:   in.EndCoords,
				ConsumerID:  in.ConsumerID,
				DriverID:    in.DriverID,
			}
			ignoreTimes := cmpopts.IgnoreFields(domain.Trip{}, "CreatedAt", "UpdatedAt")
			if diff := cmp.Diff(want, created, ignoreTimes); diff != "" {
				t.Fatalf("Create mismatch (-want +got):\n%s", diff)
			}

			found, ok, err := repo.FindOne(ctx, created.ID)
			if err != nil || !ok {
				t.Fatalf("FindOne: ok=%v err=%v", ok, err)
			}
			if diff := cmp.Diff(created, found, ignoreTimes); diff != "" {
				t.Fatalf("FindOne mismatch (-created +found):\n%s", diff)
			}
			if found.CreatedAt.Before(created.CreatedAt) || found.UpdatedAt.Before(found.CreatedAt) {
				t.Fatalf("timestamps went backwards: created=%+v found=%+v", created, found)
			}
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		for _, id := range []domain.TripID{domain.TripID(uuid.NewString()), "not-a-uuid", ""} {
			tr, ok, err := repo.FindOne(ctx, id)
			if err != nil {
				t.Fatalf("FindOne(%q) err=%v, want nil", id, err)
			}
			if ok {
				t.Fatalf("FindOne(%q) ok=true, got %+v", id, tr)
			}
		}
	})

	t.Run("concurrent creates", func(t *testing.T) {
		ids := make([]domain.TripID, concurrentCreates)
		errs := make([]error, concurrentCreates)
		var wg sync.WaitGroup
		for i := 0; i < concurrentCreates; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				tr, err := repo.Create(ctx, inputs[i%len(inputs)])
				ids[i], errs[i] = tr.ID, err
			}(i)
		}
		wg.Wait()

		seen := make(map[domain.TripID]bool, concurrentCreates)
		for i, id := range ids {
			if errs[i] != nil {
				t.Fatalf("Create[%d]: %v", i, errs[i])
			}
			if seen[id] {
				t.Fatalf("duplicate id %q", id)
			}
			seen[id] = true
			if _, ok, err := repo.FindOne(ctx, id); err != nil || !ok {
				t.Fatalf("FindOne(%q): ok=%v err=%v", id, ok, err)
			}
		}
	})
}
