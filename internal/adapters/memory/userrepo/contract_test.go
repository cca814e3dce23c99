package userrepo

import (
	"testing"

	"github.com/Overland-East-Bay/ride-api/internal/adapters/contracttest"
	userrepoport "github.com/Overland-East-Bay/ride-api/internal/ports/out/userrepo"
)

func TestContract_MemoryUserRepo(t *testing.T) {
	contracttest.RunUserRepo(t, func(t *testing.T) (userrepoport.Repository, func()) {
		t.Helper()
		return NewRepo(), nil
	})
}
