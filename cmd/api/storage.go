package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	memidempotency "github.com/Overland-East-Bay/ride-api/internal/adapters/memory/idempotency"
	memtriprepo "github.com/Overland-East-Bay/ride-api/internal/adapters/memory/triprepo"
	memuserrepo "github.com/Overland-East-Bay/ride-api/internal/adapters/memory/userrepo"
	postgres "github.com/Overland-East-Bay/ride-api/internal/adapters/postgres"
	pgidempotency "github.com/Overland-East-Bay/ride-api/internal/adapters/postgres/idempotency"
	pgtriprepo "github.com/Overland-East-Bay/ride-api/internal/adapters/postgres/triprepo"
	pguserrepo "github.com/Overland-East-Bay/ride-api/internal/adapters/postgres/userrepo"
	"github.com/Overland-East-Bay/ride-api/internal/adapters/sqlite"
	sqliteidempotency "github.com/Overland-East-Bay/ride-api/internal/adapters/sqlite/idempotency"
	sqlitetriprepo "github.com/Overland-East-Bay/ride-api/internal/adapters/sqlite/triprepo"
	sqliteuserrepo "github.com/Overland-East-Bay/ride-api/internal/adapters/sqlite/userrepo"
	"github.com/Overland-East-Bay/ride-api/internal/platform/config"
	idempotencyport "github.com/Overland-East-Bay/ride-api/internal/ports/out/idempotency"
	triprepoport "github.com/Overland-East-Bay/ride-api/internal/ports/out/triprepo"
	userrepoport "github.com/Overland-East-Bay/ride-api/internal/ports/out/userrepo"
)

type storage struct {
	users       userrepoport.Repository
	trips       triprepoport.Repository
	idempotency idempotencyport.Store
	close       func()
}

func openStorage(ctx context.Context, cfg config.Config, log *zap.Logger) (storage, error) {
	switch cfg.StorageBackend {
	case config.StoragePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolOptions{})
		if err != nil {
			return storage{}, err
		}
		if cfg.BootstrapSchema {
			if err := postgres.Bootstrap(ctx, pool); err != nil {
				pool.Close()
				return storage{}, err
			}
			log.Info("postgres schema bootstrapped")
		}
		return storage{
			users:       pguserrepo.NewRepo(pool),
			trips:       pgtriprepo.NewRepo(pool),
			idempotency: pgidempotency.NewStore(pool),
			close:       pool.Close,
		}, nil

	case config.StorageSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return storage{}, err
		}
		log.Info("sqlite database opened", zap.String("path", cfg.SQLitePath))
		return storage{
			users:       sqliteuserrepo.NewRepo(db),
			trips:       sqlitetriprepo.NewRepo(db),
			idempotency: sqliteidempotency.NewStore(db),
			close:       func() { _ = db.Close() },
		}, nil

	case config.StorageMemory:
		log.Warn("using in-memory storage; data is lost on restart")
		return storage{
			users:       memuserrepo.NewRepo(),
			trips:       memtriprepo.NewRepo(),
			idempotency: memidempotency.NewStore(),
			close:       func() {},
		}, nil

	default:
		return storage{}, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
