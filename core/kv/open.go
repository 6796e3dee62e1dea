package kv

import (
	"context"
	"fmt"
	"time"

	coreconfig "github.com/m3rciful/openspace/core/config"
	"github.com/m3rciful/openspace/core/database"
)

// Open builds the store selected by cfg.Driver. The returned close func
// releases the backend and is never nil. Postgres schema migrations are
// expected to have run already.
func Open(ctx context.Context, cfg coreconfig.StorageConfig) (Store, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Driver {
	case "", coreconfig.StorageMemory:
		return NewMemory(), noop, nil
	case coreconfig.StoragePostgres:
		db, err := database.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, noop, err
		}
		return NewSQL(db), db.Close, nil
	case coreconfig.StorageSQLite:
		s, err := OpenSQLite(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	case coreconfig.StorageRedis:
		r, err := DialRedis(ctx, cfg.Redis, 30*time.Second)
		if err != nil {
			return nil, noop, err
		}
		return r, r.Close, nil
	default:
		return nil, noop, fmt.Errorf("kv: unknown storage driver %q", cfg.Driver)
	}
}
