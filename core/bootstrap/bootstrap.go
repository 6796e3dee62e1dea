package bootstrap

import (
	"context"
	"fmt"

	coreconfig "github.com/m3rciful/openspace/core/config"
	coredatabase "github.com/m3rciful/openspace/core/database"
	"github.com/m3rciful/openspace/core/kv"
	"github.com/m3rciful/openspace/core/logger"
)

// Options control the bootstrap pipeline.
type Options struct {
	Config        *coreconfig.Config
	MigrationsDir string

	LoggerInit func(*coreconfig.Config) error
	Migrate    func(ctx context.Context, cfg coredatabase.Config, dir string) error
	OpenStore  func(ctx context.Context, cfg coreconfig.StorageConfig) (kv.Store, func() error, error)
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	Store kv.Store
	Close func() error
}

// Run initializes the logger, applies migrations when the store lives in
// Postgres, and opens the session store.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	storage := opts.Config.Storage
	if storage.Driver == coreconfig.StoragePostgres {
		migrate := opts.Migrate
		if migrate == nil {
			migrate = coredatabase.RunMigrations
		}
		if err := migrate(ctx, storage.Postgres, opts.MigrationsDir); err != nil {
			return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
		}
	}

	open := opts.OpenStore
	if open == nil {
		open = kv.Open
	}
	store, closeFn, err := open(ctx, storage)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: storage initialization failed: %w", err)
	}

	return &Result{Store: store, Close: closeFn}, nil
}
