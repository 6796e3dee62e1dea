package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/openspace/core/config"
	coredatabase "github.com/m3rciful/openspace/core/database"
	"github.com/m3rciful/openspace/core/kv"
)

func noLogger(*coreconfig.Config) error { return nil }

func TestRunMemoryStoreSkipsMigrations(t *testing.T) {
	migrated := false
	res, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{Storage: coreconfig.StorageConfig{Driver: coreconfig.StorageMemory}},
		LoggerInit: noLogger,
		Migrate: func(context.Context, coredatabase.Config, string) error {
			migrated = true
			return nil
		},
	})
	require.NoError(t, err)
	assert.False(t, migrated)
	assert.IsType(t, &kv.Memory{}, res.Store)
	assert.NoError(t, res.Close())
}

func TestRunPostgresMigratesBeforeOpening(t *testing.T) {
	var order []string
	_, err := Run(context.Background(), Options{
		Config:        &coreconfig.Config{Storage: coreconfig.StorageConfig{Driver: coreconfig.StoragePostgres}},
		MigrationsDir: "migrations",
		LoggerInit:    noLogger,
		Migrate: func(_ context.Context, _ coredatabase.Config, dir string) error {
			order = append(order, "migrate:"+dir)
			return nil
		},
		OpenStore: func(context.Context, coreconfig.StorageConfig) (kv.Store, func() error, error) {
			order = append(order, "open")
			return kv.NewMemory(), func() error { return nil }, nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"migrate:migrations", "open"}, order)
}

func TestRunPropagatesFailures(t *testing.T) {
	boom := errors.New("boom")

	_, err := Run(context.Background(), Options{})
	assert.Error(t, err)

	_, err = Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		LoggerInit: func(*coreconfig.Config) error { return boom },
	})
	assert.ErrorIs(t, err, boom)

	_, err = Run(context.Background(), Options{
		Config:     &coreconfig.Config{Storage: coreconfig.StorageConfig{Driver: coreconfig.StoragePostgres}},
		LoggerInit: noLogger,
		Migrate:    func(context.Context, coredatabase.Config, string) error { return boom },
	})
	assert.ErrorIs(t, err, boom)
}
