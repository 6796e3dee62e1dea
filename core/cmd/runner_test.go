package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/openspace/core/config"
	coretelegram "github.com/m3rciful/openspace/core/telegram"
)

type stubApp struct {
	opts coretelegram.RunOptions
}

func (a stubApp) TelegramRunOptions() (coretelegram.RunOptions, error) {
	return a.opts, nil
}

func TestConfigPath(t *testing.T) {
	t.Setenv("OPENSPACE_CONFIG", "")
	p, err := configPath("OPENSPACE_CONFIG", "config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "config.yaml", p)

	t.Setenv("OPENSPACE_CONFIG", "/etc/openspace.yaml")
	p, err = configPath("OPENSPACE_CONFIG", "config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/etc/openspace.yaml", p)

	t.Setenv("CONFIG_PATH", "")
	_, err = configPath("", "")
	assert.Error(t, err)
}

func TestRunWrapsLifecycleHooks(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	var order []string
	loggerClosed := false

	err := Run(Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (ConfigCarrier, error) {
			assert.Equal(t, "config.yaml", path)
			return &coreconfig.Config{}, nil
		},
		Bootstrap: func(ctx context.Context, _ ConfigCarrier) (TelegramApp, error) {
			require.NoError(t, ctx.Err())
			return stubApp{opts: coretelegram.RunOptions{
				OnStart: func(context.Context, coretelegram.Runtime) error {
					order = append(order, "start")
					return nil
				},
				OnStop: func(context.Context, coretelegram.Runtime) error {
					order = append(order, "stop")
					return nil
				},
			}}, nil
		},
		ShutdownLogger: func() error {
			loggerClosed = true
			return nil
		},
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			require.NoError(t, opts.OnStart(ctx, coretelegram.Runtime{}))
			order = append(order, "serve")
			return opts.OnStop(ctx, coretelegram.Runtime{})
		},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"start", "serve", "stop"}, order)
	assert.True(t, loggerClosed)
}

func TestRunStopsOnFailedStart(t *testing.T) {
	t.Setenv("CONFIG_PATH", "config.yaml")
	errStart := errors.New("bind failed")

	err := Run(Options{
		LoadConfig: func(string) (ConfigCarrier, error) { return &coreconfig.Config{}, nil },
		Bootstrap: func(context.Context, ConfigCarrier) (TelegramApp, error) {
			return stubApp{opts: coretelegram.RunOptions{
				OnStart: func(context.Context, coretelegram.Runtime) error { return errStart },
			}}, nil
		},
		ShutdownLogger: func() error { return nil },
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			return opts.OnStart(ctx, coretelegram.Runtime{})
		},
	})
	assert.ErrorIs(t, err, errStart)
}

func TestRunReportsBootstrapFailure(t *testing.T) {
	t.Setenv("CONFIG_PATH", "config.yaml")
	errDB := errors.New("database unreachable")
	err := Run(Options{
		LoadConfig: func(string) (ConfigCarrier, error) { return &coreconfig.Config{}, nil },
		Bootstrap: func(context.Context, ConfigCarrier) (TelegramApp, error) {
			return nil, errDB
		},
	})
	assert.ErrorIs(t, err, errDB)
}
