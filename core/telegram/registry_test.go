package telegram

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/openspace/core/telegram/commands"
	"github.com/m3rciful/openspace/core/telegram/event"
)

func noop(context.Context, event.Event) error { return nil }

func TestRegisterCommandValidation(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/Start", commands.Command{Handler: noop, Description: "Main menu"})
	reg.RegisterCommand("start", commands.Command{Handler: noop, Description: "no slash"})
	reg.RegisterCommand("/empty", commands.Command{Handler: noop})
	reg.RegisterCommand("/nil", commands.Command{Description: "nil handler"})
	reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "duplicate"})

	assert.Equal(t, 1, reg.CommandCount())
	key, cmd, ok := reg.LookupCommand("START")
	require.True(t, ok)
	assert.Equal(t, "/start", key)
	assert.Equal(t, "Main menu", cmd.Description)
}

func TestLookupCommandAliases(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/wallet", commands.Command{
		Handler:     noop,
		Description: "Wallet",
		Aliases:     []string{"w", "/connect"},
	})

	for _, name := range []string{"/wallet", "wallet", "/w", "/connect"} {
		key, _, ok := reg.LookupCommand(name)
		assert.True(t, ok, name)
		assert.Equal(t, "/wallet", key)
	}
	_, _, ok := reg.LookupCommand("/stake")
	assert.False(t, ok)
}

func TestListCommandsVisibility(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "Start"})
	reg.RegisterCommand("/stats", commands.Command{Handler: noop, Description: "Stats", AdminOnly: true})
	reg.RegisterCommand("/debug", commands.Command{Handler: noop, Description: "Debug", Hidden: true})

	visible := reg.ListCommands(true)
	require.Len(t, visible, 1)
	assert.Equal(t, "/start", visible[0].Text)
	assert.Len(t, reg.ListCommands(false), 3)
}

func TestRegisterCallback(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCallback("stake", noop))
	assert.Error(t, reg.RegisterCallback("stake", noop))
	assert.ErrorIs(t, reg.RegisterCallback("", noop), ErrInvalidCallback)
	assert.ErrorIs(t, reg.RegisterCallback("donate", nil), ErrInvalidCallback)
	require.NoError(t, reg.RegisterCallback("donate", noop))

	_, ok := reg.GetCallback("stake")
	assert.True(t, ok)
	_, ok = reg.GetCallback("unstake")
	assert.False(t, ok)
	assert.Equal(t, []string{"donate", "stake"}, reg.ListCallbacks())
}

func TestFallbacks(t *testing.T) {
	reg := NewRegistry()
	assert.Nil(t, reg.CallbackNotFound())
	assert.Nil(t, reg.TextFallback())

	reg.SetCallbackNotFound(noop)
	reg.SetTextFallback(noop)
	assert.NotNil(t, reg.CallbackNotFound())
	assert.NotNil(t, reg.TextFallback())
}
