package app

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/openspace/core/kv"
)

func newWallet(t *testing.T) (*Wallet, kv.Store) {
	t.Helper()
	store := kv.NewMemory()
	c, err := NewWalletFactory("https://example.org/tonconnect-manifest.json")(context.Background(), 1, store)
	require.NoError(t, err)
	return c.(*Wallet), store
}

func TestWalletConnectLinkKeepsClientID(t *testing.T) {
	ctx := context.Background()
	w, store := newWallet(t)
	app, ok := LookupWalletApp("Tonkeeper")
	require.True(t, ok)

	first, err := w.Connect(ctx, app)
	require.NoError(t, err)
	second, err := w.Connect(ctx, app)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	u, err := url.Parse(first)
	require.NoError(t, err)
	assert.Equal(t, "app.tonkeeper.com", u.Host)
	assert.Equal(t, "2", u.Query().Get("v"))
	assert.Len(t, u.Query().Get("id"), 32)
	assert.JSONEq(t, `{"manifestUrl":"https://example.org/tonconnect-manifest.json","items":[{"name":"ton_addr"}]}`, u.Query().Get("r"))

	id, err := store.Get(ctx, keyClientID)
	require.NoError(t, err)
	assert.Equal(t, u.Query().Get("id"), id)

	got, ok := w.App(ctx)
	require.True(t, ok)
	assert.Equal(t, "tonkeeper", got.ID)
}

func TestWalletAddressSurvivesPause(t *testing.T) {
	ctx := context.Background()
	w, _ := newWallet(t)

	_, ok, err := w.Address(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, w.Bind(ctx, stakingAddr))
	w.Pause()
	assert.True(t, w.Paused())

	addr, ok, err := w.Address(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, stakingAddr, addr)
	assert.False(t, w.Paused())
}

func TestWalletDisconnect(t *testing.T) {
	ctx := context.Background()
	w, store := newWallet(t)
	_, err := w.Connect(ctx, WalletApps[0])
	require.NoError(t, err)
	require.NoError(t, w.Bind(ctx, stakingAddr))

	require.NoError(t, w.Disconnect(ctx))
	_, ok, err := w.Address(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	has, err := store.Has(ctx, keyClientID)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestLookupWalletAppUnknown(t *testing.T) {
	_, ok := LookupWalletApp("nope")
	assert.False(t, ok)
}
