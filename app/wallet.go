package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/m3rciful/openspace/core/kv"
	"github.com/m3rciful/openspace/core/session"
)

// Keys in a user's session store.
const (
	keyClientID = "client_id"
	keyAddress  = "address"
	keyApp      = "wallet_app"
)

// WalletApp is a wallet that accepts TON Connect links.
type WalletApp struct {
	ID           string
	Name         string
	UniversalURL string
}

// WalletApps lists the wallets offered on the connect screen.
var WalletApps = []WalletApp{
	{ID: "tonkeeper", Name: "Tonkeeper", UniversalURL: "https://app.tonkeeper.com/ton-connect"},
	{ID: "mytonwallet", Name: "MyTonWallet", UniversalURL: "https://connect.mytonwallet.org"},
	{ID: "tonhub", Name: "Tonhub", UniversalURL: "https://tonhub.com/ton-connect"},
}

// ErrUnknownWallet is returned for a wallet id missing from WalletApps.
var ErrUnknownWallet = errors.New("app: unknown wallet")

// LookupWalletApp finds a wallet by id.
func LookupWalletApp(id string) (WalletApp, bool) {
	for _, w := range WalletApps {
		if strings.EqualFold(w.ID, id) {
			return w, true
		}
	}
	return WalletApp{}, false
}

// Wallet is a user's wallet connection. All state lives in its store;
// the address is cached in memory until the pool pauses the wallet.
type Wallet struct {
	store       kv.Store
	manifestURL string

	mu      sync.Mutex
	address string
	paused  bool
}

// NewWalletFactory returns a session.Factory producing Wallets.
func NewWalletFactory(manifestURL string) session.Factory {
	return func(_ context.Context, _ int64, store kv.Store) (session.Connector, error) {
		return &Wallet{store: store, manifestURL: manifestURL}, nil
	}
}

// Pause drops cached state. The next call reloads it from the store.
func (w *Wallet) Pause() {
	w.mu.Lock()
	w.address, w.paused = "", true
	w.mu.Unlock()
}

// Paused reports whether the pool has paused the wallet.
func (w *Wallet) Paused() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.paused
}

// Address returns the connected address, if any.
func (w *Wallet) Address(ctx context.Context) (string, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.address != "" {
		return w.address, true, nil
	}
	addr, err := w.store.Get(ctx, keyAddress)
	if errors.Is(err, kv.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	w.address, w.paused = addr, false
	return addr, true, nil
}

// Connect returns a TON Connect link for app, creating the client id on
// first use.
func (w *Wallet) Connect(ctx context.Context, app WalletApp) (string, error) {
	id, err := kv.GetOr(ctx, w.store, keyClientID, "")
	if err != nil {
		return "", err
	}
	if id == "" {
		id = strings.ReplaceAll(uuid.NewString(), "-", "")
		if err := w.store.Set(ctx, keyClientID, id); err != nil {
			return "", err
		}
	}
	if err := w.store.Set(ctx, keyApp, app.ID); err != nil {
		return "", err
	}
	return connectLink(app, id, w.manifestURL)
}

// Bind records address as the user's wallet.
func (w *Wallet) Bind(ctx context.Context, address string) error {
	if err := w.store.Set(ctx, keyAddress, address); err != nil {
		return err
	}
	w.mu.Lock()
	w.address, w.paused = address, false
	w.mu.Unlock()
	return nil
}

// App returns the wallet app the user connected with.
func (w *Wallet) App(ctx context.Context) (WalletApp, bool) {
	id, err := w.store.Get(ctx, keyApp)
	if err != nil {
		return WalletApp{}, false
	}
	return LookupWalletApp(id)
}

// Disconnect forgets the address and the client id.
func (w *Wallet) Disconnect(ctx context.Context) error {
	for _, k := range []string{keyAddress, keyClientID, keyApp} {
		if err := w.store.Delete(ctx, k); err != nil {
			return err
		}
	}
	w.mu.Lock()
	w.address = ""
	w.mu.Unlock()
	return nil
}

type connectRequest struct {
	ManifestURL string        `json:"manifestUrl"`
	Items       []connectItem `json:"items"`
}

type connectItem struct {
	Name string `json:"name"`
}

func connectLink(app WalletApp, clientID, manifestURL string) (string, error) {
	req, err := json.Marshal(connectRequest{
		ManifestURL: manifestURL,
		Items:       []connectItem{{Name: "ton_addr"}},
	})
	if err != nil {
		return "", err
	}
	u, err := url.Parse(app.UniversalURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("v", "2")
	q.Set("id", clientID)
	q.Set("r", string(req))
	q.Set("ret", "none")
	u.RawQuery = q.Encode()
	return u.String(), nil
}
