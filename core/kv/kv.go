// Package kv stores string values under string keys. Wallet sessions keep
// their bridge state here so a connection survives the connector being
// evicted from memory or the process restarting.
package kv

import (
	"context"
	"errors"
)

const component = "kv"

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("kv: not found")

// Store is a minimal string key-value store.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Has(ctx context.Context, key string) (bool, error)
}

// GetOr returns the stored value or def when key is missing.
func GetOr(ctx context.Context, s Store, key, def string) (string, error) {
	v, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return def, nil
	}
	return v, err
}

// Prefixed returns a view of s where every key is namespaced with prefix.
func Prefixed(s Store, prefix string) Store {
	return &prefixed{next: s, prefix: prefix}
}

type prefixed struct {
	next   Store
	prefix string
}

func (p *prefixed) Get(ctx context.Context, key string) (string, error) {
	return p.next.Get(ctx, p.prefix+key)
}

func (p *prefixed) Set(ctx context.Context, key, value string) error {
	return p.next.Set(ctx, p.prefix+key, value)
}

func (p *prefixed) Delete(ctx context.Context, key string) error {
	return p.next.Delete(ctx, p.prefix+key)
}

func (p *prefixed) Has(ctx context.Context, key string) (bool, error) {
	return p.next.Has(ctx, p.prefix+key)
}
