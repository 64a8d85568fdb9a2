package store

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/sessionkit/pkg/session"
)

var ErrNotFound = errors.New("store: not found")

// Driver identifiers accepted in configuration.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// KV is the string key/value surface every persistence driver implements.
// Get returns ErrNotFound for a missing key. Deleting a missing key is not an
// error.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases any underlying resources.
	Close() error
}

// Persistence adapts kv to the session store's persistence collaborator.
func Persistence(kv KV) session.Persistence {
	return persistence{kv: kv}
}

type persistence struct {
	kv KV
}

func (p persistence) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := p.kv.Get(ctx, key)
	switch {
	case errors.Is(err, ErrNotFound):
		return "", false, nil
	case err != nil:
		return "", false, err
	}
	return v, true, nil
}

func (p persistence) Set(ctx context.Context, key, value string) error {
	return p.kv.Set(ctx, key, value)
}

func (p persistence) Delete(ctx context.Context, key string) error {
	return p.kv.Delete(ctx, key)
}
