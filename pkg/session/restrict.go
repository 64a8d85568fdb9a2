package session

import (
	"context"
	"errors"
	"fmt"
)

// ErrKeyNotAllowed is returned by Restrict for keys outside the whitelist.
var ErrKeyNotAllowed = errors.New("session: persistence key not allowed")

// restricted wraps a Persistence so only the session keys reach it.
type restricted struct {
	next Persistence
}

// Restrict returns a Persistence that rejects every key other than KeyUser
// and KeyAnonymous. Drivers shared with other data should be wrapped in it.
//
// Restrict only limits what the Store writes. The backing driver may hold
// other records beside the session: sessionctl keeps its cookie jar there,
// refresh credential included, so the driver must be protected like a
// browser's cookie storage.
func Restrict(p Persistence) Persistence {
	return restricted{next: p}
}

func allowed(key string) error {
	switch key {
	case KeyUser, KeyAnonymous:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrKeyNotAllowed, key)
	}
}

func (r restricted) Get(ctx context.Context, key string) (string, bool, error) {
	if err := allowed(key); err != nil {
		return "", false, err
	}
	return r.next.Get(ctx, key)
}

func (r restricted) Set(ctx context.Context, key, value string) error {
	if err := allowed(key); err != nil {
		return err
	}
	return r.next.Set(ctx, key, value)
}

func (r restricted) Delete(ctx context.Context, key string) error {
	if err := allowed(key); err != nil {
		return err
	}
	return r.next.Delete(ctx, key)
}
