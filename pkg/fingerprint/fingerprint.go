// Package fingerprint supplies the device fingerprint sent with login and
// registration so the backend can bind refresh tokens to a device.
package fingerprint

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// ErrUnavailable is returned when a provider cannot identify the device.
var ErrUnavailable = errors.New("fingerprint: unavailable")

// Provider yields an opaque device fingerprint.
type Provider interface {
	Fingerprint(ctx context.Context) (string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (string, error)

func (f ProviderFunc) Fingerprint(ctx context.Context) (string, error) { return f(ctx) }

// Static always returns fp. An empty fp is reported as unavailable.
func Static(fp string) Provider {
	return ProviderFunc(func(context.Context) (string, error) {
		if fp == "" {
			return "", ErrUnavailable
		}
		return fp, nil
	})
}

// Generated returns a random fingerprint, fixed for the life of the
// provider. Useful when no hardware id can be read.
func Generated() Provider {
	fp := uuid.NewString()
	return Static(fp)
}

// First returns the result of the first provider that succeeds.
func First(providers ...Provider) Provider {
	return ProviderFunc(func(ctx context.Context) (string, error) {
		var errs []error
		for _, p := range providers {
			fp, err := p.Fingerprint(ctx)
			if err == nil {
				return fp, nil
			}
			errs = append(errs, err)
		}
		if len(errs) == 0 {
			return "", ErrUnavailable
		}
		return "", errors.Join(errs...)
	})
}

type cached struct {
	next Provider

	mu sync.Mutex
	fp string
}

// Cached memoizes the first successful result of p. Failures are not cached.
func Cached(p Provider) Provider {
	return &cached{next: p}
}

func (c *cached) Fingerprint(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fp != "" {
		return c.fp, nil
	}

	fp, err := c.next.Fingerprint(ctx)
	if err != nil {
		return "", err
	}
	c.fp = fp
	return fp, nil
}

// Digest hashes a raw device id so the id itself never leaves the device.
func Digest(raw string) (string, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return "", fmt.Errorf("%w: empty device id", ErrUnavailable)
	}
	sum := blake2b.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:]), nil
}
