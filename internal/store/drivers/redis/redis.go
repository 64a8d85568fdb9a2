// Package redis stores session keys in Redis so several processes on one
// device can share a session.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/sessionkit/internal/store"
	goredis "github.com/redis/go-redis/v9"
)

const defaultPrefix = "sessionkit:"

// Config captures connection options.
type Config struct {
	Addr     string
	Username string
	Password string
	DB       int

	// Prefix namespaces every key. Defaults to "sessionkit:".
	Prefix string

	// TTL expires keys that are not rewritten. Zero keeps them forever.
	TTL time.Duration
}

type Store struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewStore connects to Redis and pings it once.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address required")
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}

	return &Store{client: client, prefix: prefix, ttl: cfg.TTL}, nil
}

func (s *Store) key(k string) string { return s.prefix + k }

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", store.ErrNotFound
	}
	return v, err
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, s.key(key), value, s.ttl).Err()
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

func (s *Store) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }
func (s *Store) Close() error                   { return s.client.Close() }
