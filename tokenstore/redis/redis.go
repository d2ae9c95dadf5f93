// Package redis provides a Redis-backed implementation of tokenstore.Store,
// for deployments that run more than one client process against the same
// identity and want a shared, durable token cache.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/spacetimedb/sdk-go/tokenstore"
)

// Store is a Redis implementation of tokenstore.Store. Keys are namespaced
// under keyPrefix so a single Redis instance can host more than one
// application's tokens.
type Store struct {
	client    *goredis.Client
	keyPrefix string
	ttl       time.Duration // 0 means no expiry
}

// Compile-time check that Store implements tokenstore.Store.
var _ tokenstore.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithKeyPrefix overrides the default "spacetimedb:token:" key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) { s.keyPrefix = prefix }
}

// WithTTL sets an expiry on every saved token; zero (the default) means
// tokens never expire on their own.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// New wraps an existing, connected *redis.Client.
func New(client *goredis.Client, opts ...Option) *Store {
	s := &Store{client: client, keyPrefix: "spacetimedb:token:"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(identity string) string {
	return s.keyPrefix + identity
}

// Load retrieves the token saved for identity.
func (s *Store) Load(ctx context.Context, identity string) (string, bool, error) {
	tok, err := s.client.Get(ctx, s.key(identity)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("tokenstore/redis: load %q: %w", identity, err)
	}
	return tok, true, nil
}

// Save stores or overwrites the token for identity.
func (s *Store) Save(ctx context.Context, identity, token string) error {
	if err := s.client.Set(ctx, s.key(identity), token, s.ttl).Err(); err != nil {
		return fmt.Errorf("tokenstore/redis: save %q: %w", identity, err)
	}
	return nil
}
