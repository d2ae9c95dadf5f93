// Package memory provides an in-memory implementation of tokenstore.Store.
//
// This implementation is suitable for development, testing, and
// single-process deployments where persistence across restarts is not
// required; it is the default store client.Config falls back to.
package memory

import (
	"context"
	"sync"

	"github.com/spacetimedb/sdk-go/tokenstore"
)

// Store is an in-memory implementation of tokenstore.Store. It is safe for
// concurrent use.
type Store struct {
	mu     sync.RWMutex
	tokens map[string]string
}

// Compile-time check that Store implements tokenstore.Store.
var _ tokenstore.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{tokens: make(map[string]string)}
}

// Load retrieves the token saved for identity.
func (s *Store) Load(_ context.Context, identity string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tok, ok := s.tokens[identity]
	return tok, ok, nil
}

// Save stores or overwrites the token for identity.
func (s *Store) Save(_ context.Context, identity, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[identity] = token
	return nil
}
