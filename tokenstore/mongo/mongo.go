// Package mongo provides a MongoDB-backed implementation of
// tokenstore.Store, one document per identity, for deployments that want
// durable token persistence across restarts.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/spacetimedb/sdk-go/tokenstore"
)

// Store is a MongoDB implementation of tokenstore.Store.
type Store struct {
	collection *mongo.Collection
}

// Compile-time check that Store implements tokenstore.Store.
var _ tokenstore.Store = (*Store)(nil)

// tokenDocument is the MongoDB document representation of a saved token.
type tokenDocument struct {
	Identity string `bson:"_id"`
	Token    string `bson:"token"`
}

// New wraps the collection tokens are stored in. The collection should come
// from an already-connected client.
func New(collection *mongo.Collection) *Store {
	return &Store{collection: collection}
}

// Load retrieves the token saved for identity.
func (s *Store) Load(ctx context.Context, identity string) (string, bool, error) {
	var doc tokenDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": identity}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("tokenstore/mongo: load %q: %w", identity, err)
	}
	return doc.Token, true, nil
}

// Save stores or overwrites the token for identity.
func (s *Store) Save(ctx context.Context, identity, token string) error {
	doc := tokenDocument{Identity: identity, Token: token}
	opts := options.Replace().SetUpsert(true)
	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": identity}, doc, opts)
	if err != nil {
		return fmt.Errorf("tokenstore/mongo: save %q: %w", identity, err)
	}
	return nil
}
