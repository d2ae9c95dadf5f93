//go:build integration

package mongo

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/spacetimedb/sdk-go/tokenstore"
)

var (
	testMongoClient    *mongo.Client
	testMongoContainer testcontainers.Container
	skipMongoTests     bool
)

func setupMongoDB() {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForLog("Waiting for connections"),
		Tmpfs:        map[string]string{"/data/db": "rw"},
	}
	var err error
	testMongoContainer, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Printf("Docker not available, MongoDB tokenstore tests will be skipped: %v\n", err)
		skipMongoTests = true
		return
	}

	host, err := testMongoContainer.Host(ctx)
	if err != nil {
		skipMongoTests = true
		return
	}
	port, err := testMongoContainer.MappedPort(ctx, "27017")
	if err != nil {
		skipMongoTests = true
		return
	}

	uri := fmt.Sprintf("mongodb://%s:%s", host, port.Port())
	testMongoClient, err = mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		skipMongoTests = true
		return
	}
	if err := testMongoClient.Ping(ctx, nil); err != nil {
		skipMongoTests = true
	}
}

func getMongoStore(t *testing.T) *Store {
	t.Helper()
	if testMongoClient == nil && !skipMongoTests {
		setupMongoDB()
	}
	if skipMongoTests {
		t.Skip("Docker not available, skipping MongoDB tokenstore test")
	}
	collection := testMongoClient.Database("tokenstore_test").Collection(t.Name())
	require.NoError(t, collection.Drop(context.Background()))
	return New(collection)
}

func TestMongoTokenPersistenceRoundTrip(t *testing.T) {
	store := getMongoStore(t)
	ctx := context.Background()

	_, ok, err := store.Load(ctx, "identity-1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Save(ctx, "identity-1", "token-a"))
	tok, ok, err := store.Load(ctx, "identity-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "token-a", tok)

	require.NoError(t, store.Save(ctx, "identity-1", "token-b"))
	tok, ok, err = store.Load(ctx, "identity-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "token-b", tok)

	// A fresh Store over the same collection observes the same document.
	store2 := New(testMongoClient.Database("tokenstore_test").Collection(t.Name()))
	tok, ok, err = store2.Load(ctx, "identity-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "token-b", tok)

	var _ tokenstore.Store = store2
}
