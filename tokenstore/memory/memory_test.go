package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacetimedb/sdk-go/tokenstore/memory"
)

func TestLoadMissingReturnsNotOK(t *testing.T) {
	s := memory.New()
	tok, ok, err := s.Load(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, tok)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "id-1", "tok-1"))

	tok, ok, err := s.Load(ctx, "id-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "tok-1", tok)

	require.NoError(t, s.Save(ctx, "id-1", "tok-2"))
	tok, ok, err = s.Load(ctx, "id-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "tok-2", tok)
}
