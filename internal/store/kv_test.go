package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileKVRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv, err := NewFileKV(filepath.Join(t.TempDir(), "state", "session.json"))
	require.NoError(t, err)

	_, err = kv.Get(ctx, "token")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, kv.Set(ctx, "token", "abc"))
	require.NoError(t, kv.Set(ctx, "user", `{"id":"1"}`))

	got, err := kv.Get(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "abc", got)

	require.NoError(t, kv.Remove(ctx, "token", "user"))
	_, err = kv.Get(ctx, "user")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileKVRemoveMissingKeys(t *testing.T) {
	ctx := context.Background()
	kv, err := NewFileKV(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)

	// Removing keys that were never written must not fail.
	assert.NoError(t, kv.Remove(ctx, "token", "user"))
}

func TestMemoryKV(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()

	require.NoError(t, kv.Set(ctx, "user", "u"))
	got, err := kv.Get(ctx, "user")
	require.NoError(t, err)
	assert.Equal(t, "u", got)

	require.NoError(t, kv.Remove(ctx, "user", "nope"))
	_, err = kv.Get(ctx, "user")
	assert.ErrorIs(t, err, ErrNotFound)
}
