package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clockin/internal/store"
	"clockin/internal/token"
)

func issued(t *testing.T, ttl time.Duration) string {
	t.Helper()
	signed, _, err := token.Issue("student-1", "s1@campus.edu", "student", "clockin-dev", "test-key", ttl)
	require.NoError(t, err)
	return signed
}

func seeded(t *testing.T, user, tok string) store.KV {
	t.Helper()
	ctx := context.Background()
	kv := store.NewMemory()
	if user != "" {
		require.NoError(t, kv.Set(ctx, "user", user))
	}
	if tok != "" {
		require.NoError(t, kv.Set(ctx, "token", tok))
	}
	return kv
}

func TestRestoreValidSession(t *testing.T) {
	ctx := context.Background()
	tok := issued(t, time.Hour)
	kv := seeded(t, `{"id":"student-1","email":"s1@campus.edu","role":"student"}`, tok)

	s := NewStore(kv, nil)
	sess, err := s.Restore(ctx)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "student-1", sess.User.ID)
	assert.Equal(t, tok, sess.Token)
	assert.True(t, sess.Valid())
	assert.Equal(t, sess, s.Current())
}

func TestRestorePartialStateClearsStorage(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		kv   store.KV
	}{
		{"only token", seeded(t, "", issued(t, time.Hour))},
		{"only user", seeded(t, `{"id":"student-1"}`, "")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(tt.kv, nil)
			sess, err := s.Restore(ctx)
			require.NoError(t, err)
			assert.Nil(t, sess)
			assert.Nil(t, s.Current())

			_, err = tt.kv.Get(ctx, "user")
			assert.ErrorIs(t, err, store.ErrNotFound)
			_, err = tt.kv.Get(ctx, "token")
			assert.ErrorIs(t, err, store.ErrNotFound)
		})
	}
}

func TestRestoreRejectsBadTokens(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		tok  string
	}{
		{"expired", issued(t, -time.Minute)},
		{"malformed", "not.a.token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := seeded(t, `{"id":"student-1"}`, tt.tok)
			s := NewStore(kv, nil)
			sess, err := s.Restore(ctx)
			require.NoError(t, err)
			assert.Nil(t, sess)

			_, err = kv.Get(ctx, "token")
			assert.ErrorIs(t, err, store.ErrNotFound)
		})
	}
}

func TestLoginExpiredTokenWritesNothing(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	s := NewStore(kv, nil)

	// Token expired ten seconds ago.
	sess, err := s.Login(ctx, issued(t, -10*time.Second), User{ID: "student-1"})
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Nil(t, sess)
	assert.Nil(t, s.Current())

	_, err = kv.Get(ctx, "token")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = kv.Get(ctx, "user")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLoginUndecodableToken(t *testing.T) {
	s := NewStore(store.NewMemory(), nil)
	_, err := s.Login(context.Background(), "garbage", User{ID: "student-1"})
	assert.ErrorIs(t, err, ErrSessionDecode)
}

func TestLoginPersistsAndNotifies(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	s := NewStore(kv, nil)

	changed := 0
	s.OnChange(func() { changed++ })

	user := User{ID: "student-1", Email: "s1@campus.edu", Role: "student"}
	sess, err := s.Login(ctx, issued(t, time.Hour), user)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, 1, changed)
	assert.Equal(t, sess.Token, s.Token())

	rawUser, err := kv.Get(ctx, "user")
	require.NoError(t, err)
	var stored User
	require.NoError(t, json.Unmarshal([]byte(rawUser), &stored))
	assert.Equal(t, user, stored)
}

// failingKV always errors on Remove, to prove logout swallows it.
type failingKV struct{ store.KV }

func (f failingKV) Remove(context.Context, ...string) error {
	return errors.New("disk on fire")
}

func TestLogoutIsIdempotentAndSwallowsStorageErrors(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	s := NewStore(kv, nil)

	_, err := s.Login(ctx, issued(t, time.Hour), User{ID: "student-1"})
	require.NoError(t, err)

	s.Logout(ctx)
	assert.Nil(t, s.Current())
	s.Logout(ctx) // already empty, must not blow up

	broken := NewStore(failingKV{kv}, nil)
	broken.Logout(ctx) // storage failure, still succeeds from caller's view
	assert.Nil(t, broken.Current())
}
