package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"

	"clockin/internal/store"
	"clockin/internal/token"
)

// Storage keys, fixed by the persisted-state contract.
const (
	keyUser  = "user"
	keyToken = "token"
)

// Store coordinates login, logout and startup restore. It is the only
// component that mutates Session state; consumers read through Current
// and Token.
type Store struct {
	kv  store.KV
	log *zap.Logger

	mu      sync.RWMutex
	current *Session

	// onChange fires after login and logout so the events cache can
	// invalidate explicitly instead of watching token state.
	onChange func()
}

// NewStore creates a session store over the given persistence backend.
func NewStore(kv store.KV, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{kv: kv, log: log}
}

// OnChange registers a callback invoked after every session transition.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Current returns the active session, or nil when unauthenticated.
func (s *Store) Current() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Token returns the active bearer token, or "" when unauthenticated.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.Token
}

// Restore loads the persisted session at startup. A missing or invalid
// pair clears storage and yields no session; only storage-layer failures
// surface as errors.
func (s *Store) Restore(ctx context.Context) (*Session, error) {
	rawUser, errUser := s.kv.Get(ctx, keyUser)
	rawToken, errToken := s.kv.Get(ctx, keyToken)

	if errors.Is(errUser, store.ErrNotFound) || errors.Is(errToken, store.ErrNotFound) {
		if err := s.kv.Remove(ctx, keyUser, keyToken); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if errUser != nil {
		return nil, errUser
	}
	if errToken != nil {
		return nil, errToken
	}

	exp, err := token.ExpiresAt(rawToken)
	if err != nil {
		s.log.Warn("persisted token undecodable, clearing session", zap.Error(err))
		return nil, s.clear(ctx)
	}
	if !token.IsValid(rawToken) {
		s.log.Info("persisted token expired, clearing session", zap.Time("expired_at", exp))
		return nil, s.clear(ctx)
	}

	var user User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		s.log.Warn("persisted user undecodable, clearing session", zap.Error(err))
		return nil, s.clear(ctx)
	}

	sess := &Session{User: user, Token: rawToken, ExpiresAt: exp}
	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()
	return sess, nil
}

// Login validates the incoming token before committing anything. An
// expired or undecodable token leaves storage and memory untouched.
func (s *Store) Login(ctx context.Context, tokenStr string, user User) (*Session, error) {
	exp, err := token.ExpiresAt(tokenStr)
	if err != nil {
		s.log.Warn("login token undecodable", zap.Error(err))
		return nil, ErrSessionDecode
	}
	if !token.IsValid(tokenStr) {
		s.log.Info("login token already expired", zap.Time("expired_at", exp))
		return nil, ErrSessionExpired
	}

	rawUser, err := json.Marshal(user)
	if err != nil {
		return nil, err
	}
	if err := s.kv.Set(ctx, keyUser, string(rawUser)); err != nil {
		return nil, err
	}
	if err := s.kv.Set(ctx, keyToken, tokenStr); err != nil {
		return nil, err
	}

	sess := &Session{User: user, Token: tokenStr, ExpiresAt: exp}
	s.mu.Lock()
	s.current = sess
	fire := s.onChange
	s.mu.Unlock()
	if fire != nil {
		fire()
	}
	s.log.Info("session established",
		zap.String("user_id", user.ID),
		zap.Time("expires_at", exp))
	return sess, nil
}

// Logout clears memory and storage unconditionally. Storage failures are
// swallowed: the caller always observes a clean logout.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	s.current = nil
	fire := s.onChange
	s.mu.Unlock()
	if err := s.kv.Remove(ctx, keyUser, keyToken); err != nil {
		s.log.Warn("clearing persisted session failed", zap.Error(err))
	}
	if fire != nil {
		fire()
	}
}

// clear resets both memory and storage, propagating storage errors only.
func (s *Store) clear(ctx context.Context) error {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	return s.kv.Remove(ctx, keyUser, keyToken)
}
