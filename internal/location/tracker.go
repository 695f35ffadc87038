package location

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Tracker caches the last known position and its resolved address. It is
// the single owner of location state; Fetch refreshes it one shot at a
// time.
type Tracker struct {
	provider Provider
	geocoder *Geocoder
	log      *zap.Logger

	mu      sync.RWMutex
	pos     *Position
	address string
	lastErr error
}

// NewTracker creates a tracker. geocoder may be nil when no address
// resolution is wanted.
func NewTracker(provider Provider, geocoder *Geocoder, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{provider: provider, geocoder: geocoder, log: log, address: "Fetching location..."}
}

// Fetch refreshes position and address. A provider failure keeps the last
// known position and records the error.
func (t *Tracker) Fetch(ctx context.Context) (Position, error) {
	pos, err := t.provider.Current(ctx)
	if err != nil {
		t.mu.Lock()
		t.lastErr = err
		t.mu.Unlock()
		t.log.Warn("location fetch failed", zap.Error(err))
		return Position{}, err
	}
	pos = pos.Round()

	address := ""
	if t.geocoder != nil {
		address = t.geocoder.Reverse(ctx, pos)
	}

	t.mu.Lock()
	t.pos = &pos
	if address != "" {
		t.address = address
	}
	t.lastErr = nil
	t.mu.Unlock()
	return pos, nil
}

// Last returns the cached position, nil when never fetched.
func (t *Tracker) Last() *Position {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.pos == nil {
		return nil
	}
	p := *t.pos
	return &p
}

// Address returns the last resolved address.
func (t *Tracker) Address() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.address
}

// Err returns the most recent fetch error, nil after a success.
func (t *Tracker) Err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastErr
}
