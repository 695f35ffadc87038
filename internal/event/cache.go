package event

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Fetcher is the slice of the backend client the cache needs. Satisfied
// by api.Client.
type Fetcher interface {
	ListEvents(ctx context.Context, bearer string) ([]Record, error)
	AttendanceStatuses(ctx context.Context, bearer string, eventIDs []string) (map[string]string, error)
}

// TokenSource supplies the current bearer token, empty when logged out.
// Satisfied by session.Store.
type TokenSource interface {
	Token() string
}

// Cache owns the event collection. Refreshes replace the whole snapshot
// atomically; a failed refresh leaves the previous snapshot untouched.
type Cache struct {
	fetcher Fetcher
	tokens  TokenSource
	log     *zap.Logger

	mu       sync.Mutex
	events   []Record
	loading  bool
	inFlight bool
}

// NewCache creates an empty cache.
func NewCache(fetcher Fetcher, tokens TokenSource, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{fetcher: fetcher, tokens: tokens, log: log}
}

// Events returns a copy of the current snapshot.
func (c *Cache) Events() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Record, len(c.events))
	copy(out, c.events)
	return out
}

// Loading reports whether a refresh is in flight.
func (c *Cache) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Refresh fetches the event list, resolves per-event attendance status in
// a second batch call, and replaces the snapshot. Overlapping calls are
// coalesced: a refresh arriving while one is in flight returns the
// pre-refresh snapshot immediately. Without an authenticated session it
// is a no-op returning the current snapshot.
func (c *Cache) Refresh(ctx context.Context) ([]Record, error) {
	bearer := c.tokens.Token()
	if bearer == "" {
		return c.Events(), nil
	}

	c.mu.Lock()
	if c.inFlight {
		snapshot := make([]Record, len(c.events))
		copy(snapshot, c.events)
		c.mu.Unlock()
		return snapshot, nil
	}
	c.inFlight = true
	c.loading = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.inFlight = false
		c.loading = false
		c.mu.Unlock()
	}()

	raw, err := c.fetcher.ListEvents(ctx, bearer)
	if err != nil {
		c.log.Error("fetching events failed", zap.Error(err))
		return c.Events(), err
	}

	ids := make([]string, 0, len(raw))
	for _, e := range raw {
		ids = append(ids, e.ID)
	}

	statusMap, err := c.fetcher.AttendanceStatuses(ctx, bearer, ids)
	if err != nil {
		c.log.Error("fetching attendance statuses failed", zap.Error(err))
		return c.Events(), err
	}

	merged := make([]Record, len(raw))
	for i, e := range raw {
		e.AttendanceStatus = ParseStatus(statusMap[e.ID])
		merged[i] = e
	}

	c.mu.Lock()
	c.events = merged
	c.mu.Unlock()

	c.log.Debug("event snapshot replaced", zap.Int("count", len(merged)))
	return c.Events(), nil
}

// Invalidate drops the snapshot. Wired to the session-changed signal so a
// login or logout never leaves another user's events visible.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.events = nil
	c.mu.Unlock()
}

// InvalidateAndRefresh drops the snapshot and refetches.
func (c *Cache) InvalidateAndRefresh(ctx context.Context) ([]Record, error) {
	c.Invalidate()
	return c.Refresh(ctx)
}
