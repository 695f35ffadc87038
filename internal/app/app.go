// Package app wires the session store, events cache, location tracker
// and upload pipeline into the operations the kiosk agent exposes.
package app

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"clockin/internal/api"
	"clockin/internal/event"
	"clockin/internal/location"
	"clockin/internal/pipeline"
	"clockin/internal/session"
)

// App bundles the client core. Each collaborator keeps single ownership
// of its state; App only coordinates.
type App struct {
	Sessions *session.Store
	Events   *event.Cache
	Tracker  *location.Tracker
	Pipeline *pipeline.Pipeline
	API      *api.Client
	Log      *zap.Logger
}

// New creates the app and wires the session-changed signal to an
// explicit cache invalidation.
func New(sessions *session.Store, events *event.Cache, tracker *location.Tracker, pipe *pipeline.Pipeline, client *api.Client, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{
		Sessions: sessions,
		Events:   events,
		Tracker:  tracker,
		Pipeline: pipe,
		API:      client,
		Log:      log,
	}
	sessions.OnChange(events.Invalidate)
	return a
}

// Login authenticates against the backend and establishes a session.
func (a *App) Login(ctx context.Context, email, password string) (*session.Session, error) {
	res, err := a.API.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return a.Sessions.Login(ctx, res.Token, res.User)
}

// RefreshAll refetches events and location concurrently and joins both
// before reporting done: the slower of the two clears the refreshing
// indicator. Either leg failing surfaces its error after the join.
func (a *App) RefreshAll(ctx context.Context) error {
	var wg sync.WaitGroup
	var eventsErr, locErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		_, eventsErr = a.Events.Refresh(ctx)
	}()
	go func() {
		defer wg.Done()
		_, locErr = a.Tracker.Fetch(ctx)
	}()
	wg.Wait()

	if eventsErr != nil {
		return eventsErr
	}
	return locErr
}

// CheckRegistered reports whether the logged-in student's face is
// enrolled. Also used by the pipeline's post-registration recheck.
func (a *App) CheckRegistered(ctx context.Context) (bool, error) {
	return a.API.CheckFace(ctx, a.Sessions.Token())
}

// Stats fetches the student's attendance totals.
func (a *App) Stats(ctx context.Context) (api.Stats, error) {
	return a.API.AttendanceStats(ctx, a.Sessions.Token())
}
