// Package devstore backs the development server: user accounts, the
// event catalogue, and attendance records. Postgres when configured,
// seeded in-memory fixtures otherwise.
package devstore

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrUserExists    = errors.New("user already exists")
	ErrBadCredential = errors.New("invalid credentials")
	ErrAlreadyMarked = errors.New("attendance already marked")
)

// User is a registered student account.
type User struct {
	ID             string
	Email          string
	Name           string
	Role           string
	PasswordHash   string
	FaceRegistered bool
}

// Event is one schedulable event.
type Event struct {
	ID          string
	Name        string
	Description string
	Start       time.Time
	End         time.Time
	Registered  []string
	VenueLat    float64
	VenueLng    float64
}

// Stats are per-student attendance totals.
type Stats struct {
	Present int
	Late    int
	Absent  int
}

// Store is the persistence contract the devserver handlers use.
type Store interface {
	CreateUser(ctx context.Context, email, password, name string) (User, error)
	Authenticate(ctx context.Context, email, password string) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	SetFaceRegistered(ctx context.Context, userID string) error

	ListEvents(ctx context.Context) ([]Event, error)
	GetEvent(ctx context.Context, id string) (Event, error)

	// StatusMap returns the attendance status per event id for one user.
	// Events without a record are simply absent from the map.
	StatusMap(ctx context.Context, userID string, eventIDs []string) (map[string]string, error)
	MarkAttendance(ctx context.Context, userID, eventID, status string, lat, lng float64) error
	Stats(ctx context.Context, userID string) (Stats, error)
}
