package devstore

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// MemoryStore is the fixture-backed store for running the devserver
// without Postgres.
type MemoryStore struct {
	mu         sync.Mutex
	users      map[string]User              // by id
	byEmail    map[string]string            // email -> id
	events     map[string]Event             // by id
	attendance map[string]map[string]string // userID -> eventID -> status
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]User),
		byEmail:    make(map[string]string),
		events:     make(map[string]Event),
		attendance: make(map[string]map[string]string),
	}
}

// Seed loads demo fixtures: one student account and three events placed
// around now so every category is populated.
func (m *MemoryStore) Seed(now time.Time) {
	u, _ := m.CreateUser(context.Background(), "student@campus.edu", "password", "Demo Student")
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events["ev-ongoing"] = Event{
		ID: "ev-ongoing", Name: "Distributed Systems Lecture",
		Description: "Weekly lecture", Registered: []string{u.ID},
		Start: now.Add(-30 * time.Minute), End: now.Add(90 * time.Minute),
	}
	m.events["ev-upcoming"] = Event{
		ID: "ev-upcoming", Name: "Compilers Lab",
		Description: "Lab session", Registered: []string{u.ID},
		Start: now.Add(3 * time.Hour), End: now.Add(5 * time.Hour),
	}
	m.events["ev-past"] = Event{
		ID: "ev-past", Name: "Orientation",
		Description: "Semester orientation", Registered: []string{u.ID},
		Start: now.Add(-48 * time.Hour), End: now.Add(-46 * time.Hour),
	}
}

// CreateUser registers an account with a bcrypt-hashed password.
func (m *MemoryStore) CreateUser(_ context.Context, email, password, name string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byEmail[email]; exists {
		return User{}, ErrUserExists
	}
	u := User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		Role:         "student",
		PasswordHash: string(hash),
	}
	m.users[u.ID] = u
	m.byEmail[email] = u.ID
	return u, nil
}

// Authenticate verifies credentials.
func (m *MemoryStore) Authenticate(_ context.Context, email, password string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	m.mu.Lock()
	id, ok := m.byEmail[email]
	u := m.users[id]
	m.mu.Unlock()
	if !ok {
		return User{}, ErrBadCredential
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, ErrBadCredential
	}
	return u, nil
}

// GetUser returns a user by id.
func (m *MemoryStore) GetUser(_ context.Context, id string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

// SetFaceRegistered flags a user as enrolled.
func (m *MemoryStore) SetFaceRegistered(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.FaceRegistered = true
	m.users[userID] = u
	return nil
}

// ListEvents returns all events.
func (m *MemoryStore) ListEvents(context.Context) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e)
	}
	return out, nil
}

// GetEvent returns an event by id.
func (m *MemoryStore) GetEvent(_ context.Context, id string) (Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return Event{}, ErrNotFound
	}
	return e, nil
}

// StatusMap returns attendance statuses for one user; unmarked events are
// omitted.
func (m *MemoryStore) StatusMap(_ context.Context, userID string, eventIDs []string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string)
	marks := m.attendance[userID]
	for _, id := range eventIDs {
		if status, ok := marks[id]; ok {
			out[id] = status
		}
	}
	return out, nil
}

// MarkAttendance records one status per (user, event). Marking twice is
// rejected.
func (m *MemoryStore) MarkAttendance(_ context.Context, userID, eventID, status string, _, _ float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[eventID]; !ok {
		return ErrNotFound
	}
	if m.attendance[userID] == nil {
		m.attendance[userID] = make(map[string]string)
	}
	if _, marked := m.attendance[userID][eventID]; marked {
		return ErrAlreadyMarked
	}
	m.attendance[userID][eventID] = status
	return nil
}

// Stats totals a user's attendance records.
func (m *MemoryStore) Stats(_ context.Context, userID string) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var s Stats
	for _, status := range m.attendance[userID] {
		switch status {
		case "present":
			s.Present++
		case "late":
			s.Late++
		case "absent":
			s.Absent++
		}
	}
	return s, nil
}
