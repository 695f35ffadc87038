package devstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/crypto/bcrypt"
)

// PostgresStore persists devserver data in Postgres using pgx.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres creates a Postgres-backed store with sane pool defaults.
func NewPostgres(connString string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	if err := db.PingContext(context.Background()); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

// Close closes the underlying connection.
func (p *PostgresStore) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

// CreateUser registers an account with a bcrypt-hashed password.
func (p *PostgresStore) CreateUser(ctx context.Context, email, password, name string) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	u := User{ID: uuid.NewString(), Email: email, Name: name, Role: "student", PasswordHash: string(hash)}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, role, password_hash)
		VALUES ($1, $2, $3, $4, $5)
	`, u.ID, u.Email, u.Name, u.Role, u.PasswordHash)
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// Authenticate verifies credentials.
func (p *PostgresStore) Authenticate(ctx context.Context, email, password string) (User, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, email, name, role, password_hash, face_registered
		FROM users WHERE email = $1
	`, email)
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash, &u.FaceRegistered); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrBadCredential
		}
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, ErrBadCredential
	}
	return u, nil
}

// GetUser returns a user by id.
func (p *PostgresStore) GetUser(ctx context.Context, id string) (User, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, email, name, role, password_hash, face_registered
		FROM users WHERE id = $1
	`, id)
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash, &u.FaceRegistered); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

// SetFaceRegistered flags a user as enrolled.
func (p *PostgresStore) SetFaceRegistered(ctx context.Context, userID string) error {
	res, err := p.db.ExecContext(ctx, `UPDATE users SET face_registered = TRUE WHERE id = $1`, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListEvents returns all events.
func (p *PostgresStore) ListEvents(ctx context.Context) ([]Event, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, name, description, start_time, end_time, venue_lat, venue_lng
		FROM events ORDER BY start_time
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Name, &e.Description, &e.Start, &e.End, &e.VenueLat, &e.VenueLng); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetEvent returns an event by id.
func (p *PostgresStore) GetEvent(ctx context.Context, id string) (Event, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, name, description, start_time, end_time, venue_lat, venue_lng
		FROM events WHERE id = $1
	`, id)
	var e Event
	if err := row.Scan(&e.ID, &e.Name, &e.Description, &e.Start, &e.End, &e.VenueLat, &e.VenueLng); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Event{}, ErrNotFound
		}
		return Event{}, err
	}
	return e, nil
}

// StatusMap returns attendance statuses for one user; unmarked events are
// omitted.
func (p *PostgresStore) StatusMap(ctx context.Context, userID string, eventIDs []string) (map[string]string, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT event_id, status FROM attendance WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	wanted := make(map[string]bool, len(eventIDs))
	for _, id := range eventIDs {
		wanted[id] = true
	}

	out := make(map[string]string)
	for rows.Next() {
		var eventID, status string
		if err := rows.Scan(&eventID, &status); err != nil {
			return nil, err
		}
		if wanted[eventID] {
			out[eventID] = status
		}
	}
	return out, rows.Err()
}

// MarkAttendance records one status per (user, event).
func (p *PostgresStore) MarkAttendance(ctx context.Context, userID, eventID, status string, lat, lng float64) error {
	res, err := p.db.ExecContext(ctx, `
		INSERT INTO attendance (user_id, event_id, status, latitude, longitude, marked_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_id, event_id) DO NOTHING
	`, userID, eventID, status, lat, lng)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAlreadyMarked
	}
	return nil
}

// Stats totals a user's attendance records.
func (p *PostgresStore) Stats(ctx context.Context, userID string) (Stats, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM attendance
		WHERE user_id = $1 GROUP BY status
	`, userID)
	if err != nil {
		return Stats{}, err
	}
	defer rows.Close()

	var s Stats
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, err
		}
		switch status {
		case "present":
			s.Present = count
		case "late":
			s.Late = count
		case "absent":
			s.Absent = count
		}
	}
	return s, rows.Err()
}
