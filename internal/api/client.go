// Package api is the client for the events backend: auth, the event
// list, batch attendance status, stats, and the face-registration check.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"clockin/internal/event"
	"clockin/internal/session"
)

// Client calls the events backend with bearer authentication.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New creates a client with a request timeout suited to one-shot reads.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

// LoginResult is the auth backend's login payload.
type LoginResult struct {
	Token string       `json:"token"`
	User  session.User `json:"user"`
}

// Login exchanges credentials for a token and user record.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return LoginResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return LoginResult{}, fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return LoginResult{}, fmt.Errorf("auth error %s: %s", resp.Status, string(bodyBytes))
	}

	var out LoginResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return LoginResult{}, fmt.Errorf("failed to decode login response: %w", err)
	}
	return out, nil
}

// Signup registers a new account.
func (c *Client) Signup(ctx context.Context, email, password, name string) error {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password, "name": name})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/auth/signup", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("signup request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("signup error %s: %s", resp.Status, string(bodyBytes))
	}
	return nil
}

// ListEvents fetches the raw event list.
func (c *Client) ListEvents(ctx context.Context, bearer string) ([]event.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/events/", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("events request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("events error %s: %s", resp.Status, string(bodyBytes))
	}

	var out []event.Record
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}
	return out, nil
}

// AttendanceStatuses resolves attendance status for a batch of event ids.
func (c *Client) AttendanceStatuses(ctx context.Context, bearer string, eventIDs []string) (map[string]string, error) {
	body, _ := json.Marshal(map[string][]string{"eventIds": eventIDs})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/attendance/status/multiple", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status error %s: %s", resp.Status, string(bodyBytes))
	}

	var out struct {
		StatusMap map[string]string `json:"statusMap"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode status map: %w", err)
	}
	return out.StatusMap, nil
}

// Stats holds per-student attendance totals.
type Stats struct {
	Present int `json:"present"`
	Late    int `json:"late"`
	Absent  int `json:"absent"`
}

// AttendanceStats fetches the student's attendance totals.
func (c *Client) AttendanceStats(ctx context.Context, bearer string) (Stats, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/attendance/stats", nil)
	if err != nil {
		return Stats{}, err
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Stats{}, fmt.Errorf("stats request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return Stats{}, fmt.Errorf("stats error %s: %s", resp.Status, string(bodyBytes))
	}

	var out Stats
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Stats{}, fmt.Errorf("failed to decode stats: %w", err)
	}
	return out, nil
}

// CheckFace reports whether the student already has a registered face.
func (c *Client) CheckFace(ctx context.Context, bearer string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/check-face", nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return false, fmt.Errorf("face check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return false, fmt.Errorf("face check error %s: %s", resp.Status, string(bodyBytes))
	}

	var out struct {
		Registered bool `json:"registered"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("failed to decode face check: %w", err)
	}
	return out.Registered, nil
}
