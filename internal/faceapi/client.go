// Package faceapi is the client for the face recognition backend: the
// liveness probe, face registration, and attendance marking. Uploads run
// through a retry policy that distinguishes transport failures from
// terminal server rejections.
package faceapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Client calls the face recognition service.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	log     *zap.Logger

	// retryDelay is overridable so tests don't sleep for real.
	retryDelay time.Duration
}

// New creates a client. Face processing can take time, so the timeout is
// generous.
func New(baseURL string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		BaseURL:    baseURL,
		HTTP:       &http.Client{Timeout: 30 * time.Second},
		log:        log,
		retryDelay: 3 * time.Second,
	}
}

// Ping probes /health up to attempts times with a fixed delay between
// tries. The result is advisory: callers log it but do not gate uploads
// on it.
func (c *Client) Ping(ctx context.Context, attempts int, delay time.Duration) bool {
	if attempts <= 0 {
		attempts = 3
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
		if err != nil {
			return false
		}
		resp, err := c.HTTP.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode < 300 {
				return true
			}
		}
		c.log.Debug("health probe failed", zap.Int("attempt", attempt), zap.Error(err))
		if attempt < attempts {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return false
			}
		}
	}
	return false
}

// Register uploads a face image for enrollment. The image travels as
// multipart field "image" named face.jpg.
func (c *Client) Register(ctx context.Context, bearer string, image []byte) error {
	return c.doWithRetry(ctx, func() (*http.Request, error) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		part, err := w.CreateFormFile("image", "face.jpg")
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(part, bytes.NewReader(image)); err != nil {
			return nil, err
		}
		w.Close()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/register", &buf)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+bearer)
		req.Header.Set("Content-Type", w.FormDataContentType())
		return req, nil
	})
}

// MarkAttendance uploads a clock-in: event id, coordinates, and the face
// image as multipart field "image" named attendance.jpg.
func (c *Client) MarkAttendance(ctx context.Context, bearer, eventID string, lat, lng float64, image []byte) error {
	return c.doWithRetry(ctx, func() (*http.Request, error) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		_ = w.WriteField("eventId", eventID)
		_ = w.WriteField("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
		_ = w.WriteField("longitude", strconv.FormatFloat(lng, 'f', -1, 64))
		part, err := w.CreateFormFile("image", "attendance.jpg")
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(part, bytes.NewReader(image)); err != nil {
			return nil, err
		}
		w.Close()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/mark_attendance", &buf)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+bearer)
		req.Header.Set("Content-Type", w.FormDataContentType())
		return req, nil
	})
}

// serverMessage pulls the structured {error} body off a rejection,
// falling back to the raw body.
func serverMessage(body []byte) string {
	var out struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &out); err == nil && out.Error != "" {
		return out.Error
	}
	return string(body)
}
