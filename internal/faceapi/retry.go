package faceapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ErrServerUnreachable is returned when every retry attempt fails at the
// transport level.
var ErrServerUnreachable = errors.New("server not responding")

// ServerError is a terminal server rejection. It carries the status code
// and the server-supplied message; retrying it is futile.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server rejected request (%d): %s", e.Status, e.Message)
}

// terminalStatuses are semantic rejections that must surface immediately:
// bad request, auth failure, location or face mismatch, not found, server
// fault.
var terminalStatuses = map[int]bool{
	http.StatusBadRequest:          true,
	http.StatusUnauthorized:        true,
	http.StatusForbidden:           true,
	http.StatusNotFound:            true,
	http.StatusInternalServerError: true,
}

const maxRetries = 3

// doWithRetry runs a request up to maxRetries times. Transport failures
// and non-terminal statuses are retried after a fixed delay; terminal
// statuses come back as *ServerError without consuming further attempts.
// The request is rebuilt per attempt since multipart bodies are one-shot.
func (c *Client) doWithRetry(ctx context.Context, build func() (*http.Request, error)) error {
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		req, err := build()
		if err != nil {
			return err
		}

		resp, err := c.HTTP.Do(req)
		if err != nil {
			lastErr = err
			c.log.Warn("upload attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		} else {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()

			if resp.StatusCode < 300 {
				return nil
			}
			if terminalStatuses[resp.StatusCode] {
				return &ServerError{Status: resp.StatusCode, Message: serverMessage(body)}
			}
			lastErr = fmt.Errorf("unexpected status %s: %s", resp.Status, serverMessage(body))
			c.log.Warn("upload attempt rejected", zap.Int("attempt", attempt), zap.Int("status", resp.StatusCode))
		}

		if attempt < maxRetries {
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	c.log.Error("server failed to respond after retries", zap.Error(lastErr))
	return fmt.Errorf("%w: %v", ErrServerUnreachable, lastErr)
}
