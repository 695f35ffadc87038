// Package location wraps the one-shot geolocation capability and the
// reverse-geocoding lookup behind small interfaces.
package location

import (
	"context"
	"fmt"
	"math"
)

// Position is a coordinate pair rounded to five decimal places, matching
// the precision the capture flow submits.
type Position struct {
	Lat float64
	Lng float64
}

// Round truncates coordinates to five decimal places.
func (p Position) Round() Position {
	return Position{
		Lat: math.Round(p.Lat*1e5) / 1e5,
		Lng: math.Round(p.Lng*1e5) / 1e5,
	}
}

// Provider error codes, fixed by the geolocation capability contract.
const (
	CodePermissionDenied = 1
	CodeUnavailable      = 2
	CodeTimeout          = 3
)

// Error is a location-provider failure. It aborts a capture flow before
// any upload attempt and is distinguished from network errors.
type Error struct {
	Code int
}

func (e *Error) Error() string {
	switch e.Code {
	case CodePermissionDenied:
		return "location permission denied"
	case CodeUnavailable:
		return "location provider disabled"
	case CodeTimeout:
		return "location request timed out"
	default:
		return fmt.Sprintf("unknown location error (code %d)", e.Code)
	}
}

// Provider supplies the device's current position, one shot per call.
type Provider interface {
	Current(ctx context.Context) (Position, error)
}

// Static is a fixed-position provider for kiosks mounted at a known
// venue, and for tests.
type Static struct {
	Pos Position
}

// Current returns the configured position.
func (s Static) Current(context.Context) (Position, error) {
	return s.Pos.Round(), nil
}
