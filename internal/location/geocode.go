package location

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Geocoder resolves coordinates to a human-readable address through a
// reverse-geocoding service.
type Geocoder struct {
	BaseURL string
	HTTP    *http.Client
}

// NewGeocoder creates a reverse geocoder.
func NewGeocoder(baseURL string) *Geocoder {
	return &Geocoder{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Reverse looks up the display name for a position. Lookup failures come
// back as the fallback strings the UI shows, never as errors; the
// address is cosmetic.
func (g *Geocoder) Reverse(ctx context.Context, pos Position) string {
	u := fmt.Sprintf("%s?format=json&lat=%s&lon=%s",
		g.BaseURL,
		url.QueryEscape(fmt.Sprintf("%.5f", pos.Lat)),
		url.QueryEscape(fmt.Sprintf("%.5f", pos.Lng)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "Failed to fetch address"
	}
	resp, err := g.HTTP.Do(req)
	if err != nil {
		return "Failed to fetch address"
	}
	defer resp.Body.Close()

	var out struct {
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.DisplayName == "" {
		return "Address not found"
	}
	return out.DisplayName
}
