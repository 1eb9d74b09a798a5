package geo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// FallbackAddress is returned when the lookup succeeds but carries no
// display name.
const FallbackAddress = "Unable to retrieve address"

// Nominatim reverse-geocodes coordinates against an OSM Nominatim endpoint.
// Requests are limited to one per second per the service's usage policy.
type Nominatim struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
}

// NominatimConfig configures the Nominatim client.
type NominatimConfig struct {
	BaseURL    string
	HTTPClient *http.Client
	UserAgent  string
}

// NewNominatim creates a Nominatim reverse geocoder.
func NewNominatim(cfg NominatimConfig) (*Nominatim, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "laundry-core/1.0"
	}

	return &Nominatim{
		baseURL:    cfg.BaseURL,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
		userAgent:  userAgent,
	}, nil
}

// ReverseGeocode fetches the display address for a position. A response
// without a display_name yields FallbackAddress, not an error.
func (n *Nominatim) ReverseGeocode(ctx context.Context, pos Position) (string, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return "", err
	}

	params := url.Values{}
	params.Set("lat", fmt.Sprintf("%f", pos.Latitude))
	params.Set("lon", fmt.Sprintf("%f", pos.Longitude))
	params.Set("format", "json")

	reqURL := fmt.Sprintf("%s/reverse?%s", n.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return "", &LocationError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		msg := fmt.Sprintf("reverse geocode failed with status %d", resp.StatusCode)
		return "", &LocationError{Message: msg}
	}

	name := gjson.GetBytes(body, "display_name").String()
	if name == "" {
		return FallbackAddress, nil
	}
	return name, nil
}
