// Package refdata fetches country, region and dial-code reference data.
//
// Regions and dial codes come from separate endpoints and are cached
// separately for the session; they are never merged into one structure.
package refdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Country is one selectable country.
type Country struct {
	ID   string `json:"id"` // ISO 3166-1 alpha-2
	Name string `json:"name"`
}

// Client fetches reference data over HTTP and caches results for the
// session. No authentication is required by the upstream service.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu        sync.Mutex
	countries []Country
	regions   map[string][]string
	dialCodes map[string]string
}

// ClientConfig configures the reference-data client.
type ClientConfig struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a reference-data client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: httpClient,
		regions:    make(map[string][]string),
	}, nil
}

// Countries returns the country list, fetching it once per session.
func (c *Client) Countries(ctx context.Context) ([]Country, error) {
	c.mu.Lock()
	cached := c.countries
	c.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	var countries []Country
	if err := c.getJSON(ctx, "/countries", &countries); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.countries = countries
	c.mu.Unlock()
	return countries, nil
}

// Regions returns the ordered region list for a country, fetched once per
// country per session. A fetch failure leaves the cache untouched.
func (c *Client) Regions(ctx context.Context, countryID string) ([]string, error) {
	if countryID == "" {
		return nil, fmt.Errorf("country id is required")
	}

	c.mu.Lock()
	cached, ok := c.regions[countryID]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	var regions []string
	if err := c.getJSON(ctx, "/countries/"+countryID+"/regions", &regions); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.regions[countryID] = regions
	c.mu.Unlock()
	return regions, nil
}

// DialCodes returns the country-to-dial-code map, fetched once per session.
func (c *Client) DialCodes(ctx context.Context) (map[string]string, error) {
	c.mu.Lock()
	cached := c.dialCodes
	c.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	var codes map[string]string
	if err := c.getJSON(ctx, "/dialcodes", &codes); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.dialCodes = codes
	c.mu.Unlock()
	return codes, nil
}

func (c *Client) getJSON(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("reference data request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("reference data request failed with status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
