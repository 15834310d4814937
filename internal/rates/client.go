// Package rates fetches currency exchange rates from an external provider
// and caches them for a 12-hour window. The rate mapping is opaque input:
// the ledger only relays it for foreign-currency entry.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultBaseURL is the public endpoint used when none is configured.
const DefaultBaseURL = "https://api.exchangerate.host"

// cacheTTL is the freshness window inside which no refetch happens.
const cacheTTL = 12 * time.Hour

// Provider supplies a mapping from currency code to a rate relative to the
// base currency.
type Provider interface {
	Rates(ctx context.Context) (map[string]float64, error)
}

// Client is an HTTP Provider with a time-bounded cache. Safe for concurrent
// use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	base       string
	now        func() time.Time
	log        zerolog.Logger

	mu        sync.Mutex
	cached    map[string]float64
	fetchedAt time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithClock overrides the client's time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(cl *Client) { cl.now = now }
}

// WithLogger sets the client's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(cl *Client) { cl.log = log }
}

// New creates a client fetching rates relative to the base currency.
func New(baseURL, base string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    baseURL,
		base:       base,
		now:        time.Now,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Base returns the base currency code.
func (c *Client) Base() string { return c.base }

// LastUpdated returns when the cache was last refreshed, zero if never.
func (c *Client) LastUpdated() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetchedAt
}

// Rates returns the cached mapping when it is fresher than 12 hours and
// fetches otherwise. When a fetch fails but a stale cache exists, the stale
// mapping is returned as a best effort and the error is only logged.
func (c *Client) Rates(ctx context.Context) (map[string]float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil && c.now().Sub(c.fetchedAt) < cacheTTL {
		return copyRates(c.cached), nil
	}

	fetched, err := c.fetch(ctx)
	if err != nil {
		if c.cached != nil {
			c.log.Warn().Err(err).Msg("rate refresh failed, serving stale cache")
			return copyRates(c.cached), nil
		}
		return nil, err
	}

	c.cached = fetched
	c.fetchedAt = c.now()
	return copyRates(c.cached), nil
}

func (c *Client) fetch(ctx context.Context) (map[string]float64, error) {
	endpoint := fmt.Sprintf("%s/latest?base=%s", c.baseURL, url.QueryEscape(c.base))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build rates request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rates provider returned %s", resp.Status)
	}

	var payload struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode rates response: %w", err)
	}
	if len(payload.Rates) == 0 {
		return nil, fmt.Errorf("rates provider returned empty mapping")
	}
	return payload.Rates, nil
}

func copyRates(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
