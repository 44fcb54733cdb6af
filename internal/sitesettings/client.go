// Package sitesettings is the read side of the public site settings API:
// a cached key/value lookup that always has an answer, falling back to the
// built-in defaults when the backend has nothing or cannot be reached.
package sitesettings

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"agency-portal/models"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	settingsPath     = "/api/settings"
	DefaultStaleTime = 5 * time.Minute
	fetchTimeout     = 10 * time.Second
)

type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Clock      clockwork.Clock
	StaleTime  time.Duration
	Logger     *zap.Logger
}

// Client caches the settings map for StaleTime. Lookups after that refetch
// once; if the refetch fails the previous values are kept.
type Client struct {
	endpoint  string
	http      *http.Client
	clock     clockwork.Clock
	staleTime time.Duration
	logger    *zap.Logger
	group     singleflight.Group

	mu        sync.RWMutex
	values    map[string]string
	fetchedAt time.Time
}

func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") {
		return nil, fmt.Errorf("invalid base URL %q", opts.BaseURL)
	}

	c := &Client{
		endpoint:  base.String() + settingsPath,
		http:      opts.HTTPClient,
		clock:     opts.Clock,
		staleTime: opts.StaleTime,
		logger:    opts.Logger,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: fetchTimeout}
	}
	if c.clock == nil {
		c.clock = clockwork.NewRealClock()
	}
	if c.staleTime <= 0 {
		c.staleTime = DefaultStaleTime
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	c.logger = c.logger.Named("sitesettings")
	return c, nil
}

// All returns every setting, stored values layered over the defaults. The
// returned map is a copy.
func (c *Client) All(ctx context.Context) map[string]string {
	out := models.DefaultSiteSettings()
	maps.Copy(out, c.load(ctx))
	return out
}

// Get returns the value for key, its default, or "" for an unknown key.
func (c *Client) Get(ctx context.Context, key string) string {
	if v, ok := c.load(ctx)[key]; ok {
		return v
	}
	return models.DefaultSiteSettings()[key]
}

// Invalidate forces the next lookup to refetch.
func (c *Client) Invalidate() {
	c.mu.Lock()
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
}

func (c *Client) load(ctx context.Context) map[string]string {
	c.mu.RLock()
	values, fetchedAt := c.values, c.fetchedAt
	c.mu.RUnlock()

	if !fetchedAt.IsZero() && c.clock.Since(fetchedAt) < c.staleTime {
		return values
	}

	ch := c.group.DoChan("settings", func() (any, error) {
		fetched, err := c.fetch()
		if err != nil {
			c.logger.Warn("fetching site settings failed, using cached values", zap.Error(err))
			return nil, err
		}
		c.mu.Lock()
		c.values = fetched
		c.fetchedAt = c.clock.Now()
		c.mu.Unlock()
		return fetched, nil
	})

	select {
	case res := <-ch:
		if res.Err == nil {
			return res.Val.(map[string]string)
		}
	case <-ctx.Done():
	}
	return values
}

func (c *Client) fetch() (map[string]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Settings map[string]string `json:"settings"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}
	if body.Settings == nil {
		body.Settings = map[string]string{}
	}
	return body.Settings, nil
}
