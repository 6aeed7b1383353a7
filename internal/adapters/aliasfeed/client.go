// Package aliasfeed fetches the official song alias feed and caches the
// raw payload locally. The staleness bound is an explicit parameter: a
// cached payload older than MaxAge forces a network fetch instead of
// being served indefinitely.
package aliasfeed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
	"github.com/yukko233/maimai-raking/internal/domain/model"
	"github.com/yukko233/maimai-raking/pkg/logger"
)

// Default client configuration constants.
const (
	defaultFeedURL = "https://www.yuzuchan.moe/api/maimaidx/maimaidxalias"
	defaultTimeout = 30 * time.Second
	defaultMaxAge  = 24 * time.Hour
)

// Cache persists the raw feed payload between runs.
type Cache interface {
	// LoadAliasFeed returns the cached payload and when it was fetched.
	// A miss returns a nil payload and no error.
	LoadAliasFeed(ctx context.Context) (payload []byte, fetchedAt time.Time, err error)

	// SaveAliasFeed replaces the cached payload.
	SaveAliasFeed(ctx context.Context, payload []byte, fetchedAt time.Time) error
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithFeedURL overrides the remote feed endpoint.
func WithFeedURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.feedURL = u
		}
	}
}

// WithMaxAge sets the staleness bound for the cached payload.
func WithMaxAge(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.maxAge = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.hc = hc
		}
	}
}

// WithLogger sets a custom logger for the client.
func WithLogger(log logger.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// Client loads alias groups, preferring the local cache while it is
// within the staleness bound.
type Client struct {
	feedURL string
	maxAge  time.Duration
	hc      *http.Client
	cache   Cache
	log     logger.Logger
}

// New creates an alias feed client over the given cache.
func New(cache Cache, opts ...Option) *Client {
	c := &Client{
		feedURL: defaultFeedURL,
		maxAge:  defaultMaxAge,
		hc:      &http.Client{Timeout: defaultTimeout},
		cache:   cache,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get().Named("aliasfeed")
	}
	return c
}

// AliasGroups returns the official alias groups. The cached payload is
// served unless it is missing, older than the staleness bound, or force
// is set; in those cases a network fetch runs and refills the cache. A
// failed fetch falls back to a stale cache rather than returning
// nothing.
func (c *Client) AliasGroups(ctx context.Context, force bool) ([]model.AliasGroup, error) {
	payload, fetchedAt, err := c.cache.LoadAliasFeed(ctx)
	if err != nil {
		c.log.Warn(ctx, "alias cache read failed", logger.Error(err))
	}

	fresh := payload != nil && time.Since(fetchedAt) <= c.maxAge
	if fresh && !force {
		return parseGroups(payload), nil
	}

	fetched, fetchErr := c.fetch(ctx)
	if fetchErr != nil {
		if payload != nil {
			c.log.Warn(ctx, "alias feed fetch failed, serving cached payload", logger.Error(fetchErr))
			return parseGroups(payload), nil
		}
		return nil, fetchErr
	}

	if err := c.cache.SaveAliasFeed(ctx, fetched, time.Now()); err != nil {
		c.log.Warn(ctx, "alias cache write failed", logger.Error(err))
	}
	return parseGroups(fetched), nil
}

func (c *Client) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch alias feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alias feed returned HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read alias feed: %w", err)
	}
	return body, nil
}

// parseGroups tolerates the feed's three observed shapes: a bare array,
// an object with a "content" array, or an object whose values are the
// groups.
func parseGroups(payload []byte) []model.AliasGroup {
	doc := gjson.ParseBytes(payload)
	items := doc
	switch {
	case doc.IsArray():
	case doc.Get("content").IsArray():
		items = doc.Get("content")
	}

	var groups []model.AliasGroup
	items.ForEach(func(_, item gjson.Result) bool {
		g := model.AliasGroup{
			SongID: int(item.Get("SongID").Int()),
		}
		for _, a := range item.Get("Alias").Array() {
			g.Aliases = append(g.Aliases, a.String())
		}
		if g.SongID != 0 && len(g.Aliases) > 0 {
			groups = append(groups, g)
		}
		return true
	})
	return groups
}
