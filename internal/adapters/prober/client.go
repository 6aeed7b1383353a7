// Package prober is the HTTP client for the diving-fish score prober.
// Responses are loosely-typed documents; all mapping to typed models,
// including defaulting of missing fields, happens here and nowhere else.
package prober

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
	"github.com/yukko233/maimai-raking/internal/domain/model"
	"github.com/yukko233/maimai-raking/pkg/metrics"
)

// Default client configuration constants.
const (
	defaultBaseURL = "https://www.diving-fish.com/api/maimaidxprober"
	defaultTimeout = 30 * time.Second

	// Cover IDs in (10000, 11000] are DX re-releases whose artwork lives
	// under the original five-digit ID.
	coverRemapLow  = 10000
	coverRemapHigh = 11000
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithBaseURL overrides the prober API root.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.baseURL = base
		}
	}
}

// WithToken sets the developer token sent on record lookups.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
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

// Client calls the prober API.
type Client struct {
	baseURL string
	token   string
	hc      *http.Client
}

// New creates a prober client with configuration options.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		hc:      &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MusicData loads the full song catalog.
func (c *Client) MusicData(ctx context.Context) ([]model.CatalogEntry, error) {
	body, err := c.get(ctx, "music_data", c.baseURL+"/music_data", nil)
	if err != nil {
		return nil, err
	}

	var entries []model.CatalogEntry
	gjson.ParseBytes(body).ForEach(func(_, song gjson.Result) bool {
		e := model.CatalogEntry{
			// The feed serves id as a string; Int() tolerates both.
			ID:    int(song.Get("id").Int()),
			Title: song.Get("title").String(),
			Type:  song.Get("type").String(),
		}
		for i, ds := range song.Get("ds").Array() {
			if i >= model.TierCount {
				break
			}
			e.DS[i] = ds.Float()
		}
		for i, lv := range song.Get("level").Array() {
			if i >= model.TierCount {
				break
			}
			e.Level[i] = lv.String()
		}
		entries = append(entries, e)
		return true
	})
	return entries, nil
}

// PlayerRecords loads one player's full profile: nickname, cached
// rating, and every score record. A 400 from the prober surfaces as
// ErrPlayerNotFound wrapping the upstream message.
func (c *Client) PlayerRecords(ctx context.Context, playerID string) (model.PlayerProfile, error) {
	q := url.Values{"qq": {playerID}}
	body, err := c.get(ctx, "player_records", c.baseURL+"/dev/player/records?"+q.Encode(), map[string]string{
		"Developer-Token": c.token,
	})
	if err != nil {
		return model.PlayerProfile{}, err
	}

	doc := gjson.ParseBytes(body)
	profile := model.PlayerProfile{
		PlayerID:  playerID,
		Nickname:  doc.Get("nickname").String(),
		Rating:    int(doc.Get("rating").Int()),
		FetchedAt: time.Now(),
	}
	doc.Get("records").ForEach(func(_, rec gjson.Result) bool {
		profile.Records = append(profile.Records, model.ScoreRecord{
			SongID:       int(rec.Get("song_id").Int()),
			Title:        rec.Get("title").String(),
			Achievements: rec.Get("achievements").Float(),
			FC:           rec.Get("fc").String(),
			FS:           rec.Get("fs").String(),
			Rate:         rec.Get("rate").String(),
			LevelIndex:   int(rec.Get("level_index").Int()),
			LevelLabel:   rec.Get("level_label").String(),
			DS:           rec.Get("ds").Float(),
		})
		return true
	})
	return profile, nil
}

// CoverURL returns the artwork URL for a song, applying the re-release
// ID remap.
func (c *Client) CoverURL(songID int) string {
	id := songID
	if id > coverRemapLow && id <= coverRemapHigh {
		id -= coverRemapLow
	}
	return fmt.Sprintf("https://www.diving-fish.com/covers/%05d.png", id)
}

// Cover fetches a song's artwork bytes.
func (c *Client) Cover(ctx context.Context, songID int) ([]byte, error) {
	return c.get(ctx, "cover", c.CoverURL(songID), nil)
}

func (c *Client) get(ctx context.Context, endpoint, rawURL string, headers map[string]string) ([]byte, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		metrics.RecordProberRequest(endpoint, "error")
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	metrics.RecordProberLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordProberRequest(endpoint, "error")
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		metrics.RecordProberRequest(endpoint, "ok")
		return body, nil
	case http.StatusBadRequest:
		metrics.RecordProberRequest(endpoint, "not_found")
		msg := gjson.GetBytes(body, "message").String()
		if msg == "" {
			msg = "bad request"
		}
		return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, msg)
	default:
		metrics.RecordProberRequest(endpoint, "error")
		return nil, fmt.Errorf("%w: HTTP %d", ErrUpstream, resp.StatusCode)
	}
}
