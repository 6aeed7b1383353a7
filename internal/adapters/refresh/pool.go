// Package refresh fans out player record refreshes across a bounded
// worker pool. Each job calls the upstream prober once and persists the
// result; a run's outcome is just the success and failure counts.
package refresh

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/yukko233/maimai-raking/internal/domain/model"
	"github.com/yukko233/maimai-raking/pkg/logger"
	"github.com/yukko233/maimai-raking/pkg/metrics"
)

// defaultWorkerCount keeps the fan-out polite toward the upstream API.
const defaultWorkerCount = 4

// Fetcher loads one player's profile from the upstream prober.
type Fetcher interface {
	PlayerRecords(ctx context.Context, playerID string) (model.PlayerProfile, error)
}

// Saver persists a fetched profile.
type Saver interface {
	SavePlayerProfile(ctx context.Context, profile model.PlayerProfile) error
}

// Result summarizes one refresh run.
type Result struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Option applies a configuration option to the Pool.
type Option func(*Pool)

// WithWorkerCount sets the number of concurrent fetch workers.
func WithWorkerCount(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithLogger sets a custom logger for the pool.
func WithLogger(log logger.Logger) Option {
	return func(p *Pool) {
		if log != nil {
			p.log = log
		}
	}
}

// Pool refreshes batches of players.
type Pool struct {
	fetcher Fetcher
	saver   Saver
	workers int
	log     logger.Logger
}

// NewPool creates a refresh pool with configuration options.
func NewPool(fetcher Fetcher, saver Saver, opts ...Option) *Pool {
	p := &Pool{
		fetcher: fetcher,
		saver:   saver,
		workers: defaultWorkerCount,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logger.Get().Named("refresh")
	}
	return p
}

// RefreshAll fetches and persists records for every listed player.
// Duplicate IDs are refreshed once; the nightly job feeds this the
// union of all groups' members, where overlap is common. Individual
// failures are logged and counted, never fatal to the run.
func (p *Pool) RefreshAll(ctx context.Context, playerIDs []string) Result {
	seen := make(map[string]struct{}, len(playerIDs))
	jobs := make(chan string)

	var succeeded, failed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for playerID := range jobs {
				if err := p.refreshOne(ctx, playerID); err != nil {
					failed.Add(1)
					p.log.Warn(ctx, "player refresh failed",
						logger.String("playerID", playerID),
						logger.Error(err),
					)
					continue
				}
				succeeded.Add(1)
			}
		}()
	}

	for _, id := range playerIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		select {
		case jobs <- id:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(jobs)
	wg.Wait()

	result := Result{
		Succeeded: int(succeeded.Load()),
		Failed:    int(failed.Load()),
	}
	metrics.RecordRefreshResult(result.Succeeded, result.Failed)
	return result
}

func (p *Pool) refreshOne(ctx context.Context, playerID string) error {
	profile, err := p.fetcher.PlayerRecords(ctx, playerID)
	if err != nil {
		return err
	}
	return p.saver.SavePlayerProfile(ctx, profile)
}
