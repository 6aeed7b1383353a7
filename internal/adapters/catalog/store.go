package catalog

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/yukko233/maimai-raking/internal/domain/model"
	"github.com/yukko233/maimai-raking/pkg/logger"
	"github.com/yukko233/maimai-raking/pkg/metrics"
)

// MusicSource supplies catalog entries, typically the prober's
// music_data endpoint.
type MusicSource interface {
	MusicData(ctx context.Context) ([]model.CatalogEntry, error)
}

// AliasSource supplies the official alias feed. force bypasses any cache
// the source keeps.
type AliasSource interface {
	AliasGroups(ctx context.Context, force bool) ([]model.AliasGroup, error)
}

// CustomAliasSource supplies the operator-curated alias pool. Re-read on
// every snapshot rebuild, never per query.
type CustomAliasSource interface {
	CustomAliases(ctx context.Context) ([]model.AliasGroup, error)
}

// Store publishes catalog snapshots and rebuilds them on an interval.
type Store struct {
	music   MusicSource
	aliases AliasSource
	custom  CustomAliasSource

	snap     atomic.Pointer[Snapshot]
	interval time.Duration
	running  atomic.Bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	log      logger.Logger
}

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithRefreshInterval sets the background rebuild interval.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithLogger sets a custom logger for the store.
func WithLogger(log logger.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// NewStore creates a catalog store over the given sources. The store
// starts empty; call Refresh once before serving queries.
func NewStore(music MusicSource, aliases AliasSource, custom CustomAliasSource, opts ...Option) *Store {
	s := &Store{
		music:    music,
		aliases:  aliases,
		custom:   custom,
		interval: 24 * time.Hour,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get().Named("catalog")
	}
	return s
}

// Current returns the published snapshot, or nil before the first
// successful refresh. Callers capture the reference once per command.
func (s *Store) Current() *Snapshot {
	return s.snap.Load()
}

// Refresh builds a new snapshot from all three sources and publishes it.
// force bypasses the alias feed cache.
func (s *Store) Refresh(ctx context.Context, force bool) error {
	start := time.Now()

	entries, err := s.music.MusicData(ctx)
	if err != nil {
		return fmt.Errorf("load music data: %w", err)
	}

	official, err := s.aliases.AliasGroups(ctx, force)
	if err != nil {
		return fmt.Errorf("load alias feed: %w", err)
	}

	custom, err := s.custom.CustomAliases(ctx)
	if err != nil {
		return fmt.Errorf("load custom aliases: %w", err)
	}

	snap := NewSnapshot(entries, official, custom)
	s.snap.Store(snap)

	elapsed := time.Since(start)
	metrics.RecordCatalogRefresh(float64(elapsed.Milliseconds()))
	metrics.UpdateCatalogSize(snap.Songs(), snap.Aliases())
	s.log.Info(ctx, "catalog snapshot published",
		logger.Int("songs", snap.Songs()),
		logger.Int("aliases", snap.Aliases()),
		logger.Any("elapsed", elapsed),
	)
	return nil
}

// Run rebuilds the snapshot on the configured interval until ctx is
// canceled or Stop is called. Failures keep the previous snapshot.
func (s *Store) Run(ctx context.Context) {
	s.running.Store(true)
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			if err := s.Refresh(ctx, true); err != nil {
				s.log.Error(ctx, "catalog refresh failed", logger.Error(err))
			}
			if snap := s.Current(); snap != nil {
				metrics.UpdateSnapshotAge(snap.Age())
			}
		}
	}
}

// Stop signals the refresh loop to exit and waits for it. Safe to call
// when Run was never started.
func (s *Store) Stop() {
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	if s.running.Load() {
		<-s.doneCh
	}
}
