// Package app provides the core business service that implements the
// dependencies required by the HTTP API.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/yukko233/maimai-raking/internal/adapters/aliasfeed"
	"github.com/yukko233/maimai-raking/internal/adapters/catalog"
	"github.com/yukko233/maimai-raking/internal/adapters/prober"
	"github.com/yukko233/maimai-raking/internal/adapters/refresh"
	"github.com/yukko233/maimai-raking/internal/adapters/store"
	"github.com/yukko233/maimai-raking/internal/domain/model"
	"github.com/yukko233/maimai-raking/internal/domain/quota"
	"github.com/yukko233/maimai-raking/internal/domain/ranking"
	"github.com/yukko233/maimai-raking/pkg/logger"
	"github.com/yukko233/maimai-raking/pkg/metrics"
)

// RecordSource abstracts the upstream prober for the service.
type RecordSource interface {
	MusicData(ctx context.Context) ([]model.CatalogEntry, error)
	PlayerRecords(ctx context.Context, playerID string) (model.PlayerProfile, error)
	Cover(ctx context.Context, songID int) ([]byte, error)
}

// SongBoard is a song leaderboard response: the resolved song, the tier
// actually shown, and the ranked rows.
type SongBoard struct {
	Song model.CatalogEntry `json:"song"`
	Tier int                `json:"tier"`
	Rows []model.RankingRow `json:"rows"`
}

// RatingBoard is a rating leaderboard response. Population is the
// pre-truncation count for display.
type RatingBoard struct {
	Segment    int            `json:"segment"` // -1 when unfiltered
	Population int            `json:"population"`
	Rows       []model.Player `json:"rows"`
}

// Service wires the catalog, stores, and domain logic behind the HTTP API.
type Service struct {
	mu sync.RWMutex

	// Core components
	db      *store.Store
	source  RecordSource
	feed    *aliasfeed.Client
	catalog *catalog.Store
	agg     *ranking.Aggregator
	tracker *quota.Tracker
	pool    *refresh.Pool

	// Configuration
	dbPath          string
	proberBaseURL   string
	developerToken  string
	aliasFeedURL    string
	refreshInterval time.Duration
	aliasMaxAge     time.Duration
	quotaPerDay     int
	refreshWorkers  int
	songLimit       int
	ratingLimit     int

	// State
	started bool
	stopCh  chan struct{}

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithDBPath sets the SQLite database path.
func WithDBPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.dbPath = path
		}
	}
}

// WithProber sets the prober API root and developer token.
func WithProber(baseURL, token string) Option {
	return func(s *Service) {
		if baseURL != "" {
			s.proberBaseURL = baseURL
		}
		s.developerToken = token
	}
}

// WithAliasFeed sets the remote alias feed endpoint.
func WithAliasFeed(u string) Option {
	return func(s *Service) {
		if u != "" {
			s.aliasFeedURL = u
		}
	}
}

// WithCatalogRefreshInterval sets the background snapshot rebuild interval.
func WithCatalogRefreshInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.refreshInterval = d
		}
	}
}

// WithAliasMaxAge bounds how stale the cached alias feed may get.
func WithAliasMaxAge(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.aliasMaxAge = d
		}
	}
}

// WithQuotaPerDay sets the per-player daily refresh budget.
func WithQuotaPerDay(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.quotaPerDay = n
		}
	}
}

// WithRefreshWorkers sets the refresh fan-out width.
func WithRefreshWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.refreshWorkers = n
		}
	}
}

// WithLeaderboardLimits caps the two leaderboard views.
func WithLeaderboardLimits(song, rating int) Option {
	return func(s *Service) {
		if song > 0 {
			s.songLimit = song
		}
		if rating > 0 {
			s.ratingLimit = rating
		}
	}
}

// WithRecordSource injects an upstream source, replacing the default
// prober client. Used by tests.
func WithRecordSource(src RecordSource) Option {
	return func(s *Service) {
		if src != nil {
			s.source = src
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dbPath:          "data/maimai-raking.db",
		refreshInterval: 24 * time.Hour,
		aliasMaxAge:     24 * time.Hour,
		quotaPerDay:     2,
		refreshWorkers:  4,
		songLimit:       20,
		ratingLimit:     10,
		stopCh:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes components and loads the first catalog snapshot.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting ranking service...")

	db, err := store.Open(ctx, s.dbPath, store.WithMkdirAll())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	s.db = db

	if s.source == nil {
		s.source = prober.New(
			prober.WithBaseURL(s.proberBaseURL),
			prober.WithToken(s.developerToken),
		)
	}
	s.feed = aliasfeed.New(db,
		aliasfeed.WithFeedURL(s.aliasFeedURL),
		aliasfeed.WithMaxAge(s.aliasMaxAge),
		aliasfeed.WithLogger(s.logger.Named("aliasfeed")),
	)
	s.catalog = catalog.NewStore(s.source, s.feed, db,
		catalog.WithRefreshInterval(s.refreshInterval),
		catalog.WithLogger(s.logger.Named("catalog")),
	)
	s.agg = ranking.New(
		ranking.WithSongLimit(s.songLimit),
		ranking.WithRatingLimit(s.ratingLimit),
	)
	s.tracker = quota.New(db, quota.WithDailyLimit(s.quotaPerDay))
	s.pool = refresh.NewPool(s.source, db,
		refresh.WithWorkerCount(s.refreshWorkers),
		refresh.WithLogger(s.logger.Named("refresh")),
	)

	// First snapshot before serving; a failure here is not fatal, the
	// background loop retries and resolution reports the catalog as
	// unavailable until then.
	if err := s.catalog.Refresh(ctx, false); err != nil {
		s.logger.Warn(ctx, "initial catalog refresh failed", logger.Error(err))
	}

	go s.catalog.Run(ctx)
	go s.nightly(ctx)

	s.started = true
	s.logger.Info(ctx, "ranking service started",
		logger.String("db", s.dbPath),
		logger.Int("quotaPerDay", s.quotaPerDay),
		logger.Int("refreshWorkers", s.refreshWorkers),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping ranking service...")

	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	if s.catalog != nil {
		s.catalog.Stop()
	}
	if s.db != nil {
		_ = s.db.Close()
	}

	s.started = false
	s.logger.Info(ctx, "ranking service stopped")
}

// nightly refreshes every enrolled player's records and forces an alias
// feed update once a day, shortly after local midnight.
func (s *Service) nightly(ctx context.Context) {
	for {
		next := nextMidnight(time.Now()).Add(5 * time.Minute)
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.stopCh:
			timer.Stop()
			return
		case <-timer.C:
		}

		players, err := s.db.AllPlayers(ctx)
		if err != nil {
			s.logger.Error(ctx, "nightly: list players failed", logger.Error(err))
			continue
		}
		result := s.pool.RefreshAll(ctx, players)
		s.logger.Info(ctx, "nightly record refresh finished",
			logger.Int("succeeded", result.Succeeded),
			logger.Int("failed", result.Failed),
		)

		if err := s.catalog.Refresh(ctx, true); err != nil {
			s.logger.Error(ctx, "nightly: catalog refresh failed", logger.Error(err))
		}
	}
}

func nextMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
}

// EnableGroup turns the leaderboard on for a group.
func (s *Service) EnableGroup(ctx context.Context, groupID string) error {
	if err := s.requireStarted(); err != nil {
		return err
	}
	return s.db.EnableGroup(ctx, groupID)
}

// DisableGroup turns the leaderboard off for a group.
func (s *Service) DisableGroup(ctx context.Context, groupID string) error {
	if err := s.requireStarted(); err != nil {
		return err
	}
	return s.db.DisableGroup(ctx, groupID)
}

// JoinGroup enrolls a player, validating them against the prober first.
// The fetched profile is persisted so the player shows up on rating
// leaderboards immediately.
func (s *Service) JoinGroup(ctx context.Context, groupID, playerID string) (model.PlayerProfile, error) {
	if err := s.requireEnabled(ctx, groupID); err != nil {
		return model.PlayerProfile{}, err
	}
	member, err := s.db.IsMember(ctx, groupID, playerID)
	if err != nil {
		return model.PlayerProfile{}, err
	}
	if member {
		return model.PlayerProfile{}, ErrAlreadyMember
	}

	profile, err := s.source.PlayerRecords(ctx, playerID)
	if err != nil {
		return model.PlayerProfile{}, err
	}
	if err := s.db.SavePlayerProfile(ctx, profile); err != nil {
		return model.PlayerProfile{}, err
	}
	if err := s.db.AddMember(ctx, groupID, playerID); err != nil {
		return model.PlayerProfile{}, err
	}
	return profile, nil
}

// LeaveGroup removes a player from a group's leaderboard.
func (s *Service) LeaveGroup(ctx context.Context, groupID, playerID string) error {
	if err := s.requireEnabled(ctx, groupID); err != nil {
		return err
	}
	member, err := s.db.IsMember(ctx, groupID, playerID)
	if err != nil {
		return err
	}
	if !member {
		return ErrNotMember
	}
	return s.db.RemoveMember(ctx, groupID, playerID)
}

// RefreshGroup re-fetches records for every member of a group, guarded
// by the triggering player's daily quota. The quota check and the use
// recording form one logical unit; a same-player race past the check
// overspends by at most one and is accepted.
func (s *Service) RefreshGroup(ctx context.Context, groupID, requestedBy string) (refresh.Result, error) {
	if err := s.requireEnabled(ctx, groupID); err != nil {
		return refresh.Result{}, err
	}
	members, err := s.db.GroupMembers(ctx, groupID)
	if err != nil {
		return refresh.Result{}, err
	}
	if len(members) == 0 {
		return refresh.Result{}, ranking.ErrEmptyPopulation
	}

	date := quota.DateKey(time.Now())
	allowed, err := s.tracker.Allow(ctx, requestedBy, date)
	if err != nil {
		return refresh.Result{}, err
	}
	if !allowed {
		metrics.RecordQuotaDenial()
		return refresh.Result{}, quota.ErrQuotaExceeded
	}
	if err := s.tracker.RecordUse(ctx, requestedBy, date); err != nil {
		return refresh.Result{}, err
	}

	return s.pool.RefreshAll(ctx, members), nil
}

// ResetQuota clears the triggering player's refresh counter for today.
// Operator override; idempotent.
func (s *Service) ResetQuota(ctx context.Context, playerID string) error {
	if err := s.requireStarted(); err != nil {
		return err
	}
	if err := s.tracker.Reset(ctx, playerID, quota.DateKey(time.Now())); err != nil {
		return err
	}
	metrics.RecordQuotaReset()
	return nil
}

// QuotaRemaining reports the player's remaining refresh budget today.
func (s *Service) QuotaRemaining(ctx context.Context, playerID string) (int, error) {
	if err := s.requireStarted(); err != nil {
		return 0, err
	}
	return s.tracker.Remaining(ctx, playerID, quota.DateKey(time.Now()))
}

// ResolveSong resolves a free-text query against the current snapshot.
func (s *Service) ResolveSong(ctx context.Context, query string) (model.CatalogEntry, error) {
	if err := s.requireStarted(); err != nil {
		return model.CatalogEntry{}, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return model.CatalogEntry{}, ErrEmptyQuery
	}
	snap := s.catalog.Current()
	if snap == nil {
		return model.CatalogEntry{}, ErrCatalogUnavailable
	}

	start := time.Now()
	entry, found := snap.Resolve(query)
	metrics.RecordResolverLatency(float64(time.Since(start).Microseconds()) / 1000)
	if !found {
		metrics.RecordResolverQuery("not_found")
		return model.CatalogEntry{}, ErrSongNotFound
	}
	metrics.RecordResolverQuery("resolved")
	return entry, nil
}

// SplitQuery separates a trailing difficulty token from a song query.
// "群青 紫" becomes ("群青", tier 3); a query without a recognized
// trailing token passes through with AnyTier. A single-word query is
// never treated as a bare difficulty token.
func SplitQuery(query string) (song string, tier int) {
	parts := strings.Fields(query)
	if len(parts) > 1 {
		if t, ok := model.ParseDifficulty(parts[len(parts)-1]); ok {
			return strings.Join(parts[:len(parts)-1], " "), t
		}
	}
	return strings.TrimSpace(query), ranking.AnyTier
}

// SongLeaderboard resolves the query and ranks the group's members on
// that song. difficulty is an explicit token, or empty to accept a
// trailing token in the query itself, or fall back to the highest tier
// present.
func (s *Service) SongLeaderboard(ctx context.Context, groupID, query, difficulty string) (SongBoard, error) {
	if err := s.requireEnabled(ctx, groupID); err != nil {
		return SongBoard{}, err
	}

	tier := ranking.AnyTier
	if difficulty != "" {
		t, ok := model.ParseDifficulty(difficulty)
		if !ok {
			return SongBoard{}, ErrUnknownDifficulty
		}
		tier = t
	} else {
		query, tier = SplitQuery(query)
	}

	song, err := s.ResolveSong(ctx, query)
	if err != nil {
		return SongBoard{}, err
	}

	members, err := s.db.GroupMembers(ctx, groupID)
	if err != nil {
		return SongBoard{}, err
	}

	rows := make([]model.RankingRow, 0, len(members))
	for _, playerID := range members {
		profile, err := s.db.PlayerProfile(ctx, playerID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return SongBoard{}, err
		}
		for _, rec := range profile.Records {
			if rec.SongID != song.ID {
				continue
			}
			rows = append(rows, model.RankingRow{
				PlayerID:    playerID,
				Nickname:    profile.Nickname,
				ScoreRecord: rec,
			})
		}
	}

	metrics.RecordLeaderboardQuery("song")
	ranked, err := s.agg.SongLeaderboard(song.ID, tier, rows)
	if err != nil {
		if errors.Is(err, ranking.ErrEmptyPopulation) {
			metrics.RecordEmptyPopulation()
		}
		return SongBoard{}, err
	}
	return SongBoard{
		Song: song,
		Tier: ranked[0].LevelIndex,
		Rows: ranked,
	}, nil
}

// RatingLeaderboard ranks a group's members by cached rating, optionally
// restricted to one 1000-point segment (0-7, or ranking.NoSegment).
func (s *Service) RatingLeaderboard(ctx context.Context, groupID string, segment int) (RatingBoard, error) {
	if err := s.requireEnabled(ctx, groupID); err != nil {
		return RatingBoard{}, err
	}
	members, err := s.db.GroupMembers(ctx, groupID)
	if err != nil {
		return RatingBoard{}, err
	}
	players, err := s.db.Players(ctx, members)
	if err != nil {
		return RatingBoard{}, err
	}

	metrics.RecordLeaderboardQuery("rating")
	rows, population, err := s.agg.RatingLeaderboard(players, segment)
	if err != nil {
		if errors.Is(err, ranking.ErrEmptyPopulation) {
			metrics.RecordEmptyPopulation()
		}
		return RatingBoard{}, err
	}
	return RatingBoard{
		Segment:    segment,
		Population: population,
		Rows:       rows,
	}, nil
}

// AddCustomAlias binds an operator-curated alias to a song and rebuilds
// the snapshot so the alias takes effect immediately.
func (s *Service) AddCustomAlias(ctx context.Context, songID int, alias string) error {
	if err := s.requireStarted(); err != nil {
		return err
	}
	snap := s.catalog.Current()
	if snap == nil {
		return ErrCatalogUnavailable
	}
	if _, ok := snap.Lookup(songID); !ok {
		return ErrSongNotFound
	}
	if err := s.db.AddCustomAlias(ctx, songID, alias); err != nil {
		return err
	}
	return s.catalog.Refresh(ctx, false)
}

// RemoveCustomAlias deletes an operator-curated alias and rebuilds the
// snapshot.
func (s *Service) RemoveCustomAlias(ctx context.Context, alias string) error {
	if err := s.requireStarted(); err != nil {
		return err
	}
	if err := s.db.RemoveCustomAlias(ctx, alias); err != nil {
		return err
	}
	return s.catalog.Refresh(ctx, false)
}

// Cover returns song artwork, served from the local cache when possible.
func (s *Service) Cover(ctx context.Context, songID int) ([]byte, error) {
	if err := s.requireStarted(); err != nil {
		return nil, err
	}
	data, err := s.db.Cover(ctx, songID)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	data, err = s.source.Cover(ctx, songID)
	if err != nil {
		return nil, err
	}
	if err := s.db.SaveCover(ctx, songID, data); err != nil {
		s.logger.Warn(ctx, "cover cache write failed", logger.Error(err))
	}
	return data, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"quotaPerDay": s.quotaPerDay,
		"songLimit":   s.songLimit,
		"ratingLimit": s.ratingLimit,
		"workers":     s.refreshWorkers,
	}
	if s.started {
		if snap := s.catalog.Current(); snap != nil {
			stats["catalogSongs"] = snap.Songs()
			stats["catalogAliases"] = snap.Aliases()
			stats["snapshotAgeSeconds"] = int(snap.Age().Seconds())
			metrics.UpdateSnapshotAge(snap.Age())
		}
	}
	return stats
}

func (s *Service) requireStarted() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

func (s *Service) requireEnabled(ctx context.Context, groupID string) error {
	if err := s.requireStarted(); err != nil {
		return err
	}
	enabled, err := s.db.GroupEnabled(ctx, groupID)
	if err != nil {
		return err
	}
	if !enabled {
		return ErrGroupDisabled
	}
	return nil
}
