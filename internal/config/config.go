// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath locates the SQLite database file.
	DBPath string `koanf:"db_path"`

	// ProberBaseURL is the score prober API root.
	ProberBaseURL string `koanf:"prober_base_url"`

	// DeveloperToken authenticates against the prober's developer API.
	DeveloperToken string `koanf:"developer_token"`

	// AliasFeedURL is the remote alias feed endpoint.
	AliasFeedURL string `koanf:"alias_feed_url"`

	// CatalogRefreshMinutes sets the background catalog rebuild interval.
	CatalogRefreshMinutes int `koanf:"catalog_refresh_minutes"`

	// AliasMaxAgeHours bounds how stale the cached alias feed may be
	// before a network fetch is forced.
	AliasMaxAgeHours int `koanf:"alias_max_age_hours"`

	// RefreshQuotaPerDay caps per-player score refreshes per calendar day.
	RefreshQuotaPerDay int `koanf:"refresh_quota_per_day"`

	// RefreshWorkers sets the fan-out width for group record refreshes.
	RefreshWorkers int `koanf:"refresh_workers"`

	// SongLeaderboardSize and RatingLeaderboardSize cap the two views.
	SongLeaderboardSize   int `koanf:"song_leaderboard_size"`
	RatingLeaderboardSize int `koanf:"rating_leaderboard_size"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		Addr:                  ":9080",
		DBPath:                "data/maimai-raking.db",
		ProberBaseURL:         "https://www.diving-fish.com/api/maimaidxprober",
		DeveloperToken:        "",
		AliasFeedURL:          "https://www.yuzuchan.moe/api/maimaidx/maimaidxalias",
		CatalogRefreshMinutes: 1440,
		AliasMaxAgeHours:      24,
		RefreshQuotaPerDay:    2,
		RefreshWorkers:        4,
		SongLeaderboardSize:   20,
		RatingLeaderboardSize: 10,
	}
}
