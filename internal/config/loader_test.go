package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"github.com/yukko233/maimai-raking/internal/config"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.RefreshQuotaPerDay, convey.ShouldEqual, 2)
				convey.So(cfg.SongLeaderboardSize, convey.ShouldEqual, 20)
				convey.So(cfg.RatingLeaderboardSize, convey.ShouldEqual, 10)
				convey.So(cfg.AliasMaxAgeHours, convey.ShouldEqual, 24)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("MAIRAKING_ADDR", ":8080")
			_ = os.Setenv("MAIRAKING_DB_PATH", "/tmp/rk.db")
			_ = os.Setenv("MAIRAKING_REFRESH_QUOTA_PER_DAY", "3")
			_ = os.Setenv("MAIRAKING_ALIAS_MAX_AGE_HOURS", "12")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.DBPath, convey.ShouldEqual, "/tmp/rk.db")
				convey.So(cfg.RefreshQuotaPerDay, convey.ShouldEqual, 3)
				convey.So(cfg.AliasMaxAgeHours, convey.ShouldEqual, 12)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			clearConfigEnvVars()
			dir := t.TempDir()
			path := filepath.Join(dir, "config.yaml")
			yaml := "addr: \":7070\"\nsong_leaderboard_size: 15\n"
			convey.So(os.WriteFile(path, []byte(yaml), 0o600), convey.ShouldBeNil)
			_ = os.Setenv("MAIRAKING_CONFIG", path)
			defer func() { _ = os.Unsetenv("MAIRAKING_CONFIG") }()

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values should override defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.SongLeaderboardSize, convey.ShouldEqual, 15)
			})
		})

		convey.Convey("When a validation rule is violated", func() {
			_ = os.Setenv("MAIRAKING_ADDR", "")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then loading should fail with ErrInvalidConfig", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the config file cannot be read", func() {
			clearConfigEnvVars()
			_ = os.Setenv("MAIRAKING_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
			defer func() { _ = os.Unsetenv("MAIRAKING_CONFIG") }()

			_, err := config.Load(ctx)

			convey.Convey("Then loading should fail with ErrLoadConfig", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func clearConfigEnvVars() {
	for _, key := range []string{
		"MAIRAKING_CONFIG",
		"MAIRAKING_ADDR",
		"MAIRAKING_DB_PATH",
		"MAIRAKING_REFRESH_QUOTA_PER_DAY",
		"MAIRAKING_ALIAS_MAX_AGE_HOURS",
	} {
		_ = os.Unsetenv(key)
	}
}
