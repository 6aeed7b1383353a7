package app_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/yukko233/maimai-raking/internal/adapters/prober"
	"github.com/yukko233/maimai-raking/internal/app"
	"github.com/yukko233/maimai-raking/internal/domain/model"
	"github.com/yukko233/maimai-raking/internal/domain/quota"
	"github.com/yukko233/maimai-raking/internal/domain/ranking"
)

// fakeSource stands in for the prober client.
type fakeSource struct {
	entries  []model.CatalogEntry
	profiles map[string]model.PlayerProfile
	covers   map[int][]byte
}

func (f *fakeSource) MusicData(context.Context) ([]model.CatalogEntry, error) {
	return f.entries, nil
}

func (f *fakeSource) PlayerRecords(_ context.Context, playerID string) (model.PlayerProfile, error) {
	p, ok := f.profiles[playerID]
	if !ok {
		return model.PlayerProfile{}, fmt.Errorf("%w: user not exists", prober.ErrPlayerNotFound)
	}
	return p, nil
}

func (f *fakeSource) Cover(_ context.Context, songID int) ([]byte, error) {
	data, ok := f.covers[songID]
	if !ok {
		return nil, fmt.Errorf("%w: HTTP 404", prober.ErrUpstream)
	}
	return data, nil
}

func testSource() *fakeSource {
	record := func(songID, tier int, ach float64) model.ScoreRecord {
		return model.ScoreRecord{SongID: songID, LevelIndex: tier, Achievements: ach}
	}
	return &fakeSource{
		entries: []model.CatalogEntry{
			{ID: 11663, Title: "PANDORA PARADOXXX"},
			{ID: 365, Title: "Oshama Scramble!"},
		},
		profiles: map[string]model.PlayerProfile{
			"p1": {PlayerID: "p1", Nickname: "one", Rating: 15200, Records: []model.ScoreRecord{
				record(11663, 4, 99.5), record(365, 3, 100.8),
			}},
			"p2": {PlayerID: "p2", Nickname: "two", Rating: 16100, Records: []model.ScoreRecord{
				record(11663, 4, 100.2), record(11663, 3, 101.0),
			}},
			"p3": {PlayerID: "p3", Nickname: "three", Rating: 14200},
		},
		covers: map[int][]byte{365: {0x89, 0x50, 0x4e, 0x47}},
	}
}

func startService(t *testing.T, src *fakeSource) *app.Service {
	t.Helper()

	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"SongID": 11663, "Alias": ["潘多拉"]}]`))
	}))
	t.Cleanup(feed.Close)

	svc := app.New(
		app.WithDBPath(filepath.Join(t.TempDir(), "test.db")),
		app.WithAliasFeed(feed.URL),
		app.WithRecordSource(src),
	)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(svc.Stop)
	return svc
}

func TestNotStarted(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service that was never started", t, func() {
		svc := app.New(app.WithRecordSource(testSource()))

		Convey("Commands are rejected with ErrNotStarted", func() {
			So(svc.EnableGroup(ctx, "g1"), ShouldEqual, app.ErrNotStarted)

			_, err := svc.JoinGroup(ctx, "g1", "p1")
			So(err, ShouldEqual, app.ErrNotStarted)

			_, err = svc.ResolveSong(ctx, "PANDORA")
			So(err, ShouldEqual, app.ErrNotStarted)

			_, err = svc.QuotaRemaining(ctx, "p1")
			So(err, ShouldEqual, app.ErrNotStarted)

			So(svc.ResetQuota(ctx, "p1"), ShouldEqual, app.ErrNotStarted)
			So(svc.AddCustomAlias(ctx, 11663, "x"), ShouldEqual, app.ErrNotStarted)

			_, err = svc.Cover(ctx, 365)
			So(err, ShouldEqual, app.ErrNotStarted)
		})
	})
}

func TestGroupLifecycle(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service", t, func() {
		svc := startService(t, testSource())

		Convey("Operations on a disabled group are rejected", func() {
			_, err := svc.JoinGroup(ctx, "g1", "p1")
			So(err, ShouldEqual, app.ErrGroupDisabled)
		})

		Convey("Join validates the player against the upstream", func() {
			So(svc.EnableGroup(ctx, "g1"), ShouldBeNil)

			profile, err := svc.JoinGroup(ctx, "g1", "p1")
			So(err, ShouldBeNil)
			So(profile.Nickname, ShouldEqual, "one")

			_, err = svc.JoinGroup(ctx, "g1", "nobody")
			So(errors.Is(err, prober.ErrPlayerNotFound), ShouldBeTrue)
		})

		Convey("Joining twice is a conflict", func() {
			So(svc.EnableGroup(ctx, "g1"), ShouldBeNil)
			_, err := svc.JoinGroup(ctx, "g1", "p1")
			So(err, ShouldBeNil)
			_, err = svc.JoinGroup(ctx, "g1", "p1")
			So(err, ShouldEqual, app.ErrAlreadyMember)
		})

		Convey("Leaving requires membership", func() {
			So(svc.EnableGroup(ctx, "g1"), ShouldBeNil)
			So(svc.LeaveGroup(ctx, "g1", "p1"), ShouldEqual, app.ErrNotMember)

			_, err := svc.JoinGroup(ctx, "g1", "p1")
			So(err, ShouldBeNil)
			So(svc.LeaveGroup(ctx, "g1", "p1"), ShouldBeNil)
		})
	})
}

func TestLeaderboards(t *testing.T) {
	ctx := context.Background()

	enroll := func(svc *app.Service, players ...string) {
		So(svc.EnableGroup(ctx, "g1"), ShouldBeNil)
		for _, p := range players {
			_, err := svc.JoinGroup(ctx, "g1", p)
			So(err, ShouldBeNil)
		}
	}

	Convey("Given a group with enrolled players", t, func() {
		svc := startService(t, testSource())

		Convey("The song leaderboard defaults to the highest tier played", func() {
			enroll(svc, "p1", "p2")

			board, err := svc.SongLeaderboard(ctx, "g1", "11663", "")
			So(err, ShouldBeNil)
			So(board.Song.ID, ShouldEqual, 11663)
			So(board.Tier, ShouldEqual, 4)
			So(board.Rows, ShouldHaveLength, 2)
			So(board.Rows[0].PlayerID, ShouldEqual, "p2")
		})

		Convey("An explicit difficulty narrows the view", func() {
			enroll(svc, "p1", "p2")

			board, err := svc.SongLeaderboard(ctx, "g1", "潘多拉", "紫")
			So(err, ShouldBeNil)
			So(board.Tier, ShouldEqual, 3)
			So(board.Rows, ShouldHaveLength, 1)
			So(board.Rows[0].PlayerID, ShouldEqual, "p2")
		})

		Convey("A trailing difficulty token in the query works too", func() {
			enroll(svc, "p1", "p2")

			board, err := svc.SongLeaderboard(ctx, "g1", "潘多拉 紫", "")
			So(err, ShouldBeNil)
			So(board.Tier, ShouldEqual, 3)
		})

		Convey("An unknown difficulty token is rejected", func() {
			enroll(svc, "p1")
			_, err := svc.SongLeaderboard(ctx, "g1", "11663", "plutonium")
			So(err, ShouldEqual, app.ErrUnknownDifficulty)
		})

		Convey("A song nobody played is an empty population", func() {
			enroll(svc, "p3")
			_, err := svc.SongLeaderboard(ctx, "g1", "11663", "")
			So(err, ShouldEqual, ranking.ErrEmptyPopulation)
		})

		Convey("An unresolvable query is a missing song", func() {
			enroll(svc, "p1")
			_, err := svc.SongLeaderboard(ctx, "g1", "zzz nothing", "")
			So(err, ShouldEqual, app.ErrSongNotFound)
		})

		Convey("The rating leaderboard ranks by cached rating", func() {
			enroll(svc, "p1", "p2", "p3")

			board, err := svc.RatingLeaderboard(ctx, "g1", ranking.NoSegment)
			So(err, ShouldBeNil)
			So(board.Population, ShouldEqual, 3)
			So(board.Rows[0].PlayerID, ShouldEqual, "p2")
			So(board.Rows[1].PlayerID, ShouldEqual, "p1")
			So(board.Rows[2].PlayerID, ShouldEqual, "p3")
		})

		Convey("Segment filtering and validation apply", func() {
			enroll(svc, "p1", "p2", "p3")

			board, err := svc.RatingLeaderboard(ctx, "g1", 5)
			So(err, ShouldBeNil)
			So(board.Population, ShouldEqual, 1)
			So(board.Rows[0].PlayerID, ShouldEqual, "p1")

			_, err = svc.RatingLeaderboard(ctx, "g1", 9)
			So(err, ShouldEqual, ranking.ErrInvalidSegment)
		})
	})
}

func TestRefreshQuota(t *testing.T) {
	ctx := context.Background()

	Convey("Given a group with one member", t, func() {
		svc := startService(t, testSource())
		So(svc.EnableGroup(ctx, "g1"), ShouldBeNil)
		_, err := svc.JoinGroup(ctx, "g1", "p1")
		So(err, ShouldBeNil)

		Convey("Refreshes are limited per requesting player per day", func() {
			for i := 0; i < 2; i++ {
				result, err := svc.RefreshGroup(ctx, "g1", "p1")
				So(err, ShouldBeNil)
				So(result.Succeeded, ShouldEqual, 1)
			}
			_, err := svc.RefreshGroup(ctx, "g1", "p1")
			So(err, ShouldEqual, quota.ErrQuotaExceeded)
		})

		Convey("Another requester has their own budget", func() {
			_, err := svc.RefreshGroup(ctx, "g1", "p1")
			So(err, ShouldBeNil)
			_, err = svc.RefreshGroup(ctx, "g1", "p2")
			So(err, ShouldBeNil)
		})

		Convey("A reset restores the requester's budget", func() {
			for i := 0; i < 2; i++ {
				_, err := svc.RefreshGroup(ctx, "g1", "p1")
				So(err, ShouldBeNil)
			}
			remaining, err := svc.QuotaRemaining(ctx, "p1")
			So(err, ShouldBeNil)
			So(remaining, ShouldEqual, 0)

			So(svc.ResetQuota(ctx, "p1"), ShouldBeNil)
			remaining, _ = svc.QuotaRemaining(ctx, "p1")
			So(remaining, ShouldEqual, 2)

			_, err = svc.RefreshGroup(ctx, "g1", "p1")
			So(err, ShouldBeNil)
		})
	})
}

func TestCustomAliasesAndCovers(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service", t, func() {
		svc := startService(t, testSource())

		Convey("A custom alias resolves after the snapshot rebuild", func() {
			_, err := svc.ResolveSong(ctx, "我的歌")
			So(err, ShouldEqual, app.ErrSongNotFound)

			So(svc.AddCustomAlias(ctx, 365, "我的歌"), ShouldBeNil)
			song, err := svc.ResolveSong(ctx, "我的歌")
			So(err, ShouldBeNil)
			So(song.ID, ShouldEqual, 365)

			So(svc.RemoveCustomAlias(ctx, "我的歌"), ShouldBeNil)
			_, err = svc.ResolveSong(ctx, "我的歌")
			So(err, ShouldEqual, app.ErrSongNotFound)
		})

		Convey("Aliases cannot bind to songs outside the catalog", func() {
			So(svc.AddCustomAlias(ctx, 424242, "nope"), ShouldEqual, app.ErrSongNotFound)
		})

		Convey("Covers fetch once and then serve from the cache", func() {
			src := testSource()
			cached := startService(t, src)

			data, err := cached.Cover(ctx, 365)
			So(err, ShouldBeNil)
			So(data, ShouldResemble, []byte{0x89, 0x50, 0x4e, 0x47})

			// Drop the upstream copy; the cache must answer now.
			delete(src.covers, 365)
			data, err = cached.Cover(ctx, 365)
			So(err, ShouldBeNil)
			So(data, ShouldResemble, []byte{0x89, 0x50, 0x4e, 0x47})
		})

		Convey("An empty query is rejected before resolution", func() {
			_, err := svc.ResolveSong(ctx, "   ")
			So(err, ShouldEqual, app.ErrEmptyQuery)
		})
	})
}

func TestSplitQuery(t *testing.T) {
	Convey("Given queries with trailing difficulty tokens", t, func() {
		Convey("A recognized trailing token splits off", func() {
			song, tier := app.SplitQuery("潘多拉 紫")
			So(song, ShouldEqual, "潘多拉")
			So(tier, ShouldEqual, 3)
		})

		Convey("Multi-word song names keep their inner words", func() {
			song, tier := app.SplitQuery("Oshama Scramble! master")
			So(song, ShouldEqual, "Oshama Scramble!")
			So(tier, ShouldEqual, 3)
		})

		Convey("A single-word query is never a bare token", func() {
			song, tier := app.SplitQuery("紫")
			So(song, ShouldEqual, "紫")
			So(tier, ShouldEqual, ranking.AnyTier)
		})

		Convey("An unrecognized trailing word stays in the query", func() {
			song, tier := app.SplitQuery("group A")
			So(song, ShouldEqual, "group A")
			So(tier, ShouldEqual, ranking.AnyTier)
		})
	})
}
