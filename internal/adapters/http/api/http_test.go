package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/yukko233/maimai-raking/internal/adapters/http/api"
	"github.com/yukko233/maimai-raking/internal/adapters/refresh"
	"github.com/yukko233/maimai-raking/internal/app"
	"github.com/yukko233/maimai-raking/internal/domain/model"
	"github.com/yukko233/maimai-raking/internal/domain/quota"
	"github.com/yukko233/maimai-raking/internal/domain/ranking"
)

// mockService implements api.Dependencies and api.StatsProvider with
// canned behavior per test.
type mockService struct {
	joinErr        error
	refreshErr     error
	songBoardErr   error
	ratingBoardErr error
	resolveErr     error
	coverErr       error

	lastGroup  string
	lastPlayer string
}

func (m *mockService) EnableGroup(_ context.Context, groupID string) error {
	m.lastGroup = groupID
	return nil
}

func (m *mockService) DisableGroup(_ context.Context, groupID string) error {
	m.lastGroup = groupID
	return nil
}

func (m *mockService) JoinGroup(_ context.Context, groupID, playerID string) (model.PlayerProfile, error) {
	m.lastGroup, m.lastPlayer = groupID, playerID
	if m.joinErr != nil {
		return model.PlayerProfile{}, m.joinErr
	}
	return model.PlayerProfile{PlayerID: playerID, Nickname: "tester", Rating: 15000}, nil
}

func (m *mockService) LeaveGroup(_ context.Context, groupID, playerID string) error {
	m.lastGroup, m.lastPlayer = groupID, playerID
	return nil
}

func (m *mockService) RefreshGroup(_ context.Context, groupID, requestedBy string) (refresh.Result, error) {
	m.lastGroup, m.lastPlayer = groupID, requestedBy
	if m.refreshErr != nil {
		return refresh.Result{}, m.refreshErr
	}
	return refresh.Result{Succeeded: 3, Failed: 1}, nil
}

func (m *mockService) ResolveSong(_ context.Context, query string) (model.CatalogEntry, error) {
	if m.resolveErr != nil {
		return model.CatalogEntry{}, m.resolveErr
	}
	return model.CatalogEntry{ID: 11663, Title: "PANDORA PARADOXXX"}, nil
}

func (m *mockService) SongLeaderboard(_ context.Context, groupID, query, difficulty string) (app.SongBoard, error) {
	m.lastGroup = groupID
	if m.songBoardErr != nil {
		return app.SongBoard{}, m.songBoardErr
	}
	return app.SongBoard{
		Song: model.CatalogEntry{ID: 11663, Title: "PANDORA PARADOXXX"},
		Tier: 4,
		Rows: []model.RankingRow{{PlayerID: "p1", Nickname: "one"}},
	}, nil
}

func (m *mockService) RatingLeaderboard(_ context.Context, groupID string, segment int) (app.RatingBoard, error) {
	m.lastGroup = groupID
	if m.ratingBoardErr != nil {
		return app.RatingBoard{}, m.ratingBoardErr
	}
	return app.RatingBoard{
		Segment:    segment,
		Population: 2,
		Rows:       []model.Player{{PlayerID: "p1", Rating: 15200}},
	}, nil
}

func (m *mockService) ResetQuota(_ context.Context, playerID string) error {
	m.lastPlayer = playerID
	return nil
}

func (m *mockService) QuotaRemaining(_ context.Context, playerID string) (int, error) {
	m.lastPlayer = playerID
	return 2, nil
}

func (m *mockService) AddCustomAlias(_ context.Context, songID int, alias string) error {
	return nil
}

func (m *mockService) RemoveCustomAlias(_ context.Context, alias string) error {
	return nil
}

func (m *mockService) Cover(_ context.Context, songID int) ([]byte, error) {
	if m.coverErr != nil {
		return nil, m.coverErr
	}
	return []byte{0x89, 0x50}, nil
}

func (m *mockService) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true}
}

func newTestServer(mock *mockService) *httptest.Server {
	mux := http.NewServeMux()
	api.NewServer(mock, mock).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

func postJSON(url, body string) (*http.Response, error) {
	return http.Post(url, "application/json", strings.NewReader(body))
}

func decodeBody(resp *http.Response) map[string]any {
	defer resp.Body.Close()
	var doc map[string]any
	So(json.NewDecoder(resp.Body).Decode(&doc), ShouldBeNil)
	return doc
}

func TestGroupRoutes(t *testing.T) {
	Convey("Given the API over a mock service", t, func() {
		mock := &mockService{}
		srv := newTestServer(mock)
		defer srv.Close()

		Convey("Enable routes to the right group", func() {
			resp, err := postJSON(srv.URL+"/groups/g1/enable", "")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(decodeBody(resp)["status"], ShouldEqual, "enabled")
			So(mock.lastGroup, ShouldEqual, "g1")
		})

		Convey("Join requires a player_id", func() {
			resp, err := postJSON(srv.URL+"/groups/g1/join", `{}`)
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			resp.Body.Close()

			resp, err = postJSON(srv.URL+"/groups/g1/join", `{"player_id": "p1"}`)
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(decodeBody(resp)["nickname"], ShouldEqual, "tester")
			So(mock.lastPlayer, ShouldEqual, "p1")
		})

		Convey("A duplicate join maps to 409", func() {
			mock.joinErr = app.ErrAlreadyMember
			resp, err := postJSON(srv.URL+"/groups/g1/join", `{"player_id": "p1"}`)
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusConflict)
			resp.Body.Close()
		})

		Convey("A disabled group maps to 403", func() {
			mock.joinErr = app.ErrGroupDisabled
			resp, err := postJSON(srv.URL+"/groups/g1/join", `{"player_id": "p1"}`)
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusForbidden)
			resp.Body.Close()
		})

		Convey("An exhausted quota maps to 429", func() {
			mock.refreshErr = quota.ErrQuotaExceeded
			resp, err := postJSON(srv.URL+"/groups/g1/refresh", `{"player_id": "p1"}`)
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusTooManyRequests)
			So(decodeBody(resp)["code"], ShouldEqual, "quota_exceeded")
		})

		Convey("A successful refresh reports its counts", func() {
			resp, err := postJSON(srv.URL+"/groups/g1/refresh", `{"player_id": "p1"}`)
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			doc := decodeBody(resp)
			So(doc["succeeded"], ShouldEqual, 3)
			So(doc["failed"], ShouldEqual, 1)
		})

		Convey("An unknown action is 404", func() {
			resp, err := postJSON(srv.URL+"/groups/g1/explode", "")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			resp.Body.Close()
		})

		Convey("GET on a group action is 404", func() {
			resp, err := http.Get(srv.URL + "/groups/g1/enable")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			resp.Body.Close()
		})
	})
}

func TestLeaderboardRoutes(t *testing.T) {
	Convey("Given the API over a mock service", t, func() {
		mock := &mockService{}
		srv := newTestServer(mock)
		defer srv.Close()

		Convey("The song leaderboard returns the board", func() {
			resp, err := http.Get(srv.URL + "/leaderboard/song?group=g1&q=pandora")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			doc := decodeBody(resp)
			So(doc["tier"], ShouldEqual, 4)
		})

		Convey("Missing query parameters are 400", func() {
			resp, err := http.Get(srv.URL + "/leaderboard/song?group=g1")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			resp.Body.Close()
		})

		Convey("An empty population answers 200 with no_data", func() {
			mock.songBoardErr = ranking.ErrEmptyPopulation
			resp, err := http.Get(srv.URL + "/leaderboard/song?group=g1&q=pandora")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(decodeBody(resp)["status"], ShouldEqual, "no_data")
		})

		Convey("An unresolvable song is 404", func() {
			mock.songBoardErr = app.ErrSongNotFound
			resp, err := http.Get(srv.URL + "/leaderboard/song?group=g1&q=zzz")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			resp.Body.Close()
		})

		Convey("The rating leaderboard parses the segment", func() {
			resp, err := http.Get(srv.URL + "/leaderboard/rating?group=g1&segment=5")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			doc := decodeBody(resp)
			So(doc["segment"], ShouldEqual, 5)
			So(doc["population"], ShouldEqual, 2)
		})

		Convey("An invalid segment maps to 400", func() {
			mock.ratingBoardErr = ranking.ErrInvalidSegment
			resp, err := http.Get(srv.URL + "/leaderboard/rating?group=g1&segment=12")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			resp.Body.Close()
		})

		Convey("A non-numeric segment is 400 before the service is called", func() {
			resp, err := http.Get(srv.URL + "/leaderboard/rating?group=g1&segment=high")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			resp.Body.Close()
		})
	})
}

func TestSongAndQuotaRoutes(t *testing.T) {
	Convey("Given the API over a mock service", t, func() {
		mock := &mockService{}
		srv := newTestServer(mock)
		defer srv.Close()

		Convey("Resolve answers the matched entry", func() {
			resp, err := http.Get(srv.URL + "/songs/resolve?q=pando")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(decodeBody(resp)["title"], ShouldEqual, "PANDORA PARADOXXX")
		})

		Convey("Resolve misses map to 404", func() {
			mock.resolveErr = app.ErrSongNotFound
			resp, err := http.Get(srv.URL + "/songs/resolve?q=zzz")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			resp.Body.Close()
		})

		Convey("Covers serve bytes with an image content type", func() {
			resp, err := http.Get(srv.URL + "/covers/365")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(resp.Header.Get("Content-Type"), ShouldEqual, "image/png")
			resp.Body.Close()
		})

		Convey("A non-numeric cover ID is 400", func() {
			resp, err := http.Get(srv.URL + "/covers/abc")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			resp.Body.Close()
		})

		Convey("Quota reset routes the player through", func() {
			resp, err := postJSON(srv.URL+"/quota/reset", `{"player_id": "p1"}`)
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(decodeBody(resp)["status"], ShouldEqual, "reset")
			So(mock.lastPlayer, ShouldEqual, "p1")
		})

		Convey("Quota remaining reports the budget", func() {
			resp, err := http.Get(srv.URL + "/quota/remaining?player=p1")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(decodeBody(resp)["remaining"], ShouldEqual, 2)
		})

		Convey("Alias curation accepts POST and DELETE", func() {
			resp, err := postJSON(srv.URL+"/songs/aliases", `{"song_id": 365, "alias": "乌蒙"}`)
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			resp.Body.Close()

			req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/songs/aliases", strings.NewReader(`{"alias": "乌蒙"}`))
			resp, err = http.DefaultClient.Do(req)
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			resp.Body.Close()
		})

		Convey("Stats serve the provider document", func() {
			resp, err := http.Get(srv.URL + "/stats")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(decodeBody(resp)["started"], ShouldEqual, true)
		})

		Convey("Every response carries a request ID", func() {
			resp, err := http.Get(srv.URL + "/stats")
			So(err, ShouldBeNil)
			So(resp.Header.Get("X-Request-ID"), ShouldNotBeEmpty)
			resp.Body.Close()
		})
	})
}
