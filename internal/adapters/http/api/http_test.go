package api_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/pulse/internal/adapters/http/api"
	"github.com/okian/pulse/internal/adapters/repository"
	"github.com/okian/pulse/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type mockDependencies struct {
	result     *model.PulseResult
	resolveErr error
	lastReq    model.PulseRequest

	entries    []model.PulseEntry
	historyErr error
	lastUser   string
	lastLimit  int
}

func (m *mockDependencies) Resolve(_ context.Context, req model.PulseRequest) (*model.PulseResult, error) {
	m.lastReq = req
	return m.result, m.resolveErr
}

func (m *mockDependencies) History(_ context.Context, userID string, limit int) ([]model.PulseEntry, error) {
	m.lastUser, m.lastLimit = userID, limit
	if m.historyErr != nil {
		return nil, m.historyErr
	}
	return m.entries, nil
}

func (m *mockDependencies) Entry(_ context.Context, id string) (model.PulseEntry, error) {
	for _, e := range m.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return model.PulseEntry{}, fmt.Errorf("%w: %s", repository.ErrNotFound, id)
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func sampleResult() *model.PulseResult {
	return &model.PulseResult{
		GameID:      "nfl-401547",
		Confidence:  0.95,
		MatchReason: "Game is currently live. Matches your favorite team.",
		Source:      model.SourceHeuristic,
		Game: model.GameWithStats{Game: model.Game{
			ID:       "nfl-401547",
			League:   model.LeagueNFL,
			HomeTeam: model.Team{Name: "Seattle Seahawks", Abbreviation: "SEA"},
			AwayTeam: model.Team{Name: "Houston Texans", Abbreviation: "HOU"},
			Status:   model.StatusInProgress,
		}},
	}
}

func newMux(deps *mockDependencies, opts ...api.Option) *http.ServeMux {
	stats := &mockStatsProvider{stats: map[string]interface{}{"started": true, "providers": 2}}
	mux := http.NewServeMux()
	api.NewServer(deps, stats, opts...).Register(context.Background(), mux)
	return mux
}

func serve(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestServer_Register(t *testing.T) {
	Convey("Given a new API server", t, func() {
		mux := newMux(&mockDependencies{})

		Convey("Then health endpoint should report ok", func() {
			w := serve(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
		})

		Convey("And stats endpoint should expose provider stats", func() {
			w := serve(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
			So(w.Body.String(), ShouldContainSubstring, `"providers":2`)
		})

		Convey("And metrics endpoint should serve the prometheus registry", func() {
			serve(mux, http.MethodGet, "/healthz", "")
			w := serve(mux, http.MethodGet, "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "http_requests_total")
		})

		Convey("And wrong methods should be rejected", func() {
			So(serve(mux, http.MethodGet, "/pulse", "").Code, ShouldEqual, http.StatusNotFound)
			So(serve(mux, http.MethodPost, "/stats", "").Code, ShouldEqual, http.StatusNotFound)
			So(serve(mux, http.MethodDelete, "/pulse/history", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("And a nil mux should panic", func() {
			So(func() {
				api.NewServer(&mockDependencies{}, &mockStatsProvider{}).Register(context.Background(), nil)
			}, ShouldPanic)
		})
	})
}

func TestPulseHandler(t *testing.T) {
	Convey("Given a pulse endpoint that finds a match", t, func() {
		deps := &mockDependencies{result: sampleResult()}
		mux := newMux(deps)

		Convey("When a full request is posted", func() {
			audio := base64.StdEncoding.EncodeToString([]byte("clip"))
			body := `{"user_id":" u1 ","favorite_teams":["Seahawks"],"favorite_leagues":["nfl","NBA"],` +
				`"timestamp":"2026-10-16T18:00:00Z","audio":"` + audio + `"}`
			w := serve(mux, http.MethodPost, "/pulse", body)

			Convey("Then the request should be decoded into the domain model", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastReq.UserID, ShouldEqual, "u1")
				So(deps.lastReq.FavoriteTeams, ShouldResemble, []string{"Seahawks"})
				So(deps.lastReq.FavoriteLeagues, ShouldResemble, []model.League{model.LeagueNFL, model.LeagueNBA})
				So(deps.lastReq.Timestamp.Equal(time.Date(2026, 10, 16, 18, 0, 0, 0, time.UTC)), ShouldBeTrue)
				So(string(deps.lastReq.Audio), ShouldEqual, "clip")
			})

			Convey("And the result should be returned", func() {
				var resp struct {
					Matched bool              `json:"matched"`
					Result  model.PulseResult `json:"result"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.Matched, ShouldBeTrue)
				So(resp.Result.GameID, ShouldEqual, "nfl-401547")
				So(resp.Result.Confidence, ShouldEqual, 0.95)
				So(resp.Result.Source, ShouldEqual, model.SourceHeuristic)
			})
		})

		Convey("When an empty object is posted", func() {
			w := serve(mux, http.MethodPost, "/pulse", `{}`)

			Convey("Then defaults should apply", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastReq.FavoriteLeagues, ShouldResemble, model.DefaultLeagues())
				So(deps.lastReq.HasAudio(), ShouldBeFalse)
				So(deps.lastReq.Timestamp.IsZero(), ShouldBeFalse)
			})
		})
	})

	Convey("Given a pulse endpoint that finds nothing", t, func() {
		mux := newMux(&mockDependencies{})

		w := serve(mux, http.MethodPost, "/pulse", `{}`)

		Convey("Then matched should be false with a null result", func() {
			So(w.Code, ShouldEqual, http.StatusOK)
			So(strings.TrimSpace(w.Body.String()), ShouldEqual, `{"matched":false,"result":null}`)
		})
	})

	Convey("Given malformed pulse requests", t, func() {
		mux := newMux(&mockDependencies{result: sampleResult()}, api.WithMaxBodyBytes(256))

		cases := []struct {
			name string
			body string
			code int
			want string
		}{
			{"broken json", `{"user_id":`, http.StatusBadRequest, "bad request"},
			{"unknown field", `{"talent_id":"x"}`, http.StatusBadRequest, "unknown field"},
			{"unknown league", `{"favorite_leagues":["XFL"]}`, http.StatusBadRequest, "unknown league"},
			{"bad timestamp", `{"timestamp":"yesterday"}`, http.StatusBadRequest, "RFC3339"},
			{"bad audio", `{"audio":"***"}`, http.StatusBadRequest, "bad request"},
			{"too large", `{"user_id":"` + strings.Repeat("x", 512) + `"}`, http.StatusRequestEntityTooLarge, "too large"},
		}

		for _, tc := range cases {
			Convey("When the request has "+tc.name, func() {
				w := serve(mux, http.MethodPost, "/pulse", tc.body)

				So(w.Code, ShouldEqual, tc.code)
				So(w.Body.String(), ShouldContainSubstring, tc.want)
			})
		}
	})

	Convey("Given a pulse endpoint whose content service is down", t, func() {
		mux := newMux(&mockDependencies{resolveErr: errors.New("content service unavailable: timeout")})

		w := serve(mux, http.MethodPost, "/pulse", `{}`)

		Convey("Then a bad gateway should be returned", func() {
			So(w.Code, ShouldEqual, http.StatusBadGateway)
			So(w.Body.String(), ShouldContainSubstring, "upstream_unavailable")
		})
	})
}

func TestHistoryHandler(t *testing.T) {
	Convey("Given stored entries", t, func() {
		user := "u1"
		deps := &mockDependencies{entries: []model.PulseEntry{
			{ID: "e2", UserID: &user, GameID: "nba-1001", League: "NBA"},
			{ID: "e1", UserID: &user, GameID: "nfl-401547", League: "NFL"},
		}}
		mux := newMux(deps, api.WithMaxLimit(50))

		Convey("When listing a user's history", func() {
			w := serve(mux, http.MethodGet, "/pulse/history?user_id=u1&limit=5", "")

			Convey("Then entries should be returned as stored", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var got []model.PulseEntry
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(len(got), ShouldEqual, 2)
				So(got[0].ID, ShouldEqual, "e2")
				So(deps.lastUser, ShouldEqual, "u1")
				So(deps.lastLimit, ShouldEqual, 5)
			})
		})

		Convey("When no limit is given", func() {
			w := serve(mux, http.MethodGet, "/pulse/history", "")

			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastUser, ShouldEqual, "")
			So(deps.lastLimit, ShouldEqual, 20)
		})

		Convey("When the limit is invalid or too large", func() {
			So(serve(mux, http.MethodGet, "/pulse/history?limit=0", "").Code, ShouldEqual, http.StatusBadRequest)
			So(serve(mux, http.MethodGet, "/pulse/history?limit=abc", "").Code, ShouldEqual, http.StatusBadRequest)

			w := serve(mux, http.MethodGet, "/pulse/history?limit=51", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Body.String(), ShouldContainSubstring, "maximum of 50")
		})

		Convey("When the store fails", func() {
			deps.historyErr = errors.New("database locked")
			w := serve(mux, http.MethodGet, "/pulse/history?user_id=u1", "")

			So(w.Code, ShouldEqual, http.StatusInternalServerError)
		})

		Convey("When the user has no entries", func() {
			deps.entries = nil
			w := serve(mux, http.MethodGet, "/pulse/history?user_id=nobody", "")

			So(w.Code, ShouldEqual, http.StatusOK)
			So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
		})

		Convey("When fetching one entry", func() {
			w := serve(mux, http.MethodGet, "/pulse/entries/e1", "")

			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"gameId":"nfl-401547"`)
		})

		Convey("When fetching an unknown entry", func() {
			w := serve(mux, http.MethodGet, "/pulse/entries/missing", "")

			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(w.Body.String(), ShouldContainSubstring, "not_found")
		})

		Convey("When the entry path is malformed", func() {
			So(serve(mux, http.MethodGet, "/pulse/entries/", "").Code, ShouldEqual, http.StatusBadRequest)
			So(serve(mux, http.MethodGet, "/pulse/entries/a/b", "").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}
