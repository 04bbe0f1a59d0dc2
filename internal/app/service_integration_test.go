package service_test

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	service "github.com/okian/pulse/internal/app"
	"github.com/okian/pulse/internal/adapters/acr/fingerprint"
	"github.com/okian/pulse/internal/adapters/content"
	"github.com/okian/pulse/internal/adapters/content/espn"
	"github.com/okian/pulse/internal/adapters/content/fixture"
	"github.com/okian/pulse/internal/adapters/repository"
	"github.com/okian/pulse/internal/domain/acr"
	"github.com/okian/pulse/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service wired to fixture games, a fingerprint index and SQLite", t, func() {
		dbPath := filepath.Join(t.TempDir(), "pulse.db")
		store, err := repository.NewSQLiteStore(dbPath)
		So(err, ShouldBeNil)

		clock := func() time.Time { return now }
		games := content.NewResilient(fixture.New(fixture.WithClock(clock)), content.WithRetryAttempts(1))

		clip := []byte("seahawks-broadcast-clip")
		fp := fingerprint.New()
		So(fp.Register(fingerprint.Hash(clip), acr.ByTeamName{TeamName: "Seahawks", League: model.LeagueNFL}, 0), ShouldBeNil)

		svc := service.New(
			service.WithContent(games),
			service.WithStore(store),
			service.WithWorkerCount(2),
			service.WithQueueSize(100),
		)
		svc.RegisterProvider(fp)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When a known clip is submitted", func() {
			res, err := svc.Resolve(ctx, request(model.WithAudio(clip), model.WithUser("fan-1")))

			Convey("Then the fingerprint match should win", func() {
				So(err, ShouldBeNil)
				So(res.Source, ShouldEqual, model.SourceACR)
				So(res.GameID, ShouldEqual, "nfl-401547")
				So(res.Confidence, ShouldEqual, fingerprint.DefaultConfidence)
				So(res.Game.Stats["SEA"]["totalYards"], ShouldEqual, "231")
			})
		})

		Convey("When an unknown clip arrives from a Lakers fan", func() {
			res, err := svc.Resolve(ctx, request(
				model.WithAudio([]byte("crowd noise")),
				model.WithUser("fan-1"),
				model.WithFavoriteTeams("Lakers"),
			))

			Convey("Then the halftime favorite should be picked heuristically", func() {
				So(err, ShouldBeNil)
				So(res.Source, ShouldEqual, model.SourceHeuristic)
				So(res.GameID, ShouldEqual, "nba-1001")
				So(math.Abs(res.Confidence-0.79), ShouldBeLessThan, 1e-9)
				So(res.MatchReason, ShouldEqual, "Game is at halftime. Matches your favorite team.")
			})
		})

		Convey("When several requests are resolved and the service stops", func() {
			for i := 0; i < 5; i++ {
				_, err := svc.Resolve(ctx, request(model.WithAudio(clip), model.WithUser("fan-2")))
				So(err, ShouldBeNil)
			}
			svc.Stop()

			Convey("Then every entry should be durable", func() {
				reopened, err := repository.NewSQLiteStore(dbPath)
				So(err, ShouldBeNil)
				defer reopened.Close()

				entries, err := reopened.ListByUser(ctx, "fan-2", 10)
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 5)
				So(entries[0].League, ShouldEqual, "NFL")
				So(entries[0].RawMeta.MatchReason, ShouldEqual, acr.MatchReason)
			})
		})

		Reset(svc.Stop)
	})
}

const liveSeattleScoreboard = `{"events": [{
  "id": "401547",
  "date": "2026-10-16T16:30Z",
  "status": {"type": {"name": "STATUS_IN_PROGRESS", "state": "in", "completed": false}},
  "competitions": [{"competitors": [
    {"homeAway": "home", "score": "7", "team": {"displayName": "Seattle Seahawks", "shortDisplayName": "Seahawks", "abbreviation": "SEA"}},
    {"homeAway": "away", "score": "13", "team": {"displayName": "Houston Texans", "shortDisplayName": "Texans", "abbreviation": "HOU"}}
  ]}]
}]}`

func TestServiceWithDegradedESPN(t *testing.T) {
	Convey("Given ESPN serving NFL while every NBA endpoint is down", t, func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/football/nfl/scoreboard", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(liveSeattleScoreboard))
		})
		mux.HandleFunc("/basketball/", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "maintenance", http.StatusServiceUnavailable)
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		games := content.NewResilient(
			espn.NewClient(espn.Config{BaseURL: srv.URL, HTTPClient: srv.Client()}),
			content.WithRetryAttempts(1),
		)
		svc := service.New(service.WithContent(games))

		Convey("When a Seahawks fan resolves with the default leagues", func() {
			req := request(model.WithFavoriteTeams("Seahawks"))
			res, err := svc.Resolve(context.Background(), req)

			Convey("Then the live NFL game should still win", func() {
				So(req.FavoriteLeagues, ShouldResemble, []model.League{model.LeagueNFL, model.LeagueNBA})
				So(err, ShouldBeNil)
				So(res, ShouldNotBeNil)
				So(res.GameID, ShouldEqual, "nfl-401547")
				So(res.Source, ShouldEqual, model.SourceHeuristic)
				So(res.MatchReason, ShouldContainSubstring, "favorite team")
			})
		})
	})
}
