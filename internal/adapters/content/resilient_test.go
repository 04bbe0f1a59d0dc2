package content_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/okian/pulse/internal/adapters/content"
	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

// flakyService fails the first failures calls of every method.
type flakyService struct {
	mu       sync.Mutex
	failures int
	err      error
	calls    int
	games    []model.Game
}

func (f *flakyService) step() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return f.err
	}
	return nil
}

func (f *flakyService) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *flakyService) GetLiveGames(context.Context, []model.League) ([]model.Game, error) {
	if err := f.step(); err != nil {
		return nil, err
	}
	return f.games, nil
}

func (f *flakyService) GetGameWithStats(_ context.Context, id string) (*model.GameWithStats, error) {
	if err := f.step(); err != nil {
		return nil, err
	}
	for _, g := range f.games {
		if g.ID == id {
			return &model.GameWithStats{Game: g}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", content.ErrNotFound, id)
}

func (f *flakyService) FindGamesByTeam(context.Context, string) ([]model.Game, error) {
	if err := f.step(); err != nil {
		return nil, err
	}
	return f.games, nil
}

func TestResilient(t *testing.T) {
	Convey("Given a resilient wrapper around a flaky service", t, func() {
		inner := &flakyService{
			err:   errors.New("connection reset"),
			games: []model.Game{{ID: "nfl-1", League: model.LeagueNFL}},
		}
		svc := content.NewResilient(inner,
			content.WithRetryAttempts(3),
			content.WithRetryBackoff(time.Millisecond),
		)
		ctx := context.Background()

		Convey("When the service recovers before the last attempt", func() {
			inner.failures = 2
			games, err := svc.GetLiveGames(ctx, model.DefaultLeagues())

			Convey("Then the games should be returned", func() {
				So(err, ShouldBeNil)
				So(len(games), ShouldEqual, 1)
				So(inner.Calls(), ShouldEqual, 3)
			})
		})

		Convey("When every live games attempt fails", func() {
			inner.failures = 10
			games, err := svc.GetLiveGames(ctx, model.DefaultLeagues())

			Convey("Then it should degrade to an empty slice", func() {
				So(err, ShouldBeNil)
				So(games, ShouldNotBeNil)
				So(len(games), ShouldEqual, 0)
				So(inner.Calls(), ShouldEqual, 3)
			})
		})

		Convey("When every stats attempt fails", func() {
			inner.failures = 10
			_, err := svc.GetGameWithStats(ctx, "nfl-1")

			Convey("Then the error should surface", func() {
				So(err, ShouldNotBeNil)
				So(inner.Calls(), ShouldEqual, 3)
			})
		})

		Convey("When a game is unknown", func() {
			_, err := svc.GetGameWithStats(ctx, "nfl-404")

			Convey("Then it should not be retried", func() {
				So(errors.Is(err, content.ErrNotFound), ShouldBeTrue)
				So(inner.Calls(), ShouldEqual, 1)
			})
		})

		Convey("When looking up a team after one failure", func() {
			inner.failures = 1
			games, err := svc.FindGamesByTeam(ctx, "Seahawks")

			So(err, ShouldBeNil)
			So(len(games), ShouldEqual, 1)
			So(inner.Calls(), ShouldEqual, 2)
		})
	})
}
