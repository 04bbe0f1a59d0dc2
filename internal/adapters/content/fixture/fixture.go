// Package fixture serves a deterministic slate of games, useful for local
// runs and demos without network access.
package fixture

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/pulse/internal/adapters/content"
	"github.com/okian/pulse/internal/domain/model"
)

// Provider returns a fixed set of games positioned relative to its clock.
type Provider struct {
	now func() time.Time
}

// Option configures a Provider.
type Option func(*Provider)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a fixture provider.
func New(opts ...Option) *Provider {
	p := &Provider{now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ content.Service = (*Provider)(nil)

// GetLiveGames returns the fixture games in the requested leagues. No
// leagues means every league.
func (p *Provider) GetLiveGames(ctx context.Context, leagues []model.League) ([]model.Game, error) {
	_ = ctx
	want := make(map[model.League]bool, len(leagues))
	for _, l := range leagues {
		want[l] = true
	}

	out := make([]model.Game, 0, 4)
	for _, g := range p.slate() {
		if len(want) == 0 || want[g.League] {
			out = append(out, g.Game)
		}
	}
	return out, nil
}

// GetGameWithStats returns one game with its box score.
func (p *Provider) GetGameWithStats(ctx context.Context, gameID string) (*model.GameWithStats, error) {
	_ = ctx
	for _, g := range p.slate() {
		if g.ID == gameID {
			gws := g
			return &gws, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", content.ErrNotFound, gameID)
}

// FindGamesByTeam matches the team name case-insensitively against full
// names and abbreviations.
func (p *Provider) FindGamesByTeam(ctx context.Context, teamName string) ([]model.Game, error) {
	_ = ctx
	q := strings.ToLower(strings.TrimSpace(teamName))
	if q == "" {
		return []model.Game{}, nil
	}

	out := make([]model.Game, 0, 1)
	for _, g := range p.slate() {
		if teamMatches(g.HomeTeam, q) || teamMatches(g.AwayTeam, q) {
			out = append(out, g.Game)
		}
	}
	return out, nil
}

func teamMatches(t model.Team, q string) bool {
	return strings.Contains(strings.ToLower(t.Name), q) || strings.EqualFold(t.Abbreviation, q)
}

func (p *Provider) slate() []model.GameWithStats {
	now := p.now().UTC().Truncate(time.Minute)

	return []model.GameWithStats{
		{
			Game: model.Game{
				ID:        "nfl-401547",
				League:    model.LeagueNFL,
				HomeTeam:  model.Team{Name: "Seattle Seahawks", Abbreviation: "SEA"},
				AwayTeam:  model.Team{Name: "Houston Texans", Abbreviation: "HOU"},
				Status:    model.StatusInProgress,
				StartTime: now.Add(-95 * time.Minute),
				Score:     &model.Score{Home: 7, Away: 13},
			},
			Stats: map[string]model.TeamStats{
				"SEA": {"totalYards": "231", "turnovers": "1", "possessionTime": "17:42"},
				"HOU": {"totalYards": "287", "turnovers": "0", "possessionTime": "19:03"},
			},
		},
		{
			Game: model.Game{
				ID:        "nfl-401548",
				League:    model.LeagueNFL,
				HomeTeam:  model.Team{Name: "Kansas City Chiefs", Abbreviation: "KC"},
				AwayTeam:  model.Team{Name: "Buffalo Bills", Abbreviation: "BUF"},
				Status:    model.StatusScheduled,
				StartTime: now.Add(3 * time.Hour),
			},
		},
		{
			Game: model.Game{
				ID:        "nba-1001",
				League:    model.LeagueNBA,
				HomeTeam:  model.Team{Name: "Boston Celtics", Abbreviation: "BOS"},
				AwayTeam:  model.Team{Name: "Los Angeles Lakers", Abbreviation: "LAL"},
				Status:    model.StatusHalftime,
				StartTime: now.Add(-70 * time.Minute),
				Score:     &model.Score{Home: 58, Away: 61},
			},
			Stats: map[string]model.TeamStats{
				"BOS": {"fieldGoalPct": "47.6", "rebounds": "22"},
				"LAL": {"fieldGoalPct": "50.0", "rebounds": "19"},
			},
		},
		{
			Game: model.Game{
				ID:        "nba-1002",
				League:    model.LeagueNBA,
				HomeTeam:  model.Team{Name: "Golden State Warriors", Abbreviation: "GSW"},
				AwayTeam:  model.Team{Name: "Miami Heat", Abbreviation: "MIA"},
				Status:    model.StatusScheduled,
				StartTime: now.Add(20 * time.Minute),
			},
		},
		{
			Game: model.Game{
				ID:        "mlb-2001",
				League:    model.LeagueMLB,
				HomeTeam:  model.Team{Name: "New York Yankees", Abbreviation: "NYY"},
				AwayTeam:  model.Team{Name: "Boston Red Sox", Abbreviation: "BOS"},
				Status:    model.StatusFinished,
				StartTime: now.Add(-5 * time.Hour),
				Score:     &model.Score{Home: 4, Away: 2},
			},
		},
	}
}
