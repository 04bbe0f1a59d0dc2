// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
	"time"
)

// League identifies a sports league.
type League string

// Supported leagues.
const (
	LeagueNFL League = "NFL"
	LeagueNBA League = "NBA"
	LeagueMLB League = "MLB"
	LeagueNHL League = "NHL"
)

// Leagues lists every supported league in a stable order.
var Leagues = []League{LeagueNFL, LeagueNBA, LeagueMLB, LeagueNHL} //nolint:gochecknoglobals // read-only enum listing

// DefaultLeagues is used when a request names no leagues.
func DefaultLeagues() []League {
	return []League{LeagueNFL, LeagueNBA}
}

// ParseLeague accepts a league name case-insensitively.
func ParseLeague(s string) (League, error) {
	l := League(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Leagues {
		if l == known {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLeague, s)
}

// GameStatus mirrors the lifecycle states reported by the content service.
type GameStatus string

const (
	StatusScheduled  GameStatus = "scheduled"
	StatusInProgress GameStatus = "in_progress"
	StatusHalftime   GameStatus = "halftime"
	StatusFinished   GameStatus = "finished"
)

// Team is a side in a game.
type Team struct {
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
}

// Score captures home and away points.
type Score struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// Margin is the absolute point difference.
func (s Score) Margin() int {
	d := s.Home - s.Away
	if d < 0 {
		return -d
	}
	return d
}

// Game is the canonical game shape supplied by the content service.
// Score is nil while the game is scheduled.
type Game struct {
	ID        string     `json:"id"`
	League    League     `json:"league"`
	HomeTeam  Team       `json:"homeTeam"`
	AwayTeam  Team       `json:"awayTeam"`
	Status    GameStatus `json:"status"`
	StartTime time.Time  `json:"startTime"`
	Score     *Score     `json:"score,omitempty"`
}

// TeamStats is a flat box-score line for one side.
type TeamStats map[string]string

// GameWithStats extends a Game with box-score data, keyed by team
// abbreviation (or name when no abbreviation is known).
type GameWithStats struct {
	Game
	Stats map[string]TeamStats `json:"stats,omitempty"`
}
