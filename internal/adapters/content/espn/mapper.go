package espn

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/pulse/internal/domain/model"
)

var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04Z07:00"} //nolint:gochecknoglobals // read-only

// gameID namespaces an ESPN event id by league, e.g. "nfl-401547".
func gameID(league model.League, eventID string) string {
	return strings.ToLower(string(league)) + "-" + eventID
}

// splitGameID reverses gameID.
func splitGameID(id string) (model.League, string, error) {
	prefix, eventID, ok := strings.Cut(id, "-")
	if !ok || eventID == "" {
		return "", "", fmt.Errorf("malformed game id %q", id)
	}
	league, err := model.ParseLeague(prefix)
	if err != nil {
		return "", "", err
	}
	return league, eventID, nil
}

func mapEvent(league model.League, e event) (model.Game, bool) {
	if len(e.Competitions) == 0 {
		return model.Game{}, false
	}
	comp := e.Competitions[0]
	st := e.Status
	if comp.Status != nil {
		st = *comp.Status
	}
	date := e.Date
	if date == "" {
		date = comp.Date
	}
	return mapCompetition(league, e.ID, date, st, comp.Competitors)
}

func mapCompetition(league model.League, eventID, date string, st status, competitors []competitor) (model.Game, bool) {
	home, away, ok := sides(competitors)
	if !ok || eventID == "" {
		return model.Game{}, false
	}

	g := model.Game{
		ID:        gameID(league, eventID),
		League:    league,
		HomeTeam:  mapTeam(home.Team),
		AwayTeam:  mapTeam(away.Team),
		Status:    mapStatus(st),
		StartTime: parseTime(date),
	}
	if g.Status != model.StatusScheduled {
		g.Score = &model.Score{Home: int(home.Score), Away: int(away.Score)}
	}
	return g, true
}

// sides picks home and away by the homeAway marker, falling back to
// ESPN's [home, away] ordering.
func sides(cs []competitor) (competitor, competitor, bool) {
	if len(cs) < 2 {
		return competitor{}, competitor{}, false
	}
	home, away := cs[0], cs[1]
	for _, c := range cs {
		switch c.HomeAway {
		case "home":
			home = c
		case "away":
			away = c
		}
	}
	return home, away, true
}

func mapTeam(t team) model.Team {
	name := t.DisplayName
	if name == "" {
		name = t.ShortDisplayName
	}
	return model.Team{Name: name, Abbreviation: t.Abbreviation}
}

func mapStatus(s status) model.GameStatus {
	if s.Type.Name == statusHalftime {
		return model.StatusHalftime
	}
	if s.Type.Completed {
		return model.StatusFinished
	}
	switch s.Type.State {
	case stateIn:
		return model.StatusInProgress
	case statePost:
		return model.StatusFinished
	default:
		return model.StatusScheduled
	}
}

func parseTime(raw string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func mapStats(teams []boxscoreTeam) map[string]model.TeamStats {
	if len(teams) == 0 {
		return nil
	}
	out := make(map[string]model.TeamStats, len(teams))
	for _, bt := range teams {
		key := bt.Team.Abbreviation
		if key == "" {
			key = bt.Team.DisplayName
		}
		line := make(model.TeamStats, len(bt.Statistics))
		for _, s := range bt.Statistics {
			if s.Name != "" {
				line[s.Name] = s.DisplayValue
			}
		}
		out[key] = line
	}
	return out
}

// teamMatches does a case-insensitive substring match on display and short names.
func teamMatches(t team, q string) bool {
	return strings.Contains(strings.ToLower(t.DisplayName), q) ||
		strings.Contains(strings.ToLower(t.ShortDisplayName), q)
}
