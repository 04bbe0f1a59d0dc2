package espn

import (
	"net/http"
	"strings"

	"github.com/okian/pulse/internal/domain/model"
)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

func resolveHTTPClient(client *http.Client) httpDoer {
	if client != nil {
		return client
	}
	return &http.Client{Timeout: defaultHTTPTimeout}
}

func normalizeBaseURL(raw string) string {
	if raw == "" {
		raw = defaultBaseURL
	}
	return strings.TrimSuffix(raw, "/")
}

// sportPaths maps leagues onto ESPN's sport/league URL segments.
var sportPaths = map[model.League]string{ //nolint:gochecknoglobals // read-only lookup
	model.LeagueNFL: "football/nfl",
	model.LeagueNBA: "basketball/nba",
	model.LeagueMLB: "baseball/mlb",
	model.LeagueNHL: "hockey/nhl",
}
