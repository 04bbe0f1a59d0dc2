// Package espn reads games and box scores from ESPN's public site API.
package espn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/okian/pulse/internal/adapters/content"
	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/pkg/logger"
	"github.com/okian/pulse/pkg/metrics"
)

// Config controls how the client reaches ESPN.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	// Leagues searched by FindGamesByTeam. Defaults to every supported league.
	Leagues []model.League
	// Logger receives per-league failures. Defaults to a no-op logger.
	Logger logger.Logger
}

// Client implements content.Service over the ESPN scoreboard and summary endpoints.
type Client struct {
	baseURL    string
	httpClient httpDoer
	leagues    []model.League
	log        logger.Logger
}

var _ content.Service = (*Client)(nil)

// NewClient constructs an ESPN client.
func NewClient(cfg Config) *Client {
	leagues := cfg.Leagues
	if len(leagues) == 0 {
		leagues = append([]model.League(nil), model.Leagues...)
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		baseURL:    normalizeBaseURL(cfg.BaseURL),
		httpClient: resolveHTTPClient(cfg.HTTPClient),
		leagues:    leagues,
		log:        log,
	}
}

// GetLiveGames returns today's scoreboard for each league. Leagues that
// fail are skipped; an error is returned only when every league failed.
func (c *Client) GetLiveGames(ctx context.Context, leagues []model.League) ([]model.Game, error) {
	if len(leagues) == 0 {
		leagues = c.leagues
	}
	out := make([]model.Game, 0, 16)
	var errs []error
	for _, l := range leagues {
		games, err := c.scoreboard(ctx, l)
		if err != nil {
			errs = append(errs, c.leagueFailed(ctx, "scoreboard", l, err))
			continue
		}
		out = append(out, games...)
	}
	if len(errs) == len(leagues) && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func (c *Client) leagueFailed(ctx context.Context, op string, l model.League, err error) error {
	c.log.Warn(ctx, "espn league unavailable",
		logger.String("operation", op),
		logger.String("league", string(l)),
		logger.Error(err),
	)
	metrics.RecordErrorByComponent("espn", "league_unavailable")
	return err
}

// GetGameWithStats fetches the summary for one game.
func (c *Client) GetGameWithStats(ctx context.Context, id string) (*model.GameWithStats, error) {
	league, eventID, err := splitGameID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", content.ErrNotFound, err)
	}
	path, ok := sportPaths[league]
	if !ok {
		return nil, fmt.Errorf("%w: %s", content.ErrUnsupportedLeague, league)
	}

	var payload summaryResponse
	q := url.Values{"event": []string{eventID}}
	if err := c.getJSON(ctx, path+"/summary", q, &payload); err != nil {
		return nil, err
	}
	if len(payload.Header.Competitions) == 0 {
		return nil, fmt.Errorf("%w: %s", content.ErrNotFound, id)
	}

	comp := payload.Header.Competitions[0]
	var st status
	if comp.Status != nil {
		st = *comp.Status
	}
	eid := payload.Header.ID
	if eid == "" {
		eid = eventID
	}
	g, ok := mapCompetition(league, eid, comp.Date, st, comp.Competitors)
	if !ok {
		return nil, fmt.Errorf("%w: %s", content.ErrNotFound, id)
	}
	return &model.GameWithStats{Game: g, Stats: mapStats(payload.Boxscore.Teams)}, nil
}

// FindGamesByTeam scans today's scoreboards for games involving the team.
// Like GetLiveGames it tolerates individual league failures.
func (c *Client) FindGamesByTeam(ctx context.Context, teamName string) ([]model.Game, error) {
	q := strings.ToLower(strings.TrimSpace(teamName))
	if q == "" {
		return []model.Game{}, nil
	}

	out := make([]model.Game, 0, 1)
	var errs []error
	for _, l := range c.leagues {
		events, err := c.events(ctx, l)
		if err != nil {
			errs = append(errs, c.leagueFailed(ctx, "find_team", l, err))
			continue
		}
		for _, e := range events {
			if len(e.Competitions) == 0 {
				continue
			}
			hit := false
			for _, cp := range e.Competitions[0].Competitors {
				if teamMatches(cp.Team, q) {
					hit = true
					break
				}
			}
			if !hit {
				continue
			}
			if g, ok := mapEvent(l, e); ok {
				out = append(out, g)
			}
		}
	}
	if len(errs) == len(c.leagues) && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func (c *Client) scoreboard(ctx context.Context, league model.League) ([]model.Game, error) {
	events, err := c.events(ctx, league)
	if err != nil {
		return nil, err
	}
	games := make([]model.Game, 0, len(events))
	for _, e := range events {
		if g, ok := mapEvent(league, e); ok {
			games = append(games, g)
		}
	}
	return games, nil
}

func (c *Client) events(ctx context.Context, league model.League) ([]event, error) {
	path, ok := sportPaths[league]
	if !ok {
		return nil, fmt.Errorf("%w: %s", content.ErrUnsupportedLeague, league)
	}
	var payload scoreboardResponse
	if err := c.getJSON(ctx, path+"/scoreboard", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Events, nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, dst any) error {
	endpoint := c.baseURL + "/" + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", content.ErrUpstream, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", content.ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", content.ErrNotFound, path)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return fmt.Errorf("%w: espn: unexpected status %d: %s", content.ErrUpstream, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: espn: empty body", content.ErrUpstream)
		}
		return fmt.Errorf("%w: espn: decode: %w", content.ErrUpstream, err)
	}
	return nil
}
