// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/okian/pulse/internal/domain/model"
)

const (
	defaultHistoryLimit = 20
	defaultMaxLimit     = 100
	defaultMaxBodyBytes = 8 << 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Resolve returns the best-guess game, or nil when nothing matched.
	Resolve(ctx context.Context, req model.PulseRequest) (*model.PulseResult, error)

	// Read operations expose stored pulse entries.
	History(ctx context.Context, userID string, limit int) ([]model.PulseEntry, error)
	Entry(ctx context.Context, id string) (model.PulseEntry, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	pulseHandler   *PulseHandler
	historyHandler *HistoryHandler
}

// Option configures the Server.
type Option func(*serverConfig)

type serverConfig struct {
	maxLimit     int
	maxBodyBytes int64
}

// WithMaxLimit caps the limit accepted by the history endpoint.
func WithMaxLimit(n int) Option {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxLimit = n
		}
	}
}

// WithMaxBodyBytes caps the size of a pulse request body.
func WithMaxBodyBytes(n int64) Option {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxBodyBytes = n
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	cfg := serverConfig{maxLimit: defaultMaxLimit, maxBodyBytes: defaultMaxBodyBytes}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		pulseHandler:   NewPulseHandler(deps, cfg.maxBodyBytes),
		historyHandler: NewHistoryHandler(deps, cfg.maxLimit),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("/metrics", s.healthHandler.MetricsHandler())
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/pulse", MetricsMiddleware(s.pulseHandler.HandlePostPulse, "pulse"))
	mux.HandleFunc("/pulse/history", MetricsMiddleware(s.historyHandler.HandleGetHistory, "history"))
	mux.HandleFunc("/pulse/entries/", MetricsMiddleware(s.historyHandler.HandleGetEntry, "entry"))
}

// pulseRequest mirrors the OpenAPI schema for POST /pulse. Audio is base64
// in JSON.
type pulseRequest struct {
	UserID          string   `json:"user_id"`
	FavoriteTeams   []string `json:"favorite_teams"`
	FavoriteLeagues []string `json:"favorite_leagues"`
	Timestamp       string   `json:"timestamp"`
	Audio           []byte   `json:"audio"`
}

func (p pulseRequest) toModel() (model.PulseRequest, error) {
	opts := []model.RequestOption{
		model.WithUser(strings.TrimSpace(p.UserID)),
		model.WithFavoriteTeams(p.FavoriteTeams...),
		model.WithAudio(p.Audio),
	}

	leagues := make([]model.League, 0, len(p.FavoriteLeagues))
	for _, raw := range p.FavoriteLeagues {
		l, err := model.ParseLeague(raw)
		if err != nil {
			return model.PulseRequest{}, err
		}
		leagues = append(leagues, l)
	}
	opts = append(opts, model.WithFavoriteLeagues(leagues...))

	if strings.TrimSpace(p.Timestamp) != "" {
		ts, err := time.Parse(time.RFC3339, p.Timestamp)
		if err != nil {
			return model.PulseRequest{}, errors.New("invalid timestamp; must be RFC3339")
		}
		opts = append(opts, model.WithTimestamp(ts))
	}
	return model.NewPulseRequest(opts...), nil
}

type pulseResponse struct {
	Matched bool               `json:"matched"`
	Result  *model.PulseResult `json:"result"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func badRequest(err error) error {
	return fmt.Errorf("%w: %w", ErrBadRequest, err)
}
