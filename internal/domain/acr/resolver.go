package acr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/pkg/logger"
	"github.com/okian/pulse/pkg/metrics"
)

const (
	// DefaultThreshold is the exclusive lower bound for accepting a result.
	DefaultThreshold = 0.7
	// DefaultProviderTimeout bounds one provider call.
	DefaultProviderTimeout = 800 * time.Millisecond
	// MatchReason is reported for every ACR-sourced result.
	MatchReason = "ACR match"
)

// Resolver walks the registry in order and returns the first provider hit
// that clears the threshold and resolves to a known game.
type Resolver struct {
	registry        *Registry
	games           GameSource
	log             logger.Logger
	threshold       float64
	providerTimeout time.Duration
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithThreshold sets the acceptance threshold. Values outside (0,1) are ignored.
func WithThreshold(t float64) ResolverOption {
	return func(r *Resolver) {
		if t > 0 && t < 1 {
			r.threshold = t
		}
	}
}

// WithProviderTimeout bounds each provider call.
func WithProviderTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d > 0 {
			r.providerTimeout = d
		}
	}
}

// WithResolverLogger sets the logger.
func WithResolverLogger(l logger.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// NewResolver creates a resolver over a registry and a game source.
func NewResolver(registry *Registry, games GameSource, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		registry:        registry,
		games:           games,
		threshold:       DefaultThreshold,
		providerTimeout: DefaultProviderTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Named("acr")
	}
	return r
}

// Threshold returns the acceptance threshold in use.
func (r *Resolver) Threshold() float64 { return r.threshold }

// Resolve tries every provider in registration order. Provider errors,
// panics and timeouts are logged and skipped. It returns false when no
// provider produced a resolvable match above the threshold.
func (r *Resolver) Resolve(ctx context.Context, audio []byte) (*model.PulseResult, bool) {
	if len(audio) == 0 {
		return nil, false
	}

	for _, p := range r.registry.Providers() {
		if ctx.Err() != nil {
			return nil, false
		}

		name := p.Name()
		res, err := r.call(ctx, p, audio)
		if err != nil {
			outcome := metrics.OutcomeError
			if errors.Is(err, ErrProviderPanic) {
				outcome = metrics.OutcomePanic
			}
			metrics.RecordProviderAttempt(name, outcome)
			metrics.RecordErrorByComponent("acr", outcome)
			r.log.Warn(ctx, "acr provider failed",
				logger.String("provider", name),
				logger.Error(err),
			)
			continue
		}
		if res == nil {
			metrics.RecordProviderAttempt(name, metrics.OutcomeNoMatch)
			continue
		}
		if res.Confidence <= r.threshold {
			metrics.RecordProviderAttempt(name, metrics.OutcomeLowConf)
			r.log.Debug(ctx, "acr result below threshold",
				logger.String("provider", name),
				logger.Float64("confidence", res.Confidence),
			)
			continue
		}

		game, err := r.resolve(ctx, res.Match)
		if err != nil {
			metrics.RecordProviderAttempt(name, metrics.OutcomeUnresolve)
			r.log.Warn(ctx, "acr match did not resolve",
				logger.String("provider", name),
				logger.Error(err),
			)
			continue
		}

		metrics.RecordProviderAttempt(name, metrics.OutcomeMatch)
		r.log.Info(ctx, "acr match",
			logger.String("provider", name),
			logger.String("gameId", game.ID),
			logger.Float64("confidence", res.Confidence),
		)
		return &model.PulseResult{
			GameID:      game.ID,
			Confidence:  res.Confidence,
			Game:        *game,
			MatchReason: MatchReason,
			Source:      model.SourceACR,
		}, true
	}
	return nil, false
}

type callResult struct {
	res *Result
	err error
}

// call runs one provider under its own deadline. A provider that ignores
// ctx is abandoned once the deadline passes.
func (r *Resolver) call(ctx context.Context, p Provider, audio []byte) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, r.providerTimeout)
	defer cancel()

	start := time.Now()
	done := make(chan callResult, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- callResult{err: fmt.Errorf("%w: %v", ErrProviderPanic, rec)}
			}
		}()
		res, err := p.MatchAudio(ctx, audio)
		done <- callResult{res: res, err: err}
	}()

	select {
	case out := <-done:
		metrics.RecordProviderLatency(p.Name(), float64(time.Since(start).Milliseconds()))
		return out.res, out.err
	case <-ctx.Done():
		metrics.RecordProviderLatency(p.Name(), float64(time.Since(start).Milliseconds()))
		return nil, ctx.Err()
	}
}

func (r *Resolver) resolve(ctx context.Context, m Match) (*model.GameWithStats, error) {
	switch m := m.(type) {
	case ByGameID:
		if strings.TrimSpace(m.GameID) == "" {
			return nil, ErrMalformedResult
		}
		gws, err := r.games.GetGameWithStats(ctx, m.GameID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrUnresolved, m.GameID, err)
		}
		if gws == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnresolved, m.GameID)
		}
		return gws, nil

	case ByTeamName:
		if strings.TrimSpace(m.TeamName) == "" {
			return nil, ErrMalformedResult
		}
		games, err := r.games.FindGamesByTeam(ctx, m.TeamName)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrUnresolved, m.TeamName, err)
		}
		if len(games) == 0 {
			return nil, fmt.Errorf("%w: no game for team %q", ErrUnresolved, m.TeamName)
		}
		pick := pickGame(games, m.League)
		gws, err := r.games.GetGameWithStats(ctx, pick.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrUnresolved, pick.ID, err)
		}
		if gws == nil {
			return &model.GameWithStats{Game: pick}, nil
		}
		return gws, nil

	default:
		return nil, ErrMalformedResult
	}
}

// pickGame prefers the first game in the requested league.
func pickGame(games []model.Game, league model.League) model.Game {
	if league != "" {
		for _, g := range games {
			if g.League == league {
				return g
			}
		}
	}
	return games[0]
}
