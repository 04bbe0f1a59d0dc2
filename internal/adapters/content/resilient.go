package content

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/pkg/logger"
	"github.com/okian/pulse/pkg/metrics"
)

const (
	defaultRetryAttempts = 3
	defaultRetryBackoff  = 200 * time.Millisecond
	maxRetryBackoff      = 2 * time.Second
)

// Resilient wraps a Service with retries. Unknown games and unsupported
// leagues are not retried. When every attempt fails, GetLiveGames degrades
// to an empty slice so callers reach "no match" instead of failing.
type Resilient struct {
	inner    Service
	log      logger.Logger
	attempts int
	backoff  time.Duration
}

// ResilientOption configures a Resilient service.
type ResilientOption func(*Resilient)

// WithRetryAttempts sets the total number of attempts per call.
func WithRetryAttempts(n int) ResilientOption {
	return func(r *Resilient) {
		if n > 0 {
			r.attempts = n
		}
	}
}

// WithRetryBackoff sets the initial backoff between attempts.
func WithRetryBackoff(d time.Duration) ResilientOption {
	return func(r *Resilient) {
		if d > 0 {
			r.backoff = d
		}
	}
}

// WithResilientLogger sets the logger.
func WithResilientLogger(l logger.Logger) ResilientOption {
	return func(r *Resilient) {
		if l != nil {
			r.log = l
		}
	}
}

// NewResilient wraps inner with retry behavior.
func NewResilient(inner Service, opts ...ResilientOption) *Resilient {
	r := &Resilient{
		inner:    inner,
		attempts: defaultRetryAttempts,
		backoff:  defaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Named("content")
	}
	return r
}

// GetLiveGames retries the inner call and degrades to an empty slice.
func (r *Resilient) GetLiveGames(ctx context.Context, leagues []model.League) ([]model.Game, error) {
	var games []model.Game
	err := r.retry(ctx, "get_live_games", func() error {
		var err error
		games, err = r.inner.GetLiveGames(ctx, leagues)
		return err
	})
	if err != nil {
		r.log.Warn(ctx, "live games unavailable, degrading to empty candidate set",
			logger.Int("attempts", r.attempts),
			logger.Error(err),
		)
		return []model.Game{}, nil
	}
	if games == nil {
		games = []model.Game{}
	}
	return games, nil
}

// GetGameWithStats retries the inner call.
func (r *Resilient) GetGameWithStats(ctx context.Context, gameID string) (*model.GameWithStats, error) {
	var gws *model.GameWithStats
	err := r.retry(ctx, "get_game_with_stats", func() error {
		var err error
		gws, err = r.inner.GetGameWithStats(ctx, gameID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return gws, nil
}

// FindGamesByTeam retries the inner call.
func (r *Resilient) FindGamesByTeam(ctx context.Context, teamName string) ([]model.Game, error) {
	var games []model.Game
	err := r.retry(ctx, "find_games_by_team", func() error {
		var err error
		games, err = r.inner.FindGamesByTeam(ctx, teamName)
		return err
	})
	if err != nil {
		return nil, err
	}
	return games, nil
}

func (r *Resilient) retry(ctx context.Context, op string, fn func() error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.backoff
	eb.MaxInterval = maxRetryBackoff
	eb.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(r.attempts-1)), ctx) //nolint:gosec // attempts is positive

	attempt := 0
	operation := func() error {
		attempt++
		err := fn()
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnsupportedLeague) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		r.log.Debug(ctx, "content call retry",
			logger.String("operation", op),
			logger.Int("attempt", attempt),
			logger.Duration("wait", wait),
			logger.Error(err),
		)
	}

	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		metrics.RecordContentCall(op, metrics.OutcomeError)
		return err
	}
	metrics.RecordContentCall(op, metrics.OutcomeOK)
	return nil
}
