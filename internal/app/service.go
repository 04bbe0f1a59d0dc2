// Package service wires the pulse matcher: ACR providers first, the
// heuristic scorer as fallback, and fire-and-forget persistence of every
// match.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/pulse/internal/adapters/content"
	"github.com/okian/pulse/internal/adapters/content/fixture"
	eventqueue "github.com/okian/pulse/internal/adapters/mq/queue"
	workerpool "github.com/okian/pulse/internal/adapters/mq/worker"
	"github.com/okian/pulse/internal/adapters/repository"
	"github.com/okian/pulse/internal/domain/acr"
	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/internal/domain/scoring"
	"github.com/okian/pulse/pkg/logger"
	"github.com/okian/pulse/pkg/metrics"
)

const (
	defaultResolveTimeout = 2 * time.Second
	defaultPersistTimeout = 5 * time.Second
	defaultStopTimeout    = 10 * time.Second
	defaultWorkerCount    = 2
	defaultQueueSize      = 10_000
)

// Sink accepts entries for asynchronous persistence. Submit must not block
// on the store.
type Sink interface {
	Submit(ctx context.Context, e model.PulseEntry) error
}

// Service resolves pulse requests to a single best-guess game.
type Service struct {
	mu sync.RWMutex

	// Core components
	registry *acr.Registry
	resolver *acr.Resolver
	scorer   scoring.Scorer
	content  content.Service
	store    repository.Store
	queue    eventqueue.Queue
	pool     *workerpool.Pool
	sink     Sink

	// Configuration
	resolveTimeout  time.Duration
	providerTimeout time.Duration
	persistTimeout  time.Duration
	stopTimeout     time.Duration
	threshold       float64
	defaultLeagues  []model.League
	workerCount     int
	queueSize       int

	// State
	started  bool
	stopped  bool
	external bool

	// Counters
	acrMatches       atomic.Int64
	heuristicMatches atomic.Int64
	noMatches        atomic.Int64
	failures         atomic.Int64
	dropped          atomic.Int64

	logger logger.Logger
}

// New constructs a Service. Without options it serves fixture games, keeps
// entries in memory and has no ACR providers.
func New(opts ...Option) *Service {
	s := &Service{
		resolveTimeout:  defaultResolveTimeout,
		providerTimeout: acr.DefaultProviderTimeout,
		persistTimeout:  defaultPersistTimeout,
		stopTimeout:     defaultStopTimeout,
		threshold:       acr.DefaultThreshold,
		defaultLeagues:  model.DefaultLeagues(),
		workerCount:     defaultWorkerCount,
		queueSize:       defaultQueueSize,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Named("pulse")
	}
	if s.registry == nil {
		s.registry = acr.NewRegistry()
	}
	if s.scorer == nil {
		s.scorer = scoring.NewHeuristicScorer()
	}
	if s.content == nil {
		s.content = fixture.New()
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	s.external = s.sink != nil

	s.resolver = acr.NewResolver(s.registry, s.content,
		acr.WithThreshold(s.threshold),
		acr.WithProviderTimeout(s.providerTimeout),
		acr.WithResolverLogger(s.logger.Named("acr")),
	)
	return s
}

// Start creates the persistence queue and starts its workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting pulse service...")

	if !s.external {
		s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
		s.pool = workerpool.NewPool(s.workerCount, s.queue, s.store,
			workerpool.WithPoolSaveTimeout(s.persistTimeout),
			workerpool.WithPoolLogger(s.logger.Named("persist")),
		)
		// Workers outlive the request that started them.
		s.pool.Start(context.WithoutCancel(ctx))
		s.sink = s.pool
	}

	s.started = true
	s.logger.Info(ctx, "pulse service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("providers", s.registry.Len()),
		logger.Float64("acrThreshold", s.resolver.Threshold()),
	)
	return nil
}

// Stop drains pending writes and closes the store. A stopped service
// cannot be started again.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping pulse service...")

	if s.pool != nil {
		if err := s.pool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "persistence drain incomplete", logger.Error(err))
		}
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "closing store failed", logger.Error(err))
	}

	s.started = false
	s.stopped = true
	s.logger.Info(ctx, "pulse service stopped")
}

// RegisterProvider adds an ACR provider. Providers are tried in
// registration order.
func (s *Service) RegisterProvider(p acr.Provider) {
	s.registry.Register(p)
}

// Resolve guesses the game the request is watching. A nil result with a nil
// error means no candidate scored above zero. Only a failing content
// service surfaces as an error; provider and persistence failures are
// logged and absorbed.
func (s *Service) Resolve(ctx context.Context, req model.PulseRequest) (*model.PulseResult, error) { //nolint:gocritic // hugeParam: requests travel by value
	start := time.Now()
	defer func() {
		metrics.RecordResolveLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if req.Timestamp.IsZero() {
		req.Timestamp = start
	}
	if len(req.FavoriteLeagues) == 0 {
		req.FavoriteLeagues = s.defaultLeagues
	}

	rctx, cancel := context.WithTimeout(ctx, s.resolveTimeout)
	defer cancel()

	if req.HasAudio() {
		if res, ok := s.resolver.Resolve(rctx, req.Audio); ok {
			s.acrMatches.Add(1)
			metrics.RecordResolution(metrics.PathACR)
			metrics.RecordConfidence(metrics.PathACR, res.Confidence)
			s.persist(ctx, req, res)
			return res, nil
		}
	}

	res, err := s.heuristic(rctx, req)
	switch {
	case err != nil:
		s.failures.Add(1)
		metrics.RecordResolution(metrics.PathError)
		metrics.RecordErrorByComponent("content", "unavailable")
		return nil, err
	case res == nil:
		s.noMatches.Add(1)
		metrics.RecordResolution(metrics.PathNone)
		s.logger.Debug(ctx, "no candidate game",
			logger.String("userId", req.UserID),
			logger.Any("leagues", req.FavoriteLeagues),
		)
		return nil, nil
	}

	s.heuristicMatches.Add(1)
	metrics.RecordResolution(metrics.PathHeuristic)
	metrics.RecordConfidence(metrics.PathHeuristic, res.Confidence)
	s.persist(ctx, req, res)
	return res, nil
}

func (s *Service) heuristic(ctx context.Context, req model.PulseRequest) (*model.PulseResult, error) { //nolint:gocritic // hugeParam: requests travel by value
	games, err := s.content.GetLiveGames(ctx, req.FavoriteLeagues)
	if err != nil {
		return nil, fmt.Errorf("%w: live games: %w", ErrContentUnavailable, err)
	}

	cand, ok := s.scorer.Rank(scoring.Input{
		Games:         games,
		FavoriteTeams: req.FavoriteTeams,
		Timestamp:     req.Timestamp,
	})
	if !ok {
		return nil, nil
	}
	metrics.RecordHeuristicScore(cand.Score)

	// Stats are fetched for the winner only.
	// Box scores are enrichment only; any failure falls back to the bare game.
	gws, err := s.content.GetGameWithStats(ctx, cand.Game.ID)
	switch {
	case errors.Is(err, content.ErrNotFound):
		s.logger.Debug(ctx, "winner has no stats, using bare game", logger.String("gameId", cand.Game.ID))
		gws = nil
	case err != nil:
		s.logger.Warn(ctx, "stats lookup failed, using bare game",
			logger.String("gameId", cand.Game.ID),
			logger.Error(err),
		)
		metrics.RecordErrorByComponent("content", "stats_unavailable")
		gws = nil
	}
	if gws == nil {
		gws = &model.GameWithStats{Game: cand.Game}
	}

	s.logger.Debug(ctx, "heuristic match",
		logger.String("gameId", cand.Game.ID),
		logger.Int("score", cand.Score),
		logger.Int("candidates", cand.Total),
		logger.Float64("confidence", cand.Confidence),
	)

	return &model.PulseResult{
		GameID:      cand.Game.ID,
		Confidence:  cand.Confidence,
		Game:        *gws,
		MatchReason: cand.Reason,
		Source:      model.SourceHeuristic,
	}, nil
}

// persist hands the entry to the sink. The result has already been decided,
// so failures here are only logged.
func (s *Service) persist(ctx context.Context, req model.PulseRequest, res *model.PulseResult) { //nolint:gocritic // hugeParam: requests travel by value
	entry := model.NewPulseEntry(req, *res)

	s.mu.RLock()
	sink, started := s.sink, s.started
	s.mu.RUnlock()

	var err error
	if !started || sink == nil {
		err = ErrNotStarted
		metrics.RecordPersistResult(metrics.PersistDropped)
	} else {
		err = sink.Submit(context.WithoutCancel(ctx), entry)
	}
	if err != nil {
		s.dropped.Add(1)
		s.logger.Warn(ctx, "pulse entry not persisted",
			logger.String("entryId", entry.ID),
			logger.String("gameId", entry.GameID),
			logger.Error(err),
		)
	}
}

// History returns the newest entries of a user. An empty userID lists
// anonymous entries.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]model.PulseEntry, error) {
	return s.store.ListByUser(ctx, userID, limit)
}

// Entry returns one stored entry.
func (s *Service) Entry(ctx context.Context, id string) (model.PulseEntry, error) {
	return s.store.Get(ctx, id)
}

// Providers returns the names of registered providers in order.
func (s *Service) Providers() []string {
	ps := s.registry.Providers()
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.Name()
	}
	return names
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":      s.started,
		"workerCount":  s.workerCount,
		"queueSize":    s.queueSize,
		"providers":    s.registry.Len(),
		"acrThreshold": s.resolver.Threshold(),
		"resolutions": map[string]int64{
			metrics.PathACR:       s.acrMatches.Load(),
			metrics.PathHeuristic: s.heuristicMatches.Load(),
			metrics.PathNone:      s.noMatches.Load(),
			metrics.PathError:     s.failures.Load(),
		},
		"persistDropped": s.dropped.Load(),
	}

	if s.started {
		stored := s.store.Count(ctx)
		stats["storedEntries"] = stored
		metrics.UpdateStoredEntries(stored)

		if s.queue != nil {
			queueLen := s.queue.Len(ctx)
			stats["queueLength"] = queueLen
			metrics.UpdateQueueSize(queueLen)
		}
		if s.pool != nil {
			stats["persisted"] = s.pool.Processed()
			stats["persistFailed"] = s.pool.Failed()
		}
	}

	return stats
}
