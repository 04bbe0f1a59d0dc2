package service

import (
	"time"

	"github.com/okian/pulse/internal/adapters/content"
	"github.com/okian/pulse/internal/adapters/repository"
	"github.com/okian/pulse/internal/domain/acr"
	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/internal/domain/scoring"
	"github.com/okian/pulse/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithRegistry sets the ACR provider registry.
func WithRegistry(r *acr.Registry) Option {
	return func(s *Service) {
		if r != nil {
			s.registry = r
		}
	}
}

// WithScorer replaces the heuristic scorer.
func WithScorer(sc scoring.Scorer) Option {
	return func(s *Service) {
		if sc != nil {
			s.scorer = sc
		}
	}
}

// WithContent sets the content retrieval service.
func WithContent(c content.Service) Option {
	return func(s *Service) {
		if c != nil {
			s.content = c
		}
	}
}

// WithStore sets the event store. The service closes it on Stop.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithSink bypasses the internal queue and worker pool and submits entries
// to sink directly.
func WithSink(sink Sink) Option {
	return func(s *Service) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithResolveTimeout bounds one Resolve call, ACR and heuristic together.
func WithResolveTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.resolveTimeout = d
		}
	}
}

// WithProviderTimeout bounds each ACR provider call.
func WithProviderTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.providerTimeout = d
		}
	}
}

// WithPersistTimeout bounds each event store write.
func WithPersistTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.persistTimeout = d
		}
	}
}

// WithStopTimeout bounds how long Stop waits for pending writes.
func WithStopTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.stopTimeout = d
		}
	}
}

// WithACRThreshold sets the confidence an ACR result must exceed.
func WithACRThreshold(t float64) Option {
	return func(s *Service) {
		if t > 0 && t < 1 {
			s.threshold = t
		}
	}
}

// WithDefaultLeagues sets the leagues used when a request names none.
func WithDefaultLeagues(leagues ...model.League) Option {
	return func(s *Service) {
		if len(leagues) > 0 {
			s.defaultLeagues = append([]model.League(nil), leagues...)
		}
	}
}

// WithWorkerCount sets the number of persistence workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the persistence queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}
