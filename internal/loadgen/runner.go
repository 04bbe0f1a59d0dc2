package loadgen

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/okian/pulse/pkg/logger"
)

// Report summarises one load test run.
type Report struct {
	Sent             int
	MatchedACR       int
	MatchedHeuristic int
	Unmatched        int
	Failed           int
	// Persisted counts history entries read back for the run's users,
	// capped at the history page size per user.
	Persisted int

	P50      time.Duration
	P95      time.Duration
	Max      time.Duration
	Duration time.Duration
}

// Matched is the number of requests that produced a result.
func (r *Report) Matched() int { return r.MatchedACR + r.MatchedHeuristic }

type sample struct {
	user    string
	outcome outcome
	latency time.Duration
}

// Run checks the target is healthy, submits the generated requests
// concurrently, waits for persistence to settle and reads history back.
func Run(ctx context.Context, cfg Config) (*Report, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log := logger.Named("loadgen")
	log.Info(ctx, "starting pulse load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("requests", cfg.Requests),
		logger.Int("workers", cfg.Workers),
		logger.Int("users", cfg.Users))

	c := newClient(cfg)
	if err := c.health(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	requests := generate(cfg, start)
	samples := submit(ctx, c, cfg.Workers, requests)
	report := summarise(samples)
	report.Duration = time.Since(start)

	if err := ctx.Err(); err != nil {
		return report, err
	}

	log.Info(ctx, "waiting for entries to persist", logger.Duration("settle", cfg.SettleDelay))
	select {
	case <-ctx.Done():
		return report, ctx.Err()
	case <-time.After(cfg.SettleDelay):
	}

	persisted, err := countPersisted(ctx, c, samples)
	if err != nil {
		return report, fmt.Errorf("reading history: %w", err)
	}
	report.Persisted = persisted

	log.Info(ctx, "load test completed",
		logger.Int("matched", report.Matched()),
		logger.Int("failed", report.Failed),
		logger.Int("persisted", report.Persisted),
		logger.Duration("p95", report.P95))
	return report, nil
}

// submit fans requests out to workers and collects one sample per request sent.
func submit(ctx context.Context, c *client, workers int, requests []Request) []sample {
	jobs := make(chan Request, workers*workerChannelMultiplier)
	results := make(chan sample, len(requests))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := range jobs {
				t0 := time.Now()
				o := c.pulse(ctx, r)
				results <- sample{user: r.UserID, outcome: o, latency: time.Since(t0)}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, r := range requests {
			select {
			case <-ctx.Done():
				return
			case jobs <- r:
			}
		}
	}()

	wg.Wait()
	close(results)

	out := make([]sample, 0, len(requests))
	for s := range results {
		out = append(out, s)
	}
	return out
}

func summarise(samples []sample) *Report {
	r := &Report{Sent: len(samples)}
	latencies := make([]time.Duration, 0, len(samples))
	for _, s := range samples {
		latencies = append(latencies, s.latency)
		switch s.outcome {
		case outcomeACR:
			r.MatchedACR++
		case outcomeHeuristic:
			r.MatchedHeuristic++
		case outcomeNone:
			r.Unmatched++
		default:
			r.Failed++
		}
	}
	slices.Sort(latencies)
	r.P50 = percentile(latencies, 0.50)
	r.P95 = percentile(latencies, 0.95)
	if n := len(latencies); n > 0 {
		r.Max = latencies[n-1]
	}
	return r
}

// percentile uses nearest-rank on an ascending slice: the smallest value
// with at least q of the samples at or below it.
func percentile(sorted []time.Duration, q float64) time.Duration {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	// The epsilon keeps q*n from rounding up past an exact rank.
	rank := int(math.Ceil(q*float64(n) - 1e-9))
	return sorted[min(max(rank-1, 0), n-1)]
}

// countPersisted reads history only for users that had at least one match.
func countPersisted(ctx context.Context, c *client, samples []sample) (int, error) {
	matched := map[string]struct{}{}
	for _, s := range samples {
		if s.outcome == outcomeACR || s.outcome == outcomeHeuristic {
			matched[s.user] = struct{}{}
		}
	}
	total := 0
	for user := range matched {
		n, err := c.history(ctx, user, historyLimit)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
