package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/pulse/internal/adapters/acr/fingerprint"
	"github.com/okian/pulse/internal/adapters/acr/remote"
	"github.com/okian/pulse/internal/adapters/content"
	"github.com/okian/pulse/internal/adapters/content/espn"
	"github.com/okian/pulse/internal/adapters/content/fixture"
	"github.com/okian/pulse/internal/adapters/repository"
	app "github.com/okian/pulse/internal/app"
	"github.com/okian/pulse/internal/config"
	"github.com/okian/pulse/internal/domain/acr"
	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/pkg/logger"
)

// buildService assembles the matcher from configuration. The caller owns
// Start and Stop; Stop also closes the store.
func buildService(ctx context.Context, cfg *config.Config) (*app.Service, error) {
	log := logger.Get()

	leagues, err := parseLeagues(cfg.DefaultLeagues)
	if err != nil {
		return nil, fmt.Errorf("default_leagues: %w", err)
	}

	registry := acr.NewRegistry(acr.WithRegistryLogger(log.Named("acr")))
	if err := registerProviders(registry, cfg); err != nil {
		return nil, err
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	svc := app.New(
		app.WithLogger(log.Named("pulse")),
		app.WithRegistry(registry),
		app.WithContent(newContent(cfg, leagues)),
		app.WithStore(store),
		app.WithResolveTimeout(cfg.ResolveTimeout()),
		app.WithProviderTimeout(cfg.ProviderTimeout()),
		app.WithPersistTimeout(cfg.PersistTimeout()),
		app.WithACRThreshold(cfg.ACRThreshold),
		app.WithDefaultLeagues(leagues...),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
	)

	log.Info(ctx, "pulse service assembled",
		logger.String("content", cfg.ContentSource),
		logger.String("store", cfg.StoreDriver),
		logger.Any("providers", svc.Providers()),
	)
	return svc, nil
}

func parseLeagues(raw []string) ([]model.League, error) {
	out := make([]model.League, 0, len(raw))
	for _, s := range raw {
		l, err := model.ParseLeague(s)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

func openStore(cfg *config.Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		st, err := repository.NewSQLiteStore(cfg.StorePath,
			repository.WithSQLiteLogger(logger.Named("store.sqlite")),
		)
		if err != nil {
			return nil, fmt.Errorf("opening event store: %w", err)
		}
		return st, nil
	default:
		return repository.NewMemoryStore(), nil
	}
}

func newContent(cfg *config.Config, leagues []model.League) content.Service {
	var inner content.Service
	switch cfg.ContentSource {
	case config.ContentESPN:
		inner = espn.NewClient(espn.Config{
			BaseURL:    cfg.ESPNBaseURL,
			HTTPClient: &http.Client{Timeout: cfg.ResolveTimeout()},
			Leagues:    leagues,
			Logger:     logger.Named("content.espn"),
		})
	default:
		inner = fixture.New()
	}
	return content.NewResilient(inner,
		content.WithRetryAttempts(cfg.ContentRetryAttempts),
		content.WithRetryBackoff(cfg.ContentRetryBackoff()),
		content.WithResilientLogger(logger.Named("content")),
	)
}

// registerProviders adds providers in a fixed order: the local fingerprint
// index first, then the remote service.
func registerProviders(registry *acr.Registry, cfg *config.Config) error {
	if len(cfg.Fingerprints) > 0 {
		fp := fingerprint.New(fingerprint.WithLogger(logger.Named("acr.fingerprint")))
		for i, f := range cfg.Fingerprints {
			match, err := fingerprintMatch(f)
			if err != nil {
				return fmt.Errorf("fingerprints[%d]: %w", i, err)
			}
			if err := fp.Register(f.Hash, match, f.Confidence); err != nil {
				return fmt.Errorf("fingerprints[%d]: %w", i, err)
			}
		}
		registry.Register(fp)
	}

	if url := strings.TrimSpace(cfg.RemoteACRURL); url != "" {
		registry.Register(remote.New(remote.Config{
			BaseURL:    url,
			HTTPClient: &http.Client{Timeout: cfg.ProviderTimeout()},
		}))
	}
	return nil
}

func fingerprintMatch(f config.Fingerprint) (acr.Match, error) {
	if f.GameID != "" {
		return acr.ByGameID{GameID: f.GameID}, nil
	}
	var league model.League
	if f.League != "" {
		l, err := model.ParseLeague(f.League)
		if err != nil {
			return nil, err
		}
		league = l
	}
	return acr.ByTeamName{TeamName: f.TeamName, League: league}, nil
}
