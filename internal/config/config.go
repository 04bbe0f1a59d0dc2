// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers defaults, an optional YAML file and PULSE_* env vars.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"runtime"
	"time"
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Content sources.
const (
	ContentFixture = "fixture"
	ContentESPN    = "espn"
)

// Fingerprint seeds the fingerprint ACR provider. Exactly one of GameID or
// TeamName is expected; GameID wins when both are set.
type Fingerprint struct {
	Hash       string  `koanf:"hash"`
	GameID     string  `koanf:"game_id"`
	TeamName   string  `koanf:"team_name"`
	League     string  `koanf:"league"`
	Confidence float64 `koanf:"confidence"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// ResolveTimeoutMS bounds ACR + heuristic resolution for one request.
	ResolveTimeoutMS int `koanf:"resolve_timeout_ms"`

	// ProviderTimeoutMS bounds a single ACR provider call.
	ProviderTimeoutMS int `koanf:"provider_timeout_ms"`

	// PersistTimeoutMS bounds a single event store write.
	PersistTimeoutMS int `koanf:"persist_timeout_ms"`

	// ACRThreshold is the exclusive lower bound for accepting an ACR result.
	ACRThreshold float64 `koanf:"acr_threshold"`

	// QueueSize bounds the in-memory persistence queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of persistence workers.
	WorkerCount int `koanf:"worker_count"`

	// StoreDriver selects the event store: memory or sqlite.
	StoreDriver string `koanf:"store_driver"`

	// StorePath is the sqlite database file.
	StorePath string `koanf:"store_path"`

	// ContentSource selects the content retrieval backend: fixture or espn.
	ContentSource string `koanf:"content_source"`

	// ESPNBaseURL overrides the ESPN site API root.
	ESPNBaseURL string `koanf:"espn_base_url"`

	// ContentRetryAttempts and ContentRetryBackoffMS tune content retries.
	ContentRetryAttempts  int `koanf:"content_retry_attempts"`
	ContentRetryBackoffMS int `koanf:"content_retry_backoff_ms"`

	// RemoteACRURL enables the remote recognition provider when set.
	RemoteACRURL string `koanf:"remote_acr_url"`

	// Fingerprints seeds the fingerprint provider; empty disables it.
	Fingerprints []Fingerprint `koanf:"fingerprints"`

	// DefaultLeagues are used when a request names no leagues.
	DefaultLeagues []string `koanf:"default_leagues"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		ResolveTimeoutMS:      2000,
		ProviderTimeoutMS:     800,
		PersistTimeoutMS:      5000,
		ACRThreshold:          0.7,
		QueueSize:             10_000,
		WorkerCount:           runtime.NumCPU(),
		StoreDriver:           StoreMemory,
		StorePath:             "pulse.sqlite3",
		ContentSource:         ContentFixture,
		ESPNBaseURL:           "https://site.api.espn.com/apis/site/v2/sports",
		ContentRetryAttempts:  3,
		ContentRetryBackoffMS: 200,
		DefaultLeagues:        []string{"NFL", "NBA"},
	}
}

// ResolveTimeout returns ResolveTimeoutMS as a duration.
func (c *Config) ResolveTimeout() time.Duration {
	return time.Duration(c.ResolveTimeoutMS) * time.Millisecond
}

// ProviderTimeout returns ProviderTimeoutMS as a duration.
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.ProviderTimeoutMS) * time.Millisecond
}

// PersistTimeout returns PersistTimeoutMS as a duration.
func (c *Config) PersistTimeout() time.Duration {
	return time.Duration(c.PersistTimeoutMS) * time.Millisecond
}

// ContentRetryBackoff returns ContentRetryBackoffMS as a duration.
func (c *Config) ContentRetryBackoff() time.Duration {
	return time.Duration(c.ContentRetryBackoffMS) * time.Millisecond
}
