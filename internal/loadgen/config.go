// Package loadgen drives a running pulse server with concurrent generated
// requests and checks that matches were persisted.
package loadgen

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"
)

// Worker configuration constants.
const (
	workerChannelMultiplier = 2
	historyLimit            = 100
)

var (
	// ErrInvalidConfig is returned when Run is given unusable settings.
	ErrInvalidConfig = errors.New("invalid load test config")
	// ErrUnhealthy is returned when the target fails its health check.
	ErrUnhealthy = errors.New("service health check failed")
)

// Config holds configuration for a load test run.
type Config struct {
	BaseURL     string        // Base URL of the service
	Requests    int           // Number of pulse requests to send
	Workers     int           // Number of concurrent workers
	Users       int           // Distinct user ids
	Timeout     time.Duration // HTTP request timeout
	SettleDelay time.Duration // Wait before reading back history
	Seed        int64         // Seed for request generation

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// DefaultConfig returns settings suitable for a local server.
func DefaultConfig() Config {
	return Config{
		BaseURL:     "http://localhost:9080",
		Requests:    1000,
		Workers:     runtime.NumCPU() * 2,
		Users:       50,
		Timeout:     10 * time.Second,
		SettleDelay: 500 * time.Millisecond,
		Seed:        1,
	}
}

func (c *Config) validate() error {
	c.BaseURL = strings.TrimSuffix(strings.TrimSpace(c.BaseURL), "/")
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: url must not be empty", ErrInvalidConfig)
	case c.Requests < 1:
		return fmt.Errorf("%w: requests must be positive", ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case c.Users < 1:
		return fmt.Errorf("%w: users must be positive", ErrInvalidConfig)
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	return nil
}
