// Package fingerprint recognizes audio clips by exact SHA-256 lookup in a
// registered fingerprint index.
package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"sync"

	"github.com/okian/pulse/internal/domain/acr"
	"github.com/okian/pulse/pkg/logger"
)

const (
	// DefaultName is the provider name used in logs and metrics.
	DefaultName = "fingerprint"
	// DefaultConfidence is reported for entries registered without one.
	DefaultConfidence = 0.95
)

// ErrInvalidEntry is returned when a fingerprint cannot be registered.
var ErrInvalidEntry = errors.New("fingerprint: invalid entry")

type entry struct {
	match      acr.Match
	confidence float64
}

// Provider is an acr.Provider backed by an in-memory index.
type Provider struct {
	mu    sync.RWMutex
	index map[string]entry
	name  string
	log   logger.Logger
}

var _ acr.Provider = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider)

// WithName overrides the provider name.
func WithName(name string) Option {
	return func(p *Provider) {
		if name != "" {
			p.name = name
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.log = l
		}
	}
}

// New creates an empty provider.
func New(opts ...Option) *Provider {
	p := &Provider{
		index: make(map[string]entry),
		name:  DefaultName,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logger.Named("acr.fingerprint")
	}
	return p
}

// Hash returns the hex SHA-256 of an audio payload, the key used by the index.
func Hash(audio []byte) string {
	sum := sha256.Sum256(audio)
	return hex.EncodeToString(sum[:])
}

// Register maps a fingerprint hash to a match. A non-positive confidence
// falls back to DefaultConfidence. Re-registering a hash replaces it.
func (p *Provider) Register(hash string, match acr.Match, confidence float64) error {
	hash = strings.ToLower(strings.TrimSpace(hash))
	if hash == "" || match == nil {
		return ErrInvalidEntry
	}
	if confidence <= 0 {
		confidence = DefaultConfidence
	}

	p.mu.Lock()
	p.index[hash] = entry{match: match, confidence: confidence}
	p.mu.Unlock()

	p.log.Debug(context.Background(), "registered fingerprint",
		logger.String("hash", short(hash)),
		logger.Float64("confidence", confidence),
	)
	return nil
}

// Len returns the number of registered fingerprints.
func (p *Provider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.index)
}

// Name implements acr.Provider.
func (p *Provider) Name() string { return p.name }

// MatchAudio implements acr.Provider. Unknown clips yield (nil, nil).
func (p *Provider) MatchAudio(ctx context.Context, audio []byte) (*acr.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hash := Hash(audio)

	p.mu.RLock()
	e, ok := p.index[hash]
	p.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	return &acr.Result{
		Match:      e.match,
		Confidence: e.confidence,
		Metadata:   map[string]string{"hash": hash},
	}, nil
}

func short(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
