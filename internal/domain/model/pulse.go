package model

import (
	"time"

	"github.com/google/uuid"
)

// MatchSource records which path produced a PulseResult.
type MatchSource string

const (
	SourceACR       MatchSource = "acr"
	SourceHeuristic MatchSource = "heuristic"
)

// PulseRequest carries the weak signals used to guess the game a user is
// watching. It is built once per call and never mutated afterwards.
type PulseRequest struct {
	Audio           []byte
	UserID          string
	FavoriteTeams   []string
	FavoriteLeagues []League
	Timestamp       time.Time
}

// HasAudio reports whether an audio payload was supplied.
func (r PulseRequest) HasAudio() bool { return len(r.Audio) > 0 }

// RequestOption configures a PulseRequest.
type RequestOption func(*PulseRequest)

// WithAudio attaches an opaque audio payload.
func WithAudio(audio []byte) RequestOption {
	return func(r *PulseRequest) { r.Audio = audio }
}

// WithUser sets the requesting user.
func WithUser(userID string) RequestOption {
	return func(r *PulseRequest) { r.UserID = userID }
}

// WithFavoriteTeams sets the favorite team names.
func WithFavoriteTeams(teams ...string) RequestOption {
	return func(r *PulseRequest) { r.FavoriteTeams = append([]string(nil), teams...) }
}

// WithFavoriteLeagues sets the leagues used to fetch candidates. An empty
// list keeps the defaults.
func WithFavoriteLeagues(leagues ...League) RequestOption {
	return func(r *PulseRequest) {
		if len(leagues) > 0 {
			r.FavoriteLeagues = append([]League(nil), leagues...)
		}
	}
}

// WithTimestamp overrides the request time. A zero time keeps "now".
func WithTimestamp(ts time.Time) RequestOption {
	return func(r *PulseRequest) {
		if !ts.IsZero() {
			r.Timestamp = ts
		}
	}
}

// NewPulseRequest builds a request with defaults: leagues {NFL, NBA},
// timestamp now, no favorite teams.
func NewPulseRequest(opts ...RequestOption) PulseRequest {
	r := PulseRequest{
		FavoriteTeams:   []string{},
		FavoriteLeagues: DefaultLeagues(),
		Timestamp:       time.Now(),
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// PulseResult is the single best-guess match returned to the caller.
type PulseResult struct {
	GameID      string        `json:"gameId"`
	Confidence  float64       `json:"confidence"`
	Game        GameWithStats `json:"game"`
	MatchReason string        `json:"matchReason"`
	Source      MatchSource   `json:"source"`
}

// RawMeta is the snapshot of a result stored alongside a PulseEntry.
type RawMeta struct {
	Confidence  float64 `json:"confidence"`
	MatchReason string  `json:"matchReason"`
	Timestamp   string  `json:"timestamp"`
}

// PulseEntry is the append-only audit record of one successful resolution.
type PulseEntry struct {
	ID      string  `json:"id"`
	UserID  *string `json:"userId"`
	GameID  string  `json:"gameId"`
	League  string  `json:"league"`
	RawMeta RawMeta `json:"rawMeta"`
}

// NewPulseEntry snapshots a result for the requesting user. An empty
// UserID is stored as null.
func NewPulseEntry(req PulseRequest, res PulseResult) PulseEntry {
	var userID *string
	if req.UserID != "" {
		u := req.UserID
		userID = &u
	}
	ts := req.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return PulseEntry{
		ID:     uuid.NewString(),
		UserID: userID,
		GameID: res.GameID,
		League: string(res.Game.League),
		RawMeta: RawMeta{
			Confidence:  res.Confidence,
			MatchReason: res.MatchReason,
			Timestamp:   ts.UTC().Format(time.RFC3339),
		},
	}
}
