// Package acr holds the audio content recognition contract, the ordered
// provider registry and the resolver that turns a provider hit into a game.
package acr

import (
	"context"

	"github.com/okian/pulse/internal/domain/model"
)

// Provider recognizes which game an audio clip belongs to.
//
// MatchAudio returns (nil, nil) when the clip is not recognized. Confidence
// is expected in [0,1] but is not clamped by the resolver.
type Provider interface {
	Name() string
	MatchAudio(ctx context.Context, audio []byte) (*Result, error)
}

// Match identifies the recognized game. It is either ByGameID or ByTeamName.
type Match interface {
	isMatch()
}

// ByGameID points directly at a game.
type ByGameID struct {
	GameID string
}

// ByTeamName points at whatever game the named team is playing. League is
// optional and narrows the lookup when set.
type ByTeamName struct {
	TeamName string
	League   model.League
}

func (ByGameID) isMatch()   {}
func (ByTeamName) isMatch() {}

// Result is a single provider answer.
type Result struct {
	Match      Match
	Confidence float64
	Metadata   map[string]string
}

// GameSource is the slice of the content service the resolver needs.
type GameSource interface {
	GetGameWithStats(ctx context.Context, gameID string) (*model.GameWithStats, error)
	FindGamesByTeam(ctx context.Context, teamName string) ([]model.Game, error)
}
