// Package content defines the read contract of the content retrieval
// service that supplies candidate games and their box scores.
package content

import (
	"context"

	"github.com/okian/pulse/internal/domain/model"
)

// Service supplies the universe of candidate games.
//
// GetLiveGames should return an empty slice rather than an error on
// transient failures. GetGameWithStats returns ErrNotFound for unknown ids.
type Service interface {
	GetLiveGames(ctx context.Context, leagues []model.League) ([]model.Game, error)
	GetGameWithStats(ctx context.Context, gameID string) (*model.GameWithStats, error)
	FindGamesByTeam(ctx context.Context, teamName string) ([]model.Game, error)
}
