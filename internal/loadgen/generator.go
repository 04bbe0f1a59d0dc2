package loadgen

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/okian/pulse/internal/domain/model"
)

// Knobs for generated traffic.
const (
	audioShare      = 0.3
	favoriteShare   = 0.7
	maxFavorites    = 2
	maxLeagues      = 3
	audioClipLength = 64
)

//nolint:gochecknoglobals // read-only sample data
var sampleTeams = []string{
	"Seahawks", "Texans", "Chiefs", "Bills",
	"Celtics", "Lakers", "Warriors", "Heat",
	"Yankees", "Red Sox",
}

// Request mirrors the POST /pulse body.
type Request struct {
	UserID          string   `json:"user_id"`
	FavoriteTeams   []string `json:"favorite_teams,omitempty"`
	FavoriteLeagues []string `json:"favorite_leagues,omitempty"`
	Timestamp       string   `json:"timestamp"`
	Audio           []byte   `json:"audio,omitempty"`
}

// generate builds n requests spread over users. The same seed yields the
// same requests apart from the per-run user prefix.
func generate(cfg Config, now time.Time) []Request {
	rng := rand.New(rand.NewPCG(uint64(cfg.Seed), uint64(cfg.Seed)^0x9e3779b97f4a7c15)) //nolint:gosec // load shaping, not security

	run := uuid.NewString()[:8]
	users := make([]string, cfg.Users)
	for i := range users {
		users[i] = fmt.Sprintf("lg-%s-%03d", run, i)
	}

	out := make([]Request, cfg.Requests)
	for i := range out {
		r := Request{
			UserID:    users[i%len(users)],
			Timestamp: now.UTC().Format(time.RFC3339),
		}
		if rng.Float64() < favoriteShare {
			for range 1 + rng.IntN(maxFavorites) {
				r.FavoriteTeams = append(r.FavoriteTeams, sampleTeams[rng.IntN(len(sampleTeams))])
			}
		}
		for _, idx := range rng.Perm(len(model.Leagues))[:1+rng.IntN(maxLeagues)] {
			r.FavoriteLeagues = append(r.FavoriteLeagues, string(model.Leagues[idx]))
		}
		if rng.Float64() < audioShare {
			clip := make([]byte, audioClipLength)
			for j := range clip {
				clip[j] = byte(rng.UintN(256))
			}
			r.Audio = clip
		}
		out[i] = r
	}
	return out
}
