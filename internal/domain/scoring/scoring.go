// Package scoring ranks candidate games against a user's context and turns
// the best one into a bounded confidence and a readable reason.
package scoring

import (
	"math"
	"strings"
	"time"

	"github.com/okian/pulse/internal/domain/model"
)

// Time windows and thresholds used by the additive score.
const (
	imminentWindow  = 30 * time.Minute
	upcomingWindow  = 60 * time.Minute
	closeGameMargin = 7
)

// Confidence normalization constants.
const (
	scoreNormalizer      = 80.0
	baseScale            = 0.8
	singleCandidateBonus = 0.2
	crowdedCandidates    = 5
	candidateBonusStep   = 0.04
	// MaxConfidence caps heuristic confidence so exact-match results keep the top band.
	MaxConfidence = 0.95
)

// Reason clauses, in the order they are reported.
const (
	ReasonLive     = "Game is currently live"
	ReasonHalftime = "Game is at halftime"
	ReasonFavorite = "Matches your favorite team"
	// ReasonFallback is used when no clause applies.
	ReasonFallback = "Best available match based on current time."
)

// Weights are the additive contributions of each condition.
type Weights struct {
	Live      int
	Halftime  int
	Imminent  int
	Upcoming  int
	Favorite  int
	CloseGame int
}

// DefaultWeights returns the production weights.
func DefaultWeights() Weights {
	return Weights{
		Live:      50,
		Halftime:  45,
		Imminent:  30,
		Upcoming:  15,
		Favorite:  30,
		CloseGame: 10,
	}
}

// Input abstracts the context needed for ranking.
type Input struct {
	Games         []model.Game
	FavoriteTeams []string
	Timestamp     time.Time
}

// Candidate is the winning game with its score, confidence and reason.
type Candidate struct {
	Game       model.Game
	Score      int
	Confidence float64
	Reason     string
	// Total is the number of games that were ranked.
	Total int
}

// Scorer picks the single most likely game for an input.
type Scorer interface {
	// Rank returns the best candidate, or false when no game scores above zero.
	Rank(in Input) (Candidate, bool)
}

// Option applies a configuration option to the HeuristicScorer.
type Option func(*HeuristicScorer)

// WithWeights overrides the additive weights.
func WithWeights(w Weights) Option {
	return func(s *HeuristicScorer) {
		s.weights = w
	}
}

// HeuristicScorer implements Scorer with deterministic additive scoring.
type HeuristicScorer struct {
	weights Weights
}

// NewHeuristicScorer creates a scorer with default weights.
func NewHeuristicScorer(opts ...Option) *HeuristicScorer {
	s := &HeuristicScorer{weights: DefaultWeights()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score computes the additive score of one game.
func (s *HeuristicScorer) Score(game model.Game, favoriteTeams []string, ts time.Time) int {
	w := s.weights
	score := 0

	switch game.Status {
	case model.StatusInProgress:
		score += w.Live
		if game.Score != nil && game.Score.Margin() <= closeGameMargin {
			score += w.CloseGame
		}
	case model.StatusHalftime:
		score += w.Halftime
	case model.StatusScheduled:
		delta := absDuration(game.StartTime.Sub(ts))
		switch {
		case delta < imminentWindow:
			score += w.Imminent
		case delta < upcomingWindow:
			score += w.Upcoming
		}
	}

	if MatchesFavorite(game, favoriteTeams) {
		score += w.Favorite
	}
	return score
}

// Rank scores every game and returns the best one. Ties are broken by game
// id ascending so the outcome does not depend on the order the content
// service returned the games in.
func (s *HeuristicScorer) Rank(in Input) (Candidate, bool) {
	bestIdx, bestScore := -1, 0
	for i, g := range in.Games {
		sc := s.Score(g, in.FavoriteTeams, in.Timestamp)
		if sc <= 0 {
			continue
		}
		if bestIdx < 0 || sc > bestScore || (sc == bestScore && g.ID < in.Games[bestIdx].ID) {
			bestIdx, bestScore = i, sc
		}
	}
	if bestIdx < 0 {
		return Candidate{}, false
	}

	best := in.Games[bestIdx]
	return Candidate{
		Game:       best,
		Score:      bestScore,
		Confidence: Confidence(bestScore, len(in.Games)),
		Reason:     Reason(best, in.FavoriteTeams),
		Total:      len(in.Games),
	}, true
}

// Confidence normalizes a winning score into [0, MaxConfidence]. Fewer
// candidates earn a bonus since the guess is less ambiguous.
func Confidence(maxScore, totalCandidates int) float64 {
	base := math.Min(float64(maxScore)/scoreNormalizer, 1) * baseScale

	var bonus float64
	if totalCandidates == 1 {
		bonus = singleCandidateBonus
	} else {
		bonus = math.Max(0, float64(crowdedCandidates-totalCandidates)*candidateBonusStep)
	}

	return math.Max(0, math.Min(base+bonus, MaxConfidence))
}

// Reason describes why a game was chosen. Never empty.
func Reason(game model.Game, favoriteTeams []string) string {
	clauses := make([]string, 0, 3)
	add := func(c string) {
		for _, existing := range clauses {
			if existing == c {
				return
			}
		}
		clauses = append(clauses, c)
	}

	switch game.Status {
	case model.StatusInProgress:
		add(ReasonLive)
	case model.StatusHalftime:
		add(ReasonHalftime)
	}
	if MatchesFavorite(game, favoriteTeams) {
		add(ReasonFavorite)
	}

	if len(clauses) == 0 {
		return ReasonFallback
	}
	return strings.Join(clauses, ". ") + "."
}

// MatchesFavorite reports whether either team name contains one of the
// favorites, case-insensitively. Blank favorites never match.
func MatchesFavorite(game model.Game, favoriteTeams []string) bool {
	home := strings.ToLower(game.HomeTeam.Name)
	away := strings.ToLower(game.AwayTeam.Name)
	for _, fav := range favoriteTeams {
		f := strings.ToLower(strings.TrimSpace(fav))
		if f == "" {
			continue
		}
		if strings.Contains(home, f) || strings.Contains(away, f) {
			return true
		}
	}
	return false
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
