package domain

import (
	"context"
	"sort"

	"go.uber.org/zap"
)

// Tier is a presentation bucket derived from category equality, not from score.
type Tier string

const (
	TierBest  Tier = "best"
	TierGood  Tier = "good"
	TierOther Tier = "other"
)

// RankedCandidate is one scored candidate.
type RankedCandidate struct {
	Profile *Profile `json:"profile"`
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
	Tier    Tier     `json:"tier"`
}

// Tiers groups a ranked list for presentation. Each bucket keeps score order.
type Tiers struct {
	Best  []RankedCandidate `json:"best"`
	Good  []RankedCandidate `json:"good"`
	Other []RankedCandidate `json:"other"`
}

// MatchService ranks candidates of the opposite role for a requester.
type MatchService struct {
	profiles ProfileRepository
	logger   *zap.Logger
}

func NewMatchService(profiles ProfileRepository, logger *zap.Logger) *MatchService {
	return &MatchService{
		profiles: profiles,
		logger:   logger,
	}
}

// RankCandidates scores every available profile of the opposite role against
// requester and returns them sorted by descending score. Ties keep store order.
func (s *MatchService) RankCandidates(ctx context.Context, requester *Profile) ([]RankedCandidate, error) {
	if requester == nil || !requester.Role.IsValid() {
		return nil, ErrInvalidInput
	}

	targetRole := requester.Role.Opposite()
	candidates, err := s.profiles.ListProfilesByRole(ctx, targetRole)
	if err != nil {
		return nil, err
	}

	ranked := make([]RankedCandidate, 0, len(candidates))
	for _, c := range candidates {
		if !c.IsAvailable() || c.ID == requester.ID {
			continue
		}
		result := Score(requester, c)
		ranked = append(ranked, RankedCandidate{
			Profile: c,
			Score:   result.Score,
			Reasons: result.Reasons,
			Tier:    TierFor(requester, c),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	tiers := GroupByTier(ranked)
	s.logger.Debug("ranked candidates",
		zap.String("requester_id", requester.ID),
		zap.String("target_role", string(targetRole)),
		zap.Int("total", len(ranked)),
		zap.Int("best", len(tiers.Best)),
		zap.Int("good", len(tiers.Good)),
		zap.Int("other", len(tiers.Other)),
	)

	return ranked, nil
}

// RankTiers is RankCandidates followed by GroupByTier.
func (s *MatchService) RankTiers(ctx context.Context, requester *Profile) (*Tiers, error) {
	ranked, err := s.RankCandidates(ctx, requester)
	if err != nil {
		return nil, err
	}
	tiers := GroupByTier(ranked)
	return &tiers, nil
}

// TierFor buckets candidate by raw category equality with requester.
func TierFor(requester, candidate *Profile) Tier {
	if !primaryMatches(requester, candidate) {
		return TierOther
	}
	if secondaryMatches(requester, candidate) {
		return TierBest
	}
	return TierGood
}

// GroupByTier partitions an already sorted list, preserving order within tiers.
func GroupByTier(ranked []RankedCandidate) Tiers {
	tiers := Tiers{
		Best:  []RankedCandidate{},
		Good:  []RankedCandidate{},
		Other: []RankedCandidate{},
	}
	for _, c := range ranked {
		switch c.Tier {
		case TierBest:
			tiers.Best = append(tiers.Best, c)
		case TierGood:
			tiers.Good = append(tiers.Good, c)
		default:
			tiers.Other = append(tiers.Other, c)
		}
	}
	return tiers
}
