package domain

import (
	"fmt"
	"strings"
)

// Factor weights. The tag and interest caps are independent of each other.
const (
	PrimaryCategoryPoints   = 50
	SecondaryCategoryPoints = 50
	SupportTagPoints        = 10
	SupportTagCap           = 50
	InterestPoints          = 3
	InterestCap             = 10
	AgeBracketPoints        = 10
	StagePoints             = 10
	RecurrencePoints        = 10
)

const (
	ReasonPrimaryCategory   = "same primary category"
	ReasonSecondaryCategory = "same secondary category"
	ReasonSimilarAge        = "similar age"
	ReasonBothSurvivors     = "both survivors"
	ReasonSameStage         = "same stage"
	ReasonRecurrence        = "similar recurrence history"
)

// MatchResult is computed per (requester, candidate) pair and never persisted.
type MatchResult struct {
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
}

// Score computes the compatibility of candidate for requester. Factors are
// evaluated in a fixed order so the reasons list is deterministic.
func Score(requester, candidate *Profile) MatchResult {
	result := MatchResult{Reasons: []string{}}

	if primaryMatches(requester, candidate) {
		result.add(PrimaryCategoryPoints, ReasonPrimaryCategory)
	}

	if secondaryMatches(requester, candidate) {
		result.add(SecondaryCategoryPoints, ReasonSecondaryCategory)
	}

	if n := tagOverlap(requester.SupportTags, candidate.SupportTags); n > 0 {
		result.add(min(SupportTagCap, n*SupportTagPoints), plural(n, "support match", "support matches"))
	}

	if n := interestOverlap(requester.Interests, candidate.Interests); n > 0 {
		result.add(min(InterestCap, n*InterestPoints), plural(n, "shared interest", "shared interests"))
	}

	if requester.AgeBracket != "" && requester.AgeBracket == candidate.AgeBracket {
		result.add(AgeBracketPoints, ReasonSimilarAge)
	}

	survivors, sameStage := StageMatch(requester.ParsedStage(), candidate.ParsedStage())
	switch {
	case survivors:
		result.add(StagePoints, ReasonBothSurvivors)
	case sameStage:
		result.add(StagePoints, ReasonSameStage)
	}

	if requester.Recurrence != "" && requester.Recurrence == candidate.Recurrence {
		result.add(RecurrencePoints, ReasonRecurrence)
	}

	return result
}

func (r *MatchResult) add(points int, reason string) {
	r.Score += points
	r.Reasons = append(r.Reasons, reason)
}

func primaryMatches(requester, candidate *Profile) bool {
	return requester.PrimaryCategory != "" && requester.PrimaryCategory == candidate.PrimaryCategory
}

func secondaryMatches(requester, candidate *Profile) bool {
	return requester.SecondaryCategory != "" && requester.SecondaryCategory == candidate.SecondaryCategory
}

// tagOverlap counts distinct requester tags present in the candidate's tags.
func tagOverlap(needs, offers []string) int {
	if len(needs) == 0 || len(offers) == 0 {
		return 0
	}
	offered := make(map[string]struct{}, len(offers))
	for _, o := range offers {
		offered[o] = struct{}{}
	}

	seen := make(map[string]struct{}, len(needs))
	count := 0
	for _, n := range needs {
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		if _, ok := offered[n]; ok {
			count++
		}
	}
	return count
}

// interestOverlap counts requester interests that are a case-insensitive
// substring of some candidate interest, or contain one.
func interestOverlap(mine, theirs []string) int {
	if len(mine) == 0 || len(theirs) == 0 {
		return 0
	}

	count := 0
	for _, a := range mine {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" {
			continue
		}
		for _, b := range theirs {
			b = strings.ToLower(strings.TrimSpace(b))
			if b == "" {
				continue
			}
			if strings.Contains(a, b) || strings.Contains(b, a) {
				count++
				break
			}
		}
	}
	return count
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}
