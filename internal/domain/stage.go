package domain

import (
	"regexp"
	"strconv"
	"strings"
)

// StageKind classifies a free-text stage descriptor.
type StageKind string

const (
	StageUnknown  StageKind = "unknown"
	StageNumbered StageKind = "numbered"
	StageSurvivor StageKind = "survivor"
)

var stageNumberRe = regexp.MustCompile(`\d+`)

// Stage is the parsed form of a stage descriptor. Kind is survivor whenever a
// survivor marker is present, even if a stage is also named. Numbered records
// that the descriptor names a stage; N is then the first number in it.
type Stage struct {
	Kind     StageKind `json:"kind"`
	N        int       `json:"n,omitempty"`
	Numbered bool      `json:"numbered,omitempty"`
}

// ParseStage classifies a descriptor such as "Stage 2" or
// "5 years survivor". "Stage 2, 5 years out" is a survivor that still
// carries stage 2.
func ParseStage(descriptor string) Stage {
	lower := strings.ToLower(strings.TrimSpace(descriptor))
	if lower == "" {
		return Stage{Kind: StageUnknown}
	}

	n, hasNumber := firstNumber(lower)
	numbered := strings.Contains(lower, "stage") && hasNumber

	switch {
	case strings.Contains(lower, "survivor") || strings.Contains(lower, "year"):
		return Stage{Kind: StageSurvivor, N: n, Numbered: numbered}
	case numbered:
		return Stage{Kind: StageNumbered, N: n, Numbered: true}
	}
	return Stage{Kind: StageUnknown}
}

func firstNumber(s string) (int, bool) {
	m := stageNumberRe.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

// StageMatch reports which stage rule two stages satisfy, if any.
// Two survivors match regardless of years. Otherwise two descriptors naming
// the same stage number match, survivor or not.
func StageMatch(a, b Stage) (survivors bool, sameStage bool) {
	if a.Kind == StageSurvivor && b.Kind == StageSurvivor {
		return true, false
	}
	if a.Numbered && b.Numbered && a.N == b.N {
		return false, true
	}
	return false, false
}
