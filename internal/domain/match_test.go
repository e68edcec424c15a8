package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore_ConcreteScenario(t *testing.T) {
	requester := &Profile{
		ID:                "req",
		Role:              RoleSeeker,
		PrimaryCategory:   "Breast Cancer",
		SecondaryCategory: "Chemotherapy",
		SupportTags:       []string{"Peer Support", "Spiritual"},
	}
	x := &Profile{
		ID:                "x",
		Role:              RoleSupporter,
		PrimaryCategory:   "Breast Cancer",
		SecondaryCategory: "Chemotherapy",
		SupportTags:       []string{"Peer Support"},
	}
	y := &Profile{ID: "y", Role: RoleSupporter, PrimaryCategory: "Lung Cancer"}

	got := Score(requester, x)
	assert.Equal(t, 110, got.Score)
	assert.Equal(t, []string{"same primary category", "same secondary category", "1 support match"}, got.Reasons)

	got = Score(requester, y)
	assert.Equal(t, 0, got.Score)
	assert.Empty(t, got.Reasons)
	assert.Equal(t, TierOther, TierFor(requester, y))
}

func TestScore_Deterministic(t *testing.T) {
	a := &Profile{
		PrimaryCategory: "Lymphoma",
		SupportTags:     []string{"Nutrition", "Exercise"},
		Interests:       []string{"Hiking", "Jazz"},
		AgeBracket:      "30-39",
		StageDescriptor: "Stage 3",
		Recurrence:      "none",
	}
	b := &Profile{
		PrimaryCategory: "Lymphoma",
		SupportTags:     []string{"Exercise", "Nutrition"},
		Interests:       []string{"jazz piano", "hiking trips"},
		AgeBracket:      "30-39",
		StageDescriptor: "stage 3",
		Recurrence:      "none",
	}

	first := Score(a, b)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Score(a, b))
	}
	assert.Equal(t, []string{
		ReasonPrimaryCategory,
		"2 support matches",
		"2 shared interests",
		ReasonSimilarAge,
		ReasonSameStage,
		ReasonRecurrence,
	}, first.Reasons)
	assert.Equal(t, 50+20+6+10+10+10, first.Score)
}

func TestScore_PrimaryOnly(t *testing.T) {
	a := &Profile{PrimaryCategory: "Leukemia"}
	b := &Profile{PrimaryCategory: "Leukemia", SecondaryCategory: "Radiation"}
	assert.Equal(t, 50, Score(a, b).Score)

	a.SecondaryCategory = "Radiation"
	assert.Equal(t, 100, Score(a, b).Score)
}

func TestScore_EmptyRequesterFieldsNeverMatch(t *testing.T) {
	a := &Profile{}
	b := &Profile{}
	got := Score(a, b)
	assert.Equal(t, 0, got.Score)
	assert.Empty(t, got.Reasons)
}

func TestScore_Caps(t *testing.T) {
	tags := []string{"a", "b", "c", "d", "e", "f", "g"}
	interests := []string{"music", "art", "film", "books", "yoga"}

	got := Score(&Profile{SupportTags: tags, Interests: interests}, &Profile{SupportTags: tags, Interests: interests})
	assert.Equal(t, SupportTagCap+InterestCap, got.Score)
	assert.Equal(t, []string{"7 support matches", "5 shared interests"}, got.Reasons)
}

func TestScore_DuplicateRequesterTagsCountOnce(t *testing.T) {
	got := Score(
		&Profile{SupportTags: []string{"Meals", "Meals"}},
		&Profile{SupportTags: []string{"Meals"}},
	)
	assert.Equal(t, SupportTagPoints, got.Score)
	assert.Equal(t, []string{"1 support match"}, got.Reasons)
}

func TestInterestOverlap(t *testing.T) {
	tests := []struct {
		name   string
		mine   []string
		theirs []string
		want   int
	}{
		{"exact", []string{"Gardening"}, []string{"gardening"}, 1},
		{"mine contains theirs", []string{"Jazz music"}, []string{"jazz"}, 1},
		{"theirs contains mine", []string{"art"}, []string{"Modern Art"}, 1},
		{"counted once per requester interest", []string{"run"}, []string{"running", "trail run"}, 1},
		{"no match", []string{"chess"}, []string{"tennis"}, 0},
		{"blank ignored", []string{" "}, []string{"tennis"}, 0},
		{"empty", nil, []string{"tennis"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, interestOverlap(tt.mine, tt.theirs))
		})
	}
}

func TestScore_StageRules(t *testing.T) {
	tests := []struct {
		name   string
		a, b   string
		reason string
	}{
		{"both survivors regardless of years", "5 years survivor", "Survivor 2 years", ReasonBothSurvivors},
		{"same numbered stage", "Stage 2", "stage 2", ReasonSameStage},
		{"different numbered stage", "Stage 2", "Stage 3", ""},
		{"survivor vs numbered", "3 years", "Stage 3", ""},
		{"staged survivor vs same stage", "Stage 2, 5 years since diagnosis", "Stage 2", ReasonSameStage},
		{"staged survivor vs other stage", "Stage 2, 5 years since diagnosis", "Stage 4", ""},
		{"unknown", "early", "early", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(&Profile{StageDescriptor: tt.a}, &Profile{StageDescriptor: tt.b})
			if tt.reason == "" {
				assert.Equal(t, 0, got.Score)
				return
			}
			assert.Equal(t, StagePoints, got.Score)
			assert.Equal(t, []string{tt.reason}, got.Reasons)
		})
	}
}
