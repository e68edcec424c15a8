package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/peerlink/backend/internal/domain"
)

func TestDocStage(t *testing.T) {
	tests := []struct {
		name string
		doc  profileDoc
		want domain.Stage
	}{
		{"numbered", profileDoc{StageKind: "numbered", StageNumber: 2, StageNumbered: true},
			domain.Stage{Kind: domain.StageNumbered, N: 2, Numbered: true}},
		{"numbered without flag", profileDoc{StageKind: "numbered", StageNumber: 3},
			domain.Stage{Kind: domain.StageNumbered, N: 3, Numbered: true}},
		{"survivor with stage", profileDoc{StageKind: "survivor", StageNumber: 2, StageNumbered: true},
			domain.Stage{Kind: domain.StageSurvivor, N: 2, Numbered: true}},
		{"survivor years only", profileDoc{StageKind: "survivor", StageNumber: 5},
			domain.Stage{Kind: domain.StageSurvivor, N: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, docStage(tt.doc))
		})
	}
}
