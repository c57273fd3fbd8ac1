package partdetection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageOrder(t *testing.T) {
	t.Parallel()

	order := []Stage{
		StageNotStarted, StageFindingProject, StageUploadingImages, StageTraining,
		StageExporting, StageTrained, StageDeploying, StageDeployed,
	}
	for i, s := range order {
		assert.Equal(t, i, s.Ordinal(), s.String())
		if i+1 < len(order) {
			next, ok := s.Next()
			require.True(t, ok, s.String())
			assert.Equal(t, order[i+1], next)
		}
	}
	assert.Equal(t, -1, StageFailed.Ordinal())
	assert.Equal(t, "FINDING_PROJECT", StageFindingProject.String())
	assert.Equal(t, "Finding project", StageFindingProject.Log())
}

func TestStageTerminal(t *testing.T) {
	t.Parallel()

	assert.True(t, StageDeployed.IsTerminal())
	assert.True(t, StageFailed.IsTerminal())
	assert.False(t, StageTrained.IsTerminal())

	_, ok := StageDeployed.Next()
	assert.False(t, ok)
	_, ok = StageFailed.Next()
	assert.False(t, ok)
}

func TestStageReached(t *testing.T) {
	t.Parallel()

	assert.True(t, StageTrained.Reached(StageTrained))
	assert.True(t, StageDeploying.Reached(StageTrained))
	assert.False(t, StageExporting.Reached(StageTrained))
	assert.False(t, StageFailed.Reached(StageTrained))
}

func TestCanTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to Stage
		want     bool
	}{
		{StageNotStarted, StageFindingProject, true},
		{StageFindingProject, StageUploadingImages, true},
		{StageUploadingImages, StageTrained, true},
		{StageTrained, StageTraining, false},
		{StageTraining, StageFailed, true},
		{StageDeployed, StageFailed, false},
		{StageFailed, StageTrained, false},
		{StageFailed, StageFindingProject, true},
		{StageDeployed, StageFindingProject, true},
		{StageTraining, StageTraining, false},
		{Stage(42), StageTrained, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestParseStage(t *testing.T) {
	t.Parallel()

	s, err := ParseStage("DEPLOYING")
	require.NoError(t, err)
	assert.Equal(t, StageDeploying, s)

	_, err = ParseStage("BAKING")
	require.Error(t, err)
	assert.Equal(t, "Stage(42)", Stage(42).String())
}
