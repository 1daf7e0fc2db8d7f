package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarkitMedical/FuzzySearch/internal/kernel/kopts"
	"github.com/MarkitMedical/FuzzySearch/internal/kernel/pack"
)

func TestScoreItemUsesCrossFieldMix(t *testing.T) {
	opts := kopts.DefaultOptions()
	groups := pack.Pack([]string{"davinci", "brown"})
	fields := []FieldTokens{
		{Tokens: []string{"davinci", "code"}},
		{Tokens: []string{"dawn", "brown"}},
	}
	fused := 0.0

	res := ScoreItem(groups, fields, &fused, false, opts)
	assert.Greater(t, res.Score, 0.0)
	assert.GreaterOrEqual(t, res.MatchedField, 0)
}

func TestScoreItemSingleTokenSkipsQueryMix(t *testing.T) {
	opts := kopts.DefaultOptions()
	groups := pack.Pack([]string{"brown"})
	fields := []FieldTokens{{Tokens: []string{"brown", "fox"}}}
	fused := 0.0

	res := ScoreItem(groups, fields, &fused, true, opts)
	assert.Greater(t, res.Score, 0.0)
}

func TestScoreItemEarlyExitOnGoodEnoughField(t *testing.T) {
	opts := kopts.DefaultOptions()
	opts.FieldGoodEnough = 0.01
	groups := pack.Pack([]string{"brown"})
	fields := []FieldTokens{
		{Tokens: []string{"brown"}},
		{Tokens: []string{"brown"}},
	}
	fused := 0.0

	res := ScoreItem(groups, fields, &fused, false, opts)
	assert.Equal(t, 0, res.MatchedField)
}

func TestThresholdRisesWithBestScore(t *testing.T) {
	opts := kopts.DefaultOptions()
	opts.ThreshInclude = 1.0
	opts.ThreshRelativeToBest = 0.5
	th := NewThreshold(opts)

	require.True(t, th.Included(10.0))
	// A later score below half of the new best (5.0) must be excluded.
	assert.False(t, th.Included(3.0))
	// A score above the new relative floor is still included.
	assert.True(t, th.Included(6.0))
}

func TestThresholdNeverBelowAbsoluteFloor(t *testing.T) {
	opts := kopts.DefaultOptions()
	opts.ThreshInclude = 2.0
	opts.ThreshRelativeToBest = 0.1
	th := NewThreshold(opts)

	require.True(t, th.Included(3.0))
	// Relative floor (0.3) is below the absolute floor (2.0); the
	// absolute floor still governs.
	assert.False(t, th.Included(2.0))
	assert.True(t, th.Included(2.1))
}
