package field

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarkitMedical/FuzzySearch/internal/kernel/kopts"
	"github.com/MarkitMedical/FuzzySearch/internal/kernel/pack"
)

func TestScoreAccumulatesPerLaneBests(t *testing.T) {
	opts := kopts.DefaultOptions()
	groups := pack.Pack([]string{"davinci", "brown"})
	acc := NewAccumulator(groups)
	fused := 0.0

	s := Score(groups, []string{"dawn", "brown"}, "", acc, &fused, opts)
	require.Greater(t, s, 0.0)

	// "brown" matched exactly; its lane best must reflect that.
	found := false
	for _, lb := range acc.Lanes {
		if lb.Score > 0 {
			found = true
		}
	}
	assert.True(t, found)
}

// Property 7: order bonus never increases the field score when
// reversing query token order and all pairwise scores are equal.
func TestOrderBonusNeverIncreasesOnEqualScores(t *testing.T) {
	opts := kopts.DefaultOptions()
	fieldTokens := []string{"aa", "bb"}

	forward := pack.Pack([]string{"aa", "bb"})
	backward := pack.Pack([]string{"bb", "aa"})

	accF := NewAccumulator(forward)
	accB := NewAccumulator(backward)

	sF := Score(forward, fieldTokens, "", accF, new(float64), opts)
	sB := Score(backward, fieldTokens, "", accB, new(float64), opts)

	// Forward order matches the field's token order and can earn the
	// order bonus; the reversed order cannot exceed it.
	assert.GreaterOrEqual(t, sF, sB)
}

func TestScoreFusedFallbackRaisesGlobalMax(t *testing.T) {
	opts := kopts.DefaultOptions()
	opts.ScoreTestFused = true
	groups := pack.Pack([]string{"oldman"})
	acc := NewAccumulator(groups)
	fused := 0.0

	Score(groups, []string{"old", "man"}, "old man", acc, &fused, opts)
	assert.Greater(t, fused, 0.0)
}

func TestNewAccumulatorStartsUnmatched(t *testing.T) {
	groups := pack.Pack([]string{"a", "bb", "ccc"})
	acc := NewAccumulator(groups)

	total := 0
	for _, g := range groups {
		total += len(g.Lanes)
	}
	require.Len(t, acc.Lanes, total)
	for _, lb := range acc.Lanes {
		assert.Equal(t, -1.0, lb.Score)
		assert.Equal(t, -1, lb.FieldTokIdx)
	}
	assert.Equal(t, -1, acc.LastIndex)
}
