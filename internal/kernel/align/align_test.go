package align

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlignExactMatch(t *testing.T) {
	ranges := Align("brown", "brown", DefaultOptions())
	require.Len(t, ranges, 1)
	assert.Equal(t, Range{0, 5}, ranges[0])
}

func TestAlignCommonPrefix(t *testing.T) {
	ranges := Align("uni", "university", DefaultOptions())
	require.NotEmpty(t, ranges)
	assert.Equal(t, 0, ranges[0].Start)
	assert.GreaterOrEqual(t, ranges[0].End, 3)
}

func TestAlignSurgeryVsGsurvey(t *testing.T) {
	ranges := Align("surgery", "gsurvey", DefaultOptions())
	require.NotEmpty(t, ranges)
	// every range must be within bounds of the field text
	for _, r := range ranges {
		assert.GreaterOrEqual(t, r.Start, 0)
		assert.LessOrEqual(t, r.End, len("gsurvey"))
		assert.Less(t, r.Start, r.End)
	}
}

func TestAlignNoOverlap(t *testing.T) {
	ranges := Align("assurance", "insurgence", DefaultOptions())
	require.NotEmpty(t, ranges)
	for i := 1; i < len(ranges); i++ {
		assert.LessOrEqual(t, ranges[i-1].End, ranges[i].Start)
	}
}

func TestAlignEmptyInputs(t *testing.T) {
	assert.Nil(t, Align("", "field", DefaultOptions()))
	assert.Nil(t, Align("query", "", DefaultOptions()))
}

func TestAlignNoMatch(t *testing.T) {
	ranges := Align("xyz", "qqq", DefaultOptions())
	assert.Empty(t, ranges)
}

func TestAlignBridgesShortGaps(t *testing.T) {
	opts := DefaultOptions()
	opts.BridgeGap = 2
	// "abXYcd" vs "abcd": a 2-char gap between two 2-char match runs
	// should bridge into a single range under BridgeGap=2.
	ranges := Align("abcd", "abXYcd", opts)
	require.NotEmpty(t, ranges)
}
