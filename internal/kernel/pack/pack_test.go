package pack

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarkitMedical/FuzzySearch/internal/kernel/alphabet"
)

func TestPackFitsTokensIntoOneGroup(t *testing.T) {
	groups := Pack([]string{"uni", "versity"})
	require.Len(t, groups, 1)

	g := groups[0]
	require.Len(t, g.Lanes, 2)
	assert.Equal(t, "uni", g.Lanes[0].Token)
	assert.Equal(t, 0, g.Lanes[0].Offset)
	assert.Equal(t, "versity", g.Lanes[1].Token)
	assert.Equal(t, 3, g.Lanes[1].Offset)
	assert.False(t, g.Long)
}

func TestPackSpillsIntoNewGroupWhenFull(t *testing.T) {
	a := strings.Repeat("a", 20)
	b := strings.Repeat("b", 20)
	groups := Pack([]string{a, b})

	require.Len(t, groups, 2)
	assert.Len(t, groups[0].Lanes, 1)
	assert.Len(t, groups[1].Lanes, 1)
	assert.Equal(t, 0, groups[1].Lanes[0].Offset)
}

func TestPackSoloLongToken(t *testing.T) {
	long := strings.Repeat("x", alphabet.Width+5)
	groups := Pack([]string{"hi", long})

	require.Len(t, groups, 2)
	assert.False(t, groups[0].Long)
	assert.True(t, groups[1].Long)
	assert.Len(t, groups[1].Lanes, 1)
	assert.Equal(t, long, groups[1].Lanes[0].Token)
	assert.True(t, groups[1].Map.Long)
}

func TestPackGateExcludesLaneTopBit(t *testing.T) {
	groups := Pack([]string{"ab", "cd"})
	require.Len(t, groups, 1)

	g := groups[0]
	// Lane 0 ("ab") occupies bits 0-1; its gate should cover bit 0 only.
	assert.Equal(t, alphabet.BitMask(1), g.Gate&0b11)
	// Lane 1 ("cd") occupies bits 2-3; its gate should cover bit 2 only.
	assert.Equal(t, alphabet.BitMask(1<<2), g.Gate&(0b11<<2))
}

func TestPackEmptyInput(t *testing.T) {
	assert.Empty(t, Pack(nil))
	assert.Empty(t, Pack([]string{}))
}
