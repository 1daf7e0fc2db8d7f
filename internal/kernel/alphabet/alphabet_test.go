package alphabet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildShort(t *testing.T) {
	m := Build("abca")
	require.False(t, m.Long)

	assert.Equal(t, BitMask(1|1<<3), m.MaskFor('a'))
	assert.Equal(t, BitMask(1<<1), m.MaskFor('b'))
	assert.Equal(t, BitMask(1<<2), m.MaskFor('c'))
	assert.Equal(t, BitMask(0), m.MaskFor('z'))
	assert.Nil(t, m.PositionsFor('a'))
}

func TestBuildLong(t *testing.T) {
	token := strings.Repeat("x", Width+1)
	m := Build(token)
	require.True(t, m.Long)

	positions := m.PositionsFor('x')
	require.Len(t, positions, Width+2)
	assert.Equal(t, Sentinel, positions[len(positions)-1])
	assert.Equal(t, BitMask(0), m.MaskFor('x'))
}

func TestBuildLongMissingChar(t *testing.T) {
	token := strings.Repeat("a", Width+1)
	m := Build(token)
	assert.Nil(t, m.PositionsFor('z'))
}

func TestWidthBoundary(t *testing.T) {
	atWidth := Build(strings.Repeat("a", Width))
	assert.False(t, atWidth.Long)

	overWidth := Build(strings.Repeat("a", Width+1))
	assert.True(t, overWidth.Long)
}
