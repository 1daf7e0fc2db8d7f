package assign

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bruteForceBest enumerates every partial injective mapping from rows
// to columns (including leaving a row unmatched) and returns the
// maximum summed score achievable under the per-row thresholds. It is
// the ground truth for the assignment optimality property.
func bruteForceBest(c [][]float64, thresholds []float64) float64 {
	m := len(c)
	n := 0
	if m > 0 {
		n = len(c[0])
	}
	used := make([]bool, n)
	var best float64

	var rec func(row int, score float64)
	rec = func(row int, score float64) {
		if row == m {
			if score > best {
				best = score
			}
			return
		}
		rec(row+1, score)
		for j := 0; j < n; j++ {
			if used[j] || c[row][j] < thresholds[row] {
				continue
			}
			used[j] = true
			rec(row+1, score+c[row][j])
			used[j] = false
		}
	}
	rec(0, 0)
	return best
}

// Property 6: assignment optimality against brute force, for matrices
// small enough to enumerate exhaustively.
func TestAssignmentOptimalityVsBruteForce(t *testing.T) {
	cases := []struct {
		name       string
		c          [][]float64
		thresholds []float64
	}{
		{
			name: "square 3x3",
			c: [][]float64{
				{5, 1, 0},
				{1, 5, 2},
				{0, 2, 5},
			},
			thresholds: []float64{1, 1, 1},
		},
		{
			name: "rectangular more rows",
			c: [][]float64{
				{4, 0, 1},
				{0, 4, 1},
				{1, 1, 4},
				{3, 3, 3},
			},
			thresholds: []float64{1, 1, 1, 1},
		},
		{
			name: "ties and zero rows",
			c: [][]float64{
				{2, 2, 0, 0},
				{0, 0, 2, 2},
				{0, 0, 0, 0},
			},
			thresholds: []float64{1, 1, 1},
		},
		{
			name: "8x8 dense",
			c: [][]float64{
				{8, 1, 1, 1, 1, 1, 1, 1},
				{1, 8, 1, 1, 1, 1, 1, 1},
				{1, 1, 8, 1, 1, 1, 1, 1},
				{1, 1, 1, 8, 1, 1, 1, 1},
				{1, 1, 1, 1, 8, 1, 1, 1},
				{1, 1, 1, 1, 1, 8, 1, 1},
				{1, 1, 1, 1, 1, 1, 8, 1},
				{1, 1, 1, 1, 1, 1, 1, 8},
			},
			thresholds: []float64{2, 2, 2, 2, 2, 2, 2, 2},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Solve(tc.c, tc.thresholds)
			want := bruteForceBest(tc.c, tc.thresholds)
			assert.InDelta(t, want, got.Score, 1e-9)
			assertValidMapping(t, got.Mapping, tc.c, tc.thresholds)
		})
	}
}

func assertValidMapping(t *testing.T, mapping []int, c [][]float64, thresholds []float64) {
	t.Helper()
	seen := make(map[int]bool)
	var sum float64
	for i, j := range mapping {
		if j == -1 {
			continue
		}
		require.False(t, seen[j], "column %d used twice", j)
		seen[j] = true
		require.GreaterOrEqual(t, c[i][j], thresholds[i])
		sum += c[i][j]
	}
}

func TestSolveNoQualifyingRows(t *testing.T) {
	c := [][]float64{{0.1, 0.1}, {0.1, 0.1}}
	res := Solve(c, []float64{1, 1})
	assert.Equal(t, []int{-1, -1}, res.Mapping)
	assert.Equal(t, 0.0, res.Score)
}

func TestSolveSingleQualifyingRowPicksBest(t *testing.T) {
	c := [][]float64{
		{0.1, 0.1, 0.1},
		{3.0, 7.0, 2.0},
		{0.1, 0.1, 0.1},
	}
	res := Solve(c, []float64{1, 1, 1})
	assert.Equal(t, []int{-1, 1, -1}, res.Mapping)
	assert.Equal(t, 7.0, res.Score)
}

func TestSolveEmptyMatrix(t *testing.T) {
	res := Solve(nil, nil)
	assert.Nil(t, res.Mapping)
	assert.Equal(t, 0.0, res.Score)
}

func TestSolveMoreRowsThanColumnsFlips(t *testing.T) {
	// 6 rows, 1 column: m-n=5 > flipThreshold(4), forces the
	// transpose-and-solve path.
	c := make([][]float64, 6)
	for i := range c {
		c[i] = []float64{float64(i + 1)}
	}
	thresholds := []float64{0, 0, 0, 0, 0, 0}

	res := Solve(c, thresholds)
	want := bruteForceBest(c, thresholds)
	assert.InDelta(t, want, res.Score, 1e-9)
	assertValidMapping(t, res.Mapping, c, thresholds)
}

func TestSolveColumnsBeyondMaxColumnsIgnored(t *testing.T) {
	n := MaxColumns + 5
	c := make([][]float64, 1)
	c[0] = make([]float64, n)
	// Put the best score in a column beyond the cap; it must be ignored.
	c[0][n-1] = 100
	c[0][0] = 5
	thresholds := []float64{1}

	res := Solve(c, thresholds)
	assert.Equal(t, 5.0, res.Score)
	assert.Equal(t, 0, res.Mapping[0])
}
