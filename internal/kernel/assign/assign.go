// Package assign solves the token-to-token assignment problem: given a
// score matrix between query tokens and field tokens, find the
// one-to-one mapping maximising the summed score under per-row
// inclusion thresholds.
package assign

import (
	"math"
	"sync/atomic"
)

// MaxColumns is the host-word-width cap on field-token columns. Extra
// field tokens beyond this are ignored, in input order, per spec.md's
// own documented choice for implementers.
const MaxColumns = 31

// fallbacks counts how many Solve calls took the row/column flip path.
// The kernel itself does no I/O and imports no metrics library (spec.md
// §7); a caller that wants this as a Prometheus counter polls
// FallbackCount and exports the delta.
var fallbacks atomic.Int64

// FallbackCount returns the number of Solve calls, across this
// process's lifetime, that swapped rows and columns before searching.
func FallbackCount() int64 {
	return fallbacks.Load()
}

// flipThreshold (K in spec.md §4.5) bounds recursion depth: if the
// query has more than this many extra rows over columns, rows and
// columns are swapped before solving.
const flipThreshold = 4

// Result holds the solved assignment: Mapping[i] is the column matched
// to row i, or -1 if row i is unmatched. Score is the summed score of
// the matched pairs.
type Result struct {
	Mapping []int
	Score   float64
}

// Solve finds the best one-to-one assignment between rows (query
// tokens) and columns (field tokens) of score matrix c, where a match
// (i, j) is only permitted when c[i][j] >= thresholds[i].
//
// Columns beyond MaxColumns are dropped before solving. If more than
// flipThreshold more rows than columns remain, rows and columns are
// swapped for the search and the resulting mapping flipped back.
func Solve(c [][]float64, thresholds []float64) Result {
	m := len(c)
	if m == 0 {
		return Result{}
	}
	n := len(c[0])
	if n > MaxColumns {
		n = MaxColumns
	}

	qualifyingRows := 0
	onlyRow := -1
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			if c[i][j] >= thresholds[i] {
				qualifyingRows++
				onlyRow = i
				break
			}
		}
	}
	if qualifyingRows == 0 {
		return Result{Mapping: emptyMapping(m)}
	}
	if qualifyingRows == 1 {
		bestCol, bestScore := -1, 0.0
		for j := 0; j < n; j++ {
			if c[onlyRow][j] >= thresholds[onlyRow] && c[onlyRow][j] > bestScore {
				bestCol, bestScore = j, c[onlyRow][j]
			}
		}
		mapping := emptyMapping(m)
		mapping[onlyRow] = bestCol
		return Result{Mapping: mapping, Score: bestScore}
	}

	if m-n > flipThreshold {
		fallbacks.Add(1)
		t := transpose(c, m, n)
		for j := range t {
			for i := range t[j] {
				if t[j][i] < thresholds[i] {
					t[j][i] = math.Inf(-1)
				}
			}
		}
		flipped := solveDFS(t, thresholdsForFlip(c, thresholds, m, n), n, m)
		return unflip(flipped, m, n)
	}
	return solveDFS(c, thresholds, m, n)
}

func emptyMapping(m int) []int {
	mapping := make([]int, m)
	for i := range mapping {
		mapping[i] = -1
	}
	return mapping
}

func transpose(c [][]float64, m, n int) [][]float64 {
	t := make([][]float64, n)
	for j := 0; j < n; j++ {
		t[j] = make([]float64, m)
		for i := 0; i < m; i++ {
			t[j][i] = c[i][j]
		}
	}
	return t
}

// thresholdsForFlip recomputes per-row thresholds for the transposed
// matrix: every new row (an old column) gets the minimum of all the old
// rows' thresholds. Solve has already set each transposed entry below
// its own old row's threshold to -Inf, so the flipped search admits
// exactly the pairs the unflipped one would.
func thresholdsForFlip(c [][]float64, thresholds []float64, m, n int) []float64 {
	t := make([]float64, n)
	for j := 0; j < n; j++ {
		min := thresholds[0]
		for i := 1; i < m; i++ {
			if thresholds[i] < min {
				min = thresholds[i]
			}
		}
		t[j] = min
	}
	return t
}

func unflip(r Result, m, n int) Result {
	mapping := emptyMapping(m)
	for col, row := range r.Mapping {
		if row != -1 {
			mapping[row] = col
		}
	}
	return Result{Mapping: mapping, Score: r.Score}
}

// solveDFS runs the memoised depth-first search of spec.md §4.5: at
// row i, try every not-yet-used column passing the threshold plus the
// -1 branch, memoised on (row, used-columns-bitmask). The memoised
// value is the tail assignment (rows i..m-1) and its score; solveDFS
// prepends zero rows so the returned mapping spans every row.
func solveDFS(c [][]float64, thresholds []float64, m, n int) Result {
	memo := make(map[int64]tailResult)
	tail := dfs(c, thresholds, m, n, 0, 0, memo)
	return Result{Mapping: tail.mapping, Score: tail.score}
}

type tailResult struct {
	mapping []int
	score   float64
}

func dfs(c [][]float64, thresholds []float64, m, n, row int, used int64, memo map[int64]tailResult) tailResult {
	if row == m {
		return tailResult{}
	}
	key := int64(row)<<40 | used
	if cached, ok := memo[key]; ok {
		return cached
	}

	skip := dfs(c, thresholds, m, n, row+1, used, memo)
	best := tailResult{mapping: append([]int{-1}, skip.mapping...), score: skip.score}

	for j := 0; j < n; j++ {
		bit := int64(1) << uint(j)
		if used&bit != 0 || c[row][j] < thresholds[row] {
			continue
		}
		rest := dfs(c, thresholds, m, n, row+1, used|bit, memo)
		candidate := c[row][j] + rest.score
		if candidate > best.score {
			best = tailResult{mapping: append([]int{j}, rest.mapping...), score: candidate}
		}
	}

	memo[key] = best
	return best
}
