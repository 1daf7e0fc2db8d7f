// Package align implements the local aligner (C8): Smith-Waterman
// alignment with affine gap penalties, used to produce highlighted
// substring ranges for an already-chosen query/field token pairing.
package align

// Options controls the alignment scoring. Zero-valued Options is not
// usable; start from DefaultOptions.
type Options struct {
	Match     float64 // wm
	GapOpen   float64 // wo, applied once per gap
	GapExtend float64 // we, applied per extra gap character
	BridgeGap int     // gaps of this length or shorter are bridged into one range
}

// DefaultOptions returns spec.md §4.8's default alignment weights.
func DefaultOptions() Options {
	return Options{Match: 1.0, GapOpen: -0.1, GapExtend: -0.01, BridgeGap: 2}
}

// Range is a half-open [Start, End) substring range in the field text.
type Range struct {
	Start, End int
}

type direction uint8

const (
	stop direction = iota
	up
	left
	diag
)

// Align runs Smith-Waterman-Gotoh alignment of query against field and
// returns the left-to-right substring ranges of field that the
// traceback from the best-scoring cell identifies as matched,
// including an enforced leading range for the strings' shared prefix
// when one exists.
func Align(query, field string, opts Options) []Range {
	m, n := len(query), len(field)
	if m == 0 || n == 0 {
		return nil
	}

	prefix := commonPrefixLen(query, field)

	// h[i][j]: best local score ending at (i,j). e[j]: best score of an
	// alignment ending in a gap in query (row direction) at column j.
	// f: best score of an alignment ending in a gap in field (column
	// direction) for the current row.
	h := make([][]float64, m+1)
	trace := make([][]direction, m+1)
	for i := range h {
		h[i] = make([]float64, n+1)
		trace[i] = make([]direction, n+1)
	}
	e := make([]float64, n+1)

	vMax, iMax, jMax := 0.0, 0, 0

	for i := 1; i <= m; i++ {
		f := 0.0
		for j := 1; j <= n; j++ {
			diagScore := h[i-1][j-1]
			if query[i-1] == field[j-1] {
				diagScore += opts.Match
			} else {
				diagScore = -1 // mismatches never extend a local alignment here
			}

			eOpen := h[i][j-1] + opts.GapOpen
			eExtend := e[j-1] + opts.GapExtend
			ej := eOpen
			if eExtend > ej {
				ej = eExtend
			}
			e[j] = ej

			fOpen := h[i-1][j] + opts.GapOpen
			fExtend := f + opts.GapExtend
			fj := fOpen
			if fExtend > fj {
				fj = fExtend
			}
			f = fj

			best, dir := 0.0, stop
			if diagScore > best {
				best, dir = diagScore, diag
			}
			if ej > best {
				best, dir = ej, left
			}
			if fj > best {
				best, dir = fj, up
			}

			h[i][j] = best
			trace[i][j] = dir

			if best > vMax {
				vMax, iMax, jMax = best, i, j
			}
		}
	}

	if vMax <= 0 {
		if prefix > 0 {
			return []Range{{0, prefix}}
		}
		return nil
	}

	ranges := traceback(trace, iMax, jMax, opts.BridgeGap)
	return mergeWithPrefix(ranges, prefix, opts.BridgeGap)
}

func commonPrefixLen(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// traceback walks from (i, j) until a STOP cell, recording field-index
// ranges for consecutive diagonal (match) runs. Gaps of length <=
// bridgeGap between two match runs are bridged into one range; longer
// gaps split the range. Ranges are returned left-to-right.
func traceback(trace [][]direction, i, j, bridgeGap int) []Range {
	var ranges []Range
	curEnd := -1
	curStart := -1
	gapLen := 0

	flush := func() {
		if curStart != -1 {
			ranges = append(ranges, Range{curStart, curEnd})
			curStart, curEnd = -1, -1
		}
	}

	for {
		d := trace[i][j]
		if d == stop {
			break
		}
		switch d {
		case diag:
			pos := j - 1
			if curStart != -1 && gapLen > 0 {
				if gapLen <= bridgeGap {
					curStart = pos
				} else {
					flush()
					curStart, curEnd = pos, pos+1
				}
			} else if curStart == -1 {
				curStart, curEnd = pos, pos+1
			} else {
				curStart = pos
			}
			gapLen = 0
			i--
			j--
		case left:
			gapLen++
			j--
		case up:
			gapLen++
			i--
		}
	}
	flush()

	// ranges were built back-to-front; reverse to left-to-right.
	for l, r := 0, len(ranges)-1; l < r; l, r = l+1, r-1 {
		ranges[l], ranges[r] = ranges[r], ranges[l]
	}
	return ranges
}

// mergeWithPrefix prepends the common prefix as its own leading range,
// or extends the first traceback range to start at 0 if it already
// sits within bridgeGap characters of the prefix.
func mergeWithPrefix(ranges []Range, prefix, bridgeGap int) []Range {
	if prefix == 0 {
		return ranges
	}
	if len(ranges) > 0 && ranges[0].Start-prefix <= bridgeGap {
		ranges[0].Start = 0
		return ranges
	}
	return append([]Range{{0, prefix}}, ranges...)
}
