// Package score implements the single-token scorer (C3) and packed
// scorer (C4): bit-parallel longest-common-subsequence matching between
// a query token (or several packed query tokens) and one field token.
package score

import (
	"math/bits"
	"sort"

	"github.com/MarkitMedical/FuzzySearch/internal/kernel/kopts"
	"github.com/MarkitMedical/FuzzySearch/internal/kernel/alphabet"
	"github.com/MarkitMedical/FuzzySearch/internal/kernel/pack"
)

// Token scores query token a (with precomputed alphabet map aMap)
// against field token b. It implements C3 of spec.md: a relative-size
// gate, a prefix fast path, a long-token LLCS fallback, and the
// bit-parallel LLCS recurrence for tokens that fit in a machine word.
func Token(a string, aMap alphabet.Map, b string, opts kopts.Options) float64 {
	m, n := len(a), len(b)
	if m == 0 || n == 0 {
		return 0
	}
	if relSizeGated(m, n, opts) {
		return 0
	}

	p := commonPrefixLen(a, b)
	minLen := m
	if n < minLen {
		minLen = n
	}
	if p > minLen {
		p = minLen
	}
	if p == minLen {
		return prefixFormula(m, n, p, opts)
	}

	sz := sizeFactor(m, n)
	if aMap.Long {
		llcs := longLLCS(aMap, b, p)
		return sz*float64(llcs*llcs) + opts.BonusMatchStart*float64(p)
	}

	llcs := shortLLCS(aMap, a, b, p)
	return sz*float64(llcs*llcs) + opts.BonusMatchStart*float64(p)
}

// relSizeGated reports whether the field token's length falls outside
// the configured relative-size window around the query token's length.
func relSizeGated(m, n int, opts kopts.Options) bool {
	lo := opts.TokenMinRelSize * float64(m)
	hi := opts.TokenMaxRelSize * float64(m)
	return float64(n) < lo || float64(n) > hi
}

func sizeFactor(m, n int) float64 {
	return float64(m+n) / (2 * float64(m) * float64(n))
}

func prefixFormula(m, n, p int, opts kopts.Options) float64 {
	return sizeFactor(m, n)*float64(p*p) + opts.BonusMatchStart*float64(p)
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

// shortLLCS runs the bit-parallel (S+U)|(S-U) recurrence of Hyyrö
// (2004) over field token b, using query token a's bitmask alphabet
// map, skipping the shared prefix of length p.
func shortLLCS(aMap alphabet.Map, a, b string, p int) int {
	m := len(a)
	mask := (alphabet.BitMask(1) << uint(m)) - 1
	s := mask
	for j := p; j < len(b); j++ {
		u := s & aMap.MaskFor(b[j])
		s = (s + u) | (s - u)
	}
	mask &^= (alphabet.BitMask(1) << uint(p)) - 1
	s = ^s & mask
	return bits.OnesCount32(uint32(s)) + p
}

// longLLCS computes the longest common subsequence length between a
// long query token (represented by aMap's position lists) and field
// token b, skipping the shared prefix of length p on both sides. It
// runs dominant-match bookkeeping equivalent to spec.md's row-of-blocks
// DP by tracking, for each row of b, the minimal ending position of
// every increasing-subsequence length seen so far (Hunt-Szymanski):
// each row of b contributes matches in decreasing position order so a
// match never chains with another match from the same row, which
// mirrors the spec's rule that only the first (dominant) match inside
// a last-row block registers for that row.
func longLLCS(aMap alphabet.Map, b string, p int) int {
	var tails []int
	for i := p; i < len(b); i++ {
		positions := aMap.PositionsFor(b[i])
		if len(positions) == 0 {
			continue
		}
		for k := len(positions) - 2; k >= 0; k-- {
			j := positions[k]
			if j < p {
				break
			}
			idx := sort.SearchInts(tails, j)
			if idx == len(tails) {
				tails = append(tails, j)
			} else {
				tails[idx] = j
			}
		}
	}
	return len(tails) + p
}

// Packed scores every token packed into group against field token b in
// a single sweep, implementing C4 of spec.md. It returns one score per
// lane, in the same order as group.Lanes.
func Packed(group pack.Group, b string, opts kopts.Options) []float64 {
	if group.Long {
		lane := group.Lanes[0]
		return []float64{Token(lane.Token, group.Map, b, opts)}
	}

	s := sweepPacked(group, b)

	scores := make([]float64, len(group.Lanes))
	for idx, lane := range group.Lanes {
		m := len(lane.Token)
		if relSizeGated(m, len(b), opts) {
			scores[idx] = 0
			continue
		}
		p := commonPrefixLen(lane.Token, b)
		if p > m {
			p = m
		}
		minLen := m
		if len(b) < minLen {
			minLen = len(b)
		}
		if p > minLen {
			p = minLen
		}
		if p == minLen {
			scores[idx] = prefixFormula(m, len(b), p, opts)
			continue
		}

		laneMask := (alphabet.BitMask(1) << uint(m)) - 1
		sm := (s >> uint(lane.Offset)) & laneMask
		sm &^= (alphabet.BitMask(1) << uint(p)) - 1
		llcs := bits.OnesCount32(uint32(sm)) + p
		scores[idx] = sizeFactor(m, len(b))*float64(llcs*llcs) + opts.BonusMatchStart*float64(p)
	}
	return scores
}

// sweepPacked runs the gated bit-parallel recurrence once across every
// lane of group simultaneously, masking additions by the gate so a
// carry out of one lane's top bit never crosses into the next lane.
func sweepPacked(group pack.Group, b string) alphabet.BitMask {
	s := alphabet.BitMask(^uint32(0))
	gate := group.Gate
	for i := 0; i < len(b); i++ {
		c := b[i]
		mask, ok := group.Map.Short[c]
		if !ok {
			continue
		}
		u := s & mask
		s = ((s & gate) + (u & gate)) | (s - u)
	}
	return ^s
}
