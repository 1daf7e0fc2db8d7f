// Package field implements the field scorer (C6): it evaluates every
// packed query-token group against every token of one field, tracks
// the best score and producing field-token index per lane, and applies
// the in-order token bonus.
package field

import (
	"strings"

	"github.com/MarkitMedical/FuzzySearch/internal/kernel/kopts"
	"github.com/MarkitMedical/FuzzySearch/internal/kernel/alphabet"
	"github.com/MarkitMedical/FuzzySearch/internal/kernel/pack"
	"github.com/MarkitMedical/FuzzySearch/internal/kernel/score"
)

// LaneBest tracks the best score seen so far for one packed lane across
// a field's tokens, and which field-token index produced it.
type LaneBest struct {
	Score       float64
	FieldTokIdx int
}

// Accumulator carries the per-lane bests across every field of an item,
// reset at the start of each item's evaluation (spec.md §5). LastIndex
// is the field-token index of the most recently matched lane, used to
// award the token-order bonus only when matches advance monotonically.
type Accumulator struct {
	Lanes     []LaneBest
	LastIndex int
}

// NewAccumulator creates an Accumulator with one slot per query token
// (flattened across every packed group), all starting unmatched.
func NewAccumulator(groups []pack.Group) *Accumulator {
	n := 0
	for _, g := range groups {
		n += len(g.Lanes)
	}
	lanes := make([]LaneBest, n)
	for i := range lanes {
		lanes[i] = LaneBest{Score: -1, FieldTokIdx: -1}
	}
	return &Accumulator{Lanes: lanes, LastIndex: -1}
}

// Score evaluates every packed group against every token of one field,
// updates acc in place, and returns the field's score: the sum of
// per-lane bests and token-order bonuses found in this field, or this
// field's fused whole-field score if opts.ScoreTestFused and it is
// larger. When opts.ScoreTestFused, *fusedScore is raised to this
// field's fused score if it exceeds the running maximum seen so far
// across the item's fields (spec.md §4.6's query-level fused_score).
//
// When !opts.ScorePerToken, tokenised scoring is skipped entirely and
// the field's score is its fused whole-string score alone (spec.md
// §7.1's score_per_token: "if false use fused only"); *fusedScore is
// still raised so the item-level query/fused mix in package aggregate
// sees it.
func Score(groups []pack.Group, fieldTokens []string, fused string, acc *Accumulator, fusedScore *float64, opts kopts.Options) float64 {
	if !opts.ScorePerToken {
		if fused == "" {
			return 0
		}
		thisFused := fusedFieldScore(groups, fused, opts)
		if thisFused > *fusedScore {
			*fusedScore = thisFused
		}
		return thisFused
	}

	laneOffset := 0
	tokenSum := 0.0

	for _, group := range groups {
		best := make([]LaneBest, len(group.Lanes))
		for i := range best {
			best[i] = LaneBest{Score: -1, FieldTokIdx: -1}
		}

		for fi, ft := range fieldTokens {
			scores := score.Packed(group, ft, opts)
			for li, s := range scores {
				if s > best[li].Score {
					best[li] = LaneBest{Score: s, FieldTokIdx: fi}
				}
			}
		}

		for li, b := range best {
			idx := laneOffset + li
			if b.Score > acc.Lanes[idx].Score {
				acc.Lanes[idx] = b
			}
			tokenSum += max0(b.Score)
			if b.Score > opts.MinimumMatch && b.FieldTokIdx > acc.LastIndex {
				tokenSum += opts.BonusTokenOrder
				acc.LastIndex = b.FieldTokIdx
			}
		}
		laneOffset += len(group.Lanes)
	}

	fieldScore := tokenSum
	if opts.ScoreTestFused && fused != "" {
		thisFused := fusedFieldScore(groups, fused, opts)
		if thisFused > *fusedScore {
			*fusedScore = thisFused
		}
		if thisFused > fieldScore {
			fieldScore = thisFused
		}
	}
	return fieldScore
}

func max0(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// fusedFieldScore scores the whole query (reconstructed by joining
// every packed token with a single space) against the whole field
// string joined the same way, using the single-token scorer directly
// (C3 applied to the fused strings, per spec.md §4.6).
func fusedFieldScore(groups []pack.Group, fused string, opts kopts.Options) float64 {
	var parts []string
	for _, g := range groups {
		for _, lane := range g.Lanes {
			parts = append(parts, lane.Token)
		}
	}
	query := strings.Join(parts, " ")
	if query == "" {
		return 0
	}
	queryMap := alphabet.Build(query)
	return score.Token(query, queryMap, fused, opts)
}
