// Package aggregate implements the item aggregator (C7): it combines
// per-field scores (computed by package field) across every field of
// one item with position decay and a cross-field query-score mix, and
// tracks the running inclusion threshold across a result set.
package aggregate

import (
	"github.com/MarkitMedical/FuzzySearch/internal/kernel/kopts"
	"github.com/MarkitMedical/FuzzySearch/internal/kernel/field"
	"github.com/MarkitMedical/FuzzySearch/internal/kernel/pack"
)

// ItemResult is the outcome of scoring one item: its final score and
// the index (within the declared field order) that produced the best
// boosted field score.
type ItemResult struct {
	Score        float64
	MatchedField int
}

// FieldTokens supplies one field's tokens and (optionally) its fused
// whole-field string, keyed by declared field index.
type FieldTokens struct {
	Tokens []string
	Fused  string
}

// ScoreItem runs C7 over one item's fields, in declared order, using
// the packed query groups and the query's best fused-score-so-far.
// singleToken is true when the query has exactly one token, in which
// case the field-loop score alone is used and the query-score mix
// (spec.md §4.7's final 0.5/0.5 step) is skipped.
func ScoreItem(groups []pack.Group, fields []FieldTokens, fusedScore *float64, singleToken bool, opts kopts.Options) ItemResult {
	acc := field.NewAccumulator(groups)

	itemScore := 0.0
	matchedField := -1
	positionBonus := 1.0

	for fi, f := range fields {
		fieldScore := field.Score(groups, f.Tokens, f.Fused, acc, fusedScore, opts)

		boosted := fieldScore * (1 + positionBonus)
		positionBonus *= opts.BonusPositionDecay

		if boosted > itemScore {
			itemScore = boosted
			matchedField = fi
		}
		if boosted > opts.FieldGoodEnough {
			break
		}
	}

	if !singleToken {
		querySum := 0.0
		for _, lb := range acc.Lanes {
			if lb.Score > 0 {
				querySum += lb.Score
			}
		}
		queryScore := querySum
		if *fusedScore > queryScore {
			queryScore = *fusedScore
		}
		itemScore = 0.5*itemScore + 0.5*queryScore
	}

	return ItemResult{Score: itemScore, MatchedField: matchedField}
}

// Threshold tracks the running inclusion threshold across a result
// set: it starts at opts.ThreshInclude and is raised to
// bestScore*opts.ThreshRelativeToBest whenever a new best item score
// is recorded.
type Threshold struct {
	opts      kopts.Options
	current   float64
	bestScore float64
}

// NewThreshold creates a Threshold seeded at opts.ThreshInclude.
func NewThreshold(opts kopts.Options) *Threshold {
	return &Threshold{opts: opts, current: opts.ThreshInclude}
}

// Included reports whether score clears the current threshold, and
// updates the running best/threshold if score is a new best.
func (t *Threshold) Included(score float64) bool {
	included := score > t.current
	if score > t.bestScore {
		t.bestScore = score
		relative := t.bestScore * t.opts.ThreshRelativeToBest
		if relative > t.opts.ThreshInclude {
			t.current = relative
		} else {
			t.current = t.opts.ThreshInclude
		}
	}
	return included
}
