package kernel

import (
	"sort"
	"strings"

	"github.com/MarkitMedical/FuzzySearch/internal/kernel/aggregate"
	"github.com/MarkitMedical/FuzzySearch/internal/kernel/align"
	"github.com/MarkitMedical/FuzzySearch/internal/kernel/alphabet"
	"github.com/MarkitMedical/FuzzySearch/internal/kernel/assign"
	"github.com/MarkitMedical/FuzzySearch/internal/kernel/kopts"
	"github.com/MarkitMedical/FuzzySearch/internal/kernel/score"
)

// Item is one candidate scored against a Query: a declared-order list
// of field token lists (plus each field's fused whole-string form, used
// when kopts.Options.ScoreTestFused is set or ScorePerToken is off) and an arbitrary
// SortKey used to break score ties.
type Item struct {
	Fields  []aggregate.FieldTokens
	SortKey string
	Opaque  any
}

// Range is a half-open [Start, End) substring range in matched text,
// produced by the local aligner (C8).
type Range = align.Range

// Scored is one Item after C6/C7 scoring.
type Scored struct {
	Item         Item
	Score        float64
	MatchedField int
}

// ScoreItem runs C6+C7 over one item against q, returning its item
// score and matched-field index.
func ScoreItem(q *Query, item Item, opts kopts.Options) aggregate.ItemResult {
	q.ResetItem()
	return aggregate.ScoreItem(q.Groups, item.Fields, q.FusedBest(), q.SingleToken(), opts)
}

// Search scores every item against q, keeps those clearing the running
// inclusion threshold (spec.md §4.7), and returns them sorted by score
// descending then sort key ascending (byte-wise, spec.md §9's
// locale-independent resolution of the open question on tie-breaking),
// truncated to opts.OutputLimit when it is nonzero.
func Search(q *Query, items []Item, opts kopts.Options) []Scored {
	threshold := aggregate.NewThreshold(opts)
	results := make([]Scored, 0, len(items))

	for _, item := range items {
		res := ScoreItem(q, item, opts)
		if !threshold.Included(res.Score) {
			continue
		}
		results = append(results, Scored{
			Item:         item,
			Score:        kopts.Round(res.Score, opts.ScoreRound),
			MatchedField: res.MatchedField,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Item.SortKey < results[j].Item.SortKey
	})

	if opts.OutputLimit > 0 && len(results) > opts.OutputLimit {
		results = results[:opts.OutputLimit]
	}
	return results
}

// Highlight computes the token pairing between q and the matched
// field's tokens (C5), then runs the local aligner (C8) for every
// paired (query token, field token) to produce substring ranges in the
// field's fused text. It is meant to be called only for the page of
// results actually returned to a caller (SPEC_FULL.md §5.2), never for
// the full candidate set.
func Highlight(q *Query, fieldTokens []string, fieldFused string, opts kopts.Options) []align.Range {
	if len(q.Tokens) == 0 || len(fieldTokens) == 0 {
		return nil
	}

	matrix := make([][]float64, len(q.Tokens))
	thresholds := make([]float64, len(q.Tokens))
	for i, qt := range q.Tokens {
		matrix[i] = make([]float64, len(fieldTokens))
		qMap := alphabet.Build(qt)
		best := 0.0
		for j, ft := range fieldTokens {
			matrix[i][j] = score.Token(qt, qMap, ft, opts)
			if matrix[i][j] > best {
				best = matrix[i][j]
			}
		}
		t := best * opts.ThreshRelativeToBest
		if t < opts.MinimumMatch {
			t = opts.MinimumMatch
		}
		thresholds[i] = t
	}

	result := assign.Solve(matrix, thresholds)

	var ranges []align.Range
	alignOpts := align.DefaultOptions()
	// fieldTokens occur in fieldFused in order; find each one's start.
	starts := make([]int, len(fieldTokens))
	for k, pos := 0, 0; k < len(fieldTokens); k++ {
		starts[k] = -1
		if idx := strings.Index(fieldFused[pos:], fieldTokens[k]); idx >= 0 {
			starts[k] = pos + idx
			pos = starts[k] + len(fieldTokens[k])
		}
	}
	for i, col := range result.Mapping {
		if col == -1 || col >= len(fieldTokens) || starts[col] < 0 {
			continue
		}
		for _, r := range align.Align(q.Tokens[i], fieldTokens[col], alignOpts) {
			ranges = append(ranges, align.Range{Start: starts[col] + r.Start, End: starts[col] + r.End})
		}
	}
	return ranges
}
