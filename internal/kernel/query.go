package kernel

import (
	"strings"

	"github.com/MarkitMedical/FuzzySearch/internal/kernel/alphabet"
	"github.com/MarkitMedical/FuzzySearch/internal/kernel/kopts"
	"github.com/MarkitMedical/FuzzySearch/internal/kernel/pack"
)

// Query holds everything C1/C2 build once per search: the packed query
// groups, the fused full-query string and its alphabet map, and the
// transient per-item scoring state that ScoreItem resets (via ResetItem) at
// the start of every item's evaluation (spec.md §3, §5).
type Query struct {
	Tokens    []string
	Groups    []pack.Group
	FusedStr  string
	FusedMap  alphabet.Map
	fusedBest float64
}

// NewQuery tokenises raw (splitting on whitespace, the normalisation
// contract of spec.md §6 already applied upstream), truncates tokens
// longer than opts.TokenQueryMaxLength, drops tokens shorter than
// opts.TokenQueryMinLength, and packs the survivors via C1/C2.
func NewQuery(raw string, opts kopts.Options) *Query {
	fields := strings.Fields(raw)
	tokens := make([]string, 0, len(fields))
	for _, tok := range fields {
		if len(tok) > opts.TokenQueryMaxLength {
			tok = tok[:opts.TokenQueryMaxLength]
		}
		if len(tok) < opts.TokenQueryMinLength {
			continue
		}
		tokens = append(tokens, tok)
	}

	fused := strings.Join(tokens, " ")
	return &Query{
		Tokens:   tokens,
		Groups:   pack.Pack(tokens),
		FusedStr: fused,
		FusedMap: alphabet.Build(fused),
	}
}

// SingleToken reports whether the query reduced to exactly one token,
// in which case spec.md §4.7's final query/item score mix step is
// skipped.
func (q *Query) SingleToken() bool {
	return len(q.Tokens) == 1
}

// ResetItem clears the transient per-item fused-score accumulator
// before scoring a new item, per spec.md §5's concurrency model.
func (q *Query) ResetItem() {
	q.fusedBest = 0
}

// FusedBest returns the query's running max fused score across the
// item's fields so far (spec.md §4.6).
func (q *Query) FusedBest() *float64 {
	return &q.fusedBest
}
