// Package kopts holds the tuning options shared by every stage of the
// approximate-matching pipeline (C1-C8): alphabet construction, token
// packing, single- and packed-token scoring, assignment solving, field
// and item aggregation, and local alignment.
package kopts

// Options controls every threshold and bonus used across the kernel. The
// zero value is not usable directly; call DefaultOptions and override
// individual fields.
type Options struct {
	// MinimumMatch is the floor below which a token-pair score is
	// treated as noise.
	MinimumMatch float64
	// ThreshInclude is the absolute minimum item score for inclusion.
	ThreshInclude float64
	// ThreshRelativeToBest is the fraction of the best-so-far item score
	// a candidate must reach to stay included.
	ThreshRelativeToBest float64
	// FieldGoodEnough is the per-field score that triggers early exit
	// from the field loop in the item aggregator.
	FieldGoodEnough float64
	// BonusMatchStart is added per matching prefix character.
	BonusMatchStart float64
	// BonusTokenOrder is added per lane whose best match sits after the
	// previous matched lane's field-token index.
	BonusTokenOrder float64
	// BonusPositionDecay is the per-field multiplicative decay applied
	// to the position bonus.
	BonusPositionDecay float64
	// ScorePerToken enables tokenised scoring; when false only the
	// fused whole-string score is used.
	ScorePerToken bool
	// ScoreTestFused additionally computes the fused score and keeps
	// the maximum of it and the token-sum score.
	ScoreTestFused bool
	// ScoreRound is the rounding quantum applied to final scores.
	ScoreRound float64
	// TokenQueryMinLength drops query tokens shorter than this.
	TokenQueryMinLength int
	// TokenFieldMinLength drops field tokens shorter than this.
	TokenFieldMinLength int
	// TokenQueryMaxLength truncates query tokens longer than this.
	TokenQueryMaxLength int
	// TokenFieldMaxLength truncates field tokens longer than this.
	TokenFieldMaxLength int
	// TokenMinRelSize rejects field tokens shorter than
	// TokenMinRelSize * len(query token).
	TokenMinRelSize float64
	// TokenMaxRelSize rejects field tokens longer than
	// TokenMaxRelSize * len(query token).
	TokenMaxRelSize float64
	// OutputLimit caps the number of results returned; 0 means
	// unlimited.
	OutputLimit int
}

// DefaultOptions returns the option set described in spec.md's external
// interface table.
func DefaultOptions() Options {
	return Options{
		MinimumMatch:         1.0,
		ThreshInclude:        2.0,
		ThreshRelativeToBest: 0.5,
		FieldGoodEnough:      20,
		BonusMatchStart:      0.5,
		BonusTokenOrder:      2.0,
		BonusPositionDecay:   0.7,
		ScorePerToken:        true,
		ScoreTestFused:       false,
		ScoreRound:           0.1,
		TokenQueryMinLength:  2,
		TokenFieldMinLength:  3,
		TokenQueryMaxLength:  64,
		TokenFieldMaxLength:  64,
		TokenMinRelSize:      0.6,
		TokenMaxRelSize:      6,
		OutputLimit:          0,
	}
}

// Round quantises v to the nearest multiple of quantum. A zero or
// negative quantum disables rounding.
func Round(v, quantum float64) float64 {
	if quantum <= 0 {
		return v
	}
	steps := v / quantum
	rounded := float64(int64(steps + 0.5))
	if steps < 0 {
		rounded = float64(int64(steps - 0.5))
	}
	return rounded * quantum
}
