package score

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarkitMedical/FuzzySearch/internal/kernel/alphabet"
	"github.com/MarkitMedical/FuzzySearch/internal/kernel/kopts"
	"github.com/MarkitMedical/FuzzySearch/internal/kernel/pack"
)

func defaultOpts() kopts.Options {
	return kopts.DefaultOptions()
}

func score(a, b string, opts kopts.Options) float64 {
	return Token(a, alphabet.Build(a), b, opts)
}

// Property 1: score symmetry of equality.
func TestScoreSymmetryOfEquality(t *testing.T) {
	opts := defaultOpts()
	require.Greater(t, score("university", "university", opts), score("university", "univercty", opts))
}

// Property 2: prefix monotonicity.
func TestPrefixMonotonicity(t *testing.T) {
	opts := defaultOpts()
	assert.GreaterOrEqual(t, score("uni", "university", opts), score("uni", "unbeatable", opts))
}

func TestUniVsUniversityBeatsUniVsHi(t *testing.T) {
	opts := defaultOpts()
	assert.Greater(t, score("uni", "university", opts), score("uni", "hi", opts))
}

// bruteLCS is an independent O(mn) reference implementation of longest
// common subsequence length, used to check both kernel algorithms
// against ground truth.
func bruteLCS(a, b string) int {
	m, n := len(a), len(b)
	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if a[i-1] == b[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else if dp[i-1][j] > dp[i][j-1] {
				dp[i][j] = dp[i-1][j]
			} else {
				dp[i][j] = dp[i][j-1]
			}
		}
	}
	return dp[m][n]
}

// Property 3: LLCS equivalence - the short bit-parallel recurrence
// matches ground truth for a short token.
func TestShortLLCSMatchesBruteForce(t *testing.T) {
	a, b := "surgery", "gsurvey"
	got := shortLLCS(alphabet.Build(a), a, b, 0)
	assert.Equal(t, 5, got)
	assert.Equal(t, bruteLCS(a, b), got)
}

// Property 3: LLCS equivalence - the long position-list fallback
// matches ground truth for a genuinely long token.
func TestLongLLCSMatchesBruteForce(t *testing.T) {
	a := strings.Repeat("abc", 15) // len 45, over alphabet.Width
	b := strings.Repeat("cab", 15)
	aMap := alphabet.Build(a)
	require.True(t, aMap.Long)

	got := longLLCS(aMap, b, 0)
	assert.Equal(t, bruteLCS(a, b), got)
}

// Property 3: LLCS equivalence - the long-token fallback must agree
// with the short-token recurrence (and brute force) once a shared
// prefix is present, not just at p=0: a query character spent on the
// prefix must not be eligible for reuse by the position-list sweep.
func TestLongLLCSRespectsPrefix(t *testing.T) {
	a := strings.Repeat("ba", 20) // len 40, over alphabet.Width
	b := strings.Repeat("bb", 20)
	aMap := alphabet.Build(a)
	require.True(t, aMap.Long)

	p := 1
	got := longLLCS(aMap, b, p)
	assert.Equal(t, bruteLCS(a, b), got)
}

// Property 4: packed score equals the individual score for every lane.
func TestPackedVsIndividual(t *testing.T) {
	opts := defaultOpts()
	tokens := []string{"uni", "vers"}
	groups := pack.Pack(tokens)
	require.Len(t, groups, 1)

	field := "university"
	packed := Packed(groups[0], field, opts)
	require.Len(t, packed, 2)

	for i, tok := range tokens {
		individual := score(tok, field, opts)
		assert.InDelta(t, individual, packed[i], 1e-9, "lane %d (%q)", i, tok)
	}
}

// Property 5: gate invariance - reordering packed tokens doesn't change
// their individual scores.
func TestGateInvariance(t *testing.T) {
	opts := defaultOpts()
	field := "university"

	forward := pack.Pack([]string{"uni", "vers"})
	backward := pack.Pack([]string{"vers", "uni"})
	require.Len(t, forward, 1)
	require.Len(t, backward, 1)

	fScores := Packed(forward[0], field, opts)
	bScores := Packed(backward[0], field, opts)

	// forward lane 0 is "uni", backward lane 1 is "uni".
	assert.InDelta(t, fScores[0], bScores[1], 1e-9)
	// forward lane 1 is "vers", backward lane 0 is "vers".
	assert.InDelta(t, fScores[1], bScores[0], 1e-9)
}

func TestRelSizeGateRejectsOutOfRangeLengths(t *testing.T) {
	opts := defaultOpts()
	assert.Equal(t, 0.0, score("of", "honorificabilitudinitatibus", opts))
}

func TestOfBelowHonorAgainstSameField(t *testing.T) {
	opts := defaultOpts()
	field := "honorificabilitudinitatibus"
	assert.Less(t, score("of", field, opts), score("honor", field, opts))
}

func TestLongTokenFallback(t *testing.T) {
	opts := defaultOpts()
	a := strings.Repeat("a", alphabet.Width+3) + "bcde"
	b := strings.Repeat("a", alphabet.Width+3) + "bxde"
	assert.Greater(t, score(a, b, opts), 0.0)
}

func TestEmptyTokensScoreZero(t *testing.T) {
	opts := defaultOpts()
	assert.Equal(t, 0.0, score("", "anything", opts))
	assert.Equal(t, 0.0, score("anything", "", opts))
}
