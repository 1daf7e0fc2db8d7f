// Package normalize implements the text normalisation and tokenisation
// contract the kernel assumes its inputs already satisfy (spec.md §6):
// lowercasing, a fixed diacritic-fold table, whitespace collapsing, and
// single-space tokenisation. Unlike the teacher's
// internal/indexer/tokenizer package, this is deliberately narrow: no
// stop-word removal and no stemming, since the kernel scores on
// approximate character overlap rather than exact term matching.
package normalize

import "strings"

// foldTable maps common Latin-1 accented characters to their
// unaccented ASCII equivalent. It is the process-wide global state
// spec.md §9 calls out, read-only after init.
var foldTable = map[rune]rune{
	'à': 'a', 'á': 'a', 'â': 'a', 'ã': 'a', 'ä': 'a', 'å': 'a',
	'è': 'e', 'é': 'e', 'ê': 'e', 'ë': 'e',
	'ì': 'i', 'í': 'i', 'î': 'i', 'ï': 'i',
	'ò': 'o', 'ó': 'o', 'ô': 'o', 'õ': 'o', 'ö': 'o',
	'ù': 'u', 'ú': 'u', 'û': 'u', 'ü': 'u',
	'ý': 'y', 'ÿ': 'y',
	'ñ': 'n', 'ç': 'c',
	'À': 'a', 'Á': 'a', 'Â': 'a', 'Ã': 'a', 'Ä': 'a', 'Å': 'a',
	'È': 'e', 'É': 'e', 'Ê': 'e', 'Ë': 'e',
	'Ì': 'i', 'Í': 'i', 'Î': 'i', 'Ï': 'i',
	'Ò': 'o', 'Ó': 'o', 'Ô': 'o', 'Õ': 'o', 'Ö': 'o',
	'Ù': 'u', 'Ú': 'u', 'Û': 'u', 'Ü': 'u',
	'Ý': 'y',
	'Ñ': 'n', 'Ç': 'c',
}

// String lowercases s, folds diacritics, and collapses whitespace runs
// to single spaces. It is idempotent: String(String(s)) == String(s).
func String(s string) string {
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	lastWasSpace := false
	for _, r := range s {
		if folded, ok := foldTable[r]; ok {
			r = folded
		}
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if lastWasSpace {
				continue
			}
			lastWasSpace = true
			b.WriteRune(' ')
			continue
		}
		lastWasSpace = false
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// Tokens splits an already-normalised string on the single-space
// boundary, dropping any empty tokens produced by leading/trailing
// whitespace.
func Tokens(s string) []string {
	fields := strings.Split(s, " ")
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
