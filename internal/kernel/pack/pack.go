// Package pack greedily packs short query tokens into groups that fit a
// single machine word, so the packed scorer (C4) can score several
// tokens against one field token in a single bit-parallel sweep.
package pack

import "github.com/MarkitMedical/FuzzySearch/internal/kernel/alphabet"

// Lane describes one token's slot within a packed group.
type Lane struct {
	Token  string
	Offset int
}

// Group is a set of tokens packed into disjoint bit lanes of one word,
// or a single long token using the position-list alphabet.
type Group struct {
	// Lanes holds the packed tokens in offset order. Len(Lanes) == 1
	// and Lanes[0].Offset == 0 for a long-token solo group.
	Lanes []Lane
	// Map is the combined alphabet map: for short groups, bits of each
	// character's mask span every lane's own offset; for a long-token
	// solo group this is alphabet.Build's map for that token (a
	// position-list map when it is longer than alphabet.Width, a bitmask
	// map when its length is exactly alphabet.Width).
	Map alphabet.Map
	// Gate has a zero bit at the top of every lane, preventing a carry
	// from one lane's addition from propagating into the next lane
	// during the packed recurrence. Unused for long-token groups.
	Gate alphabet.BitMask
	// Long reports whether this is a solo long-token group.
	Long bool
}

// Pack greedily first-fit packs tokens, in input order, into groups that
// fit within alphabet.Width bits. A token of length >= Width always
// forms its own solo long-token group.
func Pack(tokens []string) []Group {
	var groups []Group
	var cur *builder

	flush := func() {
		if cur != nil {
			groups = append(groups, cur.build())
			cur = nil
		}
	}

	for _, tok := range tokens {
		l := len(tok)
		if l >= alphabet.Width {
			flush()
			groups = append(groups, soloLongGroup(tok))
			continue
		}
		if cur == nil {
			cur = newBuilder()
		} else if cur.offset+l > alphabet.Width {
			flush()
			cur = newBuilder()
		}
		cur.add(tok)
	}
	flush()
	return groups
}

func soloLongGroup(tok string) Group {
	return Group{
		Lanes: []Lane{{Token: tok, Offset: 0}},
		Map:   alphabet.Build(tok),
		Long:  true,
	}
}

type builder struct {
	lanes  []Lane
	masks  map[byte]alphabet.BitMask
	gate   alphabet.BitMask
	offset int
}

func newBuilder() *builder {
	return &builder{masks: make(map[byte]alphabet.BitMask)}
}

func (b *builder) add(tok string) {
	off := b.offset
	b.lanes = append(b.lanes, Lane{Token: tok, Offset: off})

	for i := 0; i < len(tok); i++ {
		c := tok[i]
		b.masks[c] |= alphabet.BitMask(1) << uint(i+off)
	}

	l := len(tok)
	if l > 0 {
		b.gate |= ((alphabet.BitMask(1) << uint(l-1)) - 1) << uint(off)
	}
	b.offset += l
}

func (b *builder) build() Group {
	return Group{
		Lanes: b.lanes,
		Map:   alphabet.Map{Short: b.masks},
		Gate:  b.gate,
	}
}
