// Package qfind implements an in-memory file-name search engine.
//
// See doc.go for the package overview.
package qfind

// Trigram is a 24-bit token packing three consecutive path bytes into the low
// three bytes of a 32-bit word. The high byte is always zero.
type Trigram uint32

// TrigramSize is the window width of the extractor in bytes.
const TrigramSize = 3

// packTrigram packs three bytes into a Trigram, first byte in the high
// position so that lexicographic byte order and numeric order agree.
func packTrigram(a, b, c byte) Trigram {
	return Trigram(uint32(a)<<16 | uint32(b)<<8 | uint32(c))
}

// AppendTrigrams appends every trigram of s to dst in positional order and
// returns the extended slice. Duplicates are preserved; deduplication happens
// when posting lists are sealed at commit. For len(s) < 3 the result is
// unchanged, which is the signal that a query must be served by the path trie
// instead of the inverted index.
func AppendTrigrams(dst []Trigram, s string) []Trigram {
	for i := 0; i+TrigramSize <= len(s); i++ {
		dst = append(dst, packTrigram(s[i], s[i+1], s[i+2]))
	}
	return dst
}

// foldByte lowercases a single ASCII byte. Bytes outside A-Z pass through
// untouched; case folding beyond ASCII is out of scope.
func foldByte(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

// foldTrigram lowercases all three bytes of a trigram.
func foldTrigram(t Trigram) Trigram {
	return packTrigram(
		foldByte(byte(t>>16)),
		foldByte(byte(t>>8)),
		foldByte(byte(t)),
	)
}

// caseVariants appends every ASCII case variant of t to dst and returns the
// extended slice. A trigram expands to at most 8 variants (2 per alphabetic
// byte); non-alphabetic bytes contribute exactly themselves. The input
// trigram's own spelling is always included.
func caseVariants(dst []Trigram, t Trigram) []Trigram {
	bs := [TrigramSize]byte{byte(t >> 16), byte(t >> 8), byte(t)}
	var alts [TrigramSize][]byte
	for i, b := range bs {
		lo := foldByte(b)
		if up := upperByte(b); up != lo {
			alts[i] = []byte{lo, up}
		} else {
			alts[i] = []byte{b}
		}
	}
	for _, a := range alts[0] {
		for _, b := range alts[1] {
			for _, c := range alts[2] {
				dst = append(dst, packTrigram(a, b, c))
			}
		}
	}
	return dst
}

// upperByte uppercases a single ASCII byte.
func upperByte(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}

// countOccurrences counts how many positions of path spell out trigram t.
// When fold is true the comparison is ASCII case-insensitive; t must already
// be folded by the caller in that case.
func countOccurrences(path string, t Trigram, fold bool) int {
	a, b, c := byte(t>>16), byte(t>>8), byte(t)
	n := 0
	for i := 0; i+TrigramSize <= len(path); i++ {
		x, y, z := path[i], path[i+1], path[i+2]
		if fold {
			x, y, z = foldByte(x), foldByte(y), foldByte(z)
		}
		if x == a && y == b && z == c {
			n++
		}
	}
	return n
}
