package qfind

import (
	"reflect"
	"testing"
)

// TestAppendTrigrams tests the sliding-window extraction
func TestAppendTrigrams(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Trigram
	}{
		{
			name:  "empty string",
			input: "",
			want:  nil,
		},
		{
			name:  "below trigram floor",
			input: "ab",
			want:  nil,
		},
		{
			name:  "exactly one window",
			input: "abc",
			want:  []Trigram{packTrigram('a', 'b', 'c')},
		},
		{
			name:  "sliding window order",
			input: "abcd",
			want: []Trigram{
				packTrigram('a', 'b', 'c'),
				packTrigram('b', 'c', 'd'),
			},
		},
		{
			name:  "duplicates preserved",
			input: "aaaa",
			want: []Trigram{
				packTrigram('a', 'a', 'a'),
				packTrigram('a', 'a', 'a'),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AppendTrigrams(nil, tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("AppendTrigrams(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// TestPackTrigramHighByteZero verifies the 24-bit token layout
func TestPackTrigramHighByteZero(t *testing.T) {
	tg := packTrigram(0xFF, 0xFF, 0xFF)
	if tg>>24 != 0 {
		t.Errorf("high byte not zero: %08x", uint32(tg))
	}
	if tg != 0xFFFFFF {
		t.Errorf("packTrigram(ff,ff,ff) = %06x, want ffffff", uint32(tg))
	}
}

// TestFoldTrigram tests ASCII folding of tokens
func TestFoldTrigram(t *testing.T) {
	if got := foldTrigram(packTrigram('A', 'b', 'Z')); got != packTrigram('a', 'b', 'z') {
		t.Errorf("foldTrigram = %06x, want %06x", uint32(got), uint32(packTrigram('a', 'b', 'z')))
	}
	// Non-ASCII bytes pass through untouched.
	if got := foldTrigram(packTrigram(0xC3, '/', '1')); got != packTrigram(0xC3, '/', '1') {
		t.Errorf("foldTrigram changed non-alphabetic bytes: %06x", uint32(got))
	}
}

// TestCaseVariants tests ASCII case-variant expansion
func TestCaseVariants(t *testing.T) {
	tests := []struct {
		name  string
		input Trigram
		count int
	}{
		{"all alphabetic", packTrigram('a', 'b', 'c'), 8},
		{"one alphabetic", packTrigram('/', 'a', '1'), 2},
		{"none alphabetic", packTrigram('/', '.', '1'), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := caseVariants(nil, tt.input)
			if len(got) != tt.count {
				t.Fatalf("caseVariants(%06x) returned %d variants, want %d", uint32(tt.input), len(got), tt.count)
			}
			// The folded spelling must always be present.
			folded := foldTrigram(tt.input)
			found := false
			for _, v := range got {
				if v == folded {
					found = true
				}
			}
			if !found {
				t.Errorf("folded variant %06x missing from %v", uint32(folded), got)
			}
		})
	}
}

// TestCountOccurrences tests literal trigram counting within a path
func TestCountOccurrences(t *testing.T) {
	tests := []struct {
		name string
		path string
		tg   Trigram
		fold bool
		want int
	}{
		{"single hit", "/a/notes.txt", packTrigram('n', 'o', 't'), false, 1},
		{"no hit", "/a/notes.txt", packTrigram('x', 'y', 'z'), false, 0},
		{"overlapping hits", "aaaa", packTrigram('a', 'a', 'a'), false, 2},
		{"case sensitive miss", "/a/NOTES.txt", packTrigram('n', 'o', 't'), false, 0},
		{"folded hit", "/a/NOTES.txt", packTrigram('n', 'o', 't'), true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := countOccurrences(tt.path, tt.tg, tt.fold); got != tt.want {
				t.Errorf("countOccurrences(%q) = %d, want %d", tt.path, got, tt.want)
			}
		})
	}
}
