package qfind

import "testing"

func testBloom() *feedForwardBloom {
	return newFeedForwardBloom(1<<16, 1<<15, DefaultBloomHashes)
}

// TestBloomNoFalseNegatives inserts a population and checks every member
func TestBloomNoFalseNegatives(t *testing.T) {
	f := testBloom()

	var inserted []Trigram
	for _, s := range []string{"/usr/share/doc", "/home/user/notes.txt", "/var/log/syslog"} {
		inserted = AppendTrigrams(inserted, s)
	}
	for _, tg := range inserted {
		f.add(tg)
	}
	for _, tg := range inserted {
		if !f.check(tg) {
			t.Fatalf("false negative for trigram %06x", uint32(tg))
		}
	}
}

// TestBloomDefiniteMiss verifies an absent trigram is rejected
func TestBloomDefiniteMiss(t *testing.T) {
	f := testBloom()
	f.add(packTrigram('a', 'b', 'c'))

	// With a near-empty filter a distinct trigram cannot collide on all k
	// positions.
	if f.check(packTrigram('x', 'y', 'z')) {
		t.Error("check returned true for a trigram that was never added")
	}
}

// TestBloomFeedForward verifies positive lookups land in the secondary filter
func TestBloomFeedForward(t *testing.T) {
	f := testBloom()
	queried := packTrigram('l', 'o', 'g')
	unqueried := packTrigram('t', 'm', 'p')
	f.add(queried)
	f.add(unqueried)

	patterns := []Trigram{queried, unqueried}
	if got := f.candidates(patterns); len(got) != 0 {
		t.Fatalf("candidates before any lookup = %v, want none", got)
	}

	if !f.check(queried) {
		t.Fatal("unexpected miss")
	}
	got := f.candidates(patterns)
	if len(got) != 1 || got[0] != queried {
		t.Errorf("candidates after lookup = %v, want [%06x]", got, uint32(queried))
	}
}

// TestBloomMissDoesNotFeedForward verifies misses leave the secondary alone
func TestBloomMissDoesNotFeedForward(t *testing.T) {
	f := testBloom()
	absent := packTrigram('z', 'z', 'z')

	if f.check(absent) {
		t.Fatal("unexpected hit on empty filter")
	}
	if got := f.candidates([]Trigram{absent}); len(got) != 0 {
		t.Errorf("miss fed the secondary filter: %v", got)
	}
}
