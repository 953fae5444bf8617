// Feed-forward Bloom filter pair.
//
// HOW IT WORKS:
// Two independent bit arrays share a family of k seeded hash functions. The
// primary array answers probabilistic membership for every trigram ever
// inserted: a single unset bit is a definitive "not present", so the filter
// can reject a whole query before any posting list is touched. The secondary
// array is the "feed-forward" half: every positive lookup records the queried
// trigram there, so over time it accumulates the set of trigrams the workload
// has actually asked about. Candidates reads it back to warm query planning.
//
// GUARANTEES:
//   - No false negatives: every inserted trigram has all k primary bits set.
//   - False positives are tolerated; the posting-list resolution stage
//     rejects spurious hits downstream.
//   - Bits only ever turn from 0 to 1.
//
// CONCURRENCY:
// The primary array is written only under the index write lock and read under
// the read lock. The secondary array is written during lookups, which run
// under the read lock, so its words are updated with atomic or-operations
// instead of relying on the lock.
package qfind

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// Default filter geometry. Sizes are in bytes.
const (
	// DefaultBloomPrimaryBytes is the primary array size (32 MiB).
	DefaultBloomPrimaryBytes = 1 << 25

	// DefaultBloomSecondaryBytes is the secondary array size (16 MiB).
	DefaultBloomSecondaryBytes = 1 << 24

	// DefaultBloomHashes is the number of hash functions.
	DefaultBloomHashes = 8

	// secondarySeedOffset separates the secondary seed family from the
	// primary one. Any two well-separated families work; this one is stable
	// across runs, which Candidates depends on.
	secondarySeedOffset = 0xA5A5A5A5
)

// feedForwardBloom is the Bloom pair owned by an Index for its lifetime.
type feedForwardBloom struct {
	primary   []byte
	secondary []atomic.Uint32
	hashes    int
}

func newFeedForwardBloom(primaryBytes, secondaryBytes, hashes int) *feedForwardBloom {
	words := secondaryBytes / 4
	if words < 1 {
		words = 1
	}
	return &feedForwardBloom{
		primary:   make([]byte, primaryBytes),
		secondary: make([]atomic.Uint32, words),
		hashes:    hashes,
	}
}

// bloomHash derives the i-th hash of a trigram by hashing the seed and the
// token together. xxhash has no seeded one-shot entry point, so the seed is
// folded into the input bytes instead; the mapping is stable across runs.
func bloomHash(t Trigram, seed uint64) uint64 {
	var buf [12]byte
	binary.LittleEndian.PutUint64(buf[0:8], seed)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(t))
	return xxhash.Sum64(buf[:])
}

func setBit(bits []byte, h uint64) {
	h %= uint64(len(bits)) * 8
	bits[h/8] |= 1 << (h % 8)
}

func getBit(bits []byte, h uint64) bool {
	h %= uint64(len(bits)) * 8
	return bits[h/8]&(1<<(h%8)) != 0
}

func setWordBit(words []atomic.Uint32, h uint64) {
	h %= uint64(len(words)) * 32
	word := &words[h/32]
	mask := uint32(1) << (h % 32)
	for {
		old := word.Load()
		if old&mask != 0 {
			return
		}
		if word.CompareAndSwap(old, old|mask) {
			return
		}
	}
}

func getWordBit(words []atomic.Uint32, h uint64) bool {
	h %= uint64(len(words)) * 32
	return words[h/32].Load()&(1<<(h%32)) != 0
}

// add sets the k primary bits for t. Called under the index write lock.
func (f *feedForwardBloom) add(t Trigram) {
	for i := 0; i < f.hashes; i++ {
		setBit(f.primary, bloomHash(t, uint64(i)))
	}
}

// check reports whether t may be present. On a positive answer it records t
// in the secondary filter as a side effect.
func (f *feedForwardBloom) check(t Trigram) bool {
	for i := 0; i < f.hashes; i++ {
		if !getBit(f.primary, bloomHash(t, uint64(i))) {
			return false
		}
	}
	f.recordSecondary(t)
	return true
}

// recordSecondary sets the k secondary bits for t.
func (f *feedForwardBloom) recordSecondary(t Trigram) {
	for i := 0; i < f.hashes; i++ {
		setWordBit(f.secondary, bloomHash(t, uint64(i)+secondarySeedOffset))
	}
}

// candidates returns the subset of patterns whose secondary bits are all set,
// i.e. trigrams that earlier lookups answered "maybe" for. The result is
// analytics input for query planning; the search path itself never consults
// the secondary filter.
func (f *feedForwardBloom) candidates(patterns []Trigram) []Trigram {
	var out []Trigram
	for _, t := range patterns {
		hit := true
		for i := 0; i < f.hashes; i++ {
			if !getWordBit(f.secondary, bloomHash(t, uint64(i)+secondarySeedOffset)) {
				hit = false
				break
			}
		}
		if hit {
			out = append(out, t)
		}
	}
	return out
}
