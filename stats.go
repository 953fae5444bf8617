package qfind

import "sync/atomic"

// Stats holds the engine's instrumentation counters. All fields are updated
// atomically, so a snapshot taken with Snapshot is safe during live queries.
type Stats struct {
	// BloomRejections counts queries rejected by the primary Bloom filter
	// before any posting list was decoded.
	BloomRejections atomic.Uint64

	// PostingDecodes counts posting-list decompressions.
	PostingDecodes atomic.Uint64

	// CorruptLists counts posting lists skipped because decoding failed.
	CorruptLists atomic.Uint64

	// TrieLookups counts short queries served by the path trie.
	TrieLookups atomic.Uint64

	// Commits counts completed commits.
	Commits atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of the counters.
type StatsSnapshot struct {
	BloomRejections uint64
	PostingDecodes  uint64
	CorruptLists    uint64
	TrieLookups     uint64
	Commits         uint64
}

// Snapshot copies the current counter values.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		BloomRejections: s.BloomRejections.Load(),
		PostingDecodes:  s.PostingDecodes.Load(),
		CorruptLists:    s.CorruptLists.Load(),
		TrieLookups:     s.TrieLookups.Load(),
		Commits:         s.Commits.Load(),
	}
}
