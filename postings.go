// Posting-list store.
//
// HOW POSTING LISTS ARE STORED:
// During build each trigram owns a growable list of file ids, appended in
// arrival order and not kept sorted. Commit seals every list through a fixed
// pipeline:
//
//  1. Sort ascending (numeric order, never byte order) and drop duplicates.
//  2. Delta-code: v[i] -= v[i-1], with v[-1] = 0.
//  3. Pick a Golomb-Rice parameter from the delta distribution.
//  4. Golomb-Rice encode the deltas at the bit level.
//  5. Entropy-code the result with zstd at the default level.
//  6. Append the bytes to one contiguous blob and record
//     (offset, size, file count, parameter) in the trigram directory.
//
// Decoding is the exact inverse and reproduces the sorted unique list
// bit-exact. The parameter travels in the directory because decoding needs it.
// Trigrams are sealed in ascending order, so identical content produces an
// identical blob regardless of insertion order.
package qfind

import (
	"fmt"
	"slices"

	"github.com/klauspost/compress/zstd"
)

// dirEntry locates one trigram's sealed posting list inside the blob.
type dirEntry struct {
	offset    uint64
	size      uint32
	fileCount uint32
	grParam   uint8
}

// postingStore owns the raw, growable posting lists. It lives under the index
// write lock; the sealed encoding it produces is immutable and read without
// coordination beyond the index read lock.
type postingStore struct {
	lists map[Trigram][]FileID

	enc *zstd.Encoder
	dec *zstd.Decoder
}

func newPostingStore() (*postingStore, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	return &postingStore{
		lists: make(map[Trigram][]FileID),
		enc:   enc,
		dec:   dec,
	}, nil
}

func (p *postingStore) close() {
	p.enc.Close()
	p.dec.Close()
}

// add appends id to the trigram's list. Duplicates are allowed here; they are
// dropped when the list is sealed.
func (p *postingStore) add(t Trigram, id FileID) {
	p.lists[t] = append(p.lists[t], id)
}

// encodedPostings is the sealed form: one contiguous blob of compressed
// posting lists plus the directory addressing them. It is replaced wholesale
// at each commit and never mutated in place, so in-flight readers holding the
// previous value stay consistent.
type encodedPostings struct {
	blob []byte
	dir  map[Trigram]dirEntry
}

// seal runs the compression pipeline over every list and returns a fresh
// encoding. The raw lists are left sorted and deduplicated; on error the
// previous encoding remains valid because nothing is swapped here.
func (p *postingStore) seal() (*encodedPostings, error) {
	trigrams := make([]Trigram, 0, len(p.lists))
	for t := range p.lists {
		trigrams = append(trigrams, t)
	}
	slices.Sort(trigrams)

	enc := &encodedPostings{
		dir: make(map[Trigram]dirEntry, len(trigrams)),
	}
	var (
		deltas []uint64
		w      bitWriter
	)
	for _, t := range trigrams {
		ids := p.lists[t]
		slices.Sort(ids)
		ids = slices.Compact(ids)
		p.lists[t] = ids

		deltas = deltas[:0]
		prev := FileID(0)
		for _, id := range ids {
			deltas = append(deltas, uint64(id-prev))
			prev = id
		}

		k := golombParam(deltas)
		gr := golombEncode(&w, deltas, k)
		compressed := p.enc.EncodeAll(gr, nil)

		enc.dir[t] = dirEntry{
			offset:    uint64(len(enc.blob)),
			size:      uint32(len(compressed)),
			fileCount: uint32(len(ids)),
			grParam:   k,
		}
		enc.blob = append(enc.blob, compressed...)
	}
	return enc, nil
}

// decode reconstructs one trigram's sorted posting list from the sealed blob.
// Missing trigrams return (nil, false, nil); a decode failure is ErrCorruption.
func (p *postingStore) decode(enc *encodedPostings, t Trigram) ([]FileID, bool, error) {
	e, ok := enc.dir[t]
	if !ok {
		return nil, false, nil
	}
	end := e.offset + uint64(e.size)
	if end > uint64(len(enc.blob)) {
		return nil, true, fmt.Errorf("%w: directory entry beyond blob for trigram %06x", ErrCorruption, uint32(t))
	}
	gr, err := p.dec.DecodeAll(enc.blob[e.offset:end], nil)
	if err != nil {
		return nil, true, fmt.Errorf("%w: entropy decode for trigram %06x: %v", ErrCorruption, uint32(t), err)
	}
	deltas, err := golombDecode(gr, int(e.fileCount), e.grParam)
	if err != nil {
		return nil, true, fmt.Errorf("trigram %06x: %w", uint32(t), err)
	}
	ids := make([]FileID, len(deltas))
	var sum uint64
	for i, d := range deltas {
		sum += d
		ids[i] = FileID(sum)
	}
	return ids, true, nil
}
