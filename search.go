// Query planner and resolver.
//
// HOW A QUERY RUNS:
//  1. Decompose the query into trigrams. Queries below the trigram floor
//     (one or two bytes) are served by the path trie instead.
//  2. Check every query trigram against the primary Bloom filter. A single
//     miss is a definitive "not present" and ends the query with zero
//     results before any posting list is touched. Positive lookups are
//     recorded in the secondary filter.
//  3. Decode the surviving trigrams' posting lists in parallel and
//     accumulate a candidate id set. Workers read the sealed snapshot and
//     never mutate the index; each keeps a bounded local buffer and a single
//     merge step combines them.
//  4. Filter candidates: drop uncommitted ids, tombstones, and files the
//     caller may not read.
//  5. Score survivors (term frequency over path length against corpus-wide
//     inverse frequency), drop scores below the threshold, and keep the
//     top max-results on a min-heap.
//
// A posting list that fails to decode is logged and skipped; the query
// continues with reduced recall rather than failing.
package qfind

import (
	"container/heap"
	"fmt"
	"math"
	"regexp"
	"runtime"
	"slices"
	"sync"

	"github.com/RoaringBitmap/roaring/roaring64"
	"github.com/sourcegraph/conc/pool"
)

// Result is one ranked search hit.
type Result struct {
	ID    FileID
	Score float64
}

// Search is a builder for one query against an Index. Configure it with the
// With methods and run it with Execute.
//
// Example:
//
//	results, err := ix.NewSearch().
//		WithQuery("notes").
//		WithUser(1000, 1000).
//		WithMaxResults(10).
//		Execute()
type Search struct {
	index           *Index
	query           string
	caseInsensitive bool
	regex           bool
	uid             uint32
	gid             uint32
	maxResults      int
}

// NewSearch creates a search builder with the index's default result cap and
// root credentials.
func (ix *Index) NewSearch() *Search {
	return &Search{
		index:      ix,
		maxResults: ix.cfg.MaxResults,
	}
}

// WithQuery sets the query string.
func (s *Search) WithQuery(query string) *Search {
	s.query = query
	return s
}

// WithCaseInsensitive toggles ASCII case-insensitive matching.
func (s *Search) WithCaseInsensitive(v bool) *Search {
	s.caseInsensitive = v
	return s
}

// WithRegex treats the query as a regular expression.
func (s *Search) WithRegex(v bool) *Search {
	s.regex = v
	return s
}

// WithUser sets the credentials for the permission filter.
func (s *Search) WithUser(uid, gid uint32) *Search {
	s.uid = uid
	s.gid = gid
	return s
}

// WithMaxResults caps the result set. Non-positive values fall back to the
// configured default.
func (s *Search) WithMaxResults(k int) *Search {
	s.maxResults = k
	return s
}

// Execute runs the query and returns results ranked by descending score.
// Queries observe the most recently committed snapshot; enqueued but
// uncommitted adds are never visible.
func (s *Search) Execute() ([]Result, error) {
	if len(s.query) == 0 {
		return nil, fmt.Errorf("%w: empty query", ErrInvalidArgument)
	}
	k := s.maxResults
	if k <= 0 {
		k = s.index.cfg.MaxResults
	}

	ix := s.index
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.closed {
		return nil, ErrClosed
	}

	if s.regex {
		return s.executeRegex(k)
	}

	qts := AppendTrigrams(nil, s.query)
	if len(qts) == 0 {
		return s.executeTrie(k), nil
	}

	decodeSet, ok := s.bloomStage(qts)
	if !ok {
		ix.stats.BloomRejections.Add(1)
		return nil, nil
	}
	if ix.sealed == nil || ix.liveFiles == 0 {
		return nil, nil
	}

	candidates := s.resolveCandidates(decodeSet)
	scoreTrigrams := s.scoringTrigrams(qts)
	return s.rank(candidates, scoreTrigrams, k), nil
}

// bloomStage maps every query trigram through the primary Bloom filter and
// returns the deduplicated set of index trigrams to decode. For
// case-insensitive queries a trigram passes if any of its ASCII case
// variants passes. Returns ok=false if some query trigram has no surviving
// variant, which is a definitive zero-result answer.
func (s *Search) bloomStage(qts []Trigram) ([]Trigram, bool) {
	ix := s.index
	seen := make(map[Trigram]struct{})
	var decode []Trigram
	var variants []Trigram

	for _, qt := range qts {
		variants = variants[:0]
		if s.caseInsensitive {
			variants = caseVariants(variants, qt)
		} else {
			variants = append(variants, qt)
		}
		passed := false
		for _, v := range variants {
			if ix.bloom.check(v) {
				passed = true
				if _, dup := seen[v]; !dup {
					seen[v] = struct{}{}
					decode = append(decode, v)
				}
			}
		}
		if !passed {
			return nil, false
		}
	}
	return decode, true
}

// resolveCandidates decodes the posting lists for the given trigrams in
// parallel and unions them into one candidate set. Caller holds the read
// lock; workers only read the sealed snapshot.
func (s *Search) resolveCandidates(trigrams []Trigram) *roaring64.Bitmap {
	ix := s.index
	workers := ix.cfg.WorkerThreads
	if n := runtime.GOMAXPROCS(0); workers > n {
		workers = n
	}
	if workers > len(trigrams) {
		workers = len(trigrams)
	}
	if workers < 1 {
		workers = 1
	}

	chunk := (len(trigrams) + workers - 1) / workers
	merged := roaring64.New()
	var mergeMu sync.Mutex

	p := pool.New().WithMaxGoroutines(workers)
	for start := 0; start < len(trigrams); start += chunk {
		end := start + chunk
		if end > len(trigrams) {
			end = len(trigrams)
		}
		part := trigrams[start:end]
		p.Go(func() {
			local := roaring64.New()
			for _, t := range part {
				ids, present, err := ix.postings.decode(ix.sealed, t)
				if err != nil {
					ix.stats.CorruptLists.Add(1)
					ix.log.Error().Err(err).Msg("skipping corrupt posting list")
					continue
				}
				if !present {
					continue
				}
				ix.stats.PostingDecodes.Add(1)
				for _, id := range ids {
					local.Add(uint64(id))
				}
			}

			mergeMu.Lock()
			defer mergeMu.Unlock()
			added := 0
			for it := local.Iterator(); it.HasNext() && added < ix.cfg.ResultsPerThread; added++ {
				merged.Add(it.Next())
			}
		})
	}
	p.Wait()
	return merged
}

// scoringTrigrams returns the trigrams used for occurrence counting, folded
// when the query is case-insensitive.
func (s *Search) scoringTrigrams(qts []Trigram) []Trigram {
	if !s.caseInsensitive {
		return qts
	}
	folded := make([]Trigram, len(qts))
	for i, t := range qts {
		folded[i] = foldTrigram(t)
	}
	return folded
}

// rank applies visibility, permission, and score filters to the candidate
// set and returns the top k results in descending score order.
func (s *Search) rank(candidates *roaring64.Bitmap, scoreTrigrams []Trigram, k int) []Result {
	ix := s.index
	n := float64(ix.liveFiles)

	h := heapPool.Get().(*resultHeap)
	defer func() {
		*h = (*h)[:0]
		heapPool.Put(h)
	}()

	for it := candidates.Iterator(); it.HasNext(); {
		raw := it.Next()
		if raw >= ix.sealedFiles || ix.tombstones.Contains(raw) {
			continue
		}
		id := FileID(raw)
		meta := ix.metas.get(id)
		if meta == nil || meta.Tombstoned() {
			continue
		}
		if !meta.MayRead(s.uid, s.gid) {
			continue
		}
		score := scorePath(meta.Path, scoreTrigrams, n, s.caseInsensitive)
		if score < ix.cfg.ScoreThreshold {
			continue
		}
		r := Result{ID: id, Score: score}
		if h.Len() < k {
			heap.Push(h, r)
		} else if len(*h) > 0 && r.Score > (*h)[0].Score {
			heap.Pop(h)
			heap.Push(h, r)
		}
	}

	out := make([]Result, h.Len())
	copy(out, *h)
	slices.SortFunc(out, func(a, b Result) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})
	return out
}

// executeTrie serves queries below the trigram floor from the path trie.
// Every committed, readable path containing the literal is returned.
func (s *Search) executeTrie(k int) []Result {
	ix := s.index
	ix.stats.TrieLookups.Add(1)

	seen := roaring64.New()
	var out []Result
	ix.trie.search([]byte(s.query), s.caseInsensitive, func(id FileID) bool {
		raw := uint64(id)
		if raw >= ix.sealedFiles || ix.tombstones.Contains(raw) || seen.Contains(raw) {
			return true
		}
		seen.Add(raw)
		meta := ix.metas.get(id)
		if meta == nil || meta.Tombstoned() || !meta.MayRead(s.uid, s.gid) {
			return true
		}
		out = append(out, Result{ID: id, Score: 1})
		return len(out) < k
	})
	slices.SortFunc(out, func(a, b Result) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})
	return out
}

// executeRegex serves regex queries. When the pattern has a literal prefix of
// trigram width the usual Bloom and posting-list pipeline prefilters the
// candidates; otherwise every committed file is considered. Either way each
// candidate path is verified against the compiled pattern, so false
// positives never leak.
func (s *Search) executeRegex(k int) ([]Result, error) {
	ix := s.index

	pattern := s.query
	if s.caseInsensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: bad regex: %v", ErrInvalidArgument, err)
	}
	if ix.sealed == nil || ix.liveFiles == 0 {
		return nil, nil
	}

	var candidates *roaring64.Bitmap
	lit, _ := re.LiteralPrefix()
	if len(lit) >= TrigramSize {
		qts := AppendTrigrams(nil, lit)
		decodeSet, ok := s.bloomStage(qts)
		if !ok {
			ix.stats.BloomRejections.Add(1)
			return nil, nil
		}
		candidates = s.resolveCandidates(decodeSet)
	} else {
		candidates = roaring64.New()
		candidates.AddRange(0, ix.sealedFiles)
	}

	var out []Result
	for it := candidates.Iterator(); it.HasNext() && len(out) < k; {
		raw := it.Next()
		if raw >= ix.sealedFiles || ix.tombstones.Contains(raw) {
			continue
		}
		meta := ix.metas.get(FileID(raw))
		if meta == nil || meta.Tombstoned() || !meta.MayRead(s.uid, s.gid) {
			continue
		}
		if !re.MatchString(meta.Path) {
			continue
		}
		out = append(out, Result{ID: FileID(raw), Score: 1})
	}
	return out, nil
}

// scorePath computes the relevance of a path for the query trigrams: per
// trigram, term frequency over usable path positions times the corpus-wide
// inverse frequency, summed and normalized by the square root of the path
// length.
func scorePath(path string, trigrams []Trigram, numFiles float64, fold bool) float64 {
	if len(path) < TrigramSize || numFiles <= 0 {
		return 0
	}
	var sum float64
	for _, t := range trigrams {
		freq := countOccurrences(path, t, fold)
		if freq == 0 {
			continue
		}
		tf := float64(freq) / float64(len(path)-2)
		idf := math.Log(numFiles / float64(freq+1))
		if idf <= 0 {
			// Corpora smaller than the occurrence count invert the log;
			// a term that frequent carries no discriminating signal.
			continue
		}
		sum += tf * idf
	}
	return sum / math.Sqrt(float64(len(path)))
}

// Compile-time check that resultHeap satisfies heap.Interface
var _ heap.Interface = (*resultHeap)(nil)

// resultHeap is a min-heap of Results keyed on score, used for top-K
// selection without sorting every candidate.
type resultHeap []Result

func (h resultHeap) Len() int           { return len(h) }
func (h resultHeap) Less(i, j int) bool { return h[i].Score < h[j].Score }
func (h resultHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *resultHeap) Push(x interface{}) {
	*h = append(*h, x.(Result))
}

func (h *resultHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

// heapPool recycles result heaps across queries.
var heapPool = sync.Pool{
	New: func() interface{} {
		return &resultHeap{}
	},
}
