// Index aggregate and lifecycle.
//
// STATE MACHINE:
//
//	Empty → Building → Sealed → Building' → Sealed' → …
//
// The index is Empty at construction. AddFile or an enqueue transitions to
// Building; Commit transitions back to Sealed. Only committed state is
// visible to queries: results never include an id allocated after the most
// recent commit, and tombstones take effect at the commit that applies them.
//
// LOCKING:
// One reader/writer lock protects the aggregate. Queries hold it in read
// mode; AddFile, Commit, and the enqueue operations hold it in write mode.
// FileID allocation is an atomic counter independent of the lock. The two
// update batches carry their own short-critical-section locks.
package qfind

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RoaringBitmap/roaring/roaring64"
	"github.com/rs/zerolog"
)

// IndexState is the lifecycle state of an Index.
type IndexState uint8

const (
	// StateEmpty is the state at construction, before any add.
	StateEmpty IndexState = iota

	// StateBuilding has uncommitted adds or deletes.
	StateBuilding

	// StateSealed has every mutation committed and serves queries.
	StateSealed
)

func (s IndexState) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateBuilding:
		return "building"
	case StateSealed:
		return "sealed"
	default:
		return "unknown"
	}
}

// Index is the in-memory file-name search engine. Create one with New, feed
// it with Build or AddFile plus Commit, and query it through NewSearch. All
// methods are safe for concurrent use by multiple goroutines.
type Index struct {
	cfg   Config
	log   zerolog.Logger
	stats Stats

	mu       sync.RWMutex
	bloom    *feedForwardBloom
	trie     *pathTrie
	postings *postingStore
	metas    metaTable
	pathIDs  map[string]FileID

	// Committed snapshot. sealed is replaced wholesale by Commit and never
	// mutated in place; sealedFiles is the id-space boundary of the snapshot
	// and tombstones the set of committed deletes.
	sealed      *encodedPostings
	sealedFiles uint64
	liveFiles   uint64
	tombstones  *roaring64.Bitmap

	state  IndexState
	dirty  bool
	closed bool

	nextID atomic.Uint64

	adds updateBatch
	dels updateBatch

	commitCh chan struct{}
	closeCh  chan struct{}
	wg       sync.WaitGroup
}

// New creates an Index with the given configuration and starts its background
// committer. Close must be called to stop the committer and release memory.
func New(cfg Config) (*Index, error) {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	return NewWithLogger(cfg, logger)
}

// NewWithLogger is New with a caller-supplied logger.
func NewWithLogger(cfg Config, logger zerolog.Logger) (*Index, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	postings, err := newPostingStore()
	if err != nil {
		return nil, err
	}
	ix := &Index{
		cfg:        cfg,
		log:        logger,
		bloom:      newFeedForwardBloom(cfg.BloomPrimaryBytes, cfg.BloomSecondaryBytes, cfg.BloomHashes),
		trie:       newPathTrie(),
		postings:   postings,
		pathIDs:    make(map[string]FileID),
		tombstones: roaring64.New(),
		state:      StateEmpty,
		commitCh:   make(chan struct{}, 1),
		closeCh:    make(chan struct{}),
	}
	ix.wg.Add(1)
	go ix.committer()
	return ix, nil
}

// State returns the current lifecycle state.
func (ix *Index) State() IndexState {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.state
}

// Stats returns the instrumentation counters.
func (ix *Index) Stats() *Stats {
	return &ix.stats
}

// NumFiles returns the number of live files in the committed snapshot.
func (ix *Index) NumFiles() uint64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.liveFiles
}

// AddFile indexes a path with the given observed attributes and returns its
// id. Adding a path that is already present is idempotent and returns the
// existing id; the duplicate posting entries collapse at commit. The add is
// not visible to queries until Commit.
func (ix *Index) AddFile(path string, info FileInfo) (FileID, error) {
	if err := validatePath(path); err != nil {
		return InvalidFileID, err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		return InvalidFileID, ErrClosed
	}
	if id, ok := ix.pathIDs[path]; ok {
		ix.addLocked(path, info, id)
		return id, nil
	}
	id := FileID(ix.nextID.Add(1) - 1)
	ix.addLocked(path, info, id)
	return id, nil
}

// addLocked applies one add. Caller holds the write lock.
func (ix *Index) addLocked(path string, info FileInfo, id FileID) {
	meta := FileMeta{
		ID:      id,
		Path:    path,
		Mode:    info.Mode,
		UID:     info.UID,
		GID:     info.GID,
		ModTime: info.ModTime,
	}
	if existing := ix.metas.get(id); existing != nil {
		*existing = meta
	} else {
		ix.metas.append(meta)
	}
	ix.pathIDs[path] = id
	ix.trie.insert(path, id)
	for _, t := range AppendTrigrams(nil, path) {
		ix.bloom.add(t)
		ix.postings.add(t, id)
	}
	ix.dirty = true
	ix.state = StateBuilding
}

// EnqueueAdd records a filesystem create for the background pipeline. The
// file's attributes are observed now; the index mutation happens at the next
// commit. A path already present keeps its id.
func (ix *Index) EnqueueAdd(path string) error {
	if err := validatePath(path); err != nil {
		return err
	}
	info := statFile(path)

	ix.mu.Lock()
	if ix.closed {
		ix.mu.Unlock()
		return ErrClosed
	}
	id, ok := ix.pathIDs[path]
	if !ok {
		id = FileID(ix.nextID.Add(1) - 1)
		ix.pathIDs[path] = id
	}
	ix.state = StateBuilding
	ix.mu.Unlock()

	count, err := ix.adds.push(&updateNode{id: id, path: path, info: info, op: opAdd}, ix.cfg.LSMBatchSize)
	if err != nil {
		return err
	}
	if count >= ix.cfg.LSMBatchSize {
		ix.scheduleCommit()
	}
	return nil
}

// EnqueueDel records a filesystem delete. The path must be present (committed
// or pending); otherwise ErrNotFound. The tombstone takes effect at the next
// commit.
func (ix *Index) EnqueueDel(path string) error {
	if err := validatePath(path); err != nil {
		return err
	}

	ix.mu.Lock()
	if ix.closed {
		ix.mu.Unlock()
		return ErrClosed
	}
	id, ok := ix.pathIDs[path]
	if !ok {
		ix.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	delete(ix.pathIDs, path)
	ix.state = StateBuilding
	ix.mu.Unlock()

	count, err := ix.dels.push(&updateNode{id: id, path: path, op: opDel}, ix.cfg.LSMBatchSize)
	if err != nil {
		return err
	}
	if count >= ix.cfg.LSMBatchSize {
		ix.scheduleCommit()
	}
	return nil
}

// scheduleCommit wakes the background committer without blocking.
func (ix *Index) scheduleCommit() {
	select {
	case ix.commitCh <- struct{}{}:
	default:
	}
}

// Commit applies every pending add and delete, reseals the posting lists,
// and publishes the new snapshot to queries. On error the previous sealed
// snapshot stays intact. Committing a clean sealed index is a no-op.
func (ix *Index) Commit() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		return ErrClosed
	}
	return ix.commitLocked()
}

func (ix *Index) commitLocked() error {
	start := time.Now()

	for n := ix.adds.drain(); n != nil; n = n.next {
		ix.addLocked(n.path, n.info, n.id)
	}
	for n := ix.dels.drain(); n != nil; n = n.next {
		if ix.metas.tombstone(n.id) {
			ix.tombstones.Add(uint64(n.id))
			ix.dirty = true
		}
	}

	if !ix.dirty && ix.sealed != nil {
		return nil
	}

	sealed, err := ix.postings.seal()
	if err != nil {
		ix.log.Error().Err(err).Msg("commit failed, keeping previous snapshot")
		return err
	}

	ix.sealed = sealed
	ix.sealedFiles = uint64(ix.metas.len())
	ix.liveFiles = ix.sealedFiles - ix.tombstones.GetCardinality()
	ix.dirty = false
	ix.state = StateSealed
	ix.stats.Commits.Add(1)

	ix.log.Debug().
		Uint64("files", ix.liveFiles).
		Int("trigrams", len(sealed.dir)).
		Int("blob_bytes", len(sealed.blob)).
		Dur("took", time.Since(start)).
		Msg("commit sealed index")
	return nil
}

// Candidates returns the subset of patterns that earlier lookups recorded in
// the secondary Bloom filter. It is planning/analytics input only; search
// correctness never depends on it.
func (ix *Index) Candidates(patterns []Trigram) []Trigram {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.closed {
		return nil
	}
	return ix.bloom.candidates(patterns)
}

// ResolvePaths maps ids back to absolute paths through the metadata table.
// Tombstoned or unknown ids resolve to the empty string.
func (ix *Index) ResolvePaths(ids []FileID) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	paths := make([]string, len(ids))
	if ix.closed {
		return paths
	}
	for i, id := range ids {
		if m := ix.metas.get(id); m != nil {
			paths[i] = m.Path
		}
	}
	return paths
}

// committer is the background worker: it commits when a batch crosses the
// trigger size and unconditionally every CommitInterval, and performs a final
// commit on close.
func (ix *Index) committer() {
	defer ix.wg.Done()

	ticker := time.NewTicker(ix.cfg.CommitInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ix.backgroundCommit()
		case <-ix.commitCh:
			ix.backgroundCommit()
		case <-ix.closeCh:
			ix.backgroundCommit()
			return
		}
	}
}

// backgroundCommit runs a commit on behalf of the committer, which keeps
// draining during shutdown after closed is already set.
func (ix *Index) backgroundCommit() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.postings == nil {
		return
	}
	if err := ix.commitLocked(); err != nil {
		ix.log.Error().Err(err).Msg("background commit failed")
	}
}

// Close stops the background committer, performs a final commit, and releases
// all index memory. The index is unusable afterwards.
func (ix *Index) Close() error {
	ix.mu.Lock()
	if ix.closed {
		ix.mu.Unlock()
		return ErrClosed
	}
	ix.closed = true
	ix.mu.Unlock()

	close(ix.closeCh)
	ix.wg.Wait()

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.postings.close()
	ix.bloom = nil
	ix.trie = nil
	ix.postings = nil
	ix.metas = metaTable{}
	ix.pathIDs = nil
	ix.sealed = nil
	ix.tombstones = nil
	return nil
}

func validatePath(path string) error {
	if len(path) == 0 {
		return fmt.Errorf("%w: empty path", ErrInvalidArgument)
	}
	if len(path) > PathMax {
		return fmt.Errorf("%w: path exceeds %d bytes", ErrInvalidArgument, PathMax)
	}
	return nil
}
