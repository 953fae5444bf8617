package qfind

import "time"

// FileID is a 64-bit identifier assigned monotonically by the index. IDs are
// never reused within an index lifetime, even after the file is deleted.
type FileID uint64

// InvalidFileID is the reserved all-ones id.
const InvalidFileID = ^FileID(0)

// PathMax is the longest path the engine accepts, in bytes.
const PathMax = 4096

// Permission bits consulted by MayRead. Mode is stored separately from the
// owning uid and gid; the three are never packed into one word.
const (
	modeOwnerRead = 0o400
	modeGroupRead = 0o040
	modeOtherRead = 0o004
)

// FileInfo carries the attributes the walker or notifier observed for a file.
type FileInfo struct {
	Mode    uint32
	UID     uint32
	GID     uint32
	ModTime time.Time
}

// FileMeta is the per-file record owned by the index. It is appended once on
// add; a delete clears Path instead of removing the record (a tombstone), so
// posting-list entries for dead ids stay silently filterable at query time.
type FileMeta struct {
	ID      FileID
	Path    string
	Mode    uint32
	UID     uint32
	GID     uint32
	ModTime time.Time
}

// Tombstoned reports whether this record has been deleted.
func (m *FileMeta) Tombstoned() bool {
	return len(m.Path) == 0
}

// MayRead is the pure permission predicate: whether a caller with the given
// uid and gid may read this file. Root reads everything; otherwise the
// owner, group, and world read bits are checked against the stored owning
// uid and gid.
func (m *FileMeta) MayRead(uid, gid uint32) bool {
	if uid == 0 {
		return true
	}
	if m.Mode&modeOtherRead != 0 {
		return true
	}
	if m.Mode&modeOwnerRead != 0 && m.UID == uid {
		return true
	}
	if m.Mode&modeGroupRead != 0 && m.GID == gid {
		return true
	}
	return false
}

// metaTable is the append-only file-metadata store, indexed by FileID.
type metaTable struct {
	metas []FileMeta
}

// append adds a record for id. IDs usually arrive in allocation order, but a
// gap appears when an id allocated by EnqueueAdd has not been applied yet; the
// table is padded with tombstones so lookup stays a direct index, and the
// padding record is overwritten when that add is applied at commit.
func (t *metaTable) append(meta FileMeta) {
	for uint64(len(t.metas)) < uint64(meta.ID) {
		t.metas = append(t.metas, FileMeta{ID: FileID(len(t.metas))})
	}
	t.metas = append(t.metas, meta)
}

// get returns the record for id, or nil if the id was never allocated.
func (t *metaTable) get(id FileID) *FileMeta {
	if uint64(id) >= uint64(len(t.metas)) {
		return nil
	}
	return &t.metas[id]
}

// tombstone clears the path bytes for id and reports whether a live record
// was present.
func (t *metaTable) tombstone(id FileID) bool {
	m := t.get(id)
	if m == nil || m.Tombstoned() {
		return false
	}
	m.Path = ""
	return true
}

func (t *metaTable) len() int {
	return len(t.metas)
}
