package qfind

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"syscall"

	"github.com/sourcegraph/conc/pool"
)

// Build walks the directory tree rooted at root, indexes every regular file,
// and commits. It returns the number of files indexed. Unreadable entries are
// logged and skipped; an unreadable root is ErrIO.
//
// Directory enumeration is sequential; the per-file stat and add work is
// spread over a bounded worker pool.
func (ix *Index) Build(root string) (int, error) {
	if root == "" {
		return 0, fmt.Errorf("%w: empty root", ErrInvalidArgument)
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			ix.log.Warn().Err(err).Str("path", path).Msg("skipping unreadable entry")
			return nil
		}
		if d.Type().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: walking %s: %v", ErrIO, root, err)
	}

	workers := ix.cfg.WorkerThreads
	if n := runtime.GOMAXPROCS(0); workers > n {
		workers = n
	}

	var indexed atomic.Int64
	p := pool.New().WithMaxGoroutines(workers)
	for _, path := range paths {
		path := path
		p.Go(func() {
			if _, err := ix.AddFile(path, statFile(path)); err != nil {
				ix.log.Warn().Err(err).Str("path", path).Msg("skipping file")
				return
			}
			indexed.Add(1)
		})
	}
	p.Wait()

	if err := ix.Commit(); err != nil {
		return int(indexed.Load()), err
	}
	return int(indexed.Load()), nil
}

// statFile observes a file's mode, ownership, and mtime. A failed stat
// yields zero attributes; the path is still indexable.
func statFile(path string) FileInfo {
	fi, err := os.Lstat(path)
	if err != nil {
		return FileInfo{}
	}
	info := FileInfo{
		Mode:    uint32(fi.Mode().Perm()),
		ModTime: fi.ModTime(),
	}
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		info.Mode = uint32(st.Mode & 0o7777)
		info.UID = st.Uid
		info.GID = st.Gid
	}
	return info
}
