package qfind

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// TestWatcherAddAndRemove drives real filesystem events through the update
// queue: a created file becomes searchable after commit, a removed one
// disappears
func TestWatcherAddAndRemove(t *testing.T) {
	dir := t.TempDir()

	cfg := testConfig()
	cfg.LSMBatchSize = 1 // every event wakes the committer
	ix, err := NewWithLogger(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer ix.Close()

	w, err := NewWatcher(ix, dir)
	require.NoError(t, err)
	defer w.Close()

	path := filepath.Join(dir, "watched.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	require.Eventually(t, func() bool {
		results, err := ix.NewSearch().WithQuery("watched").WithUser(1000, 1000).Execute()
		return err == nil && len(results) == 1
	}, 5*time.Second, 20*time.Millisecond, "created file never became searchable")

	require.NoError(t, os.Remove(path))

	require.Eventually(t, func() bool {
		results, err := ix.NewSearch().WithQuery("watched").WithUser(1000, 1000).Execute()
		return err == nil && len(results) == 0
	}, 5*time.Second, 20*time.Millisecond, "removed file never disappeared")
}

// TestWatcherNewDirectory verifies directories created after NewWatcher are
// watched too
func TestWatcherNewDirectory(t *testing.T) {
	dir := t.TempDir()

	cfg := testConfig()
	cfg.LSMBatchSize = 1
	ix, err := NewWithLogger(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer ix.Close()

	w, err := NewWatcher(ix, dir)
	require.NoError(t, err)
	defer w.Close()

	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))

	// The directory watch is added asynchronously, so writes racing it may
	// go unseen. Each attempt writes a fresh file until one is observed.
	attempt := 0
	require.Eventually(t, func() bool {
		attempt++
		path := filepath.Join(sub, fmt.Sprintf("nested-%d.txt", attempt))
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			return false
		}
		results, err := ix.NewSearch().WithQuery("nested").WithUser(1000, 1000).Execute()
		return err == nil && len(results) > 0
	}, 5*time.Second, 50*time.Millisecond)
}

// TestWatcherMissingPath fails fast on a nonexistent watch root
func TestWatcherMissingPath(t *testing.T) {
	ix := newTestIndex(t, testConfig())
	_, err := NewWatcher(ix, filepath.Join(t.TempDir(), "gone"))
	require.Error(t, err)
}
