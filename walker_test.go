package qfind

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestBuild walks a real directory tree, indexes it, and makes every file
// findable by a query equal to its own path
func TestBuild(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub", "deep"), 0o755))

	files := []string{
		filepath.Join(dir, "alpha.txt"),
		filepath.Join(dir, "sub", "beta.log"),
		filepath.Join(dir, "sub", "deep", "gamma.conf"),
	}
	for _, f := range files {
		require.NoError(t, os.WriteFile(f, []byte("x"), 0o644))
	}

	ix := newTestIndex(t, testConfig())
	count, err := ix.Build(dir)
	require.NoError(t, err)
	require.Equal(t, len(files), count)
	require.Equal(t, StateSealed, ix.State())

	for _, f := range files {
		results, err := ix.NewSearch().WithQuery(f).WithUser(1000, 1000).Execute()
		require.NoError(t, err)
		paths := ix.ResolvePaths(resultIDs(results))
		require.Contains(t, paths, f, "query equal to an indexed path must return it")
	}
}

// TestBuildSkipsDirectories indexes only regular files
func TestBuildSkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "only-dirs", "here"), 0o755))

	ix := newTestIndex(t, testConfig())
	count, err := ix.Build(dir)
	require.NoError(t, err)
	require.Zero(t, count)
}

// TestBuildMissingRoot reports ErrIO
func TestBuildMissingRoot(t *testing.T) {
	ix := newTestIndex(t, testConfig())
	_, err := ix.Build(filepath.Join(t.TempDir(), "does-not-exist"))
	require.ErrorIs(t, err, ErrIO)
}

// TestBuildEmptyRoot rejects the empty string
func TestBuildEmptyRoot(t *testing.T) {
	ix := newTestIndex(t, testConfig())
	_, err := ix.Build("")
	require.ErrorIs(t, err, ErrInvalidArgument)
}

// TestStatFile observes permissions of a real file
func TestStatFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "probe")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o640))

	info := statFile(path)
	require.Equal(t, uint32(0o640), info.Mode&0o777)
	require.False(t, info.ModTime.IsZero())

	require.Equal(t, FileInfo{}, statFile(filepath.Join(dir, "missing")))
}
