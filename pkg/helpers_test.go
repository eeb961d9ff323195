package findduplicatefiles

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// writeTree creates files under root from a relative path to content map
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		writeFile(t, filepath.Join(root, rel), []byte(content))
	}
}

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, content, 0644))
}

// testOptions returns default options with a small worker pool
func testOptions() Options {
	opts := DefaultOptions()
	opts.Workers = 2
	return opts
}

// relativeGroups returns the member paths of each group relative to root
func relativeGroups(t *testing.T, root string, groups []DuplicateGroup) [][]string {
	t.Helper()
	result := make([][]string, 0, len(groups))
	for _, g := range groups {
		var paths []string
		for _, f := range g.Files {
			rel, err := filepath.Rel(root, f.Path)
			require.NoError(t, err)
			paths = append(paths, filepath.ToSlash(rel))
		}
		result = append(result, paths)
	}
	return result
}

// patterned returns size bytes of a repeating pattern starting at seed
func patterned(size int, seed byte) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = seed + byte(i%251)
	}
	return data
}

// makeFifo creates a named pipe that blocks readers until a writer opens it.
// Cleanup opens the write side so reads left behind by a test can finish.
func makeFifo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fifo")
	require.NoError(t, unix.Mkfifo(path, 0644))
	t.Cleanup(func() {
		if f, err := os.OpenFile(path, os.O_RDWR, 0); err == nil {
			f.Close()
		}
	})
	return path
}
