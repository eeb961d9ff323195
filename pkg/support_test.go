package findduplicatefiles

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathQueue(t *testing.T) {
	q := newPathQueue()
	assert.True(t, q.Push("/r/b", entryContext))
	assert.True(t, q.Push("/r/a.txt", entryContext))
	assert.True(t, q.Push("/r/a", rootContext))
	assert.False(t, q.Push("/r/b", entryContext), "duplicate push is a no-op")
	assert.Equal(t, 3, q.Len())

	var order []string
	for {
		path, context, ok := q.Pop()
		if !ok {
			break
		}
		if path == "/r/a" {
			assert.Equal(t, rootContext, context)
		}
		order = append(order, path)
	}
	assert.Equal(t, []string{"/r/a", "/r/a.txt", "/r/b"}, order)
	assert.Equal(t, 0, q.Len())
}

func TestPathQueue_DepthFirst(t *testing.T) {
	q := newPathQueue()
	for _, p := range []string{"/root/a-b", "/root/a.txt", "/root/a/x", "/root/a", "/root/ab"} {
		require.True(t, q.Push(p, entryContext))
	}

	var order []string
	for q.Len() > 0 {
		path, _, _ := q.Pop()
		order = append(order, path)
	}
	assert.Equal(t, []string{"/root/a", "/root/a/x", "/root/a-b", "/root/a.txt", "/root/ab"}, order)
}

func TestComparePaths(t *testing.T) {
	testCases := []struct {
		a, b string
		want int
	}{
		{"/root/a/x", "/root/a-b", -1},
		{"/root/a-b", "/root/a/x", 1},
		{"/root/a", "/root/a/x", -1},
		{"/root/a/x", "/root/a/x", 0},
		{"/root/b", "/root/a/z", 1},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, comparePaths(tc.a, tc.b), "%s vs %s", tc.a, tc.b)
	}
}

func TestIgnoreManager(t *testing.T) {
	var nilManager *IgnoreManager
	assert.False(t, nilManager.ShouldIgnore("anything"))
	assert.Nil(t, nilManager.Patterns())

	im, err := NewIgnoreManager(`^build/`, `\.o$`)
	require.NoError(t, err)
	assert.True(t, im.ShouldIgnore("build/out"))
	assert.True(t, im.ShouldIgnore("src/main.o"))
	assert.False(t, im.ShouldIgnore("src/main.go"))
	assert.Equal(t, []string{`^build/`, `\.o$`}, im.Patterns())

	require.NoError(t, im.AddPattern(`^tmp$`))
	assert.True(t, im.ShouldIgnore("tmp"))
	assert.Error(t, im.AddPattern(`(`))

	_, err = NewIgnoreManager(`[`)
	assert.Error(t, err)
}

func TestLoadIgnoreFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ignore")
	require.NoError(t, os.WriteFile(path, []byte("# caches\n\n^cache/\n  \\.swp$  \n"), 0644))

	im, err := LoadIgnoreFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, im.Path())
	assert.Equal(t, []string{`^cache/`, `\.swp$`}, im.Patterns())

	require.NoError(t, os.WriteFile(path, []byte("ok\n(\n"), 0644))
	_, err = LoadIgnoreFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, 0)
	logger.Info("hidden")
	logger.Warn("shown", "key", "value")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "key=value")

	buf.Reset()
	logger = NewLogger(&buf, 3).With("run", "abc")
	assert.Equal(t, 3, logger.Verbosity())
	func() {
		defer logger.Enter()()
		logger.Debug("inside")
	}()
	out := buf.String()
	assert.Equal(t, 3, strings.Count(out, "run=abc"))
	assert.Contains(t, out, "msg=enter")
	assert.Contains(t, out, "msg=exit")

	buf.Reset()
	NewJSONLogger(&buf, 1).Info("json", "n", 1)
	assert.Contains(t, buf.String(), `"msg":"json"`)

	NoopLogger().Error("discarded")
}
