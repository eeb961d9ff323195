package findduplicatefiles

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestGetHashAlgorithm(t *testing.T) {
	testCases := []struct {
		name               string
		typeID             uint16
		size               int
		collisionResistant bool
	}{
		{"sha1", HashTypeSHA1, HashSizeSHA1, false},
		{"sha256", HashTypeSHA256, HashSizeSHA256, true},
		{"SHA512", HashTypeSHA512, HashSizeSHA512, true},
		{"crc64", HashTypeCRC64, HashSizeCRC64, false},
	}

	for _, tc := range testCases {
		algo, err := GetHashAlgorithm(tc.name)
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.typeID, algo.TypeID)
		assert.Equal(t, tc.size, algo.Size)
		assert.Equal(t, tc.collisionResistant, algo.CollisionResistant)
		assert.Len(t, algo.Sum([]byte("abc")), tc.size)

		byType, err := GetHashAlgorithmByType(tc.typeID)
		require.NoError(t, err)
		assert.Equal(t, algo.Name, byType.Name)
	}

	_, err := GetHashAlgorithm("md5")
	assert.True(t, errors.Is(err, ErrUnsupportedAlgorithm))

	_, err = GetHashAlgorithmByType(99)
	assert.True(t, errors.Is(err, ErrUnsupportedAlgorithm))
}

func TestHashFileToHexString(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	content := patterned(10000, 9)
	writeFile(t, path, content)

	algo, err := GetHashAlgorithm("sha256")
	require.NoError(t, err)

	// A buffer smaller than the file exercises several reads
	got, err := HashFileToHexString(context.Background(), path, algo, 333)
	require.NoError(t, err)

	sum := sha256.Sum256(content)
	assert.Equal(t, hex.EncodeToString(sum[:]), got)
}

func TestHashFileLimited(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	writeFile(t, path, patterned(5000, 0))

	algo, err := GetHashAlgorithm("sha256")
	require.NoError(t, err)

	limiter := rate.NewLimiter(rate.Limit(1<<20), 1<<20)
	digest, total, err := hashFileLimited(context.Background(), path, algo, 1024, readPacing{limiter: limiter, timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, int64(5000), total)
	assert.Len(t, digest, HashSizeSHA256)

	_, _, err = hashFileLimited(context.Background(), filepath.Join(t.TempDir(), "missing"), algo, 1024, readPacing{})
	var rf *ReadFailure
	require.True(t, errors.As(err, &rf))
	assert.Contains(t, rf.Path, "missing")
}

func TestHashFileLimited_Cancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	writeFile(t, path, patterned(100, 0))

	algo, err := GetHashAlgorithm("sha256")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = hashFileLimited(ctx, path, algo, 16, readPacing{})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestReadPrefix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	content := []byte("0123456789")
	writeFile(t, path, content)
	ctx := context.Background()

	t.Run("partial prefix", func(t *testing.T) {
		data, err := readPrefix(ctx, path, 4, false, readPacing{})
		require.NoError(t, err)
		assert.Equal(t, []byte("0123"), data)
	})

	t.Run("exact whole file", func(t *testing.T) {
		data, err := readPrefix(ctx, path, 10, true, readPacing{})
		require.NoError(t, err)
		assert.Equal(t, content, data)
	})

	t.Run("file grew", func(t *testing.T) {
		_, err := readPrefix(ctx, path, 8, true, readPacing{})
		assert.True(t, errors.Is(err, ErrSizeChanged))
	})

	t.Run("file shrank", func(t *testing.T) {
		_, err := readPrefix(ctx, path, 12, false, readPacing{})
		assert.True(t, errors.Is(err, ErrSizeChanged))

		var rf *ReadFailure
		require.True(t, errors.As(err, &rf))
		assert.Equal(t, path, rf.Path)
	})
}

func TestSameContent(t *testing.T) {
	dir := t.TempDir()
	a := patterned(9000, 1)
	writeFile(t, filepath.Join(dir, "a"), a)
	writeFile(t, filepath.Join(dir, "same"), a)

	changed := append([]byte(nil), a...)
	changed[8999]++
	writeFile(t, filepath.Join(dir, "changed"), changed)
	writeFile(t, filepath.Join(dir, "short"), a[:8000])

	ctx := context.Background()
	p := func(name string) string { return filepath.Join(dir, name) }

	equal, err := sameContent(ctx, p("a"), p("same"), 1000, readPacing{})
	require.NoError(t, err)
	assert.True(t, equal)

	equal, err = sameContent(ctx, p("a"), p("changed"), 1000, readPacing{})
	require.NoError(t, err)
	assert.False(t, equal)

	equal, err = sameContent(ctx, p("a"), p("short"), 1000, readPacing{})
	require.NoError(t, err)
	assert.False(t, equal)

	_, err = sameContent(ctx, p("a"), p("missing"), 1000, readPacing{})
	var rf *ReadFailure
	require.True(t, errors.As(err, &rf))
	assert.Equal(t, p("missing"), rf.Path)
}

func TestReadPrefix_Timeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	writeFile(t, path, []byte("0123456789"))

	data, err := readPrefix(context.Background(), path, 10, true, readPacing{timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, []byte("0123456789"), data)

	fifo := makeFifo(t)
	_, err = readPrefix(context.Background(), fifo, 10, false, readPacing{timeout: 50 * time.Millisecond})
	assert.True(t, errors.Is(err, ErrReadTimeout))
	var rf *ReadFailure
	require.True(t, errors.As(err, &rf))
	assert.Equal(t, fifo, rf.Path)
}

func TestPacedFile(t *testing.T) {
	t.Run("open without writer times out", func(t *testing.T) {
		fifo := makeFifo(t)

		_, err := openPaced(context.Background(), fifo, readPacing{timeout: 50 * time.Millisecond})
		assert.True(t, errors.Is(err, ErrReadTimeout))

		var rf *ReadFailure
		require.True(t, errors.As(err, &rf))
		assert.Equal(t, fifo, rf.Path)
	})

	t.Run("stalled read times out", func(t *testing.T) {
		fifo := makeFifo(t)
		writer, err := os.OpenFile(fifo, os.O_RDWR, 0)
		require.NoError(t, err)
		defer writer.Close()

		file, err := openPaced(context.Background(), fifo, readPacing{timeout: 50 * time.Millisecond})
		require.NoError(t, err)

		_, err = writer.Write([]byte("ab"))
		require.NoError(t, err)
		buf := make([]byte, 4)
		n, err := file.Read(buf)
		require.NoError(t, err)
		assert.Equal(t, "ab", string(buf[:n]))

		start := time.Now()
		_, err = file.Read(buf)
		assert.True(t, errors.Is(err, ErrReadTimeout))
		assert.Less(t, time.Since(start), 5*time.Second)

		var rf *ReadFailure
		require.True(t, errors.As(err, &rf))
		assert.Equal(t, fifo, rf.Path)

		// An abandoned file refuses further reads
		_, err = file.Read(buf)
		assert.True(t, errors.Is(err, ErrReadTimeout))
		assert.NoError(t, file.Close())
	})

	t.Run("cancelled while reading", func(t *testing.T) {
		fifo := makeFifo(t)
		writer, err := os.OpenFile(fifo, os.O_RDWR, 0)
		require.NoError(t, err)
		defer writer.Close()

		ctx, cancel := context.WithCancel(context.Background())
		file, err := openPaced(ctx, fifo, readPacing{timeout: time.Minute})
		require.NoError(t, err)

		time.AfterFunc(20*time.Millisecond, cancel)
		_, err = file.Read(make([]byte, 4))
		assert.True(t, errors.Is(err, context.Canceled))
		assert.NoError(t, file.Close())
	})

	t.Run("zero timeout reads inline", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "f")
		writeFile(t, path, []byte("inline"))

		file, err := openPaced(context.Background(), path, readPacing{})
		require.NoError(t, err)
		defer file.Close()

		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "inline", string(data))
	})

	t.Run("missing file names the path", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "missing")
		_, err := openPaced(context.Background(), missing, readPacing{timeout: time.Second})

		var rf *ReadFailure
		require.True(t, errors.As(err, &rf))
		assert.Equal(t, missing, rf.Path)
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})
}
