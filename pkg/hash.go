package findduplicatefiles

import (
	"context"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"hash/crc64"
	"io"
	"strings"

	"golang.org/x/time/rate"
)

var crc64Table = crc64.MakeTable(crc64.ECMA)

// HashAlgorithm represents a hash algorithm configuration
type HashAlgorithm struct {
	Name    string
	TypeID  uint16
	Size    int
	NewFunc func() hash.Hash

	// CollisionResistant is false for digests that cannot be trusted as
	// proof of identity on their own; groups found with them are always
	// confirmed byte for byte.
	CollisionResistant bool
}

// GetHashAlgorithm returns the hash algorithm configuration for the given name
func GetHashAlgorithm(name string) (*HashAlgorithm, error) {
	switch strings.ToLower(name) {
	case "sha1":
		return &HashAlgorithm{
			Name:    "sha1",
			TypeID:  HashTypeSHA1,
			Size:    HashSizeSHA1,
			NewFunc: sha1.New,
		}, nil
	case "sha256":
		return &HashAlgorithm{
			Name:               "sha256",
			TypeID:             HashTypeSHA256,
			Size:               HashSizeSHA256,
			NewFunc:            sha256.New,
			CollisionResistant: true,
		}, nil
	case "sha512":
		return &HashAlgorithm{
			Name:               "sha512",
			TypeID:             HashTypeSHA512,
			Size:               HashSizeSHA512,
			NewFunc:            sha512.New,
			CollisionResistant: true,
		}, nil
	case "crc64":
		return &HashAlgorithm{
			Name:    "crc64",
			TypeID:  HashTypeCRC64,
			Size:    HashSizeCRC64,
			NewFunc: func() hash.Hash { return crc64.New(crc64Table) },
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, name)
	}
}

// GetHashAlgorithmByType returns the hash algorithm configuration for the given type ID
func GetHashAlgorithmByType(typeID uint16) (*HashAlgorithm, error) {
	name := HashTypeName(typeID)
	if name == "unknown" {
		return nil, fmt.Errorf("%w: type id %d", ErrUnsupportedAlgorithm, typeID)
	}
	return GetHashAlgorithm(name)
}

// Sum returns the digest of data.
func (a *HashAlgorithm) Sum(data []byte) []byte {
	hasher := a.NewFunc()
	hasher.Write(data)
	return hasher.Sum(nil)
}

// HashFile calculates the hash of a whole file using the specified algorithm
func HashFile(ctx context.Context, filePath string, algorithm *HashAlgorithm, bufferSize int) ([]byte, error) {
	hashBytes, _, err := hashFileLimited(ctx, filePath, algorithm, bufferSize, readPacing{})
	return hashBytes, err
}

// HashFileToHexString calculates the hash of a file and returns it as a hex string
func HashFileToHexString(ctx context.Context, filePath string, algorithm *HashAlgorithm, bufferSize int) (string, error) {
	hashBytes, err := HashFile(ctx, filePath, algorithm, bufferSize)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(hashBytes), nil
}

// hashFileLimited hashes a file through a bounded buffer, checking ctx
// between reads and waiting on the pacing limiter before each read. Each
// read is bounded by the pacing timeout on its own. It returns the digest
// and the number of bytes hashed.
func hashFileLimited(ctx context.Context, filePath string, algorithm *HashAlgorithm, bufferSize int, pacing readPacing) ([]byte, int64, error) {
	file, err := openPaced(ctx, filePath, pacing)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()

	hasher := algorithm.NewFunc()
	buffer := make([]byte, bufferSize)
	var total int64

	for {
		if err := ctx.Err(); err != nil {
			return nil, total, err
		}
		if err := waitLimiter(ctx, pacing.limiter, len(buffer)); err != nil {
			return nil, total, err
		}

		n, err := file.Read(buffer)
		if n > 0 {
			hasher.Write(buffer[:n])
			total += int64(n)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, total, err
		}
	}

	return hasher.Sum(nil), total, nil
}

// readPrefix reads the first limit bytes of a file. When exact is set the
// file must end right after limit bytes; this is how files no larger than the
// prefix size are read, since the prefix is then the whole content.
func readPrefix(ctx context.Context, filePath string, limit int64, exact bool, pacing readPacing) ([]byte, error) {
	if err := waitLimiter(ctx, pacing.limiter, int(limit)); err != nil {
		return nil, err
	}

	file, err := openPaced(ctx, filePath, pacing)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	want := limit
	if exact {
		want++ // one extra byte detects growth
	}
	data := make([]byte, want)
	n, err := io.ReadFull(file, data)
	switch {
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
	case err != nil:
		return nil, err
	}

	if int64(n) != limit {
		return nil, readFailure(filePath, fmt.Errorf("%w: read %d bytes, expected %d", ErrSizeChanged, n, limit))
	}
	return data[:n], nil
}

// waitLimiter blocks until n bytes may be read. A nil limiter never blocks.
func waitLimiter(ctx context.Context, limiter *rate.Limiter, n int) error {
	if limiter == nil || n <= 0 {
		return nil
	}
	if burst := limiter.Burst(); n > burst {
		n = burst
	}
	return limiter.WaitN(ctx, n)
}
