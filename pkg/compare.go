package findduplicatefiles

import (
	"bytes"
	"context"
	"errors"
	"io"
)

// sameContent streams two files side by side and reports whether their
// bytes are identical. A read error or a stalled read is returned as a
// *ReadFailure naming the file that failed, so the caller knows which
// candidate to drop.
func sameContent(ctx context.Context, pathA, pathB string, bufferSize int, pacing readPacing) (bool, error) {
	fileA, err := openPaced(ctx, pathA, pacing)
	if err != nil {
		return false, err
	}
	defer fileA.Close()

	fileB, err := openPaced(ctx, pathB, pacing)
	if err != nil {
		return false, err
	}
	defer fileB.Close()

	bufA := make([]byte, bufferSize)
	bufB := make([]byte, bufferSize)

	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if err := waitLimiter(ctx, pacing.limiter, 2*bufferSize); err != nil {
			return false, err
		}

		nA, errA := io.ReadFull(fileA, bufA)
		if errA != nil && !isShortRead(errA) {
			return false, errA
		}
		nB, errB := io.ReadFull(fileB, bufB)
		if errB != nil && !isShortRead(errB) {
			return false, errB
		}

		if nA != nB || !bytes.Equal(bufA[:nA], bufB[:nB]) {
			return false, nil
		}
		if errA != nil || errB != nil {
			// Both reached EOF at the same offset.
			return errA != nil && errB != nil, nil
		}
	}
}

func isShortRead(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
