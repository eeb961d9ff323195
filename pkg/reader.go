package findduplicatefiles

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/time/rate"
)

// readPacing throttles and bounds the reads of one file. The limiter (nil
// for none) is waited on before each read; the timeout (zero for none)
// bounds each open and each Read call separately, so a slow file that keeps
// making progress is never cut off.
type readPacing struct {
	limiter *rate.Limiter
	timeout time.Duration
}

type openResult struct {
	file *os.File
	err  error
}

type readResult struct {
	n   int
	err error
}

// pacedFile is a read-only file whose Read calls are abandoned after the
// pacing timeout. Errors other than io.EOF come back as *ReadFailure naming
// the file, so callers comparing two files know which one failed.
type pacedFile struct {
	ctx     context.Context
	path    string
	file    *os.File
	timeout time.Duration
	stalled chan readResult // set once a read has been abandoned
}

// openPaced opens path for reading within the pacing timeout. An open that
// blocks (a FIFO without a writer, a hung mount) is abandoned and the file is
// closed in the background once the open returns.
func openPaced(ctx context.Context, path string, pacing readPacing) (*pacedFile, error) {
	if pacing.timeout <= 0 {
		file, err := os.Open(path)
		if err != nil {
			return nil, readFailure(path, err)
		}
		return &pacedFile{ctx: ctx, path: path, file: file}, nil
	}

	done := make(chan openResult, 1)
	go func() {
		file, err := os.Open(path)
		done <- openResult{file: file, err: err}
	}()

	timer := time.NewTimer(pacing.timeout)
	defer timer.Stop()

	abandon := func() {
		go func() {
			if r := <-done; r.file != nil {
				r.file.Close()
			}
		}()
	}

	select {
	case r := <-done:
		if r.err != nil {
			return nil, readFailure(path, r.err)
		}
		return &pacedFile{ctx: ctx, path: path, file: r.file, timeout: pacing.timeout}, nil
	case <-timer.C:
		abandon()
		return nil, readFailure(path, fmt.Errorf("%w: open after %s", ErrReadTimeout, pacing.timeout))
	case <-ctx.Done():
		abandon()
		return nil, ctx.Err()
	}
}

// Read reads into p. After a read has been abandoned, p may still be written
// by it, and the pacedFile must not be read again.
func (f *pacedFile) Read(p []byte) (int, error) {
	if f.stalled != nil {
		return 0, readFailure(f.path, ErrReadTimeout)
	}
	if f.timeout <= 0 {
		return f.wrap(f.file.Read(p))
	}

	done := make(chan readResult, 1)
	go func() {
		n, err := f.file.Read(p)
		done <- readResult{n: n, err: err}
	}()

	timer := time.NewTimer(f.timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		return f.wrap(r.n, r.err)
	case <-timer.C:
		f.stalled = done
		return 0, readFailure(f.path, fmt.Errorf("%w after %s", ErrReadTimeout, f.timeout))
	case <-f.ctx.Done():
		f.stalled = done
		return 0, f.ctx.Err()
	}
}

func (f *pacedFile) wrap(n int, err error) (int, error) {
	if err != nil && !errors.Is(err, io.EOF) {
		return n, readFailure(f.path, err)
	}
	return n, err
}

// Close closes the file. If a read is still outstanding the close happens
// once it returns, since closing under a blocked read would block too.
func (f *pacedFile) Close() error {
	if f.stalled != nil {
		stalled, file := f.stalled, f.file
		go func() {
			<-stalled
			file.Close()
		}()
		return nil
	}
	return f.file.Close()
}
