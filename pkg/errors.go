package findduplicatefiles

import (
	"errors"
	"fmt"
)

var (
	// ErrNotADirectory is returned when the search root is missing or is not a directory.
	ErrNotADirectory = errors.New("not a directory")

	// ErrUnsupportedAlgorithm is returned for an unknown hash algorithm name.
	ErrUnsupportedAlgorithm = errors.New("unsupported hash algorithm")

	// ErrReadTimeout is returned when a single file read exceeds the configured read timeout.
	ErrReadTimeout = errors.New("read timed out")

	// ErrSizeChanged is returned when a file no longer has the size recorded by the inventory.
	ErrSizeChanged = errors.New("file size changed during scan")
)

// ConfigError reports an invalid option or search root. It is fatal to a run
// and is always returned before any file is read.
type ConfigError struct {
	Field string
	Value string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ReadFailure reports a file that could not be read while classifying. The
// file is dropped from its candidate group and the run continues.
type ReadFailure struct {
	Path string
	Err  error
}

func (e *ReadFailure) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *ReadFailure) Unwrap() error { return e.Err }

func readFailure(path string, err error) error {
	var rf *ReadFailure
	if errors.As(err, &rf) {
		return err
	}
	return &ReadFailure{Path: path, Err: err}
}
