package findduplicatefiles

import (
	"errors"
	"fmt"
	"time"
)

// Options controls a duplicate search.
type Options struct {
	// PrefixSize is the number of leading bytes read in the prefix phase.
	// Files no larger than this are read only once.
	PrefixSize int64

	// HashAlgorithm names the digest used for both phases.
	HashAlgorithm string

	// Verify confirms every group with a byte comparison. It is forced on
	// for algorithms that are not collision resistant.
	Verify bool

	// SymlinkMode is one of SymlinkNone, SymlinkContained or SymlinkAll.
	SymlinkMode string

	Workers    int
	BufferSize int

	// ReadTimeout bounds each open and each buffer read of a file, not the
	// whole file, so a throttled read that keeps progressing is never cut
	// off. Zero disables the deadline.
	ReadTimeout time.Duration

	// IOLimit caps read throughput in bytes per second. Zero is unlimited.
	IOLimit int64

	// Hardlinks reports every link to a file instead of only the first.
	Hardlinks bool

	MinSize int64
	Ignore  *IgnoreManager
	Logger  *Logger
}

// DefaultOptions returns the options used when nothing is configured
func DefaultOptions() Options {
	return Options{
		PrefixSize:    mustParseSize(DefaultPrefixSize),
		HashAlgorithm: DefaultHashAlgorithm,
		SymlinkMode:   DefaultSymlinkMode,
		Workers:       DefaultHashWorkers,
		BufferSize:    int(mustParseSize(DefaultHashBuffer)),
		ReadTimeout:   DefaultReadTimeout,
		Logger:        NoopLogger(),
	}
}

// FollowSymlinks maps a follow/don't-follow flag onto a symlink mode
func FollowSymlinks(follow bool) string {
	if follow {
		return SymlinkContained
	}
	return SymlinkNone
}

// withDefaults fills zero-valued fields that have no meaningful zero
func (o Options) withDefaults() Options {
	if o.PrefixSize == 0 {
		o.PrefixSize = mustParseSize(DefaultPrefixSize)
	}
	if o.HashAlgorithm == "" {
		o.HashAlgorithm = DefaultHashAlgorithm
	}
	if o.SymlinkMode == "" {
		o.SymlinkMode = DefaultSymlinkMode
	}
	if o.Workers == 0 {
		o.Workers = DefaultHashWorkers
	}
	if o.BufferSize == 0 {
		o.BufferSize = int(mustParseSize(DefaultHashBuffer))
	}
	if o.Logger == nil {
		o.Logger = NoopLogger()
	}
	return o
}

// Validate checks every option and returns the first problem as a *ConfigError
func (o Options) Validate() error {
	if o.PrefixSize < 1 {
		return &ConfigError{Field: "prefix_size", Value: fmt.Sprint(o.PrefixSize), Err: errors.New("must be at least 1 byte")}
	}
	if err := ValidateHashAlgorithm(o.HashAlgorithm); err != nil {
		return &ConfigError{Field: "hash_algorithm", Value: o.HashAlgorithm, Err: err}
	}
	if err := ValidateSymlinkMode(o.SymlinkMode); err != nil {
		return &ConfigError{Field: "symlink_mode", Value: o.SymlinkMode, Err: err}
	}
	if err := ValidateHashWorkers(o.Workers); err != nil {
		return &ConfigError{Field: "hash_workers", Value: fmt.Sprint(o.Workers), Err: err}
	}
	if o.BufferSize < 1 {
		return &ConfigError{Field: "hash_buffer", Value: fmt.Sprint(o.BufferSize), Err: errors.New("must be at least 1 byte")}
	}
	if o.ReadTimeout < 0 {
		return &ConfigError{Field: "read_timeout", Value: o.ReadTimeout.String(), Err: errors.New("must not be negative")}
	}
	if o.IOLimit < 0 {
		return &ConfigError{Field: "io_limit", Value: fmt.Sprint(o.IOLimit), Err: errors.New("must not be negative")}
	}
	if o.MinSize < 0 {
		return &ConfigError{Field: "min_size", Value: fmt.Sprint(o.MinSize), Err: errors.New("must not be negative")}
	}
	return nil
}

func mustParseSize(s string) int64 {
	size, err := ParseHumanSize(s)
	if err != nil {
		panic(err)
	}
	return size
}
