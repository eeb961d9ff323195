package findduplicatefiles

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Classifier splits size buckets into classes of byte-identical files.
//
// Every candidate is first reduced to a digest of its leading bytes. Files no
// larger than the prefix size are read whole in that pass and need nothing
// else. Larger files that still share a prefix digest get a full-content
// digest. When verification is on, each resulting class is confirmed by a
// streaming byte comparison against a representative member.
type Classifier struct {
	alg        *HashAlgorithm
	prefixSize int64
	bufferSize int
	verify     bool
	workers    int
	pacing     readPacing
	logger     *Logger
	stats      *runStats
}

// class is a set of entries believed identical: same size, same digest
type class struct {
	size    int64
	digest  []byte
	members []FileEntry
}

type digestFunc func(ctx context.Context, entry FileEntry) ([]byte, error)

// NewClassifier creates a classifier from opts
func NewClassifier(opts Options) (*Classifier, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return newClassifier(opts, &runStats{})
}

func newClassifier(opts Options, stats *runStats) (*Classifier, error) {
	alg, err := GetHashAlgorithm(opts.HashAlgorithm)
	if err != nil {
		return nil, &ConfigError{Field: "hash_algorithm", Value: opts.HashAlgorithm, Err: err}
	}

	var limiter *rate.Limiter
	if opts.IOLimit > 0 {
		burst := max(opts.IOLimit, int64(opts.BufferSize))
		limiter = rate.NewLimiter(rate.Limit(opts.IOLimit), int(burst))
	}

	return &Classifier{
		alg:        alg,
		prefixSize: opts.PrefixSize,
		bufferSize: opts.BufferSize,
		verify:     opts.Verify || !alg.CollisionResistant,
		workers:    opts.Workers,
		pacing:     readPacing{limiter: limiter, timeout: opts.ReadTimeout},
		logger:     opts.Logger,
		stats:      stats,
	}, nil
}

// Verifies reports whether classes are confirmed byte for byte
func (c *Classifier) Verifies() bool {
	return c.verify
}

// Classify turns size buckets into duplicate groups. Members of a group are
// sorted by path and groups are ordered by their first path, so the result
// does not depend on worker scheduling. Unreadable files are dropped and
// logged; the only error returned is ctx's when the run is cancelled.
func (c *Classifier) Classify(ctx context.Context, buckets *SizeBuckets) ([]DuplicateGroup, error) {
	defer c.logger.Enter()()

	var groups []DuplicateGroup
	var candidates []FileEntry

	for _, size := range buckets.Sizes() {
		members := buckets.Bucket(size)
		c.stats.candidates.Add(int64(len(members)))

		if size == 0 {
			// Empty files are identical without reading them
			groups = append(groups, newDuplicateGroup(c.alg.Sum(nil), 0, members))
			continue
		}
		candidates = append(candidates, members...)
	}

	// Prefix phase
	prefixDigests, err := c.digestAll(ctx, candidates, c.prefixDigest)
	if err != nil {
		return nil, err
	}

	var classes []class
	var needFull []FileEntry
	for _, cl := range partition(candidates, prefixDigests) {
		if cl.size <= c.prefixSize {
			// The prefix was the whole file
			classes = append(classes, cl)
			continue
		}
		needFull = append(needFull, cl.members...)
	}

	c.logger.Info("prefix phase complete",
		"candidates", len(candidates),
		"complete_classes", len(classes),
		"need_full_hash", len(needFull))

	// Full phase
	if len(needFull) > 0 {
		fullDigests, err := c.digestAll(ctx, needFull, c.fullDigest)
		if err != nil {
			return nil, err
		}
		classes = append(classes, partition(needFull, fullDigests)...)
	}

	if c.verify {
		if classes, err = c.confirmAll(ctx, classes); err != nil {
			return nil, err
		}
	}

	for _, cl := range classes {
		groups = append(groups, newDuplicateGroup(cl.digest, cl.size, cl.members))
	}

	sort.Slice(groups, func(i, j int) bool {
		return comparePaths(groups[i].Files[0].Path, groups[j].Files[0].Path) < 0
	})
	return groups, nil
}

// digestAll computes fn for every entry on a bounded worker group. Each
// worker writes only its own slot, so the result order matches entries.
// A nil slot means the entry could not be read and was dropped.
func (c *Classifier) digestAll(ctx context.Context, entries []FileEntry, fn digestFunc) ([][]byte, error) {
	digests := make([][]byte, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for i, entry := range entries {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			digest, err := fn(gctx, entry)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				c.dropped(entry, err)
				return nil
			}
			digests[i] = digest
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("classification interrupted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("classification interrupted: %w", err)
	}
	return digests, nil
}

// prefixDigest hashes the first prefixSize bytes of an entry. Files no larger
// than the prefix are read exactly, so a file that grew or shrank since the
// inventory is rejected.
func (c *Classifier) prefixDigest(ctx context.Context, entry FileEntry) ([]byte, error) {
	limit := min(entry.Size, c.prefixSize)
	data, err := readPrefix(ctx, entry.Path, limit, entry.Size <= c.prefixSize, c.pacing)
	c.stats.prefixReads.Add(1)
	c.stats.bytesRead.Add(int64(len(data)))
	if err != nil {
		return nil, err
	}
	return c.alg.Sum(data), nil
}

// fullDigest hashes the whole content of an entry and checks that its length
// still matches the inventory size.
func (c *Classifier) fullDigest(ctx context.Context, entry FileEntry) ([]byte, error) {
	c.logger.Debug("hashing file", "path", entry.Path, "size", entry.Size)

	digest, total, err := hashFileLimited(ctx, entry.Path, c.alg, c.bufferSize, c.pacing)
	c.stats.fullHashes.Add(1)
	c.stats.bytesRead.Add(total)
	if err != nil {
		return nil, err
	}
	if total != entry.Size {
		return nil, readFailure(entry.Path, fmt.Errorf("%w: read %d bytes, expected %d", ErrSizeChanged, total, entry.Size))
	}
	return digest, nil
}

// confirmAll runs confirmClass over every class on the worker group
func (c *Classifier) confirmAll(ctx context.Context, classes []class) ([]class, error) {
	results := make([][]class, len(classes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for i, cl := range classes {
		g.Go(func() error {
			confirmed, err := c.confirmClass(gctx, cl)
			if err != nil {
				return err
			}
			results[i] = confirmed
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("verification interrupted: %w", err)
	}

	var confirmed []class
	for _, r := range results {
		confirmed = append(confirmed, r...)
	}
	return confirmed, nil
}

// confirmClass compares every member of cl against a representative. Members
// that differ from it form the pending set for the next round, so a digest
// collision yields separate classes instead of a false group.
func (c *Classifier) confirmClass(ctx context.Context, cl class) ([]class, error) {
	var confirmed []class
	pending := cl.members

	for len(pending) >= 2 {
		rep := pending[0]
		same := []FileEntry{rep}
		var differ []FileEntry
		repFailed := false

		for idx, candidate := range pending[1:] {
			c.stats.byteCompares.Add(1)
			equal, err := sameContent(ctx, rep.Path, candidate.Path, c.bufferSize, c.pacing)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				var rf *ReadFailure
				if errors.As(err, &rf) && rf.Path == rep.Path {
					c.dropped(rep, err)
					// Start over without the representative
					pending = append(append(same[1:len(same):len(same)], differ...), pending[idx+1:]...)
					repFailed = true
					break
				}
				c.dropped(candidate, err)
				continue
			}

			if equal {
				same = append(same, candidate)
			} else {
				differ = append(differ, candidate)
			}
		}
		if repFailed {
			continue
		}

		if len(differ) > 0 {
			c.logger.Warn("digest match with differing content",
				"algorithm", c.alg.Name,
				"digest", hex.EncodeToString(cl.digest),
				"representative", rep.Path,
				"differing", len(differ))
		}

		if len(same) >= 2 {
			confirmed = append(confirmed, class{size: cl.size, digest: cl.digest, members: same})
		}
		pending = differ
	}

	return confirmed, nil
}

func (c *Classifier) dropped(entry FileEntry, err error) {
	c.stats.readFailures.Add(1)
	c.logger.Warn("dropping unreadable file", "path", entry.Path, "error", err)
}

type classKey struct {
	size   int64
	digest string
}

// partition groups entries by (size, digest) in index order and keeps the
// classes with at least two members. Entries with a nil digest were dropped.
func partition(entries []FileEntry, digests [][]byte) []class {
	index := make(map[classKey]int)
	var classes []class

	for i, entry := range entries {
		if digests[i] == nil {
			continue
		}
		key := classKey{size: entry.Size, digest: string(digests[i])}
		pos, exists := index[key]
		if !exists {
			pos = len(classes)
			index[key] = pos
			classes = append(classes, class{size: entry.Size, digest: digests[i]})
		}
		classes[pos].members = append(classes[pos].members, entry)
	}

	kept := classes[:0]
	for _, cl := range classes {
		if len(cl.members) >= 2 {
			kept = append(kept, cl)
		}
	}
	return kept
}
