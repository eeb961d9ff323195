package findduplicatefiles

import "sync/atomic"

// Stats summarises one duplicate search
type Stats struct {
	FilesScanned   int64 `json:"files_scanned"`
	DirsScanned    int64 `json:"dirs_scanned"`
	TraversalSkips int64 `json:"traversal_skips"`
	Candidates     int64 `json:"candidates"`
	PrefixReads    int64 `json:"prefix_reads"`
	FullHashes     int64 `json:"full_hashes"`
	ByteCompares   int64 `json:"byte_compares"`
	ReadFailures   int64 `json:"read_failures"`
	BytesRead      int64 `json:"bytes_read"`
	Groups         int64 `json:"groups"`
}

// runStats is the concurrently updated form of Stats
type runStats struct {
	filesScanned   atomic.Int64
	dirsScanned    atomic.Int64
	traversalSkips atomic.Int64
	candidates     atomic.Int64
	prefixReads    atomic.Int64
	fullHashes     atomic.Int64
	byteCompares   atomic.Int64
	readFailures   atomic.Int64
	bytesRead      atomic.Int64
	groups         atomic.Int64
}

func (s *runStats) snapshot() Stats {
	return Stats{
		FilesScanned:   s.filesScanned.Load(),
		DirsScanned:    s.dirsScanned.Load(),
		TraversalSkips: s.traversalSkips.Load(),
		Candidates:     s.candidates.Load(),
		PrefixReads:    s.prefixReads.Load(),
		FullHashes:     s.fullHashes.Load(),
		ByteCompares:   s.byteCompares.Load(),
		ReadFailures:   s.readFailures.Load(),
		BytesRead:      s.bytesRead.Load(),
		Groups:         s.groups.Load(),
	}
}
