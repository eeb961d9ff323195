package findduplicatefiles

import (
	"context"
	"fmt"
)

// SizeBuckets groups file entries by exact byte size. Only sizes shared by
// at least two entries are kept.
type SizeBuckets struct {
	order   []int64
	buckets map[int64][]FileEntry
}

// BucketBySize drains source in a single pass and groups its entries by size.
// Entries smaller than minSize are dropped before bucketing. Within a bucket
// entries keep the order source produced them in, and sizes are enumerated in
// first-seen order.
func BucketBySize(ctx context.Context, source EntrySource, minSize int64) (*SizeBuckets, error) {
	all := make(map[int64][]FileEntry)
	var order []int64

	err := source(ctx, func(entry FileEntry) bool {
		if entry.Size < minSize {
			return true
		}
		if _, exists := all[entry.Size]; !exists {
			order = append(order, entry.Size)
		}
		all[entry.Size] = append(all[entry.Size], entry)
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to bucket entries: %w", err)
	}

	sb := &SizeBuckets{buckets: make(map[int64][]FileEntry)}
	for _, size := range order {
		if members := all[size]; len(members) >= 2 {
			sb.order = append(sb.order, size)
			sb.buckets[size] = members
		}
	}
	return sb, nil
}

// Sizes returns the bucket sizes in first-seen order
func (sb *SizeBuckets) Sizes() []int64 {
	sizes := make([]int64, len(sb.order))
	copy(sizes, sb.order)
	return sizes
}

// Bucket returns the entries of the given size, or nil
func (sb *SizeBuckets) Bucket(size int64) []FileEntry {
	return sb.buckets[size]
}

// Len returns the number of buckets
func (sb *SizeBuckets) Len() int {
	return len(sb.order)
}

// Candidates returns the total number of entries across all buckets
func (sb *SizeBuckets) Candidates() int {
	total := 0
	for _, members := range sb.buckets {
		total += len(members)
	}
	return total
}
