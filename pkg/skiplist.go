package findduplicatefiles

import (
	"cmp"

	zcsl "github.com/mattkeenan/zerocopyskiplist"
)

// queuedPath is a filesystem path waiting to be visited by the inventory walk
type queuedPath struct {
	path string
}

// pathQueue is a priority queue of paths that always yields the smallest
// pending path by comparePaths. Popping from it walks a tree depth first
// with each directory's entries in sorted order, without sorting each
// directory listing into a separate slice.
type pathQueue struct {
	skiplist *zcsl.ZeroCopySkiplist[queuedPath, string, string]
}

// newPathQueue creates an empty path queue
func newPathQueue() *pathQueue {
	getKeyFromItem := func(item *queuedPath) string {
		return item.path
	}
	getItemSize := func(item *queuedPath) int {
		return len(item.path)
	}

	return &pathQueue{
		skiplist: zcsl.MakeZeroCopySkiplist[queuedPath, string, string](
			16,
			getKeyFromItem,
			getItemSize,
			comparePaths,
		),
	}
}

// comparePaths orders slash-separated paths component by component. The
// separator sorts below every other byte, so everything under a/ comes
// before a sibling such as a-b or a.txt.
func comparePaths(a, b string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] == b[i] {
			continue
		}
		ca, cb := a[i], b[i]
		if ca == '/' {
			ca = 0
		}
		if cb == '/' {
			cb = 0
		}
		return cmp.Compare(ca, cb)
	}
	return cmp.Compare(len(a), len(b))
}

// Push queues a path with a context tag. Pushing a path twice is a no-op.
func (q *pathQueue) Push(path, context string) bool {
	if item, _ := q.skiplist.Find(path); item != nil {
		return false
	}
	return q.skiplist.Insert(&queuedPath{path: path}, context)
}

// Pop removes and returns the smallest queued path and its context
func (q *pathQueue) Pop() (string, string, bool) {
	first := q.skiplist.First()
	if first == nil {
		return "", "", false
	}

	path := first.Item().path
	context := first.Context()
	q.skiplist.Delete(path)
	return path, context, true
}

// Len returns the number of queued paths
func (q *pathQueue) Len() int {
	return q.skiplist.Length()
}
