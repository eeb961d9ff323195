// Package findduplicatefiles finds groups of byte-identical files under a
// directory tree.
//
// # Core API
//
// The main entry point is Finder, which runs one duplicate search over a root:
//
//	opts := findduplicatefiles.DefaultOptions()
//	finder, err := findduplicatefiles.NewFinder(opts)
//	if err != nil {
//		return err
//	}
//	groups, err := finder.FindDuplicates(ctx, "/path/to/dir")
//	for _, group := range groups {
//		fmt.Printf("%s: %v\n", group.Hash, group.Paths())
//	}
//
// # Pipeline
//
// A search is a single pipeline of four stages:
//
//   - Inventory walks the root depth first in sorted order and yields regular files.
//   - BucketBySize groups the files by exact size and drops unique sizes.
//   - Classifier splits each bucket by a prefix digest, then by a full
//     content digest, optionally confirming every group byte for byte.
//   - Assemble numbers the groups for persistence.
//
// # Configuration
//
// Options are normally derived from an INI file:
//
//	cfg, err := findduplicatefiles.LoadConfig("finddups.ini")
//	opts, err := cfg.Options(findduplicatefiles.NewLogger(os.Stderr, 1))
//
// The engine never reads configuration on its own; everything it needs is in
// the Options value it is given.
package findduplicatefiles
