package findduplicatefiles

// ResultGroup is a duplicate group in the shape it is persisted and reported:
// a 1-based ordinal, the member count, the optional combined size and the
// member paths.
type ResultGroup struct {
	Ordinal   int      `json:"result"`
	Count     int      `json:"numfiles"`
	TotalSize *int64   `json:"filesize,omitempty"`
	Files     []string `json:"files"`
}

// Assemble numbers groups in the order given, starting at 1. When withSize is
// set each result carries the summed size of its members.
func Assemble(groups []DuplicateGroup, withSize bool) []ResultGroup {
	results := make([]ResultGroup, 0, len(groups))
	for i, group := range groups {
		result := ResultGroup{
			Ordinal: i + 1,
			Count:   group.Count,
			Files:   group.Paths(),
		}
		if withSize {
			total := group.TotalSize()
			result.TotalSize = &total
		}
		results = append(results, result)
	}
	return results
}
