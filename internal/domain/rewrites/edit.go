// Package rewrites builds the text edits behind each mechanical fix.
// Builders are pure: they inspect a tree and produce byte-offset edits
// without touching the source text themselves.
package rewrites

import "sort"

// Edit replaces the half-open byte range [Start, End) with Text. An
// insertion has Start == End.
type Edit struct {
	Start int
	End   int
	Text  string
}

// Apply splices a set of non-overlapping edits into text. Edits are
// applied back to front so earlier offsets stay valid.
func Apply(text []byte, edits []Edit) []byte {
	ordered := make([]Edit, len(edits))
	copy(ordered, edits)

	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Start > ordered[j].Start
	})

	result := text

	for _, e := range ordered {
		patched := make([]byte, 0, len(result)-(e.End-e.Start)+len(e.Text))
		patched = append(patched, result[:e.Start]...)
		patched = append(patched, e.Text...)
		patched = append(patched, result[e.End:]...)
		result = patched
	}

	return result
}
