package model

import "io/fs"

// SourceUnit is one analyzed file. It owns its tree exclusively; the
// rewriter mutates Text and Tree in place and the unit is discarded
// after the commit/rollback decision.
type SourceUnit struct {
	Path     Path
	Text     []byte
	Mode     fs.FileMode
	Tree     *Node
	Findings []Finding
	Applied  []AppliedFix
}

// Snippet returns the source text covered by the given span, clamped
// to the unit's current text.
func (u *SourceUnit) Snippet(span Span) string {
	start, end := span.StartByte, span.EndByte
	if start < 0 {
		start = 0
	}

	if end > len(u.Text) {
		end = len(u.Text)
	}

	if start >= end {
		return ""
	}

	return string(u.Text[start:end])
}
