package model

import "time"

// FixKind is the closed vocabulary of mechanical fixes. Anything the
// classifier cannot map onto one of these is routed to the advisor.
type FixKind string

const (
	FixMissingDocstring  FixKind = "missing_docstring"
	FixMissingTypeHint   FixKind = "missing_type_hint"
	FixMissingReturnType FixKind = "missing_return_type"
	FixSplitFunction     FixKind = "split_function"
	FixExtractShared     FixKind = "extract_shared"
)

// Fix is a concrete, mechanically applicable remedy for one finding.
type Fix struct {
	Kind     FixKind
	Unit     string // durable identity of the target node
	Line     int
	Argument string // parameter name for missing_type_hint
	Related  string // twin unit identity for extract_shared
}

// AppliedFix records a fix that mutated the tree, with a human summary
// of what was inserted or rewritten.
type AppliedFix struct {
	Fix
	Description string
}

// ImprovementRecord is the shape persisted to the improvement ledger
// for every committed fix. The ledger is append-only and is never read
// back during analysis.
type ImprovementRecord struct {
	ID          string
	Path        Path
	Kind        FixKind
	Original    string
	New         string
	Description string
	CreatedAt   time.Time
}
