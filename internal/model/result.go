package model

// FileState tracks a file through the batch state machine:
// Discovered -> PreChecked{safe|unsafe} -> Analyzed -> Fixed|Unchanged
// -> PostChecked{committed|rolled back}.
type FileState string

const (
	StateDiscovered FileState = "discovered"
	StateUnsafe     FileState = "unsafe"
	StateAnalyzed   FileState = "analyzed"
	StateUnchanged  FileState = "unchanged"
	StateFixed      FileState = "fixed"
	StateCommitted  FileState = "committed"
	StateRolledBack FileState = "rolled_back"
	StateFailed     FileState = "failed"
)

// Suggestion is the advisor's answer for one externally routed unit.
// Suggestions are surfaced to the operator and never auto-committed.
type Suggestion struct {
	Unit string
	Text string
	OK   bool // false when the advisor explicitly had no suggestion
}

// FileResult is the per-file outcome of a pass. Every per-file error
// is converted into a result record; a single file's failure never
// aborts the batch.
type FileResult struct {
	Path        Path
	State       FileState
	Findings    []Finding
	Applied     []AppliedFix
	Rejected    []Fix
	External    []Finding
	Suggestions []Suggestion
	Issues      []string // advisory safety notes (permissions, complexity drift)
	Err         error
}
