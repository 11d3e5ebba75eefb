package model

import "fmt"

// ParseError reports unparseable input. It is fatal for the file and
// never retried.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d: %s", e.Line, e.Message)
}

// MetricError reports a malformed tree shape for one unit. The unit is
// skipped with zero confidence; the rest of the file proceeds.
type MetricError struct {
	Unit   string
	Reason string
}

func (e *MetricError) Error() string {
	return fmt.Sprintf("metric error for %s: %s", e.Unit, e.Reason)
}

// FixRejectedError reports that a fix target drifted away between
// analysis and application. The fix is skipped, remaining fixes
// continue.
type FixRejectedError struct {
	Fix    Fix
	Reason string
}

func (e *FixRejectedError) Error() string {
	return fmt.Sprintf("fix %s rejected for %s: %s", e.Fix.Kind, e.Fix.Unit, e.Reason)
}

// SafetyViolationError reports a failed post-check. It triggers
// rollback of the affected file only.
type SafetyViolationError struct {
	Path   Path
	Issues []string
}

func (e *SafetyViolationError) Error() string {
	return fmt.Sprintf("safety violation in %s: %v", e.Path, e.Issues)
}

// BackupIntegrityError reports that a restore was requested but the
// snapshot is corrupt or missing. Fatal for this file's recovery; the
// batch continues for other files.
type BackupIntegrityError struct {
	Origin   Path
	Location Path
	Reason   string
}

func (e *BackupIntegrityError) Error() string {
	return fmt.Sprintf("backup for %s unusable (%s): %s", e.Origin, e.Location, e.Reason)
}
