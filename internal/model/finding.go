package model

// FindingKind classifies a detected structural issue.
type FindingKind string

const (
	FindingLongFunction       FindingKind = "long_function"
	FindingLargeClass         FindingKind = "large_class"
	FindingGodClass           FindingKind = "god_class"
	FindingComplexFunction    FindingKind = "complex_function"
	FindingNestedBlocks       FindingKind = "nested_blocks"
	FindingTooManyArguments   FindingKind = "too_many_arguments"
	FindingMultipleTryBlocks  FindingKind = "multiple_try_blocks"
	FindingDuplicateCode      FindingKind = "duplicate_code"
	FindingMissingDocstring   FindingKind = "missing_docstring"
	FindingMalformedDocstring FindingKind = "malformed_docstring"
	FindingMissingTypeHint    FindingKind = "missing_type_hint"
	FindingMissingReturnType  FindingKind = "missing_return_type"
	FindingUnsafeCall         FindingKind = "unsafe_call"
	FindingInsecurePerm       FindingKind = "insecure_permission"
)

// Finding is one detected issue. Findings are immutable once emitted;
// a new analysis pass produces a fresh set.
type Finding struct {
	Kind    FindingKind
	Unit    string // identity of the offending unit ("" for file-level findings)
	Line    int
	Message string
	Snippet string // captured original text of the offending region

	// Argument names the parameter for missing_type_hint findings.
	Argument string

	// Related identifies the twin unit for duplicate_code findings.
	// Exact marks twins with byte-identical bodies and identical
	// parameter lists, the precondition for a mechanical extraction.
	Related string
	Exact   bool
}
