package domain

import (
	m "github.com/mouse-blink/refit/internal/model"
)

// FixClassifier splits findings into mechanically fixable work and
// findings that need outside judgement. Classification is pure and
// total: every finding lands in exactly one of the two buckets.
type FixClassifier interface {
	Classify(findings []m.Finding) (fixes []m.Fix, external []m.Finding)
}

type fixClassifier struct{}

// NewFixClassifier constructs the default classifier.
func NewFixClassifier() FixClassifier {
	return &fixClassifier{}
}

// Classify maps findings onto the closed fix vocabulary. Order is
// preserved, so fixes apply in finding (line) order.
func (c *fixClassifier) Classify(findings []m.Finding) ([]m.Fix, []m.Finding) {
	var (
		fixes    []m.Fix
		external []m.Finding
	)

	for _, finding := range findings {
		switch finding.Kind {
		case m.FindingMissingDocstring:
			fixes = append(fixes, m.Fix{
				Kind: m.FixMissingDocstring,
				Unit: finding.Unit,
				Line: finding.Line,
			})
		case m.FindingMissingTypeHint:
			fixes = append(fixes, m.Fix{
				Kind:     m.FixMissingTypeHint,
				Unit:     finding.Unit,
				Line:     finding.Line,
				Argument: finding.Argument,
			})
		case m.FindingMissingReturnType:
			fixes = append(fixes, m.Fix{
				Kind: m.FixMissingReturnType,
				Unit: finding.Unit,
				Line: finding.Line,
			})
		case m.FindingLongFunction:
			fixes = append(fixes, m.Fix{
				Kind: m.FixSplitFunction,
				Unit: finding.Unit,
				Line: finding.Line,
			})
		case m.FindingDuplicateCode:
			if !finding.Exact {
				external = append(external, finding)

				continue
			}

			fixes = append(fixes, m.Fix{
				Kind:    m.FixExtractShared,
				Unit:    finding.Unit,
				Line:    finding.Line,
				Related: finding.Related,
			})
		default:
			external = append(external, finding)
		}
	}

	return fixes, external
}
