package domain

import (
	m "github.com/mouse-blink/refit/internal/model"
)

// MetricEngine computes the fixed set of structural metrics for every
// unit in a tree. Measurement is pure: same tree in, same numbers out.
type MetricEngine interface {
	Measure(tree *m.Node) (m.Measurements, []error)
}

type metricEngine struct{}

// NewMetricEngine constructs the default metric engine.
func NewMetricEngine() MetricEngine {
	return &metricEngine{}
}

// Measure walks all units of the tree and computes their metrics. A
// unit with a malformed span is skipped and reported as a MetricError;
// the remaining units still measure.
func (e *metricEngine) Measure(tree *m.Node) (m.Measurements, []error) {
	measurements := make(m.Measurements)

	var errs []error

	for _, unit := range tree.Units() {
		if unit.Span.EndLine < unit.Span.StartLine || unit.Span.EndByte < unit.Span.StartByte {
			errs = append(errs, &m.MetricError{Unit: unit.ID, Reason: "inverted span"})

			continue
		}

		set := m.MetricSet{
			m.MetricLength: unit.Span.Lines(),
		}

		if unit.Kind == m.KindFunction {
			set[m.MetricComplexity] = complexity(unit)
			set[m.MetricNesting] = nesting(unit)
			set[m.MetricArgCount] = argCount(unit)
			set[m.MetricTryBlocks] = tryBlocks(unit)
		}

		measurements[unit.ID] = set
	}

	return measurements, errs
}

// complexity is 1 for the linear path plus one per branching construct
// and one per boolean operator beyond the first operand of each chain.
// Nested function and class bodies count toward their own unit, not the
// enclosing one.
func complexity(fn *m.Node) int {
	count := 1

	fn.Walk(func(node *m.Node) bool {
		if node != fn && node.IsUnit() {
			return false
		}

		switch node.Kind {
		case m.KindIf, m.KindFor, m.KindWhile, m.KindWith, m.KindExcept:
			count++
		}

		count += node.BoolOps

		return true
	})

	return count
}

// nesting is the deepest chain of block constructs inside the function
// body. Except clauses do not deepen beyond their try.
func nesting(fn *m.Node) int {
	var walk func(node *m.Node, depth int) int

	walk = func(node *m.Node, depth int) int {
		deepest := depth

		for _, child := range node.Children {
			if child.IsUnit() {
				continue
			}

			childDepth := depth

			switch child.Kind {
			case m.KindIf, m.KindFor, m.KindWhile, m.KindWith, m.KindTry:
				childDepth++
			}

			if d := walk(child, childDepth); d > deepest {
				deepest = d
			}
		}

		return deepest
	}

	return walk(fn, 0)
}

// argCount excludes the implicit receiver so methods and functions
// compare against the same threshold.
func argCount(fn *m.Node) int {
	count := len(fn.Params)

	if count > 0 && (fn.Params[0].Name == "self" || fn.Params[0].Name == "cls") {
		count--
	}

	return count
}

func tryBlocks(fn *m.Node) int {
	count := 0

	fn.Walk(func(node *m.Node) bool {
		if node != fn && node.IsUnit() {
			return false
		}

		if node.Kind == m.KindTry {
			count++
		}

		return true
	})

	return count
}
