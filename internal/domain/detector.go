package domain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/mouse-blink/refit/internal/config"
	m "github.com/mouse-blink/refit/internal/model"
)

// unsafeCalls are the dynamic-execution targets that analysis flags and
// the post-check refuses to introduce.
var unsafeCalls = map[string]struct{}{
	"eval":       {},
	"exec":       {},
	"compile":    {},
	"os.system":  {},
	"os.popen":   {},
	"__import__": {},
	"globals":    {},
	"locals":     {},
	"vars":       {},
}

// PatternDetector turns metrics and tree structure into findings.
// Detection carries no policy beyond the configured thresholds; it
// records facts, the classifier decides what to do about them.
type PatternDetector interface {
	Detect(unit *m.SourceUnit, measurements m.Measurements) []m.Finding
}

type patternDetector struct {
	cfg config.AnalysisConfig
}

// NewPatternDetector constructs a detector bound to the given
// thresholds.
func NewPatternDetector(cfg config.AnalysisConfig) PatternDetector {
	return &patternDetector{cfg: cfg}
}

// Detect emits at most one finding per unit and threshold. Findings
// come back ordered by line, then kind, so rendering and fix
// application are deterministic.
func (d *patternDetector) Detect(unit *m.SourceUnit, measurements m.Measurements) []m.Finding {
	var findings []m.Finding

	for _, node := range unit.Tree.Units() {
		metrics := measurements[node.ID]

		switch node.Kind {
		case m.KindFunction:
			findings = append(findings, d.functionFindings(unit, node, metrics)...)
		case m.KindClass:
			findings = append(findings, d.classFindings(unit, node, metrics)...)
		}
	}

	findings = append(findings, d.duplicateFindings(unit)...)
	findings = append(findings, unsafeCallFindings(unit.Tree)...)

	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Line != findings[j].Line {
			return findings[i].Line < findings[j].Line
		}

		return findings[i].Kind < findings[j].Kind
	})

	return findings
}

func (d *patternDetector) functionFindings(unit *m.SourceUnit, node *m.Node, metrics m.MetricSet) []m.Finding {
	var findings []m.Finding

	add := func(kind m.FindingKind, message string) {
		findings = append(findings, m.Finding{
			Kind:    kind,
			Unit:    node.ID,
			Line:    node.Span.StartLine,
			Message: message,
			Snippet: firstLine(unit.Snippet(node.Span)),
		})
	}

	if length := metrics[m.MetricLength]; length > d.cfg.MaxFunctionLength {
		add(m.FindingLongFunction,
			fmt.Sprintf("function %q is %d lines long (max %d)", node.Name, length, d.cfg.MaxFunctionLength))
	}

	if cx := metrics[m.MetricComplexity]; cx > d.cfg.MaxComplexity {
		add(m.FindingComplexFunction,
			fmt.Sprintf("function %q has complexity %d (max %d)", node.Name, cx, d.cfg.MaxComplexity))
	}

	if depth := metrics[m.MetricNesting]; depth > d.cfg.MaxNestedBlocks {
		add(m.FindingNestedBlocks,
			fmt.Sprintf("function %q nests %d blocks deep (max %d)", node.Name, depth, d.cfg.MaxNestedBlocks))
	}

	if args := metrics[m.MetricArgCount]; args > d.cfg.MaxArguments {
		add(m.FindingTooManyArguments,
			fmt.Sprintf("function %q takes %d arguments (max %d)", node.Name, args, d.cfg.MaxArguments))
	}

	if tries := metrics[m.MetricTryBlocks]; tries > 1 {
		add(m.FindingMultipleTryBlocks,
			fmt.Sprintf("function %q contains %d try blocks", node.Name, tries))
	}

	findings = append(findings, d.annotationFindings(unit, node)...)

	return findings
}

func (d *patternDetector) annotationFindings(unit *m.SourceUnit, node *m.Node) []m.Finding {
	var findings []m.Finding

	switch {
	case node.BrokenDocstring:
		findings = append(findings, m.Finding{
			Kind:    m.FindingMalformedDocstring,
			Unit:    node.ID,
			Line:    node.BodySpan.StartLine,
			Message: fmt.Sprintf("docstring of %q contains stray quote escapes", node.Name),
		})
	case !node.HasDocstring:
		findings = append(findings, m.Finding{
			Kind:    m.FindingMissingDocstring,
			Unit:    node.ID,
			Line:    node.Span.StartLine,
			Message: fmt.Sprintf("%s %q has no docstring", node.Kind, node.Name),
		})
	}

	for _, param := range node.Params {
		if param.Annotated || param.Name == "self" || param.Name == "cls" {
			continue
		}

		findings = append(findings, m.Finding{
			Kind:     m.FindingMissingTypeHint,
			Unit:     node.ID,
			Line:     param.Span.StartLine,
			Message:  fmt.Sprintf("parameter %q of %q has no type hint", param.Name, node.Name),
			Argument: param.Name,
		})
	}

	if !node.ReturnAnnotated && node.Name != "__init__" {
		findings = append(findings, m.Finding{
			Kind:    m.FindingMissingReturnType,
			Unit:    node.ID,
			Line:    node.Span.StartLine,
			Message: fmt.Sprintf("function %q has no return type hint", node.Name),
		})
	}

	return findings
}

func (d *patternDetector) classFindings(unit *m.SourceUnit, node *m.Node, metrics m.MetricSet) []m.Finding {
	var findings []m.Finding

	if length := metrics[m.MetricLength]; length > d.cfg.MaxClassLength {
		findings = append(findings, m.Finding{
			Kind:    m.FindingLargeClass,
			Unit:    node.ID,
			Line:    node.Span.StartLine,
			Message: fmt.Sprintf("class %q is %d lines long (max %d)", node.Name, length, d.cfg.MaxClassLength),
			Snippet: firstLine(unit.Snippet(node.Span)),
		})
	}

	methods, attributes := classShape(node)

	if methods > d.cfg.MaxClassMethods || attributes > d.cfg.MaxAttributes {
		findings = append(findings, m.Finding{
			Kind: m.FindingGodClass,
			Unit: node.ID,
			Line: node.Span.StartLine,
			Message: fmt.Sprintf("class %q has %d methods and %d attributes (max %d/%d)",
				node.Name, methods, attributes, d.cfg.MaxClassMethods, d.cfg.MaxAttributes),
		})
	}

	switch {
	case node.BrokenDocstring:
		findings = append(findings, m.Finding{
			Kind:    m.FindingMalformedDocstring,
			Unit:    node.ID,
			Line:    node.BodySpan.StartLine,
			Message: fmt.Sprintf("docstring of %q contains stray quote escapes", node.Name),
		})
	case !node.HasDocstring:
		findings = append(findings, m.Finding{
			Kind:    m.FindingMissingDocstring,
			Unit:    node.ID,
			Line:    node.Span.StartLine,
			Message: fmt.Sprintf("class %q has no docstring", node.Name),
		})
	}

	return findings
}

// classShape counts direct methods and distinct self attributes.
func classShape(class *m.Node) (methods int, attributes int) {
	attrs := make(map[string]struct{})

	for _, child := range class.Children {
		if child.Kind != m.KindFunction {
			continue
		}

		methods++

		for name := range child.AllAssigned() {
			if rest, ok := strings.CutPrefix(name, "self."); ok {
				attrs[rest] = struct{}{}
			}
		}
	}

	return methods, len(attrs)
}

// duplicateFindings pairs functions whose normalized bodies hash alike.
// Each pair is reported once, on the later twin. Exact marks pairs
// whose raw bodies and parameter names match, which is what a
// mechanical extraction needs.
func (d *patternDetector) duplicateFindings(unit *m.SourceUnit) []m.Finding {
	type bodyInfo struct {
		node *m.Node
		raw  string
	}

	byHash := make(map[uint64]bodyInfo)

	var findings []m.Finding

	for _, node := range unit.Tree.Units() {
		if node.Kind != m.KindFunction {
			continue
		}

		raw := unit.Snippet(node.BodySpan)
		normalized := normalizeBody(raw)

		if strings.Count(normalized, "\n")+1 < d.cfg.MinDuplicateLines {
			continue
		}

		hash := xxhash.Sum64String(normalized)

		first, seen := byHash[hash]
		if !seen {
			byHash[hash] = bodyInfo{node: node, raw: raw}

			continue
		}

		findings = append(findings, m.Finding{
			Kind:    m.FindingDuplicateCode,
			Unit:    node.ID,
			Line:    node.Span.StartLine,
			Message: fmt.Sprintf("function %q duplicates %q", node.Name, first.node.Name),
			Related: first.node.ID,
			Exact:   first.raw == raw && sameParams(first.node, node),
		})
	}

	return findings
}

// normalizeBody strips per-line indentation and blank lines so the
// same logic at different nesting depths still matches.
func normalizeBody(body string) string {
	lines := strings.Split(body, "\n")
	kept := lines[:0]

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			kept = append(kept, trimmed)
		}
	}

	return strings.Join(kept, "\n")
}

func sameParams(a, b *m.Node) bool {
	if len(a.Params) != len(b.Params) {
		return false
	}

	for i := range a.Params {
		if a.Params[i].Name != b.Params[i].Name {
			return false
		}
	}

	return true
}

// unsafeCallFindings flags every call to a dynamic-execution builtin,
// wherever it occurs in the tree.
func unsafeCallFindings(tree *m.Node) []m.Finding {
	var findings []m.Finding

	enclosing := ""

	var walk func(node *m.Node, unit string)

	walk = func(node *m.Node, unit string) {
		if node.IsUnit() {
			unit = node.ID
		}

		for _, call := range node.Calls {
			if _, unsafe := unsafeCalls[call.Target]; unsafe {
				findings = append(findings, m.Finding{
					Kind:    m.FindingUnsafeCall,
					Unit:    unit,
					Line:    call.Line,
					Message: fmt.Sprintf("call to %s", call.Target),
				})
			}
		}

		for _, child := range node.Children {
			walk(child, unit)
		}
	}

	walk(tree, enclosing)

	return findings
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}

	return s
}
