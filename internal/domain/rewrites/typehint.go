package rewrites

import (
	"fmt"
	"strings"

	m "github.com/mouse-blink/refit/internal/model"
)

// typeImports maps inferred types to the import line they need.
var typeImports = map[string]string{
	"Any":  "from typing import Any",
	"Path": "from pathlib import Path",
}

// BuildParamHint annotates one parameter with a type inferred from its
// name. When the inferred type needs an import and the module lacks
// one, an import edit is produced as well.
func BuildParamHint(unit *m.SourceUnit, node *m.Node, argName string) ([]Edit, string, error) {
	for _, param := range node.Params {
		if param.Name != argName {
			continue
		}

		if param.Annotated {
			return nil, "", fmt.Errorf("parameter %q is already annotated", argName)
		}

		typ := inferType(argName)
		edits := []Edit{{
			Start: param.Span.EndByte,
			End:   param.Span.EndByte,
			Text:  ": " + typ,
		}}

		if imp := importEdit(unit, typ); imp != nil {
			edits = append(edits, *imp)
		}

		return edits, fmt.Sprintf("annotated parameter %q as %s", argName, typ), nil
	}

	return nil, "", fmt.Errorf("parameter %q not found", argName)
}

// BuildReturnHint annotates the function's return type. A function
// with no return statement and no suspension points is annotated as
// None; otherwise the type is inferred from the function name.
func BuildReturnHint(unit *m.SourceUnit, node *m.Node) ([]Edit, string, error) {
	if node.ReturnAnnotated {
		return nil, "", fmt.Errorf("function %q already has a return annotation", node.Name)
	}

	if node.ParamsSpan.EndByte <= 0 {
		return nil, "", fmt.Errorf("function %q has no parameter list", node.Name)
	}

	typ := inferReturnType(node)
	edits := []Edit{{
		Start: node.ParamsSpan.EndByte,
		End:   node.ParamsSpan.EndByte,
		Text:  " -> " + typ,
	}}

	if imp := importEdit(unit, typ); imp != nil {
		edits = append(edits, *imp)
	}

	return edits, fmt.Sprintf("annotated return type of %q as %s", node.Name, typ), nil
}

// inferType guesses a parameter type from naming conventions, falling
// back to Any.
func inferType(name string) string {
	lower := strings.ToLower(name)

	switch {
	case strings.HasPrefix(lower, "is_"), strings.HasPrefix(lower, "has_"),
		strings.HasSuffix(lower, "_flag"), lower == "flag", lower == "enabled":
		return "bool"
	case strings.Contains(lower, "path"), strings.Contains(lower, "file"),
		strings.Contains(lower, "dir"):
		return "Path"
	case strings.Contains(lower, "count"), strings.Contains(lower, "num"),
		strings.Contains(lower, "index"), strings.Contains(lower, "size"),
		strings.Contains(lower, "idx"):
		return "int"
	case strings.Contains(lower, "name"), strings.Contains(lower, "text"),
		strings.Contains(lower, "message"), strings.Contains(lower, "msg"):
		return "str"
	default:
		return "Any"
	}
}

func inferReturnType(node *m.Node) string {
	if !returnsValue(node) {
		return "None"
	}

	lower := strings.ToLower(node.Name)
	if strings.HasPrefix(lower, "is_") || strings.HasPrefix(lower, "has_") {
		return "bool"
	}

	return "Any"
}

// returnsValue reports whether the function body contains a return
// statement or a suspension point, ignoring nested definitions.
func returnsValue(fn *m.Node) bool {
	found := false

	fn.Walk(func(node *m.Node) bool {
		if node != fn && node.IsUnit() {
			return false
		}

		if node.Kind == m.KindReturn || node.Suspends {
			found = true
		}

		return !found
	})

	return found
}

// importEdit produces the import insertion a type needs, or nil when
// the module already carries it or the type is builtin.
func importEdit(unit *m.SourceUnit, typ string) *Edit {
	line, needed := typeImports[typ]
	if !needed || strings.Contains(string(unit.Text), line) {
		return nil
	}

	at := importInsertPoint(unit)

	return &Edit{Start: at, End: at, Text: line + "\n"}
}

// importInsertPoint is the start of the first module statement after
// the module docstring, if any.
func importInsertPoint(unit *m.SourceUnit) int {
	if !unit.Tree.HasDocstring || len(unit.Tree.Children) < 2 {
		return 0
	}

	return unit.Tree.Children[1].Span.StartByte
}
