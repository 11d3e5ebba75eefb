package domain

import (
	"fmt"

	"github.com/mouse-blink/refit/internal/adapter"
	"github.com/mouse-blink/refit/internal/domain/rewrites"
	m "github.com/mouse-blink/refit/internal/model"
)

// TreeRewriter applies one fix to a source unit. Application mutates
// unit.Text and refreshes unit.Tree by re-parsing, so every later fix
// sees current byte offsets. A fix whose target cannot be located, or
// whose edit would leave the file unparseable, rejects without touching
// the unit.
type TreeRewriter interface {
	Apply(unit *m.SourceUnit, fix m.Fix) (m.AppliedFix, error)
}

type treeRewriter struct {
	parser adapter.PythonFileAdapter
}

// NewTreeRewriter constructs a rewriter that re-parses through the
// provided adapter.
func NewTreeRewriter(parser adapter.PythonFileAdapter) TreeRewriter {
	return &treeRewriter{parser: parser}
}

func (r *treeRewriter) Apply(unit *m.SourceUnit, fix m.Fix) (m.AppliedFix, error) {
	node := unit.Tree.FindByID(fix.Unit)
	if node == nil {
		return m.AppliedFix{}, &m.FixRejectedError{Fix: fix, Reason: "target unit no longer exists"}
	}

	edits, description, err := r.buildEdits(unit, node, fix)
	if err != nil {
		return m.AppliedFix{}, &m.FixRejectedError{Fix: fix, Reason: err.Error()}
	}

	patched := rewrites.Apply(unit.Text, edits)

	tree, err := r.parser.Parse(unit.Path, patched)
	if err != nil {
		return m.AppliedFix{}, &m.FixRejectedError{Fix: fix, Reason: fmt.Sprintf("edit breaks the file: %v", err)}
	}

	unit.Text = patched
	unit.Tree = tree

	applied := m.AppliedFix{Fix: fix, Description: description}
	unit.Applied = append(unit.Applied, applied)

	return applied, nil
}

// buildEdits dispatches over the closed fix vocabulary. An unknown
// kind is a programming error, not an input condition.
func (r *treeRewriter) buildEdits(unit *m.SourceUnit, node *m.Node, fix m.Fix) ([]rewrites.Edit, string, error) {
	switch fix.Kind {
	case m.FixMissingDocstring:
		edit, desc, err := rewrites.BuildDocstring(node)

		return []rewrites.Edit{edit}, desc, err
	case m.FixMissingTypeHint:
		return rewrites.BuildParamHint(unit, node, fix.Argument)
	case m.FixMissingReturnType:
		return rewrites.BuildReturnHint(unit, node)
	case m.FixSplitFunction:
		return rewrites.BuildSplit(unit, node)
	case m.FixExtractShared:
		twin := unit.Tree.FindByID(fix.Related)
		edit, desc, err := rewrites.BuildExtractShared(node, twin)

		return []rewrites.Edit{edit}, desc, err
	default:
		return nil, "", fmt.Errorf("unknown fix kind %q", fix.Kind)
	}
}
