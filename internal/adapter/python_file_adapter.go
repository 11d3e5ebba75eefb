package adapter

import (
	"fmt"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"

	m "github.com/mouse-blink/refit/internal/model"
)

// PythonFileAdapter turns raw Python source into a structural tree.
// Parsing is a pure function of the file contents: no side effects,
// exact spans on every node so unaffected regions round-trip
// byte-for-byte.
type PythonFileAdapter interface {
	Parse(path m.Path, content []byte) (*m.Node, error)
}

// LocalPythonFileAdapter is the tree-sitter backed implementation.
type LocalPythonFileAdapter struct{}

// NewLocalPythonFileAdapter constructs a LocalPythonFileAdapter ready
// to be wired into the workflow.
func NewLocalPythonFileAdapter() *LocalPythonFileAdapter {
	return &LocalPythonFileAdapter{}
}

// Parse builds the structural tree for one file, or fails with a
// ParseError carrying the first offending line. A fresh tree-sitter
// parser is created per call so concurrent workers never share state.
func (a *LocalPythonFileAdapter) Parse(path m.Path, content []byte) (*m.Node, error) {
	parser := tree_sitter.NewParser()
	defer parser.Close()

	language := tree_sitter.NewLanguage(tree_sitter_python.Language())
	if err := parser.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("configuring python grammar: %w", err)
	}

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, &m.ParseError{Line: 1, Message: fmt.Sprintf("no parse tree for %s", path)}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		line, msg := firstSyntaxError(root)
		return nil, &m.ParseError{Line: line, Message: msg}
	}

	b := &treeBuilder{content: content}

	return b.buildModule(root), nil
}

func firstSyntaxError(node *tree_sitter.Node) (int, string) {
	if node.IsError() {
		return int(node.StartPosition().Row) + 1, "invalid syntax"
	}

	if node.IsMissing() {
		return int(node.StartPosition().Row) + 1, fmt.Sprintf("missing %s", node.Kind())
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil || !child.HasError() {
			continue
		}

		return firstSyntaxError(child)
	}

	return int(node.StartPosition().Row) + 1, "invalid syntax"
}

// treeBuilder copies the tree-sitter CST into the owned model tree.
// All data is extracted eagerly so the CST can be freed afterwards.
type treeBuilder struct {
	content []byte
}

func (b *treeBuilder) buildModule(root *tree_sitter.Node) *m.Node {
	mod := &m.Node{
		ID:   "module",
		Kind: m.KindModule,
		Span: spanOf(root),
	}
	mod.HasDocstring, mod.BrokenDocstring = b.docstringInfo(root)
	mod.Children = b.buildBlock(root, mod.ID)

	return mod
}

// buildBlock converts the named statements of a block, assigning each
// child its durable identity: parent identity plus a kind (and name)
// label plus a per-label ordinal. The ordinal disambiguates repeated
// shapes without depending on line numbers, so identities survive
// re-parses after edits that only shift lines.
func (b *treeBuilder) buildBlock(block *tree_sitter.Node, parentID string) []*m.Node {
	var out []*m.Node

	counts := make(map[string]int)

	for i := uint(0); i < block.NamedChildCount(); i++ {
		child := block.NamedChild(i)
		if child == nil {
			continue
		}

		if node := b.buildStatement(child, parentID, counts, false); node != nil {
			out = append(out, node)
		}
	}

	return out
}

func (b *treeBuilder) buildStatement(ts *tree_sitter.Node, parentID string, counts map[string]int, decorated bool) *m.Node {
	switch ts.Kind() {
	case "comment":
		return nil
	case "decorated_definition":
		if def := ts.ChildByFieldName("definition"); def != nil {
			return b.buildStatement(def, parentID, counts, true)
		}

		return nil
	case "function_definition":
		return b.buildFunction(ts, parentID, counts, decorated)
	case "class_definition":
		return b.buildClass(ts, parentID, counts, decorated)
	case "if_statement":
		return b.buildIf(ts, parentID, counts)
	case "for_statement":
		return b.buildLoop(ts, m.KindFor, parentID, counts)
	case "while_statement":
		return b.buildLoop(ts, m.KindWhile, parentID, counts)
	case "with_statement":
		return b.buildLoop(ts, m.KindWith, parentID, counts)
	case "try_statement":
		return b.buildTry(ts, parentID, counts)
	case "return_statement":
		return b.buildSimple(ts, m.KindReturn, parentID, counts)
	case "expression_statement":
		kind := m.KindStatement
		if first := ts.NamedChild(0); first != nil &&
			(first.Kind() == "assignment" || first.Kind() == "augmented_assignment") {
			kind = m.KindAssign
		}

		return b.buildSimple(ts, kind, parentID, counts)
	default:
		return b.buildSimple(ts, m.KindStatement, parentID, counts)
	}
}

func (b *treeBuilder) buildFunction(ts *tree_sitter.Node, parentID string, counts map[string]int, decorated bool) *m.Node {
	name := b.fieldText(ts, "name")
	node := &m.Node{
		ID:        childID(parentID, "function:"+name, counts),
		Kind:      m.KindFunction,
		Name:      name,
		Span:      spanOf(ts),
		Decorated: decorated,
	}

	if params := ts.ChildByFieldName("parameters"); params != nil {
		node.ParamsSpan = spanOf(params)
		node.Params = b.buildParams(params)
	}

	node.ReturnAnnotated = ts.ChildByFieldName("return_type") != nil

	if body := ts.ChildByFieldName("body"); body != nil {
		b.fillBody(node, body)
	}

	return node
}

func (b *treeBuilder) buildClass(ts *tree_sitter.Node, parentID string, counts map[string]int, decorated bool) *m.Node {
	name := b.fieldText(ts, "name")
	node := &m.Node{
		ID:        childID(parentID, "class:"+name, counts),
		Kind:      m.KindClass,
		Name:      name,
		Span:      spanOf(ts),
		Decorated: decorated,
	}

	if body := ts.ChildByFieldName("body"); body != nil {
		b.fillBody(node, body)
	}

	return node
}

func (b *treeBuilder) fillBody(node *m.Node, body *tree_sitter.Node) {
	node.BodySpan = spanOf(body)
	node.BodyIndent = b.indentAt(int(body.StartByte()))
	node.HasDocstring, node.BrokenDocstring = b.docstringInfo(body)
	node.Children = b.buildBlock(body, node.ID)
}

func (b *treeBuilder) buildIf(ts *tree_sitter.Node, parentID string, counts map[string]int) *m.Node {
	node := b.newControl(ts, m.KindIf, parentID, counts)

	if body := ts.ChildByFieldName("consequence"); body != nil {
		node.Children = b.buildBlock(body, node.ID)
	}

	// elif clauses nest under the if, matching how Python's own AST
	// represents them in the orelse chain.
	nested := make(map[string]int)

	for i := uint(0); i < ts.NamedChildCount(); i++ {
		clause := ts.NamedChild(i)
		if clause == nil {
			continue
		}

		switch clause.Kind() {
		case "elif_clause":
			elif := b.newControlIn(clause, m.KindIf, node.ID, nested)
			if body := clause.ChildByFieldName("consequence"); body != nil {
				elif.Children = b.buildBlock(body, elif.ID)
			}

			node.Children = append(node.Children, elif)
		case "else_clause":
			if body := clause.ChildByFieldName("body"); body != nil {
				node.Children = append(node.Children, b.buildBlock(body, node.ID)...)
			}
		}
	}

	return node
}

func (b *treeBuilder) buildLoop(ts *tree_sitter.Node, kind m.NodeKind, parentID string, counts map[string]int) *m.Node {
	node := b.newControl(ts, kind, parentID, counts)

	if body := ts.ChildByFieldName("body"); body != nil {
		node.Children = b.buildBlock(body, node.ID)
	}

	// for/while else clause statements join the loop's children.
	for i := uint(0); i < ts.NamedChildCount(); i++ {
		clause := ts.NamedChild(i)
		if clause == nil || clause.Kind() != "else_clause" {
			continue
		}

		if body := clause.ChildByFieldName("body"); body != nil {
			node.Children = append(node.Children, b.buildBlock(body, node.ID)...)
		}
	}

	return node
}

func (b *treeBuilder) buildTry(ts *tree_sitter.Node, parentID string, counts map[string]int) *m.Node {
	node := b.newControl(ts, m.KindTry, parentID, counts)

	if body := ts.ChildByFieldName("body"); body != nil {
		node.Children = b.buildBlock(body, node.ID)
	}

	nested := make(map[string]int)

	for i := uint(0); i < ts.NamedChildCount(); i++ {
		clause := ts.NamedChild(i)
		if clause == nil {
			continue
		}

		switch clause.Kind() {
		case "except_clause", "except_group_clause":
			except := b.newControlIn(clause, m.KindExcept, node.ID, nested)

			for j := uint(0); j < clause.NamedChildCount(); j++ {
				if block := clause.NamedChild(j); block != nil && block.Kind() == "block" {
					except.Children = b.buildBlock(block, except.ID)
				}
			}

			node.Children = append(node.Children, except)
		case "else_clause", "finally_clause":
			for j := uint(0); j < clause.NamedChildCount(); j++ {
				if block := clause.NamedChild(j); block != nil && block.Kind() == "block" {
					node.Children = append(node.Children, b.buildBlock(block, node.ID)...)
				}
			}
		}
	}

	return node
}

func (b *treeBuilder) buildSimple(ts *tree_sitter.Node, kind m.NodeKind, parentID string, counts map[string]int) *m.Node {
	node := &m.Node{
		ID:   childID(parentID, string(kind), counts),
		Kind: kind,
		Span: spanOf(ts),
	}
	b.scanExpressions(ts, node)

	return node
}

// newControl builds a control node and scans its header (condition,
// iterator, context expression) while skipping nested blocks, which
// become child nodes with their own scans.
func (b *treeBuilder) newControl(ts *tree_sitter.Node, kind m.NodeKind, parentID string, counts map[string]int) *m.Node {
	return b.newControlIn(ts, kind, parentID, counts)
}

func (b *treeBuilder) newControlIn(ts *tree_sitter.Node, kind m.NodeKind, parentID string, counts map[string]int) *m.Node {
	node := &m.Node{
		ID:   childID(parentID, string(kind), counts),
		Kind: kind,
		Span: spanOf(ts),
	}
	b.scanExpressions(ts, node)

	return node
}

// scanExpressions collects reads, writes, calls, boolean operators and
// suspension markers from the statement, without descending into block
// bodies or nested definitions.
func (b *treeBuilder) scanExpressions(ts *tree_sitter.Node, node *m.Node) {
	var walk func(n *tree_sitter.Node, assigning bool)

	walk = func(n *tree_sitter.Node, assigning bool) {
		switch n.Kind() {
		case "block", "function_definition", "class_definition",
			"elif_clause", "else_clause", "except_clause", "finally_clause":
			if n != ts {
				return
			}
		case "identifier":
			name := b.text(n)
			if assigning {
				node.AssignedNames = append(node.AssignedNames, name)
			} else {
				node.ReadNames = append(node.ReadNames, name)
			}

			return
		case "attribute":
			name := b.text(n)
			if assigning {
				node.AssignedNames = append(node.AssignedNames, name)
			} else {
				node.ReadNames = append(node.ReadNames, name)
			}

			return
		case "call":
			if fn := n.ChildByFieldName("function"); fn != nil {
				node.Calls = append(node.Calls, m.CallSite{
					Target: b.text(fn),
					Line:   int(n.StartPosition().Row) + 1,
				})
			}
		case "boolean_operator":
			node.BoolOps++
		case "yield", "await", "global_statement", "nonlocal_statement":
			node.Suspends = true
		case "assignment", "augmented_assignment":
			if left := n.ChildByFieldName("left"); left != nil {
				walk(left, true)
			}

			if typ := n.ChildByFieldName("type"); typ != nil {
				walk(typ, false)
			}

			if right := n.ChildByFieldName("right"); right != nil {
				walk(right, false)
			}

			return
		case "for_statement":
			if left := n.ChildByFieldName("left"); left != nil {
				walk(left, true)
			}

			if right := n.ChildByFieldName("right"); right != nil {
				walk(right, false)
			}

			return
		case "with_statement":
			// the as-targets of a with clause are assignments
			for i := uint(0); i < n.NamedChildCount(); i++ {
				if clause := n.NamedChild(i); clause != nil && clause.Kind() == "with_clause" {
					walk(clause, assigning)
				}
			}

			return
		case "as_pattern_target":
			assigning = true
		}

		for i := uint(0); i < n.NamedChildCount(); i++ {
			if child := n.NamedChild(i); child != nil {
				walk(child, assigning)
			}
		}
	}

	walk(ts, false)
}

func (b *treeBuilder) buildParams(params *tree_sitter.Node) []m.Param {
	var out []m.Param

	for i := uint(0); i < params.NamedChildCount(); i++ {
		p := params.NamedChild(i)
		if p == nil {
			continue
		}

		switch p.Kind() {
		case "identifier":
			out = append(out, m.Param{Name: b.text(p), Span: spanOf(p)})
		case "typed_parameter":
			if id := p.NamedChild(0); id != nil && id.Kind() == "identifier" {
				out = append(out, m.Param{Name: b.text(id), Annotated: true, Span: spanOf(id)})
			}
		case "default_parameter":
			if name := p.ChildByFieldName("name"); name != nil && name.Kind() == "identifier" {
				out = append(out, m.Param{Name: b.text(name), Span: spanOf(name)})
			}
		case "typed_default_parameter":
			if name := p.ChildByFieldName("name"); name != nil && name.Kind() == "identifier" {
				out = append(out, m.Param{Name: b.text(name), Annotated: true, Span: spanOf(name)})
			}
		}
		// *args / **kwargs are skipped: annotations there are rare and
		// never inferred mechanically.
	}

	return out
}

// docstringInfo inspects the first statement of a block for a string
// literal, flagging escaped-quote artifacts left behind by earlier
// broken rewrites.
func (b *treeBuilder) docstringInfo(body *tree_sitter.Node) (present, broken bool) {
	first := body.NamedChild(0)
	if first == nil || first.Kind() != "expression_statement" {
		return false, false
	}

	str := first.NamedChild(0)
	if str == nil || str.Kind() != "string" {
		return false, false
	}

	text := b.text(str)

	return true, strings.Contains(text, `"\"`) || strings.Contains(text, `\""`)
}

func (b *treeBuilder) indentAt(offset int) string {
	start := offset
	for start > 0 && b.content[start-1] != '\n' {
		start--
	}

	end := start
	for end < len(b.content) && (b.content[end] == ' ' || b.content[end] == '\t') {
		end++
	}

	return string(b.content[start:end])
}

func (b *treeBuilder) fieldText(ts *tree_sitter.Node, field string) string {
	node := ts.ChildByFieldName(field)
	if node == nil {
		return ""
	}

	return b.text(node)
}

func (b *treeBuilder) text(node *tree_sitter.Node) string {
	return string(b.content[node.StartByte():node.EndByte()])
}

func spanOf(node *tree_sitter.Node) m.Span {
	return m.Span{
		StartLine: int(node.StartPosition().Row) + 1,
		EndLine:   int(node.EndPosition().Row) + 1,
		StartByte: int(node.StartByte()),
		EndByte:   int(node.EndByte()),
	}
}

func childID(parentID, label string, counts map[string]int) string {
	ordinal := counts[label]
	counts[label] = ordinal + 1

	return fmt.Sprintf("%s/%s#%d", parentID, label, ordinal)
}
