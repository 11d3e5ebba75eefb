// Package model defines the data structures for structural analysis and rewriting.
package model

// Path represents a file system path.
type Path string

// NodeKind identifies the structural role of a node.
type NodeKind string

const (
	KindModule   NodeKind = "module"
	KindFunction NodeKind = "function"
	KindClass    NodeKind = "class"
	KindIf       NodeKind = "if"
	KindFor      NodeKind = "for"
	KindWhile    NodeKind = "while"
	KindWith     NodeKind = "with"
	KindTry      NodeKind = "try"
	KindExcept   NodeKind = "except"
	KindReturn   NodeKind = "return"
	KindAssign   NodeKind = "assign"
	// KindStatement covers simple statements with no structural role of
	// their own (expression statements, imports, pass, ...).
	KindStatement NodeKind = "statement"
)

// Span locates a node in its source file. Lines are 1-based, byte
// offsets are 0-based and half-open.
type Span struct {
	StartLine int
	EndLine   int
	StartByte int
	EndByte   int
}

// Contains reports whether other lies entirely within s.
func (s Span) Contains(other Span) bool {
	return s.StartByte <= other.StartByte && other.EndByte <= s.EndByte
}

// Lines returns the number of lines spanned beyond the first, matching
// the length metric (declaration line excluded).
func (s Span) Lines() int {
	return s.EndLine - s.StartLine
}

// Param is one entry of a function's parameter list.
type Param struct {
	Name      string
	Annotated bool
	Span      Span
}

// CallSite records one call expression inside a statement.
type CallSite struct {
	Target string // source text of the invoked expression, e.g. "os.system"
	Line   int
}

// Node is one vertex of the structural tree. A node's span always
// contains the spans of its children, and every node has exactly one
// parent (the tree is single-owner).
//
// ID is a durable identity assigned at parse time: the path of kinds
// and names from the module root plus a sibling ordinal. It is stable
// across re-parses that shift line numbers, which is what the rewriter
// relies on to re-locate fix targets.
type Node struct {
	ID   string
	Kind NodeKind
	Name string
	Span Span

	// Function and class fields.
	Params          []Param
	ParamsSpan      Span // parameter list including parentheses
	ReturnAnnotated bool
	Decorated       bool
	HasDocstring    bool
	BrokenDocstring bool
	BodySpan        Span
	BodyIndent      string

	// Statement fields. Name sets cover the statement header only;
	// nested block statements carry their own (see AllAssigned).
	AssignedNames []string
	ReadNames     []string
	Calls         []CallSite
	BoolOps       int
	Suspends      bool // yield, await, global or nonlocal in this statement

	Children []*Node
}

// IsUnit reports whether the node is function-like or class-like, i.e.
// a target for metrics and findings.
func (n *Node) IsUnit() bool {
	return n.Kind == KindFunction || n.Kind == KindClass
}

// Walk visits n and its descendants depth-first in source order. The
// visitor returns false to prune the subtree below the current node.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}

	for _, child := range n.Children {
		child.Walk(fn)
	}
}

// FindByID locates a node by its durable identity, or nil.
func (n *Node) FindByID(id string) *Node {
	var found *Node

	n.Walk(func(node *Node) bool {
		if found != nil {
			return false
		}

		if node.ID == id {
			found = node
			return false
		}

		return true
	})

	return found
}

// Units returns all function and class nodes in source order,
// including nested definitions and methods.
func (n *Node) Units() []*Node {
	var units []*Node

	n.Walk(func(node *Node) bool {
		if node.IsUnit() {
			units = append(units, node)
		}

		return true
	})

	return units
}

// AllAssigned aggregates assigned names over the node and its subtree,
// excluding nested function and class bodies.
func (n *Node) AllAssigned() map[string]struct{} {
	names := make(map[string]struct{})

	n.Walk(func(node *Node) bool {
		if node != n && node.IsUnit() {
			return false
		}

		for _, name := range node.AssignedNames {
			names[name] = struct{}{}
		}

		return true
	})

	return names
}

// AllRead aggregates read names over the node and its subtree,
// excluding nested function and class bodies.
func (n *Node) AllRead() map[string]struct{} {
	names := make(map[string]struct{})

	n.Walk(func(node *Node) bool {
		if node != n && node.IsUnit() {
			return false
		}

		for _, name := range node.ReadNames {
			names[name] = struct{}{}
		}

		return true
	})

	return names
}
