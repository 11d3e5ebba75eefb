package rewrites

import (
	"errors"
	"fmt"
	"strings"

	m "github.com/mouse-blink/refit/internal/model"
)

const helperIndent = "    "

// blockLabels names helpers after the construct that opens the block.
var blockLabels = map[m.NodeKind]string{
	m.KindIf:    "validation",
	m.KindFor:   "processing",
	m.KindWhile: "iteration",
	m.KindWith:  "resource",
}

// BuildSplit extracts each top-level block of an oversized function
// into a module-level helper and replaces the block with a call.
//
// The transformation is refused whenever it could change behaviour:
// methods, nested and decorated functions, functions that return or
// suspend, and bodies whose blocks exchange data through variables all
// reject. A refusal is a hard error, never a partial split.
func BuildSplit(unit *m.SourceUnit, fn *m.Node) ([]Edit, string, error) {
	if err := splitEligible(fn); err != nil {
		return nil, "", err
	}

	blocks := topLevelBlocks(fn)
	if len(blocks) < 2 {
		return nil, "", errors.New("fewer than two extractable blocks")
	}

	if err := checkDataFlow(fn, blocks); err != nil {
		return nil, "", err
	}

	var (
		edits   []Edit
		helpers strings.Builder
		used    = make(map[string]int)
		names   []string
	)

	for _, block := range blocks {
		label := blockLabels[block.Kind]
		used[label]++

		name := fmt.Sprintf("_%s_%s", fn.Name, label)
		if used[label] > 1 {
			name = fmt.Sprintf("%s_%d", name, used[label])
		}

		names = append(names, name)

		body := reindentBlock(unit.Snippet(block.Span), fn.BodyIndent)
		fmt.Fprintf(&helpers, "\n\ndef %s():\n%s", name, body)

		edits = append(edits, Edit{
			Start: block.Span.StartByte,
			End:   block.Span.EndByte,
			Text:  name + "()",
		})
	}

	edits = append(edits, Edit{
		Start: fn.Span.EndByte,
		End:   fn.Span.EndByte,
		Text:  helpers.String(),
	})

	desc := fmt.Sprintf("split %q into %s", fn.Name, strings.Join(names, ", "))

	return edits, desc, nil
}

func splitEligible(fn *m.Node) error {
	if fn.Decorated {
		return errors.New("decorated functions are not split")
	}

	if strings.Contains(fn.ID, "class:") {
		return errors.New("methods are not split")
	}

	if strings.Count(fn.ID, "function:") > 1 {
		return errors.New("nested functions are not split")
	}

	rejected := ""

	fn.Walk(func(node *m.Node) bool {
		if node != fn && node.IsUnit() {
			return false
		}

		if node.Kind == m.KindReturn {
			rejected = "function returns a value"
		}

		if node.Suspends {
			rejected = "function yields, awaits or touches outer scope"
		}

		return rejected == ""
	})

	if rejected != "" {
		return errors.New(rejected)
	}

	return nil
}

func topLevelBlocks(fn *m.Node) []*m.Node {
	var blocks []*m.Node

	for _, child := range fn.Children {
		if _, ok := blockLabels[child.Kind]; ok {
			blocks = append(blocks, child)
		}
	}

	return blocks
}

// checkDataFlow rejects the split when an extractable block shares a
// variable with anything outside it: a name it reads that the rest of
// the function (or the parameter list) assigns, or a name it assigns
// that the rest reads. Helpers take no parameters, so any such link
// would silently change behaviour.
func checkDataFlow(fn *m.Node, blocks []*m.Node) error {
	inBlock := make(map[*m.Node]struct{}, len(blocks))
	for _, block := range blocks {
		inBlock[block] = struct{}{}
	}

	outsideAssigned := make(map[string]struct{})
	outsideRead := make(map[string]struct{})

	for _, param := range fn.Params {
		outsideAssigned[param.Name] = struct{}{}
	}

	for _, child := range fn.Children {
		if _, ok := inBlock[child]; ok {
			continue
		}

		for name := range child.AllAssigned() {
			outsideAssigned[name] = struct{}{}
		}

		for name := range child.AllRead() {
			outsideRead[name] = struct{}{}
		}
	}

	for i, block := range blocks {
		assigned := block.AllAssigned()
		read := block.AllRead()

		for name := range read {
			if _, ok := outsideAssigned[name]; ok {
				return fmt.Errorf("block reads %q assigned elsewhere", name)
			}
		}

		for name := range assigned {
			if _, ok := outsideRead[name]; ok {
				return fmt.Errorf("block assigns %q read elsewhere", name)
			}
		}

		for j, other := range blocks {
			if i == j {
				continue
			}

			for name := range other.AllRead() {
				if _, ok := assigned[name]; ok {
					return fmt.Errorf("blocks share variable %q", name)
				}
			}
		}
	}

	return nil
}

// reindentBlock rebases a block's lines from the function body indent
// onto the helper body indent.
func reindentBlock(text string, fromIndent string) string {
	lines := strings.Split(text, "\n")

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = ""

			continue
		}

		lines[i] = helperIndent + strings.TrimPrefix(line, fromIndent)
	}

	return strings.Join(lines, "\n")
}
