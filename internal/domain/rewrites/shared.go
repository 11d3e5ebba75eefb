package rewrites

import (
	"errors"
	"fmt"
	"strings"

	m "github.com/mouse-blink/refit/internal/model"
)

// BuildExtractShared replaces the body of an exact duplicate with a
// delegation to its twin. Both units must share a parent scope so the
// twin is reachable by name from the call site.
func BuildExtractShared(node *m.Node, twin *m.Node) (Edit, string, error) {
	if twin == nil {
		return Edit{}, "", errors.New("twin unit no longer exists")
	}

	if parentID(node.ID) != parentID(twin.ID) {
		return Edit{}, "", errors.New("duplicate units live in different scopes")
	}

	args := make([]string, 0, len(node.Params))
	for _, param := range node.Params {
		args = append(args, param.Name)
	}

	target := twin.Name

	if len(args) > 0 && (args[0] == "self" || args[0] == "cls") {
		target = args[0] + "." + target
		args = args[1:]
	}

	call := fmt.Sprintf("return %s(%s)", target, strings.Join(args, ", "))

	edit := Edit{
		Start: node.BodySpan.StartByte,
		End:   node.BodySpan.EndByte,
		Text:  call,
	}

	return edit, fmt.Sprintf("delegated %q to %q", node.Name, twin.Name), nil
}

func parentID(id string) string {
	if idx := strings.LastIndex(id, "/"); idx >= 0 {
		return id[:idx]
	}

	return ""
}
