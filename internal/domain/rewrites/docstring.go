package rewrites

import (
	"errors"
	"strings"
	"unicode"

	m "github.com/mouse-blink/refit/internal/model"
)

// BuildDocstring inserts a one-line docstring as the first statement of
// a function or class body. The summary is derived from the unit name.
func BuildDocstring(node *m.Node) (Edit, string, error) {
	if node.HasDocstring {
		return Edit{}, "", errors.New("unit already has a docstring")
	}

	if node.BodySpan.StartByte <= 0 {
		return Edit{}, "", errors.New("unit has no body")
	}

	summary := summarize(node)
	text := `"""` + summary + `"""` + "\n" + node.BodyIndent

	edit := Edit{
		Start: node.BodySpan.StartByte,
		End:   node.BodySpan.StartByte,
		Text:  text,
	}

	return edit, "added docstring " + `"` + summary + `"`, nil
}

// summarize turns a snake_case or CamelCase unit name into a sentence.
func summarize(node *m.Node) string {
	words := splitName(node.Name)
	if len(words) == 0 {
		return "Undocumented."
	}

	sentence := strings.Join(words, " ")
	sentence = strings.ToUpper(sentence[:1]) + sentence[1:]

	return sentence + "."
}

func splitName(name string) []string {
	var words []string

	for _, part := range strings.Split(strings.Trim(name, "_"), "_") {
		words = append(words, splitCamel(part)...)
	}

	return words
}

func splitCamel(part string) []string {
	var (
		words   []string
		current strings.Builder
	)

	for i, r := range part {
		if unicode.IsUpper(r) && i > 0 {
			words = append(words, strings.ToLower(current.String()))
			current.Reset()
		}

		current.WriteRune(r)
	}

	if current.Len() > 0 {
		words = append(words, strings.ToLower(current.String()))
	}

	return words
}
