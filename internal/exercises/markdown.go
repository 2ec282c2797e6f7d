package exercises

import (
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// extractTitle returns the text of the first heading in body, or "".
func extractTitle(body string) string {
	if body == "" {
		return ""
	}
	src := []byte(body)
	root := goldmark.New().Parser().Parse(text.NewReader(src))

	var title string
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		h, ok := n.(*gmast.Heading)
		if !ok {
			return gmast.WalkContinue, nil
		}
		var b strings.Builder
		lines := h.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			b.Write(seg.Value(src))
		}
		title = strings.TrimSpace(b.String())
		return gmast.WalkStop, nil
	})
	return title
}
