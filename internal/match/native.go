package match

import (
	"context"
	"strings"

	"golang.org/x/net/html"

	"github.com/fyrsmithlabs/clausemark/internal/dom"
	"github.com/fyrsmithlabs/clausemark/internal/textnorm"
)

// Hit is a NativeFinder result.
type Hit struct {
	// Element is the deepest element containing the whole hit.
	Element *html.Node
	// Text is the normalized text that matched.
	Text string
}

// NativeFinder searches the live document the way a host's built-in find
// facility would, independent of the flattened buffer.
type NativeFinder interface {
	Find(ctx context.Context, root *html.Node, phrase string) (Hit, bool)
}

// TreeFinder is the default NativeFinder. It searches the rendered text of
// root with text nodes concatenated as-is, case-insensitively and with
// normalized whitespace, honouring visibility.
type TreeFinder struct {
	Resolver dom.StyleResolver
}

type rawPiece struct {
	node  *html.Node
	start int
	end   int
}

// Find implements NativeFinder.
func (f *TreeFinder) Find(ctx context.Context, root *html.Node, phrase string) (Hit, bool) {
	needle := textnorm.Normalize(phrase)
	if needle == "" || root == nil {
		return Hit{}, false
	}

	var (
		raw    strings.Builder
		pieces []rawPiece
	)
	dom.WalkVisibleText(root, f.Resolver, func(n *html.Node) {
		start := raw.Len()
		raw.WriteString(n.Data)
		if raw.Len() > start {
			pieces = append(pieces, rawPiece{node: n, start: start, end: raw.Len()})
		}
	}, nil)
	if ctx.Err() != nil {
		return Hit{}, false
	}

	mapped := textnorm.Map(raw.String())
	i := strings.Index(mapped.Text, needle)
	if i < 0 {
		return Hit{}, false
	}
	from, to := mapped.Source(i, i+len(needle))

	var covering []*html.Node
	for _, p := range pieces {
		if p.start < to && from < p.end {
			covering = append(covering, p.node)
		}
	}
	el := commonElement(covering)
	if el == nil {
		return Hit{}, false
	}
	return Hit{Element: el, Text: mapped.Text[i : i+len(needle)]}, true
}

// commonElement returns the deepest element that contains every node.
func commonElement(nodes []*html.Node) *html.Node {
	if len(nodes) == 0 {
		return nil
	}
	candidate := dom.ParentElement(nodes[0])
	for candidate != nil {
		all := true
		for _, n := range nodes[1:] {
			if !dom.Contains(candidate, n) {
				all = false
				break
			}
		}
		if all {
			return candidate
		}
		candidate = dom.ParentElement(candidate)
	}
	return nil
}
