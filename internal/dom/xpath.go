package dom

import (
	"errors"
	"fmt"

	"github.com/antchfx/xpath"
	"golang.org/x/net/html"
)

var (
	// ErrNoRoot is returned when a root expression selects no element.
	ErrNoRoot = errors.New("root expression matched no element")
	// ErrInvalidXPath is returned when an expression does not compile.
	ErrInvalidXPath = errors.New("invalid xpath expression")
)

// SelectRoot picks the subtree the engine searches. An empty expression
// selects <body>, falling back to the whole document.
func SelectRoot(doc *html.Node, expr string) (*html.Node, error) {
	if expr == "" {
		if body := Body(doc); body != nil {
			return body, nil
		}
		return doc, nil
	}
	nodes, err := Select(doc, expr)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			return n, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoRoot, expr)
}

// Select evaluates an XPath expression against doc and returns the
// selected nodes in document order. Attribute selections yield their
// owning element.
func Select(doc *html.Node, expr string) ([]*html.Node, error) {
	x, err := xpath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidXPath, expr, err)
	}
	var out []*html.Node
	seen := make(map[*html.Node]bool)
	iter := x.Select(newNavigator(doc))
	for iter.MoveNext() {
		n := iter.Current().(*navigator).cur
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out, nil
}

// navigator implements xpath.NodeNavigator over an html.Node tree.
type navigator struct {
	root, cur *html.Node
	attr      int
}

func newNavigator(root *html.Node) *navigator {
	return &navigator{root: root, cur: root, attr: -1}
}

func (n *navigator) NodeType() xpath.NodeType {
	switch n.cur.Type {
	case html.ElementNode:
		if n.attr != -1 {
			return xpath.AttributeNode
		}
		return xpath.ElementNode
	case html.TextNode:
		return xpath.TextNode
	case html.CommentNode, html.DoctypeNode:
		return xpath.CommentNode
	}
	return xpath.RootNode
}

func (n *navigator) LocalName() string {
	if n.attr != -1 {
		return n.cur.Attr[n.attr].Key
	}
	return n.cur.Data
}

func (n *navigator) Prefix() string { return "" }

func (n *navigator) Value() string {
	switch {
	case n.attr != -1:
		return n.cur.Attr[n.attr].Val
	case n.cur.Type == html.ElementNode || n.cur.Type == html.DocumentNode:
		return TextContent(n.cur)
	}
	return n.cur.Data
}

func (n *navigator) Copy() xpath.NodeNavigator {
	cp := *n
	return &cp
}

func (n *navigator) MoveToRoot() {
	n.cur = n.root
	n.attr = -1
}

func (n *navigator) MoveToParent() bool {
	if n.attr != -1 {
		n.attr = -1
		return true
	}
	if n.cur == n.root || n.cur.Parent == nil {
		return false
	}
	n.cur = n.cur.Parent
	return true
}

func (n *navigator) MoveToNextAttribute() bool {
	if n.attr >= len(n.cur.Attr)-1 {
		return false
	}
	n.attr++
	return true
}

func (n *navigator) MoveToChild() bool {
	if n.attr != -1 || n.cur.FirstChild == nil {
		return false
	}
	n.cur = n.cur.FirstChild
	return true
}

func (n *navigator) MoveToFirst() bool {
	if n.attr != -1 || n.cur.PrevSibling == nil || n.cur == n.root {
		return false
	}
	for n.cur.PrevSibling != nil {
		n.cur = n.cur.PrevSibling
	}
	return true
}

func (n *navigator) MoveToNext() bool {
	if n.attr != -1 || n.cur == n.root || n.cur.NextSibling == nil {
		return false
	}
	n.cur = n.cur.NextSibling
	return true
}

func (n *navigator) MoveToPrevious() bool {
	if n.attr != -1 || n.cur == n.root || n.cur.PrevSibling == nil {
		return false
	}
	n.cur = n.cur.PrevSibling
	return true
}

func (n *navigator) MoveTo(other xpath.NodeNavigator) bool {
	o, ok := other.(*navigator)
	if !ok || o.root != n.root {
		return false
	}
	n.cur = o.cur
	n.attr = o.attr
	return true
}

func (n *navigator) String() string {
	return n.Value()
}
