// Package dom provides the document tree operations the highlight engine
// needs on top of golang.org/x/net/html: parsing and rendering, text
// extraction, node addressing, class manipulation, visibility resolution
// and a reversible structural editor.
package dom

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Parse reads an HTML document into a node tree.
func Parse(r io.Reader) (*html.Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}
	return doc, nil
}

// ParseString parses an HTML document held in memory.
func ParseString(s string) (*html.Node, error) {
	return Parse(strings.NewReader(s))
}

// Render writes n and its subtree as HTML.
func Render(w io.Writer, n *html.Node) error {
	if err := html.Render(w, n); err != nil {
		return fmt.Errorf("rendering html: %w", err)
	}
	return nil
}

// RenderString renders n to a string. Render errors are only possible on
// writer failure, which cannot happen for a bytes.Buffer.
func RenderString(n *html.Node) string {
	var buf bytes.Buffer
	_ = html.Render(&buf, n)
	return buf.String()
}

// TextContent concatenates the data of every text node under n.
func TextContent(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		for ; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				sb.WriteString(c.Data)
				continue
			}
			walk(c.FirstChild)
		}
	}
	walk(n.FirstChild)
	return sb.String()
}

// Attached reports whether n is still connected to a document node.
func Attached(n *html.Node) bool {
	if n == nil {
		return false
	}
	for ; n.Parent != nil; n = n.Parent {
	}
	return n.Type == html.DocumentNode
}

// Contains reports whether n is ancestor or equal to d.
func Contains(n, d *html.Node) bool {
	for ; d != nil; d = d.Parent {
		if d == n {
			return true
		}
	}
	return false
}

// ParentElement returns the closest element ancestor of n, or nil.
func ParentElement(n *html.Node) *html.Node {
	if n == nil {
		return nil
	}
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			return p
		}
	}
	return nil
}

// Body returns the <body> element of doc, or nil when there is none.
func Body(doc *html.Node) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil && found == nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == atom.Body {
				found = c
				return
			}
			walk(c)
		}
	}
	walk(doc)
	return found
}

// Attr returns the value of the named attribute.
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets or replaces an attribute value.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes an attribute if present.
func RemoveAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			continue
		}
		out = append(out, a)
	}
	n.Attr = out
}

// NewElement returns a detached element with the given tag.
func NewElement(tag string) *html.Node {
	tag = strings.ToLower(tag)
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
}

// Path returns an XPath-like address such as /html/body/p[2]/span. The
// index is omitted for the only element of its name under a parent. Text
// nodes are addressed as text()[n].
func Path(n *html.Node) string {
	if n == nil {
		return ""
	}
	var parts []string
	for c := n; c != nil && c.Type != html.DocumentNode; c = c.Parent {
		parts = append(parts, step(c))
	}
	if len(parts) == 0 {
		return "/"
	}
	var sb strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		sb.WriteByte('/')
		sb.WriteString(parts[i])
	}
	return sb.String()
}

func step(n *html.Node) string {
	name := n.Data
	switch n.Type {
	case html.TextNode:
		name = "text()"
	case html.CommentNode:
		name = "comment()"
	}
	idx, total := 0, 0
	if n.Parent == nil {
		return name
	}
	for c := n.Parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != n.Type || (n.Type == html.ElementNode && c.Data != n.Data) {
			continue
		}
		total++
		if c == n {
			idx = total
		}
	}
	if total <= 1 {
		return name
	}
	return name + "[" + strconv.Itoa(idx) + "]"
}
