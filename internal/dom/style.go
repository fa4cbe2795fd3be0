package dom

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrMalformedStyle is returned by InlineStyleResolver for style
// attributes it cannot fully parse.
var ErrMalformedStyle = errors.New("malformed style attribute")

// Style is the subset of an element's computed presentation that decides
// whether its text is rendered.
type Style struct {
	Display    string
	Visibility string
	Opacity    string
	Width      string
	Height     string
	FontSize   string
	// HiddenAttr is set for elements carrying the boolean hidden attribute.
	HiddenAttr bool
	// HiddenClass is set for elements carrying a class known to hide content.
	HiddenClass bool
}

// HidesSubtree reports whether nothing under the element can be visible.
func (s Style) HidesSubtree() bool {
	if s.HiddenAttr || s.HiddenClass || s.Display == "none" {
		return true
	}
	if isZero(s.Opacity) || isZero(s.FontSize) {
		return true
	}
	return isZero(s.Width) && isZero(s.Height)
}

// VisibilityOverride returns the inherited visibility state the element
// sets for its descendants, and whether it sets one at all.
func (s Style) VisibilityOverride() (hidden, set bool) {
	switch s.Visibility {
	case "hidden", "collapse":
		return true, true
	case "visible":
		return false, true
	}
	return false, false
}

// StyleResolver resolves the presentation of an element.
type StyleResolver interface {
	Resolve(n *html.Node) (Style, error)
}

// DefaultHiddenClasses are utility classes that conventionally hide content.
var DefaultHiddenClasses = []string{"hidden", "sr-only", "visually-hidden", "d-none"}

// InlineStyleResolver derives a Style from the element's own markup: the
// hidden attribute, its inline style declarations and its class list.
type InlineStyleResolver struct {
	hiddenClasses map[string]bool
}

// NewInlineStyleResolver returns a resolver treating the given classes as
// hiding. A nil slice selects DefaultHiddenClasses.
func NewInlineStyleResolver(hiddenClasses []string) *InlineStyleResolver {
	if hiddenClasses == nil {
		hiddenClasses = DefaultHiddenClasses
	}
	m := make(map[string]bool, len(hiddenClasses))
	for _, c := range hiddenClasses {
		m[c] = true
	}
	return &InlineStyleResolver{hiddenClasses: m}
}

// Resolve implements StyleResolver.
func (r *InlineStyleResolver) Resolve(n *html.Node) (Style, error) {
	var s Style
	if n == nil || n.Type != html.ElementNode {
		return s, nil
	}
	if _, ok := Attr(n, "hidden"); ok {
		s.HiddenAttr = true
	}
	for _, c := range Classes(n) {
		if r.hiddenClasses[c] {
			s.HiddenClass = true
			break
		}
	}
	decl, ok := Attr(n, "style")
	if !ok {
		return s, nil
	}
	var malformed []string
	for _, d := range strings.Split(decl, ";") {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		prop, val, found := strings.Cut(d, ":")
		if !found {
			malformed = append(malformed, d)
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		val = strings.ToLower(strings.TrimSpace(val))
		val = strings.TrimSpace(strings.TrimSuffix(val, "!important"))
		switch prop {
		case "display":
			s.Display = val
		case "visibility":
			s.Visibility = val
		case "opacity":
			s.Opacity = val
		case "width":
			s.Width = val
		case "height":
			s.Height = val
		case "font-size":
			s.FontSize = val
		}
	}
	if len(malformed) > 0 {
		return s, fmt.Errorf("%w: %q", ErrMalformedStyle, strings.Join(malformed, "; "))
	}
	return s, nil
}

// isZero reports whether a CSS length or number is zero, e.g. "0", "0px",
// "0.0em", "0%".
func isZero(v string) bool {
	if v == "" {
		return false
	}
	num := strings.TrimRightFunc(v, func(r rune) bool {
		return (r >= 'a' && r <= 'z') || r == '%'
	})
	f, err := strconv.ParseFloat(num, 64)
	return err == nil && f == 0
}

// nonContent lists elements whose text never renders as document prose.
var nonContent = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Iframe:   true,
	atom.Object:   true,
	atom.Embed:    true,
	atom.Svg:      true,
	atom.Math:     true,
	atom.Canvas:   true,
	atom.Head:     true,
	atom.Title:    true,
	atom.Meta:     true,
	atom.Link:     true,
	atom.Select:   true,
	atom.Textarea: true,
}

// IsNonContent reports whether n is an element whose text is never
// rendered as prose.
func IsNonContent(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	if n.DataAtom != 0 {
		return nonContent[n.DataAtom]
	}
	return nonContent[atom.Lookup([]byte(n.Data))]
}

// VisitFunc receives each rendered text node during WalkVisibleText.
type VisitFunc func(text *html.Node)

// ErrorFunc receives resolver failures during WalkVisibleText. The node is
// treated as visible.
type ErrorFunc func(n *html.Node, err error)

// WalkVisibleText visits, in document order, every text node under root
// that would be rendered: non-content elements and subtrees hidden by
// their style are skipped, and visibility:hidden is inherited until a
// descendant restores it.
func WalkVisibleText(root *html.Node, r StyleResolver, visit VisitFunc, onErr ErrorFunc) {
	if root == nil {
		return
	}
	if r == nil {
		r = NewInlineStyleResolver(nil)
	}
	var walk func(n *html.Node, invisible bool)
	walk = func(n *html.Node, invisible bool) {
		switch n.Type {
		case html.TextNode:
			if !invisible {
				visit(n)
			}
			return
		case html.ElementNode:
			if IsNonContent(n) {
				return
			}
			s, err := r.Resolve(n)
			if err != nil {
				if onErr != nil {
					onErr(n, err)
				}
			} else {
				if s.HidesSubtree() {
					return
				}
				if hidden, set := s.VisibilityOverride(); set {
					invisible = hidden
				}
			}
		case html.CommentNode, html.DoctypeNode:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, invisible)
		}
	}
	walk(root, false)
}
