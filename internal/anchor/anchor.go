// Package anchor converts a buffer match into a concrete location in the
// live document tree: a byte range inside one text node when possible,
// otherwise a single enclosing element.
package anchor

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/net/html"

	"github.com/fyrsmithlabs/clausemark/internal/dom"
	"github.com/fyrsmithlabs/clausemark/internal/flatten"
	"github.com/fyrsmithlabs/clausemark/internal/match"
	"github.com/fyrsmithlabs/clausemark/internal/textnorm"
)

// Anchor errors.
var (
	// ErrUnanchorable means the match touches no indexed text and carries
	// no element.
	ErrUnanchorable = errors.New("match cannot be anchored")
	ErrInvalidRatio = errors.New("ancestor_text_ratio must be >= 1")
)

// Kind names an anchor variant.
type Kind string

const (
	KindSingleNode      Kind = "single_node"
	KindElementFallback Kind = "element_fallback"
)

// Anchor is either a SingleNode or an ElementFallback.
type Anchor interface {
	Kind() Kind
	// Target is the node the anchor points at.
	Target() *html.Node
	isAnchor()
}

// SingleNode is a range of raw byte offsets inside one text node.
type SingleNode struct {
	Node  *html.Node
	Start int
	End   int
}

func (SingleNode) Kind() Kind           { return KindSingleNode }
func (a SingleNode) Target() *html.Node { return a.Node }
func (SingleNode) isAnchor()            {}

// ElementFallback styles a whole element.
type ElementFallback struct {
	Element *html.Node
}

func (ElementFallback) Kind() Kind           { return KindElementFallback }
func (a ElementFallback) Target() *html.Node { return a.Element }
func (ElementFallback) isAnchor()            {}

// Config holds the fallback heuristic.
type Config struct {
	// AncestorTextRatio bounds how far the fallback element may grow: the
	// walk climbs to the parent while the parent's text is at most this
	// many times longer than the current element's.
	AncestorTextRatio float64 `koanf:"ancestor_text_ratio"`
	// StopAt lists tags the walk never climbs into, whatever the ratio.
	StopAt []string `koanf:"stop_at"`
}

// DefaultConfig returns the stock 3x ratio, stopping below body.
func DefaultConfig() Config {
	return Config{
		AncestorTextRatio: 3.0,
		StopAt:            []string{"body", "html"},
	}
}

// Validate checks the ratio.
func (c Config) Validate() error {
	if c.AncestorTextRatio < 1 {
		return fmt.Errorf("%w, got %v", ErrInvalidRatio, c.AncestorTextRatio)
	}
	return nil
}

// Anchorer maps matches onto the tree. It never mutates the tree.
type Anchorer struct {
	cfg Config
}

// New returns an Anchorer.
func New(cfg Config) (*Anchorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Anchorer{cfg: cfg}, nil
}

// Anchor resolves m against ix.
func (a *Anchorer) Anchor(ix *flatten.Index, m match.Match) (Anchor, error) {
	if m.Element != nil {
		return ElementFallback{Element: m.Element}, nil
	}
	spans := ix.Overlapping(m.Start, m.End)
	if len(spans) == 0 {
		return nil, fmt.Errorf("%w: [%d,%d)", ErrUnanchorable, m.Start, m.End)
	}
	if len(spans) == 1 {
		if sn, ok := singleNode(spans[0], m); ok {
			return sn, nil
		}
	}
	el := a.fallbackElement(spans)
	if el == nil {
		return nil, fmt.Errorf("%w: no enclosing element", ErrUnanchorable)
	}
	return ElementFallback{Element: el}, nil
}

// singleNode maps the buffer range into the span's node. It fails when the
// node has been detached or its text changed since indexing.
func singleNode(span flatten.Span, m match.Match) (SingleNode, bool) {
	n := span.Node
	if !dom.Attached(n) {
		return SingleNode{}, false
	}
	start, end := span.RawRange(m.Start, m.End)
	if start < 0 || end > len(n.Data) || start >= end {
		return SingleNode{}, false
	}
	got := textnorm.Normalize(n.Data[start:end])
	if got == "" || !strings.Contains(textnorm.Normalize(m.MatchedText), got) {
		return SingleNode{}, false
	}
	return SingleNode{Node: n, Start: start, End: end}, true
}

// fallbackElement starts at the first span's element, climbs until the
// element contains every span, then keeps climbing while the parent's
// text is within the configured ratio of the current element's text.
func (a *Anchorer) fallbackElement(spans []flatten.Span) *html.Node {
	var attached []*html.Node
	for _, s := range spans {
		if dom.Attached(s.Node) {
			attached = append(attached, s.Node)
		}
	}
	if len(attached) == 0 {
		return nil
	}

	el := dom.ParentElement(attached[0])
	for el != nil && !containsAll(el, attached[1:]) {
		el = dom.ParentElement(el)
	}
	if el == nil {
		return nil
	}

	for {
		parent := dom.ParentElement(el)
		if parent == nil {
			return el
		}
		cur := textLen(el)
		if cur == 0 || float64(textLen(parent)) > a.cfg.AncestorTextRatio*float64(cur) {
			return el
		}
		if slices.Contains(a.cfg.StopAt, parent.Data) {
			return el
		}
		el = parent
	}
}

func containsAll(el *html.Node, nodes []*html.Node) bool {
	for _, n := range nodes {
		if !dom.Contains(el, n) {
			return false
		}
	}
	return true
}

func textLen(n *html.Node) int {
	return len(textnorm.Normalize(dom.TextContent(n)))
}
