package dom

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// Structural editor errors.
var (
	ErrNotTextNode   = errors.New("node is not a text node")
	ErrDetached      = errors.New("node is not attached to a document")
	ErrInvalidRange  = errors.New("invalid range")
	ErrInvalidMarker = errors.New("marker must be a detached element")
)

// Wrap records one WrapRange edit so it can be reverted exactly.
type Wrap struct {
	// Marker is the element inserted around the range.
	Marker *html.Node
	// Text is the original text node, now holding only the wrapped range.
	Text *html.Node
	// Left and Right are the text pieces split off before and after the
	// range. Either is nil when the range touched that end of the node.
	Left, Right *html.Node
}

// WrapRange splits the text node at byte offsets start and end and moves
// the middle piece into marker, which takes the piece's place in the tree.
// Offsets must fall on rune boundaries and describe a non-empty range.
func WrapRange(text *html.Node, start, end int, marker *html.Node) (*Wrap, error) {
	if text == nil || text.Type != html.TextNode {
		return nil, ErrNotTextNode
	}
	if !Attached(text) {
		return nil, ErrDetached
	}
	if marker == nil || marker.Type != html.ElementNode || marker.Parent != nil {
		return nil, ErrInvalidMarker
	}
	data := text.Data
	if start < 0 || end > len(data) || start >= end {
		return nil, fmt.Errorf("%w: [%d,%d) in node of length %d", ErrInvalidRange, start, end, len(data))
	}
	if !runeBoundary(data, start) || !runeBoundary(data, end) {
		return nil, fmt.Errorf("%w: [%d,%d) splits a character", ErrInvalidRange, start, end)
	}

	parent := text.Parent
	w := &Wrap{Marker: marker, Text: text}
	if start > 0 {
		w.Left = &html.Node{Type: html.TextNode, Data: data[:start]}
		parent.InsertBefore(w.Left, text)
	}
	if end < len(data) {
		w.Right = &html.Node{Type: html.TextNode, Data: data[end:]}
		parent.InsertBefore(w.Right, text.NextSibling)
	}
	text.Data = data[start:end]
	parent.InsertBefore(marker, text)
	parent.RemoveChild(text)
	marker.AppendChild(text)
	return w, nil
}

// Unwrap reverts a WrapRange: the marker's children move back to the
// marker's position, the marker is removed and every run of adjacent text
// nodes between the marker's former neighbours is merged into one. The
// merge covers pieces split off by other wraps that were undone in a
// different order, so the text-node structure matches the pre-wrap tree.
// The original text node survives the merge when it is part of the run.
func Unwrap(w *Wrap) error {
	if w == nil || w.Marker == nil {
		return ErrInvalidMarker
	}
	parent := w.Marker.Parent
	if parent == nil {
		return ErrDetached
	}
	prev, next := w.Marker.PrevSibling, w.Marker.NextSibling
	for c := w.Marker.FirstChild; c != nil; {
		n := c.NextSibling
		w.Marker.RemoveChild(c)
		parent.InsertBefore(c, w.Marker)
		c = n
	}
	parent.RemoveChild(w.Marker)

	if prev == nil {
		prev = parent.FirstChild
	}
	mergeText(parent, prev, next, w.Text)
	return nil
}

// mergeText joins adjacent text siblings of parent from start through end
// inclusive; a nil end means the last child. keep is preferred as the
// surviving node of its run.
func mergeText(parent, start, end, keep *html.Node) {
	for c := start; c != nil && c != end; {
		n := c.NextSibling
		if n == nil {
			return
		}
		if c.Type != html.TextNode || n.Type != html.TextNode {
			c = n
			continue
		}
		if n == keep {
			n.Data = c.Data + n.Data
			parent.RemoveChild(c)
			c = n
			continue
		}
		c.Data += n.Data
		parent.RemoveChild(n)
		if n == end {
			return
		}
	}
}

func runeBoundary(s string, i int) bool {
	return i == len(s) || utf8.RuneStart(s[i])
}
