// Package flatten turns the visible text of a document subtree into one
// normalized search buffer with a back-map from buffer offsets to the
// text nodes that produced them.
package flatten

import (
	"sort"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/fyrsmithlabs/clausemark/internal/dom"
	"github.com/fyrsmithlabs/clausemark/internal/textnorm"
)

// TextSpan addresses the trimmed text of one text node in raw byte
// offsets of the node's data.
type TextSpan struct {
	Node        *html.Node
	StartInNode int
	EndInNode   int
}

// Span is a TextSpan plus its position in the buffer. BufferEnd excludes
// the separator space that follows every span.
type Span struct {
	TextSpan
	BufferStart int
	BufferEnd   int

	norm textnorm.Mapped
}

// Len returns the span's length in the buffer.
func (s Span) Len() int { return s.BufferEnd - s.BufferStart }

// RawRange converts a buffer range into raw byte offsets within the span's
// node. The range is clamped to the span.
func (s Span) RawRange(bufStart, bufEnd int) (int, int) {
	from := max(bufStart, s.BufferStart) - s.BufferStart
	to := min(bufEnd, s.BufferEnd) - s.BufferStart
	return s.norm.Source(from, to)
}

// Index is the flattened view of a subtree. Spans are in document order
// and their buffer ranges are strictly increasing.
type Index struct {
	Root   *html.Node
	Buffer string
	Spans  []Span
}

// Overlapping returns the spans intersecting the buffer range [start, end).
func (ix *Index) Overlapping(start, end int) []Span {
	if ix == nil || start >= end {
		return nil
	}
	i := sort.Search(len(ix.Spans), func(i int) bool {
		return ix.Spans[i].BufferEnd > start
	})
	var out []Span
	for ; i < len(ix.Spans) && ix.Spans[i].BufferStart < end; i++ {
		out = append(out, ix.Spans[i])
	}
	return out
}

// SpanAt returns the span containing buffer offset off.
func (ix *Index) SpanAt(off int) (Span, bool) {
	spans := ix.Overlapping(off, off+1)
	if len(spans) == 0 {
		return Span{}, false
	}
	return spans[0], true
}

// Text returns the buffer slice [start, end), clamped to the buffer.
func (ix *Index) Text(start, end int) string {
	start = max(0, start)
	end = min(len(ix.Buffer), end)
	if start >= end {
		return ""
	}
	return ix.Buffer[start:end]
}

// Option configures Flatten.
type Option func(*options)

type options struct {
	resolver dom.StyleResolver
	logger   *zap.Logger
}

// WithResolver sets the style resolver used to prune invisible subtrees.
func WithResolver(r dom.StyleResolver) Option {
	return func(o *options) {
		o.resolver = r
	}
}

// WithLogger sets the logger that receives style resolution failures.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Flatten walks root in document order and concatenates the normalized
// text of every visible text node, each followed by one space. Text
// nodes that normalize to nothing are skipped. The tree is not modified.
func Flatten(root *html.Node, opts ...Option) *Index {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	ix := &Index{Root: root}
	var buf []byte
	dom.WalkVisibleText(root, o.resolver, func(n *html.Node) {
		m := textnorm.Map(n.Data)
		if m.Len() == 0 {
			return
		}
		startInNode, endInNode := m.Source(0, m.Len())
		ix.Spans = append(ix.Spans, Span{
			TextSpan: TextSpan{
				Node:        n,
				StartInNode: startInNode,
				EndInNode:   endInNode,
			},
			BufferStart: len(buf),
			BufferEnd:   len(buf) + m.Len(),
			norm:        m,
		})
		buf = append(buf, m.Text...)
		buf = append(buf, ' ')
	}, func(n *html.Node, err error) {
		o.logger.Debug("style resolution failed, treating as visible",
			zap.String("path", dom.Path(n)),
			zap.Error(err))
	})
	ix.Buffer = string(buf)
	return ix
}
