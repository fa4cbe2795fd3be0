package highlight

import (
	"sync"

	"golang.org/x/net/html"
)

// Dispatcher runs fn on the thread that owns the document. Timer callbacks
// always go through it, so they never race the owner's own edits.
type Dispatcher interface {
	Dispatch(fn func())
}

// MutexDispatcher serializes work with a mutex the owner also holds while
// it edits the document.
type MutexDispatcher struct {
	mu *sync.Mutex
}

// NewMutexDispatcher returns a dispatcher that runs work under mu.
func NewMutexDispatcher(mu *sync.Mutex) *MutexDispatcher {
	return &MutexDispatcher{mu: mu}
}

// Dispatch implements Dispatcher.
func (d *MutexDispatcher) Dispatch(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn()
}

// ScrollOptions mirrors the host scroll request.
type ScrollOptions struct {
	Smooth bool
	// Block is the vertical alignment: "start", "center", "end" or "nearest".
	Block string
}

// DefaultScrollOptions requests a smooth scroll that centers the target.
var DefaultScrollOptions = ScrollOptions{Smooth: true, Block: "center"}

// Scroller brings a node into view. Implementations must not block: the
// request is fire-and-forget.
type Scroller interface {
	ScrollIntoView(n *html.Node, opts ScrollOptions)
}

// ScrollerFunc adapts a function to Scroller.
type ScrollerFunc func(n *html.Node, opts ScrollOptions)

// ScrollIntoView implements Scroller.
func (f ScrollerFunc) ScrollIntoView(n *html.Node, opts ScrollOptions) {
	f(n, opts)
}

type nopScroller struct{}

func (nopScroller) ScrollIntoView(*html.Node, ScrollOptions) {}
