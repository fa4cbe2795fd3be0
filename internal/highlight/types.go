// Package highlight owns the lifecycle of visual highlights in a document:
// creation around an anchor, timed expiry through a fade phase, and exact
// structural rollback on removal.
package highlight

import (
	"time"

	"github.com/facebookgo/clock"
	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/fyrsmithlabs/clausemark/internal/anchor"
	"github.com/fyrsmithlabs/clausemark/internal/dom"
)

// State is a highlight's lifecycle state.
type State string

const (
	StateActive  State = "active"
	StateFading  State = "fading"
	StateRemoved State = "removed"
)

// ValidTransitions defines allowed state transitions.
var ValidTransitions = map[State][]State{
	StateActive:  {StateFading},
	StateFading:  {StateRemoved},
	StateRemoved: {}, // terminal
}

// CanTransitionTo checks if a transition from current state to target is valid.
func (s State) CanTransitionTo(target State) bool {
	for _, t := range ValidTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if this is a terminal state.
func (s State) IsTerminal() bool {
	return s == StateRemoved
}

// Highlight is one visual highlight. Exactly one of Marker and
// StyledElement is set.
type Highlight struct {
	ID   string      `json:"id"`
	Kind anchor.Kind `json:"kind"`
	// Marker is the wrapper element this highlight inserted.
	Marker *html.Node `json:"-"`
	// StyledElement is the pre-existing element this highlight styled.
	StyledElement *html.Node `json:"-"`
	// WrapFailed is set when a single-node anchor had to fall back to
	// styling its parent element.
	WrapFailed bool          `json:"wrap_failed,omitempty"`
	Text       string        `json:"text"`
	Path       string        `json:"path"`
	CreatedAt  time.Time     `json:"created_at"`
	TTL        time.Duration `json:"ttl"`
	State      State         `json:"state"`
	RemovedAt  time.Time     `json:"removed_at,omitempty"`

	wrap   *dom.Wrap
	expiry *clock.Timer
	fade   *clock.Timer
}

// Target returns the node carrying the highlight's styling.
func (h *Highlight) Target() *html.Node {
	if h.Marker != nil {
		return h.Marker
	}
	return h.StyledElement
}

// ExpiresAt returns when the highlight starts fading on its own.
func (h *Highlight) ExpiresAt() time.Time {
	return h.CreatedAt.Add(h.TTL)
}

func newID() string {
	return "hl_" + uuid.New().String()[:8]
}
