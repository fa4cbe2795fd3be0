package highlight

import "errors"

// Lifecycle errors.
var (
	ErrNotFound          = errors.New("highlight not found")
	ErrAlreadyExists     = errors.New("highlight already exists")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrClosed            = errors.New("highlight lifecycle is closed")
)

// Anchor target errors.
var (
	// ErrDetached means the anchor's target left the document before the
	// highlight could be created, and no parent element remains to style.
	ErrDetached          = errors.New("anchor target is detached")
	ErrUnsupportedAnchor = errors.New("unsupported anchor type")
)

// Configuration errors.
var (
	ErrInvalidConfig = errors.New("invalid highlight config")
)
