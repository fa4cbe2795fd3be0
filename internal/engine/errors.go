package engine

import (
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/clausemark/internal/dom"
	"github.com/fyrsmithlabs/clausemark/internal/match"
	"github.com/fyrsmithlabs/clausemark/internal/sanitize"
)

// Locate errors. The short and no-match sentinels are shared with the
// match package so errors.Is works across both.
var (
	ErrShortQuery = match.ErrShortQuery
	ErrNoMatch    = match.ErrNoMatch
	// ErrStructuralRace means the document changed between locating the
	// quote and anchoring it. Callers treat it as a miss.
	ErrStructuralRace = errors.New("document changed while anchoring")
)

// Session errors.
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionClosed    = errors.New("session is closed")
	ErrTooManySessions  = errors.New("maximum number of sessions reached")
	ErrRateLimited      = errors.New("rate limit exceeded")
	ErrEmptyDocument    = errors.New("document is empty")
	ErrDocumentTooLarge = errors.New("document is too large")
	ErrInvalidConfig    = errors.New("invalid engine config")
)

// Error codes for API responses.
const (
	ErrCodeShortQuery       = "CLM001"
	ErrCodeNoMatch          = "CLM002"
	ErrCodeStructuralRace   = "CLM003"
	ErrCodeSessionNotFound  = "CLM004"
	ErrCodeSessionClosed    = "CLM005"
	ErrCodeTooManySessions  = "CLM006"
	ErrCodeRateLimited      = "CLM007"
	ErrCodeEmptyDocument    = "CLM008"
	ErrCodeDocumentTooLarge = "CLM009"
	ErrCodeNoRoot           = "CLM010"
	ErrCodeInvalidXPath     = "CLM011"
	ErrCodeInvalidID        = "CLM012"
	ErrCodeInternal         = "CLM099"
)

// Error is an engine failure with a stable code.
type Error struct {
	Code      string
	Message   string
	SessionID string
	Cause     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.SessionID != "" {
		msg += " (session_id=" + e.SessionID + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates an Error.
func NewError(code, message string, cause error, sessionID string) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		SessionID: sessionID,
		Cause:     cause,
	}
}

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrShortQuery, ErrCodeShortQuery},
	{ErrNoMatch, ErrCodeNoMatch},
	{ErrStructuralRace, ErrCodeStructuralRace},
	{ErrSessionNotFound, ErrCodeSessionNotFound},
	{ErrSessionClosed, ErrCodeSessionClosed},
	{ErrTooManySessions, ErrCodeTooManySessions},
	{ErrRateLimited, ErrCodeRateLimited},
	{ErrEmptyDocument, ErrCodeEmptyDocument},
	{ErrDocumentTooLarge, ErrCodeDocumentTooLarge},
	{dom.ErrNoRoot, ErrCodeNoRoot},
	{dom.ErrInvalidXPath, ErrCodeInvalidXPath},
	{sanitize.ErrInvalidID, ErrCodeInvalidID},
}

// Code returns the code for err, or ErrCodeInternal when err is not an
// engine failure.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return ErrCodeInternal
}

// IsRetryable reports whether the caller may retry the same request later.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch Code(err) {
	case ErrCodeRateLimited, ErrCodeTooManySessions:
		return true
	}
	return false
}

// IsMiss reports whether err means the quote was not highlighted for a
// reason that is not a fault.
func IsMiss(err error) bool {
	return errors.Is(err, ErrShortQuery) || errors.Is(err, ErrNoMatch) || errors.Is(err, ErrStructuralRace)
}
