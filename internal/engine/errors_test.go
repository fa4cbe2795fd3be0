package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/clausemark/internal/dom"
	"github.com/fyrsmithlabs/clausemark/internal/sanitize"
)

func TestErrorCodesUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, c := range errorCodes {
		assert.False(t, seen[c.code], "duplicate error code: %s", c.code)
		seen[c.code] = true
	}
	assert.False(t, seen[ErrCodeInternal])
}

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name:     "basic",
			err:      &Error{Code: ErrCodeNoMatch, Message: "quote not found"},
			contains: []string{"CLM002", "quote not found"},
		},
		{
			name:     "with session",
			err:      &Error{Code: ErrCodeSessionClosed, Message: "closed", SessionID: "sess_1"},
			contains: []string{"CLM005", "session_id=sess_1"},
		},
		{
			name:     "with cause",
			err:      NewError(ErrCodeInternal, "render failed", errors.New("broken pipe"), ""),
			contains: []string{"CLM099", "render failed", "broken pipe"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, s := range tt.contains {
				assert.Contains(t, tt.err.Error(), s)
			}
		})
	}
}

func TestCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrShortQuery, ErrCodeShortQuery},
		{fmt.Errorf("locate: %w", ErrNoMatch), ErrCodeNoMatch},
		{fmt.Errorf("%w: marker gone", ErrStructuralRace), ErrCodeStructuralRace},
		{ErrRateLimited, ErrCodeRateLimited},
		{fmt.Errorf("%w: //main", dom.ErrNoRoot), ErrCodeNoRoot},
		{fmt.Errorf("%w \"//[\": bad", dom.ErrInvalidXPath), ErrCodeInvalidXPath},
		{fmt.Errorf("%w: session id is required", sanitize.ErrInvalidID), ErrCodeInvalidID},
		{NewError(ErrCodeSessionNotFound, "missing", nil, "sess_x"), ErrCodeSessionNotFound},
		{errors.New("boom"), ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Code(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.True(t, IsRetryable(ErrRateLimited))
	assert.True(t, IsRetryable(fmt.Errorf("open: %w", ErrTooManySessions)))
	assert.False(t, IsRetryable(ErrNoMatch))
	assert.False(t, IsRetryable(errors.New("boom")))
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := NewError(ErrCodeInternal, "wrapped", cause, "")
	assert.ErrorIs(t, err, cause)
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, OutcomeHighlighted},
		{ErrShortQuery, OutcomeShortQuery},
		{fmt.Errorf("locate: %w", ErrNoMatch), OutcomeNoMatch},
		{fmt.Errorf("%w: gone", ErrStructuralRace), OutcomeRace},
		{ErrRateLimited, OutcomeRateLimited},
		{errors.New("boom"), OutcomeError},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Outcome(tt.err))
		})
	}
}
