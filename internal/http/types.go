package http

import (
	"github.com/fyrsmithlabs/clausemark/internal/engine"
	"github.com/fyrsmithlabs/clausemark/internal/telemetry"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status    string                  `json:"status"`
	Version   string                  `json:"version,omitempty"`
	Sessions  int                     `json:"sessions"`
	Telemetry *telemetry.HealthStatus `json:"telemetry,omitempty"`
}

// OpenRequest is the request body for POST /api/v1/sessions.
type OpenRequest struct {
	HTML      string `json:"html"`
	RootXPath string `json:"root_xpath,omitempty"`
}

// OpenResponse is the response body for POST /api/v1/sessions.
type OpenResponse struct {
	SessionID string `json:"session_id"`
	// TextSpans is the number of visible text nodes under the content root.
	TextSpans int `json:"text_spans"`
	// TextLength is the byte length of the flattened root text.
	TextLength int `json:"text_length"`
}

// SessionsResponse is the response body for GET /api/v1/sessions.
type SessionsResponse struct {
	Sessions []string `json:"sessions"`
}

// HighlightRequest is the request body for POST
// /api/v1/sessions/:id/highlights.
type HighlightRequest struct {
	Quote string `json:"quote"`
	engine.Options
}

// HighlightResponse reports the outcome of a highlight request. A miss is
// not an error: Highlighted is false and Code says why.
type HighlightResponse struct {
	Highlighted bool `json:"highlighted"`
	*engine.Result
	Code   string `json:"code,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// LocateRequest is the request body for POST /api/v1/sessions/:id/locate.
type LocateRequest struct {
	Quote string `json:"quote"`
}

// LocateResponse describes where a quote would be highlighted.
type LocateResponse struct {
	Found       bool    `json:"found"`
	Strategy    string  `json:"strategy,omitempty"`
	MatchedText string  `json:"matched_text,omitempty"`
	Similarity  float64 `json:"similarity,omitempty"`
	Start       int     `json:"start"`
	End         int     `json:"end"`
	Code        string  `json:"code,omitempty"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
