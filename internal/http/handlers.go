package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/clausemark/internal/dom"
	"github.com/fyrsmithlabs/clausemark/internal/engine"
	"github.com/fyrsmithlabs/clausemark/internal/highlight"
	"github.com/fyrsmithlabs/clausemark/internal/logging"
	"github.com/fyrsmithlabs/clausemark/internal/sanitize"
)

const codeInvalidRequest = "invalid_request"

func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{
		Status:   "ok",
		Version:  s.version,
		Sessions: s.store.Len(),
	}
	if s.health != nil {
		h := s.health()
		resp.Telemetry = &h
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListSessions(c echo.Context) error {
	return c.JSON(http.StatusOK, SessionsResponse{Sessions: s.store.IDs()})
}

func (s *Server) handleOpenSession(c echo.Context) error {
	var req OpenRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	sess, err := s.store.Open(c.Request().Context(), strings.NewReader(req.HTML), req.RootXPath)
	if err != nil {
		return s.fail(c, err)
	}
	ix, err := sess.Index()
	if err != nil {
		_ = s.store.Close(c.Request().Context(), sess.ID)
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, OpenResponse{
		SessionID:  sess.ID,
		TextSpans:  len(ix.Spans),
		TextLength: len(ix.Buffer),
	})
}

func (s *Server) handleRenderSession(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return s.fail(c, err)
	}
	return c.HTML(http.StatusOK, sess.RenderString())
}

func (s *Server) handleCloseSession(c echo.Context) error {
	id := c.Param("id")
	if err := sanitize.ValidateID(id, "session id"); err != nil {
		return s.fail(c, err)
	}
	if err := s.store.Close(c.Request().Context(), id); err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleLocate(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return s.fail(c, err)
	}
	var req LocateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	m, err := sess.Locate(c.Request().Context(), req.Quote)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, LocateResponse{
			Found:       true,
			Strategy:    m.Strategy.String(),
			MatchedText: m.MatchedText,
			Similarity:  m.Similarity,
			Start:       m.Start,
			End:         m.End,
		})
	case engine.IsMiss(err):
		return c.JSON(http.StatusOK, LocateResponse{Code: engine.Code(err)})
	}
	return s.fail(c, err)
}

func (s *Server) handleHighlight(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return s.fail(c, err)
	}
	var req HighlightRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	res, err := sess.Highlight(c.Request().Context(), req.Quote, req.Options)
	s.prom.highlights.WithLabelValues(engine.Outcome(err)).Inc()
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, HighlightResponse{Highlighted: true, Result: res})
	case engine.IsMiss(err):
		return c.JSON(http.StatusOK, HighlightResponse{Code: engine.Code(err), Reason: err.Error()})
	}
	return s.fail(c, err)
}

func (s *Server) handleListHighlights(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, sess.Highlights())
}

func (s *Server) handleClearHighlights(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return s.fail(c, err)
	}
	sess.ClearAllHighlights(c.Request().Context())
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleRemoveHighlight(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return s.fail(c, err)
	}
	hid := c.Param("hid")
	if err := sanitize.ValidateID(hid, "highlight id"); err != nil {
		return s.fail(c, err)
	}
	if err := sess.RemoveHighlight(c.Request().Context(), hid); err != nil {
		return s.fail(c, err)
	}
	// The highlight fades before it is rolled back.
	return c.NoContent(http.StatusAccepted)
}

// session resolves the :id path parameter.
func (s *Server) session(c echo.Context) (*engine.Session, error) {
	id := c.Param("id")
	if err := sanitize.ValidateID(id, "session id"); err != nil {
		return nil, err
	}
	c.SetRequest(c.Request().WithContext(logging.WithSessionID(c.Request().Context(), id)))
	return s.store.Get(id)
}

// fail writes err as an ErrorResponse with the matching status.
func (s *Server) fail(c echo.Context, err error) error {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("uri", c.Request().RequestURI),
			zap.Error(err))
	}
	if status == http.StatusTooManyRequests {
		c.Response().Header().Set("Retry-After", "1")
	}
	return c.JSON(status, ErrorResponse{Code: engine.Code(err), Message: err.Error()})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Code: codeInvalidRequest, Message: msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrSessionNotFound), errors.Is(err, highlight.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrSessionClosed):
		return http.StatusGone
	case errors.Is(err, engine.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, engine.ErrTooManySessions):
		return http.StatusServiceUnavailable
	case errors.Is(err, engine.ErrDocumentTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, engine.ErrEmptyDocument),
		errors.Is(err, dom.ErrNoRoot),
		errors.Is(err, dom.ErrInvalidXPath),
		errors.Is(err, sanitize.ErrInvalidID):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
