package engine

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/clausemark/internal/dom"
)

// Store holds the open document sessions.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	cfg      StoreConfig
	engine   Config
	opts     []SessionOption
	metrics  *Metrics
	logger   *Logger
}

// NewStore creates a store whose sessions are built with engine settings
// and opts.
func NewStore(cfg StoreConfig, engine Config, opts ...SessionOption) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := engine.Validate(); err != nil {
		return nil, err
	}
	var o sessionOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Store{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		engine:   engine,
		opts:     opts,
		metrics:  o.metrics,
		logger:   NewLogger(o.logger),
	}, nil
}

// Open parses the HTML in r and opens a session on it. rootXPath overrides
// the configured content root when non-empty.
func (s *Store) Open(ctx context.Context, r io.Reader, rootXPath string) (*Session, error) {
	if s.Len() >= s.cfg.MaxSessions {
		return nil, ErrTooManySessions
	}

	lr := &io.LimitedReader{R: r, N: s.cfg.MaxDocumentBytes + 1}
	var sb strings.Builder
	if _, err := io.Copy(&sb, lr); err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	if int64(sb.Len()) > s.cfg.MaxDocumentBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrDocumentTooLarge, s.cfg.MaxDocumentBytes)
	}
	if strings.TrimSpace(sb.String()) == "" {
		return nil, ErrEmptyDocument
	}
	doc, err := dom.ParseString(sb.String())
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}

	cfg := s.engine
	if rootXPath != "" {
		cfg.RootXPath = rootXPath
	}
	opts := append([]SessionOption{withID(newSessionID())}, s.opts...)
	if s.cfg.RateLimit > 0 {
		opts = append(opts, WithLimiter(rate.NewLimiter(rate.Limit(s.cfg.RateLimit), s.cfg.RateBurst)))
	}
	sess, err := NewSession(doc, cfg, opts...)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if len(s.sessions) >= s.cfg.MaxSessions {
		s.mu.Unlock()
		sess.Close(ctx)
		return nil, ErrTooManySessions
	}
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.metrics.RecordSessionOpened(ctx)
	s.logger.SessionOpened(ctx, sess)
	return sess, nil
}

// Get returns the session with the given ID.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Close closes and forgets a session.
func (s *Store) Close(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	sess.Close(ctx)
	s.metrics.RecordSessionClosed(ctx)
	s.logger.SessionClosed(ctx, id)
	return nil
}

// CloseAll closes every session.
func (s *Store) CloseAll(ctx context.Context) {
	for _, id := range s.IDs() {
		_ = s.Close(ctx, id)
	}
}

// IDs lists the open session IDs in sorted order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of open sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func newSessionID() string {
	return "sess_" + uuid.New().String()
}
