package application

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/trailview/service-routes/internal/domain/route"
	"github.com/trailview/service-routes/internal/metrics"
	"github.com/trailview/service-routes/internal/platform/apperror"
	"github.com/trailview/service-routes/internal/presentation"
)

// SessionHandle bundles a session with its presentation sinks.
type SessionHandle struct {
	Session  *BrowseSession
	Recorder *presentation.Recorder
	Hub      *presentation.Hub
}

// SessionService creates, looks up and closes browse sessions.
type SessionService struct {
	catalog  *Catalog
	source   route.Source
	profiles ProfileProvider
	events   EventSink
	cfg      SessionConfig
	logger   *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*SessionHandle
}

// NewSessionService creates a SessionService. events may be nil.
func NewSessionService(
	catalog *Catalog,
	source route.Source,
	profiles ProfileProvider,
	events EventSink,
	cfg SessionConfig,
	logger *zap.Logger,
) *SessionService {
	return &SessionService{
		catalog:  catalog,
		source:   source,
		profiles: profiles,
		events:   events,
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*SessionHandle),
	}
}

// Create opens a session over the current catalog snapshot.
func (s *SessionService) Create(lang string) *SessionHandle {
	id := uuid.New().String()
	recorder := presentation.NewRecorder()
	hub := presentation.NewHub(s.logger.With(zap.String("session_id", id)))

	session := NewBrowseSession(id, s.catalog.Snapshot(), s.source, s.profiles,
		presentation.Tee{recorder, hub}, lang, s.cfg, s.logger)
	if s.events != nil {
		session.Observers().Forward(s.events)
	}

	handle := &SessionHandle{Session: session, Recorder: recorder, Hub: hub}
	s.mu.Lock()
	s.sessions[id] = handle
	s.mu.Unlock()

	metrics.SessionsActive.Inc()
	s.logger.Info("browse session opened", zap.String("session_id", id))
	return handle
}

// Get returns an open session.
func (s *SessionService) Get(id string) (*SessionHandle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.sessions[id]
	if !ok {
		return nil, apperror.NewNotFoundError("session", id)
	}
	return h, nil
}

// Close closes a session and disconnects its clients.
func (s *SessionService) Close(id string) error {
	s.mu.Lock()
	h, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return apperror.NewNotFoundError("session", id)
	}

	h.Session.Close()
	h.Hub.Close()
	metrics.SessionsActive.Dec()
	s.logger.Info("browse session closed", zap.String("session_id", id))
	return nil
}

// Count returns the number of open sessions.
func (s *SessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// CloseIdle closes sessions inactive for longer than maxIdle and returns how many.
func (s *SessionService) CloseIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	s.mu.RLock()
	var idle []string
	for id, h := range s.sessions {
		if h.Session.LastActive().Before(cutoff) && h.Hub.Clients() == 0 {
			idle = append(idle, id)
		}
	}
	s.mu.RUnlock()

	closed := 0
	for _, id := range idle {
		if s.Close(id) == nil {
			closed++
		}
	}
	return closed
}

// RunReaper closes idle sessions every interval until ctx is done.
func (s *SessionService) RunReaper(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.CloseIdle(maxIdle); n > 0 {
				s.logger.Info("closed idle sessions", zap.Int("count", n))
			}
		}
	}
}

// CloseAll closes every session.
func (s *SessionService) CloseAll() {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	for _, id := range ids {
		_ = s.Close(id)
	}
}
