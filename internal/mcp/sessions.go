package mcp

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (s *Server) sessionTTL() time.Duration {
	if ttl := s.cfg.SessionTTL(); ttl > 0 {
		return ttl
	}
	return defaultSessionTTL
}

// sessionSweepInterval is half the session TTL, clamped to [1s, 30m].
func (s *Server) sessionSweepInterval() time.Duration {
	interval := s.sessionTTL() / 2
	if interval > sessionCleanupInterval {
		interval = sessionCleanupInterval
	}
	if interval < time.Second {
		interval = time.Second
	}
	return interval
}

func (s *Server) createSession() string {
	id := uuid.NewString()
	s.sessionMu.Lock()
	s.sessions[id] = s.now()
	s.sessionMu.Unlock()
	return id
}

// touchSession marks a session as active. Expired sessions are removed and
// reported as unknown.
func (s *Server) touchSession(id string) bool {
	now := s.now()
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	lastSeen, ok := s.sessions[id]
	if !ok {
		return false
	}
	if now.Sub(lastSeen) > s.sessionTTL() {
		delete(s.sessions, id)
		return false
	}
	s.sessions[id] = now
	return true
}

func (s *Server) deleteSession(id string) bool {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

func (s *Server) sweepSessions() int {
	now := s.now()
	ttl := s.sessionTTL()
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	removed := 0
	for id, lastSeen := range s.sessions {
		if now.Sub(lastSeen) > ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

func (s *Server) runSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.sessionSweepInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sweepSessions(); n > 0 {
				s.logger.Debug("expired sessions removed", zap.Int("count", n))
			}
			s.limiter.cleanup(s.sessionSweepInterval() * 2)
		}
	}
}
