package services

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wearedev-studio/skillgame-app-sub001/internal/models"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/utils"
)

var (
	// ErrSessionViolation signals an owner mismatch: the session exists but
	// belongs to a different user. Treated as a hijacking signal and
	// escalated, unlike ordinary auth failures.
	ErrSessionViolation = errors.New("session ownership violation")
	// ErrSessionExpired signals the idle window was exceeded or the session
	// ID was revoked earlier. Terminal: the ID is never reused.
	ErrSessionExpired = errors.New("session expired")
)

// SessionService maps session identifiers to their owners and detects
// hijacked or idle sessions.
type SessionService interface {
	// TouchOrCreate resolves the state machine for one request: absent or
	// first-seen IDs create an Active session, known IDs are validated for
	// ownership and idle time and refreshed.
	TouchOrCreate(sessionID, userID, ip, userAgent string) (string, error)
	Get(sessionID string) (*models.Session, bool)
	Invalidate(sessionID string)
	// List enumerates all live sessions, most recently active first left to
	// the caller.
	List() []models.Session
	// RevokeAllForUser force-expires every session owned by userID and
	// returns how many were dropped ("log out everywhere").
	RevokeAllForUser(userID string) int
	// Sweep deletes sessions idle past the threshold independent of
	// traffic, so abandoned sessions are reclaimed without a further touch.
	Sweep() int
}

type sessionService struct {
	idleTimeout time.Duration

	mu       sync.RWMutex
	sessions map[string]*models.Session
	// revokedAt remembers terminated session IDs so they are never reused;
	// entries are dropped by Sweep once older than the token lifetime.
	revokedAt  map[string]time.Time
	revokedTTL time.Duration

	now func() time.Time
}

func NewSessionService(idleTimeout, revokedTTL time.Duration) SessionService {
	return &sessionService{
		idleTimeout: idleTimeout,
		sessions:    make(map[string]*models.Session),
		revokedAt:   make(map[string]time.Time),
		revokedTTL:  revokedTTL,
		now:         time.Now,
	}
}

func (s *sessionService) TouchOrCreate(sessionID, userID, ip, userAgent string) (string, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	if _, revoked := s.revokedAt[sessionID]; revoked {
		return "", ErrSessionExpired
	}

	sess, ok := s.sessions[sessionID]
	if !ok {
		s.sessions[sessionID] = &models.Session{
			SessionID:      sessionID,
			UserID:         userID,
			OriginIP:       ip,
			UserAgent:      userAgent,
			CreatedAt:      now,
			LastActivityAt: now,
		}
		return sessionID, nil
	}

	if sess.UserID != userID {
		s.revokeLocked(sessionID, now)
		return "", ErrSessionViolation
	}

	if sess.IdleFor(now) > s.idleTimeout {
		s.revokeLocked(sessionID, now)
		return "", ErrSessionExpired
	}

	sess.LastActivityAt = now
	return sessionID, nil
}

func (s *sessionService) revokeLocked(sessionID string, now time.Time) {
	delete(s.sessions, sessionID)
	s.revokedAt[sessionID] = now
}

func (s *sessionService) Get(sessionID string) (*models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, false
	}
	copied := *sess
	return &copied, true
}

func (s *sessionService) Invalidate(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revokeLocked(sessionID, s.now())
}

func (s *sessionService) List() []models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, *sess)
	}
	return out
}

func (s *sessionService) RevokeAllForUser(userID string) int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := 0
	for id, sess := range s.sessions {
		if sess.UserID == userID {
			s.revokeLocked(id, now)
			dropped++
		}
	}
	return dropped
}

func (s *sessionService) Sweep() int {
	now := s.now()

	// Snapshot the idle IDs under a read lock, then delete per key, so the
	// scan never holds the write lock against in-flight requests.
	s.mu.RLock()
	var idle []string
	for id, sess := range s.sessions {
		if sess.IdleFor(now) > s.idleTimeout {
			idle = append(idle, id)
		}
	}
	var staleRevoked []string
	for id, at := range s.revokedAt {
		if now.Sub(at) > s.revokedTTL {
			staleRevoked = append(staleRevoked, id)
		}
	}
	s.mu.RUnlock()

	removed := 0
	for _, id := range idle {
		s.mu.Lock()
		if sess, ok := s.sessions[id]; ok && sess.IdleFor(now) > s.idleTimeout {
			s.revokeLocked(id, now)
			removed++
		}
		s.mu.Unlock()
	}
	for _, id := range staleRevoked {
		s.mu.Lock()
		delete(s.revokedAt, id)
		s.mu.Unlock()
	}

	if removed > 0 {
		utils.Logger.Infof("Session sweep reclaimed %d idle session(s)", removed)
	}
	return removed
}
