package server

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/macos-calendar-mcp/internal/instrumentation"
)

// sessionIDPrefix marks IDs issued by this server.
const sessionIDPrefix = "mcp-session-"

// DefaultSessionIdleTimeout expires sessions without requests for this long.
const DefaultSessionIdleTimeout = 30 * time.Minute

// ErrUnknownSession is returned for IDs this server never issued.
var ErrUnknownSession = errors.New("unknown session id")

// sessionInfo tracks session metadata for cleanup
type sessionInfo struct {
	created    time.Time
	lastAccess time.Time
	terminated bool
}

// SessionIDManager is the session registry of the streamable HTTP
// transport. It issues the Mcp-Session-Id values, validates them on every
// request and expires idle sessions. Terminated IDs are remembered for one
// idle period so clients get "terminated" instead of "unknown".
type SessionIDManager struct {
	sessions       map[string]*sessionInfo // Maps session ID to session info
	mu             sync.Mutex
	cleanupTicker  *time.Ticker
	cleanupDone    chan struct{}
	stopOnce       sync.Once
	sessionTimeout time.Duration
	logger         *slog.Logger
	metrics        *instrumentation.Metrics
	now            func() time.Time
}

// NewSessionIDManager creates a session registry. A non-positive timeout
// selects DefaultSessionIdleTimeout. Call Stop to end the cleanup goroutine.
func NewSessionIDManager(timeout time.Duration, logger *slog.Logger, metrics *instrumentation.Metrics) *SessionIDManager {
	if timeout <= 0 {
		timeout = DefaultSessionIdleTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	interval := min(timeout/2, 5*time.Minute)
	m := &SessionIDManager{
		sessions:       make(map[string]*sessionInfo),
		cleanupTicker:  time.NewTicker(max(interval, time.Second)),
		cleanupDone:    make(chan struct{}),
		sessionTimeout: timeout,
		logger:         logger,
		metrics:        metrics,
		now:            time.Now,
	}

	go m.cleanupExpiredSessions()

	return m
}

// Generate issues a new session ID.
func (m *SessionIDManager) Generate() string {
	id := sessionIDPrefix + uuid.New().String()
	now := m.now()

	m.mu.Lock()
	m.sessions[id] = &sessionInfo{created: now, lastAccess: now}
	m.mu.Unlock()

	m.metrics.IncrementActiveSessions(context.Background())
	m.logger.Debug("session created", "session", id)
	return id
}

// Validate reports whether sessionID was terminated or expired. IDs that
// were never issued, or whose record was already dropped, are an error.
// A successful validation refreshes the idle timer.
func (m *SessionIDManager) Validate(sessionID string) (isTerminated bool, err error) {
	if !strings.HasPrefix(sessionID, sessionIDPrefix) {
		return false, ErrUnknownSession
	}
	if _, err := uuid.Parse(strings.TrimPrefix(sessionID, sessionIDPrefix)); err != nil {
		return false, ErrUnknownSession
	}

	m.mu.Lock()
	info, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return false, ErrUnknownSession
	}
	if info.terminated {
		m.mu.Unlock()
		return true, nil
	}
	now := m.now()
	if now.Sub(info.lastAccess) > m.sessionTimeout {
		info.terminated = true
		info.lastAccess = now
		m.mu.Unlock()
		m.metrics.DecrementActiveSessions(context.Background())
		m.logger.Debug("session expired", "session", sessionID)
		return true, nil
	}
	info.lastAccess = now
	m.mu.Unlock()
	return false, nil
}

// Terminate ends sessionID on the client's request. Clients may always
// terminate their own session.
func (m *SessionIDManager) Terminate(sessionID string) (isNotAllowed bool, err error) {
	m.mu.Lock()
	info, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return false, ErrUnknownSession
	}
	wasActive := !info.terminated
	info.terminated = true
	info.lastAccess = m.now()
	m.mu.Unlock()

	if wasActive {
		m.metrics.DecrementActiveSessions(context.Background())
		m.logger.Debug("session terminated", "session", sessionID)
	}
	return false, nil
}

// TerminateAll ends every active session and returns how many there were.
func (m *SessionIDManager) TerminateAll() int {
	m.mu.Lock()
	now := m.now()
	n := 0
	for _, info := range m.sessions {
		if !info.terminated {
			info.terminated = true
			info.lastAccess = now
			n++
		}
	}
	m.mu.Unlock()

	for range n {
		m.metrics.DecrementActiveSessions(context.Background())
	}
	return n
}

// Count returns the number of active sessions.
func (m *SessionIDManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, info := range m.sessions {
		if !info.terminated {
			n++
		}
	}
	return n
}

// expire marks idle sessions terminated and drops records that have been
// terminated for a full idle period.
func (m *SessionIDManager) expire() (expired, dropped int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for id, info := range m.sessions {
		if now.Sub(info.lastAccess) <= m.sessionTimeout {
			continue
		}
		if info.terminated {
			delete(m.sessions, id)
			dropped++
			continue
		}
		info.terminated = true
		info.lastAccess = now
		expired++
	}
	return expired, dropped
}

// cleanupExpiredSessions periodically expires idle sessions
func (m *SessionIDManager) cleanupExpiredSessions() {
	for {
		select {
		case <-m.cleanupTicker.C:
			expired, _ := m.expire()
			for range expired {
				m.metrics.DecrementActiveSessions(context.Background())
			}
			if expired > 0 {
				m.logger.Info("expired idle sessions", "count", expired)
			}
		case <-m.cleanupDone:
			return
		}
	}
}

// Stop stops the session cleanup goroutine. It is safe to call more than once.
func (m *SessionIDManager) Stop() {
	m.stopOnce.Do(func() {
		m.cleanupTicker.Stop()
		close(m.cleanupDone)
	})
}
