package server

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestSessionManager(t *testing.T, timeout time.Duration) (*SessionIDManager, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)}
	m := NewSessionIDManager(timeout, nil, nil)
	m.now = clock.Now
	t.Cleanup(m.Stop)
	return m, clock
}

func TestSessionIDManager_GenerateIsUnique(t *testing.T) {
	m, _ := newTestSessionManager(t, time.Minute)

	seen := make(map[string]bool)
	for range 100 {
		id := m.Generate()
		assert.True(t, strings.HasPrefix(id, sessionIDPrefix))
		assert.False(t, seen[id], "duplicate session id %s", id)
		seen[id] = true
	}
	assert.Equal(t, 100, m.Count())
}

func TestSessionIDManager_Validate(t *testing.T) {
	m, _ := newTestSessionManager(t, time.Minute)
	id := m.Generate()

	terminated, err := m.Validate(id)
	require.NoError(t, err)
	assert.False(t, terminated)

	for _, bad := range []string{"", "abc", sessionIDPrefix + "not-a-uuid", sessionIDPrefix + "6f1c1f46-5d7d-4a8e-9d0e-0c4f9b1e2a3b"} {
		_, err := m.Validate(bad)
		assert.ErrorIs(t, err, ErrUnknownSession, bad)
	}
}

func TestSessionIDManager_Terminate(t *testing.T) {
	m, _ := newTestSessionManager(t, time.Minute)
	id := m.Generate()

	notAllowed, err := m.Terminate(id)
	require.NoError(t, err)
	assert.False(t, notAllowed)
	assert.Zero(t, m.Count())

	terminated, err := m.Validate(id)
	require.NoError(t, err)
	assert.True(t, terminated)

	// Terminating twice is harmless.
	_, err = m.Terminate(id)
	assert.NoError(t, err)

	_, err = m.Terminate(sessionIDPrefix + "unknown")
	assert.ErrorIs(t, err, ErrUnknownSession)
}

func TestSessionIDManager_IdleExpiry(t *testing.T) {
	m, clock := newTestSessionManager(t, 10*time.Minute)
	idle := m.Generate()
	busy := m.Generate()

	clock.Advance(6 * time.Minute)
	_, err := m.Validate(busy)
	require.NoError(t, err)

	clock.Advance(6 * time.Minute)

	terminated, err := m.Validate(idle)
	require.NoError(t, err)
	assert.True(t, terminated, "idle session must expire")

	terminated, err = m.Validate(busy)
	require.NoError(t, err)
	assert.False(t, terminated, "validation refreshes the idle timer")
	assert.Equal(t, 1, m.Count())
}

func TestSessionIDManager_ExpireDropsOldRecords(t *testing.T) {
	m, clock := newTestSessionManager(t, time.Minute)
	id := m.Generate()

	clock.Advance(2 * time.Minute)
	expired, dropped := m.expire()
	assert.Equal(t, 1, expired)
	assert.Zero(t, dropped)

	terminated, err := m.Validate(id)
	require.NoError(t, err)
	assert.True(t, terminated)

	clock.Advance(2 * time.Minute)
	expired, dropped = m.expire()
	assert.Zero(t, expired)
	assert.Equal(t, 1, dropped)

	_, err = m.Validate(id)
	assert.ErrorIs(t, err, ErrUnknownSession)
}

func TestSessionIDManager_TerminateAll(t *testing.T) {
	m, _ := newTestSessionManager(t, time.Minute)
	a := m.Generate()
	m.Generate()
	m.Generate()
	_, _ = m.Terminate(a)

	assert.Equal(t, 2, m.TerminateAll())
	assert.Zero(t, m.Count())
	assert.Zero(t, m.TerminateAll())
}

func TestSessionIDManager_ConcurrentUse(t *testing.T) {
	m, _ := newTestSessionManager(t, time.Minute)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := m.Generate()
			_, _ = m.Validate(id)
			_, _ = m.Terminate(id)
		}()
	}
	wg.Wait()

	assert.Zero(t, m.Count())
}

func TestSessionIDManager_StopTwice(t *testing.T) {
	m := NewSessionIDManager(0, nil, nil)
	assert.Equal(t, DefaultSessionIdleTimeout, m.sessionTimeout)
	m.Stop()
	m.Stop()
}
