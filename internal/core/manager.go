package core

import "sync"

// Session is one admitted WebSocket connection bound to a room for its
// entire lifetime.
type Session struct {
	ID       string
	RoomID   string
	Username string

	removed bool
}

// Manager owns the set of live sessions and enforces the global capacity
// limit. Admission and removal race with concurrent connects/disconnects,
// so the whole check-then-reserve sequence runs under one mutex.
type Manager struct {
	mu         sync.Mutex
	maxClients int
	sessions   map[*Session]struct{}
}

// NewManager creates a manager that admits at most maxClients concurrent
// sessions.
func NewManager(maxClients int) *Manager {
	return &Manager{
		maxClients: maxClients,
		sessions:   make(map[*Session]struct{}),
	}
}

// TryAdmit atomically reserves a session slot. It returns ErrCapacityExceeded
// when the live count is at the maximum and ErrRoomMismatch when the
// authenticated username does not own the requested room.
func (m *Manager) TryAdmit(id, roomID, username string) (*Session, error) {
	if username != roomID {
		return nil, ErrRoomMismatch
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) >= m.maxClients {
		return nil, ErrCapacityExceeded
	}

	s := &Session{ID: id, RoomID: roomID, Username: username}
	m.sessions[s] = struct{}{}
	return s, nil
}

// Remove releases a session slot. Safe to call more than once for the
// same session.
func (m *Manager) Remove(s *Session) {
	if s == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s.removed {
		return
	}
	s.removed = true
	delete(m.sessions, s)
}

// Live returns the current number of admitted sessions.
func (m *Manager) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
