package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps transcripts and terms acceptance in process memory.
// Sessions idle for longer than ttl are dropped; ttl <= 0 keeps them forever.
type MemoryStore struct {
	mu          sync.RWMutex
	sessions    map[string][]Message
	nextID      map[string]int64
	maxMessages int
	// Session -> time the terms were accepted
	accepted map[string]time.Time
	// Session -> last write, drives expiry
	touched   map[string]time.Time
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewMemoryStore(maxMessages int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions:    make(map[string][]Message),
		nextID:      make(map[string]int64),
		maxMessages: maxMessages,
		accepted:    make(map[string]time.Time),
		touched:     make(map[string]time.Time),
		ttl:         ttl,
		now:         time.Now,
	}
}

func (m *MemoryStore) Append(_ context.Context, sessionID string, msgs ...Message) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touchLocked(sessionID)
	return m.appendLocked(sessionID, msgs), nil
}

// Seed appends msg only when the session has no transcript, then returns the transcript.
func (m *MemoryStore) Seed(_ context.Context, sessionID string, msg Message) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touchLocked(sessionID)
	if len(m.sessions[sessionID]) == 0 {
		m.appendLocked(sessionID, []Message{msg})
	}
	return copyMessages(m.sessions[sessionID]), nil
}

func (m *MemoryStore) Get(_ context.Context, sessionID string) ([]Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.expiredLocked(sessionID) {
		return []Message{}, nil
	}
	return copyMessages(m.sessions[sessionID]), nil
}

// Clear drops the transcript; IDs restart at 0.
func (m *MemoryStore) Clear(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	delete(m.nextID, sessionID)
	return nil
}

func (m *MemoryStore) appendLocked(sessionID string, msgs []Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, msg := range msgs {
		msg.ID = m.nextID[sessionID]
		m.nextID[sessionID]++
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = m.now()
		}
		msg.QuickReplies = append([]string(nil), msg.QuickReplies...)
		m.sessions[sessionID] = append(m.sessions[sessionID], msg)
		out = append(out, msg)
	}
	m.trimLocked(sessionID)
	return copyMessages(out)
}

func (m *MemoryStore) trimLocked(sessionID string) {
	if m.maxMessages <= 0 {
		return
	}
	msgs := m.sessions[sessionID]
	if len(msgs) > m.maxMessages {
		m.sessions[sessionID] = msgs[len(msgs)-m.maxMessages:]
	}
}

func copyMessages(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	for i, msg := range msgs {
		msg.QuickReplies = append([]string(nil), msg.QuickReplies...)
		out[i] = msg
	}
	return out
}

// Expiry

func (m *MemoryStore) expiredLocked(sessionID string) bool {
	if m.ttl <= 0 {
		return false
	}
	t, ok := m.touched[sessionID]
	return ok && m.now().Sub(t) > m.ttl
}

// touchLocked drops the session if it already expired, sweeps other idle
// sessions at most once per ttl, and marks the session as used.
func (m *MemoryStore) touchLocked(sessionID string) {
	if m.expiredLocked(sessionID) {
		m.dropLocked(sessionID)
	}
	now := m.now()
	if m.ttl > 0 && now.Sub(m.lastSweep) >= m.ttl {
		for sid, t := range m.touched {
			if now.Sub(t) > m.ttl {
				m.dropLocked(sid)
			}
		}
		m.lastSweep = now
	}
	m.touched[sessionID] = now
}

func (m *MemoryStore) dropLocked(sessionID string) {
	delete(m.sessions, sessionID)
	delete(m.nextID, sessionID)
	delete(m.accepted, sessionID)
	delete(m.touched, sessionID)
}

// Len reports how many sessions are held, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.touched)
}

// Terms helpers

func (m *MemoryStore) HasAccepted(_ context.Context, sessionID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.expiredLocked(sessionID) {
		return false, nil
	}
	_, ok := m.accepted[sessionID]
	return ok, nil
}

func (m *MemoryStore) Accept(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touchLocked(sessionID)
	m.accepted[sessionID] = m.now()
	return nil
}

func (m *MemoryStore) Revoke(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.accepted, sessionID)
	return nil
}
