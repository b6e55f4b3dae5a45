package exam

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Store keeps sessions between requests. Put refreshes the TTL and is a
// compare-and-set on Version: it fails with ErrConcurrentUpdate when the stored
// version is not s.Version, and advances s.Version when it succeeds. A session
// that is not stored counts as version 0.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

const DefaultSessionTTL = 2 * time.Hour

// MemoryStore keeps encoded sessions in process memory. Sessions are copied on
// the way in and out, so callers never share state through the store.
type MemoryStore struct {
	mu        sync.RWMutex
	sessions  map[string][]byte
	versions  map[string]int64
	expiresAt map[string]time.Time
	ttl       time.Duration
	now       func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions:  make(map[string][]byte),
		versions:  make(map[string]int64),
		expiresAt: make(map[string]time.Time),
		ttl:       ttl,
		now:       time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	raw, ok := m.sessions[id]
	live := ok && !m.expiredLocked(id, m.now())
	m.mu.RUnlock()
	if !live {
		return nil, ErrSessionNotFound
	}
	return decodeSession(raw)
}

func (m *MemoryStore) Put(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var stored int64
	if _, ok := m.sessions[s.ID]; ok && !m.expiredLocked(s.ID, now) {
		stored = m.versions[s.ID]
	}
	if stored != s.Version {
		return fmt.Errorf("put session %s: %w", s.ID, ErrConcurrentUpdate)
	}

	s.Version = stored + 1
	raw, err := json.Marshal(s)
	if err != nil {
		s.Version = stored
		return fmt.Errorf("encode session: %w", err)
	}
	m.sessions[s.ID] = raw
	m.versions[s.ID] = s.Version
	if m.ttl > 0 {
		m.expiresAt[s.ID] = now.Add(m.ttl)
	}
	return nil
}

func (m *MemoryStore) expiredLocked(id string, now time.Time) bool {
	exp, ok := m.expiresAt[id]
	return m.ttl > 0 && ok && now.After(exp)
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	delete(m.versions, id)
	delete(m.expiresAt, id)
	return nil
}

// Len returns the number of stored sessions, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CleanupExpired drops every session past its TTL and returns how many went.
func (m *MemoryStore) CleanupExpired() int {
	if m.ttl == 0 {
		return 0
	}
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, exp := range m.expiresAt {
		if now.After(exp) {
			delete(m.sessions, id)
			delete(m.versions, id)
			delete(m.expiresAt, id)
			removed++
		}
	}
	return removed
}

// RunJanitor calls CleanupExpired every interval until ctx is done.
func (m *MemoryStore) RunJanitor(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			m.CleanupExpired()
		}
	}
}

func decodeSession(raw []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}
