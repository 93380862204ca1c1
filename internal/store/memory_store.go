package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fjod/acp-checkout/domain"
)

const (
	// DefaultSessionTTL is how long an untouched session is kept.
	DefaultSessionTTL = 24 * time.Hour

	// CleanupInterval is how often the background cleanup runs
	CleanupInterval = time.Minute
)

type MemoryOptions struct {
	TTL         time.Duration
	MaxSessions int
}

// MemoryStore keeps sessions for the process lifetime, bounded by TTL and count.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
	ttl      time.Duration
	max      int
	now      func() time.Time

	stopCleanup chan struct{}
	wg          sync.WaitGroup
}

// NewMemoryStore creates a new in-memory session store
func NewMemoryStore(opts MemoryOptions) *MemoryStore {
	if opts.TTL <= 0 {
		opts.TTL = DefaultSessionTTL
	}
	s := &MemoryStore{
		sessions:    make(map[string]*domain.Session),
		ttl:         opts.TTL,
		max:         opts.MaxSessions,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.cleanupLoop()

	return s
}

func (s *MemoryStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.expireSessions()
		case <-s.stopCleanup:
			return
		}
	}
}

// expireSessions drops every session not updated within the TTL
func (s *MemoryStore) expireSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	expired := 0
	for id, session := range s.sessions {
		if session.UpdatedAt.Before(cutoff) {
			delete(s.sessions, id)
			expired++
		}
	}
	return expired
}

// evictOldest must be called with mu held.
func (s *MemoryStore) evictOldest() {
	var oldestID string
	var oldest time.Time
	for id, session := range s.sessions {
		if oldestID == "" || session.UpdatedAt.Before(oldest) {
			oldestID = id
			oldest = session.UpdatedAt
		}
	}
	if oldestID != "" {
		delete(s.sessions, oldestID)
	}
}

func (s *MemoryStore) Create(_ context.Context, initial *domain.Session) (*domain.Session, error) {
	session := newSession(initial, s.now())

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.max > 0 && len(s.sessions) >= s.max {
		s.evictOldest()
	}
	s.sessions[session.ID] = session
	return session.Clone(), nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[id]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return session.Clone(), nil
}

func (s *MemoryStore) Set(_ context.Context, session *domain.Session) error {
	stored := session.Clone()
	stored.UpdatedAt = s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[stored.ID]; !exists && s.max > 0 && len(s.sessions) >= s.max {
		s.evictOldest()
	}
	s.sessions[stored.ID] = stored
	return nil
}

// List returns every session, oldest first.
func (s *MemoryStore) List(_ context.Context) ([]*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		result = append(result, session.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// Close stops the background cleanup and waits for it to finish
func (s *MemoryStore) Close() error {
	close(s.stopCleanup)
	s.wg.Wait()
	return nil
}
