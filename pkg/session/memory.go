package session

import (
	"sync"
	"time"
)

// MemoryStore is an in-process Store. Safe for concurrent use.
type MemoryStore struct {
	mu           sync.RWMutex
	creds        Credentials
	identity     *Identity
	lastActivity time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Credentials returns the stored token pair
func (s *MemoryStore) Credentials() (Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds, nil
}

// SetCredentials replaces the token pair
func (s *MemoryStore) SetCredentials(creds Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = creds
	return nil
}

// SetAccessToken replaces only the access token
func (s *MemoryStore) SetAccessToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds.AccessToken = token
	return nil
}

// Identity returns the cached identity
func (s *MemoryStore) Identity() (*Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return nil, nil
	}
	clone := *s.identity
	return &clone, nil
}

// SetIdentity caches the identity
func (s *MemoryStore) SetIdentity(identity *Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if identity == nil {
		s.identity = nil
		return nil
	}
	clone := *identity
	s.identity = &clone
	return nil
}

// LastActivity returns the last recorded activity time
func (s *MemoryStore) LastActivity() (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity, nil
}

// SetLastActivity records user activity
func (s *MemoryStore) SetLastActivity(t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = t
	return nil
}

// Clear removes all session state together
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = Credentials{}
	s.identity = nil
	s.lastActivity = time.Time{}
	return nil
}
