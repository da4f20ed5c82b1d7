package client

import "sync"

// TokenStore persists the session token pair and the client token between
// requests. Implementations must be safe for concurrent use; the zero
// MemoryTokenStore is the default.
type TokenStore interface {
	Tokens() (access, refresh string)
	SetTokens(access, refresh string)
	ClientToken() string
	SetClientToken(token string)
}

// MemoryTokenStore keeps tokens for the lifetime of the process.
type MemoryTokenStore struct {
	mu          sync.RWMutex
	access      string
	refresh     string
	clientToken string
}

func (s *MemoryTokenStore) Tokens() (string, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access, s.refresh
}

func (s *MemoryTokenStore) SetTokens(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = access
	s.refresh = refresh
}

func (s *MemoryTokenStore) ClientToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clientToken
}

func (s *MemoryTokenStore) SetClientToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clientToken = token
}
