// Package devotp provides an in-memory store of plain registration codes keyed
// by email, used only when dev OTP mode is enabled (GET /dev/auth/otp).
package devotp

import (
	"context"
	"sync"
	"time"
)

// Store holds plain codes by email for dev-only retrieval. Not used in production.
type Store interface {
	// Put stores code for email until expiresAt. Used when issuing a registration challenge in dev mode.
	Put(ctx context.Context, email, code string, expiresAt time.Time)
	// Get returns the code for email if present and not expired. Returns ok false if missing or expired.
	Get(ctx context.Context, email string) (code string, ok bool)
}

type entry struct {
	code      string
	expiresAt time.Time
}

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu   sync.RWMutex
	m    map[string]entry
	nowF func() time.Time
}

// NewMemoryStore returns a new in-memory dev OTP store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:    make(map[string]entry),
		nowF: func() time.Time { return time.Now().UTC() },
	}
}

// Put stores code for email until expiresAt. A resend overwrites the prior code.
func (s *MemoryStore) Put(ctx context.Context, email, code string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[email] = entry{code: code, expiresAt: expiresAt}
}

// Get returns the code for email if present and not expired.
func (s *MemoryStore) Get(ctx context.Context, email string) (string, bool) {
	s.mu.RLock()
	e, ok := s.m[email]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	if !e.expiresAt.After(s.nowF()) {
		s.mu.Lock()
		delete(s.m, email)
		s.mu.Unlock()
		return "", false
	}
	return e.code, true
}
