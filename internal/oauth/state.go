package oauth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"time"
)

// stateStore holds the anti-forgery states of in-flight login attempts.
// A state is single-use: Consume removes it on first lookup no matter the
// outcome, and concurrent consumers of the same state see exactly one win.
type stateStore struct {
	mu      sync.Mutex
	pending map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

func newStateStore(ttl time.Duration) *stateStore {
	return &stateStore{
		pending: make(map[string]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Issue generates a random state, records it, and sweeps out expired
// entries so abandoned login attempts do not accumulate.
func (s *stateStore) Issue() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	state := base64.RawURLEncoding.EncodeToString(raw)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for pending, issuedAt := range s.pending {
		if now.Sub(issuedAt) > s.ttl {
			delete(s.pending, pending)
		}
	}
	s.pending[state] = now

	return state, nil
}

// Consume removes the state and reports whether it was known and still
// within its validity window. Expired and unknown states are
// indistinguishable to the caller.
func (s *stateStore) Consume(state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	issuedAt, ok := s.pending[state]
	if !ok {
		return false
	}
	delete(s.pending, state)

	return s.now().Sub(issuedAt) <= s.ttl
}
