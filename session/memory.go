package session

import (
	"bytes"
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used by tests and the "memory" driver.
// Entries expire lazily on access.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	clock   func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		clock:   time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (s *MemoryStore) SetClock(clock func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = clock
}

// live returns the entry at key if present and not expired, pruning expired
// entries as it goes. Callers must hold the mutex.
func (s *MemoryStore) live(key string) ([]byte, bool) {
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && s.clock().After(e.expiresAt) {
		delete(s.entries, key)
		return nil, false
	}
	return e.value, true
}

func (s *MemoryStore) put(key string, value []byte, ttl time.Duration) {
	var exp time.Time
	if ttl > 0 {
		exp = s.clock().Add(ttl)
	}
	s.entries[key] = memoryEntry{value: append([]byte(nil), value...), expiresAt: exp}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.live(key)
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (s *MemoryStore) SetEx(_ context.Context, key string, ttl time.Duration, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(key, value, ttl)
	return nil
}

func (s *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.live(key)
	return ok, nil
}

func (s *MemoryStore) TryAcquireLock(_ context.Context, lockKey, holderToken string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.live(lockKey); held {
		return false, nil
	}
	s.put(lockKey, []byte(holderToken), ttl)
	return true, nil
}

func (s *MemoryStore) ReleaseLock(_ context.Context, lockKey, holderToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.live(lockKey); ok && string(v) == holderToken {
		delete(s.entries, lockKey)
	}
	return nil
}

func (s *MemoryStore) CASUpdate(_ context.Context, key string, expected, newValue []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.live(key)
	if !ok {
		if len(expected) != 0 {
			return false, nil
		}
	} else if !bytes.Equal(cur, expected) {
		return false, nil
	}
	s.put(key, newValue, ttl)
	return true, nil
}

var _ Store = (*MemoryStore)(nil)
