package session

import (
	"context"
	"errors"
	"time"
)

// ErrCASConflict reports that a compare-and-set failed because the stored
// value no longer matched, or that a transport failure made the outcome
// unknowable. Callers treat it as a retryable conflict.
var ErrCASConflict = errors.New("session: compare-and-set conflict")

// Store is the key/value interface the core persists through. All operations
// are atomic with respect to each other.
type Store interface {
	// Get returns the value stored at key, or nil when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// SetEx unconditionally stores value at key with the given TTL.
	SetEx(ctx context.Context, key string, ttl time.Duration, value []byte) error

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// TryAcquireLock sets lockKey to holderToken with the given TTL if the
	// key is absent. Returns true when the lock was acquired.
	TryAcquireLock(ctx context.Context, lockKey, holderToken string, ttl time.Duration) (bool, error)

	// ReleaseLock deletes lockKey only while it still holds holderToken, so
	// a late owner cannot drop a successor's lock.
	ReleaseLock(ctx context.Context, lockKey, holderToken string) error

	// CASUpdate atomically replaces the value at key with newValue if the
	// stored value equals expected. An empty expected matches an absent key.
	// Returns true on success, false when the stored value differed.
	CASUpdate(ctx context.Context, key string, expected, newValue []byte, ttl time.Duration) (bool, error)
}
