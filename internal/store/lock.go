package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultLockTTL bounds how long a crashed holder can block new runs.
const DefaultLockTTL = 30 * time.Minute

var (
	// ErrLockNotAcquired is returned when the flag is already set by someone else.
	ErrLockNotAcquired = errors.New("lock not acquired")
	// ErrLockNotHeld is returned when releasing a flag this holder does not own.
	ErrLockNotHeld = errors.New("lock not held")
)

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Lock is a persisted, non-blocking mutual-exclusion flag. Each Lock carries
// a unique token so only the holder that set the flag can clear it.
type Lock struct {
	store *Store
	key   string
	token string
	ttl   time.Duration
}

// NewLock returns a Lock on key. A non-positive ttl uses DefaultLockTTL.
func (s *Store) NewLock(key string, ttl time.Duration) *Lock {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &Lock{
		store: s,
		key:   key,
		token: uuid.NewString(),
		ttl:   ttl,
	}
}

// TryLock sets the flag if it is clear and returns ErrLockNotAcquired otherwise.
func (l *Lock) TryLock(ctx context.Context) error {
	ok, err := l.store.client.SetNX(ctx, l.store.key(l.key), l.token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if !ok {
		return ErrLockNotAcquired
	}
	return nil
}

// Unlock clears the flag if this Lock set it.
func (l *Lock) Unlock(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, l.store.client, []string{l.store.key(l.key)}, l.token).Int()
	if err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// Held reports whether any holder currently has the flag set.
func (l *Lock) Held(ctx context.Context) (bool, error) {
	n, err := l.store.client.Exists(ctx, l.store.key(l.key)).Result()
	if err != nil {
		return false, fmt.Errorf("check %s: %w", l.key, err)
	}
	return n == 1, nil
}
