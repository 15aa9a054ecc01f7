package locker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredislib "github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when a distributed lock stays busy for every try.
var ErrNotAcquired = errors.New("lock not acquired")

const unlockTimeout = 2 * time.Second

// RedisOptions configures the distributed lock table.
type RedisOptions struct {
	// Prefix is prepended to every key, e.g. "ledger:lock:account:".
	Prefix string
	// Expiry bounds how long a crashed holder can keep a key.
	Expiry time.Duration
	// Tries is the number of acquisition attempts per key.
	Tries int
	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration
}

// DefaultRedisOptions returns defaults tuned for short ledger operations.
func DefaultRedisOptions() RedisOptions {
	return RedisOptions{
		Prefix:     "ledger:lock:account:",
		Expiry:     10 * time.Second,
		Tries:      100,
		RetryDelay: 20 * time.Millisecond,
	}
}

// RedisLocker is a lock table shared by every instance pointing at the same Redis,
// built on the redsync implementation of RedLock.
type RedisLocker struct {
	rs   *redsync.Redsync
	opts RedisOptions
}

var _ Locker = (*RedisLocker)(nil)

// NewRedisLocker creates a distributed lock table over client.
func NewRedisLocker(client goredislib.UniversalClient, opts RedisOptions) (*RedisLocker, error) {
	if client == nil {
		return nil, errors.New("redis client is nil")
	}
	if opts.Expiry <= 0 {
		return nil, errors.New("lock expiry must be greater than 0")
	}
	if opts.Tries < 1 {
		return nil, errors.New("lock tries must be at least 1")
	}
	return &RedisLocker{
		rs:   redsync.New(goredis.NewPool(client)),
		opts: opts,
	}, nil
}

// Acquire implements Locker.
func (l *RedisLocker) Acquire(ctx context.Context, keys ...string) (func(), error) {
	ordered, err := orderedKeys(keys)
	if err != nil {
		return nil, err
	}

	held := make([]*redsync.Mutex, 0, len(ordered))
	for _, key := range ordered {
		m := l.rs.NewMutex(l.opts.Prefix+key,
			redsync.WithExpiry(l.opts.Expiry),
			redsync.WithTries(l.opts.Tries),
			redsync.WithRetryDelay(l.opts.RetryDelay),
		)
		if err := m.LockContext(ctx); err != nil {
			unlockAll(held)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("%w: %s: %v", ErrNotAcquired, key, err)
		}
		held = append(held, m)
	}

	var once sync.Once
	return func() { once.Do(func() { unlockAll(held) }) }, nil
}

// unlockAll releases in reverse order. A failed unlock only means the key
// expired first; it is logged and otherwise ignored.
func unlockAll(mutexes []*redsync.Mutex) {
	ctx, cancel := context.WithTimeout(context.Background(), unlockTimeout)
	defer cancel()

	for i := len(mutexes) - 1; i >= 0; i-- {
		if ok, err := mutexes[i].UnlockContext(ctx); err != nil || !ok {
			attrs := []any{slog.String("lock", mutexes[i].Name())}
			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
			}
			slog.WarnContext(ctx, "Distributed lock was not held at release", attrs...)
		}
	}
}
