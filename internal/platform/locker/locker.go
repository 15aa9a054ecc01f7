// Package locker provides the keyed-lock table used by the pessimistic
// locking strategy. Locks live outside the account records so that
// persistence identity never carries runtime synchronization state.
package locker

import (
	"context"
	"errors"

	"github.com/mar0580/teste-sistema-bancario/internal/core/domain"
)

// ErrEmptyKey is returned when a lock key is blank.
var ErrEmptyKey = errors.New("lock key cannot be empty")

// Locker grants exclusive access to a set of keys.
type Locker interface {
	// Acquire blocks until every key is held or ctx is done.
	// Keys are taken in domain.LockOrder so that overlapping callers cannot deadlock.
	// The returned release function frees all keys and is safe to call once.
	Acquire(ctx context.Context, keys ...string) (release func(), err error)
}

// orderedKeys validates keys and puts them in acquisition order.
func orderedKeys(keys []string) ([]string, error) {
	for _, k := range keys {
		if k == "" {
			return nil, ErrEmptyKey
		}
	}
	return domain.LockOrder(keys...), nil
}
