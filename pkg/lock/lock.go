// Package lock provides per-entity locking so two dispatcher instances do not
// evaluate the same rule against the same entity at the same time. The ledger
// claim stays authoritative; the lock only cuts down wasted duplicate work.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrLockHeld indicates another holder currently owns the entity lock.
var ErrLockHeld = errors.New("entity lock held")

// Lease is an acquired lock that must be released when the work is done.
type Lease interface {
	Release(ctx context.Context) error
}

// EntityLock serializes work on a (rule, entity) pair.
type EntityLock interface {
	// Acquire takes the lock or returns ErrLockHeld without waiting. The lock
	// expires on its own after ttl in case the holder dies.
	Acquire(ctx context.Context, ruleID, entityID string, ttl time.Duration) (Lease, error)
}
