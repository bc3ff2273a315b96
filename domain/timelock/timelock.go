// Package timelock implements the two-phase lock/cooldown guard that
// bounds when the reward step may run. Time is an externally supplied
// monotonic block counter; nothing here schedules callbacks.
package timelock

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyLocked is returned by Lock while a lock window is active.
	ErrAlreadyLocked = errors.New("already locked")

	// ErrCooldownActive is returned by Lock during the cooldown window
	// following the previous unlock.
	ErrCooldownActive = errors.New("cooldown active")

	// ErrNotLocked is returned by callers that require an active lock
	// window (the reward step).
	ErrNotLocked = errors.New("not locked")
)

// Guard tracks the lock window and the cooldown window that follows it.
// The lock window gives the entropy-revealing process a bounded,
// front-run-resistant interval; the cooldown prevents rapid re-locking
// from biasing timing-dependent yield snapshots.
type Guard struct {
	lockDuration     int64
	cooldownDuration int64

	lockedAt       int64
	locked         bool
	lastUnlockedAt int64
	hasUnlocked    bool
}

// New creates a guard with the given window lengths in blocks.
func New(lockDurationBlocks, cooldownDurationBlocks int64) (*Guard, error) {
	if lockDurationBlocks <= 0 {
		return nil, fmt.Errorf("lock duration must be positive, got %d", lockDurationBlocks)
	}
	if cooldownDurationBlocks < 0 {
		return nil, fmt.Errorf("cooldown duration must be non-negative, got %d", cooldownDurationBlocks)
	}
	return &Guard{
		lockDuration:     lockDurationBlocks,
		cooldownDuration: cooldownDurationBlocks,
	}, nil
}

// IsLocked reports whether the lock window is active at now.
func (g *Guard) IsLocked(now int64) bool {
	return g.locked && now < g.lockedAt+g.lockDuration
}

// CanLock reports whether Lock would succeed at now.
func (g *Guard) CanLock(now int64) bool {
	return g.canLock(now)
}

func (g *Guard) canLock(now int64) bool {
	if g.IsLocked(now) {
		return false
	}
	return now >= g.effectiveUnlockedAt()+g.cooldownDuration
}

// effectiveUnlockedAt returns the block the cooldown is measured from.
// A lock that expired without an explicit Unlock counts as having
// unlocked at the end of its window.
func (g *Guard) effectiveUnlockedAt() int64 {
	if g.locked {
		// Expired but never explicitly unlocked.
		return g.lockedAt + g.lockDuration
	}
	if !g.hasUnlocked {
		// Never locked: no cooldown applies.
		return -g.cooldownDuration
	}
	return g.lastUnlockedAt
}

// Lock starts a lock window at now.
func (g *Guard) Lock(now int64) error {
	if g.IsLocked(now) {
		return ErrAlreadyLocked
	}
	if g.locked {
		// Previous window elapsed without Unlock; settle it first so the
		// cooldown is measured from its expiry.
		g.lastUnlockedAt = g.lockedAt + g.lockDuration
		g.hasUnlocked = true
		g.locked = false
	}
	if !g.canLock(now) {
		return ErrCooldownActive
	}
	g.lockedAt = now
	g.locked = true
	return nil
}

// Unlock ends the lock window, starting the cooldown. Calling it while
// already unlocked is a no-op and does not reset the cooldown timer.
func (g *Guard) Unlock(now int64) {
	if !g.locked {
		return
	}
	g.locked = false
	g.hasUnlocked = true
	if expiry := g.lockedAt + g.lockDuration; now > expiry {
		g.lastUnlockedAt = expiry
	} else {
		g.lastUnlockedAt = now
	}
}

// LockDuration returns the configured lock window length in blocks.
func (g *Guard) LockDuration() int64 {
	return g.lockDuration
}

// CooldownDuration returns the configured cooldown length in blocks.
func (g *Guard) CooldownDuration() int64 {
	return g.cooldownDuration
}
