package timelock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGuard(t *testing.T, lock, cooldown int64) *Guard {
	t.Helper()
	g, err := New(lock, cooldown)
	require.NoError(t, err)
	return g
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(0, 5)
	assert.Error(t, err)

	_, err = New(-1, 5)
	assert.Error(t, err)

	_, err = New(10, -1)
	assert.Error(t, err)

	_, err = New(10, 0)
	assert.NoError(t, err)
}

func TestConfiguredDurations(t *testing.T) {
	t.Parallel()

	g := newGuard(t, 10, 5)
	assert.Equal(t, int64(10), g.LockDuration())
	assert.Equal(t, int64(5), g.CooldownDuration())
}

func TestLockUnlockCycle(t *testing.T) {
	t.Parallel()

	g := newGuard(t, 10, 5)

	assert.False(t, g.IsLocked(0))
	assert.True(t, g.CanLock(0))

	require.NoError(t, g.Lock(100))
	assert.True(t, g.IsLocked(100))
	assert.True(t, g.IsLocked(109))
	assert.False(t, g.IsLocked(110)) // window elapsed

	assert.ErrorIs(t, g.Lock(105), ErrAlreadyLocked)

	g.Unlock(105)
	assert.False(t, g.IsLocked(105))

	// Cooldown runs from the unlock block.
	assert.False(t, g.CanLock(106))
	assert.ErrorIs(t, g.Lock(106), ErrCooldownActive)
	assert.True(t, g.CanLock(110))
	require.NoError(t, g.Lock(110))
}

func TestUnlockIsIdempotent(t *testing.T) {
	t.Parallel()

	g := newGuard(t, 10, 5)
	require.NoError(t, g.Lock(100))
	g.Unlock(102)

	// Repeated unlocks must not move the cooldown origin forward.
	g.Unlock(104)
	g.Unlock(106)
	assert.True(t, g.CanLock(107)) // 102 + 5
	require.NoError(t, g.Lock(107))
}

func TestUnlockBeforeAnyLockIsNoop(t *testing.T) {
	t.Parallel()

	g := newGuard(t, 10, 5)
	g.Unlock(50)
	assert.True(t, g.CanLock(50))
}

func TestExpiredLockCooldownFromExpiry(t *testing.T) {
	t.Parallel()

	g := newGuard(t, 10, 5)
	require.NoError(t, g.Lock(100))

	// The window expired at 110 with no explicit unlock. Re-locking
	// before 115 hits the cooldown measured from expiry.
	assert.False(t, g.IsLocked(120))
	assert.ErrorIs(t, g.Lock(113), ErrCooldownActive)
	require.NoError(t, g.Lock(115))
	assert.True(t, g.IsLocked(115))
}

func TestUnlockAfterExpiryCapsCooldownOrigin(t *testing.T) {
	t.Parallel()

	g := newGuard(t, 10, 5)
	require.NoError(t, g.Lock(100))

	// Unlock called long after expiry: cooldown still measured from the
	// window end, not the late unlock call.
	g.Unlock(200)
	assert.True(t, g.CanLock(200))
}

func TestZeroCooldown(t *testing.T) {
	t.Parallel()

	g := newGuard(t, 10, 0)
	require.NoError(t, g.Lock(100))
	g.Unlock(101)
	require.NoError(t, g.Lock(101))
}
