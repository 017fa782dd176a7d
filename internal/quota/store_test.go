package quota

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayKey_UTC(t *testing.T) {
	// 23:30 in UTC-5 is already the next day in UTC.
	loc := time.FixedZone("UTC-5", -5*3600)
	local := time.Date(2025, 3, 9, 23, 30, 0, 0, loc)

	assert.Equal(t, "2025-03-10", DayKey(local))
}

func TestNextMidnight(t *testing.T) {
	now := time.Date(2025, 3, 10, 17, 45, 12, 0, time.UTC)

	mid := NextMidnight(now)
	assert.Equal(t, time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), mid)

	// Right at midnight the expiry is the following midnight, not now.
	atMidnight := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), NextMidnight(atMidnight))
}

func TestMemStore_CapEnforced(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := s.TryConsume(ctx, "user#alice", 3)
		require.NoError(t, err)
		assert.True(t, d.Allowed, "attempt %d should be allowed", i+1)
		assert.Equal(t, 2-i, d.Remaining)
	}

	d, err := s.TryConsume(ctx, "user#alice", 3)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, 3, s.Count("user#alice"), "denied attempt must not mutate the counter")
}

func TestMemStore_ScopesIndependent(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := s.TryConsume(ctx, "user#a", 2)
		require.NoError(t, err)
	}

	d, err := s.TryConsume(ctx, "user#a", 2)
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	d, err = s.TryConsume(ctx, "user#b", 2)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestMemStore_DayRolloverResets(t *testing.T) {
	now := time.Date(2025, 6, 1, 23, 59, 0, 0, time.UTC)
	s := NewMemStore().WithClock(func() time.Time { return now })
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := s.TryConsume(ctx, "user#carol", 2)
		require.NoError(t, err)
	}
	d, err := s.TryConsume(ctx, "user#carol", 2)
	require.NoError(t, err)
	assert.False(t, d.Allowed, "exhausted on day D")

	now = now.Add(2 * time.Minute) // crosses UTC midnight into D+1

	d, err = s.TryConsume(ctx, "user#carol", 2)
	require.NoError(t, err)
	assert.True(t, d.Allowed, "day D+1 starts fresh")
	assert.Equal(t, 1, d.Remaining)
}

func TestMemStore_ConcurrentConsumeNeverExceedsLimit(t *testing.T) {
	const (
		limit    = 5
		attempts = 100
	)
	s := NewMemStore()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := s.TryConsume(ctx, "user#hot", limit)
			require.NoError(t, err)
			if d.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, limit, allowed, "exactly limit successes under contention")
	assert.Equal(t, limit, s.Count("user#hot"), "final count never exceeds limit")
}

func TestMemStore_RefundRestoresUnit(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := s.TryConsume(ctx, "user#dave", 2)
		require.NoError(t, err)
	}

	require.NoError(t, s.Refund(ctx, "user#dave"))
	assert.Equal(t, 1, s.Count("user#dave"))

	d, err := s.TryConsume(ctx, "user#dave", 2)
	require.NoError(t, err)
	assert.True(t, d.Allowed, "refunded unit is consumable again")
}

func TestMemStore_RefundNeverGoesNegative(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	require.NoError(t, s.Refund(ctx, "user#nobody"))
	assert.Equal(t, 0, s.Count("user#nobody"))
}

func TestPGStore_SanitizesTableName(t *testing.T) {
	s := NewPGStore(nil, `quota"; drop table users; --`)

	// The embedded identifier must be quoted with inner quotes doubled.
	assert.Contains(t, s.consumeSQL, `"quota""; drop table users; --"`)
	assert.Contains(t, s.refundSQL, `"quota""; drop table users; --"`)
}

func TestPGStore_ConsumeIsSingleGuardedStatement(t *testing.T) {
	s := NewPGStore(nil, "quota_usage")

	// The check-and-increment must stay one conditional upsert; a separate
	// read would reopen the race the guarded DO UPDATE arm closes.
	assert.Contains(t, s.consumeSQL, "ON CONFLICT (scope_key, day_key)")
	assert.Contains(t, s.consumeSQL, "count < $4")
	assert.Contains(t, s.consumeSQL, "RETURNING count")
	assert.NotContains(t, s.consumeSQL, "SELECT")
}
