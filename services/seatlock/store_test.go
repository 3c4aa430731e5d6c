package seatlock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, nil), mr
}

func TestAcquireAll_Success(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	res, err := s.AcquireAll(ctx, "bus-1", "2025-01-10", []int{5, 6}, "alice", time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, []int{5, 6}, res.Acquired)
	assert.Empty(t, res.Conflicting)

	assert.True(t, mr.Exists("lock:bus-1:2025-01-10:5"))
	assert.True(t, mr.Exists("lock:bus-1:2025-01-10:6"))
	assert.Equal(t, time.Minute, mr.TTL("lock:bus-1:2025-01-10:5"))
}

func TestAcquireAll_ConflictRollsBackPartialSet(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.AcquireAll(ctx, "bus-1", "2025-01-10", []int{7}, "bob", time.Minute)
	require.NoError(t, err)

	res, err := s.AcquireAll(ctx, "bus-1", "2025-01-10", []int{5, 6, 7, 8}, "alice", time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Empty(t, res.Acquired)
	assert.Equal(t, []int{7}, res.Conflicting)

	locked, err := s.ListLocked(ctx, "bus-1", "2025-01-10")
	require.NoError(t, err)
	assert.Equal(t, []int{7}, locked, "seats 5 and 6 must be rolled back")
}

func TestAcquireAll_ReportsEveryConflict(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.AcquireAll(ctx, "bus-1", "2025-01-10", []int{2, 4}, "bob", time.Minute)
	require.NoError(t, err)

	res, err := s.AcquireAll(ctx, "bus-1", "2025-01-10", []int{1, 2, 3, 4}, "alice", time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, []int{2, 4}, res.Conflicting)
}

func TestAcquireAll_SameHolderIsReentrant(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	_, err := s.AcquireAll(ctx, "bus-1", "2025-01-10", []int{3}, "alice", time.Minute)
	require.NoError(t, err)
	mr.FastForward(30 * time.Second)

	res, err := s.AcquireAll(ctx, "bus-1", "2025-01-10", []int{3, 4}, "alice", time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, time.Minute, mr.TTL("lock:bus-1:2025-01-10:3"))
}

func TestAcquireAll_CancelledContextLeavesNothing(t *testing.T) {
	s, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.AcquireAll(ctx, "bus-1", "2025-01-10", []int{1, 2}, "alice", time.Minute)
	require.Error(t, err)

	locked, err := s.ListLocked(context.Background(), "bus-1", "2025-01-10")
	require.NoError(t, err)
	assert.Empty(t, locked)
}

func TestAcquireAll_DefaultTTL(t *testing.T) {
	s, mr := newTestStore(t)

	_, err := s.AcquireAll(context.Background(), "bus-1", "2025-01-10", []int{1}, "alice", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, mr.TTL("lock:bus-1:2025-01-10:1"))
}

func TestRelease_Idempotent(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.AcquireAll(ctx, "bus-1", "2025-01-10", []int{1, 2}, "alice", time.Minute)
	require.NoError(t, err)

	n, err := s.Release(ctx, "bus-1", "2025-01-10", []int{1, 2, 9})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.Release(ctx, "bus-1", "2025-01-10", []int{1, 2, 9})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	locked, err := s.ListLocked(ctx, "bus-1", "2025-01-10")
	require.NoError(t, err)
	assert.Empty(t, locked)
}

func TestReleaseHeld_SkipsOtherHolders(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.AcquireAll(ctx, "bus-1", "2025-01-10", []int{1}, "alice", time.Minute)
	require.NoError(t, err)
	_, err = s.AcquireAll(ctx, "bus-1", "2025-01-10", []int{2}, "bob", time.Minute)
	require.NoError(t, err)

	n, err := s.ReleaseHeld(ctx, "bus-1", "2025-01-10", []int{1, 2}, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	status, err := s.IsLocked(ctx, "bus-1", "2025-01-10", 2)
	require.NoError(t, err)
	assert.True(t, status.Locked)
	assert.Equal(t, "bob", status.HolderID)
}

func TestIsLocked(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	status, err := s.IsLocked(ctx, "bus-1", "2025-01-10", 4)
	require.NoError(t, err)
	assert.False(t, status.Locked)

	before := time.Now()
	_, err = s.AcquireAll(ctx, "bus-1", "2025-01-10", []int{4}, "user-1:attempt-9", time.Minute)
	require.NoError(t, err)

	status, err = s.IsLocked(ctx, "bus-1", "2025-01-10", 4)
	require.NoError(t, err)
	assert.True(t, status.Locked)
	assert.Equal(t, "user-1:attempt-9", status.HolderID)
	assert.WithinDuration(t, before.Add(time.Minute), status.ExpiresAt, 2*time.Second)
}

func TestListLocked_ScopedToTripAndDate(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.AcquireAll(ctx, "bus-1", "2025-01-10", []int{12, 3}, "alice", time.Minute)
	require.NoError(t, err)
	_, err = s.AcquireAll(ctx, "bus-1", "2025-01-11", []int{5}, "alice", time.Minute)
	require.NoError(t, err)
	_, err = s.AcquireAll(ctx, "bus-2", "2025-01-10", []int{6}, "alice", time.Minute)
	require.NoError(t, err)

	locked, err := s.ListLocked(ctx, "bus-1", "2025-01-10")
	require.NoError(t, err)
	assert.Equal(t, []int{3, 12}, locked)
}

func TestLockExpiresAfterTTL(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	_, err := s.AcquireAll(ctx, "bus-1", "2025-01-10", []int{1, 2}, "crashed", DefaultTTL)
	require.NoError(t, err)

	res, err := s.AcquireAll(ctx, "bus-1", "2025-01-10", []int{1, 2}, "alice", time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Success)

	mr.FastForward(DefaultTTL + time.Second)

	res, err = s.AcquireAll(ctx, "bus-1", "2025-01-10", []int{1, 2}, "alice", time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestAcquireAll_ConcurrentOverlapHasOneWinner(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	const contenders = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
	)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			holder := "holder-" + string(rune('a'+i))
			res, err := s.AcquireAll(ctx, "bus-1", "2025-01-10", []int{i % 3, 10, 11}, holder, time.Minute)
			if err != nil {
				t.Error(err)
				return
			}
			if res.Success {
				mu.Lock()
				winners = append(winners, holder)
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	require.Len(t, winners, 1)
	locked, err := s.ListLocked(ctx, "bus-1", "2025-01-10")
	require.NoError(t, err)
	assert.Len(t, locked, 3)
}

func TestExpiringAndAudit(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	_, err := s.AcquireAll(ctx, "bus-1", "2025-01-10", []int{1}, "alice", 10*time.Second)
	require.NoError(t, err)
	_, err = s.AcquireAll(ctx, "bus-1", "2025-01-10", []int{2}, "bob", time.Hour)
	require.NoError(t, err)
	mr.Set("lock:garbage", "x")

	locks, err := s.Expiring(ctx, time.Minute)
	require.NoError(t, err)
	require.Len(t, locks, 1)
	assert.Equal(t, "bus-1", locks[0].TripID)
	assert.Equal(t, "2025-01-10", locks[0].Date)
	assert.Equal(t, 1, locks[0].Seat)
	assert.Equal(t, "alice", locks[0].HolderID)

	assert.Equal(t, 1, s.auditOnce(ctx, time.Minute))
}
