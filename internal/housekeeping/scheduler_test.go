// AngelaMos | 2026
// scheduler_test.go

package housekeeping

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/reseller-console/internal/core"
)

func newLocker(t *testing.T) *redsync.Redsync {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return redsync.New(goredis.NewPool(client))
}

type countingJob struct {
	runs     atomic.Int32
	affected int64
	err      error
}

func (c *countingJob) Run(context.Context) (int64, error) {
	c.runs.Add(1)
	return c.affected, c.err
}

func TestRunNowHoldsLock(t *testing.T) {
	locker := newLocker(t)
	s := New(Config{Locker: locker, LockTTL: time.Minute})

	job := &countingJob{affected: 3}
	require.NoError(t, s.Add(Job{Name: JobCouponExpiry, Schedule: "@every 1h", Run: job.Run}))

	require.NoError(t, s.RunNow(t.Context(), JobCouponExpiry))
	assert.Equal(t, int32(1), job.runs.Load())

	// released after the run, so a second run proceeds
	require.NoError(t, s.RunNow(t.Context(), JobCouponExpiry))
	assert.Equal(t, int32(2), job.runs.Load())
}

func TestRunNowSkipsWhenLockHeldElsewhere(t *testing.T) {
	locker := newLocker(t)
	s := New(Config{Locker: locker})

	job := &countingJob{}
	require.NoError(t, s.Add(Job{Name: JobTokenPurge, Schedule: "@every 1h", Run: job.Run}))

	other := locker.NewMutex(lockPrefix+JobTokenPurge, redsync.WithExpiry(time.Minute))
	require.NoError(t, other.Lock())

	err := s.RunNow(t.Context(), JobTokenPurge)
	assert.ErrorIs(t, err, ErrLockHeld)
	assert.Zero(t, job.runs.Load())

	_, err = other.Unlock()
	require.NoError(t, err)

	require.NoError(t, s.RunNow(t.Context(), JobTokenPurge))
	assert.Equal(t, int32(1), job.runs.Load())
}

func TestRunNowWithoutLocker(t *testing.T) {
	s := New(Config{})

	job := &countingJob{err: errors.New("db down")}
	require.NoError(t, s.Add(Job{Name: "flaky", Schedule: "@every 1h", Run: job.Run}))

	err := s.RunNow(t.Context(), "flaky")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	assert.Equal(t, int32(1), job.runs.Load())
}

func TestRunNowUnknownJob(t *testing.T) {
	s := New(Config{})
	assert.ErrorIs(t, s.RunNow(t.Context(), "missing"), core.ErrNotFound)
}

func TestAddRejectsBadScheduleAndDuplicates(t *testing.T) {
	s := New(Config{})
	job := &countingJob{}

	assert.Error(t, s.Add(Job{Name: "bad", Schedule: "every tuesday", Run: job.Run}))

	require.NoError(t, s.Add(Job{Name: "ok", Schedule: "0 */10 * * * *", Run: job.Run}))
	assert.ErrorIs(t, s.Add(Job{Name: "ok", Schedule: "0 */10 * * * *", Run: job.Run}), core.ErrDuplicateKey)

	// a rejected job is not registered
	assert.ErrorIs(t, s.RunNow(t.Context(), "bad"), core.ErrNotFound)
}

func TestScheduledRun(t *testing.T) {
	s := New(Config{Locker: newLocker(t), LockTTL: 5 * time.Second})

	job := &countingJob{}
	require.NoError(t, s.Add(Job{Name: "tick", Schedule: "* * * * * *", Run: job.Run}))

	s.Start()
	require.Eventually(t, func() bool { return job.runs.Load() > 0 }, 3*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(t.Context(), time.Second)
	defer cancel()
	s.Stop(ctx)

	stopped := job.runs.Load()
	time.Sleep(1100 * time.Millisecond)
	assert.Equal(t, stopped, job.runs.Load())
}

type stubExpirer struct{ n int64 }

func (s stubExpirer) DeactivateExpiredCoupons(context.Context) (int64, error) { return s.n, nil }

type stubPurger struct{ n int64 }

func (s stubPurger) PurgeExpiredTokens(context.Context) (int64, error) { return s.n, nil }

func TestJobConstructors(t *testing.T) {
	coupons := CouponExpiryJob("0 */10 * * * *", stubExpirer{n: 2})
	assert.Equal(t, JobCouponExpiry, coupons.Name)
	n, err := coupons.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	tokens := TokenPurgeJob("0 0 3 * * *", stubPurger{n: 9})
	assert.Equal(t, JobTokenPurge, tokens.Name)
	n, err = tokens.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(9), n)
}
