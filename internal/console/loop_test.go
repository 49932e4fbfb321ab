// AngelaMos | 2026
// loop_test.go

package console

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoop(t *testing.T, store Store, interval time.Duration) *Loop {
	t.Helper()
	if interval == 0 {
		interval = time.Hour
	}
	l := NewLoop(Config{Store: store, Interval: interval})
	t.Cleanup(l.Unmount)
	return l
}

func TestMountLoadsInitialSnapshot(t *testing.T) {
	store := newMemStore()
	l := newTestLoop(t, store, 0)

	assert.Zero(t, l.Snapshot().Generation)

	require.NoError(t, l.Mount(context.Background()))
	assert.True(t, l.Mounted())

	snap := l.Snapshot()
	assert.Equal(t, uint64(1), snap.Generation)
	assert.Len(t, snap.Users, 2)
	assert.Len(t, snap.Orders, 2)
	assert.Len(t, snap.SpecialOffers, 1)
	assert.Len(t, snap.Coupons, 1)
	assert.Len(t, snap.Plans, 1)
	require.NotNil(t, snap.Analytics)
	assert.Equal(t, 1, snap.Analytics.PendingOrders)
	assert.Equal(t, int32(1), store.reconciles.Load())

	assert.ErrorIs(t, l.Mount(context.Background()), ErrAlreadyMounted)
}

func TestRefreshWithoutMutationIsStable(t *testing.T) {
	l := newTestLoop(t, newMemStore(), 0)
	ctx := context.Background()
	require.NoError(t, l.Mount(ctx))

	first := l.Snapshot()
	require.NoError(t, l.Refresh(ctx))
	second := l.Snapshot()

	assert.Equal(t, first.Generation+1, second.Generation)
	assert.Equal(t, first.Users, second.Users)
	assert.Equal(t, first.Orders, second.Orders)
	assert.Equal(t, first.SpecialOffers, second.SpecialOffers)
	assert.Equal(t, first.Coupons, second.Coupons)
	assert.Equal(t, first.Plans, second.Plans)
	assert.Equal(t, first.Analytics, second.Analytics)
}

func TestReconcileFailureIsIgnored(t *testing.T) {
	store := newMemStore()
	store.reconcileErr = errBackendDown

	l := newTestLoop(t, store, 0)
	require.NoError(t, l.Mount(context.Background()))

	snap := l.Snapshot()
	assert.Equal(t, uint64(1), snap.Generation)
	assert.Len(t, snap.Orders, 2)
}

func TestReadFailureKeepsPreviousSnapshot(t *testing.T) {
	store := newMemStore()
	l := newTestLoop(t, store, 0)
	ctx := context.Background()
	require.NoError(t, l.Mount(ctx))

	before := l.Snapshot()

	store.setReadErr(errBackendDown)
	assert.ErrorIs(t, l.Refresh(ctx), errBackendDown)
	assert.Equal(t, before, l.Snapshot())

	store.setReadErr(nil)
	require.NoError(t, l.Refresh(ctx))
	assert.Equal(t, before.Generation+1, l.Snapshot().Generation)
}

func TestPeriodicRefreshStopsOnUnmount(t *testing.T) {
	store := newMemStore()
	l := newTestLoop(t, store, 10*time.Millisecond)
	require.NoError(t, l.Mount(context.Background()))

	require.Eventually(t, func() bool {
		return store.reconciles.Load() >= 3
	}, time.Second, 5*time.Millisecond)

	l.Unmount()
	assert.False(t, l.Mounted())

	stopped := store.reconciles.Load()
	generation := l.Snapshot().Generation

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stopped, store.reconciles.Load())
	assert.Equal(t, generation, l.Snapshot().Generation)
}

func TestUnmountBeforeFirstTick(t *testing.T) {
	store := newMemStore()
	l := newTestLoop(t, store, 40*time.Millisecond)
	require.NoError(t, l.Mount(context.Background()))

	l.Unmount()
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, int32(1), store.reconciles.Load())
	assert.Equal(t, uint64(1), l.Snapshot().Generation)
}

func TestRefreshAfterUnmountIsDiscarded(t *testing.T) {
	store := newMemStore()
	l := newTestLoop(t, store, 0)
	require.NoError(t, l.Mount(context.Background()))

	gate := make(chan struct{})
	store.mu.Lock()
	store.readGate = gate
	store.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- l.Refresh(context.Background()) }()

	require.Eventually(t, func() bool {
		return store.reads.Load() >= 2
	}, time.Second, time.Millisecond)

	l.Unmount()
	close(gate)

	require.NoError(t, <-done)
	assert.Equal(t, uint64(1), l.Snapshot().Generation)
}

func TestRefreshesNeverInterleave(t *testing.T) {
	store := newMemStore()
	l := newTestLoop(t, store, 0)
	require.NoError(t, l.Mount(context.Background()))

	gate := make(chan struct{})
	store.mu.Lock()
	store.readGate = gate
	store.mu.Unlock()

	done := make(chan error, 2)
	go func() { done <- l.Refresh(context.Background()) }()

	require.Eventually(t, func() bool {
		return store.reads.Load() == 2
	}, time.Second, time.Millisecond)

	go func() { done <- l.Refresh(context.Background()) }()

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(2), store.reads.Load())
	assert.Equal(t, int32(2), store.reconciles.Load())

	close(gate)
	require.NoError(t, <-done)
	require.NoError(t, <-done)

	assert.Equal(t, uint64(3), l.Snapshot().Generation)
	assert.Equal(t, int32(3), store.reads.Load())
}

func TestSubscriberSeesLatestRender(t *testing.T) {
	l := newTestLoop(t, newMemStore(), 0)
	ctx := context.Background()

	renders, unsubscribe := l.Subscribe()
	defer unsubscribe()

	require.NoError(t, l.Mount(ctx))
	require.NoError(t, l.Refresh(ctx))
	require.NoError(t, l.Refresh(ctx))

	select {
	case snap := <-renders:
		assert.Equal(t, uint64(3), snap.Generation)
	case <-time.After(time.Second):
		t.Fatal("no render delivered")
	}

	select {
	case snap := <-renders:
		t.Fatalf("stale render %d delivered", snap.Generation)
	default:
	}
}

func TestSubscribeAfterMountGetsCurrent(t *testing.T) {
	l := newTestLoop(t, newMemStore(), 0)
	require.NoError(t, l.Mount(context.Background()))

	renders, unsubscribe := l.Subscribe()

	snap := <-renders
	assert.Equal(t, uint64(1), snap.Generation)

	unsubscribe()
	unsubscribe()

	_, ok := <-renders
	assert.False(t, ok)
}
