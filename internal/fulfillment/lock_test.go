package fulfillment

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/adityamehra-dev/orderbook-backend/pkg/errors"
)

type stubLockStore struct {
	mu        sync.Mutex
	values    map[string]string
	evalCalls int
}

func newStubLockStore() *stubLockStore {
	return &stubLockStore{values: make(map[string]string)}
}

func (s *stubLockStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = fmt.Sprint(value)
	return true, nil
}

// Eval emulates the compare-and-delete script: the key is removed only
// while it still holds the caller's owner token.
func (s *stubLockStore) Eval(ctx context.Context, script string, keys []string, args ...any) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evalCalls++
	if len(keys) != 1 || len(args) != 1 {
		return nil, fmt.Errorf("unexpected script shape: keys=%v args=%v", keys, args)
	}
	if s.values[keys[0]] != fmt.Sprint(args[0]) {
		return int64(0), nil
	}
	delete(s.values, keys[0])
	return int64(1), nil
}

func (s *stubLockStore) OrderLockKey(org string, orderID int64) string {
	return fmt.Sprintf("lock:order:%s:%d", org, orderID)
}

func TestRedisOrderLockerExcludesSecondHolder(t *testing.T) {
	store := newStubLockStore()
	locker, err := NewRedisOrderLocker(store, time.Minute, time.Millisecond, 20*time.Millisecond)
	require.NoError(t, err)
	ctx := context.Background()

	release, err := locker.Lock(ctx, "acme", 1)
	require.NoError(t, err)

	_, err = locker.Lock(ctx, "acme", 1)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())

	// A different order is unaffected.
	otherRelease, err := locker.Lock(ctx, "acme", 2)
	require.NoError(t, err)
	otherRelease()

	release()
	release2, err := locker.Lock(ctx, "acme", 1)
	require.NoError(t, err)
	release2()
}

func TestRedisOrderLockerReleaseIgnoresForeignOwner(t *testing.T) {
	store := newStubLockStore()
	locker, err := NewRedisOrderLocker(store, time.Minute, time.Millisecond, 20*time.Millisecond)
	require.NoError(t, err)
	ctx := context.Background()

	release, err := locker.Lock(ctx, "acme", 1)
	require.NoError(t, err)

	key := store.OrderLockKey("acme", 1)
	store.mu.Lock()
	store.values[key] = "someone-else"
	store.mu.Unlock()

	release()

	store.mu.Lock()
	value := store.values[key]
	store.mu.Unlock()
	assert.Equal(t, "someone-else", value, "release must not evict a newer holder")
}

func TestRedisOrderLockerStaleReleaseKeepsNewLease(t *testing.T) {
	store := newStubLockStore()
	locker, err := NewRedisOrderLocker(store, time.Minute, time.Millisecond, 20*time.Millisecond)
	require.NoError(t, err)
	ctx := context.Background()

	staleRelease, err := locker.Lock(ctx, "acme", 1)
	require.NoError(t, err)

	// Simulate lease expiry followed by another request taking the lock.
	key := store.OrderLockKey("acme", 1)
	store.mu.Lock()
	delete(store.values, key)
	store.mu.Unlock()
	freshRelease, err := locker.Lock(ctx, "acme", 1)
	require.NoError(t, err)

	staleRelease()

	store.mu.Lock()
	_, held := store.values[key]
	calls := store.evalCalls
	store.mu.Unlock()
	assert.True(t, held, "stale release must not evict the new lease")
	assert.Equal(t, 1, calls, "release must be a single store round trip")

	freshRelease()
	store.mu.Lock()
	_, held = store.values[key]
	store.mu.Unlock()
	assert.False(t, held, "current holder's release removes the lease")
}

func TestLocalOrderLockerSerializes(t *testing.T) {
	locker := NewLocalOrderLocker()
	ctx := context.Background()

	release, err := locker.Lock(ctx, "acme", 1)
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		r, err := locker.Lock(ctx, "acme", 1)
		if err == nil {
			r()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first still held")
	case <-time.After(20 * time.Millisecond):
	}

	release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired after release")
	}
}
