package fulfillment

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adityamehra-dev/orderbook-backend/pkg/errors"
)

// OrderLocker serializes mutations against a single order. Lock blocks
// until the lock is held or the acquire timeout elapses; the returned
// function releases it.
type OrderLocker interface {
	Lock(ctx context.Context, org string, orderID int64) (func(), error)
}

// lockStore defines the Redis operations the locker uses.
type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Eval(ctx context.Context, script string, keys []string, args ...any) (any, error)
	OrderLockKey(org string, orderID int64) string
}

// releaseLeaseScript deletes the lease only while the caller still owns
// it. Running server-side keeps the ownership check and the delete in
// one step, so a lease that expired and was re-acquired between the two
// cannot be evicted.
const releaseLeaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`

// RedisOrderLocker implements OrderLocker with SETNX leases.
type RedisOrderLocker struct {
	store          lockStore
	ttl            time.Duration
	retryInterval  time.Duration
	acquireTimeout time.Duration
}

// NewRedisOrderLocker constructs a Redis-backed order locker.
func NewRedisOrderLocker(store lockStore, ttl, retryInterval, acquireTimeout time.Duration) (*RedisOrderLocker, error) {
	if store == nil {
		return nil, errors.New(errors.CodeInternal, "redis store required for order locker")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if retryInterval <= 0 {
		retryInterval = 50 * time.Millisecond
	}
	if acquireTimeout <= 0 {
		acquireTimeout = 5 * time.Second
	}
	return &RedisOrderLocker{
		store:          store,
		ttl:            ttl,
		retryInterval:  retryInterval,
		acquireTimeout: acquireTimeout,
	}, nil
}

// Lock spins on SETNX until the lease is held or the acquire timeout
// elapses. The release function only deletes the key while this caller
// still owns it, so an expired lease never evicts a newer holder.
func (l *RedisOrderLocker) Lock(ctx context.Context, org string, orderID int64) (func(), error) {
	key := l.store.OrderLockKey(org, orderID)
	owner := uuid.NewString()

	deadline := time.Now().Add(l.acquireTimeout)
	for {
		ok, err := l.store.SetNX(ctx, key, owner, l.ttl)
		if err != nil {
			return nil, errors.Wrap(errors.CodeDependency, err, "acquire order lock")
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, errors.New(errors.CodeConflict, "order is being modified by another request")
		}
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(errors.CodeDependency, ctx.Err(), "acquire order lock")
		case <-time.After(l.retryInterval):
		}
	}

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		_, _ = l.store.Eval(releaseCtx, releaseLeaseScript, []string{key}, owner)
	}
	return release, nil
}

// LocalOrderLocker serializes within a single process. It backs tests
// and redis-less development setups.
type LocalOrderLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLocalOrderLocker constructs an in-process order locker.
func NewLocalOrderLocker() *LocalOrderLocker {
	return &LocalOrderLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *LocalOrderLocker) Lock(ctx context.Context, org string, orderID int64) (func(), error) {
	l.mu.Lock()
	key := lockKey(org, orderID)
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}

func lockKey(org string, orderID int64) string {
	return org + "/" + strconv.FormatInt(orderID, 10)
}
