package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// Locker serializes entitlement updates for one payer. Marker uniqueness in
// the record store already makes duplicate events harmless; the lock closes
// the remaining gap where two distinct events for the same payer race.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// KeyedMutex is the in-process Locker for single-instance deployments and
// tests. Entries are reference counted so the map does not grow without
// bound.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*keyedEntry)}
}

func (k *KeyedMutex) Acquire(_ context.Context, key string) (func(), error) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &keyedEntry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}, nil
}

// RedisLocker is the cross-instance Locker: SET NX with a TTL, released only
// by the holder (token compare-and-delete).
type RedisLocker struct {
	client *goredis.Client
	ttl    time.Duration
	retry  time.Duration
}

const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`

func NewRedisLocker(client *goredis.Client) *RedisLocker {
	return &RedisLocker{
		client: client,
		ttl:    10 * time.Second,
		retry:  50 * time.Millisecond,
	}
}

func (r *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	lockKey := "lock:" + key

	for {
		ok, err := r.client.SetNX(ctx, lockKey, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire redis lock: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.retry):
		}
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = r.client.Eval(releaseCtx, releaseScript, []string{lockKey}, token).Err()
	}, nil
}
