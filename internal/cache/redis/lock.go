package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rustyeddy/tradejournal/ledger"
)

// ErrLockHeld is returned when another holder keeps the lock past the wait.
var ErrLockHeld = errors.New("redis: lock held")

// unlockLua deletes the lock only if it still carries the caller's token.
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

const (
	DefaultRetryInterval = 50 * time.Millisecond
	DefaultMaxWait       = 5 * time.Second
)

// LockManager implements ledger.Locker with SET NX plus a TTL and a
// token-checked Lua unlock. A contended Acquire polls until the lock frees
// up, MaxWait elapses or ctx is done.
type LockManager struct {
	rdb      *redis.Client
	unlockSc *redis.Script

	RetryInterval time.Duration
	MaxWait       time.Duration
}

var _ ledger.Locker = (*LockManager)(nil)

func NewLockManager(c *Client) *LockManager {
	return &LockManager{
		rdb:           c.Underlying(),
		unlockSc:      redis.NewScript(unlockLua),
		RetryInterval: DefaultRetryInterval,
		MaxWait:       DefaultMaxWait,
	}
}

func lockKey(key string) string {
	return "tradejournal:lock:" + key
}

// Acquire obtains the lock for key and returns an unlock func that is safe
// to call more than once.
func (lm *LockManager) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.New().String()
	lk := lockKey(key)
	deadline := time.Now().Add(lm.MaxWait)

	for {
		ok, err := lm.rdb.SetNX(ctx, lk, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis: acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrLockHeld, key)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("redis: acquire lock %s: %w", key, ctx.Err())
		case <-time.After(lm.RetryInterval):
		}
	}

	var once sync.Once
	unlock := func() {
		once.Do(func() {
			// The caller's context may already be cancelled.
			unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = lm.unlockSc.Run(unlockCtx, lm.rdb, []string{lk}, token).Err()
		})
	}
	return unlock, nil
}
