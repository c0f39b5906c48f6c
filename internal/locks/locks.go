// Package locks serializes lease mutations per unit across processes.
package locks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when another holder keeps the unit locked
// past the wait budget.
var ErrNotAcquired = errors.New("locks: unit is locked by another operation")

// Release gives a lock back. It is safe to call after the TTL expired.
type Release func(ctx context.Context) error

// UnitLocker grants exclusive access to one unit's leases.
type UnitLocker interface {
	LockUnit(ctx context.Context, unitID uint) (Release, error)
}

// UnitLeaseKey builds the redis key guarding a unit's leases.
func UnitLeaseKey(unitID uint) string {
	return fmt.Sprintf("rentals:unit:%d:lease", unitID)
}

// Noop is used when no Redis is configured; the database row lock alone
// serializes writers.
type Noop struct{}

func (Noop) LockUnit(context.Context, uint) (Release, error) {
	return func(context.Context) error { return nil }, nil
}

// Deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker implements UnitLocker with SET NX PX and a token check on release.
type RedisLocker struct {
	client redis.Cmdable
	ttl    time.Duration
	wait   time.Duration
	poll   time.Duration
}

// NewRedisLocker returns a locker holding keys for ttl and waiting up to
// wait for a busy unit.
func NewRedisLocker(client redis.Cmdable, ttl, wait time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl, wait: wait, poll: 50 * time.Millisecond}
}

func (l *RedisLocker) LockUnit(ctx context.Context, unitID uint) (Release, error) {
	key := UnitLeaseKey(unitID)
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("locks: acquire %s: %w", key, err)
		}
		if ok {
			return func(ctx context.Context) error {
				if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
					return fmt.Errorf("locks: release %s: %w", key, err)
				}
				return nil
			}, nil
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("%w (unit %d)", ErrNotAcquired, unitID)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.poll):
		}
	}
}
