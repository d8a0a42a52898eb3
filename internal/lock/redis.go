package lock

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still carries our token,
// so an expired lock that another instance re-acquired is left alone.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
else
    return 0
end`

var errHeld = errors.New("lock: held elsewhere")

// RedisOptions tunes a Redis locker.
type RedisOptions struct {
	Prefix        string        // key prefix, the show ID is appended
	TTL           time.Duration // key expiry; bounds the damage of a crashed holder
	WaitTimeout   time.Duration // how long Acquire polls before ErrTimeout
	RetryInterval time.Duration // first polling interval, grows exponentially
}

// Redis is a Locker shared by every instance that talks to the same
// Redis.  The key is set with SET NX PX and a random token.
type Redis struct {
	client redis.Cmdable
	opts   RedisOptions

	newToken func() string
}

func NewRedis(client redis.Cmdable, opts RedisOptions) *Redis {
	if opts.Prefix == "" {
		opts.Prefix = "lock:show"
	}
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Second
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 20 * time.Millisecond
	}
	return &Redis{client: client, opts: opts, newToken: uuid.NewString}
}

func (r *Redis) Backend() string { return "redis" }

func (r *Redis) key(showID uint64) string {
	return r.opts.Prefix + ":" + strconv.FormatUint(showID, 10)
}

func (r *Redis) Acquire(ctx context.Context, showID uint64) (func(), error) {
	key := r.key(showID)
	token := r.newToken()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.opts.RetryInterval
	b.MaxInterval = 250 * time.Millisecond

	// a failed SETNX may still have reached Redis
	unsure := false
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		ok, err := r.client.SetNX(ctx, key, token, r.opts.TTL).Result()
		if err != nil {
			unsure = true
			return struct{}{}, backoff.Permanent(fmt.Errorf("lock: setnx %s: %w", key, err))
		}
		if !ok {
			return struct{}{}, errHeld
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(r.opts.WaitTimeout),
	)
	if err != nil && unsure {
		r.release(key, token)
	}
	switch {
	case err == nil:
	case errors.Is(err, errHeld):
		return nil, ErrTimeout
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() { r.release(key, token) })
	}, nil
}

// release drops key if it still holds token.  Errors are ignored; the
// TTL clears the key anyway.
func (r *Redis) release(key, token string) {
	// the request context may already be cancelled
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = r.client.Eval(ctx, releaseScript, []string{key}, token).Err()
}
