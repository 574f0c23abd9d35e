package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/vlxd-platform/market-intelligence/pkg/errors"
)

var ErrLockNotAcquired = errors.New(errors.ErrCodeCacheError, "failed to acquire lock")

const (
	lockKeyPrefix = "vlxd:lock:"

	defaultLockTTL        = 30 * time.Second
	defaultLockRetryDelay = 100 * time.Millisecond
	defaultLockRetries    = 30
)

// TrainLocker is the distributed implementation of the forecasting Locker
// port.  Each Lock call takes a Redis key via SET NX with a random token, a
// watchdog keeps the TTL alive while the lock is held, and the returned
// release function deletes the key only when the token still matches.
type TrainLocker struct {
	client     *Client
	logger     logging.Logger
	ttl        time.Duration
	retryDelay time.Duration
	retries    int
}

type LockOption func(*TrainLocker)

func WithLockTTL(ttl time.Duration) LockOption {
	return func(l *TrainLocker) { l.ttl = ttl }
}

func WithLockRetryDelay(delay time.Duration) LockOption {
	return func(l *TrainLocker) { l.retryDelay = delay }
}

func WithLockRetries(count int) LockOption {
	return func(l *TrainLocker) { l.retries = count }
}

// NewTrainLocker creates a locker with a 30s TTL and 30 retries 100ms apart.
func NewTrainLocker(client *Client, log logging.Logger, opts ...LockOption) *TrainLocker {
	l := &TrainLocker{
		client:     client,
		logger:     log.Named("lock"),
		ttl:        defaultLockTTL,
		retryDelay: defaultLockRetryDelay,
		retries:    defaultLockRetries,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// unlockScript deletes the key only if the caller still owns it.
var unlockScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

// extendScript refreshes the TTL only if the caller still owns the key.
var extendScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// Lock blocks until the key is acquired, the retries are exhausted or the
// context is cancelled.
func (l *TrainLocker) Lock(ctx context.Context, key string) (func(), error) {
	fullKey := lockKeyPrefix + key
	token := uuid.New().String()

	for i := 0; i < l.retries; i++ {
		ok, err := l.client.SetNX(ctx, fullKey, token, l.ttl).Result()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeCacheError, "failed to set lock")
		}
		if ok {
			stopWatchdog := l.startWatchdog(fullKey, token)
			return func() {
				stopWatchdog()
				l.release(fullKey, token)
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryDelay):
		}
	}
	return nil, ErrLockNotAcquired
}

func (l *TrainLocker) release(fullKey, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := unlockScript.Run(ctx, l.client.Universal(), []string{fullKey}, token).Result()
	if err != nil {
		l.logger.Error("Failed to release lock", logging.String("key", fullKey), logging.Err(err))
		return
	}
	if n, ok := res.(int64); ok && n == 0 {
		l.logger.Warn("Lock already expired at release", logging.String("key", fullKey))
	}
}

// startWatchdog extends the TTL at a third of its length until stopped.
func (l *TrainLocker) startWatchdog(fullKey, token string) func() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(l.ttl / 3)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				res, err := extendScript.Run(ctx, l.client.Universal(), []string{fullKey}, token, l.ttl.Milliseconds()).Result()
				if err != nil {
					l.logger.Error("Lock watchdog failed", logging.String("key", fullKey), logging.Err(err))
					return
				}
				if n, ok := res.(int64); ok && n == 0 {
					l.logger.Warn("Lock watchdog lost ownership", logging.String("key", fullKey))
					return
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
