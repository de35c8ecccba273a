package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/alem-hub/lms-enrollment/internal/domain/enrollment"
	"github.com/alem-hub/lms-enrollment/internal/domain/shared"
	"github.com/alem-hub/lms-enrollment/pkg/logger"
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// AdmissionLockConfig tunes the lock.
type AdmissionLockConfig struct {
	// TTL bounds how long a crashed holder can block a course.
	TTL time.Duration

	// RetryInterval is the pause between acquisition attempts.
	RetryInterval time.Duration

	// WaitTimeout is how long Acquire waits before giving up.
	WaitTimeout time.Duration
}

// DefaultAdmissionLockConfig returns the default lock settings.
func DefaultAdmissionLockConfig() AdmissionLockConfig {
	return AdmissionLockConfig{
		TTL:           TTLDistributedLock,
		RetryInterval: 25 * time.Millisecond,
		WaitTimeout:   5 * time.Second,
	}
}

// AdmissionLock implements enrollment.AdmissionLocker with SET NX PX
// and a token-checked release.
type AdmissionLock struct {
	cache *Cache
	cfg   AdmissionLockConfig
	log   *logger.Logger
}

var _ enrollment.AdmissionLocker = (*AdmissionLock)(nil)

// NewAdmissionLock creates an AdmissionLock. Zero config fields take defaults.
func NewAdmissionLock(cache *Cache, cfg AdmissionLockConfig, log *logger.Logger) *AdmissionLock {
	def := DefaultAdmissionLockConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = def.RetryInterval
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = def.WaitTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	return &AdmissionLock{cache: cache, cfg: cfg, log: log.Named("admission_lock")}
}

// Acquire implements enrollment.AdmissionLocker.
func (l *AdmissionLock) Acquire(ctx context.Context, courseID int64) (enrollment.ReleaseFunc, error) {
	key := CourseAdmissionKey(courseID)
	token := uuid.NewString()
	deadline := time.Now().Add(l.cfg.WaitTimeout)

	for {
		ok, err := l.cache.SetNX(ctx, key, token, l.cfg.TTL)
		if err != nil {
			return nil, fmt.Errorf("redis: acquire %s: %w", key, err)
		}
		if ok {
			return l.releaser(key, token, courseID), nil
		}

		if time.Now().After(deadline) {
			return nil, shared.WrapError("enrollment", "AcquireAdmissionLock", shared.ErrTimeout,
				fmt.Sprintf("admission lock for course %d not acquired within %s", courseID, l.cfg.WaitTimeout), nil)
		}

		timer := time.NewTimer(l.cfg.RetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *AdmissionLock) releaser(key, token string, courseID int64) enrollment.ReleaseFunc {
	return func(ctx context.Context) error {
		n, err := releaseScript.Run(ctx, l.cache.Client(), []string{key}, token).Int()
		if err != nil {
			l.log.Warn("failed to release admission lock", logger.CourseID(courseID), logger.Err(err))
			return fmt.Errorf("redis: release %s: %w", key, err)
		}
		if n == 0 {
			l.log.Warn("admission lock expired before release", logger.CourseID(courseID),
				logger.Duration("ttl", l.cfg.TTL))
		}
		return nil
	}
}
