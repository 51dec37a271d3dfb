package cache

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rerouting-service/internal/domain/repository"
)

// releaseScript удаляет ключ, только если блокировку держит этот процесс
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type lockRepository struct {
	client *redis.Client
	owner  string
	logger *zap.Logger
}

// NewLockRepository создает блокировки на SET NX. owner пустой - hostname-pid.
func NewLockRepository(redis *Redis, owner string) repository.LockRepository {
	if owner == "" {
		hostname, _ := os.Hostname()
		owner = fmt.Sprintf("%s-%d", hostname, os.Getpid())
	}
	return &lockRepository{
		client: redis.Client(),
		owner:  owner,
		logger: redis.logger,
	}
}

func lockKey(key string) string {
	return "lock:schedule:" + key
}

func (r *lockRepository) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, lockKey(key), r.owner, ttl).Result()
	if err != nil {
		r.logger.Error("Failed to acquire lock", zap.String("key", key), zap.Error(err))
		return false, fmt.Errorf("acquire lock %s: %w", key, err)
	}

	r.logger.Debug("Lock acquire attempt", zap.String("key", key), zap.Bool("acquired", ok))
	return ok, nil
}

func (r *lockRepository) Release(ctx context.Context, key string) error {
	if err := releaseScript.Run(ctx, r.client, []string{lockKey(key)}, r.owner).Err(); err != nil {
		r.logger.Error("Failed to release lock", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("release lock %s: %w", key, err)
	}
	return nil
}
