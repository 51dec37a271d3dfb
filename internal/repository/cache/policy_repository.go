package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rerouting-service/internal/domain"
	"github.com/rerouting-service/internal/domain/repository"
)

// cachedPolicyRepository - read-through кеш поверх хранилища политик.
// Ошибки кеша не роняют чтение, политика берётся из хранилища.
type cachedPolicyRepository struct {
	next   repository.RoutePolicyRepository
	cache  repository.CacheRepository
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedRoutePolicyRepository(
	next repository.RoutePolicyRepository,
	cache repository.CacheRepository,
	ttl time.Duration,
	logger *zap.Logger,
) repository.RoutePolicyRepository {
	return &cachedPolicyRepository{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

func (r *cachedPolicyRepository) GetPolicy(ctx context.Context, routeID int64) (*domain.RoutePolicy, error) {
	cached, err := r.cache.GetPolicy(ctx, routeID)
	if err != nil {
		r.logger.Warn("Policy cache read failed", zap.Int64("route_id", routeID), zap.Error(err))
	}
	if cached != nil {
		return cached, nil
	}

	policy, err := r.next.GetPolicy(ctx, routeID)
	if err != nil || policy == nil {
		return policy, err
	}

	if err := r.cache.SetPolicy(ctx, policy, r.ttl); err != nil {
		r.logger.Warn("Policy cache write failed", zap.Int64("route_id", routeID), zap.Error(err))
	}

	return policy, nil
}
