package service

import (
	"context"

	"github.com/TIANLI0/AttackLens/model"
	"github.com/TIANLI0/AttackLens/utils"
	"go.uber.org/zap"
)

// ResultCache stores attack results by CacheKey.
type ResultCache interface {
	GetAttackResult(ctx context.Context, key string) (*model.AttackResult, error)
	SetAttackResult(ctx context.Context, key string, result *model.AttackResult) error
}

// CachedAttacker serves repeated (image, epsilon) pairs from a cache.
// Cache failures are logged and never fail the attack.
type CachedAttacker struct {
	next  Attacker
	cache ResultCache
}

func NewCachedAttacker(next Attacker, cache ResultCache) *CachedAttacker {
	return &CachedAttacker{next: next, cache: cache}
}

// CacheKey identifies a request by image digest and wire epsilon.
func CacheKey(req model.AttackRequest) string {
	return utils.BytesMD5(req.Image) + ":" + model.FormatEpsilon(req.Epsilon)
}

func (a *CachedAttacker) Attack(ctx context.Context, req model.AttackRequest) (*model.AttackResult, error) {
	key := CacheKey(req)

	cached, err := a.cache.GetAttackResult(ctx, key)
	if err != nil {
		utils.Logger.Warn("failed to get cache", zap.Error(err))
	}
	if cached != nil {
		cacheLookups.WithLabelValues("hit").Inc()
		utils.Logger.Info("cache hit", zap.String("cache_key", key))
		return cached, nil
	}
	cacheLookups.WithLabelValues("miss").Inc()

	result, err := a.next.Attack(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := a.cache.SetAttackResult(ctx, key, result); err != nil {
		utils.Logger.Warn("failed to set cache", zap.Error(err))
	}
	return result, nil
}
