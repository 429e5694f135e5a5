package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/TIANLI0/AttackLens/config"
	"github.com/TIANLI0/AttackLens/model"
	"github.com/TIANLI0/AttackLens/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const resultKeyPrefix = "attack:"

type RedisService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisService(cfg *config.RedisConfig) *RedisService {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &RedisService{
		client: client,
		ttl:    cfg.TTL,
	}
}

func (s *RedisService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// GetAttackResult returns the cached result for key, or nil on a miss.
func (s *RedisService) GetAttackResult(ctx context.Context, key string) (*model.AttackResult, error) {
	data, err := s.client.Get(ctx, resultKeyPrefix+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var result model.AttackResult
	if err := json.Unmarshal(data, &result); err != nil {
		utils.Logger.Error("failed to unmarshal attack result",
			zap.String("key", key), zap.Error(err))
		return nil, err
	}

	return &result, nil
}

// SetAttackResult stores result under key with the configured TTL.
func (s *RedisService) SetAttackResult(ctx context.Context, key string, result *model.AttackResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, resultKeyPrefix+key, data, s.ttl).Err()
}

func (s *RedisService) Close() error {
	return s.client.Close()
}
