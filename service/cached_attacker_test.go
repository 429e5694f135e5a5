package service

import (
	"context"
	"errors"
	"testing"

	"github.com/TIANLI0/AttackLens/model"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	entries map[string]*model.AttackResult
	getErr  error
}

func (m *memoryCache) GetAttackResult(_ context.Context, key string) (*model.AttackResult, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.entries[key], nil
}

func (m *memoryCache) SetAttackResult(_ context.Context, key string, result *model.AttackResult) error {
	m.entries[key] = result
	return nil
}

type countingAttacker struct {
	calls  int
	result *model.AttackResult
	err    error
}

func (c *countingAttacker) Attack(context.Context, model.AttackRequest) (*model.AttackResult, error) {
	c.calls++
	return c.result, c.err
}

func TestCacheKey(t *testing.T) {
	a := CacheKey(model.AttackRequest{Image: []byte("abc"), Epsilon: 0.07})
	assert.Equal(t, "900150983cd24fb0d6963f7d28e17f72:0.07", a)

	b := CacheKey(model.AttackRequest{Image: []byte("abc"), Epsilon: 0.08})
	assert.NotEqual(t, a, b)
}

func TestCachedAttackerHitAndMiss(t *testing.T) {
	cache := &memoryCache{entries: map[string]*model.AttackResult{}}
	next := &countingAttacker{result: &model.AttackResult{CleanPrediction: "7"}}
	attacker := NewCachedAttacker(next, cache)
	req := model.AttackRequest{Image: pngBytes, Epsilon: 0.1}

	hits := testutil.ToFloat64(cacheLookups.WithLabelValues("hit"))
	misses := testutil.ToFloat64(cacheLookups.WithLabelValues("miss"))

	first, err := attacker.Attack(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, misses+1, testutil.ToFloat64(cacheLookups.WithLabelValues("miss")))
	assert.Equal(t, hits, testutil.ToFloat64(cacheLookups.WithLabelValues("hit")))

	second, err := attacker.Attack(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, hits+1, testutil.ToFloat64(cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, misses+1, testutil.ToFloat64(cacheLookups.WithLabelValues("miss")))

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, first, second)

	req.Epsilon = 0.2
	_, err = attacker.Attack(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestCachedAttackerDoesNotCacheErrors(t *testing.T) {
	cache := &memoryCache{entries: map[string]*model.AttackResult{}}
	next := &countingAttacker{err: &StatusError{Code: 502}}
	attacker := NewCachedAttacker(next, cache)

	_, err := attacker.Attack(context.Background(), model.AttackRequest{Image: pngBytes})
	require.Error(t, err)
	assert.Empty(t, cache.entries)
}

func TestCachedAttackerFallsThroughOnCacheError(t *testing.T) {
	cache := &memoryCache{entries: map[string]*model.AttackResult{}, getErr: errors.New("connection refused")}
	next := &countingAttacker{result: &model.AttackResult{CleanPrediction: "1"}}
	attacker := NewCachedAttacker(next, cache)

	result, err := attacker.Attack(context.Background(), model.AttackRequest{Image: pngBytes})
	require.NoError(t, err)
	assert.Equal(t, "1", result.CleanPrediction)
	assert.Equal(t, 1, next.calls)
}
