package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/constants"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/models"
)

// RedisCache keeps a bounded list of the most recent swaps
type RedisCache struct {
	client   redis.UniversalClient
	maxItems int64
}

func NewRedisCache(client redis.UniversalClient) (*RedisCache, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &RedisCache{
		client:   client,
		maxItems: constants.MaxRecentSwaps,
	}, nil
}

func (r *RedisCache) AddRecentSwap(ctx context.Context, swap *models.SwapEvent) error {
	data, err := json.Marshal(swap)
	if err != nil {
		return fmt.Errorf("marshal swap: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, constants.RedisKeyRecentSwaps, data)
	pipe.LTrim(ctx, constants.RedisKeyRecentSwaps, 0, r.maxItems-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("add recent swap: %w", err)
	}
	return nil
}

func (r *RedisCache) GetRecentSwaps(ctx context.Context, limit int64) ([]*models.SwapEvent, error) {
	if limit <= 0 || limit > r.maxItems {
		limit = r.maxItems
	}

	vals, err := r.client.LRange(ctx, constants.RedisKeyRecentSwaps, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("get recent swaps: %w", err)
	}

	out := make([]*models.SwapEvent, 0, len(vals))
	for _, v := range vals {
		var swap models.SwapEvent
		if err := json.Unmarshal([]byte(v), &swap); err != nil {
			continue
		}
		out = append(out, &swap)
	}
	return out, nil
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
