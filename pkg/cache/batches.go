package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"gitlab.connectwisedev.com/paint-service/models"
)

const allBatchIDsKey = "all_batch_ids"

// ErrMiss means the listing must be read from the database
var ErrMiss = errors.New("batch cache miss")

// BatchCache is a read-through copy of the batches table. It never holds the
// only copy of anything; every write to the table invalidates it
type BatchCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewBatchCache returns a BatchCache storing entries for ttl
func NewBatchCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *BatchCache {
	return &BatchCache{client: client, ttl: ttl, logger: logger}
}

func batchKey(id string) string {
	return fmt.Sprintf("batch:%s", id)
}

// Load returns the cached batches ordered by id, or ErrMiss
func (c *BatchCache) Load(ctx context.Context) ([]models.Batch, error) {
	ids, err := c.client.SMembers(ctx, allBatchIDsKey).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to get %s from Redis: %w", allBatchIDsKey, err)
	}
	if len(ids) == 0 {
		return nil, ErrMiss
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = batchKey(id)
	}

	results, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to MGET batches from Redis: %w", err)
	}

	batches := make([]models.Batch, 0, len(results))
	for _, res := range results {
		if res == nil {
			// Evicted or expired; a partial listing is a miss
			return nil, ErrMiss
		}
		raw, ok := res.(string)
		if !ok {
			c.logger.Warn("unexpected type from Redis MGET", zap.String("type", fmt.Sprintf("%T", res)))
			return nil, ErrMiss
		}
		var b models.Batch
		if err := json.Unmarshal([]byte(raw), &b); err != nil {
			c.logger.Warn("failed to unmarshal cached batch", zap.Error(err))
			return nil, ErrMiss
		}
		batches = append(batches, b)
	}

	sort.Slice(batches, func(i, j int) bool { return batches[i].ID < batches[j].ID })
	return batches, nil
}

// Populate replaces the cached listing with batches
func (c *BatchCache) Populate(ctx context.Context, batches []models.Batch) error {
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, allBatchIDsKey)

	ids := make([]interface{}, 0, len(batches))
	for _, b := range batches {
		raw, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("failed to marshal batch %d for cache: %w", b.ID, err)
		}
		id := strconv.FormatInt(b.ID, 10)
		pipe.Set(ctx, batchKey(id), raw, c.ttl)
		ids = append(ids, id)
	}
	if len(ids) > 0 {
		pipe.SAdd(ctx, allBatchIDsKey, ids...)
		pipe.Expire(ctx, allBatchIDsKey, c.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to execute Redis pipeline for cache population: %w", err)
	}
	c.logger.Debug("batch cache populated", zap.Int("batches", len(batches)))
	return nil
}

// Invalidate drops the listing so the next read goes to the database
func (c *BatchCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, allBatchIDsKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate batch cache: %w", err)
	}
	return nil
}
