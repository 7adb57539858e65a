package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"polcomp/internal/model"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// AveragesCache holds the published identity-average table.
type AveragesCache interface {
	GetAverages(ctx context.Context) (*model.IdentityAverages, error)
	SetAverages(ctx context.Context, averages *model.IdentityAverages) error
}

// CountCache holds per-filterset counts for a filter batch.
type CountCache interface {
	GetCounts(ctx context.Context, batch model.FilterBatch) (map[int]int, error)
	SetCounts(ctx context.Context, batch model.FilterBatch, counts map[int]int) error
}

// AnalyticsCache combines both caches over one Redis client.
type AnalyticsCache interface {
	AveragesCache
	CountCache
}

type analyticsCache struct {
	client      *redis.Client
	averagesTTL time.Duration
	countsTTL   time.Duration
}

// NewAnalyticsCache creates the Redis-backed averages and counts cache.
func NewAnalyticsCache(client *redis.Client, averagesTTL, countsTTL time.Duration) AnalyticsCache {
	return &analyticsCache{
		client:      client,
		averagesTTL: averagesTTL,
		countsTTL:   countsTTL,
	}
}

// Key helpers
func (c *analyticsCache) averagesKey() string {
	return "polcomp:identity_averages"
}

func (c *analyticsCache) countsKey(batch model.FilterBatch) (string, error) {
	digest, err := BatchDigest(batch)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("polcomp:counts:%s", digest), nil
}

// BatchDigest hashes the parts of a batch that affect counts. Order does
// not change a count, so it is left out.
func BatchDigest(batch model.FilterBatch) (string, error) {
	batch.Order = ""
	data, err := json.Marshal(batch)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func (c *analyticsCache) GetAverages(ctx context.Context) (*model.IdentityAverages, error) {
	data, err := c.client.Get(ctx, c.averagesKey()).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var averages model.IdentityAverages
	if err := json.Unmarshal([]byte(data), &averages); err != nil {
		return nil, err
	}
	return &averages, nil
}

func (c *analyticsCache) SetAverages(ctx context.Context, averages *model.IdentityAverages) error {
	data, err := json.Marshal(averages)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.averagesKey(), data, c.averagesTTL).Err()
}

func (c *analyticsCache) GetCounts(ctx context.Context, batch model.FilterBatch) (map[int]int, error) {
	key, err := c.countsKey(batch)
	if err != nil {
		return nil, err
	}
	fields, err := c.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) != len(batch.Filtersets) {
		return nil, nil
	}

	counts := make(map[int]int, len(fields))
	for k, v := range fields {
		idx, err := strconv.Atoi(k)
		if err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, err
		}
		counts[idx] = n
	}
	return counts, nil
}

func (c *analyticsCache) SetCounts(ctx context.Context, batch model.FilterBatch, counts map[int]int) error {
	key, err := c.countsKey(batch)
	if err != nil {
		return err
	}
	values := make(map[string]interface{}, len(counts))
	for idx, n := range counts {
		values[strconv.Itoa(idx)] = n
	}

	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, values)
	pipe.Expire(ctx, key, c.countsTTL)
	_, err = pipe.Exec(ctx)
	return err
}
