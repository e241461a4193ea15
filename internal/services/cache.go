package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/temcen/sage/pkg/models"
)

// ResultCache stores rendered recommendation responses. Keys embed the
// snapshot version, so a rebuild never serves stale entries.
type ResultCache interface {
	Get(ctx context.Context, key string) (*models.RecommendationResponse, bool)
	Set(ctx context.Context, key string, resp *models.RecommendationResponse)
}

// RedisResultCache is a ResultCache backed by Redis. Failures are logged and
// treated as misses; a circuit breaker stops calling Redis while it is down.
type RedisResultCache struct {
	client  *redis.Client
	ttl     time.Duration
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  *logrus.Logger
}

func NewRedisResultCache(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisResultCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	settings := gobreaker.Settings{
		Name:        "redis-result-cache",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Result cache circuit breaker state changed")
		},
	}

	return &RedisResultCache{
		client:  client,
		ttl:     ttl,
		breaker: gobreaker.NewCircuitBreaker[[]byte](settings),
		logger:  logger,
	}
}

func (c *RedisResultCache) Get(ctx context.Context, key string) (*models.RecommendationResponse, bool) {
	data, err := c.breaker.Execute(func() ([]byte, error) {
		data, err := c.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return data, err
	})
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Debug("Result cache read failed")
		return nil, false
	}
	if data == nil {
		return nil, false
	}

	var resp models.RecommendationResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Discarding corrupt cache entry")
		return nil, false
	}
	return &resp, true
}

func (c *RedisResultCache) Set(ctx context.Context, key string, resp *models.RecommendationResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to marshal recommendation for cache")
		return
	}

	_, err = c.breaker.Execute(func() ([]byte, error) {
		return nil, c.client.Set(ctx, key, data, c.ttl).Err()
	})
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Debug("Result cache write failed")
	}
}

// itemCacheKey and userCacheKey scope entries to one snapshot.
func itemCacheKey(snapshot, itemID, method string, topN int) string {
	return fmt.Sprintf("reco:%s:item:%s:%s:%d", snapshot, itemID, method, topN)
}

func userCacheKey(snapshot, userID string, topN int, excludeSeen bool) string {
	return fmt.Sprintf("reco:%s:user:%s:%d:%t", snapshot, userID, topN, excludeSeen)
}
