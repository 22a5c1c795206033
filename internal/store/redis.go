package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Sahil21666x/KE-PersonasAI/internal/metrics"
	"github.com/Sahil21666x/KE-PersonasAI/internal/models"
)

const rosterTTL = 10 * time.Minute

// RedisStore handles Redis operations for roster caching. Its client is
// shared with the rate limiter.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return NewRedisStoreFromClient(client), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, ttl: rosterTTL}
}

// Client returns the underlying Redis client.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// rosterKey returns the key for a user's cached custom agents.
func rosterKey(userID string) string {
	return fmt.Sprintf("roster:%s:custom", userID)
}

// GetCustomAgents returns the cached custom agents of a user. The boolean
// is false on a cache miss.
func (s *RedisStore) GetCustomAgents(ctx context.Context, userID string) ([]models.CustomAgent, bool, error) {
	data, err := s.client.Get(ctx, rosterKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RosterCacheLookups.WithLabelValues("miss").Inc()
		return nil, false, nil
	}
	if err != nil {
		metrics.RosterCacheLookups.WithLabelValues("error").Inc()
		return nil, false, err
	}

	var agents []models.CustomAgent
	if err := json.Unmarshal(data, &agents); err != nil {
		metrics.RosterCacheLookups.WithLabelValues("error").Inc()
		return nil, false, fmt.Errorf("decode cached roster: %w", err)
	}
	metrics.RosterCacheLookups.WithLabelValues("hit").Inc()
	return agents, true, nil
}

// SetCustomAgents caches a user's custom agents.
func (s *RedisStore) SetCustomAgents(ctx context.Context, userID string, agents []models.CustomAgent) error {
	if agents == nil {
		agents = []models.CustomAgent{}
	}
	data, err := json.Marshal(agents)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, rosterKey(userID), data, s.ttl).Err()
}

// InvalidateCustomAgents drops a user's cached custom agents.
func (s *RedisStore) InvalidateCustomAgents(ctx context.Context, userID string) error {
	return s.client.Del(ctx, rosterKey(userID)).Err()
}
