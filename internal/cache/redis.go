package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"zubi/internal/models"
	"zubi/internal/repository"
)

type RedisClient struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient connects to redisURL. A zero ttl keeps conversations forever.
func NewRedisClient(ctx context.Context, redisURL string, ttl time.Duration) (*RedisClient, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	// Test connection
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisClientFrom(client, ttl), nil
}

// NewRedisClientFrom wraps an existing client.
func NewRedisClientFrom(client *redis.Client, ttl time.Duration) *RedisClient {
	return &RedisClient{client: client, ttl: ttl}
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}

func conversationKey(phone string) string {
	return fmt.Sprintf("conversation:%s", phone)
}

// Find implements repository.ConversationRepository.
func (r *RedisClient) Find(ctx context.Context, phone string) (*models.Conversation, error) {
	data, err := r.client.Get(ctx, conversationKey(phone)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrConversationNotFound
		}
		return nil, fmt.Errorf("failed to get conversation from Redis: %w", err)
	}
	return repository.Decode(data)
}

func (r *RedisClient) Save(ctx context.Context, conv *models.Conversation) error {
	data, err := repository.Encode(conv)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, conversationKey(conv.Phone), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store conversation in Redis: %w", err)
	}
	return nil
}

func (r *RedisClient) Delete(ctx context.Context, phone string) error {
	return r.client.Del(ctx, conversationKey(phone)).Err()
}

// GetStatus reports pool statistics for the health endpoint.
func (r *RedisClient) GetStatus(ctx context.Context) (map[string]interface{}, error) {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	stats := r.client.PoolStats()

	return map[string]interface{}{
		"connected":    true,
		"hits":         stats.Hits,
		"misses":       stats.Misses,
		"active_conns": stats.TotalConns,
	}, nil
}
