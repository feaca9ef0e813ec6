package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisDialTimeout = 5 * time.Second

// Redis wraps the Redis client used for rate limiting.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to Redis and verifies the connection before returning.
func NewRedis(addr, password string, db int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Redis{Client: client}, nil
}

// Close closes the Redis connection
func (r *Redis) Close() error {
	return r.Client.Close()
}

// Ping checks if Redis is available
func (r *Redis) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}
