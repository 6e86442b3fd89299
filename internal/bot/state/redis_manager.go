package state

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisManager keeps conversation state in Redis so a restart does not
// drop users out of their current prompt.
type RedisManager struct {
	client *redis.Client
}

// NewRedisManager connects to Redis and verifies the connection.
func NewRedisManager(redisHost, redisPort string) (*RedisManager, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", redisHost, redisPort),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisManager{client: client}, nil
}

// SetUserState sets the state for a user. Stale states expire after a
// day so abandoned conversations clean themselves up.
func (m *RedisManager) SetUserState(userID int64, state string) {
	ctx := context.Background()
	key := fmt.Sprintf("user:%d:state", userID)
	m.client.Set(ctx, key, state, 24*time.Hour)
}

// GetUserState gets the state for a user.
func (m *RedisManager) GetUserState(userID int64) string {
	ctx := context.Background()
	key := fmt.Sprintf("user:%d:state", userID)
	result := m.client.Get(ctx, key)
	if result.Err() != nil {
		return None
	}
	return result.Val()
}

// ClearUserState clears the state for a user.
func (m *RedisManager) ClearUserState(userID int64) {
	ctx := context.Background()
	key := fmt.Sprintf("user:%d:state", userID)
	m.client.Del(ctx, key)
}
