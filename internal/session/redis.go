package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "voicegate:session:"

// RedisStore keeps every session as a Redis list of JSON-encoded turns.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore connects to addr and verifies the connection
func NewRedisStore(addr string) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{rdb: rdb}, nil
}

func (s *RedisStore) Turns(ctx context.Context, id string) ([]Turn, error) {
	if id == "" {
		return nil, ErrEmptyID
	}

	vals, err := s.rdb.LRange(ctx, redisKeyPrefix+id, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange failed: %w", err)
	}

	turns := make([]Turn, 0, len(vals))
	for _, v := range vals {
		var t Turn
		if err := json.Unmarshal([]byte(v), &t); err != nil {
			return nil, fmt.Errorf("failed to decode turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

func (s *RedisStore) Append(ctx context.Context, id string, turn Turn) error {
	if id == "" {
		return ErrEmptyID
	}

	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to encode turn: %w", err)
	}
	if err := s.rdb.RPush(ctx, redisKeyPrefix+id, data).Err(); err != nil {
		return fmt.Errorf("rpush failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
