package credstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"bookworm/pkg/domain"
)

const redisOpTimeout = 3 * time.Second

// RedisStore keeps the credential blob under one Redis key. Useful when the
// client runs on a host that already shares a Redis with other tooling.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisStore builds a Redis-backed credential store. A zero TTL keeps the
// blob until logout.
func NewRedisStore(addr, password, key string, ttl time.Duration) *RedisStore {
	if key == "" {
		key = "bookworm:credentials"
	}
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		key: key,
		ttl: ttl,
	}
}

func (s *RedisStore) Read(ctx context.Context) (domain.Credentials, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	val, err := s.client.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return domain.Credentials{}, false, nil
	}
	if err != nil {
		return domain.Credentials{}, false, err
	}
	var creds domain.Credentials
	if err := json.Unmarshal(val, &creds); err != nil {
		return domain.Credentials{}, false, err
	}
	return creds, true, nil
}

func (s *RedisStore) Write(ctx context.Context, creds domain.Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	return s.client.Set(ctx, s.key, data, s.ttl).Err()
}

func (s *RedisStore) Clear(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	if err := s.client.Del(ctx, s.key).Err(); err != nil && err != redis.Nil {
		return err
	}
	return nil
}
