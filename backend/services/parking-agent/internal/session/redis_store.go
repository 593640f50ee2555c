package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the record in redis with a TTL matching the token expiry.
type RedisStore struct {
	client *redis.Client
	key    string
	now    func() time.Time
}

// NewRedisStore returns redis-backed store.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = "parking-agent:session"
	}
	return &RedisStore{client: client, key: key, now: time.Now}
}

// Load returns the cached record.
func (s *RedisStore) Load(ctx context.Context) (*Record, error) {
	result, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoRecord
		}
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal([]byte(result), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Save caches the record until the token expires. An already expired record
// is removed instead.
func (s *RedisStore) Save(ctx context.Context, rec Record) error {
	ttl := time.Unix(rec.Exp, 0).Sub(s.now())
	if ttl <= 0 {
		return s.client.Del(ctx, s.key).Err()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key, data, ttl).Err()
}
