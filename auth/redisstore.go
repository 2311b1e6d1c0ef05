package auth

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "quickbooks:credential:"

// RedisStore keeps credentials in redis, one key per tenant. No TTL: the
// lifecycle manager owns expiry, the store just persists.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Load(ctx context.Context, tenant string) (*Credential, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+tenant).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("decode credential: %w", err)
	}
	return &cred, nil
}

func (s *RedisStore) Save(ctx context.Context, tenant string, cred *Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+tenant, data, 0).Err(); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, tenant string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+tenant).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}
