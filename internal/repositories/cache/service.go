package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"vaultledger/internal/models"
)

type CacheService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCacheService(client *redis.Client, defaultTTL time.Duration) *CacheService {
	return &CacheService{
		client: client,
		ttl:    defaultTTL,
	}
}

// Base operations
func (s *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	return s.SetWithTTL(ctx, key, value, s.ttl)
}

func (s *CacheService) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache value: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

// Key generation
func (s *CacheService) GenerateKey(entityType, keyType string, value interface{}) string {
	return fmt.Sprintf("%s:%s:%v", entityType, keyType, value)
}

// Account snapshots live for AccountTTL. Invalidation leaves a tombstone for
// AccountTombstoneTTL, and fills only land on an empty key, so a reader that
// loaded an account before a write cannot put it back after the write.
const (
	AccountTTL          = time.Minute
	AccountTombstoneTTL = 5 * time.Second
	accountTombstone    = "-"
)

// CacheAccount stores the snapshot unless the key is already held by a
// newer snapshot or a tombstone.
func (s *CacheService) CacheAccount(ctx context.Context, account *models.Account) error {
	if account == nil {
		return errors.New("cannot cache nil account")
	}
	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	key := s.GenerateKey("account", "id", account.ID)
	return s.client.SetNX(ctx, key, data, s.accountTTL()).Err()
}

// GetAccount returns nil, nil on a cache miss or a tombstone.
func (s *CacheService) GetAccount(ctx context.Context, id uint) (*models.Account, error) {
	data, err := s.client.Get(ctx, s.GenerateKey("account", "id", id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cache value: %w", err)
	}
	if string(data) == accountTombstone {
		return nil, nil
	}

	var account models.Account
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	account.EnsureMappings()
	return &account, nil
}

func (s *CacheService) InvalidateAccount(ctx context.Context, id uint) error {
	return s.client.Set(ctx, s.GenerateKey("account", "id", id), accountTombstone, AccountTombstoneTTL).Err()
}

func (s *CacheService) accountTTL() time.Duration {
	if s.ttl > 0 && s.ttl < AccountTTL {
		return s.ttl
	}
	return AccountTTL
}

// FlushAll flushes all keys from the cache
func (s *CacheService) FlushAll(ctx context.Context) error {
	return s.client.FlushAll(ctx).Err()
}

// Close closes the Redis client connection
func (s *CacheService) Close() error {
	return s.client.Close()
}
