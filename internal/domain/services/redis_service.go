package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"estatehub-http-service/internal/infrastructure/config"
)

// ErrCacheMiss is returned by Get when the key does not exist
var ErrCacheMiss = errors.New("cache miss")

// InterfaceRedisService defines the Redis service interface
type InterfaceRedisService interface {
	Set(key string, value interface{}, expiration time.Duration) error
	Get(key string, dest interface{}) error
	Delete(keys ...string) error
	SetRaw(key string, value []byte, expiration time.Duration) error
	GetRaw(key string) ([]byte, error)
	SetNX(key string, value interface{}, expiration time.Duration) (bool, error)
	DeleteByPrefix(prefix string) error
	Ping(ctx context.Context) error
}

// RedisService handles Redis operations
type RedisService struct {
	Client *redis.Client
	Ctx    context.Context
}

// NewRedisService creates a new Redis service
func NewRedisService(cfg *config.Config) InterfaceRedisService {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return NewRedisServiceWithClient(client)
}

// NewRedisServiceWithClient wraps an existing client
func NewRedisServiceWithClient(client *redis.Client) InterfaceRedisService {
	return &RedisService{
		Client: client,
		Ctx:    context.Background(),
	}
}

// 1 Set stores value as JSON with expiration
func (s *RedisService) Set(key string, value interface{}, expiration time.Duration) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.Client.Set(s.Ctx, key, jsonValue, expiration).Err()
}

// 2 Get decodes the JSON value stored at key into dest
func (s *RedisService) Get(key string, dest interface{}) error {
	val, err := s.GetRaw(key)
	if err != nil {
		return err
	}
	return json.Unmarshal(val, dest)
}

// 3 Delete deletes keys
func (s *RedisService) Delete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.Client.Del(s.Ctx, keys...).Err()
}

// 4 SetRaw stores bytes as-is
func (s *RedisService) SetRaw(key string, value []byte, expiration time.Duration) error {
	return s.Client.Set(s.Ctx, key, value, expiration).Err()
}

// 5 GetRaw returns the bytes stored at key or ErrCacheMiss
func (s *RedisService) GetRaw(key string) ([]byte, error) {
	val, err := s.Client.Get(s.Ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return val, err
}

// 6 SetNX sets key only when absent, reporting whether it was set
func (s *RedisService) SetNX(key string, value interface{}, expiration time.Duration) (bool, error) {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	return s.Client.SetNX(s.Ctx, key, jsonValue, expiration).Result()
}

// 7 DeleteByPrefix removes every key starting with prefix
func (s *RedisService) DeleteByPrefix(prefix string) error {
	iter := s.Client.Scan(s.Ctx, 0, prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(s.Ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return s.Delete(keys...)
}

// 8 Ping checks the connection
func (s *RedisService) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx).Err()
}
