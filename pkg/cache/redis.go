// Package cache 提供 Redis 客户端封装
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wyfcoding/mortgagebank/pkg/logger"
)

// Config Redis 配置
type Config struct {
	Host         string
	Port         int
	Password     string
	DB           int
	MaxPoolSize  int
	ConnTimeout  int
	ReadTimeout  int
	WriteTimeout int
}

// RedisCache Redis 缓存实现
type RedisCache struct {
	client redis.UniversalClient
}

// New 创建 Redis 缓存实例并检查连通性
func New(ctx context.Context, cfg Config) (*RedisCache, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.MaxPoolSize,
		DialTimeout:  time.Duration(cfg.ConnTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info(ctx, "Redis connected successfully", "addr", addr)
	return &RedisCache{client: client}, nil
}

// NewFromClient 包装已有客户端
func NewFromClient(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client}
}

// Client 返回底层客户端
func (rc *RedisCache) Client() redis.UniversalClient {
	return rc.client
}

// Get 获取缓存值，key 不存在时返回空串
func (rc *RedisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := rc.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		logger.Error(ctx, "Redis Get failed", "key", key, "error", err)
		return "", err
	}
	return val, nil
}

// Set 设置缓存值
func (rc *RedisCache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	if err := rc.client.Set(ctx, key, value, expiration).Err(); err != nil {
		logger.Error(ctx, "Redis Set failed", "key", key, "error", err)
		return err
	}
	return nil
}

// Close 关闭连接
func (rc *RedisCache) Close() error {
	return rc.client.Close()
}
