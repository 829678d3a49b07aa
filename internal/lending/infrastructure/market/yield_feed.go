package market

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
)

// Store pkg/cache.RedisCache 的只读接口
type Store interface {
	Get(ctx context.Context, key string) (string, error)
}

// YieldFeed 租赁市场预期平均收益率。
// 读取走内存值，Refresh 在月度调整前从 Redis 拉取。
type YieldFeed struct {
	store Store
	key   string

	mu    sync.RWMutex
	yield float64
}

func NewYieldFeed(store Store, key string, initial float64) *YieldFeed {
	return &YieldFeed{store: store, key: key, yield: initial}
}

func (f *YieldFeed) ExpAvFlowYield() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.yield
}

// Refresh key 不存在时保留当前值
func (f *YieldFeed) Refresh(ctx context.Context) error {
	raw, err := f.store.Get(ctx, f.key)
	if err != nil {
		return fmt.Errorf("failed to read rental yield %s: %w", f.key, err)
	}
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("failed to parse rental yield %q: %w", raw, err)
	}
	return f.Set(v)
}

func (f *YieldFeed) Set(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fmt.Errorf("invalid rental yield %v", v)
	}
	f.mu.Lock()
	f.yield = v
	f.mu.Unlock()
	return nil
}
