package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wyfcoding/mortgagebank/internal/lending/domain"
)

// StateRedisRepository 银行状态快照，单键存储
type StateRedisRepository struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewStateRedisRepository ttl 为 0 表示不过期
func NewStateRedisRepository(client redis.UniversalClient, prefix string, ttl time.Duration) *StateRedisRepository {
	if prefix == "" {
		prefix = "lending:bank:"
	}
	return &StateRedisRepository{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (r *StateRedisRepository) Save(ctx context.Context, s *domain.BankState) error {
	if s == nil {
		return nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal bank state: %w", err)
	}
	return r.client.Set(ctx, r.key(), data, r.ttl).Err()
}

func (r *StateRedisRepository) Load(ctx context.Context) (*domain.BankState, error) {
	data, err := r.client.Get(ctx, r.key()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get bank state from redis: %w", err)
	}
	var s domain.BankState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bank state: %w", err)
	}
	return &s, nil
}

func (r *StateRedisRepository) key() string {
	return r.prefix + "state"
}
