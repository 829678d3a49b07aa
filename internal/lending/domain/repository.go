package domain

import "context"

// MortgageRepository 按揭合同持久化
type MortgageRepository interface {
	Save(ctx context.Context, m *MortgageAgreement) error
	MarkTerminated(ctx context.Context, id string, reason TerminationReason) error
	Get(ctx context.Context, id string) (*MortgageAgreement, error)
	FindActive(ctx context.Context) ([]*MortgageAgreement, error)
}

// StateRepository 银行状态快照存储，不存在时返回 nil, nil
type StateRepository interface {
	Save(ctx context.Context, s *BankState) error
	Load(ctx context.Context) (*BankState, error)
}

// EventPublisher 领域事件发布
type EventPublisher interface {
	Publish(ctx context.Context, eventType, key string, payload any) error
}
