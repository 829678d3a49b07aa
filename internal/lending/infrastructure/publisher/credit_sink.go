package publisher

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/wyfcoding/mortgagebank/internal/lending/domain"
)

const drainTimeout = 5 * time.Second

// AsyncCreditSink 将放贷流水异步发布。队列满时丢弃并告警，不阻塞审批。
type AsyncCreditSink struct {
	publisher domain.EventPublisher
	queue     chan domain.CreditRecordedEvent
	dropped   atomic.Int64
	logger    *slog.Logger
}

func NewAsyncCreditSink(publisher domain.EventPublisher, buffer int, logger *slog.Logger) *AsyncCreditSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &AsyncCreditSink{
		publisher: publisher,
		queue:     make(chan domain.CreditRecordedEvent, buffer),
		logger:    logger,
	}
}

func (s *AsyncCreditSink) RecordLoan(b domain.Borrower, m *domain.MortgageAgreement) {
	event := domain.CreditRecordedEvent{
		MortgageID:   m.ID,
		BorrowerID:   m.BorrowerID,
		Principal:    domain.Money(m.Principal),
		Purpose:      m.Purpose(),
		LoanToValue:  m.LoanToValue(),
		LoanToIncome: m.LoanToIncome(),
		Month:        m.Month,
		Timestamp:    m.CreatedAt,
	}
	if b != nil {
		event.LiquidWealth = domain.Money(b.BankBalance())
	}

	select {
	case s.queue <- event:
	default:
		n := s.dropped.Add(1)
		s.logger.Warn("credit sink queue full, dropping record", "mortgage_id", m.ID, "dropped", n)
	}
}

// Dropped 累计丢弃条数
func (s *AsyncCreditSink) Dropped() int64 {
	return s.dropped.Load()
}

// Run 持续发布直到 ctx 取消，退出前尽量清空队列
func (s *AsyncCreditSink) Run(ctx context.Context) error {
	for {
		select {
		case event := <-s.queue:
			s.publish(ctx, event)
		case <-ctx.Done():
			s.drain()
			return nil
		}
	}
}

func (s *AsyncCreditSink) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case event := <-s.queue:
			s.publish(ctx, event)
		default:
			return
		}
	}
}

func (s *AsyncCreditSink) publish(ctx context.Context, event domain.CreditRecordedEvent) {
	if err := s.publisher.Publish(ctx, domain.CreditRecordedEventType, event.MortgageID, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish credit record", "mortgage_id", event.MortgageID, "error", err)
	}
}
