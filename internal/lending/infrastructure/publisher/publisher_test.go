package publisher

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/mortgagebank/internal/lending/domain"
)

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) SendMessage(ctx context.Context, topic, key string, value any, headers map[string]string) error {
	args := m.Called(ctx, topic, key, value, headers)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, eventType, key string, payload any) error {
	args := m.Called(ctx, eventType, key, payload)
	return args.Error(0)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestKafkaEventPublisher(t *testing.T) {
	p := new(MockProducer)
	p.On("SendMessage", mock.Anything, "lending.events", "m-1", "payload",
		map[string]string{"event_type": domain.MortgageOriginatedEventType}).Return(nil)

	pub := NewKafkaEventPublisher(p, "lending.events")
	require.NoError(t, pub.Publish(context.Background(), domain.MortgageOriginatedEventType, "m-1", "payload"))
	p.AssertExpectations(t)
}

func TestAsyncCreditSink_DropsWhenFull(t *testing.T) {
	pub := new(MockPublisher)
	sink := NewAsyncCreditSink(pub, 1, discardLogger())

	borrower := domain.BorrowerSnapshot{BorrowerID: "hh-1", LiquidWealth: 1000}
	sink.RecordLoan(borrower, &domain.MortgageAgreement{ID: "m-1", Principal: 100})
	sink.RecordLoan(borrower, &domain.MortgageAgreement{ID: "m-2", Principal: 200})

	assert.Equal(t, int64(1), sink.Dropped())
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAsyncCreditSink_Run(t *testing.T) {
	pub := new(MockPublisher)
	done := make(chan struct{})
	pub.On("Publish", mock.Anything, domain.CreditRecordedEventType, "m-1", mock.MatchedBy(func(e domain.CreditRecordedEvent) bool {
		return e.Principal == "100.00" && e.LiquidWealth == "1000.00" && e.Purpose == "home_mover"
	})).Return(nil).Run(func(mock.Arguments) { close(done) }).Once()

	sink := NewAsyncCreditSink(pub, 4, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- sink.Run(ctx) }()

	sink.RecordLoan(domain.BorrowerSnapshot{BorrowerID: "hh-1", LiquidWealth: 1000}, &domain.MortgageAgreement{ID: "m-1", BorrowerID: "hh-1", Principal: 100})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("credit record was not published")
	}
	cancel()
	require.NoError(t, <-errCh)
	pub.AssertExpectations(t)
}
