package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	centralbank "github.com/wyfcoding/mortgagebank/internal/centralbank/domain"
	creditsupply "github.com/wyfcoding/mortgagebank/internal/creditsupply/domain"
	"github.com/wyfcoding/mortgagebank/internal/lending/domain"
	"github.com/wyfcoding/mortgagebank/pkg/metrics"
)

type MockMortgageRepository struct {
	mock.Mock
}

func (m *MockMortgageRepository) Save(ctx context.Context, a *domain.MortgageAgreement) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockMortgageRepository) MarkTerminated(ctx context.Context, id string, reason domain.TerminationReason) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

func (m *MockMortgageRepository) Get(ctx context.Context, id string) (*domain.MortgageAgreement, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MortgageAgreement), args.Error(1)
}

func (m *MockMortgageRepository) FindActive(ctx context.Context) ([]*domain.MortgageAgreement, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.MortgageAgreement), args.Error(1)
}

type MockStateRepository struct {
	mock.Mock
}

func (m *MockStateRepository) Save(ctx context.Context, s *domain.BankState) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockStateRepository) Load(ctx context.Context) (*domain.BankState, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BankState), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, eventType, key string, payload any) error {
	args := m.Called(ctx, eventType, key, payload)
	return args.Error(0)
}

type MockYield struct {
	mock.Mock
}

func (m *MockYield) Refresh(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type fixture struct {
	svc     *LendingService
	bank    *domain.Bank
	central *centralbank.Policy
	stats   *creditsupply.Collector
	repo    *MockMortgageRepository
	state   *MockStateRepository
	pub     *MockPublisher
	yield   *MockYield
	metrics *metrics.Metrics
}

func testParameters() domain.Parameters {
	return domain.Parameters{
		InitialRate:              0.03,
		CreditSupplyTarget:       380,
		FeedbackGain:             1e-7,
		AffordabilityCoefficient: 0.5,
		NPayments:                300,
		Policy: domain.LendingPolicy{
			FirstTimeBuyerLTV: 0.95,
			OwnerOccupierLTV:  0.9,
			BuyToLetLTV:       0.8,
			FirstTimeBuyerLTI: 6.0,
			OwnerOccupierLTI:  6.0,
		},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	central, err := centralbank.NewPolicy(centralbank.PolicyValues{
		BaseRate:              0.005,
		FirstTimeBuyerLTI:     4.5,
		OwnerOccupierLTI:      4.5,
		MaxFractionOverLTI:    0.15,
		BuyToLetInterestCover: 1.25,
	})
	require.NoError(t, err)

	stats := creditsupply.NewCollector(3, 0)
	bank, err := domain.NewBank(testParameters(), central, domain.FixedYield(0.05), stats, nil)
	require.NoError(t, err)

	f := &fixture{
		bank:    bank,
		central: central,
		stats:   stats,
		repo:    new(MockMortgageRepository),
		state:   new(MockStateRepository),
		pub:     new(MockPublisher),
		yield:   new(MockYield),
		metrics: metrics.New("test"),
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = NewLendingService(bank, central, f.repo, f.state, f.pub, stats, f.yield, f.metrics, log)
	return f
}

func loanCommand(id string, wealth, net, gross, price, down float64) LoanCommand {
	return LoanCommand{
		Borrower: BorrowerDTO{
			ID:                id,
			LiquidWealth:      decimal.NewFromFloat(wealth),
			MonthlyNetIncome:  decimal.NewFromFloat(net),
			AnnualGrossIncome: decimal.NewFromFloat(gross),
		},
		HousePrice:         decimal.NewFromFloat(price),
		DesiredDownPayment: decimal.NewFromFloat(down),
	}
}

func TestLendingService_Originate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.repo.On("Save", ctx, mock.AnythingOfType("*domain.MortgageAgreement")).Return(nil)
	f.pub.On("Publish", ctx, domain.MortgageOriginatedEventType, mock.Anything, mock.AnythingOfType("domain.MortgageOriginatedEvent")).Return(nil)

	dto, err := f.svc.Originate(ctx, loanCommand("hh-1", 100000, 5000, 60000, 200000, 20000))
	require.NoError(t, err)

	assert.False(t, dto.Void)
	assert.NotEmpty(t, dto.ID)
	assert.True(t, decimal.NewFromInt(180000).Equal(dto.Principal))
	assert.True(t, decimal.NewFromInt(20000).Equal(dto.DownPayment))
	assert.Equal(t, "home_mover", dto.Purpose)

	assert.Equal(t, 1, f.bank.Snapshot().OutstandingMortgages)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.OriginationsTotal.WithLabelValues("home_mover")))
	assert.Equal(t, 180000.0, testutil.ToFloat64(f.metrics.MonthlyVolume))
	f.repo.AssertExpectations(t)
	f.pub.AssertExpectations(t)
}

func TestLendingService_OriginateVoid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dto, err := f.svc.Originate(ctx, loanCommand("hh-2", 300000, 0, 0, 200000, 0))
	require.NoError(t, err)

	assert.True(t, dto.Void)
	assert.True(t, dto.Principal.IsZero())
	assert.Equal(t, 0, f.bank.Snapshot().OutstandingMortgages)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.VoidLoansTotal))
	f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	f.pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLendingService_OriginateInvariantViolation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Originate(context.Background(), loanCommand("hh-3", 5000, 5000, 60000, 200000, 0))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)

	var inv *domain.InvariantError
	require.ErrorAs(t, err, &inv)
	assert.InDelta(t, 20000, inv.DownPayment, 1e-6)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.InvariantViolationsTotal))
	assert.Equal(t, 0.0, f.bank.Snapshot().Counters.SupplyVolume)
	f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestLendingService_OriginatePersistenceFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.repo.On("Save", ctx, mock.Anything).Return(errors.New("connection refused"))
	f.pub.On("Publish", ctx, domain.MortgageOriginatedEventType, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	dto, err := f.svc.Originate(ctx, loanCommand("hh-4", 100000, 5000, 60000, 200000, 20000))
	require.NoError(t, err)
	assert.False(t, dto.Void)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PersistenceFailures))
	assert.Equal(t, 1, f.bank.Snapshot().OutstandingMortgages)
}

func TestLendingService_QuoteDoesNotCommit(t *testing.T) {
	f := newFixture(t)

	dto, err := f.svc.Quote(context.Background(), loanCommand("hh-5", 100000, 5000, 60000, 200000, 20000))
	require.NoError(t, err)
	assert.Empty(t, dto.ID)
	assert.True(t, decimal.NewFromInt(180000).Equal(dto.Principal))
	assert.Equal(t, 0, f.bank.Snapshot().OutstandingMortgages)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.QuotesTotal))

	_, err = f.svc.Quote(context.Background(), loanCommand("hh-5", 100000, 5000, 60000, 0, 0))
	assert.ErrorIs(t, err, domain.ErrInvalidHousePrice)
}

func TestLendingService_Step(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.yield.On("Refresh", ctx).Return(errors.New("redis unavailable"))
	f.state.On("Save", ctx, mock.AnythingOfType("*domain.BankState")).Return(nil)
	f.pub.On("Publish", ctx, domain.RateRecalculatedEventType, "1", mock.AnythingOfType("domain.RateRecalculatedEvent")).Return(nil)

	res, err := f.svc.Step(ctx, StepCommand{Population: 100})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Month)
	assert.InDelta(t, 38000, res.SupplyTarget, 1e-9)
	assert.InDelta(t, 0.0262, res.MortgageRate, 1e-12)
	assert.False(t, res.Clamped)
	assert.InDelta(t, 0.0262, testutil.ToFloat64(f.metrics.MortgageRate), 1e-12)

	state, err := f.svc.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, state.Population)
	assert.Equal(t, 1, state.Month)

	f.yield.AssertExpectations(t)
	f.state.AssertExpectations(t)
	f.pub.AssertExpectations(t)
}

func TestLendingService_StepRejectsNegativePopulation(t *testing.T) {
	f := newFixture(t)
	f.yield.On("Refresh", mock.Anything).Return(nil)

	_, err := f.svc.Step(context.Background(), StepCommand{Population: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidPopulation)
	f.state.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestLendingService_Terminate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.repo.On("Save", ctx, mock.Anything).Return(nil)
	f.repo.On("MarkTerminated", ctx, mock.Anything, domain.TerminationSale).Return(nil)
	f.pub.On("Publish", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	dto, err := f.svc.Originate(ctx, loanCommand("hh-6", 100000, 5000, 60000, 200000, 20000))
	require.NoError(t, err)

	tests := []struct {
		name    string
		cmd     TerminateCommand
		wantErr error
	}{
		{"invalid reason", TerminateCommand{ID: dto.ID, Reason: "FORECLOSURE"}, domain.ErrInvalidTerminationReason},
		{"unknown id", TerminateCommand{ID: "missing", Reason: "SALE"}, domain.ErrMortgageNotFound},
		{"sale", TerminateCommand{ID: dto.ID, Reason: "SALE"}, nil},
		{"already ended", TerminateCommand{ID: dto.ID, Reason: "SALE"}, domain.ErrMortgageNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.Terminate(ctx, tt.cmd)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, dto.ID, got.ID)
		})
	}

	assert.Equal(t, 0, f.bank.Snapshot().OutstandingMortgages)
	ind, err := f.svc.Indicators(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.0, ind.OutstandingOwnerOccupierCredit)
	f.repo.AssertCalled(t, "MarkTerminated", ctx, dto.ID, domain.TerminationSale)
}

func TestLendingService_MaxPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.svc.MaxPrice(ctx, MaxPriceQuery{Borrower: BorrowerDTO{
		ID:                "hh-7",
		LiquidWealth:      decimal.NewFromInt(20000),
		MonthlyNetIncome:  decimal.NewFromInt(5000),
		AnnualGrossIncome: decimal.NewFromInt(60000),
	}})
	require.NoError(t, err)
	assert.False(t, got.Unbounded)
	assert.True(t, got.MaxPrice.Equal(decimal.NewFromFloat(199999.9)), got.MaxPrice.String())

	f.state.On("Save", ctx, mock.Anything).Return(nil)
	f.pub.On("Publish", ctx, domain.PolicyUpdatedEventType, "bank", mock.Anything).Return(nil)
	policy := testParameters().Policy
	_, err = f.svc.UpdatePolicy(ctx, PolicyCommand{
		FirstTimeBuyerLTV: policy.FirstTimeBuyerLTV,
		OwnerOccupierLTV:  policy.OwnerOccupierLTV,
		BuyToLetLTV:       1.0,
		FirstTimeBuyerLTI: policy.FirstTimeBuyerLTI,
		OwnerOccupierLTI:  policy.OwnerOccupierLTI,
	})
	require.NoError(t, err)

	values := f.central.Values()
	values.BuyToLetInterestCover = 0
	_, err = f.svc.UpdateCentralBankPolicy(ctx, values)
	require.NoError(t, err)

	got, err = f.svc.MaxPrice(ctx, MaxPriceQuery{Borrower: BorrowerDTO{ID: "inv-1", LiquidWealth: decimal.NewFromInt(50000)}, BuyToLet: true})
	require.NoError(t, err)
	assert.True(t, got.Unbounded)
}

func TestLendingService_UpdatePolicyRejectsInvalid(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.UpdatePolicy(context.Background(), PolicyCommand{FirstTimeBuyerLTV: 1.2, OwnerOccupierLTV: 0.9, BuyToLetLTV: 0.8, FirstTimeBuyerLTI: 5, OwnerOccupierLTI: 5})
	assert.ErrorIs(t, err, domain.ErrInvalidPolicy)

	_, err = f.svc.UpdateCentralBankPolicy(context.Background(), centralbank.PolicyValues{BaseRate: -1})
	assert.ErrorIs(t, err, centralbank.ErrInvalidPolicy)
}

func TestLendingService_Restore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.state.On("Load", ctx).Return(&domain.BankState{
		Month:          4,
		InterestSpread: 0.02,
		SupplyTarget:   1000,
		Policy:         testParameters().Policy,
	}, nil)
	f.repo.On("FindActive", ctx).Return([]*domain.MortgageAgreement{
		{ID: "m-1", BorrowerID: "hh-1", Principal: 100000, PurchasePrice: 200000, AnnualGrossIncome: 40000},
	}, nil)

	require.NoError(t, f.svc.Restore(ctx))

	state, err := f.svc.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, state.Month)
	assert.InDelta(t, 0.025, state.MortgageRate, 1e-12)
	assert.Equal(t, 1, state.OutstandingMortgages)

	m, err := f.svc.Mortgage(ctx, "m-1")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100000).Equal(m.Principal))

	ind, err := f.svc.Indicators(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 100000, ind.OutstandingOwnerOccupierCredit, 1e-9)
	assert.InDelta(t, 2.0, ind.InterestRateSpread, 1e-12)
}

func TestLendingService_RestoreFailsOnStateError(t *testing.T) {
	f := newFixture(t)
	f.state.On("Load", mock.Anything).Return(nil, errors.New("timeout"))

	err := f.svc.Restore(context.Background())
	assert.ErrorContains(t, err, "load bank state")
	f.repo.AssertNotCalled(t, "FindActive", mock.Anything)
}
