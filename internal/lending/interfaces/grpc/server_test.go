package grpc

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	centralbank "github.com/wyfcoding/mortgagebank/internal/centralbank/domain"
	creditsupply "github.com/wyfcoding/mortgagebank/internal/creditsupply/domain"
	"github.com/wyfcoding/mortgagebank/internal/lending/application"
	"github.com/wyfcoding/mortgagebank/internal/lending/domain"
	"github.com/wyfcoding/mortgagebank/pkg/grpcclient"
	"github.com/wyfcoding/mortgagebank/pkg/metrics"
	"github.com/wyfcoding/mortgagebank/pkg/middleware"
)

type nopMortgageRepo struct{}

func (nopMortgageRepo) Save(context.Context, *domain.MortgageAgreement) error { return nil }
func (nopMortgageRepo) MarkTerminated(context.Context, string, domain.TerminationReason) error {
	return nil
}
func (nopMortgageRepo) Get(context.Context, string) (*domain.MortgageAgreement, error) {
	return nil, domain.ErrMortgageNotFound
}
func (nopMortgageRepo) FindActive(context.Context) ([]*domain.MortgageAgreement, error) {
	return nil, nil
}

type nopStateRepo struct{}

func (nopStateRepo) Save(context.Context, *domain.BankState) error   { return nil }
func (nopStateRepo) Load(context.Context) (*domain.BankState, error) { return nil, nil }

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, string, any) error { return nil }

func newTestClient(t *testing.T) (*Client, *metrics.Metrics) {
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
	bank, err := domain.NewBank(domain.Parameters{
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
	}, central, domain.FixedYield(0.05), stats, nil)
	require.NoError(t, err)

	m := metrics.New("test")
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := application.NewLendingService(bank, central, nopMortgageRepo{}, nopStateRepo{}, nopPublisher{}, stats, nil, m, log)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		middleware.GRPCRecoveryInterceptor(),
		middleware.GRPCMetricsInterceptor(m),
	))
	RegisterLendingServer(srv, NewServer(svc))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	client, conn, err := Dial(grpcclient.ClientConfig{Target: "passthrough:///bufnet", RequestTimeout: 5},
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return client, m
}

func borrower(wealth float64) application.BorrowerDTO {
	return application.BorrowerDTO{
		ID:                "hh-1",
		LiquidWealth:      decimal.NewFromFloat(wealth),
		MonthlyNetIncome:  decimal.NewFromInt(5000),
		AnnualGrossIncome: decimal.NewFromInt(60000),
	}
}

func TestServer_QuoteAndOriginate(t *testing.T) {
	client, m := newTestClient(t)
	ctx := context.Background()

	req := &application.LoanCommand{
		Borrower:           borrower(100000),
		HousePrice:         decimal.NewFromInt(200000),
		DesiredDownPayment: decimal.NewFromInt(20000),
	}

	quote, err := client.Quote(ctx, req)
	require.NoError(t, err)
	assert.Empty(t, quote.ID)
	assert.True(t, decimal.NewFromInt(180000).Equal(quote.Principal))

	loan, err := client.Originate(ctx, req)
	require.NoError(t, err)
	assert.NotEmpty(t, loan.ID)
	assert.False(t, loan.Void)

	price, err := client.MaxPrice(ctx, &application.MaxPriceQuery{Borrower: borrower(20000)})
	require.NoError(t, err)
	assert.False(t, price.Unbounded)
	assert.True(t, price.MaxPrice.IsPositive())

	res, err := client.Step(ctx, &application.StepCommand{Population: 100})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Month)
	assert.InDelta(t, 180000, res.RealisedVolume, 1e-6)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.GRPCRequestsTotal.WithLabelValues("/"+ServiceName+"/Quote", "OK")))
}

func TestServer_ErrorCodes(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
		want codes.Code
	}{
		{"missing borrower id", func() error {
			_, err := client.Quote(ctx, &application.LoanCommand{HousePrice: decimal.NewFromInt(1000)})
			return err
		}, codes.InvalidArgument},
		{"invalid house price", func() error {
			_, err := client.Quote(ctx, &application.LoanCommand{Borrower: borrower(1000)})
			return err
		}, codes.InvalidArgument},
		{"invariant violation", func() error {
			_, err := client.Originate(ctx, &application.LoanCommand{Borrower: borrower(5000), HousePrice: decimal.NewFromInt(200000)})
			return err
		}, codes.Internal},
		{"negative population", func() error {
			_, err := client.Step(ctx, &application.StepCommand{Population: -1})
			return err
		}, codes.InvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.Equal(t, tt.want, status.Code(err))
		})
	}
}
