package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type stubCentral struct {
	base     float64
	ftbLTI   float64
	ooLTI    float64
	fraction float64
	icr      float64
}

func defaultCentral() *stubCentral {
	return &stubCentral{base: 0.005, ftbLTI: 4.5, ooLTI: 4.5, fraction: 0.15, icr: 1.25}
}

func (c *stubCentral) BaseRate() float64 { return c.base }

func (c *stubCentral) LoanToIncomeLimit(firstTimeBuyer, ownerOccupier bool) float64 {
	if firstTimeBuyer {
		return c.ftbLTI
	}
	return c.ooLTI
}

func (c *stubCentral) InterestCoverRatioLimit(bool) float64 { return c.icr }

func (c *stubCentral) MaxFractionOOMortgagesOverLTILimit() float64 { return c.fraction }

type recordingSink struct {
	loans []*MortgageAgreement
}

func (s *recordingSink) RecordLoan(_ Borrower, m *MortgageAgreement) {
	s.loans = append(s.loans, m)
}

func testParams() Parameters {
	return Parameters{
		InitialRate:              0.03,
		CreditSupplyTarget:       380,
		FeedbackGain:             1e-7,
		AffordabilityCoefficient: 0.5,
		NPayments:                300,
		Policy: LendingPolicy{
			FirstTimeBuyerLTV: 0.95,
			OwnerOccupierLTV:  0.9,
			BuyToLetLTV:       0.8,
			FirstTimeBuyerLTI: 6.0,
			OwnerOccupierLTI:  6.0,
		},
	}
}

func newTestBank(t *testing.T, params Parameters, central *stubCentral, yield float64, sink CreditSink) *Bank {
	t.Helper()
	b, err := NewBank(params, central, FixedYield(yield), sink, nil)
	require.NoError(t, err)
	return b
}

func homeMover(id string, wealth, net, gross float64) BorrowerSnapshot {
	return BorrowerSnapshot{BorrowerID: id, LiquidWealth: wealth, MonthlyNetIncome: net, AnnualGrossIncome: gross}
}

func firstTimeBuyer(id string, wealth, net, gross float64) BorrowerSnapshot {
	b := homeMover(id, wealth, net, gross)
	b.FirstTimeBuyer = true
	return b
}
