package mysql

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wyfcoding/mortgagebank/internal/lending/domain"
)

func TestModelMapping(t *testing.T) {
	created := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	m := &domain.MortgageAgreement{
		ID:                  "m-1",
		BorrowerID:          "hh-1",
		Principal:           180000,
		DownPayment:         20000,
		PurchasePrice:       200000,
		MonthlyPayment:      853.56,
		MonthlyInterestRate: 0.0025,
		NPayments:           300,
		IsFirstTimeBuyer:    true,
		AnnualGrossIncome:   60000,
		Month:               3,
		CreatedAt:           created,
	}

	model := fromDomain(m)
	assert.Equal(t, "mortgages", model.TableName())
	assert.Equal(t, statusActive, model.Status)
	assert.Equal(t, "180000", model.Principal.String())
	assert.Equal(t, "853.56", model.MonthlyPayment.String())

	assert.Equal(t, m, toDomain(model))
}
