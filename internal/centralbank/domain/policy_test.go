package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy(t *testing.T) {
	p, err := NewPolicy(PolicyValues{
		BaseRate:              0.005,
		FirstTimeBuyerLTI:     4.5,
		OwnerOccupierLTI:      4.0,
		MaxFractionOverLTI:    0.15,
		BuyToLetInterestCover: 1.25,
	})
	require.NoError(t, err)

	assert.InDelta(t, 0.005, p.BaseRate(), 1e-15)
	assert.InDelta(t, 4.5, p.LoanToIncomeLimit(true, true), 1e-15)
	assert.InDelta(t, 4.0, p.LoanToIncomeLimit(false, true), 1e-15)
	assert.True(t, math.IsInf(p.LoanToIncomeLimit(false, false), 1))
	assert.InDelta(t, 1.25, p.InterestCoverRatioLimit(false), 1e-15)
	assert.Equal(t, 0.0, p.InterestCoverRatioLimit(true))
	assert.InDelta(t, 0.15, p.MaxFractionOOMortgagesOverLTILimit(), 1e-15)
}

func TestPolicy_Update(t *testing.T) {
	p, err := NewPolicy(PolicyValues{FirstTimeBuyerLTI: 4.5, OwnerOccupierLTI: 4.5})
	require.NoError(t, err)

	tests := []struct {
		name    string
		values  PolicyValues
		wantErr bool
	}{
		{"negative base rate", PolicyValues{BaseRate: -0.01, FirstTimeBuyerLTI: 4.5, OwnerOccupierLTI: 4.5}, true},
		{"zero LTI", PolicyValues{FirstTimeBuyerLTI: 0, OwnerOccupierLTI: 4.5}, true},
		{"fraction above one", PolicyValues{FirstTimeBuyerLTI: 4.5, OwnerOccupierLTI: 4.5, MaxFractionOverLTI: 1.5}, true},
		{"valid", PolicyValues{BaseRate: 0.0075, FirstTimeBuyerLTI: 5, OwnerOccupierLTI: 5, MaxFractionOverLTI: 0.1, BuyToLetInterestCover: 1.45}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Update(tt.values)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPolicy)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.values, p.Values())
		})
	}
}
