package domain

import (
	"fmt"
)

// LendingPolicy 银行自身的 LTV / LTI 上限
type LendingPolicy struct {
	FirstTimeBuyerLTV float64 `json:"ftb_ltv"`
	OwnerOccupierLTV  float64 `json:"oo_ltv"`
	BuyToLetLTV       float64 `json:"btl_ltv"`
	FirstTimeBuyerLTI float64 `json:"ftb_lti"`
	OwnerOccupierLTI  float64 `json:"oo_lti"`
}

// Validate LTV 必须在 (0,1]，LTI 必须为正
func (p LendingPolicy) Validate() error {
	ltvs := map[string]float64{
		"ftb_ltv": p.FirstTimeBuyerLTV,
		"oo_ltv":  p.OwnerOccupierLTV,
		"btl_ltv": p.BuyToLetLTV,
	}
	for name, v := range ltvs {
		if v <= 0 || v > 1 {
			return fmt.Errorf("%w: %s must be in (0,1], got %v", ErrInvalidPolicy, name, v)
		}
	}
	if p.FirstTimeBuyerLTI <= 0 || p.OwnerOccupierLTI <= 0 {
		return fmt.Errorf("%w: LTI limits must be positive", ErrInvalidPolicy)
	}
	return nil
}

// LoanToValueLimit 按申请人类型返回 LTV 上限
func (p LendingPolicy) LoanToValueLimit(firstTimeBuyer, ownerOccupier bool) float64 {
	if !ownerOccupier {
		return p.BuyToLetLTV
	}
	if firstTimeBuyer {
		return p.FirstTimeBuyerLTV
	}
	return p.OwnerOccupierLTV
}

// hardLoanToIncomeLimit 银行自身的 LTI 上限，仅适用于自住
func (p LendingPolicy) hardLoanToIncomeLimit(firstTimeBuyer bool) float64 {
	if firstTimeBuyer {
		return p.FirstTimeBuyerLTI
	}
	return p.OwnerOccupierLTI
}

// Parameters 银行的静态参数
type Parameters struct {
	InitialRate        float64
	CreditSupplyTarget float64
	// FeedbackGain 利率对放贷偏差的反馈系数 k
	FeedbackGain             float64
	AffordabilityCoefficient float64
	NPayments                int
	Policy                   LendingPolicy
}

// Validate 校验启动参数及其中的放贷政策
func (p Parameters) Validate() error {
	if p.NPayments <= 0 {
		return fmt.Errorf("%w: n_payments must be positive", ErrInvalidParameters)
	}
	if p.FeedbackGain < 0 {
		return fmt.Errorf("%w: feedback gain must not be negative", ErrInvalidParameters)
	}
	if p.CreditSupplyTarget < 0 {
		return fmt.Errorf("%w: credit supply target must not be negative", ErrInvalidParameters)
	}
	if p.AffordabilityCoefficient <= 0 {
		return fmt.Errorf("%w: affordability coefficient must be positive", ErrInvalidParameters)
	}
	if err := p.Policy.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	return nil
}
