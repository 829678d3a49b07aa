package domain

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

var ErrInvalidPolicy = errors.New("invalid central bank policy")

// PolicyValues 央行宏观审慎参数
type PolicyValues struct {
	BaseRate              float64 `json:"base_rate"`
	FirstTimeBuyerLTI     float64 `json:"ftb_lti"`
	OwnerOccupierLTI      float64 `json:"oo_lti"`
	MaxFractionOverLTI    float64 `json:"max_fraction_over_lti"`
	BuyToLetInterestCover float64 `json:"btl_icr"`
}

func (v PolicyValues) Validate() error {
	if v.BaseRate < 0 {
		return fmt.Errorf("%w: base rate must not be negative", ErrInvalidPolicy)
	}
	if v.FirstTimeBuyerLTI <= 0 || v.OwnerOccupierLTI <= 0 {
		return fmt.Errorf("%w: LTI limits must be positive", ErrInvalidPolicy)
	}
	if v.MaxFractionOverLTI < 0 || v.MaxFractionOverLTI > 1 {
		return fmt.Errorf("%w: max fraction over LTI must be in [0,1]", ErrInvalidPolicy)
	}
	if v.BuyToLetInterestCover < 0 {
		return fmt.Errorf("%w: ICR must not be negative", ErrInvalidPolicy)
	}
	return nil
}

// Policy 可在运行时调整的央行政策，读写并发安全
type Policy struct {
	mu     sync.RWMutex
	values PolicyValues
}

func NewPolicy(v PolicyValues) (*Policy, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return &Policy{values: v}, nil
}

func (p *Policy) BaseRate() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.values.BaseRate
}

// LoanToIncomeLimit 买房出租不设 LTI 上限
func (p *Policy) LoanToIncomeLimit(firstTimeBuyer, ownerOccupier bool) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	switch {
	case !ownerOccupier:
		return math.Inf(1)
	case firstTimeBuyer:
		return p.values.FirstTimeBuyerLTI
	default:
		return p.values.OwnerOccupierLTI
	}
}

// InterestCoverRatioLimit 仅适用于买房出租，自住返回 0
func (p *Policy) InterestCoverRatioLimit(ownerOccupier bool) float64 {
	if ownerOccupier {
		return 0
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.values.BuyToLetInterestCover
}

func (p *Policy) MaxFractionOOMortgagesOverLTILimit() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.values.MaxFractionOverLTI
}

func (p *Policy) Values() PolicyValues {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.values
}

// Update 整体替换政策参数
func (p *Policy) Update(v PolicyValues) error {
	if err := v.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values = v
	return nil
}
