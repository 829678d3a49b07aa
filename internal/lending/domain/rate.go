package domain

import "math"

// RateState 利差及对应的月供系数
type RateState struct {
	InterestSpread float64 `json:"interest_spread"`
	// 等额本息：每单位本金的月供
	PaymentFactor float64 `json:"payment_factor"`
	// 只付利息：每单位本金的月供
	BuyToLetPaymentFactor float64 `json:"btl_payment_factor"`
}

// NewRateState 由年化利率与基准利率构造
func NewRateState(rate, baseRate float64, nPayments int) RateState {
	s := RateState{InterestSpread: rate - baseRate}
	r := rate / 12.0
	s.PaymentFactor = annuityFactor(r, nPayments)
	s.BuyToLetPaymentFactor = r
	return s
}

func annuityFactor(r float64, n int) float64 {
	if r == 0 {
		return 1.0 / float64(n)
	}
	return r / (1.0 - math.Pow(1.0+r, -float64(n)))
}

// MonthlyPaymentFactor 按用途选择月供系数
func (s RateState) MonthlyPaymentFactor(ownerOccupier bool) float64 {
	if ownerOccupier {
		return s.PaymentFactor
	}
	return s.BuyToLetPaymentFactor
}

// StepResult 月度利率调整结果
type StepResult struct {
	Month          int     `json:"month"`
	Population     int     `json:"population"`
	SupplyTarget   float64 `json:"supply_target"`
	RealisedVolume float64 `json:"realised_volume"`
	PreviousRate   float64 `json:"previous_rate"`
	MortgageRate   float64 `json:"mortgage_rate"`
	InterestSpread float64 `json:"interest_spread"`
	BaseRate       float64 `json:"base_rate"`
	Clamped        bool    `json:"clamped"`
}

// NextRate 反馈控制：rate + k*(volume-target)，不低于基准利率
func NextRate(current, gain, volume, target, baseRate float64) (rate float64, clamped bool) {
	rate = current + gain*(volume-target)
	if rate < baseRate {
		return baseRate, true
	}
	return rate, false
}
