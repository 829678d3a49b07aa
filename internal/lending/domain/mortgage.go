package domain

import (
	"time"
)

// TerminationReason 按揭合同结束原因
type TerminationReason string

const (
	TerminationSale    TerminationReason = "SALE"
	TerminationDefault TerminationReason = "DEFAULT"
	TerminationPayoff  TerminationReason = "PAYOFF"
	TerminationOther   TerminationReason = "OTHER"
)

// ParseTerminationReason 空值视为 OTHER
func ParseTerminationReason(s string) (TerminationReason, bool) {
	switch TerminationReason(s) {
	case TerminationSale, TerminationDefault, TerminationPayoff, TerminationOther:
		return TerminationReason(s), true
	case "":
		return TerminationOther, true
	default:
		return "", false
	}
}

// MortgageAgreement 一笔按揭贷款
type MortgageAgreement struct {
	ID                  string    `json:"id"`
	BorrowerID          string    `json:"borrower_id"`
	Principal           float64   `json:"principal"`
	DownPayment         float64   `json:"down_payment"`
	PurchasePrice       float64   `json:"purchase_price"`
	MonthlyPayment      float64   `json:"monthly_payment"`
	MonthlyInterestRate float64   `json:"monthly_interest_rate"`
	NPayments           int       `json:"n_payments"`
	IsBuyToLet          bool      `json:"is_buy_to_let"`
	IsFirstTimeBuyer    bool      `json:"is_first_time_buyer"`
	AnnualGrossIncome   float64   `json:"annual_gross_income"`
	Month               int       `json:"month"`
	CreatedAt           time.Time `json:"created_at"`

	// 签发报价的银行，仅其 Commit 可入账
	issuer    *Bank
	committed bool
}

// IsVoid 本金为零表示业务上拒绝
func (m *MortgageAgreement) IsVoid() bool {
	return m.Principal <= 0
}

// LoanToValue 本金 / 成交价
func (m *MortgageAgreement) LoanToValue() float64 {
	if m.PurchasePrice <= 0 {
		return 0
	}
	return m.Principal / m.PurchasePrice
}

// LoanToIncome 本金 / 年税前收入
func (m *MortgageAgreement) LoanToIncome() float64 {
	if m.AnnualGrossIncome <= 0 {
		return 0
	}
	return m.Principal / m.AnnualGrossIncome
}

// Purpose 用于指标与事件的贷款用途标签
func (m *MortgageAgreement) Purpose() string {
	switch {
	case m.IsBuyToLet:
		return "buy_to_let"
	case m.IsFirstTimeBuyer:
		return "first_time_buyer"
	default:
		return "home_mover"
	}
}
