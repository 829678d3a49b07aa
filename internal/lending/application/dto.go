package application

import (
	"time"

	"github.com/shopspring/decimal"

	creditsupply "github.com/wyfcoding/mortgagebank/internal/creditsupply/domain"
	"github.com/wyfcoding/mortgagebank/internal/lending/domain"
)

// BorrowerDTO 申请人财务快照
type BorrowerDTO struct {
	ID                string          `json:"id" binding:"required"`
	LiquidWealth      decimal.Decimal `json:"liquid_wealth"`
	MonthlyNetIncome  decimal.Decimal `json:"monthly_net_income"`
	AnnualGrossIncome decimal.Decimal `json:"annual_gross_income"`
	FirstTimeBuyer    bool            `json:"first_time_buyer"`
}

func (b BorrowerDTO) toDomain() domain.BorrowerSnapshot {
	return domain.BorrowerSnapshot{
		BorrowerID:        b.ID,
		LiquidWealth:      b.LiquidWealth.InexactFloat64(),
		MonthlyNetIncome:  b.MonthlyNetIncome.InexactFloat64(),
		AnnualGrossIncome: b.AnnualGrossIncome.InexactFloat64(),
		FirstTimeBuyer:    b.FirstTimeBuyer,
	}
}

// LoanCommand 报价与放贷共用的申请命令
type LoanCommand struct {
	Borrower           BorrowerDTO     `json:"borrower" binding:"required"`
	HousePrice         decimal.Decimal `json:"house_price"`
	DesiredDownPayment decimal.Decimal `json:"desired_down_payment"`
	BuyToLet           bool            `json:"buy_to_let"`
}

// MaxPriceQuery 最高可负担房价查询
type MaxPriceQuery struct {
	Borrower BorrowerDTO `json:"borrower" binding:"required"`
	BuyToLet bool        `json:"buy_to_let"`
}

// MaxPriceDTO Unbounded 为 true 时 MaxPrice 无意义
type MaxPriceDTO struct {
	BorrowerID string          `json:"borrower_id"`
	MaxPrice   decimal.Decimal `json:"max_price"`
	Unbounded  bool            `json:"unbounded"`
}

type StepCommand struct {
	Population int `json:"population"`
}

type TerminateCommand struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

type PolicyCommand struct {
	FirstTimeBuyerLTV float64 `json:"ftb_ltv"`
	OwnerOccupierLTV  float64 `json:"oo_ltv"`
	BuyToLetLTV       float64 `json:"btl_ltv"`
	FirstTimeBuyerLTI float64 `json:"ftb_lti"`
	OwnerOccupierLTI  float64 `json:"oo_lti"`
}

func (c PolicyCommand) toDomain() domain.LendingPolicy {
	return domain.LendingPolicy(c)
}

// MortgageDTO 对外暴露的合同
type MortgageDTO struct {
	ID                  string          `json:"id,omitempty"`
	BorrowerID          string          `json:"borrower_id"`
	Principal           decimal.Decimal `json:"principal"`
	DownPayment         decimal.Decimal `json:"down_payment"`
	PurchasePrice       decimal.Decimal `json:"purchase_price"`
	MonthlyPayment      decimal.Decimal `json:"monthly_payment"`
	MonthlyInterestRate float64         `json:"monthly_interest_rate"`
	NPayments           int             `json:"n_payments"`
	Purpose             string          `json:"purpose"`
	LoanToValue         float64         `json:"ltv"`
	LoanToIncome        float64         `json:"lti"`
	Void                bool            `json:"void"`
	Month               int             `json:"month"`
	CreatedAt           time.Time       `json:"created_at,omitzero"`
}

func toMortgageDTO(m *domain.MortgageAgreement) *MortgageDTO {
	return &MortgageDTO{
		ID:                  m.ID,
		BorrowerID:          m.BorrowerID,
		Principal:           decimal.NewFromFloat(m.Principal).Round(2),
		DownPayment:         decimal.NewFromFloat(m.DownPayment).Round(2),
		PurchasePrice:       decimal.NewFromFloat(m.PurchasePrice).Round(2),
		MonthlyPayment:      decimal.NewFromFloat(m.MonthlyPayment).Round(2),
		MonthlyInterestRate: m.MonthlyInterestRate,
		NPayments:           m.NPayments,
		Purpose:             m.Purpose(),
		LoanToValue:         m.LoanToValue(),
		LoanToIncome:        m.LoanToIncome(),
		Void:                m.IsVoid(),
		Month:               m.Month,
		CreatedAt:           m.CreatedAt,
	}
}

// StateDTO 银行状态
type StateDTO struct {
	domain.BankState
	Population int `json:"population"`
}

// IndicatorsDTO 核心指标
type IndicatorsDTO struct {
	creditsupply.CoreIndicators
	MortgageRate float64 `json:"mortgage_rate"`
}
