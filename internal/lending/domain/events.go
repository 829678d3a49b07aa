package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	MortgageOriginatedEventType = "lending.mortgage.originated"
	MortgageTerminatedEventType = "lending.mortgage.terminated"
	RateRecalculatedEventType   = "lending.rate.recalculated"
	PolicyUpdatedEventType      = "lending.policy.updated"
	CreditRecordedEventType     = "lending.credit.recorded"
)

// MortgageOriginatedEvent 放贷事件
type MortgageOriginatedEvent struct {
	MortgageID     string    `json:"mortgage_id"`
	BorrowerID     string    `json:"borrower_id"`
	Principal      string    `json:"principal"`
	DownPayment    string    `json:"down_payment"`
	PurchasePrice  string    `json:"purchase_price"`
	MonthlyPayment string    `json:"monthly_payment"`
	Purpose        string    `json:"purpose"`
	LoanToValue    float64   `json:"ltv"`
	LoanToIncome   float64   `json:"lti"`
	Month          int       `json:"month"`
	Timestamp      time.Time `json:"timestamp"`
}

// MortgageTerminatedEvent 合同结束事件
type MortgageTerminatedEvent struct {
	MortgageID string    `json:"mortgage_id"`
	BorrowerID string    `json:"borrower_id"`
	Principal  string    `json:"principal"`
	Reason     string    `json:"reason"`
	Timestamp  time.Time `json:"timestamp"`
}

// RateRecalculatedEvent 月度利率调整事件
type RateRecalculatedEvent struct {
	Month          int       `json:"month"`
	Population     int       `json:"population"`
	SupplyTarget   float64   `json:"supply_target"`
	RealisedVolume float64   `json:"realised_volume"`
	PreviousRate   float64   `json:"previous_rate"`
	MortgageRate   float64   `json:"mortgage_rate"`
	InterestSpread float64   `json:"interest_spread"`
	Clamped        bool      `json:"clamped"`
	Timestamp      time.Time `json:"timestamp"`
}

// PolicyUpdatedEvent 政策调整事件
type PolicyUpdatedEvent struct {
	Policy    LendingPolicy `json:"policy"`
	Timestamp time.Time     `json:"timestamp"`
}

// CreditRecordedEvent 信贷供给统计流水
type CreditRecordedEvent struct {
	MortgageID   string    `json:"mortgage_id"`
	BorrowerID   string    `json:"borrower_id"`
	Principal    string    `json:"principal"`
	LiquidWealth string    `json:"liquid_wealth"`
	Purpose      string    `json:"purpose"`
	LoanToValue  float64   `json:"ltv"`
	LoanToIncome float64   `json:"lti"`
	Month        int       `json:"month"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewMortgageOriginatedEvent 由合同构造放贷事件
func NewMortgageOriginatedEvent(m *MortgageAgreement) MortgageOriginatedEvent {
	return MortgageOriginatedEvent{
		MortgageID:     m.ID,
		BorrowerID:     m.BorrowerID,
		Principal:      Money(m.Principal),
		DownPayment:    Money(m.DownPayment),
		PurchasePrice:  Money(m.PurchasePrice),
		MonthlyPayment: Money(m.MonthlyPayment),
		Purpose:        m.Purpose(),
		LoanToValue:    m.LoanToValue(),
		LoanToIncome:   m.LoanToIncome(),
		Month:          m.Month,
		Timestamp:      m.CreatedAt,
	}
}

// Money 金额保留两位小数的字符串形式
func Money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
