package domain

// PolicySource 央行宏观审慎政策的只读视图
type PolicySource interface {
	BaseRate() float64
	LoanToIncomeLimit(firstTimeBuyer, ownerOccupier bool) float64
	InterestCoverRatioLimit(ownerOccupier bool) float64
	MaxFractionOOMortgagesOverLTILimit() float64
}

// Borrower 申请人的财务快照
type Borrower interface {
	ID() string
	BankBalance() float64
	MonthlyNetEmploymentIncome() float64
	AnnualGrossEmploymentIncome() float64
	IsFirstTimeBuyer() bool
}

// MarketFeed 租赁市场数据
type MarketFeed interface {
	// ExpAvFlowYield 预期平均租金收益率
	ExpAvFlowYield() float64
}

// CreditSink 接收每笔实际发放的贷款，不得阻塞或失败
type CreditSink interface {
	RecordLoan(b Borrower, m *MortgageAgreement)
}

// BorrowerSnapshot Borrower 的值实现
type BorrowerSnapshot struct {
	BorrowerID        string  `json:"borrower_id"`
	LiquidWealth      float64 `json:"liquid_wealth"`
	MonthlyNetIncome  float64 `json:"monthly_net_income"`
	AnnualGrossIncome float64 `json:"annual_gross_income"`
	FirstTimeBuyer    bool    `json:"first_time_buyer"`
}

func (s BorrowerSnapshot) ID() string                           { return s.BorrowerID }
func (s BorrowerSnapshot) BankBalance() float64                 { return s.LiquidWealth }
func (s BorrowerSnapshot) MonthlyNetEmploymentIncome() float64  { return s.MonthlyNetIncome }
func (s BorrowerSnapshot) AnnualGrossEmploymentIncome() float64 { return s.AnnualGrossIncome }
func (s BorrowerSnapshot) IsFirstTimeBuyer() bool               { return s.FirstTimeBuyer }

// CreditSinks 将放贷记录分发到多个接收方
type CreditSinks []CreditSink

func (s CreditSinks) RecordLoan(b Borrower, m *MortgageAgreement) {
	for _, sink := range s {
		if sink != nil {
			sink.RecordLoan(b, m)
		}
	}
}

// FixedYield 常量收益率
type FixedYield float64

func (y FixedYield) ExpAvFlowYield() float64 { return float64(y) }
