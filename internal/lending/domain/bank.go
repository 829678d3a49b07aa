package domain

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// BankState 银行状态快照，用于持久化与查询
type BankState struct {
	Month                int             `json:"month"`
	MortgageRate         float64         `json:"mortgage_rate"`
	BaseRate             float64         `json:"base_rate"`
	InterestSpread       float64         `json:"interest_spread"`
	SupplyTarget         float64         `json:"supply_target"`
	Counters             MonthlyCounters `json:"counters"`
	OutstandingMortgages int             `json:"outstanding_mortgages"`
	OutstandingPrincipal float64         `json:"outstanding_principal"`
	Policy               LendingPolicy   `json:"policy"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// Bank 按揭贷款银行。所有公开方法串行执行。
type Bank struct {
	mu sync.Mutex

	params  Parameters
	central PolicySource
	market  MarketFeed
	sink    CreditSink
	ledger  CreditLedger

	policy       LendingPolicy
	rate         RateState
	counters     MonthlyCounters
	supplyTarget float64
	month        int

	now   func() time.Time
	newID func() string
}

// NewBank 创建并初始化银行。sink 与 ledger 可为 nil。
func NewBank(params Parameters, central PolicySource, market MarketFeed, sink CreditSink, ledger CreditLedger) (*Bank, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if central == nil || market == nil {
		return nil, errors.New("policy source and market feed are required")
	}
	if sink == nil {
		sink = CreditSinks(nil)
	}
	if ledger == nil {
		ledger = NewMemoryLedger()
	}
	b := &Bank{
		params:  params,
		central: central,
		market:  market,
		sink:    sink,
		ledger:  ledger,
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
	b.Init()
	return b, nil
}

// Init 恢复到初始状态：清空账本、重置利率与月度计数
func (b *Bank) Init() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.ledger.Clear()
	b.policy = b.params.Policy
	b.setRate(b.params.InitialRate)
	b.counters.Reset()
	b.supplyTarget = 0
	b.month = 0
}

func (b *Bank) setRate(rate float64) {
	b.rate = NewRateState(rate, b.central.BaseRate(), b.params.NPayments)
}

func (b *Bank) underwriter() Underwriter {
	return Underwriter{
		Params:   b.params,
		Policy:   b.policy,
		Rate:     b.rate,
		Counters: b.counters,
		Central:  b.central,
		Market:   b.market,
	}
}

// Step 月度利率调整，须在本月任何审批之前调用
func (b *Bank) Step(population int) (*StepResult, error) {
	if population < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPopulation, population)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	base := b.central.BaseRate()
	current := base + b.rate.InterestSpread
	volume := b.counters.SupplyVolume

	b.supplyTarget = b.params.CreditSupplyTarget * float64(population)
	next, clamped := NextRate(current, b.params.FeedbackGain, volume, b.supplyTarget, base)
	b.setRate(next)
	b.counters.Reset()
	b.month++

	return &StepResult{
		Month:          b.month,
		Population:     population,
		SupplyTarget:   b.supplyTarget,
		RealisedVolume: volume,
		PreviousRate:   current,
		MortgageRate:   next,
		InterestSpread: b.rate.InterestSpread,
		BaseRate:       base,
		Clamped:        clamped,
	}, nil
}

// RequestApproval 报价模式，不修改任何状态
func (b *Bank) RequestApproval(br Borrower, housePrice, desiredDownPayment float64, ownerOccupier bool) (*MortgageAgreement, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.approve(br, housePrice, desiredDownPayment, ownerOccupier)
}

func (b *Bank) approve(br Borrower, housePrice, desiredDownPayment float64, ownerOccupier bool) (*MortgageAgreement, error) {
	m, err := b.underwriter().Approve(br, housePrice, desiredDownPayment, ownerOccupier)
	if err != nil {
		return nil, err
	}
	m.Month = b.month
	m.issuer = b
	return m, nil
}

// RequestLoan 放贷模式：审批后立即入账
func (b *Bank) RequestLoan(br Borrower, housePrice, desiredDownPayment float64, ownerOccupier bool) (*MortgageAgreement, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	m, err := b.approve(br, housePrice, desiredDownPayment, ownerOccupier)
	if err != nil {
		return nil, err
	}
	b.commit(br, m)
	return m, nil
}

// Commit 将本月由 RequestApproval 签发、尚未入账的报价入账
func (b *Bank) Commit(br Borrower, m *MortgageAgreement) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case m == nil || m.issuer != b:
		return ErrUnknownQuote
	case m.committed:
		return fmt.Errorf("%w: %s", ErrAlreadyCommitted, m.ID)
	case m.Month != b.month:
		return fmt.Errorf("%w: quoted in month %d, current month %d", ErrStaleQuote, m.Month, b.month)
	}
	b.commit(br, m)
	return nil
}

func (b *Bank) commit(br Borrower, m *MortgageAgreement) {
	ownerOccupier := !m.IsBuyToLet
	overLTI := false
	if ownerOccupier && m.Principal > 0 {
		limit := b.central.LoanToIncomeLimit(m.IsFirstTimeBuyer, true)
		overLTI = m.AnnualGrossIncome <= 0 || m.Principal/m.AnnualGrossIncome > limit
	}
	b.counters.record(m.Principal, ownerOccupier, overLTI)
	m.committed = true

	if m.Principal <= 0 {
		return
	}
	if m.ID == "" {
		m.ID = b.newID()
	}
	m.CreatedAt = b.now()
	b.ledger.Add(m)
	b.sink.RecordLoan(br, m)
}

// EndMortgageContract 合同结束后从账本移除
func (b *Bank) EndMortgageContract(id string) (*MortgageAgreement, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	m, ok := b.ledger.Remove(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMortgageNotFound, id)
	}
	return m, nil
}

// Mortgage 查询账本中的合同
func (b *Bank) Mortgage(id string) (*MortgageAgreement, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	m, ok := b.ledger.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMortgageNotFound, id)
	}
	return m, nil
}

// MaxMortgagePrice 最高可负担房价
func (b *Bank) MaxMortgagePrice(br Borrower, ownerOccupier bool) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.underwriter().MaxMortgagePrice(br, ownerOccupier)
}

// LoanToIncomeLimit 当前生效的 LTI 上限，仅适用于自住
func (b *Bank) LoanToIncomeLimit(firstTimeBuyer, ownerOccupier bool) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.underwriter().LoanToIncomeLimit(firstTimeBuyer, ownerOccupier)
}

// LoanToValueLimit 银行自身的 LTV 上限
func (b *Bank) LoanToValueLimit(firstTimeBuyer, ownerOccupier bool) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.policy.LoanToValueLimit(firstTimeBuyer, ownerOccupier)
}

// MortgageInterestRate 基准利率加利差，基准利率变化立即反映；还款系数仍为 Step 时的取值
func (b *Bank) MortgageInterestRate() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.central.BaseRate() + b.rate.InterestSpread
}

// UpdatePolicy 替换银行自身的 LTV/LTI 上限
func (b *Bank) UpdatePolicy(p LendingPolicy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.policy = p
	return nil
}

// Snapshot 当前状态快照
func (b *Bank) Snapshot() BankState {
	b.mu.Lock()
	defer b.mu.Unlock()

	base := b.central.BaseRate()
	return BankState{
		Month:                b.month,
		MortgageRate:         base + b.rate.InterestSpread,
		BaseRate:             base,
		InterestSpread:       b.rate.InterestSpread,
		SupplyTarget:         b.supplyTarget,
		Counters:             b.counters,
		OutstandingMortgages: b.ledger.Len(),
		OutstandingPrincipal: b.ledger.OutstandingPrincipal(),
		Policy:               b.policy,
		UpdatedAt:            b.now(),
	}
}

// Restore 从快照恢复利差、月度计数与政策，账本由 RestoreLedger 恢复
func (b *Bank) Restore(s BankState) error {
	if err := s.Policy.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.policy = s.Policy
	b.setRate(b.central.BaseRate() + s.InterestSpread)
	b.counters = s.Counters
	b.supplyTarget = s.SupplyTarget
	b.month = s.Month
	return nil
}

// RestoreLedger 重新载入未结清合同，不计入本月放贷量
func (b *Bank) RestoreLedger(mortgages []*MortgageAgreement) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, m := range mortgages {
		if m != nil && m.Principal > 0 {
			b.ledger.Add(m)
		}
	}
}

// Mortgages 账本中全部合同
func (b *Bank) Mortgages() []*MortgageAgreement {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ledger.List()
}
