package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	centralbank "github.com/wyfcoding/mortgagebank/internal/centralbank/domain"
	creditsupply "github.com/wyfcoding/mortgagebank/internal/creditsupply/domain"
	"github.com/wyfcoding/mortgagebank/internal/lending/domain"
	"github.com/wyfcoding/mortgagebank/pkg/logger"
	"github.com/wyfcoding/mortgagebank/pkg/metrics"
)

// YieldRefresher 在月度调整前刷新租赁收益率
type YieldRefresher interface {
	Refresh(ctx context.Context) error
}

// CreditStatistics 信贷供给统计
type CreditStatistics interface {
	EndMortgage(m *domain.MortgageAgreement)
	Step(population int)
	Indicators(spread float64) creditsupply.CoreIndicators
	Restore(mortgages []*domain.MortgageAgreement)
}

// CentralBankPolicy 可调整的央行政策
type CentralBankPolicy interface {
	Values() centralbank.PolicyValues
	Update(v centralbank.PolicyValues) error
}

// LendingService 按揭贷款应用服务
type LendingService struct {
	bank      *domain.Bank
	central   CentralBankPolicy
	repo      domain.MortgageRepository
	stateRepo domain.StateRepository
	publisher domain.EventPublisher
	stats     CreditStatistics
	yield     YieldRefresher
	metrics   *metrics.Metrics
	logger    *slog.Logger

	mu         sync.Mutex
	population int
}

// NewLendingService yield 可为 nil
func NewLendingService(
	bank *domain.Bank,
	central CentralBankPolicy,
	repo domain.MortgageRepository,
	stateRepo domain.StateRepository,
	publisher domain.EventPublisher,
	stats CreditStatistics,
	yield YieldRefresher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *LendingService {
	return &LendingService{
		bank:      bank,
		central:   central,
		repo:      repo,
		stateRepo: stateRepo,
		publisher: publisher,
		stats:     stats,
		yield:     yield,
		metrics:   m,
		logger:    logger,
	}
}

// Step 月度利率调整
func (s *LendingService) Step(ctx context.Context, cmd StepCommand) (*domain.StepResult, error) {
	defer logger.LogDuration(ctx, "lending step finished", "population", cmd.Population)()

	if s.yield != nil {
		if err := s.yield.Refresh(ctx); err != nil {
			s.logger.WarnContext(ctx, "failed to refresh rental yield, keeping cached value", "error", err)
		}
	}

	res, err := s.bank.Step(cmd.Population)
	if err != nil {
		return nil, err
	}
	s.stats.Step(cmd.Population)

	s.mu.Lock()
	s.population = cmd.Population
	s.mu.Unlock()

	state := s.bank.Snapshot()
	s.saveState(ctx, &state)

	event := domain.RateRecalculatedEvent{
		Month:          res.Month,
		Population:     res.Population,
		SupplyTarget:   res.SupplyTarget,
		RealisedVolume: res.RealisedVolume,
		PreviousRate:   res.PreviousRate,
		MortgageRate:   res.MortgageRate,
		InterestSpread: res.InterestSpread,
		Clamped:        res.Clamped,
		Timestamp:      state.UpdatedAt,
	}
	s.publish(ctx, domain.RateRecalculatedEventType, strconv.Itoa(res.Month), event)
	s.updateGauges(state)

	s.logger.InfoContext(ctx, "mortgage rate recalculated",
		"month", res.Month,
		"volume", res.RealisedVolume,
		"target", res.SupplyTarget,
		"rate", res.MortgageRate,
		"clamped", res.Clamped)
	return res, nil
}

// Quote 报价，不修改银行状态
func (s *LendingService) Quote(ctx context.Context, cmd LoanCommand) (*MortgageDTO, error) {
	s.metrics.QuotesTotal.Inc()
	m, err := s.bank.RequestApproval(cmd.Borrower.toDomain(), cmd.HousePrice.InexactFloat64(), cmd.DesiredDownPayment.InexactFloat64(), !cmd.BuyToLet)
	if err != nil {
		s.observeError(ctx, "quote", cmd, err)
		return nil, err
	}
	return toMortgageDTO(m), nil
}

// Originate 审批并放贷。本金为零的结果视为拒绝，不入账。
func (s *LendingService) Originate(ctx context.Context, cmd LoanCommand) (*MortgageDTO, error) {
	m, err := s.bank.RequestLoan(cmd.Borrower.toDomain(), cmd.HousePrice.InexactFloat64(), cmd.DesiredDownPayment.InexactFloat64(), !cmd.BuyToLet)
	if err != nil {
		s.observeError(ctx, "originate", cmd, err)
		return nil, err
	}

	if m.IsVoid() {
		s.metrics.VoidLoansTotal.Inc()
		s.logger.InfoContext(ctx, "loan request declined", "borrower_id", m.BorrowerID, "house_price", m.PurchasePrice)
		return toMortgageDTO(m), nil
	}

	s.metrics.OriginationsTotal.WithLabelValues(m.Purpose()).Inc()
	if err := s.repo.Save(ctx, m); err != nil {
		s.metrics.PersistenceFailures.Inc()
		s.logger.ErrorContext(ctx, "failed to persist mortgage", "mortgage_id", m.ID, "error", err)
	}
	s.publish(ctx, domain.MortgageOriginatedEventType, m.ID, domain.NewMortgageOriginatedEvent(m))
	s.updateGauges(s.bank.Snapshot())

	s.logger.InfoContext(ctx, "mortgage originated",
		"mortgage_id", m.ID,
		"borrower_id", m.BorrowerID,
		"principal", m.Principal,
		"purpose", m.Purpose())
	return toMortgageDTO(m), nil
}

// MaxPrice 最高可负担房价
func (s *LendingService) MaxPrice(ctx context.Context, q MaxPriceQuery) (*MaxPriceDTO, error) {
	b := q.Borrower.toDomain()
	price, err := s.bank.MaxMortgagePrice(b, !q.BuyToLet)
	if err != nil {
		s.logger.ErrorContext(ctx, "max price query failed", "borrower_id", b.BorrowerID, "error", err)
		return nil, err
	}
	if math.IsInf(price, 1) {
		return &MaxPriceDTO{BorrowerID: b.BorrowerID, Unbounded: true}, nil
	}
	return &MaxPriceDTO{BorrowerID: b.BorrowerID, MaxPrice: decimal.NewFromFloat(price).Round(2)}, nil
}

// Terminate 结束合同
func (s *LendingService) Terminate(ctx context.Context, cmd TerminateCommand) (*MortgageDTO, error) {
	reason, ok := domain.ParseTerminationReason(cmd.Reason)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidTerminationReason, cmd.Reason)
	}

	m, err := s.bank.EndMortgageContract(cmd.ID)
	if err != nil {
		return nil, err
	}
	s.stats.EndMortgage(m)
	s.metrics.TerminationsTotal.WithLabelValues(string(reason)).Inc()

	if err := s.repo.MarkTerminated(ctx, m.ID, reason); err != nil {
		s.metrics.PersistenceFailures.Inc()
		s.logger.ErrorContext(ctx, "failed to mark mortgage terminated", "mortgage_id", m.ID, "error", err)
	}
	s.publish(ctx, domain.MortgageTerminatedEventType, m.ID, domain.MortgageTerminatedEvent{
		MortgageID: m.ID,
		BorrowerID: m.BorrowerID,
		Principal:  domain.Money(m.Principal),
		Reason:     string(reason),
		Timestamp:  time.Now(),
	})
	s.updateGauges(s.bank.Snapshot())

	s.logger.InfoContext(ctx, "mortgage terminated", "mortgage_id", m.ID, "reason", reason)
	return toMortgageDTO(m), nil
}

// Mortgage 查询未结清合同
func (s *LendingService) Mortgage(ctx context.Context, id string) (*MortgageDTO, error) {
	m, err := s.bank.Mortgage(id)
	if err != nil {
		return nil, err
	}
	return toMortgageDTO(m), nil
}

func (s *LendingService) State(ctx context.Context) (*StateDTO, error) {
	s.mu.Lock()
	population := s.population
	s.mu.Unlock()
	return &StateDTO{BankState: s.bank.Snapshot(), Population: population}, nil
}

// UpdatePolicy 替换银行自身的 LTV/LTI 上限
func (s *LendingService) UpdatePolicy(ctx context.Context, cmd PolicyCommand) (*StateDTO, error) {
	policy := cmd.toDomain()
	if err := s.bank.UpdatePolicy(policy); err != nil {
		return nil, err
	}

	state := s.bank.Snapshot()
	s.saveState(ctx, &state)
	s.publish(ctx, domain.PolicyUpdatedEventType, "bank", domain.PolicyUpdatedEvent{Policy: policy, Timestamp: state.UpdatedAt})
	s.logger.InfoContext(ctx, "lending policy updated", "policy", policy)
	return s.State(ctx)
}

func (s *LendingService) CentralBankPolicy(ctx context.Context) centralbank.PolicyValues {
	return s.central.Values()
}

// UpdateCentralBankPolicy 调整央行政策。
// 新基准利率立即用于报价利率与 ICR 约束，等额本息与只付利息系数在下一次 Step 时按新利率重算。
func (s *LendingService) UpdateCentralBankPolicy(ctx context.Context, v centralbank.PolicyValues) (centralbank.PolicyValues, error) {
	if err := s.central.Update(v); err != nil {
		return centralbank.PolicyValues{}, err
	}
	s.updateGauges(s.bank.Snapshot())
	s.logger.InfoContext(ctx, "central bank policy updated", "base_rate", v.BaseRate, "max_fraction_over_lti", v.MaxFractionOverLTI)
	return s.central.Values(), nil
}

// Indicators 核心宏观审慎指标
func (s *LendingService) Indicators(ctx context.Context) (*IndicatorsDTO, error) {
	state := s.bank.Snapshot()
	return &IndicatorsDTO{
		CoreIndicators: s.stats.Indicators(state.InterestSpread),
		MortgageRate:   state.MortgageRate,
	}, nil
}

// Restore 启动时恢复快照与未结清合同
func (s *LendingService) Restore(ctx context.Context) error {
	state, err := s.stateRepo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load bank state: %w", err)
	}
	if state != nil {
		if err := s.bank.Restore(*state); err != nil {
			return fmt.Errorf("restore bank state: %w", err)
		}
	}

	active, err := s.repo.FindActive(ctx)
	if err != nil {
		return fmt.Errorf("load active mortgages: %w", err)
	}
	s.bank.RestoreLedger(active)
	s.stats.Restore(active)

	snapshot := s.bank.Snapshot()
	s.updateGauges(snapshot)
	s.logger.InfoContext(ctx, "lending state restored",
		"month", snapshot.Month,
		"rate", snapshot.MortgageRate,
		"mortgages", snapshot.OutstandingMortgages)
	return nil
}

func (s *LendingService) observeError(ctx context.Context, op string, cmd LoanCommand, err error) {
	var inv *domain.InvariantError
	if !errors.As(err, &inv) {
		s.logger.WarnContext(ctx, "loan request rejected", "op", op, "borrower_id", cmd.Borrower.ID, "error", err)
		return
	}
	s.metrics.InvariantViolationsTotal.Inc()
	s.logger.ErrorContext(ctx, "underwriting invariant violated",
		"op", op,
		"stage", inv.Op,
		"borrower_id", cmd.Borrower.ID,
		"house_price", cmd.HousePrice.String(),
		"down_payment", inv.DownPayment,
		"liquid_wealth", inv.LiquidWealth,
		"buy_to_let", cmd.BuyToLet,
		"reason", inv.Reason)
}

func (s *LendingService) saveState(ctx context.Context, state *domain.BankState) {
	if err := s.stateRepo.Save(ctx, state); err != nil {
		s.logger.ErrorContext(ctx, "failed to save bank state", "month", state.Month, "error", err)
	}
}

func (s *LendingService) publish(ctx context.Context, eventType, key string, payload any) {
	if err := s.publisher.Publish(ctx, eventType, key, payload); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event", "event_type", eventType, "key", key, "error", err)
	}
}

func (s *LendingService) updateGauges(state domain.BankState) {
	s.metrics.MortgageRate.Set(state.MortgageRate)
	s.metrics.InterestSpread.Set(state.InterestSpread)
	s.metrics.MonthlyVolume.Set(state.Counters.SupplyVolume)
	s.metrics.SupplyTarget.Set(state.SupplyTarget)
	s.metrics.OutstandingMortgages.Set(float64(state.OutstandingMortgages))
}
