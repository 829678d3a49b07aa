package domain

import (
	"math"
)

// maxPriceMargin 计算最高价格时从存款中预留的一分钱
const maxPriceMargin = 0.01

// Underwriter 单次审批所需的只读视图。
// 同一视图上的审批与报价不会修改任何状态。
type Underwriter struct {
	Params   Parameters
	Policy   LendingPolicy
	Rate     RateState
	Counters MonthlyCounters
	Central  PolicySource
	Market   MarketFeed
}

// MortgageInterestRate 当前年化按揭利率
func (u Underwriter) MortgageInterestRate() float64 {
	return u.Central.BaseRate() + u.Rate.InterestSpread
}

// LoanToIncomeLimit 自住贷款的 LTI 上限。
// 本月超上限贷款比例高于央行允许值时，取银行与央行上限中较小者。
func (u Underwriter) LoanToIncomeLimit(firstTimeBuyer, ownerOccupier bool) (float64, error) {
	if !ownerOccupier {
		return 0, &InvariantError{
			Op:     "loan_to_income_limit",
			Reason: "LTI limit requested for a buy-to-let mortgage",
		}
	}
	limit := u.Policy.hardLoanToIncomeLimit(firstTimeBuyer)
	if u.Counters.OverLTIFraction() > u.Central.MaxFractionOOMortgagesOverLTILimit() {
		limit = math.Min(limit, u.Central.LoanToIncomeLimit(firstTimeBuyer, true))
	}
	return limit, nil
}

// Approve 计算贷款条件，不产生副作用。本金为零表示拒贷。
func (u Underwriter) Approve(b Borrower, housePrice, desiredDownPayment float64, ownerOccupier bool) (*MortgageAgreement, error) {
	if !(housePrice > 0) {
		return nil, ErrInvalidHousePrice
	}

	ftb := b.IsFirstTimeBuyer()
	wealth := b.BankBalance()
	rate := u.MortgageInterestRate()
	factor := u.Rate.MonthlyPaymentFactor(ownerOccupier)

	principal := housePrice * u.Policy.LoanToValueLimit(ftb, ownerOccupier)
	if ownerOccupier {
		affordable := math.Max(0, u.Params.AffordabilityCoefficient*b.MonthlyNetEmploymentIncome()) / factor
		principal = math.Min(principal, affordable)

		lti, err := u.LoanToIncomeLimit(ftb, true)
		if err != nil {
			return nil, err
		}
		principal = math.Min(principal, b.AnnualGrossEmploymentIncome()*lti)
	} else {
		principal = math.Min(principal, u.icrPrincipal(housePrice, rate))
	}
	principal = math.Max(0, principal)

	downPayment := desiredDownPayment
	if !(downPayment > 0) {
		downPayment = 0
	}
	if downPayment > housePrice {
		downPayment = housePrice
	}
	if downPayment > wealth {
		downPayment = math.Max(0, wealth)
	}
	if minDown := housePrice - principal; downPayment < minDown {
		downPayment = minDown
	}
	principal = housePrice - downPayment

	if downPayment > wealth {
		return nil, &InvariantError{
			Op:           "approve",
			BorrowerID:   b.ID(),
			DownPayment:  downPayment,
			LiquidWealth: wealth,
			Reason:       "required down payment exceeds liquid wealth",
		}
	}

	return &MortgageAgreement{
		BorrowerID:          b.ID(),
		Principal:           principal,
		DownPayment:         downPayment,
		PurchasePrice:       principal + downPayment,
		MonthlyPayment:      principal * factor,
		MonthlyInterestRate: rate / 12.0,
		NPayments:           u.Params.NPayments,
		IsBuyToLet:          !ownerOccupier,
		IsFirstTimeBuyer:    ftb,
		AnnualGrossIncome:   b.AnnualGrossEmploymentIncome(),
	}, nil
}

// icrPrincipal 租金收益覆盖利息所允许的最大本金，比例无效时不约束
func (u Underwriter) icrPrincipal(housePrice, rate float64) float64 {
	cover := u.Central.InterestCoverRatioLimit(false) * rate
	if cover <= 0 {
		return math.Inf(1)
	}
	return u.Market.ExpAvFlowYield() * housePrice / cover
}

// MaxMortgagePrice 申请人能负担的最高房价，结果为 +Inf 表示不受约束
func (u Underwriter) MaxMortgagePrice(b Borrower, ownerOccupier bool) (float64, error) {
	ftb := b.IsFirstTimeBuyer()
	maxDown := b.BankBalance() - maxPriceMargin

	price := math.Inf(1)
	if ltv := u.Policy.LoanToValueLimit(ftb, ownerOccupier); ltv < 1 {
		price = maxDown / (1.0 - ltv)
	}

	if ownerOccupier {
		factor := u.Rate.MonthlyPaymentFactor(true)
		affordable := maxDown + math.Max(0, u.Params.AffordabilityCoefficient*b.MonthlyNetEmploymentIncome())/factor
		price = math.Min(price, affordable)

		lti, err := u.LoanToIncomeLimit(ftb, true)
		if err != nil {
			return 0, err
		}
		price = math.Min(price, b.AnnualGrossEmploymentIncome()*lti+maxDown)
	} else {
		cover := u.Central.InterestCoverRatioLimit(false) * u.MortgageInterestRate()
		if cover > 0 {
			icrPrice := nonBinding(maxDown / (1.0 - u.Market.ExpAvFlowYield()/cover))
			price = math.Min(price, icrPrice)
		}
	}

	if price < 0 {
		return 0, nil
	}
	return price, nil
}

// nonBinding ICR 反推出的负价格或 NaN 视为不约束
func nonBinding(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return math.Inf(1)
	}
	return v
}
