package domain

import (
	"sort"
	"sync"

	lending "github.com/wyfcoding/mortgagebank/internal/lending/domain"
)

// monthStats 单月放贷统计
type monthStats struct {
	FirstTimeBuyerAdvances int
	HomeMoverAdvances      int
	BuyToLetAdvances       int
	NewCredit              float64
	OwnerOccupierLTI       []float64
	OwnerOccupierLTV       []float64
	BuyToLetLTV            []float64
}

// approvals 全部获批贷款，含买房出租
func (m monthStats) approvals() int {
	return m.FirstTimeBuyerAdvances + m.HomeMoverAdvances + m.BuyToLetAdvances
}

// Collector 信贷供给统计，实现 lending.CreditSink
type Collector struct {
	mu sync.Mutex

	windowMonths int
	ukHouseholds float64

	month      int
	population int
	current    monthStats
	history    []monthStats

	outstandingOO  float64
	outstandingBTL float64
	prevTotal      float64
	creditGrowth   float64
}

// NewCollector windowMonths 为 LTI/LTV 样本保留的月数
func NewCollector(windowMonths int, ukHouseholds float64) *Collector {
	if windowMonths <= 0 {
		windowMonths = 1
	}
	return &Collector{windowMonths: windowMonths, ukHouseholds: ukHouseholds}
}

// RecordLoan 记录一笔实际发放的贷款
func (c *Collector) RecordLoan(_ lending.Borrower, m *lending.MortgageAgreement) {
	if m == nil || m.Principal <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current.NewCredit += m.Principal
	switch {
	case m.IsBuyToLet:
		c.current.BuyToLetAdvances++
		c.current.BuyToLetLTV = append(c.current.BuyToLetLTV, m.LoanToValue())
		c.outstandingBTL += m.Principal
		return
	case m.IsFirstTimeBuyer:
		c.current.FirstTimeBuyerAdvances++
	default:
		c.current.HomeMoverAdvances++
	}
	c.outstandingOO += m.Principal
	c.current.OwnerOccupierLTV = append(c.current.OwnerOccupierLTV, m.LoanToValue())
	if m.AnnualGrossIncome > 0 {
		c.current.OwnerOccupierLTI = append(c.current.OwnerOccupierLTI, m.LoanToIncome())
	}
}

// EndMortgage 合同结束后扣减存量
func (c *Collector) EndMortgage(m *lending.MortgageAgreement) {
	if m == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if m.IsBuyToLet {
		c.outstandingBTL = max(0, c.outstandingBTL-m.Principal)
	} else {
		c.outstandingOO = max(0, c.outstandingOO-m.Principal)
	}
}

// Restore 用账本中的未结清合同重建存量
func (c *Collector) Restore(mortgages []*lending.MortgageAgreement) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.outstandingOO, c.outstandingBTL = 0, 0
	for _, m := range mortgages {
		if m.IsBuyToLet {
			c.outstandingBTL += m.Principal
		} else {
			c.outstandingOO += m.Principal
		}
	}
	c.prevTotal = c.outstandingOO + c.outstandingBTL
}

// Step 结束当前月：归档样本并计算信贷存量增速
func (c *Collector) Step(population int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.outstandingOO + c.outstandingBTL
	if c.prevTotal > 0 {
		c.creditGrowth = (total - c.prevTotal) / c.prevTotal
	} else {
		c.creditGrowth = 0
	}
	c.prevTotal = total

	c.history = append(c.history, c.current)
	if len(c.history) > c.windowMonths {
		c.history = c.history[len(c.history)-c.windowMonths:]
	}
	c.current = monthStats{}
	c.population = population
	c.month++
}

// Indicators 按最近完成的月份计算核心指标，spread 为银行当前利差
func (c *Collector) Indicators(spread float64) CoreIndicators {
	c.mu.Lock()
	defer c.mu.Unlock()

	var last monthStats
	if n := len(c.history); n > 0 {
		last = c.history[n-1]
	}

	var ooLTI, ooLTV, btlLTV []float64
	for _, m := range c.history {
		ooLTI = append(ooLTI, m.OwnerOccupierLTI...)
		ooLTV = append(ooLTV, m.OwnerOccupierLTV...)
		btlLTV = append(btlLTV, m.BuyToLetLTV...)
	}

	scale := 1.0
	if c.ukHouseholds > 0 && c.population > 0 {
		scale = c.ukHouseholds / float64(c.population)
	}

	return CoreIndicators{
		Month:                           c.month,
		OwnerOccupierLTIMeanAboveMedian: meanAboveMedian(ooLTI),
		OwnerOccupierLTVMeanAboveMedian: meanAboveMedian(ooLTV),
		BuyToLetLTVMean:                 mean(btlLTV),
		OwnerOccupierSamples:            len(ooLTV),
		BuyToLetSamples:                 len(btlLTV),
		HouseholdCreditGrowth:           c.creditGrowth * 12.0 * 100.0,
		MortgageApprovals:               float64(last.approvals()) * scale,
		AdvancesToFirstTimeBuyers:       float64(last.FirstTimeBuyerAdvances) * scale,
		AdvancesToBuyToLet:              float64(last.BuyToLetAdvances) * scale,
		AdvancesToHomeMovers:            float64(last.HomeMoverAdvances) * scale,
		InterestRateSpread:              spread * 100.0,
		OutstandingOwnerOccupierCredit:  c.outstandingOO,
		OutstandingBuyToLetCredit:       c.outstandingBTL,
	}
}

// meanAboveMedian 排序后上半部分样本的均值
func meanAboveMedian(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	return mean(sorted[len(sorted)/2:])
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
