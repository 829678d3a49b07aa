package domain

import "sort"

// CreditLedger 银行持有的未结清按揭
type CreditLedger interface {
	Add(m *MortgageAgreement)
	Remove(id string) (*MortgageAgreement, bool)
	Get(id string) (*MortgageAgreement, bool)
	Len() int
	OutstandingPrincipal() float64
	List() []*MortgageAgreement
	Clear()
}

// MemoryLedger 基于 map 的账本，由 Bank 的锁保护，本身不是并发安全的
type MemoryLedger struct {
	mortgages map[string]*MortgageAgreement
}

// NewMemoryLedger 创建空账本
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{mortgages: make(map[string]*MortgageAgreement)}
}

// Add 按 ID 登记按揭，同 ID 覆盖
func (l *MemoryLedger) Add(m *MortgageAgreement) {
	l.mortgages[m.ID] = m
}

// Remove 移除并返回按揭
func (l *MemoryLedger) Remove(id string) (*MortgageAgreement, bool) {
	m, ok := l.mortgages[id]
	if ok {
		delete(l.mortgages, id)
	}
	return m, ok
}

// Get 按 ID 查询
func (l *MemoryLedger) Get(id string) (*MortgageAgreement, bool) {
	m, ok := l.mortgages[id]
	return m, ok
}

// Len 未结清按揭笔数
func (l *MemoryLedger) Len() int {
	return len(l.mortgages)
}

// OutstandingPrincipal 未结清本金合计
func (l *MemoryLedger) OutstandingPrincipal() float64 {
	total := 0.0
	for _, m := range l.mortgages {
		total += m.Principal
	}
	return total
}

// List 按创建时间、ID 排序
func (l *MemoryLedger) List() []*MortgageAgreement {
	out := make([]*MortgageAgreement, 0, len(l.mortgages))
	for _, m := range l.mortgages {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Clear 清空账本
func (l *MemoryLedger) Clear() {
	l.mortgages = make(map[string]*MortgageAgreement)
}
