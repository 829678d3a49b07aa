package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wyfcoding/mortgagebank/internal/lending/domain"
)

const (
	statusActive     = "ACTIVE"
	statusTerminated = "TERMINATED"
)

// MortgageModel 按揭合同表
type MortgageModel struct {
	gorm.Model
	MortgageID          string          `gorm:"column:mortgage_id;type:varchar(64);uniqueIndex;not null"`
	BorrowerID          string          `gorm:"column:borrower_id;type:varchar(64);index;not null"`
	Principal           decimal.Decimal `gorm:"column:principal;type:decimal(20,8);not null"`
	DownPayment         decimal.Decimal `gorm:"column:down_payment;type:decimal(20,8);not null"`
	PurchasePrice       decimal.Decimal `gorm:"column:purchase_price;type:decimal(20,8);not null"`
	MonthlyPayment      decimal.Decimal `gorm:"column:monthly_payment;type:decimal(20,8);not null"`
	MonthlyInterestRate float64         `gorm:"column:monthly_interest_rate;not null"`
	NPayments           int             `gorm:"column:n_payments;not null"`
	BuyToLet            bool            `gorm:"column:buy_to_let;not null"`
	FirstTimeBuyer      bool            `gorm:"column:first_time_buyer;not null"`
	AnnualGrossIncome   decimal.Decimal `gorm:"column:annual_gross_income;type:decimal(20,8);not null"`
	Month               int             `gorm:"column:month;index;not null"`
	OriginatedAt        time.Time       `gorm:"column:originated_at;not null"`
	Status              string          `gorm:"column:status;type:varchar(20);index;not null"`
	TerminationReason   string          `gorm:"column:termination_reason;type:varchar(20)"`
	TerminatedAt        *time.Time      `gorm:"column:terminated_at"`
}

func (MortgageModel) TableName() string { return "mortgages" }

type MortgageRepo struct {
	db *gorm.DB
}

func NewMortgageRepo(db *gorm.DB) domain.MortgageRepository {
	return &MortgageRepo{db: db}
}

// AutoMigrate 建表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&MortgageModel{})
}

func (r *MortgageRepo) Save(ctx context.Context, m *domain.MortgageAgreement) error {
	model := fromDomain(m)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "mortgage_id"}},
		UpdateAll: true,
	}).Create(model).Error
	if err != nil {
		return fmt.Errorf("failed to save mortgage %s: %w", m.ID, err)
	}
	return nil
}

func (r *MortgageRepo) MarkTerminated(ctx context.Context, id string, reason domain.TerminationReason) error {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&MortgageModel{}).
		Where("mortgage_id = ? AND status = ?", id, statusActive).
		Updates(map[string]any{
			"status":             statusTerminated,
			"termination_reason": string(reason),
			"terminated_at":      &now,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to terminate mortgage %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrMortgageNotFound, id)
	}
	return nil
}

func (r *MortgageRepo) Get(ctx context.Context, id string) (*domain.MortgageAgreement, error) {
	var model MortgageModel
	if err := r.db.WithContext(ctx).Where("mortgage_id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrMortgageNotFound, id)
		}
		return nil, err
	}
	return toDomain(&model), nil
}

// FindActive 未结清合同，按发放时间排序
func (r *MortgageRepo) FindActive(ctx context.Context) ([]*domain.MortgageAgreement, error) {
	var models []MortgageModel
	if err := r.db.WithContext(ctx).Where("status = ?", statusActive).Order("originated_at, mortgage_id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to load active mortgages: %w", err)
	}
	out := make([]*domain.MortgageAgreement, 0, len(models))
	for i := range models {
		out = append(out, toDomain(&models[i]))
	}
	return out, nil
}

func fromDomain(m *domain.MortgageAgreement) *MortgageModel {
	return &MortgageModel{
		MortgageID:          m.ID,
		BorrowerID:          m.BorrowerID,
		Principal:           decimal.NewFromFloat(m.Principal),
		DownPayment:         decimal.NewFromFloat(m.DownPayment),
		PurchasePrice:       decimal.NewFromFloat(m.PurchasePrice),
		MonthlyPayment:      decimal.NewFromFloat(m.MonthlyPayment),
		MonthlyInterestRate: m.MonthlyInterestRate,
		NPayments:           m.NPayments,
		BuyToLet:            m.IsBuyToLet,
		FirstTimeBuyer:      m.IsFirstTimeBuyer,
		AnnualGrossIncome:   decimal.NewFromFloat(m.AnnualGrossIncome),
		Month:               m.Month,
		OriginatedAt:        m.CreatedAt,
		Status:              statusActive,
	}
}

func toDomain(m *MortgageModel) *domain.MortgageAgreement {
	return &domain.MortgageAgreement{
		ID:                  m.MortgageID,
		BorrowerID:          m.BorrowerID,
		Principal:           m.Principal.InexactFloat64(),
		DownPayment:         m.DownPayment.InexactFloat64(),
		PurchasePrice:       m.PurchasePrice.InexactFloat64(),
		MonthlyPayment:      m.MonthlyPayment.InexactFloat64(),
		MonthlyInterestRate: m.MonthlyInterestRate,
		NPayments:           m.NPayments,
		IsBuyToLet:          m.BuyToLet,
		IsFirstTimeBuyer:    m.FirstTimeBuyer,
		AnnualGrossIncome:   m.AnnualGrossIncome.InexactFloat64(),
		Month:               m.Month,
		CreatedAt:           m.OriginatedAt,
	}
}
