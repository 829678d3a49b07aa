package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/robfig/cron/v3"

	"github.com/wyfcoding/mortgagebank/internal/lending/domain"
)

// MonthlyDriver 按 cron 表达式触发月度利率调整
type MonthlyDriver struct {
	service    *LendingService
	cron       *cron.Cron
	spec       string
	population atomic.Int64
	logger     *slog.Logger
}

func NewMonthlyDriver(service *LendingService, spec string, population int, logger *slog.Logger) *MonthlyDriver {
	d := &MonthlyDriver{
		service: service,
		cron:    cron.New(),
		spec:    spec,
		logger:  logger,
	}
	d.population.Store(int64(population))
	return d
}

// SetPopulation 设置下一次调整使用的家庭总数
func (d *MonthlyDriver) SetPopulation(population int) error {
	if population < 0 {
		return fmt.Errorf("%w: %d", domain.ErrInvalidPopulation, population)
	}
	d.population.Store(int64(population))
	return nil
}

func (d *MonthlyDriver) Population() int {
	return int(d.population.Load())
}

// RunOnce 立即执行一次月度调整
func (d *MonthlyDriver) RunOnce(ctx context.Context) {
	population := d.Population()
	if _, err := d.service.Step(ctx, StepCommand{Population: population}); err != nil {
		d.logger.ErrorContext(ctx, "scheduled lending step failed", "population", population, "error", err)
	}
}

func (d *MonthlyDriver) Start() error {
	if _, err := d.cron.AddFunc(d.spec, func() { d.RunOnce(context.Background()) }); err != nil {
		return fmt.Errorf("schedule monthly step %q: %w", d.spec, err)
	}
	d.cron.Start()
	d.logger.Info("monthly driver started", "spec", d.spec, "population", d.Population())
	return nil
}

// Stop 等待正在执行的调整结束
func (d *MonthlyDriver) Stop() {
	<-d.cron.Stop().Done()
	d.logger.Info("monthly driver stopped")
}
