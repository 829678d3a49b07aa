// Package metrics 提供放贷服务的 Prometheus 指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "lending"

// Metrics 指标集合
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	GRPCRequestsTotal   *prometheus.CounterVec

	// 业务指标
	QuotesTotal              prometheus.Counter
	OriginationsTotal        *prometheus.CounterVec
	VoidLoansTotal           prometheus.Counter
	InvariantViolationsTotal prometheus.Counter
	TerminationsTotal        *prometheus.CounterVec
	PersistenceFailures      prometheus.Counter

	MortgageRate         prometheus.Gauge
	InterestSpread       prometheus.Gauge
	MonthlyVolume        prometheus.Gauge
	SupplyTarget         prometheus.Gauge
	OutstandingMortgages prometheus.Gauge
}

// New 创建指标实例
func New(serviceName string) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		GRPCRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "grpc_requests_total",
			Help:      "Total gRPC requests",
		}, []string{"method", "code"}),

		QuotesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "quotes_total",
			Help:      "Total mortgage quotes evaluated",
		}),
		OriginationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "originations_total",
			Help:      "Total mortgages originated",
		}, []string{"purpose"}),
		VoidLoansTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "void_loans_total",
			Help:      "Loan requests approved with zero principal",
		}),
		InvariantViolationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "invariant_violations_total",
			Help:      "Underwriting invariant violations",
		}),
		TerminationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "terminations_total",
			Help:      "Mortgage contracts ended",
		}, []string{"reason"}),
		PersistenceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "persistence_failures_total",
			Help:      "Ledger mirror writes that failed",
		}),

		MortgageRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "mortgage_rate",
			Help:      "Current annual mortgage interest rate",
		}),
		InterestSpread: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "interest_spread",
			Help:      "Mortgage rate minus base rate",
		}),
		MonthlyVolume: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "monthly_credit_volume",
			Help:      "Principal lent in the current month",
		}),
		SupplyTarget: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "credit_supply_target",
			Help:      "Monthly credit supply target",
		}),
		OutstandingMortgages: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "outstanding_mortgages",
			Help:      "Mortgages currently held in the ledger",
		}),
	}
}

// Collectors 返回全部指标
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.GRPCRequestsTotal,
		m.QuotesTotal,
		m.OriginationsTotal,
		m.VoidLoansTotal,
		m.InvariantViolationsTotal,
		m.TerminationsTotal,
		m.PersistenceFailures,
		m.MortgageRate,
		m.InterestSpread,
		m.MonthlyVolume,
		m.SupplyTarget,
		m.OutstandingMortgages,
	}
}

// Register 注册所有指标
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
