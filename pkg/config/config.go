// Package config 提供 TOML 配置加载、环境变量覆盖与校验
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 服务配置
type Config struct {
	// 服务名称
	ServiceName string `mapstructure:"service_name"`
	// 服务版本
	Version string `mapstructure:"version"`
	// 环境：dev, staging, prod
	Environment string `mapstructure:"environment"`

	HTTP     HTTPConfig     `mapstructure:"http"`
	GRPC     GRPCConfig     `mapstructure:"grpc"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`

	// 接口限流
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`

	// 贷款银行参数
	Bank BankConfig `mapstructure:"bank"`
	// 央行宏观审慎政策
	CentralBank CentralBankConfig `mapstructure:"central_bank"`
	// 租赁市场数据源
	Market MarketConfig `mapstructure:"market"`
	// 月度调度
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	// 信贷统计
	CreditSupply CreditSupplyConfig `mapstructure:"credit_supply"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// GRPCConfig gRPC 服务配置
type GRPCConfig struct {
	Host                 string `mapstructure:"host"`
	Port                 int    `mapstructure:"port"`
	MaxConcurrentStreams uint32 `mapstructure:"max_concurrent_streams"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 驱动：mysql, postgres
	Driver          string `mapstructure:"driver"`
	DSN             string `mapstructure:"dsn"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	LogEnabled      bool   `mapstructure:"log_enabled"`
	// 慢查询阈值（毫秒）
	SlowQueryThreshold int `mapstructure:"slow_query_threshold"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	MaxPoolSize  int    `mapstructure:"max_pool_size"`
	ConnTimeout  int    `mapstructure:"conn_timeout"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	// 银行状态快照 key 前缀
	StatePrefix string `mapstructure:"state_prefix"`
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Brokers      []string `mapstructure:"brokers"`
	Topic        string   `mapstructure:"topic"`
	MaxRetries   int      `mapstructure:"max_retries"`
	RetryBackoff int      `mapstructure:"retry_backoff"`
	// 异步放贷上报队列长度
	SinkBuffer int `mapstructure:"sink_buffer"`
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
	WithCaller bool   `mapstructure:"with_caller"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// RateLimitConfig 令牌桶限流配置
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	QPS     float64 `mapstructure:"qps"`
	Burst   int     `mapstructure:"burst"`
}

// BankConfig 银行信贷参数
type BankConfig struct {
	// 初始按揭利率（年化）
	InitialRate float64 `mapstructure:"initial_rate"`
	// 每户每月目标放贷量
	CreditSupplyTarget float64 `mapstructure:"credit_supply_target"`
	// 放贷需求对利率的敏感度
	DDemandDInterest float64 `mapstructure:"d_demand_d_interest"`
	// 每月利率调整的比例
	RateAdjustmentFraction float64 `mapstructure:"rate_adjustment_fraction"`
	MaxFirstTimeBuyerLTV   float64 `mapstructure:"max_ftb_ltv"`
	MaxOwnerOccupierLTV    float64 `mapstructure:"max_oo_ltv"`
	MaxBuyToLetLTV         float64 `mapstructure:"max_btl_ltv"`
	MaxFirstTimeBuyerLTI   float64 `mapstructure:"max_ftb_lti"`
	MaxOwnerOccupierLTI    float64 `mapstructure:"max_oo_lti"`
	// 月供占税后收入的最大比例
	AffordabilityCoefficient float64 `mapstructure:"affordability_coefficient"`
	// 还款期数（月）
	NPayments int `mapstructure:"n_payments"`
}

// CentralBankConfig 央行政策参数
type CentralBankConfig struct {
	BaseRate             float64 `mapstructure:"base_rate"`
	MaxFirstTimeBuyerLTI float64 `mapstructure:"max_ftb_lti"`
	MaxOwnerOccupierLTI  float64 `mapstructure:"max_oo_lti"`
	// 允许超过 LTI 上限的自住按揭比例
	MaxFractionOverLTI float64 `mapstructure:"max_fraction_over_lti"`
	// 买房出租的利息覆盖率下限
	BuyToLetICR float64 `mapstructure:"btl_icr"`
}

// MarketConfig 租赁市场收益率来源
type MarketConfig struct {
	YieldKey     string  `mapstructure:"yield_key"`
	InitialYield float64 `mapstructure:"initial_yield"`
}

// SchedulerConfig 月度调度配置
type SchedulerConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	MonthSpec  string `mapstructure:"month_spec"`
	Population int    `mapstructure:"population"`
}

// CreditSupplyConfig 信贷统计配置
type CreditSupplyConfig struct {
	WindowMonths int     `mapstructure:"window_months"`
	UKHouseholds float64 `mapstructure:"uk_households"`
}

// Load 从 TOML 文件加载配置，支持 .env 与环境变量覆盖
func Load(configPath string) (*Config, error) {
	// .env 可选
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	if c.Environment == "" {
		c.Environment = "dev"
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTP.Port)
	}
	if c.GRPC.Port <= 0 || c.GRPC.Port > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPC.Port)
	}
	switch c.Database.Driver {
	case "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database DSN is required for %s driver", c.Database.Driver)
	}
	if c.Bank.NPayments <= 0 {
		return fmt.Errorf("bank.n_payments must be positive, got %d", c.Bank.NPayments)
	}
	if c.Bank.DDemandDInterest <= 0 {
		return fmt.Errorf("bank.d_demand_d_interest must be positive")
	}
	if c.RateLimit.Enabled && (c.RateLimit.QPS <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("ratelimit.qps and ratelimit.burst must be positive when enabled")
	}
	if c.Scheduler.Enabled && c.Scheduler.MonthSpec == "" {
		return fmt.Errorf("scheduler.month_spec is required when scheduler is enabled")
	}
	return nil
}

// FeedbackGain 利率反馈增益 k
func (b BankConfig) FeedbackGain() float64 {
	return b.RateAdjustmentFraction / b.DDemandDInterest
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "dev")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 30)
	v.SetDefault("http.write_timeout", 30)

	v.SetDefault("grpc.host", "0.0.0.0")
	v.SetDefault("grpc.port", 50051)
	v.SetDefault("grpc.max_concurrent_streams", 1000)

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 300)
	v.SetDefault("database.log_enabled", false)
	v.SetDefault("database.slow_query_threshold", 1000)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.max_pool_size", 10)
	v.SetDefault("redis.conn_timeout", 5)
	v.SetDefault("redis.read_timeout", 3)
	v.SetDefault("redis.write_timeout", 3)
	v.SetDefault("redis.state_prefix", "mortgagebank:state:")

	v.SetDefault("kafka.topic", "lending.events")
	v.SetDefault("kafka.max_retries", 3)
	v.SetDefault("kafka.retry_backoff", 100)
	v.SetDefault("kafka.sink_buffer", 1024)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.file_path", "logs/app.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.with_caller", true)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("ratelimit.enabled", false)
	v.SetDefault("ratelimit.qps", 500.0)
	v.SetDefault("ratelimit.burst", 1000)

	v.SetDefault("bank.initial_rate", 0.03)
	v.SetDefault("bank.credit_supply_target", 380.0)
	v.SetDefault("bank.d_demand_d_interest", 1.0e8)
	v.SetDefault("bank.rate_adjustment_fraction", 0.5)
	v.SetDefault("bank.max_ftb_ltv", 0.95)
	v.SetDefault("bank.max_oo_ltv", 0.9)
	v.SetDefault("bank.max_btl_ltv", 0.8)
	v.SetDefault("bank.max_ftb_lti", 6.0)
	v.SetDefault("bank.max_oo_lti", 6.0)
	v.SetDefault("bank.affordability_coefficient", 0.5)
	v.SetDefault("bank.n_payments", 300)

	v.SetDefault("central_bank.base_rate", 0.005)
	v.SetDefault("central_bank.max_ftb_lti", 4.5)
	v.SetDefault("central_bank.max_oo_lti", 4.5)
	v.SetDefault("central_bank.max_fraction_over_lti", 0.15)
	v.SetDefault("central_bank.btl_icr", 1.25)

	v.SetDefault("market.yield_key", "rental:exp_av_flow_yield")
	v.SetDefault("market.initial_yield", 0.05)

	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.month_spec", "@every 1m")
	v.SetDefault("scheduler.population", 10000)

	v.SetDefault("credit_supply.window_months", 3)
	v.SetDefault("credit_supply.uk_households", 0)
}
