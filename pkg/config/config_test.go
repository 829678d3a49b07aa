package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
service_name = "bank"

[database]
dsn = "root:root@tcp(localhost:3306)/bank"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "bank", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.Environment)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 300, cfg.Bank.NPayments)
	assert.InDelta(t, 0.95, cfg.Bank.MaxFirstTimeBuyerLTV, 1e-12)
	assert.InDelta(t, 0.15, cfg.CentralBank.MaxFractionOverLTI, 1e-12)
	assert.Equal(t, 3, cfg.CreditSupply.WindowMonths)
	assert.InDelta(t, 0.5/1.0e8, cfg.Bank.FeedbackGain(), 1e-20)
}

func TestLoad_FileOverridesAndEnv(t *testing.T) {
	path := writeConfig(t, `
service_name = "bank"

[database]
driver = "postgres"
dsn = "host=localhost user=bank dbname=bank"

[bank]
d_demand_d_interest = 2000.0
rate_adjustment_fraction = 0.25
`)
	t.Setenv("APP_HTTP_PORT", "9191")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 9191, cfg.HTTP.Port)
	assert.InDelta(t, 0.25/2000.0, cfg.Bank.FeedbackGain(), 1e-15)
}

func TestLoad_SampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "bank", "config.toml"))
	require.NoError(t, err)

	assert.Equal(t, "mortgage_bank", cfg.ServiceName)
	assert.Equal(t, []string{"127.0.0.1:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "@every 1m", cfg.Scheduler.MonthSpec)
	assert.InDelta(t, 1.25, cfg.CentralBank.BuyToLetICR, 1e-12)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			ServiceName: "bank",
			HTTP:        HTTPConfig{Port: 8080},
			GRPC:        GRPCConfig{Port: 50051},
			Database:    DatabaseConfig{Driver: "mysql", DSN: "dsn"},
			Bank:        BankConfig{NPayments: 300, DDemandDInterest: 1},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing service name", func(c *Config) { c.ServiceName = "" }, true},
		{"bad http port", func(c *Config) { c.HTTP.Port = 0 }, true},
		{"unsupported driver", func(c *Config) { c.Database.Driver = "sqlite" }, true},
		{"missing dsn", func(c *Config) { c.Database.DSN = "" }, true},
		{"zero payments", func(c *Config) { c.Bank.NPayments = 0 }, true},
		{"zero sensitivity", func(c *Config) { c.Bank.DDemandDInterest = 0 }, true},
		{"rate limit without qps", func(c *Config) {
			c.RateLimit = RateLimitConfig{Enabled: true, Burst: 10}
		}, true},
		{"rate limit disabled ignores zero qps", func(c *Config) { c.RateLimit.QPS = 0 }, false},
		{"scheduler without spec", func(c *Config) {
			c.Scheduler.Enabled = true
			c.Scheduler.MonthSpec = ""
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
