package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.True(t, cfg.Billing.RoundingUnit.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, 10, cfg.Billing.MinGapDays)
	assert.Equal(t, time.Hour, cfg.Attendance.Window)
	assert.Equal(t, 10*time.Minute, cfg.CORS.MaxAge)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("BILLING_ROUNDING_UNIT", "500")
	t.Setenv("REPORT_CACHE_TTL", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.True(t, cfg.Billing.RoundingUnit.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, 5*time.Minute, cfg.Reports.CacheTTL)
	assert.Equal(t, "America/Bogota", cfg.Billing.Timezone)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Env:        EnvProduction,
			JWT:        JWTConfig{Secret: "s3cret"},
			Billing:    BillingConfig{RoundingUnit: decimal.NewFromInt(1000), MinGapDays: 10},
			Attendance: AttendanceConfig{Window: time.Hour},
		}
	}
	require.NoError(t, valid().Validate())

	cfg := valid()
	cfg.JWT.Secret = devSecret
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Billing.RoundingUnit = decimal.Zero
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Billing.MinGapDays = -1
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Attendance.Window = 0
	assert.Error(t, cfg.Validate())
}

func TestBillingLocationFallsBackToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, BillingConfig{}.Location())
	assert.Equal(t, time.UTC, BillingConfig{Timezone: "Nowhere/Atlantis"}.Location())
}
