package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fizanakara/membership-engine/internal/domain"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadFromDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/members?sslmode=disable")
	t.Setenv("AUTH_JWT_SECRET", testSecret)

	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 30*time.Minute, cfg.Auth.ResetTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTokenTTL)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.False(t, cfg.Mail.Enabled())
	assert.True(t, cfg.IsDevelopment())

	policy := cfg.GetContributionPolicy()
	assert.Equal(t, domain.DefaultContributionPolicy().AdultAge, policy.AdultAge)
	assert.True(t, policy.StudentAmount.Equal(decimal.NewFromInt(30000)))
	assert.True(t, policy.StandardAmount.Equal(decimal.NewFromInt(40000)))
	assert.Equal(t, domain.MemberStatusWorker, policy.AdultStatus)
}

func TestLoadFromEnvironmentOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/members")
	t.Setenv("AUTH_JWT_SECRET", testSecret)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_ENV", "production")
	t.Setenv("AUTH_RESET_TOKEN_TTL", "45m")
	t.Setenv("BUSINESS_STANDARD_AMOUNT", "50000")
	t.Setenv("MAIL_HOST", "smtp.example.org")

	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 45*time.Minute, cfg.Auth.ResetTokenTTL)
	assert.True(t, cfg.GetContributionPolicy().StandardAmount.Equal(decimal.NewFromInt(50000)))
	assert.True(t, cfg.Mail.Enabled())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: "8080"},
			Database: DatabaseConfig{URL: "postgres://localhost/members"},
			Auth: AuthConfig{
				JWTSecret:        testSecret,
				AccessTokenTTL:   time.Minute,
				RefreshTokenTTL:  time.Hour,
				ResetTokenTTL:    time.Minute,
				LoginMaxAttempts: 5,
			},
			Logging: LoggingConfig{Level: "info"},
			Business: BusinessConfig{
				AdultAge:       18,
				StudentMaxAge:  21,
				StudentAmount:  "30000",
				StandardAmount: "40000",
				AdultStatus:    "WORKER",
			},
			Scheduler: SchedulerConfig{Timezone: "UTC"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing database url", func(c *Config) { c.Database.URL = "" }, "DATABASE_URL"},
		{"short jwt secret", func(c *Config) { c.Auth.JWTSecret = "short" }, "AUTH_JWT_SECRET"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "LOGGING_LEVEL"},
		{"bad amount", func(c *Config) { c.Business.StudentAmount = "thirty" }, "BUSINESS_STUDENT_AMOUNT"},
		{"bad adult status", func(c *Config) { c.Business.AdultStatus = "RETIRED" }, "BUSINESS_ADULT_STATUS"},
		{"bad timezone", func(c *Config) { c.Scheduler.Timezone = "Mars/Olympus" }, "SCHEDULER_TIMEZONE"},
		{"bad bootstrap birth date", func(c *Config) {
			c.Bootstrap.Email = "root@example.org"
			c.Bootstrap.BirthDate = "yesterday"
		}, "BOOTSTRAP_BIRTH_DATE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
