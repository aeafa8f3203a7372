package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/fizanakara/membership-engine/internal/domain"
)

// Config holds all configuration for our application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Mail      MailConfig      `mapstructure:"mail"`
	Business  BusinessConfig  `mapstructure:"business"`
	Bootstrap BootstrapConfig `mapstructure:"bootstrap"`
	Health    HealthConfig    `mapstructure:"health"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	Env             string        `mapstructure:"env"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the connection string handed to lib/pq.
func (d DatabaseConfig) DSN() string {
	return d.URL
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type SchedulerConfig struct {
	Timezone           string `mapstructure:"timezone"`
	TokenCleanupSpec   string `mapstructure:"token_cleanup_spec"`
	OverdueRefreshSpec string `mapstructure:"overdue_refresh_spec"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type AuthConfig struct {
	JWTSecret        string        `mapstructure:"jwt_secret"`
	AccessTokenTTL   time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL  time.Duration `mapstructure:"refresh_token_ttl"`
	ResetTokenTTL    time.Duration `mapstructure:"reset_token_ttl"`
	ResetURL         string        `mapstructure:"reset_url"`
	LoginMaxAttempts int           `mapstructure:"login_max_attempts"`
	LoginWindow      time.Duration `mapstructure:"login_window"`
}

type MailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// Enabled reports whether outbound mail is configured.
func (m MailConfig) Enabled() bool {
	return m.Host != ""
}

type BusinessConfig struct {
	AdultAge       int    `mapstructure:"adult_age"`
	StudentMaxAge  int    `mapstructure:"student_max_age"`
	StudentAmount  string `mapstructure:"student_amount"`
	StandardAmount string `mapstructure:"standard_amount"`
	AdultStatus    string `mapstructure:"adult_status"`
}

type BootstrapConfig struct {
	Email     string `mapstructure:"email"`
	Password  string `mapstructure:"password"`
	FirstName string `mapstructure:"first_name"`
	LastName  string `mapstructure:"last_name"`
	Phone     string `mapstructure:"phone"`
	BirthDate string `mapstructure:"birth_date"`
}

type HealthConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// Load reads configuration from environment variables and an optional .env file
func Load() (*Config, error) {
	// Don't fail if .env file doesn't exist
	_ = godotenv.Load()

	return LoadFrom(viper.New())
}

// LoadFrom decodes configuration using the given viper instance
func LoadFrom(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	// SERVER_PORT -> server.port
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.access_token_ttl", "15m")
	v.SetDefault("auth.refresh_token_ttl", "168h")
	v.SetDefault("auth.reset_token_ttl", "30m")
	v.SetDefault("auth.reset_url", "http://localhost:3000/reset-password")
	v.SetDefault("auth.login_max_attempts", 5)
	v.SetDefault("auth.login_window", "15m")

	v.SetDefault("mail.host", "")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "no-reply@localhost")

	v.SetDefault("business.adult_age", 18)
	v.SetDefault("business.student_max_age", 21)
	v.SetDefault("business.student_amount", "30000")
	v.SetDefault("business.standard_amount", "40000")
	v.SetDefault("business.adult_status", string(domain.MemberStatusWorker))

	v.SetDefault("bootstrap.email", "")
	v.SetDefault("bootstrap.password", "")
	v.SetDefault("bootstrap.first_name", "Super")
	v.SetDefault("bootstrap.last_name", "Admin")
	v.SetDefault("bootstrap.phone", "0000000000")
	v.SetDefault("bootstrap.birth_date", "1970-01-01")

	v.SetDefault("scheduler.timezone", "UTC")
	v.SetDefault("scheduler.token_cleanup_spec", "0 0 1 * * *")
	v.SetDefault("scheduler.overdue_refresh_spec", "0 30 0 * * *")

	v.SetDefault("health.timeout", "5s")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("AUTH_JWT_SECRET must be at least 32 bytes")
	}

	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 || c.Auth.ResetTokenTTL <= 0 {
		return fmt.Errorf("token TTLs must be greater than 0")
	}

	if c.Auth.LoginMaxAttempts <= 0 {
		return fmt.Errorf("AUTH_LOGIN_MAX_ATTEMPTS must be greater than 0")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOGGING_LEVEL must be one of debug, info, warn, error")
	}

	if c.Business.AdultAge <= 0 || c.Business.StudentMaxAge < c.Business.AdultAge {
		return fmt.Errorf("BUSINESS_STUDENT_MAX_AGE must be at least BUSINESS_ADULT_AGE")
	}

	// Validate contribution amounts
	if _, err := decimal.NewFromString(c.Business.StudentAmount); err != nil {
		return fmt.Errorf("BUSINESS_STUDENT_AMOUNT must be a valid decimal: %w", err)
	}
	if _, err := decimal.NewFromString(c.Business.StandardAmount); err != nil {
		return fmt.Errorf("BUSINESS_STANDARD_AMOUNT must be a valid decimal: %w", err)
	}

	switch domain.MemberStatus(c.Business.AdultStatus) {
	case domain.MemberStatusStudent, domain.MemberStatusWorker:
	default:
		return fmt.Errorf("BUSINESS_ADULT_STATUS must be STUDENT or WORKER")
	}

	if c.Bootstrap.Email != "" {
		if _, err := domain.ParseDate(c.Bootstrap.BirthDate); err != nil {
			return fmt.Errorf("BOOTSTRAP_BIRTH_DATE: %w", err)
		}
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("SCHEDULER_TIMEZONE must be a valid location: %w", err)
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// GetContributionPolicy returns the amount table built from the business section
func (c *Config) GetContributionPolicy() domain.ContributionPolicy {
	return domain.ContributionPolicy{
		AdultAge:       c.Business.AdultAge,
		StudentMaxAge:  c.Business.StudentMaxAge,
		StudentAmount:  decimal.RequireFromString(c.Business.StudentAmount),
		StandardAmount: decimal.RequireFromString(c.Business.StandardAmount),
		AdultStatus:    domain.MemberStatus(c.Business.AdultStatus),
	}
}

// GetSchedulerLocation returns the scheduler timezone
func (c *Config) GetSchedulerLocation() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// GetHealthTimeout returns the health check timeout as duration
func (c *Config) GetHealthTimeout() time.Duration {
	if c.Health.Timeout <= 0 {
		return 5 * time.Second
	}
	return c.Health.Timeout
}
