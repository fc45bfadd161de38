package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gulfsetup/crm-api/internal/secrets"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	SMTP      SMTPConfig
	Token     TokenConfig
	SLA       SLAConfig
	Notify    NotifyConfig
	Public    PublicConfig
	Secrets   SecretsConfig
	Logging   LoggingConfig
	Server    ServerConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Port        int
}

type DatabaseConfig struct {
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
}

// SMTPConfig holds outbound mail settings. Quote and invoice emails are
// mandatory sends; operator notifications use the same transport.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	// QuoteCC and InvoiceCC are address lists copied on the respective
	// customer-facing emails, per channel routing policy.
	QuoteCC   []string
	InvoiceCC []string
}

// TokenConfig holds settings for customer link tokens
type TokenConfig struct {
	// Secret signs customer-facing tokens (HS256). Loaded from Key Vault
	// in staging/production.
	Secret string
	// ExpiryDays is the token lifetime. Default 21 days.
	ExpiryDays int
}

// SLAConfig holds the overdue thresholds used by the SLA calculator and
// the reminder sweep.
type SLAConfig struct {
	ResponseHours   float64
	CompletionHours float64
	// SweepCron schedules the overdue reminder sweep. Empty disables it.
	SweepCron string
}

// NotifyConfig controls operator notification dispatch
type NotifyConfig struct {
	// Recipients receive milestone notification emails.
	Recipients []string
	// QueueSize bounds the in-process dispatch queue; events beyond it
	// are dropped (and logged) rather than blocking a transition.
	QueueSize int
}

// PublicConfig holds settings for customer-facing links
type PublicConfig struct {
	// BaseURL prefixes quote/invoice links embedded in emails,
	// e.g. https://crm.gulfsetup.ae
	BaseURL string
}

type SecretsConfig struct {
	// Source determines where secrets are loaded from: "environment",
	// "vault", or "auto" (vault in staging/production).
	Source       string
	KeyVaultName string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	ReadTimeout    int
	WriteTimeout   int
	RequestTimeout int
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// RateLimitConfig holds rate limiting configuration for the public
// (token-gated) endpoints.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
}

// ConnectionString builds PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// ConnMaxLifetimeDuration returns connection max lifetime as duration
func (d *DatabaseConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(d.ConnMaxLifetime) * time.Second
}

// ReadTimeoutDuration returns read timeout as duration
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns write timeout as duration
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// RequestTimeoutDuration returns request timeout as duration
func (s *ServerConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(s.RequestTimeout) * time.Second
}

// Expiry returns the token lifetime as a duration
func (t *TokenConfig) Expiry() time.Duration {
	return time.Duration(t.ExpiryDays) * 24 * time.Hour
}

// Load loads configuration from file and environment variables without
// resolving vault secrets. Use LoadWithSecrets for full resolution.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override config file
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Secrets that may be supplied directly via env in development
	if cfg.Token.Secret == "" {
		cfg.Token.Secret = v.GetString("CUSTOMER_TOKEN_SECRET")
	}
	if cfg.SMTP.Password == "" {
		cfg.SMTP.Password = v.GetString("SMTP_PASSWORD")
	}
	if cfg.Secrets.KeyVaultName == "" {
		cfg.Secrets.KeyVaultName = v.GetString("AZURE_KEY_VAULT_NAME")
	}

	return &cfg, nil
}

// LoadWithSecrets loads configuration and resolves secrets from the
// configured source. Development uses environment variables; staging and
// production fetch from Azure Key Vault when USE_AZURE_KEY_VAULT=true.
func LoadWithSecrets(ctx context.Context, logger *zap.Logger) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	useKeyVault := strings.ToLower(os.Getenv("USE_AZURE_KEY_VAULT")) == "true"
	isValidEnv := cfg.App.Environment == "staging" || cfg.App.Environment == "production"

	if !useKeyVault || !isValidEnv {
		logger.Info("using environment variables for secrets",
			zap.String("environment", cfg.App.Environment),
			zap.Bool("use_key_vault", useKeyVault),
		)
		return cfg, nil
	}

	if cfg.Secrets.KeyVaultName == "" {
		return nil, fmt.Errorf("AZURE_KEY_VAULT_NAME is required when USE_AZURE_KEY_VAULT=true")
	}

	provider, err := secrets.NewProvider(&secrets.ProviderConfig{
		Source:      secrets.SourceVault,
		VaultName:   cfg.Secrets.KeyVaultName,
		Environment: cfg.App.Environment,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secrets provider: %w", err)
	}

	logger.Info("loading secrets from Azure Key Vault",
		zap.String("key_vault_name", cfg.Secrets.KeyVaultName),
	)

	if host, err := provider.GetSecretOrEnv(ctx, "POSTGRES-MAIN-HOST", "DATABASE_HOST"); err == nil && host != "" {
		cfg.Database.Host = host
	}
	if user, err := provider.GetSecretOrEnv(ctx, "POSTGRES-MAIN-USER", "DATABASE_USER"); err == nil && user != "" {
		cfg.Database.User = user
	}
	if password, err := provider.GetSecretOrEnv(ctx, "POSTGRES-MAIN-PASSWORD", "DATABASE_PASSWORD"); err == nil && password != "" {
		cfg.Database.Password = password
	}
	if sslMode := os.Getenv("DATABASE_SSLMODE"); sslMode != "" {
		cfg.Database.SSLMode = sslMode
	}

	if secret, err := provider.GetSecretOrEnv(ctx, "customer-token-secret", "CUSTOMER_TOKEN_SECRET"); err == nil && secret != "" {
		cfg.Token.Secret = secret
	}
	if password, err := provider.GetSecretOrEnv(ctx, "smtp-password", "SMTP_PASSWORD"); err == nil && password != "" {
		cfg.SMTP.Password = password
	}

	logger.Info("secrets loaded from vault successfully")
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "GulfSetup CRM API")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.port", 8080)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "gulfsetup")
	v.SetDefault("database.user", "gulfsetup_user")
	v.SetDefault("database.password", "gulfsetup_password")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", 300)

	// SMTP defaults
	v.SetDefault("smtp.host", "localhost")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.from", "noreply@gulfsetup.ae")
	v.SetDefault("smtp.quoteCC", []string{})
	v.SetDefault("smtp.invoiceCC", []string{})

	// Token defaults: 21 days sits inside the 14-30 day policy band
	v.SetDefault("token.expiryDays", 21)

	// SLA defaults: 24h for agent first response, 14 days to completion
	v.SetDefault("sla.responseHours", 24.0)
	v.SetDefault("sla.completionHours", 336.0)
	v.SetDefault("sla.sweepCron", "0 0 8 * * *")

	// Notification defaults
	v.SetDefault("notify.recipients", []string{})
	v.SetDefault("notify.queueSize", 256)

	// Public link defaults
	v.SetDefault("public.baseURL", "http://localhost:8080")

	// Secrets defaults
	v.SetDefault("secrets.source", "auto")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Server defaults
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)
	v.SetDefault("server.requestTimeout", 60)

	// CORS defaults - restrictive by default
	v.SetDefault("cors.allowedOrigins", []string{})
	v.SetDefault("cors.allowedMethods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowedHeaders", []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"})
	v.SetDefault("cors.allowCredentials", true)
	v.SetDefault("cors.maxAge", 300)

	// Rate limiting applies to the public token endpoints
	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.requestsPerMinute", 60)
}
