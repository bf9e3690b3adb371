package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	MailProviderSMTP = "smtp"
	MailProviderSES  = "ses"
)

type Config struct {
	Database    DatabaseConfig
	Server      ServerConfig
	Credentials CredentialsConfig
	Mail        MailConfig
	Bootstrap   BootstrapConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AdminAPIKey    string
}

// CredentialsConfig holds the lifecycle windows that used to be constants.
type CredentialsConfig struct {
	RecoveryCodeTTL         time.Duration
	GeneratedPasswordLength int
	RequireDelivery         bool
	SweepInterval           time.Duration
}

type MailConfig struct {
	Provider     string
	FromAddress  string
	FromName     string
	AppName      string
	ResetURLBase string

	SMTPHost        string
	SMTPPort        int
	SMTPUsername    string
	SMTPPassword    string
	SMTPImplicitTLS bool
	SMTPPoolSize    int
	SMTPSendTimeout time.Duration

	AWSRegion string
}

// BootstrapConfig names an administrator account created on first start.
type BootstrapConfig struct {
	AdminUsername string
	AdminEmail    string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	apiKey := getEnv("ADMIN_API_KEY", "")
	if apiKey == "" {
		return nil, fmt.Errorf("ADMIN_API_KEY is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "assistiva"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			AdminAPIKey:    apiKey,
		},
		Credentials: CredentialsConfig{
			RecoveryCodeTTL:         getEnvAsDuration("RECOVERY_CODE_TTL", 1*time.Hour),
			GeneratedPasswordLength: getEnvAsInt("GENERATED_PASSWORD_LENGTH", 8),
			RequireDelivery:         getEnvAsBool("NOTIFICATIONS_REQUIRED", true),
			SweepInterval:           getEnvAsDuration("RECOVERY_SWEEP_INTERVAL", 1*time.Hour),
		},
		Mail: MailConfig{
			Provider:        strings.ToLower(getEnv("MAIL_PROVIDER", MailProviderSMTP)),
			FromAddress:     getEnv("MAIL_FROM_ADDRESS", ""),
			FromName:        getEnv("MAIL_FROM_NAME", "Assistiva"),
			AppName:         getEnv("MAIL_APP_NAME", "Assistiva"),
			ResetURLBase:    getEnv("MAIL_RESET_URL_BASE", ""),
			SMTPHost:        getEnv("SMTP_HOST", ""),
			SMTPPort:        getEnvAsInt("SMTP_PORT", 587),
			SMTPUsername:    getEnv("SMTP_USERNAME", ""),
			SMTPPassword:    getEnv("SMTP_PASSWORD", ""),
			SMTPImplicitTLS: getEnvAsBool("SMTP_IMPLICIT_TLS", false),
			SMTPPoolSize:    getEnvAsInt("SMTP_POOL_SIZE", 4),
			SMTPSendTimeout: getEnvAsDuration("SMTP_SEND_TIMEOUT", 10*time.Second),
			AWSRegion:       getEnv("AWS_REGION", "us-east-1"),
		},
		Bootstrap: BootstrapConfig{
			AdminUsername: getEnv("ADMIN_USERNAME", ""),
			AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateAPIKey(apiKey, env); err != nil {
		return nil, err
	}

	if err := cfg.Credentials.validate(); err != nil {
		return nil, err
	}

	if err := cfg.Mail.validate(env); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateAPIKey enforces minimum security standards for the admin API key
func validateAPIKey(key, env string) error {
	minLength := 16 // Development minimum
	if env == "production" {
		minLength = 32
	}

	if len(key) < minLength {
		return fmt.Errorf("ADMIN_API_KEY must be at least %d characters in %s environment (got %d)",
			minLength, env, len(key))
	}

	weakKeys := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	keyLower := strings.ToLower(key)
	for _, weak := range weakKeys {
		if keyLower == weak {
			return fmt.Errorf("ADMIN_API_KEY cannot be a common weak value")
		}
	}

	return nil
}

func (c *CredentialsConfig) validate() error {
	if c.RecoveryCodeTTL <= 0 {
		return fmt.Errorf("RECOVERY_CODE_TTL must be positive")
	}
	if c.GeneratedPasswordLength < 6 {
		return fmt.Errorf("GENERATED_PASSWORD_LENGTH must be at least 6 (got %d)", c.GeneratedPasswordLength)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("RECOVERY_SWEEP_INTERVAL must be positive")
	}
	return nil
}

func (c *MailConfig) validate(env string) error {
	if c.FromAddress == "" {
		if env == "production" {
			return fmt.Errorf("MAIL_FROM_ADDRESS is required")
		}
		c.FromAddress = "no-reply@assistiva.local"
	}

	switch c.Provider {
	case MailProviderSMTP:
		if c.SMTPHost == "" {
			if env == "production" {
				return fmt.Errorf("SMTP_HOST is required when MAIL_PROVIDER=smtp")
			}
			c.SMTPHost = "localhost"
		}
		if c.SMTPPoolSize < 1 {
			return fmt.Errorf("SMTP_POOL_SIZE must be at least 1")
		}
	case MailProviderSES:
		if c.AWSRegion == "" {
			return fmt.Errorf("AWS_REGION is required when MAIL_PROVIDER=ses")
		}
	default:
		return fmt.Errorf("unsupported MAIL_PROVIDER %q", c.Provider)
	}
	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// SMTPAddr returns host:port of the configured relay.
func (c *MailConfig) SMTPAddr() string {
	return fmt.Sprintf("%s:%d", c.SMTPHost, c.SMTPPort)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		originsStr := getEnv("ALLOWED_ORIGINS", "")
		if originsStr == "" {
			return []string{} // Default to no origins in production
		}
		origins := strings.Split(originsStr, ",")
		for i, origin := range origins {
			origins[i] = strings.TrimSpace(origin)
		}
		return origins
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5173", // Vite default
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:5173",
	}
}
