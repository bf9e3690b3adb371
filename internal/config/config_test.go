package config

import (
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("ADMIN_API_KEY", "test-api-key-32-characters-long!")
	t.Setenv("DB_PASSWORD", "test")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	durations := []struct {
		name     string
		actual   time.Duration
		expected time.Duration
	}{
		{"ReadTimeout", cfg.Server.ReadTimeout, 15 * time.Second},
		{"WriteTimeout", cfg.Server.WriteTimeout, 15 * time.Second},
		{"IdleTimeout", cfg.Server.IdleTimeout, 60 * time.Second},
		{"RecoveryCodeTTL", cfg.Credentials.RecoveryCodeTTL, time.Hour},
		{"SweepInterval", cfg.Credentials.SweepInterval, time.Hour},
		{"SMTPSendTimeout", cfg.Mail.SMTPSendTimeout, 10 * time.Second},
	}
	for _, tt := range durations {
		if tt.actual != tt.expected {
			t.Errorf("%s: got %v, want %v", tt.name, tt.actual, tt.expected)
		}
	}

	if cfg.Credentials.GeneratedPasswordLength != 8 {
		t.Errorf("GeneratedPasswordLength: got %d, want 8", cfg.Credentials.GeneratedPasswordLength)
	}
	if !cfg.Credentials.RequireDelivery {
		t.Error("RequireDelivery should default to true")
	}
	if cfg.Mail.Provider != MailProviderSMTP {
		t.Errorf("Provider: got %q, want %q", cfg.Mail.Provider, MailProviderSMTP)
	}
	if cfg.Mail.SMTPAddr() != "localhost:587" {
		t.Errorf("SMTPAddr: got %q", cfg.Mail.SMTPAddr())
	}
	if cfg.Mail.FromAddress == "" {
		t.Error("FromAddress should fall back to a development default")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_READ_TIMEOUT", "30s")
	t.Setenv("RECOVERY_CODE_TTL", "30m")
	t.Setenv("GENERATED_PASSWORD_LENGTH", "12")
	t.Setenv("NOTIFICATIONS_REQUIRED", "false")
	t.Setenv("MAIL_PROVIDER", "SES")
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("MAIL_FROM_ADDRESS", "accounts@example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("ReadTimeout: got %v", cfg.Server.ReadTimeout)
	}
	if cfg.Credentials.RecoveryCodeTTL != 30*time.Minute {
		t.Errorf("RecoveryCodeTTL: got %v", cfg.Credentials.RecoveryCodeTTL)
	}
	if cfg.Credentials.GeneratedPasswordLength != 12 {
		t.Errorf("GeneratedPasswordLength: got %d", cfg.Credentials.GeneratedPasswordLength)
	}
	if cfg.Credentials.RequireDelivery {
		t.Error("RequireDelivery should be false")
	}
	if cfg.Mail.Provider != MailProviderSES || cfg.Mail.AWSRegion != "eu-west-1" {
		t.Errorf("unexpected mail config: %+v", cfg.Mail)
	}
	if cfg.Mail.FromAddress != "accounts@example.com" {
		t.Errorf("FromAddress: got %q", cfg.Mail.FromAddress)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_READ_TIMEOUT", "not-a-duration")
	t.Setenv("NOTIFICATIONS_REQUIRED", "maybe")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("ReadTimeout with invalid value: got %v, want %v", cfg.Server.ReadTimeout, 15*time.Second)
	}
	if !cfg.Credentials.RequireDelivery {
		t.Error("RequireDelivery with invalid value should keep its default")
	}
}

func TestLoad_ZeroTimeoutHonored(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_READ_TIMEOUT", "0s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}
	if cfg.Server.ReadTimeout != 0 {
		t.Errorf("ReadTimeout with 0s: got %v, want 0", cfg.Server.ReadTimeout)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name          string
		env           map[string]string
		errorContains string
	}{
		{
			name:          "missing api key",
			env:           map[string]string{"DB_PASSWORD": "test"},
			errorContains: "ADMIN_API_KEY is required",
		},
		{
			name:          "missing db password",
			env:           map[string]string{"ADMIN_API_KEY": "test-api-key-32-characters-long!"},
			errorContains: "DB_PASSWORD is required",
		},
		{
			name: "short api key in production",
			env: map[string]string{
				"ADMIN_API_KEY": "only-twenty-chars!!!",
				"DB_PASSWORD":   "test",
				"ENV":           "production",
			},
			errorContains: "at least 32 characters",
		},
		{
			name: "generated length below minimum",
			env: map[string]string{
				"ADMIN_API_KEY":             "test-api-key-32-characters-long!",
				"DB_PASSWORD":               "test",
				"GENERATED_PASSWORD_LENGTH": "5",
			},
			errorContains: "GENERATED_PASSWORD_LENGTH",
		},
		{
			name: "zero sweep interval",
			env: map[string]string{
				"ADMIN_API_KEY":           "test-api-key-32-characters-long!",
				"DB_PASSWORD":             "test",
				"RECOVERY_SWEEP_INTERVAL": "0s",
			},
			errorContains: "RECOVERY_SWEEP_INTERVAL",
		},
		{
			name: "unknown mail provider",
			env: map[string]string{
				"ADMIN_API_KEY": "test-api-key-32-characters-long!",
				"DB_PASSWORD":   "test",
				"MAIL_PROVIDER": "carrier-pigeon",
			},
			errorContains: "unsupported MAIL_PROVIDER",
		},
		{
			name: "production requires smtp host",
			env: map[string]string{
				"ADMIN_API_KEY":     "production-api-key-with-32-chars-min",
				"DB_PASSWORD":       "test",
				"ENV":               "production",
				"MAIL_FROM_ADDRESS": "accounts@example.com",
			},
			errorContains: "SMTP_HOST is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"ADMIN_API_KEY", "DB_PASSWORD", "ENV"} {
				t.Setenv(key, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errorContains) {
				t.Errorf("error %q should contain %q", err.Error(), tt.errorContains)
			}
		})
	}
}
