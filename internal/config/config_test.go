package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTPAddr != ":8081" {
		t.Errorf("unexpected http addr: %q", cfg.App.HTTPAddr)
	}
	if cfg.App.TokenTTL != 30*24*time.Hour {
		t.Errorf("unexpected token ttl: %v", cfg.App.TokenTTL)
	}
	if cfg.App.OtpTTL != 10*time.Minute {
		t.Errorf("unexpected otp ttl: %v", cfg.App.OtpTTL)
	}
	if cfg.MySQL.DSN == "" {
		t.Errorf("expected a default dsn")
	}
}

func TestLoad_FileWithPartialFields(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
  "app": {"http_addr": ":9999", "token_ttl": "1h"},
  "security": {"jwt_secret": "file-secret"}
}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTPAddr != ":9999" {
		t.Errorf("file value not applied: %q", cfg.App.HTTPAddr)
	}
	if cfg.App.TokenTTL != time.Hour {
		t.Errorf("token_ttl duration string not parsed: %v", cfg.App.TokenTTL)
	}
	if cfg.Security.JWTSecret != "file-secret" {
		t.Errorf("jwt secret not loaded: %q", cfg.Security.JWTSecret)
	}
	// 未设置的字段回落到默认值
	if cfg.App.OtpTTL != 10*time.Minute {
		t.Errorf("missing field must default: %v", cfg.App.OtpTTL)
	}
	if cfg.Email.SMTPPort != 587 {
		t.Errorf("missing smtp port must default: %d", cfg.Email.SMTPPort)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"security": {"jwt_secret": "file-secret"}}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("APP_OTP_TTL", "5m")
	t.Setenv("SMTP_HOST", "mail.example.com")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Security.JWTSecret != "env-secret" {
		t.Errorf("env must win over file: %q", cfg.Security.JWTSecret)
	}
	if cfg.App.OtpTTL != 5*time.Minute {
		t.Errorf("APP_OTP_TTL not applied: %v", cfg.App.OtpTTL)
	}
	if cfg.Email.SMTPHost != "mail.example.com" {
		t.Errorf("SMTP_HOST not applied: %q", cfg.Email.SMTPHost)
	}
}

func TestLoad_DBEnvRecomposesDSN(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "3307")
	t.Setenv("DB_USER", "notes")
	t.Setenv("DB_PASSWORD", "s3cret")
	t.Setenv("DB_NAME", "notesdb")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := "notes:s3cret@tcp(db.internal:3307)/notesdb"
	if len(cfg.MySQL.DSN) < len(want) || cfg.MySQL.DSN[:len(want)] != want {
		t.Errorf("dsn not recomposed from env: %q", cfg.MySQL.DSN)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "") // keep ambient env out of the round trip
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := getDefaultConfig()
	cfg.App.TokenTTL = 2 * time.Hour
	cfg.Security.JWTSecret = "round-trip"

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.App.TokenTTL != 2*time.Hour {
		t.Errorf("token ttl lost in round trip: %v", loaded.App.TokenTTL)
	}
	if loaded.Security.JWTSecret != "round-trip" {
		t.Errorf("jwt secret lost in round trip: %q", loaded.Security.JWTSecret)
	}
}
