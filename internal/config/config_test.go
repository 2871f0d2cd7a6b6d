package config

import (
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_USER", "cardinsight")
	t.Setenv("DB_NAME", "cardinsight")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "3001" {
		t.Fatalf("expected default port 3001, got %s", cfg.Port)
	}
	if cfg.Login.MockIPAddress != "192.168.1.1" {
		t.Fatalf("expected mocked ip, got %q", cfg.Login.MockIPAddress)
	}
	if cfg.Login.CredentialsDelay != 1500*time.Millisecond {
		t.Fatalf("expected 1.5s credentials delay, got %s", cfg.Login.CredentialsDelay)
	}
	if cfg.Analysis.MaxImageSize != 5*1024*1024 {
		t.Fatalf("expected 5MB image limit, got %d", cfg.Analysis.MaxImageSize)
	}
}

func TestLoadEmptyMockIPFallsBackToRequestIP(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("LOGIN_MOCK_IP", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Login.MockIPAddress != "" {
		t.Fatalf("expected empty mock ip, got %q", cfg.Login.MockIPAddress)
	}
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when JWT_SECRET is missing")
	}
}

func TestLoadRejectsNegativeDuration(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("LOGIN_CODE_DELAY", "-1s")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for negative duration")
	}
}

func TestLoadCORSHosts(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("CORS_ALLOWED_HOSTS", " Portal.example.com , ,localhost:5173")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.CORSAllowedHosts) != 2 || cfg.CORSAllowedHosts[0] != "portal.example.com" || cfg.CORSAllowedHosts[1] != "localhost:5173" {
		t.Fatalf("unexpected hosts %v", cfg.CORSAllowedHosts)
	}
}
