package database

import (
	"testing"
	"time"

	appconfig "github.com/intertool/cardinsight_api/internal/config"
)

func TestDSNEscapesCredentials(t *testing.T) {
	dsn := DSN(&appconfig.DatabaseConfig{
		Host:     "db",
		Port:     "5432",
		User:     "card user",
		Password: "p@ss:word",
		Name:     "cards",
		SSLMode:  "disable",
	})
	want := "postgres://card+user:p%40ss%3Aword@db:5432/cards?sslmode=disable"
	if dsn != want {
		t.Fatalf("dsn mismatch:\n got %s\nwant %s", dsn, want)
	}
}

func TestBackoffDelayCapped(t *testing.T) {
	base := 500 * time.Millisecond
	if d := backoffDelay(1, base); d != base {
		t.Fatalf("attempt 1: got %s", d)
	}
	if d := backoffDelay(3, base); d != 2*time.Second {
		t.Fatalf("attempt 3: got %s", d)
	}
	if d := backoffDelay(10, base); d != 5*time.Second {
		t.Fatalf("attempt 10: expected cap, got %s", d)
	}
}

func TestConnectNilConfig(t *testing.T) {
	if _, err := Connect(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}
