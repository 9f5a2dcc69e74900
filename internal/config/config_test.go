package config

import (
	"testing"
	"time"
)

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")
	t.Setenv("BOOTSTRAP_MANAGER_PASSWORD", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
	if cfg.BootstrapManagerPassword != "" {
		t.Fatalf("expected empty BOOTSTRAP_MANAGER_PASSWORD when unset, got %q", cfg.BootstrapManagerPassword)
	}
}

func TestLoadParsesListsAndDurations(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", " http://a.local , ,file://station ")
	t.Setenv("SUBMISSION_GUARD_TTL_SECONDS", "30")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "nope")

	cfg := Load()
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[0] != "http://a.local" || cfg.AllowedOrigins[1] != "file://station" {
		t.Fatalf("unexpected origins %q", cfg.AllowedOrigins)
	}
	if cfg.SubmissionGuardTTL != 30*time.Second {
		t.Fatalf("expected 30s guard ttl, got %s", cfg.SubmissionGuardTTL)
	}
	if cfg.AccessTokenTTLMinutes != 720 {
		t.Fatalf("expected fallback token ttl, got %d", cfg.AccessTokenTTLMinutes)
	}
}

func TestStoreKindPrefersPostgres(t *testing.T) {
	cases := []struct {
		cfg  Config
		want string
	}{
		{Config{DatabaseURL: "postgres://x", SQLitePath: "station.db"}, "postgres"},
		{Config{SQLitePath: "station.db"}, "sqlite"},
		{Config{}, "memory"},
	}
	for _, tc := range cases {
		if got := tc.cfg.StoreKind(); got != tc.want {
			t.Fatalf("StoreKind() = %q, want %q", got, tc.want)
		}
	}
}
