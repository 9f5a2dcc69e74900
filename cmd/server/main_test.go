package main

import (
	"context"
	"path/filepath"
	"testing"

	"fuelstation/backend/internal/config"
)

const strongSecret = "0123456789abcdef0123456789abcdef"

func TestValidateSecurityConfigRejectsWeakValues(t *testing.T) {
	cases := []config.Config{
		{AuthSecret: "short"},
		{AuthSecret: strongSecret, BootstrapManagerUsername: "owner", BootstrapManagerPassword: "1234"},
		{AuthSecret: strongSecret, BootstrapManagerPassword: "long-enough-pass"},
		{AuthSecret: strongSecret, AllowedOrigins: []string{"*"}},
	}
	for _, cfg := range cases {
		if err := validateSecurityConfig(cfg); err == nil {
			t.Fatalf("expected config to be rejected: %+v", cfg)
		}
	}
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{
		AuthSecret:               strongSecret,
		AllowedOrigins:           []string{"http://localhost:5173"},
		BootstrapManagerUsername: "owner",
		BootstrapManagerPassword: "long-enough-pass",
	})
	if err != nil {
		t.Fatalf("expected strong config to pass, got %v", err)
	}
}

func TestOpenRepositoryFallsBackToMemory(t *testing.T) {
	repo, closeFn, err := openRepository(context.Background(), config.Config{})
	if err != nil {
		t.Fatalf("open memory repository: %v", err)
	}
	if closeFn != nil {
		t.Fatalf("expected no closer for memory repository")
	}
	pumps, err := repo.ListPumps(context.Background())
	if err != nil {
		t.Fatalf("list pumps: %v", err)
	}
	if len(pumps) != 4 {
		t.Fatalf("expected seeded pumps, got %d", len(pumps))
	}
}

func TestOpenRepositoryMigratesSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "station.db")
	repo, closeFn, err := openRepository(context.Background(), config.Config{SQLitePath: path})
	if err != nil {
		t.Fatalf("open sqlite repository: %v", err)
	}
	defer func() { _ = closeFn() }()

	if _, err := repo.CountUsers(context.Background()); err != nil {
		t.Fatalf("expected migrated schema, got %v", err)
	}
}
