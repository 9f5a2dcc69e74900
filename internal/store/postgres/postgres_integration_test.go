package postgres

import (
	"context"
	"os"
	"testing"

	"fuelstation/backend/internal/store"
	"fuelstation/backend/internal/store/storetest"
)

func TestRepositoryContract(t *testing.T) {
	databaseURL := os.Getenv("FUELSTATION_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set FUELSTATION_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	if err := s.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	storetest.Run(t, func(t *testing.T) store.Repository {
		if _, err := s.db.ExecContext(ctx, `
			TRUNCATE pump_readings, buying_unit_rate, tyre_stock, loans, payments, persons, pumps, users
			RESTART IDENTITY CASCADE
		`); err != nil {
			t.Fatalf("reset tables: %v", err)
		}
		return s
	})
}
