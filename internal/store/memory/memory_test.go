package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuelstation/backend/internal/domain"
	"fuelstation/backend/internal/store"
	"fuelstation/backend/internal/store/storetest"
)

func TestRepositoryContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Repository {
		return New()
	})
}

func TestNewSeededHasStationPumps(t *testing.T) {
	pumps, err := NewSeeded().ListPumps(context.Background())
	require.NoError(t, err)
	require.Len(t, pumps, 4)

	fuels := make([]domain.FuelType, 0, len(pumps))
	for _, p := range pumps {
		fuels = append(fuels, p.FuelType)
	}
	assert.Equal(t, []domain.FuelType{domain.FuelPetrol, domain.FuelPetrol, domain.FuelDiesel, domain.FuelDiesel}, fuels)
}
