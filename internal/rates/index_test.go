package rates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuelstation/backend/internal/domain"
)

func day(t *testing.T, raw string) domain.Date {
	t.Helper()
	d, err := domain.ParseDate(raw)
	require.NoError(t, err)
	return d
}

func TestLookupMatchesHalfOpenIntervals(t *testing.T) {
	idx := NewIndex(domain.FuelPetrol, []domain.BuyBatch{
		{ID: 2, Date: day(t, "2024-01-10"), FuelType: domain.FuelPetrol, BuyingRatePerUnit: 3},
		{ID: 1, Date: day(t, "2024-01-01"), FuelType: domain.FuelPetrol, BuyingRatePerUnit: 2},
		{ID: 3, Date: day(t, "2024-01-05"), FuelType: domain.FuelDiesel, BuyingRatePerUnit: 9},
	})
	require.Equal(t, 2, idx.Len())

	cases := []struct {
		day    string
		rate   float64
		wantOK bool
	}{
		{"2023-12-31", 0, false},
		{"2024-01-01", 2, true},
		{"2024-01-09", 2, true},
		{"2024-01-10", 3, true},
		{"2025-06-01", 3, true},
	}
	for _, tc := range cases {
		t.Run(tc.day, func(t *testing.T) {
			batch, ok := idx.Lookup(day(t, tc.day))
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.rate, batch.BuyingRatePerUnit)
		})
	}
}

func TestLookupSameDateHighestIDWins(t *testing.T) {
	idx := NewIndex(domain.FuelDiesel, []domain.BuyBatch{
		{ID: 7, Date: day(t, "2024-02-01"), FuelType: domain.FuelDiesel, BuyingRatePerUnit: 5},
		{ID: 4, Date: day(t, "2024-02-01"), FuelType: domain.FuelDiesel, BuyingRatePerUnit: 4},
	})

	batch, ok := idx.Lookup(day(t, "2024-02-01"))
	require.True(t, ok)
	assert.Equal(t, int64(7), batch.ID)
}

func TestIntervals(t *testing.T) {
	idx := NewIndex(domain.FuelPetrol, []domain.BuyBatch{
		{ID: 1, Date: day(t, "2024-01-01"), FuelType: domain.FuelPetrol},
		{ID: 2, Date: day(t, "2024-01-10"), FuelType: domain.FuelPetrol},
	})

	intervals := idx.Intervals()
	require.Len(t, intervals, 2)
	assert.True(t, intervals[0].End.Equal(day(t, "2024-01-10")))
	assert.False(t, intervals[0].Open())
	assert.True(t, intervals[0].Contains(day(t, "2024-01-09")))
	assert.False(t, intervals[0].Contains(day(t, "2024-01-10")))
	assert.True(t, intervals[1].Open())
	assert.True(t, intervals[1].Contains(day(t, "2030-01-01")))
}

func TestEmptyIndex(t *testing.T) {
	idx := NewIndex(domain.FuelPetrol, nil)
	_, ok := idx.Lookup(day(t, "2024-01-01"))
	assert.False(t, ok)
	assert.Empty(t, idx.Intervals())
}
