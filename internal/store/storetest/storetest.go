// Package storetest holds behaviour checks every store.Repository
// implementation must pass.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuelstation/backend/internal/domain"
	"fuelstation/backend/internal/store"
)

// Factory returns an empty repository. Run seeds what each case needs.
type Factory func(t *testing.T) store.Repository

func mustDate(t *testing.T, raw string) domain.Date {
	t.Helper()
	d, err := domain.ParseDate(raw)
	require.NoError(t, err)
	return d
}

func seedPumps(t *testing.T, repo store.Repository) (petrol domain.Pump, diesel domain.Pump) {
	t.Helper()
	ctx := context.Background()
	p, err := repo.CreatePump(ctx, domain.Pump{Name: "Pump 1", FuelType: domain.FuelPetrol})
	require.NoError(t, err)
	d, err := repo.CreatePump(ctx, domain.Pump{Name: "Pump 3", FuelType: domain.FuelDiesel})
	require.NoError(t, err)
	return *p, *d
}

func Run(t *testing.T, newRepo Factory) {
	t.Run("PumpsRoundTrip", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		petrol, diesel := seedPumps(t, repo)

		pumps, err := repo.ListPumps(ctx)
		require.NoError(t, err)
		require.Len(t, pumps, 2)
		assert.Equal(t, petrol, pumps[0])
		assert.Equal(t, diesel, pumps[1])

		_, err = repo.GetPump(ctx, 999)
		assert.ErrorIs(t, err, store.ErrNotFound)

		_, err = repo.CreatePump(ctx, domain.Pump{Name: "Bad", FuelType: "kerosene"})
		assert.ErrorIs(t, err, store.ErrValidation)
	})

	t.Run("RecordReadingsDepletesLatestBatch", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		petrol, _ := seedPumps(t, repo)
		day := mustDate(t, "2024-03-01")

		_, err := repo.CreateBuyBatch(ctx, domain.BuyBatch{Date: day, FuelType: domain.FuelPetrol, BuyingRatePerUnit: 100, Units: 500})
		require.NoError(t, err)
		latest, err := repo.CreateBuyBatch(ctx, domain.BuyBatch{Date: day, FuelType: domain.FuelPetrol, BuyingRatePerUnit: 105, Units: 7.1})
		require.NoError(t, err)
		assert.InDelta(t, 507.1, latest.TotalUnits, 1e-9)

		depletions, err := repo.RecordReadings(ctx, day, []domain.ReadingInsert{
			{PumpID: petrol.ID, Units: 4.3, RatePerUnit: 250, MeterReading: 104.3},
		})
		require.NoError(t, err)
		require.Len(t, depletions, 1)
		assert.True(t, depletions[0].Applied)
		assert.Equal(t, latest.ID, depletions[0].BatchID)

		after, err := repo.LatestBuyBatch(ctx, domain.FuelPetrol)
		require.NoError(t, err)
		assert.Equal(t, 502.8, after.TotalUnits)

		readings, err := repo.ListReadingsByFuel(ctx, domain.FuelPetrol)
		require.NoError(t, err)
		require.Len(t, readings, 1)
		assert.True(t, readings[0].ReadingDate.Equal(day))
		assert.Equal(t, 104.3, readings[0].MeterReading)
	})

	t.Run("RecordReadingsWithoutBatchSkipsDepletion", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		_, diesel := seedPumps(t, repo)

		depletions, err := repo.RecordReadings(ctx, mustDate(t, "2024-03-02"), []domain.ReadingInsert{
			{PumpID: diesel.ID, Units: 10, RatePerUnit: 280, MeterReading: 10},
		})
		require.NoError(t, err)
		require.Len(t, depletions, 1)
		assert.False(t, depletions[0].Applied)

		_, err = repo.LatestBuyBatch(ctx, domain.FuelDiesel)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("RecordReadingsUnknownPumpWritesNothing", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		petrol, _ := seedPumps(t, repo)
		day := mustDate(t, "2024-03-03")
		_, err := repo.CreateBuyBatch(ctx, domain.BuyBatch{Date: day, FuelType: domain.FuelPetrol, BuyingRatePerUnit: 100, Units: 50})
		require.NoError(t, err)

		_, err = repo.RecordReadings(ctx, day, []domain.ReadingInsert{
			{PumpID: petrol.ID, Units: 5, RatePerUnit: 250, MeterReading: 5},
			{PumpID: 999, Units: 5, RatePerUnit: 250, MeterReading: 5},
		})
		require.ErrorIs(t, err, store.ErrNotFound)

		rows, err := repo.ListReadings(ctx)
		require.NoError(t, err)
		assert.Empty(t, rows)

		batch, err := repo.LatestBuyBatch(ctx, domain.FuelPetrol)
		require.NoError(t, err)
		assert.Equal(t, 50.0, batch.TotalUnits)
	})

	t.Run("LatestMetersPicksNewestReading", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		petrol, diesel := seedPumps(t, repo)

		_, err := repo.RecordReadings(ctx, mustDate(t, "2024-03-05"), []domain.ReadingInsert{
			{PumpID: petrol.ID, Units: 3, RatePerUnit: 251, MeterReading: 130},
		})
		require.NoError(t, err)
		_, err = repo.RecordReadings(ctx, mustDate(t, "2024-03-04"), []domain.ReadingInsert{
			{PumpID: petrol.ID, Units: 2, RatePerUnit: 250, MeterReading: 127},
		})
		require.NoError(t, err)

		meters, err := repo.LatestMeters(ctx)
		require.NoError(t, err)
		require.Len(t, meters, 2)
		assert.Equal(t, petrol.ID, meters[0].PumpID)
		assert.True(t, meters[0].HasReading)
		assert.Equal(t, 130.0, meters[0].PreviousMeter)
		assert.Equal(t, 251.0, meters[0].UnitRate)
		assert.Equal(t, diesel.ID, meters[1].PumpID)
		assert.False(t, meters[1].HasReading)

		rows, err := repo.ListReadings(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "Pump 1", rows[0].PumpName)
		assert.True(t, rows[0].ReadingDate.Equal(mustDate(t, "2024-03-05")))

		between, err := repo.ListReadingsBetween(ctx, mustDate(t, "2024-03-04"), mustDate(t, "2024-03-04"))
		require.NoError(t, err)
		require.Len(t, between, 1)
		assert.Equal(t, 127.0, between[0].MeterReading)
		assert.Equal(t, domain.FuelPetrol, between[0].FuelType)
	})

	t.Run("BuyBatchOrdering", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.CreateBuyBatch(ctx, domain.BuyBatch{Date: mustDate(t, "2024-01-02"), FuelType: domain.FuelDiesel, BuyingRatePerUnit: 200, Units: 10})
		require.NoError(t, err)
		_, err = repo.CreateBuyBatch(ctx, domain.BuyBatch{Date: mustDate(t, "2024-01-01"), FuelType: domain.FuelDiesel, BuyingRatePerUnit: 190, Units: 5})
		require.NoError(t, err)
		_, err = repo.CreateBuyBatch(ctx, domain.BuyBatch{Date: mustDate(t, "2024-01-03"), FuelType: domain.FuelPetrol, BuyingRatePerUnit: 210, Units: 1})
		require.NoError(t, err)

		all, err := repo.ListBuyBatches(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.True(t, all[0].Date.Equal(mustDate(t, "2024-01-03")))

		diesel, err := repo.ListBuyBatchesByFuel(ctx, domain.FuelDiesel)
		require.NoError(t, err)
		require.Len(t, diesel, 2)
		assert.Equal(t, 190.0, diesel[0].BuyingRatePerUnit)

		latest, err := repo.LatestBuyBatch(ctx, domain.FuelDiesel)
		require.NoError(t, err)
		assert.Equal(t, 190.0, latest.BuyingRatePerUnit)
		assert.Equal(t, 15.0, latest.TotalUnits)
	})

	t.Run("SellTyre", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		tyre, err := repo.CreateTyreStock(ctx, domain.TyreStock{Tyre: "195/65 R15", BuyingPrice: 9000, AvailableStock: 2})
		require.NoError(t, err)

		_, err = repo.SellTyre(ctx, tyre.ID, 3)
		require.ErrorIs(t, err, store.ErrInsufficientStock)
		assert.ErrorIs(t, err, store.ErrValidation)

		sold, err := repo.SellTyre(ctx, tyre.ID, 2)
		require.NoError(t, err)
		assert.Equal(t, 0, sold.AvailableStock)
		assert.Equal(t, 2, sold.SoldUnits)

		_, err = repo.SellTyre(ctx, 999, 1)
		assert.ErrorIs(t, err, store.ErrNotFound)

		stock, err := repo.ListTyreStock(ctx)
		require.NoError(t, err)
		require.Len(t, stock, 1)
		assert.Equal(t, 2, stock[0].SoldUnits)
	})

	t.Run("LoansAndPayments", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		person, err := repo.CreatePerson(ctx, domain.Person{Name: "Ali", Address: "Main Road", Phone: "0300"})
		require.NoError(t, err)
		got, err := repo.GetPerson(ctx, person.ID)
		require.NoError(t, err)
		assert.Equal(t, *person, *got)

		_, err = repo.CreateLoan(ctx, domain.Loan{PersonID: person.ID, Date: mustDate(t, "2024-02-01"), Units: 2, UnitRate: 10, FuelType: domain.FuelPetrol})
		require.NoError(t, err)
		second, err := repo.CreateLoan(ctx, domain.Loan{PersonID: person.ID, Date: mustDate(t, "2024-02-03"), Units: 3, UnitRate: 12, FuelType: domain.FuelDiesel})
		require.NoError(t, err)
		assert.Equal(t, 36.0, second.PKR)

		loans, err := repo.ListLoansByPerson(ctx, person.ID)
		require.NoError(t, err)
		require.Len(t, loans, 2)
		assert.Equal(t, second.ID, loans[0].ID)
		assert.Equal(t, 20.0, loans[1].PKR)

		_, err = repo.CreatePayment(ctx, domain.Payment{PersonID: person.ID, Date: mustDate(t, "2024-02-04"), Amount: 15, Note: "cash"})
		require.NoError(t, err)
		payments, err := repo.ListPaymentsByPerson(ctx, person.ID)
		require.NoError(t, err)
		require.Len(t, payments, 1)
		assert.Equal(t, "cash", payments[0].Note)

		_, err = repo.CreateLoan(ctx, domain.Loan{PersonID: 999, Date: mustDate(t, "2024-02-01"), Units: 1, UnitRate: 1, FuelType: domain.FuelPetrol})
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = repo.CreatePayment(ctx, domain.Payment{PersonID: 999, Date: mustDate(t, "2024-02-01"), Amount: 1})
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = repo.GetPerson(ctx, 999)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("Users", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		count, err := repo.CountUsers(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)

		user := domain.UserAccount{Username: "manager", Password: "hash", Role: domain.RoleManager, Active: true}
		require.NoError(t, repo.CreateUser(ctx, user))
		assert.ErrorIs(t, repo.CreateUser(ctx, user), store.ErrDuplicate)

		got, err := repo.GetUser(ctx, "manager")
		require.NoError(t, err)
		assert.Equal(t, domain.RoleManager, got.Role)
		assert.True(t, got.Active)
		assert.False(t, got.CreatedAt.IsZero())

		_, err = repo.GetUser(ctx, "nobody")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}
