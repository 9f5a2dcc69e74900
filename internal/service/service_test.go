package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuelstation/backend/internal/dedup"
	"fuelstation/backend/internal/domain"
	"fuelstation/backend/internal/metrics"
	"fuelstation/backend/internal/store"
	"fuelstation/backend/internal/store/memory"
)

type fixture struct {
	svc  *Service
	repo *memory.Store
	now  time.Time
}

func newFixture(t *testing.T, guard dedup.Guard) *fixture {
	t.Helper()
	f := &fixture{
		repo: memory.NewSeeded(),
		now:  time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	f.svc = New(f.repo, guard,
		WithClock(func() time.Time { return f.now }),
		WithMetrics(metrics.New(prometheus.NewRegistry())),
	)
	return f
}

func (f *fixture) setDay(t *testing.T, raw string) {
	t.Helper()
	d, err := domain.ParseDate(raw)
	require.NoError(t, err)
	f.now = d.Add(9 * time.Hour)
}

func date(t *testing.T, raw string) domain.Date {
	t.Helper()
	d, err := domain.ParseDate(raw)
	require.NoError(t, err)
	return d
}

func managerCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "owner", Role: domain.RoleManager})
}

func TestRecordReadingsComputesUnitsAndDepletesStock(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.RecordBuyBatch(ctx, domain.BuyBatchRequest{FuelType: "petrol", BuyingRatePerUnit: 240, Units: 1000})
	require.NoError(t, err)
	_, err = f.svc.RecordBuyBatch(ctx, domain.BuyBatchRequest{FuelType: "diesel", BuyingRatePerUnit: 250, Units: 800})
	require.NoError(t, err)

	res, err := f.svc.RecordReadings(ctx, domain.RecordReadingsRequest{Readings: []domain.ReadingEntry{
		{PumpID: 1, PreviousMeter: 100, CurrentMeter: 112.5, UnitRate: 260},
		{PumpID: 2, PreviousMeter: 50, CurrentMeter: 57.1, UnitRate: 260},
		{PumpID: 3, PreviousMeter: 10, CurrentMeter: 30, UnitRate: 270},
	}})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Inserted)
	assert.Equal(t, []domain.RecordedUnits{{PumpID: 1, Units: 12.5}, {PumpID: 2, Units: 7.1}, {PumpID: 3, Units: 20}}, res.Entries)

	stock, err := f.svc.FuelStock(ctx)
	require.NoError(t, err)
	assert.Equal(t, 980.4, stock.Petrol)
	assert.Equal(t, 780.0, stock.Diesel)

	readings, err := f.repo.ListReadingsByFuel(ctx, domain.FuelPetrol)
	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, 112.5, readings[0].MeterReading)
	assert.True(t, readings[0].ReadingDate.Equal(date(t, "2024-03-10")))
}

func TestRecordReadingsIsAllOrNothing(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	_, err := f.svc.RecordBuyBatch(ctx, domain.BuyBatchRequest{FuelType: "petrol", BuyingRatePerUnit: 240, Units: 100})
	require.NoError(t, err)

	_, err = f.svc.RecordReadings(ctx, domain.RecordReadingsRequest{Readings: []domain.ReadingEntry{
		{PumpID: 1, PreviousMeter: 0, CurrentMeter: 10, UnitRate: 260},
		{PumpID: 2, PreviousMeter: 20, CurrentMeter: 19, UnitRate: 260},
	}})
	require.ErrorIs(t, err, store.ErrValidation)
	assert.Contains(t, err.Error(), "pump 2")

	_, err = f.svc.RecordReadings(ctx, domain.RecordReadingsRequest{Readings: []domain.ReadingEntry{
		{PumpID: 1, PreviousMeter: 0, CurrentMeter: 10, UnitRate: 260},
		{PumpID: 42, PreviousMeter: 0, CurrentMeter: 10, UnitRate: 260},
	}})
	require.ErrorIs(t, err, store.ErrNotFound)

	rows, err := f.svc.ListReadings(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)

	stock, err := f.svc.FuelStock(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100.0, stock.Petrol)
}

func TestRecordReadingsRejectsBadEntries(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	cases := map[string][]domain.ReadingEntry{
		"empty":         nil,
		"zero pump":     {{PumpID: 0, CurrentMeter: 1}},
		"negative rate": {{PumpID: 1, CurrentMeter: 1, UnitRate: -1}},
		"negative prev": {{PumpID: 1, PreviousMeter: -1, CurrentMeter: 1}},
	}
	for name, entries := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.RecordReadings(ctx, domain.RecordReadingsRequest{Readings: entries})
			assert.ErrorIs(t, err, store.ErrValidation)
		})
	}
}

func TestRecordReadingsWithoutBuyBatchStillRecords(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.svc.RecordReadings(context.Background(), domain.RecordReadingsRequest{Readings: []domain.ReadingEntry{
		{PumpID: 4, PreviousMeter: 0, CurrentMeter: 5, UnitRate: 270},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
}

func TestRecordReadingsRejectsDuplicateSubmission(t *testing.T) {
	f := newFixture(t, dedup.NewMemoryGuard(nil))
	ctx := context.Background()
	req := domain.RecordReadingsRequest{Readings: []domain.ReadingEntry{
		{PumpID: 2, PreviousMeter: 5, CurrentMeter: 9, UnitRate: 260},
		{PumpID: 1, PreviousMeter: 0, CurrentMeter: 10, UnitRate: 260},
	}}

	_, err := f.svc.RecordReadings(ctx, req)
	require.NoError(t, err)

	// same meters in a different order
	req.Readings[0], req.Readings[1] = req.Readings[1], req.Readings[0]
	_, err = f.svc.RecordReadings(ctx, req)
	require.ErrorIs(t, err, ErrDuplicateSubmission)
	assert.ErrorIs(t, err, store.ErrValidation)

	rows, err := f.svc.ListReadings(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestFailedSubmissionReleasesGuard(t *testing.T) {
	f := newFixture(t, dedup.NewMemoryGuard(nil))
	ctx := context.Background()
	req := domain.RecordReadingsRequest{Readings: []domain.ReadingEntry{
		{PumpID: 5, PreviousMeter: 0, CurrentMeter: 10, UnitRate: 260},
	}}

	_, err := f.svc.RecordReadings(ctx, req)
	require.ErrorIs(t, err, store.ErrNotFound)

	pump, err := f.repo.CreatePump(ctx, domain.Pump{Name: "Pump 5", FuelType: domain.FuelPetrol})
	require.NoError(t, err)
	require.Equal(t, int64(5), pump.ID)

	_, err = f.svc.RecordReadings(ctx, req)
	require.NoError(t, err)
}

func TestRateMatchedReportScenario(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	first, err := f.svc.RecordBuyBatch(ctx, domain.BuyBatchRequest{Date: date(t, "2024-01-01"), FuelType: "petrol", BuyingRatePerUnit: 2, Units: 5})
	require.NoError(t, err)
	assert.Equal(t, 5.0, first.TotalUnits)
	second, err := f.svc.RecordBuyBatch(ctx, domain.BuyBatchRequest{Date: date(t, "2024-01-05"), FuelType: "petrol", BuyingRatePerUnit: 3, Units: 2})
	require.NoError(t, err)
	assert.Equal(t, 7.0, second.TotalUnits)

	f.setDay(t, "2024-01-01")
	_, err = f.svc.RecordReadings(ctx, domain.RecordReadingsRequest{Readings: []domain.ReadingEntry{
		{PumpID: 1, PreviousMeter: 0, CurrentMeter: 4, UnitRate: 10},
	}})
	require.NoError(t, err)

	report, err := f.svc.RateMatchedReport(ctx, "petrol")
	require.NoError(t, err)
	assert.Equal(t, 40.0, report.TotalRevenue)
	assert.Equal(t, 8.0, report.TotalCost)
	assert.Equal(t, 32.0, report.TotalProfit)
	assert.Zero(t, report.UnmatchedUnits)
	require.Len(t, report.Details, 1)
	assert.Equal(t, domain.RateMatchedDay{Date: date(t, "2024-01-01"), Units: 4, Revenue: 40, Cost: 8}, report.Details[0])
}

func TestRateMatchedReportUsesIntervalPerDate(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.RecordBuyBatch(ctx, domain.BuyBatchRequest{Date: date(t, "2024-01-05"), FuelType: "diesel", BuyingRatePerUnit: 2, Units: 100})
	require.NoError(t, err)
	_, err = f.svc.RecordBuyBatch(ctx, domain.BuyBatchRequest{Date: date(t, "2024-01-10"), FuelType: "diesel", BuyingRatePerUnit: 3, Units: 100})
	require.NoError(t, err)

	record := func(day string, prev, cur float64) {
		f.setDay(t, day)
		_, err := f.svc.RecordReadings(ctx, domain.RecordReadingsRequest{Readings: []domain.ReadingEntry{
			{PumpID: 3, PreviousMeter: prev, CurrentMeter: cur, UnitRate: 5},
		}})
		require.NoError(t, err)
	}
	record("2024-01-01", 0, 1.5)
	record("2024-01-09", 1.5, 3.5)
	record("2024-01-10", 3.5, 6.5)

	report, err := f.svc.RateMatchedReport(ctx, "diesel")
	require.NoError(t, err)
	assert.Equal(t, 1.5, report.UnmatchedUnits)
	assert.Equal(t, 32.5, report.TotalRevenue)
	assert.Equal(t, 13.0, report.TotalCost)
	require.Len(t, report.Details, 3)
	assert.Zero(t, report.Details[0].Cost)
	assert.Equal(t, 4.0, report.Details[1].Cost)
	assert.Equal(t, 9.0, report.Details[2].Cost)

	intervals, err := f.svc.RateIntervals(ctx, "diesel")
	require.NoError(t, err)
	require.Len(t, intervals, 2)
	assert.True(t, intervals[1].Open())
}

func TestReportsRejectUnknownFuel(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.RateMatchedReport(ctx, "kerosene")
	assert.ErrorIs(t, err, store.ErrValidation)
	_, err = f.svc.CumulativeByRate(ctx, "")
	assert.ErrorIs(t, err, store.ErrValidation)
	_, err = f.svc.DailySales(ctx, "lpg")
	assert.ErrorIs(t, err, store.ErrValidation)
	_, err = f.svc.RecordBuyBatch(ctx, domain.BuyBatchRequest{FuelType: "lpg", Units: 1})
	assert.ErrorIs(t, err, store.ErrValidation)
}

func TestEmptyReportsAreZeroValued(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	report, err := f.svc.RateMatchedReport(ctx, "petrol")
	require.NoError(t, err)
	assert.Zero(t, report.TotalRevenue)
	assert.Empty(t, report.Details)

	cumulative, err := f.svc.CumulativeByRate(ctx, "diesel")
	require.NoError(t, err)
	assert.Empty(t, cumulative.Buckets)

	stock, err := f.svc.FuelStock(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.FuelStock{}, stock)

	today, err := f.svc.RevenueToday(ctx)
	require.NoError(t, err)
	assert.Zero(t, today.Total)
}

func TestFuelStockFollowsIDOrder(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for _, units := range []float64{100, 50, 10} {
		_, err := f.svc.RecordBuyBatch(ctx, domain.BuyBatchRequest{FuelType: "petrol", BuyingRatePerUnit: 240, Units: units})
		require.NoError(t, err)
	}

	stock, err := f.svc.FuelStock(ctx)
	require.NoError(t, err)
	assert.Equal(t, 160.0, stock.Petrol)
	assert.Zero(t, stock.Diesel)

	batches, err := f.svc.ListBuyBatches(ctx)
	require.NoError(t, err)
	require.Len(t, batches, 3)
	assert.Equal(t, 10.0, batches[0].Units)
}

func TestRevenueToday(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.setDay(t, "2024-03-09")
	_, err := f.svc.RecordReadings(ctx, domain.RecordReadingsRequest{Readings: []domain.ReadingEntry{
		{PumpID: 1, PreviousMeter: 0, CurrentMeter: 100, UnitRate: 250},
	}})
	require.NoError(t, err)

	f.setDay(t, "2024-03-10")
	_, err = f.svc.RecordReadings(ctx, domain.RecordReadingsRequest{Readings: []domain.ReadingEntry{
		{PumpID: 1, PreviousMeter: 100, CurrentMeter: 110.5, UnitRate: 255.5},
		{PumpID: 3, PreviousMeter: 0, CurrentMeter: 4, UnitRate: 280},
	}})
	require.NoError(t, err)

	rev, err := f.svc.RevenueToday(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2682.75, rev.Petrol)
	assert.Equal(t, 1120.0, rev.Diesel)
	assert.Equal(t, 3802.75, rev.Total)
	require.Len(t, rev.Pumps, 2)
	assert.False(t, rev.Pumps[0].Fallback)
	assert.Equal(t, 100.0, rev.Pumps[0].PreviousMeter)
	assert.True(t, rev.Pumps[1].Fallback)
	assert.Equal(t, 4.0, rev.Pumps[1].Units)
}

func TestCumulativeByRateAndDailySales(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.setDay(t, "2024-03-01")
	_, err := f.svc.RecordReadings(ctx, domain.RecordReadingsRequest{Readings: []domain.ReadingEntry{
		{PumpID: 1, PreviousMeter: 0, CurrentMeter: 10, UnitRate: 260},
		{PumpID: 2, PreviousMeter: 0, CurrentMeter: 5, UnitRate: 255},
	}})
	require.NoError(t, err)
	f.setDay(t, "2024-03-02")
	_, err = f.svc.RecordReadings(ctx, domain.RecordReadingsRequest{Readings: []domain.ReadingEntry{
		{PumpID: 1, PreviousMeter: 10, CurrentMeter: 12, UnitRate: 260},
	}})
	require.NoError(t, err)

	cumulative, err := f.svc.CumulativeByRate(ctx, "petrol")
	require.NoError(t, err)
	assert.Equal(t, []domain.RateBucket{
		{RatePerUnit: 255, Units: 5, Revenue: 1275},
		{RatePerUnit: 260, Units: 12, Revenue: 3120},
	}, cumulative.Buckets)
	assert.Equal(t, 17.0, cumulative.TotalUnits)
	assert.Equal(t, 4395.0, cumulative.TotalRevenue)

	daily, err := f.svc.DailySales(ctx, "petrol")
	require.NoError(t, err)
	require.Len(t, daily, 3)
	assert.Equal(t, 255.0, daily[0].RatePerUnit)
	assert.Equal(t, 10.0, daily[1].Units)
	assert.True(t, daily[2].Date.Equal(date(t, "2024-03-02")))
}

func TestMeterAnomalies(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	record := func(day string, prev, cur float64) {
		f.setDay(t, day)
		_, err := f.svc.RecordReadings(ctx, domain.RecordReadingsRequest{Readings: []domain.ReadingEntry{
			{PumpID: 1, PreviousMeter: prev, CurrentMeter: cur, UnitRate: 250},
		}})
		require.NoError(t, err)
	}
	record("2024-02-01", 0, 500)
	record("2024-02-02", 0, 400)
	record("2024-03-08", 400, 450)
	record("2024-03-09", 0, 448)

	f.setDay(t, "2024-03-10")
	report, err := f.svc.MeterAnomalies(ctx, 0)
	require.NoError(t, err)
	require.Len(t, report.Anomalies, 1)
	assert.Equal(t, 2.0, report.Anomalies[0].LostUnits)
	assert.Equal(t, 500.0, report.TotalLoss)
	assert.True(t, report.From.Equal(date(t, "2024-03-04")))

	wide, err := f.svc.MeterAnomalies(ctx, 60)
	require.NoError(t, err)
	assert.Len(t, wide.Anomalies, 2)

	_, err = f.svc.MeterAnomalies(ctx, -1)
	assert.ErrorIs(t, err, store.ErrValidation)
}

func TestTyreSaleOverStockLeavesRowUnchanged(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	tyre, err := f.svc.PurchaseTyres(ctx, domain.TyrePurchaseRequest{Tyre: " 185/70 R14 ", BuyingPrice: 8500, Units: 4})
	require.NoError(t, err)
	assert.Equal(t, "185/70 R14", tyre.Tyre)

	_, err = f.svc.SellTyres(ctx, domain.TyreSaleRequest{ID: tyre.ID, UnitsSold: 5})
	require.ErrorIs(t, err, store.ErrValidation)

	stock, err := f.svc.ListTyreStock(ctx)
	require.NoError(t, err)
	require.Len(t, stock, 1)
	assert.Equal(t, 4, stock[0].AvailableStock)
	assert.Zero(t, stock[0].SoldUnits)

	sold, err := f.svc.SellTyres(ctx, domain.TyreSaleRequest{ID: tyre.ID, UnitsSold: 3})
	require.NoError(t, err)
	assert.Equal(t, 1, sold.AvailableStock)
	assert.Equal(t, 3, sold.SoldUnits)

	_, err = f.svc.SellTyres(ctx, domain.TyreSaleRequest{ID: 99, UnitsSold: 1})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTyrePurchaseAlwaysAddsRow(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := f.svc.PurchaseTyres(ctx, domain.TyrePurchaseRequest{Tyre: "195/65 R15", BuyingPrice: 9000, Units: 2})
		require.NoError(t, err)
	}
	stock, err := f.svc.ListTyreStock(ctx)
	require.NoError(t, err)
	assert.Len(t, stock, 2)

	_, err = f.svc.PurchaseTyres(ctx, domain.TyrePurchaseRequest{Tyre: "x", Units: 0})
	assert.ErrorIs(t, err, store.ErrValidation)
}

func TestPeopleTotals(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	person, err := f.svc.CreatePerson(ctx, domain.PersonCreateRequest{Name: "Bilal", Address: "Canal Road", Phone: "0301"})
	require.NoError(t, err)
	other, err := f.svc.CreatePerson(ctx, domain.PersonCreateRequest{Name: "Sana"})
	require.NoError(t, err)

	_, err = f.svc.AddLoan(ctx, domain.LoanCreateRequest{PersonID: person.ID, Units: 10, UnitRate: 5, FuelType: "petrol"})
	require.NoError(t, err)
	_, err = f.svc.AddLoan(ctx, domain.LoanCreateRequest{PersonID: person.ID, Units: 2, UnitRate: 3, FuelType: "diesel"})
	require.NoError(t, err)
	_, err = f.svc.AddPayment(ctx, domain.PaymentCreateRequest{PersonID: person.ID, Amount: 20})
	require.NoError(t, err)

	people, err := f.svc.ListPeopleWithTotals(ctx)
	require.NoError(t, err)
	require.Len(t, people, 2)
	assert.Equal(t, 56.0, people[0].TotalPKR)
	assert.Equal(t, 56.0, people[0].TotalOutstanding)
	assert.Equal(t, 20.0, people[0].TotalPaid)
	assert.Equal(t, 36.0, people[0].NetBalance)
	assert.Equal(t, other.ID, people[1].ID)
	assert.Zero(t, people[1].TotalPKR)

	detail, err := f.svc.PersonDetail(ctx, person.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Loans, 2)
	assert.Len(t, detail.Payments, 1)
	assert.Equal(t, domain.PersonTotals{Loan: 56, Paid: 20, Net: 36}, detail.Totals)
	assert.True(t, detail.Loans[0].Date.Equal(date(t, "2024-03-10")))
}

func TestPersonDetailNotFound(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.PersonDetail(ctx, 404)
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = f.svc.AddLoan(ctx, domain.LoanCreateRequest{PersonID: 404, Units: 1, UnitRate: 1, FuelType: "petrol"})
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = f.svc.AddPayment(ctx, domain.PaymentCreateRequest{PersonID: 404, Amount: 1})
	require.ErrorIs(t, err, store.ErrNotFound)

	people, err := f.svc.ListPeopleWithTotals(ctx)
	require.NoError(t, err)
	assert.Empty(t, people)
	loans, err := f.repo.ListLoans(ctx)
	require.NoError(t, err)
	assert.Empty(t, loans)
}

func TestCreatePumpRequiresManager(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.CreatePump(context.Background(), domain.PumpCreateRequest{Name: "Pump 5", FuelType: "petrol"})
	require.ErrorIs(t, err, ErrForbidden)

	attendant := WithActor(context.Background(), domain.Actor{Username: "ali", Role: domain.RoleAttendant})
	_, err = f.svc.CreatePump(attendant, domain.PumpCreateRequest{Name: "Pump 5", FuelType: "petrol"})
	require.ErrorIs(t, err, ErrForbidden)

	pump, err := f.svc.CreatePump(managerCtx(), domain.PumpCreateRequest{Name: "Pump 5", FuelType: "Diesel"})
	require.NoError(t, err)
	assert.Equal(t, domain.FuelDiesel, pump.FuelType)

	pumps, err := f.svc.ListPumps(context.Background())
	require.NoError(t, err)
	assert.Len(t, pumps, 5)
}

func TestTodayUsesLocation(t *testing.T) {
	karachi := time.FixedZone("PKT", 5*60*60)
	now := time.Date(2024, 3, 10, 20, 0, 0, 0, time.UTC)
	svc := New(memory.New(), nil, WithLocation(karachi), WithClock(func() time.Time { return now }))

	assert.Equal(t, "2024-03-11", svc.Today().String())
}
