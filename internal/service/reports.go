package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"fuelstation/backend/internal/domain"
	"fuelstation/backend/internal/rates"
	"fuelstation/backend/internal/store"
)

const (
	DefaultAnomalyDays = 7
	MaxAnomalyDays     = 366
)

// RevenueToday prices each pump's units since yesterday's meter. A pump
// with no reading yesterday counts its whole meter value as sold and is
// flagged as a fallback.
func (s *Service) RevenueToday(ctx context.Context) (domain.RevenueToday, error) {
	today := s.Today()
	yesterday := today.AddDays(-1)

	readings, err := s.repo.ListReadingsBetween(ctx, yesterday, today)
	if err != nil {
		return domain.RevenueToday{}, err
	}

	// readings arrive by date then id, so the last one seen per pump wins
	previous := make(map[int64]domain.PumpReading)
	current := make(map[int64]domain.PumpReading)
	for _, r := range readings {
		if r.ReadingDate.Equal(today) {
			current[r.PumpID] = r
		} else {
			previous[r.PumpID] = r
		}
	}

	pumpIDs := make([]int64, 0, len(current))
	for id := range current {
		pumpIDs = append(pumpIDs, id)
	}
	slices.Sort(pumpIDs)

	byFuel := make(map[domain.FuelType]decimal.Decimal, 2)
	lines := make([]domain.PumpRevenue, 0, len(pumpIDs))
	for _, id := range pumpIDs {
		r := current[id]
		line := domain.PumpRevenue{
			PumpID:       id,
			FuelType:     r.FuelType,
			MeterReading: r.MeterReading,
			RatePerUnit:  r.RatePerUnit,
		}
		if prev, ok := previous[id]; ok {
			line.PreviousMeter = prev.MeterReading
			line.Units = domain.SubtractUnits(r.MeterReading, prev.MeterReading)
		} else {
			line.Fallback = true
			line.Units = r.MeterReading
		}
		revenue := domain.AmountDecimal(line.Units, line.RatePerUnit)
		line.Revenue = revenue.InexactFloat64()
		byFuel[r.FuelType] = byFuel[r.FuelType].Add(revenue)
		lines = append(lines, line)
	}

	petrol := byFuel[domain.FuelPetrol]
	diesel := byFuel[domain.FuelDiesel]
	return domain.RevenueToday{
		Date:   today,
		Petrol: petrol.Round(2).InexactFloat64(),
		Diesel: diesel.Round(2).InexactFloat64(),
		Total:  petrol.Add(diesel).Round(2).InexactFloat64(),
		Pumps:  lines,
	}, nil
}

// CumulativeByRate sums every reading of a fuel type per selling rate.
func (s *Service) CumulativeByRate(ctx context.Context, rawFuel domain.FuelType) (domain.CumulativeByRate, error) {
	fuel, err := parseFuel(rawFuel)
	if err != nil {
		return domain.CumulativeByRate{}, err
	}
	readings, err := s.repo.ListReadingsByFuel(ctx, fuel)
	if err != nil {
		return domain.CumulativeByRate{}, err
	}

	unitsByRate := make(map[float64]decimal.Decimal)
	for _, r := range readings {
		unitsByRate[r.RatePerUnit] = unitsByRate[r.RatePerUnit].Add(decimal.NewFromFloat(r.Units))
	}

	report := domain.CumulativeByRate{FuelType: fuel, Buckets: make([]domain.RateBucket, 0, len(unitsByRate))}
	totalUnits := decimal.Zero
	totalRevenue := decimal.Zero
	for rate, units := range unitsByRate {
		revenue := units.Mul(decimal.NewFromFloat(rate)).Round(2)
		report.Buckets = append(report.Buckets, domain.RateBucket{
			RatePerUnit: rate,
			Units:       units.InexactFloat64(),
			Revenue:     revenue.InexactFloat64(),
		})
		totalUnits = totalUnits.Add(units)
		totalRevenue = totalRevenue.Add(revenue)
	}
	slices.SortFunc(report.Buckets, func(a, b domain.RateBucket) int {
		return cmp.Compare(a.RatePerUnit, b.RatePerUnit)
	})
	report.TotalUnits = totalUnits.InexactFloat64()
	report.TotalRevenue = totalRevenue.Round(2).InexactFloat64()
	return report, nil
}

// RateMatchedReport prices each reading's cost at the buying rate in effect
// on its date. Readings dated before the first buy batch add revenue but no
// cost; their units are reported as unmatched.
func (s *Service) RateMatchedReport(ctx context.Context, rawFuel domain.FuelType) (domain.RateMatchedReport, error) {
	fuel, err := parseFuel(rawFuel)
	if err != nil {
		return domain.RateMatchedReport{}, err
	}
	batches, err := s.repo.ListBuyBatchesByFuel(ctx, fuel)
	if err != nil {
		return domain.RateMatchedReport{}, err
	}
	readings, err := s.repo.ListReadingsByFuel(ctx, fuel)
	if err != nil {
		return domain.RateMatchedReport{}, err
	}
	index := rates.NewIndex(fuel, batches)

	type dayTotals struct {
		date                 domain.Date
		units, revenue, cost decimal.Decimal
	}
	days := make(map[string]*dayTotals)
	order := make([]*dayTotals, 0, 32)
	totalRevenue := decimal.Zero
	totalCost := decimal.Zero
	unmatched := decimal.Zero

	for _, r := range readings {
		day, ok := days[r.ReadingDate.String()]
		if !ok {
			day = &dayTotals{date: r.ReadingDate}
			days[r.ReadingDate.String()] = day
			order = append(order, day)
		}
		units := decimal.NewFromFloat(r.Units)
		revenue := domain.AmountDecimal(r.Units, r.RatePerUnit)
		day.units = day.units.Add(units)
		day.revenue = day.revenue.Add(revenue)
		totalRevenue = totalRevenue.Add(revenue)

		batch, matched := index.Lookup(r.ReadingDate)
		if !matched {
			unmatched = unmatched.Add(units)
			continue
		}
		cost := domain.AmountDecimal(r.Units, batch.BuyingRatePerUnit)
		day.cost = day.cost.Add(cost)
		totalCost = totalCost.Add(cost)
	}

	slices.SortFunc(order, func(a, b *dayTotals) int { return a.date.Compare(b.date.Time) })
	details := make([]domain.RateMatchedDay, 0, len(order))
	for _, t := range order {
		details = append(details, domain.RateMatchedDay{
			Date:    t.date,
			Units:   t.units.InexactFloat64(),
			Revenue: t.revenue.Round(2).InexactFloat64(),
			Cost:    t.cost.Round(2).InexactFloat64(),
		})
	}

	return domain.RateMatchedReport{
		FuelType:       fuel,
		TotalRevenue:   totalRevenue.Round(2).InexactFloat64(),
		TotalCost:      totalCost.Round(2).InexactFloat64(),
		TotalProfit:    totalRevenue.Sub(totalCost).Round(2).InexactFloat64(),
		UnmatchedUnits: unmatched.InexactFloat64(),
		Details:        details,
	}, nil
}

// RateIntervals lists the validity window of every buy batch of a fuel type.
func (s *Service) RateIntervals(ctx context.Context, rawFuel domain.FuelType) ([]rates.Interval, error) {
	fuel, err := parseFuel(rawFuel)
	if err != nil {
		return nil, err
	}
	batches, err := s.repo.ListBuyBatchesByFuel(ctx, fuel)
	if err != nil {
		return nil, err
	}
	return rates.NewIndex(fuel, batches).Intervals(), nil
}

// DailySales totals units per day and selling rate.
func (s *Service) DailySales(ctx context.Context, rawFuel domain.FuelType) ([]domain.DailySales, error) {
	fuel, err := parseFuel(rawFuel)
	if err != nil {
		return nil, err
	}
	readings, err := s.repo.ListReadingsByFuel(ctx, fuel)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		day  string
		rate float64
	}
	dates := make(map[string]domain.Date)
	units := make(map[bucket]decimal.Decimal)
	for _, r := range readings {
		k := bucket{day: r.ReadingDate.String(), rate: r.RatePerUnit}
		dates[k.day] = r.ReadingDate
		units[k] = units[k].Add(decimal.NewFromFloat(r.Units))
	}

	sales := make([]domain.DailySales, 0, len(units))
	for k, u := range units {
		sales = append(sales, domain.DailySales{
			Date:        dates[k.day],
			FuelType:    fuel,
			Units:       u.InexactFloat64(),
			RatePerUnit: k.rate,
		})
	}
	slices.SortFunc(sales, func(a, b domain.DailySales) int {
		if c := a.Date.Compare(b.Date.Time); c != 0 {
			return c
		}
		return cmp.Compare(a.RatePerUnit, b.RatePerUnit)
	})
	return sales, nil
}

// MeterAnomalies finds readings in the last days whose meter went below the
// pump's previous stored meter, and prices the lost units at the reading's rate.
func (s *Service) MeterAnomalies(ctx context.Context, days int) (domain.MeterAnomalyReport, error) {
	if days == 0 {
		days = DefaultAnomalyDays
	}
	if days < 1 || days > MaxAnomalyDays {
		return domain.MeterAnomalyReport{}, fmt.Errorf("%w: days must be between 1 and %d", store.ErrValidation, MaxAnomalyDays)
	}
	to := s.Today()
	from := to.AddDays(-(days - 1))

	report := domain.MeterAnomalyReport{From: from, To: to, Anomalies: make([]domain.MeterAnomaly, 0)}
	totalLoss := decimal.Zero
	for _, fuel := range domain.FuelTypes() {
		readings, err := s.repo.ListReadingsByFuel(ctx, fuel)
		if err != nil {
			return domain.MeterAnomalyReport{}, err
		}
		lastMeter := make(map[int64]float64)
		for _, r := range readings {
			prev, seen := lastMeter[r.PumpID]
			lastMeter[r.PumpID] = r.MeterReading
			if !seen || r.MeterReading >= prev {
				continue
			}
			if r.ReadingDate.Before(from) || r.ReadingDate.After(to) {
				continue
			}
			lost := domain.SubtractUnits(prev, r.MeterReading)
			loss := domain.AmountDecimal(lost, r.RatePerUnit)
			totalLoss = totalLoss.Add(loss)
			report.Anomalies = append(report.Anomalies, domain.MeterAnomaly{
				ReadingID:     r.ID,
				PumpID:        r.PumpID,
				FuelType:      fuel,
				ReadingDate:   r.ReadingDate,
				MeterReading:  r.MeterReading,
				PreviousMeter: prev,
				LostUnits:     lost,
				LossAmount:    loss.InexactFloat64(),
			})
		}
	}
	slices.SortFunc(report.Anomalies, func(a, b domain.MeterAnomaly) int {
		if c := a.ReadingDate.Compare(b.ReadingDate.Time); c != 0 {
			return c
		}
		return cmp.Compare(a.ReadingID, b.ReadingID)
	})
	report.TotalLoss = totalLoss.Round(2).InexactFloat64()
	return report, nil
}
