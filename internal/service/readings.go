package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"fuelstation/backend/internal/domain"
	"fuelstation/backend/internal/metrics"
	"fuelstation/backend/internal/store"
)

// RecordReadings stores one reading per entry dated today and depletes
// stock of each fuel type touched. The batch is all-or-nothing.
func (s *Service) RecordReadings(ctx context.Context, req domain.RecordReadingsRequest) (domain.RecordReadingsResult, error) {
	inserts, err := validateReadings(req.Readings)
	if err != nil {
		s.metrics.IncReadingBatch(metrics.ReadingOutcomeRejected)
		return domain.RecordReadingsResult{}, err
	}

	today := s.Today()
	key := submissionKey(today, req.Readings)
	acquired, err := s.guard.Acquire(ctx, key, s.guardTTL)
	switch {
	case err != nil:
		s.log.Warn("submission guard unavailable", zap.Error(err))
	case !acquired:
		s.metrics.IncReadingBatch(metrics.ReadingOutcomeDuplicate)
		return domain.RecordReadingsResult{}, ErrDuplicateSubmission
	}

	depletions, err := s.repo.RecordReadings(ctx, today, inserts)
	if err != nil {
		if releaseErr := s.guard.Release(ctx, key); releaseErr != nil {
			s.log.Warn("submission guard release failed", zap.Error(releaseErr))
		}
		if errors.Is(err, store.ErrValidation) || errors.Is(err, store.ErrNotFound) {
			s.metrics.IncReadingBatch(metrics.ReadingOutcomeRejected)
		}
		return domain.RecordReadingsResult{}, err
	}

	for _, d := range depletions {
		s.metrics.AddLitresSold(string(d.FuelType), d.UnitsSold)
		if !d.Applied {
			s.log.Warn("no buy batch to deplete",
				zap.String("fuel_type", string(d.FuelType)),
				zap.Float64("units_sold", d.UnitsSold),
			)
		}
	}
	s.metrics.IncReadingBatch(metrics.ReadingOutcomeRecorded)

	entries := make([]domain.RecordedUnits, len(inserts))
	for i, in := range inserts {
		entries[i] = domain.RecordedUnits{PumpID: in.PumpID, Units: in.Units}
	}
	s.log.Info("readings recorded",
		zap.Int("count", len(inserts)),
		zap.String("date", today.String()),
		zap.String("by", actorName(ctx)),
	)
	return domain.RecordReadingsResult{Inserted: len(inserts), Date: today, Entries: entries}, nil
}

func validateReadings(entries []domain.ReadingEntry) ([]domain.ReadingInsert, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: at least one reading is required", store.ErrValidation)
	}

	inserts := make([]domain.ReadingInsert, 0, len(entries))
	for _, e := range entries {
		if e.PumpID < 1 {
			return nil, fmt.Errorf("%w: pump id must be positive", store.ErrValidation)
		}
		if e.PreviousMeter < 0 || e.CurrentMeter < 0 || e.UnitRate < 0 {
			return nil, fmt.Errorf("%w: pump %d: meters and rate must not be negative", store.ErrValidation, e.PumpID)
		}
		if e.CurrentMeter < e.PreviousMeter {
			return nil, fmt.Errorf("%w: pump %d: current meter %.2f is below previous meter %.2f",
				store.ErrValidation, e.PumpID, e.CurrentMeter, e.PreviousMeter)
		}
		inserts = append(inserts, domain.ReadingInsert{
			PumpID:       e.PumpID,
			Units:        domain.SubtractUnits(e.CurrentMeter, e.PreviousMeter),
			RatePerUnit:  e.UnitRate,
			MeterReading: e.CurrentMeter,
		})
	}
	return inserts, nil
}

// submissionKey identifies a batch by day and its sorted (pump, meter) pairs.
func submissionKey(day domain.Date, entries []domain.ReadingEntry) string {
	pairs := make([]string, len(entries))
	for i, e := range entries {
		pairs[i] = strconv.FormatInt(e.PumpID, 10) + "=" + strconv.FormatFloat(e.CurrentMeter, 'f', -1, 64)
	}
	slices.Sort(pairs)
	return "readings:" + day.String() + ":" + strings.Join(pairs, ",")
}

func (s *Service) LatestMeters(ctx context.Context) ([]domain.LatestMeter, error) {
	return s.repo.LatestMeters(ctx)
}

func (s *Service) ListReadings(ctx context.Context) ([]domain.ReadingRow, error) {
	return s.repo.ListReadings(ctx)
}
