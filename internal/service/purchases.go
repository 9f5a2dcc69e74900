package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"fuelstation/backend/internal/domain"
	"fuelstation/backend/internal/store"
)

func (s *Service) RecordBuyBatch(ctx context.Context, req domain.BuyBatchRequest) (domain.BuyBatch, error) {
	fuel, err := parseFuel(req.FuelType)
	if err != nil {
		return domain.BuyBatch{}, err
	}
	if req.BuyingRatePerUnit < 0 || req.Units < 0 {
		return domain.BuyBatch{}, fmt.Errorf("%w: rate and units must not be negative", store.ErrValidation)
	}
	date := req.Date
	if date.IsZero() {
		date = s.Today()
	}

	created, err := s.repo.CreateBuyBatch(ctx, domain.BuyBatch{
		Date:              date,
		FuelType:          fuel,
		BuyingRatePerUnit: req.BuyingRatePerUnit,
		Units:             req.Units,
	})
	if err != nil {
		return domain.BuyBatch{}, err
	}

	s.metrics.IncBuyBatch(string(fuel))
	s.log.Info("buy batch recorded",
		zap.Int64("batch_id", created.ID),
		zap.String("fuel_type", string(fuel)),
		zap.Float64("units", created.Units),
		zap.Float64("total_units", created.TotalUnits),
	)
	return *created, nil
}

func (s *Service) ListBuyBatches(ctx context.Context) ([]domain.BuyBatch, error) {
	return s.repo.ListBuyBatches(ctx)
}

// FuelStock reports the running total of the newest batch per fuel type.
func (s *Service) FuelStock(ctx context.Context) (domain.FuelStock, error) {
	var stock domain.FuelStock
	for _, fuel := range domain.FuelTypes() {
		batch, err := s.repo.LatestBuyBatch(ctx, fuel)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return domain.FuelStock{}, err
		}
		switch fuel {
		case domain.FuelPetrol:
			stock.Petrol = batch.TotalUnits
		case domain.FuelDiesel:
			stock.Diesel = batch.TotalUnits
		}
	}
	return stock, nil
}
