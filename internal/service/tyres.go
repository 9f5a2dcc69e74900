package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"fuelstation/backend/internal/domain"
	"fuelstation/backend/internal/store"
)

// PurchaseTyres always opens a new stock line, even for a known tyre spec.
func (s *Service) PurchaseTyres(ctx context.Context, req domain.TyrePurchaseRequest) (domain.TyreStock, error) {
	tyre := trimmed(req.Tyre)
	if tyre == "" {
		return domain.TyreStock{}, fmt.Errorf("%w: tyre is required", store.ErrValidation)
	}
	if req.BuyingPrice < 0 {
		return domain.TyreStock{}, fmt.Errorf("%w: buying price must not be negative", store.ErrValidation)
	}
	if req.Units < 1 {
		return domain.TyreStock{}, fmt.Errorf("%w: units must be positive", store.ErrValidation)
	}

	created, err := s.repo.CreateTyreStock(ctx, domain.TyreStock{
		Tyre:           tyre,
		BuyingPrice:    req.BuyingPrice,
		AvailableStock: req.Units,
	})
	if err != nil {
		return domain.TyreStock{}, err
	}
	return *created, nil
}

func (s *Service) SellTyres(ctx context.Context, req domain.TyreSaleRequest) (domain.TyreStock, error) {
	if req.ID < 1 {
		return domain.TyreStock{}, fmt.Errorf("%w: tyre stock id must be positive", store.ErrValidation)
	}
	if req.UnitsSold < 1 {
		return domain.TyreStock{}, fmt.Errorf("%w: units sold must be positive", store.ErrValidation)
	}

	updated, err := s.repo.SellTyre(ctx, req.ID, req.UnitsSold)
	if err != nil {
		return domain.TyreStock{}, err
	}
	s.log.Info("tyres sold",
		zap.Int64("stock_id", updated.ID),
		zap.Int("units", req.UnitsSold),
		zap.Int("available", updated.AvailableStock),
	)
	return *updated, nil
}

func (s *Service) ListTyreStock(ctx context.Context) ([]domain.TyreStock, error) {
	return s.repo.ListTyreStock(ctx)
}
