package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"fuelstation/backend/internal/domain"
	"fuelstation/backend/internal/store"
)

func trimmed(value string) string {
	return strings.TrimSpace(value)
}

func (s *Service) CreatePerson(ctx context.Context, req domain.PersonCreateRequest) (domain.Person, error) {
	name := trimmed(req.Name)
	if name == "" {
		return domain.Person{}, fmt.Errorf("%w: name is required", store.ErrValidation)
	}
	created, err := s.repo.CreatePerson(ctx, domain.Person{
		Name:    name,
		Address: trimmed(req.Address),
		Phone:   trimmed(req.Phone),
	})
	if err != nil {
		return domain.Person{}, err
	}
	return *created, nil
}

func (s *Service) AddLoan(ctx context.Context, req domain.LoanCreateRequest) (domain.Loan, error) {
	fuel, err := parseFuel(req.FuelType)
	if err != nil {
		return domain.Loan{}, err
	}
	if req.PersonID < 1 {
		return domain.Loan{}, fmt.Errorf("%w: person id must be positive", store.ErrValidation)
	}
	if req.Units <= 0 {
		return domain.Loan{}, fmt.Errorf("%w: units must be positive", store.ErrValidation)
	}
	if req.UnitRate < 0 {
		return domain.Loan{}, fmt.Errorf("%w: unit rate must not be negative", store.ErrValidation)
	}
	if _, err := s.repo.GetPerson(ctx, req.PersonID); err != nil {
		return domain.Loan{}, err
	}
	date := req.Date
	if date.IsZero() {
		date = s.Today()
	}

	created, err := s.repo.CreateLoan(ctx, domain.Loan{
		PersonID: req.PersonID,
		Date:     date,
		Units:    req.Units,
		UnitRate: req.UnitRate,
		FuelType: fuel,
	})
	if err != nil {
		return domain.Loan{}, err
	}
	return *created, nil
}

func (s *Service) AddPayment(ctx context.Context, req domain.PaymentCreateRequest) (domain.Payment, error) {
	if req.PersonID < 1 {
		return domain.Payment{}, fmt.Errorf("%w: person id must be positive", store.ErrValidation)
	}
	if req.Amount <= 0 {
		return domain.Payment{}, fmt.Errorf("%w: amount must be positive", store.ErrValidation)
	}
	if _, err := s.repo.GetPerson(ctx, req.PersonID); err != nil {
		return domain.Payment{}, err
	}
	date := req.Date
	if date.IsZero() {
		date = s.Today()
	}

	created, err := s.repo.CreatePayment(ctx, domain.Payment{
		PersonID: req.PersonID,
		Date:     date,
		Amount:   domain.RoundAmount(req.Amount),
		Note:     trimmed(req.Note),
	})
	if err != nil {
		return domain.Payment{}, err
	}
	return *created, nil
}

func (s *Service) ListPeopleWithTotals(ctx context.Context) ([]domain.PersonSummary, error) {
	persons, err := s.repo.ListPersons(ctx)
	if err != nil {
		return nil, err
	}
	loans, err := s.repo.ListLoans(ctx)
	if err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPayments(ctx)
	if err != nil {
		return nil, err
	}

	loaned := make(map[int64]decimal.Decimal, len(persons))
	for _, l := range loans {
		loaned[l.PersonID] = loaned[l.PersonID].Add(domain.AmountDecimal(l.Units, l.UnitRate))
	}
	paid := make(map[int64]decimal.Decimal, len(persons))
	for _, p := range payments {
		paid[p.PersonID] = paid[p.PersonID].Add(decimal.NewFromFloat(p.Amount))
	}

	summaries := make([]domain.PersonSummary, 0, len(persons))
	for _, p := range persons {
		totals := personTotals(loaned[p.ID], paid[p.ID])
		summaries = append(summaries, domain.PersonSummary{
			ID:               p.ID,
			Name:             p.Name,
			Address:          p.Address,
			Phone:            p.Phone,
			TotalPKR:         totals.Loan,
			TotalOutstanding: totals.Loan,
			TotalPaid:        totals.Paid,
			NetBalance:       totals.Net,
		})
	}
	return summaries, nil
}

func (s *Service) PersonDetail(ctx context.Context, personID int64) (domain.PersonDetail, error) {
	person, err := s.repo.GetPerson(ctx, personID)
	if err != nil {
		return domain.PersonDetail{}, err
	}
	loans, err := s.repo.ListLoansByPerson(ctx, personID)
	if err != nil {
		return domain.PersonDetail{}, err
	}
	payments, err := s.repo.ListPaymentsByPerson(ctx, personID)
	if err != nil {
		return domain.PersonDetail{}, err
	}

	loaned := decimal.Zero
	for _, l := range loans {
		loaned = loaned.Add(domain.AmountDecimal(l.Units, l.UnitRate))
	}
	paid := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(decimal.NewFromFloat(p.Amount))
	}

	return domain.PersonDetail{
		Person:   *person,
		Loans:    loans,
		Payments: payments,
		Totals:   personTotals(loaned, paid),
	}, nil
}

func personTotals(loaned decimal.Decimal, paid decimal.Decimal) domain.PersonTotals {
	return domain.PersonTotals{
		Loan: loaned.Round(2).InexactFloat64(),
		Paid: paid.Round(2).InexactFloat64(),
		Net:  loaned.Sub(paid).Round(2).InexactFloat64(),
	}
}
