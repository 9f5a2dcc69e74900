package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"fuelstation/backend/internal/domain"
	"fuelstation/backend/internal/store"
)

type Store struct {
	mu         sync.RWMutex
	nextID     map[string]int64
	pumps      map[int64]domain.Pump
	readings   []domain.PumpReading
	buyBatches []domain.BuyBatch
	tyres      map[int64]domain.TyreStock
	persons    map[int64]domain.Person
	loans      []domain.Loan
	payments   []domain.Payment
	users      map[string]domain.UserAccount
}

func New() *Store {
	return &Store{
		nextID:     make(map[string]int64),
		pumps:      make(map[int64]domain.Pump),
		readings:   make([]domain.PumpReading, 0, 128),
		buyBatches: make([]domain.BuyBatch, 0, 32),
		tyres:      make(map[int64]domain.TyreStock),
		persons:    make(map[int64]domain.Person),
		loans:      make([]domain.Loan, 0, 64),
		payments:   make([]domain.Payment, 0, 64),
		users:      make(map[string]domain.UserAccount),
	}
}

// NewSeeded returns a store holding the station's four pumps.
func NewSeeded() *Store {
	s := New()
	for _, p := range []domain.Pump{
		{Name: "Pump 1", FuelType: domain.FuelPetrol},
		{Name: "Pump 2", FuelType: domain.FuelPetrol},
		{Name: "Pump 3", FuelType: domain.FuelDiesel},
		{Name: "Pump 4", FuelType: domain.FuelDiesel},
	} {
		p.ID = s.allocID("pumps")
		s.pumps[p.ID] = p
	}
	return s
}

func (s *Store) allocID(table string) int64 {
	s.nextID[table]++
	return s.nextID[table]
}

func (s *Store) ListPumps(_ context.Context) ([]domain.Pump, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pumps := make([]domain.Pump, 0, len(s.pumps))
	for _, p := range s.pumps {
		pumps = append(pumps, p)
	}
	slices.SortFunc(pumps, func(a, b domain.Pump) int { return cmp.Compare(a.ID, b.ID) })
	return pumps, nil
}

func (s *Store) GetPump(_ context.Context, id int64) (*domain.Pump, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pump, ok := s.pumps[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &pump, nil
}

func (s *Store) CreatePump(_ context.Context, pump domain.Pump) (*domain.Pump, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pump.Name == "" || !pump.FuelType.Valid() {
		return nil, store.ErrValidation
	}
	pump.ID = s.allocID("pumps")
	s.pumps[pump.ID] = pump
	created := pump
	return &created, nil
}

func (s *Store) RecordReadings(_ context.Context, date domain.Date, readings []domain.ReadingInsert) ([]domain.StockDepletion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(readings) == 0 {
		return nil, store.ErrValidation
	}

	// Resolve every pump before touching state so a missing one aborts the
	// whole batch.
	fuelByPump := make(map[int64]domain.FuelType, len(readings))
	for _, r := range readings {
		pump, ok := s.pumps[r.PumpID]
		if !ok {
			return nil, fmt.Errorf("pump %d: %w", r.PumpID, store.ErrNotFound)
		}
		fuelByPump[r.PumpID] = pump.FuelType
	}

	soldByFuel := make(map[domain.FuelType]float64, 2)
	for _, r := range readings {
		fuel := fuelByPump[r.PumpID]
		s.readings = append(s.readings, domain.PumpReading{
			ID:           s.allocID("pump_readings"),
			PumpID:       r.PumpID,
			ReadingDate:  date,
			Units:        r.Units,
			RatePerUnit:  r.RatePerUnit,
			MeterReading: r.MeterReading,
			FuelType:     fuel,
		})
		soldByFuel[fuel] = domain.AddUnits(soldByFuel[fuel], r.Units)
	}

	depletions := make([]domain.StockDepletion, 0, len(soldByFuel))
	for _, fuel := range domain.FuelTypes() {
		sold, touched := soldByFuel[fuel]
		if !touched {
			continue
		}
		depletion := domain.StockDepletion{FuelType: fuel, UnitsSold: sold}
		if idx := s.latestBatchIndex(fuel); idx >= 0 {
			s.buyBatches[idx].TotalUnits = domain.SubtractUnits(s.buyBatches[idx].TotalUnits, sold)
			depletion.BatchID = s.buyBatches[idx].ID
			depletion.Applied = true
		}
		depletions = append(depletions, depletion)
	}

	return depletions, nil
}

func (s *Store) latestBatchIndex(fuel domain.FuelType) int {
	idx := -1
	for i, b := range s.buyBatches {
		if b.FuelType != fuel {
			continue
		}
		if idx < 0 || b.ID > s.buyBatches[idx].ID {
			idx = i
		}
	}
	return idx
}

func (s *Store) LatestMeters(_ context.Context) ([]domain.LatestMeter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := make(map[int64]domain.PumpReading, len(s.pumps))
	for _, r := range s.readings {
		current, ok := latest[r.PumpID]
		if !ok || compareReadings(r, current) > 0 {
			latest[r.PumpID] = r
		}
	}

	meters := make([]domain.LatestMeter, 0, len(s.pumps))
	for _, p := range s.pumps {
		meter := domain.LatestMeter{PumpID: p.ID, Name: p.Name, FuelType: p.FuelType}
		if r, ok := latest[p.ID]; ok {
			meter.PreviousMeter = r.MeterReading
			meter.UnitRate = r.RatePerUnit
			meter.HasReading = true
		}
		meters = append(meters, meter)
	}
	slices.SortFunc(meters, func(a, b domain.LatestMeter) int { return cmp.Compare(a.PumpID, b.PumpID) })
	return meters, nil
}

func (s *Store) ListReadings(_ context.Context) ([]domain.ReadingRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]domain.ReadingRow, 0, len(s.readings))
	for _, r := range s.readings {
		rows = append(rows, domain.ReadingRow{PumpReading: r, PumpName: s.pumps[r.PumpID].Name})
	}
	slices.SortFunc(rows, func(a, b domain.ReadingRow) int { return compareReadings(b.PumpReading, a.PumpReading) })
	return rows, nil
}

func (s *Store) ListReadingsByFuel(_ context.Context, fuel domain.FuelType) ([]domain.PumpReading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	readings := make([]domain.PumpReading, 0, len(s.readings))
	for _, r := range s.readings {
		if r.FuelType == fuel {
			readings = append(readings, r)
		}
	}
	slices.SortFunc(readings, compareReadings)
	return readings, nil
}

func (s *Store) ListReadingsBetween(_ context.Context, from domain.Date, to domain.Date) ([]domain.PumpReading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	readings := make([]domain.PumpReading, 0, 64)
	for _, r := range s.readings {
		if r.ReadingDate.Before(from) || r.ReadingDate.After(to) {
			continue
		}
		readings = append(readings, r)
	}
	slices.SortFunc(readings, compareReadings)
	return readings, nil
}

func (s *Store) CreateBuyBatch(_ context.Context, batch domain.BuyBatch) (*domain.BuyBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !batch.FuelType.Valid() || batch.Date.IsZero() {
		return nil, store.ErrValidation
	}

	previous := 0.0
	if idx := s.latestBatchIndex(batch.FuelType); idx >= 0 {
		previous = s.buyBatches[idx].TotalUnits
	}
	batch.ID = s.allocID("buying_unit_rate")
	batch.TotalUnits = domain.AddUnits(previous, batch.Units)
	s.buyBatches = append(s.buyBatches, batch)

	created := batch
	return &created, nil
}

func (s *Store) ListBuyBatches(_ context.Context) ([]domain.BuyBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	batches := slices.Clone(s.buyBatches)
	slices.SortFunc(batches, func(a, b domain.BuyBatch) int { return compareBatches(b, a) })
	return batches, nil
}

func (s *Store) ListBuyBatchesByFuel(_ context.Context, fuel domain.FuelType) ([]domain.BuyBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	batches := make([]domain.BuyBatch, 0, len(s.buyBatches))
	for _, b := range s.buyBatches {
		if b.FuelType == fuel {
			batches = append(batches, b)
		}
	}
	slices.SortFunc(batches, compareBatches)
	return batches, nil
}

func (s *Store) LatestBuyBatch(_ context.Context, fuel domain.FuelType) (*domain.BuyBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.latestBatchIndex(fuel)
	if idx < 0 {
		return nil, store.ErrNotFound
	}
	batch := s.buyBatches[idx]
	return &batch, nil
}

func (s *Store) CreateTyreStock(_ context.Context, stock domain.TyreStock) (*domain.TyreStock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stock.Tyre == "" || stock.AvailableStock < 0 {
		return nil, store.ErrValidation
	}
	stock.ID = s.allocID("tyre_stock")
	stock.SoldUnits = 0
	s.tyres[stock.ID] = stock

	created := stock
	return &created, nil
}

func (s *Store) ListTyreStock(_ context.Context) ([]domain.TyreStock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stock := make([]domain.TyreStock, 0, len(s.tyres))
	for _, t := range s.tyres {
		stock = append(stock, t)
	}
	slices.SortFunc(stock, func(a, b domain.TyreStock) int {
		if c := strings.Compare(a.Tyre, b.Tyre); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return stock, nil
}

func (s *Store) SellTyre(_ context.Context, id int64, units int) (*domain.TyreStock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stock, ok := s.tyres[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if units < 1 {
		return nil, store.ErrValidation
	}
	if units > stock.AvailableStock {
		return nil, store.ErrInsufficientStock
	}
	stock.AvailableStock -= units
	stock.SoldUnits += units
	s.tyres[id] = stock

	updated := stock
	return &updated, nil
}

func (s *Store) CreatePerson(_ context.Context, person domain.Person) (*domain.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if person.Name == "" {
		return nil, store.ErrValidation
	}
	person.ID = s.allocID("persons")
	s.persons[person.ID] = person

	created := person
	return &created, nil
}

func (s *Store) GetPerson(_ context.Context, id int64) (*domain.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	person, ok := s.persons[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &person, nil
}

func (s *Store) ListPersons(_ context.Context) ([]domain.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	persons := make([]domain.Person, 0, len(s.persons))
	for _, p := range s.persons {
		persons = append(persons, p)
	}
	slices.SortFunc(persons, func(a, b domain.Person) int { return cmp.Compare(a.ID, b.ID) })
	return persons, nil
}

func (s *Store) CreateLoan(_ context.Context, loan domain.Loan) (*domain.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.persons[loan.PersonID]; !ok {
		return nil, fmt.Errorf("person %d: %w", loan.PersonID, store.ErrNotFound)
	}
	loan.ID = s.allocID("loans")
	loan.PKR = domain.Amount(loan.Units, loan.UnitRate)
	s.loans = append(s.loans, loan)

	created := loan
	return &created, nil
}

func (s *Store) ListLoans(_ context.Context) ([]domain.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.loans), nil
}

func (s *Store) ListLoansByPerson(_ context.Context, personID int64) ([]domain.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loans := make([]domain.Loan, 0, 16)
	for _, l := range s.loans {
		if l.PersonID == personID {
			loans = append(loans, l)
		}
	}
	slices.SortFunc(loans, func(a, b domain.Loan) int {
		if c := b.Date.Compare(a.Date.Time); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return loans, nil
}

func (s *Store) CreatePayment(_ context.Context, payment domain.Payment) (*domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.persons[payment.PersonID]; !ok {
		return nil, fmt.Errorf("person %d: %w", payment.PersonID, store.ErrNotFound)
	}
	payment.ID = s.allocID("payments")
	s.payments = append(s.payments, payment)

	created := payment
	return &created, nil
}

func (s *Store) ListPayments(_ context.Context) ([]domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.payments), nil
}

func (s *Store) ListPaymentsByPerson(_ context.Context, personID int64) ([]domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payments := make([]domain.Payment, 0, 16)
	for _, p := range s.payments {
		if p.PersonID == personID {
			payments = append(payments, p)
		}
	}
	slices.SortFunc(payments, func(a, b domain.Payment) int {
		if c := b.Date.Compare(a.Date.Time); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return payments, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.Username == "" || user.Password == "" {
		return store.ErrValidation
	}
	if _, exists := s.users[user.Username]; exists {
		return store.ErrDuplicate
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.users[user.Username] = user
	return nil
}

func (s *Store) GetUser(_ context.Context, username string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &user, nil
}

func (s *Store) CountUsers(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.users), nil
}

// compareReadings orders by reading date, then id.
func compareReadings(a, b domain.PumpReading) int {
	if c := a.ReadingDate.Compare(b.ReadingDate.Time); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func compareBatches(a, b domain.BuyBatch) int {
	if c := a.Date.Compare(b.Date.Time); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}
