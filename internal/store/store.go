package store

import (
	"context"
	"errors"
	"fmt"

	"fuelstation/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrInsufficientStock = fmt.Errorf("%w: insufficient stock", ErrValidation)
	ErrDuplicate         = fmt.Errorf("%w: already exists", ErrValidation)
)

type Repository interface {
	ListPumps(ctx context.Context) ([]domain.Pump, error)
	GetPump(ctx context.Context, id int64) (*domain.Pump, error)
	CreatePump(ctx context.Context, pump domain.Pump) (*domain.Pump, error)

	// RecordReadings inserts the readings and depletes the latest buy batch
	// of every fuel type touched, all in one transaction.
	RecordReadings(ctx context.Context, date domain.Date, readings []domain.ReadingInsert) ([]domain.StockDepletion, error)
	LatestMeters(ctx context.Context) ([]domain.LatestMeter, error)
	ListReadings(ctx context.Context) ([]domain.ReadingRow, error)
	ListReadingsByFuel(ctx context.Context, fuel domain.FuelType) ([]domain.PumpReading, error)
	ListReadingsBetween(ctx context.Context, from domain.Date, to domain.Date) ([]domain.PumpReading, error)

	CreateBuyBatch(ctx context.Context, batch domain.BuyBatch) (*domain.BuyBatch, error)
	ListBuyBatches(ctx context.Context) ([]domain.BuyBatch, error)
	ListBuyBatchesByFuel(ctx context.Context, fuel domain.FuelType) ([]domain.BuyBatch, error)
	LatestBuyBatch(ctx context.Context, fuel domain.FuelType) (*domain.BuyBatch, error)

	CreateTyreStock(ctx context.Context, stock domain.TyreStock) (*domain.TyreStock, error)
	ListTyreStock(ctx context.Context) ([]domain.TyreStock, error)
	SellTyre(ctx context.Context, id int64, units int) (*domain.TyreStock, error)

	CreatePerson(ctx context.Context, person domain.Person) (*domain.Person, error)
	GetPerson(ctx context.Context, id int64) (*domain.Person, error)
	ListPersons(ctx context.Context) ([]domain.Person, error)
	CreateLoan(ctx context.Context, loan domain.Loan) (*domain.Loan, error)
	ListLoans(ctx context.Context) ([]domain.Loan, error)
	ListLoansByPerson(ctx context.Context, personID int64) ([]domain.Loan, error)
	CreatePayment(ctx context.Context, payment domain.Payment) (*domain.Payment, error)
	ListPayments(ctx context.Context) ([]domain.Payment, error)
	ListPaymentsByPerson(ctx context.Context, personID int64) ([]domain.Payment, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	GetUser(ctx context.Context, username string) (*domain.UserAccount, error)
	CountUsers(ctx context.Context) (int, error)
}
