package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"fuelstation/backend/internal/domain"
	"fuelstation/backend/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(16)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListPumps(ctx context.Context) ([]domain.Pump, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, fuel_type
		FROM pumps
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pumps := make([]domain.Pump, 0, 8)
	for rows.Next() {
		var p domain.Pump
		if err := rows.Scan(&p.ID, &p.Name, &p.FuelType); err != nil {
			return nil, err
		}
		pumps = append(pumps, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return pumps, nil
}

func (s *Store) GetPump(ctx context.Context, id int64) (*domain.Pump, error) {
	var p domain.Pump
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, fuel_type
		FROM pumps
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.FuelType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreatePump(ctx context.Context, pump domain.Pump) (*domain.Pump, error) {
	if pump.Name == "" || !pump.FuelType.Valid() {
		return nil, store.ErrValidation
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO pumps (name, fuel_type)
		VALUES ($1, $2)
		RETURNING id
	`, pump.Name, pump.FuelType).Scan(&pump.ID)
	if err != nil {
		return nil, err
	}
	created := pump
	return &created, nil
}

func (s *Store) RecordReadings(ctx context.Context, date domain.Date, readings []domain.ReadingInsert) ([]domain.StockDepletion, error) {
	if len(readings) == 0 {
		return nil, store.ErrValidation
	}

	pgTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	soldByFuel := make(map[domain.FuelType]float64, 2)
	for _, r := range readings {
		var fuel domain.FuelType
		err := pgTx.QueryRowContext(ctx, `SELECT fuel_type FROM pumps WHERE id = $1`, r.PumpID).Scan(&fuel)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("pump %d: %w", r.PumpID, store.ErrNotFound)
			}
			return nil, err
		}

		_, err = pgTx.ExecContext(ctx, `
			INSERT INTO pump_readings (pump_id, reading_date, units, rate_per_unit, meter_reading)
			VALUES ($1, $2, $3, $4, $5)
		`, r.PumpID, date.Time, r.Units, r.RatePerUnit, r.MeterReading)
		if err != nil {
			return nil, err
		}
		soldByFuel[fuel] = domain.AddUnits(soldByFuel[fuel], r.Units)
	}

	depletions := make([]domain.StockDepletion, 0, len(soldByFuel))
	for _, fuel := range domain.FuelTypes() {
		sold, touched := soldByFuel[fuel]
		if !touched {
			continue
		}
		depletion := domain.StockDepletion{FuelType: fuel, UnitsSold: sold}

		var batchID int64
		var total float64
		err := pgTx.QueryRowContext(ctx, `
			SELECT id, total_units
			FROM buying_unit_rate
			WHERE fuel_type = $1
			ORDER BY id DESC
			LIMIT 1
			FOR UPDATE
		`, fuel).Scan(&batchID, &total)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			depletions = append(depletions, depletion)
			continue
		case err != nil:
			return nil, err
		}

		if _, err := pgTx.ExecContext(ctx, `
			UPDATE buying_unit_rate
			SET total_units = $2
			WHERE id = $1
		`, batchID, domain.SubtractUnits(total, sold)); err != nil {
			return nil, err
		}
		depletion.BatchID = batchID
		depletion.Applied = true
		depletions = append(depletions, depletion)
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	return depletions, nil
}

func (s *Store) LatestMeters(ctx context.Context) ([]domain.LatestMeter, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.fuel_type, lr.meter_reading, lr.rate_per_unit
		FROM pumps p
		LEFT JOIN (
			SELECT DISTINCT ON (pump_id) pump_id, meter_reading, rate_per_unit
			FROM pump_readings
			ORDER BY pump_id, reading_date DESC, id DESC
		) lr ON lr.pump_id = p.id
		ORDER BY p.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	meters := make([]domain.LatestMeter, 0, 8)
	for rows.Next() {
		var m domain.LatestMeter
		var meter, rate sql.NullFloat64
		if err := rows.Scan(&m.PumpID, &m.Name, &m.FuelType, &meter, &rate); err != nil {
			return nil, err
		}
		if meter.Valid {
			m.PreviousMeter = meter.Float64
			m.UnitRate = rate.Float64
			m.HasReading = true
		}
		meters = append(meters, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return meters, nil
}

const readingColumns = `r.id, r.pump_id, r.reading_date, r.units, r.rate_per_unit, r.meter_reading, p.fuel_type, p.name`

func (s *Store) ListReadings(ctx context.Context) ([]domain.ReadingRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+readingColumns+`
		FROM pump_readings r
		JOIN pumps p ON p.id = r.pump_id
		ORDER BY r.reading_date DESC, r.id DESC
	`)
	if err != nil {
		return nil, err
	}
	return scanReadingRows(rows)
}

func (s *Store) ListReadingsByFuel(ctx context.Context, fuel domain.FuelType) ([]domain.PumpReading, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+readingColumns+`
		FROM pump_readings r
		JOIN pumps p ON p.id = r.pump_id
		WHERE p.fuel_type = $1
		ORDER BY r.reading_date, r.id
	`, fuel)
	if err != nil {
		return nil, err
	}
	return scanReadings(rows)
}

func (s *Store) ListReadingsBetween(ctx context.Context, from domain.Date, to domain.Date) ([]domain.PumpReading, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+readingColumns+`
		FROM pump_readings r
		JOIN pumps p ON p.id = r.pump_id
		WHERE r.reading_date BETWEEN $1 AND $2
		ORDER BY r.reading_date, r.id
	`, from.Time, to.Time)
	if err != nil {
		return nil, err
	}
	return scanReadings(rows)
}

func scanReadingRows(rows *sql.Rows) ([]domain.ReadingRow, error) {
	defer rows.Close()

	result := make([]domain.ReadingRow, 0, 64)
	for rows.Next() {
		var row domain.ReadingRow
		var readingDate time.Time
		if err := rows.Scan(&row.ID, &row.PumpID, &readingDate, &row.Units, &row.RatePerUnit, &row.MeterReading, &row.FuelType, &row.PumpName); err != nil {
			return nil, err
		}
		row.ReadingDate = domain.NewDate(readingDate)
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanReadings(rows *sql.Rows) ([]domain.PumpReading, error) {
	joined, err := scanReadingRows(rows)
	if err != nil {
		return nil, err
	}
	readings := make([]domain.PumpReading, 0, len(joined))
	for _, row := range joined {
		readings = append(readings, row.PumpReading)
	}
	return readings, nil
}

func (s *Store) CreateBuyBatch(ctx context.Context, batch domain.BuyBatch) (*domain.BuyBatch, error) {
	if !batch.FuelType.Valid() || batch.Date.IsZero() {
		return nil, store.ErrValidation
	}

	pgTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	var previous float64
	err = pgTx.QueryRowContext(ctx, `
		SELECT total_units
		FROM buying_unit_rate
		WHERE fuel_type = $1
		ORDER BY id DESC
		LIMIT 1
		FOR UPDATE
	`, batch.FuelType).Scan(&previous)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	batch.TotalUnits = domain.AddUnits(previous, batch.Units)
	err = pgTx.QueryRowContext(ctx, `
		INSERT INTO buying_unit_rate (date, fuel_type, buying_rate_per_unit, units, total_units)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, batch.Date.Time, batch.FuelType, batch.BuyingRatePerUnit, batch.Units, batch.TotalUnits).Scan(&batch.ID)
	if err != nil {
		return nil, err
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	created := batch
	return &created, nil
}

func (s *Store) ListBuyBatches(ctx context.Context) ([]domain.BuyBatch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, fuel_type, buying_rate_per_unit, units, total_units
		FROM buying_unit_rate
		ORDER BY date DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	return scanBatches(rows)
}

func (s *Store) ListBuyBatchesByFuel(ctx context.Context, fuel domain.FuelType) ([]domain.BuyBatch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, fuel_type, buying_rate_per_unit, units, total_units
		FROM buying_unit_rate
		WHERE fuel_type = $1
		ORDER BY date, id
	`, fuel)
	if err != nil {
		return nil, err
	}
	return scanBatches(rows)
}

func (s *Store) LatestBuyBatch(ctx context.Context, fuel domain.FuelType) (*domain.BuyBatch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, fuel_type, buying_rate_per_unit, units, total_units
		FROM buying_unit_rate
		WHERE fuel_type = $1
		ORDER BY id DESC
		LIMIT 1
	`, fuel)
	if err != nil {
		return nil, err
	}
	batches, err := scanBatches(rows)
	if err != nil {
		return nil, err
	}
	if len(batches) == 0 {
		return nil, store.ErrNotFound
	}
	return &batches[0], nil
}

func scanBatches(rows *sql.Rows) ([]domain.BuyBatch, error) {
	defer rows.Close()

	batches := make([]domain.BuyBatch, 0, 32)
	for rows.Next() {
		var b domain.BuyBatch
		var date time.Time
		if err := rows.Scan(&b.ID, &date, &b.FuelType, &b.BuyingRatePerUnit, &b.Units, &b.TotalUnits); err != nil {
			return nil, err
		}
		b.Date = domain.NewDate(date)
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return batches, nil
}

func (s *Store) CreateTyreStock(ctx context.Context, stock domain.TyreStock) (*domain.TyreStock, error) {
	if stock.Tyre == "" || stock.AvailableStock < 0 {
		return nil, store.ErrValidation
	}
	stock.SoldUnits = 0
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO tyre_stock (tyre, buying_price, available_stock, sold_units)
		VALUES ($1, $2, $3, 0)
		RETURNING id
	`, stock.Tyre, stock.BuyingPrice, stock.AvailableStock).Scan(&stock.ID)
	if err != nil {
		return nil, err
	}
	created := stock
	return &created, nil
}

func (s *Store) ListTyreStock(ctx context.Context) ([]domain.TyreStock, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tyre, buying_price, available_stock, sold_units
		FROM tyre_stock
		ORDER BY tyre, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stock := make([]domain.TyreStock, 0, 32)
	for rows.Next() {
		var t domain.TyreStock
		if err := rows.Scan(&t.ID, &t.Tyre, &t.BuyingPrice, &t.AvailableStock, &t.SoldUnits); err != nil {
			return nil, err
		}
		stock = append(stock, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stock, nil
}

func (s *Store) SellTyre(ctx context.Context, id int64, units int) (*domain.TyreStock, error) {
	pgTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	var t domain.TyreStock
	err = pgTx.QueryRowContext(ctx, `
		SELECT id, tyre, buying_price, available_stock, sold_units
		FROM tyre_stock
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&t.ID, &t.Tyre, &t.BuyingPrice, &t.AvailableStock, &t.SoldUnits)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if units < 1 {
		return nil, store.ErrValidation
	}
	if units > t.AvailableStock {
		return nil, store.ErrInsufficientStock
	}

	t.AvailableStock -= units
	t.SoldUnits += units
	if _, err := pgTx.ExecContext(ctx, `
		UPDATE tyre_stock
		SET available_stock = $2, sold_units = $3
		WHERE id = $1
	`, t.ID, t.AvailableStock, t.SoldUnits); err != nil {
		return nil, err
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) CreatePerson(ctx context.Context, person domain.Person) (*domain.Person, error) {
	if person.Name == "" {
		return nil, store.ErrValidation
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO persons (name, address, phone)
		VALUES ($1, $2, $3)
		RETURNING id
	`, person.Name, person.Address, person.Phone).Scan(&person.ID)
	if err != nil {
		return nil, err
	}
	created := person
	return &created, nil
}

func (s *Store) GetPerson(ctx context.Context, id int64) (*domain.Person, error) {
	var p domain.Person
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, address, phone
		FROM persons
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Address, &p.Phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListPersons(ctx context.Context) ([]domain.Person, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, address, phone
		FROM persons
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	persons := make([]domain.Person, 0, 64)
	for rows.Next() {
		var p domain.Person
		if err := rows.Scan(&p.ID, &p.Name, &p.Address, &p.Phone); err != nil {
			return nil, err
		}
		persons = append(persons, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return persons, nil
}

func (s *Store) CreateLoan(ctx context.Context, loan domain.Loan) (*domain.Loan, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO loans (person_id, date, units, unit_rate, fuel_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, loan.PersonID, loan.Date.Time, loan.Units, loan.UnitRate, loan.FuelType).Scan(&loan.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("person %d: %w", loan.PersonID, store.ErrNotFound)
		}
		return nil, err
	}
	loan.PKR = domain.Amount(loan.Units, loan.UnitRate)
	created := loan
	return &created, nil
}

func (s *Store) ListLoans(ctx context.Context) ([]domain.Loan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, person_id, date, units, unit_rate, fuel_type
		FROM loans
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	return scanLoans(rows)
}

func (s *Store) ListLoansByPerson(ctx context.Context, personID int64) ([]domain.Loan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, person_id, date, units, unit_rate, fuel_type
		FROM loans
		WHERE person_id = $1
		ORDER BY date DESC, id DESC
	`, personID)
	if err != nil {
		return nil, err
	}
	return scanLoans(rows)
}

func scanLoans(rows *sql.Rows) ([]domain.Loan, error) {
	defer rows.Close()

	loans := make([]domain.Loan, 0, 32)
	for rows.Next() {
		var l domain.Loan
		var date time.Time
		if err := rows.Scan(&l.ID, &l.PersonID, &date, &l.Units, &l.UnitRate, &l.FuelType); err != nil {
			return nil, err
		}
		l.Date = domain.NewDate(date)
		l.PKR = domain.Amount(l.Units, l.UnitRate)
		loans = append(loans, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return loans, nil
}

func (s *Store) CreatePayment(ctx context.Context, payment domain.Payment) (*domain.Payment, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO payments (person_id, date, amount, note)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, payment.PersonID, payment.Date.Time, payment.Amount, payment.Note).Scan(&payment.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("person %d: %w", payment.PersonID, store.ErrNotFound)
		}
		return nil, err
	}
	created := payment
	return &created, nil
}

func (s *Store) ListPayments(ctx context.Context) ([]domain.Payment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, person_id, date, amount, note
		FROM payments
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	return scanPayments(rows)
}

func (s *Store) ListPaymentsByPerson(ctx context.Context, personID int64) ([]domain.Payment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, person_id, date, amount, note
		FROM payments
		WHERE person_id = $1
		ORDER BY date DESC, id DESC
	`, personID)
	if err != nil {
		return nil, err
	}
	return scanPayments(rows)
}

func scanPayments(rows *sql.Rows) ([]domain.Payment, error) {
	defer rows.Close()

	payments := make([]domain.Payment, 0, 32)
	for rows.Next() {
		var p domain.Payment
		var date time.Time
		if err := rows.Scan(&p.ID, &p.PersonID, &date, &p.Amount, &p.Note); err != nil {
			return nil, err
		}
		p.Date = domain.NewDate(date)
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrValidation
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, role, active, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, username string) (*domain.UserAccount, error) {
	var u domain.UserAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT username, password_hash, role, active, created_at
		FROM users
		WHERE username = $1
	`, username).Scan(&u.Username, &u.Password, &u.Role, &u.Active, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}
