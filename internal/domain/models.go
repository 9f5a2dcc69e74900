package domain

import "time"

type Pump struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	FuelType FuelType `json:"fuel_type"`
}

type PumpCreateRequest struct {
	Name     string   `json:"name"`
	FuelType FuelType `json:"fuel_type"`
}

type PumpReading struct {
	ID           int64    `json:"id"`
	PumpID       int64    `json:"pump_id"`
	ReadingDate  Date     `json:"reading_date"`
	Units        float64  `json:"units"`
	RatePerUnit  float64  `json:"rate_per_unit"`
	MeterReading float64  `json:"meter_reading"`
	FuelType     FuelType `json:"fuel_type,omitempty"`
}

// ReadingRow is a reading joined with its pump for listings.
type ReadingRow struct {
	PumpReading
	PumpName string `json:"pump_name"`
}

type ReadingEntry struct {
	PumpID        int64   `json:"pump_id"`
	PreviousMeter float64 `json:"previous_meter"`
	CurrentMeter  float64 `json:"current_meter"`
	UnitRate      float64 `json:"unit_rate"`
}

type RecordReadingsRequest struct {
	Readings []ReadingEntry `json:"readings"`
}

// ReadingInsert is a validated entry ready to persist.
type ReadingInsert struct {
	PumpID       int64
	Units        float64
	RatePerUnit  float64
	MeterReading float64
}

type RecordedUnits struct {
	PumpID int64   `json:"pump_id"`
	Units  float64 `json:"units"`
}

type RecordReadingsResult struct {
	Inserted int             `json:"inserted"`
	Date     Date            `json:"reading_date"`
	Entries  []RecordedUnits `json:"entries"`
}

// StockDepletion reports the stock decrement applied to the latest buy
// batch of a fuel type. Applied is false when no batch exists.
type StockDepletion struct {
	FuelType  FuelType `json:"fuel_type"`
	BatchID   int64    `json:"batch_id,omitempty"`
	UnitsSold float64  `json:"units_sold"`
	Applied   bool     `json:"applied"`
}

type LatestMeter struct {
	PumpID        int64    `json:"pump_id"`
	Name          string   `json:"name"`
	FuelType      FuelType `json:"fuel_type"`
	PreviousMeter float64  `json:"previous_meter"`
	UnitRate      float64  `json:"unit_rate"`
	HasReading    bool     `json:"has_reading"`
}

type BuyBatch struct {
	ID                int64    `json:"id"`
	Date              Date     `json:"date"`
	FuelType          FuelType `json:"fuel_type"`
	BuyingRatePerUnit float64  `json:"buying_rate_per_unit"`
	Units             float64  `json:"units"`
	TotalUnits        float64  `json:"total_units"`
}

type BuyBatchRequest struct {
	Date              Date     `json:"date"`
	FuelType          FuelType `json:"fuel_type"`
	BuyingRatePerUnit float64  `json:"buying_rate_per_unit"`
	Units             float64  `json:"units"`
}

type FuelStock struct {
	Petrol float64 `json:"petrol"`
	Diesel float64 `json:"diesel"`
}

type TyreStock struct {
	ID             int64   `json:"id"`
	Tyre           string  `json:"tyre"`
	BuyingPrice    float64 `json:"buying_price"`
	AvailableStock int     `json:"available_stock"`
	SoldUnits      int     `json:"sold_units"`
}

type TyrePurchaseRequest struct {
	Tyre        string  `json:"tyre"`
	BuyingPrice float64 `json:"buying_price"`
	Units       int     `json:"units"`
}

type TyreSaleRequest struct {
	ID        int64 `json:"id"`
	UnitsSold int   `json:"units_sold"`
}

type Person struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

type PersonCreateRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

type Loan struct {
	ID       int64    `json:"id"`
	PersonID int64    `json:"person_id"`
	Date     Date     `json:"date"`
	Units    float64  `json:"units"`
	UnitRate float64  `json:"unit_rate"`
	FuelType FuelType `json:"fuel_type"`
	PKR      float64  `json:"pkr"`
}

type LoanCreateRequest struct {
	PersonID int64    `json:"person_id"`
	Date     Date     `json:"date"`
	Units    float64  `json:"units"`
	UnitRate float64  `json:"unit_rate"`
	FuelType FuelType `json:"fuel_type"`
}

type Payment struct {
	ID       int64   `json:"id"`
	PersonID int64   `json:"person_id"`
	Date     Date    `json:"date"`
	Amount   float64 `json:"amount"`
	Note     string  `json:"note,omitempty"`
}

type PaymentCreateRequest struct {
	PersonID int64   `json:"person_id"`
	Date     Date    `json:"date"`
	Amount   float64 `json:"amount"`
	Note     string  `json:"note"`
}

// PersonSummary carries the loan total twice: total_pkr is the name the
// desktop client reads, total_outstanding the one the API contract uses.
type PersonSummary struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	Address          string  `json:"address"`
	Phone            string  `json:"phone"`
	TotalPKR         float64 `json:"total_pkr"`
	TotalOutstanding float64 `json:"total_outstanding"`
	TotalPaid        float64 `json:"total_paid"`
	NetBalance       float64 `json:"net_balance"`
}

type PersonTotals struct {
	Loan float64 `json:"loan"`
	Paid float64 `json:"paid"`
	Net  float64 `json:"net"`
}

type PersonDetail struct {
	Person   Person       `json:"person"`
	Loans    []Loan       `json:"loans"`
	Payments []Payment    `json:"payments"`
	Totals   PersonTotals `json:"totals"`
}

type PumpRevenue struct {
	PumpID        int64    `json:"pump_id"`
	FuelType      FuelType `json:"fuel_type"`
	MeterReading  float64  `json:"meter_reading"`
	PreviousMeter float64  `json:"previous_meter"`
	Fallback      bool     `json:"fallback"`
	Units         float64  `json:"units"`
	RatePerUnit   float64  `json:"rate_per_unit"`
	Revenue       float64  `json:"revenue"`
}

type RevenueToday struct {
	Date   Date          `json:"date"`
	Petrol float64       `json:"petrol"`
	Diesel float64       `json:"diesel"`
	Total  float64       `json:"total"`
	Pumps  []PumpRevenue `json:"pumps"`
}

type RateBucket struct {
	RatePerUnit float64 `json:"rate_per_unit"`
	Units       float64 `json:"units"`
	Revenue     float64 `json:"revenue"`
}

type CumulativeByRate struct {
	FuelType     FuelType     `json:"fuel_type"`
	Buckets      []RateBucket `json:"buckets"`
	TotalUnits   float64      `json:"total_units"`
	TotalRevenue float64      `json:"total_revenue"`
}

type RateMatchedDay struct {
	Date    Date    `json:"date"`
	Units   float64 `json:"units"`
	Revenue float64 `json:"revenue"`
	Cost    float64 `json:"cost"`
}

type RateMatchedReport struct {
	FuelType       FuelType         `json:"fuel_type"`
	TotalRevenue   float64          `json:"total_revenue"`
	TotalCost      float64          `json:"total_cost"`
	TotalProfit    float64          `json:"total_profit"`
	UnmatchedUnits float64          `json:"unmatched_units"`
	Details        []RateMatchedDay `json:"details"`
}

type DailySales struct {
	Date        Date     `json:"date"`
	FuelType    FuelType `json:"fuel_type"`
	Units       float64  `json:"units"`
	RatePerUnit float64  `json:"rate_per_unit"`
}

// MeterAnomaly is a reading whose meter went backwards compared to the
// pump's previous stored reading.
type MeterAnomaly struct {
	ReadingID     int64    `json:"reading_id"`
	PumpID        int64    `json:"pump_id"`
	FuelType      FuelType `json:"fuel_type"`
	ReadingDate   Date     `json:"reading_date"`
	MeterReading  float64  `json:"meter_reading"`
	PreviousMeter float64  `json:"previous_meter"`
	LostUnits     float64  `json:"lost_units"`
	LossAmount    float64  `json:"loss_amount"`
}

type MeterAnomalyReport struct {
	From      Date           `json:"from"`
	To        Date           `json:"to"`
	TotalLoss float64        `json:"total_loss"`
	Anomalies []MeterAnomaly `json:"anomalies"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type UserView struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type UserCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

const (
	RoleManager   = "manager"
	RoleAttendant = "attendant"
)
