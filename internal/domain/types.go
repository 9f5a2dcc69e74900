package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type FuelType string

const (
	FuelPetrol FuelType = "petrol"
	FuelDiesel FuelType = "diesel"
)

// FuelTypes returns the supported fuel types in report order.
func FuelTypes() []FuelType {
	return []FuelType{FuelPetrol, FuelDiesel}
}

func ParseFuelType(raw string) (FuelType, bool) {
	fuel := FuelType(strings.ToLower(strings.TrimSpace(raw)))
	return fuel, fuel.Valid()
}

func (f FuelType) Valid() bool {
	return f == FuelPetrol || f == FuelDiesel
}

const DateLayout = "2006-01-02"

// Date is a calendar day. The wrapped time is always midnight UTC so two
// dates compare equal iff they name the same day.
type Date struct {
	time.Time
}

func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(raw string) (Date, error) {
	parsed, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", raw, err)
	}
	return NewDate(parsed), nil
}

func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

func (d Date) Equal(other Date) bool {
	return d.Time.Equal(other.Time)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if strings.TrimSpace(raw) == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Amount is units × rate rounded half away from zero to 2 decimals.
func Amount(units float64, rate float64) float64 {
	return AmountDecimal(units, rate).InexactFloat64()
}

func AmountDecimal(units float64, rate float64) decimal.Decimal {
	return decimal.NewFromFloat(units).Mul(decimal.NewFromFloat(rate)).Round(2)
}

func RoundAmount(value float64) float64 {
	return decimal.NewFromFloat(value).Round(2).InexactFloat64()
}

// SubtractUnits avoids float drift on running totals such as 7.1 - 4.3.
func SubtractUnits(total float64, sold float64) float64 {
	return decimal.NewFromFloat(total).Sub(decimal.NewFromFloat(sold)).InexactFloat64()
}

func AddUnits(a float64, b float64) float64 {
	return decimal.NewFromFloat(a).Add(decimal.NewFromFloat(b)).InexactFloat64()
}
