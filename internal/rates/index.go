// Package rates resolves which buying rate applies to a sale date.
//
// Each buy batch of a fuel type opens a validity interval that lasts until
// the next batch's date. Batches sharing a date leave the earlier ones with
// an empty interval, so the highest id on a date wins.
package rates

import (
	"cmp"
	"slices"
	"sort"

	"fuelstation/backend/internal/domain"
)

type Interval struct {
	Batch domain.BuyBatch `json:"batch"`
	Start domain.Date     `json:"start"`
	// End is exclusive. Zero for the open-ended last interval.
	End domain.Date `json:"end"`
}

func (iv Interval) Open() bool {
	return iv.End.IsZero()
}

func (iv Interval) Contains(day domain.Date) bool {
	if day.Before(iv.Start) {
		return false
	}
	return iv.Open() || day.Before(iv.End)
}

// Index is immutable once built and safe for concurrent reads.
type Index struct {
	fuel    domain.FuelType
	batches []domain.BuyBatch
}

// NewIndex keeps only batches of the given fuel type.
func NewIndex(fuel domain.FuelType, batches []domain.BuyBatch) *Index {
	sorted := make([]domain.BuyBatch, 0, len(batches))
	for _, b := range batches {
		if b.FuelType == fuel {
			sorted = append(sorted, b)
		}
	}
	slices.SortFunc(sorted, func(a, b domain.BuyBatch) int {
		if c := a.Date.Compare(b.Date.Time); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return &Index{fuel: fuel, batches: sorted}
}

func (x *Index) FuelType() domain.FuelType {
	return x.fuel
}

func (x *Index) Len() int {
	return len(x.batches)
}

// Lookup returns the batch in effect on day. The bool is false when day
// falls before the first batch.
func (x *Index) Lookup(day domain.Date) (domain.BuyBatch, bool) {
	// first batch dated strictly after day
	i := sort.Search(len(x.batches), func(i int) bool {
		return x.batches[i].Date.After(day)
	})
	if i == 0 {
		return domain.BuyBatch{}, false
	}
	return x.batches[i-1], true
}

func (x *Index) Intervals() []Interval {
	intervals := make([]Interval, len(x.batches))
	for i, b := range x.batches {
		intervals[i] = Interval{Batch: b, Start: b.Date}
		if i+1 < len(x.batches) {
			intervals[i].End = x.batches[i+1].Date
		}
	}
	return intervals
}
