package httpapi

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"fuelstation/backend/internal/domain"
)

var rateMatchedHeader = []string{"date", "units", "revenue", "cost", "profit"}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func writeRateMatchedCSV(w io.Writer, report domain.RateMatchedReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(rateMatchedHeader); err != nil {
		return err
	}
	for _, d := range report.Details {
		if err := cw.Write([]string{
			d.Date.String(),
			strconv.FormatFloat(d.Units, 'f', -1, 64),
			formatAmount(d.Revenue),
			formatAmount(d.Cost),
			formatAmount(domain.RoundAmount(d.Revenue - d.Cost)),
		}); err != nil {
			return err
		}
	}
	if err := cw.Write([]string{
		"total",
		"",
		formatAmount(report.TotalRevenue),
		formatAmount(report.TotalCost),
		formatAmount(report.TotalProfit),
	}); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func writeRateMatchedXLSX(w io.Writer, report domain.RateMatchedReport) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := fmt.Sprintf("%s rate matched", report.FuelType)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	setRow := func(row int, values ...any) error {
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
		return nil
	}

	header := make([]any, len(rateMatchedHeader))
	for i, h := range rateMatchedHeader {
		header[i] = h
	}
	if err := setRow(1, header...); err != nil {
		return err
	}
	row := 2
	for _, d := range report.Details {
		if err := setRow(row, d.Date.String(), d.Units, d.Revenue, d.Cost, domain.RoundAmount(d.Revenue-d.Cost)); err != nil {
			return err
		}
		row++
	}
	if err := setRow(row, "total", "", report.TotalRevenue, report.TotalCost, report.TotalProfit); err != nil {
		return err
	}
	if report.UnmatchedUnits > 0 {
		if err := setRow(row+1, "unmatched units", report.UnmatchedUnits); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(sheet, "A", "A", 16); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "B", "E", 14); err != nil {
		return err
	}
	return f.Write(w)
}
