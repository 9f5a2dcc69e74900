package httpapi

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"fuelstation/backend/internal/domain"
)

func (a *API) handleRecordReadings(w http.ResponseWriter, r *http.Request) {
	var req domain.RecordReadingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := a.service.RecordReadings(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (a *API) handleListReadings(w http.ResponseWriter, r *http.Request) {
	rows, err := a.service.ListReadings(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": rows})
}

func (a *API) handleLatestMeters(w http.ResponseWriter, r *http.Request) {
	meters, err := a.service.LatestMeters(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": meters})
}

func (a *API) handleDailySales(w http.ResponseWriter, r *http.Request) {
	sales, err := a.service.DailySales(r.Context(), fuelParam(r))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": sales})
}

func (a *API) handleRevenueToday(w http.ResponseWriter, r *http.Request) {
	report, err := a.service.RevenueToday(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleCumulativeByRate(w http.ResponseWriter, r *http.Request) {
	report, err := a.service.CumulativeByRate(r.Context(), fuelParam(r))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleRateMatched(w http.ResponseWriter, r *http.Request) {
	report, err := a.service.RateMatchedReport(r.Context(), fuelParam(r))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	switch format {
	case "", "json":
		writeJSON(w, http.StatusOK, report)
	case "csv":
		var buf bytes.Buffer
		if err := writeRateMatchedCSV(&buf, report); err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeAttachment(w, "text/csv; charset=utf-8", exportName(report, "csv"), buf.Bytes())
	case "xlsx":
		var buf bytes.Buffer
		if err := writeRateMatchedXLSX(&buf, report); err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeAttachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", exportName(report, "xlsx"), buf.Bytes())
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unsupported format %q", format))
	}
}

func (a *API) handleRateIntervals(w http.ResponseWriter, r *http.Request) {
	intervals, err := a.service.RateIntervals(r.Context(), fuelParam(r))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": intervals})
}

func (a *API) handleMeterAnomalies(w http.ResponseWriter, r *http.Request) {
	days := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("days")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("days must be a whole number"))
			return
		}
		days = parsed
	}

	report, err := a.service.MeterAnomalies(r.Context(), days)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleRecordBuyBatch(w http.ResponseWriter, r *http.Request) {
	var req domain.BuyBatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	batch, err := a.service.RecordBuyBatch(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, batch)
}

func (a *API) handleListBuyBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := a.service.ListBuyBatches(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": batches})
}

func (a *API) handleFuelStock(w http.ResponseWriter, r *http.Request) {
	stock, err := a.service.FuelStock(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stock)
}

func (a *API) handleTyrePurchase(w http.ResponseWriter, r *http.Request) {
	var req domain.TyrePurchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	row, err := a.service.PurchaseTyres(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (a *API) handleTyreSale(w http.ResponseWriter, r *http.Request) {
	var req domain.TyreSaleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	row, err := a.service.SellTyres(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (a *API) handleListTyres(w http.ResponseWriter, r *http.Request) {
	rows, err := a.service.ListTyreStock(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": rows})
}

func (a *API) handleCreatePerson(w http.ResponseWriter, r *http.Request) {
	var req domain.PersonCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	person, err := a.service.CreatePerson(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, person)
}

func (a *API) handleAddLoan(w http.ResponseWriter, r *http.Request) {
	var req domain.LoanCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	loan, err := a.service.AddLoan(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

func (a *API) handleAddPayment(w http.ResponseWriter, r *http.Request) {
	var req domain.PaymentCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	payment, err := a.service.AddPayment(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

func (a *API) handleListPeople(w http.ResponseWriter, r *http.Request) {
	people, err := a.service.ListPeopleWithTotals(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": people})
}

func (a *API) handlePersonDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, errors.New("person id must be a positive number"))
		return
	}

	detail, err := a.service.PersonDetail(r.Context(), id)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (a *API) handleListPumps(w http.ResponseWriter, r *http.Request) {
	pumps, err := a.service.ListPumps(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": pumps})
}

func (a *API) handleCreatePump(w http.ResponseWriter, r *http.Request) {
	var req domain.PumpCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	pump, err := a.service.CreatePump(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pump)
}

func fuelParam(r *http.Request) domain.FuelType {
	return domain.FuelType(chi.URLParam(r, "fuel"))
}

func exportName(report domain.RateMatchedReport, ext string) string {
	return fmt.Sprintf("rate-matched-%s.%s", report.FuelType, ext)
}

func writeAttachment(w http.ResponseWriter, contentType string, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
