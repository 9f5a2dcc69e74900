// Package metrics exposes the server's Prometheus collectors. A nil
// *Recorder is valid and records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Recorder struct {
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	litresSold     *prometheus.CounterVec
	buyBatches     *prometheus.CounterVec
	readingBatches *prometheus.CounterVec
}

const (
	ReadingOutcomeRecorded  = "recorded"
	ReadingOutcomeRejected  = "rejected"
	ReadingOutcomeDuplicate = "duplicate"
)

// New registers the collectors on registerer, or on the default registerer
// when nil.
func New(registerer prometheus.Registerer) *Recorder {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fuelstation_http_requests_total",
		Help: "HTTP requests by route pattern, method and status code.",
	}, []string{"route", "method", "status"})
	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fuelstation_http_request_duration_seconds",
		Help:    "HTTP request latency by route pattern.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"route", "method"})
	litresSold := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fuelstation_litres_sold_total",
		Help: "Units sold according to recorded meter readings.",
	}, []string{"fuel_type"})
	buyBatches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fuelstation_buy_batches_total",
		Help: "Fuel purchase batches recorded.",
	}, []string{"fuel_type"})
	readingBatches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fuelstation_reading_batches_total",
		Help: "Meter reading submissions by outcome.",
	}, []string{"outcome"})

	registerer.MustRegister(httpRequests, httpDuration, litresSold, buyBatches, readingBatches)

	return &Recorder{
		httpRequests:   httpRequests,
		httpDuration:   httpDuration,
		litresSold:     litresSold,
		buyBatches:     buyBatches,
		readingBatches: readingBatches,
	}
}

func (r *Recorder) ObserveHTTP(route string, method string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	r.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

func (r *Recorder) AddLitresSold(fuelType string, units float64) {
	if r == nil || units <= 0 {
		return
	}
	r.litresSold.WithLabelValues(fuelType).Add(units)
}

func (r *Recorder) IncBuyBatch(fuelType string) {
	if r == nil {
		return
	}
	r.buyBatches.WithLabelValues(fuelType).Inc()
}

func (r *Recorder) IncReadingBatch(outcome string) {
	if r == nil {
		return
	}
	r.readingBatches.WithLabelValues(outcome).Inc()
}
