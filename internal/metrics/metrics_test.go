package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorderCounts(t *testing.T) {
	rec := New(prometheus.NewRegistry())

	rec.AddLitresSold("petrol", 4.5)
	rec.AddLitresSold("petrol", 0)
	rec.AddLitresSold("petrol", 1.5)
	rec.IncBuyBatch("diesel")
	rec.IncReadingBatch(ReadingOutcomeDuplicate)
	rec.ObserveHTTP("/api/v1/readings", "POST", 201, 15*time.Millisecond)

	assert.Equal(t, 6.0, testutil.ToFloat64(rec.litresSold.WithLabelValues("petrol")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.buyBatches.WithLabelValues("diesel")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.readingBatches.WithLabelValues(ReadingOutcomeDuplicate)))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.httpRequests.WithLabelValues("/api/v1/readings", "POST", "201")))
}

func TestNilRecorderIsSafe(t *testing.T) {
	var rec *Recorder
	assert.NotPanics(t, func() {
		rec.AddLitresSold("petrol", 1)
		rec.IncBuyBatch("petrol")
		rec.IncReadingBatch(ReadingOutcomeRecorded)
		rec.ObserveHTTP("", "GET", 200, time.Millisecond)
	})
}
