package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsSnapshot(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.RecordRequest("/api/v1/ingest", "POST", 200, 10*time.Millisecond)
	m.RecordRequest("/api/v1/ingest", "POST", 200, 30*time.Millisecond)
	m.RecordError("/api/v1/ledger/run", "POST", "CONCURRENT_RUN")
	m.RecordIngest(3, 2, 1, 4)
	m.RecordClear()
	at := time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC)
	m.RecordLedgerRun(at, false)
	m.RecordLedgerRun(at, true)

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Requests["/api/v1/ingest|POST|200"])
	assert.Equal(t, "20ms", snap.RequestLatencyAvg["/api/v1/ingest|POST|200"])
	assert.Equal(t, int64(1), snap.Errors["/api/v1/ledger/run|POST|CONCURRENT_RUN"])
	assert.Equal(t, IngestCounters{Batches: 1, RowsInserted: 3, DuplicatesSkipped: 2, IntraBatchDuplicates: 1, InvalidRows: 4, Clears: 1}, snap.Ingest)
	assert.Equal(t, int64(2), snap.Ledger.Runs)
	assert.Equal(t, int64(1), snap.Ledger.Failures)
}

func TestNilMetricsIsSafe(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordIngest(1, 0, 0, 0)
	assert.Equal(t, Snapshot{}, m.Snapshot())
}
