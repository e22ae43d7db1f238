package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu             sync.Mutex
	requestCount   map[string]int64
	requestLatency map[string]time.Duration
	errorCount     map[string]int64
	ingest         IngestCounters
	ledger         LedgerCounters
}

// IngestCounters accumulate ingestion outcomes.
type IngestCounters struct {
	Batches              int64 `json:"batches"`
	RowsInserted         int64 `json:"rows_inserted"`
	DuplicatesSkipped    int64 `json:"duplicates_skipped"`
	IntraBatchDuplicates int64 `json:"intra_batch_duplicates"`
	InvalidRows          int64 `json:"invalid_rows"`
	Clears               int64 `json:"clears"`
}

// LedgerCounters accumulate ledger run outcomes.
type LedgerCounters struct {
	Runs         int64      `json:"runs"`
	Failures     int64      `json:"failures"`
	LastRunAt    *time.Time `json:"last_run_at,omitempty"`
	LastFailedAt *time.Time `json:"last_failed_at,omitempty"`
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Requests          map[string]int64  `json:"requests"`
	RequestLatencyAvg map[string]string `json:"request_latency_avg"`
	Errors            map[string]int64  `json:"errors"`
	Ingest            IngestCounters    `json:"ingest"`
	Ledger            LedgerCounters    `json:"ledger"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:   make(map[string]int64),
		requestLatency: make(map[string]time.Duration),
		errorCount:     make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.requestLatency[key] += duration
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordIngest adds one ingestion batch.
func (m *Metrics) RecordIngest(inserted, skipped, intraBatch, invalid int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ingest.Batches++
	m.ingest.RowsInserted += int64(inserted)
	m.ingest.DuplicatesSkipped += int64(skipped)
	m.ingest.IntraBatchDuplicates += int64(intraBatch)
	m.ingest.InvalidRows += int64(invalid)
}

// RecordClear counts an administrative bulk clear.
func (m *Metrics) RecordClear() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ingest.Clears++
}

// RecordLedgerRun counts a ledger run and its outcome.
func (m *Metrics) RecordLedgerRun(at time.Time, failed bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ledger.Runs++
	if failed {
		m.ledger.Failures++
		m.ledger.LastFailedAt = &at
		return
	}
	m.ledger.LastRunAt = &at
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		Requests:          make(map[string]int64, len(m.requestCount)),
		RequestLatencyAvg: make(map[string]string, len(m.requestLatency)),
		Errors:            make(map[string]int64, len(m.errorCount)),
		Ingest:            m.ingest,
		Ledger:            m.ledger,
	}
	for k, v := range m.requestCount {
		snap.Requests[k] = v
		if v > 0 {
			snap.RequestLatencyAvg[k] = (m.requestLatency[k] / time.Duration(v)).String()
		}
	}
	for k, v := range m.errorCount {
		snap.Errors[k] = v
	}
	return snap
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
