// Package monitor tracks component latency and throughput, feeding the
// Hub's realtime:metrics key real content instead of a stub (SPEC_FULL.md
// §9A). Generalized from the donor's SystemMetrics/LatencyHistogram.
package monitor

import (
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// SystemMetrics tracks latency and throughput across the engine's stages:
// aggregator fusion, risk evaluation, and execution submit-to-fill.
type SystemMetrics struct {
	mu sync.RWMutex

	AggregatorLatency *LatencyHistogram
	RiskLatency       *LatencyHistogram
	ExecutionLatency  *LatencyHistogram
	APILatency        *LatencyHistogram

	ticksProcessed   uint64
	signalsGenerated uint64
	decisionsMade    uint64
	apiRequests      uint64
	apiErrors        uint64

	cycleNumber int64
	lastUpdate  time.Time
}

// LatencyHistogram tracks latency samples with a sliding window and lazily
// recomputed percentile stats.
type LatencyHistogram struct {
	mu          sync.Mutex
	samples     []float64
	maxSize     int
	dirty       bool
	cachedStats LatencyStats
}

func NewSystemMetrics() *SystemMetrics {
	return &SystemMetrics{
		AggregatorLatency: NewLatencyHistogram(1000),
		RiskLatency:       NewLatencyHistogram(1000),
		ExecutionLatency:  NewLatencyHistogram(1000),
		APILatency:        NewLatencyHistogram(1000),
		lastUpdate:        time.Now(),
	}
}

func NewLatencyHistogram(size int) *LatencyHistogram {
	if size <= 0 {
		size = 1000
	}
	return &LatencyHistogram{samples: make([]float64, 0, size), maxSize: size, dirty: true}
}

// Record adds a latency sample in milliseconds.
func (h *LatencyHistogram) Record(latencyMs float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.samples) >= h.maxSize {
		h.samples = h.samples[1:]
	}
	h.samples = append(h.samples, latencyMs)
	h.dirty = true
}

func (h *LatencyHistogram) RecordDuration(d time.Duration) {
	h.Record(float64(d.Nanoseconds()) / 1e6)
}

// Stats returns min, max, avg, p50, p95, p99, recomputing only when dirty.
func (h *LatencyHistogram) Stats() LatencyStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.dirty && h.cachedStats.Count > 0 {
		return h.cachedStats
	}

	n := len(h.samples)
	if n == 0 {
		return LatencyStats{}
	}

	sorted := make([]float64, n)
	copy(sorted, h.samples)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}

	h.cachedStats = LatencyStats{
		Min:   sorted[0],
		Max:   sorted[n-1],
		Avg:   sum / float64(n),
		P50:   sorted[n/2],
		P95:   sorted[int(float64(n)*0.95)],
		P99:   sorted[int(float64(n)*0.99)],
		Count: n,
	}
	h.dirty = false
	return h.cachedStats
}

type LatencyStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Count int     `json:"count"`
}

func (m *SystemMetrics) IncrementTicks()            { atomic.AddUint64(&m.ticksProcessed, 1) }
func (m *SystemMetrics) IncrementSignals()          { atomic.AddUint64(&m.signalsGenerated, 1) }
func (m *SystemMetrics) IncrementDecisions()        { atomic.AddUint64(&m.decisionsMade, 1) }
func (m *SystemMetrics) IncrementAPI()              { atomic.AddUint64(&m.apiRequests, 1) }
func (m *SystemMetrics) IncrementAPIErrors()         { atomic.AddUint64(&m.apiErrors, 1) }

// NextCycle advances the cycle counter and returns the new value, used to
// tag each aggregator tick cycle in realtime:metrics.
func (m *SystemMetrics) NextCycle() int64 {
	return atomic.AddInt64(&m.cycleNumber, 1)
}

// MetricsSnapshot is a point-in-time view of the whole engine's metrics.
type MetricsSnapshot struct {
	AggregatorLatency LatencyStats `json:"aggregator_latency"`
	RiskLatency       LatencyStats `json:"risk_latency"`
	ExecutionLatency  LatencyStats `json:"execution_latency"`
	APILatency        LatencyStats `json:"api_latency"`
	TicksProcessed    uint64       `json:"ticks_processed"`
	SignalsGenerated  uint64       `json:"signals_generated"`
	DecisionsMade     uint64       `json:"decisions_made"`
	APIRequests       uint64       `json:"api_requests"`
	APIErrors         uint64       `json:"api_errors"`
	CycleNumber       int64        `json:"cycle_number"`
	GoroutineCount    int          `json:"goroutine_count"`
	HeapAllocBytes    uint64       `json:"heap_alloc_bytes"`
	HeapSysBytes      uint64       `json:"heap_sys_bytes"`
	Timestamp         time.Time    `json:"timestamp"`
}

func (m *SystemMetrics) GetSnapshot() MetricsSnapshot {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return MetricsSnapshot{
		AggregatorLatency: m.AggregatorLatency.Stats(),
		RiskLatency:       m.RiskLatency.Stats(),
		ExecutionLatency:  m.ExecutionLatency.Stats(),
		APILatency:        m.APILatency.Stats(),
		TicksProcessed:    atomic.LoadUint64(&m.ticksProcessed),
		SignalsGenerated:  atomic.LoadUint64(&m.signalsGenerated),
		DecisionsMade:     atomic.LoadUint64(&m.decisionsMade),
		APIRequests:       atomic.LoadUint64(&m.apiRequests),
		APIErrors:         atomic.LoadUint64(&m.apiErrors),
		CycleNumber:       atomic.LoadInt64(&m.cycleNumber),
		GoroutineCount:    runtime.NumGoroutine(),
		HeapAllocBytes:    mem.HeapAlloc,
		HeapSysBytes:      mem.HeapSys,
		Timestamp:         time.Now(),
	}
}

// Timer measures elapsed time and records it to a histogram on Stop.
type Timer struct {
	start     time.Time
	histogram *LatencyHistogram
}

func NewTimer(h *LatencyHistogram) *Timer {
	return &Timer{start: time.Now(), histogram: h}
}

func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	if t.histogram != nil {
		t.histogram.RecordDuration(elapsed)
	}
	return elapsed
}
