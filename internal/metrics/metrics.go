package metrics

import (
	"runtime"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Metrics holds all linkview metrics for Prometheus export
type Metrics struct {
	startTime time.Time

	// HTTP request metrics
	httpRequestsTotal   atomic.Int64
	httpRequestsSuccess atomic.Int64
	httpRequestsError   atomic.Int64

	// HTTP latency histogram buckets (microseconds)
	// Buckets: 1ms, 5ms, 10ms, 25ms, 50ms, 100ms, 250ms, 500ms, 1s, +Inf
	httpLatencyBuckets [10]atomic.Int64
	httpLatencySum     atomic.Int64
	httpLatencyCount   atomic.Int64

	// Interaction events by kind (brush2d, brush_axis, click, ...)
	eventsMu     sync.RWMutex
	eventsByKind map[string]*atomic.Int64
	eventErrors  atomic.Int64

	// Selection metrics
	selectionUpdates  atomic.Int64
	selectionSize     atomic.Int64
	invalidPayloads   atomic.Int64
	droppedPayloadIDs atomic.Int64
	recomputeSum      atomic.Int64 // microseconds
	recomputeCount    atomic.Int64

	// Sessions
	sessionsActive  atomic.Int64
	sessionsCreated atomic.Int64
	sessionsExpired atomic.Int64

	// Selection stream
	streamClients atomic.Int64
	streamSent    atomic.Int64
	streamDropped atomic.Int64

	// Dataset
	datasetRows           atomic.Int64
	datasetMalformedCells atomic.Int64
	datasetMalformedRows  atomic.Int64
	datasetSkippedRows    atomic.Int64
	datasetLoadMicros     atomic.Int64
	datasetLoadErrors     atomic.Int64

	logger zerolog.Logger
}

var (
	instance *Metrics
	once     sync.Once
)

// Get returns the singleton metrics instance
func Get() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			startTime:    time.Now(),
			eventsByKind: make(map[string]*atomic.Int64),
		}
	})
	return instance
}

// Init initializes the metrics with a logger
func Init(logger zerolog.Logger) *Metrics {
	m := Get()
	m.logger = logger.With().Str("component", "metrics").Logger()
	m.logger.Info().Msg("Metrics collector initialized")
	return m
}

// HTTP Metrics
func (m *Metrics) IncHTTPRequests() { m.httpRequestsTotal.Add(1) }
func (m *Metrics) IncHTTPSuccess()  { m.httpRequestsSuccess.Add(1) }
func (m *Metrics) IncHTTPError()    { m.httpRequestsError.Add(1) }

// RecordHTTPLatency records HTTP request latency in microseconds
func (m *Metrics) RecordHTTPLatency(durationMicros int64) {
	m.httpLatencySum.Add(durationMicros)
	m.httpLatencyCount.Add(1)
	m.httpLatencyBuckets[latencyBucket(durationMicros)].Add(1)
}

func latencyBucket(micros int64) int {
	switch {
	case micros <= 1000:
		return 0
	case micros <= 5000:
		return 1
	case micros <= 10000:
		return 2
	case micros <= 25000:
		return 3
	case micros <= 50000:
		return 4
	case micros <= 100000:
		return 5
	case micros <= 250000:
		return 6
	case micros <= 500000:
		return 7
	case micros <= 1000000:
		return 8
	default:
		return 9
	}
}

// IncEvent counts one applied interaction event of the given kind
func (m *Metrics) IncEvent(kind string) {
	m.eventsMu.RLock()
	c, ok := m.eventsByKind[kind]
	m.eventsMu.RUnlock()
	if !ok {
		m.eventsMu.Lock()
		if c, ok = m.eventsByKind[kind]; !ok {
			c = new(atomic.Int64)
			m.eventsByKind[kind] = c
		}
		m.eventsMu.Unlock()
	}
	c.Add(1)
}

func (m *Metrics) IncEventErrors() { m.eventErrors.Add(1) }

// eventCounts returns a copy of the per-kind event counters, sorted by kind
func (m *Metrics) eventCounts() ([]string, map[string]int64) {
	m.eventsMu.RLock()
	defer m.eventsMu.RUnlock()
	kinds := make([]string, 0, len(m.eventsByKind))
	counts := make(map[string]int64, len(m.eventsByKind))
	for k, c := range m.eventsByKind {
		kinds = append(kinds, k)
		counts[k] = c.Load()
	}
	sort.Strings(kinds)
	return kinds, counts
}

// RecordSelection records one republished selection and its size
func (m *Metrics) RecordSelection(size int) {
	m.selectionUpdates.Add(1)
	m.selectionSize.Store(int64(size))
}

// RecordRecompute records the time spent resolving a selection in microseconds
func (m *Metrics) RecordRecompute(durationMicros int64) {
	m.recomputeSum.Add(durationMicros)
	m.recomputeCount.Add(1)
}

// Payload Metrics
func (m *Metrics) IncInvalidPayloads()              { m.invalidPayloads.Add(1) }
func (m *Metrics) IncDroppedPayloadIDs(count int64) { m.droppedPayloadIDs.Add(count) }

// Session Metrics
func (m *Metrics) SetSessionsActive(count int64) { m.sessionsActive.Store(count) }
func (m *Metrics) IncSessionsCreated()           { m.sessionsCreated.Add(1) }
func (m *Metrics) IncSessionsExpired()           { m.sessionsExpired.Add(1) }

// Stream Metrics
func (m *Metrics) IncStreamClients() { m.streamClients.Add(1) }
func (m *Metrics) DecStreamClients() { m.streamClients.Add(-1) }
func (m *Metrics) IncStreamSent()    { m.streamSent.Add(1) }
func (m *Metrics) IncStreamDropped() { m.streamDropped.Add(1) }

// RecordDatasetLoad records the outcome of a successful dataset load
func (m *Metrics) RecordDatasetLoad(rows, malformedRows, malformedCells, skippedRows int, d time.Duration) {
	m.datasetRows.Store(int64(rows))
	m.datasetMalformedRows.Store(int64(malformedRows))
	m.datasetMalformedCells.Store(int64(malformedCells))
	m.datasetSkippedRows.Store(int64(skippedRows))
	m.datasetLoadMicros.Store(d.Microseconds())
}

func (m *Metrics) IncDatasetLoadErrors() { m.datasetLoadErrors.Add(1) }

// Snapshot returns all metrics as a map (for JSON endpoint)
func (m *Metrics) Snapshot() map[string]interface{} {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	_, events := m.eventCounts()

	return map[string]interface{}{
		// Process info
		"uptime_seconds": time.Since(m.startTime).Seconds(),
		"goroutines":     runtime.NumGoroutine(),
		"go_version":     runtime.Version(),
		"num_cpu":        runtime.NumCPU(),

		// Memory (Go runtime)
		"memory_alloc_bytes":      memStats.Alloc,
		"memory_heap_alloc_bytes": memStats.HeapAlloc,
		"memory_sys_bytes":        memStats.Sys,
		"gc_cycles":               memStats.NumGC,

		// HTTP
		"http_requests_total":   m.httpRequestsTotal.Load(),
		"http_requests_success": m.httpRequestsSuccess.Load(),
		"http_requests_error":   m.httpRequestsError.Load(),
		"http_latency_sum_us":   m.httpLatencySum.Load(),
		"http_latency_count":    m.httpLatencyCount.Load(),

		// Interaction
		"events_total":          events,
		"event_errors_total":    m.eventErrors.Load(),
		"selection_updates":     m.selectionUpdates.Load(),
		"selection_size":        m.selectionSize.Load(),
		"recompute_sum_us":      m.recomputeSum.Load(),
		"recompute_count":       m.recomputeCount.Load(),
		"invalid_payloads":      m.invalidPayloads.Load(),
		"dropped_payload_ids":   m.droppedPayloadIDs.Load(),

		// Sessions
		"sessions_active":  m.sessionsActive.Load(),
		"sessions_created": m.sessionsCreated.Load(),
		"sessions_expired": m.sessionsExpired.Load(),

		// Stream
		"stream_clients": m.streamClients.Load(),
		"stream_sent":    m.streamSent.Load(),
		"stream_dropped": m.streamDropped.Load(),

		// Dataset
		"dataset_rows":            m.datasetRows.Load(),
		"dataset_malformed_rows":  m.datasetMalformedRows.Load(),
		"dataset_malformed_cells": m.datasetMalformedCells.Load(),
		"dataset_skipped_rows":    m.datasetSkippedRows.Load(),
		"dataset_load_us":         m.datasetLoadMicros.Load(),
		"dataset_load_errors":     m.datasetLoadErrors.Load(),
	}
}

// PrometheusFormat returns metrics in Prometheus text exposition format
func (m *Metrics) PrometheusFormat() string {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	var b []byte
	b = appendHeader(b, "linkview_uptime_seconds", "Time since linkview started", "gauge")
	b = appendMetric(b, "linkview_uptime_seconds", time.Since(m.startTime).Seconds())

	b = appendHeader(b, "linkview_goroutines", "Number of goroutines", "gauge")
	b = appendMetric(b, "linkview_goroutines", float64(runtime.NumGoroutine()))

	b = appendHeader(b, "linkview_memory_heap_alloc_bytes", "Heap memory allocated", "gauge")
	b = appendMetric(b, "linkview_memory_heap_alloc_bytes", float64(memStats.HeapAlloc))

	// HTTP metrics
	b = appendHeader(b, "linkview_http_requests_total", "Total HTTP requests", "counter")
	b = appendMetric(b, "linkview_http_requests_total", float64(m.httpRequestsTotal.Load()))

	b = appendHeader(b, "linkview_http_requests_success_total", "Successful HTTP requests", "counter")
	b = appendMetric(b, "linkview_http_requests_success_total", float64(m.httpRequestsSuccess.Load()))

	b = appendHeader(b, "linkview_http_requests_error_total", "Failed HTTP requests", "counter")
	b = appendMetric(b, "linkview_http_requests_error_total", float64(m.httpRequestsError.Load()))

	b = appendHeader(b, "linkview_http_latency_seconds", "HTTP request latency", "histogram")
	bucketLabels := []string{"0.001", "0.005", "0.01", "0.025", "0.05", "0.1", "0.25", "0.5", "1", "+Inf"}
	var cumulative int64
	for i, label := range bucketLabels {
		cumulative += m.httpLatencyBuckets[i].Load()
		b = appendMetricWithLabel(b, "linkview_http_latency_seconds_bucket", "le", label, float64(cumulative))
	}
	b = appendMetric(b, "linkview_http_latency_seconds_sum", float64(m.httpLatencySum.Load())/1000000.0)
	b = appendMetric(b, "linkview_http_latency_seconds_count", float64(m.httpLatencyCount.Load()))

	// Interaction metrics
	kinds, events := m.eventCounts()
	b = appendHeader(b, "linkview_events_total", "Interaction events applied", "counter")
	for _, k := range kinds {
		b = appendMetricWithLabel(b, "linkview_events_total", "kind", k, float64(events[k]))
	}

	b = appendHeader(b, "linkview_event_errors_total", "Rejected interaction events", "counter")
	b = appendMetric(b, "linkview_event_errors_total", float64(m.eventErrors.Load()))

	b = appendHeader(b, "linkview_selection_updates_total", "Selections republished to the views", "counter")
	b = appendMetric(b, "linkview_selection_updates_total", float64(m.selectionUpdates.Load()))

	b = appendHeader(b, "linkview_selection_size", "Size of the last republished selection", "gauge")
	b = appendMetric(b, "linkview_selection_size", float64(m.selectionSize.Load()))

	b = appendHeader(b, "linkview_selection_recompute_seconds", "Time spent resolving selections", "summary")
	b = appendMetric(b, "linkview_selection_recompute_seconds_sum", float64(m.recomputeSum.Load())/1000000.0)
	b = appendMetric(b, "linkview_selection_recompute_seconds_count", float64(m.recomputeCount.Load()))

	b = appendHeader(b, "linkview_invalid_payloads_total", "Selection payloads that normalized to nothing", "counter")
	b = appendMetric(b, "linkview_invalid_payloads_total", float64(m.invalidPayloads.Load()))

	b = appendHeader(b, "linkview_dropped_payload_ids_total", "Malformed ids dropped from selection payloads", "counter")
	b = appendMetric(b, "linkview_dropped_payload_ids_total", float64(m.droppedPayloadIDs.Load()))

	// Session metrics
	b = appendHeader(b, "linkview_sessions_active", "Live sessions", "gauge")
	b = appendMetric(b, "linkview_sessions_active", float64(m.sessionsActive.Load()))

	b = appendHeader(b, "linkview_sessions_created_total", "Sessions created", "counter")
	b = appendMetric(b, "linkview_sessions_created_total", float64(m.sessionsCreated.Load()))

	b = appendHeader(b, "linkview_sessions_expired_total", "Sessions evicted after their TTL", "counter")
	b = appendMetric(b, "linkview_sessions_expired_total", float64(m.sessionsExpired.Load()))

	// Stream metrics
	b = appendHeader(b, "linkview_stream_clients", "Connected selection stream clients", "gauge")
	b = appendMetric(b, "linkview_stream_clients", float64(m.streamClients.Load()))

	b = appendHeader(b, "linkview_stream_messages_sent_total", "Selection messages pushed to clients", "counter")
	b = appendMetric(b, "linkview_stream_messages_sent_total", float64(m.streamSent.Load()))

	b = appendHeader(b, "linkview_stream_messages_dropped_total", "Selection messages dropped for slow clients", "counter")
	b = appendMetric(b, "linkview_stream_messages_dropped_total", float64(m.streamDropped.Load()))

	// Dataset metrics
	b = appendHeader(b, "linkview_dataset_rows", "Records in the loaded dataset", "gauge")
	b = appendMetric(b, "linkview_dataset_rows", float64(m.datasetRows.Load()))

	b = appendHeader(b, "linkview_dataset_malformed_cells", "Cells that failed coercion during load", "gauge")
	b = appendMetric(b, "linkview_dataset_malformed_cells", float64(m.datasetMalformedCells.Load()))

	b = appendHeader(b, "linkview_dataset_load_seconds", "Duration of the last dataset load", "gauge")
	b = appendMetric(b, "linkview_dataset_load_seconds", float64(m.datasetLoadMicros.Load())/1000000.0)

	b = appendHeader(b, "linkview_dataset_load_errors_total", "Failed dataset loads", "counter")
	b = appendMetric(b, "linkview_dataset_load_errors_total", float64(m.datasetLoadErrors.Load()))

	return string(b)
}

// Helper functions for Prometheus format
func appendHeader(b []byte, name, help, typ string) []byte {
	b = append(b, "# HELP "...)
	b = append(b, name...)
	b = append(b, ' ')
	b = append(b, help...)
	b = append(b, "\n# TYPE "...)
	b = append(b, name...)
	b = append(b, ' ')
	b = append(b, typ...)
	return append(b, '\n')
}

func appendMetric(b []byte, name string, value float64) []byte {
	b = append(b, name...)
	b = append(b, ' ')
	b = appendFloat(b, value)
	b = append(b, '\n')
	return b
}

func appendMetricWithLabel(b []byte, name, labelName, labelValue string, value float64) []byte {
	b = append(b, name...)
	b = append(b, '{')
	b = append(b, labelName...)
	b = append(b, '=', '"')
	b = append(b, labelValue...)
	b = append(b, '"', '}', ' ')
	b = appendFloat(b, value)
	b = append(b, '\n')
	return b
}

func appendFloat(b []byte, v float64) []byte {
	return strconv.AppendFloat(b, v, 'g', -1, 64)
}
