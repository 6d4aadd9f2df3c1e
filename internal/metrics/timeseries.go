package metrics

import (
	"runtime"
	"sync"
	"time"
)

// TimeSeriesPoint represents a single data point in a time series
type TimeSeriesPoint struct {
	Timestamp time.Time              `json:"timestamp"`
	Values    map[string]interface{} `json:"values"`
}

// TimeSeriesBuffer stores time-series metrics data
type TimeSeriesBuffer struct {
	mu       sync.RWMutex
	points   []TimeSeriesPoint
	size     int
	writePos int
	count    int
	interval time.Duration
	lastAdd  time.Time
}

// TimeSeriesCollector samples the counters at a fixed interval so recent
// interaction activity can be charted
type TimeSeriesCollector struct {
	system      *TimeSeriesBuffer // memory, goroutines
	interaction *TimeSeriesBuffer // events, selections, sessions
	api         *TimeSeriesBuffer // HTTP requests, latency
	interval    time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

// NewTimeSeriesCollector creates a new time-series collector
func NewTimeSeriesCollector(bufferSize int, interval time.Duration) *TimeSeriesCollector {
	return &TimeSeriesCollector{
		system:      NewTimeSeriesBuffer(bufferSize, interval),
		interaction: NewTimeSeriesBuffer(bufferSize, interval),
		api:         NewTimeSeriesBuffer(bufferSize, interval),
		interval:    interval,
		stopCh:      make(chan struct{}),
	}
}

// NewTimeSeriesBuffer creates a new time-series buffer
func NewTimeSeriesBuffer(size int, interval time.Duration) *TimeSeriesBuffer {
	return &TimeSeriesBuffer{
		points:   make([]TimeSeriesPoint, size),
		size:     size,
		interval: interval,
	}
}

// Start begins collecting time-series data
func (c *TimeSeriesCollector) Start() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-c.stopCh:
				return
			case <-ticker.C:
				c.collect(time.Now())
			}
		}
	}()
}

// Close stops the collector. Safe to call more than once.
func (c *TimeSeriesCollector) Close() error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.wg.Wait()
	return nil
}

func (c *TimeSeriesCollector) collect(now time.Time) {
	m := Get()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	c.system.Add(TimeSeriesPoint{
		Timestamp: now,
		Values: map[string]interface{}{
			"goroutines":      runtime.NumGoroutine(),
			"memory_alloc_mb": float64(memStats.Alloc) / 1024 / 1024,
			"memory_heap_mb":  float64(memStats.HeapAlloc) / 1024 / 1024,
			"gc_cycles":       memStats.NumGC,
		},
	})

	_, events := m.eventCounts()
	var eventsTotal int64
	for _, n := range events {
		eventsTotal += n
	}
	c.interaction.Add(TimeSeriesPoint{
		Timestamp: now,
		Values: map[string]interface{}{
			"events_total":      eventsTotal,
			"selection_updates": m.selectionUpdates.Load(),
			"selection_size":    m.selectionSize.Load(),
			"recompute_avg_us":  calculateAvg(m.recomputeSum.Load(), m.recomputeCount.Load()),
			"sessions_active":   m.sessionsActive.Load(),
			"stream_clients":    m.streamClients.Load(),
			"stream_dropped":    m.streamDropped.Load(),
		},
	})

	c.api.Add(TimeSeriesPoint{
		Timestamp: now,
		Values: map[string]interface{}{
			"http_requests_total":   m.httpRequestsTotal.Load(),
			"http_requests_success": m.httpRequestsSuccess.Load(),
			"http_requests_error":   m.httpRequestsError.Load(),
			"http_latency_avg_us":   calculateAvg(m.httpLatencySum.Load(), m.httpLatencyCount.Load()),
		},
	})
}

func calculateAvg(sum, count int64) float64 {
	if count == 0 {
		return 0
	}
	return float64(sum) / float64(count)
}

// Add adds a point to the buffer
func (b *TimeSeriesBuffer) Add(point TimeSeriesPoint) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.points[b.writePos] = point
	b.writePos = (b.writePos + 1) % b.size
	if b.count < b.size {
		b.count++
	}
	b.lastAdd = point.Timestamp
}

// GetRecent returns points from the last N minutes, oldest first
func (b *TimeSeriesBuffer) GetRecent(durationMinutes int) []TimeSeriesPoint {
	b.mu.RLock()
	defer b.mu.RUnlock()

	cutoff := time.Now().Add(-time.Duration(durationMinutes) * time.Minute)
	result := []TimeSeriesPoint{}

	for i := 0; i < b.count; i++ {
		idx := (b.writePos - b.count + i + b.size) % b.size
		point := b.points[idx]

		if point.Timestamp.After(cutoff) {
			result = append(result, point)
		}
	}

	return result
}

// Series returns the named series ("system", "interaction" or "api") for the
// last N minutes
func (c *TimeSeriesCollector) Series(name string, durationMinutes int) ([]TimeSeriesPoint, bool) {
	switch name {
	case "system":
		return c.system.GetRecent(durationMinutes), true
	case "interaction":
		return c.interaction.GetRecent(durationMinutes), true
	case "api":
		return c.api.GetRecent(durationMinutes), true
	default:
		return nil, false
	}
}
