package metrics

import (
	"testing"
	"time"
)

func TestTimeSeriesBuffer_RingBuffer(t *testing.T) {
	buf := NewTimeSeriesBuffer(3, time.Second)

	for i := 0; i < 5; i++ {
		buf.Add(TimeSeriesPoint{
			Timestamp: time.Now(),
			Values:    map[string]interface{}{"value": i},
		})
	}

	if buf.count != 3 {
		t.Errorf("count = %d, want 3 (buffer size)", buf.count)
	}
	if buf.writePos != 2 { // 5 % 3 = 2
		t.Errorf("writePos = %d, want 2", buf.writePos)
	}

	recent := buf.GetRecent(1)
	if len(recent) != 3 {
		t.Fatalf("GetRecent(1) returned %d points, want 3", len(recent))
	}
	if recent[0].Values["value"] != 2 || recent[2].Values["value"] != 4 {
		t.Errorf("points out of order: first=%v last=%v", recent[0].Values["value"], recent[2].Values["value"])
	}
}

func TestTimeSeriesBuffer_GetRecent(t *testing.T) {
	buf := NewTimeSeriesBuffer(10, time.Second)

	baseTime := time.Now().Add(-5 * time.Minute)
	for i := 0; i < 6; i++ {
		buf.Add(TimeSeriesPoint{
			Timestamp: baseTime.Add(time.Duration(i) * time.Minute),
			Values:    map[string]interface{}{"minute": i},
		})
	}

	// Last 3 minutes holds minutes 3, 4, 5
	if recent := buf.GetRecent(3); len(recent) != 3 {
		t.Errorf("GetRecent(3) returned %d points, want 3", len(recent))
	}
	if all := buf.GetRecent(10); len(all) != 6 {
		t.Errorf("GetRecent(10) returned %d points, want 6", len(all))
	}
	if empty := NewTimeSeriesBuffer(4, time.Second).GetRecent(10); empty == nil || len(empty) != 0 {
		t.Errorf("empty buffer returned %v, want empty slice", empty)
	}
}

func TestTimeSeriesCollector_Collect(t *testing.T) {
	collector := NewTimeSeriesCollector(10, time.Second)
	Get().IncEvent("click")
	Get().RecordSelection(7)

	collector.collect(time.Now())

	for _, name := range []string{"system", "interaction", "api"} {
		points, ok := collector.Series(name, 1)
		if !ok {
			t.Fatalf("series %q not found", name)
		}
		if len(points) != 1 {
			t.Errorf("series %q has %d points, want 1", name, len(points))
		}
	}

	points, _ := collector.Series("interaction", 1)
	for _, key := range []string{"events_total", "selection_updates", "selection_size", "recompute_avg_us", "sessions_active", "stream_clients"} {
		if _, ok := points[0].Values[key]; !ok {
			t.Errorf("interaction metrics missing key: %s", key)
		}
	}
	if got := points[0].Values["selection_size"]; got != int64(7) {
		t.Errorf("selection_size = %v, want 7", got)
	}

	if _, ok := collector.Series("query", 1); ok {
		t.Error("unknown series should not be found")
	}
}

func TestTimeSeriesCollector_StartClose(t *testing.T) {
	collector := NewTimeSeriesCollector(10, 20*time.Millisecond)
	collector.Start()
	time.Sleep(70 * time.Millisecond)

	if err := collector.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := collector.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	if points, _ := collector.Series("system", 1); len(points) == 0 {
		t.Error("no system data collected")
	}
}

func TestCalculateAvg(t *testing.T) {
	tests := []struct {
		name     string
		sum      int64
		count    int64
		expected float64
	}{
		{"zero count", 100, 0, 0},
		{"normal case", 1000, 10, 100},
		{"single value", 500, 1, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := calculateAvg(tt.sum, tt.count); result != tt.expected {
				t.Errorf("calculateAvg(%d, %d) = %f, want %f", tt.sum, tt.count, result, tt.expected)
			}
		})
	}
}
